package authgate

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeSubmitInProgress  = "SUBMIT_IN_PROGRESS"
	TextCodeTooManyAttempts   = "TOO_MANY_ATTEMPTS"
	TextCodeFormDetached      = "FORM_DETACHED"
	TextCodeInvalidNavigation = "INVALID_NAVIGATION"
	TextCodeSessionNotFound   = "SESSION_NOT_FOUND"
	TextCodeInvalidEndpoint   = "INVALID_ENDPOINT"
)

// ErrSubmitInProgress is returned when a submit arrives while a previous one
// is still waiting on the identity provider.
var ErrSubmitInProgress = goerrors.New("a submit is already in progress", goerrors.CategoryConflict).
	WithTextCode(TextCodeSubmitInProgress).
	WithCode(goerrors.CodeConflict)

// ErrTooManyAttempts is returned when the attempt limiter refuses a submit.
var ErrTooManyAttempts = goerrors.New("too many attempts, try again later", goerrors.CategoryRateLimit).
	WithTextCode(TextCodeTooManyAttempts).
	WithCode(http.StatusTooManyRequests)

// ErrFormDetached is returned when the credential form is used while its
// screen is not active.
var ErrFormDetached = goerrors.New("credential form is not attached to an active screen", goerrors.CategoryOperation).
	WithTextCode(TextCodeFormDetached).
	WithCode(goerrors.CodeConflict)

// ErrInvalidNavigation is returned for a screen transition the shell does not allow.
var ErrInvalidNavigation = goerrors.New("invalid screen transition", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidNavigation).
	WithCode(goerrors.CodeBadRequest)

// ErrNoSession is returned by session stores and builders when nobody is signed in.
var ErrNoSession = goerrors.New("no active session", goerrors.CategoryNotFound).
	WithTextCode(TextCodeSessionNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrInvalidEndpoint is returned when a backend endpoint is not an absolute http(s) address.
var ErrInvalidEndpoint = goerrors.New("invalid backend endpoint", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidEndpoint).
	WithCode(goerrors.CodeBadRequest)

func withMetadata(base *goerrors.Error, meta map[string]any) error {
	clone := base.Clone()
	if clone == nil {
		clone = base
	}
	return clone.WithMetadata(meta)
}

// HasTextCode reports whether err is a rich error carrying the given text code.
func HasTextCode(err error, code string) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}
