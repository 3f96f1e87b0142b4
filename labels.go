package authgate

import (
	"fmt"
	"strings"
)

// Labels holds the user visible strings the controller renders.
type Labels struct {
	ActionSignIn     string
	ActionRegister   string
	ToggleToRegister string
	ToggleToSignIn   string
	MissingFields    string
	PasswordMismatch string
	Generic          string
	Unavailable      string
	TooManyAttempts  string
	WelcomeDefault   string
	// WelcomeWithEmail is a format string with a single %s for the email.
	// Any other format falls back to WelcomeDefault followed by the email.
	WelcomeWithEmail string
}

// DefaultLabels returns the English labels.
func DefaultLabels() Labels {
	return Labels{
		ActionSignIn:     "Sign in",
		ActionRegister:   "Create account",
		ToggleToRegister: "No account yet? Register",
		ToggleToSignIn:   "Already registered? Sign in",
		MissingFields:    "Please fill in all fields",
		PasswordMismatch: "Passwords do not match",
		Generic:          "Authentication failed",
		Unavailable:      "Unable to reach the server, check your connection",
		TooManyAttempts:  "Too many attempts, please wait a moment",
		WelcomeDefault:   "Welcome",
		WelcomeWithEmail: "Welcome, %s",
	}
}

func (l Labels) primary(mode Mode) string {
	if mode == ModeRegister {
		return l.ActionRegister
	}
	return l.ActionSignIn
}

func (l Labels) toggle(mode Mode) string {
	if mode == ModeRegister {
		return l.ToggleToSignIn
	}
	return l.ToggleToRegister
}

func (l Labels) outcome(o Outcome) string {
	switch o.Kind {
	case OutcomeMissingFields:
		return l.MissingFields
	case OutcomePasswordMismatch:
		return l.PasswordMismatch
	case OutcomeProviderError:
		if o.Message != "" {
			return o.Message
		}
		return l.Generic
	}
	return ""
}

func (l Labels) fallback(reason FailureReason) string {
	if reason == ReasonUnavailable && l.Unavailable != "" {
		return l.Unavailable
	}
	return l.Generic
}

// Welcome returns the authenticated screen greeting for s.
func (l Labels) Welcome(s *Session) string {
	if !s.HasEmail() {
		return l.WelcomeDefault
	}
	if validEmailFormat(l.WelcomeWithEmail) {
		return fmt.Sprintf(l.WelcomeWithEmail, s.Email)
	}
	return l.WelcomeDefault + ", " + s.Email
}

// validEmailFormat reports whether format has exactly one verb and it is %s.
func validEmailFormat(format string) bool {
	rest := strings.ReplaceAll(format, "%%", "")
	return strings.Count(rest, "%") == 1 && strings.Count(rest, "%s") == 1
}

func mergeLabels(base, override Labels) Labels {
	pick := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	pick(&base.ActionSignIn, override.ActionSignIn)
	pick(&base.ActionRegister, override.ActionRegister)
	pick(&base.ToggleToRegister, override.ToggleToRegister)
	pick(&base.ToggleToSignIn, override.ToggleToSignIn)
	pick(&base.MissingFields, override.MissingFields)
	pick(&base.PasswordMismatch, override.PasswordMismatch)
	pick(&base.Generic, override.Generic)
	pick(&base.Unavailable, override.Unavailable)
	pick(&base.TooManyAttempts, override.TooManyAttempts)
	pick(&base.WelcomeDefault, override.WelcomeDefault)
	pick(&base.WelcomeWithEmail, override.WelcomeWithEmail)
	return base
}
