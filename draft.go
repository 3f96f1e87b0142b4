package authgate

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Mode is the credential form mode.
type Mode int

const (
	ModeSignIn Mode = iota
	ModeRegister
)

func (m Mode) String() string {
	switch m {
	case ModeSignIn:
		return "sign_in"
	case ModeRegister:
		return "register"
	default:
		return "unknown"
	}
}

// Toggle returns the other mode.
func (m Mode) Toggle() Mode {
	if m == ModeRegister {
		return ModeSignIn
	}
	return ModeRegister
}

// CredentialDraft is a snapshot of the credential form input. ConfirmPassword
// is ignored in ModeSignIn.
type CredentialDraft struct {
	Email           string `json:"email"`
	Password        string `json:"-"`
	ConfirmPassword string `json:"-"`
	Mode            Mode   `json:"mode"`
}

// Normalize trims the fields that take part in the current mode and drops the
// confirmation when signing in.
func (d CredentialDraft) Normalize() CredentialDraft {
	d.Email = strings.TrimSpace(d.Email)
	d.Password = strings.TrimSpace(d.Password)
	if d.Mode == ModeRegister {
		d.ConfirmPassword = strings.TrimSpace(d.ConfirmPassword)
	} else {
		d.ConfirmPassword = ""
	}
	return d
}

// OutcomeKind enumerates submit outcomes.
type OutcomeKind string

const (
	OutcomeValid            OutcomeKind = "valid"
	OutcomeMissingFields    OutcomeKind = "missing_fields"
	OutcomePasswordMismatch OutcomeKind = "password_mismatch"
	OutcomeProviderError    OutcomeKind = "provider_error"
	// OutcomePending is returned by a submit that was handed to the provider
	// and has not completed yet.
	OutcomePending OutcomeKind = "pending"
)

// Outcome is the result of validating and submitting a draft.
type Outcome struct {
	Kind    OutcomeKind
	Message string
	Reason  FailureReason
	Session *Session
}

// IsFailure reports whether the outcome should be displayed as an error.
func (o Outcome) IsFailure() bool {
	switch o.Kind {
	case OutcomeMissingFields, OutcomePasswordMismatch, OutcomeProviderError:
		return true
	}
	return false
}

var errPasswordMismatch = errors.New("passwords do not match")

// Validate runs the local checks on a draft: missing fields first, then the
// confirmation match in register mode. It never talks to a provider.
func Validate(draft CredentialDraft) Outcome {
	d := draft.Normalize()

	if err := d.validatePresence(); err != nil {
		return Outcome{Kind: OutcomeMissingFields}
	}

	if d.Mode == ModeRegister {
		if err := d.validateConfirmation(); err != nil {
			return Outcome{Kind: OutcomePasswordMismatch}
		}
	}

	return Outcome{Kind: OutcomeValid}
}

func (d CredentialDraft) validatePresence() error {
	confirmRules := []validation.Rule{}
	if d.Mode == ModeRegister {
		confirmRules = append(confirmRules, validation.Required)
	}

	return validation.ValidateStruct(&d,
		validation.Field(&d.Email, validation.Required),
		validation.Field(&d.Password, validation.Required),
		validation.Field(&d.ConfirmPassword, confirmRules...),
	)
}

func (d CredentialDraft) validateConfirmation() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.ConfirmPassword, validation.By(matchesString(d.Password))),
	)
}

func matchesString(expected string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != expected {
			return errPasswordMismatch
		}
		return nil
	}
}
