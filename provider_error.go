package authgate

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// FailureReason classifies why an identity provider call failed.
type FailureReason string

const (
	// ReasonRejected means the provider answered and refused the credentials.
	ReasonRejected FailureReason = "rejected"
	// ReasonUnavailable means the provider could not be reached or failed internally.
	ReasonUnavailable FailureReason = "unavailable"
	// ReasonUnknown is used when the failure carries no classification.
	ReasonUnknown FailureReason = "unknown"
)

// ProviderError captures normalized identity provider failure details.
type ProviderError struct {
	Provider  string
	Operation string
	Reason    FailureReason
	Status    int
	Code      string
	Message   string
	Err       error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}

	scope := "provider"
	if e.Provider != "" && e.Operation != "" {
		scope = fmt.Sprintf("%s %s", e.Provider, e.Operation)
	} else if e.Provider != "" {
		scope = e.Provider
	} else if e.Operation != "" {
		scope = e.Operation
	}

	if e.Message != "" {
		return fmt.Sprintf("%s failed: %s", scope, e.Message)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s failed: %s", scope, e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %v", scope, e.Err)
	}

	return fmt.Sprintf("%s failed", scope)
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Metadata returns the populated fields as a map, for logging.
func (e *ProviderError) Metadata() map[string]any {
	if e == nil {
		return nil
	}

	meta := map[string]any{}
	if e.Provider != "" {
		meta["provider"] = e.Provider
	}
	if e.Operation != "" {
		meta["operation"] = e.Operation
	}
	if e.Reason != "" {
		meta["reason"] = string(e.Reason)
	}
	if e.Status != 0 {
		meta["status"] = e.Status
	}
	if e.Code != "" {
		meta["code"] = e.Code
	}
	if e.Message != "" {
		meta["message"] = e.Message
	}
	if e.Err != nil {
		meta["error"] = e.Err.Error()
	}

	return meta
}

// Rejected builds a ProviderError for refused credentials.
func Rejected(provider, operation, message string) *ProviderError {
	return &ProviderError{
		Provider:  provider,
		Operation: operation,
		Reason:    ReasonRejected,
		Message:   message,
	}
}

// Unavailable builds a ProviderError for a provider that could not be reached.
func Unavailable(provider, operation string, err error) *ProviderError {
	return &ProviderError{
		Provider:  provider,
		Operation: operation,
		Reason:    ReasonUnavailable,
		Err:       err,
	}
}

// ReasonOf classifies err. Transport level failures that are not wrapped in a
// ProviderError are reported as unavailable.
func ReasonOf(err error) FailureReason {
	if err == nil {
		return ""
	}

	var perr *ProviderError
	if errors.As(err, &perr) && perr != nil && perr.Reason != "" {
		return perr.Reason
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ReasonUnavailable
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ReasonUnavailable
	}

	return ReasonUnknown
}

// MessageOf returns the diagnostic the provider attached to err, or an empty
// string when it supplied none.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}

	var perr *ProviderError
	if errors.As(err, &perr) && perr != nil {
		return strings.TrimSpace(perr.Message)
	}

	return strings.TrimSpace(err.Error())
}
