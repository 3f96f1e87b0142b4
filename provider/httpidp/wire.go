package httpidp

import (
	"encoding/json"
	"sort"
	"strings"
)

type credentials struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// envelope is the response body used by every endpoint. Failures set error
// to true with a message, or to "Validation failed" with per field errors.
type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Error   json.RawMessage     `json:"error"`
	Code    json.RawMessage     `json:"code"`
	Errors  map[string][]string `json:"errors"`
}

type sessionData struct {
	Token     string   `json:"token"`
	ExpiresIn int64    `json:"expires_in"`
	User      userData `json:"user"`
}

type registerData struct {
	User userData `json:"user"`
}

type userData struct {
	ID        flexibleID `json:"id"`
	Email     string     `json:"email"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
}

// flexibleID accepts numeric and string ids.
type flexibleID string

func (id *flexibleID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = flexibleID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = flexibleID(n.String())
	return nil
}

func (e envelope) errorMessage() string {
	if len(e.Errors) > 0 {
		fields := make([]string, 0, len(e.Errors))
		for field := range e.Errors {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			for _, msg := range e.Errors[field] {
				if msg = strings.TrimSpace(msg); msg != "" {
					return msg
				}
			}
		}
	}

	if msg := strings.TrimSpace(e.Message); msg != "" {
		return msg
	}

	var label string
	if err := json.Unmarshal(e.Error, &label); err == nil {
		return strings.TrimSpace(label)
	}
	return ""
}

func (e envelope) errorCode() string {
	if len(e.Code) == 0 {
		return ""
	}
	var id flexibleID
	if err := json.Unmarshal(e.Code, &id); err != nil {
		return ""
	}
	return string(id)
}

// splitName derives the first and last name the register endpoint requires
// from the local part of the email.
func splitName(email string) (string, string) {
	local := email
	if at := strings.Index(email, "@"); at > 0 {
		local = email[:at]
	}

	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	if len(parts) == 0 {
		return local, local
	}

	first := capitalize(parts[0])
	if len(parts) == 1 {
		return first, first
	}
	return first, capitalize(strings.Join(parts[1:], " "))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
