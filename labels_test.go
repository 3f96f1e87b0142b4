package authgate_test

import (
	"testing"

	"github.com/goliatone/go-authgate"
	"github.com/stretchr/testify/assert"
)

func TestLabelsWelcome(t *testing.T) {
	withEmail := &authgate.Session{UserID: "u-1", Email: "user@example.com"}

	tests := []struct {
		name    string
		format  string
		session *authgate.Session
		want    string
	}{
		{name: "default", format: "Welcome, %s", session: withEmail, want: "Welcome, user@example.com"},
		{name: "no email", format: "Welcome, %s", session: &authgate.Session{UserID: "u-1"}, want: "Welcome"},
		{name: "custom format", format: "Hello %s!", session: withEmail, want: "Hello user@example.com!"},
		{name: "escaped percent", format: "100%% %s", session: withEmail, want: "100% user@example.com"},
		{name: "missing verb", format: "Welcome back", session: withEmail, want: "Welcome, user@example.com"},
		{name: "wrong verb", format: "Welcome %d", session: withEmail, want: "Welcome, user@example.com"},
		{name: "two verbs", format: "%s %s", session: withEmail, want: "Welcome, user@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			labels := authgate.DefaultLabels()
			labels.WelcomeWithEmail = tt.format
			assert.Equal(t, tt.want, labels.Welcome(tt.session))
		})
	}
}
