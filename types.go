package authgate

import (
	"context"
	"fmt"
	"strings"
)

// Logger is the structured logger used by the controller. Arguments after the
// message are key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Session identifies the signed-in identity.
type Session struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
}

// HasEmail reports whether the provider supplied an email for the session.
func (s *Session) HasEmail() bool {
	return s != nil && strings.TrimSpace(s.Email) != ""
}

// IdentityProvider stores credentials and issues sessions. SignIn and
// Register may block on the network and must honor ctx; SignOut and
// CurrentSession only touch local state.
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	Register(ctx context.Context, email, password string) (*Session, error)
	SignOut()
	CurrentSession() *Session
}

// Config holds the shell options consumed by the core
type Config interface {
	GetBundledRoot() string
	GetIndexFile() string
	GetAPIEndpoint() string
	GetTilesEndpoint() string
}

// Dispatcher runs tasks on the UI loop. Implementations must run tasks one at
// a time, in the order they were posted.
type Dispatcher interface {
	Post(task func())
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(task func())

// Post implements Dispatcher.
func (f DispatcherFunc) Post(task func()) {
	if f == nil || task == nil {
		return
	}
	f(task)
}

type defLogger struct{}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Print("[DBG] AUTHGATE " + line(msg, args))
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Print("[INF] AUTHGATE " + line(msg, args))
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Print("[WRN] AUTHGATE " + line(msg, args))
}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Print("[ERR] AUTHGATE " + line(msg, args))
}

func line(msg string, args []any) string {
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i < len(args); i += 2 {
		key := fmt.Sprint(args[i])
		var val any = "<missing>"
		if i+1 < len(args) {
			val = args[i+1]
		}
		fmt.Fprintf(&b, " %s=%v", key, val)
	}
	b.WriteByte('\n')
	return b.String()
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}
