package authgate

import (
	"context"
	"strings"
	"time"
)

// Placeholder is shown for identity attributes that are not available.
const Placeholder = "-"

// ProfileView is the read only identity shown on the profile screen.
type ProfileView struct {
	Email  string
	UserID string
}

// ProfileOption customizes the presenter.
type ProfileOption func(*ProfilePresenter)

// WithSignedOutHandler is called after the provider signed out, typically to
// run the session gate again.
func WithSignedOutHandler(fn func()) ProfileOption {
	return func(p *ProfilePresenter) {
		p.onSignedOut = fn
	}
}

func WithProfileLogger(logger Logger) ProfileOption {
	return func(p *ProfilePresenter) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithProfileActivitySink(sink ActivitySink) ProfileOption {
	return func(p *ProfilePresenter) {
		p.activity = normalizeActivitySink(sink)
	}
}

// ProfilePresenter renders the current identity and offers sign-out.
type ProfilePresenter struct {
	provider    IdentityProvider
	onSignedOut func()
	logger      Logger
	activity    ActivitySink
	now         func() time.Time
}

func NewProfilePresenter(provider IdentityProvider, opts ...ProfileOption) *ProfilePresenter {
	p := &ProfilePresenter{
		provider: provider,
		logger:   defLogger{},
		activity: noopActivitySink{},
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Present maps a session to its view. A nil session or a missing attribute
// is shown as Placeholder.
func (p *ProfilePresenter) Present(s *Session) ProfileView {
	view := ProfileView{Email: Placeholder, UserID: Placeholder}
	if s == nil {
		return view
	}
	if id := strings.TrimSpace(s.UserID); id != "" {
		view.UserID = id
	}
	if s.HasEmail() {
		view.Email = strings.TrimSpace(s.Email)
	}
	return view
}

// Current presents the provider's current session.
func (p *ProfilePresenter) Current() ProfileView {
	if p.provider == nil {
		return p.Present(nil)
	}
	return p.Present(p.provider.CurrentSession())
}

// SignOut ends the provider session and then invokes the signed-out handler.
func (p *ProfilePresenter) SignOut() {
	var userID string
	if p.provider != nil {
		if s := p.provider.CurrentSession(); s != nil {
			userID = s.UserID
		}
		p.provider.SignOut()
	}

	p.logger.Info("signed out", "user_id", userID)
	recordActivity(context.Background(), p.activity, p.logger, p.now, ActivityEvent{
		EventType: ActivitySignOut,
		UserID:    userID,
	})

	if p.onSignedOut != nil {
		p.onSignedOut()
	}
}
