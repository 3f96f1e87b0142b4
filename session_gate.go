package authgate

import "strings"

// SessionPresence is the result of a session check.
type SessionPresence struct {
	session *Session
}

// Present wraps a signed-in session. A session without a user id is absent.
func Present(s Session) SessionPresence {
	if strings.TrimSpace(s.UserID) == "" {
		return Absent()
	}
	return SessionPresence{session: &s}
}

// Absent is the presence value for nobody signed in.
func Absent() SessionPresence {
	return SessionPresence{}
}

func (p SessionPresence) IsPresent() bool {
	return p.session != nil
}

// Session returns a copy of the session, or nil when absent.
func (p SessionPresence) Session() *Session {
	if p.session == nil {
		return nil
	}
	s := *p.session
	return &s
}

func (p SessionPresence) String() string {
	if p.session == nil {
		return "absent"
	}
	return "present"
}

// Decision is what the gate wants done for the screen being activated.
type Decision struct {
	Presence SessionPresence
	Navigate bool
	Target   Screen
}

// SessionGate routes screen activations on the provider's local session state.
type SessionGate struct {
	provider IdentityProvider
}

// NewSessionGate returns a gate bound to provider.
func NewSessionGate(provider IdentityProvider) *SessionGate {
	return &SessionGate{provider: provider}
}

// CheckSession reads the provider's cached session. It never blocks on the
// network and never fails: a missing provider or session is Absent.
func (g *SessionGate) CheckSession() SessionPresence {
	if g == nil || g.provider == nil {
		return Absent()
	}

	s := g.provider.CurrentSession()
	if s == nil {
		return Absent()
	}

	return Present(*s)
}

// Decide checks the session for an activation of screen. A present session
// on the credential screen goes to the authenticated surface; an absent one
// on the authenticated or profile screen goes back to the credential screen.
func (g *SessionGate) Decide(screen Screen) Decision {
	presence := g.CheckSession()
	decision := Decision{Presence: presence}

	switch {
	case presence.IsPresent() && screen == ScreenCredential:
		decision.Navigate = true
		decision.Target = ScreenAuthenticated
	case !presence.IsPresent() && (screen == ScreenAuthenticated || screen == ScreenProfile):
		decision.Navigate = true
		decision.Target = ScreenCredential
	}

	return decision
}
