package authgate_test

import (
	"testing"

	"github.com/goliatone/go-authgate"
	"github.com/stretchr/testify/assert"
)

func TestProfilePresent(t *testing.T) {
	p := authgate.NewProfilePresenter(&MockIdentityProvider{}, authgate.WithProfileLogger(silentLogger{}))

	assert.Equal(t, authgate.ProfileView{Email: "-", UserID: "-"}, p.Present(nil))
	assert.Equal(t, authgate.ProfileView{Email: "-", UserID: "u-1"}, p.Present(&authgate.Session{UserID: "u-1"}))
	assert.Equal(t,
		authgate.ProfileView{Email: "user@example.com", UserID: "u-1"},
		p.Present(&authgate.Session{UserID: "u-1", Email: " user@example.com "}),
	)
}

func TestProfileCurrent(t *testing.T) {
	provider := &MockIdentityProvider{}
	p := authgate.NewProfilePresenter(provider, authgate.WithProfileLogger(silentLogger{}))
	assert.Equal(t, authgate.Placeholder, p.Current().UserID)

	provider.SetCurrent(&authgate.Session{UserID: "u-1", Email: "user@example.com"})
	assert.Equal(t, "user@example.com", p.Current().Email)

	assert.Equal(t, authgate.Placeholder, authgate.NewProfilePresenter(nil).Current().Email)
}

func TestProfileSignOut(t *testing.T) {
	provider := &MockIdentityProvider{}
	provider.SetCurrent(&authgate.Session{UserID: "u-1"})
	sink := &activityRecorder{}

	var gateAfter authgate.SessionPresence
	called := 0
	p := authgate.NewProfilePresenter(provider,
		authgate.WithProfileLogger(silentLogger{}),
		authgate.WithProfileActivitySink(sink),
		authgate.WithSignedOutHandler(func() {
			called++
			gateAfter = authgate.NewSessionGate(provider).CheckSession()
		}),
	)

	p.SignOut()

	assert.Equal(t, 1, called)
	assert.Equal(t, 1, provider.SignOuts())
	assert.False(t, gateAfter.IsPresent())
	assert.Equal(t, []authgate.ActivityEventType{authgate.ActivitySignOut}, sink.types())
	assert.Equal(t, "u-1", sink.events[0].UserID)
}
