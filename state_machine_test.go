package authgate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitMachineLifecycle(t *testing.T) {
	m := newSubmitMachine()
	assert.Equal(t, SubmitIdle, m.current())

	attempt, err := m.begin()
	require.NoError(t, err)
	assert.Equal(t, SubmitSubmitting, m.current())

	_, err = m.begin()
	assert.ErrorIs(t, err, ErrSubmitInProgress)

	assert.True(t, m.resolve(attempt))
	assert.Equal(t, SubmitIdle, m.current())
	assert.False(t, m.resolve(attempt), "resolving twice")
}

func TestSubmitMachineDropsStaleAttempts(t *testing.T) {
	m := newSubmitMachine()

	first, err := m.begin()
	require.NoError(t, err)
	m.reset()

	second, err := m.begin()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	assert.False(t, m.resolve(first))
	assert.Equal(t, SubmitSubmitting, m.current())
	assert.True(t, m.resolve(second))
}

func TestNavigationGraph(t *testing.T) {
	g := defaultNavigationGraph()

	tests := []struct {
		from, to Screen
		action   NavigationAction
		ok       bool
	}{
		{ScreenNone, ScreenCredential, NavLaunch, true},
		{ScreenNone, ScreenAuthenticated, NavLaunch, true},
		{ScreenCredential, ScreenAuthenticated, NavReplace, true},
		{ScreenAuthenticated, ScreenProfile, NavPush, true},
		{ScreenAuthenticated, ScreenCredential, NavReplace, true},
		{ScreenProfile, ScreenAuthenticated, NavPop, true},
		{ScreenProfile, ScreenCredential, NavReset, true},
		{ScreenCredential, ScreenProfile, "", false},
		{ScreenNone, ScreenProfile, "", false},
		{ScreenAuthenticated, ScreenAuthenticated, "", false},
	}

	for _, tt := range tests {
		action, ok := g.action(tt.from, tt.to)
		assert.Equal(t, tt.ok, ok, "%q -> %q", tt.from, tt.to)
		assert.Equal(t, tt.action, action, "%q -> %q", tt.from, tt.to)
	}
}
