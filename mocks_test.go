package authgate_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-authgate"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockIdentityProvider implements authgate.IdentityProvider. SignIn and
// Register go through the mock; a successful call becomes the current
// session.
type MockIdentityProvider struct {
	mock.Mock

	mu       sync.Mutex
	current  *authgate.Session
	signOuts int
}

func (m *MockIdentityProvider) SignIn(ctx context.Context, email, password string) (*authgate.Session, error) {
	args := m.Called(ctx, email, password)
	return m.result(args)
}

func (m *MockIdentityProvider) Register(ctx context.Context, email, password string) (*authgate.Session, error) {
	args := m.Called(ctx, email, password)
	return m.result(args)
}

func (m *MockIdentityProvider) SignOut() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = nil
	m.signOuts++
}

func (m *MockIdentityProvider) CurrentSession() *authgate.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	s := *m.current
	return &s
}

func (m *MockIdentityProvider) SetCurrent(s *authgate.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = s
}

func (m *MockIdentityProvider) SignOuts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.signOuts
}

func (m *MockIdentityProvider) result(args mock.Arguments) (*authgate.Session, error) {
	session, _ := args.Get(0).(*authgate.Session)
	err := args.Error(1)
	if err == nil && session != nil && session.UserID != "" {
		m.SetCurrent(session)
	}
	return session, err
}

// MockNavigator implements authgate.Navigator
type MockNavigator struct {
	mock.Mock
}

func (m *MockNavigator) Navigate(to authgate.Screen) error {
	args := m.Called(to)
	return args.Error(0)
}

type formRecorder struct {
	states []authgate.FormViewState
}

func (r *formRecorder) RenderForm(state authgate.FormViewState) {
	r.states = append(r.states, state)
}

func (r *formRecorder) last() authgate.FormViewState {
	if len(r.states) == 0 {
		return authgate.FormViewState{}
	}
	return r.states[len(r.states)-1]
}

type homeRecorder struct {
	states []authgate.HomeViewState
}

func (r *homeRecorder) RenderHome(state authgate.HomeViewState) {
	r.states = append(r.states, state)
}

type profileRecorder struct {
	views []authgate.ProfileView
}

func (r *profileRecorder) RenderProfile(view authgate.ProfileView) {
	r.views = append(r.views, view)
}

type surfaceRecorder struct {
	targets []authgate.LaunchTarget
}

func (r *surfaceRecorder) Load(target authgate.LaunchTarget) error {
	r.targets = append(r.targets, target)
	return nil
}

type activityRecorder struct {
	mu     sync.Mutex
	events []authgate.ActivityEvent
}

func (r *activityRecorder) Record(_ context.Context, event authgate.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *activityRecorder) types() []authgate.ActivityEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]authgate.ActivityEventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType
	}
	return out
}

type silentLogger struct{}

func (silentLogger) Debug(string, ...any) {}
func (silentLogger) Info(string, ...any)  {}
func (silentLogger) Warn(string, ...any)  {}
func (silentLogger) Error(string, ...any) {}

type staticConfig struct {
	root, index, api, tiles string
}

func (c staticConfig) GetBundledRoot() string   { return c.root }
func (c staticConfig) GetIndexFile() string     { return c.index }
func (c staticConfig) GetAPIEndpoint() string   { return c.api }
func (c staticConfig) GetTilesEndpoint() string { return c.tiles }

func defaultTestConfig() staticConfig {
	return staticConfig{
		root:  authgate.DefaultBundledRoot,
		index: authgate.DefaultIndexFile,
		api:   authgate.DefaultAPIEndpoint,
		tiles: authgate.DefaultTilesEndpoint,
	}
}

// runNext runs the next task posted to loop, failing the test if none
// arrives in time.
func runNext(t *testing.T, loop *authgate.EventLoop) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, loop.RunOnce(ctx), "expected a completion on the event loop")
}
