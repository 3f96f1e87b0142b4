package authgate

import (
	"context"
	"time"
)

// HomeViewState is what the authenticated screen displays around the
// embedded surface.
type HomeViewState struct {
	Welcome string
	Target  LaunchTarget
}

// HomeRenderer displays the authenticated screen.
type HomeRenderer interface {
	RenderHome(state HomeViewState)
}

// HomeRendererFunc adapts a function to the HomeRenderer interface.
type HomeRendererFunc func(state HomeViewState)

// RenderHome implements HomeRenderer.
func (f HomeRendererFunc) RenderHome(state HomeViewState) {
	if f != nil {
		f(state)
	}
}

// ProfileRenderer displays the profile screen.
type ProfileRenderer interface {
	RenderProfile(view ProfileView)
}

// ProfileRendererFunc adapts a function to the ProfileRenderer interface.
type ProfileRendererFunc func(view ProfileView)

// RenderProfile implements ProfileRenderer.
func (f ProfileRendererFunc) RenderProfile(view ProfileView) {
	if f != nil {
		f(view)
	}
}

// ContentSurface is the embedded web client host.
type ContentSurface interface {
	Load(target LaunchTarget) error
}

// ContentSurfaceFunc adapts a function to the ContentSurface interface.
type ContentSurfaceFunc func(target LaunchTarget) error

// Load implements ContentSurface.
func (f ContentSurfaceFunc) Load(target LaunchTarget) error {
	if f == nil {
		return nil
	}
	return f(target)
}

// ShellOption customizes the shell.
type ShellOption func(*Shell)

func WithFormView(r FormRenderer) ShellOption {
	return func(s *Shell) {
		s.formView = r
	}
}

func WithHomeView(r HomeRenderer) ShellOption {
	return func(s *Shell) {
		s.homeView = r
	}
}

func WithProfileView(r ProfileRenderer) ShellOption {
	return func(s *Shell) {
		s.profileView = r
	}
}

func WithContentSurface(surface ContentSurface) ShellOption {
	return func(s *Shell) {
		s.surface = surface
	}
}

// WithLabels overrides the default labels. Empty fields keep their default.
func WithLabels(l Labels) ShellOption {
	return func(s *Shell) {
		s.labels = mergeLabels(s.labels, l)
	}
}

// WithLogger sets the logger shared by the shell components.
func WithLogger(logger Logger) ShellOption {
	return func(s *Shell) {
		s.logger = normalizeLogger(logger)
	}
}

// WithActivitySink sets the sink for submit, sign-out and navigation events.
func WithActivitySink(sink ActivitySink) ShellOption {
	return func(s *Shell) {
		s.activity = normalizeActivitySink(sink)
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) ShellOption {
	return func(s *Shell) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithFormOptions passes extra options to the credential form.
func WithFormOptions(opts ...FormOption) ShellOption {
	return func(s *Shell) {
		s.formOpts = append(s.formOpts, opts...)
	}
}

// Shell owns the screen stack and wires the gate, the credential form and
// the profile presenter together. Like the form, it must only be used from
// the dispatcher's goroutine.
type Shell struct {
	provider   IdentityProvider
	dispatcher Dispatcher
	bundle     Bundle
	endpoints  Endpoints

	gate    *SessionGate
	form    *CredentialForm
	profile *ProfilePresenter
	graph   navigationGraph
	stack   []Screen
	target  LaunchTarget

	formView    FormRenderer
	homeView    HomeRenderer
	profileView ProfileRenderer
	surface     ContentSurface
	labels      Labels
	logger      Logger
	activity    ActivitySink
	now         func() time.Time
	formOpts    []FormOption
}

// NewShell builds a shell with no screen started. Call Start to launch it.
func NewShell(provider IdentityProvider, dispatcher Dispatcher, cfg Config, opts ...ShellOption) *Shell {
	s := &Shell{
		provider:   provider,
		dispatcher: dispatcher,
		bundle:     BundleFromConfig(cfg),
		endpoints:  EndpointsFromConfig(cfg),
		gate:       NewSessionGate(provider),
		graph:      defaultNavigationGraph(),
		labels:     DefaultLabels(),
		logger:     defLogger{},
		activity:   noopActivitySink{},
		now:        time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	formOpts := []FormOption{
		WithFormRenderer(s.formView),
		WithFormLabels(s.labels),
		WithFormLogger(s.logger),
		WithFormActivitySink(s.activity),
		WithFormClock(s.now),
	}
	s.form = NewCredentialForm(provider, dispatcher, s, append(formOpts, s.formOpts...)...)

	s.profile = NewProfilePresenter(provider,
		WithSignedOutHandler(s.afterSignOut),
		WithProfileLogger(s.logger),
		WithProfileActivitySink(s.activity),
	)

	return s
}

// Start launches the first screen: the authenticated surface when a session
// is cached, the credential screen otherwise.
func (s *Shell) Start() error {
	if len(s.stack) > 0 {
		return nil
	}

	target := ScreenCredential
	if s.gate.CheckSession().IsPresent() {
		target = ScreenAuthenticated
	}
	return s.Navigate(target)
}

// Current returns the visible screen.
func (s *Shell) Current() Screen {
	if len(s.stack) == 0 {
		return ScreenNone
	}
	return s.stack[len(s.stack)-1]
}

// Stack returns a copy of the screen stack, bottom first.
func (s *Shell) Stack() []Screen {
	out := make([]Screen, len(s.stack))
	copy(out, s.stack)
	return out
}

func (s *Shell) Form() *CredentialForm {
	return s.form
}

func (s *Shell) Profile() *ProfilePresenter {
	return s.profile
}

func (s *Shell) Gate() *SessionGate {
	return s.gate
}

// LaunchTarget returns the last target loaded into the content surface.
func (s *Shell) LaunchTarget() LaunchTarget {
	return s.target
}

// Navigate implements Navigator.
func (s *Shell) Navigate(to Screen) error {
	from := s.Current()
	action, ok := s.graph.action(from, to)
	if !ok {
		return withMetadata(ErrInvalidNavigation, map[string]any{
			"from": string(from),
			"to":   string(to),
		})
	}

	if from == ScreenCredential {
		s.form.Detach()
	}
	if to == ScreenCredential {
		s.target = LaunchTarget{}
	}

	switch action {
	case NavLaunch, NavReset:
		s.stack = []Screen{to}
	case NavReplace:
		s.stack[len(s.stack)-1] = to
	case NavPush:
		s.stack = append(s.stack, to)
	case NavPop:
		if len(s.stack) > 1 {
			s.stack = s.stack[:len(s.stack)-1]
		}
		s.stack[len(s.stack)-1] = to
	}

	s.logger.Debug("navigate", "from", from, "to", to, "action", action)
	recordActivity(context.Background(), s.activity, s.logger, s.now, ActivityEvent{
		EventType: ActivityNavigation,
		From:      from,
		To:        to,
		Metadata:  map[string]any{"action": string(action)},
	})

	return s.activate(to, action != NavPop)
}

// Activate re-runs the activation of screen, as a host does when a screen
// comes back to the foreground. It is a no-op for a screen that is not the
// visible one, so a screen finished by an earlier activation never navigates
// twice.
func (s *Shell) Activate(screen Screen) error {
	if screen == ScreenNone || screen != s.Current() {
		return nil
	}
	return s.activate(screen, false)
}

// Refresh re-runs the gate for the visible screen.
func (s *Shell) Refresh() error {
	return s.Activate(s.Current())
}

// OpenProfile pushes the profile screen over the authenticated surface.
func (s *Shell) OpenProfile() error {
	return s.Navigate(ScreenProfile)
}

// Back returns from the profile screen to the authenticated surface.
func (s *Shell) Back() error {
	if s.Current() != ScreenProfile {
		return withMetadata(ErrInvalidNavigation, map[string]any{
			"from":   string(s.Current()),
			"action": string(NavPop),
		})
	}
	return s.Navigate(ScreenAuthenticated)
}

// SignOut ends the session and returns to the credential screen.
func (s *Shell) SignOut() {
	s.profile.SignOut()
}

func (s *Shell) afterSignOut() {
	if err := s.Refresh(); err != nil {
		s.logger.Error("session gate after sign out failed", "error", err)
	}
}

func (s *Shell) activate(screen Screen, load bool) error {
	decision := s.gate.Decide(screen)
	if decision.Navigate {
		return s.Navigate(decision.Target)
	}

	switch screen {
	case ScreenCredential:
		s.form.Attach()
	case ScreenAuthenticated:
		s.showHome(decision.Presence.Session(), load)
	case ScreenProfile:
		if s.profileView != nil {
			s.profileView.RenderProfile(s.profile.Present(decision.Presence.Session()))
		}
	}

	return nil
}

func (s *Shell) showHome(session *Session, load bool) {
	if load || s.target.URL == "" {
		target, err := BuildLaunchTarget(session, s.bundle, s.endpoints)
		if err != nil {
			s.logger.Error("build launch target failed", "error", err)
		} else {
			s.target = target
			if s.surface != nil {
				if err := s.surface.Load(target); err != nil {
					s.logger.Error("content surface load failed", "url", target.URL, "error", err)
				}
			}
		}
	}

	if s.homeView != nil {
		s.homeView.RenderHome(HomeViewState{
			Welcome: s.labels.Welcome(session),
			Target:  s.target,
		})
	}
}
