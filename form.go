package authgate

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"
)

// FormViewState is what the credential screen should display.
type FormViewState struct {
	Mode           Mode
	ConfirmVisible bool
	PrimaryLabel   string
	PrimaryEnabled bool
	ToggleLabel    string
	Error          string
	Submitting     bool
}

// FormRenderer displays the credential form.
type FormRenderer interface {
	RenderForm(state FormViewState)
}

// FormRendererFunc adapts a function to the FormRenderer interface.
type FormRendererFunc func(state FormViewState)

// RenderForm implements FormRenderer.
func (f FormRendererFunc) RenderForm(state FormViewState) {
	if f != nil {
		f(state)
	}
}

// FormOption customizes the credential form.
type FormOption func(*CredentialForm)

// WithFormRenderer sets the view that receives form state updates.
func WithFormRenderer(r FormRenderer) FormOption {
	return func(f *CredentialForm) {
		f.renderer = r
	}
}

// WithFormLabels overrides the default labels. Empty fields keep their default.
func WithFormLabels(l Labels) FormOption {
	return func(f *CredentialForm) {
		f.labels = mergeLabels(f.labels, l)
	}
}

// WithFormLogger overrides the logger.
func WithFormLogger(logger Logger) FormOption {
	return func(f *CredentialForm) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithFormActivitySink sets the sink used to publish submit events.
func WithFormActivitySink(sink ActivitySink) FormOption {
	return func(f *CredentialForm) {
		f.activity = normalizeActivitySink(sink)
	}
}

// WithAttemptLimiter throttles submits that reach the identity provider.
// Submits rejected by local validation do not consume tokens.
func WithAttemptLimiter(limiter *rate.Limiter) FormOption {
	return func(f *CredentialForm) {
		f.limiter = limiter
	}
}

// WithFormClock injects a custom clock (useful for tests).
func WithFormClock(clock func() time.Time) FormOption {
	return func(f *CredentialForm) {
		if clock != nil {
			f.now = clock
		}
	}
}

// WithOutcomeHandler registers a callback for every final outcome, local or
// provider produced. It runs on the dispatcher.
func WithOutcomeHandler(h func(Outcome)) FormOption {
	return func(f *CredentialForm) {
		f.onOutcome = h
	}
}

// CredentialForm owns the sign-in/register input state. All methods must be
// called from the dispatcher's goroutine.
type CredentialForm struct {
	provider   IdentityProvider
	dispatcher Dispatcher
	inline     bool
	navigator  Navigator
	renderer   FormRenderer
	labels     Labels
	logger     Logger
	activity   ActivitySink
	limiter    *rate.Limiter
	now        func() time.Time
	onOutcome  func(Outcome)

	mode     Mode
	email    string
	password string
	confirm  string
	errText  string
	last     Outcome

	submit   *submitMachine
	attached bool
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewCredentialForm returns a detached form in sign-in mode. With a nil
// dispatcher the provider is called on the submitting goroutine and Submit
// returns the final outcome instead of OutcomePending.
func NewCredentialForm(provider IdentityProvider, dispatcher Dispatcher, navigator Navigator, opts ...FormOption) *CredentialForm {
	f := &CredentialForm{
		provider:   provider,
		dispatcher: dispatcher,
		navigator:  navigator,
		labels:     DefaultLabels(),
		logger:     defLogger{},
		activity:   noopActivitySink{},
		now:        time.Now,
		mode:       ModeSignIn,
		submit:     newSubmitMachine(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}

	if f.dispatcher == nil {
		f.inline = true
	}

	return f
}

// Attach binds the form to a newly started credential screen. A form coming
// back from a detached state starts over in sign-in mode with empty fields.
func (f *CredentialForm) Attach() {
	if f.attached {
		f.render()
		return
	}

	f.ctx, f.cancel = context.WithCancel(context.Background())
	f.attached = true
	f.mode = ModeSignIn
	f.email, f.password, f.confirm = "", "", ""
	f.errText = ""
	f.last = Outcome{}
	f.render()
}

// Detach ends the screen lifetime. An in-flight provider call is cancelled
// and its completion, if it still arrives, is ignored.
func (f *CredentialForm) Detach() {
	if !f.attached {
		return
	}
	f.attached = false
	if f.cancel != nil {
		f.cancel()
	}
	f.submit.reset()
}

// Attached reports whether the form belongs to an active screen.
func (f *CredentialForm) Attached() bool {
	return f.attached
}

func (f *CredentialForm) SetEmail(v string) {
	f.email = v
}

func (f *CredentialForm) SetPassword(v string) {
	f.password = v
}

func (f *CredentialForm) SetConfirmPassword(v string) {
	f.confirm = v
}

// Draft snapshots the current input.
func (f *CredentialForm) Draft() CredentialDraft {
	return CredentialDraft{
		Email:           f.email,
		Password:        f.password,
		ConfirmPassword: f.confirm,
		Mode:            f.mode,
	}
}

func (f *CredentialForm) Mode() Mode {
	return f.mode
}

func (f *CredentialForm) SubmitState() SubmitState {
	return f.submit.current()
}

// LastOutcome returns the most recent final outcome.
func (f *CredentialForm) LastOutcome() Outcome {
	return f.last
}

// ViewState derives the display state from the form.
func (f *CredentialForm) ViewState() FormViewState {
	submitting := f.submit.current() == SubmitSubmitting
	return FormViewState{
		Mode:           f.mode,
		ConfirmVisible: f.mode == ModeRegister,
		PrimaryLabel:   f.labels.primary(f.mode),
		PrimaryEnabled: !submitting,
		ToggleLabel:    f.labels.toggle(f.mode),
		Error:          f.errText,
		Submitting:     submitting,
	}
}

// ToggleMode switches between sign-in and register, clearing the displayed
// error. Email and password are kept.
func (f *CredentialForm) ToggleMode() {
	f.mode = f.mode.Toggle()
	f.errText = ""
	f.render()
}

// SubmitCurrent submits the current input.
func (f *CredentialForm) SubmitCurrent() (Outcome, error) {
	return f.Submit(f.Draft())
}

// Submit validates draft and dispatches it to the identity provider. Local
// failures return their outcome right away. A dispatched submit returns
// OutcomePending; its final outcome is rendered, and passed to the outcome
// handler, once the provider answers. Without a dispatcher the call blocks
// and the final outcome is returned. A submit while another one is in flight
// fails with ErrSubmitInProgress.
func (f *CredentialForm) Submit(draft CredentialDraft) (Outcome, error) {
	if !f.attached {
		return Outcome{}, ErrFormDetached
	}

	if f.submit.current() == SubmitSubmitting {
		return Outcome{}, ErrSubmitInProgress
	}

	d := draft.Normalize()
	outcome := Validate(d)
	if outcome.Kind != OutcomeValid {
		f.finish(outcome)
		f.record(ActivityEvent{
			EventType: ActivitySubmitInvalid,
			Mode:      d.Mode,
			Outcome:   outcome.Kind,
		})
		return outcome, nil
	}

	if f.limiter != nil && !f.limiter.Allow() {
		f.errText = f.labels.TooManyAttempts
		f.render()
		return Outcome{}, ErrTooManyAttempts
	}

	attempt, err := f.submit.begin()
	if err != nil {
		return Outcome{}, err
	}

	f.errText = ""
	f.render()
	f.dispatch(f.ctx, attempt, d)

	if f.inline {
		return f.last, nil
	}
	return Outcome{Kind: OutcomePending}, nil
}

func (f *CredentialForm) dispatch(ctx context.Context, attempt uint64, d CredentialDraft) {
	call := f.provider.SignIn
	if d.Mode == ModeRegister {
		call = f.provider.Register
	}

	f.logger.Debug("dispatching credentials", "mode", d.Mode, "attempt", attempt)

	if f.inline {
		session, err := call(ctx, d.Email, d.Password)
		f.complete(attempt, d.Mode, session, err)
		return
	}

	go func() {
		session, err := call(ctx, d.Email, d.Password)
		f.dispatcher.Post(func() {
			f.complete(attempt, d.Mode, session, err)
		})
	}()
}

func (f *CredentialForm) complete(attempt uint64, mode Mode, session *Session, err error) {
	if !f.attached || !f.submit.resolve(attempt) {
		f.logger.Debug("dropping stale submit completion", "mode", mode, "attempt", attempt)
		return
	}

	if err == nil && (session == nil || session.UserID == "") {
		err = &ProviderError{Operation: mode.String(), Reason: ReasonUnknown}
	}

	if err != nil {
		outcome := f.failureOutcome(err)
		f.logger.Info("credential submit failed", "mode", mode, "reason", outcome.Reason, "error", err)
		f.finish(outcome)
		f.record(ActivityEvent{
			EventType: ActivitySubmitFailed,
			Mode:      mode,
			Outcome:   outcome.Kind,
			Reason:    outcome.Reason,
		})
		return
	}

	s := *session
	f.finish(Outcome{Kind: OutcomeValid, Session: &s})
	f.record(ActivityEvent{
		EventType: ActivitySubmitSucceeded,
		UserID:    s.UserID,
		Mode:      mode,
		Outcome:   OutcomeValid,
	})

	if f.navigator != nil {
		if err := f.navigator.Navigate(ScreenAuthenticated); err != nil {
			f.logger.Error("navigation after sign in failed", "error", err)
		}
	}
}

func (f *CredentialForm) failureOutcome(err error) Outcome {
	reason := ReasonOf(err)
	message := MessageOf(err)

	var perr *ProviderError
	if !errors.As(err, &perr) && reason == ReasonUnavailable {
		message = ""
	}
	if message == "" {
		message = f.labels.fallback(reason)
	}

	return Outcome{
		Kind:    OutcomeProviderError,
		Message: message,
		Reason:  reason,
	}
}

func (f *CredentialForm) finish(outcome Outcome) {
	f.last = outcome
	f.errText = f.labels.outcome(outcome)
	f.render()
	if f.onOutcome != nil {
		f.onOutcome(outcome)
	}
}

func (f *CredentialForm) render() {
	if f.renderer == nil || !f.attached {
		return
	}
	f.renderer.RenderForm(f.ViewState())
}

func (f *CredentialForm) record(event ActivityEvent) {
	recordActivity(context.Background(), f.activity, f.logger, f.now, event)
}
