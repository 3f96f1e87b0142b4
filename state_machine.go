package authgate

// SubmitState is the credential form submit lifecycle state.
type SubmitState string

const (
	SubmitIdle       SubmitState = "idle"
	SubmitSubmitting SubmitState = "submitting"
)

// submitMachine tracks the in-flight submit. Every begin and reset bumps the
// attempt counter so that completions belonging to an older attempt can be
// recognized and dropped.
type submitMachine struct {
	state       SubmitState
	attempt     uint64
	transitions map[SubmitState]map[SubmitState]struct{}
}

func newSubmitMachine() *submitMachine {
	return &submitMachine{
		state: SubmitIdle,
		transitions: map[SubmitState]map[SubmitState]struct{}{
			SubmitIdle: {
				SubmitSubmitting: {},
			},
			SubmitSubmitting: {
				SubmitIdle: {},
			},
		},
	}
}

func (m *submitMachine) canTransition(from, to SubmitState) bool {
	if allowed, ok := m.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

// begin moves to submitting and returns the attempt id.
func (m *submitMachine) begin() (uint64, error) {
	if !m.canTransition(m.state, SubmitSubmitting) {
		return 0, ErrSubmitInProgress
	}
	m.state = SubmitSubmitting
	m.attempt++
	return m.attempt, nil
}

// resolve returns to idle when attempt is the current one. It reports false
// for stale attempts.
func (m *submitMachine) resolve(attempt uint64) bool {
	if attempt != m.attempt || !m.canTransition(m.state, SubmitIdle) {
		return false
	}
	m.state = SubmitIdle
	return true
}

// reset abandons any in-flight attempt.
func (m *submitMachine) reset() {
	m.state = SubmitIdle
	m.attempt++
}

func (m *submitMachine) current() SubmitState {
	return m.state
}
