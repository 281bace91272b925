package session

import (
	"go.uber.org/zap"

	"github.com/BaSui01/voiceloop/types"
)

// State is a session lifecycle state.
type State string

const (
	StateCreated             State = "created"
	StateConnecting          State = "connecting"
	StateAwaitingParticipant State = "awaiting_participant"
	StateContextSeeded       State = "context_seeded"
	StateActive              State = "active"
	StateTerminating         State = "terminating"
	StateClosed              State = "closed"
)

// validTransitions lists the legal forward edges of the lifecycle. Any
// non-terminal state may additionally move to Terminating.
var validTransitions = map[State][]State{
	StateCreated:             {StateConnecting},
	StateConnecting:          {StateAwaitingParticipant},
	StateAwaitingParticipant: {StateContextSeeded},
	StateContextSeeded:       {StateActive},
	StateActive:              {},
	StateTerminating:         {StateClosed},
	StateClosed:              {},
}

func transitionAllowed(from, to State) bool {
	if to == StateTerminating {
		return from != StateClosed
	}
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// transition moves the session to the given state, validating the edge,
// logging it, and emitting a state_change metrics event.
func (s *Session) transition(to State) error {
	s.mu.Lock()
	from := s.state
	if from == to {
		s.mu.Unlock()
		return nil
	}
	if !transitionAllowed(from, to) {
		s.mu.Unlock()
		return types.NewError(types.ErrInvalidTransition,
			"illegal transition "+string(from)+" -> "+string(to))
	}
	s.state = to
	s.mu.Unlock()

	s.logger.Info("session state changed",
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	s.emit(types.MetricsEvent{
		Kind:      types.MetricsStateChange,
		FromState: string(from),
		ToState:   string(to),
	})
	return nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
