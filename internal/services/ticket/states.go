// Package ticket implements the ticket status state machine: every manual
// transition runs as one transaction combining the status write, an
// optional comment, and exactly one audit-log entry.
package ticket

import (
	"errors"
	"fmt"

	"github.com/campusdesk-io/campusdesk/internal/models"
)

var (
	// ErrInvalidTransition marks a transition the state machine forbids.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrConflict marks an operation that lost a race: the ticket moved to a
	// resolved/closed/terminal state before the transaction could commit.
	ErrConflict = errors.New("ticket state conflict")
	// ErrValidation marks a request rejected before any write.
	ErrValidation = errors.New("validation failed")
)

// TransitionError reports the rejected edge.
type TransitionError struct {
	From models.Status
	To   models.Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition ticket from %q to %q", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// transitions is the manual edge set. Absent source states are terminal.
var transitions = map[models.Status][]models.Status{
	models.StatusOpen: {
		models.StatusAcknowledged, models.StatusInProgress, models.StatusResolved,
		models.StatusCancelled, models.StatusForwarded, models.StatusMerged,
	},
	models.StatusAcknowledged: {
		models.StatusInProgress, models.StatusAwaitingStudent, models.StatusResolved,
		models.StatusCancelled, models.StatusForwarded, models.StatusMerged,
	},
	models.StatusInProgress: {
		models.StatusAwaitingStudent, models.StatusResolved,
		models.StatusCancelled, models.StatusForwarded, models.StatusMerged,
	},
	models.StatusAwaitingStudent: {
		models.StatusInProgress, models.StatusResolved,
		models.StatusCancelled, models.StatusClosed,
	},
	models.StatusResolved: {
		models.StatusClosed, models.StatusReopened,
	},
	models.StatusClosed: {
		models.StatusReopened, models.StatusArchived,
	},
	models.StatusReopened: {
		models.StatusAcknowledged, models.StatusInProgress, models.StatusAwaitingStudent,
		models.StatusResolved, models.StatusCancelled, models.StatusForwarded,
	},
	models.StatusForwarded: {
		models.StatusAcknowledged, models.StatusInProgress,
	},
}

// CanTransition reports whether the manual edge from -> to exists.
func CanTransition(from, to models.Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidateTransition distinguishes a race (ticket already resolved, closed,
// or terminal) from a plainly invalid edge, so callers can surface a
// conflict instead of a validation error.
func ValidateTransition(from, to models.Status) error {
	if CanTransition(from, to) {
		return nil
	}
	switch {
	case from.Terminal():
		return fmt.Errorf("%w: ticket is %s", ErrConflict, from)
	case to == models.StatusResolved && (from == models.StatusResolved || from == models.StatusClosed):
		return fmt.Errorf("%w: ticket already %s", ErrConflict, from)
	case to == models.StatusClosed && from == models.StatusClosed:
		return fmt.Errorf("%w: ticket already closed", ErrConflict)
	}
	return &TransitionError{From: from, To: to}
}
