package ticket

import (
	"errors"
	"testing"

	"github.com/campusdesk-io/campusdesk/internal/models"
)

func TestCanTransitionTable(t *testing.T) {
	tests := []struct {
		from, to models.Status
		ok       bool
	}{
		{models.StatusOpen, models.StatusAcknowledged, true},
		{models.StatusOpen, models.StatusResolved, true},
		{models.StatusOpen, models.StatusClosed, false},
		{models.StatusAcknowledged, models.StatusAwaitingStudent, true},
		{models.StatusInProgress, models.StatusAwaitingStudent, true},
		{models.StatusAwaitingStudent, models.StatusInProgress, true},
		{models.StatusAwaitingStudent, models.StatusClosed, true},
		{models.StatusResolved, models.StatusClosed, true},
		{models.StatusResolved, models.StatusReopened, true},
		{models.StatusResolved, models.StatusInProgress, false},
		{models.StatusClosed, models.StatusReopened, true},
		{models.StatusClosed, models.StatusArchived, true},
		{models.StatusClosed, models.StatusResolved, false},
		{models.StatusReopened, models.StatusResolved, true},
		{models.StatusForwarded, models.StatusAcknowledged, true},
		{models.StatusForwarded, models.StatusResolved, false},
		{models.StatusCancelled, models.StatusOpen, false},
		{models.StatusMerged, models.StatusInProgress, false},
		{models.StatusArchived, models.StatusReopened, false},
	}

	for _, tc := range tests {
		if got := CanTransition(tc.from, tc.to); got != tc.ok {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}

func TestValidateTransitionConflictVsInvalid(t *testing.T) {
	// Re-resolving an already-resolved ticket is a race, not a bad request.
	err := ValidateTransition(models.StatusResolved, models.StatusResolved)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("resolved->resolved should be a conflict, got %v", err)
	}

	err = ValidateTransition(models.StatusClosed, models.StatusClosed)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("closed->closed should be a conflict, got %v", err)
	}

	err = ValidateTransition(models.StatusCancelled, models.StatusInProgress)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("leaving a terminal state should be a conflict, got %v", err)
	}

	// A plainly illegal edge is an invalid transition carrying both states.
	err = ValidateTransition(models.StatusOpen, models.StatusClosed)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("open->closed should be invalid, got %v", err)
	}
	var te *TransitionError
	if !errors.As(err, &te) || te.From != models.StatusOpen || te.To != models.StatusClosed {
		t.Fatalf("expected TransitionError{open, closed}, got %#v", err)
	}
}

func TestValidateTransitionAllowsLegalEdge(t *testing.T) {
	if err := ValidateTransition(models.StatusOpen, models.StatusInProgress); err != nil {
		t.Fatalf("legal edge rejected: %v", err)
	}
}
