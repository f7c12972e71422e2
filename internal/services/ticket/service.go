package ticket

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/campusdesk-io/campusdesk/internal/activity"
	"github.com/campusdesk-io/campusdesk/internal/models"
	"github.com/campusdesk-io/campusdesk/internal/repository"
	"github.com/campusdesk-io/campusdesk/internal/services/sla"
)

// Service executes ticket lifecycle operations. Every mutation re-reads the
// row inside its transaction, validates the current state, writes, and
// appends to the activity log — all-or-nothing.
type Service struct {
	db         *sql.DB
	tickets    *repository.TicketRepository
	activities *repository.ActivityRepository
	sla        *sla.Service
	logger     *log.Logger
}

// NewService wires the ticket state machine.
func NewService(db *sql.DB, tickets *repository.TicketRepository, activities *repository.ActivityRepository, slaSvc *sla.Service, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		db:         db,
		tickets:    tickets,
		activities: activities,
		sla:        slaSvc,
		logger:     logger,
	}
}

func (s *Service) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Printf("ticket: rollback failed: %v", rbErr)
		}
		return err
	}
	return tx.Commit()
}

// CreateParams describes a new ticket submission. ScopeID is consulted only
// when the category's scope mode is dynamic; it carries the scope resolved
// from the requester's profile by the host application.
type CreateParams struct {
	CategoryID    int64
	SubcategoryID *int64
	Location      string
	Subject       string
	CreatedBy     int64
	ScopeID       *int64
}

// Create stores a new ticket: domain and scope are inherited from the
// category, deadlines are computed once from the category SLA, and a tat_set
// activity records them.
func (s *Service) Create(ctx context.Context, p CreateParams) (*models.Ticket, error) {
	if p.CategoryID <= 0 {
		return nil, fmt.Errorf("%w: category is required", ErrValidation)
	}
	if strings.TrimSpace(p.Subject) == "" {
		return nil, fmt.Errorf("%w: subject is required", ErrValidation)
	}

	category, err := s.sla.Category(ctx, p.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("load category %d: %w", p.CategoryID, err)
	}

	now := time.Now().UTC()
	ackDue, resDue, err := s.sla.ComputeDueDates(ctx, p.CategoryID, now)
	if err != nil {
		return nil, err
	}

	var scopeID *int64
	switch category.ScopeMode {
	case models.ScopeModeFixed:
		scopeID = category.ScopeID
	case models.ScopeModeDynamic:
		scopeID = p.ScopeID
	}

	t := &models.Ticket{
		TicketNumber:    newTicketNumber(now),
		CategoryID:      p.CategoryID,
		SubcategoryID:   p.SubcategoryID,
		DomainID:        category.DomainID,
		ScopeID:         scopeID,
		Location:        strings.TrimSpace(p.Location),
		Subject:         strings.TrimSpace(p.Subject),
		CreatedBy:       p.CreatedBy,
		Status:          models.StatusOpen,
		AckDueAt:        &ackDue,
		ResolutionDueAt: &resDue,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		id, err := s.tickets.CreateTx(ctx, tx, t)
		if err != nil {
			return err
		}
		t.ID = id

		return s.activities.InsertTx(ctx, tx, models.ActivityInsert{
			TicketID: id,
			Action:   models.ActionTATSet,
			Details: activity.Marshal(activity.TATSet{
				AckDueAt:        ackDue,
				ResolutionDueAt: resDue,
				SLAHours:        category.SLAHours,
			}),
			Visibility: models.VisibilityStudentVisible,
		}, now)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// TransitionStatus executes a manual status change. When newStatus is
// reopened the comment is recorded inside the reopened payload; otherwise a
// non-empty comment becomes its own comment activity row alongside the
// status_changed row.
func (s *Service) TransitionStatus(ctx context.Context, ticketID, actorID int64, newStatus models.Status, comment string, visibility models.ActivityVisibility) error {
	if !newStatus.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, newStatus)
	}
	if visibility == "" {
		visibility = models.VisibilityStudentVisible
	}
	if !visibility.Valid() {
		return fmt.Errorf("%w: unknown visibility %q", ErrValidation, visibility)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		t, err := s.tickets.GetForUpdate(ctx, tx, ticketID)
		if err != nil {
			return err
		}

		if err := ValidateTransition(t.Status, newStatus); err != nil {
			return err
		}

		now := time.Now().UTC()
		switch newStatus {
		case models.StatusResolved:
			err = s.tickets.MarkResolvedTx(ctx, tx, ticketID, now)
		case models.StatusClosed:
			err = s.tickets.MarkClosedTx(ctx, tx, ticketID, now)
		case models.StatusReopened:
			err = s.tickets.MarkReopenedTx(ctx, tx, ticketID, now)
		default:
			err = s.tickets.UpdateStatusTx(ctx, tx, ticketID, newStatus, now)
		}
		if err != nil {
			return err
		}

		if newStatus == models.StatusReopened {
			return s.activities.InsertTx(ctx, tx, models.ActivityInsert{
				TicketID:    ticketID,
				ActorUserID: &actorID,
				Action:      models.ActionReopened,
				Details: activity.Marshal(activity.Reopened{
					FromStatus: t.Status,
					Reason:     comment,
				}),
				Visibility: visibility,
			}, now)
		}

		if comment != "" {
			err = s.activities.InsertTx(ctx, tx, models.ActivityInsert{
				TicketID:    ticketID,
				ActorUserID: &actorID,
				Action:      models.ActionComment,
				Details:     activity.Marshal(activity.Comment{Body: comment}),
				Visibility:  visibility,
			}, now)
			if err != nil {
				return err
			}
		}

		return s.activities.InsertTx(ctx, tx, models.ActivityInsert{
			TicketID:    ticketID,
			ActorUserID: &actorID,
			Action:      models.ActionStatusChanged,
			Details: activity.Marshal(activity.StatusChanged{
				From: t.Status,
				To:   newStatus,
			}),
			Visibility: visibility,
		}, now)
	})
}

// ReassignTicket changes the assignee (nil unassigns) and records the
// previous assignee for the resolver's visibility exception.
func (s *Service) ReassignTicket(ctx context.Context, ticketID, actorID int64, newAssignee *int64, reason string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		t, err := s.tickets.GetForUpdate(ctx, tx, ticketID)
		if err != nil {
			return err
		}

		if t.Status.Terminal() || t.Status == models.StatusClosed {
			return fmt.Errorf("%w: cannot reassign a %s ticket", ErrConflict, t.Status)
		}
		if assigneeEqual(t.AssignedTo, newAssignee) {
			return fmt.Errorf("%w: assignee unchanged", ErrValidation)
		}

		now := time.Now().UTC()
		if err := s.tickets.UpdateAssigneeTx(ctx, tx, ticketID, newAssignee, t.AssignedTo, now); err != nil {
			return err
		}

		return s.activities.InsertTx(ctx, tx, models.ActivityInsert{
			TicketID:    ticketID,
			ActorUserID: &actorID,
			Action:      models.ActionAssigned,
			Details: activity.Marshal(activity.Assigned{
				PreviousAssignee: t.AssignedTo,
				NewAssignee:      newAssignee,
				Reason:           reason,
			}),
			Visibility: models.VisibilityAdminOnly,
		}, now)
	})
}

// ForwardTicket moves a ticket to the forwarded state and hands it to
// another staff member, atomically.
func (s *Service) ForwardTicket(ctx context.Context, ticketID, actorID, targetUserID int64, note string) error {
	if targetUserID <= 0 {
		return fmt.Errorf("%w: forward target is required", ErrValidation)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		t, err := s.tickets.GetForUpdate(ctx, tx, ticketID)
		if err != nil {
			return err
		}

		if err := ValidateTransition(t.Status, models.StatusForwarded); err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := s.tickets.UpdateStatusTx(ctx, tx, ticketID, models.StatusForwarded, now); err != nil {
			return err
		}
		if err := s.tickets.UpdateAssigneeTx(ctx, tx, ticketID, &targetUserID, t.AssignedTo, now); err != nil {
			return err
		}

		return s.activities.InsertTx(ctx, tx, models.ActivityInsert{
			TicketID:    ticketID,
			ActorUserID: &actorID,
			Action:      models.ActionForwarded,
			Details: activity.Marshal(activity.Assigned{
				PreviousAssignee: t.AssignedTo,
				NewAssignee:      &targetUserID,
				Reason:           note,
			}),
			Visibility: models.VisibilityAdminOnly,
		}, now)
	})
}

// ReopenTicket re-enters the lifecycle from resolved or closed.
func (s *Service) ReopenTicket(ctx context.Context, ticketID, actorID int64, reason string) error {
	return s.TransitionStatus(ctx, ticketID, actorID, models.StatusReopened, reason, models.VisibilityStudentVisible)
}

// RateTicket stores the student's rating; only resolved or closed tickets
// can be rated.
func (s *Service) RateTicket(ctx context.Context, ticketID, actorID int64, rating int, comment string) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		t, err := s.tickets.GetForUpdate(ctx, tx, ticketID)
		if err != nil {
			return err
		}

		if t.Status != models.StatusResolved && t.Status != models.StatusClosed {
			return fmt.Errorf("%w: only resolved or closed tickets can be rated", ErrValidation)
		}

		now := time.Now().UTC()
		if err := s.tickets.SetRatingTx(ctx, tx, ticketID, rating, comment, now); err != nil {
			return err
		}

		return s.activities.InsertTx(ctx, tx, models.ActivityInsert{
			TicketID:    ticketID,
			ActorUserID: &actorID,
			Action:      models.ActionRated,
			Details: activity.Marshal(activity.Rated{
				Rating:  rating,
				Comment: comment,
			}),
			Visibility: models.VisibilityStudentVisible,
		}, now)
	})
}

// ExtendResolutionDue pushes the resolution deadline out by extraHours of
// business time and records a tat_extended activity.
func (s *Service) ExtendResolutionDue(ctx context.Context, ticketID, actorID int64, extraHours int, reason string) error {
	if extraHours <= 0 {
		return fmt.Errorf("%w: extension must be positive", ErrValidation)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		t, err := s.tickets.GetForUpdate(ctx, tx, ticketID)
		if err != nil {
			return err
		}

		if t.ResolvedAt != nil || t.ClosedAt != nil || t.Status.Terminal() {
			return fmt.Errorf("%w: cannot extend a %s ticket", ErrConflict, t.Status)
		}

		now := time.Now().UTC()
		base := now
		if t.ResolutionDueAt != nil && t.ResolutionDueAt.After(now) {
			base = *t.ResolutionDueAt
		}
		newDue := s.sla.Clock().ComputeDueAt(base, extraHours)

		if err := s.tickets.ExtendResolutionTx(ctx, tx, ticketID, newDue, now); err != nil {
			return err
		}

		return s.activities.InsertTx(ctx, tx, models.ActivityInsert{
			TicketID:    ticketID,
			ActorUserID: &actorID,
			Action:      models.ActionTATExtended,
			Details: activity.Marshal(activity.TATExtended{
				ExtraHours:     extraHours,
				NewDueAt:       newDue,
				Reason:         reason,
				ExtensionCount: t.Extension.ExtensionCount + 1,
			}),
			Visibility: models.VisibilityAdminOnly,
		}, now)
	})
}

// Get loads a single ticket.
func (s *Service) Get(ctx context.Context, ticketID int64) (*models.Ticket, error) {
	return s.tickets.GetByID(ctx, ticketID)
}

// Activities returns a ticket's timeline rows.
func (s *Service) Activities(ctx context.Context, ticketID int64, visibilities ...models.ActivityVisibility) ([]*models.TicketActivity, error) {
	return s.activities.ListByTicket(ctx, ticketID, visibilities...)
}

func assigneeEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// newTicketNumber yields a date-prefixed, collision-resistant number.
func newTicketNumber(now time.Time) string {
	return now.Format("20060102") + "-" + strings.ToUpper(uuid.NewString()[:8])
}
