// Package escalation finds tickets past their SLA deadlines, walks the
// escalation rule hierarchy, and reassigns ownership — one transaction per
// ticket, so a single failure never aborts the whole sweep.
package escalation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/campusdesk-io/campusdesk/internal/activity"
	"github.com/campusdesk-io/campusdesk/internal/models"
	"github.com/campusdesk-io/campusdesk/internal/repository"
)

// ErrSweepAlreadyRunning is returned when another sweep holds the lease.
var ErrSweepAlreadyRunning = errors.New("escalation sweep already running")

// errSkipTicket aborts a single ticket's escalation without failing the run.
var errSkipTicket = errors.New("skip ticket")

// Config tunes the sweep.
type Config struct {
	BatchSize int
	LockTTL   time.Duration
}

// Service runs the escalation sweep and the rule lookup.
type Service struct {
	db         *sql.DB
	tickets    *repository.TicketRepository
	rules      *repository.EscalationRuleRepository
	categories *repository.CategoryRepository
	activities *repository.ActivityRepository
	locker     Locker
	logger     *log.Logger
	batchSize  int
	lockTTL    time.Duration
	running    atomic.Bool
}

// NewService wires the sweep over the shared database connection.
func NewService(db *sql.DB, tickets *repository.TicketRepository, rules *repository.EscalationRuleRepository, categories *repository.CategoryRepository, activities *repository.ActivityRepository, locker Locker, cfg Config, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	if locker == nil {
		locker = NopLocker{}
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 4 * time.Minute
	}
	return &Service{
		db:         db,
		tickets:    tickets,
		rules:      rules,
		categories: categories,
		activities: activities,
		locker:     locker,
		logger:     logger,
		batchSize:  cfg.BatchSize,
		lockTTL:    cfg.LockTTL,
	}
}

// FindRule returns the active escalation rule for (domain, scope, level), or
// nil when none matches. Scope matching is literal; see the repository for
// the precedence rules.
func (s *Service) FindRule(ctx context.Context, domainID, scopeID *int64, level int) (*models.EscalationRule, error) {
	rule, err := s.rules.FindActive(ctx, nil, domainID, scopeID, level)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return rule, err
}

// SweepResult reports what a sweep run did.
type SweepResult struct {
	AcknowledgementEscalated int
	ResolutionEscalated      int
	Skipped                  int
	Conflicts                int
}

// RunSweep executes the acknowledgement and resolution passes. It is safe to
// invoke repeatedly: overlapping invocations are rejected with
// ErrSweepAlreadyRunning, and tickets already escalated or resolved in the
// meantime no longer match the selection predicate.
func (s *Service) RunSweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	if !s.running.CompareAndSwap(false, true) {
		return result, ErrSweepAlreadyRunning
	}
	defer s.running.Store(false)

	token := uuid.NewString()
	acquired, err := s.locker.Acquire(ctx, token, s.lockTTL)
	if err != nil {
		return result, fmt.Errorf("acquire sweep lease: %w", err)
	}
	if !acquired {
		return result, ErrSweepAlreadyRunning
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), token); err != nil {
			s.logger.Printf("escalation: release sweep lease: %v", err)
		}
	}()

	start := time.Now()
	defer func() { sweepDuration.Observe(time.Since(start).Seconds()) }()

	now := time.Now().UTC()

	ackCount, err := s.runPass(ctx, repository.OverdueAcknowledgement, now, &result)
	if err != nil {
		return result, err
	}
	result.AcknowledgementEscalated = ackCount

	resCount, err := s.runPass(ctx, repository.OverdueResolution, now, &result)
	if err != nil {
		return result, err
	}
	result.ResolutionEscalated = resCount

	return result, nil
}

// runPass escalates every ticket past the given deadline. Per-ticket errors
// are logged and counted, never propagated: the sweep is an unattended
// background process.
func (s *Service) runPass(ctx context.Context, kind repository.OverdueKind, now time.Time, result *SweepResult) (int, error) {
	overdue, err := s.tickets.FindOverdue(ctx, kind, now, s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("find overdue (%s): %w", kind, err)
	}

	escalated := 0
	for _, t := range overdue {
		if ctx.Err() != nil {
			return escalated, ctx.Err()
		}

		switch err := s.escalateOne(ctx, t, kind, now); {
		case err == nil:
			escalated++
			escalatedTotal.WithLabelValues(string(kind)).Inc()
		case errors.Is(err, errSkipTicket):
			result.Skipped++
			skippedTotal.Inc()
		case errors.Is(err, errConflict):
			result.Conflicts++
			conflictsTotal.Inc()
		default:
			result.Skipped++
			skippedTotal.Inc()
			s.logger.Printf("escalation: ticket %s (%d): %v", t.TicketNumber, t.ID, err)
		}
	}

	return escalated, nil
}

// errConflict marks an escalation abandoned because the row changed between
// selection and the guarded update.
var errConflict = errors.New("ticket changed concurrently")

// escalateOne advances one ticket's escalation level inside its own
// transaction: category resolution, rule lookup, guarded level bump with
// optional reassignment, and the escalated audit row.
func (s *Service) escalateOne(ctx context.Context, t *models.OverdueTicket, kind repository.OverdueKind, now time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Printf("escalation: rollback ticket %d: %v", t.ID, rbErr)
		}
	}()

	category, err := s.categories.GetByID(ctx, tx, t.CategoryID)
	if errors.Is(err, repository.ErrNotFound) {
		s.logger.Printf("escalation: ticket %s (%d): category %d not found, skipping", t.TicketNumber, t.ID, t.CategoryID)
		return errSkipTicket
	}
	if err != nil {
		return fmt.Errorf("load category %d: %w", t.CategoryID, err)
	}

	nextLevel := t.EscalationLevel + 1

	rule, err := s.rules.FindActive(ctx, tx, category.DomainID, t.ScopeID, nextLevel)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("rule lookup: %w", err)
	}

	var (
		newAssignee *int64
		ruleID      *int64
		reassign    bool
	)
	if rule != nil && rule.EscalateToUserID != nil {
		newAssignee = rule.EscalateToUserID
		ruleID = &rule.ID
		reassign = true
	} else if rule != nil {
		ruleID = &rule.ID
	}

	applied, err := s.tickets.ApplyEscalationTx(ctx, tx, t.ID, t.EscalationLevel, nextLevel, newAssignee, t.AssignedTo, reassign, now)
	if err != nil {
		return fmt.Errorf("apply escalation: %w", err)
	}
	if !applied {
		// Resolved, closed, or escalated by someone else since selection.
		return errConflict
	}

	err = s.activities.InsertTx(ctx, tx, models.ActivityInsert{
		TicketID: t.ID,
		Action:   models.ActionEscalated,
		Details: activity.Marshal(activity.Escalated{
			PreviousLevel: t.EscalationLevel,
			NewLevel:      nextLevel,
			RuleID:        ruleID,
			BreachedDueAt: t.DueAt,
			BreachKind:    string(kind),
			ReassignedTo:  newAssignee,
		}),
		Visibility: models.VisibilityAdminOnly,
	}, now)
	if err != nil {
		return fmt.Errorf("record escalation: %w", err)
	}

	return tx.Commit()
}
