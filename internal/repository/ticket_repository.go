package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campusdesk-io/campusdesk/internal/database"
	"github.com/campusdesk-io/campusdesk/internal/models"
)

// TicketRepository persists tickets.
type TicketRepository struct {
	db  *sql.DB
	dbx *sqlx.DB
}

// NewTicketRepository creates a ticket repository over the shared connection.
func NewTicketRepository(db *sql.DB) *TicketRepository {
	return &TicketRepository{db: db, dbx: database.Wrap(db)}
}

const ticketColumns = `id, ticket_number, category_id, subcategory_id, domain_id, scope_id,
       location, subject, created_by, assigned_to, previous_assigned_to,
       escalation_level, status, acknowledgement_due_at, resolution_due_at,
       resolved_at, closed_at, reopened_at, escalated_at,
       rating, rating_comment, extension_count, last_extended_at,
       created_at, updated_at`

func scanTicket(row *sql.Row) (*models.Ticket, error) {
	var (
		t                           models.Ticket
		subcategory, domain, scope  sql.NullInt64
		assigned, previous          sql.NullInt64
		ackDue, resDue              sql.NullTime
		resolved, closed, reopened  sql.NullTime
		escalated, lastExtended     sql.NullTime
		rating                      sql.NullInt64
		ratingComment               sql.NullString
	)

	err := row.Scan(
		&t.ID, &t.TicketNumber, &t.CategoryID, &subcategory, &domain, &scope,
		&t.Location, &t.Subject, &t.CreatedBy, &assigned, &previous,
		&t.EscalationLevel, &t.Status, &ackDue, &resDue,
		&resolved, &closed, &reopened, &escalated,
		&rating, &ratingComment, &t.Extension.ExtensionCount, &lastExtended,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	t.SubcategoryID = int64Ptr(subcategory)
	t.DomainID = int64Ptr(domain)
	t.ScopeID = int64Ptr(scope)
	t.AssignedTo = int64Ptr(assigned)
	t.PreviousAssignedTo = int64Ptr(previous)
	t.AckDueAt = nullTimePtr(ackDue)
	t.ResolutionDueAt = nullTimePtr(resDue)
	t.ResolvedAt = nullTimePtr(resolved)
	t.ClosedAt = nullTimePtr(closed)
	t.ReopenedAt = nullTimePtr(reopened)
	t.EscalatedAt = nullTimePtr(escalated)
	if rating.Valid {
		v := int(rating.Int64)
		t.Extension.Rating = &v
	}
	if ratingComment.Valid {
		s := ratingComment.String
		t.Extension.RatingComment = &s
	}
	t.Extension.LastExtendedAt = nullTimePtr(lastExtended)

	return &t, nil
}

func nullTimePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	v := n.Time
	return &v
}

// GetByID loads a single ticket.
func (r *TicketRepository) GetByID(ctx context.Context, id int64) (*models.Ticket, error) {
	query := database.ConvertPlaceholders(
		`SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`)
	return scanTicket(r.db.QueryRowContext(ctx, query, id))
}

// GetForUpdate re-reads a ticket inside a transaction with a row lock, so
// concurrent manual transitions and the sweep serialize on the row.
func (r *TicketRepository) GetForUpdate(ctx context.Context, tx DBTX, id int64) (*models.Ticket, error) {
	query := database.ConvertPlaceholders(
		`SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1 FOR UPDATE`)
	return scanTicket(tx.QueryRowContext(ctx, query, id))
}

// CreateTx inserts a new ticket within the caller's transaction and returns
// its id.
func (r *TicketRepository) CreateTx(ctx context.Context, tx DBTX, t *models.Ticket) (int64, error) {
	cols := `ticket_number, category_id, subcategory_id, domain_id, scope_id,
	         location, subject, created_by, assigned_to, escalation_level, status,
	         acknowledgement_due_at, resolution_due_at, created_at, updated_at`
	query := `INSERT INTO tickets (` + cols + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	args := []any{
		t.TicketNumber, t.CategoryID, nullInt64(t.SubcategoryID),
		nullInt64(t.DomainID), nullInt64(t.ScopeID),
		t.Location, t.Subject, t.CreatedBy, nullInt64(t.AssignedTo),
		t.EscalationLevel, t.Status,
		t.AckDueAt, t.ResolutionDueAt, t.CreatedAt, t.UpdatedAt,
	}

	if database.IsPostgres() {
		var id int64
		err := tx.QueryRowContext(ctx, query+" RETURNING id", args...).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("insert ticket: %w", err)
		}
		return id, nil
	}

	res, err := tx.ExecContext(ctx, database.ConvertPlaceholders(query), args...)
	if err != nil {
		return 0, fmt.Errorf("insert ticket: %w", err)
	}
	return res.LastInsertId()
}

// UpdateStatusTx writes a plain status change (no lifecycle timestamps).
func (r *TicketRepository) UpdateStatusTx(ctx context.Context, tx DBTX, id int64, status models.Status, now time.Time) error {
	query := database.ConvertPlaceholders(`
		UPDATE tickets SET status = $1, updated_at = $2 WHERE id = $3`)
	_, err := tx.ExecContext(ctx, query, status, now, id)
	return err
}

// MarkResolvedTx sets resolved status. resolved_at is written only when it
// is still null, keeping the set-at-most-once-per-lifecycle invariant.
func (r *TicketRepository) MarkResolvedTx(ctx context.Context, tx DBTX, id int64, now time.Time) error {
	query := `
		UPDATE tickets
		SET status = $1, resolved_at = COALESCE(resolved_at, $2), updated_at = $2
		WHERE id = $3`
	_, err := execQuery(ctx, tx, query, models.StatusResolved, now, id)
	return err
}

// MarkClosedTx sets closed status, writing closed_at once per lifecycle.
func (r *TicketRepository) MarkClosedTx(ctx context.Context, tx DBTX, id int64, now time.Time) error {
	query := `
		UPDATE tickets
		SET status = $1, closed_at = COALESCE(closed_at, $2), updated_at = $2
		WHERE id = $3`
	_, err := execQuery(ctx, tx, query, models.StatusClosed, now, id)
	return err
}

// MarkReopenedTx re-enters the lifecycle: clears resolved_at and closed_at,
// stamps reopened_at.
func (r *TicketRepository) MarkReopenedTx(ctx context.Context, tx DBTX, id int64, now time.Time) error {
	query := `
		UPDATE tickets
		SET status = $1, resolved_at = NULL, closed_at = NULL,
		    reopened_at = $2, updated_at = $2
		WHERE id = $3`
	_, err := execQuery(ctx, tx, query, models.StatusReopened, now, id)
	return err
}

// UpdateAssigneeTx changes the assignee and records the previous one in the
// same statement, so previous_assigned_to always tracks assigned_to changes.
func (r *TicketRepository) UpdateAssigneeTx(ctx context.Context, tx DBTX, id int64, newAssignee, previous *int64, now time.Time) error {
	query := database.ConvertPlaceholders(`
		UPDATE tickets
		SET assigned_to = $1, previous_assigned_to = $2, updated_at = $3
		WHERE id = $4`)
	_, err := tx.ExecContext(ctx, query, nullInt64(newAssignee), nullInt64(previous), now, id)
	return err
}

// ApplyEscalationTx advances the escalation level and optionally reassigns.
// The WHERE clause re-checks the level so a concurrent escalation cannot
// apply twice.
func (r *TicketRepository) ApplyEscalationTx(ctx context.Context, tx DBTX, id int64, fromLevel, toLevel int, newAssignee, previous *int64, reassign bool, now time.Time) (bool, error) {
	var (
		query string
		args  []any
	)
	if reassign {
		query = `
		UPDATE tickets
		SET escalation_level = $1, assigned_to = $2, previous_assigned_to = $3,
		    escalated_at = $4, updated_at = $4
		WHERE id = $5 AND escalation_level = $6
		  AND resolved_at IS NULL AND closed_at IS NULL`
		args = []any{toLevel, nullInt64(newAssignee), nullInt64(previous), now, id, fromLevel}
	} else {
		query = `
		UPDATE tickets
		SET escalation_level = $1, escalated_at = $2, updated_at = $2
		WHERE id = $3 AND escalation_level = $4
		  AND resolved_at IS NULL AND closed_at IS NULL`
		args = []any{toLevel, now, id, fromLevel}
	}

	res, err := execQuery(ctx, tx, query, args...)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// ExtendResolutionTx pushes the resolution deadline out and bumps the
// extension counter.
func (r *TicketRepository) ExtendResolutionTx(ctx context.Context, tx DBTX, id int64, newDueAt, now time.Time) error {
	query := `
		UPDATE tickets
		SET resolution_due_at = $1, extension_count = extension_count + 1,
		    last_extended_at = $2, updated_at = $2
		WHERE id = $3`
	_, err := execQuery(ctx, tx, query, newDueAt, now, id)
	return err
}

// SetRatingTx stores the student's rating for a resolved or closed ticket.
func (r *TicketRepository) SetRatingTx(ctx context.Context, tx DBTX, id int64, rating int, comment string, now time.Time) error {
	query := database.ConvertPlaceholders(`
		UPDATE tickets
		SET rating = $1, rating_comment = $2, updated_at = $3
		WHERE id = $4`)
	_, err := tx.ExecContext(ctx, query, rating, comment, now, id)
	return err
}

// OverdueKind selects which deadline a sweep pass checks.
type OverdueKind string

const (
	OverdueAcknowledgement OverdueKind = "acknowledgement"
	OverdueResolution      OverdueKind = "resolution"
)

// FindOverdue selects tickets past the given deadline that are neither
// resolved nor closed and have not already been escalated for that breach.
// A prior escalation stamps escalated_at, so a breach only qualifies again
// once a later deadline passes. Ordered oldest breach first.
func (r *TicketRepository) FindOverdue(ctx context.Context, kind OverdueKind, now time.Time, limit int) ([]*models.OverdueTicket, error) {
	if limit <= 0 {
		limit = 200
	}

	column := "acknowledgement_due_at"
	if kind == OverdueResolution {
		column = "resolution_due_at"
	}

	query := database.ConvertPlaceholders(`
		SELECT id, ticket_number, category_id, scope_id, assigned_to,
		       escalation_level, ` + column + `
		FROM tickets
		WHERE resolved_at IS NULL AND closed_at IS NULL
		  AND status NOT IN ('cancelled', 'merged', 'archived')
		  AND ` + column + ` IS NOT NULL AND ` + column + ` < $1
		  AND (escalated_at IS NULL OR escalated_at < ` + column + `)
		ORDER BY ` + column + ` ASC
		LIMIT $2`)

	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := make([]*models.OverdueTicket, 0)
	for rows.Next() {
		var (
			t        models.OverdueTicket
			scope    sql.NullInt64
			assigned sql.NullInt64
		)
		if err := rows.Scan(&t.ID, &t.TicketNumber, &t.CategoryID, &scope, &assigned, &t.EscalationLevel, &t.DueAt); err != nil {
			return nil, err
		}
		t.ScopeID = int64Ptr(scope)
		t.AssignedTo = int64Ptr(assigned)
		tickets = append(tickets, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}

// ticketRow mirrors the candidate projection used by the resolver read path.
type ticketRow struct {
	ID              int64         `db:"id"`
	CategoryID      int64         `db:"category_id"`
	DomainID        sql.NullInt64 `db:"domain_id"`
	ScopeID         sql.NullInt64 `db:"scope_id"`
	Location        string        `db:"location"`
	AssignedTo      sql.NullInt64 `db:"assigned_to"`
	PrevAssignedTo  sql.NullInt64 `db:"previous_assigned_to"`
	EscalationLevel int           `db:"escalation_level"`
	Status          string        `db:"status"`
}

// ListCandidates returns the slim projection of every ticket still in play
// (not cancelled, merged, or archived) for visibility filtering.
func (r *TicketRepository) ListCandidates(ctx context.Context) ([]*models.Ticket, error) {
	query := database.ConvertPlaceholders(`
		SELECT id, category_id, domain_id, scope_id, location, assigned_to,
		       previous_assigned_to, escalation_level, status
		FROM tickets
		WHERE status NOT IN ('cancelled', 'merged', 'archived')
		ORDER BY id`)

	var rows []ticketRow
	if err := r.dbx.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	tickets := make([]*models.Ticket, 0, len(rows))
	for _, row := range rows {
		t := &models.Ticket{
			ID:                 row.ID,
			CategoryID:         row.CategoryID,
			DomainID:           int64Ptr(row.DomainID),
			ScopeID:            int64Ptr(row.ScopeID),
			Location:           row.Location,
			AssignedTo:         int64Ptr(row.AssignedTo),
			PreviousAssignedTo: int64Ptr(row.PrevAssignedTo),
			EscalationLevel:    row.EscalationLevel,
			Status:             models.Status(row.Status),
		}
		tickets = append(tickets, t)
	}
	return tickets, nil
}
