package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/campusdesk-io/campusdesk/internal/database"
	"github.com/campusdesk-io/campusdesk/internal/models"
)

// ActivityRepository persists the append-only ticket activity log. Rows are
// inserted inside the owning operation's transaction and never updated.
type ActivityRepository struct {
	db *sql.DB
}

// NewActivityRepository creates an activity repository.
func NewActivityRepository(db *sql.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// InsertTx appends an activity row within the caller's transaction.
func (r *ActivityRepository) InsertTx(ctx context.Context, tx DBTX, entry models.ActivityInsert, now time.Time) error {
	query := database.ConvertPlaceholders(`
		INSERT INTO ticket_activities
			(ticket_id, actor_user_id, action, details, visibility, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`)

	details := entry.Details
	if len(details) == 0 {
		details = []byte("{}")
	}

	_, err := tx.ExecContext(ctx, query,
		entry.TicketID, nullInt64(entry.ActorUserID), entry.Action,
		[]byte(details), entry.Visibility, now,
	)
	return err
}

// ListByTicket returns a ticket's activity rows, oldest first, restricted to
// the given visibilities (empty means all).
func (r *ActivityRepository) ListByTicket(ctx context.Context, ticketID int64, visibilities ...models.ActivityVisibility) ([]*models.TicketActivity, error) {
	query := `
		SELECT id, ticket_id, actor_user_id, action, details, visibility, created_at
		FROM ticket_activities
		WHERE ticket_id = $1`
	args := []any{ticketID}

	if len(visibilities) > 0 {
		query += ` AND visibility IN (`
		for i, v := range visibilities {
			if i > 0 {
				query += ", "
			}
			query += placeholder(len(args) + 1)
			args = append(args, v)
		}
		query += `)`
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, database.ConvertPlaceholders(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := make([]*models.TicketActivity, 0)
	for rows.Next() {
		var (
			a       models.TicketActivity
			actor   sql.NullInt64
			details []byte
		)
		if err := rows.Scan(&a.ID, &a.TicketID, &actor, &a.Action, &details, &a.Visibility, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.ActorUserID = int64Ptr(actor)
		a.Details = details
		activities = append(activities, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return activities, nil
}

func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}
