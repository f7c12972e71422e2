package models

import (
	"encoding/json"
	"time"
)

// ActivityAction enumerates the audit-log entry kinds.
type ActivityAction string

const (
	ActionStatusChanged ActivityAction = "status_changed"
	ActionAssigned      ActivityAction = "assigned"
	ActionForwarded     ActivityAction = "forwarded"
	ActionEscalated     ActivityAction = "escalated"
	ActionTATSet        ActivityAction = "tat_set"
	ActionTATExtended   ActivityAction = "tat_extended"
	ActionReopened      ActivityAction = "reopened"
	ActionComment       ActivityAction = "comment"
	ActionRated         ActivityAction = "rated"
)

// ActivityVisibility controls who may read an activity row.
type ActivityVisibility string

const (
	VisibilityPublic         ActivityVisibility = "public"
	VisibilityStudentVisible ActivityVisibility = "student_visible"
	VisibilityAdminOnly      ActivityVisibility = "admin_only"
)

// Valid reports whether v is a known visibility.
func (v ActivityVisibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityStudentVisible, VisibilityAdminOnly:
		return true
	}
	return false
}

// TicketActivity is one append-only audit row. ActorUserID nil marks a
// system action (the sweep). Rows are never mutated after insert; the
// timeline is reconstructed from them.
type TicketActivity struct {
	ID          int64              `db:"id"`
	TicketID    int64              `db:"ticket_id"`
	ActorUserID *int64             `db:"actor_user_id"`
	Action      ActivityAction     `db:"action"`
	Details     json.RawMessage    `db:"details"`
	Visibility  ActivityVisibility `db:"visibility"`
	CreatedAt   time.Time          `db:"created_at"`
}

// ActivityInsert captures the data required to persist an activity row.
type ActivityInsert struct {
	TicketID    int64
	ActorUserID *int64
	Action      ActivityAction
	Details     json.RawMessage
	Visibility  ActivityVisibility
}
