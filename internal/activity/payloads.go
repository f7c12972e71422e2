// Package activity builds the structured payloads recorded in the
// append-only ticket activity log. Payloads are JSON so the host
// application can reconstruct timelines without further lookups.
package activity

import (
	"encoding/json"
	"time"

	"github.com/campusdesk-io/campusdesk/internal/models"
)

// StatusChanged is the payload for a status_changed activity. A comment
// supplied with the transition is recorded as its own comment activity row,
// not duplicated here.
type StatusChanged struct {
	From models.Status `json:"from"`
	To   models.Status `json:"to"`
}

// Assigned is the payload for assigned and forwarded activities. The
// previous assignee is recorded so the resolver's previous-assignee
// visibility exception can be audited.
type Assigned struct {
	PreviousAssignee *int64 `json:"previous_assignee"`
	NewAssignee      *int64 `json:"new_assignee"`
	Reason           string `json:"reason,omitempty"`
}

// Escalated is the payload for an escalated activity.
type Escalated struct {
	PreviousLevel int        `json:"previous_level"`
	NewLevel      int        `json:"new_level"`
	RuleID        *int64     `json:"rule_id,omitempty"`
	BreachedDueAt time.Time  `json:"breached_due_at"`
	BreachKind    string     `json:"breach_kind"` // "acknowledgement" or "resolution"
	ReassignedTo  *int64     `json:"reassigned_to,omitempty"`
}

// TATSet is the payload for a tat_set activity stamped at creation.
type TATSet struct {
	AckDueAt        time.Time `json:"acknowledgement_due_at"`
	ResolutionDueAt time.Time `json:"resolution_due_at"`
	SLAHours        int       `json:"sla_hours"`
}

// TATExtended is the payload for a tat_extended activity.
type TATExtended struct {
	ExtraHours     int       `json:"extra_hours"`
	NewDueAt       time.Time `json:"new_due_at"`
	Reason         string    `json:"reason,omitempty"`
	ExtensionCount int       `json:"extension_count"`
}

// Reopened is the payload for a reopened activity.
type Reopened struct {
	FromStatus models.Status `json:"from_status"`
	Reason     string        `json:"reason,omitempty"`
}

// Rated is the payload for a rated activity.
type Rated struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

// Comment is the payload for a free-form comment activity.
type Comment struct {
	Body string `json:"body"`
}

// Marshal renders a payload; a payload that cannot be marshalled is a
// programming error, so the raw message falls back to an empty object.
func Marshal(payload any) json.RawMessage {
	data, err := json.Marshal(payload)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}
