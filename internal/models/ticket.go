// Package models defines the persistent entities shared by the routing,
// SLA, and escalation services.
package models

import "time"

// Status enumerates ticket lifecycle states.
type Status string

const (
	StatusOpen             Status = "open"
	StatusAcknowledged     Status = "acknowledged"
	StatusInProgress       Status = "in_progress"
	StatusAwaitingStudent  Status = "awaiting_student_response"
	StatusResolved         Status = "resolved"
	StatusClosed           Status = "closed"
	StatusReopened         Status = "reopened"
	StatusCancelled        Status = "cancelled"
	StatusMerged           Status = "merged"
	StatusArchived         Status = "archived"
	StatusForwarded        Status = "forwarded"
)

// Valid reports whether s is a known ticket status.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusAcknowledged, StatusInProgress, StatusAwaitingStudent,
		StatusResolved, StatusClosed, StatusReopened, StatusCancelled,
		StatusMerged, StatusArchived, StatusForwarded:
		return true
	}
	return false
}

// Terminal reports whether s is a state no manual transition can leave.
func (s Status) Terminal() bool {
	switch s {
	case StatusCancelled, StatusMerged, StatusArchived:
		return true
	}
	return false
}

// Ticket is a helpdesk ticket row. DomainID and ScopeID are inherited from
// the category at creation time and never re-derived afterwards, so category
// edits do not re-scope existing tickets.
type Ticket struct {
	ID                 int64      `db:"id"`
	TicketNumber       string     `db:"ticket_number"`
	CategoryID         int64      `db:"category_id"`
	SubcategoryID      *int64     `db:"subcategory_id"`
	DomainID           *int64     `db:"domain_id"`
	ScopeID            *int64     `db:"scope_id"`
	Location           string     `db:"location"`
	Subject            string     `db:"subject"`
	CreatedBy          int64      `db:"created_by"`
	AssignedTo         *int64     `db:"assigned_to"`
	PreviousAssignedTo *int64     `db:"previous_assigned_to"`
	EscalationLevel    int        `db:"escalation_level"`
	Status             Status     `db:"status"`
	AckDueAt           *time.Time `db:"acknowledgement_due_at"`
	ResolutionDueAt    *time.Time `db:"resolution_due_at"`
	ResolvedAt         *time.Time `db:"resolved_at"`
	ClosedAt           *time.Time `db:"closed_at"`
	ReopenedAt         *time.Time `db:"reopened_at"`
	EscalatedAt        *time.Time `db:"escalated_at"`
	Extension          TicketExtension
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

// TicketExtension carries the small set of well-known optional fields that
// used to live in a free-form metadata bag. Category form answers are not
// part of the engine and stay out of this struct.
type TicketExtension struct {
	Rating         *int       `db:"rating"`
	RatingComment  *string    `db:"rating_comment"`
	ExtensionCount int        `db:"extension_count"`
	LastExtendedAt *time.Time `db:"last_extended_at"`
}

// OverdueTicket is the slim projection the escalation sweep works on.
type OverdueTicket struct {
	ID              int64
	TicketNumber    string
	CategoryID      int64
	ScopeID         *int64
	AssignedTo      *int64
	EscalationLevel int
	DueAt           time.Time
}
