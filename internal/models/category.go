package models

// ScopeMode controls how a category binds tickets to a scope.
type ScopeMode string

const (
	ScopeModeNone    ScopeMode = "none"    // category has no scope dimension
	ScopeModeFixed   ScopeMode = "fixed"   // category pins a specific scope
	ScopeModeDynamic ScopeMode = "dynamic" // scope resolved from the requester's profile
)

// Category is a ticket category with its SLA policy. DomainID nil means the
// category is global; ScopeID nil means domain-wide.
type Category struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	DomainID  *int64    `db:"domain_id"`
	ScopeID   *int64    `db:"scope_id"`
	SLAHours  int       `db:"sla_hours"`
	AckHours  int       `db:"ack_hours"` // 0 falls back to the engine default
	ScopeMode ScopeMode `db:"scope_mode"`
}

// Domain is a coarse operational area (Hostel, Academics, ...).
type Domain struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

// Scope is a sub-partition of exactly one domain (a hostel block, a lab).
type Scope struct {
	ID       int64  `db:"id"`
	DomainID int64  `db:"domain_id"`
	Name     string `db:"name"`
}
