package models

// EscalationRule maps (domain, scope, level) to a reassignment target.
// A nil DomainID or ScopeID is a wildcard on that axis. At most one active
// rule should match a given triple; when a scope-specific rule and a
// wildcard both match, the scope-specific rule wins.
type EscalationRule struct {
	ID               int64  `db:"id"`
	DomainID         *int64 `db:"domain_id"`
	ScopeID          *int64 `db:"scope_id"`
	Level            int    `db:"level"`
	EscalateToUserID *int64 `db:"escalate_to_user_id"`
	IsActive         bool   `db:"is_active"`
}
