package repository

import (
	"context"
	"database/sql"

	"github.com/campusdesk-io/campusdesk/internal/database"
	"github.com/campusdesk-io/campusdesk/internal/models"
)

// EscalationRuleRepository looks up escalation rules.
type EscalationRuleRepository struct {
	db *sql.DB
}

// NewEscalationRuleRepository creates an escalation rule repository.
func NewEscalationRuleRepository(db *sql.DB) *EscalationRuleRepository {
	return &EscalationRuleRepository{db: db}
}

// FindActive returns the active rule for (domain, scope, level), or
// ErrNotFound. Scope matching is literal: a ticket with a concrete scope only
// matches rules with that scope, and a scope-less ticket only matches
// scope-null rules — there is no fallback cascade across scopes. Domain may
// match exactly or via a null-domain wildcard rule; when several rules
// qualify, the most specific one (concrete domain, then concrete scope) wins.
func (r *EscalationRuleRepository) FindActive(ctx context.Context, q DBTX, domainID, scopeID *int64, level int) (*models.EscalationRule, error) {
	if q == nil {
		q = r.db
	}

	query := `
		SELECT id, domain_id, scope_id, level, escalate_to_user_id, is_active
		FROM escalation_rules
		WHERE is_active = TRUE AND level = $1
		  AND (domain_id = $2 OR domain_id IS NULL)
		  AND (scope_id = $3 OR (scope_id IS NULL AND $3 IS NULL))
		ORDER BY (domain_id IS NULL), (scope_id IS NULL)
		LIMIT 1`

	args := database.RemapArgs(query, []any{level, nullInt64(domainID), nullInt64(scopeID)})

	var (
		rule          models.EscalationRule
		domain, scope sql.NullInt64
		target        sql.NullInt64
	)
	err := q.QueryRowContext(ctx, database.ConvertPlaceholders(query), args...).Scan(
		&rule.ID, &domain, &scope, &rule.Level, &target, &rule.IsActive,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rule.DomainID = int64Ptr(domain)
	rule.ScopeID = int64Ptr(scope)
	rule.EscalateToUserID = int64Ptr(target)
	return &rule, nil
}
