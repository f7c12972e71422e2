package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/campusdesk-io/campusdesk/internal/database"
)

var ruleColumns = []string{"id", "domain_id", "scope_id", "level", "escalate_to_user_id", "is_active"}

func newRuleMock(t *testing.T, driver string) (*EscalationRuleRepository, sqlmock.Sqlmock) {
	t.Helper()
	database.SetDriver(driver)

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewEscalationRuleRepository(db), mock
}

func TestFindActiveLiteralScopeMatch(t *testing.T) {
	repo, mock := newRuleMock(t, "postgres")

	// A ticket with a concrete scope binds $3 to that scope; only rules
	// carrying the same scope (or wildcard-domain rules with it) qualify.
	mock.ExpectQuery(`scope_id = \$3 OR \(scope_id IS NULL AND \$3 IS NULL\)`).
		WithArgs(2, int64(5), int64(3)).
		WillReturnRows(sqlmock.NewRows(ruleColumns).
			AddRow(int64(11), int64(5), int64(3), 2, int64(77), true))

	domain, scope := int64(5), int64(3)
	rule, err := repo.FindActive(context.Background(), nil, &domain, &scope, 2)
	if err != nil {
		t.Fatalf("FindActive: %v", err)
	}
	if rule.ID != 11 || rule.EscalateToUserID == nil || *rule.EscalateToUserID != 77 {
		t.Fatalf("unexpected rule: %+v", rule)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestFindActiveNullScopeBindsNull(t *testing.T) {
	repo, mock := newRuleMock(t, "postgres")

	mock.ExpectQuery(`FROM escalation_rules`).
		WithArgs(1, int64(5), nil).
		WillReturnRows(sqlmock.NewRows(ruleColumns).
			AddRow(int64(12), int64(5), nil, 1, nil, true))

	domain := int64(5)
	rule, err := repo.FindActive(context.Background(), nil, &domain, nil, 1)
	if err != nil {
		t.Fatalf("FindActive: %v", err)
	}
	if rule.ScopeID != nil || rule.EscalateToUserID != nil {
		t.Fatalf("unexpected rule: %+v", rule)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestFindActiveNotFound(t *testing.T) {
	repo, mock := newRuleMock(t, "postgres")

	mock.ExpectQuery(`FROM escalation_rules`).
		WillReturnRows(sqlmock.NewRows(ruleColumns))

	domain := int64(5)
	_, err := repo.FindActive(context.Background(), nil, &domain, nil, 3)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFindActiveMySQLRemapsRepeatedPlaceholder(t *testing.T) {
	repo, mock := newRuleMock(t, "mysql")

	// $3 appears twice in the query; MySQL binding is positional, so the scope
	// argument must be expanded to both slots.
	mock.ExpectQuery(`scope_id = \? OR \(scope_id IS NULL AND \? IS NULL\)`).
		WithArgs(1, int64(5), int64(3), int64(3)).
		WillReturnRows(sqlmock.NewRows(ruleColumns).
			AddRow(int64(13), int64(5), int64(3), 1, nil, true))

	domain, scope := int64(5), int64(3)
	rule, err := repo.FindActive(context.Background(), nil, &domain, &scope, 1)
	if err != nil {
		t.Fatalf("FindActive: %v", err)
	}
	if rule.ID != 13 {
		t.Fatalf("unexpected rule: %+v", rule)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
