package repository

import (
	"context"
	"database/sql"

	"github.com/campusdesk-io/campusdesk/internal/database"
	"github.com/campusdesk-io/campusdesk/internal/models"
)

// CategoryRepository reads category and hierarchy rows.
type CategoryRepository struct {
	db *sql.DB
}

// NewCategoryRepository creates a category repository.
func NewCategoryRepository(db *sql.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// GetByID loads a category. Works against both the pooled connection and a
// transaction via q.
func (r *CategoryRepository) GetByID(ctx context.Context, q DBTX, id int64) (*models.Category, error) {
	if q == nil {
		q = r.db
	}

	query := database.ConvertPlaceholders(`
		SELECT id, name, domain_id, scope_id, sla_hours, ack_hours, scope_mode
		FROM categories WHERE id = $1`)

	var (
		c             models.Category
		domain, scope sql.NullInt64
	)
	err := q.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.Name, &domain, &scope, &c.SLAHours, &c.AckHours, &c.ScopeMode,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	c.DomainID = int64Ptr(domain)
	c.ScopeID = int64Ptr(scope)
	return &c, nil
}

// GetScopeName resolves a scope id to its name for location matching.
func (r *CategoryRepository) GetScopeName(ctx context.Context, id int64) (string, error) {
	query := database.ConvertPlaceholders(`SELECT name FROM scopes WHERE id = $1`)

	var name string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&name)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return name, nil
}
