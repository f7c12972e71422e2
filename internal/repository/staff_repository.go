package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/campusdesk-io/campusdesk/internal/database"
	"github.com/campusdesk-io/campusdesk/internal/models"
)

// StaffRepository reads staff authority profiles.
type StaffRepository struct {
	db *sql.DB
}

// NewStaffRepository creates a staff repository.
func NewStaffRepository(db *sql.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// GetProfile assembles the authority profile for a staff member: the primary
// domain/scope assignment plus the derived set of domains reached through
// category ownership.
func (r *StaffRepository) GetProfile(ctx context.Context, userID int64) (*models.StaffProfile, error) {
	query := database.ConvertPlaceholders(`
		SELECT sa.primary_domain_id, sa.primary_scope_id, COALESCE(s.name, '')
		FROM staff_assignments sa
		LEFT JOIN scopes s ON s.id = sa.primary_scope_id
		WHERE sa.user_id = $1`)

	profile := &models.StaffProfile{
		UserID:                  userID,
		AssignedCategoryDomains: make(map[int64]struct{}),
	}

	var (
		primaryDomain sql.NullInt64
		primaryScope  sql.NullInt64
		scopeName     string
	)
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&primaryDomain, &primaryScope, &scopeName)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	profile.PrimaryDomainID = int64Ptr(primaryDomain)
	profile.PrimaryScopeID = int64Ptr(primaryScope)
	profile.PrimaryScopeName = strings.TrimSpace(scopeName)

	domainQuery := database.ConvertPlaceholders(`
		SELECT DISTINCT c.domain_id
		FROM category_staff cs
		JOIN categories c ON c.id = cs.category_id
		WHERE cs.user_id = $1 AND c.domain_id IS NOT NULL`)

	rows, err := r.db.QueryContext(ctx, domainQuery, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var domainID int64
		if err := rows.Scan(&domainID); err != nil {
			return nil, err
		}
		profile.AssignedCategoryDomains[domainID] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return profile, nil
}
