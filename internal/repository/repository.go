// Package repository implements the SQL persistence layer for tickets,
// categories, escalation rules, staff authority profiles, and the
// append-only activity log. Queries are written with PostgreSQL
// placeholders and converted per driver.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/campusdesk-io/campusdesk/internal/database"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("repository: not found")

// DBTX is satisfied by both *sql.DB and *sql.Tx so transactional methods
// can run against either.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// execQuery converts placeholders for the active driver and remaps repeated
// arguments before executing.
func execQuery(ctx context.Context, tx DBTX, query string, args ...any) (sql.Result, error) {
	return tx.ExecContext(ctx, database.ConvertPlaceholders(query), database.RemapArgs(query, args)...)
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
