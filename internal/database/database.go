// Package database opens the shared SQL connection and papers over the
// placeholder differences between MySQL and PostgreSQL so repositories can
// write queries once.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Config holds connection settings for the engine database.
type Config struct {
	Driver          string // "mysql" or "postgres"
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN renders the driver-specific connection string.
func (c Config) DSN() string {
	switch c.Driver {
	case "postgres":
		ssl := c.SSLMode
		if ssl == "" {
			ssl = "disable"
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, ssl)
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=UTC",
			c.User, c.Password, c.Host, c.Port, c.Name)
	}
}

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "mysql"
	}
	SetDriver(driver)

	db, err := sql.Open(driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s database: %w", driver, err)
	}

	return db, nil
}

// Wrap returns an sqlx handle over an already-open connection for the
// struct-scanning read paths.
func Wrap(db *sql.DB) *sqlx.DB {
	return sqlx.NewDb(db, Driver())
}
