// Package database opens the SQL pool shared by the audit and workflow stores.
//
// Two drivers are registered: "postgres" (lib/pq) for deployments and
// "sqlite" (modernc.org/sqlite, pure Go) for single-node installs, the CLI
// and tests. Store queries use $N placeholders, which both drivers accept.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects and pings. SQLite pools are pinned to one connection so an
// in-memory database is shared by every caller.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if dsn == "" {
		return nil, fmt.Errorf("database dsn is required")
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

// OpenMemory returns a private in-memory SQLite database. It lives as long
// as the single pooled connection, so callers must not close idle conns.
func OpenMemory(ctx context.Context) (*sql.DB, error) {
	return Open(ctx, DriverSQLite, ":memory:")
}
