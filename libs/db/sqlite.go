package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// OpenSQLite opens a single-connection SQLite database. With one connection every
// transaction runs exclusively, which is what callers rely on for serialization.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := sqlDB.ExecContext(ctx, pragma); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	return sqlDB, nil
}

func SQLiteReadyCheck(sqlDB *sql.DB) func(context.Context) error {
	return func(ctx context.Context) error {
		if sqlDB == nil {
			return errors.New("db not configured")
		}
		return sqlDB.PingContext(ctx)
	}
}
