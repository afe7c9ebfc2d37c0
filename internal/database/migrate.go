package database

import (
	"context"
	"database/sql"
	_ "embed"
	"strings"

	"github.com/go-faster/errors"
)

// Schema contains the DDL statements for all application tables.
//
//go:embed migrations/001_schema.sql
var Schema string

// Migrate applies Schema statement by statement. Every statement is
// idempotent (CREATE TABLE IF NOT EXISTS), so running it on each start is
// safe.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range splitStatements(Schema) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "migration statement %d", i+1)
		}
	}
	return nil
}

// splitStatements splits a SQL script on ';' terminators. The schema has
// no procedures or string literals containing ';'.
func splitStatements(script string) []string {
	var out []string
	for _, part := range strings.Split(script, ";") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
