package db

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// Schema returns the DDL applied by Migrate.
func Schema() string {
	return schemaSQL
}

// Migrate creates missing tables and seeds the admin account once. Safe to run
// on every start.
func Migrate(ctx context.Context, pool *pgxpool.Pool, adminUsername, adminPasswordHash string) error {
	return WithTx(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, schemaSQL); err != nil {
			return fmt.Errorf("platform/db: apply schema: %w", err)
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO customers (username, password_hash, name, type, email)
			VALUES ($1, $2, 'Administrator', 'Direct', 'admin@example.com')
			ON CONFLICT (username) DO NOTHING`, adminUsername, adminPasswordHash)
		if err != nil {
			return fmt.Errorf("platform/db: seed admin: %w", err)
		}
		return nil
	})
}
