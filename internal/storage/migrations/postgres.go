package migrations

import (
	"context"
	"fmt"
	"strings"

	"token-deploy-wizard/internal/storage/postgres"
)

const createPostgresVersionTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version     INTEGER PRIMARY KEY,
    name        TEXT NOT NULL,
    applied_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// postgresLockKey serializes migration runs across processes sharing a database.
const postgresLockKey int64 = 0x746f6b656e // "token"

// RunPostgresMigrations applies embedded migrations not yet recorded in
// schema_migrations. Each migration runs in its own transaction and is
// recorded in the same transaction, so a failure leaves no partial version.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	all, err := Load(PostgresFS, "postgres")
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, createPostgresVersionTable); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	for _, m := range all {
		if err := applyPostgres(ctx, pool, m); err != nil {
			return fmt.Errorf("apply migration %03d_%s: %w", m.Version, m.Name, err)
		}
	}
	return nil
}

func applyPostgres(ctx context.Context, pool *postgres.Pool, m Migration) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", postgresLockKey); err != nil {
		return fmt.Errorf("lock: %w", err)
	}

	// Checked under the lock: another process may have applied it meanwhile.
	var applied bool
	if err := tx.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)", m.Version,
	).Scan(&applied); err != nil {
		return fmt.Errorf("check version: %w", err)
	}
	if applied {
		return nil
	}

	if strings.TrimSpace(m.SQL) != "" {
		// No arguments, so pgx uses the simple protocol and multi-statement files work.
		if _, err := tx.Exec(ctx, m.SQL); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx,
		"INSERT INTO schema_migrations (version, name) VALUES ($1, $2)", m.Version, m.Name,
	); err != nil {
		return fmt.Errorf("record version: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
