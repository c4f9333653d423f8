package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New creates a new SQLite database connection
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: writers serialise on it and ":memory:" stays a single database.
	db.SetMaxOpenConns(1)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{db}, nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx runs fn in a transaction, committing only when fn succeeds.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RunMigrations creates any missing tables. It is safe to run repeatedly.
func (db *DB) RunMigrations() error {
	migration := `
-- Vesting instances
CREATE TABLE IF NOT EXISTS vesting_instances (
    id TEXT PRIMARY KEY,
    variant TEXT NOT NULL CHECK(variant IN ('standard', 'insured')),
    owner TEXT NOT NULL DEFAULT '',
    project TEXT NOT NULL,
    custody TEXT NOT NULL UNIQUE,
    phase TEXT NOT NULL CHECK(phase IN ('pending', 'activated', 'emergency_released')),
    start_time INTEGER,
    duration_seconds INTEGER NOT NULL CHECK(duration_seconds > 0),
    max_lead_seconds INTEGER NOT NULL,
    distributed_asset TEXT NOT NULL,
    funding_asset TEXT NOT NULL DEFAULT '',
    ratio_num INTEGER NOT NULL,
    ratio_den INTEGER NOT NULL,
    native_recipient TEXT NOT NULL CHECK(native_recipient IN ('project', 'owner')),
    total_entitlement TEXT NOT NULL DEFAULT '0',
    total_claimed TEXT NOT NULL DEFAULT '0',
    total_funding_allocation TEXT NOT NULL DEFAULT '0',
    total_funded TEXT NOT NULL DEFAULT '0',
    total_funding_claimed TEXT NOT NULL DEFAULT '0',
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_instances_created ON vesting_instances(created_at);

-- Beneficiary records
CREATE TABLE IF NOT EXISTS beneficiaries (
    instance_id TEXT NOT NULL,
    beneficiary TEXT NOT NULL,
    entitlement TEXT NOT NULL DEFAULT '0',
    claimed TEXT NOT NULL DEFAULT '0',
    funding_allocation TEXT NOT NULL DEFAULT '0',
    funded TEXT NOT NULL DEFAULT '0',
    funding_claimed TEXT NOT NULL DEFAULT '0',
    refund INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (instance_id, beneficiary),
    FOREIGN KEY (instance_id) REFERENCES vesting_instances(id)
);

-- Custody balances and allowances
CREATE TABLE IF NOT EXISTS asset_balances (
    asset TEXT NOT NULL,
    holder TEXT NOT NULL,
    amount TEXT NOT NULL,
    PRIMARY KEY (asset, holder)
);

CREATE TABLE IF NOT EXISTS asset_allowances (
    asset TEXT NOT NULL,
    owner TEXT NOT NULL,
    spender TEXT NOT NULL,
    amount TEXT NOT NULL,
    PRIMARY KEY (asset, owner, spender)
);

-- API keys for authentication
CREATE TABLE IF NOT EXISTS api_keys (
    key_hash TEXT PRIMARY KEY,
    identity TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    last_used INTEGER,
    description TEXT
);
CREATE INDEX IF NOT EXISTS idx_identity_keys ON api_keys(identity);
`

	_, err := db.Exec(migration)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
