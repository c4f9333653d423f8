package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rpggio/vestline/internal/domain/asset"
	"github.com/rpggio/vestline/internal/domain/role"
	"github.com/shopspring/decimal"
)

// book implements asset.Book over one transaction.
type book struct {
	q querier
}

func (b book) Balance(ctx context.Context, id asset.ID, holder role.Address) (decimal.Decimal, error) {
	var amount decimal.Decimal
	err := b.q.QueryRowContext(ctx,
		`SELECT amount FROM asset_balances WHERE asset = ? AND holder = ?`,
		string(id), string(holder),
	).Scan(&amount)
	if err == sql.ErrNoRows {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}
	return amount, nil
}

func (b book) SetBalance(ctx context.Context, id asset.ID, holder role.Address, amount decimal.Decimal) error {
	var err error
	if amount.IsZero() {
		_, err = b.q.ExecContext(ctx,
			`DELETE FROM asset_balances WHERE asset = ? AND holder = ?`,
			string(id), string(holder))
	} else {
		_, err = b.q.ExecContext(ctx, `
			INSERT INTO asset_balances (asset, holder, amount) VALUES (?, ?, ?)
			ON CONFLICT(asset, holder) DO UPDATE SET amount = excluded.amount
		`, string(id), string(holder), amount.String())
	}
	if err != nil {
		return fmt.Errorf("failed to set balance: %w", err)
	}
	return nil
}

func (b book) Allowance(ctx context.Context, id asset.ID, owner, spender role.Address) (decimal.Decimal, error) {
	var amount decimal.Decimal
	err := b.q.QueryRowContext(ctx,
		`SELECT amount FROM asset_allowances WHERE asset = ? AND owner = ? AND spender = ?`,
		string(id), string(owner), string(spender),
	).Scan(&amount)
	if err == sql.ErrNoRows {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get allowance: %w", err)
	}
	return amount, nil
}

func (b book) SetAllowance(ctx context.Context, id asset.ID, owner, spender role.Address, amount decimal.Decimal) error {
	var err error
	if amount.IsZero() {
		_, err = b.q.ExecContext(ctx,
			`DELETE FROM asset_allowances WHERE asset = ? AND owner = ? AND spender = ?`,
			string(id), string(owner), string(spender))
	} else {
		_, err = b.q.ExecContext(ctx, `
			INSERT INTO asset_allowances (asset, owner, spender, amount) VALUES (?, ?, ?, ?)
			ON CONFLICT(asset, owner, spender) DO UPDATE SET amount = excluded.amount
		`, string(id), string(owner), string(spender), amount.String())
	}
	if err != nil {
		return fmt.Errorf("failed to set allowance: %w", err)
	}
	return nil
}

// BankStore implements asset.Store for SQLite
type BankStore struct {
	db *DB
}

// NewBankStore creates a new BankStore
func NewBankStore(db *DB) *BankStore {
	return &BankStore{db: db}
}

// Atomically runs fn against a bank bound to one transaction
func (s *BankStore) Atomically(ctx context.Context, fn func(bank *asset.Bank) error) error {
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		return fn(asset.NewBank(book{q: tx}))
	})
}
