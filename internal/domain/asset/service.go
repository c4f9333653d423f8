package asset

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rpggio/vestline/internal/domain/role"
	"github.com/shopspring/decimal"
)

// Store runs fn against a bank inside one atomic unit; an error discards every change.
type Store interface {
	Atomically(ctx context.Context, fn func(bank *Bank) error) error
}

// Service exposes custody operations to adapters.
type Service struct {
	store  Store
	faucet bool
	logger *slog.Logger
}

// NewService creates an asset service. Deposits are only accepted when faucet is true.
func NewService(store Store, faucet bool, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, faucet: faucet, logger: logger}
}

// Balance returns the holder's balance.
func (s *Service) Balance(ctx context.Context, id ID, holder role.Address) (decimal.Decimal, error) {
	var out decimal.Decimal
	err := s.store.Atomically(ctx, func(bank *Bank) error {
		bal, err := bank.BalanceOf(ctx, id, holder)
		out = bal
		return err
	})
	return out, err
}

// Approve lets spender pull up to amount from caller.
func (s *Service) Approve(ctx context.Context, caller role.Address, id ID, spender role.Address, amount decimal.Decimal) error {
	if err := s.store.Atomically(ctx, func(bank *Bank) error {
		return bank.Approve(ctx, id, caller, spender, amount)
	}); err != nil {
		return fmt.Errorf("approving %s: %w", id, err)
	}
	s.logger.Debug("allowance set", "asset", id, "owner", caller, "spender", spender, "amount", amount.String())
	return nil
}

// Transfer moves amount from caller to another holder.
func (s *Service) Transfer(ctx context.Context, caller role.Address, id ID, to role.Address, amount decimal.Decimal) error {
	if err := s.store.Atomically(ctx, func(bank *Bank) error {
		return bank.Transfer(ctx, id, caller, to, amount)
	}); err != nil {
		return fmt.Errorf("transferring %s: %w", id, err)
	}
	return nil
}

// Deposit credits newly issued units to a holder. Development deployments only.
func (s *Service) Deposit(ctx context.Context, id ID, to role.Address, amount decimal.Decimal) error {
	if !s.faucet {
		return ErrFaucetDisabled
	}
	if err := s.store.Atomically(ctx, func(bank *Bank) error {
		return bank.Mint(ctx, id, to, amount)
	}); err != nil {
		return fmt.Errorf("depositing %s: %w", id, err)
	}
	s.logger.Info("faucet deposit", "asset", id, "to", to, "amount", amount.String())
	return nil
}
