package asset

import (
	"context"
	"fmt"

	"github.com/rpggio/vestline/internal/domain/role"
	"github.com/shopspring/decimal"
)

// Book is the raw balance and allowance storage a Bank settles against.
// Implementations are scoped to one atomic unit of work.
type Book interface {
	Balance(ctx context.Context, id ID, holder role.Address) (decimal.Decimal, error)
	SetBalance(ctx context.Context, id ID, holder role.Address, amount decimal.Decimal) error
	Allowance(ctx context.Context, id ID, owner, spender role.Address) (decimal.Decimal, error)
	SetAllowance(ctx context.Context, id ID, owner, spender role.Address, amount decimal.Decimal) error
}

// Bank moves assets between holders with ERC-20 style allowances.
type Bank struct {
	book Book
}

// NewBank creates a bank over the given book.
func NewBank(book Book) *Bank {
	return &Bank{book: book}
}

// BalanceOf returns the holder's balance of an asset.
func (b *Bank) BalanceOf(ctx context.Context, id ID, holder role.Address) (decimal.Decimal, error) {
	if id.IsZero() {
		return decimal.Zero, ErrInvalidAsset
	}
	return b.book.Balance(ctx, id, holder)
}

// Allowance returns how much spender may pull from owner.
func (b *Bank) Allowance(ctx context.Context, id ID, owner, spender role.Address) (decimal.Decimal, error) {
	if id.IsZero() {
		return decimal.Zero, ErrInvalidAsset
	}
	return b.book.Allowance(ctx, id, owner, spender)
}

// Approve sets the amount spender may pull from owner, replacing any previous approval.
func (b *Bank) Approve(ctx context.Context, id ID, owner, spender role.Address, amount decimal.Decimal) error {
	if id.IsZero() {
		return ErrInvalidAsset
	}
	if owner.IsZero() || spender.IsZero() {
		return role.ErrZeroAddress
	}
	if !ValidAmount(amount) {
		return ErrInvalidAmount
	}
	return b.book.SetAllowance(ctx, id, owner, spender, amount)
}

// Mint credits new units to a holder.
func (b *Bank) Mint(ctx context.Context, id ID, to role.Address, amount decimal.Decimal) error {
	if id.IsZero() {
		return ErrInvalidAsset
	}
	if to.IsZero() {
		return role.ErrZeroAddress
	}
	if !ValidAmount(amount) {
		return ErrInvalidAmount
	}
	bal, err := b.book.Balance(ctx, id, to)
	if err != nil {
		return err
	}
	return b.book.SetBalance(ctx, id, to, bal.Add(amount))
}

// Transfer moves amount from one holder to another.
func (b *Bank) Transfer(ctx context.Context, id ID, from, to role.Address, amount decimal.Decimal) error {
	if id.IsZero() {
		return ErrInvalidAsset
	}
	if from.IsZero() || to.IsZero() {
		return role.ErrZeroAddress
	}
	if !ValidAmount(amount) {
		return ErrInvalidAmount
	}
	if amount.IsZero() || from == to {
		return nil
	}

	fromBal, err := b.book.Balance(ctx, id, from)
	if err != nil {
		return err
	}
	if fromBal.LessThan(amount) {
		return fmt.Errorf("%w: %s holds %s %s, needs %s", ErrInsufficientBalance, from, fromBal, id, amount)
	}
	toBal, err := b.book.Balance(ctx, id, to)
	if err != nil {
		return err
	}
	if err := b.book.SetBalance(ctx, id, from, fromBal.Sub(amount)); err != nil {
		return err
	}
	return b.book.SetBalance(ctx, id, to, toBal.Add(amount))
}

// TransferFrom moves amount out of from on behalf of spender, consuming allowance.
func (b *Bank) TransferFrom(ctx context.Context, id ID, spender, from, to role.Address, amount decimal.Decimal) error {
	if id.IsZero() {
		return ErrInvalidAsset
	}
	if !ValidAmount(amount) {
		return ErrInvalidAmount
	}
	if amount.IsZero() {
		return nil
	}
	allowance, err := b.book.Allowance(ctx, id, from, spender)
	if err != nil {
		return err
	}
	if allowance.LessThan(amount) {
		return fmt.Errorf("%w: %s approved %s %s for %s, needs %s", ErrInsufficientAllowance, from, allowance, id, spender, amount)
	}
	if err := b.Transfer(ctx, id, from, to, amount); err != nil {
		return err
	}
	return b.book.SetAllowance(ctx, id, from, spender, allowance.Sub(amount))
}
