package asset

import (
	"context"

	"github.com/rpggio/vestline/internal/domain/role"
	"github.com/shopspring/decimal"
)

type holding struct {
	id     ID
	holder role.Address
}

type approval struct {
	id      ID
	owner   role.Address
	spender role.Address
}

// MemoryBook is a map-backed Book. It is not safe for concurrent use;
// callers serialise access and use Clone for copy-on-write units of work.
type MemoryBook struct {
	balances   map[holding]decimal.Decimal
	allowances map[approval]decimal.Decimal
}

// NewMemoryBook creates an empty book.
func NewMemoryBook() *MemoryBook {
	return &MemoryBook{
		balances:   make(map[holding]decimal.Decimal),
		allowances: make(map[approval]decimal.Decimal),
	}
}

func (m *MemoryBook) Balance(_ context.Context, id ID, holder role.Address) (decimal.Decimal, error) {
	return m.balances[holding{id, holder}], nil
}

func (m *MemoryBook) SetBalance(_ context.Context, id ID, holder role.Address, amount decimal.Decimal) error {
	if amount.IsZero() {
		delete(m.balances, holding{id, holder})
		return nil
	}
	m.balances[holding{id, holder}] = amount
	return nil
}

func (m *MemoryBook) Allowance(_ context.Context, id ID, owner, spender role.Address) (decimal.Decimal, error) {
	return m.allowances[approval{id, owner, spender}], nil
}

func (m *MemoryBook) SetAllowance(_ context.Context, id ID, owner, spender role.Address, amount decimal.Decimal) error {
	if amount.IsZero() {
		delete(m.allowances, approval{id, owner, spender})
		return nil
	}
	m.allowances[approval{id, owner, spender}] = amount
	return nil
}

// Clone returns an independent copy of the book.
func (m *MemoryBook) Clone() *MemoryBook {
	c := NewMemoryBook()
	for k, v := range m.balances {
		c.balances[k] = v
	}
	for k, v := range m.allowances {
		c.allowances[k] = v
	}
	return c
}
