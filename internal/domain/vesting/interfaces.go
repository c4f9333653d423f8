package vesting

import (
	"context"
	"time"

	"github.com/rpggio/vestline/internal/domain/asset"
	"github.com/rpggio/vestline/internal/domain/role"
	"github.com/shopspring/decimal"
)

// Bank is the custody surface the engine settles against.
type Bank interface {
	BalanceOf(ctx context.Context, id asset.ID, holder role.Address) (decimal.Decimal, error)
	Transfer(ctx context.Context, id asset.ID, from, to role.Address, amount decimal.Decimal) error
	TransferFrom(ctx context.Context, id asset.ID, spender, from, to role.Address, amount decimal.Decimal) error
}

// Repository persists instances. Update and View hand fn a working copy of the
// instance and a bank bound to the same atomic unit; an error from fn discards
// every change to both.
type Repository interface {
	Create(ctx context.Context, inst *Instance) error
	List(ctx context.Context) ([]Instance, error)
	View(ctx context.Context, id string, fn func(inst *Instance, bank Bank) error) error
	Update(ctx context.Context, id string, fn func(inst *Instance, bank Bank) error) error
}

// Publisher receives events after the operation that produced them commits.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Clock supplies the time an operation observes.
type Clock interface {
	Now() time.Time
}

// IDGenerator names new instances and events.
type IDGenerator interface {
	NewID() string
}
