package vesting

import (
	"context"
	"fmt"
	"time"

	"github.com/rpggio/vestline/internal/domain/asset"
	"github.com/rpggio/vestline/internal/domain/role"
	"github.com/shopspring/decimal"
)

// DefaultMaxLeadTime bounds how far in the future a start time may be set.
const DefaultMaxLeadTime = 90 * 24 * time.Hour

// Fraction is an exact elapsed share Num/Den in [0, 1].
type Fraction struct {
	Num int64 `json:"num"`
	Den int64 `json:"den"`
}

var (
	noneElapsed = Fraction{Num: 0, Den: 1}
	allElapsed  = Fraction{Num: 1, Den: 1}
)

// Of returns floor(v * f).
func (f Fraction) Of(v decimal.Decimal) decimal.Decimal {
	if f.Num >= f.Den {
		return v
	}
	return asset.MulDiv(v, f.Num, f.Den)
}

// ElapsedFraction returns the vested share of the schedule at now, at
// one-second resolution. It is zero before activation or before the start.
func (in *Instance) ElapsedFraction(now time.Time) Fraction {
	if !in.Phase.Activated() || now.Before(in.StartTime) {
		return noneElapsed
	}
	elapsed := int64(now.Sub(in.StartTime) / time.Second)
	total := int64(in.Duration / time.Second)
	if total <= 0 || elapsed >= total {
		return allElapsed
	}
	return Fraction{Num: elapsed, Den: total}
}

// Started reports whether claims may run against the clock at now.
func (in *Instance) Started(now time.Time) bool {
	return in.Phase.Activated() && !now.Before(in.StartTime)
}

// Activation describes a successful activation.
type Activation struct {
	StartTime time.Time       `json:"start_time"`
	Total     decimal.Decimal `json:"total"`
	Pulled    decimal.Decimal `json:"pulled"`
}

// Activate locks allocations, fixes the start time and pulls exactly the
// shortfall between the total entitlement and custody from the project wallet.
func (in *Instance) Activate(ctx context.Context, bank Bank, caller role.Address, start, now time.Time) (Activation, error) {
	if err := in.Roles.RequireProject(caller); err != nil {
		return Activation{}, err
	}
	if in.Phase.Activated() {
		return Activation{}, ErrAlreadyActivated
	}
	if start.Before(now) {
		return Activation{}, ErrStartTimeInPast
	}
	if start.After(now.Add(in.maxLeadTime())) {
		return Activation{}, ErrStartTimeTooDistant
	}
	// Stored starts are whole seconds and never earlier than now.
	start = ceilSecond(start.UTC())
	if !in.Totals.Entitlement.IsPositive() {
		return Activation{}, ErrTotalAmountZero
	}

	balance, err := bank.BalanceOf(ctx, in.DistributedAsset, in.Custody)
	if err != nil {
		return Activation{}, fmt.Errorf("reading custody balance: %w", err)
	}
	shortfall := asset.SubFloor(in.Totals.Entitlement, balance)

	phase, err := in.Phase.Advance(PhaseActivated)
	if err != nil {
		return Activation{}, err
	}
	in.Phase = phase
	in.StartTime = start

	if shortfall.IsPositive() {
		if err := bank.TransferFrom(ctx, in.DistributedAsset, in.Custody, in.Roles.Project, in.Custody, shortfall); err != nil {
			return Activation{}, fmt.Errorf("pulling distributed asset: %w", err)
		}
	}
	return Activation{StartTime: start, Total: in.Totals.Entitlement, Pulled: shortfall}, nil
}

func (in *Instance) maxLeadTime() time.Duration {
	if in.MaxLeadTime <= 0 {
		return DefaultMaxLeadTime
	}
	return in.MaxLeadTime
}

func ceilSecond(t time.Time) time.Time {
	if whole := t.Truncate(time.Second); whole.Before(t) {
		return whole.Add(time.Second)
	}
	return t
}
