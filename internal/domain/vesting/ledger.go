package vesting

import (
	"context"
	"fmt"

	"github.com/rpggio/vestline/internal/domain/asset"
	"github.com/rpggio/vestline/internal/domain/role"
	"github.com/shopspring/decimal"
)

// Allocation is one entry of a bulk allocation write.
type Allocation struct {
	Beneficiary role.Address    `json:"beneficiary"`
	Amount      decimal.Decimal `json:"amount"`
}

// AllocationChange describes the effect of a single allocation write.
type AllocationChange struct {
	Beneficiary role.Address    `json:"beneficiary"`
	Previous    decimal.Decimal `json:"previous"`
	Current     decimal.Decimal `json:"current"`
}

// SetAllocation sets a beneficiary's allocation before activation. Standard
// instances allocate entitlement directly; insured instances allocate the
// funding cap, and entitlement follows the funded amount.
func (in *Instance) SetAllocation(caller, user role.Address, amount decimal.Decimal) (AllocationChange, error) {
	if err := in.Roles.RequireProject(caller); err != nil {
		return AllocationChange{}, err
	}
	if in.Phase.Activated() {
		return AllocationChange{}, ErrAlreadyActivated
	}
	if user.IsZero() {
		return AllocationChange{}, role.ErrZeroAddress
	}
	if !asset.ValidAmount(amount) {
		return AllocationChange{}, ErrInvalidAmount
	}

	if in.Insured() {
		return in.setFundingAllocation(user, amount)
	}

	rec := in.writable(user)
	prev := rec.Entitlement
	rec.Entitlement = amount
	in.Totals.Entitlement = asset.SubFloor(in.Totals.Entitlement.Add(amount), prev)
	return AllocationChange{Beneficiary: user, Previous: prev, Current: amount}, nil
}

func (in *Instance) setFundingAllocation(user role.Address, amount decimal.Decimal) (AllocationChange, error) {
	if cur, ok := in.records[user]; ok && amount.LessThan(cur.Funded) {
		return AllocationChange{}, fmt.Errorf("%w: %s already funded %s", ErrAllocationExceeded, user, cur.Funded)
	}
	rec := in.writable(user)
	prev := rec.FundingAllocation
	rec.FundingAllocation = amount
	in.Totals.FundingAllocation = asset.SubFloor(in.Totals.FundingAllocation.Add(amount), prev)
	return AllocationChange{Beneficiary: user, Previous: prev, Current: amount}, nil
}

// SetAllocations applies several allocation writes; any failure fails the batch.
func (in *Instance) SetAllocations(caller role.Address, items []Allocation) ([]AllocationChange, error) {
	if len(items) == 0 {
		return nil, ErrInvalidInput
	}
	changes := make([]AllocationChange, 0, len(items))
	for _, item := range items {
		change, err := in.SetAllocation(caller, item.Beneficiary, item.Amount)
		if err != nil {
			return nil, fmt.Errorf("allocation for %s: %w", item.Beneficiary, err)
		}
		changes = append(changes, change)
	}
	return changes, nil
}

// Funding describes an accepted insured deposit.
type Funding struct {
	Beneficiary role.Address    `json:"beneficiary"`
	Amount      decimal.Decimal `json:"amount"`
	Funded      decimal.Decimal `json:"funded"`
	Entitlement decimal.Decimal `json:"entitlement"`
}

// AddFunds moves funding asset from the caller into custody against their cap.
func (in *Instance) AddFunds(ctx context.Context, bank Bank, caller role.Address, amount decimal.Decimal) (Funding, error) {
	if !in.Insured() {
		return Funding{}, ErrNotInsured
	}
	if in.Phase.Activated() {
		return Funding{}, ErrAlreadyActivated
	}
	if !asset.ValidAmount(amount) || amount.IsZero() {
		return Funding{}, ErrInvalidAmount
	}
	cur, ok := in.records[caller]
	if !ok || cur.Funded.Add(amount).GreaterThan(cur.FundingAllocation) {
		return Funding{}, ErrAllocationExceeded
	}

	rec := in.writable(caller)
	rec.Funded = rec.Funded.Add(amount)
	in.Totals.Funded = in.Totals.Funded.Add(amount)

	prev := rec.Entitlement
	rec.Entitlement = in.Ratio.Of(rec.Funded)
	in.Totals.Entitlement = asset.SubFloor(in.Totals.Entitlement.Add(rec.Entitlement), prev)

	if err := bank.TransferFrom(ctx, in.FundingAsset, in.Custody, caller, in.Custody, amount); err != nil {
		return Funding{}, fmt.Errorf("pulling funding: %w", err)
	}
	return Funding{Beneficiary: caller, Amount: amount, Funded: rec.Funded, Entitlement: rec.Entitlement}, nil
}
