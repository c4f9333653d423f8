package vesting

import (
	"context"
	"fmt"
	"time"

	"github.com/rpggio/vestline/internal/domain/asset"
	"github.com/rpggio/vestline/internal/domain/role"
	"github.com/shopspring/decimal"
)

// Claimable is what a beneficiary could settle at a given moment.
// Funding is always zero on standard instances.
type Claimable struct {
	Beneficiary role.Address    `json:"beneficiary"`
	Project     decimal.Decimal `json:"project"`
	Funding     decimal.Decimal `json:"funding"`
	Refund      bool            `json:"refund"`
}

// IsZero reports whether nothing is claimable.
func (c Claimable) IsZero() bool {
	return c.Project.IsZero() && c.Funding.IsZero()
}

// Settlement describes the movements made by a claim. Paid and Forwarded
// happen in token mode; Released and Refunded in refund mode. Released project
// units leave the liability without a transfer.
type Settlement struct {
	Beneficiary role.Address    `json:"beneficiary"`
	Refund      bool            `json:"refund"`
	Paid        decimal.Decimal `json:"paid"`
	Released    decimal.Decimal `json:"released"`
	Forwarded   decimal.Decimal `json:"forwarded"`
	Refunded    decimal.Decimal `json:"refunded"`
}

// ClaimableFor returns what user could claim at now through the regular path.
func (in *Instance) ClaimableFor(user role.Address, now time.Time) Claimable {
	rec, ok := in.records[user]
	if !ok {
		return Claimable{Beneficiary: user}
	}
	return in.claimable(rec, in.ElapsedFraction(now))
}

// claimable matures the record to f. Insured records mature in funding units
// first, and project units follow the cumulative conversion so that partial
// claims never drift from the total.
func (in *Instance) claimable(rec *BeneficiaryRecord, f Fraction) Claimable {
	out := Claimable{Beneficiary: rec.Beneficiary, Refund: rec.Refund}
	if !in.Insured() {
		out.Project = asset.SubFloor(f.Of(rec.Entitlement), rec.Claimed)
		return out
	}
	matured := f.Of(rec.Funded)
	out.Funding = asset.SubFloor(matured, rec.FundingClaimed)
	out.Project = asset.SubFloor(in.Ratio.Of(matured), rec.Claimed)
	return out
}

// Claim settles the vested, unclaimed part of user's entitlement.
func (in *Instance) Claim(ctx context.Context, bank Bank, caller, user role.Address, now time.Time) (Settlement, error) {
	if err := in.requireSelfOrProject(caller, user); err != nil {
		return Settlement{}, err
	}
	if !in.Started(now) {
		return Settlement{}, ErrVestingNotStarted
	}
	if in.Phase == PhaseEmergencyReleased {
		return Settlement{}, ErrEmergencyReleased
	}
	rec, ok := in.records[user]
	if !ok {
		return Settlement{}, ErrNothingToClaim
	}
	return in.settle(ctx, bank, user, in.claimable(rec, in.ElapsedFraction(now)))
}

// ToggleDecision flips the caller's settlement decision for future claims.
func (in *Instance) ToggleDecision(caller role.Address) (bool, error) {
	if !in.Insured() {
		return false, ErrNotInsured
	}
	cur, ok := in.records[caller]
	if !ok || (cur.FundingAllocation.IsZero() && cur.Funded.IsZero()) {
		return false, ErrNotBeneficiary
	}
	rec := in.writable(caller)
	rec.Refund = !rec.Refund
	return rec.Refund, nil
}

func (in *Instance) requireSelfOrProject(caller, user role.Address) error {
	if user.IsZero() {
		return role.ErrZeroAddress
	}
	if caller.IsZero() || (caller != user && !in.Roles.IsProject(caller)) {
		return ErrOnlyProjectOrSender
	}
	return nil
}

// settle books c against user's record and totals, then moves assets.
func (in *Instance) settle(ctx context.Context, bank Bank, user role.Address, c Claimable) (Settlement, error) {
	if c.IsZero() {
		return Settlement{}, ErrNothingToClaim
	}

	rec := in.writable(user)
	rec.Claimed = rec.Claimed.Add(c.Project)
	rec.FundingClaimed = rec.FundingClaimed.Add(c.Funding)
	in.Totals.Claimed = in.Totals.Claimed.Add(c.Project)
	in.Totals.FundingClaimed = in.Totals.FundingClaimed.Add(c.Funding)

	out := Settlement{
		Beneficiary: user,
		Refund:      in.Insured() && rec.Refund,
		Paid:        decimal.Zero,
		Released:    decimal.Zero,
		Forwarded:   decimal.Zero,
		Refunded:    decimal.Zero,
	}
	if out.Refund {
		out.Released = c.Project
		out.Refunded = c.Funding
	} else {
		out.Paid = c.Project
		out.Forwarded = c.Funding
	}

	if err := in.pay(ctx, bank, in.DistributedAsset, user, out.Paid); err != nil {
		return Settlement{}, err
	}
	if err := in.pay(ctx, bank, in.FundingAsset, in.Roles.Project, out.Forwarded); err != nil {
		return Settlement{}, err
	}
	if err := in.pay(ctx, bank, in.FundingAsset, user, out.Refunded); err != nil {
		return Settlement{}, err
	}
	return out, nil
}

func (in *Instance) pay(ctx context.Context, bank Bank, id asset.ID, to role.Address, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return nil
	}
	if err := bank.Transfer(ctx, id, in.Custody, to, amount); err != nil {
		return fmt.Errorf("paying %s %s to %s: %w", amount, id, to, err)
	}
	return nil
}
