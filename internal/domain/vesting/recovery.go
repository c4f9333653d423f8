package vesting

import (
	"context"
	"fmt"

	"github.com/rpggio/vestline/internal/domain/asset"
	"github.com/rpggio/vestline/internal/domain/role"
	"github.com/shopspring/decimal"
)

// Recovery describes assets swept out of custody.
type Recovery struct {
	Asset     asset.ID        `json:"asset"`
	Recipient role.Address    `json:"recipient"`
	Amount    decimal.Decimal `json:"amount"`
	Liability decimal.Decimal `json:"liability"`
}

// RecoverToken sends custody holdings of id that are not owed to anyone to the
// project wallet. The distributed asset, and the funding asset on insured
// instances, keep their outstanding liability in custody and fail with
// ErrNothingToClaim when no excess exists. Any other asset is swept in full,
// and an empty balance is a no-op.
func (in *Instance) RecoverToken(ctx context.Context, bank Bank, caller role.Address, id asset.ID) (Recovery, error) {
	if err := in.Roles.RequireOwner(caller); err != nil {
		return Recovery{}, err
	}
	if id.IsZero() || id == asset.Native {
		return Recovery{}, asset.ErrInvalidAsset
	}

	balance, err := bank.BalanceOf(ctx, id, in.Custody)
	if err != nil {
		return Recovery{}, fmt.Errorf("reading custody balance: %w", err)
	}

	out := Recovery{Asset: id, Recipient: in.Roles.Project, Liability: decimal.Zero}
	encumbered := true
	switch {
	case id == in.DistributedAsset:
		out.Liability = in.Totals.Liability()
	case in.Insured() && id == in.FundingAsset:
		out.Liability = in.Totals.FundingLiability()
	default:
		encumbered = false
	}
	out.Amount = asset.SubFloor(balance, out.Liability)

	if !out.Amount.IsPositive() {
		if encumbered {
			return Recovery{}, ErrNothingToClaim
		}
		return out, nil
	}
	if err := in.pay(ctx, bank, id, out.Recipient, out.Amount); err != nil {
		return Recovery{}, err
	}
	return out, nil
}

// RecoverNative sends the whole native balance held in custody to the
// recipient chosen by the instance's native policy.
func (in *Instance) RecoverNative(ctx context.Context, bank Bank, caller role.Address) (Recovery, error) {
	if err := in.Roles.RequireOwner(caller); err != nil {
		return Recovery{}, err
	}
	balance, err := bank.BalanceOf(ctx, asset.Native, in.Custody)
	if err != nil {
		return Recovery{}, fmt.Errorf("reading native balance: %w", err)
	}

	out := Recovery{Asset: asset.Native, Recipient: in.nativeRecipient(), Amount: balance, Liability: decimal.Zero}
	if err := in.pay(ctx, bank, asset.Native, out.Recipient, balance); err != nil {
		return Recovery{}, err
	}
	return out, nil
}

func (in *Instance) nativeRecipient() role.Address {
	if in.NativeRecipient == NativeToOwner {
		return in.Roles.Owner
	}
	return in.Roles.Project
}
