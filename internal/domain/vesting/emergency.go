package vesting

import (
	"context"

	"github.com/rpggio/vestline/internal/domain/role"
)

// EmergencyRelease trips the one-way gate that lets beneficiaries withdraw
// everything they have left, bypassing the vesting clock.
func (in *Instance) EmergencyRelease(caller role.Address) error {
	if err := in.Roles.RequireOwner(caller); err != nil {
		return err
	}
	phase, err := in.Phase.Advance(PhaseEmergencyReleased)
	if err != nil {
		return err
	}
	in.Phase = phase
	return nil
}

// EmergencyClaim settles user's full remaining entitlement while the gate is tripped.
func (in *Instance) EmergencyClaim(ctx context.Context, bank Bank, caller, user role.Address) (Settlement, error) {
	if err := in.requireSelfOrProject(caller, user); err != nil {
		return Settlement{}, err
	}
	if in.Phase != PhaseEmergencyReleased {
		return Settlement{}, ErrNotEmergencyReleased
	}
	rec, ok := in.records[user]
	if !ok {
		return Settlement{}, ErrNothingToClaim
	}
	return in.settle(ctx, bank, user, in.claimable(rec, allElapsed))
}

// EmergencyClaimableFor returns what user could withdraw through the emergency path.
func (in *Instance) EmergencyClaimableFor(user role.Address) Claimable {
	rec, ok := in.records[user]
	if !ok {
		return Claimable{Beneficiary: user}
	}
	return in.claimable(rec, allElapsed)
}
