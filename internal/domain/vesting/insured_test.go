package vesting_test

import (
	"testing"
	"time"

	"github.com/rpggio/vestline/internal/domain/asset"
	"github.com/rpggio/vestline/internal/domain/vesting"
	"github.com/stretchr/testify/require"
)

func (f *fixture) insured(ratio vesting.Ratio, duration time.Duration) *vesting.Instance {
	f.t.Helper()
	return f.create(vesting.CreateRequest{
		Variant:      vesting.VariantInsured,
		FundingAsset: "USD",
		Ratio:        ratio,
		Duration:     duration,
	})
}

func TestInsured_TokenThenRefundSplit(t *testing.T) {
	f := newFixture(t)
	const period = 30 * day
	inst := f.insured(vesting.Ratio{Num: 5, Den: 2}, 24*period)

	_, err := f.svc.SetAllocation(f.ctx, inst.ID, "proj", "bob", amt(24000))
	require.NoError(t, err)

	f.deposit("USD", "bob", 24001)
	f.approve("bob", "USD", inst.Custody, 24001)
	funding, err := f.svc.AddFunds(f.ctx, inst.ID, "bob", amt(24000))
	require.NoError(t, err)
	require.Equal(t, "60000", funding.Entitlement.String())

	_, err = f.svc.AddFunds(f.ctx, inst.ID, "bob", amt(1))
	require.ErrorIs(t, err, vesting.ErrAllocationExceeded)
	_, err = f.svc.SetAllocation(f.ctx, inst.ID, "proj", "bob", amt(23999))
	require.ErrorIs(t, err, vesting.ErrAllocationExceeded)

	f.fundProject(inst, 60000)
	_, err = f.svc.Activate(f.ctx, inst.ID, "proj", t0)
	require.NoError(t, err)
	f.checkInvariants(inst.ID)

	for p := 1; p <= 24; p++ {
		f.at(time.Duration(p) * period)
		if p == 15 {
			refund, err := f.svc.ToggleDecision(f.ctx, inst.ID, "bob")
			require.NoError(t, err)
			require.True(t, refund)
		}

		s, err := f.svc.Claim(f.ctx, inst.ID, "bob", "bob")
		require.NoError(t, err, "period %d", p)
		if p <= 14 {
			require.False(t, s.Refund)
			require.Equal(t, "2500", s.Paid.String(), "period %d", p)
			require.Equal(t, "1000", s.Forwarded.String(), "period %d", p)
			require.True(t, s.Refunded.IsZero())
		} else {
			require.True(t, s.Refund)
			require.Equal(t, "1000", s.Refunded.String(), "period %d", p)
			require.Equal(t, "2500", s.Released.String(), "period %d", p)
			require.True(t, s.Paid.IsZero())
		}
		f.checkInvariants(inst.ID)
	}

	require.Equal(t, "35000", f.balance("VST", "bob"))
	require.Equal(t, "10001", f.balance("USD", "bob"))
	require.Equal(t, "14000", f.balance("USD", "proj"))
	require.Equal(t, "0", f.balance("USD", inst.Custody))
	require.Equal(t, "25000", f.balance("VST", inst.Custody))

	sum, err := f.svc.Summary(f.ctx, inst.ID)
	require.NoError(t, err)
	require.True(t, sum.Liability.IsZero())
	require.True(t, sum.FundingLiability.IsZero())

	r, err := f.svc.RecoverToken(f.ctx, inst.ID, "owner", "VST")
	require.NoError(t, err)
	require.Equal(t, "25000", r.Amount.String())

	_, err = f.svc.RecoverToken(f.ctx, inst.ID, "owner", "USD")
	require.ErrorIs(t, err, vesting.ErrNothingToClaim)

	f.at(25 * period)
	_, err = f.svc.Claim(f.ctx, inst.ID, "bob", "bob")
	require.ErrorIs(t, err, vesting.ErrNothingToClaim)
}

func TestInsured_CumulativeConversionDoesNotDrift(t *testing.T) {
	f := newFixture(t)
	inst := f.insured(vesting.Ratio{Num: 7, Den: 3}, 0)

	_, err := f.svc.SetAllocation(f.ctx, inst.ID, "proj", "carol", amt(10000))
	require.NoError(t, err)
	f.deposit("USD", "carol", 10000)
	f.approve("carol", "USD", inst.Custody, 10000)
	funding, err := f.svc.AddFunds(f.ctx, inst.ID, "carol", amt(10000))
	require.NoError(t, err)
	require.Equal(t, "23333", funding.Entitlement.String())

	f.fundProject(inst, 23333)
	_, err = f.svc.Activate(f.ctx, inst.ID, "proj", t0)
	require.NoError(t, err)

	var paid, forwarded, prevFunding, prevProject int64
	for _, d := range []int64{1, 37, 365, 500, 729, 730} {
		f.at(time.Duration(d) * day)
		matured := 10000 * d / 730
		project := matured * 7 / 3

		s, err := f.svc.Claim(f.ctx, inst.ID, "carol", "carol")
		require.NoError(t, err, "day %d", d)
		require.Equal(t, project-prevProject, s.Paid.IntPart(), "day %d", d)
		require.Equal(t, matured-prevFunding, s.Forwarded.IntPart(), "day %d", d)

		paid += s.Paid.IntPart()
		forwarded += s.Forwarded.IntPart()
		prevFunding, prevProject = matured, project
		f.checkInvariants(inst.ID)
	}

	require.Equal(t, int64(23333), paid)
	require.Equal(t, int64(10000), forwarded)
	require.Equal(t, "0", f.balance("VST", inst.Custody))
	require.Equal(t, "0", f.balance("USD", inst.Custody))
}

func TestInsured_EmergencyRefund(t *testing.T) {
	f := newFixture(t)
	inst := f.insured(vesting.Ratio{Num: 2, Den: 1}, 0)

	_, err := f.svc.SetAllocation(f.ctx, inst.ID, "proj", "bob", amt(730))
	require.NoError(t, err)
	f.deposit("USD", "bob", 730)
	f.approve("bob", "USD", inst.Custody, 730)
	_, err = f.svc.AddFunds(f.ctx, inst.ID, "bob", amt(730))
	require.NoError(t, err)
	f.fundProject(inst, 1460)
	_, err = f.svc.Activate(f.ctx, inst.ID, "proj", t0)
	require.NoError(t, err)

	f.at(100 * day)
	s, err := f.svc.Claim(f.ctx, inst.ID, "bob", "bob")
	require.NoError(t, err)
	require.Equal(t, "200", s.Paid.String())
	require.Equal(t, "100", s.Forwarded.String())

	_, err = f.svc.ToggleDecision(f.ctx, inst.ID, "bob")
	require.NoError(t, err)
	require.NoError(t, f.svc.EmergencyRelease(f.ctx, inst.ID, "owner"))

	s, err = f.svc.EmergencyClaim(f.ctx, inst.ID, "bob", "bob")
	require.NoError(t, err)
	require.Equal(t, "630", s.Refunded.String())
	require.Equal(t, "1260", s.Released.String())
	require.Equal(t, "630", f.balance("USD", "bob"))
	require.Equal(t, "100", f.balance("USD", "proj"))
	f.checkInvariants(inst.ID)
}

func TestInsured_Guards(t *testing.T) {
	f := newFixture(t)
	standard := f.create(vesting.CreateRequest{})
	inst := f.insured(vesting.Ratio{Num: 1, Den: 1}, 0)

	_, err := f.svc.AddFunds(f.ctx, standard.ID, "bob", amt(1))
	require.ErrorIs(t, err, vesting.ErrNotInsured)
	_, err = f.svc.ToggleDecision(f.ctx, standard.ID, "bob")
	require.ErrorIs(t, err, vesting.ErrNotInsured)

	_, err = f.svc.ToggleDecision(f.ctx, inst.ID, "mallory")
	require.ErrorIs(t, err, vesting.ErrNotBeneficiary)
	_, err = f.svc.AddFunds(f.ctx, inst.ID, "mallory", amt(1))
	require.ErrorIs(t, err, vesting.ErrAllocationExceeded)

	_, err = f.svc.SetAllocation(f.ctx, inst.ID, "proj", "bob", amt(100))
	require.NoError(t, err)

	_, err = f.svc.AddFunds(f.ctx, inst.ID, "bob", amt(0))
	require.ErrorIs(t, err, vesting.ErrInvalidAmount)

	_, err = f.svc.AddFunds(f.ctx, inst.ID, "bob", amt(50))
	require.ErrorIs(t, err, asset.ErrInsufficientAllowance)

	view, err := f.svc.Beneficiary(f.ctx, inst.ID, "bob")
	require.NoError(t, err)
	require.True(t, view.Exists)
	require.True(t, view.Record.Funded.IsZero(), "failed pull must not book funding")

	f.deposit("USD", "bob", 50)
	f.approve("bob", "USD", inst.Custody, 50)
	_, err = f.svc.AddFunds(f.ctx, inst.ID, "bob", amt(50))
	require.NoError(t, err)

	refund, err := f.svc.ToggleDecision(f.ctx, inst.ID, "bob")
	require.NoError(t, err)
	require.True(t, refund)
	refund, err = f.svc.ToggleDecision(f.ctx, inst.ID, "bob")
	require.NoError(t, err)
	require.False(t, refund)

	f.fundProject(inst, 50)
	_, err = f.svc.Activate(f.ctx, inst.ID, "proj", t0)
	require.NoError(t, err)

	_, err = f.svc.AddFunds(f.ctx, inst.ID, "bob", amt(10))
	require.ErrorIs(t, err, vesting.ErrAlreadyActivated)
	f.checkInvariants(inst.ID)
}
