package vesting_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rpggio/vestline/internal/domain/asset"
	"github.com/rpggio/vestline/internal/domain/role"
	"github.com/rpggio/vestline/internal/domain/vesting"
	"github.com/rpggio/vestline/internal/memory"
	"github.com/rpggio/vestline/internal/repository/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const day = 24 * time.Hour

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fixture struct {
	t      *testing.T
	ctx    context.Context
	clock  *fakeClock
	pub    *mocks.Publisher
	assets *asset.Service
	svc    *vesting.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	clock := &fakeClock{now: t0}
	pub := &mocks.Publisher{}
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil)

	return &fixture{
		t:      t,
		ctx:    context.Background(),
		clock:  clock,
		pub:    pub,
		assets: asset.NewService(store, true, nil),
		svc:    vesting.NewService(store, pub, clock, nil, vesting.Defaults{}, nil),
	}
}

func amt(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func (f *fixture) create(req vesting.CreateRequest) *vesting.Instance {
	f.t.Helper()
	if req.Caller == "" {
		req.Caller = "owner"
	}
	if req.Project == "" {
		req.Project = "proj"
	}
	if req.DistributedAsset == "" {
		req.DistributedAsset = "VST"
	}
	inst, err := f.svc.Create(f.ctx, req)
	require.NoError(f.t, err)
	return inst
}

func (f *fixture) deposit(id asset.ID, to role.Address, v int64) {
	f.t.Helper()
	require.NoError(f.t, f.assets.Deposit(f.ctx, id, to, amt(v)))
}

func (f *fixture) approve(owner role.Address, id asset.ID, spender role.Address, v int64) {
	f.t.Helper()
	require.NoError(f.t, f.assets.Approve(f.ctx, owner, id, spender, amt(v)))
}

func (f *fixture) balance(id asset.ID, holder role.Address) string {
	f.t.Helper()
	bal, err := f.assets.Balance(f.ctx, id, holder)
	require.NoError(f.t, err)
	return bal.String()
}

// fundProject gives the project wallet v units of the distributed asset approved to custody.
func (f *fixture) fundProject(inst *vesting.Instance, v int64) {
	f.t.Helper()
	f.deposit(inst.DistributedAsset, inst.Roles.Project, v)
	f.approve(inst.Roles.Project, inst.DistributedAsset, inst.Custody, v)
}

// standard creates an activated standard instance with the given allocations, started at t0.
func (f *fixture) standard(allocs map[role.Address]int64) *vesting.Instance {
	f.t.Helper()
	inst := f.create(vesting.CreateRequest{})
	var total int64
	for user, v := range allocs {
		_, err := f.svc.SetAllocation(f.ctx, inst.ID, "proj", user, amt(v))
		require.NoError(f.t, err)
		total += v
	}
	f.fundProject(inst, total)
	_, err := f.svc.Activate(f.ctx, inst.ID, "proj", f.clock.Now())
	require.NoError(f.t, err)
	return inst
}

func (f *fixture) at(d time.Duration) {
	f.clock.Set(t0.Add(d))
}

// checkInvariants asserts totals equal the sum of records and custody covers liabilities.
func (f *fixture) checkInvariants(id string) {
	f.t.Helper()
	sum, err := f.svc.Summary(f.ctx, id)
	require.NoError(f.t, err)

	var ent, claimed, funded, fundingClaimed decimal.Decimal
	for _, rec := range sum.Instance.Records() {
		require.True(f.t, rec.Claimed.LessThanOrEqual(rec.Entitlement), "claimed above entitlement for %s", rec.Beneficiary)
		ent = ent.Add(rec.Entitlement)
		claimed = claimed.Add(rec.Claimed)
		funded = funded.Add(rec.Funded)
		fundingClaimed = fundingClaimed.Add(rec.FundingClaimed)
	}
	require.True(f.t, ent.Equal(sum.Instance.Totals.Entitlement), "entitlement totals drifted")
	require.True(f.t, claimed.Equal(sum.Instance.Totals.Claimed), "claimed totals drifted")
	require.True(f.t, funded.Equal(sum.Instance.Totals.Funded), "funded totals drifted")
	require.True(f.t, fundingClaimed.Equal(sum.Instance.Totals.FundingClaimed), "funding claimed totals drifted")

	if sum.Instance.Phase.Activated() {
		require.True(f.t, sum.Custody[sum.Instance.DistributedAsset].GreaterThanOrEqual(sum.Liability), "custody below liability")
	}
	if sum.Instance.Insured() {
		require.True(f.t, sum.Custody[sum.Instance.FundingAsset].GreaterThanOrEqual(sum.FundingLiability), "funding custody below liability")
	}
}

func (f *fixture) publishedTypes() []vesting.EventType {
	var out []vesting.EventType
	for _, call := range f.pub.Calls {
		if call.Method == "Publish" {
			out = append(out, call.Arguments.Get(1).(vesting.Event).Type)
		}
	}
	return out
}
