package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rpggio/vestline/internal/domain/asset"
	"github.com/rpggio/vestline/internal/domain/role"
	"github.com/rpggio/vestline/internal/domain/vesting"
	"github.com/rpggio/vestline/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInstance(id string, created time.Time) *vesting.Instance {
	return &vesting.Instance{
		ID:               id,
		Variant:          vesting.VariantStandard,
		Roles:            role.Roles{Owner: "owner", Project: "proj"},
		Custody:          vesting.CustodyAddress(id),
		Phase:            vesting.PhasePending,
		DistributedAsset: "VST",
		Ratio:            vesting.Ratio{Num: 1, Den: 1},
		CreatedAt:        created,
	}
}

func TestStore_CreateAndList(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Create(ctx, newInstance("b", base)))
	require.NoError(t, store.Create(ctx, newInstance("a", base)))
	require.NoError(t, store.Create(ctx, newInstance("c", base.Add(-time.Hour))))

	err := store.Create(ctx, newInstance("a", base))
	require.ErrorIs(t, err, repository.ErrConflict)
	require.ErrorIs(t, store.Create(ctx, newInstance(" ", base)), repository.ErrInvalidInput)

	list, err := store.List(ctx)
	require.NoError(t, err)
	ids := []string{list[0].ID, list[1].ID, list[2].ID}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
}

func TestStore_UpdateCommitsOnlyOnSuccess(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	inst := newInstance("s1", time.Now())
	require.NoError(t, store.Create(ctx, inst))
	require.NoError(t, store.Atomically(ctx, func(bank *asset.Bank) error {
		return bank.Mint(ctx, "VST", "proj", decimal.NewFromInt(100))
	}))

	boom := errors.New("boom")
	err := store.Update(ctx, "s1", func(inst *vesting.Instance, bank vesting.Bank) error {
		inst.Phase = vesting.PhaseActivated
		if err := bank.Transfer(ctx, "VST", "proj", inst.Custody, decimal.NewFromInt(60)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, store.View(ctx, "s1", func(inst *vesting.Instance, bank vesting.Bank) error {
		assert.Equal(t, vesting.PhasePending, inst.Phase)
		bal, err := bank.BalanceOf(ctx, "VST", "proj")
		require.NoError(t, err)
		assert.True(t, bal.Equal(decimal.NewFromInt(100)))
		return nil
	}))

	require.NoError(t, store.Update(ctx, "s1", func(inst *vesting.Instance, bank vesting.Bank) error {
		inst.Phase = vesting.PhaseActivated
		return bank.Transfer(ctx, "VST", "proj", inst.Custody, decimal.NewFromInt(60))
	}))

	require.NoError(t, store.View(ctx, "s1", func(inst *vesting.Instance, bank vesting.Bank) error {
		assert.Equal(t, vesting.PhaseActivated, inst.Phase)
		bal, err := bank.BalanceOf(ctx, "VST", inst.Custody)
		require.NoError(t, err)
		assert.True(t, bal.Equal(decimal.NewFromInt(60)))
		return nil
	}))
}

func TestStore_ViewDoesNotLeakWrites(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	require.NoError(t, store.Create(ctx, newInstance("s1", time.Now())))

	require.NoError(t, store.View(ctx, "s1", func(inst *vesting.Instance, _ vesting.Bank) error {
		inst.Phase = vesting.PhaseEmergencyReleased
		return nil
	}))
	require.NoError(t, store.View(ctx, "s1", func(inst *vesting.Instance, _ vesting.Bank) error {
		assert.Equal(t, vesting.PhasePending, inst.Phase)
		return nil
	}))

	err := store.View(ctx, "missing", func(*vesting.Instance, vesting.Bank) error { return nil })
	require.ErrorIs(t, err, repository.ErrNotFound)
}
