package functional_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rpggio/vestline/internal/domain/vesting"
	"github.com/rpggio/vestline/internal/mcp"
	"github.com/rpggio/vestline/internal/testserver"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const day = 24 * time.Hour

var t0 = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type eventLog struct {
	mu     sync.Mutex
	events []vesting.Event
}

func (l *eventLog) record(_ context.Context, ev vesting.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
	return nil
}

func (l *eventLog) types() []vesting.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]vesting.EventType, 0, len(l.events))
	for _, ev := range l.events {
		out = append(out, ev.Type)
	}
	return out
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestRPC_StandardSchedule(t *testing.T) {
	ts := testserver.New(t, t0)
	owner := ts.Login(t, "owner")
	proj := ts.Login(t, "proj")
	alice := ts.Login(t, "alice")
	bob := ts.Login(t, "bob")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	log := &eventLog{}
	ts.Bus.Subscribe(ctx, "test", log.record)

	var created mcp.ScheduleResponse
	ts.Result(t, owner, "create_schedule", map[string]any{
		"project":           "proj",
		"distributed_asset": "VST",
		"duration":          "2400h",
	}, &created)
	require.Equal(t, "pending", created.Phase)

	ts.Result(t, proj, "set_allocation", map[string]any{
		"schedule_id": created.ID,
		"allocations": []map[string]string{
			{"beneficiary": "alice", "amount": "6000"},
			{"beneficiary": "bob", "amount": "4000"},
		},
	}, nil)

	// Part of the supply is already in custody; activation pulls only the shortfall.
	ts.Result(t, proj, "asset_deposit", map[string]any{"asset": "VST", "amount": "10000"}, nil)
	ts.Result(t, proj, "asset_transfer", map[string]any{"asset": "VST", "to": created.Custody, "amount": "3000"}, nil)
	ts.Result(t, proj, "asset_approve", map[string]any{"asset": "VST", "spender": created.Custody, "amount": "7000"}, nil)

	require.Equal(t, "START_TIME_IN_PAST", ts.ErrorCode(t, proj, "activate", map[string]any{
		"schedule_id": created.ID,
		"start_time":  t0.Add(-time.Hour).Format(time.RFC3339),
	}))

	var activation vesting.Activation
	ts.Result(t, proj, "activate", map[string]any{
		"schedule_id": created.ID,
		"start_time":  t0.Add(day).Format(time.RFC3339),
	}, &activation)
	assert.True(t, activation.Pulled.Equal(dec(7000)))

	require.Equal(t, "VESTING_NOT_STARTED", ts.ErrorCode(t, alice, "claim", map[string]any{"schedule_id": created.ID}))

	// 25 of 100 days into vesting.
	ts.Clock.Advance(26 * day)
	var settled vesting.Settlement
	ts.Result(t, alice, "claim", map[string]any{"schedule_id": created.ID}, &settled)
	assert.True(t, settled.Paid.Equal(dec(1500)))

	require.Equal(t, "NOTHING_TO_CLAIM", ts.ErrorCode(t, alice, "claim", map[string]any{"schedule_id": created.ID}))
	require.Equal(t, "ONLY_PROJECT_OR_SENDER", ts.ErrorCode(t, alice, "claim", map[string]any{"schedule_id": created.ID, "beneficiary": "bob"}))

	ts.Clock.Advance(200 * day)
	ts.Result(t, alice, "claim", map[string]any{"schedule_id": created.ID}, &settled)
	assert.True(t, settled.Paid.Equal(dec(4500)))
	ts.Result(t, proj, "claim", map[string]any{"schedule_id": created.ID, "beneficiary": "bob"}, &settled)
	assert.True(t, settled.Paid.Equal(dec(4000)))

	var bal mcp.BalanceResponse
	ts.Result(t, bob, "asset_balance", map[string]any{"asset": "VST"}, &bal)
	assert.True(t, bal.Balance.Equal(dec(4000)))

	var summary mcp.SummaryResponse
	ts.Result(t, owner, "get_schedule", map[string]any{"schedule_id": created.ID}, &summary)
	assert.True(t, summary.Liability.IsZero())
	assert.True(t, summary.Custody["VST"].IsZero())
	assert.Equal(t, vesting.Fraction{Num: 1, Den: 1}, summary.Elapsed)

	require.Eventually(t, func() bool { return len(log.types()) >= 6 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []vesting.EventType{
		vesting.EventAllocationChanged,
		vesting.EventAllocationChanged,
		vesting.EventActivated,
		vesting.EventClaimed,
		vesting.EventClaimed,
		vesting.EventClaimed,
	}, log.types())
}

func TestRPC_InsuredRefund(t *testing.T) {
	ts := testserver.New(t, t0)
	owner := ts.Login(t, "owner")
	proj := ts.Login(t, "proj")
	carol := ts.Login(t, "carol")

	var created mcp.ScheduleResponse
	ts.Result(t, owner, "create_schedule", map[string]any{
		"project":           "proj",
		"variant":           "insured",
		"distributed_asset": "VST",
		"funding_asset":     "USD",
		"ratio_num":         4,
		"ratio_den":         1,
		"duration":          "2400h",
	}, &created)

	ts.Result(t, proj, "set_allocation", map[string]any{"schedule_id": created.ID, "beneficiary": "carol", "amount": "1000"}, nil)
	ts.Result(t, carol, "asset_deposit", map[string]any{"asset": "USD", "amount": "1000"}, nil)
	ts.Result(t, carol, "asset_approve", map[string]any{"asset": "USD", "spender": created.Custody, "amount": "1000"}, nil)
	ts.Result(t, carol, "add_funds", map[string]any{"schedule_id": created.ID, "amount": "1000"}, nil)

	ts.Result(t, proj, "asset_deposit", map[string]any{"asset": "VST", "amount": "4000"}, nil)
	ts.Result(t, proj, "asset_approve", map[string]any{"asset": "VST", "spender": created.Custody, "amount": "4000"}, nil)
	ts.Result(t, proj, "activate", map[string]any{"schedule_id": created.ID, "start_time": t0.Format(time.RFC3339)}, nil)

	// Half way: take tokens for the first half.
	ts.Clock.Advance(50 * day)
	var settled vesting.Settlement
	ts.Result(t, carol, "claim", map[string]any{"schedule_id": created.ID}, &settled)
	assert.True(t, settled.Paid.Equal(dec(2000)))
	assert.True(t, settled.Forwarded.Equal(dec(500)))

	// Then ask for the rest back.
	var decision mcp.DecisionResponse
	ts.Result(t, carol, "toggle_decision", map[string]any{"schedule_id": created.ID}, &decision)
	require.True(t, decision.Refund)

	ts.Clock.Advance(50 * day)
	ts.Result(t, carol, "claim", map[string]any{"schedule_id": created.ID}, &settled)
	assert.True(t, settled.Refunded.Equal(dec(500)))
	assert.True(t, settled.Released.Equal(dec(2000)))

	var bal mcp.BalanceResponse
	ts.Result(t, carol, "asset_balance", map[string]any{"asset": "USD"}, &bal)
	assert.True(t, bal.Balance.Equal(dec(500)))
	ts.Result(t, proj, "asset_balance", map[string]any{"asset": "USD"}, &bal)
	assert.True(t, bal.Balance.Equal(dec(500)))

	// Released project tokens are no longer a liability and go back to the project.
	var recovery vesting.Recovery
	ts.Result(t, owner, "recover_token", map[string]any{"schedule_id": created.ID, "asset": "VST"}, &recovery)
	assert.True(t, recovery.Amount.Equal(dec(2000)))
	require.Equal(t, "NOTHING_TO_CLAIM", ts.ErrorCode(t, owner, "recover_token", map[string]any{"schedule_id": created.ID, "asset": "USD"}))
}

func TestRPC_Unauthenticated(t *testing.T) {
	ts := testserver.New(t, t0)
	ts.Login(t, "owner")

	resp := ts.Call(t, "token-owner", "list_schedules", nil)
	require.Nil(t, resp.Error)

	resp = ts.Call(t, "token-owner", "no_such_tool", nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32601, resp.Error.Code)
}
