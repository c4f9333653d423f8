package events

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/rpggio/vestline/internal/domain/vesting"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestBus_DeliversToEverySubscriber(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewBus(4, nil)
	first := make(chan vesting.Event, 1)
	second := make(chan vesting.Event, 1)
	bus.Subscribe(ctx, "first", func(_ context.Context, ev vesting.Event) error {
		first <- ev
		return nil
	})
	bus.Subscribe(ctx, "second", func(_ context.Context, ev vesting.Event) error {
		second <- ev
		return errors.New("ignored")
	})

	ev := vesting.Event{ID: "e1", Type: vesting.EventClaimed, InstanceID: "v1", Amount: decimal.NewFromInt(5)}
	require.NoError(t, bus.Publish(ctx, ev))

	for _, ch := range []chan vesting.Event{first, second} {
		select {
		case got := <-ch:
			require.Equal(t, "e1", got.ID)
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}
}

func TestBus_DropsForSlowSubscriber(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewBus(1, nil)
	block := make(chan struct{})
	bus.Subscribe(ctx, "slow", func(context.Context, vesting.Event) error {
		<-block
		return nil
	})
	defer close(block)

	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(ctx, vesting.Event{ID: "e"}))
	}
}

func TestBus_CanceledSubscriberIsRemoved(t *testing.T) {
	bus := NewBus(1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	bus.Subscribe(ctx, "gone", func(context.Context, vesting.Event) error { return nil })
	cancel()

	require.Eventually(t, func() bool {
		bus.mu.RLock()
		defer bus.mu.RUnlock()
		return len(bus.subscribers) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestLogHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	err := LogHandler(logger)(context.Background(), vesting.Event{
		ID:          "e1",
		Type:        vesting.EventRecovered,
		InstanceID:  "v1",
		Beneficiary: "proj",
		Asset:       "VST",
		Amount:      decimal.NewFromInt(40),
	})
	require.NoError(t, err)
	require.Contains(t, buf.String(), "vesting event recovered")
	require.Contains(t, buf.String(), "amount=40")
	require.Contains(t, buf.String(), "asset=VST")
}
