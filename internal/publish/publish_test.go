package publish

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cctalk/cctalk-host/pkg/cctalk/pool"
)

func TestNewSessionReturnsUniqueIDs(t *testing.T) {
	a := NewSession()
	b := NewSession()
	require.NotEmpty(t, a)
	require.NotEqual(t, a, b)
}

func TestToMessageCopiesEveryField(t *testing.T) {
	ev := pool.PayoutEvent{
		Kind:            pool.PayoutEventHopperEmpty,
		Address:         4,
		CoinValue:       50,
		ExhaustedHopper: 4,
		Err:             errors.New("hopper exhausted"),
		Progress: pool.DispenseProgress{
			Requested: 170,
			Dispensed: 100,
			Remaining: 70,
			Done:      false,
		},
	}

	msg := toMessage("session-1", ev)
	require.Equal(t, "session-1", msg.Session)
	require.Equal(t, "hopper_empty", msg.Kind)
	require.Equal(t, byte(4), msg.Address)
	require.Equal(t, uint32(50), msg.CoinValue)
	require.Equal(t, byte(4), msg.ExhaustedHopper)
	require.Equal(t, uint32(170), msg.Requested)
	require.Equal(t, uint32(100), msg.Dispensed)
	require.Equal(t, uint32(70), msg.Remaining)
	require.False(t, msg.Done)
	require.Equal(t, "hopper exhausted", msg.Error)
}

func TestToMessageOmitsErrorWhenNil(t *testing.T) {
	msg := toMessage("session-2", pool.PayoutEvent{Kind: pool.PayoutEventProgress})
	require.Empty(t, msg.Error)
}

func TestPayoutEventKindNameCoversEveryKind(t *testing.T) {
	kinds := []pool.PayoutEventKind{
		pool.PayoutEventProgress,
		pool.PayoutEventHopperEmpty,
		pool.PayoutEventPlanRebalanced,
		pool.PayoutEventHopperError,
		pool.PayoutEventHopperDisabled,
		pool.PayoutEventHopperEnabled,
	}
	seen := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		name := payoutEventKindName(k)
		require.NotEqual(t, "unknown", name)
		require.False(t, seen[name], "duplicate name %q", name)
		seen[name] = true
	}
}

func TestMessageJSONOmitsZeroOptionalFields(t *testing.T) {
	msg := toMessage("session-3", pool.PayoutEvent{Kind: pool.PayoutEventProgress})

	payload, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	require.NotContains(t, decoded, "address")
	require.NotContains(t, decoded, "coin_value")
	require.NotContains(t, decoded, "exhausted_hopper")
	require.NotContains(t, decoded, "error")
	require.Contains(t, decoded, "requested")
	require.Contains(t, decoded, "done")
}

func TestMirrorStopsWhenChannelCloses(t *testing.T) {
	events := make(chan pool.PayoutEvent)
	close(events)

	p := &Publisher{channel: "cctalk:payout:events"}
	done := make(chan struct{})
	go func() {
		p.Mirror(context.Background(), "session-4", events, nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Mirror did not return after its input channel closed")
	}
}
