// Package publish mirrors payout-progress events onto Redis pub/sub, so
// a process other than the daemon (a till UI, a second operator tool)
// can observe the same per-payment event stream the pool already
// delivers in-process over a Go channel.
package publish

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/xid"

	"github.com/cctalk/cctalk-host/pkg/cctalk/pool"
)

// Message is the JSON payload published to the configured channel: one
// payout-progress event tagged with the session ID shared with the
// in-process channel carrying the same events, so a consumer can
// correlate the two.
type Message struct {
	Session         string `json:"session"`
	Kind            string `json:"kind"`
	Address         byte   `json:"address,omitempty"`
	CoinValue       uint32 `json:"coin_value,omitempty"`
	Requested       uint32 `json:"requested"`
	Dispensed       uint32 `json:"dispensed"`
	Remaining       uint32 `json:"remaining"`
	Done            bool   `json:"done"`
	ExhaustedHopper byte   `json:"exhausted_hopper,omitempty"`
	Error           string `json:"error,omitempty"`
}

// NewSession returns a fresh, sortable-by-creation-time session
// identifier for one payout or accept-payment operation.
func NewSession() string { return xid.New().String() }

// Publisher fans payout events out over a Redis channel.
type Publisher struct {
	client  *redis.Client
	channel string
}

// NewPublisher opens a client against addr and returns a Publisher
// bound to channel. The connection is established lazily by the
// underlying client on first use.
func NewPublisher(addr, channel string) *Publisher {
	return &Publisher{
		client:  redis.NewClient(&redis.Options{Addr: addr}),
		channel: channel,
	}
}

// Close releases the underlying Redis connection pool.
func (p *Publisher) Close() error { return p.client.Close() }

// PublishPayoutEvent encodes ev as a Message tagged with session and
// publishes it to the configured channel.
func (p *Publisher) PublishPayoutEvent(ctx context.Context, session string, ev pool.PayoutEvent) error {
	msg := toMessage(session, ev)

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("publish: encoding payout event: %w", err)
	}

	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish: publishing to %s: %w", p.channel, err)
	}
	return nil
}

// Mirror drains events from a local payout-progress channel (as
// returned by pool.PayoutPool.PayoutWithEvents) and republishes each
// one under session until the channel closes or ctx is cancelled. It
// never closes events itself — the pool that produced the channel owns
// that lifecycle. onError, if non-nil, receives publish failures; a
// failed publish does not stop the drain, since a later event is worth
// more than perfect delivery of an earlier one.
func (p *Publisher) Mirror(ctx context.Context, session string, events <-chan pool.PayoutEvent, onError func(error)) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := p.PublishPayoutEvent(ctx, session, ev); err != nil && onError != nil {
				onError(err)
			}
		}
	}
}

// Subscribe opens a subscription to the configured channel and decodes
// each message into a Message, delivering them on the returned channel
// until the returned stop function is called or ctx is cancelled.
// Messages that fail to decode (a payload from an incompatible sender)
// are dropped rather than surfaced as errors.
func (p *Publisher) Subscribe(ctx context.Context) (<-chan Message, func(), error) {
	sub := p.client.Subscribe(ctx, p.channel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, nil, fmt.Errorf("publish: subscribing to %s: %w", p.channel, err)
	}

	out := make(chan Message, 16)
	go func() {
		defer close(out)
		raw := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-raw:
				if !ok {
					return
				}
				var decoded Message
				if err := json.Unmarshal([]byte(m.Payload), &decoded); err != nil {
					continue
				}
				select {
				case out <- decoded:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, func() { sub.Close() }, nil
}

func toMessage(session string, ev pool.PayoutEvent) Message {
	msg := Message{
		Session:         session,
		Kind:            payoutEventKindName(ev.Kind),
		Address:         ev.Address,
		CoinValue:       ev.CoinValue,
		Requested:       ev.Progress.Requested,
		Dispensed:       ev.Progress.Dispensed,
		Remaining:       ev.Progress.Remaining,
		Done:            ev.Progress.Done,
		ExhaustedHopper: ev.ExhaustedHopper,
	}
	if ev.Err != nil {
		msg.Error = ev.Err.Error()
	}
	return msg
}

func payoutEventKindName(k pool.PayoutEventKind) string {
	switch k {
	case pool.PayoutEventProgress:
		return "progress"
	case pool.PayoutEventHopperEmpty:
		return "hopper_empty"
	case pool.PayoutEventPlanRebalanced:
		return "plan_rebalanced"
	case pool.PayoutEventHopperError:
		return "hopper_error"
	case pool.PayoutEventHopperDisabled:
		return "hopper_disabled"
	case pool.PayoutEventHopperEnabled:
		return "hopper_enabled"
	default:
		return "unknown"
	}
}
