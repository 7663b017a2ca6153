package device

import (
	"sync"
	"time"

	"github.com/cctalk/cctalk-host/pkg/cctalk/command"
	"github.com/cctalk/cctalk-host/pkg/cctalk/packet"
	"github.com/cctalk/cctalk-host/pkg/cctalk/transport"
	"github.com/cctalk/cctalk-host/pkg/cctalk/value"
)

// BillValidator drives a ccTalk bill validator: inhibit control, escrow
// routing, per-bill identity, and buffered bill event polling.
//
// Like CoinValidator, a BillValidator may be freely copied; event
// counter and polling lease are shared across copies.
type BillValidator struct {
	Common

	counter *uint32Holder
	poll    polling
}

// NewBillValidator wraps a transport-reachable device as a bill validator.
func NewBillValidator(dev packet.Device, t *transport.Transport) BillValidator {
	return BillValidator{
		Common:  Common{Device: dev, Transport: t},
		counter: &uint32Holder{},
		poll:    newPolling(),
	}
}

func (v BillValidator) EventCounter() byte { return v.counter.get() }

func (v BillValidator) SetMasterInhibit(inhibit bool) error {
	_, err := Send[struct{}](v.Common, command.ModifyMasterInhibitStatusCommand{Enabled: !inhibit})
	return err
}

func (v BillValidator) EnableMasterInhibit() error  { return v.SetMasterInhibit(true) }
func (v BillValidator) DisableMasterInhibit() error { return v.SetMasterInhibit(false) }

func (v BillValidator) MasterInhibitEnabled() (bool, error) {
	enabled, err := Send[bool](v.Common, command.RequestMasterInhibitStatusCommand{})
	if err != nil {
		return false, err
	}
	return !enabled, nil
}

// OperatingMode returns whether the validator's stacker and escrow stage
// are currently available.
func (v BillValidator) OperatingMode() (command.BillOperatingMode, error) {
	return Send[command.BillOperatingMode](v.Common, command.RequestBillOperatingModeCommand{})
}

// SetOperatingMode selects whether the validator uses its stacker and/or
// holds bills in escrow before routing them.
func (v BillValidator) SetOperatingMode(useStacker, useEscrow bool) error {
	_, err := Send[struct{}](v.Common, command.ModifyBillOperatingModeCommand{
		UseStacker: useStacker,
		UseEscrow:  useEscrow,
	})
	return err
}

// BillID returns the currency token configured at one bill position.
func (v BillValidator) BillID(billPosition byte) (value.CurrencyToken, error) {
	return Send[value.CurrencyToken](v.Common, command.RequestBillIdCommand{BillPosition: billPosition})
}

// AllBillIDs returns the currency token for each of the 16 bill
// positions; a position whose request fails yields a nil token pointer.
func (v BillValidator) AllBillIDs() []*value.CurrencyToken {
	out := make([]*value.CurrencyToken, 16)
	for i := byte(0); i < 16; i++ {
		if token, err := v.BillID(i); err == nil {
			t := token
			out[i] = &t
		}
	}
	return out
}

// SetBillInhibits sets the inhibit status for each of the 16 bill
// positions; inhibits[i] true disables that position.
func (v BillValidator) SetBillInhibits(inhibits [16]bool) error {
	mask := value.NewBitMask(16)
	for i, disable := range inhibits {
		if err := mask.Set(i, !disable); err != nil {
			return err
		}
	}
	_, err := Send[struct{}](v.Common, command.ModifyInhibitStatusCommand{Mask: mask})
	return err
}

// SetAllBillInhibits sets the same inhibit state on all 16 bill positions.
func (v BillValidator) SetAllBillInhibits(inhibit bool) error {
	var inhibits [16]bool
	for i := range inhibits {
		inhibits[i] = inhibit
	}
	return v.SetBillInhibits(inhibits)
}

// BillInhibits returns, for each of the 16 bill positions, whether it is
// currently disabled.
func (v BillValidator) BillInhibits() ([16]bool, error) {
	var out [16]bool
	mask, err := Send[*value.BitMask](v.Common, command.RequestInhibitStatusCommand{BitCount: 16})
	if err != nil {
		return out, err
	}
	for i := range out {
		bit, err := mask.Get(i)
		if err != nil {
			return out, err
		}
		out[i] = !bit
	}
	return out, nil
}

// RouteBill directs the validator to stack or return the bill currently
// held in escrow.
func (v BillValidator) RouteBill(mode command.BillRoutingMode) error {
	_, err := Send[struct{}](v.Common, command.RouteBillCommand{Mode: mode})
	return err
}

// Poll reads the validator's buffered bill event queue and advances the
// internal event counter.
func (v BillValidator) Poll() (value.BillPollResult, error) {
	result, err := Send[value.BillPollResult](v.Common, command.ReadBufferedBillEventsCommand{})
	if err != nil {
		return value.BillPollResult{}, err
	}
	v.counter.set(result.EventCounter)
	if len(result.Events) > 0 {
		v.logEntry().WithFields(map[string]any{
			"address":       v.Device.Address,
			"event_counter": result.EventCounter,
			"events":        len(result.Events),
		}).Debug("bill validator poll returned events")
	}
	return result, nil
}

// PollingPriority returns the device-recommended polling interval.
func (v BillValidator) PollingPriority() (command.PollingPriority, error) {
	return Send[command.PollingPriority](v.Common, command.RequestPollingPriorityCommand{})
}

// TryBackgroundPolling starts a goroutine that calls Poll on interval and
// delivers every result on the returned channel, until Stop is called.
// Only one background poll loop may run at a time across v and any copy
// sharing its lease; a second call returns ErrAlreadyLeased.
func (v BillValidator) TryBackgroundPolling(interval time.Duration, channelSize int) (<-chan PollResult[value.BillPollResult], StopFunc, error) {
	if !v.poll.tryAcquire() {
		return nil, nil, ErrAlreadyLeased
	}

	results := make(chan PollResult[value.BillPollResult], channelSize)
	stop := make(chan struct{})
	var stopOnce sync.Once

	go func() {
		defer close(results)
		for {
			result, err := v.Poll()
			select {
			case results <- PollResult[value.BillPollResult]{Value: result, Err: err}:
			case <-stop:
				return
			}
			select {
			case <-stop:
				return
			case <-time.After(interval):
			}
		}
	}()

	stopFn := func() {
		stopOnce.Do(func() {
			close(stop)
			v.poll.release()
		})
	}
	return results, stopFn, nil
}
