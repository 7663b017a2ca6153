package device

import (
	"sync"
	"time"

	"github.com/cctalk/cctalk-host/pkg/cctalk/command"
	"github.com/cctalk/cctalk-host/pkg/cctalk/packet"
	"github.com/cctalk/cctalk-host/pkg/cctalk/transport"
	"github.com/cctalk/cctalk-host/pkg/cctalk/value"
)

// PayoutDevice drives one ccTalk hopper: arming, dispense, balance, and
// level-sensor status. Multi-hopper coordination (float planning across
// several denominations) belongs to the pool package, which addresses
// each hopper through a PayoutDevice of its own.
//
// RegisterCount selects how many payout-status registers this hopper
// reports (2 for the base status, 3 for devices implementing the
// register-3 flag extension); it must be set before calling
// PayoutStatus.
type PayoutDevice struct {
	Common

	RegisterCount int

	dispenseCounter *uint32Holder
	poll            polling
}

// NewPayoutDevice wraps a transport-reachable device as a payout/hopper
// driver. registerCount is typically 2; pass 3 for devices that report
// the extended payout-status flag register.
func NewPayoutDevice(dev packet.Device, t *transport.Transport, registerCount int) PayoutDevice {
	return PayoutDevice{
		Common:          Common{Device: dev, Transport: t},
		RegisterCount:   registerCount,
		dispenseCounter: &uint32Holder{},
		poll:            newPolling(),
	}
}

// HopperStatus reads the low/high level sensor flags.
func (d PayoutDevice) HopperStatus() (value.HopperStatus, error) {
	return Send[value.HopperStatus](d.Common, command.RequestHopperStatusCommand{})
}

// Test runs the hopper's self-test.
func (d PayoutDevice) Test() (byte, error) {
	return Send[byte](d.Common, command.TestHopperCommand{})
}

// Enable arms (true) or disarms (false) the hopper for dispensing.
func (d PayoutDevice) Enable(enable bool) error {
	_, err := Send[struct{}](d.Common, command.EnableHopperCommand{Enable: enable})
	return err
}

// EmergencyStop halts any dispense in progress and returns how many
// coins were paid out before the stop took effect.
func (d PayoutDevice) EmergencyStop() (byte, error) {
	return Send[byte](d.Common, command.EmergencyStopCommand{})
}

// DispenseCoins requests a dispense of count coins from this
// single-denomination hopper.
func (d PayoutDevice) DispenseCoins(count byte) error {
	_, err := Send[struct{}](d.Common, command.DispenseHopperCoinsCommand{Count: count})
	return err
}

// DispenseValue requests a dispense targeting a monetary value, for
// multi-denomination hoppers that choose their own coin mix.
func (d PayoutDevice) DispenseValue(amount uint32, country string) error {
	_, err := Send[struct{}](d.Common, command.DispenseHopperValueCommand{Value: amount, Country: country})
	return err
}

// DispenseCount reads the running dispense status: event counter, coins
// remaining to pay, and paid/unpaid totals for the in-flight request.
func (d PayoutDevice) DispenseCount() (value.HopperDispenseStatus, error) {
	status, err := Send[value.HopperDispenseStatus](d.Common, command.RequestHopperDispenseCountCommand{})
	if err != nil {
		return value.HopperDispenseStatus{}, err
	}
	d.dispenseCounter.set(status.EventCounter)
	return status, nil
}

// PayoutStatus reads the aggregate payout float/flag register. Uses
// RegisterCount set at construction to size the expected reply.
func (d PayoutDevice) PayoutStatus() ([]value.HopperFlag, error) {
	return Send[[]value.HopperFlag](d.Common, command.RequestPayoutStatusCommand{RegisterCount: d.RegisterCount})
}

// Balance reads the hopper's recorded coin count.
func (d PayoutDevice) Balance() (uint32, error) {
	return Send[uint32](d.Common, command.RequestHopperBalanceCommand{})
}

// SetBalance overwrites the hopper's recorded coin count, used after a
// manual refill or removal.
func (d PayoutDevice) SetBalance(count uint32) error {
	_, err := Send[struct{}](d.Common, command.ModifyHopperBalanceCommand{Count: count})
	return err
}

// Purge empties the hopper into the cashbox, bypassing the normal
// payout path.
func (d PayoutDevice) Purge() error {
	_, err := Send[struct{}](d.Common, command.PurgeHopperCommand{})
	return err
}

// TryBackgroundPolling starts a goroutine that calls DispenseCount on
// interval and delivers every result on the returned channel, until Stop
// is called. Only one background poll loop may run at a time across d
// and any copy sharing its lease; a second call returns ErrAlreadyLeased.
func (d PayoutDevice) TryBackgroundPolling(interval time.Duration, channelSize int) (<-chan PollResult[value.HopperDispenseStatus], StopFunc, error) {
	if !d.poll.tryAcquire() {
		return nil, nil, ErrAlreadyLeased
	}

	results := make(chan PollResult[value.HopperDispenseStatus], channelSize)
	stop := make(chan struct{})
	var stopOnce sync.Once

	go func() {
		defer close(results)
		for {
			status, err := d.DispenseCount()
			select {
			case results <- PollResult[value.HopperDispenseStatus]{Value: status, Err: err}:
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
			d.poll.release()
		})
	}
	return results, stopFn, nil
}
