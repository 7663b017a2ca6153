package device

import (
	"sync"
	"time"

	"github.com/cctalk/cctalk-host/pkg/cctalk/command"
	"github.com/cctalk/cctalk-host/pkg/cctalk/packet"
	"github.com/cctalk/cctalk-host/pkg/cctalk/transport"
	"github.com/cctalk/cctalk-host/pkg/cctalk/value"
)

// CoinValidator drives a ccTalk coin acceptor: inhibit control, sorter
// path configuration, per-coin identity, and buffered credit/error event
// polling.
//
// A CoinValidator may be freely copied; every copy shares the same
// event counter and polling lease, since both are held behind pointers
// (the Go analogue of the Rust driver's Arc<Mutex<_>> shared state).
type CoinValidator struct {
	Common

	counter *uint32Holder
	poll    polling
}

type uint32Holder struct {
	mu    sync.Mutex
	value byte
}

func (h *uint32Holder) get() byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.value
}

func (h *uint32Holder) set(v byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.value = v
}

// NewCoinValidator wraps a transport-reachable device as a coin
// validator.
func NewCoinValidator(dev packet.Device, t *transport.Transport) CoinValidator {
	return CoinValidator{
		Common:  Common{Device: dev, Transport: t},
		counter: &uint32Holder{},
		poll:    newPolling(),
	}
}

// EventCounter returns the event counter observed by the most recent Poll.
func (v CoinValidator) EventCounter() byte { return v.counter.get() }

// SetMasterInhibit enables (true, reject all coins) or disables (false)
// the validator's master inhibit.
func (v CoinValidator) SetMasterInhibit(inhibit bool) error {
	_, err := Send[struct{}](v.Common, command.ModifyMasterInhibitStatusCommand{Enabled: !inhibit})
	return err
}

func (v CoinValidator) EnableMasterInhibit() error  { return v.SetMasterInhibit(true) }
func (v CoinValidator) DisableMasterInhibit() error { return v.SetMasterInhibit(false) }

// MasterInhibitEnabled reports whether the validator is currently
// rejecting all coins.
func (v CoinValidator) MasterInhibitEnabled() (bool, error) {
	enabled, err := Send[bool](v.Common, command.RequestMasterInhibitStatusCommand{})
	if err != nil {
		return false, err
	}
	return !enabled, nil
}

// SetDefaultSorterPath sets the sorter path accepted coins without a
// per-coin override are routed to.
func (v CoinValidator) SetDefaultSorterPath(path byte) error {
	_, err := Send[struct{}](v.Common, command.ModifyDefaultSorterPathCommand{Path: path})
	return err
}

// DefaultSorterPath returns the current default sorter path.
func (v CoinValidator) DefaultSorterPath() (value.SorterPath, error) {
	return Send[value.SorterPath](v.Common, command.RequestDefaultSorterPathCommand{})
}

// SetSorterOverrides sets, for each of the 8 sorter paths, whether the
// validator should defer routing to the host (true) rather than its own
// default (false).
func (v CoinValidator) SetSorterOverrides(overrides [8]bool) error {
	mask := value.NewBitMask(8)
	for i, override := range overrides {
		// Wire sense is inverted: 0 means override, 1 means no override.
		if err := mask.Set(i, !override); err != nil {
			return err
		}
	}
	_, err := Send[struct{}](v.Common, command.ModifySorterOverrideStatusCommand{Mask: mask})
	return err
}

// SorterOverrides returns, for each of the 8 sorter paths, whether the
// validator currently defers routing to the host.
func (v CoinValidator) SorterOverrides() ([8]bool, error) {
	var out [8]bool
	mask, err := Send[*value.BitMask](v.Common, command.RequestSorterOverrideStatusCommand{})
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

// SetCoinSorterPath assigns a sorter path override to one coin position.
func (v CoinValidator) SetCoinSorterPath(coinPosition, path byte) error {
	_, err := Send[struct{}](v.Common, command.ModifySorterPathCommand{CoinPosition: coinPosition, Path: path})
	return err
}

// CoinSorterPath returns the sorter path override for one coin position.
func (v CoinValidator) CoinSorterPath(coinPosition byte) (value.SorterPath, error) {
	return Send[value.SorterPath](v.Common, command.RequestSorterPathCommand{CoinPosition: coinPosition})
}

// Poll reads the validator's buffered credit/error event queue and
// advances the internal event counter.
func (v CoinValidator) Poll() (value.CoinPollResult, error) {
	result, err := Send[value.CoinPollResult](v.Common, command.ReadBufferedCreditOrErrorCodesCommand{})
	if err != nil {
		return value.CoinPollResult{}, err
	}
	v.counter.set(result.EventCounter)
	if len(result.Events) > 0 {
		v.logEntry().WithFields(map[string]any{
			"address":       v.Device.Address,
			"event_counter": result.EventCounter,
			"events":        len(result.Events),
		}).Debug("coin validator poll returned events")
	}
	return result, nil
}

// CoinID returns the currency token configured at one coin position.
func (v CoinValidator) CoinID(coinPosition byte) (value.CurrencyToken, error) {
	return Send[value.CurrencyToken](v.Common, command.RequestCoinIdCommand{CoinPosition: coinPosition})
}

// CoinIDRange returns the currency token for each of the first
// numberOfCoins positions (0-indexed); a position whose request fails
// yields a nil token pointer rather than aborting the scan, since an
// unpopulated position NAKing is expected, not exceptional.
func (v CoinValidator) CoinIDRange(numberOfCoins byte) []*value.CurrencyToken {
	out := make([]*value.CurrencyToken, numberOfCoins)
	for i := byte(0); i < numberOfCoins; i++ {
		if token, err := v.CoinID(i); err == nil {
			t := token
			out[i] = &t
		}
	}
	return out
}

// AllCoinIDs is CoinIDRange(16), the full coin position table.
func (v CoinValidator) AllCoinIDs() []*value.CurrencyToken { return v.CoinIDRange(16) }

// SetCoinInhibits sets the inhibit status for each of the 16 coin
// positions; inhibits[i] true disables that position.
func (v CoinValidator) SetCoinInhibits(inhibits [16]bool) error {
	mask := value.NewBitMask(16)
	for i, disable := range inhibits {
		// Wire sense is inverted: 0 means disabled, 1 means enabled.
		if err := mask.Set(i, !disable); err != nil {
			return err
		}
	}
	_, err := Send[struct{}](v.Common, command.ModifyInhibitStatusCommand{Mask: mask})
	return err
}

// SetAllCoinInhibits sets the same inhibit state on all 16 coin positions.
func (v CoinValidator) SetAllCoinInhibits(inhibit bool) error {
	var inhibits [16]bool
	for i := range inhibits {
		inhibits[i] = inhibit
	}
	return v.SetCoinInhibits(inhibits)
}

// CoinInhibits returns, for each of the 16 coin positions, whether it is
// currently disabled.
func (v CoinValidator) CoinInhibits() ([16]bool, error) {
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

// PollingPriority returns the device-recommended polling interval.
func (v CoinValidator) PollingPriority() (command.PollingPriority, error) {
	return Send[command.PollingPriority](v.Common, command.RequestPollingPriorityCommand{})
}

// TryBackgroundPolling starts a goroutine that calls Poll on interval
// and delivers every result on the returned channel, until Stop is
// called. Only one
// background poll loop may run at a time across v and any copy sharing
// its lease; a second call returns ErrAlreadyLeased.
func (v CoinValidator) TryBackgroundPolling(interval time.Duration, channelSize int) (<-chan PollResult[value.CoinPollResult], StopFunc, error) {
	if !v.poll.tryAcquire() {
		return nil, nil, ErrAlreadyLeased
	}

	results := make(chan PollResult[value.CoinPollResult], channelSize)
	stop := make(chan struct{})
	var stopOnce sync.Once

	go func() {
		defer close(results)
		for {
			result, err := v.Poll()
			select {
			case results <- PollResult[value.CoinPollResult]{Value: result, Err: err}:
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
