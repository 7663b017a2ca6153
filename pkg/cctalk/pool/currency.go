package pool

import (
	"fmt"
	"sync"
	"time"

	"github.com/cctalk/cctalk-host/pkg/cctalk/command"
	"github.com/cctalk/cctalk-host/pkg/cctalk/device"
	"github.com/cctalk/cctalk-host/pkg/cctalk/value"
	"golang.org/x/sync/errgroup"
)

const (
	billRouteStack  = command.BillRouteStack
	billRouteReturn = command.BillRouteReturn
)

// BillAcceptPolicy selects how a CurrencyAcceptorPool disposes of a bill
// held in escrow, named distinctly from command.BillRoutingMode (the
// wire-level stack/return code a single bill validator is sent) to avoid
// the two enums colliding on one name.
type BillAcceptPolicy int

const (
	// BillAcceptAutoStack immediately stacks every escrowed bill.
	BillAcceptAutoStack BillAcceptPolicy = iota
	// BillAcceptAutoReturn immediately returns every escrowed bill.
	BillAcceptAutoReturn
	// BillAcceptManual holds bills in escrow as PendingBill entries until
	// RoutePendingBill is called.
	BillAcceptManual
)

// DenominationRange filters accepted coin/bill values to [Min, Max]
// inclusive, in the currency's smallest unit.
type DenominationRange struct {
	Min uint32
	Max uint32
}

// DefaultDenominationRange accepts every denomination.
func DefaultDenominationRange() DenominationRange {
	return DenominationRange{Min: 0, Max: ^uint32(0)}
}

func (r DenominationRange) contains(value uint32) bool {
	return value >= r.Min && value <= r.Max
}

// CurrencyCredit is a confirmed currency credit from a coin or bill
// acceptor.
type CurrencyCredit struct {
	Value    uint32
	Source   DeviceID
	Position byte
}

// PendingBill is a bill held in escrow awaiting a manual routing
// decision; only populated under BillAcceptManual.
type PendingBill struct {
	Value    uint32
	Source   DeviceID
	BillType byte
}

// PoolPollError reports the error from one device's poll within an
// aggregate CurrencyAcceptorPool.Poll call.
type PoolPollError struct {
	Source DeviceID
	Err    error
}

// CurrencyPollResult aggregates one poll cycle across every device in a
// CurrencyAcceptorPool.
type CurrencyPollResult struct {
	Credits       []CurrencyCredit
	PendingBills  []PendingBill
	Errors        []PoolPollError
	TotalReceived uint32
}

func (r *CurrencyPollResult) addCredit(c CurrencyCredit) {
	r.TotalReceived += c.Value
	r.Credits = append(r.Credits, c)
}

// IsEmpty reports whether no credits were received and no bills are
// pending.
func (r CurrencyPollResult) IsEmpty() bool {
	return len(r.Credits) == 0 && len(r.PendingBills) == 0
}

// HasErrors reports whether any device failed to poll this cycle.
func (r CurrencyPollResult) HasErrors() bool { return len(r.Errors) > 0 }

// PaymentResult is the outcome of CurrencyAcceptorPool.AcceptPayment.
type PaymentResult struct {
	TotalReceived uint32
	Credits       []CurrencyCredit
	TargetReached bool
}

type deviceValueMap struct {
	mu     sync.RWMutex
	values map[byte]uint32
}

func newDeviceValueMap() *deviceValueMap { return &deviceValueMap{values: map[byte]uint32{}} }

func (m *deviceValueMap) insert(position byte, value uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[position] = value
}

func (m *deviceValueMap) get(position byte) (uint32, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[position]
	return v, ok
}

// CurrencyAcceptorPool manages a heterogeneous set of coin and bill
// validators as a single payment-acceptance unit: denomination
// filtering, coordinated master-inhibit, event aggregation, and bill
// escrow routing.
//
// A CurrencyAcceptorPool may be freely copied; every copy shares the
// same initialization flag.
type CurrencyAcceptorPool struct {
	coinValidators []device.CoinValidator
	billValidators []device.BillValidator
	coinValues     []*deviceValueMap
	billValues     []*deviceValueMap

	denominationRange DenominationRange
	billPolicy        BillAcceptPolicy
	pollingInterval   time.Duration

	initialized *boolFlag
	polling     *leaseFlag
}

type boolFlag struct {
	mu    sync.Mutex
	value bool
}

func (f *boolFlag) get() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

func (f *boolFlag) set(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.value = v
}

// CurrencyAcceptorPoolBuilder constructs a CurrencyAcceptorPool.
type CurrencyAcceptorPoolBuilder struct {
	coinValidators    []device.CoinValidator
	billValidators    []device.BillValidator
	denominationRange DenominationRange
	billPolicy        BillAcceptPolicy
	pollingInterval   time.Duration
}

// NewCurrencyAcceptorPoolBuilder returns a builder defaulted to no
// devices, every denomination accepted, auto-stacking bills, and a
// 100ms polling interval.
func NewCurrencyAcceptorPoolBuilder() *CurrencyAcceptorPoolBuilder {
	return &CurrencyAcceptorPoolBuilder{
		denominationRange: DefaultDenominationRange(),
		billPolicy:        BillAcceptAutoStack,
		pollingInterval:   100 * time.Millisecond,
	}
}

func (b *CurrencyAcceptorPoolBuilder) AddCoinValidator(v device.CoinValidator) *CurrencyAcceptorPoolBuilder {
	b.coinValidators = append(b.coinValidators, v)
	return b
}

func (b *CurrencyAcceptorPoolBuilder) AddBillValidator(v device.BillValidator) *CurrencyAcceptorPoolBuilder {
	b.billValidators = append(b.billValidators, v)
	return b
}

func (b *CurrencyAcceptorPoolBuilder) WithDenominationRange(min, max uint32) *CurrencyAcceptorPoolBuilder {
	b.denominationRange = DenominationRange{Min: min, Max: max}
	return b
}

func (b *CurrencyAcceptorPoolBuilder) WithBillAcceptPolicy(policy BillAcceptPolicy) *CurrencyAcceptorPoolBuilder {
	b.billPolicy = policy
	return b
}

func (b *CurrencyAcceptorPoolBuilder) WithPollingInterval(interval time.Duration) *CurrencyAcceptorPoolBuilder {
	b.pollingInterval = interval
	return b
}

// Build constructs the pool without initializing it; call Initialize
// before using it for payment acceptance.
func (b *CurrencyAcceptorPoolBuilder) Build() *CurrencyAcceptorPool {
	coinValues := make([]*deviceValueMap, len(b.coinValidators))
	for i := range coinValues {
		coinValues[i] = newDeviceValueMap()
	}
	billValues := make([]*deviceValueMap, len(b.billValidators))
	for i := range billValues {
		billValues[i] = newDeviceValueMap()
	}
	return &CurrencyAcceptorPool{
		coinValidators:    append([]device.CoinValidator(nil), b.coinValidators...),
		billValidators:    append([]device.BillValidator(nil), b.billValidators...),
		coinValues:        coinValues,
		billValues:        billValues,
		denominationRange: b.denominationRange,
		billPolicy:        b.billPolicy,
		pollingInterval:   b.pollingInterval,
		initialized:       &boolFlag{},
		polling:           &leaseFlag{},
	}
}

// BuildAndInitialize builds the pool and calls Initialize on it.
func (b *CurrencyAcceptorPoolBuilder) BuildAndInitialize() (*CurrencyAcceptorPool, error) {
	p := b.Build()
	if err := p.Initialize(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *CurrencyAcceptorPool) CoinValidatorCount() int { return len(p.coinValidators) }
func (p *CurrencyAcceptorPool) BillValidatorCount() int { return len(p.billValidators) }
func (p *CurrencyAcceptorPool) DeviceCount() int {
	return len(p.coinValidators) + len(p.billValidators)
}
func (p *CurrencyAcceptorPool) IsInitialized() bool          { return p.initialized.get() }
func (p *CurrencyAcceptorPool) DenominationRange() DenominationRange {
	return p.denominationRange
}
func (p *CurrencyAcceptorPool) BillAcceptPolicy() BillAcceptPolicy { return p.billPolicy }
func (p *CurrencyAcceptorPool) PollingInterval() time.Duration     { return p.pollingInterval }

func extractValue(token value.CurrencyToken) (uint32, bool) {
	if token.IsToken {
		return 0, false
	}
	return token.Currency.Value, true
}

// Initialize reads every coin/bill position on every device, builds the
// position->value lookup tables, and sets inhibits so that only
// positions within the configured denomination range are enabled. Every
// device starts with its master inhibit engaged; call Enable to start
// accepting.
func (p *CurrencyAcceptorPool) Initialize() error {
	if p.DeviceCount() == 0 {
		return Error{Kind: ErrNoDevices}
	}

	for idx, cv := range p.coinValidators {
		valueMap := p.coinValues[idx]
		var inhibits [16]bool
		for i := range inhibits {
			inhibits[i] = true
		}

		for position := byte(0); position < 16; position++ {
			token, err := cv.CoinID(position)
			if err != nil {
				continue
			}
			if value, ok := extractValue(token); ok {
				valueMap.insert(position, value)
				if p.denominationRange.contains(value) {
					inhibits[position] = false
				}
			}
		}

		_ = cv.SetCoinInhibits(inhibits)
		_ = cv.EnableMasterInhibit()
	}

	for idx, bv := range p.billValidators {
		valueMap := p.billValues[idx]
		var inhibits [16]bool
		for i := range inhibits {
			inhibits[i] = true
		}

		for position := byte(0); position < 16; position++ {
			token, err := bv.BillID(position)
			if err != nil {
				continue
			}
			if value, ok := extractValue(token); ok {
				valueMap.insert(position, value)
				if p.denominationRange.contains(value) {
					inhibits[position] = false
				}
			}
		}

		_ = bv.SetBillInhibits(inhibits)
		useEscrow := p.billPolicy == BillAcceptManual
		_ = bv.SetOperatingMode(true, useEscrow)
		_ = bv.EnableMasterInhibit()
	}

	p.initialized.set(true)
	return nil
}

// Enable disables the master inhibit on every device, allowing them to
// accept currency according to their per-position inhibit settings.
func (p *CurrencyAcceptorPool) Enable() error {
	for _, cv := range p.coinValidators {
		_ = cv.DisableMasterInhibit()
	}
	for _, bv := range p.billValidators {
		_ = bv.DisableMasterInhibit()
	}
	return nil
}

// Disable engages the master inhibit on every device, rejecting all
// currency.
func (p *CurrencyAcceptorPool) Disable() error {
	for _, cv := range p.coinValidators {
		_ = cv.EnableMasterInhibit()
	}
	for _, bv := range p.billValidators {
		_ = bv.EnableMasterInhibit()
	}
	return nil
}

// Reset asks every device in the pool to perform a software reset.
func (p *CurrencyAcceptorPool) Reset() error {
	for _, cv := range p.coinValidators {
		_ = cv.ResetDevice()
	}
	for _, bv := range p.billValidators {
		_ = bv.ResetDevice()
	}
	return nil
}

// Poll polls every device once and returns the aggregated result.
// Coin and bill validators are each polled on their own goroutine
// (bounded by an errgroup) so that devices on independent transports
// don't wait on one another; within each category, devices are polled
// sequentially since they may share a transport.
func (p *CurrencyAcceptorPool) Poll() CurrencyPollResult {
	var result CurrencyPollResult
	var mu sync.Mutex

	var g errgroup.Group
	g.Go(func() error {
		for idx, cv := range p.coinValidators {
			deviceID := DeviceID{Kind: DeviceKindCoinValidator, Index: idx}
			pollResult, err := cv.Poll()
			mu.Lock()
			if err != nil {
				result.Errors = append(result.Errors, PoolPollError{Source: deviceID, Err: err})
				mu.Unlock()
				continue
			}
			for _, event := range pollResult.Events {
				if !event.IsCredit {
					continue
				}
				position := event.Credit.Credit
				if v, ok := p.coinValues[idx].get(position); ok {
					result.addCredit(CurrencyCredit{Value: v, Source: deviceID, Position: position})
				}
			}
			mu.Unlock()
		}
		return nil
	})
	g.Go(func() error {
		for idx, bv := range p.billValidators {
			deviceID := DeviceID{Kind: DeviceKindBillValidator, Index: idx}
			pollResult, err := bv.Poll()
			if err != nil {
				mu.Lock()
				result.Errors = append(result.Errors, PoolPollError{Source: deviceID, Err: err})
				mu.Unlock()
				continue
			}
			for _, event := range pollResult.Events {
				switch event.Kind {
				case value.BillEventCredit:
					if v, ok := p.billValues[idx].get(event.BillType); ok {
						mu.Lock()
						result.addCredit(CurrencyCredit{Value: v, Source: deviceID, Position: event.BillType})
						mu.Unlock()
					}
				case value.BillEventPendingCredit:
					mu.Lock()
					p.handlePendingBill(bv, idx, event.BillType, &result)
					mu.Unlock()
				}
			}
		}
		return nil
	})
	_ = g.Wait()

	return result
}

// handlePendingBill resolves one escrowed bill according to the pool's
// configured BillAcceptPolicy. Caller holds the result lock.
func (p *CurrencyAcceptorPool) handlePendingBill(bv device.BillValidator, deviceIdx int, billType byte, result *CurrencyPollResult) {
	deviceID := DeviceID{Kind: DeviceKindBillValidator, Index: deviceIdx}
	v, _ := p.billValues[deviceIdx].get(billType)

	switch p.billPolicy {
	case BillAcceptAutoStack:
		_ = bv.RouteBill(billRouteStack)
	case BillAcceptAutoReturn:
		_ = bv.RouteBill(billRouteReturn)
	case BillAcceptManual:
		result.PendingBills = append(result.PendingBills, PendingBill{Value: v, Source: deviceID, BillType: billType})
	}
}

// RoutePendingBill accepts (stacks) or rejects (returns) a bill
// previously reported as pending; only meaningful under BillAcceptManual.
func (p *CurrencyAcceptorPool) RoutePendingBill(pending PendingBill, accept bool) error {
	if pending.Source.Kind != DeviceKindBillValidator {
		return Error{Kind: ErrBillRoutingFailed, Detail: "source is not a bill validator"}
	}
	if pending.Source.Index < 0 || pending.Source.Index >= len(p.billValidators) {
		return Error{Kind: ErrBillRoutingFailed, Detail: "bill validator not found"}
	}

	bv := p.billValidators[pending.Source.Index]
	route := billRouteReturn
	if accept {
		route = billRouteStack
	}
	if err := bv.RouteBill(route); err != nil {
		return Error{Kind: ErrBillRoutingFailed, Detail: err.Error()}
	}
	return nil
}

// AcceptPayment enables the pool, polls until targetValue is received or
// timeout elapses, and always disables the pool before returning.
func (p *CurrencyAcceptorPool) AcceptPayment(targetValue uint32, timeout time.Duration) (PaymentResult, error) {
	return p.AcceptPaymentWithCancel(targetValue, timeout, nil)
}

// AcceptPaymentWithCancel is AcceptPayment with an optional cancel
// channel; closing or sending on cancel aborts the wait early.
func (p *CurrencyAcceptorPool) AcceptPaymentWithCancel(targetValue uint32, timeout time.Duration, cancel <-chan struct{}) (PaymentResult, error) {
	if err := p.Enable(); err != nil {
		return PaymentResult{}, err
	}
	result, err := p.acceptPaymentInner(targetValue, timeout, cancel)
	_ = p.Disable()
	return result, err
}

func (p *CurrencyAcceptorPool) acceptPaymentInner(targetValue uint32, timeout time.Duration, cancel <-chan struct{}) (PaymentResult, error) {
	deadline := time.Now().Add(timeout)
	var totalReceived uint32
	var credits []CurrencyCredit

	for {
		if cancel != nil {
			select {
			case <-cancel:
				return PaymentResult{TotalReceived: totalReceived, Credits: credits}, Error{
					Kind:   ErrPaymentCancelled,
					Detail: paymentDetail(targetValue, totalReceived),
				}
			default:
			}
		}

		if time.Now().After(deadline) {
			if totalReceived >= targetValue {
				return PaymentResult{TotalReceived: totalReceived, Credits: credits, TargetReached: true}, nil
			}
			return PaymentResult{TotalReceived: totalReceived, Credits: credits}, Error{
				Kind:   ErrPaymentTimeout,
				Detail: paymentDetail(targetValue, totalReceived),
			}
		}

		pollResult := p.Poll()
		for _, credit := range pollResult.Credits {
			totalReceived += credit.Value
			credits = append(credits, credit)
		}

		if totalReceived >= targetValue {
			return PaymentResult{TotalReceived: totalReceived, Credits: credits, TargetReached: true}, nil
		}

		time.Sleep(p.pollingInterval)
	}
}

func paymentDetail(target, received uint32) string {
	return fmt.Sprintf("target=%d received=%d", target, received)
}

// TryBackgroundPolling starts a goroutine that calls Poll on interval
// and delivers every result on the returned channel until Stop is
// called. Only one background poll loop may run at a time across p and
// any copy sharing its lease; a second call returns device.ErrAlreadyLeased.
func (p *CurrencyAcceptorPool) TryBackgroundPolling(channelSize int) (<-chan CurrencyPollResult, device.StopFunc, error) {
	if !p.polling.tryAcquire() {
		return nil, nil, device.ErrAlreadyLeased
	}

	results := make(chan CurrencyPollResult, channelSize)
	stop := make(chan struct{})
	var stopOnce sync.Once

	go func() {
		defer close(results)
		for {
			result := p.Poll()
			select {
			case results <- result:
			case <-stop:
				return
			}
			select {
			case <-stop:
				return
			case <-time.After(p.pollingInterval):
			}
		}
	}()

	stopFn := func() {
		stopOnce.Do(func() {
			close(stop)
			p.polling.release()
		})
	}
	return results, stopFn, nil
}
