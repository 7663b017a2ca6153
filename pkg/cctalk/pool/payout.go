package pool

import (
	"sync"
	"time"

	"github.com/cctalk/cctalk-host/pkg/cctalk/device"
	"github.com/cctalk/cctalk-host/pkg/cctalk/value"
)

// HopperInventoryLevel classifies a hopper's fill level from its level
// sensor readings.
type HopperInventoryLevel int

const (
	// HopperInventoryUnknown means the hopper reports no usable
	// high-level sensor data at all.
	HopperInventoryUnknown HopperInventoryLevel = iota
	HopperInventoryEmpty
	HopperInventoryLow
	HopperInventoryMedium
	HopperInventoryHigh
)

func (l HopperInventoryLevel) String() string {
	switch l {
	case HopperInventoryEmpty:
		return "Empty"
	case HopperInventoryLow:
		return "Low"
	case HopperInventoryMedium:
		return "Medium"
	case HopperInventoryHigh:
		return "High"
	default:
		return "Unknown"
	}
}

// hopperInventoryLevelFromStatus classifies a raw sensor status reading,
// mirroring the wire status's four independent sensor-support/reading
// bits: Unknown if the high-level sensor is neither fitted nor
// triggered, High if the high-level sensor reads above, Medium/Low from
// the low-level sensor when fitted, Empty otherwise.
func hopperInventoryLevelFromStatus(status value.HopperStatus) HopperInventoryLevel {
	if !status.HighLevelSupported && !status.HigherThanHighLevel {
		return HopperInventoryUnknown
	}
	if status.HighLevelSupported && status.HigherThanHighLevel {
		return HopperInventoryHigh
	}
	if status.LowLevelSupported {
		if status.HigherThanLowLevel {
			return HopperInventoryMedium
		}
		return HopperInventoryLow
	}
	return HopperInventoryEmpty
}

// HopperInventory is one hopper's inventory snapshot.
type HopperInventory struct {
	Address byte
	Value   uint32
	Level   HopperInventoryLevel
	Status  value.HopperStatus
}

// HopperPollError reports a failed sensor-status poll for one hopper.
type HopperPollError struct {
	Address byte
	Err     error
}

// PayoutPollResult aggregates one sensor poll cycle across every hopper
// in a PayoutPool.
type PayoutPollResult struct {
	Inventories []HopperInventory
	Errors      []HopperPollError
}

// HopperSelectionStrategy orders which hopper a PayoutPool draws from
// first when planning a dispense.
type HopperSelectionStrategy int

const (
	// HopperSelectionLargestFirst prefers the highest-value hopper first,
	// minimizing the number of coins dispensed. The default.
	HopperSelectionLargestFirst HopperSelectionStrategy = iota
	// HopperSelectionSmallestFirst prefers the lowest-value hopper first.
	HopperSelectionSmallestFirst
	// HopperSelectionBalanceInventory prefers hoppers with the highest
	// inventory; currently sorted identically to LargestFirst pending a
	// planner that consults live sensor levels.
	HopperSelectionBalanceInventory
)

// maxPayoutFailures bounds consecutive dispense-status poll failures
// before a hopper's dispense is abandoned.
const maxPayoutFailures = 5

// PayoutEvent is one notification emitted during PayoutPool.Payout.
type PayoutEvent struct {
	Kind            PayoutEventKind
	Progress        DispenseProgress
	Address         byte
	CoinValue       uint32
	ExhaustedHopper byte
	RemainingValue  uint32
	NewPlan         []PlanStep
	Err             error
}

// PayoutEventKind discriminates the PayoutEvent union.
type PayoutEventKind int

const (
	PayoutEventProgress PayoutEventKind = iota
	PayoutEventHopperEmpty
	PayoutEventPlanRebalanced
	PayoutEventHopperError
	PayoutEventHopperDisabled
	PayoutEventHopperEnabled
)

// PlanStep is one (hopper address, coin count) entry in a payout plan.
type PlanStep struct {
	Address byte
	Count   byte
}

// DispenseProgress tracks one in-flight payout operation.
type DispenseProgress struct {
	Requested      uint32
	Dispensed      uint32
	CoinsDispensed []uint32
	Remaining      uint32
	ActiveHopper   *byte
	EmptyHoppers   []byte
	Done           bool
}

func newDispenseProgress(requested uint32) DispenseProgress {
	return DispenseProgress{Requested: requested, Remaining: requested}
}

func (p *DispenseProgress) coinDispensed(value uint32) {
	p.Dispensed += value
	if p.Dispensed >= p.Requested {
		p.Remaining = 0
	} else {
		p.Remaining = p.Requested - p.Dispensed
	}
	p.CoinsDispensed = append(p.CoinsDispensed, value)
}

// CoinsCount returns the number of coins dispensed so far.
func (p DispenseProgress) CoinsCount() int { return len(p.CoinsDispensed) }

func (p *DispenseProgress) markDone() {
	p.Done = true
	p.ActiveHopper = nil
}

// PayoutPool manages a set of single-denomination hoppers as a unified
// payout unit: a greedy denomination planner in selection-strategy
// order, pool-level (software-only) enable/disable independent of the
// hardware inhibit, and per-payment progress events.
//
// A PayoutPool may be freely copied; every copy shares the disabled-set
// and dispensing lock.
type PayoutPool struct {
	hoppers      []device.PayoutDevice
	hopperValues map[byte]uint32

	disabledHoppers *addressSet
	strategy        HopperSelectionStrategy
	pollingInterval time.Duration

	dispensing *leaseFlag
}

type addressSet struct {
	mu   sync.Mutex
	addr map[byte]struct{}
}

func newAddressSet(initial []byte) *addressSet {
	s := &addressSet{addr: map[byte]struct{}{}}
	for _, a := range initial {
		s.addr[a] = struct{}{}
	}
	return s
}

func (s *addressSet) add(a byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addr[a] = struct{}{}
}

func (s *addressSet) remove(a byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.addr, a)
}

func (s *addressSet) contains(a byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.addr[a]
	return ok
}

func (s *addressSet) snapshot() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, 0, len(s.addr))
	for a := range s.addr {
		out = append(out, a)
	}
	return out
}

// PayoutPoolBuilder constructs a PayoutPool.
type PayoutPoolBuilder struct {
	hoppers         []device.PayoutDevice
	values          []uint32
	strategy        HopperSelectionStrategy
	pollingInterval time.Duration
	disabled        []byte
}

// NewPayoutPoolBuilder returns a builder defaulted to no hoppers,
// largest-first selection, and a 250ms polling interval.
func NewPayoutPoolBuilder() *PayoutPoolBuilder {
	return &PayoutPoolBuilder{
		strategy:        HopperSelectionLargestFirst,
		pollingInterval: 250 * time.Millisecond,
	}
}

// AddHopper adds a hopper and the coin value it dispenses.
func (b *PayoutPoolBuilder) AddHopper(hopper device.PayoutDevice, value uint32) *PayoutPoolBuilder {
	b.hoppers = append(b.hoppers, hopper)
	b.values = append(b.values, value)
	return b
}

func (b *PayoutPoolBuilder) WithSelectionStrategy(s HopperSelectionStrategy) *PayoutPoolBuilder {
	b.strategy = s
	return b
}

func (b *PayoutPoolBuilder) WithPollingInterval(interval time.Duration) *PayoutPoolBuilder {
	b.pollingInterval = interval
	return b
}

// WithDisabledHoppers marks the given addresses as pool-disabled from
// construction.
func (b *PayoutPoolBuilder) WithDisabledHoppers(addresses ...byte) *PayoutPoolBuilder {
	b.disabled = append(b.disabled, addresses...)
	return b
}

// Build constructs the pool. Call Initialize before dispensing.
func (b *PayoutPoolBuilder) Build() *PayoutPool {
	values := make(map[byte]uint32, len(b.hoppers))
	for i, h := range b.hoppers {
		values[h.Device.Address] = b.values[i]
	}
	return &PayoutPool{
		hoppers:         append([]device.PayoutDevice(nil), b.hoppers...),
		hopperValues:    values,
		disabledHoppers: newAddressSet(b.disabled),
		strategy:        b.strategy,
		pollingInterval: b.pollingInterval,
		dispensing:      &leaseFlag{},
	}
}

// BuildAndInitialize builds the pool and calls Initialize on it.
func (b *PayoutPoolBuilder) BuildAndInitialize() (*PayoutPool, error) {
	p := b.Build()
	if err := p.Initialize(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *PayoutPool) HopperCount() int { return len(p.hoppers) }

func (p *PayoutPool) HopperAddresses() []byte {
	out := make([]byte, len(p.hoppers))
	for i, h := range p.hoppers {
		out[i] = h.Device.Address
	}
	return out
}

func (p *PayoutPool) SelectionStrategy() HopperSelectionStrategy { return p.strategy }
func (p *PayoutPool) PollingInterval() time.Duration             { return p.pollingInterval }

func (p *PayoutPool) GetHopperValue(address byte) (uint32, bool) {
	v, ok := p.hopperValues[address]
	return v, ok
}

func (p *PayoutPool) getHopper(address byte) (device.PayoutDevice, error) {
	for _, h := range p.hoppers {
		if h.Device.Address == address {
			return h, nil
		}
	}
	return device.PayoutDevice{}, ErrHopperNotFound(address)
}

// DisableHopper removes a hopper from payout planning without sending
// any hardware commands.
func (p *PayoutPool) DisableHopper(address byte) error {
	if _, err := p.getHopper(address); err != nil {
		return err
	}
	p.disabledHoppers.add(address)
	return nil
}

// EnableHopper re-includes a previously pool-disabled hopper.
func (p *PayoutPool) EnableHopper(address byte) error {
	if _, err := p.getHopper(address); err != nil {
		return err
	}
	p.disabledHoppers.remove(address)
	return nil
}

func (p *PayoutPool) IsHopperDisabled(address byte) bool {
	return p.disabledHoppers.contains(address)
}

func (p *PayoutPool) DisabledHoppers() []byte { return p.disabledHoppers.snapshot() }

// Initialize verifies every hopper is responsive with a simple poll.
// Unresponsive hoppers are left in the pool (a later poll may revive
// them) but Initialize fails outright if none respond.
func (p *PayoutPool) Initialize() error {
	if len(p.hoppers) == 0 {
		return Error{Kind: ErrNoDevices}
	}

	successful := 0
	for _, h := range p.hoppers {
		if err := h.SimplePoll(); err == nil {
			successful++
		}
	}
	if successful == 0 {
		return Error{Kind: ErrAllDevicesFailed}
	}
	return nil
}

// PollInventories reads the level sensors of every hopper in the pool
// once and returns the aggregated inventory snapshot.
func (p *PayoutPool) PollInventories() PayoutPollResult {
	var result PayoutPollResult
	for _, h := range p.hoppers {
		address := h.Device.Address
		status, err := h.HopperStatus()
		if err != nil {
			result.Errors = append(result.Errors, HopperPollError{Address: address, Err: err})
			continue
		}
		result.Inventories = append(result.Inventories, HopperInventory{
			Address: address,
			Value:   p.hopperValues[address],
			Level:   hopperInventoryLevelFromStatus(status),
			Status:  status,
		})
	}
	return result
}

// GetHopperInventory reads the level sensors of a single hopper.
func (p *PayoutPool) GetHopperInventory(address byte) (HopperInventory, error) {
	hopper, err := p.getHopper(address)
	if err != nil {
		return HopperInventory{}, err
	}
	status, err := hopper.HopperStatus()
	if err != nil {
		return HopperInventory{}, Error{Kind: ErrCommandFailed, Address: address, Detail: err.Error()}
	}
	return HopperInventory{
		Address: address,
		Value:   p.hopperValues[address],
		Level:   hopperInventoryLevelFromStatus(status),
		Status:  status,
	}, nil
}

// CanPayout reports whether value could theoretically be dispensed
// exactly by the currently enabled hoppers, assuming unlimited coins in
// each — actual availability still depends on live inventory.
func (p *PayoutPool) CanPayout(value uint32) bool {
	available := p.availableHopperValues(nil)
	_, remainder := generatePayoutPlan(value, available)
	return remainder == 0
}

// EmergencyStop halts any in-progress dispense on every hopper.
func (p *PayoutPool) EmergencyStop() error {
	for _, h := range p.hoppers {
		_, _ = h.EmergencyStop()
	}
	return nil
}

// Payout dispenses value from the pool, returning the final progress.
func (p *PayoutPool) Payout(value uint32) (DispenseProgress, error) {
	return p.PayoutWithEvents(value, nil)
}

// PayoutWithEvents is Payout, additionally delivering PayoutEvents on
// events (if non-nil; sends are non-blocking and dropped if the channel
// is full, matching the Rust pool's try_send semantics).
func (p *PayoutPool) PayoutWithEvents(value uint32, events chan<- PayoutEvent) (DispenseProgress, error) {
	if !p.dispensing.tryAcquire() {
		return DispenseProgress{}, Error{Kind: ErrPayoutInProgress}
	}
	defer p.dispensing.release()

	return p.payoutInner(value, events)
}

func (p *PayoutPool) payoutInner(value uint32, events chan<- PayoutEvent) (DispenseProgress, error) {
	progress := newDispenseProgress(value)
	exhausted := map[byte]struct{}{}

	available := p.availableHopperValues(exhausted)
	plan, _ := generatePayoutPlan(value, available)

	for len(plan) > 0 {
		step := plan[0]
		plan = plan[1:]

		hopper, err := p.getHopper(step.Address)
		if err != nil {
			continue
		}
		coinValue := p.hopperValues[step.Address]
		address := step.Address
		progress.ActiveHopper = &address

		emitPayoutEvent(events, PayoutEvent{Kind: PayoutEventProgress, Progress: progress})

		dispensed := p.dispenseFromHopper(hopper, step.Count, coinValue, &progress, events)

		if dispensed < step.Count {
			progress.EmptyHoppers = append(progress.EmptyHoppers, step.Address)
			exhausted[step.Address] = struct{}{}

			emitPayoutEvent(events, PayoutEvent{
				Kind: PayoutEventHopperEmpty, Address: step.Address, CoinValue: coinValue,
			})

			if progress.Remaining > 0 {
				available = p.availableHopperValues(exhausted)
				if len(available) > 0 {
					newPlan, _ := generatePayoutPlan(progress.Remaining, available)
					emitPayoutEvent(events, PayoutEvent{
						Kind:            PayoutEventPlanRebalanced,
						ExhaustedHopper: step.Address,
						RemainingValue:  progress.Remaining,
						NewPlan:         newPlan,
					})
					plan = newPlan
				}
			}
		}

		emitPayoutEvent(events, PayoutEvent{Kind: PayoutEventProgress, Progress: progress})
	}

	progress.markDone()
	return progress, nil
}

// dispenseFromHopper arms, triggers, and polls one hopper's dispense to
// completion (or maxPayoutFailures consecutive status-poll failures),
// returning the number of coins actually paid.
func (p *PayoutPool) dispenseFromHopper(hopper device.PayoutDevice, count byte, coinValue uint32, progress *DispenseProgress, events chan<- PayoutEvent) byte {
	address := hopper.Device.Address

	if err := hopper.Enable(true); err != nil {
		emitPayoutEvent(events, PayoutEvent{Kind: PayoutEventHopperError, Address: address, Err: err})
		return 0
	}
	if err := hopper.DispenseCoins(count); err != nil {
		emitPayoutEvent(events, PayoutEvent{Kind: PayoutEventHopperError, Address: address, Err: err})
		return 0
	}

	var dispensed, failures byte
	remaining := count

	for remaining > 0 && failures < maxPayoutFailures {
		time.Sleep(p.pollingInterval)

		status, err := hopper.DispenseCount()
		if err != nil {
			failures++
			if failures >= maxPayoutFailures {
				emitPayoutEvent(events, PayoutEvent{Kind: PayoutEventHopperError, Address: address, Err: err})
				_, _ = hopper.EmergencyStop()
			}
			continue
		}

		failures = 0
		newlyPaid := status.Paid - dispensed
		if status.Paid < dispensed {
			newlyPaid = 0
		}
		for i := byte(0); i < newlyPaid; i++ {
			progress.coinDispensed(coinValue)
		}
		dispensed = status.Paid
		remaining = status.CoinsRemaining
	}

	_ = hopper.Enable(false)
	return dispensed
}

func emitPayoutEvent(events chan<- PayoutEvent, ev PayoutEvent) {
	if events == nil {
		return
	}
	select {
	case events <- ev:
	default:
	}
}

// hopperValuePair is one (address, coinValue) entry used while planning,
// before quantities are known.
type hopperValuePair struct {
	address byte
	value   uint32
}

// availableHopperValues returns (address, coinValue) pairs for every
// hopper that is neither pool-disabled nor in extraExclusions, ordered
// by the pool's selection strategy.
func (p *PayoutPool) availableHopperValues(extraExclusions map[byte]struct{}) []hopperValuePair {
	pairs := make([]hopperValuePair, 0, len(p.hoppers))
	for _, h := range p.hoppers {
		address := h.Device.Address
		if p.disabledHoppers.contains(address) {
			continue
		}
		if _, excluded := extraExclusions[address]; excluded {
			continue
		}
		pairs = append(pairs, hopperValuePair{address: address, value: p.hopperValues[address]})
	}

	switch p.strategy {
	case HopperSelectionSmallestFirst:
		sortPairsAscending(pairs)
	default: // LargestFirst, BalanceInventory
		sortPairsDescending(pairs)
	}
	return pairs
}

func sortPairsDescending(pairs []hopperValuePair) {
	for i := 1; i < len(pairs); i++ {
		for j := i; j > 0 && pairs[j].value > pairs[j-1].value; j-- {
			pairs[j], pairs[j-1] = pairs[j-1], pairs[j]
		}
	}
}

func sortPairsAscending(pairs []hopperValuePair) {
	for i := 1; i < len(pairs); i++ {
		for j := i; j > 0 && pairs[j].value < pairs[j-1].value; j-- {
			pairs[j], pairs[j-1] = pairs[j-1], pairs[j]
		}
	}
}

// generatePayoutPlan is the greedy denomination planner: iterate
// available hoppers in the caller-supplied (already strategy-sorted)
// order, dispensing as many coins as fit from each before moving on.
// Returns the plan plus any value that could not be represented exactly.
func generatePayoutPlan(value uint32, available []hopperValuePair) ([]PlanStep, uint32) {
	var plan []PlanStep
	remaining := value

	for _, pair := range available {
		if pair.value == 0 || remaining == 0 {
			continue
		}
		quantity := remaining / pair.value
		if quantity == 0 {
			continue
		}
		if quantity > 255 {
			quantity = 255
		}
		plan = append(plan, PlanStep{Address: pair.address, Count: byte(quantity)})
		remaining -= quantity * pair.value
	}

	return plan, remaining
}
