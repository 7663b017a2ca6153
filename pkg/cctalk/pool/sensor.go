package pool

import (
	"sync"
	"time"

	"github.com/cctalk/cctalk-host/pkg/cctalk/device"
)

// sensorRecoveryThreshold is the inventory level at or above which a
// hopper marked empty is automatically un-marked.
const sensorRecoveryThreshold = HopperInventoryMedium

// SensorEventKind discriminates the SensorEvent union.
type SensorEventKind int

const (
	SensorEventLevelChanged SensorEventKind = iota
	SensorEventMarkedNonEmpty
	SensorEventInventoryUpdate
)

// RecoveryReason explains why MarkedNonEmpty fired.
type RecoveryReason struct {
	SensorRecovery bool
	Level          HopperInventoryLevel
}

// SensorEvent is one notification emitted by PayoutSensorPool's
// background poll loop.
type SensorEvent struct {
	Kind        SensorEventKind
	Address     byte
	Previous    HopperInventoryLevel
	Current     HopperInventoryLevel
	Reason      RecoveryReason
	Inventories []HopperSensorReading
	Errors      []HopperSensorError
}

// HopperSensorReading is one hopper's decoded sensor status, reported
// alongside an InventoryUpdate event.
type HopperSensorReading struct {
	Address byte
	Level   HopperInventoryLevel
}

// HopperSensorError reports a failed sensor-status poll for one hopper,
// reported alongside an InventoryUpdate event.
type HopperSensorError struct {
	Address byte
	Err     error
}

// PayoutSensorPool provides standalone inventory monitoring for a set
// of hoppers, independent of any PayoutPool: it polls each hopper's
// level sensors directly and tracks a per-hopper empty flag with
// automatic recovery once the sensor reports sensorRecoveryThreshold or
// above.
//
// A PayoutSensorPool may be freely copied; every copy shares the same
// empty-set, last-levels map, and polling lease.
type PayoutSensorPool struct {
	hoppers []device.PayoutDevice

	emptyHoppers *addressSet
	lastLevels   *levelMap

	polling         *leaseFlag
	pollingInterval time.Duration
	channelSize     int
}

type levelMap struct {
	mu     sync.Mutex
	levels map[byte]HopperInventoryLevel
}

func newLevelMap() *levelMap { return &levelMap{levels: map[byte]HopperInventoryLevel{}} }

func (m *levelMap) set(address byte, level HopperInventoryLevel) (HopperInventoryLevel, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	previous, had := m.levels[address]
	m.levels[address] = level
	return previous, had
}

func (m *levelMap) get(address byte) (HopperInventoryLevel, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	level, ok := m.levels[address]
	return level, ok
}

func (m *levelMap) snapshot() map[byte]HopperInventoryLevel {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[byte]HopperInventoryLevel, len(m.levels))
	for k, v := range m.levels {
		out[k] = v
	}
	return out
}

// PayoutSensorPoolBuilder constructs a PayoutSensorPool.
type PayoutSensorPoolBuilder struct {
	hoppers         []device.PayoutDevice
	pollingInterval time.Duration
	channelSize     int
}

// NewPayoutSensorPoolBuilder returns a builder defaulted to no hoppers,
// a 1s polling interval, and a channel size of 16.
func NewPayoutSensorPoolBuilder() *PayoutSensorPoolBuilder {
	return &PayoutSensorPoolBuilder{
		pollingInterval: time.Second,
		channelSize:     16,
	}
}

func (b *PayoutSensorPoolBuilder) AddHopper(hopper device.PayoutDevice) *PayoutSensorPoolBuilder {
	b.hoppers = append(b.hoppers, hopper)
	return b
}

func (b *PayoutSensorPoolBuilder) WithPollingInterval(interval time.Duration) *PayoutSensorPoolBuilder {
	b.pollingInterval = interval
	return b
}

func (b *PayoutSensorPoolBuilder) WithChannelSize(size int) *PayoutSensorPoolBuilder {
	b.channelSize = size
	return b
}

// Build constructs the pool.
func (b *PayoutSensorPoolBuilder) Build() *PayoutSensorPool {
	return &PayoutSensorPool{
		hoppers:         append([]device.PayoutDevice(nil), b.hoppers...),
		emptyHoppers:    newAddressSet(nil),
		lastLevels:      newLevelMap(),
		polling:         &leaseFlag{},
		pollingInterval: b.pollingInterval,
		channelSize:     b.channelSize,
	}
}

func (p *PayoutSensorPool) HopperCount() int { return len(p.hoppers) }

func (p *PayoutSensorPool) HopperAddresses() []byte {
	out := make([]byte, len(p.hoppers))
	for i, h := range p.hoppers {
		out[i] = h.Device.Address
	}
	return out
}

func (p *PayoutSensorPool) hasHopper(address byte) bool {
	for _, h := range p.hoppers {
		if h.Device.Address == address {
			return true
		}
	}
	return false
}

// MarkEmpty marks a hopper as empty.
func (p *PayoutSensorPool) MarkEmpty(address byte) error {
	if !p.hasHopper(address) {
		return ErrHopperNotFound(address)
	}
	p.emptyHoppers.add(address)
	return nil
}

// MarkNonEmpty marks a hopper as non-empty.
func (p *PayoutSensorPool) MarkNonEmpty(address byte) error {
	if !p.hasHopper(address) {
		return ErrHopperNotFound(address)
	}
	p.emptyHoppers.remove(address)
	return nil
}

// IsEmpty reports whether a hopper is currently marked empty.
func (p *PayoutSensorPool) IsEmpty(address byte) bool {
	return p.emptyHoppers.contains(address)
}

// EmptyHoppers returns the addresses of every hopper currently marked
// empty.
func (p *PayoutSensorPool) EmptyHoppers() []byte {
	return p.emptyHoppers.snapshot()
}

// LastInventory returns the most recently polled inventory level for a
// hopper, if any poll has completed yet.
func (p *PayoutSensorPool) LastInventory(address byte) (HopperInventoryLevel, bool) {
	return p.lastLevels.get(address)
}

// LastInventories returns the most recently polled inventory level for
// every hopper that has been polled at least once.
func (p *PayoutSensorPool) LastInventories() map[byte]HopperInventoryLevel {
	return p.lastLevels.snapshot()
}

// TryStartPolling starts a goroutine that continuously polls every
// hopper's level sensors, tracks level changes and empty-state
// auto-recovery, and delivers SensorEvents on the returned channel
// until Stop is called. Only one background poll loop may run at a
// time across p and any copy sharing its lease; a second call returns
// device.ErrAlreadyLeased.
func (p *PayoutSensorPool) TryStartPolling() (<-chan SensorEvent, device.StopFunc, error) {
	if !p.polling.tryAcquire() {
		return nil, nil, device.ErrAlreadyLeased
	}

	events := make(chan SensorEvent, p.channelSize)
	stop := make(chan struct{})
	var stopOnce sync.Once

	go func() {
		defer close(events)
		for {
			p.pollOnce(events)

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
	return events, stopFn, nil
}

func (p *PayoutSensorPool) pollOnce(events chan<- SensorEvent) {
	var readings []HopperSensorReading
	var errs []HopperSensorError

	for _, h := range p.hoppers {
		address := h.Device.Address

		status, err := h.HopperStatus()
		if err != nil {
			errs = append(errs, HopperSensorError{Address: address, Err: err})
			continue
		}

		level := hopperInventoryLevelFromStatus(status)
		previous, had := p.lastLevels.set(address, level)
		if had && previous != level {
			emitSensorEvent(events, SensorEvent{
				Kind: SensorEventLevelChanged, Address: address, Previous: previous, Current: level,
			})
		}

		if p.emptyHoppers.contains(address) && level >= sensorRecoveryThreshold {
			p.emptyHoppers.remove(address)
			emitSensorEvent(events, SensorEvent{
				Kind:    SensorEventMarkedNonEmpty,
				Address: address,
				Reason:  RecoveryReason{SensorRecovery: true, Level: level},
			})
		}

		readings = append(readings, HopperSensorReading{Address: address, Level: level})
	}

	emitSensorEvent(events, SensorEvent{Kind: SensorEventInventoryUpdate, Inventories: readings, Errors: errs})
}

func emitSensorEvent(events chan<- SensorEvent, ev SensorEvent) {
	if events == nil {
		return
	}
	select {
	case events <- ev:
	default:
	}
}
