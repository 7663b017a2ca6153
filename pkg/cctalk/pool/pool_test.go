package pool

import (
	"bytes"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/cctalk/cctalk-host/pkg/cctalk/device"
	"github.com/cctalk/cctalk-host/pkg/cctalk/packet"
	"github.com/cctalk/cctalk-host/pkg/cctalk/transport"
	"github.com/stretchr/testify/require"
)

// fakeLink is an in-memory transport.Link that never replies, sufficient
// for pool tests that only exercise construction/bookkeeping and never
// wait on an actual device response.
type fakeLink struct {
	mu      sync.Mutex
	pending bytes.Buffer
}

func (f *fakeLink) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(p), nil
}

func (f *fakeLink) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending.Len() == 0 {
		return 0, io.EOF
	}
	return f.pending.Read(p)
}

func (f *fakeLink) Close() error                    { return nil }
func (f *fakeLink) SetReadDeadline(time.Time) error { return nil }

func newTestTransport(t *testing.T) *transport.Transport {
	t.Helper()
	tr := transport.New(&fakeLink{}, 50*time.Millisecond, 0, transport.DefaultRetryConfig())
	t.Cleanup(func() { tr.Close() })
	return tr
}

func newTestCurrencyPool(t *testing.T) *CurrencyAcceptorPool {
	t.Helper()
	tr := newTestTransport(t)
	cv := device.NewCoinValidator(packet.NewDevice(2, packet.CategoryCoinAcceptor, packet.ChecksumSimple), tr)
	bv := device.NewBillValidator(packet.NewDevice(40, packet.CategoryBillValidator, packet.ChecksumSimple), tr)

	return NewCurrencyAcceptorPoolBuilder().
		AddCoinValidator(cv).
		AddBillValidator(bv).
		WithDenominationRange(50, 10000).
		WithBillAcceptPolicy(BillAcceptAutoStack).
		WithPollingInterval(100 * time.Millisecond).
		Build()
}

func TestCurrencyAcceptorPoolDeviceCounts(t *testing.T) {
	p := newTestCurrencyPool(t)
	require.Equal(t, 1, p.CoinValidatorCount())
	require.Equal(t, 1, p.BillValidatorCount())
	require.Equal(t, 2, p.DeviceCount())
}

func TestCurrencyAcceptorPoolConfiguration(t *testing.T) {
	p := newTestCurrencyPool(t)
	require.Equal(t, DenominationRange{Min: 50, Max: 10000}, p.DenominationRange())
	require.Equal(t, BillAcceptAutoStack, p.BillAcceptPolicy())
	require.Equal(t, 100*time.Millisecond, p.PollingInterval())
}

func TestCurrencyAcceptorPoolNotInitializedByDefault(t *testing.T) {
	p := newTestCurrencyPool(t)
	require.False(t, p.IsInitialized())
}

func TestCurrencyAcceptorPoolTryBackgroundPollingAlreadyLeased(t *testing.T) {
	p := newTestCurrencyPool(t)

	_, stop, err := p.TryBackgroundPolling(1)
	require.NoError(t, err)

	_, _, err = p.TryBackgroundPolling(1)
	require.ErrorIs(t, err, device.ErrAlreadyLeased)

	stop()
}

func TestCurrencyAcceptorPoolTryBackgroundPollingRestartAfterStop(t *testing.T) {
	p := newTestCurrencyPool(t)

	_, stop, err := p.TryBackgroundPolling(1)
	require.NoError(t, err)
	stop()

	_, stop2, err := p.TryBackgroundPolling(1)
	require.NoError(t, err, "should be able to start polling again")
	stop2()
}

func newTestPayoutPool(t *testing.T, strategy HopperSelectionStrategy) *PayoutPool {
	t.Helper()
	tr := newTestTransport(t)
	h1 := device.NewPayoutDevice(packet.NewDevice(3, packet.CategoryPayout, packet.ChecksumSimple), tr, 2)
	h2 := device.NewPayoutDevice(packet.NewDevice(4, packet.CategoryPayout, packet.ChecksumSimple), tr, 2)
	h3 := device.NewPayoutDevice(packet.NewDevice(5, packet.CategoryPayout, packet.ChecksumSimple), tr, 2)

	return NewPayoutPoolBuilder().
		AddHopper(h1, 100).
		AddHopper(h2, 50).
		AddHopper(h3, 20).
		WithSelectionStrategy(strategy).
		WithPollingInterval(250 * time.Millisecond).
		Build()
}

func TestPayoutPoolHopperCount(t *testing.T) {
	p := newTestPayoutPool(t, HopperSelectionLargestFirst)
	require.Equal(t, 3, p.HopperCount())
}

func TestPayoutPoolHopperAddresses(t *testing.T) {
	p := newTestPayoutPool(t, HopperSelectionLargestFirst)
	require.ElementsMatch(t, []byte{3, 4, 5}, p.HopperAddresses())
}

func TestPayoutPoolHopperValues(t *testing.T) {
	p := newTestPayoutPool(t, HopperSelectionLargestFirst)

	v, ok := p.GetHopperValue(3)
	require.True(t, ok)
	require.Equal(t, uint32(100), v)

	v, ok = p.GetHopperValue(4)
	require.True(t, ok)
	require.Equal(t, uint32(50), v)

	v, ok = p.GetHopperValue(5)
	require.True(t, ok)
	require.Equal(t, uint32(20), v)

	_, ok = p.GetHopperValue(99)
	require.False(t, ok)
}

func planContains(plan []PlanStep, address byte, count byte) bool {
	for _, step := range plan {
		if step.Address == address && step.Count == count {
			return true
		}
	}
	return false
}

func TestGeneratePayoutPlanLargestFirst(t *testing.T) {
	p := newTestPayoutPool(t, HopperSelectionLargestFirst)
	available := p.availableHopperValues(nil)

	plan, remainder := generatePayoutPlan(170, available)
	require.Equal(t, uint32(0), remainder)
	require.True(t, planContains(plan, 3, 1))
	require.True(t, planContains(plan, 4, 1))
	require.True(t, planContains(plan, 5, 1))

	plan, remainder = generatePayoutPlan(250, available)
	require.Equal(t, uint32(0), remainder)
	require.True(t, planContains(plan, 3, 2))
	require.True(t, planContains(plan, 4, 1))

	plan, remainder = generatePayoutPlan(175, available)
	require.Equal(t, uint32(5), remainder)
	require.True(t, planContains(plan, 3, 1))
	require.True(t, planContains(plan, 4, 1))
	require.True(t, planContains(plan, 5, 1))
}

func TestGeneratePayoutPlanPreservesStrategyOrder(t *testing.T) {
	p := newTestPayoutPool(t, HopperSelectionLargestFirst)
	available := p.availableHopperValues(nil)

	plan, _ := generatePayoutPlan(170, available)
	require.Len(t, plan, 3)
	require.Equal(t, byte(3), plan[0].Address)
	require.Equal(t, byte(4), plan[1].Address)
	require.Equal(t, byte(5), plan[2].Address)
}

func TestGeneratePayoutPlanSmallestFirst(t *testing.T) {
	p := newTestPayoutPool(t, HopperSelectionSmallestFirst)
	available := p.availableHopperValues(nil)

	plan, remainder := generatePayoutPlan(100, available)
	require.Equal(t, uint32(0), remainder)
	require.True(t, planContains(plan, 5, 5))
}

func TestCanPayoutExactAmount(t *testing.T) {
	p := newTestPayoutPool(t, HopperSelectionLargestFirst)

	require.True(t, p.CanPayout(170))
	require.True(t, p.CanPayout(100))
	require.True(t, p.CanPayout(20))
	require.False(t, p.CanPayout(5))
	require.False(t, p.CanPayout(15))
}

func TestDisableAndEnableHopper(t *testing.T) {
	p := newTestPayoutPool(t, HopperSelectionLargestFirst)

	require.False(t, p.IsHopperDisabled(3))
	require.Empty(t, p.DisabledHoppers())

	require.NoError(t, p.DisableHopper(3))
	require.True(t, p.IsHopperDisabled(3))
	require.False(t, p.IsHopperDisabled(4))
	require.Len(t, p.DisabledHoppers(), 1)

	require.NoError(t, p.EnableHopper(3))
	require.False(t, p.IsHopperDisabled(3))
	require.Empty(t, p.DisabledHoppers())
}

func TestDisableHopperNotFound(t *testing.T) {
	p := newTestPayoutPool(t, HopperSelectionLargestFirst)
	err := p.DisableHopper(99)
	require.Error(t, err)
	require.Equal(t, byte(99), err.(Error).Address)
}

func TestEnableHopperNotFound(t *testing.T) {
	p := newTestPayoutPool(t, HopperSelectionLargestFirst)
	err := p.EnableHopper(99)
	require.Error(t, err)
}

func TestCanPayoutRespectsDisabledHoppers(t *testing.T) {
	p := newTestPayoutPool(t, HopperSelectionLargestFirst)

	require.True(t, p.CanPayout(170))

	require.NoError(t, p.DisableHopper(3))
	require.True(t, p.CanPayout(170)) // 3x50 + 1x20

	require.NoError(t, p.DisableHopper(4))
	require.False(t, p.CanPayout(170)) // only 20-cent hopper left, not divisible
	require.True(t, p.CanPayout(100))  // 5x20
}

func TestAvailableHopperValuesExcludesDisabled(t *testing.T) {
	p := newTestPayoutPool(t, HopperSelectionLargestFirst)

	require.Len(t, p.availableHopperValues(nil), 3)

	require.NoError(t, p.DisableHopper(4))
	available := p.availableHopperValues(nil)
	require.Len(t, available, 2)
	for _, pair := range available {
		require.NotEqual(t, byte(4), pair.address)
	}
}

func TestAvailableHopperValuesExcludesExtra(t *testing.T) {
	p := newTestPayoutPool(t, HopperSelectionLargestFirst)

	extra := map[byte]struct{}{3: {}, 5: {}}
	available := p.availableHopperValues(extra)
	require.Len(t, available, 1)
	require.Equal(t, byte(4), available[0].address)
}

func TestInitiallyDisabledHoppers(t *testing.T) {
	tr := newTestTransport(t)
	h1 := device.NewPayoutDevice(packet.NewDevice(3, packet.CategoryPayout, packet.ChecksumSimple), tr, 2)
	h2 := device.NewPayoutDevice(packet.NewDevice(4, packet.CategoryPayout, packet.ChecksumSimple), tr, 2)

	p := NewPayoutPoolBuilder().
		AddHopper(h1, 100).
		AddHopper(h2, 50).
		WithDisabledHoppers(3).
		Build()

	require.True(t, p.IsHopperDisabled(3))
	require.False(t, p.IsHopperDisabled(4))
	require.Len(t, p.DisabledHoppers(), 1)
}

func TestPayoutPoolSharesStateAcrossCopies(t *testing.T) {
	p := newTestPayoutPool(t, HopperSelectionLargestFirst)
	p2 := *p

	require.NoError(t, p.DisableHopper(3))
	require.True(t, p2.IsHopperDisabled(3))
}

func newTestSensorPool(t *testing.T) *PayoutSensorPool {
	t.Helper()
	tr := newTestTransport(t)
	h1 := device.NewPayoutDevice(packet.NewDevice(3, packet.CategoryPayout, packet.ChecksumSimple), tr, 2)
	h2 := device.NewPayoutDevice(packet.NewDevice(4, packet.CategoryPayout, packet.ChecksumSimple), tr, 2)
	h3 := device.NewPayoutDevice(packet.NewDevice(5, packet.CategoryPayout, packet.ChecksumSimple), tr, 2)

	return NewPayoutSensorPoolBuilder().
		AddHopper(h1).
		AddHopper(h2).
		AddHopper(h3).
		Build()
}

func TestSensorPoolMarkEmptyAndNonEmpty(t *testing.T) {
	p := newTestSensorPool(t)

	require.False(t, p.IsEmpty(3))
	require.NoError(t, p.MarkEmpty(3))
	require.True(t, p.IsEmpty(3))

	require.NoError(t, p.MarkNonEmpty(3))
	require.False(t, p.IsEmpty(3))
}

func TestSensorPoolMarkEmptyReturnsErrorForUnknownHopper(t *testing.T) {
	p := newTestSensorPool(t)
	err := p.MarkEmpty(99)
	require.Error(t, err)
}

func TestSensorPoolMarkNonEmptyReturnsErrorForUnknownHopper(t *testing.T) {
	p := newTestSensorPool(t)
	err := p.MarkNonEmpty(99)
	require.Error(t, err)
}

func TestSensorPoolIsEmptyFalseByDefault(t *testing.T) {
	p := newTestSensorPool(t)
	require.False(t, p.IsEmpty(3))
	require.False(t, p.IsEmpty(4))
	require.False(t, p.IsEmpty(5))
}

func TestSensorPoolEmptyHoppersReturnsCorrectSet(t *testing.T) {
	p := newTestSensorPool(t)
	require.Empty(t, p.EmptyHoppers())

	require.NoError(t, p.MarkEmpty(3))
	require.NoError(t, p.MarkEmpty(5))

	empty := p.EmptyHoppers()
	require.Len(t, empty, 2)
	require.ElementsMatch(t, []byte{3, 5}, empty)
}

func TestSensorPoolHopperCountAndAddresses(t *testing.T) {
	p := newTestSensorPool(t)
	require.Equal(t, 3, p.HopperCount())
	require.ElementsMatch(t, []byte{3, 4, 5}, p.HopperAddresses())
}

func TestSensorPoolTryStartPollingAlreadyLeased(t *testing.T) {
	p := newTestSensorPool(t)

	_, stop, err := p.TryStartPolling()
	require.NoError(t, err)

	_, _, err = p.TryStartPolling()
	require.ErrorIs(t, err, device.ErrAlreadyLeased)

	stop()
}

func TestSensorPoolTryStartPollingCanRestartAfterStop(t *testing.T) {
	p := newTestSensorPool(t)

	_, stop, err := p.TryStartPolling()
	require.NoError(t, err)
	stop()

	time.Sleep(10 * time.Millisecond)

	_, stop2, err := p.TryStartPolling()
	require.NoError(t, err, "should succeed after stop")
	stop2()
}
