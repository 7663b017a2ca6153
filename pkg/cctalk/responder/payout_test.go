package responder

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cctalk/cctalk-host/pkg/cctalk/packet"
	"github.com/cctalk/cctalk-host/pkg/cctalk/value"
	"github.com/stretchr/testify/require"
)

// fakeHopper is a minimal in-memory PayoutImplementation for exercising
// PayoutResponder without real hardware.
type fakeHopper struct {
	mu sync.Mutex

	address byte

	manufacturer string
	productCode  string
	software     string
	build        string
	serialFix    byte
	serialMinor  byte
	serialMajor  byte
	storage      [5]byte
	coin         string

	status      value.HopperDispenseStatus
	levelStatus value.HopperStatus

	estops     int
	dispensed  []byte
	enabled    *bool
	resetCount int
}

func (h *fakeHopper) IsForMe(destination byte) bool { return destination == h.address }
func (h *fakeHopper) ManufacturerAbbreviation() string { return h.manufacturer }
func (h *fakeHopper) ProductCode() string              { return h.productCode }
func (h *fakeHopper) SoftwareRevision() string          { return h.software }
func (h *fakeHopper) BuildCode() string                 { return h.build }

func (h *fakeHopper) SerialNumber() (byte, byte, byte) {
	return h.serialFix, h.serialMinor, h.serialMajor
}

func (h *fakeHopper) DataStorageAvailability() [5]byte { return h.storage }

func (h *fakeHopper) PayoutStatus() value.HopperDispenseStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

func (h *fakeHopper) HopperLevelStatus() value.HopperStatus { return h.levelStatus }
func (h *fakeHopper) HopperCoin() string                    { return h.coin }

func (h *fakeHopper) HopperDispenseCount() (byte, byte, byte) { return 1, 0, 0 }

func (h *fakeHopper) EmergencyStop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.estops++
}

func (h *fakeHopper) DispenseHopperCoins(count byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dispensed = append(h.dispensed, count)
}

func (h *fakeHopper) EnableHopper(enable bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.enabled = &enable
}

func (h *fakeHopper) Test() (byte, byte, byte)          { return 1, 2, 3 }
func (h *fakeHopper) CommsRevision() (byte, byte, byte) { return 4, 8, 0 }

func (h *fakeHopper) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resetCount++
}

func newFakeHopper() *fakeHopper {
	return &fakeHopper{
		address:      3,
		manufacturer: "CTK",
		productCode:  "HP100",
		software:     "1.2",
		build:        "B7",
		coin:         "EU0050A",
		status:       value.HopperDispenseStatus{EventCounter: 9, CoinsRemaining: 0, Paid: 1, Unpaid: 0},
		levelStatus:  value.HopperStatus{LowLevelSupported: true, HigherThanLowLevel: true},
	}
}

func TestDispatchNotForMeIsDropped(t *testing.T) {
	hopper := newFakeHopper()
	r := NewPayoutResponder(3, packet.ChecksumSimple, hopper)

	_, ok := r.Dispatch(packet.Packet{Destination: 99, Header: packet.HeaderSimplePoll})
	require.False(t, ok)
}

func TestDispatchSimplePoll(t *testing.T) {
	hopper := newFakeHopper()
	r := NewPayoutResponder(3, packet.ChecksumSimple, hopper)

	reply, ok := r.Dispatch(packet.Packet{Destination: 3, Source: 1, Header: packet.HeaderSimplePoll})
	require.True(t, ok)
	require.Equal(t, packet.HeaderReply, reply.Header)
	require.Equal(t, byte(1), reply.Destination)
	require.Equal(t, byte(3), reply.Source)
	require.Empty(t, reply.Data)
}

func TestDispatchManufacturerAndProductCode(t *testing.T) {
	hopper := newFakeHopper()
	r := NewPayoutResponder(3, packet.ChecksumSimple, hopper)

	reply, ok := r.Dispatch(packet.Packet{Destination: 3, Source: 1, Header: packet.HeaderRequestManufacturerId})
	require.True(t, ok)
	require.Equal(t, "CTK", string(reply.Data))

	reply, ok = r.Dispatch(packet.Packet{Destination: 3, Source: 1, Header: packet.HeaderRequestProductCode})
	require.True(t, ok)
	require.Equal(t, "HP100", string(reply.Data))

	reply, ok = r.Dispatch(packet.Packet{Destination: 3, Source: 1, Header: packet.HeaderRequestEquipementCategoryId})
	require.True(t, ok)
	require.Equal(t, "Payout", string(reply.Data))
}

func TestDispatchSerialNumber(t *testing.T) {
	hopper := newFakeHopper()
	hopper.serialFix, hopper.serialMinor, hopper.serialMajor = 0x01, 0x02, 0x03
	r := NewPayoutResponder(3, packet.ChecksumSimple, hopper)

	reply, ok := r.Dispatch(packet.Packet{Destination: 3, Source: 1, Header: packet.HeaderRequestSerialNumber})
	require.True(t, ok)
	require.Equal(t, []byte{0x01, 0x02, 0x03}, reply.Data)
}

func TestDispatchPayoutStatus(t *testing.T) {
	hopper := newFakeHopper()
	r := NewPayoutResponder(3, packet.ChecksumSimple, hopper)

	reply, ok := r.Dispatch(packet.Packet{Destination: 3, Source: 1, Header: packet.HeaderRequestPayoutStatus})
	require.True(t, ok)
	require.Equal(t, []byte{9, 0, 1, 0}, reply.Data)
}

func TestDispatchHopperStatusReturnsLevelByteNotPayoutStatus(t *testing.T) {
	hopper := newFakeHopper()
	r := NewPayoutResponder(3, packet.ChecksumSimple, hopper)

	reply, ok := r.Dispatch(packet.Packet{Destination: 3, Source: 1, Header: packet.HeaderRequestHopperStatus})
	require.True(t, ok)
	require.Len(t, reply.Data, 1)
	require.Equal(t, hopper.levelStatus.Byte(), reply.Data[0])
}

func TestDispatchDispenseHopperCoinsEmptyPayloadIsNacked(t *testing.T) {
	hopper := newFakeHopper()
	r := NewPayoutResponder(3, packet.ChecksumSimple, hopper)

	reply, ok := r.Dispatch(packet.Packet{Destination: 3, Source: 1, Header: packet.HeaderDispenseHopperCoins})
	require.True(t, ok)
	require.Equal(t, packet.HeaderNAK, reply.Header)
	require.Empty(t, hopper.dispensed)
}

func TestDispatchDispenseHopperCoinsZeroCountIsNacked(t *testing.T) {
	hopper := newFakeHopper()
	r := NewPayoutResponder(3, packet.ChecksumSimple, hopper)

	reply, ok := r.Dispatch(packet.Packet{Destination: 3, Source: 1, Header: packet.HeaderDispenseHopperCoins, Data: []byte{0}})
	require.True(t, ok)
	require.Equal(t, packet.HeaderNAK, reply.Header)
	require.Empty(t, hopper.dispensed)
}

func TestDispatchDispenseHopperCoinsDispatchesCount(t *testing.T) {
	hopper := newFakeHopper()
	r := NewPayoutResponder(3, packet.ChecksumSimple, hopper)

	reply, ok := r.Dispatch(packet.Packet{Destination: 3, Source: 1, Header: packet.HeaderDispenseHopperCoins, Data: []byte{5}})
	require.True(t, ok)
	require.Equal(t, packet.HeaderReply, reply.Header)
	require.Equal(t, []byte{hopper.status.EventCounter}, reply.Data)
	require.Equal(t, []byte{5}, hopper.dispensed)
}

func TestDispatchEnableHopperRequiresMagicByte(t *testing.T) {
	hopper := newFakeHopper()
	r := NewPayoutResponder(3, packet.ChecksumSimple, hopper)

	_, ok := r.Dispatch(packet.Packet{Destination: 3, Source: 1, Header: packet.HeaderEnableHopper, Data: []byte{0xA5}})
	require.True(t, ok)
	require.NotNil(t, hopper.enabled)
	require.True(t, *hopper.enabled)

	_, ok = r.Dispatch(packet.Packet{Destination: 3, Source: 1, Header: packet.HeaderEnableHopper, Data: []byte{0x00}})
	require.True(t, ok)
	require.False(t, *hopper.enabled)
}

func TestDispatchEnableHopperEmptyPayloadIsNacked(t *testing.T) {
	hopper := newFakeHopper()
	r := NewPayoutResponder(3, packet.ChecksumSimple, hopper)

	reply, ok := r.Dispatch(packet.Packet{Destination: 3, Source: 1, Header: packet.HeaderEnableHopper})
	require.True(t, ok)
	require.Equal(t, packet.HeaderNAK, reply.Header)
	require.Nil(t, hopper.enabled)
}

func TestDispatchEmergencyStopAndReset(t *testing.T) {
	hopper := newFakeHopper()
	r := NewPayoutResponder(3, packet.ChecksumSimple, hopper)

	_, ok := r.Dispatch(packet.Packet{Destination: 3, Source: 1, Header: packet.HeaderEmergencyStop})
	require.True(t, ok)
	require.Equal(t, 1, hopper.estops)

	_, ok = r.Dispatch(packet.Packet{Destination: 3, Source: 1, Header: packet.HeaderResetDevice})
	require.True(t, ok)
	require.Equal(t, 1, hopper.resetCount)
}

func TestDispatchUnhandledHeaderIsNacked(t *testing.T) {
	hopper := newFakeHopper()
	r := NewPayoutResponder(3, packet.ChecksumSimple, hopper)

	reply, ok := r.Dispatch(packet.Packet{Destination: 3, Source: 1, Header: packet.HeaderRequestBankSelect})
	require.True(t, ok)
	require.Equal(t, packet.HeaderNAK, reply.Header)
}

func TestDispatchCRC16ReturnAddressIsAlwaysHost(t *testing.T) {
	hopper := newFakeHopper()
	r := NewPayoutResponder(3, packet.ChecksumCRC16, hopper)

	reply, ok := r.Dispatch(packet.Packet{Destination: 3, Source: 7, Header: packet.HeaderSimplePoll})
	require.True(t, ok)
	require.Equal(t, packet.HostAddress, reply.Destination)
}

// pipeLink is an in-memory duplex byte stream satisfying transport.Link,
// used to drive Serve against a real request/reply round trip.
type pipeLink struct {
	in  *bytes.Buffer
	out *bytes.Buffer
	mu  sync.Mutex
}

func (p *pipeLink) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.in.Read(b)
}

func (p *pipeLink) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out.Write(b)
}

func (p *pipeLink) Close() error                    { return nil }
func (p *pipeLink) SetReadDeadline(time.Time) error { return nil }

func TestServeRoundTripsASimplePoll(t *testing.T) {
	hopper := newFakeHopper()
	responder := NewPayoutResponder(3, packet.ChecksumSimple, hopper)
	dev := packet.NewDevice(3, packet.CategoryPayout, packet.ChecksumSimple)

	link := &pipeLink{in: &bytes.Buffer{}, out: &bytes.Buffer{}}
	buf := make([]byte, packet.MaxBlockLength)
	n, err := packet.Serialize(dev, packet.Packet{Destination: 3, Source: 1, Header: packet.HeaderSimplePoll}, buf)
	require.NoError(t, err)
	link.in.Write(buf[:n])

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, link, dev, responder) }()

	require.Eventually(t, func() bool {
		link.mu.Lock()
		defer link.mu.Unlock()
		return link.out.Len() > 0
	}, time.Second, time.Millisecond)

	link.mu.Lock()
	replyBytes := append([]byte(nil), link.out.Bytes()...)
	link.mu.Unlock()

	reply, err := packet.Deserialize(replyBytes, packet.ChecksumSimple)
	require.NoError(t, err)
	require.Equal(t, packet.HeaderReply, reply.Header)
	require.Equal(t, byte(1), reply.Destination)

	cancel()
	<-done
}
