package device

import (
	"bytes"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/cctalk/cctalk-host/pkg/cctalk/packet"
	"github.com/cctalk/cctalk-host/pkg/cctalk/transport"
	"github.com/stretchr/testify/require"
)

// fakeLink is an in-memory transport.Link: writes are echoed back, and
// any queued replies are appended after the echo, one per Write call.
type fakeLink struct {
	mu            sync.Mutex
	queuedReplies [][]byte
	writes        int
	pending       bytes.Buffer
}

func (f *fakeLink) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending.Write(p)
	f.writes++
	if f.writes <= len(f.queuedReplies) {
		f.pending.Write(f.queuedReplies[f.writes-1])
	}
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

func buildReplyFrame(t *testing.T, data []byte) []byte {
	t.Helper()
	buf := make([]byte, packet.MaxBlockLength)
	dev := packet.NewDevice(packet.HostAddress, packet.CategoryUnknown, packet.ChecksumSimple)
	n, err := packet.Serialize(dev, packet.Packet{
		Destination: 2,
		Source:      1,
		Header:      packet.HeaderReply,
		Data:        data,
	}, buf)
	require.NoError(t, err)
	return buf[:n]
}

func newTestCoinValidator(t *testing.T) (CoinValidator, *fakeLink) {
	t.Helper()
	link := &fakeLink{}
	tr := transport.New(link, time.Second, 0, transport.DefaultRetryConfig())
	t.Cleanup(func() { tr.Close() })
	dev := packet.NewDevice(2, packet.CategoryCoinAcceptor, packet.ChecksumSimple)
	return NewCoinValidator(dev, tr), link
}

func TestCoinValidatorPollAdvancesEventCounter(t *testing.T) {
	v, link := newTestCoinValidator(t)
	link.queuedReplies = append(link.queuedReplies, buildReplyFrame(t, []byte{
		3, 10, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}))

	result, err := v.Poll()
	require.NoError(t, err)
	require.Equal(t, byte(3), result.EventCounter)
	require.Equal(t, byte(3), v.EventCounter())
}

func TestTryBackgroundPollingReturnsAlreadyLeasedWhenCalledTwice(t *testing.T) {
	v, _ := newTestCoinValidator(t)

	_, stop, err := v.TryBackgroundPolling(100*time.Millisecond, 1)
	require.NoError(t, err)

	_, _, err = v.TryBackgroundPolling(100*time.Millisecond, 1)
	require.ErrorIs(t, err, ErrAlreadyLeased)

	stop()
}

func TestTryBackgroundPollingCanRestartAfterStop(t *testing.T) {
	v, _ := newTestCoinValidator(t)

	_, stop, err := v.TryBackgroundPolling(100*time.Millisecond, 1)
	require.NoError(t, err)
	stop()

	_, stop2, err := v.TryBackgroundPolling(100*time.Millisecond, 1)
	require.NoError(t, err, "should be able to start polling again after stop")
	stop2()
}

func TestClonedInstancesShareTheBackgroundPollingLock(t *testing.T) {
	v, _ := newTestCoinValidator(t)
	cloned := v

	_, stop, err := v.TryBackgroundPolling(100*time.Millisecond, 1)
	require.NoError(t, err)

	_, _, err = cloned.TryBackgroundPolling(100*time.Millisecond, 1)
	require.ErrorIs(t, err, ErrAlreadyLeased, "clone should see the lock held by the original")
	stop()

	_, stop2, err := cloned.TryBackgroundPolling(100*time.Millisecond, 1)
	require.NoError(t, err, "clone should be able to start polling after original's lease is released")
	stop2()
}

func TestCoinValidatorMasterInhibitRoundTrip(t *testing.T) {
	v, link := newTestCoinValidator(t)
	link.queuedReplies = append(link.queuedReplies, buildReplyFrame(t, nil))

	err := v.EnableMasterInhibit()
	require.NoError(t, err)
	require.Equal(t, 1, link.writes)
}

func TestPayoutDeviceDispenseCountUpdatesCounter(t *testing.T) {
	link := &fakeLink{}
	tr := transport.New(link, time.Second, 0, transport.DefaultRetryConfig())
	defer tr.Close()
	dev := packet.NewDevice(5, packet.CategoryPayout, packet.ChecksumSimple)
	d := NewPayoutDevice(dev, tr, 2)

	link.queuedReplies = append(link.queuedReplies, buildReplyFrame(t, []byte{4, 2, 1, 0}))
	status, err := d.DispenseCount()
	require.NoError(t, err)
	require.Equal(t, byte(4), status.EventCounter)
	require.Equal(t, byte(2), status.CoinsRemaining)
}
