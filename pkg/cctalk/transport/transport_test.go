package transport

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/cctalk/cctalk-host/pkg/cctalk/packet"
	"github.com/stretchr/testify/require"
)

// fakeLink is an in-memory Link: writes to it are echoed back (as a real
// half-duplex RS485 link would) and queuedReplies are appended after the
// echo, one per Write call, letting tests script a device's replies.
type fakeLink struct {
	mu             sync.Mutex
	queuedReplies  [][]byte
	writes         [][]byte
	pending        bytes.Buffer
	closed         bool
}

func (f *fakeLink) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, append([]byte(nil), p...))
	f.pending.Write(p) // echo
	if len(f.writes) <= len(f.queuedReplies) {
		f.pending.Write(f.queuedReplies[len(f.writes)-1])
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

func (f *fakeLink) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeLink) SetReadDeadline(time.Time) error { return nil }

func buildReplyFrame(t *testing.T, data []byte) []byte {
	t.Helper()
	buf := make([]byte, packet.MaxBlockLength)
	dev := packet.NewDevice(packet.HostAddress, packet.CategoryUnknown, packet.ChecksumSimple)
	n, err := packet.Serialize(dev, packet.Packet{
		Destination: 1,
		Source:      2,
		Header:      packet.HeaderReply,
		Data:        data,
	}, buf)
	require.NoError(t, err)
	return buf[:n]
}

func TestTransportSendReceivesReply(t *testing.T) {
	link := &fakeLink{}
	tr := New(link, time.Second, 0, DefaultRetryConfig())
	defer tr.Close()

	// The echo of whatever we write is appended automatically by
	// fakeLink.Write; queue the device's actual reply to follow it.
	link.queuedReplies = append(link.queuedReplies, buildReplyFrame(t, []byte{0x2A}))

	data, err := tr.Send(Request{
		Address:      2,
		ChecksumType: packet.ChecksumSimple,
		Header:       packet.HeaderSimplePoll,
	})
	require.NoError(t, err)
	require.Equal(t, []byte{0x2A}, data)
}

func TestTransportNackIsNotRetried(t *testing.T) {
	link := &fakeLink{}
	cfg := DefaultRetryConfig()
	cfg.RetryOnNack = false
	tr := New(link, 50*time.Millisecond, 0, cfg)
	defer tr.Close()

	nackBuf := make([]byte, packet.MaxBlockLength)
	dev := packet.NewDevice(packet.HostAddress, packet.CategoryUnknown, packet.ChecksumSimple)
	n, err := packet.Serialize(dev, packet.Packet{Destination: 1, Source: 2, Header: packet.HeaderNAK}, nackBuf)
	require.NoError(t, err)
	link.queuedReplies = append(link.queuedReplies, nackBuf[:n])

	_, sendErr := tr.Send(Request{Address: 2, ChecksumType: packet.ChecksumSimple, Header: packet.HeaderSimplePoll})
	require.Error(t, sendErr)
	var terr TransportError
	require.True(t, errors.As(sendErr, &terr))
	require.Equal(t, ErrorNack, terr.Code)

	link.mu.Lock()
	defer link.mu.Unlock()
	require.Len(t, link.writes, 1, "a non-retryable NACK must not be retried")
}

func TestTransportSocketErrorExhaustsRetries(t *testing.T) {
	link := &fakeLink{} // never produces a reply: every read past the echo hits EOF
	cfg := RetryConfig{MaxRetries: 2, RetryDelay: time.Millisecond, RetryOnSocketError: true}
	tr := New(link, 10*time.Millisecond, 0, cfg)
	defer tr.Close()

	_, err := tr.Send(Request{Address: 2, ChecksumType: packet.ChecksumSimple, Header: packet.HeaderSimplePoll})
	require.Error(t, err)
	var terr TransportError
	require.True(t, errors.As(err, &terr))
	require.Equal(t, ErrorSocketRead, terr.Code)

	link.mu.Lock()
	defer link.mu.Unlock()
	require.Len(t, link.writes, 2, "MaxRetries=2 should attempt exactly twice")
}
