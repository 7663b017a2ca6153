package transport

import (
	"sync"
	"time"

	"github.com/cctalk/cctalk-host/pkg/cctalk/packet"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Request is one ccTalk round-trip: a request frame addressed to a
// device. Send returns the reply payload or the error.
type Request struct {
	Address      byte
	ChecksumType packet.ChecksumType
	Header       packet.Header
	Data         []byte

	// CorrelationID identifies this submission in the transport's logs.
	// Send fills in a fresh uuid.New() when left empty, so most callers
	// never set it directly.
	CorrelationID string

	reply chan requestResult
}

type requestResult struct {
	Data []byte
	Err  error
}

// Transport owns a Link exclusively and serializes every request/reply
// exchange through one goroutine, so overlapping callers never interleave
// writes or misattribute a reply to the wrong request. This mirrors the
// Rust transport's single mpsc-fed actor loop over one socket.
type Transport struct {
	link         Link
	readTimeout  time.Duration
	minimumDelay time.Duration
	retryConfig  RetryConfig

	requests chan *Request
	done     chan struct{}

	closeOnce sync.Once

	// Logger receives retry/failure events. Nil-safe: logEntry falls back
	// to logrus.StandardLogger() when unset, so callers that don't care
	// about transport-level logging don't need to wire anything up.
	Logger *logrus.Entry
}

// New starts the transport's arbiter goroutine over link. Call Close to
// stop it and release the link.
func New(link Link, readTimeout, minimumDelay time.Duration, retryConfig RetryConfig) *Transport {
	t := &Transport{
		link:         link,
		readTimeout:  readTimeout,
		minimumDelay: minimumDelay,
		retryConfig:  retryConfig,
		requests:     make(chan *Request),
		done:         make(chan struct{}),
	}
	go t.run()
	return t
}

func (t *Transport) logEntry() *logrus.Entry {
	if t.Logger != nil {
		return t.Logger
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// Close stops the arbiter goroutine and closes the underlying link.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() { close(t.done) })
	return t.link.Close()
}

// Send performs one request/reply exchange, retrying per RetryConfig,
// and returns the reply's data payload.
func (t *Transport) Send(req Request) ([]byte, error) {
	if req.CorrelationID == "" {
		req.CorrelationID = uuid.New().String()
	}
	req.reply = make(chan requestResult, 1)
	select {
	case t.requests <- &req:
	case <-t.done:
		return nil, TransportError{Code: ErrorSocketWrite, Reason: "transport closed"}
	}
	select {
	case res := <-req.reply:
		return res.Data, res.Err
	case <-t.done:
		return nil, TransportError{Code: ErrorSocketWrite, Reason: "transport closed"}
	}
}

func (t *Transport) run() {
	sendBuf := make([]byte, packet.MaxBlockLength)
	recvBuf := make([]byte, packet.MaxBlockLength)
	for {
		select {
		case <-t.done:
			return
		case req := <-t.requests:
			data, err := t.roundTripWithRetry(req, sendBuf, recvBuf)
			req.reply <- requestResult{Data: data, Err: err}
			if t.minimumDelay > 0 {
				time.Sleep(t.minimumDelay)
			}
		}
	}
}

func (t *Transport) roundTripWithRetry(req *Request, sendBuf, recvBuf []byte) ([]byte, error) {
	state := t.retryConfig.newState()
	for state.canRetry {
		data, terr, ok := t.roundTrip(req, sendBuf, recvBuf)
		if ok {
			return data, nil
		}
		t.logEntry().WithFields(logrus.Fields{
			"correlation_id": req.CorrelationID,
			"address":        req.Address,
			"header":         req.Header,
			"attempt":        state.attempt,
			"error":          terr.Code.String(),
		}).Warn("cctalk transport: request failed")
		state.evaluateAndWait(terr.Code)
		if !state.canRetry {
			return nil, terr
		}
	}
	return nil, TransportError{Code: ErrorMaxRetriesExceeded}
}

func (t *Transport) roundTrip(req *Request, sendBuf, recvBuf []byte) ([]byte, TransportError, bool) {
	dev := packet.NewDevice(req.Address, packet.CategoryUnknown, req.ChecksumType)
	n, err := packet.Serialize(dev, packet.Packet{
		Destination: req.Address,
		Source:      packet.HostAddress,
		Header:      req.Header,
		Data:        req.Data,
	}, sendBuf)
	if err != nil {
		return nil, TransportError{Code: ErrorBufferOverflow, Reason: err.Error()}, false
	}

	if err := t.link.SetReadDeadline(time.Now().Add(t.readTimeout)); err != nil {
		return nil, TransportError{Code: ErrorSocketWrite, Reason: err.Error()}, false
	}
	if _, err := t.link.Write(sendBuf[:n]); err != nil {
		return nil, TransportError{Code: ErrorSocketWrite, Reason: err.Error()}, false
	}

	// Half-duplex RS485 links loop back everything just written; discard
	// that many bytes before reading the device's actual reply.
	if err := readFull(t.link, recvBuf[:n]); err != nil {
		return nil, TransportError{Code: ErrorSocketRead, Reason: "echo: " + err.Error()}, false
	}

	headerLen := packet.DataOffset
	if err := t.link.SetReadDeadline(time.Now().Add(t.readTimeout)); err != nil {
		return nil, TransportError{Code: ErrorSocketRead, Reason: err.Error()}, false
	}
	if err := readFull(t.link, recvBuf[:headerLen]); err != nil {
		return nil, TransportError{Code: ErrorSocketRead, Reason: "header: " + err.Error()}, false
	}

	dataLength := int(recvBuf[packet.DataLengthOffset])
	checksumLen := checksumWidth(req.ChecksumType)
	total := headerLen + dataLength + checksumLen
	if total > len(recvBuf) {
		return nil, TransportError{Code: ErrorBufferOverflow}, false
	}
	if dataLength+checksumLen > 0 {
		if err := readFull(t.link, recvBuf[headerLen:total]); err != nil {
			return nil, TransportError{Code: ErrorSocketRead, Reason: "body: " + err.Error()}, false
		}
	}

	reply, err := packet.Deserialize(recvBuf[:total], req.ChecksumType)
	if err != nil {
		if err == packet.ErrChecksumMismatch {
			return nil, TransportError{Code: ErrorChecksum, Reason: err.Error()}, false
		}
		return nil, TransportError{Code: ErrorBufferOverflow, Reason: err.Error()}, false
	}
	if reply.Header == packet.HeaderNAK {
		return nil, TransportError{Code: ErrorNack}, false
	}
	if reply.Header == packet.HeaderBusy {
		return nil, TransportError{Code: ErrorBusy}, false
	}
	return reply.Data, TransportError{}, true
}

func checksumWidth(t packet.ChecksumType) int {
	if t == packet.ChecksumCRC16 {
		return 2
	}
	return 1
}

func readFull(link Link, buf []byte) error {
	read := 0
	for read < len(buf) {
		n, err := link.Read(buf[read:])
		if n > 0 {
			read += n
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return TransportError{Code: ErrorSocketRead, Reason: "short read"}
		}
	}
	return nil
}
