package transport

import "time"

// Error classifies why a request round-trip failed, independent of the
// underlying transport error, so that RetryConfig can decide whether a
// given failure is worth retrying.
type Error byte

const (
	ErrorTimeout Error = iota
	ErrorNack
	ErrorBusy
	ErrorBufferOverflow
	ErrorSocketWrite
	ErrorSocketRead
	ErrorChecksum
	ErrorMaxRetriesExceeded
)

func (e Error) String() string {
	switch e {
	case ErrorTimeout:
		return "timeout"
	case ErrorNack:
		return "nack"
	case ErrorBusy:
		return "busy"
	case ErrorBufferOverflow:
		return "buffer overflow"
	case ErrorSocketWrite:
		return "socket write error"
	case ErrorSocketRead:
		return "socket read error"
	case ErrorChecksum:
		return "checksum error"
	case ErrorMaxRetriesExceeded:
		return "max retries exceeded"
	default:
		return "unknown transport error"
	}
}

// TransportError wraps an Error with the step that produced it, so log
// lines and returned errors carry both the classification and the
// concrete failure.
type TransportError struct {
	Code   Error
	Reason string
}

func (e TransportError) Error() string {
	if e.Reason != "" {
		return "cctalk transport: " + e.Code.String() + ": " + e.Reason
	}
	return "cctalk transport: " + e.Code.String()
}

// RetryConfig decides, per failure class, whether a request round-trip
// is worth retrying and how long to wait between attempts.
type RetryConfig struct {
	MaxRetries           int
	RetryDelay           time.Duration
	RetryOnTimeout       bool
	RetryOnChecksumError bool
	RetryOnNack          bool
	RetryOnSocketError   bool
}

// DefaultRetryConfig matches the host-side defaults used across the
// pack: a handful of quick retries for transient timeouts/checksum/
// socket errors, but no automatic retry on NAK since a device NAKing a
// command is usually telling the host something that a resend will not
// fix (a busy device should be retried by the polling loop, not the
// transport).
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:           3,
		RetryDelay:           100 * time.Millisecond,
		RetryOnTimeout:       true,
		RetryOnChecksumError: true,
		RetryOnNack:          false,
		RetryOnSocketError:   true,
	}
}

// retryState tracks one request's retry budget as attempts are
// evaluated against the owning RetryConfig.
type retryState struct {
	cfg       RetryConfig
	attempt   int
	lastError Error
	canRetry  bool
}

func (c RetryConfig) newState() *retryState {
	return &retryState{cfg: c, canRetry: true, lastError: ErrorTimeout}
}

func (s *retryState) shouldRetry(err Error) bool {
	switch err {
	case ErrorTimeout:
		return s.cfg.RetryOnTimeout
	case ErrorChecksum:
		return s.cfg.RetryOnChecksumError
	case ErrorNack:
		return s.cfg.RetryOnNack
	case ErrorSocketWrite, ErrorSocketRead:
		return s.cfg.RetryOnSocketError
	default:
		return false
	}
}

func (s *retryState) evaluate(err Error) {
	if !s.shouldRetry(err) {
		s.canRetry = false
	}
	s.attempt++
	if s.attempt >= s.cfg.MaxRetries {
		s.canRetry = false
	}
	s.lastError = err
}

func (s *retryState) delayForRetry() {
	if s.cfg.RetryDelay > 0 && s.canRetry {
		time.Sleep(s.cfg.RetryDelay)
	}
}

func (s *retryState) evaluateAndWait(err Error) {
	s.evaluate(err)
	s.delayForRetry()
}
