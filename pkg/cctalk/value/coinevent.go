package value

// SorterPath identifies which physical sorter exit a coin was routed to,
// as reported alongside a credit in a ReadBufferedCreditOrErrorCodes
// event. A value of 0 on the wire means the device does not support
// sorting and the path is meaningless.
type SorterPath struct {
	Supported bool
	Path      byte
}

// SorterPathFromByte decodes a raw sorter path byte as reported by
// RequestDefaultSorterPath/RequestSorterPath and alongside coin credits.
func SorterPathFromByte(b byte) SorterPath {
	if b == 0 {
		return SorterPath{Supported: false}
	}
	return SorterPath{Supported: true, Path: b}
}

func sorterPathFromByte(b byte) SorterPath { return SorterPathFromByte(b) }

// CoinCredit is a single accepted coin: its credit (coin position/value
// code, 1-255) and the sorter path it was routed to.
type CoinCredit struct {
	Credit     byte
	SorterPath SorterPath
}

// CoinEvent is one slot from a ReadBufferedCreditOrErrorCodes reply: a
// buffered error/status report, or a credit. Exactly one of Err/Credit is
// meaningful, selected by IsCredit.
type CoinEvent struct {
	IsCredit bool
	Err      CoinAcceptorError
	Credit   CoinCredit
}

// NewCoinEvent decodes one (resultA, resultB) pair from a credit poll.
// resultA == 0 means resultB is an error code; any other resultA means a
// credit, with resultA the credit value and resultB the sorter path.
func NewCoinEvent(resultA, resultB byte) CoinEvent {
	if resultA == 0 {
		err, ok := ParseCoinAcceptorError(resultB)
		if !ok {
			err = CoinErrorNullEvent
		}
		return CoinEvent{IsCredit: false, Err: err}
	}
	return CoinEvent{
		IsCredit: true,
		Credit: CoinCredit{
			Credit:     resultA,
			SorterPath: sorterPathFromByte(resultB),
		},
	}
}

// MaxCoinEventsPerPoll is the number of event slots a single
// ReadBufferedCreditOrErrorCodes reply carries, newest-first.
const MaxCoinEventsPerPoll = 5

// CoinPollResult is a decoded ReadBufferedCreditOrErrorCodes reply: the
// device's free-running event counter (1→255→1, 0 reserved for
// power-up/reset) and the buffered events reported alongside it,
// newest-first.
type CoinPollResult struct {
	EventCounter byte
	Events       []CoinEvent
}

// ErrCoinPollResult reports why a ReadBufferedCreditOrErrorCodes payload
// could not be decoded.
type ErrCoinPollResult struct {
	Reason string
}

func (e ErrCoinPollResult) Error() string { return "ccTalk: coin poll result: " + e.Reason }

// ParseCoinPollResult decodes a ReadBufferedCreditOrErrorCodes payload:
// byte 0 is the event counter, followed by up to MaxCoinEventsPerPoll
// (resultA, resultB) pairs, newest-first.
func ParseCoinPollResult(payload []byte) (CoinPollResult, error) {
	if len(payload) == 0 {
		return CoinPollResult{}, ErrCoinPollResult{Reason: "empty payload"}
	}
	rest := payload[1:]
	n := len(rest) / 2
	if n > MaxCoinEventsPerPoll {
		n = MaxCoinEventsPerPoll
	}

	events := make([]CoinEvent, 0, n)
	for i := 0; i < n; i++ {
		events = append(events, NewCoinEvent(rest[i*2], rest[i*2+1]))
	}

	return CoinPollResult{EventCounter: payload[0], Events: events}, nil
}

// NewSince compares this result's counter against the last counter value
// the host observed for this device and returns the subset of Events that
// are actually new since then.
//
// If the counter reads 0 while last is non-zero, the device has reset
// unexpectedly and reset=true is returned with no events (the buffered
// events are not attributable to a known history). Otherwise delta is
// computed modulo 256; a delta exceeding MaxCoinEventsPerPoll means
// events were lost between polls (lost=true), and only the first
// min(delta, MaxCoinEventsPerPoll) newest-first entries are returned.
func (r CoinPollResult) NewSince(last byte) (events []CoinEvent, lost bool, reset bool) {
	if r.EventCounter == 0 && last != 0 {
		return nil, false, true
	}
	delta := int(r.EventCounter) - int(last)
	if delta < 0 {
		delta += 256
	}
	lost = delta > MaxCoinEventsPerPoll
	take := delta
	if take > len(r.Events) {
		take = len(r.Events)
	}
	if take < 0 {
		take = 0
	}
	return r.Events[:take], lost, false
}
