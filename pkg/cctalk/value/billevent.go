package value

// BillEventReason enumerates the non-credit outcomes a bill validator can
// report: escrow/stacking status, rejects, fraud attempts and fatal
// errors. Credit and PendingCredit carry a bill type instead of a reason.
type BillEventReason byte

const (
	BillReasonMasterInhibitActive         BillEventReason = 0
	BillReasonBillReturnedFromEscrow      BillEventReason = 1
	BillReasonInvalidBillValidationFailed BillEventReason = 2
	BillReasonInvalidBillTransportFailed  BillEventReason = 3
	BillReasonInhibitedBillViaSerial      BillEventReason = 4
	BillReasonInhibitedBillViaDipSwitch   BillEventReason = 5
	BillReasonBillJammedInTransport       BillEventReason = 6
	BillReasonBillJammedInStacker         BillEventReason = 7
	BillReasonBillPulledBackwards         BillEventReason = 8
	BillReasonBillTamper                  BillEventReason = 9
	BillReasonStackerOk                   BillEventReason = 10
	BillReasonStackerRemoved              BillEventReason = 11
	BillReasonStackerInserted             BillEventReason = 12
	BillReasonStackerFaulty               BillEventReason = 13
	BillReasonStackerFull                 BillEventReason = 14
	BillReasonStackerJammed               BillEventReason = 15
	BillReasonBillJammedInTransportSafe   BillEventReason = 16
	BillReasonOptoFraudDetected           BillEventReason = 17
	BillReasonStringFraudDetected         BillEventReason = 18
	BillReasonAntiStringMechanismFaulty   BillEventReason = 19
	BillReasonBarCodeDetected             BillEventReason = 20
	BillReasonUnknownBillTypeStacked      BillEventReason = 21
)

var billEventReasonNames = map[BillEventReason]string{
	BillReasonMasterInhibitActive:         "master inhibit active",
	BillReasonBillReturnedFromEscrow:      "bill returned from escrow",
	BillReasonInvalidBillValidationFailed: "invalid bill - validation failed",
	BillReasonInvalidBillTransportFailed:  "invalid bill - transport problem",
	BillReasonInhibitedBillViaSerial:      "inhibited bill (serial)",
	BillReasonInhibitedBillViaDipSwitch:   "inhibited bill (DIP switch)",
	BillReasonBillJammedInTransport:       "bill jammed in transport",
	BillReasonBillJammedInStacker:         "bill jammed in stacker",
	BillReasonBillPulledBackwards:         "bill pulled backwards",
	BillReasonBillTamper:                  "bill tamper",
	BillReasonStackerOk:                   "stacker ok",
	BillReasonStackerRemoved:              "stacker removed",
	BillReasonStackerInserted:             "stacker inserted",
	BillReasonStackerFaulty:               "stacker faulty",
	BillReasonStackerFull:                 "stacker full",
	BillReasonStackerJammed:               "stacker jammed",
	BillReasonBillJammedInTransportSafe:   "bill jammed in transport (safe)",
	BillReasonOptoFraudDetected:           "opto fraud detected",
	BillReasonStringFraudDetected:         "string fraud detected",
	BillReasonAntiStringMechanismFaulty:   "anti-string mechanism faulty",
	BillReasonBarCodeDetected:             "bar code detected",
	BillReasonUnknownBillTypeStacked:      "unknown bill type stacked",
}

func (r BillEventReason) String() string {
	if s, ok := billEventReasonNames[r]; ok {
		return s
	}
	return "unknown bill event reason"
}

// BillEventKind discriminates the BillEvent union.
type BillEventKind int

const (
	BillEventCredit BillEventKind = iota
	BillEventPendingCredit
	BillEventReject
	BillEventFraudAttempt
	BillEventFatalError
	BillEventStatus
)

// BillEvent is one decoded ReadBufferedBillEvents slot. Credit and
// PendingCredit carry BillType; the remaining kinds carry Reason.
type BillEvent struct {
	Kind     BillEventKind
	BillType byte
	Reason   BillEventReason
}

// BillEventFromResult decodes one (resultA, resultB) pair. resultA != 0
// means a bill was processed: resultB 0 is a stacked credit, 1 is a
// pending (escrowed) credit. resultA == 0 means resultB is a status/
// reject/fraud/fatal reason code; ok is false for an unrecognised code.
func BillEventFromResult(a, b byte) (BillEvent, bool) {
	if a != 0 {
		switch b {
		case 0:
			return BillEvent{Kind: BillEventCredit, BillType: a}, true
		case 1:
			return BillEvent{Kind: BillEventPendingCredit, BillType: a}, true
		default:
			return BillEvent{}, false
		}
	}

	kind, reason, ok := billReasonFromB(b)
	if !ok {
		return BillEvent{}, false
	}
	return BillEvent{Kind: kind, Reason: reason}, true
}

func billReasonFromB(b byte) (BillEventKind, BillEventReason, bool) {
	switch b {
	case 0:
		return BillEventStatus, BillReasonMasterInhibitActive, true
	case 1:
		return BillEventStatus, BillReasonBillReturnedFromEscrow, true
	case 2:
		return BillEventReject, BillReasonInvalidBillValidationFailed, true
	case 3:
		return BillEventReject, BillReasonInvalidBillTransportFailed, true
	case 4:
		return BillEventReject, BillReasonInhibitedBillViaSerial, true
	case 5:
		return BillEventReject, BillReasonInhibitedBillViaDipSwitch, true
	case 6:
		return BillEventFatalError, BillReasonBillJammedInTransport, true
	case 7:
		return BillEventFatalError, BillReasonBillJammedInStacker, true
	case 8:
		return BillEventFraudAttempt, BillReasonBillPulledBackwards, true
	case 9:
		return BillEventFraudAttempt, BillReasonBillTamper, true
	case 10:
		return BillEventStatus, BillReasonStackerOk, true
	case 11:
		return BillEventStatus, BillReasonStackerRemoved, true
	case 12:
		return BillEventStatus, BillReasonStackerInserted, true
	case 13:
		return BillEventFatalError, BillReasonStackerFaulty, true
	case 14:
		return BillEventStatus, BillReasonStackerFull, true
	case 15:
		return BillEventFatalError, BillReasonStackerJammed, true
	case 16:
		return BillEventFatalError, BillReasonBillJammedInTransportSafe, true
	case 17:
		return BillEventFraudAttempt, BillReasonOptoFraudDetected, true
	case 18:
		return BillEventFraudAttempt, BillReasonStringFraudDetected, true
	case 19:
		return BillEventFatalError, BillReasonAntiStringMechanismFaulty, true
	case 20:
		return BillEventStatus, BillReasonBarCodeDetected, true
	case 21:
		return BillEventStatus, BillReasonUnknownBillTypeStacked, true
	default:
		return 0, 0, false
	}
}

// BillPollResult is a decoded ReadBufferedBillEvents reply, structured the
// same way as CoinPollResult: a wrapping event counter plus the buffered
// events reported alongside it.
type BillPollResult struct {
	EventCounter byte
	Events       []BillEvent
}

// MaxBillEventsPerPoll is the number of event slots a single
// ReadBufferedBillEvents reply carries.
const MaxBillEventsPerPoll = 5

// ErrBillPollResult reports why a ReadBufferedBillEvents payload could
// not be decoded.
type ErrBillPollResult struct {
	Reason string
}

func (e ErrBillPollResult) Error() string { return "ccTalk: bill poll result: " + e.Reason }

// ParseBillPollResult decodes a ReadBufferedBillEvents payload: byte 0 is
// the event counter, followed by up to MaxBillEventsPerPoll (resultA,
// resultB) pairs. Pairs that don't decode to a known BillEvent are
// dropped rather than failing the whole parse, since unknown event codes
// are expected from devices implementing later protocol revisions.
func ParseBillPollResult(payload []byte) (BillPollResult, error) {
	if len(payload) == 0 {
		return BillPollResult{}, ErrBillPollResult{Reason: "empty payload"}
	}
	rest := payload[1:]
	n := len(rest) / 2
	if n > MaxBillEventsPerPoll {
		n = MaxBillEventsPerPoll
	}

	events := make([]BillEvent, 0, n)
	for i := 0; i < n; i++ {
		if ev, ok := BillEventFromResult(rest[i*2], rest[i*2+1]); ok {
			events = append(events, ev)
		}
	}

	return BillPollResult{EventCounter: payload[0], Events: events}, nil
}

// NewSince mirrors CoinPollResult.NewSince: it returns the events that are
// new since the host's last observed counter value, detecting loss and
// unexpected resets identically.
func (r BillPollResult) NewSince(last byte) (events []BillEvent, lost bool, reset bool) {
	if r.EventCounter == 0 && last != 0 {
		return nil, false, true
	}
	delta := int(r.EventCounter) - int(last)
	if delta < 0 {
		delta += 256
	}
	lost = delta > MaxBillEventsPerPoll
	take := delta
	if take > len(r.Events) {
		take = len(r.Events)
	}
	if take < 0 {
		take = 0
	}
	return r.Events[:take], lost, false
}
