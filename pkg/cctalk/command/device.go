package command

import (
	"time"

	"github.com/cctalk/cctalk-host/pkg/cctalk/packet"
	"github.com/cctalk/cctalk-host/pkg/cctalk/value"
)

// PollingUnit is the time base a device's RequestPollingPriority reply
// uses for its value byte.
type PollingUnit byte

const (
	PollingUnitSpecial PollingUnit = 0
	PollingUnitMs      PollingUnit = 1
	PollingUnitX10Ms   PollingUnit = 2
	PollingUnitSeconds PollingUnit = 3
	PollingUnitMinutes PollingUnit = 4
	PollingUnitHours   PollingUnit = 5
	PollingUnitDays    PollingUnit = 6
	PollingUnitWeeks   PollingUnit = 7
	PollingUnitMonths  PollingUnit = 8
	PollingUnitYears   PollingUnit = 9
)

// PollingPriority is the decoded RequestPollingPriority reply. Unit
// Special with value 0 means polling is not required at all — the
// resolution recorded in DESIGN.md for this otherwise-ambiguous wire
// convention.
type PollingPriority struct {
	Unit  PollingUnit
	Value byte
}

// Required reports whether the device wants to be polled at all.
func (p PollingPriority) Required() bool {
	return !(p.Unit == PollingUnitSpecial && p.Value == 0)
}

// AsDuration converts the reply to a time.Duration for units with a fixed
// wall-clock meaning, returning false for PollingUnitSpecial (whose value
// is a device-specific code, not a time base), for the days, weeks,
// months and years units, and for unrecognised units.
func (p PollingPriority) AsDuration() (time.Duration, bool) {
	switch p.Unit {
	case PollingUnitMs:
		return time.Duration(p.Value) * time.Millisecond, true
	case PollingUnitX10Ms:
		return time.Duration(p.Value) * 10 * time.Millisecond, true
	case PollingUnitSeconds:
		return time.Duration(p.Value) * time.Second, true
	case PollingUnitMinutes:
		return time.Duration(p.Value) * time.Minute, true
	case PollingUnitHours:
		return time.Duration(p.Value) * time.Hour, true
	default:
		return 0, false
	}
}

// RequestPollingPriorityCommand (header 249) asks a device how frequently
// it wants to be polled.
type RequestPollingPriorityCommand struct{}

func (RequestPollingPriorityCommand) Header() packet.Header {
	return packet.HeaderRequestPollingPriority
}
func (RequestPollingPriorityCommand) Data() []byte { return nil }
func (RequestPollingPriorityCommand) ParseResponse(payload []byte) (PollingPriority, error) {
	if len(payload) != 2 {
		return PollingPriority{}, errDataLengthMismatch(2, len(payload))
	}
	unit := payload[0]
	if unit > byte(PollingUnitYears) {
		return PollingPriority{}, ParseResponseError{Reason: "invalid polling unit"}
	}
	return PollingPriority{Unit: PollingUnit(unit), Value: payload[1]}, nil
}

// CoinAcceptorStatus is the RequestStatus reply for coin-handling
// devices.
type CoinAcceptorStatus byte

const (
	CoinAcceptorStatusOK                            CoinAcceptorStatus = 0
	CoinAcceptorStatusCoinReturnMechanismActivated  CoinAcceptorStatus = 1
	CoinAcceptorStatusCoinOnString                  CoinAcceptorStatus = 2
)

// RequestStatusCommand (header 248) reads a coin acceptor's current
// mechanical status.
type RequestStatusCommand struct{}

func (RequestStatusCommand) Header() packet.Header { return packet.HeaderRequestStatus }
func (RequestStatusCommand) Data() []byte          { return nil }
func (RequestStatusCommand) ParseResponse(payload []byte) (CoinAcceptorStatus, error) {
	if len(payload) != 1 {
		return 0, errDataLengthMismatch(1, len(payload))
	}
	if payload[0] > byte(CoinAcceptorStatusCoinOnString) {
		return 0, ParseResponseError{Reason: "invalid coin acceptor status"}
	}
	return CoinAcceptorStatus(payload[0]), nil
}

// RequestDatabaseVersionCommand (header 243) reads the revision of a
// device's internal coin/bill recognition database.
type RequestDatabaseVersionCommand struct{}

func (RequestDatabaseVersionCommand) Header() packet.Header {
	return packet.HeaderRequestDatabaseVersion
}
func (RequestDatabaseVersionCommand) Data() []byte { return nil }
func (RequestDatabaseVersionCommand) ParseResponse(payload []byte) (byte, error) {
	if len(payload) != 1 {
		return 0, errDataLengthMismatch(1, len(payload))
	}
	return payload[0], nil
}

func ackCommand(payload []byte) (struct{}, error) {
	if len(payload) != 0 {
		return struct{}{}, errDataLengthMismatch(0, len(payload))
	}
	return struct{}{}, nil
}

// TestSolenoidsCommand (header 240) pulses the solenoid bank named by
// Mask for a device self-test.
type TestSolenoidsCommand struct{ Mask byte }

func (TestSolenoidsCommand) Header() packet.Header { return packet.HeaderTestSolenoids }
func (c TestSolenoidsCommand) Data() []byte         { return []byte{c.Mask} }
func (TestSolenoidsCommand) ParseResponse(payload []byte) (struct{}, error) { return ackCommand(payload) }

// OperateMotorsCommand (header 239) drives the motor bank named by Mask.
type OperateMotorsCommand struct{ Mask byte }

func (OperateMotorsCommand) Header() packet.Header { return packet.HeaderOperateMotors }
func (c OperateMotorsCommand) Data() []byte         { return []byte{c.Mask} }
func (OperateMotorsCommand) ParseResponse(payload []byte) (struct{}, error) { return ackCommand(payload) }

// TestOutputLinesCommand (header 238) pulses the output line bank named
// by Mask.
type TestOutputLinesCommand struct{ Mask byte }

func (TestOutputLinesCommand) Header() packet.Header { return packet.HeaderTestOutputLines }
func (c TestOutputLinesCommand) Data() []byte         { return []byte{c.Mask} }
func (TestOutputLinesCommand) ParseResponse(payload []byte) (struct{}, error) {
	return ackCommand(payload)
}

// ReadInputLinesCommand (header 237) reads a device-specific input line
// register; the payload shape varies by device so it is surfaced raw.
type ReadInputLinesCommand struct{}

func (ReadInputLinesCommand) Header() packet.Header { return packet.HeaderReadInputLines }
func (ReadInputLinesCommand) Data() []byte          { return nil }
func (ReadInputLinesCommand) ParseResponse(payload []byte) ([]byte, error) {
	return payload, nil
}

// ReadOptoStatesCommand (header 236) reads the first byte of a
// device-specific optical sensor register. Some devices reply with more
// than one byte; only the first is defined here, the rest is
// device-specific and dropped.
type ReadOptoStatesCommand struct{}

func (ReadOptoStatesCommand) Header() packet.Header { return packet.HeaderReadOptoStates }
func (ReadOptoStatesCommand) Data() []byte          { return nil }
func (ReadOptoStatesCommand) ParseResponse(payload []byte) (byte, error) {
	if len(payload) == 0 {
		return 0, errDataLengthMismatch(1, 0)
	}
	return payload[0], nil
}

// LatchOutputLinesCommand (header 233) sets the output line bank named
// by Mask and holds it until next latched.
type LatchOutputLinesCommand struct{ Mask byte }

func (LatchOutputLinesCommand) Header() packet.Header { return packet.HeaderLatchOutputLines }
func (c LatchOutputLinesCommand) Data() []byte         { return []byte{c.Mask} }
func (LatchOutputLinesCommand) ParseResponse(payload []byte) (struct{}, error) {
	return ackCommand(payload)
}

// SelfCheckResult is the decoded PerformSelfCheck reply: a fault code
// plus an optional device-specific info byte.
type SelfCheckResult struct {
	Fault    value.FaultCode
	HasInfo  bool
	FaultInfo byte
}

// PerformSelfCheckCommand (header 232) runs a device's internal
// diagnostic routine and reports the resulting fault code.
type PerformSelfCheckCommand struct{}

func (PerformSelfCheckCommand) Header() packet.Header { return packet.HeaderPerformSelfCheck }
func (PerformSelfCheckCommand) Data() []byte          { return nil }
func (PerformSelfCheckCommand) ParseResponse(payload []byte) (SelfCheckResult, error) {
	switch len(payload) {
	case 1:
		return SelfCheckResult{Fault: value.FaultCode(payload[0])}, nil
	case 2:
		return SelfCheckResult{Fault: value.FaultCode(payload[0]), HasInfo: true, FaultInfo: payload[1]}, nil
	default:
		return SelfCheckResult{}, errDataLengthMismatch(1, len(payload))
	}
}

// DeviceModifyInhibitStatusCommand is the fixed-width (two-register)
// inhibit mask form some device-commands implementations use, as
// distinct from validator.go's variable-width BitMask form used by the
// validator command set proper; both speak the same wire header.
type DeviceModifyInhibitStatusCommand struct {
	Buffer [2]byte
}

func (DeviceModifyInhibitStatusCommand) Header() packet.Header {
	return packet.HeaderModifyInhibitStatus
}
func (c DeviceModifyInhibitStatusCommand) Data() []byte { return c.Buffer[:] }
func (DeviceModifyInhibitStatusCommand) ParseResponse(payload []byte) (struct{}, error) {
	return ackCommand(payload)
}
