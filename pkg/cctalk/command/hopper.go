package command

import (
	"github.com/cctalk/cctalk-host/pkg/cctalk/packet"
	"github.com/cctalk/cctalk-host/pkg/cctalk/value"
)

// RequestHopperStatusCommand (header 166) reads low/high hopper level
// sensor flags.
type RequestHopperStatusCommand struct{}

func (RequestHopperStatusCommand) Header() packet.Header { return packet.HeaderRequestHopperStatus }
func (RequestHopperStatusCommand) Data() []byte          { return nil }
func (RequestHopperStatusCommand) ParseResponse(payload []byte) (value.HopperStatus, error) {
	if len(payload) != 1 {
		return value.HopperStatus{}, errDataLengthMismatch(1, len(payload))
	}
	return value.HopperStatusFromByte(payload[0]), nil
}

// TestHopperCommand (header 163) runs the hopper's self-test and reports
// a single status byte; 0 means OK, any other value is device-specific
// and surfaced to the caller uninterpreted.
type TestHopperCommand struct{}

func (TestHopperCommand) Header() packet.Header { return packet.HeaderTestHopper }
func (TestHopperCommand) Data() []byte          { return nil }
func (TestHopperCommand) ParseResponse(payload []byte) (byte, error) {
	if len(payload) != 1 {
		return 0, errDataLengthMismatch(1, len(payload))
	}
	return payload[0], nil
}

// EnableHopperCommand (header 164) arms or disarms dispensing. The single
// magic byte 0xA5 arms the hopper and any other byte (0 is sent) disarms
// it, which guards against accidental dispense from a misrouted command.
type EnableHopperCommand struct {
	Enable bool
}

const hopperEnableByte byte = 0xA5

func (EnableHopperCommand) Header() packet.Header { return packet.HeaderEnableHopper }
func (c EnableHopperCommand) Data() []byte {
	if c.Enable {
		return []byte{hopperEnableByte}
	}
	return []byte{0}
}
func (EnableHopperCommand) ParseResponse(payload []byte) (struct{}, error) {
	if len(payload) != 0 {
		return struct{}{}, errDataLengthMismatch(0, len(payload))
	}
	return struct{}{}, nil
}

// EmergencyStopCommand (header 172) halts any dispense in progress and
// reports the coins paid out before the stop took effect.
type EmergencyStopCommand struct{}

func (EmergencyStopCommand) Header() packet.Header { return packet.HeaderEmergencyStop }
func (EmergencyStopCommand) Data() []byte          { return nil }
func (EmergencyStopCommand) ParseResponse(payload []byte) (byte, error) {
	if len(payload) != 1 {
		return 0, errDataLengthMismatch(1, len(payload))
	}
	return payload[0], nil
}

// DispenseHopperCoinsCommand (header 167) requests a dispense of Count
// coins from the addressed single-denomination hopper.
type DispenseHopperCoinsCommand struct {
	Count byte
}

func (DispenseHopperCoinsCommand) Header() packet.Header { return packet.HeaderDispenseHopperCoins }
func (c DispenseHopperCoinsCommand) Data() []byte         { return []byte{c.Count} }
func (DispenseHopperCoinsCommand) ParseResponse(payload []byte) (struct{}, error) {
	if len(payload) != 0 {
		return struct{}{}, errDataLengthMismatch(0, len(payload))
	}
	return struct{}{}, nil
}

// DispenseHopperValueCommand (header 134) requests a dispense targeting a
// monetary value rather than a coin count, for multi-denomination payout
// devices that choose their own coin mix.
type DispenseHopperValueCommand struct {
	Value   uint32
	Country string
}

func (DispenseHopperValueCommand) Header() packet.Header { return packet.HeaderDispenseHopperValue }
func (c DispenseHopperValueCommand) Data() []byte {
	country := (c.Country + "..")[:2]
	return []byte{
		byte(c.Value), byte(c.Value >> 8), byte(c.Value >> 16), byte(c.Value >> 24),
		country[0], country[1],
	}
}
func (DispenseHopperValueCommand) ParseResponse(payload []byte) (struct{}, error) {
	if len(payload) != 0 {
		return struct{}{}, errDataLengthMismatch(0, len(payload))
	}
	return struct{}{}, nil
}

// RequestHopperDispenseCountCommand (header 168) reads the running
// dispense status: event counter, coins remaining to pay, and paid/unpaid
// totals for the in-flight request.
type RequestHopperDispenseCountCommand struct{}

func (RequestHopperDispenseCountCommand) Header() packet.Header {
	return packet.HeaderRequestHopperDispenseCount
}
func (RequestHopperDispenseCountCommand) Data() []byte { return nil }
func (RequestHopperDispenseCountCommand) ParseResponse(payload []byte) (value.HopperDispenseStatus, error) {
	if len(payload) != 4 {
		return value.HopperDispenseStatus{}, errDataLengthMismatch(4, len(payload))
	}
	return value.HopperDispenseStatusFromBytes([4]byte{payload[0], payload[1], payload[2], payload[3]}), nil
}

// RequestPayoutStatusCommand (header 217) reads the aggregate payout
// float/flag register for the addressed payout device.
type RequestPayoutStatusCommand struct {
	// RegisterCount is 2 or 3 depending on whether the device reports
	// the register-3 five-flag extension.
	RegisterCount int
}

func (RequestPayoutStatusCommand) Header() packet.Header { return packet.HeaderRequestPayoutStatus }
func (RequestPayoutStatusCommand) Data() []byte          { return nil }
func (c RequestPayoutStatusCommand) ParseResponse(payload []byte) ([]value.HopperFlag, error) {
	if len(payload) != c.RegisterCount {
		return nil, errDataLengthMismatch(c.RegisterCount, len(payload))
	}
	return value.ParseHopperFlags(payload), nil
}

// RequestHopperBalanceCommand (header 119) reads the addressed hopper's
// recorded coin count, a 4-byte little-endian value.
type RequestHopperBalanceCommand struct{}

func (RequestHopperBalanceCommand) Header() packet.Header { return packet.HeaderRequestHopperBalance }
func (RequestHopperBalanceCommand) Data() []byte          { return nil }
func (RequestHopperBalanceCommand) ParseResponse(payload []byte) (uint32, error) {
	if len(payload) != 4 {
		return 0, errDataLengthMismatch(4, len(payload))
	}
	return uint32(payload[0]) | uint32(payload[1])<<8 | uint32(payload[2])<<16 | uint32(payload[3])<<24, nil
}

// ModifyHopperBalanceCommand (header 120) overwrites the hopper's
// recorded coin count, used after manual refill/removal.
type ModifyHopperBalanceCommand struct {
	Count uint32
}

func (ModifyHopperBalanceCommand) Header() packet.Header { return packet.HeaderModifyHopperBalance }
func (c ModifyHopperBalanceCommand) Data() []byte {
	return []byte{byte(c.Count), byte(c.Count >> 8), byte(c.Count >> 16), byte(c.Count >> 24)}
}
func (ModifyHopperBalanceCommand) ParseResponse(payload []byte) (struct{}, error) {
	if len(payload) != 0 {
		return struct{}{}, errDataLengthMismatch(0, len(payload))
	}
	return struct{}{}, nil
}

// PurgeHopperCommand (header 121) empties the hopper into the cashbox,
// bypassing the normal payout path.
type PurgeHopperCommand struct{}

func (PurgeHopperCommand) Header() packet.Header { return packet.HeaderPurgeHopper }
func (PurgeHopperCommand) Data() []byte          { return nil }
func (PurgeHopperCommand) ParseResponse(payload []byte) (struct{}, error) {
	if len(payload) != 0 {
		return struct{}{}, errDataLengthMismatch(0, len(payload))
	}
	return struct{}{}, nil
}
