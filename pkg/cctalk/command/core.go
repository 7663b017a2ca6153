package command

import (
	"strings"

	"github.com/cctalk/cctalk-host/pkg/cctalk/packet"
)

// SimplePollCommand (header 254) expects an empty reply payload; it is the
// cheapest possible liveness check and the one every category accepts.
type SimplePollCommand struct{}

func (SimplePollCommand) Header() packet.Header { return packet.HeaderSimplePoll }
func (SimplePollCommand) Data() []byte          { return nil }
func (SimplePollCommand) ParseResponse(payload []byte) (struct{}, error) {
	if len(payload) != 0 {
		return struct{}{}, errDataLengthMismatch(0, len(payload))
	}
	return struct{}{}, nil
}

// ResetDeviceCommand (header 1) asks the device to perform a software
// reset. Devices typically NAK or go silent for a recovery interval
// rather than replying normally.
type ResetDeviceCommand struct{}

func (ResetDeviceCommand) Header() packet.Header { return packet.HeaderResetDevice }
func (ResetDeviceCommand) Data() []byte          { return nil }
func (ResetDeviceCommand) ParseResponse(payload []byte) (struct{}, error) {
	if len(payload) != 0 {
		return struct{}{}, errDataLengthMismatch(0, len(payload))
	}
	return struct{}{}, nil
}

// RequestManufacturerIdCommand (header 246) returns the manufacturer's
// identity as a trimmed ASCII string.
type RequestManufacturerIdCommand struct{}

func (RequestManufacturerIdCommand) Header() packet.Header {
	return packet.HeaderRequestManufacturerId
}
func (RequestManufacturerIdCommand) Data() []byte { return nil }
func (RequestManufacturerIdCommand) ParseResponse(payload []byte) (string, error) {
	s, ok := asciiFrom(payload)
	if !ok {
		return "", ParseResponseError{Reason: "invalid ASCII manufacturer id"}
	}
	return strings.TrimSpace(s), nil
}

// RequestEquipmentCategoryIdCommand (header 245) returns the device's
// category, decoded from its ASCII category name.
type RequestEquipmentCategoryIdCommand struct{}

func (RequestEquipmentCategoryIdCommand) Header() packet.Header {
	return packet.HeaderRequestEquipementCategoryId
}
func (RequestEquipmentCategoryIdCommand) Data() []byte { return nil }
func (RequestEquipmentCategoryIdCommand) ParseResponse(payload []byte) (packet.Category, error) {
	s, ok := asciiFrom(payload)
	if !ok {
		return packet.CategoryUnknown, ParseResponseError{Reason: "invalid ASCII category id"}
	}
	return packet.CategoryFromString(strings.TrimSpace(s)), nil
}

// RequestProductCodeCommand (header 244) returns an implementation-defined
// ASCII product code; only ASCII validity is checked here, the specific
// cast to a richer type is left to the caller.
type RequestProductCodeCommand struct{}

func (RequestProductCodeCommand) Header() packet.Header { return packet.HeaderRequestProductCode }
func (RequestProductCodeCommand) Data() []byte          { return nil }
func (RequestProductCodeCommand) ParseResponse(payload []byte) (string, error) {
	s, ok := asciiFrom(payload)
	if !ok {
		return "", ParseResponseError{Reason: "invalid ASCII product code"}
	}
	return s, nil
}

// SerialCode is a manufacturer-assigned serial number, wire-order LSB
// first (byte 0) to MSB (byte 2).
type SerialCode struct {
	MSB, Mid, LSB byte
}

// Value reassembles the three bytes into a single integer.
func (s SerialCode) Value() uint32 {
	return uint32(s.MSB)<<16 | uint32(s.Mid)<<8 | uint32(s.LSB)
}

// RequestSerialNumberCommand (header 242) returns the device's 3-byte
// serial number.
type RequestSerialNumberCommand struct{}

func (RequestSerialNumberCommand) Header() packet.Header { return packet.HeaderRequestSerialNumber }
func (RequestSerialNumberCommand) Data() []byte          { return nil }
func (RequestSerialNumberCommand) ParseResponse(payload []byte) (SerialCode, error) {
	if len(payload) != 3 {
		return SerialCode{}, errDataLengthMismatch(3, len(payload))
	}
	return SerialCode{LSB: payload[0], Mid: payload[1], MSB: payload[2]}, nil
}

// RequestSoftwareRevisionCommand (header 241) returns an ASCII software
// revision string.
type RequestSoftwareRevisionCommand struct{}

func (RequestSoftwareRevisionCommand) Header() packet.Header {
	return packet.HeaderRequestSoftwareRevision
}
func (RequestSoftwareRevisionCommand) Data() []byte { return nil }
func (RequestSoftwareRevisionCommand) ParseResponse(payload []byte) (string, error) {
	s, ok := asciiFrom(payload)
	if !ok {
		return "", ParseResponseError{Reason: "invalid ASCII software revision"}
	}
	return s, nil
}
