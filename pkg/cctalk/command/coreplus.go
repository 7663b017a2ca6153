package command

import (
	"fmt"

	"github.com/cctalk/cctalk-host/pkg/cctalk/packet"
)

// RequestCommsRevisionCommand (header 4) returns the three-part ccTalk
// protocol/product/interface revision numbers a device implements.
type RequestCommsRevisionCommand struct{}

type CommsRevision struct {
	Release, Major, Minor byte
}

func (RequestCommsRevisionCommand) Header() packet.Header {
	return packet.HeaderRequestCommsRevision
}
func (RequestCommsRevisionCommand) Data() []byte { return nil }
func (RequestCommsRevisionCommand) ParseResponse(payload []byte) (CommsRevision, error) {
	if len(payload) != 3 {
		return CommsRevision{}, errDataLengthMismatch(3, len(payload))
	}
	return CommsRevision{Release: payload[0], Major: payload[1], Minor: payload[2]}, nil
}

// RequestDataStorageAvailabilityCommand (header 216) reports how many
// data blocks of what width a device exposes via ReadDataBlock/
// WriteDataBlock.
type RequestDataStorageAvailabilityCommand struct{}

type DataStorageAvailability struct {
	BlockCount int
	BlockWidth int
}

func (RequestDataStorageAvailabilityCommand) Header() packet.Header {
	return packet.HeaderRequestDataStorageAvailability
}
func (RequestDataStorageAvailabilityCommand) Data() []byte { return nil }
func (RequestDataStorageAvailabilityCommand) ParseResponse(payload []byte) (DataStorageAvailability, error) {
	if len(payload) != 2 {
		return DataStorageAvailability{}, errDataLengthMismatch(2, len(payload))
	}
	return DataStorageAvailability{BlockCount: int(payload[0]), BlockWidth: int(payload[1])}, nil
}

// RequestOptionFlagsCommand (header 213) reads a device's option-flag
// register (e.g. multi-drop bus capability, bill recycling support).
type RequestOptionFlagsCommand struct{}

func (RequestOptionFlagsCommand) Header() packet.Header { return packet.HeaderRequestOptionFlags }
func (RequestOptionFlagsCommand) Data() []byte          { return nil }
func (RequestOptionFlagsCommand) ParseResponse(payload []byte) (byte, error) {
	if len(payload) != 1 {
		return 0, errDataLengthMismatch(1, len(payload))
	}
	return payload[0], nil
}

// errEncryptionUnsupported backs every Diffie-Hellman/ACMI command stub:
// the specification places key-exchange and encrypted-channel transport
// out of scope, but the headers remain valid wire values that must still
// round-trip through ParseHeader.
var errEncryptionUnsupported = fmt.Errorf("%w: encrypted channel commands are not supported", ErrUnsupportedCommand)

// RequestEncryptionSupportCommand (header 111) is implemented only far
// enough to be sent and to recognize its own header; parsing the reply
// is refused since no encrypted session ever follows.
type RequestEncryptionSupportCommand struct{}

func (RequestEncryptionSupportCommand) Header() packet.Header {
	return packet.HeaderRequestEncryptionSupport
}
func (RequestEncryptionSupportCommand) Data() []byte { return nil }
func (RequestEncryptionSupportCommand) ParseResponse(payload []byte) (struct{}, error) {
	return struct{}{}, ErrUnsupportedCommand
}

// SendDHPKCommand (header 234) and ReadDHPKCommand (header 235) carry
// Diffie-Hellman public key material for ccTalk's encrypted channel
// handshake; neither is implemented beyond header identity.
type SendDHPKCommand struct{ Key []byte }

func (SendDHPKCommand) Header() packet.Header { return packet.HeaderSendDHPK }
func (c SendDHPKCommand) Data() []byte         { return c.Key }
func (SendDHPKCommand) ParseResponse(payload []byte) (struct{}, error) {
	return struct{}{}, errEncryptionUnsupported
}

type ReadDHPKCommand struct{}

func (ReadDHPKCommand) Header() packet.Header { return packet.HeaderReadDHPK }
func (ReadDHPKCommand) Data() []byte          { return nil }
func (ReadDHPKCommand) ParseResponse(payload []byte) ([]byte, error) {
	return nil, errEncryptionUnsupported
}

// SwitchEncryptionKeyCommand (header 110) selects an encrypted session
// key; refused for the same reason as the DHPK exchange commands.
type SwitchEncryptionKeyCommand struct{ KeyIndex byte }

func (SwitchEncryptionKeyCommand) Header() packet.Header { return packet.HeaderSwitchEncryptionKey }
func (c SwitchEncryptionKeyCommand) Data() []byte         { return []byte{c.KeyIndex} }
func (SwitchEncryptionKeyCommand) ParseResponse(payload []byte) (struct{}, error) {
	return struct{}{}, errEncryptionUnsupported
}
