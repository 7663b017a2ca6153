package command

import "github.com/cctalk/cctalk-host/pkg/cctalk/packet"

// AddressPollCommand (header 253) is broadcast on a shared bus; every
// attached device that matches the poll replies in turn, each announcing
// its own address. The transport must tolerate several replies to one
// request and pace reads accordingly.
type AddressPollCommand struct{}

func (AddressPollCommand) Header() packet.Header { return packet.HeaderAddressPoll }
func (AddressPollCommand) Data() []byte          { return nil }
func (AddressPollCommand) ParseResponse(payload []byte) (byte, error) {
	if len(payload) != 1 {
		return 0, errDataLengthMismatch(1, len(payload))
	}
	return payload[0], nil
}

// AddressClashCommand (header 252) is broadcast after AddressPoll detects
// two devices sharing an address; each replies with the address it is
// currently clashing on.
type AddressClashCommand struct{}

func (AddressClashCommand) Header() packet.Header { return packet.HeaderAddressClash }
func (AddressClashCommand) Data() []byte          { return nil }
func (AddressClashCommand) ParseResponse(payload []byte) (byte, error) {
	if len(payload) != 1 {
		return 0, errDataLengthMismatch(1, len(payload))
	}
	return payload[0], nil
}

// AddressChangeCommand (header 251) assigns a device a new bus address.
type AddressChangeCommand struct {
	NewAddress byte
}

func (AddressChangeCommand) Header() packet.Header { return packet.HeaderAddressChange }
func (c AddressChangeCommand) Data() []byte         { return []byte{c.NewAddress} }
func (AddressChangeCommand) ParseResponse(payload []byte) (struct{}, error) {
	if len(payload) != 0 {
		return struct{}{}, errDataLengthMismatch(0, len(payload))
	}
	return struct{}{}, nil
}

// AddressRandomCommand (header 250) tells a device to pick a random
// temporary address, used to break address clashes during bus
// enumeration before AddressChange assigns a final one.
type AddressRandomCommand struct{}

func (AddressRandomCommand) Header() packet.Header { return packet.HeaderAddressRandom }
func (AddressRandomCommand) Data() []byte          { return nil }
func (AddressRandomCommand) ParseResponse(payload []byte) (struct{}, error) {
	if len(payload) != 0 {
		return struct{}{}, errDataLengthMismatch(0, len(payload))
	}
	return struct{}{}, nil
}
