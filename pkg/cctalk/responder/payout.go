// Package responder implements the peripheral side of a ccTalk bus: a
// dispatcher that turns incoming request packets into replies by
// delegating to an injected hardware (or simulated-hardware)
// implementation. It is the mirror image of the device package, which
// drives a peripheral from the host side.
package responder

import (
	"context"
	"errors"
	"io"

	"github.com/cctalk/cctalk-host/pkg/cctalk/packet"
	"github.com/cctalk/cctalk-host/pkg/cctalk/transport"
	"github.com/cctalk/cctalk-host/pkg/cctalk/value"
)

// enableMagicByte is the payload convention ccTalk uses for EnableHopper:
// 0xA5 means enable, anything else means disable.
const enableMagicByte = 0xA5

// PayoutImplementation is the hardware (or simulator) surface a
// PayoutResponder dispatches onto. Every method is infallible from the
// bus's point of view — a hopper that cannot honour a request still
// returns some value, and reports faults through PayoutStatus/TestHopper
// rather than a Go error, matching the wire protocol's own lack of a
// distinct failure reply beyond NACK.
type PayoutImplementation interface {
	// IsForMe reports whether destination addresses this device,
	// allowing one implementation to answer for several addresses
	// (or for the broadcast address) if it chooses to.
	IsForMe(destination byte) bool

	ManufacturerAbbreviation() string
	ProductCode() string
	SoftwareRevision() string
	BuildCode() string

	// SerialNumber returns the three wire bytes fix, minor, major (in
	// that transmission order), matching RequestSerialNumber's reply.
	SerialNumber() (fix, minor, major byte)

	DataStorageAvailability() [5]byte

	PayoutStatus() value.HopperDispenseStatus
	HopperLevelStatus() value.HopperStatus

	// HopperCoin returns the ccTalk value string (e.g. "EU100A") for
	// the denomination this hopper dispenses.
	HopperCoin() string

	// HopperDispenseCount returns the 3-byte little-endian running
	// dispense count.
	HopperDispenseCount() (low, mid, high byte)

	EmergencyStop()
	DispenseHopperCoins(count byte)
	EnableHopper(enable bool)

	// Test runs the hopper's self-test and returns its three result
	// registers.
	Test() (register1, register2, register3 byte)

	CommsRevision() (major, minor, patch byte)
	Reset()
}

// PayoutResponder dispatches incoming ccTalk packets addressed to one
// hopper onto a PayoutImplementation, producing the matching reply.
type PayoutResponder struct {
	address      byte
	checksumType packet.ChecksumType
	impl         PayoutImplementation
}

// NewPayoutResponder builds a responder that answers as address on a
// link using checksumType, delegating to impl.
func NewPayoutResponder(address byte, checksumType packet.ChecksumType, impl PayoutImplementation) *PayoutResponder {
	return &PayoutResponder{address: address, checksumType: checksumType, impl: impl}
}

// Dispatch decodes one request packet and returns the reply packet to
// send back, or ok=false if the packet was not addressed to this
// responder's implementation and should be silently dropped (another
// peripheral on the bus will answer it instead).
func (d *PayoutResponder) Dispatch(request packet.Packet) (reply packet.Packet, ok bool) {
	if !d.impl.IsForMe(request.Destination) {
		return packet.Packet{}, false
	}

	returnAddress := request.Source
	if d.checksumType == packet.ChecksumCRC16 {
		returnAddress = packet.HostAddress
	}

	respond := func(header packet.Header, data []byte) (packet.Packet, bool) {
		return packet.Packet{Destination: returnAddress, Source: d.address, Header: header, Data: data}, true
	}
	nack := func() (packet.Packet, bool) { return respond(packet.HeaderNAK, nil) }

	switch request.Header {
	case packet.HeaderSimplePoll:
		return respond(packet.HeaderReply, nil)

	case packet.HeaderRequestManufacturerId:
		return respond(packet.HeaderReply, []byte(d.impl.ManufacturerAbbreviation()))

	case packet.HeaderRequestEquipementCategoryId:
		return respond(packet.HeaderReply, []byte(packet.CategoryPayout.String()))

	case packet.HeaderRequestProductCode:
		return respond(packet.HeaderReply, []byte(d.impl.ProductCode()))

	case packet.HeaderRequestSerialNumber:
		fix, minor, major := d.impl.SerialNumber()
		return respond(packet.HeaderReply, []byte{fix, minor, major})

	case packet.HeaderRequestSoftwareRevision:
		return respond(packet.HeaderReply, []byte(d.impl.SoftwareRevision()))

	case packet.HeaderRequestPayoutStatus:
		status := d.impl.PayoutStatus().Bytes()
		return respond(packet.HeaderReply, status[:])

	case packet.HeaderRequestDataStorageAvailability:
		storage := d.impl.DataStorageAvailability()
		return respond(packet.HeaderReply, storage[:])

	case packet.HeaderRequestBuildCode:
		return respond(packet.HeaderReply, []byte(d.impl.BuildCode()))

	case packet.HeaderEmergencyStop:
		d.impl.EmergencyStop()
		return respond(packet.HeaderReply, nil)

	case packet.HeaderRequestHopperCoin:
		return respond(packet.HeaderReply, []byte(d.impl.HopperCoin()))

	case packet.HeaderRequestHopperDispenseCount:
		low, mid, high := d.impl.HopperDispenseCount()
		return respond(packet.HeaderReply, []byte{low, mid, high})

	case packet.HeaderDispenseHopperCoins:
		if len(request.Data) == 0 {
			return nack()
		}
		count := request.Data[len(request.Data)-1]
		if count == 0 {
			return nack()
		}
		status := d.impl.PayoutStatus()
		d.impl.DispenseHopperCoins(count)
		return respond(packet.HeaderReply, []byte{status.EventCounter})

	// RequestHopperStatus (166) reports the level-sensor byte, distinct
	// from RequestPayoutStatus (217)'s 4-byte dispense-progress report.
	case packet.HeaderRequestHopperStatus:
		return respond(packet.HeaderReply, []byte{d.impl.HopperLevelStatus().Byte()})

	case packet.HeaderEnableHopper:
		if len(request.Data) == 0 {
			return nack()
		}
		d.impl.EnableHopper(request.Data[0] == enableMagicByte)
		return respond(packet.HeaderReply, nil)

	case packet.HeaderTestHopper:
		r1, r2, r3 := d.impl.Test()
		return respond(packet.HeaderReply, []byte{r1, r2, r3})

	case packet.HeaderRequestCommsRevision:
		major, minor, patch := d.impl.CommsRevision()
		return respond(packet.HeaderReply, []byte{major, minor, patch})

	case packet.HeaderResetDevice:
		d.impl.Reset()
		return respond(packet.HeaderReply, nil)

	default:
		return nack()
	}
}

// readFrame reads one complete ccTalk frame from r: the fixed 4-byte
// header, then exactly as many data and checksum bytes as the header
// declares.
func readFrame(r io.Reader, checksumType packet.ChecksumType) ([]byte, error) {
	head := make([]byte, packet.DataOffset)
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, err
	}

	dataLen := int(head[packet.DataLengthOffset])
	checksumLen := 1
	if checksumType == packet.ChecksumCRC16 {
		checksumLen = 2
	}

	rest := make([]byte, dataLen+checksumLen)
	if _, err := io.ReadFull(r, rest); err != nil {
		return nil, err
	}
	return append(head, rest...), nil
}

// Serve reads request frames from link until ctx is cancelled or the
// link closes, dispatching each to responder and writing back whatever
// reply it produces. Frames that fail to deserialize (a corrupted or
// foreign-checksum frame) are dropped rather than treated as fatal, and
// packets Dispatch reports as not-for-me are silently ignored — both
// are routine on a shared bus with more than one peripheral listening.
func Serve(ctx context.Context, link transport.Link, dev packet.Device, responder *PayoutResponder) error {
	buf := make([]byte, packet.MaxBlockLength)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		frame, err := readFrame(link, dev.ChecksumType)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		request, err := packet.Deserialize(frame, dev.ChecksumType)
		if err != nil {
			continue
		}

		reply, ok := responder.Dispatch(request)
		if !ok {
			continue
		}

		n, err := packet.Serialize(dev, reply, buf)
		if err != nil {
			return err
		}
		if _, err := link.Write(buf[:n]); err != nil {
			return err
		}
	}
}
