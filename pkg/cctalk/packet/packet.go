// Package packet implements the ccTalk wire frame: layout, both checksum
// schemes, and a typed header registry. It has no knowledge of transports
// or command semantics — it only turns a (destination, source, header,
// data) tuple into bytes and back.
package packet

import "fmt"

// Offsets within a serialized frame. The source slot doubles as the CRC-16
// low byte on CRC-16 links; callers that need the logical source address
// must know the checksum mode in use.
const (
	DestinationOffset = 0
	DataLengthOffset  = 1
	SourceOffset      = 2
	HeaderOffset      = 3
	DataOffset        = 4
)

// MaxDataLength is the largest payload a single frame can carry.
const MaxDataLength = 255

// MaxBlockLength is the largest possible serialized frame: 4 header bytes +
// 255 data bytes + 2 checksum bytes (the CRC-16 worst case).
const MaxBlockLength = 4 + MaxDataLength + 2

// Category identifies a device's functional role on the bus. It is read
// from the device (RequestEquipmentCategoryId) rather than negotiated.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryCoinAcceptor
	CategoryPayout
	CategoryReel
	CategoryBillValidator
	CategoryCardReader
	CategoryChanger
	CategoryDisplay
	CategoryKeypad
	CategoryDongle
	CategoryMeter
	CategoryBootloader
	CategoryPower
	CategoryPrinter
	CategoryRNG
	CategoryHopperScale
	CategoryCoinFeeder
	CategoryBillRecycler
	CategoryEscrow
	CategoryDebug
)

var categoryNames = map[Category]string{
	CategoryUnknown:       "Unknown",
	CategoryCoinAcceptor:  "CoinAcceptor",
	CategoryPayout:        "Payout",
	CategoryReel:          "Reel",
	CategoryBillValidator: "BillValidator",
	CategoryCardReader:    "CardReader",
	CategoryChanger:       "Changer",
	CategoryDisplay:       "Display",
	CategoryKeypad:        "Keypad",
	CategoryDongle:        "Dongle",
	CategoryMeter:         "Meter",
	CategoryBootloader:    "Bootloader",
	CategoryPower:         "Power",
	CategoryPrinter:       "Printer",
	CategoryRNG:           "RNG",
	CategoryHopperScale:   "HopperScale",
	CategoryCoinFeeder:    "CoinFeeder",
	CategoryBillRecycler:  "BillRecycler",
	CategoryEscrow:        "Escrow",
	CategoryDebug:         "Debug",
}

func (c Category) String() string {
	if s, ok := categoryNames[c]; ok {
		return s
	}
	return "Unknown"
}

// CategoryFromString resolves a category name as reported by a device's
// RequestEquipmentCategoryId reply. Unrecognised strings resolve to
// CategoryUnknown rather than erroring — category discovery beyond the
// string itself is out of scope.
func CategoryFromString(s string) Category {
	for c, name := range categoryNames {
		if name == s {
			return c
		}
	}
	return CategoryUnknown
}

// AddressRange is a default address together with the range of addresses
// a second device of the same category should try next, for buses that
// carry more than one device of a kind (e.g. two coin acceptors).
type AddressRange struct {
	Default byte
	Lo, Hi  byte
}

// defaultAddresses mirrors the category/address table of the ccTalk
// specification: each category has one well-known default address plus,
// for categories that commonly appear more than once on a bus, a fallback
// range to probe when the default is already taken.
var defaultAddresses = map[Category]AddressRange{
	CategoryCoinAcceptor:  {Default: 2, Lo: 11, Hi: 17},
	CategoryPayout:        {Default: 3, Lo: 4, Hi: 10},
	CategoryReel:          {Default: 30},
	CategoryBillValidator: {Default: 40, Lo: 41, Hi: 47},
	CategoryCardReader:    {Default: 50},
	CategoryChanger:       {Default: 55},
	CategoryDisplay:       {Default: 60},
	CategoryKeypad:        {Default: 65},
	CategoryDongle:        {Default: 70},
	CategoryMeter:         {Default: 72},
	CategoryBootloader:    {Default: 99},
	CategoryPower:         {Default: 75},
	CategoryPrinter:       {Default: 80},
	CategoryRNG:           {Default: 90},
	CategoryHopperScale:   {Default: 33},
	CategoryCoinFeeder:    {Default: 34},
	CategoryBillRecycler:  {Default: 41},
	CategoryEscrow:        {Default: 52},
	CategoryDebug:         {Default: 240, Lo: 241, Hi: 255},
}

// DefaultAddress reports the category's well-known bus address and, if
// non-zero, the range a second device of the same category falls back to.
func (c Category) DefaultAddress() (AddressRange, bool) {
	ar, ok := defaultAddresses[c]
	return ar, ok
}

// Device is the immutable identity of a bus peer: its address, category
// and checksum mode. It is owned by a device state machine for that
// machine's lifetime.
type Device struct {
	Address      byte
	Category     Category
	ChecksumType ChecksumType
}

func NewDevice(address byte, category Category, checksumType ChecksumType) Device {
	return Device{Address: address, Category: category, ChecksumType: checksumType}
}

// HostAddress is the reserved address of the single bus master.
const HostAddress byte = 1

// BroadcastAddress is delivered to every listening device.
const BroadcastAddress byte = 0

// Packet is a decoded ccTalk frame's logical fields. The checksum is
// computed by Serialize and verified by Deserialize; it is not stored
// here.
type Packet struct {
	Destination byte
	Source      byte
	Header      Header
	Data        []byte
}

// ErrBufferOverflow is returned when a payload exceeds MaxDataLength or an
// output buffer is too small to hold the serialized frame.
var ErrBufferOverflow = fmt.Errorf("ccTalk: buffer overflow")

// ErrChecksumMismatch is returned by Deserialize when the computed
// checksum does not match the trailing checksum bytes.
var ErrChecksumMismatch = fmt.Errorf("ccTalk: checksum mismatch")

// ErrFrameTooShort is returned when a buffer is too small to contain even
// the fixed 4-byte header plus checksum.
var ErrFrameTooShort = fmt.Errorf("ccTalk: frame too short")

// ErrDataLengthMismatch is returned when the declared data length field
// does not match the number of data bytes actually present in the buffer.
var ErrDataLengthMismatch = fmt.Errorf("ccTalk: data length field does not match buffer")

// Serialize writes p onto the wire addressed as if originating from dev
// (dev supplies the checksum mode; dev.Address is not used — the caller
// sets Destination/Source on p directly, letting one Device send to many
// peers). It returns the logical frame length actually written into buf.
//
// For CRC-16 links the 16-bit checksum is split across the source slot
// (low byte) and the trailing checksum slot (high byte), per the wire
// format in section 6 of the specification; the logical Source field is
// not transmitted in that slot.
func Serialize(dev Device, p Packet, buf []byte) (int, error) {
	if len(p.Data) > MaxDataLength {
		return 0, ErrBufferOverflow
	}
	logicalLen := DataOffset + len(p.Data)
	checksumLen := 1
	if dev.ChecksumType == ChecksumCRC16 {
		checksumLen = 2
	}
	total := logicalLen + checksumLen
	if len(buf) < total {
		return 0, ErrBufferOverflow
	}

	buf[DestinationOffset] = p.Destination
	buf[DataLengthOffset] = byte(len(p.Data))
	buf[HeaderOffset] = byte(p.Header)
	copy(buf[DataOffset:logicalLen], p.Data)

	switch dev.ChecksumType {
	case ChecksumSimple:
		buf[SourceOffset] = p.Source
		buf[logicalLen] = crc8(buf[:logicalLen])
	case ChecksumCRC16:
		buf[SourceOffset] = 0 // placeholder, overwritten below
		crc := crc16(buf[:logicalLen])
		buf[SourceOffset] = byte(crc)
		buf[logicalLen] = byte(crc >> 8)
	default:
		return 0, ErrBufferOverflow
	}
	return total, nil
}

// Deserialize parses and validates buf as a frame using checksumType,
// returning the decoded Packet. The Source field is populated from the
// wire source slot only for ChecksumSimple; on CRC-16 links that slot is
// checksum material and Source is left at the protocol-mandated host
// address (1), matching the rule that a CRC-16 reply's source slot MUST
// read 1.
func Deserialize(buf []byte, checksumType ChecksumType) (Packet, error) {
	if len(buf) < DataOffset+1 {
		return Packet{}, ErrFrameTooShort
	}
	dataLen := int(buf[DataLengthOffset])
	logicalLen := DataOffset + dataLen
	checksumLen := 1
	if checksumType == ChecksumCRC16 {
		checksumLen = 2
	}
	if len(buf) != logicalLen+checksumLen {
		return Packet{}, ErrDataLengthMismatch
	}

	switch checksumType {
	case ChecksumSimple:
		got := buf[logicalLen]
		want := crc8(buf[:logicalLen])
		if got != want {
			return Packet{}, ErrChecksumMismatch
		}
	case ChecksumCRC16:
		gotLow := buf[SourceOffset]
		gotHigh := buf[logicalLen]
		got := uint16(gotHigh)<<8 | uint16(gotLow)
		want := crc16(buf[:logicalLen])
		if got != want {
			return Packet{}, ErrChecksumMismatch
		}
	default:
		return Packet{}, ErrChecksumMismatch
	}

	header, err := ParseHeader(buf[HeaderOffset])
	if err != nil {
		return Packet{}, err
	}

	data := make([]byte, dataLen)
	copy(data, buf[DataOffset:logicalLen])

	source := buf[SourceOffset]
	if checksumType == ChecksumCRC16 {
		source = HostAddress
	}

	return Packet{
		Destination: buf[DestinationOffset],
		Source:      source,
		Header:      header,
		Data:        data,
	}, nil
}
