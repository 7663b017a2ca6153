// Package command implements the ccTalk command registry: typed request
// builders and response parsers layered over pkg/cctalk/packet, grouped
// into the ccTalk command sets (Core, Core+, Device, MultiDrop, Hopper,
// Validator).
package command

import (
	"fmt"

	"github.com/cctalk/cctalk-host/pkg/cctalk/packet"
)

// Command is the header/request-payload half of a ccTalk command: enough
// to build and send a request, independent of how its response is parsed.
type Command interface {
	Header() packet.Header
	Data() []byte
}

// Typed is a Command whose response payload decodes to a concrete Go
// type. Most commands implement this; a handful (the encryption stubs)
// implement only Command and refuse to parse any response.
type Typed[T any] interface {
	Command
	ParseResponse(payload []byte) (T, error)
}

// ParseResponseError is returned by a Typed command's ParseResponse when
// the response payload does not match what the command expects.
type ParseResponseError struct {
	// Expected/Got are set for fixed-length payloads; both zero means the
	// mismatch was not a simple length check (see Reason).
	Expected, Got int
	Reason        string
}

func (e ParseResponseError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("ccTalk: parse response: %s", e.Reason)
	}
	return fmt.Sprintf("ccTalk: parse response: expected %d bytes, got %d", e.Expected, e.Got)
}

func errDataLengthMismatch(expected, got int) error {
	return ParseResponseError{Expected: expected, Got: got}
}

// ErrUnsupportedCommand is returned by commands whose response parsing is
// not implemented — currently the Diffie-Hellman/encryption command
// family, which the specification places out of scope but whose headers
// must still round-trip through the closed Header enum.
var ErrUnsupportedCommand = fmt.Errorf("ccTalk: command not supported")

// CommandSet names a related group of commands and which device
// categories may receive them.
type CommandSet interface {
	Name() string
	IsCompatibleWith(category packet.Category) bool
}

type commandSet struct {
	name       string
	compatible func(packet.Category) bool
}

func (s commandSet) Name() string { return s.name }
func (s commandSet) IsCompatibleWith(c packet.Category) bool { return s.compatible(c) }

// CoreCommandSet commands are valid against every device category.
var CoreCommandSet CommandSet = commandSet{
	name:       "Core",
	compatible: func(packet.Category) bool { return true },
}

// CorePlusCommandSet extends Core with identity/data-storage commands;
// also universally compatible.
var CorePlusCommandSet CommandSet = commandSet{
	name:       "Core+",
	compatible: func(packet.Category) bool { return true },
}

// HopperCommandSet commands only make sense against payout-role devices.
var HopperCommandSet CommandSet = commandSet{
	name: "Hopper",
	compatible: func(c packet.Category) bool {
		return c == packet.CategoryPayout || c == packet.CategoryHopperScale || c == packet.CategoryCoinFeeder
	},
}

// ValidatorCommandSet commands make sense against coin and bill validators.
var ValidatorCommandSet CommandSet = commandSet{
	name: "Validator",
	compatible: func(c packet.Category) bool {
		return c == packet.CategoryCoinAcceptor || c == packet.CategoryBillValidator
	},
}

// MultiDropCommandSet commands manage bus addressing on shared links.
var MultiDropCommandSet CommandSet = commandSet{
	name:       "MultiDrop",
	compatible: func(packet.Category) bool { return true },
}

func asciiFrom(payload []byte) (string, bool) {
	for _, b := range payload {
		if b > 0x7f {
			return "", false
		}
	}
	return string(payload), true
}
