// Package transport arbitrates a single ccTalk serial link: every
// in-flight request is serialized through one goroutine so that the
// half-duplex request/reply discipline ccTalk demands is never violated
// by concurrent callers.
package transport

import (
	"io"
	"time"
)

// Link is the minimal transport a ccTalk bus runs over: a byte stream
// plus an optional read deadline, satisfied by *SerialLink (an adapter
// over *serial.Port) on a real RS232/RS485 link, a net.Conn for a Unix-socket bridge, or an in-memory
// pipe in tests.
type Link interface {
	io.ReadWriter
	io.Closer
	SetReadDeadline(t time.Time) error
}
