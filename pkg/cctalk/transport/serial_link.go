package transport

import (
	"fmt"
	"time"

	"github.com/cctalk/cctalk-host/serial"
)

// baudRates maps the plain integers operators write in cctalkd.yaml to
// the termios speed constants serial.Termios.SetSpeed expects. ccTalk
// links run at one of a handful of conventional rates; unlisted values
// are rejected rather than silently rounded to the nearest one.
var baudRates = map[int]serial.CFlag{
	2400:   serial.B2400,
	4800:   serial.B4800,
	9600:   serial.B9600,
	19200:  serial.B19200,
	38400:  serial.B38400,
	57600:  serial.B57600,
	115200: serial.B115200,
}

// SerialLink opens a real RS232/RS485 ccTalk link and adapts
// *serial.Port's polling-driven read API to the deadline-based Link
// interface Transport expects.
type SerialLink struct {
	port *serial.Port
}

// OpenSerialLink opens device in raw mode at baud and returns a Link
// ready to hand to transport.New. baud must be one of the rates in
// baudRates.
func OpenSerialLink(device string, baud int) (*SerialLink, error) {
	speed, ok := baudRates[baud]
	if !ok {
		return nil, fmt.Errorf("transport: unsupported baud rate %d", baud)
	}

	port, err := serial.Open(device, serial.NewOptions().SetReadTimeout(0))
	if err != nil {
		return nil, fmt.Errorf("transport: opening %s: %w", device, err)
	}

	attrs, err := port.GetAttr()
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("transport: reading termios for %s: %w", device, err)
	}
	attrs.MakeRaw()
	attrs.SetSpeed(speed)
	attrs.Cflag |= serial.CREAD | serial.CLOCAL
	if err := port.SetAttr(serial.TCSANOW, attrs); err != nil {
		port.Close()
		return nil, fmt.Errorf("transport: applying termios for %s: %w", device, err)
	}

	return &SerialLink{port: port}, nil
}

// WrapPort adapts an already-open *serial.Port (e.g. one side of a
// serial.OpenPTY pair) to the Link interface without touching its
// termios or read-timeout settings, which callers that open their own
// ports (pty or otherwise) are expected to have configured themselves.
func WrapPort(port *serial.Port) *SerialLink {
	return &SerialLink{port: port}
}

func (s *SerialLink) Read(p []byte) (int, error)  { return s.port.Read(p) }
func (s *SerialLink) Write(p []byte) (int, error) { return s.port.Write(p) }
func (s *SerialLink) Close() error                { return s.port.Close() }

// SetReadDeadline converts t into the timeout serial.Port's polling
// read loop understands. A deadline already in the past yields a
// zero-duration (non-blocking) read, matching net.Conn's convention of
// timing out immediately rather than erroring.
func (s *SerialLink) SetReadDeadline(t time.Time) error {
	d := time.Until(t)
	if d < 0 {
		d = 0
	}
	s.port.SetReadTimeout(d)
	return nil
}
