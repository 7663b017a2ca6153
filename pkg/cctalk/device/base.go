// Package device implements the per-category ccTalk device drivers
// (coin validator, bill validator, payout/hopper) layered over
// pkg/cctalk/transport: typed request/response methods, inhibit and
// sorter configuration, and lease-guarded background event polling.
package device

import (
	"github.com/cctalk/cctalk-host/pkg/cctalk/command"
	"github.com/cctalk/cctalk-host/pkg/cctalk/packet"
	"github.com/cctalk/cctalk-host/pkg/cctalk/transport"
	"github.com/sirupsen/logrus"
)

// Common is the shared base every device driver embeds: the device's
// wire identity and the transport it is reached through. It carries no
// per-category state, so it is safe to embed by value.
type Common struct {
	Device    packet.Device
	Transport *transport.Transport
	Logger    *logrus.Entry
}

func (c Common) logEntry() *logrus.Entry {
	if c.Logger != nil {
		return c.Logger
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// Send performs one request/reply exchange against c's device and
// decodes the reply through cmd. Go methods cannot carry their own type
// parameter, so this is a free function rather than a Common method —
// the idiomatic substitute for Rust's `Command` associated-type trait
// bound used throughout cc_talk_tokio_host/src/device/base.rs.
func Send[T any](c Common, cmd command.Typed[T]) (T, error) {
	var zero T
	data, err := c.Transport.Send(transport.Request{
		Address:      c.Device.Address,
		ChecksumType: c.Device.ChecksumType,
		Header:       cmd.Header(),
		Data:         cmd.Data(),
	})
	if err != nil {
		return zero, err
	}
	return cmd.ParseResponse(data)
}

// SimplePoll sends the cheapest possible liveness check and reports
// whether the device answered.
func (c Common) SimplePoll() error {
	_, err := Send[struct{}](c, command.SimplePollCommand{})
	return err
}

// ResetDevice asks the device to perform a software reset.
func (c Common) ResetDevice() error {
	_, err := Send[struct{}](c, command.ResetDeviceCommand{})
	return err
}

// PollingError reports why TryBackgroundPolling could not start a
// background polling loop.
type PollingError struct {
	Reason string
}

func (e PollingError) Error() string { return "cctalk device: " + e.Reason }

// ErrAlreadyLeased is returned by TryBackgroundPolling when background
// polling is already running on this device handle or a clone of it.
var ErrAlreadyLeased error = PollingError{Reason: "background polling is already leased"}

// polling is the shared mutex-guarded lease every device driver embeds
// to serialize TryBackgroundPolling calls across clones of the same
// handle, mirroring the Rust drivers' Arc<Mutex<bool>> lease guard.
type polling struct {
	mu     chan struct{} // 1-buffered binary semaphore
	leased *bool
}

func newPolling() polling {
	leased := false
	p := polling{mu: make(chan struct{}, 1), leased: &leased}
	p.mu <- struct{}{}
	return p
}

// tryAcquire atomically checks-and-sets the lease, returning false if
// already held.
func (p polling) tryAcquire() bool {
	<-p.mu
	defer func() { p.mu <- struct{}{} }()
	if *p.leased {
		return false
	}
	*p.leased = true
	return true
}

func (p polling) release() {
	<-p.mu
	*p.leased = false
	p.mu <- struct{}{}
}

// StopFunc stops a background polling loop started by TryBackgroundPolling
// and releases its lease. Safe to call more than once.
type StopFunc func()

// PollResult carries one background poll's outcome: either a decoded
// poll reply (Err nil) or the error that poll attempt returned.
type PollResult[T any] struct {
	Value T
	Err   error
}
