package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cctalk/cctalk-host/pkg/cctalk/packet"
	"github.com/cctalk/cctalk-host/pkg/cctalk/responder"
	"github.com/cctalk/cctalk-host/pkg/cctalk/transport"
	"github.com/cctalk/cctalk-host/pkg/cctalk/value"
	"github.com/cctalk/cctalk-host/serial"
)

// simulatedHopper is a minimal in-memory responder.PayoutImplementation
// an operator can point real host-side tooling at without any hardware,
// over the pty pair OpenPTY creates.
type simulatedHopper struct {
	mu sync.Mutex

	address byte
	coin    string
	balance uint32
	status  value.HopperDispenseStatus
	level   value.HopperStatus
	enabled bool
}

func (s *simulatedHopper) IsForMe(destination byte) bool { return destination == s.address }
func (s *simulatedHopper) ManufacturerAbbreviation() string { return "SIM" }
func (s *simulatedHopper) ProductCode() string              { return "cctalkctl-simulate" }
func (s *simulatedHopper) SoftwareRevision() string          { return "1.0" }
func (s *simulatedHopper) BuildCode() string                 { return "dev" }
func (s *simulatedHopper) SerialNumber() (fix, minor, major byte) { return 1, 0, 0 }
func (s *simulatedHopper) DataStorageAvailability() [5]byte       { return [5]byte{} }
func (s *simulatedHopper) HopperCoin() string                     { return s.coin }
func (s *simulatedHopper) HopperDispenseCount() (low, mid, high byte) { return 0, 0, 0 }
func (s *simulatedHopper) CommsRevision() (major, minor, patch byte)  { return 1, 0, 0 }

func (s *simulatedHopper) PayoutStatus() value.HopperDispenseStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *simulatedHopper) HopperLevelStatus() value.HopperStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

func (s *simulatedHopper) EmergencyStop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Println("simulate: emergency stop received")
	s.status.CoinsRemaining = 0
}

func (s *simulatedHopper) DispenseHopperCoins(count byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Printf("simulate: dispensing %d coins\n", count)
	s.status.EventCounter = s.status.NextEventCounter()
	s.status.CoinsRemaining = 0
	s.status.Paid = count
	s.status.Unpaid = 0
	if s.balance > uint32(count) {
		s.balance -= uint32(count)
	} else {
		s.balance = 0
	}
}

func (s *simulatedHopper) EnableHopper(enable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enable
	fmt.Printf("simulate: hopper enabled=%v\n", enable)
}

func (s *simulatedHopper) Test() (register1, register2, register3 byte) { return 0, 0, 0 }
func (s *simulatedHopper) Reset() {
	fmt.Println("simulate: reset received")
}

func newSimulateCmd() *cobra.Command {
	var coin string
	var balance uint32
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a simulated hopper over a pseudoterminal for testing host tooling without hardware",
		Long: `simulate opens a pty pair, answers ccTalk requests addressed to
--address as a fake hopper on one side, and prints the other side's
device path so other tools (including another invocation of cctalkctl
--device <path>) can be pointed at it instead of a real serial port.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ct, err := checksumTypeFlag()
			if err != nil {
				return err
			}

			master, slave, err := serial.OpenPTY(nil, nil)
			if err != nil {
				return fmt.Errorf("opening pty: %w", err)
			}
			defer master.Close()
			defer slave.Close()

			slavePath, err := master.PTSName()
			if err != nil {
				return fmt.Errorf("reading pty slave path: %w", err)
			}
			fmt.Printf("simulated hopper at address %d listening; point other tooling at %s\n", flagAddress, slavePath)

			impl := &simulatedHopper{address: flagAddress, coin: coin, balance: balance}
			dev := packet.NewDevice(flagAddress, packet.CategoryPayout, ct)
			responderInstance := responder.NewPayoutResponder(flagAddress, ct, impl)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sig
				cancel()
			}()

			link := transport.WrapPort(master)
			if err := responder.Serve(ctx, link, dev, responderInstance); err != nil && ctx.Err() == nil {
				return fmt.Errorf("simulate: serve: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&coin, "coin", "EU0100A", "ccTalk coin value string this simulated hopper dispenses")
	cmd.Flags().Uint32Var(&balance, "balance", 100, "starting simulated coin balance")
	return cmd
}
