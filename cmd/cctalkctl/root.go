package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cctalk/cctalk-host/pkg/cctalk/packet"
	"github.com/cctalk/cctalk-host/pkg/cctalk/transport"
)

var (
	flagDevice   string
	flagBaud     int
	flagChecksum string
	flagTimeout  time.Duration
	flagAddress  uint8
)

var rootCmd = &cobra.Command{
	Use:   "cctalkctl",
	Short: "Operator CLI for a single ccTalk peripheral",
	Long: `cctalkctl talks to one ccTalk peripheral at a time over a serial
link it opens for itself. It does not coordinate with cctalkd — point it
at the same device file the daemon uses and the two will contend for the
bus, so stop the daemon first.`,
}

// Execute runs the root command, turning any panic that escapes a
// subcommand into a one-line error instead of a stack trace.
func Execute() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "cctalkctl: %v\n", r)
			os.Exit(1)
		}
	}()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDevice, "device", "/dev/ttyUSB0", "serial device path")
	rootCmd.PersistentFlags().IntVar(&flagBaud, "baud", 9600, "baud rate")
	rootCmd.PersistentFlags().StringVar(&flagChecksum, "checksum", "simple", `checksum type: "simple" or "crc16"`)
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 500*time.Millisecond, "per-request read timeout")
	rootCmd.PersistentFlags().Uint8Var(&flagAddress, "address", 2, "bus address of the target device")

	rootCmd.AddCommand(newCoinCmd())
	rootCmd.AddCommand(newHopperCmd())
	rootCmd.AddCommand(newSimulateCmd())
}

func checksumTypeFlag() (packet.ChecksumType, error) {
	switch flagChecksum {
	case "simple":
		return packet.ChecksumSimple, nil
	case "crc16":
		return packet.ChecksumCRC16, nil
	default:
		return 0, fmt.Errorf("unknown checksum type %q", flagChecksum)
	}
}

// openTransport opens the configured serial device and wraps it in a
// Transport with retries disabled: a one-shot CLI invocation would rather
// fail fast and let the operator re-run than silently retry in a loop.
func openTransport() (*transport.Transport, error) {
	link, err := transport.OpenSerialLink(flagDevice, flagBaud)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", flagDevice, err)
	}
	tr := transport.New(link, flagTimeout, 0, transport.RetryConfig{})
	tr.Logger = logrus.NewEntry(logrus.StandardLogger())
	return tr, nil
}
