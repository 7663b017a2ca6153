package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cctalk/cctalk-host/pkg/cctalk/command"
	"github.com/cctalk/cctalk-host/pkg/cctalk/device"
	"github.com/cctalk/cctalk-host/pkg/cctalk/packet"
	"github.com/cctalk/cctalk-host/pkg/cctalk/value"
)

func newCoinCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coin",
		Short: "Inspect or exercise a coin acceptor",
	}
	cmd.AddCommand(newCoinInfoCmd())
	cmd.AddCommand(newCoinAcceptCmd())
	return cmd
}

func openCoinValidator() (device.CoinValidator, error) {
	ct, err := checksumTypeFlag()
	if err != nil {
		return device.CoinValidator{}, err
	}
	tr, err := openTransport()
	if err != nil {
		return device.CoinValidator{}, err
	}
	dev := packet.NewDevice(flagAddress, packet.CategoryCoinAcceptor, ct)
	v := device.NewCoinValidator(dev, tr)
	v.Logger = logrus.NewEntry(logrus.StandardLogger())
	return v, nil
}

func formatCurrencyToken(token value.CurrencyToken) string {
	if token.IsToken {
		return "token"
	}
	return fmt.Sprintf("%.2f %s", token.Currency.MonetaryValue(), token.Currency.CountryCode)
}

func newCoinInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print identity, polling priority, and the configured coin table",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := openCoinValidator()
			if err != nil {
				return err
			}
			defer v.Transport.Close()

			manufacturer, err := device.Send[string](v.Common, command.RequestManufacturerIdCommand{})
			if err != nil {
				return fmt.Errorf("manufacturer id: %w", err)
			}
			product, err := device.Send[string](v.Common, command.RequestProductCodeCommand{})
			if err != nil {
				return fmt.Errorf("product code: %w", err)
			}
			serial, err := device.Send[command.SerialCode](v.Common, command.RequestSerialNumberCommand{})
			if err != nil {
				return fmt.Errorf("serial number: %w", err)
			}
			software, err := device.Send[string](v.Common, command.RequestSoftwareRevisionCommand{})
			if err != nil {
				return fmt.Errorf("software revision: %w", err)
			}
			priority, err := v.PollingPriority()
			if err != nil {
				return fmt.Errorf("polling priority: %w", err)
			}

			fmt.Printf("Manufacturer ID:   %s\n", manufacturer)
			fmt.Printf("Product Code:      %s\n", product)
			fmt.Printf("Serial Number:     %d\n", serial.Value())
			fmt.Printf("Software Revision: %s\n", software)
			fmt.Printf("Polling Priority:  unit=%d value=%d required=%v\n", priority.Unit, priority.Value, priority.Required())

			fmt.Println("Coin Table:")
			for i, token := range v.AllCoinIDs() {
				if token == nil {
					continue
				}
				path, err := v.CoinSorterPath(byte(i))
				if err != nil {
					fmt.Printf("  %2d: %s (sorter path unknown: %v)\n", i, formatCurrencyToken(*token), err)
					continue
				}
				if path.Supported {
					fmt.Printf("  %2d: %s (sorter path %d)\n", i, formatCurrencyToken(*token), path.Path)
				} else {
					fmt.Printf("  %2d: %s (unsorted)\n", i, formatCurrencyToken(*token))
				}
			}
			return nil
		},
	}
}

func newCoinAcceptCmd() *cobra.Command {
	var count uint32
	cmd := &cobra.Command{
		Use:   "accept",
		Short: "Disable inhibits and print credit/error events as they arrive",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := openCoinValidator()
			if err != nil {
				return err
			}
			defer v.Transport.Close()

			if err := v.DisableMasterInhibit(); err != nil {
				return fmt.Errorf("disable master inhibit: %w", err)
			}
			if err := v.SetAllCoinInhibits(false); err != nil {
				return fmt.Errorf("enable all coins: %w", err)
			}

			priority, err := v.PollingPriority()
			if err != nil {
				return fmt.Errorf("polling priority: %w", err)
			}
			interval, ok := priority.AsDuration()
			if !ok {
				interval = 200 * time.Millisecond
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sig
				cancel()
			}()

			fmt.Fprintf(os.Stderr, "accepting coins (unit=%d value=%d); Ctrl-C to stop\n", priority.Unit, priority.Value)

			accepted := uint32(0)
			var lastCounter byte
			for count == 0 || accepted < count {
				select {
				case <-ctx.Done():
					return nil
				default:
				}

				result, err := v.Poll()
				if err != nil {
					fmt.Fprintf(os.Stderr, "poll error: %v\n", err)
					continue
				}
				events, lost, reset := result.NewSince(lastCounter)
				lastCounter = result.EventCounter
				if reset {
					fmt.Println("coin validator reset")
					continue
				}
				if lost {
					fmt.Fprintln(os.Stderr, "events lost between polls")
				}
				for _, ev := range events {
					if ev.IsCredit {
						accepted++
						fmt.Printf("credit %d (sorter path %+v)\n", ev.Credit.Credit, ev.Credit.SorterPath)
					} else {
						fmt.Printf("error: %s\n", ev.Err.Error())
					}
				}

				select {
				case <-ctx.Done():
					return nil
				case <-time.After(interval):
				}
			}
			return nil
		},
	}
	cmd.Flags().Uint32VarP(&count, "count", "c", 0, "number of coins to accept before stopping (0 = infinite)")
	return cmd
}
