package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cctalk/cctalk-host/pkg/cctalk/command"
	"github.com/cctalk/cctalk-host/pkg/cctalk/device"
	"github.com/cctalk/cctalk-host/pkg/cctalk/packet"
)

const defaultHopperRegisterCount = 2

func newHopperCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hopper",
		Short: "Inspect or exercise a payout hopper",
	}
	cmd.AddCommand(newHopperPollCmd())
	cmd.AddCommand(newHopperDispenseCmd())
	cmd.AddCommand(newHopperInfoCmd())
	return cmd
}

func openHopper() (device.PayoutDevice, error) {
	ct, err := checksumTypeFlag()
	if err != nil {
		return device.PayoutDevice{}, err
	}
	tr, err := openTransport()
	if err != nil {
		return device.PayoutDevice{}, err
	}
	dev := packet.NewDevice(flagAddress, packet.CategoryPayout, ct)
	h := device.NewPayoutDevice(dev, tr, defaultHopperRegisterCount)
	h.Logger = logrus.NewEntry(logrus.StandardLogger())
	return h, nil
}

func newHopperPollCmd() *cobra.Command {
	var repeat int
	var infinite bool
	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Simple-poll the hopper to check it is online",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := openHopper()
			if err != nil {
				return err
			}
			defer h.Transport.Close()

			for i := 0; infinite || i < repeat; i++ {
				if err := h.SimplePoll(); err != nil {
					fmt.Printf("simple_poll failed: %v\n", err)
				} else {
					fmt.Println("simple_poll succeeded")
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&repeat, "repeat", "r", 1, "number of polls to send")
	cmd.Flags().BoolVarP(&infinite, "infinite", "i", false, "poll forever (ignores --repeat)")
	return cmd
}

func newHopperDispenseCmd() *cobra.Command {
	var repeat int
	var pollInterval time.Duration
	cmd := &cobra.Command{
		Use:   "dispense <amount>",
		Short: "Dispense amount coins from the hopper, printing status until complete",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var amount uint64
			if _, err := fmt.Sscanf(args[0], "%d", &amount); err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[0], err)
			}
			if amount == 0 || amount > 255 {
				return fmt.Errorf("amount must be between 1 and 255, got %d", amount)
			}

			h, err := openHopper()
			if err != nil {
				return err
			}
			defer h.Transport.Close()

			if repeat <= 0 {
				return nil
			}

			for i := 0; i < repeat; i++ {
				if repeat > 1 {
					fmt.Printf("dispense iteration %d/%d\n", i+1, repeat)
				}
				if err := h.Enable(true); err != nil {
					fmt.Printf("failed to enable hopper: %v\n", err)
				}

				if err := h.DispenseCoins(byte(amount)); err != nil {
					return fmt.Errorf("dispense coins: %w", err)
				}
				fmt.Printf("dispensing %d\n", amount)

				remaining := byte(255)
				for remaining > 0 {
					status, err := h.DispenseCount()
					if err != nil {
						fmt.Printf("error getting payout status: %v\n", err)
					} else {
						fmt.Printf("event_counter=%d coins_remaining=%d paid=%d unpaid=%d\n",
							status.EventCounter, status.CoinsRemaining, status.Paid, status.Unpaid)
						remaining = status.CoinsRemaining
					}
					time.Sleep(pollInterval)
				}

				if err := h.Enable(false); err != nil {
					fmt.Printf("failed to disable hopper: %v\n", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&repeat, "repeat", "r", 1, "repeat the dispense this many times")
	cmd.Flags().DurationVarP(&pollInterval, "poll-interval", "p", time.Second, "interval between payout status polls")
	return cmd
}

func newHopperInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print identity and level-sensor status",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := openHopper()
			if err != nil {
				return err
			}
			defer h.Transport.Close()

			manufacturer, err := device.Send[string](h.Common, command.RequestManufacturerIdCommand{})
			if err != nil {
				return fmt.Errorf("manufacturer id: %w", err)
			}
			product, err := device.Send[string](h.Common, command.RequestProductCodeCommand{})
			if err != nil {
				return fmt.Errorf("product code: %w", err)
			}
			serial, err := device.Send[command.SerialCode](h.Common, command.RequestSerialNumberCommand{})
			if err != nil {
				return fmt.Errorf("serial number: %w", err)
			}
			software, err := device.Send[string](h.Common, command.RequestSoftwareRevisionCommand{})
			if err != nil {
				return fmt.Errorf("software revision: %w", err)
			}
			level, err := h.HopperStatus()
			if err != nil {
				return fmt.Errorf("hopper status: %w", err)
			}
			balance, err := h.Balance()
			if err != nil {
				fmt.Printf("balance: %v (device may not support RequestHopperBalance)\n", err)
			}

			fmt.Printf("Manufacturer ID:   %s\n", manufacturer)
			fmt.Printf("Product Code:      %s\n", product)
			fmt.Printf("Serial Number:     %d\n", serial.Value())
			fmt.Printf("Software Revision: %s\n", software)
			fmt.Printf("Level Status:      %+v\n", level)
			if err == nil {
				fmt.Printf("Balance:           %d\n", balance)
			}
			return nil
		},
	}
}
