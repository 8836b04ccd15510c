package cmd

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceCW310/pkg/cw310host"
	"github.com/spf13/cobra"
	"periph.io/x/conn/v3/gpio"
)

var pinCmd = &cobra.Command{
	Use:   "pin",
	Short: "Control SAM3U pins wired to the FPGA",
	Long: `Configure, drive and sample SAM3U pins. Pins are named by SAM3U port
name (PA0..PD10), by schematic net name (USB_A13, CFG_DONE, ...) or by
number (0..106). Names are case-insensitive.

Examples:
  cw310 pin dir USB_A13 out
  cw310 pin set USB_A13 1
  cw310 pin get CFG_DONE
  cw310 pin release USB_A13`,
}

var pinDirCmd = &cobra.Command{
	Use:   "dir PIN in|out",
	Short: "Configure a pin as input or output",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var output bool
		switch args[1] {
		case "in":
		case "out":
			output = true
		default:
			return fmt.Errorf("direction must be in or out, got %q", args[1])
		}
		return withPin(args[0], func(p *cw310host.Pin) error {
			if output {
				return p.SetOutput()
			}
			return p.In(gpio.PullNoChange, gpio.NoEdge)
		})
	},
}

var pinSetCmd = &cobra.Command{
	Use:   "set PIN 0|1",
	Short: "Drive a pin low or high",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var l gpio.Level
		switch args[1] {
		case "0", "low":
			l = gpio.Low
		case "1", "high":
			l = gpio.High
		default:
			return fmt.Errorf("level must be 0 or 1, got %q", args[1])
		}
		return withPin(args[0], func(p *cw310host.Pin) error {
			return p.Out(l)
		})
	},
}

var pinGetCmd = &cobra.Command{
	Use:   "get PIN",
	Short: "Sample a pin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBoard()
		if err != nil {
			return err
		}
		defer b.Close()
		v, err := b.PinState(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d\n", v)
		return nil
	},
}

var pinReleaseCmd = &cobra.Command{
	Use:   "release PIN",
	Short: "Return a pin to its default function",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPin(args[0], func(p *cw310host.Pin) error {
			return p.Halt()
		})
	},
}

func init() {
	rootCmd.AddCommand(pinCmd)
	pinCmd.AddCommand(pinDirCmd, pinSetCmd, pinGetCmd, pinReleaseCmd)
}

func withPin(name string, fn func(p *cw310host.Pin) error) error {
	b, err := openBoard()
	if err != nil {
		return err
	}
	defer b.Close()
	p, err := cw310host.New(b, logger).Pin(name)
	if err != nil {
		return err
	}
	return fn(p)
}
