package cmd

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/OpenTraceLab/OpenTraceCW310/pkg/cw310host"
	"github.com/spf13/cobra"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

var (
	spiPins   []string
	spiRead   int
	spiNoCS   bool
	spiDuplex bool
)

var spiCmd = &cobra.Command{
	Use:   "spi",
	Short: "Run SPI transfers between the SAM3U and the FPGA",
	Long: `Drive the SAM3U SPI1 master. Transfers are split into 64-byte firmware
transactions; chip select is asserted around each xfer unless --no-cs is
given.

Examples:
  # Read a SPI flash JEDEC id
  cw310 spi xfer 0x9f --read 3

  # Full-duplex exchange, printing what came back
  cw310 spi xfer --duplex 0x01 0x02 0x03

  # Use other pins for SPI1
  cw310 spi xfer --pins PA13,PA14,PA15,PA16 0x05 --read 1`,
}

var spiXferCmd = &cobra.Command{
	Use:   "xfer HEX...",
	Short: "Write bytes and optionally read a response under one chip select",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSPIXfer,
}

var spiEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Route SPI1 to the pins and enable it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pins, err := parseSPIPins(spiPins)
		if err != nil {
			return err
		}
		b, err := openBoard()
		if err != nil {
			return err
		}
		defer b.Close()
		if err := b.SPISetPins(pins.SDO, pins.SDI, pins.SCK, pins.CS); err != nil {
			return err
		}
		return b.SPIEnable(true)
	},
}

var spiDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable SPI1",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBoard()
		if err != nil {
			return err
		}
		defer b.Close()
		return b.SPIEnable(false)
	},
}

var spiCSCmd = &cobra.Command{
	Use:   "cs low|high",
	Short: "Drive SPI1 chip select",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var high bool
		switch args[0] {
		case "low":
		case "high":
			high = true
		default:
			return fmt.Errorf("chip select must be low or high, got %q", args[0])
		}
		b, err := openBoard()
		if err != nil {
			return err
		}
		defer b.Close()
		return b.SPISetCS(high)
	},
}

func init() {
	rootCmd.AddCommand(spiCmd)
	spiCmd.AddCommand(spiXferCmd, spiEnableCmd, spiDisableCmd, spiCSCmd)

	def := cw310host.DefaultSPIPins
	spiCmd.PersistentFlags().StringSliceVar(&spiPins, "pins",
		[]string{def.SDO, def.SDI, def.SCK, def.CS},
		"SPI1 pins as SDO,SDI,SCK,CS")
	spiXferCmd.Flags().IntVarP(&spiRead, "read", "r", 0,
		"bytes to read after writing")
	spiXferCmd.Flags().BoolVar(&spiNoCS, "no-cs", false,
		"leave chip select alone")
	spiXferCmd.Flags().BoolVar(&spiDuplex, "duplex", false,
		"print the bytes clocked in while writing")
}

func runSPIXfer(cmd *cobra.Command, args []string) error {
	tx, err := parseHexArgs(args)
	if err != nil {
		return err
	}
	if spiRead < 0 {
		return fmt.Errorf("--read must not be negative")
	}
	pins, err := parseSPIPins(spiPins)
	if err != nil {
		return err
	}

	b, err := openBoard()
	if err != nil {
		return err
	}
	defer b.Close()

	port := cw310host.New(b, logger).SPI(pins)
	mode := spi.Mode0
	if spiNoCS {
		mode |= spi.NoCS
	}
	c, err := port.Connect(physic.MegaHertz, mode, 8)
	if err != nil {
		return err
	}
	defer port.Close()

	wr := spi.Packet{W: tx, KeepCS: spiRead > 0}
	if spiDuplex {
		wr.R = make([]byte, len(tx))
	}
	pkts := []spi.Packet{wr}
	if spiRead > 0 {
		pkts = append(pkts, spi.Packet{R: make([]byte, spiRead)})
	}
	if err := c.TxPackets(pkts); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, p := range pkts {
		if len(p.R) != 0 {
			fmt.Fprintln(out, hex.EncodeToString(p.R))
		}
	}
	return nil
}

func parseSPIPins(s []string) (cw310host.SPIPins, error) {
	if len(s) != 4 {
		return cw310host.SPIPins{}, fmt.Errorf("--pins needs SDO,SDI,SCK,CS, got %d pin(s)", len(s))
	}
	return cw310host.SPIPins{SDO: s[0], SDI: s[1], SCK: s[2], CS: s[3]}, nil
}

// parseHexArgs joins hex arguments with or without a 0x prefix.
func parseHexArgs(args []string) ([]byte, error) {
	var out []byte
	for _, a := range args {
		digits := strings.TrimPrefix(strings.TrimPrefix(a, "0x"), "0X")
		if len(digits)%2 != 0 {
			digits = "0" + digits
		}
		b, err := hex.DecodeString(digits)
		if err != nil {
			return nil, fmt.Errorf("invalid hex %q: %w", a, err)
		}
		out = append(out, b...)
	}
	return out, nil
}
