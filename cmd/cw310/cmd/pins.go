package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/OpenTraceLab/OpenTraceCW310/pkg/pinmap"
	"github.com/spf13/cobra"
)

var (
	listAliases bool
)

// PinEntry is one resolved pin identifier.
type PinEntry struct {
	Input  string `json:"input"`
	Number uint8  `json:"number"`
	Name   string `json:"sam3u_name,omitempty"`
}

var pinsCmd = &cobra.Command{
	Use:   "pins [NAME...]",
	Short: "Resolve pin names or list the pin table",
	Long: `Resolve pin identifiers to SAM3U pin numbers without touching a board.
With no arguments, print the SAM3U pin table (or the schematic aliases with
--aliases).

Examples:
  cw310 pins USB_SPI_CS pb17 42
  cw310 pins --aliases`,
	RunE: runPins,
}

func init() {
	rootCmd.AddCommand(pinsCmd)

	pinsCmd.Flags().BoolVar(&listAliases, "aliases", false,
		"list schematic net aliases instead of SAM3U names")
	pinsCmd.Flags().BoolVar(&outputJSON, "json", false,
		"output as JSON (for programmatic access)")
}

func runPins(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if len(args) == 0 {
		return printPinTable(cmd)
	}

	entries := make([]PinEntry, 0, len(args))
	for _, a := range args {
		n, err := pinmap.Resolve(a)
		if err != nil {
			return err
		}
		name, _ := pinmap.Name(n)
		entries = append(entries, PinEntry{Input: a, Number: n, Name: name})
	}
	if outputJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	for _, e := range entries {
		fmt.Fprintf(out, "%-16s %3d  %s\n", e.Input, e.Number, e.Name)
	}
	return nil
}

func printPinTable(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	if listAliases {
		aliases := pinmap.Aliases()
		if outputJSON {
			return json.NewEncoder(out).Encode(aliases)
		}
		for _, a := range aliases {
			fmt.Fprintf(out, "%-16s %-5s %3d\n", a.Name, a.Target, a.Number)
		}
		return nil
	}
	pins := pinmap.Pins()
	if outputJSON {
		return json.NewEncoder(out).Encode(pins)
	}
	for _, p := range pins {
		fmt.Fprintf(out, "%3d  %s\n", p.Number, p.Name)
	}
	return nil
}
