package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/OpenTraceLab/OpenTraceCW310/pkg/usbctl"
	"github.com/spf13/cobra"
)

var (
	outputJSON bool
)

// BoardEntry is one discovered board in list output.
type BoardEntry struct {
	Bus       int    `json:"bus"`
	Address   int    `json:"address"`
	VendorID  string `json:"vendor_id"`
	ProductID string `json:"product_id"`
	Serial    string `json:"serial"`
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List attached CW310 boards",
	Long: `Enumerate USB devices matching the vendor and product id and print
their bus position and serial number. Devices that cannot be opened are
skipped and reported in the log.

Examples:
  cw310 list
  cw310 list --json
  cw310 -v list                # Show why devices were skipped`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().BoolVar(&outputJSON, "json", false,
		"output as JSON (for programmatic access)")
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := usbConfig()
	if err != nil {
		return err
	}
	bus := cfg.Bus
	if bus == nil {
		gb := usbctl.NewGoUSBBus()
		defer gb.Close()
		bus = gb
	}

	cands, err := usbctl.Discover(bus, cfg)
	if err != nil {
		return err
	}
	entries := make([]BoardEntry, 0, len(cands))
	for _, c := range cands {
		entries = append(entries, BoardEntry{
			Bus:       c.Bus,
			Address:   c.Address,
			VendorID:  fmt.Sprintf("%04x", c.VendorID),
			ProductID: fmt.Sprintf("%04x", c.ProductID),
			Serial:    c.Serial,
		})
		c.Close()
	}

	out := cmd.OutOrStdout()
	if outputJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	if len(entries) == 0 {
		fmt.Fprintf(out, "No boards found (%04x:%04x)\n", cfg.VendorID, cfg.ProductID)
		return nil
	}
	fmt.Fprintf(out, "Found %d board(s):\n", len(entries))
	for _, e := range entries {
		fmt.Fprintf(out, "  Bus %03d Device %03d: ID %s:%s  Serial %s\n",
			e.Bus, e.Address, e.VendorID, e.ProductID, e.Serial)
	}
	return nil
}
