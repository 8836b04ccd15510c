package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// BoardInfo is the firmware information of one board.
type BoardInfo struct {
	Serial    string `json:"serial"`
	Firmware  string `json:"firmware_version"`
	BuildDate string `json:"firmware_build_date"`
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show firmware version and build date",
	Long: `Open a board and print its serial number together with the SAM3U
firmware version and build date.

Examples:
  cw310 info
  cw310 info --serial 50203120374a3032 --json`,
	Args: cobra.NoArgs,
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().BoolVar(&outputJSON, "json", false,
		"output as JSON (for programmatic access)")
}

func runInfo(cmd *cobra.Command, args []string) error {
	b, err := openBoard()
	if err != nil {
		return err
	}
	defer b.Close()

	v, err := b.FirmwareVersion()
	if err != nil {
		return fmt.Errorf("failed to read firmware version: %w", err)
	}
	date, err := b.FirmwareBuildDate()
	if err != nil {
		return fmt.Errorf("failed to read firmware build date: %w", err)
	}
	info := BoardInfo{
		Serial:    b.SerialNumber(),
		Firmware:  fmt.Sprintf("%d.%d.%d", v[0], v[1], v[2]),
		BuildDate: date,
	}

	out := cmd.OutOrStdout()
	if outputJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintf(out, "Serial:     %s\n", info.Serial)
	fmt.Fprintf(out, "Firmware:   %s\n", info.Firmware)
	fmt.Fprintf(out, "Build date: %s\n", info.BuildDate)
	return nil
}
