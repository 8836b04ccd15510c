package cmd

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceCW310/pkg/script"
	"github.com/spf13/cobra"
)

var (
	dryRun bool
)

var runCmd = &cobra.Command{
	Use:   "run SCRIPT",
	Short: "Run a bench script",
	Long: `Run a bench script against a board. Each statement that returns data
prints it prefixed with its line number.

Script statements:
  pin NAME in|out|release      set NAME 0|1      get NAME
  spi pins SDO SDI SCK CS      spi enable|disable
  cs low|high                  write 0xHEX...    read COUNT
  xfer 0xHEX...                version           date      serial

Examples:
  cw310 run bringup.cw
  cw310 run --dry-run bringup.cw    # Only check the syntax`,
	Args: cobra.ExactArgs(1),
	RunE: runScript,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&dryRun, "dry-run", false,
		"parse and validate the script without opening a board")
}

func runScript(cmd *cobra.Command, args []string) error {
	prog, err := script.ParseFile(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if dryRun {
		fmt.Fprintf(out, "%s: %d statement(s) OK\n", args[0], prog.Len())
		return nil
	}

	b, err := openBoard()
	if err != nil {
		return err
	}
	defer b.Close()

	r := &script.Runner{Board: b, Logger: logger}
	results, err := r.Run(cmd.Context(), prog)
	for _, res := range results {
		if res.Output != "" {
			fmt.Fprintf(out, "%d: %s\n", res.Line, res.Output)
		}
	}
	return err
}
