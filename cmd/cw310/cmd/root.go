package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/OpenTraceLab/OpenTraceCW310/internal/logging"
	"github.com/OpenTraceLab/OpenTraceCW310/pkg/cw310"
	"github.com/OpenTraceLab/OpenTraceCW310/pkg/usbctl"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose     bool
	adapterType string
	vendorID    uint16
	productID   uint16
	boardSerial string
	timeout     time.Duration
	logFormat   string
	logFile     string

	logger    = discardLogger()
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "cw310",
	Short: "NewAE CW310 board control",
	Long: `Control the SAM3U microcontroller on a NewAE CW310 FPGA board over USB:
read firmware information, drive FPGA-facing pins and run SPI transfers.

Examples:
  cw310 list                                        # List attached boards
  cw310 info --serial 50203120374a3032              # Firmware of one board
  cw310 pin set USB_A13 1                           # Drive a pin high
  cw310 spi xfer 0x9f --read 3                      # Read a SPI flash JEDEC id
  cw310 run bringup.cw                              # Run a bench script
  cw310 --adapter sim info                          # Use the built-in simulator`,
	Version:           "0.3.0",
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

// Execute runs the root command
func Execute() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run executes the root command and closes the log output, whether or not
// the command succeeded.
func run() error {
	err := rootCmd.Execute()
	if err != nil {
		logger.Error("command failed", "err", err)
	}
	closeLog()
	return err
}

func closeLog() {
	if logCloser != nil {
		logCloser.Close()
		logCloser = nil
	}
	logger = discardLogger()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "verbose output (logs every control transfer)")
	pf.StringVarP(&adapterType, "adapter", "a", "usb", "board adapter (usb, sim)")
	pf.Uint16Var(&vendorID, "vid", usbctl.VendorIDNewAE, "USB vendor id")
	pf.Uint16Var(&productID, "pid", usbctl.ProductIDCW310, "USB product id")
	pf.StringVarP(&boardSerial, "serial", "s", "", "board serial number (if multiple boards)")
	pf.DurationVar(&timeout, "timeout", usbctl.DefaultTimeout, "control transfer timeout")
	pf.StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	pf.StringVar(&logFile, "log-file", "", "write logs to a rotated file instead of stderr")
}

func setupLogging(cmd *cobra.Command, args []string) error {
	format, err := logging.ParseFormat(logFormat)
	if err != nil {
		return err
	}
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	l, closer, err := logging.New(logging.Options{
		Level:  level,
		Format: format,
		File:   logFile,
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	closeLog()
	logger, logCloser = l, closer
	return nil
}

// usbConfig builds the session configuration from the global flags.
func usbConfig() (*usbctl.Config, error) {
	cfg := usbctl.DefaultConfig()
	cfg.VendorID = vendorID
	cfg.ProductID = productID
	cfg.Serial = boardSerial
	cfg.Timeout = timeout
	cfg.Logger = logger

	switch adapterType {
	case "usb":
	case "simulator", "sim":
		cfg.Bus = newSimBus()
	default:
		return nil, fmt.Errorf("unknown adapter %q (want usb or sim)", adapterType)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openBoard() (*cw310.Board, error) {
	cfg, err := usbConfig()
	if err != nil {
		return nil, err
	}
	b, err := cw310.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open board: %w", err)
	}
	logger.Debug("board opened", "board", b.String())
	return b, nil
}
