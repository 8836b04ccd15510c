// Package cw310host exposes a CW310 board through periph.io interfaces: the
// SAM3U pins as gpio.PinIO and the SPI1 master as spi.PortCloser.
//
// All resources obtained from one Host share its lock, so they may be used
// from several goroutines; each call still blocks for the duration of its
// control transfers.
package cw310host

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/OpenTraceLab/OpenTraceCW310/pkg/cw310"
	"github.com/OpenTraceLab/OpenTraceCW310/pkg/pinmap"
)

// Board is the subset of *cw310.Board used by the adapters.
type Board interface {
	SetPinOutput(pin string, output bool) error
	ReleasePin(pin string) error
	PinState(pin string) (uint8, error)
	SetPinState(pin string, high bool) error
	SPISetPins(sdo, sdi, sck, cs string) error
	SPIEnable(enable bool) error
	SPISetCS(high bool) error
	SPIRead(buf []byte) error
	SPIWrite(buf []byte) error
	SPIExchange(tx, rx []byte) error
}

var _ Board = &cw310.Board{}

// Host serializes access to one board.
type Host struct {
	mu  sync.Mutex
	b   Board
	log *slog.Logger
}

// New wraps b. A nil logger uses slog.Default().
func New(b Board, log *slog.Logger) *Host {
	if log == nil {
		log = slog.Default()
	}
	return &Host{b: b, log: log.With("component", "cw310host")}
}

// Pin returns the GPIO for a pin identifier accepted by pinmap.Resolve.
func (h *Host) Pin(name string) (*Pin, error) {
	n, err := pinmap.Resolve(name)
	if err != nil {
		return nil, err
	}
	label := strings.ToUpper(name)
	if sam, ok := pinmap.Name(n); ok && label != sam {
		label = fmt.Sprintf("%s(%s)", label, sam)
	}
	return &Pin{h: h, name: label, num: n}, nil
}

// SPIPins names the SAM3U pins routed to SPI1.
type SPIPins struct {
	SDO, SDI, SCK, CS string
}

// DefaultSPIPins is the SPI bus between the SAM3U and the FPGA.
var DefaultSPIPins = SPIPins{
	SDO: "USB_SPI_COPI",
	SDI: "USB_SPI_CIPO",
	SCK: "USB_SPI_SCK",
	CS:  "USB_SPI_CS",
}

// SPI returns the SPI1 port routed to pins. Nothing is sent to the board
// until Connect.
func (h *Host) SPI(pins SPIPins) *SPIPort {
	return &SPIPort{c: spiConn{h: h, pins: pins}}
}
