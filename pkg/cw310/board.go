package cw310

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/OpenTraceLab/OpenTraceCW310/pkg/pinmap"
	"github.com/OpenTraceLab/OpenTraceCW310/pkg/usbctl"
)

// Conn is the control-transfer channel a Board drives. *usbctl.Session
// implements it.
type Conn interface {
	Send(request uint8, value uint16, data []byte) (int, error)
	Read(request uint8, value uint16, data []byte) (int, error)
}

// Board issues CW310 firmware commands. Every method maps to a fixed
// sequence of control transfers; nothing is retried. A Board is not safe
// for concurrent use.
type Board struct {
	conn   Conn
	closer io.Closer
	serial string
}

// Open attaches to the first board matching cfg (nil for defaults).
func Open(cfg *usbctl.Config) (*Board, error) {
	s, err := usbctl.Open(cfg)
	if err != nil {
		return nil, err
	}
	return &Board{conn: s, closer: s, serial: s.SerialNumber()}, nil
}

// New wraps an existing channel. If conn also has a SerialNumber method or
// implements io.Closer, the Board uses them.
func New(conn Conn) *Board {
	b := &Board{conn: conn}
	if c, ok := conn.(io.Closer); ok {
		b.closer = c
	}
	if s, ok := conn.(interface{ SerialNumber() string }); ok {
		b.serial = s.SerialNumber()
	}
	return b
}

// SerialNumber returns the USB serial string of the board.
func (b *Board) SerialNumber() string {
	return b.serial
}

// Close releases the underlying session.
func (b *Board) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

func (b *Board) send(c Command, data []byte) error {
	_, err := b.conn.Send(uint8(c.Opcode), c.Value, data)
	return err
}

func (b *Board) read(c Command, buf []byte) (int, error) {
	return b.conn.Read(uint8(c.Opcode), c.Value, buf)
}

// FirmwareVersion returns the raw three version bytes reported by the SAM3U.
func (b *Board) FirmwareVersion() ([3]byte, error) {
	var v [firmwareVersionLen]byte
	if _, err := b.read(cmdFirmwareVersion, v[:]); err != nil {
		return v, err
	}
	return v, nil
}

// FirmwareBuildDate returns the firmware build date text. Invalid UTF-8 is
// replaced rather than rejected.
func (b *Board) FirmwareBuildDate() (string, error) {
	buf := make([]byte, firmwareBuildDateLen)
	n, err := b.read(cmdFirmwareBuildDate, buf)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(buf[:n]), "�"), nil
}

// SetPinOutput configures pin as an output, or as an input when output is
// false.
func (b *Board) SetPinOutput(pin string, output bool) error {
	n, err := pinmap.Resolve(pin)
	if err != nil {
		return err
	}
	mode := PinInput
	if output {
		mode = PinOutput
	}
	return b.configurePin(n, mode)
}

func (b *Board) configurePin(n uint8, mode PinConfig) error {
	return b.send(ReqIOConfig.Command(), []byte{n, byte(mode)})
}

// ReleasePin hands pin back to its default function.
func (b *Board) ReleasePin(pin string) error {
	n, err := pinmap.Resolve(pin)
	if err != nil {
		return err
	}
	return b.send(ReqIORelease.Command(), []byte{n})
}

// PinState reads the level of pin. Any non-zero value means high.
func (b *Board) PinState(pin string) (uint8, error) {
	n, err := pinmap.Resolve(pin)
	if err != nil {
		return 0, err
	}
	var buf [1]byte
	if _, err := b.read(pinStateCommand(n), buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// SetPinState drives an output pin high or low.
func (b *Board) SetPinState(pin string, high bool) error {
	n, err := pinmap.Resolve(pin)
	if err != nil {
		return err
	}
	var v byte
	if high {
		v = 1
	}
	return b.send(ReqIOOutput.Command(), []byte{n, v})
}

// SPISetPins routes SPI1 to the named pins. All four names are resolved
// before any pin is configured.
func (b *Board) SPISetPins(sdo, sdi, sck, cs string) error {
	roles := []struct {
		name string
		mode PinConfig
	}{
		{sdo, PinSPI1SDO},
		{sdi, PinSPI1SDI},
		{sck, PinSPI1SCK},
		{cs, PinSPI1CS},
	}
	var nums [4]uint8
	for i, r := range roles {
		n, err := pinmap.Resolve(r.name)
		if err != nil {
			return err
		}
		nums[i] = n
	}
	for i, r := range roles {
		if err := b.configurePin(nums[i], r.mode); err != nil {
			return err
		}
	}
	return nil
}

// SPIEnable turns the SAM3U SPI1 peripheral on or off.
func (b *Board) SPIEnable(enable bool) error {
	req := ReqSPIDisable
	if enable {
		req = ReqSPIEnable
	}
	return b.send(req.Command(), nil)
}

// SPISetCS drives the SPI1 chip-select line.
func (b *Board) SPISetCS(high bool) error {
	req := ReqCSLow
	if high {
		req = ReqCSHigh
	}
	return b.send(req.Command(), nil)
}

// IsValidation reports whether err was raised by argument checks before any
// transfer, as opposed to a transport failure with unknown device state.
func IsValidation(err error) bool {
	return errors.Is(err, pinmap.ErrInvalidPinName) ||
		errors.Is(err, pinmap.ErrInvalidPinNumber) ||
		errors.Is(err, ErrInvalidDataLength) ||
		errors.Is(err, ErrMismatchedDataLength)
}

func (b *Board) String() string {
	if b.serial == "" {
		return "CW310"
	}
	return fmt.Sprintf("CW310(%s)", b.serial)
}
