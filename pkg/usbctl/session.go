package usbctl

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Candidate is an opened device that passed discovery filters. Close it
// unless it is handed to a Session.
type Candidate struct {
	Descriptor
	Serial string

	dev Device
}

// Close releases the candidate's device handle.
func (c *Candidate) Close() error {
	if c.dev == nil {
		return nil
	}
	err := c.dev.Close()
	c.dev = nil
	return err
}

// Discover returns every device on bus matching cfg, in enumeration order.
// Devices whose descriptor, handle or serial string cannot be read are
// logged and skipped. An empty result is not an error.
func Discover(bus Bus, cfg *Config) ([]*Candidate, error) {
	c, err := resolve(cfg)
	if err != nil {
		return nil, err
	}
	log := c.Logger.With("component", "usbctl")

	devs, skips, err := bus.OpenDevices(func(d Descriptor) bool {
		return d.VendorID == c.VendorID && d.ProductID == c.ProductID
	})
	if err != nil {
		return nil, fmt.Errorf("usbctl: enumerate devices: %w", err)
	}
	for _, s := range skips {
		logSkip(log, s)
	}

	var out []*Candidate
	for _, dev := range devs {
		desc := dev.Descriptor()
		serial, err := dev.SerialNumber()
		if err != nil {
			logSkip(log, Skip{Desc: desc, Stage: StageSerial, Err: err})
			dev.Close()
			continue
		}
		if c.Serial != "" && serial != c.Serial {
			dev.Close()
			continue
		}
		out = append(out, &Candidate{Descriptor: desc, Serial: serial, dev: dev})
	}
	return out, nil
}

func logSkip(log *slog.Logger, s Skip) {
	if s.Stage == StageDescriptor {
		log.Warn("could not read device descriptor", "err", s.Err)
		return
	}
	log.Warn("skipping device",
		"stage", s.Stage,
		"bus", s.Desc.Bus,
		"address", s.Desc.Address,
		"vid", fmt.Sprintf("%04x", s.Desc.VendorID),
		"pid", fmt.Sprintf("%04x", s.Desc.ProductID),
		"err", s.Err)
}

// Session owns one opened board and issues vendor control transfers to it.
// A Session is not safe for concurrent use.
type Session struct {
	dev     Device
	bus     Bus // non-nil only when the session created it
	desc    Descriptor
	serial  string
	timeout time.Duration
	log     *slog.Logger
}

// Open discovers boards matching cfg and opens the first one. Callers that
// need a particular unit must set cfg.Serial.
func Open(cfg *Config) (*Session, error) {
	c, err := resolve(cfg)
	if err != nil {
		return nil, err
	}

	bus, owned := c.Bus, false
	if bus == nil {
		bus, owned = NewGoUSBBus(), true
	}

	cands, err := Discover(bus, &c)
	if err != nil {
		if owned {
			bus.Close()
		}
		return nil, err
	}
	if len(cands) == 0 {
		if owned {
			bus.Close()
		}
		return nil, fmt.Errorf("%w: CW310 (%04X:%04X serial %q)", ErrNotFound, c.VendorID, c.ProductID, c.Serial)
	}
	for _, other := range cands[1:] {
		other.Close()
	}

	first := cands[0]
	first.dev.SetControlTimeout(c.Timeout)
	s := &Session{
		dev:     first.dev,
		desc:    first.Descriptor,
		serial:  first.Serial,
		timeout: c.Timeout,
		log:     c.Logger.With("component", "usbctl", "serial", first.Serial),
	}
	if owned {
		s.bus = bus
	}
	first.dev = nil
	s.log.Info("session opened", "bus", s.desc.Bus, "address", s.desc.Address, "timeout", s.timeout)
	return s, nil
}

// SerialNumber returns the serial string bound at open time.
func (s *Session) SerialNumber() string {
	return s.serial
}

// Descriptor returns the bus location and ids of the opened board.
func (s *Session) Descriptor() Descriptor {
	return s.desc
}

// Timeout returns the per-transfer timeout.
func (s *Session) Timeout() time.Duration {
	return s.timeout
}

// Send issues a host-to-device vendor control transfer and returns the
// number of bytes written.
func (s *Session) Send(request uint8, value uint16, data []byte) (int, error) {
	if s.dev == nil {
		return 0, ErrClosed
	}
	n, err := s.dev.Control(RequestTypeWrite, request, value, 0, data)
	if err != nil {
		return n, &TransportError{Op: "write", RequestType: RequestTypeWrite, Request: request, Value: value, Err: err}
	}
	s.logTransfer("WRITE_CTRL", RequestTypeWrite, request, value, data, n)
	return n, nil
}

// Read issues a device-to-host vendor control transfer into data and returns
// the number of bytes received, which may be less than len(data).
func (s *Session) Read(request uint8, value uint16, data []byte) (int, error) {
	if s.dev == nil {
		return 0, ErrClosed
	}
	n, err := s.dev.Control(RequestTypeRead, request, value, 0, data)
	if err != nil {
		return n, &TransportError{Op: "read", RequestType: RequestTypeRead, Request: request, Value: value, Err: err}
	}
	s.logTransfer("READ_CTRL", RequestTypeRead, request, value, data[:n], n)
	return n, nil
}

func (s *Session) logTransfer(msg string, rType, request uint8, value uint16, data []byte, n int) {
	s.log.Debug(msg,
		"request_type", fmt.Sprintf("%02x", rType),
		"request", fmt.Sprintf("%02x", request),
		"value", fmt.Sprintf("%04x", value),
		"index", "0000",
		"data", hex.EncodeToString(data),
		"n", n)
}

// Close releases the device and, if the session created it, the bus.
func (s *Session) Close() error {
	var errs []error
	if s.dev != nil {
		errs = append(errs, s.dev.Close())
		s.dev = nil
	}
	if s.bus != nil {
		errs = append(errs, s.bus.Close())
		s.bus = nil
	}
	return errors.Join(errs...)
}
