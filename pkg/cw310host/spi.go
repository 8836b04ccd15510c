package cw310host

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// SPIPort is the SAM3U SPI1 master. Clock and mode are fixed by the
// firmware, so Connect only accepts spi.Mode0 with 8-bit words; the
// requested frequency is recorded and otherwise ignored.
//
// SPIPort implements spi.PortCloser.
type SPIPort struct {
	c spiConn
}

func (s *SPIPort) String() string {
	return "CW310 SPI1"
}

// Connect implements spi.Port. It routes SPI1 to the configured pins,
// enables the peripheral and parks chip select high.
func (s *SPIPort) Connect(f physic.Frequency, m spi.Mode, bits int) (spi.Conn, error) {
	if bits != 8 {
		return nil, fmt.Errorf("cw310host: %d bits per word not supported", bits)
	}
	noCS := m&spi.NoCS != 0
	m &^= spi.NoCS
	if m != spi.Mode0 {
		return nil, fmt.Errorf("cw310host: spi mode %v not supported", m)
	}

	h := s.c.h
	h.mu.Lock()
	defer h.mu.Unlock()
	p := s.c.pins
	if err := h.b.SPISetPins(p.SDO, p.SDI, p.SCK, p.CS); err != nil {
		return nil, err
	}
	if err := h.b.SPIEnable(true); err != nil {
		return nil, err
	}
	if !noCS {
		if err := h.b.SPISetCS(true); err != nil {
			return nil, err
		}
	}
	s.c.noCS = noCS
	s.c.freq = f
	h.log.Debug("spi connected", "pins", fmt.Sprintf("%+v", p), "freq", f.String(), "no_cs", noCS)
	return &s.c, nil
}

// LimitSpeed implements spi.Port.
func (s *SPIPort) LimitSpeed(f physic.Frequency) error {
	s.c.h.mu.Lock()
	defer s.c.h.mu.Unlock()
	if s.c.freq == 0 || f < s.c.freq {
		s.c.freq = f
	}
	return nil
}

// Close disables SPI1.
func (s *SPIPort) Close() error {
	h := s.c.h
	h.mu.Lock()
	defer h.mu.Unlock()
	s.c.freq = 0
	return h.b.SPIEnable(false)
}

type spiConn struct {
	h    *Host
	pins SPIPins

	noCS bool
	freq physic.Frequency
}

func (s *spiConn) String() string {
	return "CW310 SPI1"
}

func (s *spiConn) Duplex() conn.Duplex {
	return conn.Full
}

func (s *spiConn) Tx(w, r []byte) error {
	var p = [1]spi.Packet{{W: w, R: r}}
	return s.TxPackets(p[:])
}

// TxPackets asserts chip select before each packet and releases it after,
// unless the packet sets KeepCS or the port was connected with spi.NoCS.
// A failed transfer releases chip select before returning.
func (s *spiConn) TxPackets(pkts []spi.Packet) error {
	for _, p := range pkts {
		if p.BitsPerWord != 0 && p.BitsPerWord != 8 {
			return fmt.Errorf("cw310host: %d bits per word not supported", p.BitsPerWord)
		}
		if len(p.W) != 0 && len(p.R) != 0 && len(p.W) != len(p.R) {
			return errors.New("cw310host: both buffers must have the same size")
		}
	}

	s.h.mu.Lock()
	defer s.h.mu.Unlock()
	b := s.h.b
	asserted := false
	for _, p := range pkts {
		if !s.noCS && !asserted {
			if err := b.SPISetCS(false); err != nil {
				return err
			}
			asserted = true
		}
		var err error
		switch {
		case len(p.W) != 0 && len(p.R) != 0:
			err = b.SPIExchange(p.W, p.R)
		case len(p.W) != 0:
			err = b.SPIWrite(p.W)
		case len(p.R) != 0:
			err = b.SPIRead(p.R)
		}
		if err != nil {
			if asserted {
				// Release the device so a failed transfer does not leave it selected.
				if csErr := b.SPISetCS(true); csErr != nil {
					return errors.Join(err, csErr)
				}
			}
			return err
		}
		if asserted && !p.KeepCS {
			if err := b.SPISetCS(true); err != nil {
				return err
			}
			asserted = false
		}
	}
	return nil
}

var _ spi.PortCloser = &SPIPort{}
var _ spi.Conn = &spiConn{}
