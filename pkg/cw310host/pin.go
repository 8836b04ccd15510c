package cw310host

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

type pinMode int

const (
	modeDefault pinMode = iota
	modeIn
	modeOut
)

// Pin is a SAM3U pin driven through the FPGAIO_UTIL command.
//
// Pin implements gpio.PinIO.
type Pin struct {
	h    *Host
	name string
	num  uint8
	mode pinMode
}

func (p *Pin) id() string {
	return strconv.Itoa(int(p.num))
}

// String implements conn.Resource.
func (p *Pin) String() string {
	return p.name
}

// Name implements pin.Pin.
func (p *Pin) Name() string {
	return p.name
}

// Number implements pin.Pin.
func (p *Pin) Number() int {
	return int(p.num)
}

// Function implements pin.Pin.
func (p *Pin) Function() string {
	p.h.mu.Lock()
	defer p.h.mu.Unlock()
	switch p.mode {
	case modeIn:
		return "In"
	case modeOut:
		return "Out"
	}
	return ""
}

// Halt releases the pin back to its default function.
func (p *Pin) Halt() error {
	p.h.mu.Lock()
	defer p.h.mu.Unlock()
	if err := p.h.b.ReleasePin(p.id()); err != nil {
		return err
	}
	p.mode = modeDefault
	return nil
}

// In implements gpio.PinIn. The firmware has no pull or edge control.
func (p *Pin) In(pull gpio.Pull, edge gpio.Edge) error {
	if pull != gpio.PullNoChange && pull != gpio.Float {
		return fmt.Errorf("cw310host: %s: pull %s not supported", p.name, pull)
	}
	if edge != gpio.NoEdge {
		return fmt.Errorf("cw310host: %s: edge detection not supported", p.name)
	}
	p.h.mu.Lock()
	defer p.h.mu.Unlock()
	if err := p.h.b.SetPinOutput(p.id(), false); err != nil {
		return err
	}
	p.mode = modeIn
	return nil
}

// Read implements gpio.PinIn. A failed transfer reads as Low and is logged.
func (p *Pin) Read() gpio.Level {
	p.h.mu.Lock()
	defer p.h.mu.Unlock()
	v, err := p.h.b.PinState(p.id())
	if err != nil {
		p.h.log.Error("pin read failed", "pin", p.name, "err", err)
		return gpio.Low
	}
	return v != 0
}

// WaitForEdge implements gpio.PinIn.
func (p *Pin) WaitForEdge(timeout time.Duration) bool {
	return false
}

// Pull implements gpio.PinIn.
func (p *Pin) Pull() gpio.Pull {
	return gpio.PullNoChange
}

// DefaultPull implements gpio.PinIn.
func (p *Pin) DefaultPull() gpio.Pull {
	return gpio.PullNoChange
}

// SetOutput configures the pin as an output without driving a level, so the
// line keeps whatever the firmware latched until Out is called.
func (p *Pin) SetOutput() error {
	p.h.mu.Lock()
	defer p.h.mu.Unlock()
	if err := p.h.b.SetPinOutput(p.id(), true); err != nil {
		return err
	}
	p.mode = modeOut
	return nil
}

// Out implements gpio.PinOut. The pin is switched to output on first use.
func (p *Pin) Out(l gpio.Level) error {
	p.h.mu.Lock()
	defer p.h.mu.Unlock()
	if p.mode != modeOut {
		if err := p.h.b.SetPinOutput(p.id(), true); err != nil {
			return err
		}
		p.mode = modeOut
	}
	return p.h.b.SetPinState(p.id(), bool(l))
}

// PWM implements gpio.PinOut.
func (p *Pin) PWM(d gpio.Duty, f physic.Frequency) error {
	return errors.New("cw310host: PWM not supported")
}

var _ gpio.PinIO = &Pin{}
