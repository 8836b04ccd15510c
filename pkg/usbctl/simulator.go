package usbctl

import (
	"errors"
	"time"
)

// Transfer captures one control transfer seen by a SimDevice.
type Transfer struct {
	RequestType uint8
	Request     uint8
	Value       uint16
	Index       uint16
	Data        []byte // payload for writes, bytes returned for reads
}

// ControlHook lets tests emulate firmware. For reads it fills data and
// returns the byte count; for writes data is the payload.
type ControlHook func(t Transfer, data []byte) (int, error)

// SimDevice is an in-memory board for unit tests. It records every control
// transfer and answers reads with zeros unless OnControl is set.
type SimDevice struct {
	Desc      Descriptor
	Serial    string
	SerialErr error // returned by SerialNumber
	OpenErr   error // makes SimBus skip the device at open time

	OnControl ControlHook

	transfers []Transfer
	timeout   time.Duration
	closed    bool
}

// Transfers returns a copy of the recorded control transfers.
func (d *SimDevice) Transfers() []Transfer {
	out := make([]Transfer, len(d.transfers))
	for i, t := range d.transfers {
		t.Data = append([]byte(nil), t.Data...)
		out[i] = t
	}
	return out
}

// Reset forgets recorded transfers.
func (d *SimDevice) Reset() {
	d.transfers = nil
}

// Closed reports whether Close was called.
func (d *SimDevice) Closed() bool {
	return d.closed
}

// ControlTimeout returns the timeout last set by a session.
func (d *SimDevice) ControlTimeout() time.Duration {
	return d.timeout
}

func (d *SimDevice) Descriptor() Descriptor {
	return d.Desc
}

func (d *SimDevice) SerialNumber() (string, error) {
	if d.SerialErr != nil {
		return "", d.SerialErr
	}
	return d.Serial, nil
}

func (d *SimDevice) Control(rType, request uint8, val, idx uint16, data []byte) (int, error) {
	if d.closed {
		return 0, errors.New("usbctl: sim device closed")
	}
	t := Transfer{RequestType: rType, Request: request, Value: val, Index: idx}
	n := len(data)
	var err error
	if d.OnControl != nil {
		n, err = d.OnControl(t, data)
	} else if rType == RequestTypeRead {
		clear(data)
	}
	if n > len(data) {
		n = len(data)
	}
	t.Data = append([]byte(nil), data[:n]...)
	d.transfers = append(d.transfers, t)
	return n, err
}

func (d *SimDevice) SetControlTimeout(timeout time.Duration) {
	d.timeout = timeout
}

func (d *SimDevice) Close() error {
	d.closed = true
	return nil
}

// SimBus is a Bus over SimDevices.
type SimBus struct {
	Devices []*SimDevice

	// UnreadableDescriptors adds that many devices whose descriptor read
	// fails during enumeration.
	UnreadableDescriptors int
	// ListErr makes enumeration fail outright.
	ListErr error

	closed bool
}

// NewSimBus returns a bus with the given devices attached.
func NewSimBus(devs ...*SimDevice) *SimBus {
	return &SimBus{Devices: devs}
}

// NewSimBoard returns a SimDevice carrying the CW310 ids.
func NewSimBoard(bus, address int, serial string) *SimDevice {
	return &SimDevice{
		Desc: Descriptor{
			Bus:       bus,
			Address:   address,
			VendorID:  VendorIDNewAE,
			ProductID: ProductIDCW310,
		},
		Serial: serial,
	}
}

// Closed reports whether Close was called.
func (b *SimBus) Closed() bool {
	return b.closed
}

// OpenDevices implements Bus.
func (b *SimBus) OpenDevices(match func(Descriptor) bool) ([]Device, []Skip, error) {
	if b.ListErr != nil {
		return nil, nil, b.ListErr
	}
	var skips []Skip
	for i := 0; i < b.UnreadableDescriptors; i++ {
		skips = append(skips, Skip{Stage: StageDescriptor, Err: errors.New("usbctl: sim descriptor unreadable")})
	}
	var out []Device
	for _, d := range b.Devices {
		if !match(d.Desc) {
			continue
		}
		if d.OpenErr != nil {
			skips = append(skips, Skip{Desc: d.Desc, Stage: StageOpen, Err: d.OpenErr})
			continue
		}
		d.closed = false
		out = append(out, d)
	}
	return out, skips, nil
}

// Close implements Bus.
func (b *SimBus) Close() error {
	b.closed = true
	return nil
}

var _ Bus = &SimBus{}
var _ Device = &SimDevice{}
