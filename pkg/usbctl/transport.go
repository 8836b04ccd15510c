package usbctl

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/gousb"
)

// Control request types used by the board firmware: vendor class, interface
// recipient.
const (
	RequestTypeWrite uint8 = gousb.ControlOut | gousb.ControlVendor | gousb.ControlInterface // 0x41
	RequestTypeRead  uint8 = gousb.ControlIn | gousb.ControlVendor | gousb.ControlInterface  // 0xC1
)

var errNotOpened = errors.New("device not opened")

// Descriptor is the part of a USB device descriptor used to pick a board.
type Descriptor struct {
	Bus       int
	Address   int
	VendorID  uint16
	ProductID uint16
}

func (d Descriptor) String() string {
	return fmt.Sprintf("bus=%d address=%d (%04X:%04X)", d.Bus, d.Address, d.VendorID, d.ProductID)
}

// Device is an opened USB device that accepts control transfers.
type Device interface {
	Descriptor() Descriptor
	SerialNumber() (string, error)
	Control(rType, request uint8, val, idx uint16, data []byte) (int, error)
	SetControlTimeout(timeout time.Duration)
	Close() error
}

// Skip stages reported during enumeration.
const (
	StageDescriptor = "descriptor"
	StageOpen       = "open"
	StageSerial     = "serial"
)

// Skip records a device passed over during enumeration and why.
type Skip struct {
	Desc  Descriptor // zero when the descriptor itself was unreadable
	Stage string
	Err   error
}

// Bus enumerates and opens USB devices.
type Bus interface {
	// OpenDevices opens every attached device whose descriptor satisfies
	// match. Devices that could not be inspected or opened are left out of
	// the result and reported as skips. The error is reserved for failures
	// that prevent enumeration altogether.
	OpenDevices(match func(Descriptor) bool) ([]Device, []Skip, error)
	Close() error
}

// GoUSBBus is a Bus backed by libusb through gousb.
type GoUSBBus struct {
	ctx *gousb.Context
}

// NewGoUSBBus creates a libusb context. Close it once every device opened
// through it has been closed.
func NewGoUSBBus() *GoUSBBus {
	return &GoUSBBus{ctx: gousb.NewContext()}
}

// OpenDevices implements Bus. libusb reports a failed bus listing the same
// way as failed descriptor reads, so neither aborts enumeration; both come
// back as skips and the returned error is always nil.
func (b *GoUSBBus) OpenDevices(match func(Descriptor) bool) ([]Device, []Skip, error) {
	var wanted []Descriptor
	devs, err := b.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		d := descriptorOf(desc)
		if !match(d) {
			return false
		}
		wanted = append(wanted, d)
		return true
	})

	out := make([]Device, 0, len(devs))
	opened := make([]Descriptor, 0, len(devs))
	for _, dev := range devs {
		opened = append(opened, descriptorOf(dev.Desc))
		out = append(out, &goUSBDevice{dev: dev})
	}
	return out, enumerationSkips(wanted, opened, err), nil
}

// enumerationSkips reports matching devices that did not come back open.
// gousb keeps only the last error of an enumeration, so an open failure
// carries it as context rather than as its cause. An error with no missing
// device came from a descriptor read or the bus listing.
func enumerationSkips(wanted, opened []Descriptor, err error) []Skip {
	isOpen := make(map[[2]int]bool, len(opened))
	for _, d := range opened {
		isOpen[[2]int{d.Bus, d.Address}] = true
	}

	var skips []Skip
	for _, d := range wanted {
		if isOpen[[2]int{d.Bus, d.Address}] {
			continue
		}
		openErr := errNotOpened
		if err != nil {
			openErr = fmt.Errorf("%w (last libusb error: %w)", errNotOpened, err)
		}
		skips = append(skips, Skip{Desc: d, Stage: StageOpen, Err: openErr})
	}
	if err != nil && len(skips) == 0 {
		skips = append(skips, Skip{Stage: StageDescriptor, Err: err})
	}
	return skips
}

// Close releases the libusb context.
func (b *GoUSBBus) Close() error {
	if b.ctx == nil {
		return nil
	}
	err := b.ctx.Close()
	b.ctx = nil
	return err
}

func descriptorOf(desc *gousb.DeviceDesc) Descriptor {
	return Descriptor{
		Bus:       desc.Bus,
		Address:   desc.Address,
		VendorID:  uint16(desc.Vendor),
		ProductID: uint16(desc.Product),
	}
}

type goUSBDevice struct {
	dev *gousb.Device
}

func (d *goUSBDevice) Descriptor() Descriptor {
	return descriptorOf(d.dev.Desc)
}

func (d *goUSBDevice) SerialNumber() (string, error) {
	return d.dev.SerialNumber()
}

func (d *goUSBDevice) Control(rType, request uint8, val, idx uint16, data []byte) (int, error) {
	return d.dev.Control(rType, request, val, idx, data)
}

func (d *goUSBDevice) SetControlTimeout(timeout time.Duration) {
	d.dev.ControlTimeout = timeout
}

func (d *goUSBDevice) Close() error {
	return d.dev.Close()
}

var _ Bus = &GoUSBBus{}
var _ Device = &goUSBDevice{}
