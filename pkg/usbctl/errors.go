package usbctl

import (
	"errors"
	"fmt"

	"github.com/google/gousb"
)

// ErrNotFound is returned by Open when discovery matched no device.
var ErrNotFound = errors.New("usbctl: device not found")

// ErrClosed is returned by transfers on a closed Session.
var ErrClosed = errors.New("usbctl: session closed")

// TransportError wraps a failed control transfer. The outcome of a timed-out
// write is unknown: the firmware may or may not have applied it.
type TransportError struct {
	Op          string // "write" or "read"
	RequestType uint8
	Request     uint8
	Value       uint16
	Err         error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("usbctl: control %s (bmRequestType %#02x, bRequest %#02x, wValue %#04x): %v",
		e.Op, e.RequestType, e.Request, e.Value, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the transfer hit the session timeout.
func (e *TransportError) Timeout() bool {
	return errors.Is(e.Err, gousb.ErrorTimeout)
}
