package usbctl

import (
	"fmt"
	"log/slog"
	"time"
)

// USB identifiers of the NewAE CW310 board.
const (
	VendorIDNewAE  uint16 = 0x2B3E
	ProductIDCW310 uint16 = 0xC310
)

// DefaultTimeout bounds every control transfer of a session.
const DefaultTimeout = 200 * time.Millisecond

// Config selects which board a session attaches to and how it talks to it.
type Config struct {
	VendorID  uint16        // default VendorIDNewAE
	ProductID uint16        // default ProductIDCW310
	Serial    string        // empty matches any unit
	Timeout   time.Duration // per control transfer, default DefaultTimeout

	Bus    Bus          // nil opens a libusb bus owned by the session
	Logger *slog.Logger // nil uses slog.Default()
}

// DefaultConfig returns a Config matching any CW310 on the host.
func DefaultConfig() *Config {
	return &Config{
		VendorID:  VendorIDNewAE,
		ProductID: ProductIDCW310,
		Timeout:   DefaultTimeout,
	}
}

// Validate fills unset fields with their defaults and rejects values that
// cannot be used.
func (c *Config) Validate() error {
	if c.VendorID == 0 {
		c.VendorID = VendorIDNewAE
	}
	if c.ProductID == 0 {
		c.ProductID = ProductIDCW310
	}
	if c.Timeout < 0 {
		return fmt.Errorf("usbctl: negative timeout %s", c.Timeout)
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return nil
}

// resolve copies cfg (or the defaults) and validates the copy so callers'
// configs are never mutated.
func resolve(cfg *Config) (Config, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := *cfg
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
