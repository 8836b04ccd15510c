// Package pinmap resolves CW310 pin identifiers to SAM3U pin numbers.
//
// An identifier is either a decimal pin number, a SAM3U port pin name such
// as "PA28", or a schematic net name such as "USB_SPI_CS" that aliases a
// SAM3U pin. Symbolic names are case-insensitive.
//
// The lookup tables are built on first use and never modified afterwards,
// so Resolve is safe to call from any goroutine.
package pinmap

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// LastPin is the highest SAM3U pin number on the board.
const LastPin = 106

var (
	ErrInvalidPinName   = errors.New("pinmap: invalid pin name")
	ErrInvalidPinNumber = errors.New("pinmap: invalid pin number")
)

// Resolve maps a pin identifier to its SAM3U pin number.
func Resolve(name string) (uint8, error) {
	if isDecimal(name) {
		n, err := strconv.ParseUint(name, 10, 8)
		if err != nil || n > LastPin {
			return 0, fmt.Errorf("%w: %s (last pin is %d)", ErrInvalidPinNumber, name, LastPin)
		}
		return uint8(n), nil
	}

	t := load()
	key := strings.ToUpper(name)
	if sam, ok := t.schematic[key]; ok {
		return t.sam[sam], nil
	}
	if n, ok := t.sam[key]; ok {
		return n, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPinName, key)
}

func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Pin is a SAM3U port pin.
type Pin struct {
	Name   string
	Number uint8
}

// Alias is a schematic net name and the SAM3U pin it is wired to.
type Alias struct {
	Name   string
	Target string
	Number uint8
}

// Pins lists the SAM3U pins ordered by number.
func Pins() []Pin {
	t := load()
	out := make([]Pin, 0, len(t.sam))
	for name, n := range t.sam {
		out = append(out, Pin{Name: name, Number: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// Aliases lists the schematic names ordered by name.
func Aliases() []Alias {
	t := load()
	out := make([]Alias, 0, len(t.schematic))
	for name, target := range t.schematic {
		out = append(out, Alias{Name: name, Target: target, Number: t.sam[target]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Name returns the SAM3U name of pin number n. Numbers in the gaps between
// ports have no name.
func Name(n uint8) (string, bool) {
	name, ok := load().names[n]
	return name, ok
}
