package pinmap

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// SAM3U ports are numbered in blocks of 32; not every block is full.
var samPorts = []struct {
	letter byte
	count  int
}{
	{'A', 30}, // PA0..PA29  -> 0..29
	{'B', 32}, // PB0..PB31  -> 32..63
	{'C', 31}, // PC0..PC30  -> 64..94
	{'D', 11}, // PD0..PD10  -> 96..106
}

// Schematic net names wired to SAM3U pins.
var schematicPins = map[string]string{
	"USBSPARE0":       "PC10",
	"USBSPARE1":       "PC11",
	"USBSPARE2":       "PC12",
	"USBSPARE3":       "PC13",
	"USBRD":           "PA29",
	"USBWR":           "PC18",
	"USBCE":           "PA6",
	"USBALE":          "PC17",
	"USBCK0":          "PB22",
	"USBCK1":          "PA24",
	"USB_A0":          "PC21",
	"USB_A1":          "PC22",
	"USB_A2":          "PC23",
	"USB_A3":          "PC24",
	"USB_A4":          "PC25",
	"USB_A5":          "PC26",
	"USB_A6":          "PC27",
	"USB_A7":          "PC28",
	"USB_A8":          "PC29",
	"USB_A9":          "PC30",
	"USB_A10":         "PD0",
	"USB_A11":         "PD1",
	"USB_A12":         "PD2",
	"USB_A13":         "PD3",
	"USB_A14":         "PD4",
	"USB_A15":         "PD5",
	"USB_A16":         "PD6",
	"USB_A17":         "PD7",
	"USB_A18":         "PD8",
	"USB_A19":         "PD9",
	"USB_D0":          "PC2",
	"USB_D1":          "PC3",
	"USB_D2":          "PC4",
	"USB_D3":          "PC5",
	"USB_D4":          "PC6",
	"USB_D5":          "PC7",
	"USB_D6":          "PC8",
	"USB_D7":          "PC9",
	"SWSTATE":         "PB26",
	"PWRON":           "PB27",
	"LEDSURGE":        "PB14",
	"SAM_FPGA_CFG_CS": "PB16",
	"CFG_INITB":       "PB18",
	"CFG_DONE":        "PB17",
	"CFB_PROGRAMB":    "PB19",
	"SAM_FPGA_COPI":   "PB20",
	"SAM_FPGA_CIPO":   "PB21",
	"SAM_FPGA_CCLK":   "PB24",
	"USB_CLK1":        "PA24",
	"USB_SPI_CIPO":    "PA25",
	"USB_SPI_COPI":    "PA26",
	"USB_SPI_SCK":     "PA27",
	"USB_SPI_CS":      "PA28",
}

type tables struct {
	sam       map[string]uint8
	names     map[uint8]string
	schematic map[string]string
}

var load = sync.OnceValue(func() *tables {
	t := &tables{
		sam:       make(map[string]uint8),
		names:     make(map[uint8]string),
		schematic: schematicPins,
	}
	for i, port := range samPorts {
		for bit := 0; bit < port.count; bit++ {
			name := fmt.Sprintf("P%c%d", port.letter, bit)
			n := uint8(i*32 + bit)
			t.sam[name] = n
			t.names[n] = name
		}
	}
	if err := checkAliases(t.sam, t.schematic); err != nil {
		panic(err)
	}
	return t
})

// checkAliases reports every schematic name whose target is not a SAM3U pin.
func checkAliases(sam map[string]uint8, schematic map[string]string) error {
	var bad []string
	for name, target := range schematic {
		if _, ok := sam[target]; !ok {
			bad = append(bad, fmt.Sprintf("%s -> %s", name, target))
		}
	}
	if len(bad) == 0 {
		return nil
	}
	sort.Strings(bad)
	return fmt.Errorf("pinmap: schematic names without a SAM3U pin: %s", strings.Join(bad, ", "))
}
