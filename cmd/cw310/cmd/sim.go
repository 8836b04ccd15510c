package cmd

import (
	"github.com/OpenTraceLab/OpenTraceCW310/pkg/cw310"
	"github.com/OpenTraceLab/OpenTraceCW310/pkg/pinmap"
	"github.com/OpenTraceLab/OpenTraceCW310/pkg/usbctl"
)

const simSerial = "SIM0310"

// simJEDECID is what the emulated SPI flash answers to 0x9F.
var simJEDECID = []byte{0xEF, 0x40, 0x18}

// simFirmware emulates the SAM3U firmware closely enough for the CLI: pin
// levels are remembered and SPI1 talks to a flash that only knows the
// JEDEC id command.
type simFirmware struct {
	levels map[uint8]byte

	cmd     byte
	pos     int
	readout []byte
}

// simDevice is the board behind the most recent simulated bus.
var simDevice *usbctl.SimDevice

func newSimBus() *usbctl.SimBus {
	fw := &simFirmware{levels: make(map[uint8]byte)}
	// The emulated FPGA is configured.
	if n, err := pinmap.Resolve("CFG_DONE"); err == nil {
		fw.levels[n] = 1
	}
	simDevice = usbctl.NewSimBoard(1, 4, simSerial)
	simDevice.OnControl = fw.control
	return usbctl.NewSimBus(simDevice)
}

func (f *simFirmware) control(t usbctl.Transfer, data []byte) (int, error) {
	op := cw310.Opcode(t.Request)
	if t.RequestType == usbctl.RequestTypeWrite {
		f.write(op, t.Value, data)
		return len(data), nil
	}

	switch op {
	case cw310.OpFirmwareVersion:
		return copy(data, []byte{1, 1, 0}), nil
	case cw310.OpFirmwareBuildDate:
		return copy(data, "Jan  1 2024 00:00:00"), nil
	case cw310.OpFPGAIOUtil:
		return copy(data, []byte{f.levels[uint8(t.Value)]}), nil
	case cw310.OpFPGASPI1Xfer:
		return copy(data, f.readout), nil
	}
	clear(data)
	return len(data), nil
}

func (f *simFirmware) write(op cw310.Opcode, value uint16, data []byte) {
	switch op {
	case cw310.OpFPGAIOUtil:
		if cw310.IORequest(value) == cw310.ReqIOOutput && len(data) == 2 {
			f.levels[data[0]] = data[1]
		}
	case cw310.OpFPGASPI1Xfer:
		switch cw310.SPIRequest(value) {
		case cw310.ReqCSLow:
			f.pos = 0
		case cw310.ReqSendData:
			f.readout = f.readout[:0]
			for _, b := range data {
				f.readout = append(f.readout, f.clock(b))
			}
		}
	}
}

func (f *simFirmware) clock(b byte) byte {
	defer func() { f.pos++ }()
	if f.pos == 0 {
		f.cmd = b
		return 0xFF
	}
	if f.cmd == 0x9F && f.pos-1 < len(simJEDECID) {
		return simJEDECID[f.pos-1]
	}
	return 0xFF
}
