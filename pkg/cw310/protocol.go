package cw310

import "fmt"

// Opcode is the bRequest byte selecting a firmware command family.
type Opcode uint8

// SAM3U firmware command families.
const (
	OpReadMemBulk       Opcode = 0x10
	OpWriteMemBulk      Opcode = 0x11
	OpReadMemCtrl       Opcode = 0x12
	OpWriteMemCtrl      Opcode = 0x13
	OpMemStream         Opcode = 0x14
	OpWriteMemCtrlSAM3U Opcode = 0x15
	OpFirmwareVersion   Opcode = 0x17
	OpSMCReadSpeed      Opcode = 0x27
	OpCDCSettingsEnable Opcode = 0x31
	OpFPGAIOUtil        Opcode = 0x34 // GPIO on SAM3U pins wired to the FPGA
	OpFPGASPI1Xfer      Opcode = 0x35 // SPI1 between the SAM3U and the FPGA
	OpFirmwareBuildDate Opcode = 0x40
)

var opcodeNames = map[Opcode]string{
	OpReadMemBulk:       "READMEM_BULK",
	OpWriteMemBulk:      "WRITEMEM_BULK",
	OpReadMemCtrl:       "READMEM_CTRL",
	OpWriteMemCtrl:      "WRITEMEM_CTRL",
	OpMemStream:         "MEMSTREAM",
	OpWriteMemCtrlSAM3U: "WRITEMEM_CTRL_SAM3U",
	OpFirmwareVersion:   "FW_VERSION",
	OpSMCReadSpeed:      "SMC_READ_SPEED",
	OpCDCSettingsEnable: "CDC_SETTINGS_EN",
	OpFPGAIOUtil:        "FPGAIO_UTIL",
	OpFPGASPI1Xfer:      "FPGASPI1_XFER",
	OpFirmwareBuildDate: "FW_BUILD_DATE",
}

func (o Opcode) String() string {
	if name, ok := opcodeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Opcode(%#02x)", uint8(o))
}

// IORequest is the wValue of an OpFPGAIOUtil write.
type IORequest uint16

const (
	ReqIOConfig  IORequest = 0xA0
	ReqIORelease IORequest = 0xA1
	ReqIOOutput  IORequest = 0xA2
)

// PinConfig is the mode byte sent with ReqIOConfig.
type PinConfig uint8

const (
	PinInput   PinConfig = 0x01
	PinOutput  PinConfig = 0x02
	PinSPI1SDO PinConfig = 0x10
	PinSPI1SDI PinConfig = 0x11
	PinSPI1SCK PinConfig = 0x12
	PinSPI1CS  PinConfig = 0x13
)

// SPIRequest is the wValue of an OpFPGASPI1Xfer write.
type SPIRequest uint16

const (
	ReqSPIEnable  SPIRequest = 0xA0
	ReqSPIDisable SPIRequest = 0xA1
	ReqCSLow      SPIRequest = 0xA2
	ReqCSHigh     SPIRequest = 0xA3
	ReqSendData   SPIRequest = 0xA4
)

// Command is the opcode and wValue of one control transfer. Board only
// builds Commands through the constructors below, so an opcode is never
// paired with another family's request code.
type Command struct {
	Opcode Opcode
	Value  uint16
}

func (c Command) String() string {
	return fmt.Sprintf("%s/%#04x", c.Opcode, c.Value)
}

// Command returns the FPGAIO_UTIL command for r.
func (r IORequest) Command() Command {
	return Command{Opcode: OpFPGAIOUtil, Value: uint16(r)}
}

// Command returns the FPGASPI1_XFER command for r.
func (r SPIRequest) Command() Command {
	return Command{Opcode: OpFPGASPI1Xfer, Value: uint16(r)}
}

// pinStateCommand reads the level of pin; the pin number is the wValue.
func pinStateCommand(pin uint8) Command {
	return Command{Opcode: OpFPGAIOUtil, Value: uint16(pin)}
}

var (
	cmdFirmwareVersion   = Command{Opcode: OpFirmwareVersion}
	cmdFirmwareBuildDate = Command{Opcode: OpFirmwareBuildDate}
	cmdSPIReadBack       = Command{Opcode: OpFPGASPI1Xfer}
)

// Response sizes of the firmware queries.
const (
	firmwareVersionLen   = 3
	firmwareBuildDateLen = 100
)
