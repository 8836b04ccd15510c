// Package cw310 drives the SAM3U controller of a NewAE CW310 FPGA board over
// vendor USB control transfers.
//
// The firmware exposes a small command set: firmware queries, GPIO on the
// SAM3U pins wired to the FPGA, and an SPI1 master between the SAM3U and the
// FPGA. Each Board method issues a fixed sequence of control transfers
// through a usbctl.Session; pins are named as understood by pinmap.Resolve.
//
// # Usage
//
//	b, err := cw310.Open(nil) // first CW310 on the host
//	if err != nil {
//		return err
//	}
//	defer b.Close()
//
//	err = b.SPISetPins("USB_SPI_COPI", "USB_SPI_CIPO", "USB_SPI_SCK", "USB_SPI_CS")
//	err = b.SPIEnable(true)
//
//	// CS framing is up to the caller.
//	err = b.SPISetCS(false)
//	id := make([]byte, 3)
//	err = b.SPIWrite([]byte{0x9f})
//	err = b.SPIRead(id)
//	err = b.SPISetCS(true)
//
// # SPI transactions
//
// The firmware moves at most MaxSPITransfer bytes per transaction.
// SPITransfer is the single-transaction primitive; SPIRead, SPIWrite and
// SPIExchange split longer buffers into consecutive 64-byte windows. None of
// them touch chip select.
//
// # Errors
//
// Pin and length validation fails before any transfer is issued (see
// IsValidation). Transfer failures surface as *usbctl.TransportError; after
// a timeout the device state is unknown and should be re-read.
package cw310
