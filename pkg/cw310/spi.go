package cw310

import (
	"errors"
	"fmt"
)

// MaxSPITransfer is the largest payload the firmware moves per SPI1
// transaction, in each direction.
const MaxSPITransfer = 64

var (
	ErrInvalidDataLength    = errors.New("cw310: invalid SPI data length")
	ErrMismatchedDataLength = errors.New("cw310: mismatched SPI data length")
)

// SPITransfer clocks out tx while clocking in rx in a single transaction.
// Both buffers must have the same length, at most MaxSPITransfer. The
// chip-select line is left alone.
func (b *Board) SPITransfer(tx, rx []byte) error {
	if len(tx) > MaxSPITransfer {
		return fmt.Errorf("%w: tx %d bytes exceeds %d", ErrInvalidDataLength, len(tx), MaxSPITransfer)
	}
	if len(rx) > MaxSPITransfer {
		return fmt.Errorf("%w: rx %d bytes exceeds %d", ErrInvalidDataLength, len(rx), MaxSPITransfer)
	}
	if len(tx) != len(rx) {
		return fmt.Errorf("%w: tx %d bytes, rx %d bytes", ErrMismatchedDataLength, len(tx), len(rx))
	}
	if err := b.send(ReqSendData.Command(), tx); err != nil {
		return err
	}
	_, err := b.read(cmdSPIReadBack, rx)
	return err
}

// SPIRead fills buf with bytes clocked in while sending zeros. The
// chip-select line is left alone.
func (b *Board) SPIRead(buf []byte) error {
	var zeros [MaxSPITransfer]byte
	for _, chunk := range chunks(buf, MaxSPITransfer) {
		if err := b.SPITransfer(zeros[:len(chunk)], chunk); err != nil {
			return err
		}
	}
	return nil
}

// SPIWrite clocks out buf, discarding what comes back. The chip-select line
// is left alone.
func (b *Board) SPIWrite(buf []byte) error {
	var scratch [MaxSPITransfer]byte
	for _, chunk := range chunks(buf, MaxSPITransfer) {
		if err := b.SPITransfer(chunk, scratch[:len(chunk)]); err != nil {
			return err
		}
	}
	return nil
}

// SPIExchange clocks out tx and stores the bytes clocked in into rx, one
// transaction per MaxSPITransfer window. The chip-select line is left alone
// so callers can frame several calls under one CS assertion.
func (b *Board) SPIExchange(tx, rx []byte) error {
	if len(tx) != len(rx) {
		return fmt.Errorf("%w: tx %d bytes, rx %d bytes", ErrMismatchedDataLength, len(tx), len(rx))
	}
	rxChunks := chunks(rx, MaxSPITransfer)
	for i, w := range chunks(tx, MaxSPITransfer) {
		if err := b.SPITransfer(w, rxChunks[i]); err != nil {
			return err
		}
	}
	return nil
}

// chunks splits buf into consecutive windows of at most size bytes. The
// windows alias buf.
func chunks(buf []byte, size int) [][]byte {
	out := make([][]byte, 0, (len(buf)+size-1)/size)
	for len(buf) > size {
		out = append(out, buf[:size:size])
		buf = buf[size:]
	}
	if len(buf) > 0 {
		out = append(out, buf)
	}
	return out
}
