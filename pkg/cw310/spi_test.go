package cw310

import (
	"bytes"
	"errors"
	"testing"
)

// loopback answers each read with the inverse of the preceding SendData
// payload.
func loopback() *recordConn {
	conn := &recordConn{}
	conn.onRead = func(_ uint8, _ uint16, data []byte) int {
		last := conn.calls[len(conn.calls)-2].data
		for i := range data {
			data[i] = ^last[i]
		}
		return len(data)
	}
	return conn
}

func pattern(n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(i)
	}
	return buf
}

func TestChunks(t *testing.T) {
	for _, n := range []int{0, 1, 63, 64, 65, 128, 130, 200, 1000} {
		buf := pattern(n)
		got := chunks(buf, MaxSPITransfer)
		want := (n + MaxSPITransfer - 1) / MaxSPITransfer
		if len(got) != want {
			t.Fatalf("len %d: got %d windows, want %d", n, len(got), want)
		}
		var joined []byte
		for i, w := range got {
			if len(w) > MaxSPITransfer {
				t.Fatalf("len %d: window %d has %d bytes", n, i, len(w))
			}
			joined = append(joined, w...)
		}
		if !bytes.Equal(joined, buf) {
			t.Fatalf("len %d: windows do not reconstruct the input", n)
		}
		if n > 0 {
			last := n % MaxSPITransfer
			if last == 0 {
				last = MaxSPITransfer
			}
			if len(got[len(got)-1]) != last {
				t.Fatalf("len %d: last window %d bytes, want %d", n, len(got[len(got)-1]), last)
			}
		}
	}
}

func TestSPITransferWire(t *testing.T) {
	conn := &recordConn{onRead: func(_ uint8, _ uint16, data []byte) int {
		return copy(data, []byte{0xAA, 0xBB})
	}}
	rx := make([]byte, 2)
	if err := New(conn).SPITransfer([]byte{0x9F, 0x00}, rx); err != nil {
		t.Fatalf("SPITransfer returned error: %v", err)
	}
	if !bytes.Equal(rx, []byte{0xAA, 0xBB}) {
		t.Fatalf("rx = %X, want AABB", rx)
	}
	if len(conn.calls) != 2 {
		t.Fatalf("got %d transfers, want 2", len(conn.calls))
	}
	send, read := conn.calls[0], conn.calls[1]
	if !send.write || send.request != 0x35 || send.value != 0xA4 || !bytes.Equal(send.data, []byte{0x9F, 0x00}) {
		t.Fatalf("send = %+v", send)
	}
	if read.write || read.request != 0x35 || read.value != 0 || read.length != 2 {
		t.Fatalf("read = %+v", read)
	}
}

func TestSPITransferValidation(t *testing.T) {
	tests := []struct {
		name   string
		tx, rx int
		want   error
	}{
		{"tx too long", 65, 65, ErrInvalidDataLength},
		{"rx too long", 64, 65, ErrInvalidDataLength},
		{"mismatch", 3, 4, ErrMismatchedDataLength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &recordConn{}
			err := New(conn).SPITransfer(make([]byte, tt.tx), make([]byte, tt.rx))
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if len(conn.calls) != 0 {
				t.Fatalf("validation failure issued %d transfers", len(conn.calls))
			}
		})
	}
}

func TestSPIExchangeMismatch(t *testing.T) {
	for _, lens := range [][2]int{{0, 1}, {1, 0}, {64, 65}, {130, 2}, {200, 199}} {
		conn := &recordConn{}
		err := New(conn).SPIExchange(make([]byte, lens[0]), make([]byte, lens[1]))
		if !errors.Is(err, ErrMismatchedDataLength) {
			t.Fatalf("lens %v: error = %v, want ErrMismatchedDataLength", lens, err)
		}
		if len(conn.calls) != 0 {
			t.Fatalf("lens %v: issued %d transfers", lens, len(conn.calls))
		}
	}
}

func sendLengths(calls []call) []int {
	var out []int
	for _, c := range calls {
		if c.write && c.value == uint16(ReqSendData) {
			out = append(out, c.length)
		}
	}
	return out
}

func TestSPIWriteChunks(t *testing.T) {
	conn := &recordConn{}
	buf := pattern(130)
	if err := New(conn).SPIWrite(buf); err != nil {
		t.Fatalf("SPIWrite returned error: %v", err)
	}
	got := sendLengths(conn.calls)
	if len(got) != 3 || got[0] != 64 || got[1] != 64 || got[2] != 2 {
		t.Fatalf("exchange lengths = %v, want [64 64 2]", got)
	}

	var sent []byte
	for _, c := range conn.calls {
		if c.write {
			sent = append(sent, c.data...)
		}
	}
	if !bytes.Equal(sent, buf) {
		t.Fatalf("sent bytes differ from buffer")
	}
	for _, c := range conn.calls {
		if c.value == uint16(ReqCSLow) || c.value == uint16(ReqCSHigh) {
			t.Fatalf("SPIWrite touched chip select: %+v", c)
		}
	}
}

func TestSPIReadChunks(t *testing.T) {
	conn := &recordConn{onRead: func(_ uint8, _ uint16, data []byte) int {
		for i := range data {
			data[i] = 0x5A
		}
		return len(data)
	}}
	buf := make([]byte, 100)
	if err := New(conn).SPIRead(buf); err != nil {
		t.Fatalf("SPIRead returned error: %v", err)
	}
	if got := sendLengths(conn.calls); len(got) != 2 || got[0] != 64 || got[1] != 36 {
		t.Fatalf("exchange lengths = %v, want [64 36]", got)
	}
	for _, c := range conn.calls {
		if c.write && !bytes.Equal(c.data, make([]byte, c.length)) {
			t.Fatalf("SPIRead sent non-zero bytes: %X", c.data)
		}
	}
	if !bytes.Equal(buf, bytes.Repeat([]byte{0x5A}, 100)) {
		t.Fatalf("buffer not filled from reads")
	}
}

func TestSPIExchangeLockstep(t *testing.T) {
	conn := loopback()
	tx := pattern(150)
	rx := make([]byte, 150)
	if err := New(conn).SPIExchange(tx, rx); err != nil {
		t.Fatalf("SPIExchange returned error: %v", err)
	}
	if got := sendLengths(conn.calls); len(got) != 3 || got[2] != 22 {
		t.Fatalf("exchange lengths = %v, want [64 64 22]", got)
	}
	for i := range tx {
		if rx[i] != ^tx[i] {
			t.Fatalf("rx[%d] = %#x, want %#x", i, rx[i], ^tx[i])
		}
	}
}

func TestSPIEmptyBuffers(t *testing.T) {
	conn := &recordConn{}
	b := New(conn)
	if err := b.SPIWrite(nil); err != nil {
		t.Fatalf("SPIWrite(nil) returned error: %v", err)
	}
	if err := b.SPIRead(nil); err != nil {
		t.Fatalf("SPIRead(nil) returned error: %v", err)
	}
	if err := b.SPIExchange(nil, nil); err != nil {
		t.Fatalf("SPIExchange(nil, nil) returned error: %v", err)
	}
	if len(conn.calls) != 0 {
		t.Fatalf("empty buffers issued %d transfers", len(conn.calls))
	}
}

func TestSPIStopsOnError(t *testing.T) {
	boom := errors.New("timeout")
	conn := &recordConn{err: boom}
	if err := New(conn).SPIWrite(pattern(200)); !errors.Is(err, boom) {
		t.Fatalf("SPIWrite error = %v, want %v", err, boom)
	}
	if len(conn.calls) != 1 {
		t.Fatalf("got %d transfers after failure, want 1", len(conn.calls))
	}
}
