package usbctl

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/gousb"
)

func quietConfig(bus Bus) *Config {
	cfg := DefaultConfig()
	cfg.Bus = bus
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return cfg
}

func TestRequestTypes(t *testing.T) {
	if RequestTypeWrite != 0x41 {
		t.Errorf("RequestTypeWrite = %#02x, want 0x41", RequestTypeWrite)
	}
	if RequestTypeRead != 0xC1 {
		t.Errorf("RequestTypeRead = %#02x, want 0xc1", RequestTypeRead)
	}
}

func TestConfigValidate(t *testing.T) {
	var cfg Config
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if cfg.VendorID != VendorIDNewAE || cfg.ProductID != ProductIDCW310 {
		t.Fatalf("ids = %04X:%04X, want %04X:%04X", cfg.VendorID, cfg.ProductID, VendorIDNewAE, ProductIDCW310)
	}
	if cfg.Timeout != 200*time.Millisecond {
		t.Fatalf("Timeout = %s, want 200ms", cfg.Timeout)
	}
	if cfg.Logger == nil {
		t.Fatalf("Logger not defaulted")
	}

	bad := Config{Timeout: -time.Second}
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for negative timeout")
	}
}

func TestDiscoverFiltersAndSkips(t *testing.T) {
	a := NewSimBoard(1, 4, "A")
	b := NewSimBoard(1, 5, "B")
	noSerial := NewSimBoard(1, 6, "")
	noSerial.SerialErr = errors.New("stall")
	noOpen := NewSimBoard(1, 7, "X")
	noOpen.OpenErr = errors.New("access denied")
	other := &SimDevice{Desc: Descriptor{Bus: 2, Address: 1, VendorID: 0x1234, ProductID: 0x5678}, Serial: "O"}

	bus := NewSimBus(a, other, noSerial, noOpen, b)
	bus.UnreadableDescriptors = 1

	var logs bytes.Buffer
	cfg := quietConfig(bus)
	cfg.Logger = slog.New(slog.NewTextHandler(&logs, nil))

	cands, err := Discover(bus, cfg)
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	if len(cands) != 2 {
		t.Fatalf("got %d candidates, want 2", len(cands))
	}
	if cands[0].Serial != "A" || cands[1].Serial != "B" {
		t.Fatalf("candidates = %q, %q; want A, B", cands[0].Serial, cands[1].Serial)
	}
	if cands[1].Address != 5 {
		t.Fatalf("candidate address = %d, want 5", cands[1].Address)
	}
	if !noSerial.Closed() {
		t.Errorf("device with unreadable serial was not closed")
	}

	out := logs.String()
	for _, want := range []string{"stage=serial", "stage=open", "could not read device descriptor"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestDiscoverSerialFilter(t *testing.T) {
	a := NewSimBoard(1, 4, "A")
	b := NewSimBoard(1, 5, "B")
	bus := NewSimBus(a, b)
	cfg := quietConfig(bus)
	cfg.Serial = "B"

	cands, err := Discover(bus, cfg)
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	if len(cands) != 1 || cands[0].Serial != "B" {
		t.Fatalf("unexpected candidates: %+v", cands)
	}
	if !a.Closed() {
		t.Errorf("filtered-out device left open")
	}
}

func TestDiscoverNoMatchAndOpenNotFound(t *testing.T) {
	bus := NewSimBus(NewSimBoard(1, 4, "A"))
	cfg := quietConfig(bus)
	cfg.VendorID = 0x0001
	cfg.ProductID = 0x0002

	cands, err := Discover(bus, cfg)
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	if len(cands) != 0 {
		t.Fatalf("got %d candidates, want 0", len(cands))
	}

	_, err = Open(cfg)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Open error = %v, want ErrNotFound", err)
	}
	if bus.Closed() {
		t.Errorf("Open closed a bus it did not create")
	}
}

func TestDiscoverListError(t *testing.T) {
	bus := NewSimBus()
	bus.ListErr = errors.New("no libusb")
	if _, err := Discover(bus, quietConfig(bus)); err == nil {
		t.Fatalf("expected enumeration error")
	}
}

func TestOpenUsesFirstMatch(t *testing.T) {
	a := NewSimBoard(1, 4, "A")
	b := NewSimBoard(1, 5, "B")
	bus := NewSimBus(a, b)
	cfg := quietConfig(bus)
	cfg.Timeout = 50 * time.Millisecond

	s, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer s.Close()

	if s.SerialNumber() != "A" {
		t.Fatalf("SerialNumber = %q, want A", s.SerialNumber())
	}
	if a.ControlTimeout() != 50*time.Millisecond {
		t.Fatalf("device timeout = %s, want 50ms", a.ControlTimeout())
	}
	if a.Closed() {
		t.Fatalf("opened device was closed")
	}
	if !b.Closed() {
		t.Fatalf("second candidate left open")
	}
	if cfg.Logger == nil || cfg.Timeout != 50*time.Millisecond {
		t.Fatalf("Open mutated caller config: %+v", cfg)
	}
}

func TestSessionSendRead(t *testing.T) {
	dev := NewSimBoard(1, 4, "A")
	dev.OnControl = func(tr Transfer, data []byte) (int, error) {
		if tr.RequestType == RequestTypeRead {
			return copy(data, "20"), nil
		}
		return len(data), nil
	}
	s, err := Open(quietConfig(NewSimBus(dev)))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}

	n, err := s.Send(0x34, 0xA0, []byte{28, 0x02})
	if err != nil || n != 2 {
		t.Fatalf("Send = %d, %v; want 2, nil", n, err)
	}

	buf := make([]byte, 100)
	n, err = s.Read(0x40, 0, buf)
	if err != nil || n != 2 {
		t.Fatalf("Read = %d, %v; want 2, nil", n, err)
	}
	if string(buf[:n]) != "20" {
		t.Fatalf("Read data = %q, want 20", buf[:n])
	}

	got := dev.Transfers()
	want := []Transfer{
		{RequestType: 0x41, Request: 0x34, Value: 0xA0, Index: 0, Data: []byte{28, 0x02}},
		{RequestType: 0xC1, Request: 0x40, Value: 0, Index: 0, Data: []byte("20")},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d transfers, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].RequestType != want[i].RequestType || got[i].Request != want[i].Request ||
			got[i].Value != want[i].Value || got[i].Index != want[i].Index ||
			!bytes.Equal(got[i].Data, want[i].Data) {
			t.Errorf("transfer %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if !dev.Closed() {
		t.Fatalf("device not closed by session")
	}
}

func TestSessionTransportError(t *testing.T) {
	dev := NewSimBoard(1, 4, "A")
	dev.OnControl = func(Transfer, []byte) (int, error) {
		return 0, gousb.ErrorTimeout
	}
	s, err := Open(quietConfig(NewSimBus(dev)))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer s.Close()

	_, err = s.Send(0x35, 0xA0, nil)
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("Send error = %v, want *TransportError", err)
	}
	if te.Op != "write" || te.Request != 0x35 || te.Value != 0xA0 {
		t.Fatalf("unexpected TransportError fields: %+v", te)
	}
	if !te.Timeout() || !errors.Is(err, gousb.ErrorTimeout) {
		t.Fatalf("timeout not reported through %v", err)
	}

	_, err = s.Read(0x17, 0, make([]byte, 3))
	if !errors.As(err, &te) || te.Op != "read" {
		t.Fatalf("Read error = %v, want read TransportError", err)
	}
}

func TestSessionTransferLogs(t *testing.T) {
	dev := NewSimBoard(1, 4, "A")
	var logs bytes.Buffer
	cfg := DefaultConfig()
	cfg.Bus = NewSimBus(dev)
	cfg.Logger = slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer s.Close()

	if _, err := s.Send(0x34, 0xA2, []byte{28, 1}); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if _, err := s.Read(0x17, 0, make([]byte, 3)); err != nil {
		t.Fatalf("Read returned error: %v", err)
	}

	out := logs.String()
	if !strings.Contains(out, "msg=WRITE_CTRL") || !strings.Contains(out, "msg=READ_CTRL") {
		t.Fatalf("transfer messages missing:\n%s", out)
	}
	for _, want := range []string{
		"request_type=41 request=34 value=00a2 index=0000 data=1c01 n=2",
		"request_type=c1 request=17 value=0000 index=0000 data=000000 n=3",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q\nlog:\n%s", want, out)
		}
	}
}

func TestSessionClosed(t *testing.T) {
	dev := NewSimBoard(1, 4, "A")
	s, err := Open(quietConfig(NewSimBus(dev)))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if _, err := s.Send(0x35, 0xA0, nil); !errors.Is(err, ErrClosed) {
		t.Fatalf("Send after Close = %v, want ErrClosed", err)
	}
	if _, err := s.Read(0x17, 0, make([]byte, 3)); !errors.Is(err, ErrClosed) {
		t.Fatalf("Read after Close = %v, want ErrClosed", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close returned error: %v", err)
	}
	if len(dev.Transfers()) != 0 {
		t.Fatalf("closed session issued transfers")
	}
}

// Integration test - only runs with real hardware
func TestOpenHardware(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	s, err := Open(nil)
	if err != nil {
		t.Skipf("No CW310 found: %v", err)
	}
	defer s.Close()

	buf := make([]byte, 3)
	n, err := s.Read(0x17, 0, buf)
	if err != nil {
		t.Fatalf("firmware version read failed: %v", err)
	}
	t.Logf("CW310 %s firmware %v", s.SerialNumber(), buf[:n])
}
