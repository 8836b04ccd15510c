// Package script runs bench scripts against a CW310 board.
//
// A script is a sequence of statements separated by newlines or semicolons;
// "#" starts a comment:
//
//	spi pins USB_SPI_COPI USB_SPI_CIPO USB_SPI_SCK USB_SPI_CS
//	spi enable
//	cs low; write 0x9f; read 3; cs high
//	pin USB_A0 out; set USB_A0 1
//	get CFG_DONE
//
// Statements run in order and execution stops at the first failure.
package script

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// maxRead bounds a single read statement.
const maxRead = 1 << 16

// Board is the board surface a script can drive. *cw310.Board implements it.
type Board interface {
	SerialNumber() string
	FirmwareVersion() ([3]byte, error)
	FirmwareBuildDate() (string, error)
	SetPinOutput(pin string, output bool) error
	ReleasePin(pin string) error
	PinState(pin string) (uint8, error)
	SetPinState(pin string, high bool) error
	SPISetPins(sdo, sdi, sck, cs string) error
	SPIEnable(enable bool) error
	SPISetCS(high bool) error
	SPIWrite(buf []byte) error
	SPIRead(buf []byte) error
	SPIExchange(tx, rx []byte) error
}

// Program is a validated script.
type Program struct {
	Name  string
	instr []instr
}

type instr struct {
	stmt *Stmt
	text string
	data []byte // decoded payload of write and xfer
}

// Len returns the number of statements.
func (p *Program) Len() int {
	return len(p.instr)
}

// Parse reads and validates a script.
func Parse(name string, r io.Reader) (*Program, error) {
	f, err := scriptParser.Parse(name, r)
	if err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	return compile(name, f)
}

// ParseString parses a script held in memory.
func ParseString(name, src string) (*Program, error) {
	return Parse(name, strings.NewReader(src))
}

// ParseFile parses the script at path.
func ParseFile(path string) (*Program, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	defer file.Close()
	return Parse(path, file)
}

func compile(name string, f *File) (*Program, error) {
	p := &Program{Name: name}
	for _, s := range f.Stmts {
		in := instr{stmt: s, text: stmtText(s)}
		var err error
		switch {
		case s.Set != nil:
			if s.Set.Value != 0 && s.Set.Value != 1 {
				err = fmt.Errorf("set value must be 0 or 1, got %d", s.Set.Value)
			}
		case s.Read != nil:
			if s.Read.Count < 1 || s.Read.Count > maxRead {
				err = fmt.Errorf("read count must be between 1 and %d, got %d", maxRead, s.Read.Count)
			}
		case s.Write != nil:
			in.data, err = decodeHex(s.Write.Data)
		case s.Xfer != nil:
			in.data, err = decodeHex(s.Xfer.Data)
		}
		if err != nil {
			return nil, fmt.Errorf("script: %s: %w", s.Pos, err)
		}
		p.instr = append(p.instr, in)
	}
	return p, nil
}

func stmtText(s *Stmt) string {
	parts := make([]string, 0, len(s.Tokens))
	for _, t := range s.Tokens {
		parts = append(parts, t.Value)
	}
	return strings.Join(parts, " ")
}

func decodeHex(words []string) ([]byte, error) {
	var out []byte
	for _, w := range words {
		digits := w[2:]
		if len(digits)%2 != 0 {
			digits = "0" + digits
		}
		b, err := hex.DecodeString(digits)
		if err != nil {
			return nil, fmt.Errorf("bad hex %q: %w", w, err)
		}
		out = append(out, b...)
	}
	return out, nil
}

// Result is the outcome of one executed statement.
type Result struct {
	Line   int
	Text   string
	Output string // empty for statements that return nothing
}

// Runner executes programs against a board.
type Runner struct {
	Board  Board
	Logger *slog.Logger // nil uses slog.Default()
}

// Run executes p in order. It stops at the first failing statement or when
// ctx is done, returning the results gathered so far.
func (r *Runner) Run(ctx context.Context, p *Program) ([]Result, error) {
	log := r.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "script", "script", p.Name)

	results := make([]Result, 0, len(p.instr))
	for _, in := range p.instr {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		line := in.stmt.Pos.Line
		out, err := r.exec(in)
		if err != nil {
			log.Error("statement failed", "line", line, "stmt", in.text, "err", err)
			return results, fmt.Errorf("script: line %d: %s: %w", line, in.text, err)
		}
		log.Debug("statement done", "line", line, "stmt", in.text, "output", out)
		results = append(results, Result{Line: line, Text: in.text, Output: out})
	}
	return results, nil
}

func (r *Runner) exec(in instr) (string, error) {
	b := r.Board
	s := in.stmt
	switch {
	case s.Pin != nil:
		switch s.Pin.Mode {
		case "release":
			return "", b.ReleasePin(s.Pin.Name)
		default:
			return "", b.SetPinOutput(s.Pin.Name, s.Pin.Mode == "out")
		}
	case s.Set != nil:
		return "", b.SetPinState(s.Set.Name, s.Set.Value == 1)
	case s.Get != nil:
		v, err := b.PinState(s.Get.Name)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d", v), nil
	case s.SPIPins != nil:
		p := s.SPIPins
		return "", b.SPISetPins(p.SDO, p.SDI, p.SCK, p.CS)
	case s.SPI != nil:
		return "", b.SPIEnable(s.SPI.Action == "enable")
	case s.CS != nil:
		return "", b.SPISetCS(s.CS.Level == "high")
	case s.Write != nil:
		return "", b.SPIWrite(in.data)
	case s.Read != nil:
		buf := make([]byte, s.Read.Count)
		if err := b.SPIRead(buf); err != nil {
			return "", err
		}
		return hex.EncodeToString(buf), nil
	case s.Xfer != nil:
		rx := make([]byte, len(in.data))
		if err := b.SPIExchange(in.data, rx); err != nil {
			return "", err
		}
		return hex.EncodeToString(rx), nil
	case s.Version:
		v, err := b.FirmwareVersion()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d.%d.%d", v[0], v[1], v[2]), nil
	case s.Date:
		return b.FirmwareBuildDate()
	case s.Serial:
		return b.SerialNumber(), nil
	}
	return "", fmt.Errorf("empty statement")
}
