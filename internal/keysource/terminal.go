package keysource

import (
	"context"
	"fmt"
	"os"
	"unicode/utf8"

	"golang.org/x/term"

	"github.com/jmylchreest/keyclack/internal/model"
)

const ctrlC = 0x03

// TerminalSource reads keystrokes from a terminal in raw mode. It only hears
// keys typed into its own terminal.
type TerminalSource struct {
	in *os.File
	// Echo, when set, receives each printable byte so the user can see
	// what they type.
	Echo func(b []byte)
}

// NewTerminalSource creates a source reading from in, usually os.Stdin.
func NewTerminalSource(in *os.File) *TerminalSource {
	return &TerminalSource{in: in}
}

// Run puts the terminal into raw mode until ctx is done, input ends, or
// Ctrl-C is pressed, in which case it returns ErrInterrupted.
func (s *TerminalSource) Run(ctx context.Context, emit func(uint16)) error {
	fd := int(s.in.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("%s is not a terminal", s.in.Name())
	}

	old, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("failed to enter raw mode: %w", err)
	}
	defer func() { _ = term.Restore(fd, old) }()

	type chunk struct {
		data []byte
		err  error
	}
	reads := make(chan chunk)
	go func() {
		buf := make([]byte, 64)
		for {
			n, err := s.in.Read(buf)
			data := make([]byte, n)
			copy(data, buf[:n])
			select {
			case reads <- chunk{data: data, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c := <-reads:
			if interrupted := s.dispatch(c.data, emit); interrupted {
				return ErrInterrupted
			}
			if c.err != nil {
				return nil
			}
		}
	}
}

// dispatch emits a key code per keystroke in data. Escape sequences (arrow
// keys and friends) count as one Escape press.
func (s *TerminalSource) dispatch(data []byte, emit func(uint16)) bool {
	for len(data) > 0 {
		if data[0] == ctrlC {
			return true
		}
		if data[0] == 0x1b {
			emit(model.KeyEscape)
			data = data[len(data):]
			continue
		}

		r, size := utf8.DecodeRune(data)
		if code, ok := model.KeyCodeForRune(r); ok {
			emit(code)
		}
		if s.Echo != nil && r >= 0x20 && r != 0x7f {
			s.Echo(data[:size])
		}
		data = data[size:]
	}
	return false
}
