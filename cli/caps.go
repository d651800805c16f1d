package cli

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// RawMode holds the saved state of a local terminal switched into raw
// mode.
type RawMode struct {
	fd    int
	state *term.State
}

// EnterRaw switches the controlling terminal into raw mode so key events
// reach the engine unprocessed. Fails when stdin is not a terminal.
func EnterRaw() (*RawMode, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("cli: stdin is not a terminal")
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("cli: enter raw mode: %w", err)
	}
	return &RawMode{fd: fd, state: state}, nil
}

// Restore returns the terminal to its saved state.
func (r *RawMode) Restore() error {
	return term.Restore(r.fd, r.state)
}

// ScreenSize returns the local terminal dimensions, falling back to 80x24
// when stdout is not a terminal.
func ScreenSize() (cols, rows int) {
	w, h, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w < 1 || h < 1 {
		return 80, 24
	}
	return w, h
}
