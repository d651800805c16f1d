// Package cli renders engine snapshots to a local ANSI terminal. It is the
// reference consumer of the snapshot interface: everything it needs comes
// from Snapshot values, never from the live buffer.
package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/muesli/termenv"

	"github.com/sixterm/sixterm"
)

// renderedCell is the last drawn state of one cell, kept for differential
// rendering.
type renderedCell struct {
	char      rune
	combining string
	fg        sixterm.RGB
	bg        sixterm.RGB
	attr      sixterm.AttrMask
}

// Renderer paints snapshots to an output stream, emitting only the cells
// that changed since the previous frame. Colors are degraded to the output
// profile (truecolor, 256, 16) through termenv.
type Renderer struct {
	mu sync.Mutex

	out     io.Writer
	profile termenv.Profile

	lastCells [][]renderedCell
	forceFull bool

	output strings.Builder
}

// NewRenderer creates a renderer for the given stream and color profile.
// Use termenv.ColorProfile() for the ambient terminal.
func NewRenderer(out io.Writer, profile termenv.Profile) *Renderer {
	return &Renderer{out: out, profile: profile, forceFull: true}
}

// ForceFullRedraw makes the next Render repaint every cell.
func (r *Renderer) ForceFullRedraw() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forceFull = true
}

// Render draws a snapshot, diffed against the previous frame.
func (r *Renderer) Render(s *sixterm.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	full := r.forceFull || len(r.lastCells) != s.Rows ||
		(s.Rows > 0 && len(r.lastCells[0]) != s.Cols)
	if full {
		r.lastCells = make([][]renderedCell, s.Rows)
		for y := range r.lastCells {
			r.lastCells[y] = make([]renderedCell, s.Cols)
		}
	}

	r.output.Reset()
	r.output.WriteString("\x1b[?25l") // hide cursor while painting
	if full {
		r.output.WriteString("\x1b[2J")
	}

	var styled bool
	var curFg, curBg sixterm.RGB
	var curAttr sixterm.AttrMask
	for y := 0; y < s.Rows; y++ {
		pendingMove := true
		for x := 0; x < s.Cols; x++ {
			cell := s.Cells[y][x]
			if cell.IsContinuation() {
				continue
			}
			rc := renderedCell{
				char:      cell.Rune,
				combining: cell.Combining,
				fg:        s.Resolve(cell.Fg, true),
				bg:        s.Resolve(cell.Bg, false),
				attr:      cell.Attr,
			}
			if !full && rc == r.lastCells[y][x] {
				pendingMove = true
				continue
			}
			r.lastCells[y][x] = rc
			if pendingMove {
				fmt.Fprintf(&r.output, "\x1b[%d;%dH", y+1, x+1)
				pendingMove = false
			}
			if !styled || rc.fg != curFg || rc.bg != curBg || rc.attr != curAttr {
				r.writeStyle(rc)
				curFg, curBg, curAttr = rc.fg, rc.bg, rc.attr
				styled = true
			}
			r.output.WriteString(cell.String())
		}
	}

	// Park the hardware cursor where the snapshot says it is.
	fmt.Fprintf(&r.output, "\x1b[0m\x1b[%d;%dH", s.CursorY+1, s.CursorX+1)
	if s.CursorVisible {
		r.output.WriteString("\x1b[?25h")
	}
	r.forceFull = false

	_, err := io.WriteString(r.out, r.output.String())
	return err
}

// writeStyle emits a full SGR for a cell state, reset first so attribute
// removal needs no tracking.
func (r *Renderer) writeStyle(rc renderedCell) {
	r.output.WriteString("\x1b[0m")
	if rc.attr.Has(sixterm.AttrBold) {
		r.output.WriteString("\x1b[1m")
	}
	if rc.attr.Has(sixterm.AttrItalic) {
		r.output.WriteString("\x1b[3m")
	}
	if rc.attr.Has(sixterm.AttrUnderline) {
		r.output.WriteString("\x1b[4m")
	}
	if rc.attr.Has(sixterm.AttrBlink) {
		r.output.WriteString("\x1b[5m")
	}
	if rc.attr.Has(sixterm.AttrReverse) {
		r.output.WriteString("\x1b[7m")
	}
	if rc.attr.Has(sixterm.AttrInvisible) {
		r.output.WriteString("\x1b[8m")
	}
	if rc.attr.Has(sixterm.AttrStrikethrough) {
		r.output.WriteString("\x1b[9m")
	}
	fg := r.profile.Color(hexColor(rc.fg))
	bg := r.profile.Color(hexColor(rc.bg))
	if fg != nil {
		fmt.Fprintf(&r.output, "\x1b[%sm", fg.Sequence(false))
	}
	if bg != nil {
		fmt.Fprintf(&r.output, "\x1b[%sm", bg.Sequence(true))
	}
}

func hexColor(c sixterm.RGB) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
