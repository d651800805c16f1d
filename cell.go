package sixterm

import (
	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// AttrMask is a bit set of cell style flags.
type AttrMask uint16

const (
	AttrBold AttrMask = 1 << iota
	AttrItalic
	AttrUnderline
	AttrBlink
	AttrReverse
	AttrStrikethrough
	AttrInvisible
	// AttrProtected marks a cell immune to selective erase (DECSCA).
	AttrProtected
)

// Has reports whether all flags in m are set.
func (a AttrMask) Has(m AttrMask) bool { return a&m == m }

// Cell represents a single character cell in the terminal grid.
type Cell struct {
	Rune      rune   // Base character; 0 for an empty cell
	Combining string // Combining marks attached to the base character
	Fg, Bg    Color
	Attr      AttrMask
	// Width is the display width: 1 for a normal glyph, 2 for the primary
	// half of a wide glyph, 0 for the continuation half. The two halves of
	// a wide glyph are always mutated together.
	Width int8
	// Image is set when the cell is covered by a decoded bitmap, for
	// renderers that paint block graphics instead of text.
	Image *ImageRef
	// Hyperlink is the OSC 8 URI active when the cell was written, or "".
	Hyperlink string
}

// String returns the full cluster including combining marks.
func (c Cell) String() string {
	if c.Rune == 0 {
		return " "
	}
	if c.Combining == "" {
		return string(c.Rune)
	}
	return string(c.Rune) + c.Combining
}

// IsContinuation reports whether this cell is the trailing half of a wide glyph.
func (c Cell) IsContinuation() bool { return c.Width == 0 && c.Rune == 0 && c.Image == nil }

// runeDisplayWidth returns the number of grid columns a rune occupies (1 or 2).
// Zero-width runes are combining marks and never reach cell placement.
func runeDisplayWidth(r rune) int {
	w := runewidth.RuneWidth(r)
	if w < 1 {
		w = 1
	}
	if w > 2 {
		w = 2
	}
	return w
}

// isZeroWidth reports whether a rune attaches to the preceding cell
// (combining marks, variation selectors, ZWJ).
func isZeroWidth(r rune) bool {
	if r == 0x200C || r == 0x200D { // ZWNJ / ZWJ
		return true
	}
	return runewidth.RuneWidth(r) == 0
}

// clusterWidth returns the display width of a grapheme cluster string,
// counting wide glyphs as two columns.
func clusterWidth(s string) int {
	w := uniseg.StringWidth(s)
	if w < 1 {
		w = 1
	}
	if w > 2 {
		w = 2
	}
	return w
}
