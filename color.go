// Package sixterm implements a terminal emulation engine: it consumes a raw
// byte stream produced by a remote full-screen program and maintains a
// structured, queryable screen model (cell grid, cursor, scrollback, color
// palette).
//
// This package contains:
//   - Color types and the mutable 256-entry palette
//   - Cell representation
//   - Terminal buffer with scroll regions and scrollback
//   - ANSI/ECMA-48 escape sequence parser with DCS passthrough
//   - The Terminal engine tying a byte source and sink to the buffer
//
// Bitmap graphics (sixel decode/encode and the glyph fallback downsampler)
// live in the sixel subpackage; RFC 854 negotiation lives in the telnet
// subpackage; a reference ANSI renderer over snapshots lives in cli.
package sixterm

import "strings"

// ColorType indicates how a color was specified.
type ColorType uint8

const (
	ColorTypeDefault   ColorType = iota // Use terminal default fg/bg (SGR 39/49)
	ColorTypeIndexed                    // Palette index 0-255 (16-color and 256-color forms)
	ColorTypeTrueColor                  // 24-bit RGB, bypasses the palette
)

// Color represents a terminal color with its original specification
// preserved, so indexed colors keep following the palette when OSC 4
// redefines entries.
type Color struct {
	Type    ColorType
	Index   uint8 // For Indexed
	R, G, B uint8 // For TrueColor
}

// Predefined colors.
var (
	DefaultForeground = Color{Type: ColorTypeDefault}
	DefaultBackground = Color{Type: ColorTypeDefault}
)

// IndexedColor creates a palette-indexed color (0-255).
func IndexedColor(index int) Color {
	if index < 0 || index > 255 {
		index = 7
	}
	return Color{Type: ColorTypeIndexed, Index: uint8(index)}
}

// TrueColor creates a 24-bit color that bypasses the palette.
func TrueColor(r, g, b uint8) Color {
	return Color{Type: ColorTypeTrueColor, R: r, G: g, B: b}
}

// IsDefault returns true if this is the default fg/bg color.
func (c Color) IsDefault() bool {
	return c.Type == ColorTypeDefault
}

// RGB holds the red, green, blue components of a resolved color.
type RGB struct {
	R, G, B uint8
}

// Standard ANSI 16-color palette RGB values (in ANSI order).
var ansiColorsRGB = [16]RGB{
	{R: 0, G: 0, B: 0},       // 0: black
	{R: 170, G: 0, B: 0},     // 1: red
	{R: 0, G: 170, B: 0},     // 2: green
	{R: 170, G: 85, B: 0},    // 3: yellow/brown
	{R: 0, G: 0, B: 170},     // 4: blue
	{R: 170, G: 0, B: 170},   // 5: magenta
	{R: 0, G: 170, B: 170},   // 6: cyan
	{R: 170, G: 170, B: 170}, // 7: white
	{R: 85, G: 85, B: 85},    // 8: bright black
	{R: 255, G: 85, B: 85},   // 9: bright red
	{R: 85, G: 255, B: 85},   // 10: bright green
	{R: 255, G: 255, B: 85},  // 11: bright yellow
	{R: 85, G: 85, B: 255},   // 12: bright blue
	{R: 255, G: 85, B: 255},  // 13: bright magenta
	{R: 85, G: 255, B: 255},  // 14: bright cyan
	{R: 255, G: 255, B: 255}, // 15: bright white
}

// defaultPaletteRGB returns the standard value for a 256-color index:
// the 16 ANSI colors, the 6x6x6 cube, then the grayscale ramp.
func defaultPaletteRGB(idx int) RGB {
	if idx < 0 {
		idx = 0
	} else if idx > 255 {
		idx = 255
	}
	if idx < 16 {
		return ansiColorsRGB[idx]
	}
	if idx < 232 {
		idx -= 16
		b := idx % 6
		g := (idx / 6) % 6
		r := idx / 36
		return RGB{R: cubeLevel(r), G: cubeLevel(g), B: cubeLevel(b)}
	}
	gray := uint8((idx-232)*10 + 8)
	return RGB{R: gray, G: gray, B: gray}
}

func cubeLevel(n int) uint8 {
	if n == 0 {
		return 0
	}
	return uint8(55 + n*40)
}

// Palette is the mutable 256-entry index-to-RGB table. It is owned by a
// Buffer and mutated only through the reader task (OSC 4/104); snapshots
// receive an independent clone. Palette itself carries no lock.
type Palette struct {
	entries    [256]RGB
	foreground RGB
	background RGB
}

// NewPalette creates a palette populated with the standard 256-color table.
func NewPalette() *Palette {
	p := &Palette{
		foreground: RGB{R: 212, G: 212, B: 212},
		background: RGB{R: 30, G: 30, B: 30},
	}
	for i := range p.entries {
		p.entries[i] = defaultPaletteRGB(i)
	}
	return p
}

// Get returns the RGB value for a palette index.
func (p *Palette) Get(idx int) RGB {
	if idx < 0 || idx > 255 {
		return RGB{}
	}
	return p.entries[idx]
}

// Set assigns an RGB value to a palette index.
func (p *Palette) Set(idx int, c RGB) {
	if idx < 0 || idx > 255 {
		return
	}
	p.entries[idx] = c
}

// ResetEntry restores a single index to its standard value.
func (p *Palette) ResetEntry(idx int) {
	if idx < 0 || idx > 255 {
		return
	}
	p.entries[idx] = defaultPaletteRGB(idx)
}

// Reset restores every entry to the standard table.
func (p *Palette) Reset() {
	for i := range p.entries {
		p.entries[i] = defaultPaletteRGB(i)
	}
}

// Clone returns an independent copy of the palette.
func (p *Palette) Clone() *Palette {
	dup := *p
	return &dup
}

// Resolve maps a Color to its display RGB. Indexed colors go through the
// palette table; truecolor bypasses it; default resolves to the palette's
// default foreground or background.
func (p *Palette) Resolve(c Color, isFg bool) RGB {
	switch c.Type {
	case ColorTypeIndexed:
		return p.entries[c.Index]
	case ColorTypeTrueColor:
		return RGB{R: c.R, G: c.G, B: c.B}
	default:
		if isFg {
			return p.foreground
		}
		return p.background
	}
}

// ParseColorSpec parses a color specification as used by OSC 4: the X11
// "rgb:<r>/<g>/<b>" form where each channel is 1-4 hex digits, or the
// "#RGB".."#RRRRGGGGBBBB" form. Each channel group is scaled to 8 bits by
// taking the most-significant 8 bits of the value scaled to 16-bit range,
// so "f", "ff", "fff" and "ffff" all resolve to 0xff and "5" resolves to
// 0x55. Returns false for malformed specs; callers leave the prior palette
// entry unchanged in that case.
func ParseColorSpec(spec string) (RGB, bool) {
	if rest, ok := strings.CutPrefix(spec, "rgb:"); ok {
		parts := strings.Split(rest, "/")
		if len(parts) != 3 {
			return RGB{}, false
		}
		r, ok := scaleHexGroup(parts[0])
		if !ok {
			return RGB{}, false
		}
		g, ok := scaleHexGroup(parts[1])
		if !ok {
			return RGB{}, false
		}
		b, ok := scaleHexGroup(parts[2])
		if !ok {
			return RGB{}, false
		}
		return RGB{R: r, G: g, B: b}, true
	}
	if rest, ok := strings.CutPrefix(spec, "#"); ok {
		if len(rest) == 0 || len(rest)%3 != 0 {
			return RGB{}, false
		}
		n := len(rest) / 3
		if n > 4 {
			return RGB{}, false
		}
		r, ok := scaleHexGroup(rest[:n])
		if !ok {
			return RGB{}, false
		}
		g, ok := scaleHexGroup(rest[n : 2*n])
		if !ok {
			return RGB{}, false
		}
		b, ok := scaleHexGroup(rest[2*n:])
		if !ok {
			return RGB{}, false
		}
		return RGB{R: r, G: g, B: b}, true
	}
	return RGB{}, false
}

// scaleHexGroup converts a 1-4 digit hex channel group to 8 bits using
// most-significant-bit scaling, not low-byte truncation: the group value is
// scaled to the full 16-bit range and the top 8 bits are kept.
func scaleHexGroup(s string) (uint8, bool) {
	if len(s) < 1 || len(s) > 4 {
		return 0, false
	}
	v := 0
	for i := 0; i < len(s); i++ {
		n, ok := hexNibble(s[i])
		if !ok {
			return 0, false
		}
		v = v<<4 | int(n)
	}
	max := 1<<(4*len(s)) - 1
	scaled := v * 0xFFFF / max
	return uint8(scaled >> 8), true
}

func hexNibble(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}

// FormatColorQuery formats an RGB value for an OSC 4 query reply, using the
// 16-bit-per-channel form xterm emits.
func FormatColorQuery(c RGB) string {
	var sb strings.Builder
	sb.WriteString("rgb:")
	sb.WriteString(hex16(c.R))
	sb.WriteByte('/')
	sb.WriteString(hex16(c.G))
	sb.WriteByte('/')
	sb.WriteString(hex16(c.B))
	return sb.String()
}

// hex16 widens an 8-bit channel to the 4-digit replicated form ("55" -> "5555").
func hex16(b uint8) string {
	const hexDigits = "0123456789abcdef"
	hi := hexDigits[b>>4]
	lo := hexDigits[b&0x0F]
	return string([]byte{hi, lo, hi, lo})
}
