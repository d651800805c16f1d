package sixel

import "testing"

// halfImage builds one cell: top half bright, bottom half dark.
func halfImage(w, h int) *Image {
	img := &Image{Width: w, Height: h, Pixels: make([]RGB, w*h)}
	for y := 0; y < h; y++ {
		c := RGB{255, 255, 255}
		if y >= h/2 {
			c = RGB{10, 10, 10}
		}
		for x := 0; x < w; x++ {
			img.Pixels[y*w+x] = c
		}
	}
	return img
}

func TestDownsampleHalfBlock(t *testing.T) {
	cells := Downsample(halfImage(8, 16), 8, 16, GlyphHalfBlock)
	if len(cells) != 1 || len(cells[0]) != 1 {
		t.Fatalf("grid = %dx%d, want 1x1", len(cells), len(cells[0]))
	}
	c := cells[0][0]
	if c.Rune != '▀' {
		t.Fatalf("rune = %q, want upper half block", c.Rune)
	}
	if c.Fg.R < 200 {
		t.Fatalf("fg = %+v, want bright (the on half)", c.Fg)
	}
	if c.Bg.R > 50 {
		t.Fatalf("bg = %+v, want dark (the off half)", c.Bg)
	}
}

func TestDownsampleBlockAveragesCell(t *testing.T) {
	cells := Downsample(halfImage(8, 16), 8, 16, GlyphBlock)
	c := cells[0][0]
	if c.Rune != '█' {
		t.Fatalf("rune = %q, want full block", c.Rune)
	}
	// Average of half white and half near-black.
	if c.Fg.R < 100 || c.Fg.R > 160 {
		t.Fatalf("fg = %+v, want mid-gray average", c.Fg)
	}
	if c.Bg != c.Fg {
		t.Fatalf("solid block fg/bg differ: %+v / %+v", c.Fg, c.Bg)
	}
}

func TestDownsampleQuadrant(t *testing.T) {
	// Bright left column, dark right: left quadrants switch on.
	img := &Image{Width: 8, Height: 8, Pixels: make([]RGB, 64)}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			c := RGB{240, 240, 240}
			if x >= 4 {
				c = RGB{10, 10, 10}
			}
			img.Pixels[y*8+x] = c
		}
	}
	cells := Downsample(img, 8, 8, GlyphQuadrant)
	if got := cells[0][0].Rune; got != '▌' {
		t.Fatalf("rune = %q, want left half block", got)
	}
}

func TestDownsampleBraille(t *testing.T) {
	// Only the top-left subregion bright: braille dot 1.
	img := &Image{Width: 4, Height: 6, Pixels: make([]RGB, 24)}
	for i := range img.Pixels {
		img.Pixels[i] = RGB{10, 10, 10}
	}
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.Pixels[y*4+x] = RGB{250, 250, 250}
		}
	}
	cells := Downsample(img, 4, 6, GlyphBraille)
	if got := cells[0][0].Rune; got != rune(0x2801) {
		t.Fatalf("rune = %U, want U+2801 (dot 1)", got)
	}
}

func TestDownsampleSolidBraille(t *testing.T) {
	cells := Downsample(halfImage(4, 6), 4, 6, GlyphSolidBraille)
	if got := cells[0][0].Rune; got != rune(0x283F) {
		t.Fatalf("rune = %U, want U+283F (all six dots)", got)
	}
}

func TestSextantRuneGaps(t *testing.T) {
	tests := []struct {
		v    int
		want rune
	}{
		{0, ' '},
		{1, 0x1FB00},
		{0b010101, '▌'},
		{0b101010, '▐'},
		{0b111111, '█'},
		{20, 0x1FB13},
		{22, 0x1FB14},
		{62, 0x1FB3B},
	}
	for _, tt := range tests {
		if got := sextantRune(tt.v); got != tt.want {
			t.Fatalf("sextantRune(%d) = %U, want %U", tt.v, got, tt.want)
		}
	}
}

func TestDownsampleDeterministic(t *testing.T) {
	img := testImage(32, 24)
	a := Downsample(img, 4, 8, GlyphSextant)
	b := Downsample(img, 4, 8, GlyphSextant)
	for y := range a {
		for x := range a[y] {
			if a[y][x] != b[y][x] {
				t.Fatalf("cell (%d,%d) differs between identical runs", x, y)
			}
		}
	}
}

func TestDownsampleGridDimensions(t *testing.T) {
	img := testImage(33, 25)
	cells := Downsample(img, 8, 12, GlyphQuadrant)
	if len(cells) != 3 { // ceil(25/12)
		t.Fatalf("rows = %d, want 3", len(cells))
	}
	if len(cells[0]) != 5 { // ceil(33/8)
		t.Fatalf("cols = %d, want 5", len(cells[0]))
	}
}
