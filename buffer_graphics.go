package sixterm

import "github.com/sixterm/sixterm/sixel"

// ImageRef ties a cell to the region of a decoded bitmap it displays.
// Every cell covered by one image shares the same *sixel.Image; Col and
// Row locate this cell's tile within it.
type ImageRef struct {
	Image *sixel.Image
	Col   int
	Row   int
}

// PlaceImage anchors a decoded bitmap at the cursor, covering the cells the
// bitmap spans at the given cell pixel size. The cursor moves to the start
// of the line below the image, scrolling as needed. Cells beyond the right
// edge are clipped.
func (b *Buffer) PlaceImage(img *sixel.Image, cellW, cellH int) {
	if img == nil || img.Width <= 0 || img.Height <= 0 {
		return
	}
	if cellW < 1 {
		cellW = 10
	}
	if cellH < 1 {
		cellH = 20
	}
	cellsWide := (img.Width + cellW - 1) / cellW
	cellsHigh := (img.Height + cellH - 1) / cellH

	b.mu.Lock()
	defer b.mu.Unlock()
	startX := b.clampedX()
	for row := 0; row < cellsHigh; row++ {
		y := b.cursorY
		for col := 0; col < cellsWide; col++ {
			x := startX + col
			if x >= b.cols {
				break
			}
			b.clearWidePairAt(y, x)
			b.grid[y][x] = Cell{
				Fg:    b.curFg,
				Bg:    b.curBg,
				Width: 1,
				Image: &ImageRef{Image: img, Col: col, Row: row},
			}
		}
		if row < cellsHigh-1 {
			b.lineFeedInternal()
		}
	}
	b.cursorX = 0
	b.lineFeedInternal()
	b.markDirty()
}
