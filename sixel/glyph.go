package sixel

// Glyph fallback: tile a bitmap into one text cell per tile, picking a
// block-mosaic glyph whose coverage pattern best matches the tile. Used
// when the far side cannot display sixel data.

// GlyphSet selects the glyph repertoire for downsampling.
type GlyphSet int

const (
	// GlyphBlock renders every cell as a solid block in the average color.
	GlyphBlock GlyphSet = iota
	// GlyphHalfBlock splits each cell into top and bottom halves.
	GlyphHalfBlock
	// GlyphQuadrant splits each cell into a 2x2 mosaic.
	GlyphQuadrant
	// GlyphSextant splits each cell into a 2x3 mosaic (legacy computing
	// block).
	GlyphSextant
	// GlyphBraille splits each cell into the 2x3 six-dot braille grid.
	GlyphBraille
	// GlyphSolidBraille renders every cell as the full six-dot pattern in
	// the average color, for a uniform dotted texture.
	GlyphSolidBraille
)

// GlyphCell is one downsampled character cell.
type GlyphCell struct {
	Rune rune
	Fg   RGB
	Bg   RGB
}

// regionGrid gives the subregion layout (columns, rows) of a set.
func (s GlyphSet) regionGrid() (int, int) {
	switch s {
	case GlyphHalfBlock:
		return 1, 2
	case GlyphQuadrant:
		return 2, 2
	case GlyphSextant, GlyphBraille:
		return 2, 3
	default:
		return 1, 1
	}
}

var quadrantRunes = [16]rune{
	' ', '▘', '▝', '▀',
	'▖', '▌', '▞', '▛',
	'▗', '▚', '▐', '▜',
	'▄', '▙', '▟', '█',
}

// sextantRune maps a 6-bit coverage value (TL, TR, ML, MR, BL, BR from bit
// 0 up) to the legacy computing sextant block, which leaves gaps where the
// pattern already exists as a half block.
func sextantRune(v int) rune {
	switch v {
	case 0:
		return ' '
	case 0b010101: // left column
		return '▌'
	case 0b101010: // right column
		return '▐'
	case 0b111111:
		return '█'
	}
	r := rune(0x1FB00 + v - 1)
	if v > 0b010101 {
		r--
	}
	if v > 0b101010 {
		r--
	}
	return r
}

// brailleBits maps region (col, row) to its six-dot braille bit: dots 1-3
// fill the left column top to bottom, dots 4-6 the right column.
var brailleBits = [2][3]int{
	{0x01, 0x02, 0x04},
	{0x08, 0x10, 0x20},
}

// Downsample tiles the bitmap into cellW x cellH pixel cells and renders
// each as one glyph from the set. Subregions brighter than the cell
// average switch on; foreground averages the on pixels and background the
// off pixels. Deterministic for a given input.
func Downsample(img *Image, cellW, cellH int, set GlyphSet) [][]GlyphCell {
	if img == nil || img.Width <= 0 || img.Height <= 0 {
		return nil
	}
	if cellW < 1 {
		cellW = 1
	}
	if cellH < 1 {
		cellH = 1
	}
	cellsX := (img.Width + cellW - 1) / cellW
	cellsY := (img.Height + cellH - 1) / cellH

	out := make([][]GlyphCell, cellsY)
	for cy := 0; cy < cellsY; cy++ {
		row := make([]GlyphCell, cellsX)
		for cx := 0; cx < cellsX; cx++ {
			row[cx] = downsampleCell(img, cx*cellW, cy*cellH, cellW, cellH, set)
		}
		out[cy] = row
	}
	return out
}

type regionStat struct {
	sum   [3]uint64
	count uint64
	lum   float64
}

func (r *regionStat) add(c RGB) {
	r.sum[0] += uint64(c.R)
	r.sum[1] += uint64(c.G)
	r.sum[2] += uint64(c.B)
	r.count++
	r.lum += luminance(c)
}

func (r *regionStat) mean() RGB {
	if r.count == 0 {
		return RGB{}
	}
	return RGB{
		uint8(r.sum[0] / r.count),
		uint8(r.sum[1] / r.count),
		uint8(r.sum[2] / r.count),
	}
}

func (r *regionStat) meanLum() float64 {
	if r.count == 0 {
		return 0
	}
	return r.lum / float64(r.count)
}

func luminance(c RGB) float64 {
	return 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
}

func downsampleCell(img *Image, x0, y0, cellW, cellH int, set GlyphSet) GlyphCell {
	gx, gy := set.regionGrid()
	regions := make([]regionStat, gx*gy)
	var whole regionStat

	for dy := 0; dy < cellH; dy++ {
		y := y0 + dy
		if y >= img.Height {
			break
		}
		ry := dy * gy / cellH
		for dx := 0; dx < cellW; dx++ {
			x := x0 + dx
			if x >= img.Width {
				break
			}
			rx := dx * gx / cellW
			c := img.At(x, y)
			regions[ry*gx+rx].add(c)
			whole.add(c)
		}
	}

	avg := whole.mean()
	switch set {
	case GlyphBlock:
		return GlyphCell{Rune: '█', Fg: avg, Bg: avg}
	case GlyphSolidBraille:
		return GlyphCell{Rune: 0x2800 | 0x3F, Fg: avg, Bg: avg}
	}

	// Threshold each subregion against the cell mean luminance.
	cellLum := whole.meanLum()
	mask := 0
	var on, off regionStat
	for ry := 0; ry < gy; ry++ {
		for rx := 0; rx < gx; rx++ {
			r := &regions[ry*gx+rx]
			if r.count == 0 {
				continue
			}
			if r.meanLum() >= cellLum {
				switch set {
				case GlyphBraille:
					mask |= brailleBits[rx][ry]
				default:
					mask |= 1 << (ry*gx + rx)
				}
				on.sum[0] += r.sum[0]
				on.sum[1] += r.sum[1]
				on.sum[2] += r.sum[2]
				on.count += r.count
			} else {
				off.sum[0] += r.sum[0]
				off.sum[1] += r.sum[1]
				off.sum[2] += r.sum[2]
				off.count += r.count
			}
		}
	}

	fg := on.mean()
	bg := off.mean()
	if off.count == 0 {
		bg = fg
	}
	if on.count == 0 {
		fg = bg
	}

	var r rune
	switch set {
	case GlyphHalfBlock:
		switch mask {
		case 0b01:
			r = '▀'
		case 0b10:
			r = '▄'
		case 0b11:
			r = '█'
		default:
			r = ' '
		}
	case GlyphQuadrant:
		r = quadrantRunes[mask&0x0F]
	case GlyphSextant:
		r = sextantRune(mask & 0x3F)
	case GlyphBraille:
		r = rune(0x2800 | mask)
	default:
		r = '█'
	}
	return GlyphCell{Rune: r, Fg: fg, Bg: bg}
}
