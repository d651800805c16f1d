package sixterm

import "github.com/rivo/uniseg"

// Cell-level editing: glyph writes, erases, insert/delete of cells and
// lines. Every operation that touches one half of a wide glyph clears the
// other half in the same critical section, so a snapshot never shows an
// orphaned continuation cell.

// WriteRune places a glyph at the cursor and advances it, wrapping at the
// right margin when auto-wrap is on. Zero-width runes attach to the
// previously written cell instead of occupying one.
func (b *Buffer) WriteRune(r rune) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writeRuneInternal(r)
	b.markDirty()
}

// WriteString writes each rune of s through the glyph path. Control bytes
// are not interpreted here; the parser routes those before cell placement.
func (b *Buffer) WriteString(s string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range s {
		b.writeRuneInternal(r)
	}
	b.markDirty()
}

// WriteText places s grapheme cluster by grapheme cluster, so multi-rune
// clusters (emoji ZWJ sequences, combined Hangul) land in single cells
// instead of being split rune-wise. Hosted programs writing directly into
// the buffer use this; the parser keeps the rune-wise path since escape
// sequences arrive interleaved with text.
func (b *Buffer) WriteText(s string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		cluster := g.Str()
		runes := g.Runes()
		if len(runes) == 1 {
			b.writeRuneInternal(runes[0])
			continue
		}
		b.writeClusterInternal(runes[0], cluster[len(string(runes[0])):], clusterWidth(cluster))
	}
	b.markDirty()
}

// writeClusterInternal places a multi-rune cluster as one cell: base rune
// plus combining tail, at the cluster's display width.
func (b *Buffer) writeClusterInternal(base rune, tail string, w int) {
	if w > b.cols {
		// A glyph wider than the whole screen has nowhere to go.
		return
	}
	if b.cursorX+w > b.cols {
		if b.autoWrap {
			b.cursorX = 0
			b.lineFeedInternal()
		} else {
			b.cursorX = b.cols - w
		}
	}
	x, y := b.cursorX, b.cursorY
	b.clearWidePairAt(y, x)
	if w == 2 {
		b.clearWidePairAt(y, x+1)
	}
	b.grid[y][x] = Cell{
		Rune:      base,
		Combining: tail,
		Fg:        b.curFg,
		Bg:        b.curBg,
		Attr:      b.curAttr,
		Width:     int8(w),
		Hyperlink: b.hyperlink,
	}
	if w == 2 {
		b.grid[y][x+1] = Cell{Fg: b.curFg, Bg: b.curBg, Attr: b.curAttr, Width: 0, Hyperlink: b.hyperlink}
	}
	b.cursorX = x + w
}

func (b *Buffer) writeRuneInternal(r rune) {
	if isZeroWidth(r) {
		b.attachCombining(r)
		return
	}
	w := runeDisplayWidth(r)
	if w > b.cols {
		return
	}
	if b.cursorX+w > b.cols {
		if b.autoWrap {
			b.cursorX = 0
			b.lineFeedInternal()
		} else {
			b.cursorX = b.cols - w
		}
	}
	x, y := b.cursorX, b.cursorY
	b.clearWidePairAt(y, x)
	if w == 2 {
		b.clearWidePairAt(y, x+1)
	}
	b.grid[y][x] = Cell{
		Rune:      r,
		Fg:        b.curFg,
		Bg:        b.curBg,
		Attr:      b.curAttr,
		Width:     int8(w),
		Hyperlink: b.hyperlink,
	}
	if w == 2 {
		b.grid[y][x+1] = Cell{Fg: b.curFg, Bg: b.curBg, Attr: b.curAttr, Width: 0, Hyperlink: b.hyperlink}
	}
	b.cursorX = x + w
}

// attachCombining appends a combining mark to the cell the cursor last
// wrote. Marks arriving with nothing written yet are dropped.
func (b *Buffer) attachCombining(r rune) {
	x, y := b.cursorX-1, b.cursorY
	if x < 0 {
		return
	}
	if x >= b.cols {
		x = b.cols - 1
	}
	if b.grid[y][x].IsContinuation() && x > 0 {
		x--
	}
	if b.grid[y][x].Rune == 0 {
		return
	}
	b.grid[y][x].Combining += string(r)
}

// clearWidePairAt blanks both halves of a wide glyph when (x, y) falls on
// either half. Narrow cells are untouched.
func (b *Buffer) clearWidePairAt(y, x int) {
	if y < 0 || y >= b.rows || x < 0 || x >= b.cols {
		return
	}
	c := b.grid[y][x]
	if c.Width == 2 && x+1 < b.cols {
		b.grid[y][x+1] = b.blankCell()
		b.grid[y][x] = b.blankCell()
	} else if c.IsContinuation() && x > 0 && b.grid[y][x-1].Width == 2 {
		b.grid[y][x-1] = b.blankCell()
		b.grid[y][x] = b.blankCell()
	}
}

// eraseRange blanks columns [x0, x1) of row y, widening to cover split
// wide glyphs. When selective is true, cells with the protected attribute
// survive (DECSEL/DECSED).
func (b *Buffer) eraseRange(y, x0, x1 int, selective bool) {
	if y < 0 || y >= b.rows {
		return
	}
	if x0 < 0 {
		x0 = 0
	}
	if x1 > b.cols {
		x1 = b.cols
	}
	if x0 >= x1 {
		return
	}
	if b.grid[y][x0].IsContinuation() && x0 > 0 {
		x0--
	}
	if b.grid[y][x1-1].Width == 2 && x1 < b.cols {
		x1++
	}
	blank := b.blankCell()
	for x := x0; x < x1; x++ {
		if selective && b.grid[y][x].Attr.Has(AttrProtected) {
			continue
		}
		b.grid[y][x] = blank
	}
}

// EraseInLine implements EL/DECSEL: mode 0 cursor to end, 1 start to
// cursor, 2 whole line.
func (b *Buffer) EraseInLine(mode int, selective bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	x := b.clampedX()
	switch mode {
	case 0:
		b.eraseRange(b.cursorY, x, b.cols, selective)
	case 1:
		b.eraseRange(b.cursorY, 0, x+1, selective)
	case 2:
		b.eraseRange(b.cursorY, 0, b.cols, selective)
	}
	b.markDirty()
}

// EraseInDisplay implements ED/DECSED: mode 0 cursor to end of screen, 1
// start of screen to cursor, 2 whole screen, 3 whole screen plus
// scrollback.
func (b *Buffer) EraseInDisplay(mode int, selective bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	x := b.clampedX()
	switch mode {
	case 0:
		b.eraseRange(b.cursorY, x, b.cols, selective)
		for y := b.cursorY + 1; y < b.rows; y++ {
			b.eraseRange(y, 0, b.cols, selective)
		}
	case 1:
		for y := 0; y < b.cursorY; y++ {
			b.eraseRange(y, 0, b.cols, selective)
		}
		b.eraseRange(b.cursorY, 0, x+1, selective)
	case 2:
		for y := 0; y < b.rows; y++ {
			b.eraseRange(y, 0, b.cols, selective)
		}
	case 3:
		for y := 0; y < b.rows; y++ {
			b.eraseRange(y, 0, b.cols, selective)
		}
		if !selective {
			b.scrollback = nil
		}
	}
	b.markDirty()
}

// EraseChars blanks n cells starting at the cursor without moving it (ECH).
func (b *Buffer) EraseChars(n int) {
	if n < 1 {
		n = 1
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	x := b.clampedX()
	b.eraseRange(b.cursorY, x, x+n, false)
	b.markDirty()
}

// InsertChars shifts cells at the cursor right by n, dropping cells pushed
// past the right edge (ICH).
func (b *Buffer) InsertChars(n int) {
	if n < 1 {
		n = 1
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	x, y := b.clampedX(), b.cursorY
	if n > b.cols-x {
		n = b.cols - x
	}
	b.clearWidePairAt(y, x)
	row := b.grid[y]
	copy(row[x+n:], row[x:b.cols-n])
	blank := b.blankCell()
	for i := x; i < x+n; i++ {
		row[i] = blank
	}
	// A wide glyph split by the shift loses its visible half.
	if row[b.cols-1].Width == 2 {
		row[b.cols-1] = blank
	}
	if x+n < b.cols && row[x+n].IsContinuation() {
		row[x+n] = blank
	}
	b.markDirty()
}

// DeleteChars removes n cells at the cursor, pulling the remainder left and
// filling the freed tail with blanks (DCH).
func (b *Buffer) DeleteChars(n int) {
	if n < 1 {
		n = 1
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	x, y := b.clampedX(), b.cursorY
	if n > b.cols-x {
		n = b.cols - x
	}
	b.clearWidePairAt(y, x)
	b.clearWidePairAt(y, x+n-1)
	row := b.grid[y]
	copy(row[x:], row[x+n:])
	blank := b.blankCell()
	for i := b.cols - n; i < b.cols; i++ {
		row[i] = blank
	}
	if row[x].IsContinuation() {
		row[x] = blank
	}
	b.markDirty()
}

// InsertLines inserts n blank rows at the cursor, shifting rows inside the
// scroll region down (IL). No-op outside the region.
func (b *Buffer) InsertLines(n int) {
	if n < 1 {
		n = 1
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cursorY < b.scrollTop || b.cursorY > b.scrollBottom {
		return
	}
	avail := b.scrollBottom - b.cursorY + 1
	if n > avail {
		n = avail
	}
	for i := 0; i < n; i++ {
		copy(b.grid[b.cursorY+1:b.scrollBottom+1], b.grid[b.cursorY:b.scrollBottom])
		b.grid[b.cursorY] = b.makeBlankRow(b.cols)
	}
	b.cursorX = 0
	b.markDirty()
}

// DeleteLines removes n rows at the cursor, shifting the rest of the scroll
// region up and exposing blanks at the bottom margin (DL).
func (b *Buffer) DeleteLines(n int) {
	if n < 1 {
		n = 1
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cursorY < b.scrollTop || b.cursorY > b.scrollBottom {
		return
	}
	avail := b.scrollBottom - b.cursorY + 1
	if n > avail {
		n = avail
	}
	for i := 0; i < n; i++ {
		copy(b.grid[b.cursorY:b.scrollBottom], b.grid[b.cursorY+1:b.scrollBottom+1])
		b.grid[b.scrollBottom] = b.makeBlankRow(b.cols)
	}
	b.cursorX = 0
	b.markDirty()
}

// AlignmentTest fills the screen with 'E' (DECALN), resetting the margins.
func (b *Buffer) AlignmentTest() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scrollTop = 0
	b.scrollBottom = b.rows - 1
	for y := 0; y < b.rows; y++ {
		for x := 0; x < b.cols; x++ {
			b.grid[y][x] = Cell{Rune: 'E', Fg: b.curFg, Bg: b.curBg, Width: 1}
		}
	}
	b.cursorX = 0
	b.cursorY = 0
	b.markDirty()
}
