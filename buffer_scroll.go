package sixterm

// Scroll region handling and the scrollback FIFO.

// SetScrollRegion sets the top and bottom margins (DECSTBM), 0-based
// inclusive. Invalid regions (top >= bottom, out of range) reset to the
// full screen. The cursor homes, honoring origin mode.
func (b *Buffer) SetScrollRegion(top, bottom int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if top < 0 || bottom >= b.rows || top >= bottom {
		top = 0
		bottom = b.rows - 1
	}
	b.scrollTop = top
	b.scrollBottom = bottom
	b.cursorX = 0
	if b.originMode {
		b.cursorY = b.scrollTop
	} else {
		b.cursorY = 0
	}
	b.markDirty()
}

// ScrollRegion returns the active margins, 0-based inclusive.
func (b *Buffer) ScrollRegion() (top, bottom int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.scrollTop, b.scrollBottom
}

// ScrollUp shifts the scroll region contents up n rows (SU). Rows leaving
// the top enter scrollback only when the region spans the whole screen.
func (b *Buffer) ScrollUp(n int) {
	if n < 1 {
		n = 1
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scrollUpInternal(n)
	b.markDirty()
}

// ScrollDown shifts the scroll region contents down n rows (SD), exposing
// blank rows at the top. Nothing enters scrollback.
func (b *Buffer) ScrollDown(n int) {
	if n < 1 {
		n = 1
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scrollDownInternal(n)
	b.markDirty()
}

func (b *Buffer) scrollUpInternal(n int) {
	regionRows := b.scrollBottom - b.scrollTop + 1
	if n > regionRows {
		n = regionRows
	}
	fullScreen := b.scrollTop == 0 && b.scrollBottom == b.rows-1
	for i := 0; i < n; i++ {
		if fullScreen && !b.altActive {
			b.pushScrollback(b.grid[b.scrollTop])
		}
		copy(b.grid[b.scrollTop:b.scrollBottom], b.grid[b.scrollTop+1:b.scrollBottom+1])
		b.grid[b.scrollBottom] = b.makeBlankRow(b.cols)
	}
}

func (b *Buffer) scrollDownInternal(n int) {
	regionRows := b.scrollBottom - b.scrollTop + 1
	if n > regionRows {
		n = regionRows
	}
	for i := 0; i < n; i++ {
		copy(b.grid[b.scrollTop+1:b.scrollBottom+1], b.grid[b.scrollTop:b.scrollBottom])
		b.grid[b.scrollTop] = b.makeBlankRow(b.cols)
	}
}

// pushScrollback appends a row to history, evicting the oldest row when the
// cap is reached. The row is stored by reference: the caller replaces the
// grid slot right after, so the history becomes its sole owner.
func (b *Buffer) pushScrollback(row []Cell) {
	if b.maxScrollback == 0 {
		return
	}
	if len(b.scrollback) >= b.maxScrollback {
		drop := len(b.scrollback) - b.maxScrollback + 1
		b.scrollback = append(b.scrollback[:0], b.scrollback[drop:]...)
	}
	b.scrollback = append(b.scrollback, row)
}

// ScrollbackLen returns the number of rows held in history.
func (b *Buffer) ScrollbackLen() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.scrollback)
}

// ScrollbackRow returns a copy of a history row, oldest first. Returns nil
// when the index is out of range.
func (b *Buffer) ScrollbackRow(i int) []Cell {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if i < 0 || i >= len(b.scrollback) {
		return nil
	}
	row := make([]Cell, len(b.scrollback[i]))
	copy(row, b.scrollback[i])
	return row
}

// ClearScrollback discards all history rows.
func (b *Buffer) ClearScrollback() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scrollback = nil
	b.markDirty()
}
