package sixterm

// Cursor movement and tab stop handling.
//
// After a glyph is written in the last column the cursor may sit one past
// the right edge until the next write wraps it; every movement command
// clamps it back into the grid first.

// CursorPos returns the current cursor position (0-based).
func (b *Buffer) CursorPos() (x, y int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	x = b.cursorX
	if x >= b.cols {
		x = b.cols - 1
	}
	return x, b.cursorY
}

// CursorVisible reports whether the cursor should be drawn (DECTCEM).
func (b *Buffer) CursorVisible() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cursorVisible
}

// SetCursorVisible shows or hides the cursor (DECTCEM).
func (b *Buffer) SetCursorVisible(visible bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cursorVisible = visible
	b.markDirty()
}

// MoveTo positions the cursor (CUP/HVP), 0-based. In origin mode the row is
// relative to the scroll region and confined within it.
func (b *Buffer) MoveTo(x, y int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.moveToInternal(x, y)
	b.markDirty()
}

func (b *Buffer) moveToInternal(x, y int) {
	if b.originMode {
		y += b.scrollTop
		if y > b.scrollBottom {
			y = b.scrollBottom
		}
		if y < b.scrollTop {
			y = b.scrollTop
		}
	} else {
		if y >= b.rows {
			y = b.rows - 1
		}
		if y < 0 {
			y = 0
		}
	}
	if x >= b.cols {
		x = b.cols - 1
	}
	if x < 0 {
		x = 0
	}
	b.cursorX = x
	b.cursorY = y
}

// MoveColumn positions the cursor column without changing the row (CHA/HPA).
func (b *Buffer) MoveColumn(x int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if x < 0 {
		x = 0
	}
	if x >= b.cols {
		x = b.cols - 1
	}
	b.cursorX = x
	b.markDirty()
}

// MoveRow positions the cursor row without changing the column (VPA).
func (b *Buffer) MoveRow(y int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.moveToInternal(b.clampedX(), y)
	b.markDirty()
}

func (b *Buffer) clampedX() int {
	if b.cursorX >= b.cols {
		return b.cols - 1
	}
	return b.cursorX
}

// CursorUp moves up n rows (CUU), stopping at the top margin when the
// cursor starts inside the scroll region.
func (b *Buffer) CursorUp(n int) {
	if n < 1 {
		n = 1
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	limit := 0
	if b.cursorY >= b.scrollTop {
		limit = b.scrollTop
	}
	b.cursorY -= n
	if b.cursorY < limit {
		b.cursorY = limit
	}
	b.cursorX = b.clampedX()
	b.markDirty()
}

// CursorDown moves down n rows (CUD), stopping at the bottom margin when
// the cursor starts inside the scroll region.
func (b *Buffer) CursorDown(n int) {
	if n < 1 {
		n = 1
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	limit := b.rows - 1
	if b.cursorY <= b.scrollBottom {
		limit = b.scrollBottom
	}
	b.cursorY += n
	if b.cursorY > limit {
		b.cursorY = limit
	}
	b.cursorX = b.clampedX()
	b.markDirty()
}

// CursorForward moves right n columns (CUF).
func (b *Buffer) CursorForward(n int) {
	if n < 1 {
		n = 1
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cursorX = b.clampedX() + n
	if b.cursorX >= b.cols {
		b.cursorX = b.cols - 1
	}
	b.markDirty()
}

// CursorBack moves left n columns (CUB).
func (b *Buffer) CursorBack(n int) {
	if n < 1 {
		n = 1
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cursorX = b.clampedX() - n
	if b.cursorX < 0 {
		b.cursorX = 0
	}
	b.markDirty()
}

// CarriageReturn moves the cursor to column 0.
func (b *Buffer) CarriageReturn() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cursorX = 0
	b.markDirty()
}

// LineFeed moves the cursor down one row, scrolling the region when the
// cursor is on the bottom margin.
func (b *Buffer) LineFeed() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lineFeedInternal()
	b.markDirty()
}

func (b *Buffer) lineFeedInternal() {
	if b.cursorY == b.scrollBottom {
		b.scrollUpInternal(1)
	} else if b.cursorY < b.rows-1 {
		b.cursorY++
	}
}

// NextLine is NEL: carriage return plus line feed.
func (b *Buffer) NextLine() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cursorX = 0
	b.lineFeedInternal()
	b.markDirty()
}

// ReverseIndex moves the cursor up one row, scrolling the region down when
// the cursor is on the top margin (RI).
func (b *Buffer) ReverseIndex() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cursorY == b.scrollTop {
		b.scrollDownInternal(1)
	} else if b.cursorY > 0 {
		b.cursorY--
	}
	b.markDirty()
}

// Backspace moves the cursor left one column, stopping at column 0.
func (b *Buffer) Backspace() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cursorX = b.clampedX()
	if b.cursorX > 0 {
		b.cursorX--
	}
	b.markDirty()
}

// Tab advances to the next tab stop, or the last column if none remain.
func (b *Buffer) Tab() {
	b.mu.Lock()
	defer b.mu.Unlock()
	x := b.clampedX()
	for x < b.cols-1 {
		x++
		if b.tabStops[x] {
			break
		}
	}
	b.cursorX = x
	b.markDirty()
}

// BackTab moves to the previous tab stop, or column 0 (CBT).
func (b *Buffer) BackTab(n int) {
	if n < 1 {
		n = 1
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	x := b.clampedX()
	for ; n > 0 && x > 0; n-- {
		for x > 0 {
			x--
			if b.tabStops[x] {
				break
			}
		}
	}
	b.cursorX = x
	b.markDirty()
}

// SetTabStop sets a tab stop at the cursor column (HTS).
func (b *Buffer) SetTabStop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tabStops[b.clampedX()] = true
}

// ClearTabStop clears the tab stop at the cursor column (TBC 0).
func (b *Buffer) ClearTabStop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tabStops[b.clampedX()] = false
}

// ClearAllTabStops removes every tab stop (TBC 3).
func (b *Buffer) ClearAllTabStops() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.tabStops {
		b.tabStops[i] = false
	}
}

// SaveCursor records the cursor position and active attributes (DECSC).
func (b *Buffer) SaveCursor() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saved = cursorState{x: b.clampedX(), y: b.cursorY, fg: b.curFg, bg: b.curBg, attr: b.curAttr}
}

// RestoreCursor restores the state saved by SaveCursor (DECRC). With no
// prior save the cursor homes, matching VT behavior.
func (b *Buffer) RestoreCursor() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cursorX = b.saved.x
	b.cursorY = b.saved.y
	b.curFg = b.saved.fg
	b.curBg = b.saved.bg
	b.curAttr = b.saved.attr
	if b.cursorX >= b.cols {
		b.cursorX = b.cols - 1
	}
	if b.cursorY >= b.rows {
		b.cursorY = b.rows - 1
	}
	b.markDirty()
}
