package sixterm

// Snapshot is a fully materialized, immutable copy of the terminal state.
// It shares no mutable structure with the live buffer, so holders may read
// it indefinitely while the engine keeps mutating.
type Snapshot struct {
	Cols, Rows       int
	CursorX, CursorY int
	CursorVisible    bool
	AltScreen        bool
	Title            string

	// Cells is the visible grid, Rows slices of Cols cells.
	Cells [][]Cell
	// Scrollback holds history rows, oldest first.
	Scrollback [][]Cell
	// Palette is an independent clone taken at the same instant.
	Palette *Palette
}

// Snapshot copies the complete terminal state inside one bounded read-lock
// critical section. Any number of callers may snapshot concurrently with
// each other and with ongoing writes; each receives an internally
// consistent copy.
func (b *Buffer) Snapshot() *Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s := &Snapshot{
		Cols:          b.cols,
		Rows:          b.rows,
		CursorX:       b.clampedX(),
		CursorY:       b.cursorY,
		CursorVisible: b.cursorVisible,
		AltScreen:     b.altActive,
		Title:         b.title,
		Palette:       b.palette.Clone(),
	}
	s.Cells = make([][]Cell, b.rows)
	for y, row := range b.grid {
		dup := make([]Cell, len(row))
		copy(dup, row)
		s.Cells[y] = dup
	}
	if len(b.scrollback) > 0 {
		s.Scrollback = make([][]Cell, len(b.scrollback))
		for i, row := range b.scrollback {
			dup := make([]Cell, len(row))
			copy(dup, row)
			s.Scrollback[i] = dup
		}
	}
	return s
}

// Cell returns the snapshot cell at (x, y), or a zero Cell out of range.
func (s *Snapshot) Cell(x, y int) Cell {
	if x < 0 || x >= s.Cols || y < 0 || y >= s.Rows {
		return Cell{}
	}
	return s.Cells[y][x]
}

// RowText renders a snapshot row as plain text with trailing blanks trimmed.
func (s *Snapshot) RowText(y int) string {
	if y < 0 || y >= s.Rows {
		return ""
	}
	return rowToText(s.Cells[y])
}

// Resolve maps a cell color through the snapshot's palette.
func (s *Snapshot) Resolve(c Color, isFg bool) RGB {
	return s.Palette.Resolve(c, isFg)
}
