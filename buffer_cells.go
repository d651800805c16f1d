package sixterm

import "strings"

// Point lookups for render backends that pull individual cells instead of
// whole snapshots.

// GetCell returns a copy of the cell at (x, y), or a zero Cell when out of
// range.
func (b *Buffer) GetCell(x, y int) Cell {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if x < 0 || x >= b.cols || y < 0 || y >= b.rows {
		return Cell{}
	}
	return b.grid[y][x]
}

// Row returns a copy of screen row y, or nil when out of range.
func (b *Buffer) Row(y int) []Cell {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if y < 0 || y >= b.rows {
		return nil
	}
	row := make([]Cell, b.cols)
	copy(row, b.grid[y])
	return row
}

// RowText renders screen row y as plain text with trailing blanks trimmed.
func (b *Buffer) RowText(y int) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if y < 0 || y >= b.rows {
		return ""
	}
	return rowToText(b.grid[y])
}

func rowToText(row []Cell) string {
	var sb strings.Builder
	for _, c := range row {
		if c.IsContinuation() {
			continue
		}
		sb.WriteString(c.String())
	}
	return strings.TrimRight(sb.String(), " ")
}

// Dirty reports and clears the modified-since-last-check flag. Renderers
// poll this between frames.
func (b *Buffer) Dirty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	d := b.dirty
	b.dirty = false
	return d
}
