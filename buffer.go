package sixterm

import "sync"

// MouseTracking selects which mouse events are reported to the remote side.
type MouseTracking int

const (
	MouseOff    MouseTracking = iota
	MouseX10                  // Press only (mode 9)
	MouseNormal               // Press and release (mode 1000)
	MouseDrag                 // Press, release, drag (mode 1002)
	MouseAny                  // All motion (mode 1003)
)

// cursorState is the cursor data saved by DECSC and the alternate screen.
type cursorState struct {
	x, y int
	fg   Color
	bg   Color
	attr AttrMask
}

// Buffer manages the terminal screen grid, scrollback and palette.
//
// A single writer (the engine's reader goroutine) mutates the buffer; any
// number of readers may take snapshots or point lookups concurrently. All
// mutation happens under mu's write lock and all reads under its read lock,
// so a reader can never observe a structure mid-mutation. Resize and
// scrollback-cap changes serialize through the same lock as ordinary writes.
type Buffer struct {
	mu sync.RWMutex

	cols int
	rows int

	// grid is the active display: rows x cols, reallocated (never
	// reflowed) on resize.
	grid [][]Cell

	// Alternate screen (DEC private mode 1049). The alternate screen has
	// no scrollback.
	altGrid   [][]Cell
	altActive bool
	altSaved  cursorState

	cursorX       int
	cursorY       int
	cursorVisible bool
	saved         cursorState

	// Current write attributes.
	curFg      Color
	curBg      Color
	curAttr    AttrMask
	hyperlink  string

	// Scroll region margins, 0-based inclusive.
	scrollTop    int
	scrollBottom int

	// Scrollback: append-only FIFO of historical rows, oldest first,
	// bounded by maxScrollback.
	scrollback    [][]Cell
	maxScrollback int

	tabStops []bool

	// palette persists across display resets and resizes; reset only by
	// RIS or OSC 104.
	palette *Palette

	title     string
	clipboard string

	autoWrap       bool
	originMode     bool
	appCursorKeys  bool
	bracketedPaste bool
	mouseTrack     MouseTracking
	mouseSGR       bool

	dirty   bool
	onDirty func()
}

// NewBuffer creates a terminal buffer with the given dimensions and
// scrollback cap.
func NewBuffer(cols, rows, maxScrollback int) *Buffer {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	if maxScrollback < 0 {
		maxScrollback = 0
	}
	b := &Buffer{
		cols:          cols,
		rows:          rows,
		cursorVisible: true,
		curFg:         DefaultForeground,
		curBg:         DefaultBackground,
		scrollBottom:  rows - 1,
		maxScrollback: maxScrollback,
		palette:       NewPalette(),
		autoWrap:      true,
		dirty:         true,
	}
	b.grid = b.makeGrid(cols, rows)
	b.tabStops = defaultTabStops(cols)
	return b
}

func (b *Buffer) makeGrid(cols, rows int) [][]Cell {
	grid := make([][]Cell, rows)
	for i := range grid {
		grid[i] = b.makeBlankRow(cols)
	}
	return grid
}

func (b *Buffer) makeBlankRow(cols int) []Cell {
	row := make([]Cell, cols)
	blank := b.blankCell()
	for i := range row {
		row[i] = blank
	}
	return row
}

// blankCell is the fill cell for erases and freshly exposed area, carrying
// the current background so erased regions keep the active color.
func (b *Buffer) blankCell() Cell {
	return Cell{Fg: b.curFg, Bg: b.curBg, Width: 1}
}

func defaultTabStops(cols int) []bool {
	stops := make([]bool, cols)
	for i := 8; i < cols; i += 8 {
		stops[i] = true
	}
	return stops
}

// SetDirtyCallback registers a callback invoked after any mutation. The
// callback runs with the write lock held and must not call back into the
// buffer.
func (b *Buffer) SetDirtyCallback(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onDirty = fn
}

func (b *Buffer) markDirty() {
	b.dirty = true
	if b.onDirty != nil {
		b.onDirty()
	}
}

// Size returns the current grid dimensions.
func (b *Buffer) Size() (cols, rows int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cols, b.rows
}

// Resize reallocates the grid to the new dimensions. Content is clipped or
// padded, never re-wrapped; the palette and scrollback are preserved. The
// scroll region resets to the full screen.
func (b *Buffer) Resize(cols, rows int) {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if cols == b.cols && rows == b.rows {
		return
	}
	b.grid = resizeGrid(b.grid, b.cols, cols, rows, b.blankCell())
	if b.altGrid != nil {
		b.altGrid = resizeGrid(b.altGrid, b.cols, cols, rows, b.blankCell())
	}
	b.cols = cols
	b.rows = rows
	b.scrollTop = 0
	b.scrollBottom = rows - 1
	b.tabStops = defaultTabStops(cols)
	if b.cursorX >= cols {
		b.cursorX = cols - 1
	}
	if b.cursorY >= rows {
		b.cursorY = rows - 1
	}
	b.markDirty()
}

// resizeGrid copies the overlapping region of a grid into a freshly
// allocated one, clearing the trailing half of any wide glyph cut by the
// new right edge.
func resizeGrid(old [][]Cell, oldCols, cols, rows int, blank Cell) [][]Cell {
	grid := make([][]Cell, rows)
	for y := range grid {
		row := make([]Cell, cols)
		for x := range row {
			row[x] = blank
		}
		if y < len(old) {
			n := oldCols
			if n > cols {
				n = cols
			}
			copy(row[:n], old[y][:n])
			// A wide glyph split by the clip loses both halves.
			if n > 0 && row[n-1].Width == 2 {
				row[n-1] = blank
			}
			if n > 0 && row[n-1].IsContinuation() {
				row[n-1] = blank
			}
		}
		grid[y] = row
	}
	return grid
}

// SetMaxScrollback changes the scrollback cap, evicting oldest rows if the
// retained history exceeds the new bound.
func (b *Buffer) SetMaxScrollback(n int) {
	if n < 0 {
		n = 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maxScrollback = n
	if len(b.scrollback) > n {
		b.scrollback = b.scrollback[len(b.scrollback)-n:]
	}
	b.markDirty()
}

// MaxScrollback returns the configured scrollback cap.
func (b *Buffer) MaxScrollback() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.maxScrollback
}

// --- Attributes ---

// SetForeground sets the current foreground color.
func (b *Buffer) SetForeground(c Color) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.curFg = c
}

// SetBackground sets the current background color.
func (b *Buffer) SetBackground(c Color) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.curBg = c
}

// SetAttr sets or clears style flags on the current attribute set.
func (b *Buffer) SetAttr(m AttrMask, on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if on {
		b.curAttr |= m
	} else {
		b.curAttr &^= m
	}
}

// ResetAttributes restores default colors and clears all style flags.
func (b *Buffer) ResetAttributes() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.curFg = DefaultForeground
	b.curBg = DefaultBackground
	b.curAttr = 0
}

// CurrentAttributes returns the active write attributes.
func (b *Buffer) CurrentAttributes() (fg, bg Color, attr AttrMask) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.curFg, b.curBg, b.curAttr
}

// SetHyperlink sets the OSC 8 URI attached to subsequently written cells;
// empty string ends the link.
func (b *Buffer) SetHyperlink(uri string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hyperlink = uri
}

// --- Palette ---

// SetPaletteEntry assigns a palette index; used by OSC 4.
func (b *Buffer) SetPaletteEntry(idx int, c RGB) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.palette.Set(idx, c)
	b.markDirty()
}

// PaletteEntry returns the RGB value of a palette index.
func (b *Buffer) PaletteEntry(idx int) RGB {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.palette.Get(idx)
}

// ResetPaletteEntry restores one index to its standard value (OSC 104 with
// arguments).
func (b *Buffer) ResetPaletteEntry(idx int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.palette.ResetEntry(idx)
	b.markDirty()
}

// ResetPalette restores the whole standard table (bare OSC 104 / RIS).
func (b *Buffer) ResetPalette() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.palette.Reset()
	b.markDirty()
}

// ResolveColor maps a cell color to display RGB through the palette.
func (b *Buffer) ResolveColor(c Color, isFg bool) RGB {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.palette.Resolve(c, isFg)
}

// --- Title, clipboard ---

// SetTitle stores the window title (OSC 0/2).
func (b *Buffer) SetTitle(title string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.title = title
	b.markDirty()
}

// Title returns the last title set by the remote program.
func (b *Buffer) Title() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.title
}

// SetClipboard stores clipboard content received via OSC 52.
func (b *Buffer) SetClipboard(s string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clipboard = s
}

// Clipboard returns the last OSC 52 clipboard payload.
func (b *Buffer) Clipboard() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.clipboard
}

// --- Modes ---

// SetAutoWrap enables or disables wrap at the right margin (DECAWM).
func (b *Buffer) SetAutoWrap(on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.autoWrap = on
}

// SetOriginMode sets DECOM: cursor addressing relative to the scroll region.
func (b *Buffer) SetOriginMode(on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.originMode = on
	b.cursorX = 0
	if on {
		b.cursorY = b.scrollTop
	} else {
		b.cursorY = 0
	}
}

// originModeActive reports whether DECOM addressing is in effect.
func (b *Buffer) originModeActive() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.originMode
}

// SetAppCursorKeys sets DECCKM, which changes arrow-key encoding.
func (b *Buffer) SetAppCursorKeys(on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.appCursorKeys = on
}

// AppCursorKeys reports whether application cursor-key encoding is active.
func (b *Buffer) AppCursorKeys() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.appCursorKeys
}

// SetBracketedPaste enables or disables bracketed paste mode (2004).
func (b *Buffer) SetBracketedPaste(on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bracketedPaste = on
}

// BracketedPaste reports whether paste framing is requested.
func (b *Buffer) BracketedPaste() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bracketedPaste
}

// SetMouseTracking selects the mouse reporting mode.
func (b *Buffer) SetMouseTracking(m MouseTracking) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mouseTrack = m
}

// SetMouseSGR enables SGR extended mouse encoding (1006).
func (b *Buffer) SetMouseSGR(on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mouseSGR = on
}

// MouseMode returns the active tracking mode and whether SGR encoding is on.
func (b *Buffer) MouseMode() (MouseTracking, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.mouseTrack, b.mouseSGR
}

// --- Alternate screen ---

// EnterAltScreen switches to the alternate screen (mode 1049): the primary
// grid and cursor are saved and a blank grid becomes active. No-op when
// already active.
func (b *Buffer) EnterAltScreen() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.altActive {
		return
	}
	b.altSaved = cursorState{x: b.cursorX, y: b.cursorY, fg: b.curFg, bg: b.curBg, attr: b.curAttr}
	b.altGrid = b.grid
	b.grid = b.makeGrid(b.cols, b.rows)
	b.altActive = true
	b.cursorX = 0
	b.cursorY = 0
	b.markDirty()
}

// LeaveAltScreen restores the primary screen and saved cursor.
func (b *Buffer) LeaveAltScreen() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.altActive {
		return
	}
	b.grid = b.altGrid
	b.altGrid = nil
	b.altActive = false
	b.cursorX = b.altSaved.x
	b.cursorY = b.altSaved.y
	b.curFg = b.altSaved.fg
	b.curBg = b.altSaved.bg
	b.curAttr = b.altSaved.attr
	if b.cursorX >= b.cols {
		b.cursorX = b.cols - 1
	}
	if b.cursorY >= b.rows {
		b.cursorY = b.rows - 1
	}
	b.markDirty()
}

// AltScreenActive reports whether the alternate screen is in use.
func (b *Buffer) AltScreenActive() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.altActive
}

// Reset restores the terminal to its initial state (RIS): clears the grid,
// cursor, attributes, modes, tab stops and palette. Scrollback is retained.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.altActive {
		b.grid = b.altGrid
		b.altGrid = nil
		b.altActive = false
	}
	b.curFg = DefaultForeground
	b.curBg = DefaultBackground
	b.curAttr = 0
	b.hyperlink = ""
	b.grid = b.makeGrid(b.cols, b.rows)
	b.cursorX = 0
	b.cursorY = 0
	b.cursorVisible = true
	b.saved = cursorState{}
	b.scrollTop = 0
	b.scrollBottom = b.rows - 1
	b.tabStops = defaultTabStops(b.cols)
	b.autoWrap = true
	b.originMode = false
	b.appCursorKeys = false
	b.bracketedPaste = false
	b.mouseTrack = MouseOff
	b.mouseSGR = false
	b.palette.Reset()
	b.markDirty()
}
