package sixterm

import (
	"fmt"
	"strconv"
	"strings"
)

// CSI dispatch. Sequences route through a lookup table keyed by the
// private-parameter marker, the intermediate byte and the final byte, so
// adding a control is a table entry rather than a branch in a switch.

type csiKey struct {
	private byte // '?', '>', '!', '<' or 0
	inter   byte // intermediate byte (0x20-0x2F) or 0
	final   byte
}

var csiTable map[csiKey]func(*Parser)

func init() {
	csiTable = map[csiKey]func(*Parser){
		{0, 0, '@'}: func(p *Parser) { p.buffer.InsertChars(p.param(0, 1)) },
		{0, 0, 'A'}: func(p *Parser) { p.buffer.CursorUp(p.param(0, 1)) },
		{0, 0, 'B'}: func(p *Parser) { p.buffer.CursorDown(p.param(0, 1)) },
		{0, 0, 'C'}: func(p *Parser) { p.buffer.CursorForward(p.param(0, 1)) },
		{0, 0, 'D'}: func(p *Parser) { p.buffer.CursorBack(p.param(0, 1)) },
		{0, 0, 'E'}: func(p *Parser) { // CNL
			p.buffer.CursorDown(p.param(0, 1))
			p.buffer.CarriageReturn()
		},
		{0, 0, 'F'}: func(p *Parser) { // CPL
			p.buffer.CursorUp(p.param(0, 1))
			p.buffer.CarriageReturn()
		},
		{0, 0, 'G'}: func(p *Parser) { p.buffer.MoveColumn(p.param(0, 1) - 1) },
		{0, 0, 'H'}: (*Parser).csiCUP,
		{0, 0, 'f'}: (*Parser).csiCUP,
		{0, 0, 'I'}: func(p *Parser) { // CHT
			for n := p.param(0, 1); n > 0; n-- {
				p.buffer.Tab()
			}
		},
		{0, 0, 'J'}:   func(p *Parser) { p.buffer.EraseInDisplay(p.paramOrZero(0), false) },
		{'?', 0, 'J'}: func(p *Parser) { p.buffer.EraseInDisplay(p.paramOrZero(0), true) },
		{0, 0, 'K'}:   func(p *Parser) { p.buffer.EraseInLine(p.paramOrZero(0), false) },
		{'?', 0, 'K'}: func(p *Parser) { p.buffer.EraseInLine(p.paramOrZero(0), true) },
		{0, 0, 'L'}:   func(p *Parser) { p.buffer.InsertLines(p.param(0, 1)) },
		{0, 0, 'M'}:   func(p *Parser) { p.buffer.DeleteLines(p.param(0, 1)) },
		{0, 0, 'P'}:   func(p *Parser) { p.buffer.DeleteChars(p.param(0, 1)) },
		{0, 0, 'S'}:   func(p *Parser) { p.buffer.ScrollUp(p.param(0, 1)) },
		{0, 0, 'T'}:   func(p *Parser) { p.buffer.ScrollDown(p.param(0, 1)) },
		{0, 0, 'X'}:   func(p *Parser) { p.buffer.EraseChars(p.param(0, 1)) },
		{0, 0, 'Z'}:   func(p *Parser) { p.buffer.BackTab(p.param(0, 1)) },
		{0, 0, '`'}:   func(p *Parser) { p.buffer.MoveColumn(p.param(0, 1) - 1) }, // HPA
		{0, 0, 'a'}:   func(p *Parser) { p.buffer.CursorForward(p.param(0, 1)) }, // HPR
		{0, 0, 'b'}:   (*Parser).csiREP,
		{0, 0, 'c'}:   (*Parser).csiDA,
		{0, 0, 'd'}:   func(p *Parser) { p.buffer.MoveRow(p.param(0, 1) - 1) },  // VPA
		{0, 0, 'e'}:   func(p *Parser) { p.buffer.CursorDown(p.param(0, 1)) },  // VPR
		{0, 0, 'g'}:   (*Parser).csiTBC,
		{0, 0, 'h'}:   func(p *Parser) {}, // SM: no ANSI modes modeled
		{0, 0, 'l'}:   func(p *Parser) {}, // RM
		{'?', 0, 'h'}: func(p *Parser) { p.setPrivateModes(true) },
		{'?', 0, 'l'}: func(p *Parser) { p.setPrivateModes(false) },
		{0, 0, 'm'}:   (*Parser).executeSGR,
		{0, 0, 'n'}:   (*Parser).csiDSR,
		{0, 0, 'r'}:   (*Parser).csiDECSTBM,
		{0, 0, 's'}:   func(p *Parser) { p.buffer.SaveCursor() },
		{0, 0, 'u'}:   func(p *Parser) { p.buffer.RestoreCursor() },
		{0, 0, 't'}:   func(p *Parser) {}, // window manipulation, not modeled
		{0, '"', 'q'}: (*Parser).csiDECSCA,
		{0, ' ', 'q'}: func(p *Parser) {}, // DECSCUSR: cursor style not modeled
		{'>', 0, 'c'}: (*Parser).csiDA2,
	}
}

// dispatchCSI routes a completed sequence through the table. Unknown
// combinations are discarded.
func (p *Parser) dispatchCSI(final byte) {
	fn, ok := csiTable[csiKey{private: p.csiPrivate, inter: p.csiIntermediate, final: final}]
	if !ok {
		return
	}
	fn(p)
}

// csiDECSTBM sets the scroll margins; an absent or zero bottom parameter
// means the last row.
func (p *Parser) csiDECSTBM() {
	_, rows := p.buffer.Size()
	p.buffer.SetScrollRegion(p.param(0, 1)-1, p.param(1, rows)-1)
}

func (p *Parser) csiCUP() {
	p.buffer.MoveTo(p.param(1, 1)-1, p.param(0, 1)-1)
}

// csiREP repeats the last written glyph (REP).
func (p *Parser) csiREP() {
	if p.lastRune == 0 {
		return
	}
	for n := p.param(0, 1); n > 0; n-- {
		p.buffer.WriteRune(p.lastRune)
	}
}

// csiDA answers Primary Device Attributes as a VT220 with sixel graphics.
func (p *Parser) csiDA() {
	if p.paramOrZero(0) != 0 {
		return
	}
	p.sendReply("\x1b[?62;4;22c")
}

// csiDA2 answers Secondary Device Attributes.
func (p *Parser) csiDA2() {
	if p.paramOrZero(0) != 0 {
		return
	}
	p.sendReply("\x1b[>1;10;0c")
}

func (p *Parser) csiTBC() {
	switch p.paramOrZero(0) {
	case 0:
		p.buffer.ClearTabStop()
	case 3:
		p.buffer.ClearAllTabStops()
	}
}

// csiDSR answers Device Status Report: 5 reports OK, 6 reports the cursor
// position (1-based, relative to the scroll region in origin mode).
func (p *Parser) csiDSR() {
	switch p.paramOrZero(0) {
	case 5:
		p.sendReply("\x1b[0n")
	case 6:
		x, y := p.buffer.CursorPos()
		if p.buffer.originModeActive() {
			top, _ := p.buffer.ScrollRegion()
			y -= top
		}
		p.sendReply(fmt.Sprintf("\x1b[%d;%dR", y+1, x+1))
	}
}

// csiDECSCA sets or clears the protected attribute on subsequent writes.
func (p *Parser) csiDECSCA() {
	switch p.paramOrZero(0) {
	case 1:
		p.buffer.SetAttr(AttrProtected, true)
	default: // 0 and 2 both unprotect
		p.buffer.SetAttr(AttrProtected, false)
	}
}

// setPrivateModes applies DECSET/DECRST for every listed parameter.
func (p *Parser) setPrivateModes(set bool) {
	for i := range p.csiParams {
		switch p.csiParams[i] {
		case 1: // DECCKM
			p.buffer.SetAppCursorKeys(set)
		case 6: // DECOM
			p.buffer.SetOriginMode(set)
		case 7: // DECAWM
			p.buffer.SetAutoWrap(set)
		case 9: // X10 mouse
			if set {
				p.buffer.SetMouseTracking(MouseX10)
			} else {
				p.buffer.SetMouseTracking(MouseOff)
			}
		case 25: // DECTCEM
			p.buffer.SetCursorVisible(set)
		case 47, 1047: // alternate screen, no cursor save
			if set {
				p.buffer.EnterAltScreen()
			} else {
				p.buffer.LeaveAltScreen()
			}
		case 1000:
			if set {
				p.buffer.SetMouseTracking(MouseNormal)
			} else {
				p.buffer.SetMouseTracking(MouseOff)
			}
		case 1002:
			if set {
				p.buffer.SetMouseTracking(MouseDrag)
			} else {
				p.buffer.SetMouseTracking(MouseOff)
			}
		case 1003:
			if set {
				p.buffer.SetMouseTracking(MouseAny)
			} else {
				p.buffer.SetMouseTracking(MouseOff)
			}
		case 1006:
			p.buffer.SetMouseSGR(set)
		case 1049:
			if set {
				p.buffer.SaveCursor()
				p.buffer.EnterAltScreen()
			} else {
				p.buffer.LeaveAltScreen()
				p.buffer.RestoreCursor()
			}
		case 2004:
			p.buffer.SetBracketedPaste(set)
		}
	}
}

// executeSGR applies Select Graphic Rendition parameters, including 256 and
// truecolor forms in both semicolon and colon syntax.
func (p *Parser) executeSGR() {
	if len(p.csiParams) == 0 {
		p.buffer.ResetAttributes()
		return
	}
	for i := 0; i < len(p.csiParams); i++ {
		n := p.csiParams[i]
		switch {
		case n == 0:
			p.buffer.ResetAttributes()
		case n == 1:
			p.buffer.SetAttr(AttrBold, true)
		case n == 3:
			p.buffer.SetAttr(AttrItalic, true)
		case n == 4:
			p.buffer.SetAttr(AttrUnderline, true)
		case n == 5, n == 6:
			p.buffer.SetAttr(AttrBlink, true)
		case n == 7:
			p.buffer.SetAttr(AttrReverse, true)
		case n == 8:
			p.buffer.SetAttr(AttrInvisible, true)
		case n == 9:
			p.buffer.SetAttr(AttrStrikethrough, true)
		case n == 21, n == 22:
			p.buffer.SetAttr(AttrBold, false)
		case n == 23:
			p.buffer.SetAttr(AttrItalic, false)
		case n == 24:
			p.buffer.SetAttr(AttrUnderline, false)
		case n == 25:
			p.buffer.SetAttr(AttrBlink, false)
		case n == 27:
			p.buffer.SetAttr(AttrReverse, false)
		case n == 28:
			p.buffer.SetAttr(AttrInvisible, false)
		case n == 29:
			p.buffer.SetAttr(AttrStrikethrough, false)
		case n >= 30 && n <= 37:
			p.buffer.SetForeground(IndexedColor(n - 30))
		case n == 38:
			i = p.applyExtendedColor(i, true)
		case n == 39:
			p.buffer.SetForeground(DefaultForeground)
		case n >= 40 && n <= 47:
			p.buffer.SetBackground(IndexedColor(n - 40))
		case n == 48:
			i = p.applyExtendedColor(i, false)
		case n == 49:
			p.buffer.SetBackground(DefaultBackground)
		case n >= 90 && n <= 97:
			p.buffer.SetForeground(IndexedColor(n - 90 + 8))
		case n >= 100 && n <= 107:
			p.buffer.SetBackground(IndexedColor(n - 100 + 8))
		}
	}
}

// applyExtendedColor handles SGR 38/48. Colon subparameters
// ("38:2::r:g:b", "38:5:idx") ride along in the raw parameter; otherwise
// the following semicolon parameters are consumed. Returns the index of the
// last parameter used.
func (p *Parser) applyExtendedColor(i int, isFg bool) int {
	if i < len(p.csiRawParams) && strings.ContainsRune(p.csiRawParams[i], ':') {
		if c, ok := parseColonColor(p.csiRawParams[i]); ok {
			p.setExtendedColor(c, isFg)
		}
		return i
	}
	if i+1 >= len(p.csiParams) {
		return i
	}
	switch p.csiParams[i+1] {
	case 5:
		if i+2 < len(p.csiParams) {
			p.setExtendedColor(IndexedColor(p.csiParams[i+2]), isFg)
			return i + 2
		}
		return i + 1
	case 2:
		if i+4 < len(p.csiParams) {
			c := TrueColor(clampChan(p.csiParams[i+2]), clampChan(p.csiParams[i+3]), clampChan(p.csiParams[i+4]))
			p.setExtendedColor(c, isFg)
			return i + 4
		}
		return len(p.csiParams) - 1
	}
	return i + 1
}

func (p *Parser) setExtendedColor(c Color, isFg bool) {
	if isFg {
		p.buffer.SetForeground(c)
	} else {
		p.buffer.SetBackground(c)
	}
}

// parseColonColor parses the colon form of SGR 38/48: "38:5:idx" or
// "38:2[:colorspace]:r:g:b".
func parseColonColor(raw string) (Color, bool) {
	parts := strings.Split(raw, ":")
	if len(parts) < 3 {
		return Color{}, false
	}
	mode, _ := strconv.Atoi(parts[1])
	switch mode {
	case 5:
		idx, err := strconv.Atoi(parts[2])
		if err != nil {
			return Color{}, false
		}
		return IndexedColor(idx), true
	case 2:
		vals := parts[2:]
		// ITU-T colorspace-id form has an extra (possibly empty) field.
		if len(vals) >= 4 {
			vals = vals[len(vals)-3:]
		}
		if len(vals) != 3 {
			return Color{}, false
		}
		var ch [3]int
		for i, v := range vals {
			n, err := strconv.Atoi(v)
			if err != nil {
				return Color{}, false
			}
			ch[i] = n
		}
		return TrueColor(clampChan(ch[0]), clampChan(ch[1]), clampChan(ch[2])), true
	}
	return Color{}, false
}

func clampChan(n int) uint8 {
	if n < 0 {
		return 0
	}
	if n > 255 {
		return 255
	}
	return uint8(n)
}
