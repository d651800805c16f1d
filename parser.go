package sixterm

import (
	"strconv"
	"strings"
)

// Parser states
type parserState int

const (
	stateGround   parserState = iota
	stateEscape               // After ESC
	stateCSI                  // After ESC [ (entry: private marker allowed)
	stateCSIParam             // Reading CSI parameters
	stateOSC                  // Reading OSC string
	stateOSCEsc               // ESC seen inside OSC, expecting '\'
	stateDCS                  // Passing DCS payload through verbatim
	stateDCSEsc               // ESC seen inside DCS, expecting '\'
	stateCharset              // After ESC ( or ESC )
	stateLineAttr             // After ESC # (DEC line attribute command)
)

// Parser consumes the raw byte stream of a remote program and drives a
// Buffer. Sequence replies (cursor position reports, palette queries,
// device attributes) go through the reply callback; DCS payloads are
// delivered verbatim to the DCS handler.
//
// The parser is not safe for concurrent use; the engine feeds it from a
// single goroutine.
type Parser struct {
	buffer *Buffer

	state parserState

	// CSI accumulator
	csiParams       []int
	csiRawParams    []string // raw strings, kept for colon subparameters
	csiPrivate      byte     // '?', '>', '!', '<' or 0
	csiIntermediate byte
	csiBuf          strings.Builder

	// OSC accumulator
	oscBuf strings.Builder

	// DCS payload accumulator. Contents between the opener and ST are kept
	// byte for byte, including numeric parameters and the command byte.
	dcsBuf []byte

	// UTF-8 multi-byte assembly
	utf8Buf  []byte
	utf8Need int

	// Last glyph written, for REP.
	lastRune rune

	// reply writes sequence responses back to the remote side. Nil drops
	// them.
	reply func([]byte)

	// dcsHandler receives each complete DCS payload. Nil drops them.
	dcsHandler func([]byte)
}

// NewParser creates a parser bound to a buffer.
func NewParser(buffer *Buffer) *Parser {
	return &Parser{
		buffer:    buffer,
		state:     stateGround,
		csiParams: make([]int, 0, 16),
	}
}

// SetReplyFunc registers the sink for sequence replies (DSR, DA, OSC
// queries).
func (p *Parser) SetReplyFunc(fn func([]byte)) {
	p.reply = fn
}

// SetDCSHandler registers the consumer for verbatim DCS payloads.
func (p *Parser) SetDCSHandler(fn func([]byte)) {
	p.dcsHandler = fn
}

func (p *Parser) sendReply(s string) {
	if p.reply != nil {
		p.reply([]byte(s))
	}
}

// Parse processes a chunk of input. Sequences may span chunk boundaries;
// the parser keeps its state between calls.
func (p *Parser) Parse(data []byte) {
	for _, b := range data {
		p.processByte(b)
	}
}

// ParseString processes a string of input.
func (p *Parser) ParseString(data string) {
	p.Parse([]byte(data))
}

func (p *Parser) processByte(b byte) {
	// UTF-8 continuation bytes
	if p.utf8Need > 0 {
		if b&0xC0 == 0x80 {
			p.utf8Buf = append(p.utf8Buf, b)
			p.utf8Need--
			if p.utf8Need == 0 {
				r := decodeUTF8(p.utf8Buf)
				p.writeGlyph(r)
				p.utf8Buf = p.utf8Buf[:0]
			}
			return
		}
		// Invalid UTF-8, drop the partial sequence and reprocess b.
		p.utf8Buf = p.utf8Buf[:0]
		p.utf8Need = 0
	}

	// UTF-8 start bytes commit glyphs only from ground, but assembly must
	// run regardless so a stray sequence cannot desynchronize the stream.
	if p.state == stateGround || p.state == stateOSC {
		switch {
		case b&0xE0 == 0xC0:
			p.utf8Buf = append(p.utf8Buf[:0], b)
			p.utf8Need = 1
			return
		case b&0xF0 == 0xE0:
			p.utf8Buf = append(p.utf8Buf[:0], b)
			p.utf8Need = 2
			return
		case b&0xF8 == 0xF0:
			p.utf8Buf = append(p.utf8Buf[:0], b)
			p.utf8Need = 3
			return
		}
	}

	switch p.state {
	case stateGround:
		p.handleGround(b)
	case stateEscape:
		p.handleEscape(b)
	case stateCSI, stateCSIParam:
		p.handleCSI(b)
	case stateOSC:
		p.handleOSC(b)
	case stateOSCEsc:
		if b == '\\' {
			p.executeOSC(p.oscBuf.String())
		}
		p.state = stateGround
	case stateDCS:
		p.handleDCS(b)
	case stateDCSEsc:
		if b == '\\' {
			p.finishDCS()
			p.state = stateGround
		} else {
			// Not ST after all; keep the ESC in the payload and continue.
			p.dcsBuf = append(p.dcsBuf, 0x1B, b)
			p.state = stateDCS
		}
	case stateCharset:
		// Consume the designation byte; charset switching is not modeled.
		p.state = stateGround
	case stateLineAttr:
		p.handleLineAttr(b)
	}
}

// writeGlyph commits an assembled rune when in ground; inside OSC the rune
// joins the accumulating string (titles may be UTF-8).
func (p *Parser) writeGlyph(r rune) {
	switch p.state {
	case stateGround:
		p.buffer.WriteRune(r)
		p.lastRune = r
	case stateOSC:
		p.oscBuf.WriteRune(r)
	}
}

func decodeUTF8(buf []byte) rune {
	if len(buf) == 0 {
		return 0xFFFD
	}
	var r rune
	switch {
	case buf[0]&0xE0 == 0xC0:
		r = rune(buf[0] & 0x1F)
	case buf[0]&0xF0 == 0xE0:
		r = rune(buf[0] & 0x0F)
	case buf[0]&0xF8 == 0xF0:
		r = rune(buf[0] & 0x07)
	default:
		return 0xFFFD
	}
	for _, b := range buf[1:] {
		r = r<<6 | rune(b&0x3F)
	}
	return r
}

func (p *Parser) handleGround(b byte) {
	switch b {
	case 0x00: // NUL - ignore
	case 0x07: // BEL - ignore
	case 0x08: // BS
		p.buffer.Backspace()
	case 0x09: // HT
		p.buffer.Tab()
	case 0x0A, 0x0B, 0x0C: // LF, VT, FF
		p.buffer.LineFeed()
	case 0x0D: // CR
		p.buffer.CarriageReturn()
	case 0x0E, 0x0F: // SO, SI - charset shifts not modeled
	case 0x1B: // ESC
		p.state = stateEscape
	case 0x84: // IND (C1)
		p.buffer.LineFeed()
	case 0x85: // NEL (C1)
		p.buffer.NextLine()
	case 0x8D: // RI (C1)
		p.buffer.ReverseIndex()
	case 0x90: // DCS (C1)
		p.enterDCS()
	case 0x9B: // CSI (C1)
		p.enterCSI()
	case 0x9C: // ST (C1) with nothing open - ignore
	case 0x9D: // OSC (C1)
		p.enterOSC()
	default:
		if b >= 0x20 && b < 0x7F {
			r := rune(b)
			p.buffer.WriteRune(r)
			p.lastRune = r
		}
	}
}

func (p *Parser) enterCSI() {
	p.state = stateCSI
	p.csiParams = p.csiParams[:0]
	p.csiRawParams = p.csiRawParams[:0]
	p.csiPrivate = 0
	p.csiIntermediate = 0
	p.csiBuf.Reset()
}

func (p *Parser) enterOSC() {
	p.state = stateOSC
	p.oscBuf.Reset()
}

func (p *Parser) enterDCS() {
	p.state = stateDCS
	p.dcsBuf = p.dcsBuf[:0]
}

func (p *Parser) handleEscape(b byte) {
	switch b {
	case '[':
		p.enterCSI()
		return
	case ']':
		p.enterOSC()
		return
	case 'P':
		p.enterDCS()
		return
	case '(', ')':
		p.state = stateCharset
		return
	case '#':
		p.state = stateLineAttr
		return
	case '7': // DECSC
		p.buffer.SaveCursor()
	case '8': // DECRC
		p.buffer.RestoreCursor()
	case 'c': // RIS
		p.buffer.Reset()
	case 'D': // IND
		p.buffer.LineFeed()
	case 'E': // NEL
		p.buffer.NextLine()
	case 'H': // HTS
		p.buffer.SetTabStop()
	case 'M': // RI
		p.buffer.ReverseIndex()
	case '=', '>': // DECKPAM / DECKPNM - keypad mode not modeled
	case '\\': // ST with nothing open
	default:
		// Unknown escape, discard.
	}
	p.state = stateGround
}

// handleLineAttr consumes ESC # sequences. Only DECALN changes state;
// double-width/height line attributes are not modeled.
func (p *Parser) handleLineAttr(b byte) {
	if b == '8' {
		p.buffer.AlignmentTest()
	}
	p.state = stateGround
}

func (p *Parser) handleCSI(b byte) {
	if p.state == stateCSI {
		if b == '?' || b == '>' || b == '!' || b == '<' {
			p.csiPrivate = b
			p.state = stateCSIParam
			return
		}
		p.state = stateCSIParam
	}

	switch {
	case b >= '0' && b <= '9', b == ':':
		p.csiBuf.WriteByte(b)
	case b == ';':
		p.pushCSIParam()
	case b >= 0x20 && b <= 0x2F:
		// Intermediate byte, e.g. SP in DECSCUSR or '"' in DECSCA.
		p.pushCSIParam()
		p.csiIntermediate = b
	case b == 0x1B:
		// Malformed sequence aborted by a new escape.
		p.state = stateEscape
	case b >= 0x40 && b <= 0x7E:
		p.pushCSIParam()
		p.dispatchCSI(b)
		p.state = stateGround
	default:
		// C0 controls execute inside CSI per ECMA-48.
		if b < 0x20 {
			p.handleGround(b)
			return
		}
		p.state = stateGround
	}
}

// pushCSIParam closes the current parameter accumulator. The integer value
// keeps only the part before any colon; the raw string is retained for SGR
// subparameter parsing.
func (p *Parser) pushCSIParam() {
	s := p.csiBuf.String()
	p.csiBuf.Reset()
	if s == "" {
		p.csiParams = append(p.csiParams, 0)
		p.csiRawParams = append(p.csiRawParams, "")
		return
	}
	p.csiRawParams = append(p.csiRawParams, s)
	base := s
	if i := strings.IndexByte(s, ':'); i >= 0 {
		base = s[:i]
	}
	n, _ := strconv.Atoi(base)
	p.csiParams = append(p.csiParams, n)
}

// param returns parameter idx, substituting def for missing or zero values.
func (p *Parser) param(idx, def int) int {
	if idx < len(p.csiParams) && p.csiParams[idx] > 0 {
		return p.csiParams[idx]
	}
	return def
}

// paramOrZero returns parameter idx with zero preserved (for mode numbers
// and ED/EL selectors where 0 is meaningful).
func (p *Parser) paramOrZero(idx int) int {
	if idx < len(p.csiParams) {
		return p.csiParams[idx]
	}
	return 0
}

func (p *Parser) handleOSC(b byte) {
	switch b {
	case 0x07: // BEL terminator
		p.executeOSC(p.oscBuf.String())
		p.state = stateGround
	case 0x1B:
		p.state = stateOSCEsc
	default:
		if b >= 0x20 {
			p.oscBuf.WriteByte(b)
		}
	}
}

func (p *Parser) handleDCS(b byte) {
	if b == 0x1B {
		p.state = stateDCSEsc
		return
	}
	if b == 0x9C { // 8-bit ST
		p.finishDCS()
		p.state = stateGround
		return
	}
	p.dcsBuf = append(p.dcsBuf, b)
}

// finishDCS delivers the accumulated payload verbatim. The handler sees
// exactly the bytes between the opener and ST, leading parameters and
// command byte included.
func (p *Parser) finishDCS() {
	if p.dcsHandler != nil && len(p.dcsBuf) > 0 {
		payload := make([]byte, len(p.dcsBuf))
		copy(payload, p.dcsBuf)
		p.dcsHandler(payload)
	}
	p.dcsBuf = p.dcsBuf[:0]
}
