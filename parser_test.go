package sixterm

import (
	"bytes"
	"testing"
)

func newTestParser(cols, rows int) (*Buffer, *Parser) {
	b := NewBuffer(cols, rows, 100)
	return b, NewParser(b)
}

func TestPlainTextAndControls(t *testing.T) {
	b, p := newTestParser(20, 5)
	p.ParseString("hello\r\nworld")
	if got := b.RowText(0); got != "hello" {
		t.Fatalf("row 0 = %q, want %q", got, "hello")
	}
	if got := b.RowText(1); got != "world" {
		t.Fatalf("row 1 = %q, want %q", got, "world")
	}
	x, y := b.CursorPos()
	if x != 5 || y != 1 {
		t.Fatalf("cursor = (%d,%d), want (5,1)", x, y)
	}
}

func TestCursorAddressing(t *testing.T) {
	b, p := newTestParser(20, 5)
	p.ParseString("\x1b[3;7HX")
	if got := b.GetCell(6, 2).Rune; got != 'X' {
		t.Fatalf("cell (6,2) = %q, want 'X'", got)
	}
	// Out-of-range targets clamp.
	p.ParseString("\x1b[99;99H")
	x, y := b.CursorPos()
	if x != 19 || y != 4 {
		t.Fatalf("cursor = (%d,%d), want (19,4)", x, y)
	}
}

func TestSGRColors(t *testing.T) {
	b, p := newTestParser(20, 5)
	tests := []struct {
		seq  string
		want Color
	}{
		{"\x1b[31m", IndexedColor(1)},
		{"\x1b[91m", IndexedColor(9)},
		{"\x1b[38;5;123m", IndexedColor(123)},
		{"\x1b[38;2;10;20;30m", TrueColor(10, 20, 30)},
		{"\x1b[38:5:200m", IndexedColor(200)},
		{"\x1b[38:2::40:50:60m", TrueColor(40, 50, 60)},
	}
	for _, tt := range tests {
		p.ParseString("\x1b[0m" + tt.seq)
		fg, _, _ := b.CurrentAttributes()
		if fg != tt.want {
			t.Fatalf("after %q fg = %+v, want %+v", tt.seq, fg, tt.want)
		}
	}
	p.ParseString("\x1b[1;4;7m")
	_, _, attr := b.CurrentAttributes()
	if !attr.Has(AttrBold | AttrUnderline | AttrReverse) {
		t.Fatalf("attr = %b, want bold+underline+reverse", attr)
	}
	p.ParseString("\x1b[m")
	fg, bg, attr := b.CurrentAttributes()
	if !fg.IsDefault() || !bg.IsDefault() || attr != 0 {
		t.Fatalf("after SGR 0: fg=%+v bg=%+v attr=%b, want defaults", fg, bg, attr)
	}
}

func TestAutoWrapAndWideGlyphs(t *testing.T) {
	b, p := newTestParser(4, 3)
	p.ParseString("abcd")
	if got := b.RowText(0); got != "abcd" {
		t.Fatalf("row 0 = %q, want %q", got, "abcd")
	}
	p.ParseString("e")
	if got := b.RowText(1); got != "e" {
		t.Fatalf("wrapped row = %q, want %q", got, "e")
	}

	// A wide glyph occupies a primary and a continuation cell.
	p.ParseString("\x1b[3;1H世")
	if got := b.GetCell(0, 2); got.Rune != '世' || got.Width != 2 {
		t.Fatalf("wide primary = %+v", got)
	}
	if !b.GetCell(1, 2).IsContinuation() {
		t.Fatalf("cell after wide glyph is not a continuation")
	}
	// Overwriting the continuation half clears both cells.
	p.ParseString("\x1b[3;2Hz")
	if got := b.GetCell(0, 2).Rune; got != 0 {
		t.Fatalf("primary half survived overwrite: %q", got)
	}
	if got := b.GetCell(1, 2).Rune; got != 'z' {
		t.Fatalf("cell (1,2) = %q, want 'z'", got)
	}
}

func TestScrollRegionAndScrollback(t *testing.T) {
	b, p := newTestParser(10, 4)

	// Full-screen margins: scrolled-out rows enter scrollback.
	p.ParseString("one\r\ntwo\r\nthree\r\nfour")
	p.ParseString("\n") // cursor on last row, LF scrolls
	if got := b.ScrollbackLen(); got != 1 {
		t.Fatalf("scrollback len = %d, want 1", got)
	}
	if got := b.ScrollbackRow(0); rowToText(got) != "one" {
		t.Fatalf("scrollback row = %q, want %q", rowToText(got), "one")
	}

	// Restricted margins: nothing enters scrollback.
	p.ParseString("\x1b[2;3r")
	p.ParseString("\x1b[3;1H\n\n\n")
	if got := b.ScrollbackLen(); got != 1 {
		t.Fatalf("scrollback len after region scroll = %d, want 1", got)
	}
	// Rows outside the margins are untouched by region scrolling.
	if got := b.RowText(3); got != "four" {
		t.Fatalf("row 3 = %q, want %q", got, "four")
	}
}

func TestDCSPassthroughVerbatim(t *testing.T) {
	_, p := newTestParser(10, 4)
	var payloads [][]byte
	p.SetDCSHandler(func(data []byte) {
		payloads = append(payloads, data)
	})

	p.ParseString("\x1bP0;0;0q#0;2;0;0;0~-\x1b\\")
	if len(payloads) != 1 {
		t.Fatalf("payload count = %d, want 1", len(payloads))
	}
	want := "0;0;0q#0;2;0;0;0~-"
	if string(payloads[0]) != want {
		t.Fatalf("payload = %q, want %q (parameters and command byte must be preserved)", payloads[0], want)
	}

	// 8-bit DCS opener and terminator, split across Parse calls.
	payloads = nil
	p.Parse([]byte{0x90, 'q', '?'})
	p.Parse([]byte{'?', 0x9C})
	if len(payloads) != 1 || string(payloads[0]) != "q??" {
		t.Fatalf("8-bit DCS payload = %q, want %q", payloads, "q??")
	}
}

func TestC1Controls(t *testing.T) {
	b, p := newTestParser(20, 5)
	// 0x9B is the 8-bit CSI.
	p.Parse([]byte{0x9B, '2', ';', '3', 'H'})
	x, y := b.CursorPos()
	if x != 2 || y != 1 {
		t.Fatalf("cursor = (%d,%d), want (2,1)", x, y)
	}
	// 0x9D opens an OSC.
	p.Parse([]byte{0x9D})
	p.ParseString("2;c1 title\x07")
	if got := b.Title(); got != "c1 title" {
		t.Fatalf("title = %q, want %q", got, "c1 title")
	}
}

func TestUTF8AcrossChunks(t *testing.T) {
	b, p := newTestParser(20, 5)
	raw := []byte("héllo")
	for _, c := range raw {
		p.Parse([]byte{c}) // one byte at a time
	}
	if got := b.RowText(0); got != "héllo" {
		t.Fatalf("row = %q, want %q", got, "héllo")
	}
}

func TestMalformedSequencesNonFatal(t *testing.T) {
	b, p := newTestParser(20, 5)
	p.ParseString("\x1b[999999999999999999zA")
	p.ParseString("\x1b?")
	p.ParseString("\x1b[12;\x1b[HB")
	if got := b.GetCell(0, 0).Rune; got != 'B' {
		t.Fatalf("cell (0,0) = %q, want 'B' after malformed sequences", got)
	}
	if got := b.GetCell(0, 0); got.Rune == 0 && got.Width == 0 {
		t.Fatalf("parser died on malformed input")
	}
}

func TestEditingSequences(t *testing.T) {
	b, p := newTestParser(10, 3)
	p.ParseString("abcdef")

	p.ParseString("\x1b[1;3H\x1b[2P") // delete "cd"
	if got := b.RowText(0); got != "abef" {
		t.Fatalf("after DCH: %q, want %q", got, "abef")
	}
	p.ParseString("\x1b[1;3H\x1b[2@") // insert two blanks
	if got := b.RowText(0); got != "ab  ef" {
		t.Fatalf("after ICH: %q, want %q", got, "ab  ef")
	}
	p.ParseString("\x1b[1;1H\x1b[2X")
	if got := b.RowText(0); got != "    ef" {
		t.Fatalf("after ECH: %q, want %q", got, "    ef")
	}
}

func TestEraseDisplayModes(t *testing.T) {
	b, p := newTestParser(6, 3)
	p.ParseString("aaaaaa\r\nbbbbbb\r\ncccccc")

	p.ParseString("\x1b[2;3H\x1b[0J")
	if got := b.RowText(0); got != "aaaaaa" {
		t.Fatalf("row 0 after ED 0: %q", got)
	}
	if got := b.RowText(1); got != "bb" {
		t.Fatalf("row 1 after ED 0: %q, want %q", got, "bb")
	}
	if got := b.RowText(2); got != "" {
		t.Fatalf("row 2 after ED 0: %q, want empty", got)
	}

	p.ParseString("\x1b[2J")
	for y := 0; y < 3; y++ {
		if got := b.RowText(y); got != "" {
			t.Fatalf("row %d after ED 2: %q, want empty", y, got)
		}
	}
}

func TestSelectiveEraseProtectsCells(t *testing.T) {
	b, p := newTestParser(10, 2)
	p.ParseString("ab\x1b[1\"qCD\x1b[0\"qef")
	p.ParseString("\x1b[1;1H\x1b[?2K")
	if got := b.RowText(0); got != "  CD" {
		t.Fatalf("after DECSEL: %q, want %q", got, "  CD")
	}
	// Plain EL ignores protection.
	p.ParseString("\x1b[2K")
	if got := b.RowText(0); got != "" {
		t.Fatalf("after EL: %q, want empty", got)
	}
}

func TestAltScreen(t *testing.T) {
	b, p := newTestParser(10, 3)
	p.ParseString("primary")
	p.ParseString("\x1b[?1049h")
	if !b.AltScreenActive() {
		t.Fatalf("alt screen not active")
	}
	if got := b.RowText(0); got != "" {
		t.Fatalf("alt screen row 0 = %q, want empty", got)
	}
	p.ParseString("alt\r\n\r\n\r\n\r\n\r\n")
	if got := b.ScrollbackLen(); got != 0 {
		t.Fatalf("alt screen fed scrollback: %d rows", got)
	}
	p.ParseString("\x1b[?1049l")
	if got := b.RowText(0); got != "primary" {
		t.Fatalf("primary screen lost: %q", got)
	}
}

func TestTitleHyperlinkClipboard(t *testing.T) {
	b, p := newTestParser(20, 3)
	p.ParseString("\x1b]2;my title\x07")
	if got := b.Title(); got != "my title" {
		t.Fatalf("title = %q", got)
	}
	p.ParseString("\x1b]8;;https://example.com\x07link\x1b]8;;\x07plain")
	if got := b.GetCell(0, 0).Hyperlink; got != "https://example.com" {
		t.Fatalf("hyperlink = %q", got)
	}
	if got := b.GetCell(4, 0).Hyperlink; got != "" {
		t.Fatalf("hyperlink after close = %q, want empty", got)
	}
	p.ParseString("\x1b]52;c;aGVsbG8=\x07")
	if got := b.Clipboard(); got != "hello" {
		t.Fatalf("clipboard = %q, want %q", got, "hello")
	}
}

func TestDSRReports(t *testing.T) {
	_, p := newTestParser(20, 5)
	var out bytes.Buffer
	p.SetReplyFunc(func(data []byte) { out.Write(data) })

	p.ParseString("\x1b[4;8H\x1b[6n")
	if got := out.String(); got != "\x1b[4;8R" {
		t.Fatalf("CPR = %q, want %q", got, "\x1b[4;8R")
	}
	out.Reset()
	p.ParseString("\x1b[5n")
	if got := out.String(); got != "\x1b[0n" {
		t.Fatalf("DSR = %q, want %q", got, "\x1b[0n")
	}
	out.Reset()
	p.ParseString("\x1b[c")
	if got := out.String(); got != "\x1b[?62;4;22c" {
		t.Fatalf("DA = %q, want %q", got, "\x1b[?62;4;22c")
	}
}

func TestTabStops(t *testing.T) {
	b, p := newTestParser(32, 2)
	p.ParseString("\tX")
	if got := b.GetCell(8, 0).Rune; got != 'X' {
		t.Fatalf("tab did not land on column 8")
	}
	// Set a custom stop at column 3, clear all defaults first.
	p.ParseString("\x1b[3g\r\x1b[1;4H\x1bH\r\tY")
	if got := b.GetCell(3, 0).Rune; got != 'Y' {
		t.Fatalf("custom tab stop ignored")
	}
}

func TestREP(t *testing.T) {
	b, p := newTestParser(10, 2)
	p.ParseString("x\x1b[4b")
	if got := b.RowText(0); got != "xxxxx" {
		t.Fatalf("after REP: %q, want %q", got, "xxxxx")
	}
}

func TestScrollRegionDefaultBottom(t *testing.T) {
	b, p := newTestParser(10, 8)

	// Only the top margin given: the bottom defaults to the last row.
	p.ParseString("\x1b[3r")
	if top, bottom := b.ScrollRegion(); top != 2 || bottom != 7 {
		t.Fatalf("region = %d..%d, want 2..7", top, bottom)
	}

	// An explicit zero bottom means the same thing.
	p.ParseString("\x1b[2;0r")
	if top, bottom := b.ScrollRegion(); top != 1 || bottom != 7 {
		t.Fatalf("region = %d..%d, want 1..7", top, bottom)
	}
}
