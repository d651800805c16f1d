package sixterm

import "testing"

func TestWriteTextClusters(t *testing.T) {
	b := NewBuffer(10, 2, 0)
	// A base letter with a combining acute accent (decomposed form) is
	// one cluster, one cell.
	b.WriteText("éx")
	c := b.GetCell(0, 0)
	if c.Rune != 'e' || c.Combining != "́" {
		t.Fatalf("cluster cell = %+v", c)
	}
	if got := b.GetCell(1, 0).Rune; got != 'x' {
		t.Fatalf("cell after cluster = %q, want 'x'", got)
	}
	if got := c.String(); got != "é" {
		t.Fatalf("cluster String = %q", got)
	}
}

func TestWriteTextWideCluster(t *testing.T) {
	b := NewBuffer(10, 2, 0)
	b.WriteText("漢x") // CJK ideograph, double width
	c := b.GetCell(0, 0)
	if c.Rune != '漢' || c.Width != 2 {
		t.Fatalf("wide cell = %+v", c)
	}
	if !b.GetCell(1, 0).IsContinuation() {
		t.Fatalf("no continuation cell after wide cluster")
	}
	if got := b.GetCell(2, 0).Rune; got != 'x' {
		t.Fatalf("cell after wide cluster = %q, want 'x'", got)
	}
}

func TestCombiningMarkAttachesViaParser(t *testing.T) {
	b := NewBuffer(10, 2, 0)
	p := NewParser(b)
	p.ParseString("á")
	c := b.GetCell(0, 0)
	if c.Rune != 'a' || c.Combining != "́" {
		t.Fatalf("combining mark did not attach: %+v", c)
	}
	x, _ := b.CursorPos()
	if x != 1 {
		t.Fatalf("cursor advanced past combining mark: %d", x)
	}
}

func TestAttrMaskHas(t *testing.T) {
	a := AttrBold | AttrUnderline
	if !a.Has(AttrBold) || !a.Has(AttrBold|AttrUnderline) {
		t.Fatalf("Has failed on set flags")
	}
	if a.Has(AttrBlink) || a.Has(AttrBold|AttrBlink) {
		t.Fatalf("Has true for unset flags")
	}
}
