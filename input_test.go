package sixterm

import (
	"bytes"
	"testing"
)

func TestEncodeKey(t *testing.T) {
	tests := []struct {
		name      string
		ev        KeyEvent
		appCursor bool
		want      string
	}{
		{"rune", KeyEvent{Key: KeyRune, Rune: 'a'}, false, "a"},
		{"ctrl-c", KeyEvent{Key: KeyRune, Rune: 'c', Ctrl: true}, false, "\x03"},
		{"alt-x", KeyEvent{Key: KeyRune, Rune: 'x', Alt: true}, false, "\x1bx"},
		{"enter", KeyEvent{Key: KeyEnter}, false, "\r"},
		{"up normal", KeyEvent{Key: KeyUp}, false, "\x1b[A"},
		{"up application", KeyEvent{Key: KeyUp}, true, "\x1bOA"},
		{"left application", KeyEvent{Key: KeyLeft}, true, "\x1bOD"},
		{"home normal", KeyEvent{Key: KeyHome}, false, "\x1b[H"},
		{"f1", KeyEvent{Key: KeyF1}, false, "\x1bOP"},
		{"f5", KeyEvent{Key: KeyF5}, false, "\x1b[15~"},
		{"f12", KeyEvent{Key: KeyF12}, false, "\x1b[24~"},
		{"delete", KeyEvent{Key: KeyDelete}, false, "\x1b[3~"},
		{"backspace", KeyEvent{Key: KeyBackspace}, false, "\x7f"},
	}
	for _, tt := range tests {
		if got := EncodeKey(tt.ev, tt.appCursor); string(got) != tt.want {
			t.Fatalf("%s: EncodeKey = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestEncodeMouseSGR(t *testing.T) {
	press := MouseEvent{X: 4, Y: 9, Button: MouseLeft, Press: true}
	if got := EncodeMouse(press, MouseNormal, true); string(got) != "\x1b[<0;5;10M" {
		t.Fatalf("press = %q", got)
	}
	release := MouseEvent{X: 4, Y: 9, Button: MouseLeft}
	if got := EncodeMouse(release, MouseNormal, true); string(got) != "\x1b[<0;5;10m" {
		t.Fatalf("release = %q", got)
	}
	wheel := MouseEvent{X: 0, Y: 0, Button: MouseWheelUp, Press: true}
	if got := EncodeMouse(wheel, MouseNormal, true); string(got) != "\x1b[<64;1;1M" {
		t.Fatalf("wheel = %q", got)
	}
	ctrl := MouseEvent{X: 0, Y: 0, Button: MouseRight, Press: true, Ctrl: true}
	if got := EncodeMouse(ctrl, MouseNormal, true); string(got) != "\x1b[<18;1;1M" {
		t.Fatalf("ctrl press = %q", got)
	}
}

func TestEncodeMouseLegacy(t *testing.T) {
	press := MouseEvent{X: 0, Y: 0, Button: MouseLeft, Press: true}
	want := []byte{0x1B, '[', 'M', 32, 33, 33}
	if got := EncodeMouse(press, MouseNormal, false); !bytes.Equal(got, want) {
		t.Fatalf("legacy press = %v, want %v", got, want)
	}
	// Release becomes button 3 in the legacy encoding.
	release := MouseEvent{X: 0, Y: 0, Button: MouseLeft}
	want = []byte{0x1B, '[', 'M', 35, 33, 33}
	if got := EncodeMouse(release, MouseNormal, false); !bytes.Equal(got, want) {
		t.Fatalf("legacy release = %v, want %v", got, want)
	}
	// Coordinates clamp at one byte.
	far := MouseEvent{X: 500, Y: 500, Button: MouseLeft, Press: true}
	got := EncodeMouse(far, MouseNormal, false)
	if got[4] != 255 || got[5] != 255 {
		t.Fatalf("far coords = %v, want clamped to 255", got)
	}
}

func TestEncodeMouseFiltering(t *testing.T) {
	motion := MouseEvent{X: 1, Y: 1, Button: MouseLeft, Motion: true}
	if got := EncodeMouse(motion, MouseNormal, true); got != nil {
		t.Fatalf("motion leaked in normal mode: %q", got)
	}
	if got := EncodeMouse(motion, MouseDrag, true); got == nil {
		t.Fatalf("drag filtered in button mode")
	}
	release := MouseEvent{X: 1, Y: 1, Button: MouseLeft}
	if got := EncodeMouse(release, MouseX10, false); got != nil {
		t.Fatalf("release leaked in X10 mode: %q", got)
	}
	press := MouseEvent{X: 1, Y: 1, Button: MouseLeft, Press: true}
	if got := EncodeMouse(press, MouseOff, true); got != nil {
		t.Fatalf("event leaked with tracking off: %q", got)
	}
}

func TestFramePaste(t *testing.T) {
	data := []byte("pasted\ntext")
	if got := FramePaste(data, false); !bytes.Equal(got, data) {
		t.Fatalf("unbracketed paste altered: %q", got)
	}
	want := "\x1b[200~pasted\ntext\x1b[201~"
	if got := FramePaste(data, true); string(got) != want {
		t.Fatalf("bracketed paste = %q, want %q", got, want)
	}
}
