package sixterm

import "fmt"

// Input-direction encoding: key and mouse events translated into the byte
// sequences a remote full-screen program expects, honoring the modes it
// has negotiated (application cursor keys, mouse tracking flavor,
// bracketed paste).

// Key identifies a non-text key.
type Key int

const (
	KeyRune Key = iota // Printable text carried in KeyEvent.Rune
	KeyEnter
	KeyTab
	KeyBacktab
	KeyBackspace
	KeyEscape
	KeyUp
	KeyDown
	KeyRight
	KeyLeft
	KeyHome
	KeyEnd
	KeyInsert
	KeyDelete
	KeyPgUp
	KeyPgDn
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
)

// KeyEvent is a single key press with modifiers.
type KeyEvent struct {
	Key  Key
	Rune rune
	Ctrl bool
	Alt  bool
}

// MouseButton identifies which button an event concerns.
type MouseButton int

const (
	MouseLeft MouseButton = iota
	MouseMiddle
	MouseRight
	MouseWheelUp
	MouseWheelDown
	MouseRelease
)

// MouseEvent is a button or motion event at a cell position (0-based).
type MouseEvent struct {
	X, Y   int
	Button MouseButton
	Press  bool // true for press, false for release
	Motion bool // drag/motion rather than a click edge
	Shift  bool
	Alt    bool
	Ctrl   bool
}

// tilde-form CSI codes for editing and function keys.
var tildeKeys = map[Key]int{
	KeyHome:   1,
	KeyInsert: 2,
	KeyDelete: 3,
	KeyEnd:    4,
	KeyPgUp:   5,
	KeyPgDn:   6,
	KeyF5:     15,
	KeyF6:     17,
	KeyF7:     18,
	KeyF8:     19,
	KeyF9:     20,
	KeyF10:    21,
	KeyF11:    23,
	KeyF12:    24,
}

// EncodeKey renders a key event as the byte sequence to send to the remote
// program. appCursor selects DECCKM encoding for arrows and Home/End.
func EncodeKey(ev KeyEvent, appCursor bool) []byte {
	var out []byte
	switch ev.Key {
	case KeyRune:
		r := ev.Rune
		if ev.Ctrl && r >= 'a' && r <= 'z' {
			r = r - 'a' + 1
		} else if ev.Ctrl && r >= 'A' && r <= 'Z' {
			r = r - 'A' + 1
		}
		out = []byte(string(r))
	case KeyEnter:
		out = []byte{'\r'}
	case KeyTab:
		out = []byte{'\t'}
	case KeyBacktab:
		out = []byte("\x1b[Z")
	case KeyBackspace:
		out = []byte{0x7F}
	case KeyEscape:
		out = []byte{0x1B}
	case KeyUp, KeyDown, KeyRight, KeyLeft:
		letter := byte('A' + int(ev.Key-KeyUp))
		if appCursor {
			out = []byte{0x1B, 'O', letter}
		} else {
			out = []byte{0x1B, '[', letter}
		}
	case KeyHome:
		if appCursor {
			out = []byte("\x1bOH")
		} else {
			out = []byte("\x1b[H")
		}
	case KeyEnd:
		if appCursor {
			out = []byte("\x1bOF")
		} else {
			out = []byte("\x1b[F")
		}
	case KeyF1, KeyF2, KeyF3, KeyF4:
		out = []byte{0x1B, 'O', byte('P' + int(ev.Key-KeyF1))}
	default:
		if code, ok := tildeKeys[ev.Key]; ok {
			out = []byte(fmt.Sprintf("\x1b[%d~", code))
		}
	}
	if ev.Alt && len(out) > 0 {
		out = append([]byte{0x1B}, out...)
	}
	return out
}

// EncodeMouse renders a mouse event per the active tracking mode. Returns
// nil when the mode filters the event out (e.g. motion without drag
// tracking, release in X10 mode).
func EncodeMouse(ev MouseEvent, mode MouseTracking, sgr bool) []byte {
	if mode == MouseOff {
		return nil
	}
	if ev.Motion && mode != MouseDrag && mode != MouseAny {
		return nil
	}
	if !ev.Press && !ev.Motion && mode == MouseX10 {
		return nil
	}

	code := buttonCode(ev.Button)
	if ev.Motion {
		code += 32
	}
	if mode != MouseX10 {
		if ev.Shift {
			code += 4
		}
		if ev.Alt {
			code += 8
		}
		if ev.Ctrl {
			code += 16
		}
	}

	if sgr {
		suffix := byte('M')
		if !ev.Press && !ev.Motion {
			suffix = 'm'
		}
		return []byte(fmt.Sprintf("\x1b[<%d;%d;%d%c", code, ev.X+1, ev.Y+1, suffix))
	}

	// Legacy encoding: release reported as button 3, coordinates offset by
	// 32 and clamped to one byte.
	if !ev.Press && !ev.Motion {
		code = (code &^ 0x03) | 3
	}
	return []byte{0x1B, '[', 'M', byte(32 + code), coordByte(ev.X), coordByte(ev.Y)}
}

func buttonCode(btn MouseButton) int {
	switch btn {
	case MouseLeft, MouseRelease:
		return 0
	case MouseMiddle:
		return 1
	case MouseRight:
		return 2
	case MouseWheelUp:
		return 64
	case MouseWheelDown:
		return 65
	}
	return 0
}

func coordByte(v int) byte {
	v += 33 // 1-based plus the 32 offset
	if v > 255 {
		v = 255
	}
	if v < 33 {
		v = 33
	}
	return byte(v)
}

// FramePaste wraps pasted text in bracketed-paste markers when the mode is
// enabled, and passes it through untouched otherwise.
func FramePaste(data []byte, bracketed bool) []byte {
	if !bracketed {
		return data
	}
	out := make([]byte, 0, len(data)+12)
	out = append(out, []byte("\x1b[200~")...)
	out = append(out, data...)
	out = append(out, []byte("\x1b[201~")...)
	return out
}
