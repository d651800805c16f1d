package sixterm

import (
	"fmt"
	"io"
	"sync"
	"testing"
	"time"
)

func newPipeTerminal(t *testing.T, opts Options) (*Terminal, *io.PipeWriter) {
	t.Helper()
	r, w := io.Pipe()
	term := NewTerminal(r, io.Discard, opts)
	t.Cleanup(func() {
		w.Close()
		term.Close()
	})
	return term, w
}

// feed writes input and waits until the engine has processed something.
func feed(t *testing.T, term *Terminal, w *io.PipeWriter, data string) {
	t.Helper()
	if _, err := w.Write([]byte(data)); err != nil {
		t.Fatalf("feed: %v", err)
	}
	if !term.WaitOutput(time.Now().Add(2 * time.Second)) {
		t.Fatalf("engine did not process %q in time", data)
	}
}

func TestTerminalProcessesInput(t *testing.T) {
	term, w := newPipeTerminal(t, Options{Cols: 20, Rows: 5})
	feed(t, term, w, "hello")
	if got := term.Buffer().RowText(0); got != "hello" {
		t.Fatalf("row 0 = %q, want %q", got, "hello")
	}
}

func TestSnapshotDuringMutation(t *testing.T) {
	term, w := newPipeTerminal(t, Options{Cols: 40, Rows: 10})

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				s := term.Snapshot()
				// Every snapshot must be structurally whole.
				if len(s.Cells) != s.Rows {
					t.Errorf("torn snapshot: %d rows, header says %d", len(s.Cells), s.Rows)
					return
				}
				for _, row := range s.Cells {
					if len(row) != s.Cols {
						t.Errorf("torn snapshot row: %d cols, header says %d", len(row), s.Cols)
						return
					}
				}
				if s.Palette == nil {
					t.Errorf("snapshot missing palette")
					return
				}
			}
		}()
	}

	for i := 0; i < 50; i++ {
		feed(t, term, w, fmt.Sprintf("line %d with some text\r\n", i))
	}
	close(stop)
	wg.Wait()
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	term, w := newPipeTerminal(t, Options{Cols: 20, Rows: 5})
	feed(t, term, w, "before")
	s := term.Snapshot()
	feed(t, term, w, "\x1b[2J\x1b[Hafter")
	if got := s.RowText(0); got != "before" {
		t.Fatalf("snapshot mutated after capture: %q", got)
	}
	s.Cells[0][0].Rune = 'Z'
	if got := term.Buffer().GetCell(0, 0).Rune; got == 'Z' {
		t.Fatalf("writing a snapshot leaked into the live buffer")
	}
}

func TestCloseIdempotentConcurrent(t *testing.T) {
	r, _ := io.Pipe()
	term := NewTerminal(r, io.Discard, Options{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				term.Close()
			}
		}()
	}
	wg.Wait()

	select {
	case <-term.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("Done not closed after Close")
	}
	// Operations after close are no-ops, not panics.
	term.Resize(10, 10)
	term.SendKey(KeyEvent{Key: KeyEnter})
	if _, err := term.Write([]byte("x")); err == nil {
		t.Fatalf("Write after close returned nil error")
	}
}

func TestDoneOnSourceEOF(t *testing.T) {
	r, w := io.Pipe()
	term := NewTerminal(r, io.Discard, Options{})
	defer term.Close()

	w.Write([]byte("data"))
	w.Close()
	select {
	case <-term.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("Done not closed after source EOF")
	}
	if err := term.Err(); err != nil {
		t.Fatalf("EOF surfaced as error: %v", err)
	}
}

func TestWaitOutputDeadline(t *testing.T) {
	term, _ := newPipeTerminal(t, Options{})
	start := time.Now()
	if term.WaitOutput(time.Now().Add(50 * time.Millisecond)) {
		t.Fatalf("WaitOutput reported output with none sent")
	}
	if time.Since(start) < 40*time.Millisecond {
		t.Fatalf("WaitOutput returned before the deadline")
	}
}

func TestDCSForwarding(t *testing.T) {
	term, w := newPipeTerminal(t, Options{Cols: 20, Rows: 5})
	var mu sync.Mutex
	var got []byte
	term.SetDCSHandler(func(payload []byte) {
		mu.Lock()
		got = append([]byte(nil), payload...)
		mu.Unlock()
	})
	feed(t, term, w, "\x1bP0;0;0q#0;2;0;0;0~-\x1b\\")
	mu.Lock()
	defer mu.Unlock()
	if string(got) != "0;0;0q#0;2;0;0;0~-" {
		t.Fatalf("forwarded payload = %q", got)
	}
}

func TestSixelDecodeAttachesImage(t *testing.T) {
	term, w := newPipeTerminal(t, Options{Cols: 20, Rows: 10, DecodeSixel: true})
	// 12x6 red rectangle: register 1 at 100% red, full sixel column x12.
	feed(t, term, w, "\x1bPq\"1;1;12;6#1;2;100;0;0!12~\x1b\\")

	cell := term.Buffer().GetCell(0, 0)
	if cell.Image == nil {
		t.Fatalf("no image attached to cell")
	}
	img := cell.Image.Image
	if img.Width != 12 || img.Height != 6 {
		t.Fatalf("image dims = %dx%d, want 12x6", img.Width, img.Height)
	}
	px := img.At(0, 0)
	if px.R != 255 || px.G != 0 || px.B != 0 {
		t.Fatalf("pixel = %+v, want red", px)
	}
}

func TestResizeSerializedWithParsing(t *testing.T) {
	term, w := newPipeTerminal(t, Options{Cols: 40, Rows: 10})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			term.Resize(20+i, 5+i%3)
		}
	}()
	for i := 0; i < 20; i++ {
		feed(t, term, w, "some text\r\n")
	}
	<-done
	cols, rows := term.Buffer().Size()
	if cols < 1 || rows < 1 {
		t.Fatalf("bad final size %dx%d", cols, rows)
	}
}

func TestNilSinkDiscardsWrites(t *testing.T) {
	r, w := io.Pipe()
	term := NewTerminal(r, nil, Options{Cols: 20, Rows: 5})
	t.Cleanup(func() {
		w.Close()
		term.Close()
	})

	if n, err := term.Write([]byte("abc")); n != 3 || err != nil {
		t.Fatalf("Write = (%d, %v), want (3, nil)", n, err)
	}
	term.SendKey(KeyEvent{Key: KeyRune, Rune: 'a'})
	term.Paste([]byte("paste"))

	// Replies requiring the sink (DSR) are dropped, not fatal.
	if _, err := w.Write([]byte("\x1b[6n")); err != nil {
		t.Fatalf("feed: %v", err)
	}
	if !term.WaitOutput(time.Now().Add(2 * time.Second)) {
		t.Fatalf("engine did not process input")
	}
}
