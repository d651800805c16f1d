package sixterm

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sixterm/sixterm/sixel"
)

// Options configures a Terminal.
type Options struct {
	Cols          int // defaults to 80
	Rows          int // defaults to 24
	MaxScrollback int // history rows retained; defaults to 1000

	// DecodeSixel attaches decoded bitmaps to the grid. When off, sixel
	// payloads still reach the DCS handler verbatim.
	DecodeSixel bool
	// CellWidth and CellHeight give the pixel size of one cell for image
	// placement; defaults 10x20.
	CellWidth  int
	CellHeight int
}

// Terminal drives a Buffer from a byte source. One reader goroutine pulls
// from the source and feeds the parser; it is the only mutator of the
// buffer, palette and scrollback. Replies and input events go to the sink.
//
// All exported methods are safe for concurrent use and become no-ops once
// the terminal is closed.
type Terminal struct {
	buffer *Buffer
	parser *Parser

	src  io.ReadCloser
	sink io.Writer

	sinkMu sync.Mutex

	closeOnce sync.Once
	done      chan struct{}

	// outputSeq counts processed input chunks; WaitOutput polls it against
	// the sequence it last reported.
	outputSeq atomic.Uint64
	waitSeq   atomic.Uint64

	errMu   sync.Mutex
	readErr error

	decodeSixel bool
	cellW       int
	cellH       int

	handlerMu  sync.Mutex
	dcsHandler func([]byte)
}

// NewTerminal creates a terminal over a byte source and sink and starts its
// reader goroutine. The source is closed during Close.
func NewTerminal(src io.ReadCloser, sink io.Writer, opts Options) *Terminal {
	if opts.Cols < 1 {
		opts.Cols = 80
	}
	if opts.Rows < 1 {
		opts.Rows = 24
	}
	if opts.MaxScrollback == 0 {
		opts.MaxScrollback = 1000
	}
	if opts.CellWidth < 1 {
		opts.CellWidth = 10
	}
	if opts.CellHeight < 1 {
		opts.CellHeight = 20
	}
	t := &Terminal{
		buffer:      NewBuffer(opts.Cols, opts.Rows, opts.MaxScrollback),
		src:         src,
		sink:        sink,
		done:        make(chan struct{}),
		decodeSixel: opts.DecodeSixel,
		cellW:       opts.CellWidth,
		cellH:       opts.CellHeight,
	}
	t.parser = NewParser(t.buffer)
	t.parser.SetReplyFunc(t.writeSink)
	t.parser.SetDCSHandler(t.handleDCS)
	go t.readLoop()
	return t
}

// Buffer exposes the screen model for point lookups and snapshots.
func (t *Terminal) Buffer() *Buffer { return t.buffer }

// Snapshot returns an immutable copy of the full terminal state.
func (t *Terminal) Snapshot() *Snapshot { return t.buffer.Snapshot() }

// Done is closed when the terminal has shut down, by Close or by the
// source reaching EOF or a read error.
func (t *Terminal) Done() <-chan struct{} { return t.done }

// Err returns the read error that ended the session, nil for a clean
// Close or EOF.
func (t *Terminal) Err() error {
	t.errMu.Lock()
	defer t.errMu.Unlock()
	return t.readErr
}

func (t *Terminal) closed() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Close shuts the terminal down. Safe to call from any number of
// goroutines any number of times; exactly one performs the teardown.
// Closing the source unblocks a pending read, letting the reader
// goroutine exit.
func (t *Terminal) Close() error {
	t.teardown(nil)
	return nil
}

func (t *Terminal) teardown(err error) {
	t.closeOnce.Do(func() {
		if err != nil {
			t.errMu.Lock()
			t.readErr = err
			t.errMu.Unlock()
		}
		t.src.Close()
		close(t.done)
	})
}

func (t *Terminal) readLoop() {
	buf := make([]byte, 4096)
	for {
		n, err := t.src.Read(buf)
		if n > 0 {
			t.parser.Parse(buf[:n])
			t.outputSeq.Add(1)
		}
		if err != nil {
			if err == io.EOF {
				err = nil
			}
			t.teardown(err)
			return
		}
	}
}

// WaitOutput blocks until input has been processed that no previous
// WaitOutput call reported, the terminal shuts down, or the deadline
// passes. Returns true when new output was seen.
func (t *Terminal) WaitOutput(deadline time.Time) bool {
	last := t.waitSeq.Load()
	for {
		if cur := t.outputSeq.Load(); cur != last {
			t.waitSeq.Store(cur)
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		select {
		case <-t.done:
			if cur := t.outputSeq.Load(); cur != last {
				t.waitSeq.Store(cur)
				return true
			}
			return false
		case <-time.After(5 * time.Millisecond):
		}
	}
}

// Resize changes the screen dimensions; serialized with parsing through
// the buffer's writer lock.
func (t *Terminal) Resize(cols, rows int) {
	if t.closed() {
		return
	}
	t.buffer.Resize(cols, rows)
}

// SetMaxScrollback adjusts the history cap at runtime.
func (t *Terminal) SetMaxScrollback(n int) {
	if t.closed() {
		return
	}
	t.buffer.SetMaxScrollback(n)
}

// SetDCSHandler registers a consumer for verbatim DCS payloads (raw sixel
// passthrough). May be called at any time.
func (t *Terminal) SetDCSHandler(fn func([]byte)) {
	t.handlerMu.Lock()
	defer t.handlerMu.Unlock()
	t.dcsHandler = fn
}

// handleDCS runs on the reader goroutine for every complete DCS payload:
// forward verbatim, then optionally decode sixel data onto the grid.
func (t *Terminal) handleDCS(payload []byte) {
	t.handlerMu.Lock()
	fn := t.dcsHandler
	t.handlerMu.Unlock()
	if fn != nil {
		fn(payload)
	}
	if !t.decodeSixel {
		return
	}
	img, err := sixel.Decode(payload)
	if err != nil || img == nil {
		return
	}
	t.buffer.PlaceImage(img, t.cellW, t.cellH)
}

func (t *Terminal) writeSink(data []byte) {
	if t.sink == nil || t.closed() {
		return
	}
	t.sinkMu.Lock()
	defer t.sinkMu.Unlock()
	t.sink.Write(data)
}

// SendKey encodes a key event per the negotiated modes and writes it to
// the sink.
func (t *Terminal) SendKey(ev KeyEvent) {
	out := EncodeKey(ev, t.buffer.AppCursorKeys())
	if len(out) > 0 {
		t.writeSink(out)
	}
}

// SendMouse encodes a mouse event per the active tracking mode; filtered
// events are dropped.
func (t *Terminal) SendMouse(ev MouseEvent) {
	mode, sgr := t.buffer.MouseMode()
	out := EncodeMouse(ev, mode, sgr)
	if len(out) > 0 {
		t.writeSink(out)
	}
}

// Paste writes pasted text, framed when bracketed paste is negotiated.
func (t *Terminal) Paste(data []byte) {
	t.writeSink(FramePaste(data, t.buffer.BracketedPaste()))
}

// Write passes raw bytes straight to the sink. Without a sink the bytes
// are discarded, like replies are.
func (t *Terminal) Write(data []byte) (int, error) {
	if t.closed() {
		return 0, io.ErrClosedPipe
	}
	if t.sink == nil {
		return len(data), nil
	}
	t.sinkMu.Lock()
	defer t.sinkMu.Unlock()
	return t.sink.Write(data)
}
