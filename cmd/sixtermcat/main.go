// Command sixtermcat plays an ANSI/sixel capture file on the local
// terminal. The capture is fed through the engine and the resulting screen
// is painted with the differential renderer, so recordings replay with
// scroll regions, palette changes and images intact.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/muesli/termenv"
	flag "github.com/spf13/pflag"

	"github.com/sixterm/sixterm"
	"github.com/sixterm/sixterm/cli"
)

func main() {
	delay := flag.Duration("delay", 0, "pause between capture chunks (e.g. 20ms)")
	chunk := flag.Int("chunk", 512, "bytes fed per chunk when pacing")
	wait := flag.Bool("wait", true, "wait for a key before restoring the screen")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: sixtermcat [flags] <capture-file>")
		os.Exit(2)
	}

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	raw, err := cli.EnterRaw()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	code := play(f, *delay, *chunk, *wait)
	raw.Restore()
	fmt.Println()
	os.Exit(code)
}

func play(f *os.File, delay time.Duration, chunk int, wait bool) int {
	cols, rows := cli.ScreenSize()

	var src io.ReadCloser = f
	if delay > 0 {
		src = &pacedReader{r: f, delay: delay, chunk: chunk}
	}
	eng := sixterm.NewTerminal(src, io.Discard, sixterm.Options{
		Cols: cols,
		Rows: rows,
	})
	defer eng.Close()

	renderer := cli.NewRenderer(os.Stdout, termenv.ColorProfile())
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-eng.Done():
			renderer.Render(eng.Snapshot())
			if err := eng.Err(); err != nil {
				fmt.Fprintf(os.Stderr, "\r\nread error: %v\r\n", err)
				return 1
			}
			if wait {
				waitForKey()
			}
			return 0
		case <-ticker.C:
			if eng.Buffer().Dirty() {
				renderer.Render(eng.Snapshot())
			}
		}
	}
}

func waitForKey() {
	buf := make([]byte, 1)
	os.Stdin.Read(buf)
}

// pacedReader throttles a capture so escape-sequence playback is watchable
// instead of instantaneous.
type pacedReader struct {
	r     *os.File
	delay time.Duration
	chunk int
}

func (p *pacedReader) Read(buf []byte) (int, error) {
	if len(buf) > p.chunk {
		buf = buf[:p.chunk]
	}
	n, err := p.r.Read(buf)
	if n > 0 {
		time.Sleep(p.delay)
	}
	return n, err
}

func (p *pacedReader) Close() error { return p.r.Close() }
