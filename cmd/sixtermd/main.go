// Command sixtermd is a telnet demo server for the sixterm engine. Each
// connection gets its own engine-backed screen: the demo program writes
// ANSI and sixel data into the engine, and a differential renderer streams
// the resulting screen to the client.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/muesli/termenv"
	flag "github.com/spf13/pflag"

	"github.com/sixterm/sixterm"
	"github.com/sixterm/sixterm/cli"
	"github.com/sixterm/sixterm/sixel"
	"github.com/sixterm/sixterm/telnet"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	listen := flag.String("listen", "", "listen address (overrides config)")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		logger.Error("listen failed", "addr", cfg.Listen, "error", err)
		os.Exit(1)
	}
	logger.Info("listening", "addr", cfg.Listen)

	for {
		conn, err := ln.Accept()
		if err != nil {
			logger.Error("accept failed", "error", err)
			return
		}
		go handleConn(conn, cfg, logger)
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// handleConn hosts one session: negotiate, run the demo program through an
// engine, and stream differential frames back to the client.
func handleConn(raw net.Conn, cfg Config, logger *slog.Logger) {
	tc := telnet.Server(raw, logger)
	defer tc.Close()
	logger.Info("session started", "remote", raw.RemoteAddr())

	// The demo program writes its output into the engine through a pipe;
	// engine replies (cursor reports etc.) are not needed here.
	appR, appW := io.Pipe()
	eng := sixterm.NewTerminal(appR, io.Discard, sixterm.Options{
		Cols:          cfg.Cols,
		Rows:          cfg.Rows,
		MaxScrollback: cfg.MaxScrollback,
	})
	defer eng.Close()

	// Raw sixel payloads bypass the cell renderer and go straight to the
	// client, re-wrapped in their DCS envelope.
	eng.SetDCSHandler(func(payload []byte) {
		out := make([]byte, 0, len(payload)+4)
		out = append(out, 0x1B, 'P')
		out = append(out, payload...)
		out = append(out, 0x1B, '\\')
		tc.Write(out)
	})

	tc.SetResizeHandler(func(cols, rows int) {
		eng.Resize(cols, rows)
	})

	renderer := cli.NewRenderer(tc, termenv.TrueColor)
	go renderLoop(eng, renderer)

	go runDemo(appW, cfg.Demo)

	// Client input: quit on q or Ctrl-C, ignore the rest.
	buf := make([]byte, 256)
	for {
		n, err := tc.Read(buf)
		if err != nil {
			break
		}
		for _, b := range buf[:n] {
			if b == 'q' || b == 0x03 {
				logger.Info("session closed by client", "remote", raw.RemoteAddr())
				return
			}
		}
	}
	logger.Info("session ended", "remote", raw.RemoteAddr())
}

// renderLoop streams changed frames until the engine shuts down.
func renderLoop(eng *sixterm.Terminal, renderer *cli.Renderer) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-eng.Done():
			return
		case <-ticker.C:
			if eng.Buffer().Dirty() {
				renderer.Render(eng.Snapshot())
			}
		}
	}
}

// runDemo writes the demo screen into the engine: styled text, palette
// redefinition, a sixel image and its glyph fallback.
func runDemo(w io.WriteCloser, cfg DemoConfig) {
	defer w.Close()

	fmt.Fprint(w, "\x1b]0;sixterm demo\x07")
	fmt.Fprint(w, "\x1b[2J\x1b[H")
	fmt.Fprint(w, "\x1b[1;38;5;51msixterm\x1b[0m  terminal engine demo  (q quits)\r\n\r\n")

	// Redefine a palette slot and use it, exercising OSC 4 end to end.
	fmt.Fprint(w, "\x1b]4;17;rgb:ff/80/00\x07")
	fmt.Fprint(w, "\x1b[38;5;17mthis text uses redefined palette slot 17\x1b[0m\r\n")
	fmt.Fprint(w, "\x1b[38;2;255;105;180mand this is direct truecolor\x1b[0m\r\n\r\n")

	img := demoImage(96, 60)
	enc := &sixel.AdaptiveEncoder{Options: sixel.Options{MaxColors: cfg.ImageColors}}
	if data, err := enc.Encode(img); err == nil {
		w.Write(data)
		fmt.Fprint(w, "\r\n")
	}

	// The same image through the glyph downsampler, for clients without
	// sixel support.
	cells := sixel.Downsample(img, 4, 8, glyphSet(cfg.GlyphFallback))
	for _, row := range cells {
		for _, c := range row {
			fmt.Fprintf(w, "\x1b[38;2;%d;%d;%dm\x1b[48;2;%d;%d;%dm%c",
				c.Fg.R, c.Fg.G, c.Fg.B, c.Bg.R, c.Bg.G, c.Bg.B, c.Rune)
		}
		fmt.Fprint(w, "\x1b[0m\r\n")
	}

	// Idle; the session ends when the client quits.
	for {
		time.Sleep(time.Hour)
	}
}

func glyphSet(name string) sixel.GlyphSet {
	switch strings.ToLower(name) {
	case "block":
		return sixel.GlyphBlock
	case "quadrant":
		return sixel.GlyphQuadrant
	case "sextant":
		return sixel.GlyphSextant
	case "braille":
		return sixel.GlyphBraille
	case "solidbraille":
		return sixel.GlyphSolidBraille
	}
	return sixel.GlyphHalfBlock
}

// demoImage draws a gradient with a bright disc, enough structure to show
// off palette reduction and dithering.
func demoImage(w, h int) *sixel.Image {
	img := &sixel.Image{Width: w, Height: h, Pixels: make([]sixel.RGB, w*h)}
	cx, cy := float64(w)/2, float64(h)/2
	r2 := (cx * cx) / 3
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			px := sixel.RGB{
				R: uint8(x * 255 / w),
				G: uint8(y * 255 / h),
				B: 128,
			}
			dx, dy := float64(x)-cx, float64(y)-cy
			if dx*dx+dy*dy < r2 {
				px = sixel.RGB{R: 255, G: 220, B: 64}
			}
			img.Pixels[y*w+x] = px
		}
	}
	return img
}
