package telnet

import (
	"log/slog"
	"net"
	"sync"
	"time"
)

// parser states for the inbound stream. IAC sequences may arrive split
// across Read calls, so the state lives on the Conn.
type connState int

const (
	stateData connState = iota
	stateIAC            // after IAC
	stateNeg            // after IAC WILL/WONT/DO/DONT, awaiting the option
	stateSB             // after IAC SB, awaiting the option
	stateSBData         // inside subnegotiation payload
	stateSBIAC          // IAC inside subnegotiation
)

// Conn wraps an accepted connection with telnet framing. Reads return the
// data stream with IAC sequences stripped and answered; writes escape 0xFF
// and, outside binary mode, expand bare LF to CRLF.
//
// Reads and writes may run on separate goroutines; negotiation replies
// triggered by a Read serialize with application Writes through the write
// lock.
type Conn struct {
	raw net.Conn
	log *slog.Logger

	writeMu sync.Mutex

	state connState
	neg   byte // pending WILL/WONT/DO/DONT command
	sbOpt byte
	sbBuf []byte

	mu       sync.Mutex
	opts     optionTable
	termType string
	tspeed   string
	environ  []byte
	width    int
	height   int

	onResize func(cols, rows int)
}

// Server wraps an accepted connection and requests the options a terminal
// session wants: binary both ways, server echo, suppressed go-ahead, and
// terminal type, speed, window size and environment from the client. A
// client that refuses everything still works; the connection just stays in
// line-oriented non-binary defaults.
func Server(raw net.Conn, logger *slog.Logger) *Conn {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Conn{
		raw:  raw,
		log:  logger.With("remote", raw.RemoteAddr().String()),
		opts: serverOptions(),
	}
	c.mu.Lock()
	for _, opt := range []byte{OptBinary, OptEcho, OptSGA} {
		c.requestLocal(opt)
	}
	for _, opt := range []byte{OptBinary, OptSGA, OptTType, OptTSpeed, OptNAWS, OptNewEnviron} {
		c.requestRemote(opt)
	}
	c.mu.Unlock()
	return c
}

// SetResizeHandler registers the callback for NAWS window-size updates.
// The callback runs on the reading goroutine.
func (c *Conn) SetResizeHandler(fn func(cols, rows int)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onResize = fn
}

// TerminalType returns the client's reported terminal type, lowercased by
// convention left to the caller, or "" before the reply arrives.
func (c *Conn) TerminalType() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.termType
}

// TerminalSpeed returns the client's reported "tx,rx" speed string.
func (c *Conn) TerminalSpeed() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tspeed
}

// WindowSize returns the last NAWS dimensions, zero before the first
// report.
func (c *Conn) WindowSize() (cols, rows int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width, c.height
}

// BinaryActive reports whether binary transmission is enabled toward the
// client.
func (c *Conn) BinaryActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opts.get(OptBinary).localOn
}

// Close closes the underlying connection.
func (c *Conn) Close() error { return c.raw.Close() }

// LocalAddr returns the local network address.
func (c *Conn) LocalAddr() net.Addr { return c.raw.LocalAddr() }

// RemoteAddr returns the client's network address.
func (c *Conn) RemoteAddr() net.Addr { return c.raw.RemoteAddr() }

// SetDeadline sets read and write deadlines on the underlying connection.
func (c *Conn) SetDeadline(t time.Time) error { return c.raw.SetDeadline(t) }

// Read fills p with data bytes, consuming and answering any IAC framing
// in the stream. It loops over the underlying reads until at least one
// data byte is available or the connection errors.
func (c *Conn) Read(p []byte) (int, error) {
	buf := make([]byte, len(p))
	for {
		n, err := c.raw.Read(buf)
		out := 0
		for _, b := range buf[:n] {
			if db, ok := c.processByte(b); ok {
				p[out] = db
				out++
			}
		}
		if out > 0 || err != nil {
			return out, err
		}
	}
}

// processByte advances the framing state machine. Returns the byte and
// true when it is application data.
func (c *Conn) processByte(b byte) (byte, bool) {
	switch c.state {
	case stateData:
		if b == cmdIAC {
			c.state = stateIAC
			return 0, false
		}
		return b, true
	case stateIAC:
		switch b {
		case cmdIAC:
			// Escaped 0xFF data byte.
			c.state = stateData
			return 0xFF, true
		case cmdWILL, cmdWONT, cmdDO, cmdDONT:
			c.neg = b
			c.state = stateNeg
		case cmdSB:
			c.state = stateSB
		case cmdNOP, cmdGA:
			c.state = stateData
		default:
			// Unknown command, drop it and resynchronize.
			c.state = stateData
		}
		return 0, false
	case stateNeg:
		c.handleNegotiation(c.neg, b)
		c.state = stateData
		return 0, false
	case stateSB:
		c.sbOpt = b
		c.sbBuf = c.sbBuf[:0]
		c.state = stateSBData
		return 0, false
	case stateSBData:
		if b == cmdIAC {
			c.state = stateSBIAC
		} else {
			c.appendSB(b)
		}
		return 0, false
	case stateSBIAC:
		if b == cmdSE {
			c.handleSubnegotiation(c.sbOpt, c.sbBuf)
			c.state = stateData
		} else if b == cmdIAC {
			c.appendSB(0xFF)
			c.state = stateSBData
		} else {
			// Malformed subnegotiation; abandon it.
			c.state = stateData
		}
		return 0, false
	}
	return 0, false
}

// appendSB buffers a subnegotiation byte, bounding the buffer so a
// misbehaving client cannot grow it without end.
func (c *Conn) appendSB(b byte) {
	if len(c.sbBuf) < 4096 {
		c.sbBuf = append(c.sbBuf, b)
	}
}

// requestLocal sends WILL for an option we support. Caller holds mu.
func (c *Conn) requestLocal(opt byte) {
	st := c.opts.get(opt)
	if !st.localSupport || st.localOn || st.localPending {
		return
	}
	st.localPending = true
	c.sendCommand(cmdWILL, opt)
}

// requestRemote sends DO for an option we accept. Caller holds mu.
func (c *Conn) requestRemote(opt byte) {
	st := c.opts.get(opt)
	if !st.remoteSupport || st.remoteOn || st.remotePending {
		return
	}
	st.remotePending = true
	c.sendCommand(cmdDO, opt)
}

func (c *Conn) handleNegotiation(cmd, opt byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.opts.get(opt)
	switch cmd {
	case cmdDO:
		if st.localSupport {
			if !st.localOn && !st.localPending {
				c.sendCommand(cmdWILL, opt)
			}
			st.localOn = true
		} else if !st.localOn {
			c.sendCommand(cmdWONT, opt)
		}
		st.localPending = false
	case cmdDONT:
		if st.localOn || st.localPending {
			if st.localOn {
				c.sendCommand(cmdWONT, opt)
			}
			st.localOn = false
		}
		st.localPending = false
	case cmdWILL:
		if st.remoteSupport {
			if !st.remoteOn && !st.remotePending {
				c.sendCommand(cmdDO, opt)
			}
			st.remoteOn = true
			if opt == OptTType {
				c.sendSubnegotiation(OptTType, []byte{subSEND})
			}
			if opt == OptTSpeed {
				c.sendSubnegotiation(OptTSpeed, []byte{subSEND})
			}
		} else if !st.remoteOn {
			c.sendCommand(cmdDONT, opt)
		}
		st.remotePending = false
	case cmdWONT:
		if st.remoteOn || st.remotePending {
			if st.remoteOn {
				c.sendCommand(cmdDONT, opt)
			}
			st.remoteOn = false
		}
		st.remotePending = false
	}
	c.log.Debug("telnet negotiation",
		"command", commandName(cmd), "option", opt,
		"localOn", st.localOn, "remoteOn", st.remoteOn)
}

func (c *Conn) handleSubnegotiation(opt byte, data []byte) {
	switch opt {
	case OptNAWS:
		// Four bytes: width and height, each big-endian 16 bit.
		if len(data) < 4 {
			return
		}
		cols := int(data[0])<<8 | int(data[1])
		rows := int(data[2])<<8 | int(data[3])
		if cols < 1 || rows < 1 {
			return
		}
		c.mu.Lock()
		c.width, c.height = cols, rows
		fn := c.onResize
		c.mu.Unlock()
		c.log.Debug("window size", "cols", cols, "rows", rows)
		if fn != nil {
			fn(cols, rows)
		}
	case OptTType:
		if len(data) >= 2 && data[0] == subIS {
			c.mu.Lock()
			c.termType = string(data[1:])
			c.mu.Unlock()
			c.log.Debug("terminal type", "type", string(data[1:]))
		}
	case OptTSpeed:
		if len(data) >= 2 && data[0] == subIS {
			c.mu.Lock()
			c.tspeed = string(data[1:])
			c.mu.Unlock()
		}
	case OptNewEnviron:
		if len(data) >= 1 && data[0] == subIS {
			c.mu.Lock()
			c.environ = append([]byte(nil), data[1:]...)
			c.mu.Unlock()
		}
	}
}

func (c *Conn) sendCommand(cmd, opt byte) {
	c.writeRaw([]byte{cmdIAC, cmd, opt})
}

func (c *Conn) sendSubnegotiation(opt byte, data []byte) {
	out := make([]byte, 0, len(data)+5)
	out = append(out, cmdIAC, cmdSB, opt)
	out = append(out, data...)
	out = append(out, cmdIAC, cmdSE)
	c.writeRaw(out)
}

func (c *Conn) writeRaw(data []byte) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.raw.Write(data); err != nil {
		c.log.Debug("telnet write failed", "error", err)
	}
}

// Write sends application data, escaping 0xFF as IAC IAC. Outside binary
// mode, a bare LF becomes CRLF per RFC 854.
func (c *Conn) Write(p []byte) (int, error) {
	binary := c.BinaryActive()
	out := make([]byte, 0, len(p)+8)
	for i := 0; i < len(p); i++ {
		b := p[i]
		switch {
		case b == 0xFF:
			out = append(out, cmdIAC, cmdIAC)
		case b == '\n' && !binary && (i == 0 || p[i-1] != '\r'):
			out = append(out, '\r', '\n')
		default:
			out = append(out, b)
		}
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.raw.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}

func commandName(cmd byte) string {
	switch cmd {
	case cmdWILL:
		return "WILL"
	case cmdWONT:
		return "WONT"
	case cmdDO:
		return "DO"
	case cmdDONT:
		return "DONT"
	case cmdSB:
		return "SB"
	case cmdSE:
		return "SE"
	}
	return "?"
}
