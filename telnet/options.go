// Package telnet provides the RFC 854 server-side negotiation layer: a
// net.Conn wrapper that filters IAC framing out of the data stream,
// negotiates the options a full-screen terminal session needs, and
// surfaces window-size changes to the host.
package telnet

// Telnet command codes.
const (
	cmdSE   byte = 240 // Subnegotiation end
	cmdNOP  byte = 241
	cmdGA   byte = 249 // Go ahead
	cmdSB   byte = 250 // Subnegotiation begin
	cmdWILL byte = 251
	cmdWONT byte = 252
	cmdDO   byte = 253
	cmdDONT byte = 254
	cmdIAC  byte = 255 // Interpret As Command

	subIS   byte = 0
	subSEND byte = 1
)

// Telnet option codes.
const (
	OptBinary     byte = 0  // RFC 856 8-bit clean transmission
	OptEcho       byte = 1  // RFC 857 server echo
	OptSGA        byte = 3  // RFC 858 suppress go-ahead
	OptTType      byte = 24 // RFC 1091 terminal type
	OptNAWS       byte = 31 // RFC 1073 window size
	OptTSpeed     byte = 32 // RFC 1079 terminal speed
	OptNewEnviron byte = 39 // RFC 1572 environment variables
)

// optionState tracks one option's negotiation per RFC 854: whether each
// side supports it, whether it is currently enabled in each direction, and
// whether we have a request in flight (to break acknowledgement loops).
type optionState struct {
	localSupport  bool // we are willing to enable it on our side
	remoteSupport bool // we accept the peer enabling it on theirs
	localOn       bool // enabled us -> them
	remoteOn      bool // enabled them -> us
	localPending  bool // our WILL awaits DO/DONT
	remotePending bool // our DO awaits WILL/WONT
}

// optionTable holds negotiation state for all 256 options.
type optionTable struct {
	entries [256]optionState
}

func (t *optionTable) get(opt byte) *optionState {
	return &t.entries[opt]
}

// serverOptions is the support set this layer offers: binary both ways,
// server echo and suppressed go-ahead locally, and the client-side options
// that describe the terminal.
func serverOptions() optionTable {
	var t optionTable
	for _, opt := range []byte{OptBinary, OptEcho, OptSGA} {
		t.entries[opt].localSupport = true
	}
	for _, opt := range []byte{OptBinary, OptSGA, OptTType, OptNAWS, OptTSpeed, OptNewEnviron} {
		t.entries[opt].remoteSupport = true
	}
	return t
}
