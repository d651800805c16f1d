package sixterm

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// OSC dispatch. The accumulated string is "cmd;args"; unknown commands and
// malformed arguments are ignored without disturbing terminal state.
func (p *Parser) executeOSC(s string) {
	cmd := s
	args := ""
	if i := strings.IndexByte(s, ';'); i >= 0 {
		cmd = s[:i]
		args = s[i+1:]
	}
	n, err := strconv.Atoi(cmd)
	if err != nil {
		return
	}
	switch n {
	case 0, 1, 2: // icon name and/or window title
		p.buffer.SetTitle(args)
	case 4:
		p.executeOSCPalette(args)
	case 8:
		p.executeOSCHyperlink(args)
	case 52:
		p.executeOSCClipboard(args)
	case 104:
		p.executeOSCPaletteReset(args)
	}
}

// executeOSCPalette handles OSC 4: alternating index;spec pairs. A spec of
// "?" queries the current value; anything else is parsed as a color.
// Malformed pairs leave the palette entry untouched and do not stop
// processing of the remaining pairs.
func (p *Parser) executeOSCPalette(args string) {
	parts := strings.Split(args, ";")
	for i := 0; i+1 < len(parts); i += 2 {
		idx, err := strconv.Atoi(parts[i])
		if err != nil || idx < 0 || idx > 255 {
			continue
		}
		spec := parts[i+1]
		if spec == "?" {
			c := p.buffer.PaletteEntry(idx)
			p.sendReply(fmt.Sprintf("\x1b]4;%d;%s\x1b\\", idx, FormatColorQuery(c)))
			continue
		}
		if c, ok := ParseColorSpec(spec); ok {
			p.buffer.SetPaletteEntry(idx, c)
		}
	}
}

// executeOSCPaletteReset handles OSC 104: with arguments, reset the listed
// indices; bare, reset the whole table.
func (p *Parser) executeOSCPaletteReset(args string) {
	if args == "" {
		p.buffer.ResetPalette()
		return
	}
	for _, part := range strings.Split(args, ";") {
		if idx, err := strconv.Atoi(part); err == nil && idx >= 0 && idx <= 255 {
			p.buffer.ResetPaletteEntry(idx)
		}
	}
}

// executeOSCHyperlink handles OSC 8: "params;uri". An empty URI closes the
// active link.
func (p *Parser) executeOSCHyperlink(args string) {
	i := strings.IndexByte(args, ';')
	if i < 0 {
		return
	}
	p.buffer.SetHyperlink(args[i+1:])
}

// executeOSCClipboard handles OSC 52: "selection;base64-data". A query
// ("?") replies with the stored content; invalid base64 is ignored.
func (p *Parser) executeOSCClipboard(args string) {
	i := strings.IndexByte(args, ';')
	if i < 0 {
		return
	}
	sel, data := args[:i], args[i+1:]
	if data == "?" {
		enc := base64.StdEncoding.EncodeToString([]byte(p.buffer.Clipboard()))
		p.sendReply(fmt.Sprintf("\x1b]52;%s;%s\x1b\\", sel, enc))
		return
	}
	dec, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return
	}
	p.buffer.SetClipboard(string(dec))
}
