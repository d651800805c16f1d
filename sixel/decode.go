// Package sixel implements the DEC sixel raster format: a best-effort
// streaming decoder, two palette-reducing encoders, and a glyph
// downsampler for text-only fallback rendering.
package sixel

// RGB is one 8-bit-per-channel pixel.
type RGB struct {
	R, G, B uint8
}

// Image is a decoded bitmap in row-major order.
type Image struct {
	Width  int
	Height int
	Pixels []RGB
}

// At returns the pixel at (x, y), or the zero value out of range.
func (im *Image) At(x, y int) RGB {
	if x < 0 || x >= im.Width || y < 0 || y >= im.Height {
		return RGB{}
	}
	return im.Pixels[y*im.Width+x]
}

// set grows the canvas as needed; sixel streams may paint past the raster
// attribute dimensions.
func (im *Image) set(x, y int, c RGB) {
	if x < 0 || y < 0 {
		return
	}
	if x >= im.Width || y >= im.Height {
		im.grow(x+1, y+1)
	}
	im.Pixels[y*im.Width+x] = c
}

func (im *Image) grow(w, h int) {
	if w < im.Width {
		w = im.Width
	}
	if h < im.Height {
		h = im.Height
	}
	pixels := make([]RGB, w*h)
	for y := 0; y < im.Height; y++ {
		copy(pixels[y*w:y*w+im.Width], im.Pixels[y*im.Width:(y+1)*im.Width])
	}
	im.Width = w
	im.Height = h
	im.Pixels = pixels
}

// crop trims the canvas to the painted extent.
func (im *Image) crop(w, h int) {
	if w <= 0 || h <= 0 {
		im.Width, im.Height, im.Pixels = 0, 0, nil
		return
	}
	if w >= im.Width && h >= im.Height {
		return
	}
	if w > im.Width {
		w = im.Width
	}
	if h > im.Height {
		h = im.Height
	}
	pixels := make([]RGB, w*h)
	for y := 0; y < h; y++ {
		copy(pixels[y*w:(y+1)*w], im.Pixels[y*im.Width:y*im.Width+w])
	}
	im.Width = w
	im.Height = h
	im.Pixels = pixels
}

// defaultRegisters is the classic VT340 16-color map, used when a stream
// selects registers it never defined.
var defaultRegisters = [16]RGB{
	{0, 0, 0}, {51, 51, 204}, {204, 36, 36}, {51, 204, 51},
	{204, 51, 204}, {51, 204, 204}, {204, 204, 51}, {135, 135, 135},
	{66, 66, 66}, {84, 84, 153}, {153, 66, 66}, {84, 153, 84},
	{153, 84, 153}, {84, 153, 153}, {153, 153, 84}, {204, 204, 204},
}

// Decode parses a sixel payload into a bitmap. The payload may be the raw
// bytes between the DCS opener and ST (leading numeric parameters and the
// 'q' command byte included), or a complete ESC P ... ESC \ sequence.
// Truncated or malformed input yields whatever was painted before the
// problem; Decode only errors when no pixel data is present at all.
func Decode(payload []byte) (*Image, error) {
	d := decoder{data: payload, color: defaultRegisters[0]}
	d.registers = map[int]RGB{}
	d.skipHeader()
	d.run()
	if d.img.Width == 0 || d.img.Height == 0 {
		return nil, errNoPixels
	}
	// Raster attributes bound the image only when painting stayed inside
	// them; painted extent wins otherwise.
	w, h := d.img.Width, d.img.Height
	if d.rasterW > 0 && d.rasterW < w {
		w = d.rasterW
	}
	if d.rasterH > 0 && d.rasterH < h {
		h = d.rasterH
	}
	d.img.crop(w, h)
	return &d.img, nil
}

type sixelError string

func (e sixelError) Error() string { return string(e) }

const errNoPixels = sixelError("sixel: no pixel data")

type decoder struct {
	data []byte
	pos  int

	img Image

	x, y      int
	color     RGB
	registers map[int]RGB

	rasterW, rasterH int
}

// skipHeader consumes an optional ESC P (or 0x90) opener, the numeric DCS
// parameters and the 'q' command byte, leaving pos at the first data byte.
func (d *decoder) skipHeader() {
	if d.pos < len(d.data) && d.data[d.pos] == 0x90 {
		d.pos++
	} else if d.pos+1 < len(d.data) && d.data[d.pos] == 0x1B && d.data[d.pos+1] == 'P' {
		d.pos += 2
	}
	start := d.pos
	for d.pos < len(d.data) {
		b := d.data[d.pos]
		if b >= '0' && b <= '9' || b == ';' {
			d.pos++
			continue
		}
		if b == 'q' {
			d.pos++
			return
		}
		break
	}
	// No command byte: not a parameter header after all.
	d.pos = start
}

func (d *decoder) run() {
	for d.pos < len(d.data) {
		b := d.data[d.pos]
		d.pos++
		switch {
		case b == 0x1B, b == 0x9C:
			// ST (or its first byte): end of stream.
			return
		case b == '"':
			d.readRaster()
		case b == '#':
			d.readColor()
		case b == '!':
			d.readRepeat()
		case b == '$':
			d.x = 0
		case b == '-':
			d.x = 0
			d.y += 6
		case b >= 0x3F && b <= 0x7E:
			d.paint(b-0x3F, 1)
		default:
			// Stray byte, skip.
		}
	}
}

func (d *decoder) readNumber() int {
	n := 0
	for d.pos < len(d.data) && d.data[d.pos] >= '0' && d.data[d.pos] <= '9' {
		n = n*10 + int(d.data[d.pos]-'0')
		d.pos++
	}
	return n
}

func (d *decoder) readParams() []int {
	params := []int{d.readNumber()}
	for d.pos < len(d.data) && d.data[d.pos] == ';' {
		d.pos++
		params = append(params, d.readNumber())
	}
	return params
}

// readRaster consumes the " Pan;Pad;Ph;Pv attribute.
func (d *decoder) readRaster() {
	params := d.readParams()
	if len(params) >= 4 {
		d.rasterW = params[2]
		d.rasterH = params[3]
		if d.rasterW > 0 && d.rasterH > 0 {
			d.img.grow(d.rasterW, d.rasterH)
		}
	}
}

// readColor consumes # Pc [; Pu ; Px ; Py ; Pz]: a bare register number
// selects the drawing color, the long form defines it first. Pu 2 is RGB
// with channels 0-100, Pu 1 is HLS.
func (d *decoder) readColor() {
	params := d.readParams()
	if len(params) == 0 {
		return
	}
	reg := params[0]
	if len(params) >= 5 {
		var c RGB
		switch params[1] {
		case 2:
			c = RGB{percentChan(params[2]), percentChan(params[3]), percentChan(params[4])}
		case 1:
			c = hlsToRGB(params[2], params[3], params[4])
		default:
			return
		}
		d.registers[reg] = c
	}
	if c, ok := d.registers[reg]; ok {
		d.color = c
	} else if reg >= 0 && reg < len(defaultRegisters) {
		d.color = defaultRegisters[reg]
	}
}

func (d *decoder) readRepeat() {
	n := d.readNumber()
	if n < 1 {
		n = 1
	}
	if d.pos >= len(d.data) {
		return
	}
	b := d.data[d.pos]
	if b < 0x3F || b > 0x7E {
		return
	}
	d.pos++
	d.paint(b-0x3F, n)
}

// paint draws a sixel column pattern n times at the current position.
func (d *decoder) paint(bits byte, n int) {
	for i := 0; i < n; i++ {
		for bit := 0; bit < 6; bit++ {
			if bits&(1<<bit) != 0 {
				d.img.set(d.x, d.y+bit, d.color)
			}
		}
		d.x++
	}
}

func percentChan(v int) uint8 {
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return uint8(v * 255 / 100)
}

// hlsToRGB converts DEC sixel HLS (hue 0-360 with 0 at blue, lightness and
// saturation 0-100) to RGB.
func hlsToRGB(h, l, s int) RGB {
	hue := float64((h+240)%360) / 360
	lf := clamp01(float64(l) / 100)
	sf := clamp01(float64(s) / 100)

	if sf == 0 {
		v := uint8(lf*255 + 0.5)
		return RGB{v, v, v}
	}
	var q float64
	if lf < 0.5 {
		q = lf * (1 + sf)
	} else {
		q = lf + sf - lf*sf
	}
	p := 2*lf - q
	r := hueChan(p, q, hue+1.0/3)
	g := hueChan(p, q, hue)
	b := hueChan(p, q, hue-1.0/3)
	return RGB{uint8(r*255 + 0.5), uint8(g*255 + 0.5), uint8(b*255 + 0.5)}
}

func hueChan(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 1.0/2:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	}
	return p
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
