package sixel

import (
	"bytes"
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
)

// Options configures an encoder.
type Options struct {
	// MaxColors caps the output palette; defaults to 256, the register
	// limit of common sixel terminals.
	MaxColors int
	// Workers bounds the dithering parallelism of the adaptive encoder;
	// defaults to GOMAXPROCS.
	Workers int
}

func (o Options) maxColors() int {
	if o.MaxColors < 2 {
		return 256
	}
	if o.MaxColors > 256 {
		return 256
	}
	return o.MaxColors
}

func (o Options) workers() int {
	if o.Workers < 1 {
		return runtime.GOMAXPROCS(0)
	}
	return o.Workers
}

// Encoder turns a bitmap into a complete sixel sequence (DCS opener
// through ST). Implementations are stateless: one encoder value may be
// used from any number of goroutines at once.
type Encoder interface {
	Encode(img *Image) ([]byte, error)
}

const errEmptyImage = sixelError("sixel: empty image")

// BasicEncoder quantizes to a fixed uniform color cube in a single pass.
// Fast and predictable; banding on smooth gradients.
type BasicEncoder struct {
	Options
}

// Encode implements Encoder.
func (e *BasicEncoder) Encode(img *Image) ([]byte, error) {
	if img == nil || img.Width <= 0 || img.Height <= 0 {
		return nil, errEmptyImage
	}
	// Largest per-channel level count whose cube fits the register budget.
	levels := 2
	for (levels+1)*(levels+1)*(levels+1) <= e.maxColors() {
		levels++
	}

	palette := make([]RGB, 0, levels*levels*levels)
	index := map[RGB]int{}
	indexed := make([]int, len(img.Pixels))
	for i, px := range img.Pixels {
		q := RGB{
			R: quantChan(px.R, levels),
			G: quantChan(px.G, levels),
			B: quantChan(px.B, levels),
		}
		reg, ok := index[q]
		if !ok {
			reg = len(palette)
			palette = append(palette, q)
			index[q] = reg
		}
		indexed[i] = reg
	}
	return emitSixel(img.Width, img.Height, indexed, palette), nil
}

// quantChan snaps a channel to the nearest of n evenly spaced levels.
func quantChan(v uint8, n int) uint8 {
	step := 255.0 / float64(n-1)
	return uint8(math.Round(math.Round(float64(v)/step) * step))
}

// AdaptiveEncoder derives a palette from the image's own color cloud by
// recursive principal-component splits, then dithers with per-cell error
// diffusion. Diffusion error never crosses a cell boundary, which keeps
// cells independent and lets them dither in parallel. Stateless; safe for
// concurrent Encode calls.
type AdaptiveEncoder struct {
	Options
}

// ditherCell is the tile edge in pixels for independent error diffusion.
const ditherCell = 16

// Encode implements Encoder.
func (e *AdaptiveEncoder) Encode(img *Image) ([]byte, error) {
	if img == nil || img.Width <= 0 || img.Height <= 0 {
		return nil, errEmptyImage
	}
	palette := pcaPalette(img.Pixels, e.maxColors())
	lab := make([]colorful.Color, len(palette))
	for i, c := range palette {
		lab[i] = colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
	}

	indexed := make([]int, len(img.Pixels))
	cellsX := (img.Width + ditherCell - 1) / ditherCell
	cellsY := (img.Height + ditherCell - 1) / ditherCell

	tiles := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < e.workers(); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			nearest := map[RGB]int{}
			for tile := range tiles {
				tx := (tile % cellsX) * ditherCell
				ty := (tile / cellsX) * ditherCell
				ditherTile(img, indexed, palette, lab, nearest, tx, ty)
			}
		}()
	}
	for t := 0; t < cellsX*cellsY; t++ {
		tiles <- t
	}
	close(tiles)
	wg.Wait()

	return emitSixel(img.Width, img.Height, indexed, palette), nil
}

// ditherTile runs Floyd-Steinberg diffusion over one tile, clamping the
// error kernel at the tile edges.
func ditherTile(img *Image, indexed []int, palette []RGB, lab []colorful.Color, nearest map[RGB]int, tx, ty int) {
	x1 := tx + ditherCell
	if x1 > img.Width {
		x1 = img.Width
	}
	y1 := ty + ditherCell
	if y1 > img.Height {
		y1 = img.Height
	}
	w := x1 - tx
	h := y1 - ty

	// Working copy with headroom for accumulated error.
	work := make([][3]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			px := img.Pixels[(ty+y)*img.Width+tx+x]
			work[y*w+x] = [3]float64{float64(px.R), float64(px.G), float64(px.B)}
		}
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			old := work[y*w+x]
			target := RGB{clampByte(old[0]), clampByte(old[1]), clampByte(old[2])}
			reg, ok := nearest[target]
			if !ok {
				reg = nearestLab(target, lab)
				nearest[target] = reg
			}
			indexed[(ty+y)*img.Width+tx+x] = reg

			chosen := palette[reg]
			errv := [3]float64{
				old[0] - float64(chosen.R),
				old[1] - float64(chosen.G),
				old[2] - float64(chosen.B),
			}
			diffuse(work, w, h, x+1, y, errv, 7.0/16)
			diffuse(work, w, h, x-1, y+1, errv, 3.0/16)
			diffuse(work, w, h, x, y+1, errv, 5.0/16)
			diffuse(work, w, h, x+1, y+1, errv, 1.0/16)
		}
	}
}

func diffuse(work [][3]float64, w, h, x, y int, errv [3]float64, f float64) {
	if x < 0 || x >= w || y >= h {
		return
	}
	p := &work[y*w+x]
	p[0] += errv[0] * f
	p[1] += errv[1] * f
	p[2] += errv[2] * f
}

func nearestLab(c RGB, lab []colorful.Color) int {
	cc := colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
	best := 0
	bestDist := math.Inf(1)
	for i, pc := range lab {
		d := cc.DistanceLab(pc)
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}

// pcaPalette reduces a pixel cloud to at most maxColors representatives by
// repeatedly splitting the highest-variance box across its principal
// component and averaging each final box.
func pcaPalette(pixels []RGB, maxColors int) []RGB {
	if len(pixels) == 0 {
		return []RGB{{}}
	}
	boxes := [][]RGB{append([]RGB(nil), pixels...)}
	for len(boxes) < maxColors {
		// Pick the box with the largest channel-summed variance.
		bestBox := -1
		bestVar := 0.0
		for i, box := range boxes {
			if len(box) < 2 {
				continue
			}
			if v := boxVariance(box); v > bestVar {
				bestVar = v
				bestBox = i
			}
		}
		if bestBox < 0 || bestVar == 0 {
			break
		}
		lo, hi := splitBox(boxes[bestBox])
		if len(lo) == 0 || len(hi) == 0 {
			break
		}
		boxes[bestBox] = lo
		boxes = append(boxes, hi)
	}
	palette := make([]RGB, len(boxes))
	for i, box := range boxes {
		palette[i] = boxMean(box)
	}
	return palette
}

func boxMean(box []RGB) RGB {
	var r, g, b uint64
	for _, px := range box {
		r += uint64(px.R)
		g += uint64(px.G)
		b += uint64(px.B)
	}
	n := uint64(len(box))
	if n == 0 {
		return RGB{}
	}
	return RGB{uint8(r / n), uint8(g / n), uint8(b / n)}
}

func boxVariance(box []RGB) float64 {
	mean := boxMeanF(box)
	var v float64
	for _, px := range box {
		dr := float64(px.R) - mean[0]
		dg := float64(px.G) - mean[1]
		db := float64(px.B) - mean[2]
		v += dr*dr + dg*dg + db*db
	}
	return v / float64(len(box))
}

func boxMeanF(box []RGB) [3]float64 {
	var m [3]float64
	for _, px := range box {
		m[0] += float64(px.R)
		m[1] += float64(px.G)
		m[2] += float64(px.B)
	}
	n := float64(len(box))
	m[0] /= n
	m[1] /= n
	m[2] /= n
	return m
}

// splitBox partitions a box at the mean projection onto its dominant
// eigenvector, found by power iteration on the 3x3 covariance matrix.
func splitBox(box []RGB) (lo, hi []RGB) {
	mean := boxMeanF(box)

	var cov [3][3]float64
	for _, px := range box {
		d := [3]float64{float64(px.R) - mean[0], float64(px.G) - mean[1], float64(px.B) - mean[2]}
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				cov[i][j] += d[i] * d[j]
			}
		}
	}
	n := float64(len(box))
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			cov[i][j] /= n
		}
	}

	// Power iteration for the principal axis.
	axis := [3]float64{1, 1, 1}
	for iter := 0; iter < 16; iter++ {
		var next [3]float64
		for i := 0; i < 3; i++ {
			next[i] = cov[i][0]*axis[0] + cov[i][1]*axis[1] + cov[i][2]*axis[2]
		}
		norm := math.Sqrt(next[0]*next[0] + next[1]*next[1] + next[2]*next[2])
		if norm == 0 {
			break
		}
		axis = [3]float64{next[0] / norm, next[1] / norm, next[2] / norm}
	}

	var meanProj float64
	proj := make([]float64, len(box))
	for i, px := range box {
		p := (float64(px.R)-mean[0])*axis[0] + (float64(px.G)-mean[1])*axis[1] + (float64(px.B)-mean[2])*axis[2]
		proj[i] = p
		meanProj += p
	}
	meanProj /= n

	for i, px := range box {
		if proj[i] <= meanProj {
			lo = append(lo, px)
		} else {
			hi = append(hi, px)
		}
	}
	return lo, hi
}

// emitSixel serializes an indexed image: DCS opener, raster attributes,
// color register definitions, then per-band pixel data with run-length
// repeats, closed by ST.
func emitSixel(w, h int, indexed []int, palette []RGB) []byte {
	var out bytes.Buffer
	out.WriteString("\x1bP0;0;8q")
	fmt.Fprintf(&out, "\"1;1;%d;%d", w, h)
	for i, c := range palette {
		fmt.Fprintf(&out, "#%d;2;%d;%d;%d",
			i, int(c.R)*100/255, int(c.G)*100/255, int(c.B)*100/255)
	}

	band := make([]byte, w)
	for y0 := 0; y0 < h; y0 += 6 {
		first := true
		for reg := range palette {
			// Build this register's column bits across the band.
			used := false
			for x := 0; x < w; x++ {
				var bits byte
				for dy := 0; dy < 6 && y0+dy < h; dy++ {
					if indexed[(y0+dy)*w+x] == reg {
						bits |= 1 << dy
					}
				}
				band[x] = bits
				if bits != 0 {
					used = true
				}
			}
			if !used {
				continue
			}
			if !first {
				out.WriteByte('$')
			}
			first = false
			fmt.Fprintf(&out, "#%d", reg)
			writeRuns(&out, band)
		}
		out.WriteByte('-')
	}
	out.WriteString("\x1b\\")
	return out.Bytes()
}

// writeRuns emits a band of column bits with !Pn repeat compression.
func writeRuns(out *bytes.Buffer, band []byte) {
	for x := 0; x < len(band); {
		run := 1
		for x+run < len(band) && band[x+run] == band[x] {
			run++
		}
		ch := band[x] + 0x3F
		if run > 3 {
			fmt.Fprintf(out, "!%d%c", run, ch)
		} else {
			for i := 0; i < run; i++ {
				out.WriteByte(ch)
			}
		}
		x += run
	}
}
