package sixel

import (
	"sync"
	"testing"
)

// testImage builds a gradient with a contrasting block, enough variety to
// exercise palette selection.
func testImage(w, h int) *Image {
	img := &Image{Width: w, Height: h, Pixels: make([]RGB, w*h)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			px := RGB{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 96}
			if x > w/2 && y > h/2 {
				px = RGB{R: 230, G: 40, B: 40}
			}
			img.Pixels[y*w+x] = px
		}
	}
	return img
}

func chanDiff(a, b uint8) int {
	d := int(a) - int(b)
	if d < 0 {
		d = -d
	}
	return d
}

func roundTrip(t *testing.T, enc Encoder, img *Image, tolerance int) {
	t.Helper()
	data, err := enc.Encode(img)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Width != img.Width || got.Height != img.Height {
		t.Fatalf("round-trip dims = %dx%d, want %dx%d",
			got.Width, got.Height, img.Width, img.Height)
	}
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			want := img.At(x, y)
			px := got.At(x, y)
			if chanDiff(px.R, want.R) > tolerance ||
				chanDiff(px.G, want.G) > tolerance ||
				chanDiff(px.B, want.B) > tolerance {
				t.Fatalf("pixel (%d,%d) = %+v, want %+v within %d",
					x, y, px, want, tolerance)
			}
		}
	}
}

func TestBasicEncoderRoundTrip(t *testing.T) {
	enc := &BasicEncoder{}
	// Uniform cube quantization plus the percent scaling on the wire:
	// half a cube step each way is the worst case.
	roundTrip(t, enc, testImage(31, 17), 30)
}

func TestAdaptiveEncoderRoundTrip(t *testing.T) {
	enc := &AdaptiveEncoder{Options: Options{MaxColors: 64}}
	// Dithering trades local error for average accuracy; allow a generous
	// per-pixel bound.
	roundTrip(t, enc, testImage(31, 17), 96)
}

func TestEncoderSolidColorExact(t *testing.T) {
	img := &Image{Width: 8, Height: 8, Pixels: make([]RGB, 64)}
	for i := range img.Pixels {
		img.Pixels[i] = RGB{255, 0, 0}
	}
	for _, enc := range []Encoder{&BasicEncoder{}, &AdaptiveEncoder{}} {
		data, err := enc.Encode(img)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		got, err := Decode(data)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.Width != 8 || got.Height != 8 {
			t.Fatalf("dims = %dx%d, want 8x8", got.Width, got.Height)
		}
		// A solid primary survives quantization and percent scaling
		// exactly.
		if px := got.At(3, 3); px != (RGB{255, 0, 0}) {
			t.Fatalf("solid red came back as %+v", px)
		}
	}
}

func TestEncodeEmptyImage(t *testing.T) {
	for _, enc := range []Encoder{&BasicEncoder{}, &AdaptiveEncoder{}} {
		if _, err := enc.Encode(nil); err == nil {
			t.Fatalf("nil image encoded without error")
		}
		if _, err := enc.Encode(&Image{}); err == nil {
			t.Fatalf("zero-size image encoded without error")
		}
	}
}

func TestAdaptiveEncoderPaletteCap(t *testing.T) {
	enc := &AdaptiveEncoder{Options: Options{MaxColors: 8}}
	data, err := enc.Encode(testImage(40, 24))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	// Count distinct register definitions in the output.
	regs := 0
	for i := 0; i+1 < len(data); i++ {
		if data[i] == '#' {
			// Definitions carry ";2;", selections do not.
			j := i + 1
			for j < len(data) && data[j] >= '0' && data[j] <= '9' {
				j++
			}
			if j < len(data) && data[j] == ';' {
				regs++
			}
		}
	}
	if regs > 8 {
		t.Fatalf("palette has %d registers, cap is 8", regs)
	}
	if regs < 2 {
		t.Fatalf("palette collapsed to %d registers", regs)
	}
}

func TestAdaptiveEncoderConcurrent(t *testing.T) {
	enc := &AdaptiveEncoder{Options: Options{MaxColors: 16, Workers: 2}}
	img := testImage(33, 19)

	want, err := enc.Encode(img)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := enc.Encode(img)
			if err != nil {
				t.Errorf("concurrent encode: %v", err)
				return
			}
			if string(got) != string(want) {
				t.Errorf("concurrent encode differs from sequential result")
			}
		}()
	}
	wg.Wait()
}

func TestPCAPalette(t *testing.T) {
	// Two well-separated clusters must land in separate boxes.
	pixels := make([]RGB, 0, 200)
	for i := 0; i < 100; i++ {
		pixels = append(pixels, RGB{10, 10, 10})
		pixels = append(pixels, RGB{240, 240, 240})
	}
	palette := pcaPalette(pixels, 2)
	if len(palette) != 2 {
		t.Fatalf("palette size = %d, want 2", len(palette))
	}
	dark, bright := palette[0], palette[1]
	if dark.R > bright.R {
		dark, bright = bright, dark
	}
	if dark.R > 30 || bright.R < 220 {
		t.Fatalf("clusters not separated: %+v / %+v", dark, bright)
	}
}
