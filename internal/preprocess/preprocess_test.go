package preprocess

import (
	"image"
	"image/color"
	"testing"

	apperrors "github.com/RXminuS/impression-hash/internal/errors"
	"github.com/RXminuS/impression-hash/internal/pixel"
)

var (
	white       = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	black       = color.NRGBA{A: 255}
	transparent = color.NRGBA{}
	red         = color.NRGBA{R: 200, G: 30, B: 30, A: 255}
)

func fill(w, h int, c color.NRGBA) pixel.Buffer {
	b := pixel.New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			b.Set(x, y, c)
		}
	}
	return b
}

func fillRect(b pixel.Buffer, r image.Rectangle, c color.NRGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			b.Set(x, y, c)
		}
	}
}

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	if p.Black != 0 || p.White != 255 || p.Fuzziness != 12 {
		t.Errorf("unexpected constants: %+v", p)
	}
	if p.Width != 11 || p.Height != 10 || p.PreScale != 200 {
		t.Errorf("unexpected geometry: %+v", p)
	}
	if p.Bits() != 100 {
		t.Errorf("Bits() = %d, want 100", p.Bits())
	}
}

func TestDownscale(t *testing.T) {
	p := DefaultParams()

	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{"small untouched", 150, 120, 150, 120},
		{"exact limit untouched", 200, 200, 200, 200},
		{"wide stretched", 400, 100, 200, 200},
		{"tall stretched", 50, 201, 200, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Downscale(fill(tt.w, tt.h, red), p)
			if out.Width() != tt.wantW || out.Height() != tt.wantH {
				t.Errorf("size = %dx%d, want %dx%d", out.Width(), out.Height(), tt.wantW, tt.wantH)
			}
		})
	}
}

func TestResizeKeepsUniformColour(t *testing.T) {
	out := Resize(fill(64, 48, color.NRGBA{R: 90, G: 90, B: 90, A: 255}), 11, 10)
	if out.Width() != 11 || out.Height() != 10 {
		t.Fatalf("size = %dx%d, want 11x10", out.Width(), out.Height())
	}
	for y := 0; y < out.Height(); y++ {
		for x := 0; x < out.Width(); x++ {
			if out.Luma(x, y) != 90 {
				t.Fatalf("Luma(%d,%d) = %d, want 90", x, y, out.Luma(x, y))
			}
		}
	}
}

func TestCropRemovesUniformBorder(t *testing.T) {
	p := DefaultParams()
	b := fill(40, 30, white)
	fillRect(b, image.Rect(10, 5, 25, 20), red)

	out := Crop(b, p)
	if out.Width() != 15 || out.Height() != 15 {
		t.Fatalf("size = %dx%d, want 15x15", out.Width(), out.Height())
	}
	if out.At(0, 0) != red || out.At(14, 14) != red {
		t.Errorf("cropped corners = %v, %v, want red", out.At(0, 0), out.At(14, 14))
	}
}

func TestCropToleratesNoise(t *testing.T) {
	p := DefaultParams()
	b := fill(20, 20, white)
	// Channel sum differs by 9, inside the fuzziness band.
	fillRect(b, image.Rect(0, 19, 20, 20), color.NRGBA{R: 252, G: 252, B: 252, A: 255})
	fillRect(b, image.Rect(5, 5, 15, 15), red)

	out := Crop(b, p)
	if out.Width() != 10 || out.Height() != 10 {
		t.Errorf("size = %dx%d, want 10x10", out.Width(), out.Height())
	}
}

func TestCropTransparentBorder(t *testing.T) {
	p := DefaultParams()
	b := fill(30, 30, transparent)
	fillRect(b, image.Rect(3, 4, 20, 27), red)

	out := Crop(b, p)
	if out.Width() != 17 || out.Height() != 23 {
		t.Errorf("size = %dx%d, want 17x23", out.Width(), out.Height())
	}
}

func TestCropSkips(t *testing.T) {
	p := DefaultParams()

	t.Run("coloured corner", func(t *testing.T) {
		b := fill(20, 20, red)
		fillRect(b, image.Rect(5, 5, 15, 15), white)
		if out := Crop(b, p); out.Width() != 20 || out.Height() != 20 {
			t.Errorf("size = %dx%d, want 20x20", out.Width(), out.Height())
		}
	})

	t.Run("one edge not uniform", func(t *testing.T) {
		b := fill(20, 20, white)
		fillRect(b, image.Rect(5, 5, 15, 20), red) // touches the bottom edge
		if out := Crop(b, p); out.Width() != 20 || out.Height() != 20 {
			t.Errorf("size = %dx%d, want 20x20", out.Width(), out.Height())
		}
	})
}

func TestCropUniformImageKeepsOnePixelStrip(t *testing.T) {
	out := Crop(fill(8, 6, white), DefaultParams())
	if out.Width() != 1 || out.Height() != 1 {
		t.Errorf("size = %dx%d, want 1x1", out.Width(), out.Height())
	}
}

func TestGrayscaleLuma(t *testing.T) {
	p := DefaultParams()
	b := pixel.New(3, 1)
	b.Set(0, 0, color.NRGBA{R: 255, A: 255})
	b.Set(1, 0, color.NRGBA{G: 255, A: 255})
	b.Set(2, 0, white)

	out := Grayscale(b, p)
	want := []uint8{75, 149, 255} // (255*76)>>8, (255*150)>>8, 255
	for x, w := range want {
		if got := out.Luma(x, 0); got != w {
			t.Errorf("Luma(%d) = %d, want %d", x, got, w)
		}
		if out.At(x, 0).A != 255 {
			t.Errorf("alpha(%d) = %d, want opaque", x, out.At(x, 0).A)
		}
	}
}

func TestGrayscaleTransparentFill(t *testing.T) {
	p := DefaultParams()

	t.Run("white fill when contrast exists", func(t *testing.T) {
		b := pixel.New(2, 1)
		b.Set(0, 0, transparent)
		b.Set(1, 0, black)
		out := Grayscale(b, p)
		if out.Luma(0, 0) != 255 || out.Luma(1, 0) != 0 {
			t.Errorf("lumas = %d,%d, want 255,0", out.Luma(0, 0), out.Luma(1, 0))
		}
	})

	t.Run("black fill for white on transparent", func(t *testing.T) {
		b := pixel.New(2, 1)
		b.Set(0, 0, transparent)
		b.Set(1, 0, white)
		out := Grayscale(b, p)
		if out.Luma(0, 0) != 0 || out.Luma(1, 0) != 255 {
			t.Errorf("lumas = %d,%d, want 0,255", out.Luma(0, 0), out.Luma(1, 0))
		}
	})
}

func TestSmooth(t *testing.T) {
	flat := Smooth(fill(5, 4, color.NRGBA{R: 100, G: 100, B: 100, A: 255}))
	for y := 0; y < 4; y++ {
		for x := 0; x < 5; x++ {
			if flat.Luma(x, y) != 100 {
				t.Fatalf("flat Luma(%d,%d) = %d, want 100", x, y, flat.Luma(x, y))
			}
		}
	}

	spot := fill(5, 5, black)
	spot.SetLuma(2, 2, 90)
	out := Smooth(spot)
	if got := out.Luma(2, 2); got != 10 {
		t.Errorf("centre = %d, want 10", got)
	}
	if got := out.Luma(1, 1); got != 10 {
		t.Errorf("neighbour = %d, want 10", got)
	}
	if got := out.Luma(0, 0); got != 0 {
		t.Errorf("far corner = %d, want 0", got)
	}
}

func TestNormalize(t *testing.T) {
	p := DefaultParams()

	b := pixel.New(3, 1)
	b.SetLuma(0, 0, 50)
	b.SetLuma(1, 0, 100)
	b.SetLuma(2, 0, 150)
	out := Normalize(b, p)
	want := []uint8{0, 127, 255}
	for x, w := range want {
		if got := out.Luma(x, 0); got != w {
			t.Errorf("Luma(%d) = %d, want %d", x, got, w)
		}
	}

	t.Run("skips degenerate", func(t *testing.T) {
		for _, v := range []uint8{0, 128} {
			flat := pixel.New(2, 2)
			for i := 0; i < 4; i++ {
				flat.SetLuma(i%2, i/2, v)
			}
			if got := Normalize(flat, p).Luma(1, 1); got != v {
				t.Errorf("flat %d normalized to %d", v, got)
			}
		}
	})
}

func TestRun(t *testing.T) {
	p := DefaultParams()
	img := image.NewNRGBA(image.Rect(0, 0, 300, 240))
	for y := 0; y < 240; y++ {
		for x := 0; x < 300; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 60, A: 255})
		}
	}

	out, err := Run(img, p)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if out.Width() != 11 || out.Height() != 10 {
		t.Fatalf("size = %dx%d, want 11x10", out.Width(), out.Height())
	}
	lo, hi := LumaRange(out)
	if lo != 0 || hi != 255 {
		t.Errorf("range = [%d,%d], want [0,255]", lo, hi)
	}
}

func TestRunRejectsEmpty(t *testing.T) {
	p := DefaultParams()
	if _, err := Run(nil, p); !apperrors.IsCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("Run(nil) = %v, want INVALID_INPUT", err)
	}
	empty := image.NewNRGBA(image.Rect(0, 0, 0, 10))
	if _, err := Run(empty, p); !apperrors.IsCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("Run(0x10) = %v, want INVALID_INPUT", err)
	}
}
