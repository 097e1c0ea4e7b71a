package preprocess

import (
	"image"

	"github.com/disintegration/gift"
	"github.com/nfnt/resize"

	"github.com/RXminuS/impression-hash/internal/pixel"
)

// boxKernel is a 3×3 uniform average.
var boxKernel = []float32{
	1.0 / 9, 1.0 / 9, 1.0 / 9,
	1.0 / 9, 1.0 / 9, 1.0 / 9,
	1.0 / 9, 1.0 / 9, 1.0 / 9,
}

// Downscale stretches b to PreScale×PreScale when either side exceeds PreScale.
func Downscale(b pixel.Buffer, p Params) pixel.Buffer {
	if b.Width() <= p.PreScale && b.Height() <= p.PreScale {
		return b
	}
	return Resize(b, p.PreScale, p.PreScale)
}

// Resize resamples b to exactly width×height with bilinear interpolation.
func Resize(b pixel.Buffer, width, height int) pixel.Buffer {
	if b.Width() == width && b.Height() == height {
		return b.Clone()
	}
	return pixel.FromImage(resize.Resize(uint(width), uint(height), b.Image(), resize.Bilinear))
}

// Crop removes uniform padding around the image. It only triggers when the
// top-left pixel can be a border colour and all four edges match it.
func Crop(b pixel.Buffer, p Params) pixel.Buffer {
	border := b.At(0, 0)
	if !p.borderEligible(border) {
		return b
	}

	r := image.Rect(0, 0, b.Width(), b.Height())
	if !p.uniformRow(b, r, r.Min.Y, border) || !p.uniformRow(b, r, r.Max.Y-1, border) ||
		!p.uniformColumn(b, r, r.Min.X, border) || !p.uniformColumn(b, r, r.Max.X-1, border) {
		return b
	}

	// Always keep at least one row and one column.
	for r.Dy() > 1 && p.uniformRow(b, r, r.Min.Y, border) {
		r.Min.Y++
	}
	for r.Dy() > 1 && p.uniformRow(b, r, r.Max.Y-1, border) {
		r.Max.Y--
	}
	for r.Dx() > 1 && p.uniformColumn(b, r, r.Min.X, border) {
		r.Min.X++
	}
	for r.Dx() > 1 && p.uniformColumn(b, r, r.Max.X-1, border) {
		r.Max.X--
	}

	return b.SubImage(r)
}

// Grayscale converts b to luma. Transparent pixels become White, or Black if
// a White fill leaves the image without any contrast.
func Grayscale(b pixel.Buffer, p Params) pixel.Buffer {
	g := grayify(b, p.White)
	if lo, hi := LumaRange(g); lo == hi {
		g = grayify(b, p.Black)
	}
	return g
}

func grayify(b pixel.Buffer, transparent uint8) pixel.Buffer {
	out := pixel.New(b.Width(), b.Height())
	for y := 0; y < b.Height(); y++ {
		for x := 0; x < b.Width(); x++ {
			c := b.At(x, y)
			v := transparent
			if c.A != 0 {
				v = uint8((int(c.R)*76 + int(c.G)*150 + int(c.B)*30) >> 8)
			}
			out.SetLuma(x, y, v)
		}
	}
	return out
}

// Smooth applies a 3×3 box blur. Pixels past the edge repeat the edge.
func Smooth(b pixel.Buffer) pixel.Buffer {
	g := gift.New(gift.Convolution(boxKernel, false, false, false, 0))
	dst := image.NewNRGBA(g.Bounds(b.Image().Bounds()))
	g.Draw(dst, b.Image())
	return pixel.Wrap(dst)
}

// Normalize stretches luma to the full Black..White range. Grids that are
// already full range, entirely black or flat are returned unchanged.
func Normalize(b pixel.Buffer, p Params) pixel.Buffer {
	lo, hi := LumaRange(b)
	if (lo == p.Black && hi == p.White) || hi == 0 || lo == hi {
		return b
	}

	out := pixel.New(b.Width(), b.Height())
	span := int(hi) - int(lo)
	for y := 0; y < b.Height(); y++ {
		for x := 0; x < b.Width(); x++ {
			v := (int(b.Luma(x, y)) - int(lo)) * int(p.White) / span
			out.SetLuma(x, y, uint8(v))
		}
	}
	return out
}

// LumaRange returns the darkest and brightest luma in a grayscale buffer.
func LumaRange(b pixel.Buffer) (lo, hi uint8) {
	lo, hi = 255, 0
	for y := 0; y < b.Height(); y++ {
		for x := 0; x < b.Width(); x++ {
			v := b.Luma(x, y)
			lo = min(lo, v)
			hi = max(hi, v)
		}
	}
	return lo, hi
}
