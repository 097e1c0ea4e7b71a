package preprocess

import (
	"image"
	"image/color"

	"github.com/RXminuS/impression-hash/internal/pixel"
)

// borderEligible reports whether c can be a padding colour: fully transparent
// or a neutral gray (R == G == B).
func (p Params) borderEligible(c color.NRGBA) bool {
	return c.A == 0 || (c.R == c.G && c.R == c.B)
}

// similar compares channel sums, alpha included, within the fuzziness band.
func (p Params) similar(a, b color.NRGBA) bool {
	d := channelSum(a) - channelSum(b)
	return d < p.Fuzziness && d > -p.Fuzziness
}

func channelSum(c color.NRGBA) int {
	return int(c.R) + int(c.G) + int(c.B) + int(c.A)
}

// uniformRow checks row y of b within the columns of r.
func (p Params) uniformRow(b pixel.Buffer, r image.Rectangle, y int, border color.NRGBA) bool {
	for x := r.Min.X; x < r.Max.X; x++ {
		if !p.similar(border, b.At(x, y)) {
			return false
		}
	}
	return true
}

// uniformColumn checks column x of b within the rows of r.
func (p Params) uniformColumn(b pixel.Buffer, r image.Rectangle, x int, border color.NRGBA) bool {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		if !p.similar(border, b.At(x, y)) {
			return false
		}
	}
	return true
}
