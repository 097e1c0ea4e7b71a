package preprocess

import (
	"image"

	apperrors "github.com/RXminuS/impression-hash/internal/errors"
	"github.com/RXminuS/impression-hash/internal/pixel"
)

// Run executes the full pipeline on img and returns the p.Width×p.Height
// normalized grayscale grid.
func Run(img image.Image, p Params) (pixel.Buffer, error) {
	if img == nil {
		return pixel.Buffer{}, apperrors.New(apperrors.CodeInvalidInput, "image is nil")
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return pixel.Buffer{}, apperrors.Newf(apperrors.CodeInvalidInput, "image has zero dimension (%dx%d)", b.Dx(), b.Dy())
	}
	if p.Width < 2 || p.Height < 1 {
		return pixel.Buffer{}, apperrors.Newf(apperrors.CodeInvalidInput, "working resolution %dx%d too small", p.Width, p.Height)
	}

	b := pixel.FromImage(img)
	b = Downscale(b, p)
	b = Crop(b, p)
	b = Grayscale(b, p)
	b = Resize(b, p.Width, p.Height)
	b = Smooth(b)
	b = Normalize(b, p)
	return b, nil
}
