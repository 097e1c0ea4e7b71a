// Package decode turns raw image bytes into an image.Image within configured limits.
package decode

import (
	"bytes"
	"image"
	_ "image/gif"  // GIF decoder
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder

	_ "golang.org/x/image/bmp"  // BMP decoder
	_ "golang.org/x/image/tiff" // TIFF decoder
	_ "golang.org/x/image/webp" // WebP decoder

	apperrors "github.com/RXminuS/impression-hash/internal/errors"
)

// Limits bounds the input accepted by Decode. Zero values disable a check.
type Limits struct {
	MaxBytes  int64
	MaxPixels int
}

// Decode sniffs the format of data and decodes it. The header is checked
// against the limits before any pixel data is allocated.
func Decode(data []byte, lim Limits) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", apperrors.New(apperrors.CodeInvalidInput, "image data is empty")
	}
	if lim.MaxBytes > 0 && int64(len(data)) > lim.MaxBytes {
		return nil, "", apperrors.Newf(apperrors.CodeImageTooLarge, "image is %d bytes, limit is %d", len(data), lim.MaxBytes)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", apperrors.Wrap(err, apperrors.CodeImageDecodeFailed, "unrecognized image data")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, format, apperrors.Newf(apperrors.CodeInvalidInput, "image has zero dimension (%dx%d)", cfg.Width, cfg.Height)
	}
	if lim.MaxPixels > 0 && cfg.Width*cfg.Height > lim.MaxPixels {
		return nil, format, apperrors.Newf(apperrors.CodeImageTooLarge, "image is %dx%d, limit is %d pixels", cfg.Width, cfg.Height, lim.MaxPixels).
			WithMetadata("format", format)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, format, apperrors.Wrapf(err, apperrors.CodeImageDecodeFailed, "decode %s", format)
	}
	return img, format, nil
}
