// Package pixel provides the in-memory RGBA grid that the preprocessing stages pass along.
package pixel

import (
	"image"
	"image/color"
	"image/draw"
)

// Buffer is a width×height grid of non-premultiplied RGBA pixels anchored at (0,0).
// A stage that transforms a Buffer returns a new one; the input is never aliased
// by the output.
type Buffer struct {
	img *image.NRGBA
}

// New returns a zeroed (fully transparent) buffer.
func New(width, height int) Buffer {
	return Buffer{img: image.NewNRGBA(image.Rect(0, 0, width, height))}
}

// FromImage copies src into a new buffer. The copy is rebased to the origin.
func FromImage(src image.Image) Buffer {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	if n, ok := src.(*image.NRGBA); ok {
		for y := 0; y < b.Dy(); y++ {
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+b.Dx()*4], n.Pix[n.PixOffset(b.Min.X, b.Min.Y+y):])
		}
		return Buffer{img: dst}
	}
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return Buffer{img: dst}
}

// Wrap takes ownership of img. The caller must not use img afterwards.
func Wrap(img *image.NRGBA) Buffer {
	if img.Bounds().Min != (image.Point{}) {
		return FromImage(img)
	}
	return Buffer{img: img}
}

func (b Buffer) Width() int  { return b.img.Rect.Dx() }
func (b Buffer) Height() int { return b.img.Rect.Dy() }

// Empty reports whether the buffer has no pixels.
func (b Buffer) Empty() bool {
	return b.img == nil || b.img.Rect.Empty()
}

// At returns the pixel at (x, y).
func (b Buffer) At(x, y int) color.NRGBA {
	return b.img.NRGBAAt(x, y)
}

// Set writes the pixel at (x, y).
func (b Buffer) Set(x, y int, c color.NRGBA) {
	b.img.SetNRGBA(x, y, c)
}

// Luma returns the red channel, which holds the luma once a buffer is grayscale.
func (b Buffer) Luma(x, y int) uint8 {
	return b.img.Pix[b.img.PixOffset(x, y)]
}

// SetLuma stores v in R, G and B with full opacity.
func (b Buffer) SetLuma(x, y int, v uint8) {
	b.img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 0xff})
}

// SubImage copies the pixels inside r into a new buffer.
func (b Buffer) SubImage(r image.Rectangle) Buffer {
	return FromImage(b.img.SubImage(r))
}

// Clone returns an independent copy.
func (b Buffer) Clone() Buffer {
	return FromImage(b.img)
}

// Image exposes the buffer for read-only use by image libraries.
func (b Buffer) Image() image.Image {
	return b.img
}
