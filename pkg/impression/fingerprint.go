// Package impression computes impression hashes: small perceptual fingerprints
// that stay close for visually similar images.
//
// A fingerprint built from an image carries two bit sequences. "changes" marks
// strong horizontal transitions and suits icons, logos and vector art.
// "larger" records the direction of every transition and suits photographs.
// A fingerprint parsed from text carries only "changes".
package impression

import (
	"image"

	"github.com/RXminuS/impression-hash/internal/compare"
	"github.com/RXminuS/impression-hash/internal/encoder"
	apperrors "github.com/RXminuS/impression-hash/internal/errors"
	"github.com/RXminuS/impression-hash/internal/preprocess"
)

// Errors returned by this package. Use errors.Is to test for them.
var (
	ErrInvalidInput       = apperrors.ErrInvalidInput
	ErrLengthMismatch     = apperrors.ErrLengthMismatch
	ErrUnavailableVariant = apperrors.ErrUnavailableVariant
)

// Variant selects which bit sequence Text renders.
type Variant int

const (
	Changes Variant = iota
	Larger
)

func (v Variant) String() string {
	switch v {
	case Changes:
		return "changes"
	case Larger:
		return "larger"
	default:
		return "unknown"
	}
}

// ParseVariant accepts "changes" (or "") and "larger".
func ParseVariant(s string) (Variant, error) {
	switch s {
	case "", "changes":
		return Changes, nil
	case "larger":
		return Larger, nil
	default:
		return 0, apperrors.Newf(apperrors.CodeInvalidInput, "unknown hash variant %q", s)
	}
}

// Fingerprint is an immutable impression hash.
type Fingerprint struct {
	changes encoder.Bits
	larger  encoder.Bits // nil when parsed from text
}

// FromImage runs the full normalization pipeline on img and encodes the result.
func FromImage(img image.Image) (*Fingerprint, error) {
	p := preprocess.DefaultParams()
	grid, err := preprocess.Run(img, p)
	if err != nil {
		return nil, err
	}
	changes, larger := encoder.Transitions(grid, p.Fuzziness)
	return &Fingerprint{changes: changes, larger: larger}, nil
}

// FromHex parses the "changes" text form. No image processing takes place, so
// this is cheap enough to call for every comparison.
func FromHex(s string) (*Fingerprint, error) {
	changes, err := encoder.ParseHex(s)
	if err != nil {
		return nil, err
	}
	return &Fingerprint{changes: changes}, nil
}

// Text renders the chosen variant as hexadecimal.
func (f *Fingerprint) Text(v Variant) (string, error) {
	switch v {
	case Changes:
		return f.changes.Hex(), nil
	case Larger:
		if f.larger == nil {
			return "", apperrors.New(apperrors.CodeUnavailableVariant, "larger hash is only available for fingerprints built from an image").
				WithMetadata("variant", v.String())
		}
		return f.larger.Hex(), nil
	default:
		return "", apperrors.Newf(apperrors.CodeInvalidInput, "unknown hash variant %d", int(v))
	}
}

// Changes returns the "changes" text form.
func (f *Fingerprint) Changes() string {
	return f.changes.Hex()
}

// String returns the "changes" text form.
func (f *Fingerprint) String() string {
	return f.Changes()
}

// Len returns the number of bits in the "changes" sequence.
func (f *Fingerprint) Len() int {
	return len(f.changes)
}

// HasLarger reports whether the "larger" variant is available.
func (f *Fingerprint) HasLarger() bool {
	return f.larger != nil
}

// Similarity returns the fraction of "changes" bits on which f and other agree.
func (f *Fingerprint) Similarity(other *Fingerprint) (float64, error) {
	return Similarity(f, other)
}

// Similarity returns the fraction of "changes" bits on which a and b agree.
// It fails when the fingerprints have different lengths.
func Similarity(a, b *Fingerprint) (float64, error) {
	if a == nil || b == nil {
		return 0, apperrors.New(apperrors.CodeInvalidInput, "fingerprint is nil")
	}
	return compare.Agreement(a.changes, b.changes)
}
