// Package hasher exposes impression hashing as a service shared by the gRPC,
// HTTP and WebSocket transports.
package hasher

import (
	"context"
	"image"

	"github.com/corona10/goimagehash"

	"github.com/RXminuS/impression-hash/internal/config"
	"github.com/RXminuS/impression-hash/internal/decode"
	apperrors "github.com/RXminuS/impression-hash/internal/errors"
	"github.com/RXminuS/impression-hash/internal/syncx"
	"github.com/RXminuS/impression-hash/internal/trace"
	"github.com/RXminuS/impression-hash/pkg/impression"
)

// Stats counts service activity since start.
type Stats struct {
	Hashed   int64 `json:"hashed"`
	Compared int64 `json:"compared"`
	Failed   int64 `json:"failed"`
}

// Comparison is the result of comparing two images.
type Comparison struct {
	Similarity    float64 `json:"similarity"`
	First         string  `json:"first"`
	Second        string  `json:"second"`
	PHashDistance int     `json:"phash_distance"`
}

// Service decodes, fingerprints and compares images.
type Service struct {
	limits decode.Limits
	stats  *syncx.RWGuard[Stats]
}

// New creates a service using the image limits from cfg.
func New(cfg *config.Config) *Service {
	return &Service{
		limits: decode.Limits{MaxBytes: cfg.MaxImageBytes, MaxPixels: cfg.MaxImagePixels},
		stats:  syncx.NewGuard(Stats{}),
	}
}

// HashImage decodes data and builds its fingerprint.
func (s *Service) HashImage(ctx context.Context, data []byte) (*impression.Fingerprint, error) {
	ctx, span := trace.StartSpan(ctx, "hasher.HashImage")
	defer span.End()
	span.SetAttr("bytes", len(data))

	fp, err := s.fingerprint(ctx, data)
	if err != nil {
		s.fail()
		return nil, err
	}
	s.stats.Write(func(st *Stats) { st.Hashed++ })
	trace.Logger(ctx).Debug("image hashed", "hash", fp.Changes(), "span", span)
	return fp, nil
}

// HashText returns the requested variant of the fingerprint of data.
func (s *Service) HashText(ctx context.Context, data []byte, v impression.Variant) (string, error) {
	fp, err := s.HashImage(ctx, data)
	if err != nil {
		return "", err
	}
	return fp.Text(v)
}

// Similarity compares two "changes" hashes given as hex text.
func (s *Service) Similarity(ctx context.Context, first, second string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, contextError(err)
	}
	a, err := impression.FromHex(first)
	if err != nil {
		s.fail()
		return 0, apperrors.Annotate(err, "argument", "first")
	}
	b, err := impression.FromHex(second)
	if err != nil {
		s.fail()
		return 0, apperrors.Annotate(err, "argument", "second")
	}
	sim, err := impression.Similarity(a, b)
	if err != nil {
		s.fail()
		return 0, err
	}
	s.stats.Write(func(st *Stats) { st.Compared++ })
	return sim, nil
}

// CompareImages fingerprints both images and reports their similarity
// together with the perception hash distance.
func (s *Service) CompareImages(ctx context.Context, first, second []byte) (Comparison, error) {
	ctx, span := trace.StartSpan(ctx, "hasher.CompareImages")
	defer span.End()

	imgA, fpA, err := s.decodeAndHash(ctx, first)
	if err != nil {
		s.fail()
		return Comparison{}, apperrors.Annotate(err, "argument", "first")
	}
	imgB, fpB, err := s.decodeAndHash(ctx, second)
	if err != nil {
		s.fail()
		return Comparison{}, apperrors.Annotate(err, "argument", "second")
	}

	sim, err := impression.Similarity(fpA, fpB)
	if err != nil {
		s.fail()
		return Comparison{}, err
	}
	dist, err := PHashDistance(imgA, imgB)
	if err != nil {
		s.fail()
		return Comparison{}, err
	}

	s.stats.Write(func(st *Stats) {
		st.Hashed += 2
		st.Compared++
	})
	span.SetAttr("similarity", sim)
	trace.Logger(ctx).Debug("images compared", "span", span)
	return Comparison{Similarity: sim, First: fpA.Changes(), Second: fpB.Changes(), PHashDistance: dist}, nil
}

// Stats returns a snapshot of the counters.
func (s *Service) Stats() Stats {
	return s.stats.Get()
}

// PHashDistance is the Hamming distance between the 64-bit perception hashes
// of two images.
func PHashDistance(a, b image.Image) (int, error) {
	ha, err := goimagehash.PerceptionHash(a)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeInternal, "perception hash")
	}
	hb, err := goimagehash.PerceptionHash(b)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeInternal, "perception hash")
	}
	dist, err := ha.Distance(hb)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeInternal, "perception hash distance")
	}
	return dist, nil
}

func (s *Service) fingerprint(ctx context.Context, data []byte) (*impression.Fingerprint, error) {
	_, fp, err := s.decodeAndHash(ctx, data)
	return fp, err
}

func (s *Service) decodeAndHash(ctx context.Context, data []byte) (image.Image, *impression.Fingerprint, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, contextError(err)
	}
	img, _, err := decode.Decode(data, s.limits)
	if err != nil {
		return nil, nil, err
	}
	fp, err := impression.FromImage(img)
	if err != nil {
		return nil, nil, err
	}
	return img, fp, nil
}

func (s *Service) fail() {
	s.stats.Write(func(st *Stats) { st.Failed++ })
}

func contextError(err error) error {
	if err == context.DeadlineExceeded {
		return apperrors.Wrap(err, apperrors.CodeTimeout, "request deadline exceeded")
	}
	return apperrors.Wrap(err, apperrors.CodeCancelled, "request cancelled")
}
