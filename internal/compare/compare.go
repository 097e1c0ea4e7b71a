// Package compare scores how closely two fingerprints agree.
package compare

import (
	"strconv"

	apperrors "github.com/RXminuS/impression-hash/internal/errors"
	"github.com/RXminuS/impression-hash/internal/encoder"
)

// Agreement returns the fraction of positions at which a and b hold the same
// bit: 1 for identical sequences, 0 for complementary ones.
func Agreement(a, b encoder.Bits) (float64, error) {
	if len(a) != len(b) {
		return 0, apperrors.Newf(apperrors.CodeLengthMismatch, "cannot compare %d bits with %d bits", len(a), len(b)).
			WithMetadata("first_bits", strconv.Itoa(len(a))).
			WithMetadata("second_bits", strconv.Itoa(len(b)))
	}
	if len(a) == 0 {
		return 0, apperrors.New(apperrors.CodeInvalidInput, "cannot compare empty fingerprints")
	}

	same := 0
	for i := range a {
		if a[i] == b[i] {
			same++
		}
	}
	return float64(same) / float64(len(a)), nil
}

// Distance is the number of positions at which a and b differ.
func Distance(a, b encoder.Bits) (int, error) {
	if len(a) != len(b) {
		return 0, apperrors.Newf(apperrors.CodeLengthMismatch, "cannot compare %d bits with %d bits", len(a), len(b))
	}
	d := 0
	for i := range a {
		if a[i] != b[i] {
			d++
		}
	}
	return d, nil
}
