//go:build !darwin && !linux

package screen

import (
	"runtime"

	apperrors "github.com/RXminuS/impression-hash/internal/errors"
)

// New reports that screen capture is unavailable; use FileSource instead.
func New() (Source, error) {
	return nil, apperrors.Newf(apperrors.CodeUnavailable, "screen capture is not supported on %s", runtime.GOOS)
}
