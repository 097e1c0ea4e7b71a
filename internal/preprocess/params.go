// Package preprocess reduces an arbitrary image to the small normalized grayscale
// grid that fingerprints are read from.
package preprocess

// Default pipeline constants
const (
	Black     = 0
	White     = 255
	Fuzziness = 12 // tolerance for borders, transitions and contrast

	// Working resolution. Width is one column wider than the bit width
	// because every bit compares a pixel with its right neighbour.
	Width  = 11
	Height = 10

	// Inputs larger than this on either side are first stretched to PreScale×PreScale.
	PreScale = 200
)

// Params carries the constants shared by every stage.
type Params struct {
	Black     uint8
	White     uint8
	Fuzziness int
	Width     int
	Height    int
	PreScale  int
}

// DefaultParams returns the parameters all published fingerprints are built with.
// Fingerprints are only comparable when built with identical parameters.
func DefaultParams() Params {
	return Params{
		Black:     Black,
		White:     White,
		Fuzziness: Fuzziness,
		Width:     Width,
		Height:    Height,
		PreScale:  PreScale,
	}
}

// Bits returns the fingerprint length produced with these parameters.
func (p Params) Bits() int {
	return p.Height * (p.Width - 1)
}
