// Package encoder turns a normalized grid into transition bits and converts bit
// sequences to and from their hexadecimal text form.
package encoder

import (
	"strings"

	apperrors "github.com/RXminuS/impression-hash/internal/errors"
	"github.com/RXminuS/impression-hash/internal/pixel"
)

const hexChars = "0123456789abcdef"

// Bits is an ordered sequence of boolean fingerprint bits.
type Bits []bool

// Transitions compares every pixel with its right neighbour, row by row.
// changes marks differences larger than fuzziness; larger marks a left pixel
// brighter than its neighbour.
func Transitions(grid pixel.Buffer, fuzziness int) (changes, larger Bits) {
	n := grid.Height() * (grid.Width() - 1)
	if n <= 0 {
		return Bits{}, Bits{}
	}
	changes = make(Bits, 0, n)
	larger = make(Bits, 0, n)
	for y := 0; y < grid.Height(); y++ {
		for x := 0; x < grid.Width()-1; x++ {
			a, b := int(grid.Luma(x, y)), int(grid.Luma(x+1, y))
			changes = append(changes, a < b-fuzziness || a > b+fuzziness)
			larger = append(larger, a > b)
		}
	}
	return changes, larger
}

// HexLen is the number of characters Hex produces for n bits.
func HexLen(n int) int {
	return (n + 3) / 4
}

// Hex packs the bits four per character, most significant bit first. A short
// final group is padded with zero bits on the right.
func (b Bits) Hex() string {
	var sb strings.Builder
	sb.Grow(HexLen(len(b)))
	for i := 0; i < len(b); i += 4 {
		var nibble byte
		for j := 0; j < 4; j++ {
			nibble <<= 1
			if i+j < len(b) && b[i+j] {
				nibble |= 1
			}
		}
		sb.WriteByte(hexChars[nibble])
	}
	return sb.String()
}

// ParseHex expands each character of s into four bits, most significant first.
// Only lowercase hex digits are accepted. Padding added by Hex cannot be told
// apart from real bits, so the result length is always 4*len(s).
func ParseHex(s string) (Bits, error) {
	if s == "" {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "hash is empty")
	}
	bits := make(Bits, 0, len(s)*4)
	for i := 0; i < len(s); i++ {
		v := strings.IndexByte(hexChars, s[i])
		if v < 0 {
			return nil, apperrors.Newf(apperrors.CodeInvalidInput, "invalid hash character %q at offset %d", s[i], i)
		}
		for shift := 3; shift >= 0; shift-- {
			bits = append(bits, v>>shift&1 == 1)
		}
	}
	return bits, nil
}

// Equal reports whether both sequences hold the same bits.
func (b Bits) Equal(other Bits) bool {
	if len(b) != len(other) {
		return false
	}
	for i := range b {
		if b[i] != other[i] {
			return false
		}
	}
	return true
}

// Count returns the number of set bits.
func (b Bits) Count() int {
	n := 0
	for _, v := range b {
		if v {
			n++
		}
	}
	return n
}
