package party

import (
	"io"

	"github.com/taurusgroup/cmp-keygen/pkg/math/sample"
)

// NewRandomID returns a fresh identifier.
//
// With a seed, the identifier is seed followed by a dash and 8 random alphanumeric characters,
// otherwise it is made of 16 random alphanumeric characters.
func NewRandomID(rand io.Reader, seed string) ID {
	if seed != "" {
		return ID(seed + "-" + sample.Alphanumeric(rand, 8))
	}
	return ID(sample.Alphanumeric(rand, 16))
}
