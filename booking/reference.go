package booking

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// newReference generates a human-facing booking reference: "BK" followed by
// width decimal digits, zero-padded. Uniqueness is enforced by the caller
// against the sale store.
func newReference(width int) string {
	max := big.NewInt(1)
	for i := 0; i < width; i++ {
		max.Mul(max, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		// crypto/rand only fails when the platform's entropy source is
		// broken; nothing sensible to do but give up.
		panic(fmt.Sprintf("reading random bytes: %s", err))
	}

	return fmt.Sprintf("BK%0*d", width, n)
}
