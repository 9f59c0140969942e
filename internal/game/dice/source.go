// Package dice provides the randomness abstraction used by the battle
// engine and room turn selection.
package dice

import (
	"crypto/rand"
	"math/big"
)

// Source is the randomness provider for all game rolls.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// Between returns a random int in [min, max) drawn from src.
//
// Precondition: max > min; src must be non-nil.
// Postcondition: min <= result < max.
func Between(src Source, min, max int) int {
	return min + src.Intn(max-min)
}

// Chance reports whether a uniform draw landed below p, where p is a
// probability in [0, 1]. Draws are made at per-mille resolution.
//
// Precondition: 0 <= p <= 1; src must be non-nil.
func Chance(src Source, p float64) bool {
	return src.Intn(1000) < int(p*1000)
}

// cryptoSource implements Source using crypto/rand.
type cryptoSource struct{}

// NewCryptoSource returns a Source backed by crypto/rand.
//
// Postcondition: Every value returned by Intn is uniform in [0, n).
func NewCryptoSource() Source {
	return &cryptoSource{}
}

// Intn returns a cryptographically secure random int in [0, n).
//
// Precondition: n > 0. Panics with "dice: Intn called with n <= 0" if n <= 0.
// Panics with "dice: crypto/rand failure: <err>" if crypto/rand fails.
func (c *cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	val, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("dice: crypto/rand failure: " + err.Error())
	}
	return int(val.Int64())
}
