// Arithmetic challenges posed to newly-joined chat members.
package challenge

import (
	"fmt"
	"math/rand"
)

const (
	DefaultMin = 1
	DefaultMax = 10
)

// A single question and its expected answer.
type Challenge struct {
	A      int
	B      int
	Answer int
}

// Renders the question part of the challenge, eg "3 + 4 = ?"
func (c Challenge) Question() string {
	return fmt.Sprintf("%d + %d = ?", c.A, c.B)
}

// Produces addition challenges with both operands drawn uniformly from [Min, Max] (inclusive).
//
// The zero value is usable and draws from [DefaultMin, DefaultMax]. A Generator holds no state and is safe for concurrent use.
type Generator struct {
	Min int
	Max int
}

func (g Generator) bounds() (int, int) {
	lo, hi := g.Min, g.Max
	if lo == 0 && hi == 0 {
		return DefaultMin, DefaultMax
	}
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo, hi
}

func (g Generator) New() Challenge {
	lo, hi := g.bounds()
	a := lo + rand.Intn(hi-lo+1)
	b := lo + rand.Intn(hi-lo+1)
	return Challenge{
		A:      a,
		B:      b,
		Answer: a + b,
	}
}
