// Package scale maps an input numeric domain onto an integer output range.
package scale

import (
	"errors"
	"fmt"
)

// ErrInvalidDomain is returned when a domain or range has zero span.
var ErrInvalidDomain = errors.New("invalid scale domain")

// Linear is a precomputed linear transform from [d0, d1] to [r0, r1].
// The zero value is not usable; build one with New.
type Linear struct {
	domain   [2]float64
	rng      [2]int
	width    float64 // d1 - d0
	span     float64 // r1 - r0
	rangeOff float64 // r0
}

// New precomputes the transform. d1 == d0 or r1 == r0 fails with
// ErrInvalidDomain.
func New(domain [2]float64, rng [2]int) (Linear, error) {
	if domain[1] == domain[0] {
		return Linear{}, fmt.Errorf("%w: domain (%g, %g) has zero span", ErrInvalidDomain, domain[0], domain[1])
	}
	if rng[1] == rng[0] {
		return Linear{}, fmt.Errorf("%w: range (%d, %d) has zero span", ErrInvalidDomain, rng[0], rng[1])
	}
	return Linear{
		domain:   domain,
		rng:      rng,
		width:    domain[1] - domain[0],
		span:     float64(rng[1] - rng[0]),
		rangeOff: float64(rng[0]),
	}, nil
}

// Apply maps x into the range. The result is truncated toward zero, not
// rounded, and is not clamped: inputs outside the domain extrapolate.
//
// The product is taken before the division so integral inputs on an
// identity scale come back exactly.
func (l Linear) Apply(x float64) int {
	return int(l.rangeOff + (x-l.domain[0])*l.span/l.width)
}

// Domain returns the input domain the transform was built for.
func (l Linear) Domain() [2]float64 { return l.domain }

// Range returns the output range the transform was built for.
func (l Linear) Range() [2]int { return l.rng }

// Matches reports whether l was built for exactly this domain and range.
func (l Linear) Matches(domain [2]float64, rng [2]int) bool {
	return l.domain == domain && l.rng == rng
}
