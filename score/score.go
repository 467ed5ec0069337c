// Package score defines the value types a search can be run with. Every
// score type knows its own extremes, its terminal values and a sentinel for
// "not evaluated".
package score

import (
	"cmp"
	"math"
)

// Score is implemented by value types usable in a search. The methods are
// called on the zero value and must not depend on the receiver.
//
// The following ordering must hold:
//
//	Min <= Lost < any brain value < Won <= Max
//
// None is a sentinel that is never produced by a search node.
type Score[S any] interface {
	cmp.Ordered
	Min() S
	Max() S
	Tied() S
	Won() S
	Lost() S
	None() S
	// Scaled maps x in [-1, 1] strictly inside (Lost, Won).
	Scaled(x float64) S
}

// Points is a floating point score with wins at +1 and losses at -1.
type Points float32

func (Points) Min() Points  { return Points(math.Inf(-1)) }
func (Points) Max() Points  { return Points(math.Inf(1)) }
func (Points) Tied() Points { return 0 }
func (Points) Won() Points  { return 1 }
func (Points) Lost() Points { return -1 }
func (Points) None() Points { return -2 }

func (Points) Scaled(x float64) Points {
	return Points(clampUnit(x) * 0.999)
}

// Centi is a fixed point score in hundredths of a percent.
type Centi int16

const (
	centiWon  = 10000
	centiSpan = centiWon - 1
)

func (Centi) Min() Centi  { return -math.MaxInt16 }
func (Centi) Max() Centi  { return math.MaxInt16 }
func (Centi) Tied() Centi { return 0 }
func (Centi) Won() Centi  { return centiWon }
func (Centi) Lost() Centi { return -centiWon }
func (Centi) None() Centi { return math.MinInt16 }

func (Centi) Scaled(x float64) Centi {
	return Centi(math.Round(clampUnit(x) * centiSpan))
}

func clampUnit(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return math.Max(-1, math.Min(1, x))
}

// Clamp pulls v strictly inside (Lost, Won) so that a brain value can never
// be mistaken for a decided game.
func Clamp[S Score[S]](v S) S {
	var z S
	lo, hi := z.Lost(), z.Won()
	if v <= lo {
		return z.Scaled(-1)
	}
	if v >= hi {
		return z.Scaled(1)
	}
	return v
}
