package search

import (
	"github.com/MiguelVeganzones/NeuralGenE-sub000/board"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/connectn"
)

// alphaBeta scores b, where last has just been played, at the given depth
// from the root. It fails soft: a result <= α is an upper bound of the true
// value and a result >= β a lower bound.
func (w *worker[S]) alphaBeta(b *connectn.Board, last board.Position, depth int, α, β S) (S, error) {
	var z S
	if err := w.cancelled(); err != nil {
		return z.None(), err
	}
	w.nodes++
	if v, ok := w.terminal(b, last, depth); ok {
		return v, nil
	}

	tt := w.s.ttable
	key := b.Encode()
	if e, ok := tt.Lookup(key); ok {
		switch e.Flag {
		case TTExact:
			return e.Score, nil
		case TTLower:
			α = max(α, e.Score)
		case TTUpper:
			β = min(β, e.Score)
		}
		if α >= β {
			return e.Score, nil
		}
	}
	// Flags are decided against the window actually searched.
	α0, β0 := α, β

	r := w.roleFor(b)
	best := initialScore[S](r)
	child := w.scratch[depth]
	for _, m := range b.ValidMoves() {
		if !m.Valid() {
			continue
		}
		child.CopyFrom(b)
		if err := child.MakeMove(m); err != nil {
			return z.None(), err
		}
		v, err := w.alphaBeta(child, m, depth+1, α, β)
		if err != nil {
			return v, err
		}
		best = aggregate(r, best, v)
		if r == maximizing {
			α = max(α, best)
		} else {
			β = min(β, best)
		}
		if β <= α {
			break
		}
	}

	flag := TTExact
	if best <= α0 {
		flag = TTUpper
	} else if best >= β0 {
		flag = TTLower
	}
	tt.Insert(key, TableEntry[S]{Score: best, Flag: flag})
	return best, nil
}
