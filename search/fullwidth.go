package search

import (
	"github.com/MiguelVeganzones/NeuralGenE-sub000/board"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/connectn"
)

// fullWidth is plain minimax over every move. Only exact values of interior
// nodes are cached; depth-limit evaluations are not.
func (w *worker[S]) fullWidth(b *connectn.Board, last board.Position, depth int) (S, error) {
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
	if e, ok := tt.Lookup(key); ok && e.Flag == TTExact {
		return e.Score, nil
	}

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
		v, err := w.fullWidth(child, m, depth+1)
		if err != nil {
			return v, err
		}
		best = aggregate(r, best, v)
	}
	tt.Insert(key, TableEntry[S]{Score: best, Flag: TTExact})
	return best, nil
}
