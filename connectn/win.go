package connectn

import (
	"sync/atomic"

	"github.com/MiguelVeganzones/NeuralGenE-sub000/board"
)

// Direction is a line through a cell that can hold a winning run.
type Direction uint8

const (
	Horizontal Direction = iota
	Vertical
	Diagonal     // down and to the right
	AntiDiagonal // down and to the left
	numDirections
)

func (d Direction) String() string {
	switch d {
	case Horizontal:
		return "horizontal"
	case Vertical:
		return "vertical"
	case Diagonal:
		return "diagonal"
	case AntiDiagonal:
		return "anti-diagonal"
	}
	return "none"
}

type line struct {
	dir    Direction
	dr, dc int
	// A piece has just been dropped, so nothing above it can belong to
	// the run yet. Vertical lines only walk downward.
	bothWays bool
}

var lines = [numDirections]line{
	{Horizontal, 0, 1, true},
	{Vertical, 1, 0, false},
	{Diagonal, 1, 1, true},
	{AntiDiagonal, 1, -1, true},
}

// WinObserver is told which direction completed a run.
// Implementations must be safe for concurrent use.
type WinObserver interface {
	ObserveWin(d Direction)
}

// WinCounter counts detected wins per direction.
type WinCounter struct {
	counts [numDirections]atomic.Uint64
}

func (w *WinCounter) ObserveWin(d Direction) {
	w.counts[d].Add(1)
}

func (w *WinCounter) Count(d Direction) uint64 {
	return w.counts[d].Load()
}

// IsWinningMove reports whether the piece at p completes a run of at least
// WinLength. It must be called right after a piece is placed at p.
func (b *Board) IsWinningMove(p board.Position) bool {
	if !b.grid.InBounds(p) {
		return false
	}
	sym := b.grid.At(p)
	if sym == board.Empty {
		return false
	}
	for _, l := range lines {
		if b.runLength(p, sym, l) >= b.cfg.WinLength {
			if b.observer != nil {
				b.observer.ObserveWin(l.dir)
			}
			return true
		}
	}
	return false
}

// runLength counts the cells holding sym on the line through p, stopping
// at the first mismatch or board edge, and as soon as a win is certain.
func (b *Board) runLength(p board.Position, sym uint8, l line) int {
	n := 1
	for r, c := p.Row+l.dr, p.Col+l.dc; n < b.cfg.WinLength; r, c = r+l.dr, c+l.dc {
		q := board.Pos(r, c)
		if !b.grid.InBounds(q) || b.grid.At(q) != sym {
			break
		}
		n++
	}
	if !l.bothWays {
		return n
	}
	for r, c := p.Row-l.dr, p.Col-l.dc; n < b.cfg.WinLength; r, c = r-l.dr, c-l.dc {
		q := board.Pos(r, c)
		if !b.grid.InBounds(q) || b.grid.At(q) != sym {
			break
		}
		n++
	}
	return n
}
