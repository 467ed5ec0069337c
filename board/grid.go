// Package board maps (row, column) coordinates onto a packed store.
package board

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MiguelVeganzones/NeuralGenE-sub000/packed"
)

// Empty is the value of a cell nobody has played in. Player i (0-based)
// is stored as i+1.
const Empty uint8 = 0

var ErrOutOfBounds = errors.New("position out of bounds")

// symbols used by ToDisplayText; players beyond these print as digits.
const symbols = ".xo+#@%&"

// Grid is a rows x cols board over an alphabet of players+1 symbols.
type Grid[W packed.Word] struct {
	rows    int
	cols    int
	players int
	store   *packed.Store[W]
}

// NewGrid creates an empty grid.
func NewGrid[W packed.Word](rows, cols, players int) (*Grid[W], error) {
	if rows < 1 || cols < 1 || players < 1 {
		return nil, fmt.Errorf("%w: %dx%d grid for %d players", packed.ErrBadShape, rows, cols, players)
	}
	s, err := packed.New[W](rows*cols, players+1)
	if err != nil {
		return nil, err
	}
	return &Grid[W]{rows: rows, cols: cols, players: players, store: s}, nil
}

func (g *Grid[W]) Rows() int    { return g.rows }
func (g *Grid[W]) Cols() int    { return g.cols }
func (g *Grid[W]) Players() int { return g.players }

// InBounds reports whether p lies on the grid.
func (g *Grid[W]) InBounds(p Position) bool {
	return p.Row >= 0 && p.Row < g.rows && p.Col >= 0 && p.Col < g.cols
}

// Index is the row-major slot index of p.
func (g *Grid[W]) Index(p Position) int {
	return p.Row*g.cols + p.Col
}

// At returns the value at p. Callers must make sure p is in bounds.
func (g *Grid[W]) At(p Position) uint8 {
	return g.store.Get(g.Index(p))
}

// IsEmpty reports whether nobody has played at p. Callers must make sure
// p is in bounds.
func (g *Grid[W]) IsEmpty(p Position) bool {
	return g.At(p) == Empty
}

// SetPosition writes v at p.
func (g *Grid[W]) SetPosition(p Position, v uint8) error {
	if !g.InBounds(p) {
		return fmt.Errorf("%w: %v on a %dx%d grid", ErrOutOfBounds, p, g.rows, g.cols)
	}
	return g.store.Set(g.Index(p), v)
}

// Reset writes v into every cell.
func (g *Grid[W]) Reset(v uint8) error {
	return g.store.Fill(v)
}

func (g *Grid[W]) Encode() packed.Key {
	return g.store.Encode()
}

func (g *Grid[W]) Decode(k packed.Key) error {
	return g.store.Decode(k)
}

func (g *Grid[W]) Clone() *Grid[W] {
	c := *g
	c.store = g.store.Clone()
	return &c
}

// CopyFrom overwrites g with o, which must have the same dimensions.
func (g *Grid[W]) CopyFrom(o *Grid[W]) {
	g.store.CopyFrom(o.store)
}

func (g *Grid[W]) Equal(o *Grid[W]) bool {
	return g.rows == o.rows && g.cols == o.cols && g.store.Equal(o.store)
}

// Symbol returns the display character for a cell value.
func Symbol(v uint8) byte {
	if int(v) < len(symbols) {
		return symbols[v]
	}
	return '0' + (v-1)%10
}

// ToDisplayText renders the grid top row first, with column numbers
// underneath.
func (g *Grid[W]) ToDisplayText() string {
	var sb strings.Builder
	for r := 0; r < g.rows; r++ {
		sb.WriteString("|")
		for c := 0; c < g.cols; c++ {
			sb.WriteByte(' ')
			sb.WriteByte(Symbol(g.At(Pos(r, c))))
		}
		sb.WriteString(" |\n")
	}
	sb.WriteString(" ")
	for c := 0; c < g.cols; c++ {
		fmt.Fprintf(&sb, " %d", c%10)
	}
	sb.WriteString("\n")
	return sb.String()
}
