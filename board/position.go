package board

import "fmt"

// Position is a (row, column) coordinate. Row 0 is the top of the board.
type Position struct {
	Row int
	Col int
}

// Invalid is the sentinel for "no position". Any position with a negative
// coordinate is invalid.
var Invalid = Position{Row: -1, Col: -1}

func Pos(row, col int) Position {
	return Position{Row: row, Col: col}
}

// Valid reports whether p is a real coordinate rather than the sentinel.
// It does not check board bounds.
func (p Position) Valid() bool {
	return p.Row >= 0 && p.Col >= 0
}

// Up returns the position one row above p. It is not bounds-checked.
func (p Position) Up() Position {
	return Position{Row: p.Row - 1, Col: p.Col}
}

// Down returns the position one row below p. It is not bounds-checked.
func (p Position) Down() Position {
	return Position{Row: p.Row + 1, Col: p.Col}
}

func (p Position) String() string {
	if !p.Valid() {
		return "-"
	}
	return fmt.Sprintf("%d,%d", p.Row, p.Col)
}
