// Package connectn implements a gravity board game where players take
// turns dropping pieces into columns, and the first to line up WinLength
// pieces horizontally, vertically or diagonally wins.
package connectn

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/MiguelVeganzones/NeuralGenE-sub000/board"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/packed"
)

var (
	ErrOutOfBounds   = board.ErrOutOfBounds
	ErrOccupied      = errors.New("cell is already occupied")
	ErrFloating      = errors.New("cell is not supported by the cell below")
	ErrColumnFull    = errors.New("column is full")
	ErrInvalidPlayer = errors.New("no such player")
	ErrEmptyCell     = errors.New("cell is empty")
	ErrNotTopPiece   = errors.New("only the top piece of a column can be undone")
)

// Board is a connect-N position: the grid, the next playable row of every
// column (the frontier), and the player to move.
type Board struct {
	cfg      Config
	grid     *board.Grid[uint64]
	frontier []board.Position
	player   int
	moves    int

	observer WinObserver
}

// NewBoard creates an empty board.
func NewBoard(cfg Config) (*Board, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g, err := board.NewGrid[uint64](cfg.Rows, cfg.Cols, cfg.Players)
	if err != nil {
		return nil, err
	}
	b := &Board{
		cfg:      cfg,
		grid:     g,
		frontier: make([]board.Position, cfg.Cols),
	}
	b.rebuildFrontier()
	return b, nil
}

// FromColumns creates a board and drops pieces into the given columns in
// order, alternating players.
func FromColumns(cfg Config, cols ...int) (*Board, error) {
	b, err := NewBoard(cfg)
	if err != nil {
		return nil, err
	}
	for i, c := range cols {
		if _, err := b.Drop(c); err != nil {
			return nil, fmt.Errorf("move %d (column %d): %w", i+1, c, err)
		}
	}
	return b, nil
}

// Decode rebuilds a board from its encoded form. The frontier is rescanned
// from the grid, and the player to move is derived from the number of
// pieces, assuming strict round-robin play from an empty board.
func Decode(cfg Config, k packed.Key) (*Board, error) {
	b, err := NewBoard(cfg)
	if err != nil {
		return nil, err
	}
	if err := b.grid.Decode(k); err != nil {
		return nil, err
	}
	if err := b.rebuildFrontier(); err != nil {
		return nil, err
	}
	return b, nil
}

// rebuildFrontier scans every column upward from the bottom and recounts
// pieces. It fails if a piece sits above an empty cell.
func (b *Board) rebuildFrontier() error {
	b.moves = 0
	for c := 0; c < b.cfg.Cols; c++ {
		b.frontier[c] = board.Invalid
		for r := b.cfg.Rows - 1; r >= 0; r-- {
			p := board.Pos(r, c)
			if b.grid.IsEmpty(p) {
				if !b.frontier[c].Valid() {
					b.frontier[c] = p
				}
				continue
			}
			if b.frontier[c].Valid() {
				return fmt.Errorf("%w: %v", ErrFloating, p)
			}
			b.moves++
		}
	}
	b.player = b.moves % b.cfg.Players
	return nil
}

func (b *Board) Config() Config { return b.cfg }

// SetWinObserver installs an observer told about every win detected by
// IsWinningMove. Copies of the board share it.
func (b *Board) SetWinObserver(o WinObserver) {
	b.observer = o
}

// At returns the cell value at p: board.Empty or player+1.
func (b *Board) At(p board.Position) uint8 {
	return b.grid.At(p)
}

func (b *Board) InBounds(p board.Position) bool {
	return b.grid.InBounds(p)
}

// IsValidMove reports whether a piece may be dropped at p: the cell is
// empty and is either on the bottom row or sits on an occupied cell.
func (b *Board) IsValidMove(p board.Position) bool {
	if !b.grid.InBounds(p) || !b.grid.IsEmpty(p) {
		return false
	}
	return p.Row == b.cfg.Rows-1 || !b.grid.IsEmpty(p.Down())
}

// ValidMoves returns one position per column: the lowest empty cell, or
// board.Invalid if the column is full. The slice is owned by the board and
// must not be modified; it changes as moves are made.
func (b *Board) ValidMoves() []board.Position {
	return b.frontier
}

// Frontier returns the playable position of column col.
func (b *Board) Frontier(col int) board.Position {
	if col < 0 || col >= b.cfg.Cols {
		return board.Invalid
	}
	return b.frontier[col]
}

// AnyMovesLeft reports whether any column still has room.
func (b *Board) AnyMovesLeft() bool {
	return lo.SomeBy(b.frontier, board.Position.Valid)
}

func (b *Board) CurrentPlayer() int { return b.player }

func (b *Board) PreviousPlayer() int {
	return (b.player + b.cfg.Players - 1) % b.cfg.Players
}

// MoveCount is the number of pieces on the board.
func (b *Board) MoveCount() int { return b.moves }

func (b *Board) checkPlayable(p board.Position) error {
	switch {
	case !b.grid.InBounds(p):
		return fmt.Errorf("%w: %v", ErrOutOfBounds, p)
	case !b.grid.IsEmpty(p):
		return fmt.Errorf("%w: %v", ErrOccupied, p)
	case !b.IsValidMove(p):
		return fmt.Errorf("%w: %v", ErrFloating, p)
	}
	return nil
}

func (b *Board) place(p board.Position, player int) error {
	if err := b.grid.SetPosition(p, uint8(player+1)); err != nil {
		return err
	}
	if p.Row == 0 {
		b.frontier[p.Col] = board.Invalid
	} else {
		b.frontier[p.Col] = p.Up()
	}
	b.moves++
	return nil
}

// MakeMove drops the current player's piece at p and passes the turn.
func (b *Board) MakeMove(p board.Position) error {
	if err := b.checkPlayable(p); err != nil {
		return err
	}
	if err := b.place(p, b.player); err != nil {
		return err
	}
	b.player = (b.player + 1) % b.cfg.Players
	return nil
}

// MakeMoveAs drops player's piece at p without touching the turn.
func (b *Board) MakeMoveAs(p board.Position, player int) error {
	if player < 0 || player >= b.cfg.Players {
		return fmt.Errorf("%w: %d", ErrInvalidPlayer, player)
	}
	if err := b.checkPlayable(p); err != nil {
		return err
	}
	return b.place(p, player)
}

// Drop plays the current player into column col and returns the cell the
// piece landed on.
func (b *Board) Drop(col int) (board.Position, error) {
	if col < 0 || col >= b.cfg.Cols {
		return board.Invalid, fmt.Errorf("%w: column %d", ErrOutOfBounds, col)
	}
	p := b.frontier[col]
	if !p.Valid() {
		return board.Invalid, fmt.Errorf("%w: column %d", ErrColumnFull, col)
	}
	return p, b.MakeMove(p)
}

func (b *Board) remove(p board.Position) error {
	switch {
	case !b.grid.InBounds(p):
		return fmt.Errorf("%w: %v", ErrOutOfBounds, p)
	case b.grid.IsEmpty(p):
		return fmt.Errorf("%w: %v", ErrEmptyCell, p)
	case p.Row > 0 && !b.grid.IsEmpty(p.Up()):
		return fmt.Errorf("%w: %v", ErrNotTopPiece, p)
	}
	if err := b.grid.SetPosition(p, board.Empty); err != nil {
		return err
	}
	b.frontier[p.Col] = p
	b.moves--
	return nil
}

// UndoMove takes back the piece at p, which must be the top piece of its
// column, and gives the turn back. It is the inverse of MakeMove.
func (b *Board) UndoMove(p board.Position) error {
	if err := b.remove(p); err != nil {
		return err
	}
	b.player = b.PreviousPlayer()
	return nil
}

// UndoMoveAs takes back the piece at p without touching the turn. It is
// the inverse of MakeMoveAs.
func (b *Board) UndoMoveAs(p board.Position) error {
	return b.remove(p)
}

// Encode returns the packed grid. The frontier and player to move are
// derivable from it.
func (b *Board) Encode() packed.Key {
	return b.grid.Encode()
}

// Copy returns an independent board in the same state.
func (b *Board) Copy() *Board {
	c := *b
	c.grid = b.grid.Clone()
	c.frontier = make([]board.Position, len(b.frontier))
	copy(c.frontier, b.frontier)
	return &c
}

// CopyFrom overwrites b with o without allocating. Both boards must share
// the same configuration.
func (b *Board) CopyFrom(o *Board) {
	b.grid.CopyFrom(o.grid)
	copy(b.frontier, o.frontier)
	b.player = o.player
	b.moves = o.moves
	b.observer = o.observer
}

// Equal compares grid, frontier and player to move.
func (b *Board) Equal(o *Board) bool {
	if b.cfg != o.cfg || b.player != o.player || b.moves != o.moves {
		return false
	}
	for i := range b.frontier {
		if b.frontier[i] != o.frontier[i] {
			return false
		}
	}
	return b.grid.Equal(o.grid)
}

func (b *Board) ToDisplayText() string {
	var sb strings.Builder
	sb.WriteString(b.grid.ToDisplayText())
	fmt.Fprintf(&sb, "to move: %c (player %d)\n", board.Symbol(uint8(b.player+1)), b.player)
	return sb.String()
}

func (b *Board) String() string {
	return b.ToDisplayText()
}
