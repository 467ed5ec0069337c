package connectn

import (
	"errors"
	"fmt"

	"github.com/MiguelVeganzones/NeuralGenE-sub000/packed"
)

var ErrBadConfig = errors.New("invalid board configuration")

// Config holds the board dimensions and rules of a game.
type Config struct {
	Rows      int `yaml:"rows"`
	Cols      int `yaml:"cols"`
	WinLength int `yaml:"win_length"`
	Players   int `yaml:"players"`
}

// ClassicConfig is Connect Four: six rows, seven columns, four in a row,
// two players.
func ClassicConfig() Config {
	return Config{Rows: 6, Cols: 7, WinLength: 4, Players: 2}
}

func (c Config) Validate() error {
	switch {
	case c.WinLength < 2:
		return fmt.Errorf("%w: win length %d must be at least 2", ErrBadConfig, c.WinLength)
	case c.Rows < c.WinLength || c.Cols < c.WinLength:
		return fmt.Errorf("%w: a %dx%d board cannot hold a run of %d",
			ErrBadConfig, c.Rows, c.Cols, c.WinLength)
	case c.Players < 2:
		return fmt.Errorf("%w: need at least 2 players, got %d", ErrBadConfig, c.Players)
	case c.Players+1 > packed.MaxStates:
		return fmt.Errorf("%w: at most %d players", ErrBadConfig, packed.MaxStates-1)
	}
	return nil
}

func (c Config) String() string {
	return fmt.Sprintf("%dx%d connect-%d, %d players", c.Rows, c.Cols, c.WinLength, c.Players)
}
