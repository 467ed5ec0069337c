package automatic

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/MiguelVeganzones/NeuralGenE-sub000/brain"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/connectn"
)

// TrainingVectors replays a finished game. Every position before a move
// gives one vector: the brain.Planes input as seen by the player to move,
// followed by the game's outcome for that player (1 win, -1 loss, 0 draw).
func TrainingVectors(cfg connectn.Config, rec GameRecord) ([][]float32, error) {
	b, err := connectn.NewBoard(cfg)
	if err != nil {
		return nil, err
	}
	vecs := make([][]float32, 0, len(rec.Moves))
	for i, col := range rec.Moves {
		mover := b.CurrentPlayer()
		vec := brain.Planes(b, mover, nil)
		target := float32(0)
		if rec.Winner != -1 {
			target = -1
			if rec.Winner == mover {
				target = 1
			}
		}
		vecs = append(vecs, append(vec, target))
		if _, err := b.Drop(col); err != nil {
			return nil, fmt.Errorf("game %d, move %d: %w", rec.Game, i+1, err)
		}
	}
	return vecs, nil
}

// VectorLen is the length of a training vector for cfg: the input planes
// plus one target value.
func VectorLen(cfg connectn.Config) int {
	return (cfg.Players+1)*cfg.Rows*cfg.Cols + 1
}

// WriteMLVector writes vec as little-endian float32s.
func WriteMLVector(w io.Writer, vec []float32) error {
	return binary.Write(w, binary.LittleEndian, vec)
}

// ReadMLVector reads one vector of n values written by WriteMLVector. It
// returns io.EOF once the stream is exhausted.
func ReadMLVector(r io.Reader, n int) ([]float32, error) {
	vec := make([]float32, n)
	err := binary.Read(r, binary.LittleEndian, vec)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("truncated vector: %w", err)
	}
	if err != nil {
		return nil, err
	}
	return vec, nil
}
