package automatic

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MiguelVeganzones/NeuralGenE-sub000/connectn"
)

func TestTrainingVectors(t *testing.T) {
	cfg := connectn.Config{Rows: 4, Cols: 4, WinLength: 3, Players: 2}
	// x takes the bottom row: 0, 1, 2 with o stacking on 0 and 1.
	rec := GameRecord{Game: 3, Moves: []int{0, 0, 1, 1, 2}, Winner: 0}
	vecs, err := TrainingVectors(cfg, rec)
	require.NoError(t, err)
	require.Len(t, vecs, 5)

	n := VectorLen(cfg)
	area := cfg.Rows * cfg.Cols
	for i, vec := range vecs {
		require.Len(t, vec, n)
		want := float32(-1)
		if i%2 == 0 {
			want = 1
		}
		assert.Equal(t, want, vec[n-1], "position %d", i)
	}
	// The first position is empty: every cell is on the empty plane.
	for c := 0; c < area; c++ {
		assert.Equal(t, float32(1), vecs[0][c])
	}
	// Before o's first move, x's piece at the bottom left is on the
	// opponent plane for o.
	bottomLeft := (cfg.Rows - 1) * cfg.Cols
	assert.Equal(t, float32(0), vecs[1][bottomLeft])
	assert.Equal(t, float32(0), vecs[1][area+bottomLeft])
	assert.Equal(t, float32(1), vecs[1][2*area+bottomLeft])
}

func TestTrainingVectorsDrawAndBadMoves(t *testing.T) {
	cfg := connectn.Config{Rows: 3, Cols: 3, WinLength: 3, Players: 2}
	vecs, err := TrainingVectors(cfg, GameRecord{Moves: []int{1}, Winner: -1})
	require.NoError(t, err)
	assert.Equal(t, float32(0), vecs[0][VectorLen(cfg)-1])

	_, err = TrainingVectors(cfg, GameRecord{Moves: []int{0, 0, 0, 0}, Winner: -1})
	assert.ErrorIs(t, err, connectn.ErrColumnFull)
}

func TestMLVectorStream(t *testing.T) {
	var buf bytes.Buffer
	a := []float32{0, 1, -1, 0.5}
	b := []float32{1, 1, 0, -0.25}
	require.NoError(t, WriteMLVector(&buf, a))
	require.NoError(t, WriteMLVector(&buf, b))
	assert.Equal(t, 32, buf.Len())

	got, err := ReadMLVector(&buf, 4)
	require.NoError(t, err)
	assert.Equal(t, a, got)
	got, err = ReadMLVector(&buf, 4)
	require.NoError(t, err)
	assert.Equal(t, b, got)
	_, err = ReadMLVector(&buf, 4)
	assert.ErrorIs(t, err, io.EOF)

	buf.Write([]byte{1, 2, 3})
	_, err = ReadMLVector(&buf, 4)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
