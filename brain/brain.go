// Package brain provides position evaluators for the search. A brain scores
// a non-terminal board from the point of view of one player.
package brain

import (
	"errors"
	"fmt"

	"lukechampine.com/frand"

	"github.com/MiguelVeganzones/NeuralGenE-sub000/cache"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/connectn"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/score"
)

var (
	ErrUnknownBrain = errors.New("unknown brain")
	ErrMissingPath  = errors.New("brain needs a file path")
)

// Brain evaluates positions that are neither won nor full. The returned
// value must lie strictly between Lost and Won for perspective, higher being
// better for perspective. Implementations must be safe for concurrent use.
type Brain[S score.Score[S]] interface {
	Evaluate(b *connectn.Board, perspective int) S
}

// Func adapts an ordinary function to a Brain.
type Func[S score.Score[S]] func(b *connectn.Board, perspective int) S

func (f Func[S]) Evaluate(b *connectn.Board, perspective int) S {
	return f(b, perspective)
}

// Constant scores every position with v.
func Constant[S score.Score[S]](v S) Brain[S] {
	v = score.Clamp(v)
	return Func[S](func(*connectn.Board, int) S { return v })
}

// Random scores positions uniformly at random.
type Random[S score.Score[S]] struct{}

func (Random[S]) Evaluate(*connectn.Board, int) S {
	var z S
	return z.Scaled(frand.Float64()*2 - 1)
}

const (
	NameConstant  = "constant"
	NameRandom    = "random"
	NameHeuristic = "heuristic"
	NameONNX      = "onnx"
)

// Names lists the brains ByName understands.
var Names = []string{NameConstant, NameRandom, NameHeuristic, NameONNX}

// ByName builds a brain from its name. path is the weights file for the
// heuristic brain (optional) or the model file for the onnx brain.
func ByName[S score.Score[S]](name, path string) (Brain[S], error) {
	var z S
	switch name {
	case NameConstant:
		return Constant(z.Tied()), nil
	case NameRandom:
		return Random[S]{}, nil
	case NameHeuristic:
		if path == "" {
			return NewHeuristic[S](DefaultWeights()), nil
		}
		w, err := LoadWeights(path)
		if err != nil {
			return nil, err
		}
		return NewHeuristic[S](w), nil
	case NameONNX:
		if path == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingPath, name)
		}
		return LoadONNX[S](path)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBrain, name)
}

// Forget drops the file behind a brain from the object cache, so that the
// next ByName reads it from disk again.
func Forget(name, path string) {
	switch name {
	case NameHeuristic:
		cache.Forget("weights:" + path)
	case NameONNX:
		cache.Forget("onnx:" + path)
	}
}
