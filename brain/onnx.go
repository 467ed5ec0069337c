package brain

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/owulveryck/onnx-go"
	"github.com/owulveryck/onnx-go/backend/x/gorgonnx"
	"github.com/rs/zerolog/log"
	"gorgonia.org/tensor"

	"github.com/MiguelVeganzones/NeuralGenE-sub000/board"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/cache"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/connectn"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/score"
)

var ErrBadModel = errors.New("bad onnx model")

type mlModel struct {
	backend *gorgonnx.Graph
	model   *onnx.Model
}

// modelTemplate holds the raw ONNX model data. Graphs are not safe for
// concurrent use, so every evaluating goroutine gets its own instance.
type modelTemplate struct {
	data []byte
}

func (t *modelTemplate) newInstance() (*mlModel, error) {
	start := time.Now()
	defer func() {
		log.Debug().Int64("onnx_model_init_ms", time.Since(start).Milliseconds()).
			Msg("onnx-model-instance-created")
	}()
	backend := gorgonnx.NewGraph()
	model := onnx.NewModel(backend)
	if err := model.UnmarshalBinary(t.data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadModel, err)
	}
	return &mlModel{backend: backend, model: model}, nil
}

func onnxLoadFunc(key string) (any, error) {
	path := key[len("onnx:"):]
	bts, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t := &modelTemplate{data: bts}
	// Fail at load time rather than on the first evaluation.
	if _, err := t.newInstance(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Debug().Str("path", path).Int("model-size", len(bts)).Msg("loaded-onnx-model")
	return t, nil
}

// ONNX evaluates positions with a neural network. The network takes one
// (1, players+1, rows, cols) float32 tensor: plane 0 marks empty cells and
// plane 1+i marks the pieces of the player i seats after perspective. Its
// first output is read as a value in [-1, 1].
type ONNX[S score.Score[S]] struct {
	path      string
	instances sync.Pool
	planes    sync.Pool
}

// LoadONNX reads a model file. Files are read once and shared.
func LoadONNX[S score.Score[S]](path string) (*ONNX[S], error) {
	obj, err := cache.Load("onnx:"+path, onnxLoadFunc)
	if err != nil {
		return nil, err
	}
	t := obj.(*modelTemplate)
	o := &ONNX[S]{path: path}
	o.instances.New = func() any {
		m, err := t.newInstance()
		if err != nil {
			log.Err(err).Str("path", path).Msg("onnx-instance")
			return nil
		}
		return m
	}
	return o, nil
}

// Planes fills the input vector for b as seen by perspective.
func Planes(b *connectn.Board, perspective int, vec []float32) []float32 {
	cfg := b.Config()
	n := (cfg.Players + 1) * cfg.Rows * cfg.Cols
	if cap(vec) < n {
		vec = make([]float32, n)
	}
	vec = vec[:n]
	clear(vec)
	area := cfg.Rows * cfg.Cols
	for r := 0; r < cfg.Rows; r++ {
		for c := 0; c < cfg.Cols; c++ {
			cell := r*cfg.Cols + c
			v := b.At(board.Pos(r, c))
			plane := 0
			if v != board.Empty {
				plane = 1 + (int(v)-1-perspective+cfg.Players)%cfg.Players
			}
			vec[plane*area+cell] = 1
		}
	}
	return vec
}

// Infer runs the network on b as seen by perspective and returns its raw
// output.
func (o *ONNX[S]) Infer(b *connectn.Board, perspective int) (float32, error) {
	m, _ := o.instances.Get().(*mlModel)
	if m == nil {
		return 0, fmt.Errorf("%w: no instance for %s", ErrBadModel, o.path)
	}
	defer o.instances.Put(m)

	vp, _ := o.planes.Get().(*[]float32)
	if vp == nil {
		vp = new([]float32)
	}
	defer o.planes.Put(vp)
	*vp = Planes(b, perspective, *vp)

	cfg := b.Config()
	in := tensor.New(tensor.WithShape(1, cfg.Players+1, cfg.Rows, cfg.Cols),
		tensor.WithBacking(*vp))
	if err := m.model.SetInput(0, in); err != nil {
		return 0, err
	}
	if err := m.backend.Run(); err != nil {
		return 0, fmt.Errorf("failed to run onnx model: %w", err)
	}
	out, err := m.model.GetOutputTensors()
	if err != nil {
		return 0, fmt.Errorf("failed to get output tensors: %w", err)
	}
	switch v := out[0].Data().(type) {
	case []float32:
		if len(v) == 0 {
			return 0, fmt.Errorf("%w: empty output", ErrBadModel)
		}
		return v[0], nil
	case float32:
		return v, nil
	default:
		return 0, fmt.Errorf("%w: unexpected output type %T", ErrBadModel, v)
	}
}

// Evaluate scores b with the network. A failed inference is logged and
// scored as a tie.
func (o *ONNX[S]) Evaluate(b *connectn.Board, perspective int) S {
	var z S
	v, err := o.Infer(b, perspective)
	if err != nil {
		log.Err(err).Str("path", o.path).Msg("onnx-evaluate")
		return z.Tied()
	}
	return z.Scaled(float64(v))
}
