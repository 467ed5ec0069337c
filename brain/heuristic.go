package brain

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/MiguelVeganzones/NeuralGenE-sub000/board"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/cache"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/connectn"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/score"
)

var ErrBadWeights = errors.New("invalid heuristic weights")

// Weights tune the heuristic brain. A window is any WinLength run of cells.
// A window holding k pieces of a single player and nothing else is worth
// Own[k] when that player is the perspective and Opp[k] otherwise; indexes
// past the end of a table use its last entry.
type Weights struct {
	Own []float64 `yaml:"own"`
	Opp []float64 `yaml:"opp"`
	// Center rewards pieces near the middle column.
	Center float64 `yaml:"center"`
	// Scale divides the raw sum before it is squashed with tanh.
	Scale float64 `yaml:"scale"`
}

func DefaultWeights() *Weights {
	return &Weights{
		Own:    []float64{0, 1, 4, 16},
		Opp:    []float64{0, -1, -5, -20},
		Center: 0.5,
		Scale:  24,
	}
}

func (w *Weights) Validate() error {
	switch {
	case len(w.Own) == 0 || len(w.Opp) == 0:
		return fmt.Errorf("%w: own and opp tables must not be empty", ErrBadWeights)
	case !(w.Scale > 0):
		return fmt.Errorf("%w: scale %v must be positive", ErrBadWeights, w.Scale)
	}
	return nil
}

func lookup(table []float64, k int) float64 {
	if k >= len(table) {
		return table[len(table)-1]
	}
	return table[k]
}

func weightsLoadFunc(key string) (any, error) {
	path := key[len("weights:"):]
	bts, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	w := &Weights{}
	if err := yaml.Unmarshal(bts, w); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadWeights, path, err)
	}
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Debug().Str("path", path).Int("own", len(w.Own)).Int("opp", len(w.Opp)).
		Msg("loaded-heuristic-weights")
	return w, nil
}

// LoadWeights reads a YAML weights file. Files are read once and shared.
func LoadWeights(path string) (*Weights, error) {
	obj, err := cache.Load("weights:"+path, weightsLoadFunc)
	if err != nil {
		return nil, err
	}
	return obj.(*Weights), nil
}

// windows caches the list of runs for each board shape.
var windows sync.Map // connectn.Config -> [][]board.Position

func windowsFor(cfg connectn.Config) [][]board.Position {
	if ws, ok := windows.Load(cfg); ok {
		return ws.([][]board.Position)
	}
	var ws [][]board.Position
	for _, d := range [][2]int{{0, 1}, {1, 0}, {1, 1}, {1, -1}} {
		for r := 0; r < cfg.Rows; r++ {
			for c := 0; c < cfg.Cols; c++ {
				endR, endC := r+d[0]*(cfg.WinLength-1), c+d[1]*(cfg.WinLength-1)
				if endR < 0 || endR >= cfg.Rows || endC < 0 || endC >= cfg.Cols {
					continue
				}
				w := make([]board.Position, cfg.WinLength)
				for i := range w {
					w[i] = board.Pos(r+d[0]*i, c+d[1]*i)
				}
				ws = append(ws, w)
			}
		}
	}
	actual, _ := windows.LoadOrStore(cfg, ws)
	return actual.([][]board.Position)
}

// Heuristic counts open windows and central pieces.
type Heuristic[S score.Score[S]] struct {
	w *Weights
}

func NewHeuristic[S score.Score[S]](w *Weights) *Heuristic[S] {
	return &Heuristic[S]{w: w}
}

func (h *Heuristic[S]) Weights() *Weights { return h.w }

// Raw returns the unsquashed evaluation.
func (h *Heuristic[S]) Raw(b *connectn.Board, perspective int) float64 {
	cfg := b.Config()
	own := uint8(perspective + 1)
	sum := 0.0
	for _, win := range windowsFor(cfg) {
		var holder uint8
		k := 0
		mixed := false
		for _, p := range win {
			v := b.At(p)
			if v == board.Empty {
				continue
			}
			if holder != board.Empty && v != holder {
				mixed = true
				break
			}
			holder = v
			k++
		}
		if mixed || k == 0 {
			continue
		}
		if holder == own {
			sum += lookup(h.w.Own, k)
		} else {
			sum += lookup(h.w.Opp, k)
		}
	}
	if h.w.Center != 0 {
		mid := float64(cfg.Cols-1) / 2
		for r := 0; r < cfg.Rows; r++ {
			for c := 0; c < cfg.Cols; c++ {
				v := b.At(board.Pos(r, c))
				if v == board.Empty {
					continue
				}
				bonus := h.w.Center * (1 - math.Abs(float64(c)-mid)/(mid+1))
				if v == own {
					sum += bonus
				} else {
					sum -= bonus
				}
			}
		}
	}
	return sum
}

func (h *Heuristic[S]) Evaluate(b *connectn.Board, perspective int) S {
	var z S
	return z.Scaled(math.Tanh(h.Raw(b, perspective) / h.w.Scale))
}
