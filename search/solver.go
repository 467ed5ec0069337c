// Package search picks moves for a connect-N board with a depth-bounded
// minimax search. The default variant prunes with alpha-beta bounds; a
// full-width variant without pruning is kept as a reference. Both share a
// transposition table keyed by the encoded board, and the root moves are
// searched in parallel.
package search

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/MiguelVeganzones/NeuralGenE-sub000/board"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/brain"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/connectn"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/score"
)

var (
	ErrBadOptions = errors.New("invalid search options")
	ErrNoBoard    = errors.New("no board to search")
)

type Options struct {
	// MaxDepth is the number of plies searched, counting the root move as
	// ply 1. Positions at this depth are scored by the brain.
	MaxDepth int `yaml:"max_depth"`
	// Threads bounds how many root moves are searched at once.
	Threads int  `yaml:"threads"`
	Pruning bool `yaml:"pruning"`
	// TTMemoryFraction caps the transposition table at this fraction of
	// system memory. Zero means no cap.
	TTMemoryFraction float64 `yaml:"ttable_memory_fraction"`
}

func DefaultOptions() Options {
	return Options{
		MaxDepth:         6,
		Threads:          runtime.NumCPU(),
		Pruning:          true,
		TTMemoryFraction: 0.25,
	}
}

func (o Options) Validate() error {
	switch {
	case o.MaxDepth < 1:
		return fmt.Errorf("%w: max depth %d must be at least 1", ErrBadOptions, o.MaxDepth)
	case o.Threads < 1:
		return fmt.Errorf("%w: threads %d must be at least 1", ErrBadOptions, o.Threads)
	case o.TTMemoryFraction < 0 || o.TTMemoryFraction > 1:
		return fmt.Errorf("%w: memory fraction %v must be within [0, 1]", ErrBadOptions, o.TTMemoryFraction)
	}
	return nil
}

// Result is the outcome of one BestMove call.
type Result[S score.Score[S]] struct {
	// Move is board.Invalid if there was nothing to play.
	Move  board.Position
	Score S
	// Scores holds one score per column, None for full columns.
	Scores  []S
	Nodes   uint64
	TT      TTStats
	Elapsed time.Duration
}

// Solver searches boards with a brain. A Solver runs one search at a time;
// use one Solver per goroutine.
type Solver[S score.Score[S]] struct {
	brain  brain.Brain[S]
	opts   Options
	ttable *TranspositionTable[S]

	rootPlayer int
	nodes      atomic.Uint64
}

func NewSolver[S score.Score[S]](br brain.Brain[S], opts Options) (*Solver[S], error) {
	if br == nil {
		return nil, fmt.Errorf("%w: nil brain", ErrBadOptions)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Solver[S]{
		brain:  br,
		opts:   opts,
		ttable: NewTranspositionTable[S](),
	}, nil
}

func (s *Solver[S]) Options() Options { return s.opts }

func (s *Solver[S]) Brain() brain.Brain[S] { return s.brain }

func (s *Solver[S]) SetBrain(br brain.Brain[S]) {
	s.brain = br
}

// SetPruningDisabled switches to the full-width search.
func (s *Solver[S]) SetPruningDisabled(d bool) {
	s.opts.Pruning = !d
}

func (s *Solver[S]) SetMaxDepth(d int) error {
	o := s.opts
	o.MaxDepth = d
	if err := o.Validate(); err != nil {
		return err
	}
	s.opts = o
	return nil
}

func (s *Solver[S]) SetThreads(n int) error {
	o := s.opts
	o.Threads = n
	if err := o.Validate(); err != nil {
		return err
	}
	s.opts = o
	return nil
}

func (s *Solver[S]) TranspositionTable() *TranspositionTable[S] {
	return s.ttable
}

// BestMove searches every playable column of b for the player to move and
// returns the column with the highest score, the lowest column winning
// ties. b is not modified. The transposition table is emptied first, so
// every stored score belongs to this search.
func (s *Solver[S]) BestMove(ctx context.Context, b *connectn.Board) (Result[S], error) {
	var z S
	if b == nil {
		return Result[S]{Move: board.Invalid, Score: z.None()}, ErrNoBoard
	}
	tstart := time.Now()
	s.rootPlayer = b.CurrentPlayer()
	s.nodes.Store(0)
	s.ttable.Reset(s.opts.TTMemoryFraction)
	if s.opts.Threads > 1 {
		s.ttable.SetMultiThreadedMode()
	} else {
		s.ttable.SetSingleThreadedMode()
	}
	log.Debug().Int("max-depth", s.opts.MaxDepth).
		Int("threads", s.opts.Threads).
		Bool("pruning", s.opts.Pruning).
		Int("root-player", s.rootPlayer).
		Msg("search-config")

	roots := b.ValidMoves()
	scores := make([]S, len(roots))
	for i := range scores {
		scores[i] = z.None()
	}

	done := make(chan struct{})
	defer close(done)
	go s.logNodesPerSecond(done)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Threads)
	for col, m := range roots {
		if !m.Valid() {
			continue
		}
		g.Go(func() error {
			w := s.newWorker(gctx, b)
			v, err := w.root(m)
			s.nodes.Add(w.nodes)
			if err != nil {
				return err
			}
			scores[col] = v
			return nil
		})
	}
	err := g.Wait()

	res := Result[S]{
		Move:    board.Invalid,
		Score:   z.None(),
		Scores:  scores,
		Nodes:   s.nodes.Load(),
		TT:      s.ttable.Stats(),
		Elapsed: time.Since(tstart),
	}
	if err != nil {
		return res, err
	}
	for col, v := range scores {
		if !roots[col].Valid() {
			continue
		}
		if !res.Move.Valid() || v > res.Score {
			res.Move, res.Score = roots[col], v
		}
	}

	log.Debug().
		Str("move", res.Move.String()).
		Uint64("nodes", res.Nodes).
		Uint64("ttable-created", res.TT.Created).
		Uint64("ttable-lookups", res.TT.Lookups).
		Uint64("ttable-hits", res.TT.Hits).
		Float64("time-elapsed-sec", res.Elapsed.Seconds()).
		Msg("search-returning")
	return res, nil
}

func (s *Solver[S]) logNodesPerSecond(done <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	var lastNodes uint64
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			nodes := s.nodes.Load()
			log.Debug().Uint64("nps", nodes-lastNodes).Msg("nodes-per-second")
			lastNodes = nodes
		}
	}
}

// worker searches one root move on its own boards.
type worker[S score.Score[S]] struct {
	s     *Solver[S]
	done  <-chan struct{}
	ctx   context.Context
	root0 *connectn.Board
	// scratch[d] holds the children of a node at depth d.
	scratch []*connectn.Board
	nodes   uint64
}

func (s *Solver[S]) newWorker(ctx context.Context, b *connectn.Board) *worker[S] {
	w := &worker[S]{
		s:       s,
		done:    ctx.Done(),
		ctx:     ctx,
		root0:   b,
		scratch: make([]*connectn.Board, s.opts.MaxDepth),
	}
	for i := range w.scratch {
		w.scratch[i] = b.Copy()
	}
	return w
}

func (w *worker[S]) root(m board.Position) (S, error) {
	child := w.scratch[0]
	child.CopyFrom(w.root0)
	if err := child.MakeMove(m); err != nil {
		var z S
		return z.None(), err
	}
	var z S
	if w.s.opts.Pruning {
		return w.alphaBeta(child, m, 1, z.Min(), z.Max())
	}
	return w.fullWidth(child, m, 1)
}

func (w *worker[S]) cancelled() error {
	select {
	case <-w.done:
		return w.ctx.Err()
	default:
		return nil
	}
}

// terminal scores a board right after last was played. It reports false if
// the game goes on and the board is above the depth limit.
func (w *worker[S]) terminal(b *connectn.Board, last board.Position, depth int) (S, bool) {
	var z S
	if b.IsWinningMove(last) {
		if int(b.At(last))-1 == w.s.rootPlayer {
			return z.Won(), true
		}
		return z.Lost(), true
	}
	if !b.AnyMovesLeft() {
		return z.Tied(), true
	}
	if depth >= w.s.opts.MaxDepth {
		return score.Clamp(w.s.brain.Evaluate(b, w.s.rootPlayer)), true
	}
	return z, false
}

type role uint8

const (
	maximizing role = iota
	minimizing
)

func (w *worker[S]) roleFor(b *connectn.Board) role {
	if b.CurrentPlayer() == w.s.rootPlayer {
		return maximizing
	}
	return minimizing
}

func initialScore[S score.Score[S]](r role) S {
	var z S
	switch r {
	case maximizing:
		return z.Min()
	case minimizing:
		return z.Max()
	}
	panic(fmt.Sprintf("unknown role %d", r))
}

func aggregate[S score.Score[S]](r role, best, v S) S {
	switch r {
	case maximizing:
		return max(best, v)
	case minimizing:
		return min(best, v)
	}
	panic(fmt.Sprintf("unknown role %d", r))
}
