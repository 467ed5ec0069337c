package search

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"
	"lukechampine.com/frand"

	"github.com/MiguelVeganzones/NeuralGenE-sub000/board"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/brain"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/connectn"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/score"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	os.Exit(m.Run())
}

func newSolver[S score.Score[S]](t *testing.T, depth, threads int, pruning bool) *Solver[S] {
	t.Helper()
	opts := DefaultOptions()
	opts.MaxDepth = depth
	opts.Threads = threads
	opts.Pruning = pruning
	opts.TTMemoryFraction = 0
	s, err := NewSolver[S](brain.NewHeuristic[S](brain.DefaultWeights()), opts)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestOptions(t *testing.T) {
	is := is.New(t)
	is.NoErr(DefaultOptions().Validate())
	br := brain.Random[score.Points]{}

	opts := DefaultOptions()
	opts.MaxDepth = 0
	_, err := NewSolver[score.Points](br, opts)
	is.True(errors.Is(err, ErrBadOptions))

	opts = DefaultOptions()
	opts.Threads = 0
	_, err = NewSolver[score.Points](br, opts)
	is.True(errors.Is(err, ErrBadOptions))

	opts = DefaultOptions()
	opts.TTMemoryFraction = 1.5
	_, err = NewSolver[score.Points](br, opts)
	is.True(errors.Is(err, ErrBadOptions))

	_, err = NewSolver[score.Points](nil, DefaultOptions())
	is.True(errors.Is(err, ErrBadOptions))

	s, err := NewSolver[score.Points](br, DefaultOptions())
	is.NoErr(err)
	is.True(errors.Is(s.SetMaxDepth(-1), ErrBadOptions))
	is.Equal(s.Options().MaxDepth, DefaultOptions().MaxDepth)
	is.NoErr(s.SetThreads(2))
	is.Equal(s.Options().Threads, 2)
	s.SetPruningDisabled(true)
	is.True(!s.Options().Pruning)
}

func TestTakesImmediateWin(t *testing.T) {
	for _, pruning := range []bool{true, false} {
		for _, depth := range []int{1, 3, 4} {
			is := is.New(t)
			// x holds row 5 columns 0 to 2 and is to move.
			b, err := connectn.FromColumns(connectn.ClassicConfig(), 0, 0, 1, 1, 2, 2)
			is.NoErr(err)
			s := newSolver[score.Centi](t, depth, 4, pruning)
			res, err := s.BestMove(context.Background(), b)
			is.NoErr(err)
			is.Equal(res.Move, board.Pos(5, 3))
			is.Equal(res.Score, score.Centi(0).Won())
			is.Equal(res.Scores[3], score.Centi(0).Won())
			is.Equal(b.MoveCount(), 6) // the board is left alone
		}
	}
}

func TestSecondPlayerTakesWin(t *testing.T) {
	is := is.New(t)
	// o holds column 6 three high and is to move.
	b, err := connectn.FromColumns(connectn.ClassicConfig(), 0, 6, 1, 6, 3, 6, 0)
	is.NoErr(err)
	is.Equal(b.CurrentPlayer(), 1)
	s := newSolver[score.Points](t, 2, 2, true)
	res, err := s.BestMove(context.Background(), b)
	is.NoErr(err)
	is.Equal(res.Move, board.Pos(2, 6))
	is.Equal(res.Score, score.Points(1))
}

func TestBlocksOpponent(t *testing.T) {
	for _, depth := range []int{2, 3} {
		is := is.New(t)
		// x holds row 5 columns 0 to 2; o must answer in column 3.
		b, err := connectn.FromColumns(connectn.ClassicConfig(), 0, 6, 1, 6, 2)
		is.NoErr(err)
		s := newSolver[score.Points](t, depth, 3, true)
		res, err := s.BestMove(context.Background(), b)
		is.NoErr(err)
		is.Equal(res.Move, board.Pos(5, 3))
		is.True(res.Score > score.Points(-1))
		for col, v := range res.Scores {
			if col != 3 {
				is.Equal(v, score.Points(-1))
			}
		}
	}
}

func TestNoMoves(t *testing.T) {
	is := is.New(t)
	cfg := connectn.Config{Rows: 3, Cols: 3, WinLength: 3, Players: 2}
	b, err := connectn.FromColumns(cfg, 0, 0, 0, 1, 1, 1, 2, 2, 2)
	is.NoErr(err)
	s := newSolver[score.Points](t, 3, 2, true)
	res, err := s.BestMove(context.Background(), b)
	is.NoErr(err)
	is.Equal(res.Move, board.Invalid)
	is.Equal(res.Score, score.Points(0).None())
	for _, v := range res.Scores {
		is.Equal(v, score.Points(0).None())
	}

	_, err = s.BestMove(context.Background(), nil)
	is.True(errors.Is(err, ErrNoBoard))
}

func TestFullColumnsScoredNone(t *testing.T) {
	is := is.New(t)
	b, err := connectn.FromColumns(connectn.ClassicConfig(), 2, 2, 2, 2, 2, 2)
	is.NoErr(err)
	s := newSolver[score.Centi](t, 2, 2, true)
	res, err := s.BestMove(context.Background(), b)
	is.NoErr(err)
	is.Equal(res.Scores[2], score.Centi(0).None())
	is.True(res.Move.Valid())
	is.True(res.Move.Col != 2)
}

func TestBrainValuesAreClamped(t *testing.T) {
	var z score.Points
	none := brain.Func[score.Points](func(*connectn.Board, int) score.Points { return z.None() })
	for _, pruning := range []bool{true, false} {
		for _, depth := range []int{1, 2} {
			is := is.New(t)
			b, err := connectn.NewBoard(connectn.ClassicConfig())
			is.NoErr(err)
			s := newSolver[score.Points](t, depth, 2, pruning)
			s.SetBrain(none)
			res, err := s.BestMove(context.Background(), b)
			is.NoErr(err)
			is.Equal(res.Move, board.Pos(5, 0))
			is.Equal(res.Score, z.Scaled(-1))
			for _, v := range res.Scores {
				is.Equal(v, z.Scaled(-1))
			}
		}
	}
}

func TestCancelled(t *testing.T) {
	is := is.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b, err := connectn.NewBoard(connectn.ClassicConfig())
	is.NoErr(err)
	s := newSolver[score.Points](t, 8, 2, true)
	_, err = s.BestMove(ctx, b)
	is.True(errors.Is(err, context.Canceled))
}

func TestLeavesAreNotCached(t *testing.T) {
	for _, pruning := range []bool{true, false} {
		is := is.New(t)
		b, err := connectn.NewBoard(connectn.ClassicConfig())
		is.NoErr(err)
		s := newSolver[score.Points](t, 1, 1, pruning)
		res, err := s.BestMove(context.Background(), b)
		is.NoErr(err)
		is.Equal(res.Nodes, uint64(7))
		is.Equal(res.TT.Created, uint64(0))
		is.Equal(s.TranspositionTable().Len(), 0)

		is.NoErr(s.SetMaxDepth(3))
		res, err = s.BestMove(context.Background(), b)
		is.NoErr(err)
		// Only the positions after one and two plies are stored.
		is.True(res.TT.Created > 0)
		is.True(res.TT.Created <= 7+49)
		is.True(res.TT.Lookups > 0)
	}
}

// minimax is a table-free reference search.
func minimax[S score.Score[S]](b *connectn.Board, last board.Position, depth, maxDepth, root int,
	br brain.Brain[S]) S {
	var z S
	if b.IsWinningMove(last) {
		if int(b.At(last))-1 == root {
			return z.Won()
		}
		return z.Lost()
	}
	if !b.AnyMovesLeft() {
		return z.Tied()
	}
	if depth >= maxDepth {
		return br.Evaluate(b, root)
	}
	maxing := b.CurrentPlayer() == root
	best := z.Max()
	if maxing {
		best = z.Min()
	}
	for _, m := range b.ValidMoves() {
		if !m.Valid() {
			continue
		}
		c := b.Copy()
		if err := c.MakeMove(m); err != nil {
			panic(err)
		}
		v := minimax(c, m, depth+1, maxDepth, root, br)
		if maxing {
			best = max(best, v)
		} else {
			best = min(best, v)
		}
	}
	return best
}

// randomOpening plays plies random moves without ending the game.
func randomOpening(t *testing.T, cfg connectn.Config, plies int) *connectn.Board {
	t.Helper()
	for {
		b, err := connectn.NewBoard(cfg)
		if err != nil {
			t.Fatal(err)
		}
		over := false
		for i := 0; i < plies && !over; i++ {
			var moves []board.Position
			for _, m := range b.ValidMoves() {
				if m.Valid() {
					moves = append(moves, m)
				}
			}
			m := moves[frand.Intn(len(moves))]
			if err := b.MakeMove(m); err != nil {
				t.Fatal(err)
			}
			over = b.IsWinningMove(m) || !b.AnyMovesLeft()
		}
		if !over {
			return b
		}
	}
}

func checkEquivalence[S score.Score[S]](t *testing.T, cfg connectn.Config, depth, plies int) {
	is := is.New(t)
	br := brain.NewHeuristic[S](brain.DefaultWeights())
	for i := 0; i < 6; i++ {
		b := randomOpening(t, cfg, plies)
		pruned := newSolver[S](t, depth, 4, true)
		pruned.SetBrain(br)
		full := newSolver[S](t, depth, 1, false)
		full.SetBrain(br)

		rp, err := pruned.BestMove(context.Background(), b)
		is.NoErr(err)
		rf, err := full.BestMove(context.Background(), b)
		is.NoErr(err)

		is.Equal(rp.Scores, rf.Scores)
		is.Equal(rp.Move, rf.Move)
		is.Equal(rp.Score, rf.Score)

		var z S
		for col, m := range b.ValidMoves() {
			if !m.Valid() {
				is.Equal(rf.Scores[col], z.None())
				continue
			}
			c := b.Copy()
			is.NoErr(c.MakeMove(m))
			is.Equal(rf.Scores[col], minimax(c, m, 1, depth, b.CurrentPlayer(), brain.Brain[S](br)))
		}
	}
}

func TestPruningMatchesFullWidth(t *testing.T) {
	t.Run("classic", func(t *testing.T) {
		checkEquivalence[score.Points](t, connectn.ClassicConfig(), 4, 6)
	})
	t.Run("small", func(t *testing.T) {
		checkEquivalence[score.Centi](t, connectn.Config{Rows: 4, Cols: 4, WinLength: 3, Players: 2}, 6, 2)
	})
	t.Run("three-players", func(t *testing.T) {
		checkEquivalence[score.Points](t, connectn.Config{Rows: 5, Cols: 5, WinLength: 3, Players: 3}, 4, 3)
	})
}

func TestThreadsDoNotChangeResult(t *testing.T) {
	is := is.New(t)
	b := randomOpening(t, connectn.ClassicConfig(), 8)
	one := newSolver[score.Centi](t, 5, 1, true)
	many := newSolver[score.Centi](t, 5, 7, true)
	r1, err := one.BestMove(context.Background(), b)
	is.NoErr(err)
	r2, err := many.BestMove(context.Background(), b)
	is.NoErr(err)
	is.Equal(r1.Scores, r2.Scores)
	is.Equal(r1.Move, r2.Move)
}
