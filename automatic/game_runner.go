// Package automatic plays computer vs computer connect-N games: every seat
// is driven by a search solver, and whole matches are run in parallel to
// compare brains or search settings.
package automatic

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"lukechampine.com/frand"

	"github.com/MiguelVeganzones/NeuralGenE-sub000/board"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/connectn"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/score"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/search"
)

// Player is a named bot. NewSolver is called once per worker goroutine, since
// a solver runs one search at a time.
type Player[S score.Score[S]] struct {
	Name      string
	NewSolver func() (*search.Solver[S], error)
}

// GameRecord is one finished game. Seats lists player names in turn order,
// and Winner indexes Seats, or is -1 for a draw.
type GameRecord struct {
	Game         int      `yaml:"game"`
	Seats        []string `yaml:"seats"`
	Moves        []int    `yaml:"moves"`
	OpeningPlies int      `yaml:"opening_plies"`
	Winner       int      `yaml:"winner"`
	WinnerName   string   `yaml:"winner_name,omitempty"`
	Nodes        uint64   `yaml:"nodes"`
}

// GameRunner plays games one after another on its own board and solvers.
type GameRunner[S score.Score[S]] struct {
	cfg     connectn.Config
	players []Player[S]
	solvers []*search.Solver[S]
	board   *connectn.Board
	opening int
	seeds   [][32]byte
	logchan chan<- GameRecord
}

// NewGameRunner creates a runner with fresh solvers for every player.
func NewGameRunner[S score.Score[S]](cfg connectn.Config, players []Player[S], opening int,
	logchan chan<- GameRecord) (*GameRunner[S], error) {

	if len(players) != cfg.Players {
		return nil, fmt.Errorf("%w: %d players for a %d player game", ErrBadMatch, len(players), cfg.Players)
	}
	b, err := connectn.NewBoard(cfg)
	if err != nil {
		return nil, err
	}
	r := &GameRunner[S]{cfg: cfg, players: players, board: b, opening: opening, logchan: logchan}
	for _, p := range players {
		s, err := p.NewSolver()
		if err != nil {
			return nil, fmt.Errorf("player %s: %w", p.Name, err)
		}
		r.solvers = append(r.solvers, s)
	}
	return r, nil
}

// SetSeeds makes the random openings reproducible: game i draws its
// opening from seeds[i % len(seeds)].
func (r *GameRunner[S]) SetSeeds(seeds [][32]byte) {
	r.seeds = seeds
}

func (r *GameRunner[S]) Board() *connectn.Board { return r.board }

// seatPlayer returns the index of the player sitting in seat for game.
// The first seat rotates from game to game.
func (r *GameRunner[S]) seatPlayer(game, seat int) int {
	return (seat + game) % len(r.players)
}

func (r *GameRunner[S]) intn(rng *frand.RNG, n int) int {
	if rng != nil {
		return rng.Intn(n)
	}
	return frand.Intn(n)
}

// PlayGame plays game number game to the end.
func (r *GameRunner[S]) PlayGame(ctx context.Context, game int) (GameRecord, error) {
	b, err := connectn.NewBoard(r.cfg)
	if err != nil {
		return GameRecord{}, err
	}
	r.board = b
	rec := GameRecord{Game: game, Winner: -1}
	for seat := range r.players {
		rec.Seats = append(rec.Seats, r.players[r.seatPlayer(game, seat)].Name)
	}

	var rng *frand.RNG
	if len(r.seeds) > 0 {
		seed := r.seeds[game%len(r.seeds)]
		rng = frand.NewCustom(seed[:], 32, 12)
	}

	finished := func(p board.Position) bool {
		rec.Moves = append(rec.Moves, p.Col)
		if b.IsWinningMove(p) {
			rec.Winner = int(b.At(p)) - 1
			rec.WinnerName = rec.Seats[rec.Winner]
			return true
		}
		return !b.AnyMovesLeft()
	}

	for ply := 0; ply < r.opening; ply++ {
		var moves []board.Position
		for _, m := range b.ValidMoves() {
			if m.Valid() {
				moves = append(moves, m)
			}
		}
		p := moves[r.intn(rng, len(moves))]
		if err := b.MakeMove(p); err != nil {
			return rec, err
		}
		rec.OpeningPlies++
		if finished(p) {
			return r.finish(rec), nil
		}
	}

	for {
		seat := b.CurrentPlayer()
		solver := r.solvers[r.seatPlayer(game, seat)]
		res, err := solver.BestMove(ctx, b)
		if err != nil {
			return rec, err
		}
		rec.Nodes += res.Nodes
		if !res.Move.Valid() {
			break
		}
		if err := b.MakeMove(res.Move); err != nil {
			return rec, err
		}
		if finished(res.Move) {
			break
		}
	}
	return r.finish(rec), nil
}

func (r *GameRunner[S]) finish(rec GameRecord) GameRecord {
	log.Debug().Int("game", rec.Game).
		Int("plies", len(rec.Moves)).
		Int("winner", rec.Winner).
		Str("winner-name", rec.WinnerName).
		Msg("game-over")
	if r.logchan != nil {
		r.logchan <- rec
	}
	return rec
}
