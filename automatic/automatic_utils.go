package automatic

// Bot vs bot matches. Games are spread over worker goroutines, each with
// its own runner, and finished games are streamed to an optional YAML log.

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/MiguelVeganzones/NeuralGenE-sub000/connectn"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/score"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/stats"
)

var (
	ErrBadMatch       = errors.New("invalid match")
	ErrAlreadyPlaying = errors.New("games are already being played, please wait till complete")
)

var (
	CVCCounter *expvar.Int
	IsPlaying  *expvar.Int
)

// playing admits one match at a time; IsPlaying only mirrors it.
var playing atomic.Bool

func init() {
	CVCCounter = expvar.NewInt("cvcCounter")
	IsPlaying = expvar.NewInt("isPlaying")
}

// Match describes a series of games.
type Match struct {
	Config  connectn.Config
	Games   int
	Threads int
	// OpeningPlies random moves are played before the bots take over.
	OpeningPlies int
	// Seeds, if set, make the openings reproducible.
	Seeds [][32]byte
	// LogPath, if set, receives one YAML document per game.
	LogPath string
}

func (m Match) Validate() error {
	if err := m.Config.Validate(); err != nil {
		return err
	}
	switch {
	case m.Games < 1:
		return fmt.Errorf("%w: %d games", ErrBadMatch, m.Games)
	case m.Threads < 1:
		return fmt.Errorf("%w: %d threads", ErrBadMatch, m.Threads)
	case m.OpeningPlies < 0:
		return fmt.Errorf("%w: %d opening plies", ErrBadMatch, m.OpeningPlies)
	}
	return nil
}

// MatchResult sums up a match. Score has one value per game and player:
// 1 for a win, 0 for a draw and -1 for a loss.
type MatchResult struct {
	Names  []string
	Games  int
	Wins   []int
	Draws  int
	Scores []stats.Statistic
	// FirstSeatWins counts games won by whoever moved first.
	FirstSeatWins int
	Records       []GameRecord
}

func newMatchResult(names []string) *MatchResult {
	return &MatchResult{
		Names:  names,
		Wins:   make([]int, len(names)),
		Scores: make([]stats.Statistic, len(names)),
	}
}

func (m *MatchResult) add(rec GameRecord) {
	m.Games++
	m.Records = append(m.Records, rec)
	if rec.Winner == -1 {
		m.Draws++
	} else if rec.Winner == 0 {
		m.FirstSeatWins++
	}
	winner := -1
	if rec.Winner != -1 {
		winner = (rec.Winner + rec.Game) % len(m.Names)
		m.Wins[winner]++
	}
	for i := range m.Names {
		v := 0.0
		if winner == i {
			v = 1
		} else if winner != -1 {
			v = -1
		}
		m.Scores[i].Push(v)
	}
}

func (m *MatchResult) gameLengths() ([]float64, []float64) {
	plies := make([]float64, len(m.Records))
	nodes := make([]float64, len(m.Records))
	for i, rec := range m.Records {
		plies[i] = float64(len(rec.Moves))
		nodes[i] = float64(rec.Nodes)
	}
	return plies, nodes
}

// Summary formats the result with 95% confidence intervals on the scores.
func (m *MatchResult) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Games played: %d\n", m.Games)
	fmt.Fprintf(&sb, "Draws: %d\n", m.Draws)
	fmt.Fprintf(&sb, "Player who went first wins: %d\n", m.FirstSeatWins)
	plies, nodes := m.gameLengths()
	mean, stdev := stats.MeanStdDev(plies)
	fmt.Fprintf(&sb, "Plies per game: %.1f (stdev %.1f)\n", mean, stdev)
	mean, stdev = stats.MeanStdDev(nodes)
	fmt.Fprintf(&sb, "Nodes per game: %.0f (stdev %.0f)\n", mean, stdev)
	for i, name := range m.Names {
		lo, hi := m.Scores[i].Interval(95)
		fmt.Fprintf(&sb, "%v wins: %d  Mean score: %.4f  95%% CI: [%.4f, %.4f]\n",
			name, m.Wins[i], m.Scores[i].Mean(), lo, hi)
	}
	return sb.String()
}

// PlayMatch plays m.Games games between players, one per seat. The first
// seat rotates between games.
func PlayMatch[S score.Score[S]](ctx context.Context, m Match, players ...Player[S]) (*MatchResult, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if len(players) != m.Config.Players {
		return nil, fmt.Errorf("%w: %d players for a %d player game", ErrBadMatch, len(players), m.Config.Players)
	}
	names := make([]string, len(players))
	for i, p := range players {
		if p.NewSolver == nil {
			return nil, fmt.Errorf("%w: player %q has no solver", ErrBadMatch, p.Name)
		}
		names[i] = p.Name
	}
	if !playing.CompareAndSwap(false, true) {
		return nil, ErrAlreadyPlaying
	}
	IsPlaying.Set(1)
	defer func() {
		IsPlaying.Set(0)
		playing.Store(false)
	}()
	CVCCounter.Set(0)

	var logfile io.WriteCloser
	if m.LogPath != "" {
		f, err := os.Create(m.LogPath)
		if err != nil {
			return nil, err
		}
		logfile = f
	}
	logChan := make(chan GameRecord, 100)
	logDone := make(chan error, 1)
	go func() {
		logDone <- writeGameLog(logfile, logChan)
	}()

	log.Debug().Msgf("Starting %v games, %v threads", m.Games, m.Threads)
	records := make([]GameRecord, m.Games)
	jobs := make(chan int, 100)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for i := 0; i < m.Games; i++ {
			select {
			case jobs <- i:
			case <-gctx.Done():
				log.Info().Msg("Got stop signal, exiting soon...")
				return gctx.Err()
			}
		}
		return nil
	})
	for t := 0; t < m.Threads; t++ {
		g.Go(func() error {
			r, err := NewGameRunner(m.Config, players, m.OpeningPlies, logChan)
			if err != nil {
				return err
			}
			r.SetSeeds(m.Seeds)
			for i := range jobs {
				rec, err := r.PlayGame(gctx, i)
				if err != nil {
					return err
				}
				records[i] = rec
				CVCCounter.Add(1)
			}
			return nil
		})
	}
	err := g.Wait()
	close(logChan)
	logErr := <-logDone
	if err != nil {
		return nil, err
	}
	if logErr != nil {
		return nil, logErr
	}

	res := newMatchResult(names)
	for _, rec := range records {
		res.add(rec)
	}
	log.Info().Int("games", res.Games).Ints("wins", res.Wins).Int("draws", res.Draws).
		Msg("match-finished")
	return res, nil
}

// writeGameLog drains records into w as a YAML stream. With a nil w the
// records are discarded.
func writeGameLog(w io.WriteCloser, records <-chan GameRecord) error {
	if w == nil {
		for range records {
		}
		return nil
	}
	enc := yaml.NewEncoder(w)
	var err error
	for rec := range records {
		if err != nil {
			continue
		}
		err = enc.Encode(rec)
	}
	if cerr := enc.Close(); err == nil {
		err = cerr
	}
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	log.Debug().Msg("Exiting game logger goroutine!")
	return err
}
