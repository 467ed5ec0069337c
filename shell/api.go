package shell

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/MiguelVeganzones/NeuralGenE-sub000/automatic"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/board"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/brain"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/connectn"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/packed"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/score"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/search"
)

var (
	errGameOver    = errors.New("the game is over; start a new one or undo")
	errNothingToDo = errors.New("no moves to undo")
)

type Response struct {
	message string
}

type CmdOptions map[string][]string

func (c CmdOptions) String(key string) string {
	v := c[key]
	if len(v) > 0 {
		return v[0]
	}
	return ""
}

func (c CmdOptions) Int(key string) (int, error) {
	v := c[key]
	if len(v) == 0 {
		return 0, errors.New(key + " not found in options")
	}
	return strconv.Atoi(v[0])
}

func (c CmdOptions) IntDefault(key string, defaultI int) (int, error) {
	v := c[key]
	if len(v) == 0 {
		return defaultI, nil
	}
	return strconv.Atoi(v[0])
}

func (c CmdOptions) Bool(key string) bool {
	v := c[key]
	if len(v) == 0 {
		return false
	}
	return strings.ToLower(v[0]) == "true"
}

func msg(message string) *Response {
	return &Response{message: message}
}

// gameWinner scans the board for a completed run and returns its owner, or
// -1. Positions reached by decode have no move history to go by.
func gameWinner(b *connectn.Board) int {
	cfg := b.Config()
	for r := 0; r < cfg.Rows; r++ {
		for c := 0; c < cfg.Cols; c++ {
			p := board.Pos(r, c)
			if b.At(p) != board.Empty && b.IsWinningMove(p) {
				return int(b.At(p)) - 1
			}
		}
	}
	return -1
}

func (sc *ShellController) gameOver() bool {
	return gameWinner(sc.board) != -1 || !sc.board.AnyMovesLeft()
}

func (sc *ShellController) boardText() string {
	var sb strings.Builder
	sb.WriteString(sc.board.ToDisplayText())
	if w := gameWinner(sc.board); w != -1 {
		fmt.Fprintf(&sb, "game over: %c (player %d) wins\n", board.Symbol(uint8(w+1)), w)
	} else if !sc.board.AnyMovesLeft() {
		sb.WriteString("game over: draw\n")
	}
	return sb.String()
}

func (sc *ShellController) help(cmd *shellcmd) (*Response, error) {
	var sb strings.Builder
	if len(cmd.args) == 0 {
		usage(&sb)
	} else {
		usageTopic(&sb, cmd.args[0])
	}
	return msg(sb.String()), nil
}

func (sc *ShellController) newGame(cmd *shellcmd) (*Response, error) {
	cfg := sc.board.Config()
	var err error
	if cfg.Rows, err = cmd.options.IntDefault("rows", cfg.Rows); err != nil {
		return nil, err
	}
	if cfg.Cols, err = cmd.options.IntDefault("cols", cfg.Cols); err != nil {
		return nil, err
	}
	if cfg.WinLength, err = cmd.options.IntDefault("win", cfg.WinLength); err != nil {
		return nil, err
	}
	if cfg.Players, err = cmd.options.IntDefault("players", cfg.Players); err != nil {
		return nil, err
	}
	b, err := connectn.NewBoard(cfg)
	if err != nil {
		return nil, err
	}
	sc.board = b
	sc.history = sc.history[:0]
	log.Debug().Str("config", cfg.String()).Msg("new-game")
	return msg(sc.boardText()), nil
}

func (sc *ShellController) show(cmd *shellcmd) (*Response, error) {
	return msg(sc.boardText()), nil
}

func (sc *ShellController) playAt(p board.Position) error {
	if sc.gameOver() {
		return errGameOver
	}
	if err := sc.board.MakeMove(p); err != nil {
		return err
	}
	sc.history = append(sc.history, p)
	return nil
}

func (sc *ShellController) play(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) != 1 {
		return nil, errors.New("usage: play <column>")
	}
	col, err := strconv.Atoi(cmd.args[0])
	if err != nil {
		return nil, err
	}
	if col < 0 || col >= sc.board.Config().Cols {
		return nil, fmt.Errorf("%w: column %d", connectn.ErrOutOfBounds, col)
	}
	p := sc.board.Frontier(col)
	if !p.Valid() {
		return nil, fmt.Errorf("%w: column %d", connectn.ErrColumnFull, col)
	}
	if err := sc.playAt(p); err != nil {
		return nil, err
	}
	return msg(sc.boardText()), nil
}

func (sc *ShellController) undo(cmd *shellcmd) (*Response, error) {
	if len(sc.history) == 0 {
		return nil, errNothingToDo
	}
	last := sc.history[len(sc.history)-1]
	if err := sc.board.UndoMove(last); err != nil {
		return nil, err
	}
	sc.history = sc.history[:len(sc.history)-1]
	return msg(sc.boardText()), nil
}

func (sc *ShellController) setBrain(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		if sc.brainPath == "" {
			return msg("brain: " + sc.brainName), nil
		}
		return msg("brain: " + sc.brainName + " (" + sc.brainPath + ")"), nil
	}
	name, path := cmd.args[0], ""
	if len(cmd.args) > 1 {
		path = cmd.args[1]
	}
	if path != "" {
		// pick up edits to the file
		brain.Forget(name, path)
	}
	br, err := brain.ByName[score.Points](name, path)
	if err != nil {
		return nil, err
	}
	sc.solver.SetBrain(br)
	sc.brainName, sc.brainPath = name, path
	return msg("brain set to " + name), nil
}

// configureSolver applies -depth, -threads and -noprune. The settings
// stay in effect for later searches.
func (sc *ShellController) configureSolver(opts CmdOptions) error {
	cur := sc.solver.Options()
	depth, err := opts.IntDefault("depth", cur.MaxDepth)
	if err != nil {
		return err
	}
	threads, err := opts.IntDefault("threads", cur.Threads)
	if err != nil {
		return err
	}
	if err := sc.solver.SetMaxDepth(depth); err != nil {
		return err
	}
	if err := sc.solver.SetThreads(threads); err != nil {
		return err
	}
	if opts.String("noprune") != "" {
		sc.solver.SetPruningDisabled(opts.Bool("noprune"))
	}
	return nil
}

func (sc *ShellController) bestMove(opts CmdOptions) (search.Result[score.Points], error) {
	if sc.gameOver() {
		return search.Result[score.Points]{}, errGameOver
	}
	if err := sc.configureSolver(opts); err != nil {
		return search.Result[score.Points]{}, err
	}
	return sc.solver.BestMove(context.Background(), sc.board)
}

func formatResult(res search.Result[score.Points], opts search.Options) string {
	var sb strings.Builder
	none := score.Points(0).None()
	cols := lo.Map(res.Scores, func(s score.Points, i int) string {
		if s == none {
			return fmt.Sprintf("%4d  full", i)
		}
		return fmt.Sprintf("%4d  %+.4f", i, float32(s))
	})
	sb.WriteString(" col  score\n")
	sb.WriteString(strings.Join(cols, "\n"))
	sb.WriteString("\n")
	if res.Move.Valid() {
		fmt.Fprintf(&sb, "best: column %d (%+.4f)\n", res.Move.Col, float32(res.Score))
	} else {
		sb.WriteString("best: none\n")
	}
	fmt.Fprintf(&sb, "depth %d, threads %d, pruning %v, %d nodes, tt %d entries %d/%d hits, %v\n",
		opts.MaxDepth, opts.Threads, opts.Pruning, res.Nodes,
		res.TT.Created, res.TT.Hits, res.TT.Lookups, res.Elapsed)
	return sb.String()
}

func (sc *ShellController) search(cmd *shellcmd) (*Response, error) {
	res, err := sc.bestMove(cmd.options)
	if err != nil {
		return nil, err
	}
	return msg(formatResult(res, sc.solver.Options())), nil
}

func (sc *ShellController) aiplay(cmd *shellcmd) (*Response, error) {
	res, err := sc.bestMove(cmd.options)
	if err != nil {
		return nil, err
	}
	if !res.Move.Valid() {
		return nil, errGameOver
	}
	if err := sc.playAt(res.Move); err != nil {
		return nil, err
	}
	return msg(fmt.Sprintf("played column %d (%+.4f)\n%s", res.Move.Col, float32(res.Score),
		sc.boardText())), nil
}

func (sc *ShellController) encode(cmd *shellcmd) (*Response, error) {
	return msg(sc.board.Encode().Hex()), nil
}

func (sc *ShellController) decode(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) != 1 {
		return nil, errors.New("usage: decode <hex>")
	}
	k, err := packed.ParseHex(cmd.args[0])
	if err != nil {
		return nil, err
	}
	b, err := connectn.Decode(sc.board.Config(), k)
	if err != nil {
		return nil, err
	}
	sc.board = b
	sc.history = sc.history[:0]
	return msg(sc.boardText()), nil
}

func (sc *ShellController) matchPlayer(seat, depth int) automatic.Player[score.Points] {
	name, path := sc.brainName, sc.brainPath
	opts := sc.solver.Options()
	opts.MaxDepth = depth
	opts.Threads = 1
	return automatic.Player[score.Points]{
		Name: fmt.Sprintf("seat%d-depth%d", seat, depth),
		NewSolver: func() (*search.Solver[score.Points], error) {
			br, err := brain.ByName[score.Points](name, path)
			if err != nil {
				return nil, err
			}
			return search.NewSolver(br, opts)
		},
	}
}

func (sc *ShellController) autoplay(cmd *shellcmd) (*Response, error) {
	cfg := sc.board.Config()
	depth := sc.solver.Options().MaxDepth
	games, err := cmd.options.IntDefault("games", 10)
	if err != nil {
		return nil, err
	}
	threads, err := cmd.options.IntDefault("threads", runtime.NumCPU())
	if err != nil {
		return nil, err
	}
	opening, err := cmd.options.IntDefault("opening", 0)
	if err != nil {
		return nil, err
	}
	players := make([]automatic.Player[score.Points], cfg.Players)
	for i := range players {
		d, err := cmd.options.IntDefault("depth"+strconv.Itoa(i), depth)
		if err != nil {
			return nil, err
		}
		players[i] = sc.matchPlayer(i, d)
	}
	m := automatic.Match{
		Config:       cfg,
		Games:        games,
		Threads:      threads,
		OpeningPlies: opening,
		LogPath:      cmd.options.String("log"),
	}
	if path := cmd.options.String("seeds"); path != "" {
		if m.Seeds, err = automatic.LoadSeeds(path); err != nil {
			return nil, err
		}
	}
	if path := cmd.options.String("saveseeds"); path != "" {
		if m.Seeds == nil {
			m.Seeds = automatic.GenerateSeeds(games)
		}
		if err := automatic.SaveSeeds(m.Seeds, path); err != nil {
			return nil, err
		}
		log.Info().Str("path", path).Int("seeds", len(m.Seeds)).Msg("seeds-saved")
	}
	log.Info().Int("games", games).Int("threads", threads).Str("config", cfg.String()).
		Msg("autoplay-starting")
	res, err := automatic.PlayMatch(context.Background(), m, players...)
	if err != nil {
		return nil, err
	}
	return msg(res.Summary()), nil
}

func (sc *ShellController) analyze(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) != 1 {
		return nil, errors.New("usage: analyze <logfile>")
	}
	summary, err := automatic.AnalyzeLogFile(cmd.args[0])
	if err != nil {
		return nil, err
	}
	return msg(summary), nil
}

func (sc *ShellController) settings(cmd *shellcmd) (*Response, error) {
	dump, err := sc.config.Dump()
	if err != nil {
		return nil, err
	}
	return msg(dump), nil
}
