package shell

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
	"testing"

	"github.com/matryer/is"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MiguelVeganzones/NeuralGenE-sub000/automatic"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/board"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/brain"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/config"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/connectn"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/packed"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/score"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/search"
)

func TestExtractFields(t *testing.T) {
	is := is.New(t)
	type testdata struct {
		line   string
		expCmd *shellcmd
		expErr error
	}
	cases := []testdata{
		{"", nil, errNoData},
		{"autoplay -log /path/to/log.yaml",
			&shellcmd{"autoplay", nil, CmdOptions{"log": {"/path/to/log.yaml"}}},
			nil},
		{"analyze match.yaml",
			&shellcmd{"analyze", []string{"match.yaml"}, CmdOptions{}},
			nil},
		{"brain heuristic 'my weights.yaml' -depth 3 ",
			&shellcmd{"brain",
				[]string{"heuristic", "my weights.yaml"},
				CmdOptions{"depth": {"3"}}},
			nil,
		},
		{"search -depth 2 -depth 4",
			&shellcmd{"search", nil, CmdOptions{"depth": {"2", "4"}}},
			nil},
		{"search -threads 2 -depth",
			nil, errWrongOptionSyntax},
	}
	for _, t := range cases {
		cmd, err := extractFields(t.line)
		is.Equal(cmd, t.expCmd)
		is.Equal(err, t.expErr)
	}
}

func TestCmdOptions(t *testing.T) {
	is := is.New(t)
	opts := CmdOptions{"depth": {"5"}, "noprune": {"TRUE"}, "bad": {"x"}}
	d, err := opts.Int("depth")
	is.NoErr(err)
	is.Equal(d, 5)
	_, err = opts.Int("threads")
	is.True(err != nil)
	d, err = opts.IntDefault("threads", 3)
	is.NoErr(err)
	is.Equal(d, 3)
	_, err = opts.IntDefault("bad", 3)
	is.True(err != nil)
	is.True(opts.Bool("noprune"))
	is.True(!opts.Bool("missing"))
	is.Equal(opts.String("missing"), "")
}

func newTestShell(t *testing.T) *ShellController {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Set(config.ConfigSearchDepth, 3)
	cfg.Set(config.ConfigSearchThreads, 2)
	cfg.Set(config.ConfigTTableMemoryFraction, 0)
	sc, err := newShellController(&cfg, &bytes.Buffer{})
	require.NoError(t, err)
	return sc
}

func run(t *testing.T, sc *ShellController, line string) string {
	t.Helper()
	cmd, err := extractFields(line)
	require.NoError(t, err)
	resp, err := sc.command(cmd)
	require.NoError(t, err, line)
	return resp.message
}

func runErr(t *testing.T, sc *ShellController, line string) error {
	t.Helper()
	cmd, err := extractFields(line)
	require.NoError(t, err)
	_, err = sc.command(cmd)
	return err
}

func TestPlayAndUndo(t *testing.T) {
	is := is.New(t)
	sc := newTestShell(t)
	run(t, sc, "play 3")
	run(t, sc, "p 3")
	is.Equal(sc.board.At(board.Pos(5, 3)), uint8(1))
	is.Equal(sc.board.At(board.Pos(4, 3)), uint8(2))
	is.Equal(sc.board.CurrentPlayer(), 0)

	run(t, sc, "undo")
	is.Equal(sc.board.At(board.Pos(4, 3)), board.Empty)
	is.Equal(sc.board.CurrentPlayer(), 1)
	run(t, sc, "u")
	is.Equal(sc.board.MoveCount(), 0)
	is.True(errors.Is(runErr(t, sc, "undo"), errNothingToDo))

	is.True(errors.Is(runErr(t, sc, "play 7"), connectn.ErrOutOfBounds))
	is.True(runErr(t, sc, "play x") != nil)
	is.True(runErr(t, sc, "play") != nil)
}

func TestPlayFullColumn(t *testing.T) {
	sc := newTestShell(t)
	for i := 0; i < 6; i++ {
		run(t, sc, "play 0")
	}
	assert.ErrorIs(t, runErr(t, sc, "play 0"), connectn.ErrColumnFull)
}

func TestGameOver(t *testing.T) {
	is := is.New(t)
	sc := newTestShell(t)
	var out string
	for _, col := range []string{"0", "1", "0", "1", "0", "1", "0"} {
		out = run(t, sc, "play "+col)
	}
	is.True(bytes.Contains([]byte(out), []byte("game over: x (player 0) wins")))
	is.Equal(gameWinner(sc.board), 0)
	is.True(errors.Is(runErr(t, sc, "play 2"), errGameOver))
	is.True(errors.Is(runErr(t, sc, "search"), errGameOver))
	is.True(errors.Is(runErr(t, sc, "aiplay"), errGameOver))

	// Taking back the winning move reopens the game.
	run(t, sc, "undo")
	is.Equal(gameWinner(sc.board), -1)
	run(t, sc, "play 2")
}

func TestAIPlayBlocks(t *testing.T) {
	is := is.New(t)
	sc := newTestShell(t)
	for _, col := range []string{"0", "1", "0", "1", "0"} {
		run(t, sc, "play "+col)
	}
	out := run(t, sc, "aiplay -depth 2")
	is.True(bytes.Contains([]byte(out), []byte("played column 0")))
	is.Equal(sc.board.At(board.Pos(2, 0)), uint8(2))
	is.Equal(sc.solver.Options().MaxDepth, 2)
}

func TestSearchSettingsStick(t *testing.T) {
	is := is.New(t)
	sc := newTestShell(t)
	out := run(t, sc, "search -depth 2 -threads 1 -noprune true")
	is.True(bytes.Contains([]byte(out), []byte("best: column")))
	is.True(bytes.Contains([]byte(out), []byte("depth 2, threads 1, pruning false")))
	opts := sc.solver.Options()
	is.Equal(opts.MaxDepth, 2)
	is.Equal(opts.Threads, 1)
	is.True(!opts.Pruning)

	out = run(t, sc, "search -noprune false")
	is.True(bytes.Contains([]byte(out), []byte("depth 2, threads 1, pruning true")))
	// The board is untouched by a search.
	is.Equal(sc.board.MoveCount(), 0)

	is.True(errors.Is(runErr(t, sc, "search -depth 0"), search.ErrBadOptions))
}

func TestEncodeDecode(t *testing.T) {
	is := is.New(t)
	sc := newTestShell(t)
	for _, col := range []string{"3", "3", "2", "4", "6"} {
		run(t, sc, "play "+col)
	}
	want := sc.board.Copy()
	hex := run(t, sc, "encode")
	is.Equal(len(hex)%16, 0)

	run(t, sc, "new")
	is.Equal(sc.board.MoveCount(), 0)
	run(t, sc, "decode "+hex)
	is.True(sc.board.Equal(want))
	is.True(errors.Is(runErr(t, sc, "undo"), errNothingToDo))

	is.True(runErr(t, sc, "decode zz") != nil)
	is.True(errors.Is(runErr(t, sc, "decode 00ff"), packed.ErrBadHex))
	is.True(runErr(t, sc, "decode") != nil)
}

func TestNewGameOptions(t *testing.T) {
	is := is.New(t)
	sc := newTestShell(t)
	run(t, sc, "play 0")
	run(t, sc, "new -rows 4 -cols 5 -win 3 -players 3")
	is.Equal(sc.board.Config(), connectn.Config{Rows: 4, Cols: 5, WinLength: 3, Players: 3})
	is.Equal(sc.board.MoveCount(), 0)
	is.True(errors.Is(runErr(t, sc, "undo"), errNothingToDo))

	is.True(errors.Is(runErr(t, sc, "new -win 9"), connectn.ErrBadConfig))
	is.True(runErr(t, sc, "new -rows many") != nil)
	// A failed new keeps the old board.
	is.Equal(sc.board.Config().Players, 3)
}

func TestBrainCommand(t *testing.T) {
	sc := newTestShell(t)
	assert.Equal(t, "brain: heuristic", run(t, sc, "brain"))
	run(t, sc, "brain random")
	assert.Equal(t, "brain: random", run(t, sc, "brain"))
	assert.ErrorIs(t, runErr(t, sc, "brain nope"), brain.ErrUnknownBrain)
	assert.ErrorIs(t, runErr(t, sc, "brain onnx"), brain.ErrMissingPath)
	assert.Equal(t, "brain: random", run(t, sc, "brain"))
}

func TestBrainCommandRereadsWeights(t *testing.T) {
	sc := newTestShell(t)
	path := filepath.Join(t.TempDir(), "weights.yaml")
	write := func(scale int) {
		w := "own: [0, 2, 6, 30]\nopp: [0, -2, -8, -40]\ncenter: 1.0\nscale: " + strconv.Itoa(scale) + "\n"
		require.NoError(t, os.WriteFile(path, []byte(w), 0o644))
	}
	scale := func() float64 {
		return sc.solver.Brain().(*brain.Heuristic[score.Points]).Weights().Scale
	}
	write(50)
	run(t, sc, "brain heuristic "+path)
	assert.Equal(t, 50.0, scale())

	write(20)
	run(t, sc, "brain heuristic "+path)
	assert.Equal(t, 20.0, scale())
	assert.Equal(t, "brain: heuristic ("+path+")", run(t, sc, "brain"))
}

func TestHelp(t *testing.T) {
	sc := newTestShell(t)
	assert.Contains(t, run(t, sc, "help"), "Usage:")
	assert.Contains(t, run(t, sc, "help search"), "-noprune")
	assert.Contains(t, run(t, sc, "help nope"), "There is no help text for the topic nope")
}

func TestSettings(t *testing.T) {
	sc := newTestShell(t)
	assert.Contains(t, run(t, sc, "settings"), "search-depth: 3")
}

func TestUnknownCommand(t *testing.T) {
	sc := newTestShell(t)
	assert.Error(t, runErr(t, sc, "frobnicate"))
}

func TestHandleExit(t *testing.T) {
	is := is.New(t)
	sc := newTestShell(t)
	sig := make(chan os.Signal, 1)
	_, err := sc.handle("exit", sig)
	is.Equal(err, errQuit)
	is.Equal(<-sig, os.Signal(syscall.SIGINT))

	resp, err := sc.handle("show", sig)
	is.NoErr(err)
	is.True(bytes.Contains([]byte(resp.message), []byte("to move: x")))
}

func TestExecuteWritesOutput(t *testing.T) {
	sc := newTestShell(t)
	var buf bytes.Buffer
	sc.out = &buf
	sig := make(chan os.Signal, 1)
	sc.Execute(sig, "play 9")
	assert.Contains(t, buf.String(), "Error: ")
	buf.Reset()
	sc.Execute(sig, "play 1")
	assert.Contains(t, buf.String(), "to move: o")
}

func TestScript(t *testing.T) {
	is := is.New(t)
	sc := newTestShell(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "game.lua")
	lua := `
connectn_new("-rows 4 -cols 4 -win 3")
local r = connectn_play("1")
assert(string.find(r, "to move") ~= nil)
connectn_play("2")
r = connectn_play("9")
assert(string.sub(r, 1, 6) == "ERROR:")
r = connectn_aiplay("-depth 1")
assert(string.sub(r, 1, 6) ~= "ERROR:")
r = connectn_encode()
assert(string.len(r) == 16)
`
	is.NoErr(os.WriteFile(path, []byte(lua), 0o644))
	out := run(t, sc, "script "+path)
	is.Equal(out, "ran "+path)
	is.Equal(sc.board.Config().Rows, 4)
	is.Equal(sc.board.MoveCount(), 3)

	bad := filepath.Join(dir, "bad.lua")
	is.NoErr(os.WriteFile(bad, []byte(`assert(connectn_undo() == "nope")`), 0o644))
	is.True(runErr(t, sc, "script "+bad) != nil)
	is.True(runErr(t, sc, "script") != nil)
}

func TestAutoplayAndAnalyze(t *testing.T) {
	sc := newTestShell(t)
	run(t, sc, "new -rows 4 -cols 4 -win 3")
	logPath := filepath.Join(t.TempDir(), "match.yaml")
	out := run(t, sc, "autoplay -games 2 -depth0 1 -depth1 2 -threads 2 -log "+logPath)
	assert.Contains(t, out, "Games played: 2")
	assert.Contains(t, out, "seat0-depth1 wins:")
	assert.Contains(t, out, "seat1-depth2 wins:")

	summary := run(t, sc, "analyze "+logPath)
	assert.Equal(t, out, summary)
	assert.Error(t, runErr(t, sc, "analyze"))
}

func TestAutoplaySavedSeedsRepeat(t *testing.T) {
	sc := newTestShell(t)
	run(t, sc, "new -rows 4 -cols 5 -win 3")
	dir := t.TempDir()
	seedPath := filepath.Join(dir, "seeds.txt")
	first, second := filepath.Join(dir, "first.yaml"), filepath.Join(dir, "second.yaml")
	run(t, sc, "autoplay -games 3 -opening 3 -threads 1 -depth0 1 -depth1 1 -saveseeds "+seedPath+" -log "+first)
	seeds, err := automatic.LoadSeeds(seedPath)
	require.NoError(t, err)
	assert.Len(t, seeds, 3)

	run(t, sc, "autoplay -games 3 -opening 3 -threads 1 -depth0 1 -depth1 1 -seeds "+seedPath+" -log "+second)
	a, err := automatic.ReadGameLog(first)
	require.NoError(t, err)
	b, err := automatic.ReadGameLog(second)
	require.NoError(t, err)
	require.Len(t, a, 3)
	require.Len(t, b, 3)
	for i := range a {
		assert.Equal(t, a[i].Moves, b[i].Moves)
	}
}

func TestCompleter(t *testing.T) {
	is := is.New(t)
	sc := newTestShell(t)
	c := &ShellCompleter{sc: sc}

	matches, n := c.Do([]rune("se"), 2)
	is.Equal(n, 2)
	is.Equal(matches, [][]rune{[]rune("arch"), []rune("ttings")})

	line := []rune("search -d")
	matches, n = c.Do(line, len(line))
	is.Equal(n, 2)
	is.Equal(matches, [][]rune{[]rune("epth")})

	line = []rune("brain h")
	matches, _ = c.Do(line, len(line))
	is.Equal(matches, [][]rune{[]rune("euristic")})

	line = []rune("search -noprune ")
	matches, n = c.Do(line, len(line))
	is.Equal(n, 0)
	is.Equal(len(matches), 2)

	for i := 0; i < 6; i++ {
		run(t, sc, "play 0")
	}
	line = []rune("play ")
	matches, _ = c.Do(line, len(line))
	is.Equal(len(matches), 6)
	is.Equal(string(matches[0]), "1")
}
