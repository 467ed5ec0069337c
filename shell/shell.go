package shell

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"

	"github.com/MiguelVeganzones/NeuralGenE-sub000/board"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/brain"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/config"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/connectn"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/score"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/search"
)

var (
	errNoData            = errors.New("no data in this line")
	errWrongOptionSyntax = errors.New("wrong format; all options need arguments")
	errQuit              = errors.New("sending quit signal")
)

type shellcmd struct {
	cmd     string
	args    []string
	options CmdOptions
}

// extractFields splits a line into a command, its positional arguments and
// its -key value options.
func extractFields(line string) (*shellcmd, error) {
	fields, err := shellquote.Split(line)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, errNoData
	}
	var args []string
	options := CmdOptions{}
	for i := 1; i < len(fields); i++ {
		if strings.HasPrefix(fields[i], "-") {
			if i == len(fields)-1 {
				return nil, errWrongOptionSyntax
			}
			key := strings.TrimPrefix(fields[i], "-")
			options[key] = append(options[key], fields[i+1])
			i++
			continue
		}
		args = append(args, fields[i])
	}
	return &shellcmd{cmd: fields[0], args: args, options: options}, nil
}

type ShellController struct {
	l      *readline.Instance
	out    io.Writer
	config *config.Config

	board *connectn.Board
	// moves played since the last new or decode, for undo.
	history []board.Position

	brainName string
	brainPath string
	solver    *search.Solver[score.Points]
}

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func writeln(msg string, w io.Writer) {
	io.WriteString(w, msg)
	io.WriteString(w, "\n")
}

func (sc *ShellController) showMessage(msg string) {
	writeln(msg, sc.out)
}

func (sc *ShellController) showError(err error) {
	sc.showMessage("Error: " + err.Error())
}

// newShellController sets up the game and solver without a terminal.
func newShellController(cfg *config.Config, out io.Writer) (*ShellController, error) {
	b, err := connectn.NewBoard(cfg.BoardConfig())
	if err != nil {
		return nil, err
	}
	name, path := cfg.GetString(config.ConfigBrain), cfg.GetString(config.ConfigBrainPath)
	br, err := brain.ByName[score.Points](name, path)
	if err != nil {
		return nil, err
	}
	solver, err := search.NewSolver(br, cfg.SearchOptions())
	if err != nil {
		return nil, err
	}
	return &ShellController{
		out:       out,
		config:    cfg,
		board:     b,
		brainName: name,
		brainPath: path,
		solver:    solver,
	}, nil
}

func NewShellController(cfg *config.Config) (*ShellController, error) {
	sc, err := newShellController(cfg, os.Stderr)
	if err != nil {
		return nil, err
	}
	l, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[31mconnectn>\033[0m ",
		HistoryFile:     filepath.Join(os.TempDir(), "connectn_readline.tmp"),
		EOFPrompt:       "exit",
		InterruptPrompt: "^C",
		AutoComplete:    &ShellCompleter{sc: sc},

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		return nil, err
	}
	sc.l = l
	sc.out = l.Stderr()
	return sc, nil
}

// handle runs one line. exit is only understood here, so that scripts
// cannot end the shell.
func (sc *ShellController) handle(line string, sig chan os.Signal) (*Response, error) {
	cmd, err := extractFields(line)
	if err != nil {
		return nil, err
	}
	if cmd.cmd == "exit" || cmd.cmd == "bye" {
		sig <- syscall.SIGINT
		return nil, errQuit
	}
	return sc.command(cmd)
}

func (sc *ShellController) command(cmd *shellcmd) (*Response, error) {
	switch cmd.cmd {
	case "help":
		return sc.help(cmd)
	case "new":
		return sc.newGame(cmd)
	case "show", "s":
		return sc.show(cmd)
	case "play", "p":
		return sc.play(cmd)
	case "undo", "u":
		return sc.undo(cmd)
	case "brain":
		return sc.setBrain(cmd)
	case "search":
		return sc.search(cmd)
	case "aiplay", "ai":
		return sc.aiplay(cmd)
	case "encode":
		return sc.encode(cmd)
	case "decode":
		return sc.decode(cmd)
	case "autoplay":
		return sc.autoplay(cmd)
	case "analyze":
		return sc.analyze(cmd)
	case "settings":
		return sc.settings(cmd)
	case "script":
		return sc.script(cmd)
	}
	log.Debug().Str("cmd", cmd.cmd).Msg("unknown-command")
	return nil, errors.New("command " + cmd.cmd + " not found; try help")
}

// Execute runs a single command, as given on the command line.
func (sc *ShellController) Execute(sig chan os.Signal, line string) {
	resp, err := sc.handle(line, sig)
	if err == errQuit {
		return
	}
	if err != nil {
		sc.showError(err)
		return
	}
	if resp != nil {
		sc.showMessage(resp.message)
	}
}

func (sc *ShellController) Loop(sig chan os.Signal) {
	defer sc.l.Close()

	for {
		line, err := sc.l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				sig <- syscall.SIGINT
				break
			} else {
				continue
			}
		} else if err == io.EOF {
			sig <- syscall.SIGINT
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		resp, err := sc.handle(line, sig)
		if err == errQuit {
			break
		}
		if err != nil {
			sc.showError(err)
		} else if resp != nil {
			sc.showMessage(resp.message)
		}
	}
	log.Debug().Msgf("Exiting readline loop...")
}

func (sc *ShellController) Cleanup() {
	log.Info().
		Int("moves", sc.board.MoveCount()).
		Str("brain", sc.brainName).
		Msg("shell-cleanup")
}
