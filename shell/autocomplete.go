package shell

import (
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/samber/lo"

	"github.com/MiguelVeganzones/NeuralGenE-sub000/brain"
)

// ShellCompleter provides context-aware autocomplete for shell commands
type ShellCompleter struct {
	sc *ShellController
}

// CommandMetadata holds autocomplete information for a command
type CommandMetadata struct {
	Options []string // e.g. "-depth", "-threads"
	Args    []string // values for non-option arguments
}

var commandMetadata = map[string]CommandMetadata{
	"new": {
		Options: []string{"-rows", "-cols", "-win", "-players"},
	},
	"brain": {
		Args: brain.Names,
	},
	"search": {
		Options: []string{"-depth", "-threads", "-noprune"},
	},
	"aiplay": {
		Options: []string{"-depth", "-threads", "-noprune"},
	},
	"autoplay": {
		Options: []string{"-games", "-depth0", "-depth1", "-threads", "-opening", "-seeds", "-saveseeds", "-log"},
	},
	"help": {
		Args: []string{"new", "play", "brain", "search", "aiplay", "decode", "autoplay", "script"},
	},
}

var commandNames = []string{
	"help", "new", "show", "play", "undo", "brain", "search", "aiplay",
	"encode", "decode", "autoplay", "analyze", "settings", "script", "exit",
}

var boolValues = []string{"true", "false"}

// columnArgs lists the columns that still have room.
func (c *ShellCompleter) columnArgs() []string {
	if c.sc == nil || c.sc.board == nil {
		return nil
	}
	var cols []string
	for i, p := range c.sc.board.ValidMoves() {
		if p.Valid() {
			cols = append(cols, strconv.Itoa(i))
		}
	}
	return cols
}

// Do implements the readline.AutoCompleter interface
func (c *ShellCompleter) Do(line []rune, pos int) ([][]rune, int) {
	text := string(line[:pos])

	fields, err := shellquote.Split(text)
	if err != nil {
		fields = strings.Fields(text)
	}
	endsWithSpace := len(text) > 0 && text[len(text)-1] == ' '

	var prefix string
	var completions []string

	if len(fields) == 0 || (len(fields) == 1 && !endsWithSpace) {
		if len(fields) == 1 {
			prefix = fields[0]
		}
		completions = commandNames
	} else {
		cmdName := fields[0]
		if !endsWithSpace {
			prefix = fields[len(fields)-1]
		}

		var lastCompleteField string
		if endsWithSpace {
			lastCompleteField = fields[len(fields)-1]
		} else if len(fields) > 1 {
			lastCompleteField = fields[len(fields)-2]
		}

		if lastCompleteField == "-noprune" {
			completions = boolValues
		}
		if cmdName == "play" && completions == nil {
			completions = c.columnArgs()
		}
		if completions == nil {
			if metadata, exists := commandMetadata[cmdName]; exists {
				if strings.HasPrefix(prefix, "-") || len(metadata.Args) == 0 {
					completions = metadata.Options
				} else {
					completions = metadata.Args
				}
			}
		}
	}

	matches := lo.FilterMap(completions, func(completion string, _ int) ([]rune, bool) {
		if !strings.HasPrefix(completion, prefix) {
			return nil, false
		}
		// only the part still to be typed
		return []rune(completion[len(prefix):]), true
	})
	return matches, len(prefix)
}
