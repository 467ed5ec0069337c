// Package config loads settings from defaults, an optional YAML file,
// CONNECTN_ environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/MiguelVeganzones/NeuralGenE-sub000/brain"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/connectn"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/search"
)

const (
	ConfigDebug                = "debug"
	ConfigConfigFile           = "config-file"
	ConfigBoardRows            = "board-rows"
	ConfigBoardCols            = "board-cols"
	ConfigWinLength            = "win-length"
	ConfigNumPlayers           = "num-players"
	ConfigSearchDepth          = "search-depth"
	ConfigSearchThreads        = "search-threads"
	ConfigSearchDisablePruning = "search-disable-pruning"
	ConfigTTableMemoryFraction = "ttable-memory-fraction"
	ConfigBrain                = "brain"
	ConfigBrainPath            = "brain-path"
	ConfigCPUProfile           = "cpu-profile"
	envPrefix                  = "connectn"
)

type Config struct {
	*viper.Viper
	args []string
}

// DefaultConfig has every setting at its default value.
func DefaultConfig() Config {
	c := Config{Viper: viper.New()}
	c.setDefaults()
	return c
}

func (c *Config) setDefaults() {
	classic := connectn.ClassicConfig()
	opts := search.DefaultOptions()
	c.SetDefault(ConfigDebug, false)
	c.SetDefault(ConfigConfigFile, "")
	c.SetDefault(ConfigBoardRows, classic.Rows)
	c.SetDefault(ConfigBoardCols, classic.Cols)
	c.SetDefault(ConfigWinLength, classic.WinLength)
	c.SetDefault(ConfigNumPlayers, classic.Players)
	c.SetDefault(ConfigSearchDepth, opts.MaxDepth)
	c.SetDefault(ConfigSearchThreads, runtime.NumCPU())
	c.SetDefault(ConfigSearchDisablePruning, !opts.Pruning)
	c.SetDefault(ConfigTTableMemoryFraction, opts.TTMemoryFraction)
	c.SetDefault(ConfigBrain, brain.NameHeuristic)
	c.SetDefault(ConfigBrainPath, "")
	c.SetDefault(ConfigCPUProfile, "")
}

func flagSet() *pflag.FlagSet {
	classic := connectn.ClassicConfig()
	opts := search.DefaultOptions()
	fs := pflag.NewFlagSet("connectn", pflag.ContinueOnError)
	// Everything after the first positional argument is a shell command.
	fs.SetInterspersed(false)
	fs.Bool(ConfigDebug, false, "debug logging on")
	fs.String(ConfigConfigFile, "", "optional YAML file with any of these settings")
	fs.Int(ConfigBoardRows, classic.Rows, "board rows")
	fs.Int(ConfigBoardCols, classic.Cols, "board columns")
	fs.Int(ConfigWinLength, classic.WinLength, "pieces in a row needed to win")
	fs.Int(ConfigNumPlayers, classic.Players, "number of players")
	fs.Int(ConfigSearchDepth, opts.MaxDepth, "plies searched before the brain scores a position")
	fs.Int(ConfigSearchThreads, runtime.NumCPU(), "root moves searched in parallel")
	fs.Bool(ConfigSearchDisablePruning, !opts.Pruning, "use the full-width search instead of alpha-beta")
	fs.Float64(ConfigTTableMemoryFraction, opts.TTMemoryFraction, "fraction of system memory the transposition table may use, 0 for no cap")
	fs.String(ConfigBrain, brain.NameHeuristic, "evaluation brain: "+strings.Join(brain.Names, ", "))
	fs.String(ConfigBrainPath, "", "weights file for the heuristic brain or model file for the onnx brain")
	fs.String(ConfigCPUProfile, "", "write a cpu profile to this file")
	return fs
}

// Load reads args, the environment and the optional config file.
func (c *Config) Load(args []string) error {
	c.Viper = viper.New()
	c.setDefaults()

	fs := flagSet()
	if err := fs.Parse(args); err != nil {
		return err
	}
	c.args = fs.Args()
	c.SetEnvPrefix(envPrefix)
	c.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.AutomaticEnv()
	if err := c.BindPFlags(fs); err != nil {
		return err
	}
	if path := c.GetString(ConfigConfigFile); path != "" {
		c.SetConfigFile(path)
		c.SetConfigType("yaml")
		if err := c.ReadInConfig(); err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
	}
	return c.Validate()
}

// Args returns the positional arguments left after flag parsing.
func (c *Config) Args() []string {
	return c.args
}

func (c *Config) Validate() error {
	if err := c.BoardConfig().Validate(); err != nil {
		return err
	}
	return c.SearchOptions().Validate()
}

func (c *Config) BoardConfig() connectn.Config {
	return connectn.Config{
		Rows:      c.GetInt(ConfigBoardRows),
		Cols:      c.GetInt(ConfigBoardCols),
		WinLength: c.GetInt(ConfigWinLength),
		Players:   c.GetInt(ConfigNumPlayers),
	}
}

func (c *Config) SearchOptions() search.Options {
	return search.Options{
		MaxDepth:         c.GetInt(ConfigSearchDepth),
		Threads:          c.GetInt(ConfigSearchThreads),
		Pruning:          !c.GetBool(ConfigSearchDisablePruning),
		TTMemoryFraction: c.GetFloat64(ConfigTTableMemoryFraction),
	}
}

// Dump renders every setting as YAML.
func (c *Config) Dump() (string, error) {
	bts, err := yaml.Marshal(c.AllSettings())
	if err != nil {
		return "", err
	}
	return string(bts), nil
}
