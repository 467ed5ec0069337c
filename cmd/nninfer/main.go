// nninfer scores boards with an onnx model. Each line of stdin is a board
// as printed by the shell's encode command.
//
//	echo 0000000000000000 | nninfer --brain-path model.onnx
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/MiguelVeganzones/NeuralGenE-sub000/brain"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/config"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/connectn"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/packed"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/score"
)

func main() {
	cfg := &config.Config{}
	if err := cfg.Load(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("bad-config")
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	path := cfg.GetString(config.ConfigBrainPath)
	if path == "" {
		log.Fatal().Msg("--brain-path must name an onnx model")
	}
	model, err := brain.LoadONNX[score.Points](path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed-to-load-model")
	}
	boardCfg := cfg.BoardConfig()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		k, err := packed.ParseHex(line)
		if err != nil {
			log.Err(err).Str("line", line).Msg("bad-board")
			continue
		}
		b, err := connectn.Decode(boardCfg, k)
		if err != nil {
			log.Err(err).Str("line", line).Msg("bad-board")
			continue
		}
		v, err := model.Infer(b, b.CurrentPlayer())
		if err != nil {
			log.Fatal().Err(err).Msg("failed-to-run-inference")
		}
		fmt.Printf("%s %+.4f\n", line, v)
	}
	if err := scanner.Err(); err != nil {
		log.Fatal().Err(err).Msg("reading-stdin")
	}
}
