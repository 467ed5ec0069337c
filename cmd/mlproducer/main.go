// mlproducer turns match logs written by autoplay into training vectors
// for the onnx brain. Vectors go to stdout as little-endian float32s, one
// position per vector, with the outcome for the player to move last.
//
//	mlproducer --board-rows 6 --board-cols 7 match1.yaml match2.yaml > train.bin
package main

import (
	"bufio"
	"os"
	"runtime"
	"strconv"
	"sync"

	"github.com/cespare/xxhash"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/MiguelVeganzones/NeuralGenE-sub000/automatic"
	"github.com/MiguelVeganzones/NeuralGenE-sub000/config"
)

func main() {
	cfg := &config.Config{}
	if err := cfg.Load(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("bad-config")
	}

	var logger zerolog.Logger
	if cfg.GetBool(config.ConfigDebug) {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		logger = zerolog.New(os.Stderr).Level(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		logger = zerolog.New(os.Stderr).Level(zerolog.InfoLevel)
	}
	zerolog.DefaultContextLogger = &logger
	log.Logger = logger
	logger.Debug().Msg("Debug logging is on")

	boardCfg := cfg.BoardConfig()
	files := cfg.Args()
	if len(files) == 0 {
		log.Fatal().Msg("usage: mlproducer [flags] <match-log.yaml>...")
	}

	const bufSize = 1 << 20 // 1 MiB buffered stdout
	const flushEvery = 1000 // emit 1 000 vectors → flush

	out := bufio.NewWriterSize(os.Stdout, bufSize)
	emitted := 0

	numWorkers := runtime.NumCPU()
	log.Info().Msgf("Using %d workers, vector length %d", numWorkers, automatic.VectorLen(boardCfg))
	jobChans := make([]chan automatic.GameRecord, numWorkers)
	resultsChan := make(chan []float32, numWorkers)
	var workersWg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		jobChans[i] = make(chan automatic.GameRecord, 128)
		workersWg.Add(1)
		go func(jobChan <-chan automatic.GameRecord) {
			defer workersWg.Done()
			for rec := range jobChan {
				vecs, err := automatic.TrainingVectors(boardCfg, rec)
				if err != nil {
					log.Err(err).Int("game", rec.Game).Msg("skipping-game")
					continue
				}
				for _, vec := range vecs {
					resultsChan <- vec
				}
			}
		}(jobChans[i])
	}
	// Closer goroutine
	go func() {
		workersWg.Wait()
		close(resultsChan)
	}()

	// Dispatcher goroutine. Games are spread by file and game number.
	go func() {
		for _, path := range files {
			records, err := automatic.ReadGameLog(path)
			if err != nil {
				log.Err(err).Str("path", path).Msg("skipping-log")
				continue
			}
			for _, rec := range records {
				hash := xxhash.Sum64String(path + ":" + strconv.Itoa(rec.Game))
				jobChans[hash%uint64(numWorkers)] <- rec
			}
			log.Info().Str("path", path).Int("games", len(records)).Msg("dispatched-log")
		}
		for _, ch := range jobChans {
			close(ch)
		}
	}()

	for vec := range resultsChan {
		if err := automatic.WriteMLVector(out, vec); err != nil {
			log.Fatal().Err(err).Msg("write-failed")
		}
		emitted++
		if emitted%flushEvery == 0 {
			if err := out.Flush(); err != nil {
				log.Fatal().Err(err).Msg("flush-failed")
			}
		}
		if emitted%100000 == 0 {
			log.Info().Msgf("Emitted %d vectors", emitted)
		}
	}
	if err := out.Flush(); err != nil {
		log.Fatal().Err(err).Msg("flush-failed")
	}
	log.Info().Msgf("Finished processing games, emitted %d vectors", emitted)
}
