package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"lukechampine.com/frand"

	"github.com/flickyourselfon/railhint/bench"
	"github.com/flickyourselfon/railhint/benchdb"
	"github.com/flickyourselfon/railhint/config"
	"github.com/flickyourselfon/railhint/levelfile"
	"github.com/flickyourselfon/railhint/levelgen"
)

func setupLogging(debug bool) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	output.FormatLevel = func(i interface{}) string {
		return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
	}
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(output).Level(level).With().Timestamp().Logger()
}

func loadLevels(cfg *config.Config, seed uint64) ([]*levelfile.Built, string, error) {
	if n := cfg.GetInt(config.ConfigBenchRandomLevels); n > 0 {
		g := levelgen.NewSeeded(levelgen.SeedFromUint64(seed))
		built, err := levelfile.BuildAll(g.File(n, levelgen.DefaultOptions()), levelfile.BuildOptions{})
		return built, fmt.Sprintf("generated:%d:%d", n, seed), err
	}
	path := cfg.GetString(config.ConfigLevelsPath)
	built, err := levelfile.Get(cfg, path)
	return built, path, err
}

func main() {
	cfg := config.DefaultConfig()
	if _, err := cfg.Load(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	setupLogging(cfg.GetBool(config.ConfigDebug))

	if p := cfg.GetString(config.ConfigCPUProfile); p != "" {
		f, err := os.Create(p)
		if err != nil {
			log.Fatal().Err(err).Msg("could-not-create-cpu-profile")
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal().Err(err).Msg("could-not-start-cpu-profile")
		}
		defer pprof.StopCPUProfile()
	}

	seed := cfg.GetUint64(config.ConfigBenchSeed)
	if seed == 0 {
		seed = frand.Uint64n(1<<63) + 1
	}
	built, source, err := loadLevels(cfg, seed)
	if err != nil {
		log.Error().Err(err).Msg("could-not-load-levels")
		return
	}
	for _, b := range built {
		b.Level.LogStats()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := bench.Options{
		Workers:        cfg.GetInt(config.ConfigBenchWorkers),
		StatesPerLevel: cfg.GetInt(config.ConfigBenchStates),
		Seed:           seed,
		Search:         cfg.SearchOptions(),
		SearchTimeout:  cfg.SearchTimeout(),
	}
	log.Info().Str("levels", source).Int("workers", opts.Workers).Int("states-per-level", opts.StatesPerLevel).
		Uint64("seed", seed).Str("hash-mode", opts.Search.HashMode).Msg("bench-starting")
	report, err := bench.Run(ctx, built, opts)
	if err != nil {
		log.Error().Err(err).Msg("bench-failed")
		return
	}
	if err := report.Fprint(os.Stdout); err != nil {
		log.Error().Err(err).Msg("could-not-print-report")
	}

	if path := cfg.GetString(config.ConfigBenchDB); path != "" {
		db, err := benchdb.Open(path)
		if err != nil {
			log.Error().Err(err).Msg("could-not-open-bench-db")
			return
		}
		defer db.Close()
		id, err := report.Record(ctx, db, benchdb.Run{
			LevelsPath: source,
			HashMode:   opts.Search.HashMode,
			Workers:    opts.Workers,
		})
		if err != nil {
			log.Error().Err(err).Msg("could-not-record-run")
			return
		}
		log.Info().Int64("run", id).Str("db", path).Msg("bench-recorded")
	}
}
