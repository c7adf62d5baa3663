package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/richard-senior/footcast/internal/logger"
	"github.com/richard-senior/footcast/pkg/footcast"
)

const usage = `usage: footcast [flags] [run|download]

  run       train the models on historical seasons and score upcoming fixtures (default)
  download  fetch recent season files from football-data.co.uk into the raw directory

flags override the environment and .env:
`

func main() {
	envFile := flag.String("env", ".env", "Env file to load before reading the environment")
	debug := flag.Bool("debug", false, "Enable debug logging")
	logFile := flag.Bool("log-file", false, "Also write logs to /tmp/footcast.log")
	defineOverrides(flag.CommandLine)
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := footcast.LoadConfig(*envFile)
	if err != nil {
		logger.Fatal("Invalid configuration", err)
	}

	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))
	if *debug {
		logger.SetLevel(logger.DEBUG)
	}
	logger.SetShowDateTime(true)
	if *logFile {
		if err := logger.SetLogOutput('b'); err != nil {
			logger.Warn("Could not open log file", err)
		}
	}

	applyOverrides(flag.CommandLine, cfg)
	if err := footcast.ValidateConfig(cfg); err != nil {
		logger.Fatal("Invalid configuration", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command := "run"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	switch command {
	case "run":
		err = run(ctx, cfg)
	case "download":
		err = download(ctx, cfg)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		stop()
		reportAndExit(err)
	}
}

// defineOverrides registers the flags that replace configuration values
func defineOverrides(fs *flag.FlagSet) {
	fs.String("raw-dir", "", "Directory holding season csv files")
	fs.String("db", "", "Sqlite database path, 'none' disables persistence")
	fs.String("output", "", "Predictions csv path")
	fs.Int("val-season", 0, "Validation season tag, e.g. 2024 for 2023/2024, 0 picks automatically")
	fs.Int("test-season", 0, "Test season tag, 0 picks automatically")
	fs.Int64("seed", 0, "Random seed for the neural models")
	fs.String("metrics-file", "", "Write prometheus metrics to this textfile")
}

// applyOverrides copies explicitly set flags onto cfg, zero values included.
// Flags left unset keep the value from the environment.
func applyOverrides(fs *flag.FlagSet, cfg *footcast.Config) {
	fs.Visit(func(f *flag.Flag) {
		v := f.Value.(flag.Getter).Get()
		switch f.Name {
		case "raw-dir":
			cfg.RawDir = v.(string)
		case "db":
			cfg.DbPath = v.(string)
		case "output":
			cfg.OutputPath = v.(string)
		case "val-season":
			cfg.ValSeason = v.(int)
		case "test-season":
			cfg.TestSeason = v.(int)
		case "seed":
			cfg.Seed = v.(int64)
		case "metrics-file":
			cfg.MetricsTextfile = v.(string)
		}
	})
	if strings.EqualFold(cfg.DbPath, "none") {
		cfg.DbPath = ""
	}
}

func run(ctx context.Context, cfg *footcast.Config) error {
	var store *footcast.Store
	if cfg.DbPath != "" {
		s, err := footcast.OpenStore(ctx, cfg.DbPath)
		if err != nil {
			return err
		}
		defer s.Close()
		store = s
	}

	aliases, err := footcast.LoadAliases(cfg.TeamAliasesPath)
	if err != nil {
		return err
	}
	var fixtures footcast.FixtureSource
	if cfg.HasLiveFeed() {
		fixtures = footcast.NewLiveClient(footcast.NewHTTPClient(cfg), cfg.BaseURL, cfg.APIKey, cfg.Competition)
	} else {
		logger.Info("No API key set, fixtures will not be scored")
	}

	result, err := footcast.NewPipeline(cfg, store, fixtures, aliases).Run(ctx)
	if err != nil {
		return err
	}
	for _, r := range result.Results {
		fmt.Printf("%-11s test accuracy=%.4f macro_f1=%.4f log_loss=%.4f brier=%.4f\n",
			r.Name, r.Test.Accuracy, r.Test.MacroF1, r.Test.LogLoss, r.Test.Brier)
	}
	fmt.Printf("best model: %s\n", result.Best)
	if result.Predictions != nil {
		fmt.Printf("saved %d predictions -> %s\n", len(result.Predictions), cfg.OutputPath)
	}
	return nil
}

func download(ctx context.Context, cfg *footcast.Config) error {
	files, err := footcast.Download(ctx, cfg, footcast.NewHTTPClient(cfg))
	if err != nil {
		return err
	}
	for _, f := range files {
		fmt.Println(f)
	}
	return nil
}

func reportAndExit(err error) {
	switch {
	case errors.Is(err, footcast.ErrNoHistoricalFiles):
		logger.Error("No season files found, run 'footcast download' or copy E0.csv style files into the raw directory", err)
	case errors.Is(err, footcast.ErrNoUsableSchema):
		logger.Error("Season files found but none has Date, HomeTeam, AwayTeam and FTR columns", err)
	case errors.Is(err, footcast.ErrMissingFeatureColumn):
		logger.Error("Fixture features do not cover the trained columns", err)
	case errors.Is(err, footcast.ErrMalformedProba):
		logger.Error("Model produced an invalid probability matrix", err)
	default:
		logger.Error("footcast failed", err)
	}
	os.Exit(1)
}
