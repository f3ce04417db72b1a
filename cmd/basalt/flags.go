package main

import (
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/basalt/internal/logger"
)

var (
	dtypeName string
	vocab     int64
	heads     int64
	kvHeads   int64
	headDim   int64
	seed      int64
	logLevel  string
	logFormat string
	debug     bool
)

func commonModelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "dtype",
			Aliases:     []string{"d"},
			Usage:       "storage dtype (f32, f16, bf16)",
			Value:       "f32",
			Destination: &dtypeName,
		},
		&cli.Int64Flag{
			Name:        "vocab",
			Usage:       "toy vocabulary size",
			Value:       64,
			Destination: &vocab,
		},
		&cli.Int64Flag{
			Name:        "heads",
			Usage:       "query head count",
			Value:       4,
			Destination: &heads,
		},
		&cli.Int64Flag{
			Name:        "kv-heads",
			Usage:       "key/value head count (must divide --heads)",
			Value:       2,
			Destination: &kvHeads,
		},
		&cli.Int64Flag{
			Name:        "head-dim",
			Usage:       "per-head feature width (must be even)",
			Value:       8,
			Destination: &headDim,
		},
		&cli.Int64Flag{
			Name:        "seed",
			Usage:       "weight init seed",
			Value:       42,
			Destination: &seed,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

func newLogger() logger.Logger {
	level := logger.ParseLevel(logLevel)
	if debug {
		level = slog.LevelDebug
	}
	switch logFormat {
	case "json":
		return logger.JSON(os.Stderr, level)
	case "text":
		return logger.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	default:
		return logger.Pretty(os.Stderr, level)
	}
}
