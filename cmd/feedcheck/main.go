package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/travigo/feedcheck/pkg/catalog"
	"github.com/travigo/feedcheck/pkg/feedcheck"
	"github.com/travigo/feedcheck/pkg/util"
	"github.com/urfave/cli/v2"
)

func main() {
	// Logs go to stderr, stdout carries the report
	if util.GetEnvironmentVariable("FEEDCHECK_LOG_FORMAT", "CONSOLE") != "JSON" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		log.Logger = log.Output(os.Stderr)
	}

	if util.GetEnvironmentVariable("FEEDCHECK_DEBUG", "NO") == "YES" {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	app := &cli.App{
		Name:        "feedcheck",
		Usage:       "Validate GTFS and GTFS-Realtime feed catalogs before deployment",
		Version:     feedcheck.Version,
		Description: "Exits 0 when every feed passed, 1 when validation failed and 2 on catalog or usage errors",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("debug") {
				log.Logger = log.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
		Commands: []*cli.Command{
			feedcheck.RegisterCLI(),
			catalog.RegisterCLI(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Error().Err(err).Send()
		os.Exit(feedcheck.ExitUsage)
	}
}
