package feedcheck

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/kr/pretty"
	"github.com/rs/zerolog/log"
	"github.com/travigo/feedcheck/pkg/catalog"
	"github.com/travigo/feedcheck/pkg/checker"
	"github.com/travigo/feedcheck/pkg/config"
	"github.com/travigo/feedcheck/pkg/filter"
	"github.com/travigo/feedcheck/pkg/linkcache"
	"github.com/travigo/feedcheck/pkg/orchestrator"
	"github.com/travigo/feedcheck/pkg/probe"
	"github.com/travigo/feedcheck/pkg/redis_client"
	"github.com/travigo/feedcheck/pkg/report"
	"github.com/urfave/cli/v2"
)

// Version is set at build time with -ldflags "-X github.com/travigo/feedcheck/pkg/feedcheck.Version=..."
var Version = "dev"

// Process exit codes
const (
	ExitPassed = 0
	ExitFailed = 1
	ExitUsage  = 2
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Validate every static and realtime feed in the catalogs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "static",
				Usage:    "Path to the static GTFS catalog",
				EnvVars:  []string{"FEEDCHECK_STATIC_CATALOG"},
				Required: true,
			},
			&cli.StringFlag{
				Name:     "realtime",
				Usage:    "Path to the realtime updater catalog",
				EnvVars:  []string{"FEEDCHECK_REALTIME_CATALOG"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to a YAML validation policy",
				EnvVars: []string{"FEEDCHECK_CONFIG"},
			},
			&cli.IntFlag{
				Name:    "concurrency",
				Usage:   "Maximum number of entries validated at once",
				EnvVars: []string{"FEEDCHECK_CONCURRENCY"},
			},
			&cli.DurationFlag{
				Name:    "deadline",
				Usage:   "Overall time limit for the run, unfinished entries time out",
				EnvVars: []string{"FEEDCHECK_DEADLINE"},
			},
			&cli.StringFlag{
				Name:    "format",
				Usage:   "Report format: json, text or markdown",
				Value:   string(report.FormatText),
				EnvVars: []string{"FEEDCHECK_REPORT_FORMAT"},
			},
			&cli.BoolFlag{
				Name:  "detailed",
				Usage: "Include every check in the report",
			},
			&cli.StringFlag{
				Name:  "output",
				Usage: "Write the report to a file instead of stdout",
			},
			&cli.StringFlag{
				Name:  "filter",
				Usage: `Only validate entries matching an expression, e.g. 'Kind == "realtime"'`,
			},
			&cli.BoolFlag{
				Name:  "reference-cache",
				Usage: "Cache reachable reference links in Redis (FEEDCHECK_REDIS_*)",
			},
		},
		Action: runValidate,
	}
}

func runValidate(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), ExitUsage)
	}
	if c.IsSet("concurrency") {
		cfg.Concurrency = c.Int("concurrency")
	}
	if c.IsSet("deadline") {
		cfg.Deadline = c.Duration("deadline")
	}
	if c.IsSet("reference-cache") {
		cfg.ReferenceCache.Enabled = c.Bool("reference-cache")
	}
	if err := cfg.Validate(); err != nil {
		return cli.Exit(err.Error(), ExitUsage)
	}

	format, err := report.ParseFormat(c.String("format"))
	if err != nil {
		return cli.Exit(err.Error(), ExitUsage)
	}

	entryFilter, err := filter.Compile(c.String("filter"))
	if err != nil {
		return cli.Exit(err.Error(), ExitUsage)
	}

	staticFeeds, realtimeFeeds, err := catalog.LoadFiles(c.String("static"), c.String("realtime"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("catalog error: %v", err), ExitUsage)
	}

	if entryFilter != nil {
		log.Debug().Str("filter", entryFilter.String()).Msg("Filtering catalog entries")
	}
	if staticFeeds, err = entryFilter.Static(staticFeeds); err != nil {
		return cli.Exit(err.Error(), ExitUsage)
	}
	if realtimeFeeds, err = entryFilter.Realtime(realtimeFeeds); err != nil {
		return cli.Exit(err.Error(), ExitUsage)
	}

	if e := log.Debug(); e.Enabled() {
		e.Msgf("Effective config %# v", pretty.Formatter(cfg))
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var references checker.ReferenceCache
	if cfg.ReferenceCache.Enabled {
		if err := redis_client.Connect(ctx); err != nil {
			log.Warn().Err(err).Msg("Reference link cache disabled")
		} else {
			defer redis_client.Close()
			references = linkcache.New(redis_client.Client, cfg.ReferenceCache.TTL)
		}
	}

	validationReport := orchestrator.Run(
		ctx,
		probe.New(cfg.ProbePolicy(Version), nil),
		staticFeeds,
		realtimeFeeds,
		cfg.OrchestratorOptions(references),
	)

	var output io.Writer = c.App.Writer
	if path := c.String("output"); path != "" {
		file, err := os.Create(path)
		if err != nil {
			return cli.Exit(fmt.Sprintf("create report file: %v", err), ExitUsage)
		}
		defer file.Close()
		output = file
	}

	if err := report.Write(output, validationReport, format, c.Bool("detailed")); err != nil {
		return err
	}

	if !validationReport.AllPassed {
		return cli.Exit(fmt.Sprintf("validation failed: %d of %d entries", len(validationReport.Failed()), len(validationReport.Records)), ExitFailed)
	}

	return nil
}
