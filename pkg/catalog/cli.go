package catalog

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

// ExitCatalogError is the process exit code for catalogs that fail to load
const ExitCatalogError = 2

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "Inspect feed catalogs without touching the network",
		Subcommands: []*cli.Command{
			{
				Name:  "lint",
				Usage: "Check catalog structure and feed references",
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
				},
				Action: func(c *cli.Context) error {
					staticFeeds, realtimeFeeds, err := LoadFiles(c.String("static"), c.String("realtime"))
					if err != nil {
						return cli.Exit(fmt.Sprintf("catalog error: %v", err), ExitCatalogError)
					}

					log.Info().
						Int("static", len(staticFeeds)).
						Int("realtime", len(realtimeFeeds)).
						Msg("Catalogs are valid")

					_, err = fmt.Fprintf(c.App.Writer, "ok: %d static feeds, %d realtime updaters\n", len(staticFeeds), len(realtimeFeeds))
					return err
				},
			},
		},
	}
}
