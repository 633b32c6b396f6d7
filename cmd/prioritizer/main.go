// cmd/prioritizer/main.go
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/vector-priority/internal/config"
	"github.com/andresuchdata/vector-priority/internal/feeds"
	"github.com/andresuchdata/vector-priority/internal/pipeline"
	"github.com/andresuchdata/vector-priority/internal/pipeline/priority"
	"github.com/andresuchdata/vector-priority/internal/report"
	"github.com/andresuchdata/vector-priority/internal/storage"
	"github.com/andresuchdata/vector-priority/pkg/logger"
)

const dateLayout = "02.01.2006"

func main() {
	app := &cli.App{
		Name:  "prioritizer",
		Usage: "Rank finished-goods SKUs by production urgency from daily feed snapshots",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to an optional config file (env vars override it)",
				EnvVars: []string{"PRIORITIZER_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (trace, debug, info, warn, error)",
				EnvVars: []string{"APP_LOG_LEVEL"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run the priority analysis for one or more dates",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:     "date",
						Usage:    "Analysis date in DD.MM.YYYY format (repeatable)",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "data-dir",
						Usage:   "Directory containing the feed snapshots",
						EnvVars: []string{"APP_DATA_DIR"},
					},
					&cli.StringFlag{
						Name:    "output",
						Usage:   "Path of the output workbook",
						EnvVars: []string{"APP_OUTPUT_FILE"},
					},
					&cli.IntFlag{
						Name:  "parallel",
						Usage: "Number of dates to process concurrently",
					},
					&cli.BoolFlag{
						Name:  "sync-feeds",
						Usage: "Sync feed snapshots from the configured object store before running",
					},
				},
				Action: runAnalysis,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("run aborted")
	}
}

func runAnalysis(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		// Configuration is a precondition for everything downstream.
		return fmt.Errorf("configuration invalid: %w", err)
	}

	if c.IsSet("data-dir") {
		cfg.App.DataDir = c.String("data-dir")
	}
	if c.IsSet("output") {
		cfg.App.OutputFile = c.String("output")
	}
	if c.IsSet("parallel") {
		cfg.App.Parallel = c.Int("parallel")
	}
	if c.IsSet("log-level") {
		cfg.App.LogLevel = c.String("log-level")
	}
	logger.SetLevel(cfg.App.LogLevel)

	dates := make([]time.Time, 0, len(c.StringSlice("date")))
	for _, raw := range c.StringSlice("date") {
		date, err := time.Parse(dateLayout, raw)
		if err != nil {
			return fmt.Errorf("invalid date %q, expected DD.MM.YYYY: %w", raw, err)
		}
		dates = append(dates, date)
	}

	if c.Bool("sync-feeds") {
		client, err := storage.NewMinioClient(cfg.Storage)
		if err != nil {
			return fmt.Errorf("object store not usable: %w", err)
		}
		if err := storage.SyncPrefix(c.Context, client, cfg.Storage.Prefix, cfg.App.DataDir); err != nil {
			return fmt.Errorf("feed sync failed: %w", err)
		}
	}

	source := feeds.NewFSSource(cfg.App.DataDir, cfg.Plant.LocationPrefix, cfg.Plant.PlantCode)
	runner := priority.New(cfg, source)
	writer := report.NewWriter(cfg.App.OutputFile)

	orchestrator := pipeline.NewOrchestrator(runner, writer, cfg.App.Parallel)
	statuses, err := orchestrator.Run(c.Context, dates)
	if err != nil {
		return err
	}

	wrote := false
	for _, status := range statuses {
		event := logger.Log.Info()
		if status.Status == pipeline.StatusFailed || status.Status == pipeline.StatusSkipped {
			event = logger.Log.Warn()
		}
		event.
			Str("date", status.Date.Format(dateLayout)).
			Str("status", string(status.Status)).
			Int("rows", status.Rows).
			Dur("took", status.Duration).
			Str("error", status.Error).
			Msg("date finished")
		if status.Rows > 0 {
			wrote = true
		}
	}

	if !wrote {
		return fmt.Errorf("no date produced any output")
	}
	if err := writer.Save(); err != nil {
		return err
	}
	logger.Log.Info().Str("output", cfg.App.OutputFile).Msg("report written")
	return nil
}
