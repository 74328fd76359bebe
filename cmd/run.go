package cmd

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/autobrr/freeleech/pkg/cache"
	"github.com/autobrr/freeleech/pkg/client"
	"github.com/autobrr/freeleech/pkg/download"
	"github.com/autobrr/freeleech/pkg/logger"
	"github.com/autobrr/freeleech/pkg/metrics"
	"github.com/autobrr/freeleech/pkg/notification"
	"github.com/autobrr/freeleech/pkg/pipeline"
	"github.com/autobrr/freeleech/pkg/tracker"
)

func RunCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "run",
		Short: "Check for new freeleech torrents",
		Long: `Fetch the current freeleech torrents, notify about new matches, download
them and remember them so they are only handled once.`,
		Example: `  freeleech run
  freeleech run --dry-run -v`,
		Args: cobra.NoArgs,
	}

	command.RunE = func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		start := time.Now()

		// init core
		if err := initCore(); err != nil {
			return err
		}

		runID := uuid.NewString()
		runLog := logger.GetLogger("run").WithField("run_id", runID)

		// load cache
		store, closeStore, err := openStore()
		if err != nil {
			return fmt.Errorf("failed opening cache store: %w", err)
		}
		defer closeStore()

		known, err := cache.Load(ctx, store)
		if err != nil {
			return fmt.Errorf("failed loading cache: %w", err)
		}
		runLog.Debugf("Loaded %d known torrent ids from %s", known.Len(), store)

		rules, err := cfg.Rules()
		if err != nil {
			return fmt.Errorf("failed compiling expressions: %w", err)
		}

		ptp := tracker.NewPTP(cfg.PTP())

		// notifications
		var noti notification.Sender
		if cfg.Discord != "" {
			noti = notification.NewDiscordSender(logger.GetLogger("discord"), cfg.Discord)
			if err := noti.Handshake(ctx); err != nil {
				return fmt.Errorf("failed validating discord webhook: %w", err)
			}
		}

		// torrent client, a failed connection only disables injection
		var injector pipeline.Injector
		if cfg.Client.Enabled() {
			c, err := client.NewClient(cfg.Client)
			if err != nil {
				return fmt.Errorf("failed initializing client: %w", err)
			}

			if err := c.Connect(ctx); err != nil {
				runLog.WithError(err).Errorf("Failed connecting to %s, torrents will not be added", c.Type())
			} else {
				runLog.Debugf("Connected to %s", c.Type())
				injector = c
			}
		}

		m := metrics.New()

		runner := pipeline.New(pipeline.Options{
			Source:      ptp,
			Cache:       known,
			Store:       store,
			Filter:      cfg.Filter(),
			Rules:       rules,
			Notifier:    noti,
			Downloader:  download.New(ptp.HTTPClient()),
			DownloadDir: cfg.AutoDownload,
			Injector:    injector,
			Metrics:     m,
			Output:      cmd.OutOrStdout(),
			Log:         logger.GetLogger("pipeline").WithField("run_id", runID),
			DryRun:      FlagDryRun,
		})

		res, runErr := runner.Run(ctx)

		if cfg.Metrics.Pushgateway != "" && res.State != pipeline.StateAborted {
			if err := m.Push(ctx, cfg.Metrics.Pushgateway, cfg.Metrics.Job); err != nil {
				runLog.WithError(err).Warn("Failed pushing metrics")
			}
		}

		if runErr != nil {
			if res.State == pipeline.StateAborted {
				return fmt.Errorf("failed retrieving freeleech torrents: %w", runErr)
			}
			return fmt.Errorf("failed persisting cache: %w", runErr)
		}

		runLog.Infof("Finished in %s: %d new torrents", time.Since(start).Round(time.Millisecond), len(res.Events))
		return nil
	}

	return command
}
