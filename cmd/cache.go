package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/autobrr/freeleech/pkg/cache"
	"github.com/autobrr/freeleech/pkg/logger"
)

func CacheCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or seed the known torrent cache",
	}

	command.AddCommand(cacheListCommand(), cacheAddCommand())
	return command
}

func cacheListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the known torrent ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initCore(); err != nil {
				return err
			}

			store, closeStore, err := openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			known, err := cache.Load(cmd.Context(), store)
			if err != nil {
				return err
			}

			for _, id := range known.IDs() {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

func cacheAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "add <id>...",
		Short:   "Mark torrent ids as known so they are never handled",
		Example: `  freeleech cache add 123456 123457`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initCore(); err != nil {
				return err
			}

			l := logger.GetLogger("cache")

			store, closeStore, err := openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			known, err := cache.Load(cmd.Context(), store)
			if err != nil {
				return err
			}

			for _, id := range args {
				if !known.Record(id) {
					l.Infof("Already known: %s", id)
				}
			}

			if known.Added() == 0 {
				return nil
			}

			if FlagDryRun {
				l.Warnf("Dry-run enabled, not adding %d ids to %s", known.Added(), store)
				return nil
			}

			if err := known.Persist(cmd.Context(), store); err != nil {
				return err
			}

			l.Infof("Added %d ids to %s", known.Added(), store)
			return nil
		},
	}
}
