package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/autobrr/freeleech/cmd"
	"github.com/autobrr/freeleech/pkg/logger"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "freeleech",
		Short: "A PTP freeleech notifier and downloader",
		Long: `A CLI application that polls PassThePopcorn for freeleech torrents, notifies
about new matches and optionally downloads them or adds them to a torrent client.
`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Parse persistent flags
	rootCmd.PersistentFlags().StringVar(&cmd.FlagConfigFolder, "config-dir", cmd.FlagConfigFolder, "Config folder")
	rootCmd.PersistentFlags().StringVarP(&cmd.FlagConfigFile, "config", "c", cmd.FlagConfigFile, "Config file")
	rootCmd.PersistentFlags().StringVarP(&cmd.FlagLogFile, "log", "l", cmd.FlagLogFile, "Log file")
	rootCmd.PersistentFlags().CountVarP(&cmd.FlagLogLevel, "verbose", "v", "Verbose level")

	rootCmd.PersistentFlags().BoolVar(&cmd.FlagDryRun, "dry-run", false, "Dry run mode")

	runCmd := cmd.RunCommand()
	rootCmd.RunE = runCmd.RunE

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(cmd.CacheCommand())
	rootCmd.AddCommand(cmd.DownloadsCommand())
	rootCmd.AddCommand(cmd.UpdateCommand())
	rootCmd.AddCommand(cmd.VersionCommand())

	if err := rootCmd.Execute(); err != nil {
		logger.GetLogger("app").Error(err)
		os.Exit(1)
	}
}
