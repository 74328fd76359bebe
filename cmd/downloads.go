package cmd

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/autobrr/freeleech/pkg/paths"
)

func DownloadsCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "downloads",
		Short: "List torrent files in the autodownload directory",
		Args:  cobra.NoArgs,
	}

	command.RunE = func(cmd *cobra.Command, args []string) error {
		if err := initCore(); err != nil {
			return err
		}

		if cfg.AutoDownload == "" {
			return errors.New("autodownload is not configured")
		}

		files, size, err := paths.TorrentFiles(cfg.AutoDownload)
		if err != nil {
			return fmt.Errorf("list %s: %w", cfg.AutoDownload, err)
		}

		out := cmd.OutOrStdout()
		for _, f := range files {
			fmt.Fprintf(out, "%s  %8s  %s\n", f.ModifiedTime.Format("2006-01-02 15:04"),
				humanize.IBytes(uint64(f.Size)), f.FileName)
		}
		fmt.Fprintf(out, "%d torrent files, %s\n", len(files), humanize.IBytes(size))
		return nil
	}

	return command
}
