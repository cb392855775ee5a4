package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vodarr/vodarr/internal/asset"
	"github.com/vodarr/vodarr/internal/config"
	"github.com/vodarr/vodarr/internal/layout"
	"github.com/vodarr/vodarr/internal/queue"
	"github.com/vodarr/vodarr/internal/scanner"
)

var scanDryRun bool

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the libraries and queue untranscoded files",
	Long: `Scan the film and series libraries and add every file without a
published asset to the persisted queue. A running server picks the new
entries up on its next state reload; otherwise they are processed on the
next start.`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().BoolVar(&scanDryRun, "dry-run", false, "List candidates without queueing them")
}

func runScan(cmd *cobra.Command, args []string) error {
	logger := slog.Default()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	lay := layout.New(cfg.Storage.TranscodedDir, cfg.Storage.SeriesDir)
	scan := scanner.New(cfg.Storage.MoviesDir, cfg.Storage.SeriesDir, logger)
	files := scan.Scan()

	if scanDryRun {
		candidates := 0
		for _, f := range files {
			if asset.IsTranscoded(lay.OutputDir(f.Path)) {
				continue
			}
			candidates++
			fmt.Println(f.Path)
		}
		fmt.Printf("%d of %d files need transcoding\n", candidates, len(files))
		return nil
	}

	store := queue.NewStore(queue.Options{
		StatePath:          cfg.Storage.StateFilePath(),
		CompletedRetention: cfg.Transcode.CompletedRetention,
		IsTranscoded:       asset.IsTranscoded,
		OutputDir:          lay.OutputDir,
		Logger:             logger,
	})
	if err := store.Load(); err != nil {
		return fmt.Errorf("loading queue state: %w", err)
	}

	queued := 0
	for _, f := range files {
		if _, created := store.Enqueue(f.Path, false, f.Size, f.ModTime); created {
			queued++
		}
	}
	store.Save()

	pending, _, _ := store.Counts()
	fmt.Printf("queued %d new files, %d pending total\n", queued, pending)
	return nil
}
