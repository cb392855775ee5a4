package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vodarr/vodarr/internal/asset"
	"github.com/vodarr/vodarr/internal/cleanup"
	"github.com/vodarr/vodarr/internal/config"
	"github.com/vodarr/vodarr/internal/database"
	"github.com/vodarr/vodarr/internal/engine"
	"github.com/vodarr/vodarr/internal/ffmpeg"
	internalhttp "github.com/vodarr/vodarr/internal/http"
	"github.com/vodarr/vodarr/internal/http/handlers"
	"github.com/vodarr/vodarr/internal/layout"
	"github.com/vodarr/vodarr/internal/mediasync"
	"github.com/vodarr/vodarr/internal/queue"
	"github.com/vodarr/vodarr/internal/repository"
	"github.com/vodarr/vodarr/internal/scanner"
	"github.com/vodarr/vodarr/internal/scheduler"
	"github.com/vodarr/vodarr/internal/transcoder"
	"github.com/vodarr/vodarr/internal/version"
	"github.com/vodarr/vodarr/internal/watcher"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the vodarr server",
	Long: `Start the vodarr transcoding engine and HTTP API.

The server provides:
- REST API for queue control and library inspection
- Filesystem watcher and optional scheduled rescans
- Health check endpoint
- OpenAPI documentation at /docs`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("movies-dir", "", "Film library root")
	serveCmd.Flags().String("series-dir", "", "Episode library root")
	serveCmd.Flags().String("transcoded-dir", "", "Transcoded output root")
	serveCmd.Flags().Int("max-concurrent", 2, "Simultaneous transcode workers")

	viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("storage.movies_dir", serveCmd.Flags().Lookup("movies-dir"))
	viper.BindPFlag("storage.series_dir", serveCmd.Flags().Lookup("series-dir"))
	viper.BindPFlag("storage.transcoded_dir", serveCmd.Flags().Lookup("transcoded-dir"))
	viper.BindPFlag("transcode.max_concurrent", serveCmd.Flags().Lookup("max-concurrent"))
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.Default()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	db, err := database.New(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	movieRepo := repository.NewMovieRepository(db.DB)
	episodeRepo := repository.NewEpisodeRepository(db.DB)

	detector := ffmpeg.NewBinaryDetector(cfg.FFmpeg.BinaryPath, cfg.FFmpeg.ProbePath)
	binaries, err := detector.Detect(ctx)
	if err != nil {
		return fmt.Errorf("locating ffmpeg: %w", err)
	}
	logger.Info("ffmpeg detected",
		slog.String("path", binaries.FFmpegPath),
		slog.String("version", binaries.Version),
	)

	lay := layout.New(cfg.Storage.TranscodedDir, cfg.Storage.SeriesDir)
	prober := ffmpeg.NewProber(binaries.FFprobePath).WithTimeout(cfg.Transcode.ProbeTimeout)
	caps := ffmpeg.NewHWAccelDetector(binaries.FFmpegPath)
	syncer := mediasync.New(movieRepo, episodeRepo, lay, logger)

	trans := transcoder.New(transcoder.Config{
		FFmpegPath:      binaries.FFmpegPath,
		SegmentDuration: cfg.Transcode.SegmentDuration,
		SubtitleTimeout: cfg.Transcode.SubtitleTimeout,
	}, prober, caps, syncer, logger)

	store := queue.NewStore(queue.Options{
		StatePath:          cfg.Storage.StateFilePath(),
		CompletedRetention: cfg.Transcode.CompletedRetention,
		IsTranscoded:       asset.IsTranscoded,
		OutputDir:          lay.OutputDir,
		Logger:             logger,
	})

	scan := scanner.New(cfg.Storage.MoviesDir, cfg.Storage.SeriesDir, logger)
	clean := cleanup.New(cfg.Storage.TranscodedDir, logger)

	eng := engine.New(engine.Config{
		MaxConcurrent:     cfg.Transcode.MaxConcurrent,
		AutoStart:         cfg.Transcode.AutoStart,
		AutoSaveInterval:  cfg.Transcode.AutoSaveInterval,
		ResumeSettleDelay: cfg.Transcode.ResumeSettleDelay,
		DiskUsageInterval: cfg.Transcode.DiskUsageInterval,
	}, store, trans, scan, clean, syncer, lay, logger)

	if err := eng.Boot(ctx); err != nil {
		return fmt.Errorf("booting engine: %w", err)
	}

	if cfg.Scanner.WatcherEnabled {
		w := watcher.New(
			[]string{cfg.Storage.MoviesDir, cfg.Storage.SeriesDir},
			cfg.Scanner.WatcherSettle,
			watcher.EnqueueFunc(func(path string, high bool) bool {
				_, created := eng.Enqueue(path, high)
				return created
			}),
			logger,
		)
		// The watcher starts after a delay so boot-time churn (cleanup,
		// state restore) does not generate spurious events.
		time.AfterFunc(cfg.Transcode.WatcherStartDelay, func() {
			if ctx.Err() != nil {
				return
			}
			go func() {
				if err := w.Run(ctx); err != nil && ctx.Err() == nil {
					logger.Error("watcher stopped", slog.String("error", err.Error()))
				}
			}()
		})
	}

	sched, err := scheduler.New(cfg.Scanner.Schedule, func(ctx context.Context) {
		eng.ScanAndQueue(ctx)
	}, logger)
	if err != nil {
		return fmt.Errorf("configuring rescan schedule: %w", err)
	}
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("starting rescan schedule: %w", err)
	}
	defer sched.Stop()

	server := internalhttp.NewServer(internalhttp.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     2 * cfg.Server.ReadTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, logger, version.Version)

	handlers.NewHealthHandler(version.Version, db).Register(server.API())
	handlers.NewQueueHandler(eng, store).Register(server.API())
	handlers.NewAssetHandler(cfg.Storage.TranscodedDir, eng).Register(server.API())
	handlers.NewMediaHandler(movieRepo, episodeRepo).Register(server.API())

	logger.Info("starting vodarr server",
		slog.String("host", cfg.Server.Host),
		slog.Int("port", cfg.Server.Port),
		slog.String("version", version.Version),
	)

	return server.ListenAndServe(ctx)
}
