// Package engine supervises the transcode pipeline: it owns the worker
// pool, drives jobs through the transcoder, and exposes the queue control
// operations the API surfaces.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/vodarr/vodarr/internal/asset"
	"github.com/vodarr/vodarr/internal/cleanup"
	"github.com/vodarr/vodarr/internal/ffmpeg"
	"github.com/vodarr/vodarr/internal/layout"
	"github.com/vodarr/vodarr/internal/mediasync"
	"github.com/vodarr/vodarr/internal/queue"
	"github.com/vodarr/vodarr/internal/scanner"
	"github.com/vodarr/vodarr/internal/transcoder"
)

// maxRetries is how many times a retryable failure re-queues a job before
// it is failed for good.
const maxRetries = 3

// Config carries the engine tunables.
type Config struct {
	MaxConcurrent     int
	AutoStart         bool
	AutoSaveInterval  time.Duration
	ResumeSettleDelay time.Duration
	DiskUsageInterval time.Duration
}

// Engine is the queue supervisor.
type Engine struct {
	store  *queue.Store
	trans  *transcoder.Transcoder
	scan   *scanner.Scanner
	clean  *cleanup.Service
	syncer *mediasync.Syncer
	layout *layout.Layout
	logger *slog.Logger

	maxConcurrent     int
	autoSaveInterval  time.Duration
	resumeSettleDelay time.Duration

	wake chan struct{}
	wg   sync.WaitGroup

	mu        sync.Mutex
	autoStart bool

	disk diskUsageCache
}

// New creates an Engine. syncer may be nil when no library database is
// configured.
func New(cfg Config, store *queue.Store, trans *transcoder.Transcoder, scan *scanner.Scanner, clean *cleanup.Service, syncer *mediasync.Syncer, l *layout.Layout, logger *slog.Logger) *Engine {
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 2
	}
	if cfg.AutoSaveInterval <= 0 {
		cfg.AutoSaveInterval = 30 * time.Second
	}
	if cfg.DiskUsageInterval <= 0 {
		cfg.DiskUsageInterval = 10 * time.Minute
	}
	return &Engine{
		store:             store,
		trans:             trans,
		scan:              scan,
		clean:             clean,
		syncer:            syncer,
		layout:            l,
		logger:            logger.With(slog.String("component", "engine")),
		maxConcurrent:     cfg.MaxConcurrent,
		autoSaveInterval:  cfg.AutoSaveInterval,
		resumeSettleDelay: cfg.ResumeSettleDelay,
		wake:              make(chan struct{}, 1),
		autoStart:         cfg.AutoStart,
		disk: diskUsageCache{
			path:     l.Root(),
			interval: cfg.DiskUsageInterval,
		},
	}
}

// Boot brings the engine up: output directories, crash recovery, state
// restore, persistence loop, library sync and the dispatcher. Auto-resume
// waits a settle delay so a restart loop does not immediately relaunch
// heavy work.
func (e *Engine) Boot(ctx context.Context) error {
	if err := os.MkdirAll(e.layout.Root(), 0o755); err != nil {
		return fmt.Errorf("creating transcoded root: %w", err)
	}
	if err := os.MkdirAll(e.layout.SeriesRoot(), 0o755); err != nil {
		return fmt.Errorf("creating series root: %w", err)
	}

	cleaned, err := e.clean.CleanupInterrupted()
	if err != nil {
		e.logger.Warn("interrupted-asset cleanup failed", slog.String("error", err.Error()))
	}
	if len(cleaned) > 0 {
		e.logger.Info("removed interrupted assets", slog.Int("count", len(cleaned)))
	}

	if err := e.store.Load(); err != nil {
		e.logger.Warn("loading queue state failed, starting empty", slog.String("error", err.Error()))
	}

	// Interrupted assets lost their output dirs; a rescan puts their
	// sources back into the queue.
	if len(cleaned) > 0 {
		e.ScanAndQueue(ctx)
	}

	go e.store.StartAutoSave(ctx, e.autoSaveInterval)

	if e.syncer != nil {
		if _, err := e.syncer.SyncAll(ctx); err != nil {
			e.logger.Warn("library sync failed", slog.String("error", err.Error()))
		}
	}

	go e.dispatch(ctx)

	pending, _, _ := e.store.Counts()
	_, paused := e.store.Flags()
	if e.AutoStart() && pending > 0 && !paused {
		e.logger.Info("auto-resuming queue",
			slog.Int("pending", pending),
			slog.Duration("settle", e.resumeSettleDelay),
		)
		time.AfterFunc(e.resumeSettleDelay, func() {
			if ctx.Err() == nil {
				e.Start()
			}
		})
	}

	return nil
}

// Start begins (or unpauses) queue processing.
func (e *Engine) Start() {
	e.store.SetRunning(true)
	e.store.SetPaused(false)
	e.kick()
	e.logger.Info("queue started")
}

// Pause stops dispatching and gracefully terminates the active children.
// Their jobs go back to the head of the queue.
func (e *Engine) Pause() {
	running, paused := e.store.Flags()
	if !running || paused {
		return
	}
	e.store.SetPaused(true)
	e.interruptActive(false)
	e.logger.Info("queue paused")
}

// Resume unpauses a paused queue. An empty queue stays paused; there is
// nothing to hand the workers.
func (e *Engine) Resume() {
	running, paused := e.store.Flags()
	if !running || !paused {
		return
	}
	pending, _, _ := e.store.Counts()
	if pending == 0 {
		e.logger.Info("resume ignored, queue is empty")
		return
	}
	e.store.SetPaused(false)
	e.kick()
	e.logger.Info("queue resumed")
}

// Stop halts the queue and kills the active children. Their jobs go back
// to the head of the queue for the next start.
func (e *Engine) Stop() {
	running, _ := e.store.Flags()
	if !running {
		return
	}
	e.store.SetRunning(false)
	e.store.SetPaused(false)
	e.interruptActive(true)
	e.logger.Info("queue stopped")
}

// interruptActive pulls the active jobs off the workers: they are removed
// from the active table first so the returning workers do not classify the
// induced child death as a job failure.
func (e *Engine) interruptActive(kill bool) {
	children := e.store.ActiveChildren()
	requeued := e.store.RequeueActiveAtHead()
	for _, child := range children {
		if kill {
			child.Kill()
		} else {
			child.Terminate()
		}
	}
	for _, job := range requeued {
		if err := asset.RemoveTranscoding(job.OutputDir); err != nil {
			e.logger.Warn("removing lock for requeued job",
				slog.String("output", job.OutputDir),
				slog.String("error", err.Error()),
			)
		}
	}
}

// AutoStart returns the auto-start setting.
func (e *Engine) AutoStart() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.autoStart
}

// SetAutoStart changes whether boot and new work auto-resume the queue.
func (e *Engine) SetAutoStart(v bool) {
	e.mu.Lock()
	e.autoStart = v
	e.mu.Unlock()
}

// Enqueue adds one source file to the queue. Returns the job and whether
// it was newly created.
func (e *Engine) Enqueue(sourcePath string, highPriority bool) (*queue.Job, bool) {
	var size int64
	var mtime time.Time
	if info, err := os.Stat(sourcePath); err == nil {
		size = info.Size()
		mtime = info.ModTime()
	}
	job, created := e.store.Enqueue(sourcePath, highPriority, size, mtime)
	if created {
		e.maybeAutoStart()
		e.kick()
	}
	return job, created
}

// ScanAndQueue walks the libraries and enqueues everything not yet
// transcoded. Returns how many new jobs were created.
func (e *Engine) ScanAndQueue(ctx context.Context) int {
	files := e.scan.Scan()
	created := 0
	for _, f := range files {
		if ctx.Err() != nil {
			break
		}
		if _, ok := e.store.Enqueue(f.Path, false, f.Size, f.ModTime); ok {
			created++
		}
	}
	e.logger.Info("scan complete",
		slog.Int("found", len(files)),
		slog.Int("queued", created),
	)
	if created > 0 {
		e.maybeAutoStart()
		e.kick()
	}
	return created
}

// maybeAutoStart starts a stopped queue when auto-start is on. A paused
// queue stays paused; pause is an operator decision.
func (e *Engine) maybeAutoStart() {
	running, paused := e.store.Flags()
	if !running && !paused && e.AutoStart() {
		e.Start()
	}
}

func (e *Engine) kick() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// dispatch hands pending jobs to workers whenever the queue is running,
// unpaused and below the concurrency bound.
func (e *Engine) dispatch(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.wg.Wait()
			return
		case <-e.wake:
		case <-ticker.C:
		}

		running, paused := e.store.Flags()
		if !running || paused {
			continue
		}
		for {
			job := e.store.DequeueForWork(e.maxConcurrent)
			if job == nil {
				break
			}
			e.wg.Add(1)
			go e.runJob(ctx, job)
		}
	}
}

// runJob drives one job through the transcoder and classifies the outcome.
func (e *Engine) runJob(ctx context.Context, job *queue.Job) {
	defer e.wg.Done()
	defer e.kick()

	log := e.logger.With(
		slog.String("job_id", job.ID),
		slog.String("source", job.SourcePath),
	)
	log.Info("job started", slog.Int("retry", job.RetryCount))

	err := e.trans.Run(ctx, transcoder.Request{
		SourcePath: job.SourcePath,
		OutputDir:  job.OutputDir,
		OnDuration: func(seconds float64) {
			e.store.SetEstimatedDuration(job.ID, seconds)
		},
		OnProgress: func(overall, currentTime, speed float64) {
			e.store.UpdateProgress(job.ID, overall, currentTime, speed)
		},
		OnChild: func(child *ffmpeg.Process) {
			if child == nil {
				e.store.SetChild(job.ID, nil)
				return
			}
			e.store.SetChild(job.ID, child)
		},
	})

	// Pause, stop and boot recovery pull jobs out of the active table
	// before the child dies; those are not failures.
	if !e.store.IsActive(job.ID) {
		log.Info("job interrupted and requeued")
		return
	}

	switch {
	case err == nil:
		e.store.MarkCompleted(job.ID)
		log.Info("job completed")
	case transcoder.IsFatal(err):
		e.store.MarkFailed(job.ID, err.Error())
		log.Error("job failed permanently", slog.String("error", err.Error()))
	case job.RetryCount < maxRetries:
		e.store.RequeueForRetry(job.ID, err.Error())
		log.Warn("job failed, requeued for retry",
			slog.Int("retry", job.RetryCount+1),
			slog.String("error", err.Error()),
		)
	default:
		e.store.MarkFailed(job.ID, err.Error())
		log.Error("job failed after retries", slog.String("error", err.Error()))
	}
}

// CancelJob cancels a job by id. Pending jobs leave the queue; an active
// job has its child terminated and is recorded as cancelled.
func (e *Engine) CancelJob(jobID string) bool {
	if e.store.CancelPending(jobID) {
		return true
	}
	child, ok := e.store.Child(jobID)
	if !ok {
		if !e.store.IsActive(jobID) {
			return false
		}
		e.store.MarkCancelled(jobID)
		return true
	}
	e.store.MarkCancelled(jobID)
	child.Terminate()
	return true
}

// CleanupIncomplete removes unfinished asset directories and reports what
// was kept and what was removed.
func (e *Engine) CleanupIncomplete() (*cleanup.Result, error) {
	return e.clean.CleanupIncomplete()
}
