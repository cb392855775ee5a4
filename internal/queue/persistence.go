package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/renameio/v2"
)

// StateVersion is the persisted schema version.
const StateVersion = 1

// State is the persisted queue document. Active jobs are saved at the head
// of the queue with their transcoding status; load turns them back into
// pending head entries.
type State struct {
	Version       int       `json:"version"`
	Queue         []*Job    `json:"queue"`
	CompletedJobs []*Job    `json:"completed_jobs"`
	IsRunning     bool      `json:"is_running"`
	IsPaused      bool      `json:"is_paused"`
	LastSaved     time.Time `json:"last_saved"`
}

// Save persists the current state. The snapshot is taken under the lock;
// marshalling and the atomic file write happen outside it. A write failure
// is logged, never fatal: the in-memory state stays authoritative and the
// next save retries.
func (s *Store) Save() {
	if s.statePath == "" {
		return
	}

	s.mu.Lock()
	s.dedupeLocked()

	state := State{
		Version:   StateVersion,
		IsRunning: s.isRunning,
		IsPaused:  s.isPaused,
		LastSaved: time.Now(),
	}
	for _, j := range s.active {
		state.Queue = append(state.Queue, j.Clone())
	}
	for _, j := range s.pending {
		state.Queue = append(state.Queue, j.Clone())
	}
	for _, j := range s.completed {
		state.CompletedJobs = append(state.CompletedJobs, j.Clone())
	}
	s.mu.Unlock()

	data, err := json.MarshalIndent(&state, "", "  ")
	if err != nil {
		s.logger.Error("marshaling queue state", slog.String("error", err.Error()))
		return
	}

	if err := renameio.WriteFile(s.statePath, data, 0o644); err != nil {
		s.logger.Error("writing queue state file",
			slog.String("path", s.statePath),
			slog.String("error", err.Error()),
		)
	}
}

// Load restores the state file. Jobs that were active at the previous
// shutdown come back as pending head entries with zero progress; duplicates
// are collapsed and the queue is re-sorted. A missing file is a clean start.
func (s *Store) Load() error {
	if s.statePath == "" {
		return nil
	}

	data, err := os.ReadFile(s.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading queue state file: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("parsing queue state file: %w", err)
	}

	s.mu.Lock()
	s.pending = s.pending[:0]
	var interruptedHead []*Job
	for _, j := range state.Queue {
		switch j.Status {
		case StatusPending:
			s.pending = append(s.pending, j)
		case StatusTranscoding:
			j.Status = StatusPending
			j.Progress = 0
			j.StartedAt = nil
			j.PID = 0
			interruptedHead = append(interruptedHead, j)
		}
	}
	s.pending = append(interruptedHead, s.pending...)

	s.completed = s.completed[:0]
	for _, j := range state.CompletedJobs {
		s.completed = append(s.completed, j)
	}
	if len(s.completed) > s.retention {
		s.completed = s.completed[len(s.completed)-s.retention:]
	}

	s.isPaused = state.IsPaused
	s.isRunning = false // workers are not running yet

	s.dedupeLocked()
	restored := len(s.pending)
	interrupted := len(interruptedHead)
	s.mu.Unlock()

	s.logger.Info("queue state loaded",
		slog.Int("pending", restored),
		slog.Int("interrupted", interrupted),
		slog.Bool("was_paused", state.IsPaused),
	)
	return nil
}

// StartAutoSave flushes the state file on a timer until ctx is cancelled.
func (s *Store) StartAutoSave(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.Save()
				return
			case <-ticker.C:
				s.Save()
			}
		}
	}()
}
