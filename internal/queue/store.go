package queue

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// ChildProcess is the handle the store keeps for an active job so cancel,
// pause and stop can reach the ffmpeg child.
type ChildProcess interface {
	Terminate()
	Kill()
	PID() int
}

// Options configures a Store.
type Options struct {
	// StatePath is the JSON state file location.
	StatePath string
	// CompletedRetention bounds the completed history (default 100).
	CompletedRetention int
	// IsTranscoded reports whether an output dir already holds a published
	// asset. Nil disables the on-disk dedupe check.
	IsTranscoded func(outputDir string) bool
	// OutputDir derives the output directory for a source path.
	OutputDir func(sourcePath string) string
	// Logger for persistence failures and dedupe decisions.
	Logger *slog.Logger
}

// Store owns the pending queue, the active-job table, the completion
// history, and the control bits. All access is serialised under one mutex;
// the state file write happens outside the lock via an atomic rename.
type Store struct {
	mu sync.Mutex

	pending   []*Job
	active    map[string]*Job
	children  map[string]ChildProcess
	completed []*Job

	isRunning bool
	isPaused  bool

	statePath    string
	retention    int
	isTranscoded func(string) bool
	outputDir    func(string) string
	logger       *slog.Logger
}

// NewStore creates an empty Store.
func NewStore(opts Options) *Store {
	if opts.CompletedRetention <= 0 {
		opts.CompletedRetention = 100
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.OutputDir == nil {
		opts.OutputDir = func(p string) string { return p }
	}
	return &Store{
		active:       make(map[string]*Job),
		children:     make(map[string]ChildProcess),
		statePath:    opts.StatePath,
		retention:    opts.CompletedRetention,
		isTranscoded: opts.IsTranscoded,
		outputDir:    opts.OutputDir,
		logger:       opts.Logger,
	}
}

// Enqueue adds a job for a source file. Returns the job and true when a new
// job was created. A collision with high priority bumps the existing job
// instead so a rescan still lifts a previously queued file.
func (s *Store) Enqueue(sourcePath string, highPriority bool, sizeBytes int64, modTime time.Time) (*Job, bool) {
	outputDir := s.outputDir(sourcePath)

	s.mu.Lock()
	if existing := s.findDuplicateLocked(sourcePath); existing != nil {
		if highPriority && existing.Status == StatusPending {
			existing.Priority = time.Now().Unix()
			s.sortPendingLocked()
		}
		job := existing.Clone()
		s.mu.Unlock()
		if highPriority {
			s.Save()
		}
		return job, false
	}
	s.mu.Unlock()

	// On-disk check outside the lock; it reads playlists.
	if s.isTranscoded != nil && s.isTranscoded(outputDir) {
		return nil, false
	}

	job := NewJob(sourcePath, outputDir, highPriority)
	job.FileSizeBytes = sizeBytes
	job.ModTime = modTime

	s.mu.Lock()
	// Re-check: another enqueue may have won the race during the disk probe.
	if existing := s.findDuplicateLocked(sourcePath); existing != nil {
		if highPriority && existing.Status == StatusPending {
			existing.Priority = time.Now().Unix()
			s.sortPendingLocked()
		}
		out := existing.Clone()
		s.mu.Unlock()
		return out, false
	}
	if highPriority {
		s.pending = append([]*Job{job}, s.pending...)
	} else {
		s.pending = append(s.pending, job)
	}
	s.sortPendingLocked()
	out := job.Clone()
	s.mu.Unlock()

	s.Save()
	return out, true
}

// findDuplicateLocked checks pending, active and recent completed jobs for
// a filename or source-path collision.
func (s *Store) findDuplicateLocked(sourcePath string) *Job {
	nameKey := NormalizeFilename(filepathBase(sourcePath))
	pathKey := NormalizePath(sourcePath)

	match := func(j *Job) bool {
		return NormalizeFilename(j.Filename) == nameKey || NormalizePath(j.SourcePath) == pathKey
	}

	for _, j := range s.pending {
		if match(j) {
			return j
		}
	}
	for _, j := range s.active {
		if match(j) {
			return j
		}
	}
	for _, j := range s.completed {
		if j.Status == StatusCompleted && match(j) {
			return j
		}
	}
	return nil
}

// DequeueForWork pops the highest-priority pending job and moves it to the
// active table, or returns nil when the queue is empty or the bound is hit.
func (s *Store) DequeueForWork(maxActive int) *Job {
	s.mu.Lock()
	if len(s.pending) == 0 || len(s.active) >= maxActive {
		s.mu.Unlock()
		return nil
	}

	job := s.pending[0]
	s.pending = s.pending[1:]

	now := time.Now()
	job.Status = StatusTranscoding
	job.StartedAt = &now
	job.Progress = 0
	s.active[job.ID] = job
	out := job.Clone()
	s.mu.Unlock()

	s.Save()
	return out
}

// SetChild registers the ffmpeg child handle for an active job.
func (s *Store) SetChild(jobID string, child ChildProcess) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if child == nil {
		delete(s.children, jobID)
		return
	}
	s.children[jobID] = child
	if job, ok := s.active[jobID]; ok {
		job.PID = child.PID()
	}
}

// UpdateProgress updates runtime telemetry for an active job.
func (s *Store) UpdateProgress(jobID string, progress, currentTime, speed float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.active[jobID]
	if !ok {
		return
	}
	job.Progress = progress
	job.CurrentTimeSeconds = currentTime
	job.SpeedMultiplier = speed
}

// SetEstimatedDuration records the probed duration of an active job.
func (s *Store) SetEstimatedDuration(jobID string, seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.active[jobID]; ok {
		job.EstimatedDurationSeconds = seconds
	}
}

// MarkCompleted finishes an active job successfully.
func (s *Store) MarkCompleted(jobID string) {
	s.mu.Lock()
	job, ok := s.active[jobID]
	if ok {
		delete(s.active, jobID)
		delete(s.children, jobID)
		now := time.Now()
		job.Status = StatusCompleted
		job.Progress = 100
		job.CompletedAt = &now
		job.PID = 0
		s.appendCompletedLocked(job)
	}
	s.mu.Unlock()
	s.Save()
}

// MarkFailed finishes an active job with an error, without retry.
func (s *Store) MarkFailed(jobID, reason string) {
	s.finishFailedLocked(jobID, reason, StatusFailed)
}

// MarkCancelled finishes an active job as cancelled.
func (s *Store) MarkCancelled(jobID string) {
	s.finishFailedLocked(jobID, "cancelled", StatusCancelled)
}

func (s *Store) finishFailedLocked(jobID, reason string, status Status) {
	s.mu.Lock()
	job, ok := s.active[jobID]
	if ok {
		delete(s.active, jobID)
		delete(s.children, jobID)
		now := time.Now()
		job.Status = status
		job.Error = reason
		job.CompletedAt = &now
		job.PID = 0
		s.appendCompletedLocked(job)
	}
	s.mu.Unlock()
	s.Save()
}

// RequeueForRetry puts a failed active job back into the queue with an
// incremented retry count and base priority.
func (s *Store) RequeueForRetry(jobID, reason string) {
	s.mu.Lock()
	job, ok := s.active[jobID]
	if ok {
		delete(s.active, jobID)
		delete(s.children, jobID)
		job.Status = StatusPending
		job.Error = reason
		job.RetryCount++
		job.Priority = 0
		job.Progress = 0
		job.StartedAt = nil
		job.PID = 0
		s.pending = append(s.pending, job)
		s.sortPendingLocked()
	}
	s.mu.Unlock()
	s.Save()
}

// RequeueActiveAtHead pulls every active job back to the head of the queue.
// Used by pause and boot recovery; progress restarts from zero because the
// encoder cannot resume mid-segment.
func (s *Store) RequeueActiveAtHead() []*Job {
	s.mu.Lock()
	var requeued []*Job
	for id, job := range s.active {
		delete(s.active, id)
		delete(s.children, id)
		job.Status = StatusPending
		job.Progress = 0
		job.StartedAt = nil
		job.PID = 0
		s.pending = append([]*Job{job}, s.pending...)
		requeued = append(requeued, job.Clone())
	}
	s.mu.Unlock()
	s.Save()
	return requeued
}

// ActiveChildren returns the child handles of all active jobs.
func (s *Store) ActiveChildren() map[string]ChildProcess {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]ChildProcess, len(s.children))
	for id, c := range s.children {
		out[id] = c
	}
	return out
}

// Child returns the child handle of one active job.
func (s *Store) Child(jobID string) (ChildProcess, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.children[jobID]
	return c, ok
}

// CancelPending removes a pending job. Returns false when the id is not in
// the pending queue.
func (s *Store) CancelPending(jobID string) bool {
	s.mu.Lock()
	found := false
	for i, j := range s.pending {
		if j.ID == jobID {
			now := time.Now()
			j.Status = StatusCancelled
			j.CompletedAt = &now
			s.appendCompletedLocked(j)
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			found = true
			break
		}
	}
	s.mu.Unlock()
	if found {
		s.Save()
	}
	return found
}

// IsActive reports whether a job id is in the active table.
func (s *Store) IsActive(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[jobID]
	return ok
}

// MoveUp moves a pending job one position toward the head.
func (s *Store) MoveUp(jobID string) bool {
	return s.reorderSwap(jobID, -1)
}

// MoveDown moves a pending job one position toward the tail.
func (s *Store) MoveDown(jobID string) bool {
	return s.reorderSwap(jobID, +1)
}

func (s *Store) reorderSwap(jobID string, delta int) bool {
	s.mu.Lock()
	moved := false
	for i, j := range s.pending {
		if j.ID != jobID {
			continue
		}
		k := i + delta
		if k >= 0 && k < len(s.pending) {
			s.pending[i], s.pending[k] = s.pending[k], s.pending[i]
			// Keep priorities consistent with the new order.
			s.pending[i].Priority, s.pending[k].Priority = s.pending[k].Priority, s.pending[i].Priority
			moved = true
		}
		break
	}
	s.mu.Unlock()
	if moved {
		s.Save()
	}
	return moved
}

// MoveToTop moves a pending job to the head with a fresh high priority.
func (s *Store) MoveToTop(jobID string) bool {
	s.mu.Lock()
	moved := false
	for i, j := range s.pending {
		if j.ID != jobID {
			continue
		}
		s.pending = append(s.pending[:i], s.pending[i+1:]...)
		j.Priority = time.Now().Unix()
		s.pending = append([]*Job{j}, s.pending...)
		moved = true
		break
	}
	s.mu.Unlock()
	if moved {
		s.Save()
	}
	return moved
}

// Reorder replaces the pending order with the provided id list. The list
// must cover exactly the pending ids; unknown or missing ids reject the
// whole operation.
func (s *Store) Reorder(ids []string) error {
	s.mu.Lock()
	if len(ids) != len(s.pending) {
		s.mu.Unlock()
		return fmt.Errorf("reorder list has %d ids, queue has %d", len(ids), len(s.pending))
	}
	byID := make(map[string]*Job, len(s.pending))
	for _, j := range s.pending {
		byID[j.ID] = j
	}
	next := make([]*Job, 0, len(ids))
	for _, id := range ids {
		j, ok := byID[id]
		if !ok {
			s.mu.Unlock()
			return fmt.Errorf("unknown job id %s", id)
		}
		delete(byID, id)
		next = append(next, j)
	}
	// Rewrite priorities so the explicit order survives the priority sort.
	base := time.Now().Unix()
	for i, j := range next {
		j.Priority = base - int64(i)
	}
	s.pending = next
	s.mu.Unlock()
	s.Save()
	return nil
}

// Remove deletes pending jobs by id. Unknown ids are ignored; returns how
// many jobs were removed.
func (s *Store) Remove(ids []string) int {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	s.mu.Lock()
	kept := s.pending[:0]
	removed := 0
	for _, j := range s.pending {
		if drop[j.ID] {
			removed++
			continue
		}
		kept = append(kept, j)
	}
	s.pending = kept
	s.mu.Unlock()

	if removed > 0 {
		s.Save()
	}
	return removed
}

// RemoveDuplicates runs the de-duplication pass on demand and returns the
// number of dropped jobs.
func (s *Store) RemoveDuplicates() int {
	s.mu.Lock()
	removed := s.dedupeLocked()
	s.mu.Unlock()
	if removed > 0 {
		s.Save()
	}
	return removed
}

// dedupeLocked collapses pending jobs sharing a normalized filename key,
// keeping the higher-priority one.
func (s *Store) dedupeLocked() int {
	s.sortPendingLocked()
	seen := make(map[string]bool, len(s.pending))
	kept := s.pending[:0]
	removed := 0
	for _, j := range s.pending {
		key := NormalizeFilename(j.Filename)
		if seen[key] {
			removed++
			continue
		}
		seen[key] = true
		kept = append(kept, j)
	}
	s.pending = kept
	return removed
}

// sortPendingLocked orders by priority descending, stable so equal
// priorities stay FIFO.
func (s *Store) sortPendingLocked() {
	sort.SliceStable(s.pending, func(i, j int) bool {
		return s.pending[i].Priority > s.pending[j].Priority
	})
}

func (s *Store) appendCompletedLocked(job *Job) {
	s.completed = append(s.completed, job)
	if len(s.completed) > s.retention {
		s.completed = s.completed[len(s.completed)-s.retention:]
	}
}

// SetRunning sets the running control bit.
func (s *Store) SetRunning(running bool) {
	s.mu.Lock()
	s.isRunning = running
	s.mu.Unlock()
	s.Save()
}

// SetPaused sets the paused control bit.
func (s *Store) SetPaused(paused bool) {
	s.mu.Lock()
	s.isPaused = paused
	s.mu.Unlock()
	s.Save()
}

// Flags returns the running and paused bits.
func (s *Store) Flags() (running, paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning, s.isPaused
}

// Counts returns the pending, active and completed-history sizes.
func (s *Store) Counts() (pending, active, completed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending), len(s.active), len(s.completed)
}

// Pending returns a deep copy of the pending queue in order.
func (s *Store) Pending() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Job, 0, len(s.pending))
	for _, j := range s.pending {
		out = append(out, j.Clone())
	}
	return out
}

// Active returns a deep copy of the active jobs.
func (s *Store) Active() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Job, 0, len(s.active))
	for _, j := range s.active {
		out = append(out, j.Clone())
	}
	return out
}

// Completed returns a deep copy of the completed history, newest last.
func (s *Store) Completed() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Job, 0, len(s.completed))
	for _, j := range s.completed {
		out = append(out, j.Clone())
	}
	return out
}
