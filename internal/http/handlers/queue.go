// Package handlers implements the vodarr API operations.
package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/vodarr/vodarr/internal/engine"
	"github.com/vodarr/vodarr/internal/queue"
)

// QueueHandler handles queue inspection and control endpoints.
type QueueHandler struct {
	engine *engine.Engine
	store  *queue.Store
}

// NewQueueHandler creates a new queue handler.
func NewQueueHandler(eng *engine.Engine, store *queue.Store) *QueueHandler {
	return &QueueHandler{
		engine: eng,
		store:  store,
	}
}

// Register registers the queue routes with the API.
func (h *QueueHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getQueue",
		Method:      "GET",
		Path:        "/api/v1/queue",
		Summary:     "Get queue",
		Description: "Returns the pending queue, active jobs and completion history",
		Tags:        []string{"Queue"},
	}, h.Get)

	huma.Register(api, huma.Operation{
		OperationID: "getQueueStats",
		Method:      "GET",
		Path:        "/api/v1/queue/stats",
		Summary:     "Get queue statistics",
		Description: "Returns counts, flags, ETA and disk usage",
		Tags:        []string{"Queue"},
	}, h.Stats)

	huma.Register(api, huma.Operation{
		OperationID: "startQueue",
		Method:      "POST",
		Path:        "/api/v1/queue/start",
		Summary:     "Start queue",
		Description: "Starts queue processing",
		Tags:        []string{"Queue"},
	}, h.Start)

	huma.Register(api, huma.Operation{
		OperationID: "pauseQueue",
		Method:      "POST",
		Path:        "/api/v1/queue/pause",
		Summary:     "Pause queue",
		Description: "Pauses processing; active jobs are interrupted and requeued at the head",
		Tags:        []string{"Queue"},
	}, h.Pause)

	huma.Register(api, huma.Operation{
		OperationID: "resumeQueue",
		Method:      "POST",
		Path:        "/api/v1/queue/resume",
		Summary:     "Resume queue",
		Description: "Resumes a paused queue",
		Tags:        []string{"Queue"},
	}, h.Resume)

	huma.Register(api, huma.Operation{
		OperationID: "stopQueue",
		Method:      "POST",
		Path:        "/api/v1/queue/stop",
		Summary:     "Stop queue",
		Description: "Stops processing; active children are killed and their jobs requeued",
		Tags:        []string{"Queue"},
	}, h.Stop)

	huma.Register(api, huma.Operation{
		OperationID: "enqueueJob",
		Method:      "POST",
		Path:        "/api/v1/queue/jobs",
		Summary:     "Enqueue job",
		Description: "Adds a source file to the queue",
		Tags:        []string{"Queue"},
	}, h.Enqueue)

	huma.Register(api, huma.Operation{
		OperationID: "cancelJob",
		Method:      "POST",
		Path:        "/api/v1/queue/jobs/{id}/cancel",
		Summary:     "Cancel job",
		Description: "Cancels a pending or active job",
		Tags:        []string{"Queue"},
	}, h.Cancel)

	huma.Register(api, huma.Operation{
		OperationID: "moveJobUp",
		Method:      "POST",
		Path:        "/api/v1/queue/jobs/{id}/move-up",
		Summary:     "Move job up",
		Description: "Moves a pending job one position toward the head",
		Tags:        []string{"Queue"},
	}, h.MoveUp)

	huma.Register(api, huma.Operation{
		OperationID: "moveJobDown",
		Method:      "POST",
		Path:        "/api/v1/queue/jobs/{id}/move-down",
		Summary:     "Move job down",
		Description: "Moves a pending job one position toward the tail",
		Tags:        []string{"Queue"},
	}, h.MoveDown)

	huma.Register(api, huma.Operation{
		OperationID: "moveJobToTop",
		Method:      "POST",
		Path:        "/api/v1/queue/jobs/{id}/move-to-top",
		Summary:     "Move job to top",
		Description: "Moves a pending job to the head with fresh high priority",
		Tags:        []string{"Queue"},
	}, h.MoveToTop)

	huma.Register(api, huma.Operation{
		OperationID: "reorderQueue",
		Method:      "PUT",
		Path:        "/api/v1/queue/order",
		Summary:     "Reorder queue",
		Description: "Replaces the pending order; the id list must cover exactly the pending jobs",
		Tags:        []string{"Queue"},
	}, h.Reorder)

	huma.Register(api, huma.Operation{
		OperationID: "removeJobs",
		Method:      "POST",
		Path:        "/api/v1/queue/jobs/remove",
		Summary:     "Remove jobs",
		Description: "Removes pending jobs by id",
		Tags:        []string{"Queue"},
	}, h.Remove)

	huma.Register(api, huma.Operation{
		OperationID: "removeDuplicateJobs",
		Method:      "POST",
		Path:        "/api/v1/queue/deduplicate",
		Summary:     "Remove duplicate jobs",
		Description: "Collapses pending jobs that share a normalized filename",
		Tags:        []string{"Queue"},
	}, h.Deduplicate)

	huma.Register(api, huma.Operation{
		OperationID: "setAutoStart",
		Method:      "PUT",
		Path:        "/api/v1/queue/auto-start",
		Summary:     "Set auto-start",
		Description: "Sets whether new work and boot auto-resume the queue",
		Tags:        []string{"Queue"},
	}, h.SetAutoStart)

	huma.Register(api, huma.Operation{
		OperationID: "scanLibraries",
		Method:      "POST",
		Path:        "/api/v1/scan",
		Summary:     "Scan libraries",
		Description: "Scans the media libraries and enqueues untranscoded files",
		Tags:        []string{"Queue"},
	}, h.Scan)
}

// GetQueueInput is the input for getting the queue.
type GetQueueInput struct{}

// GetQueueOutput is the output for getting the queue.
type GetQueueOutput struct {
	Body struct {
		Pending   []*queue.Job `json:"pending"`
		Active    []*queue.Job `json:"active"`
		Completed []*queue.Job `json:"completed"`
	}
}

// Get returns the queue contents.
func (h *QueueHandler) Get(ctx context.Context, input *GetQueueInput) (*GetQueueOutput, error) {
	resp := &GetQueueOutput{}
	resp.Body.Pending = h.store.Pending()
	resp.Body.Active = h.store.Active()
	resp.Body.Completed = h.store.Completed()
	return resp, nil
}

// StatsInput is the input for queue statistics.
type StatsInput struct{}

// StatsOutput is the output for queue statistics.
type StatsOutput struct {
	Body engine.Stats
}

// Stats returns the queue statistics snapshot.
func (h *QueueHandler) Stats(ctx context.Context, input *StatsInput) (*StatsOutput, error) {
	return &StatsOutput{Body: h.engine.Stats()}, nil
}

// ControlInput is the shared empty input for control operations.
type ControlInput struct{}

// ControlOutput reports the control flags after a control operation.
type ControlOutput struct {
	Body struct {
		IsRunning bool `json:"is_running"`
		IsPaused  bool `json:"is_paused"`
	}
}

func (h *QueueHandler) controlOutput() *ControlOutput {
	running, paused := h.store.Flags()
	out := &ControlOutput{}
	out.Body.IsRunning = running
	out.Body.IsPaused = paused
	return out
}

// Start starts queue processing.
func (h *QueueHandler) Start(ctx context.Context, input *ControlInput) (*ControlOutput, error) {
	h.engine.Start()
	return h.controlOutput(), nil
}

// Pause pauses queue processing.
func (h *QueueHandler) Pause(ctx context.Context, input *ControlInput) (*ControlOutput, error) {
	h.engine.Pause()
	return h.controlOutput(), nil
}

// Resume resumes a paused queue.
func (h *QueueHandler) Resume(ctx context.Context, input *ControlInput) (*ControlOutput, error) {
	h.engine.Resume()
	return h.controlOutput(), nil
}

// Stop stops queue processing.
func (h *QueueHandler) Stop(ctx context.Context, input *ControlInput) (*ControlOutput, error) {
	h.engine.Stop()
	return h.controlOutput(), nil
}

// EnqueueInput is the input for enqueueing a job.
type EnqueueInput struct {
	Body struct {
		SourcePath   string `json:"source_path" minLength:"1" doc:"Absolute path of the source file"`
		HighPriority bool   `json:"high_priority,omitempty" doc:"Insert at the head of the queue"`
	}
}

// EnqueueOutput is the output for enqueueing a job.
type EnqueueOutput struct {
	Body struct {
		Job     *queue.Job `json:"job,omitempty"`
		Created bool       `json:"created"`
	}
}

// Enqueue adds a source file to the queue. A nil job with created=false
// means the source is already transcoded on disk.
func (h *QueueHandler) Enqueue(ctx context.Context, input *EnqueueInput) (*EnqueueOutput, error) {
	job, created := h.engine.Enqueue(input.Body.SourcePath, input.Body.HighPriority)
	resp := &EnqueueOutput{}
	resp.Body.Job = job
	resp.Body.Created = created
	return resp, nil
}

// JobIDInput identifies one job.
type JobIDInput struct {
	ID string `path:"id" doc:"Job ID"`
}

// AcceptedOutput reports whether a job operation took effect.
type AcceptedOutput struct {
	Body struct {
		OK bool `json:"ok"`
	}
}

func accepted(ok bool) *AcceptedOutput {
	out := &AcceptedOutput{}
	out.Body.OK = ok
	return out
}

// Cancel cancels a job.
func (h *QueueHandler) Cancel(ctx context.Context, input *JobIDInput) (*AcceptedOutput, error) {
	if !h.engine.CancelJob(input.ID) {
		return nil, huma.Error404NotFound("job not found")
	}
	return accepted(true), nil
}

// MoveUp moves a pending job one position up.
func (h *QueueHandler) MoveUp(ctx context.Context, input *JobIDInput) (*AcceptedOutput, error) {
	if !h.store.MoveUp(input.ID) {
		return nil, huma.Error404NotFound("job not found in pending queue")
	}
	return accepted(true), nil
}

// MoveDown moves a pending job one position down.
func (h *QueueHandler) MoveDown(ctx context.Context, input *JobIDInput) (*AcceptedOutput, error) {
	if !h.store.MoveDown(input.ID) {
		return nil, huma.Error404NotFound("job not found in pending queue")
	}
	return accepted(true), nil
}

// MoveToTop moves a pending job to the head of the queue.
func (h *QueueHandler) MoveToTop(ctx context.Context, input *JobIDInput) (*AcceptedOutput, error) {
	if !h.store.MoveToTop(input.ID) {
		return nil, huma.Error404NotFound("job not found in pending queue")
	}
	return accepted(true), nil
}

// ReorderInput is the input for replacing the pending order.
type ReorderInput struct {
	Body struct {
		IDs []string `json:"ids" doc:"Every pending job id in the desired order"`
	}
}

// Reorder replaces the pending queue order.
func (h *QueueHandler) Reorder(ctx context.Context, input *ReorderInput) (*AcceptedOutput, error) {
	if err := h.store.Reorder(input.Body.IDs); err != nil {
		return nil, huma.Error400BadRequest("invalid reorder list", err)
	}
	return accepted(true), nil
}

// RemoveJobsInput is the input for removing pending jobs.
type RemoveJobsInput struct {
	Body struct {
		IDs []string `json:"ids" doc:"Pending job ids to remove"`
	}
}

// RemoveJobsOutput reports how many jobs were removed.
type RemoveJobsOutput struct {
	Body struct {
		Removed int `json:"removed"`
	}
}

// Remove removes pending jobs by id.
func (h *QueueHandler) Remove(ctx context.Context, input *RemoveJobsInput) (*RemoveJobsOutput, error) {
	resp := &RemoveJobsOutput{}
	resp.Body.Removed = h.store.Remove(input.Body.IDs)
	return resp, nil
}

// DeduplicateOutput reports how many duplicates were dropped.
type DeduplicateOutput struct {
	Body struct {
		Removed int `json:"removed"`
	}
}

// Deduplicate collapses duplicate pending jobs.
func (h *QueueHandler) Deduplicate(ctx context.Context, input *ControlInput) (*DeduplicateOutput, error) {
	resp := &DeduplicateOutput{}
	resp.Body.Removed = h.store.RemoveDuplicates()
	return resp, nil
}

// SetAutoStartInput is the input for the auto-start setting.
type SetAutoStartInput struct {
	Body struct {
		Enabled bool `json:"enabled"`
	}
}

// SetAutoStartOutput echoes the auto-start setting.
type SetAutoStartOutput struct {
	Body struct {
		Enabled bool `json:"enabled"`
	}
}

// SetAutoStart changes the auto-start setting.
func (h *QueueHandler) SetAutoStart(ctx context.Context, input *SetAutoStartInput) (*SetAutoStartOutput, error) {
	h.engine.SetAutoStart(input.Body.Enabled)
	resp := &SetAutoStartOutput{}
	resp.Body.Enabled = h.engine.AutoStart()
	return resp, nil
}

// ScanOutput reports how many new jobs a scan created.
type ScanOutput struct {
	Body struct {
		Queued int `json:"queued"`
	}
}

// Scan walks the libraries and enqueues untranscoded files.
func (h *QueueHandler) Scan(ctx context.Context, input *ControlInput) (*ScanOutput, error) {
	resp := &ScanOutput{}
	resp.Body.Queued = h.engine.ScanAndQueue(ctx)
	return resp, nil
}
