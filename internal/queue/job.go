// Package queue holds the pending transcode queue, the active-job table and
// the bounded completion history, persisted to a single JSON document.
package queue

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a transcode job.
type Status string

const (
	StatusPending     Status = "pending"
	StatusTranscoding Status = "transcoding"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusCancelled   Status = "cancelled"
)

// Job is one unit of transcode work.
type Job struct {
	ID         string `json:"id"`
	SourcePath string `json:"source_path"`
	Filename   string `json:"filename"`
	OutputDir  string `json:"output_dir"`

	Status     Status  `json:"status"`
	Progress   float64 `json:"progress"`
	Priority   int64   `json:"priority"`
	RetryCount int     `json:"retry_count"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Runtime telemetry, meaningful only while transcoding.
	CurrentTimeSeconds       float64 `json:"current_time_seconds,omitempty"`
	EstimatedDurationSeconds float64 `json:"estimated_duration_seconds,omitempty"`
	SpeedMultiplier          float64 `json:"speed_multiplier,omitempty"`
	PID                      int     `json:"pid,omitempty"`

	FileSizeBytes int64     `json:"file_size_bytes,omitempty"`
	ModTime       time.Time `json:"mtime,omitempty"`

	Error string `json:"error,omitempty"`
}

// NewJob creates a pending job for a source file.
func NewJob(sourcePath, outputDir string, highPriority bool) *Job {
	var priority int64
	if highPriority {
		priority = time.Now().Unix()
	}
	return &Job{
		ID:         uuid.NewString(),
		SourcePath: sourcePath,
		Filename:   filepath.Base(sourcePath),
		OutputDir:  outputDir,
		Status:     StatusPending,
		Priority:   priority,
	}
}

// Clone returns a deep copy, safe to hand to callers outside the store lock.
func (j *Job) Clone() *Job {
	out := *j
	if j.StartedAt != nil {
		t := *j.StartedAt
		out.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}

// NormalizeFilename is the case-insensitive de-duplication key.
func NormalizeFilename(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NormalizePath is the source-path de-duplication key.
func NormalizePath(path string) string {
	return filepath.Clean(strings.TrimSpace(path))
}

// filepathBase is filepath.Base, named so call sites read next to the
// normalization helpers.
func filepathBase(path string) string {
	return filepath.Base(path)
}
