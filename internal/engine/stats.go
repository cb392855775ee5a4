package engine

import (
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/disk"

	"github.com/vodarr/vodarr/internal/ffmpeg"
	"github.com/vodarr/vodarr/internal/queue"
	"github.com/vodarr/vodarr/pkg/bytesize"
	"github.com/vodarr/vodarr/pkg/duration"
)

// Stats is the queue snapshot the API returns.
type Stats struct {
	IsRunning bool `json:"is_running"`
	IsPaused  bool `json:"is_paused"`
	AutoStart bool `json:"auto_start"`

	PendingCount   int `json:"pending_count"`
	ActiveCount    int `json:"active_count"`
	CompletedCount int `json:"completed_count"`
	MaxConcurrent  int `json:"max_concurrent"`

	ActiveJobs []*queue.Job `json:"active_jobs"`

	// ETASeconds estimates how long the current backlog takes to drain.
	ETASeconds float64 `json:"eta_seconds"`
	// ETAText is ETASeconds rendered for humans, e.g. "2h30m".
	ETAText string `json:"eta_text"`

	DiskUsage *DiskUsage `json:"disk_usage,omitempty"`
}

// DiskUsage summarizes the transcoded volume.
type DiskUsage struct {
	Total       string  `json:"total"`
	Free        string  `json:"free"`
	UsedPercent float64 `json:"used_percent"`
}

// Stats assembles the current snapshot. Disk usage is a stale read from
// a cache refreshed in the background.
func (e *Engine) Stats() Stats {
	running, paused := e.store.Flags()
	pending, active, completed := e.store.Counts()
	activeJobs := e.store.Active()
	eta := estimateETA(activeJobs, pending, e.maxConcurrent)

	return Stats{
		IsRunning:      running,
		IsPaused:       paused,
		AutoStart:      e.AutoStart(),
		PendingCount:   pending,
		ActiveCount:    active,
		CompletedCount: completed,
		MaxConcurrent:  e.maxConcurrent,
		ActiveJobs:     activeJobs,
		ETASeconds:     eta,
		ETAText:        duration.Format(time.Duration(eta) * time.Second),
		DiskUsage:      e.disk.get(),
	}
}

// estimateETA sums the longest active remainder with the queued backlog
// spread across the workers. Jobs with no telemetry yet count as a full
// two-hour source at realtime speed.
func estimateETA(active []*queue.Job, pending, maxConcurrent int) float64 {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	var maxActive float64
	speedSum, speedN := 0.0, 0
	for _, j := range active {
		dur := j.EstimatedDurationSeconds
		if dur <= 0 {
			dur = ffmpeg.DefaultDurationSeconds
		}
		speed := j.SpeedMultiplier
		if speed > 0 {
			speedSum += speed
			speedN++
		} else {
			speed = 1
		}
		remaining := (dur - j.CurrentTimeSeconds) / speed
		if remaining < 0 {
			remaining = 0
		}
		if remaining > maxActive {
			maxActive = remaining
		}
	}

	avgSpeed := 1.0
	if speedN > 0 {
		avgSpeed = speedSum / float64(speedN)
	}

	perJob := ffmpeg.DefaultDurationSeconds / avgSpeed
	backlog := float64(pending) * perJob / float64(maxConcurrent)

	return maxActive + backlog
}

// diskUsageCache caches the statfs result for the transcoded volume.
// Reads are always served from the cache; a stale entry schedules a
// background refresh so Stats never waits on statfs. statfs on large
// network mounts is not free.
type diskUsageCache struct {
	path     string
	interval time.Duration

	mu         sync.Mutex
	cached     *DiskUsage
	refreshed  time.Time
	refreshing bool
}

func (c *diskUsageCache) get() *DiskUsage {
	c.mu.Lock()
	defer c.mu.Unlock()

	stale := c.cached == nil || time.Since(c.refreshed) >= c.interval
	if stale && !c.refreshing {
		c.refreshing = true
		go c.refresh()
	}
	return c.cached
}

func (c *diskUsageCache) refresh() {
	usage, err := disk.Usage(c.path)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshing = false
	if err != nil {
		return
	}
	c.cached = &DiskUsage{
		Total:       bytesize.Format(bytesize.Size(usage.Total)),
		Free:        bytesize.Format(bytesize.Size(usage.Free)),
		UsedPercent: roundPercent(usage.UsedPercent),
	}
	c.refreshed = time.Now()
}

func roundPercent(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
