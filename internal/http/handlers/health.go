package handlers

import (
	"context"
	"runtime"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/vodarr/vodarr/internal/database"
)

// HealthHandler handles the health check endpoint.
type HealthHandler struct {
	version   string
	startTime time.Time
	db        *database.DB
}

// NewHealthHandler creates a new health handler. db may be nil.
func NewHealthHandler(version string, db *database.DB) *HealthHandler {
	return &HealthHandler{
		version:   version,
		startTime: time.Now(),
		db:        db,
	}
}

// Register registers the health routes with the API.
func (h *HealthHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getHealth",
		Method:      "GET",
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns the health status of the service with basic system metrics",
		Tags:        []string{"System"},
	}, h.GetHealth)
}

// HealthInput is the input for the health check endpoint.
type HealthInput struct{}

// HealthOutput is the output for the health check endpoint.
type HealthOutput struct {
	Body HealthResponse
}

// HealthResponse is the health check payload.
type HealthResponse struct {
	Status        string  `json:"status"`
	Timestamp     string  `json:"timestamp"`
	Version       string  `json:"version"`
	UptimeSeconds float64 `json:"uptime_seconds"`

	CPUCores int     `json:"cpu_cores"`
	Load1Min float64 `json:"load_1min"`

	MemoryTotalMB float64 `json:"memory_total_mb"`
	MemoryUsedMB  float64 `json:"memory_used_mb"`

	Database string `json:"database"`
}

// GetHealth returns the health status of the service.
func (h *HealthHandler) GetHealth(ctx context.Context, input *HealthInput) (*HealthOutput, error) {
	now := time.Now()

	resp := HealthResponse{
		Status:        "healthy",
		Timestamp:     now.UTC().Format(time.RFC3339),
		Version:       h.version,
		UptimeSeconds: now.Sub(h.startTime).Seconds(),
		CPUCores:      runtime.NumCPU(),
		Database:      "unknown",
	}

	if avg, err := load.Avg(); err == nil && avg != nil {
		resp.Load1Min = avg.Load1
	}
	if vm, err := mem.VirtualMemory(); err == nil && vm != nil {
		resp.MemoryTotalMB = float64(vm.Total) / 1024 / 1024
		resp.MemoryUsedMB = float64(vm.Used) / 1024 / 1024
	}

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			resp.Database = "error"
			resp.Status = "degraded"
		} else {
			resp.Database = "ok"
		}
	}

	return &HealthOutput{Body: resp}, nil
}
