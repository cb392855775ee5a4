package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vodarr/vodarr/internal/ffmpeg"
	"github.com/vodarr/vodarr/internal/queue"
)

func TestEstimateETA(t *testing.T) {
	t.Run("idle queue", func(t *testing.T) {
		assert.Zero(t, estimateETA(nil, 0, 2))
	})

	t.Run("active job with telemetry", func(t *testing.T) {
		active := []*queue.Job{{
			EstimatedDurationSeconds: 7200,
			CurrentTimeSeconds:       3600,
			SpeedMultiplier:          2,
		}}
		// 3600 seconds of source left at 2x.
		assert.InDelta(t, 1800, estimateETA(active, 0, 2), 0.001)
	})

	t.Run("slowest active job dominates", func(t *testing.T) {
		active := []*queue.Job{
			{EstimatedDurationSeconds: 7200, CurrentTimeSeconds: 7000, SpeedMultiplier: 2},
			{EstimatedDurationSeconds: 7200, CurrentTimeSeconds: 1200, SpeedMultiplier: 1},
		}
		assert.InDelta(t, 6000, estimateETA(active, 0, 2), 0.001)
	})

	t.Run("job without telemetry counts as a full source", func(t *testing.T) {
		active := []*queue.Job{{}}
		assert.InDelta(t, ffmpeg.DefaultDurationSeconds, estimateETA(active, 0, 2), 0.001)
	})

	t.Run("pending backlog spreads across workers", func(t *testing.T) {
		// Four queued two-hour sources over two workers at realtime.
		assert.InDelta(t, 4*7200/2, estimateETA(nil, 4, 2), 0.001)
	})

	t.Run("backlog uses the observed average speed", func(t *testing.T) {
		active := []*queue.Job{{
			EstimatedDurationSeconds: 7200,
			CurrentTimeSeconds:       7200,
			SpeedMultiplier:          4,
		}}
		// Remaining active work is zero; two pending jobs at the observed
		// 4x over one worker.
		assert.InDelta(t, 2*7200/4, estimateETA(active, 2, 1), 0.001)
	})

	t.Run("overshot progress clamps to zero", func(t *testing.T) {
		active := []*queue.Job{{
			EstimatedDurationSeconds: 100,
			CurrentTimeSeconds:       500,
			SpeedMultiplier:          1,
		}}
		assert.Zero(t, estimateETA(active, 0, 1))
	})

	t.Run("zero workers treated as one", func(t *testing.T) {
		assert.InDelta(t, 7200, estimateETA(nil, 1, 0), 0.001)
	})
}

func TestRoundPercent(t *testing.T) {
	assert.Equal(t, 42.3, roundPercent(42.31))
	assert.Equal(t, 42.4, roundPercent(42.36))
	assert.Equal(t, 0.0, roundPercent(0))
	assert.Equal(t, 100.0, roundPercent(99.99))
}

func TestDiskUsageCacheNeverBlocks(t *testing.T) {
	c := diskUsageCache{path: t.TempDir(), interval: time.Hour}

	// The first read has nothing cached; it only schedules the refresh.
	assert.Nil(t, c.get())

	require.Eventually(t, func() bool {
		return c.get() != nil
	}, 2*time.Second, 10*time.Millisecond)

	usage := c.get()
	assert.NotEmpty(t, usage.Total)
	assert.NotEmpty(t, usage.Free)
	assert.GreaterOrEqual(t, usage.UsedPercent, 0.0)
}
