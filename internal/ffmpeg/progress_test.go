package ffmpeg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProgressLine(t *testing.T) {
	tests := []struct {
		name         string
		line         string
		wantOK       bool
		wantSeconds  float64
		wantSpeed    float64
	}{
		{
			name:        "typical status line",
			line:        "frame= 2160 fps= 72 q=28.0 size=   12544kB time=00:01:30.04 bitrate=1141.3kbits/s speed=3.01x",
			wantOK:      true,
			wantSeconds: 90.04,
			wantSpeed:   3.01,
		},
		{
			name:        "hours",
			line:        "frame=172800 fps= 48 q=-1.0 size= 2097152kB time=02:00:00.00 bitrate=2386.1kbits/s speed= 2x",
			wantOK:      true,
			wantSeconds: 7200,
			wantSpeed:   2,
		},
		{
			name:        "no speed field",
			line:        "size=     256kB time=00:00:05.50 bitrate= 381.3kbits/s",
			wantOK:      true,
			wantSeconds: 5.5,
			wantSpeed:   0,
		},
		{name: "no time field", line: "frame=   10 fps=0.0 q=0.0 size=       0kB", wantOK: false},
		{name: "unrelated output", line: "Stream mapping:", wantOK: false},
		{name: "empty", line: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := ParseProgressLine(tt.line)
			if !tt.wantOK {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.InDelta(t, tt.wantSeconds, p.TimeSeconds, 0.001)
			assert.InDelta(t, tt.wantSpeed, p.Speed, 0.001)
		})
	}
}

func TestWeightsFor(t *testing.T) {
	w := WeightsFor(0)
	assert.Equal(t, float64(100), w.VideoPercent)
	assert.Zero(t, w.AudioPercent)

	w = WeightsFor(2)
	assert.Equal(t, float64(70), w.VideoPercent)
	assert.Equal(t, float64(30), w.AudioPercent)
}

func TestVideoProgress(t *testing.T) {
	w := WeightsFor(1)

	assert.InDelta(t, 35, w.VideoProgress(3600, 7200), 0.001)
	assert.Zero(t, w.VideoProgress(0, 7200))
	assert.Zero(t, w.VideoProgress(100, 0), "unknown duration reports no progress")
	assert.InDelta(t, 70, w.VideoProgress(9000, 7200), 0.001, "overshoot clamps to the pass weight")

	// A video-only job maps the full range but never reaches 100.
	solo := WeightsFor(0)
	assert.InDelta(t, 99, solo.VideoProgress(7200, 7200), 0.001)
}

func TestAudioProgress(t *testing.T) {
	w := WeightsFor(2)

	// First audio pass starts where the video pass ended.
	assert.InDelta(t, 70, w.AudioProgress(0, 7200, 0, 2), 0.001)
	assert.InDelta(t, 77.5, w.AudioProgress(3600, 7200, 0, 2), 0.001)
	assert.InDelta(t, 85, w.AudioProgress(0, 7200, 1, 2), 0.001)
	assert.InDelta(t, 92.5, w.AudioProgress(3600, 7200, 1, 2), 0.001)

	// The final pass tops out at the cap, not at 100.
	assert.InDelta(t, 99, w.AudioProgress(7200, 7200, 1, 2), 0.001)
}
