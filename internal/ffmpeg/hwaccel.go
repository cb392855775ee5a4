package ffmpeg

import (
	"context"
	"os/exec"
	"runtime"
	"sync"
	"time"
)

// HWAccelType represents a hardware acceleration type.
type HWAccelType string

const (
	HWAccelNone         HWAccelType = "none"
	HWAccelVAAPI        HWAccelType = "vaapi"        // VA-API (Linux)
	HWAccelQSV          HWAccelType = "qsv"          // Intel Quick Sync
	HWAccelVideoToolbox HWAccelType = "videotoolbox" // macOS
)

// Capabilities is the hardware plan the transcoder builds its command lines
// from.
type Capabilities struct {
	Acceleration      HWAccelType `json:"acceleration"`
	DecoderArgs       []string    `json:"decoder_args"`
	EncoderArgs       []string    `json:"encoder_args"`
	SupportsHEVC      bool        `json:"supports_hevc"`
	MaxConcurrentHint int         `json:"max_concurrent_hint"`
	DeviceName        string      `json:"device_name,omitempty"`
}

// CapabilitiesProvider answers the one hardware question the transcoder asks.
type CapabilitiesProvider interface {
	Capabilities(ctx context.Context) Capabilities
}

// HWAccelDetector probes ffmpeg for working hardware acceleration. Results
// are cached; detection runs real encode attempts and is not cheap.
type HWAccelDetector struct {
	ffmpegPath string

	mu       sync.Mutex
	detected bool
	caps     Capabilities
}

// NewHWAccelDetector creates a new hardware acceleration detector.
func NewHWAccelDetector(ffmpegPath string) *HWAccelDetector {
	return &HWAccelDetector{ffmpegPath: ffmpegPath}
}

// Capabilities implements CapabilitiesProvider.
func (d *HWAccelDetector) Capabilities(ctx context.Context) Capabilities {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.detected {
		return d.caps
	}

	d.caps = d.detect(ctx)
	d.detected = true
	return d.caps
}

// detect tries the platform-native accelerators in order and falls back to
// software.
func (d *HWAccelDetector) detect(ctx context.Context) Capabilities {
	if runtime.GOOS == "darwin" {
		if ok := d.testVideoToolbox(ctx); ok {
			return Capabilities{
				Acceleration:      HWAccelVideoToolbox,
				EncoderArgs:       []string{"-c:v", "h264_videotoolbox", "-b:v", "5000k"},
				SupportsHEVC:      true,
				MaxConcurrentHint: 2,
				DeviceName:        "Apple VideoToolbox",
			}
		}
	}

	if runtime.GOOS == "linux" {
		if device := d.testVAAPI(ctx); device != "" {
			return Capabilities{
				Acceleration: HWAccelVAAPI,
				DecoderArgs: []string{
					"-hwaccel", "vaapi",
					"-hwaccel_device", device,
					"-hwaccel_output_format", "vaapi",
				},
				EncoderArgs: []string{
					"-c:v", "h264_vaapi",
					"-qp", "23",
				},
				SupportsHEVC:      true,
				MaxConcurrentHint: 2,
				DeviceName:        device,
			}
		}
	}

	return SoftwareCapabilities()
}

// SoftwareCapabilities is the plan used when no accelerator works.
func SoftwareCapabilities() Capabilities {
	return Capabilities{
		Acceleration: HWAccelNone,
		EncoderArgs: []string{
			"-c:v", "libx264",
			"-preset", "fast",
			"-crf", "23",
		},
		SupportsHEVC:      true,
		MaxConcurrentHint: 1,
	}
}

// testVAAPI probes the render nodes and returns the first device that can
// complete a tiny h264_vaapi encode.
func (d *HWAccelDetector) testVAAPI(ctx context.Context) string {
	devices := []string{"/dev/dri/renderD128", "/dev/dri/renderD129"}

	for _, device := range devices {
		tctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		cmd := exec.CommandContext(tctx, d.ffmpegPath,
			"-hide_banner",
			"-vaapi_device", device,
			"-f", "lavfi", "-i", "nullsrc=s=320x240:d=0.1",
			"-vf", "format=nv12,hwupload",
			"-c:v", "h264_vaapi",
			"-t", "0.01",
			"-f", "null", "-")
		err := cmd.Run()
		cancel()
		if err == nil {
			return device
		}
	}

	return ""
}

// testVideoToolbox checks Apple VideoToolbox availability.
func (d *HWAccelDetector) testVideoToolbox(ctx context.Context) bool {
	tctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(tctx, d.ffmpegPath,
		"-hide_banner",
		"-f", "lavfi", "-i", "nullsrc=s=320x240:d=0.1",
		"-c:v", "h264_videotoolbox",
		"-t", "0.01",
		"-f", "null", "-")
	return cmd.Run() == nil
}

// StaticCapabilities is a CapabilitiesProvider returning a fixed plan.
// Used in tests and when acceleration is configured explicitly.
type StaticCapabilities struct {
	Caps Capabilities
}

// Capabilities implements CapabilitiesProvider.
func (s StaticCapabilities) Capabilities(ctx context.Context) Capabilities {
	return s.Caps
}
