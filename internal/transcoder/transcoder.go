// Package transcoder turns one source video into a demuxed HLS asset:
// a video rendition, one rendition per audio track, WebVTT subtitles and
// the JSON manifests a player needs to stitch them together.
package transcoder

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/vodarr/vodarr/internal/asset"
	"github.com/vodarr/vodarr/internal/ffmpeg"
	"github.com/vodarr/vodarr/internal/hlsplaylist"
)

// TranscodedMarker records in the library that a source finished
// transcoding. Implementations live in mediasync.
type TranscodedMarker interface {
	MarkTranscoded(ctx context.Context, sourcePath string) error
}

// Request is one transcode invocation. The callbacks hand telemetry and
// the live child handle back to the caller; any of them may be nil.
type Request struct {
	SourcePath string
	OutputDir  string

	// OnDuration reports the probed source duration once, before encoding.
	OnDuration func(seconds float64)

	// OnProgress reports overall percent, source position and encode speed.
	OnProgress func(overall float64, currentTime float64, speed float64)

	// OnChild reports the running ffmpeg child, and nil when it exits.
	OnChild func(child *ffmpeg.Process)
}

// Config carries the tunables for a Transcoder.
type Config struct {
	FFmpegPath      string
	SegmentDuration time.Duration
	SubtitleTimeout time.Duration
}

// Transcoder runs the per-job pipeline.
type Transcoder struct {
	prober          *ffmpeg.Prober
	caps            ffmpeg.CapabilitiesProvider
	marker          TranscodedMarker
	ffmpegPath      string
	segmentDuration time.Duration
	subtitleTimeout time.Duration
	logger          *slog.Logger
}

// New creates a Transcoder. marker may be nil when no library sync is
// wanted.
func New(cfg Config, prober *ffmpeg.Prober, caps ffmpeg.CapabilitiesProvider, marker TranscodedMarker, logger *slog.Logger) *Transcoder {
	segment := cfg.SegmentDuration
	if segment <= 0 {
		segment = 2 * time.Second
	}
	subTimeout := cfg.SubtitleTimeout
	if subTimeout <= 0 {
		subTimeout = 5 * time.Minute
	}
	return &Transcoder{
		prober:          prober,
		caps:            caps,
		marker:          marker,
		ffmpegPath:      cfg.FFmpegPath,
		segmentDuration: segment,
		subtitleTimeout: subTimeout,
		logger:          logger.With(slog.String("component", "transcoder")),
	}
}

// Run executes the full pipeline for one source. On failure the partial
// outputs and the lock are removed so a retry starts clean; manifests and
// subtitles from this attempt are redone on the retry anyway.
func (t *Transcoder) Run(ctx context.Context, req Request) error {
	log := t.logger.With(slog.String("source", req.SourcePath))
	started := time.Now()

	if err := asset.WriteTranscoding(req.OutputDir); err != nil {
		return fmt.Errorf("locking output dir: %w", err)
	}

	err := t.run(ctx, req, log)
	if err != nil {
		t.cleanPartialOutputs(req.OutputDir)
		if rmErr := asset.RemoveTranscoding(req.OutputDir); rmErr != nil {
			log.Warn("removing lock after failure", slog.String("error", rmErr.Error()))
		}
		return err
	}

	log.Info("transcode complete",
		slog.String("output", req.OutputDir),
		slog.Duration("elapsed", time.Since(started).Round(time.Second)),
	)
	return nil
}

func (t *Transcoder) run(ctx context.Context, req Request, log *slog.Logger) error {
	duration, err := t.prober.ProbeDuration(ctx, req.SourcePath)
	if err != nil || duration <= 0 {
		log.Warn("duration probe failed, assuming 2h", slog.Float64("duration", duration))
		duration = ffmpeg.DefaultDurationSeconds
	}
	if req.OnDuration != nil {
		req.OnDuration(duration)
	}

	streams, err := t.prober.ProbeStreams(ctx, req.SourcePath)
	if err != nil {
		return fmt.Errorf("probing streams: %w", err)
	}
	if streams.Synthetic {
		log.Warn("stream probe degraded, using synthetic single-audio layout")
	}

	caps := t.caps.Capabilities(ctx)
	plans := t.buildPlans(caps, streams.IsHEVC())
	log.Info("starting transcode",
		slog.String("acceleration", string(caps.Acceleration)),
		slog.String("video_codec", streams.VideoCodec),
		slog.Int("audio_tracks", streams.AudioCount()),
		slog.Int("subtitle_tracks", streams.SubtitleCount()),
		slog.Float64("duration", duration),
	)

	fps, err := t.prober.ProbeFramerate(ctx, req.SourcePath)
	if err != nil || fps <= 0 {
		log.Warn("framerate probe failed, assuming 24fps")
		fps = ffmpeg.DefaultFramerate
	}

	subs := t.extractSubtitles(ctx, req, streams.Subtitles)
	if err := writeSubtitlesInfo(req.OutputDir, subs); err != nil {
		return err
	}

	descriptors := buildAudioDescriptors(streams.Audios)
	if err := writeAudioInfo(req.OutputDir, descriptors); err != nil {
		return err
	}

	kept, err := t.encode(ctx, req, plans, streams.Audios, duration, fps)
	if err != nil {
		return err
	}
	if len(kept) != len(streams.Audios) {
		descriptors = buildAudioDescriptors(kept)
		if err := writeAudioInfo(req.OutputDir, descriptors); err != nil {
			return err
		}
	}

	if err := t.writeMasterPlaylist(req.OutputDir, descriptors); err != nil {
		return err
	}

	if err := ValidateOutput(req.OutputDir, len(kept)); err != nil {
		return err
	}

	if err := asset.RemoveTranscoding(req.OutputDir); err != nil {
		return fmt.Errorf("removing lock: %w", err)
	}
	if err := asset.WriteDone(req.OutputDir); err != nil {
		return fmt.Errorf("writing completion marker: %w", err)
	}

	if t.marker != nil {
		if err := t.marker.MarkTranscoded(ctx, req.SourcePath); err != nil {
			log.Warn("updating library record failed", slog.String("error", err.Error()))
		}
	}

	return nil
}

// writeMasterPlaylist renders the multivariant playlist referencing the
// video rendition and the published audio group.
func (t *Transcoder) writeMasterPlaylist(outputDir string, descriptors []AudioTrackDescriptor) error {
	renditions := make([]hlsplaylist.Rendition, 0, len(descriptors))
	for _, d := range descriptors {
		renditions = append(renditions, hlsplaylist.Rendition{
			Name:     d.Title,
			Language: d.Language,
			URI:      d.Playlist,
			Default:  d.IsDefault,
		})
	}
	return hlsplaylist.WriteMaster(filepath.Join(outputDir, "playlist.m3u8"), renditions)
}
