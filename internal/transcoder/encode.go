package transcoder

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vodarr/vodarr/internal/ffmpeg"
)

// encodePlan is one decode+encode strategy attempt.
type encodePlan struct {
	name        string
	globalArgs  []string
	inputArgs   []string
	videoFilter string
	encoderArgs []string
}

// buildPlans returns the ordered strategy ladder for a source. VAAPI
// sources get the full GPU pipeline; HEVC sources additionally get a
// software-decode retry because GPU HEVC decode is the flaky half.
func (t *Transcoder) buildPlans(caps ffmpeg.Capabilities, isHEVC bool) []encodePlan {
	if caps.Acceleration == ffmpeg.HWAccelVAAPI {
		full := encodePlan{
			name:        "vaapi",
			inputArgs:   caps.DecoderArgs,
			videoFilter: "scale_vaapi=format=nv12",
			encoderArgs: caps.EncoderArgs,
		}
		if !isHEVC {
			return []encodePlan{full}
		}
		swDecode := encodePlan{
			name:        "vaapi-swdecode",
			globalArgs:  []string{"-vaapi_device", caps.DeviceName},
			videoFilter: "format=nv12,hwupload",
			encoderArgs: caps.EncoderArgs,
		}
		return []encodePlan{full, swDecode}
	}

	if caps.Acceleration == ffmpeg.HWAccelVideoToolbox {
		return []encodePlan{{
			name:        "videotoolbox",
			encoderArgs: caps.EncoderArgs,
		}}
	}

	software := ffmpeg.SoftwareCapabilities()
	return []encodePlan{{
		name:        "software",
		encoderArgs: software.EncoderArgs,
	}}
}

// gopArgs computes the keyframe cadence that aligns GOPs to segment
// boundaries, making every segment independently decodable.
func (t *Transcoder) gopArgs(fps float64) []string {
	segSeconds := t.segmentDuration.Seconds()
	gop := int(math.Round(fps * segSeconds))
	keyintMin := int(math.Round(fps))
	return []string{
		"-g", strconv.Itoa(gop),
		"-keyint_min", strconv.Itoa(keyintMin),
		"-force_key_frames", fmt.Sprintf("expr:gte(t,n_forced*%d)", int(segSeconds)),
	}
}

// hlsArgs are the output flags shared by the video and audio renditions.
func (t *Transcoder) hlsArgs(segmentPattern string) []string {
	return []string{
		"-f", "hls",
		"-hls_time", strconv.Itoa(int(t.segmentDuration.Seconds())),
		"-hls_playlist_type", "vod",
		"-hls_segment_type", "mpegts",
		"-hls_flags", "independent_segments",
		"-hls_list_size", "0",
		"-hls_segment_filename", segmentPattern,
	}
}

func (t *Transcoder) videoOutputArgs(plan encodePlan, outputDir string, fps float64) []string {
	args := []string{"-map", "0:v:0"}
	if plan.videoFilter != "" {
		args = append(args, "-vf", plan.videoFilter)
	}
	args = append(args, plan.encoderArgs...)
	args = append(args, t.gopArgs(fps)...)
	args = append(args, "-an", "-sn")
	args = append(args, t.hlsArgs(filepath.Join(outputDir, "video_segment%d.ts"))...)
	return args
}

func (t *Transcoder) audioOutputArgs(track ffmpeg.AudioTrack, renditionIndex int, outputDir string) []string {
	args := []string{
		"-map", fmt.Sprintf("0:a:%d", track.SourceIndex),
		"-c:a", "aac",
		"-ac", "2",
		"-ar", "48000",
		"-b:a", "192k",
		"-vn", "-sn",
	}
	args = append(args, t.hlsArgs(filepath.Join(outputDir, fmt.Sprintf("audio_%d_segment%%d.ts", renditionIndex)))...)
	return args
}

func audioPlaylistPath(outputDir string, renditionIndex int) string {
	return filepath.Join(outputDir, fmt.Sprintf("audio_%d.m3u8", renditionIndex))
}

// encode produces the HLS outputs: one combined run first, sequential
// passes as fallback. Returns the audio tracks that survived (secondary
// audio failures drop the track, not the job).
func (t *Transcoder) encode(ctx context.Context, req Request, plans []encodePlan, audios []ffmpeg.AudioTrack, duration, fps float64) ([]ffmpeg.AudioTrack, error) {
	var lastErr error
	for i, plan := range plans {
		err := t.runCombinedPass(ctx, req, plan, audios, duration, fps)
		if err == nil {
			return audios, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
		t.cleanPartialOutputs(req.OutputDir)
		if i+1 < len(plans) && looksLikeDecodeFailure(err) {
			t.logger.Warn("hardware decode failed, retrying with software decode",
				slog.String("plan", plan.name),
				slog.String("error", err.Error()),
			)
			continue
		}
		break
	}

	t.logger.Warn("combined encode failed, falling back to sequential passes",
		slog.String("source", req.SourcePath),
		slog.String("error", lastErr.Error()),
	)

	return t.runSequential(ctx, req, plans, audios, duration, fps)
}

// runCombinedPass runs one ffmpeg with the video output plus every audio
// output. A single pass traverses the source once, so its time maps
// directly onto overall progress.
func (t *Transcoder) runCombinedPass(ctx context.Context, req Request, plan encodePlan, audios []ffmpeg.AudioTrack, duration, fps float64) error {
	b := ffmpeg.NewCommandBuilder(t.ffmpegPath)
	b.GlobalArgs(plan.globalArgs...)
	b.InputArgs(plan.inputArgs...)
	b.Input(req.SourcePath)
	b.Output(filepath.Join(req.OutputDir, "video.m3u8"), t.videoOutputArgs(plan, req.OutputDir, fps)...)
	for i, track := range audios {
		b.Output(audioPlaylistPath(req.OutputDir, i), t.audioOutputArgs(track, i, req.OutputDir)...)
	}

	return t.runPass(ctx, req, b, func(p ffmpeg.Progress) float64 {
		return progressFraction(p.TimeSeconds, duration) * 99
	})
}

// runSequential encodes the video rendition first, then each audio
// rendition in order. The first audio failing fails the job; later ones
// are dropped.
func (t *Transcoder) runSequential(ctx context.Context, req Request, plans []encodePlan, audios []ffmpeg.AudioTrack, duration, fps float64) ([]ffmpeg.AudioTrack, error) {
	weights := ffmpeg.WeightsFor(len(audios))

	var err error
	for i, plan := range plans {
		b := ffmpeg.NewCommandBuilder(t.ffmpegPath)
		b.GlobalArgs(plan.globalArgs...)
		b.InputArgs(plan.inputArgs...)
		b.Input(req.SourcePath)
		b.Output(filepath.Join(req.OutputDir, "video.m3u8"), t.videoOutputArgs(plan, req.OutputDir, fps)...)

		err = t.runPass(ctx, req, b, func(p ffmpeg.Progress) float64 {
			return weights.VideoProgress(p.TimeSeconds, duration)
		})
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return nil, err
		}
		t.cleanPartialOutputs(req.OutputDir)
		if i+1 < len(plans) && looksLikeDecodeFailure(err) {
			continue
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	kept := make([]ffmpeg.AudioTrack, 0, len(audios))
	for i, track := range audios {
		b := ffmpeg.NewCommandBuilder(t.ffmpegPath)
		b.Input(req.SourcePath)
		b.Output(audioPlaylistPath(req.OutputDir, len(kept)), t.audioOutputArgs(track, len(kept), req.OutputDir)...)

		passIndex := i
		passErr := t.runPass(ctx, req, b, func(p ffmpeg.Progress) float64 {
			return weights.AudioProgress(p.TimeSeconds, duration, passIndex, len(audios))
		})
		if passErr != nil {
			if ctx.Err() != nil {
				return nil, passErr
			}
			if len(kept) == 0 {
				// The default rendition must exist; without it the asset
				// advertises audio it cannot play.
				return nil, passErr
			}
			t.logger.Warn("secondary audio rendition failed, dropping track",
				slog.Int("track", track.SourceIndex),
				slog.String("language", track.Language),
				slog.String("error", passErr.Error()),
			)
			t.removeAudioRendition(req.OutputDir, len(kept))
			continue
		}
		kept = append(kept, track)
	}

	return kept, nil
}

// runPass launches one ffmpeg pass at low priority, registers the child so
// pause and cancel can reach it, and feeds progress upward.
func (t *Transcoder) runPass(ctx context.Context, req Request, b *ffmpeg.CommandBuilder, toOverall func(ffmpeg.Progress) float64) error {
	onProgress := func(p ffmpeg.Progress) {
		if req.OnProgress != nil {
			req.OnProgress(toOverall(p), p.TimeSeconds, p.Speed)
		}
	}

	t.logger.Debug("starting ffmpeg pass", slog.String("cmd", b.String()))

	proc, err := ffmpeg.StartProcess(ctx, b.Binary(), b.Args(), true, onProgress)
	if err != nil {
		return err
	}
	return t.waitChild(req, proc)
}

// waitChild publishes the child for the duration of one ffmpeg run so
// pause, stop and cancel can reach it, then waits it out.
func (t *Transcoder) waitChild(req Request, proc *ffmpeg.Process) error {
	if req.OnChild != nil {
		req.OnChild(proc)
	}
	err := proc.Wait()
	if req.OnChild != nil {
		req.OnChild(nil)
	}
	return err
}

// cleanPartialOutputs removes segments and playlists left by a failed pass.
// Manifests, subtitles and the lock file stay.
func (t *Transcoder) cleanPartialOutputs(outputDir string) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return
	}
	for _, e := range entries {
		name := e.Name()
		if strings.HasSuffix(name, ".ts") || strings.HasSuffix(name, ".m3u8") {
			_ = os.Remove(filepath.Join(outputDir, name))
		}
	}
}

// removeAudioRendition deletes the partial playlist and segments of one
// audio rendition index.
func (t *Transcoder) removeAudioRendition(outputDir string, renditionIndex int) {
	_ = os.Remove(audioPlaylistPath(outputDir, renditionIndex))
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return
	}
	prefix := fmt.Sprintf("audio_%d_segment", renditionIndex)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), prefix) {
			_ = os.Remove(filepath.Join(outputDir, e.Name()))
		}
	}
}

func progressFraction(pos, total float64) float64 {
	if total <= 0 {
		return 0
	}
	f := pos / total
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
