package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Probe defaults applied when the container cannot answer.
const (
	// DefaultDurationSeconds is assumed when the duration probe fails.
	DefaultDurationSeconds = 7200.0

	// DefaultFramerate is assumed when the framerate probe fails.
	DefaultFramerate = 24.0
)

// ErrCorruptedSource indicates the container cannot be parsed at all.
// Jobs failing with this error must not be retried.
var ErrCorruptedSource = errors.New("corrupted source file")

// corruptionMarkers are ffprobe output fragments that indicate an unreadable
// container rather than a transient failure.
var corruptionMarkers = []string{
	"Invalid data",
	"EBML header",
	"parsing failed",
}

// bitmapSubtitleCodecs are image-based subtitle formats that cannot be
// converted to WebVTT. Includes the common ffprobe aliases.
var bitmapSubtitleCodecs = map[string]bool{
	"hdmv_pgs_subtitle": true,
	"pgssub":            true,
	"dvd_subtitle":      true,
	"dvdsub":            true,
	"dvb_subtitle":      true,
	"dvbsub":            true,
	"xsub":              true,
	"vobsub":            true,
}

// invalidAudioCodecs are codec names that mark a track as undecodable.
var invalidAudioCodecs = map[string]bool{
	"":        true,
	"none":    true,
	"unknown": true,
}

// ProbeResult contains the complete ffprobe output.
type ProbeResult struct {
	Format  ProbeFormat   `json:"format"`
	Streams []ProbeStream `json:"streams"`
}

// ProbeFormat contains container format information.
type ProbeFormat struct {
	Filename       string            `json:"filename"`
	NumStreams     int               `json:"nb_streams"`
	FormatName     string            `json:"format_name"`
	FormatLongName string            `json:"format_long_name"`
	StartTime      string            `json:"start_time"`
	Duration       string            `json:"duration"`
	Size           string            `json:"size"`
	BitRate        string            `json:"bit_rate"`
	Tags           map[string]string `json:"tags"`
}

// ProbeStream contains stream information.
type ProbeStream struct {
	Index         int               `json:"index"`
	CodecName     string            `json:"codec_name"`
	CodecLongName string            `json:"codec_long_name"`
	Profile       string            `json:"profile"`
	CodecType     string            `json:"codec_type"` // video, audio, subtitle, data
	CodecTag      string            `json:"codec_tag_string"`
	Width         int               `json:"width,omitempty"`
	Height        int               `json:"height,omitempty"`
	PixFmt        string            `json:"pix_fmt,omitempty"`
	SampleRate    string            `json:"sample_rate,omitempty"`
	Channels      int               `json:"channels,omitempty"`
	ChannelLayout string            `json:"channel_layout,omitempty"`
	RFrameRate    string            `json:"r_frame_rate,omitempty"`
	AvgFrameRate  string            `json:"avg_frame_rate,omitempty"`
	Duration      string            `json:"duration,omitempty"`
	BitRate       string            `json:"bit_rate,omitempty"`
	Disposition   ProbeDisposition  `json:"disposition,omitempty"`
	Tags          map[string]string `json:"tags,omitempty"`
}

// ProbeDisposition contains stream disposition flags.
type ProbeDisposition struct {
	Default         int `json:"default"`
	Dub             int `json:"dub"`
	Original        int `json:"original"`
	Comment         int `json:"comment"`
	Forced          int `json:"forced"`
	HearingImpaired int `json:"hearing_impaired"`
	VisualImpaired  int `json:"visual_impaired"`
	AttachedPic     int `json:"attached_pic"`
}

// AudioTrack describes one decodable audio stream of a source file.
type AudioTrack struct {
	SourceIndex int    `json:"source_index"`
	Language    string `json:"language"`
	Title       string `json:"title,omitempty"`
	Codec       string `json:"codec"`
	Channels    int    `json:"channels"`
	IsDefault   bool   `json:"is_default"`
}

// SubtitleTrack describes one text subtitle stream of a source file.
type SubtitleTrack struct {
	SourceIndex int    `json:"source_index"`
	Language    string `json:"language"`
	Title       string `json:"title,omitempty"`
	Codec       string `json:"codec"`
}

// StreamInfo is the filtered view of a source file's streams. Audio tracks
// with no codec, zero channels, or an encrypted codec tag are dropped, as
// are bitmap subtitle tracks.
type StreamInfo struct {
	VideoCodec string          `json:"video_codec,omitempty"`
	Audios     []AudioTrack    `json:"audios"`
	Subtitles  []SubtitleTrack `json:"subtitles"`
	Synthetic  bool            `json:"synthetic,omitempty"`
}

// AudioCount returns the number of kept audio tracks.
func (s *StreamInfo) AudioCount() int { return len(s.Audios) }

// SubtitleCount returns the number of kept subtitle tracks.
func (s *StreamInfo) SubtitleCount() int { return len(s.Subtitles) }

// IsHEVC returns true when the source video codec is HEVC/H.265.
func (s *StreamInfo) IsHEVC() bool {
	c := strings.ToLower(s.VideoCodec)
	return c == "hevc" || c == "h265"
}

// Prober handles ffprobe operations against local media files.
type Prober struct {
	ffprobePath string
	timeout     time.Duration
}

// NewProber creates a new file prober.
func NewProber(ffprobePath string) *Prober {
	return &Prober{
		ffprobePath: ffprobePath,
		timeout:     30 * time.Second,
	}
}

// WithTimeout sets the probe timeout.
func (p *Prober) WithTimeout(timeout time.Duration) *Prober {
	p.timeout = timeout
	return p
}

// Probe probes a media file and returns the raw ffprobe result.
func (p *Prober) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}

	cmd := exec.CommandContext(ctx, p.ffprobePath, args...)
	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("probe timeout after %v", p.timeout)
		}
		if isCorruptionOutput(stderrOf(err)) {
			return nil, fmt.Errorf("%w: %s", ErrCorruptedSource, firstLine(stderrOf(err)))
		}
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	var result ProbeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, fmt.Errorf("parsing ffprobe output: %w", err)
	}

	return &result, nil
}

// ProbeStreams probes a file and returns the filtered stream view. Corruption
// is fatal; any other failure degrades to a synthetic single-audio result so
// the transcode can still proceed.
func (p *Prober) ProbeStreams(ctx context.Context, path string) (*StreamInfo, error) {
	result, err := p.Probe(ctx, path)
	if err != nil {
		if errors.Is(err, ErrCorruptedSource) {
			return nil, err
		}
		return SyntheticStreamInfo(), nil
	}
	return FilterStreams(result), nil
}

// SyntheticStreamInfo is the degraded probe result: one default audio track,
// no subtitles.
func SyntheticStreamInfo() *StreamInfo {
	return &StreamInfo{
		Audios: []AudioTrack{{
			SourceIndex: 0,
			Language:    "und",
			IsDefault:   true,
		}},
		Synthetic: true,
	}
}

// FilterStreams converts a raw probe result into the filtered stream view.
// SourceIndex is the ordinal among all streams of the same type in the
// container, counting dropped tracks, so it matches ffmpeg's 0:a:N and 0:s:N
// stream specifiers.
func FilterStreams(result *ProbeResult) *StreamInfo {
	info := &StreamInfo{}

	audioOrdinal := -1
	subOrdinal := -1
	for _, stream := range result.Streams {
		switch stream.CodecType {
		case "video":
			if info.VideoCodec == "" && stream.Disposition.AttachedPic == 0 {
				info.VideoCodec = stream.CodecName
			}

		case "audio":
			audioOrdinal++
			if invalidAudioCodecs[strings.ToLower(stream.CodecName)] {
				continue
			}
			if stream.Channels == 0 {
				continue
			}
			// "enca" marks an encrypted audio stream.
			if strings.EqualFold(stream.CodecTag, "enca") {
				continue
			}
			track := AudioTrack{
				SourceIndex: audioOrdinal,
				Language:    tagOrDefault(stream.Tags, "language", "und"),
				Title:       stream.Tags["title"],
				Codec:       stream.CodecName,
				Channels:    stream.Channels,
				IsDefault:   stream.Disposition.Default == 1,
			}
			info.Audios = append(info.Audios, track)

		case "subtitle":
			subOrdinal++
			if bitmapSubtitleCodecs[strings.ToLower(stream.CodecName)] {
				continue
			}
			if invalidAudioCodecs[strings.ToLower(stream.CodecName)] {
				continue
			}
			track := SubtitleTrack{
				SourceIndex: subOrdinal,
				Language:    tagOrDefault(stream.Tags, "language", "und"),
				Title:       stream.Tags["title"],
				Codec:       stream.CodecName,
			}
			info.Subtitles = append(info.Subtitles, track)
		}
	}

	return info
}

// ProbeDuration reads the container duration in seconds. Callers fall back
// to DefaultDurationSeconds on error.
func (p *Prober) ProbeDuration(ctx context.Context, path string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	cmd := exec.CommandContext(ctx, p.ffprobePath, args...)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("duration probe failed: %w", err)
	}

	dur, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil || dur <= 0 || math.IsNaN(dur) {
		return 0, fmt.Errorf("invalid duration %q", strings.TrimSpace(string(output)))
	}

	return dur, nil
}

// ProbeFramerate reads the average frame rate of the first video stream.
// Callers fall back to DefaultFramerate on error.
func (p *Prober) ProbeFramerate(ctx context.Context, path string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	args := []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=avg_frame_rate",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	cmd := exec.CommandContext(ctx, p.ffprobePath, args...)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("framerate probe failed: %w", err)
	}

	fps := ParseFramerate(strings.TrimSpace(string(output)))
	if fps <= 0 {
		return 0, fmt.Errorf("invalid framerate %q", strings.TrimSpace(string(output)))
	}

	return fps, nil
}

// ParseFramerate parses a framerate string like "30000/1001" or "25/1".
func ParseFramerate(fr string) float64 {
	parts := strings.Split(fr, "/")
	if len(parts) != 2 {
		if f, err := strconv.ParseFloat(fr, 64); err == nil {
			return f
		}
		return 0
	}

	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}

	return num / den
}

// IsCorruptionError reports whether an error message looks like container
// corruption rather than a transient toolchain failure.
func IsCorruptionError(msg string) bool {
	if strings.Contains(msg, "corrupted") {
		return true
	}
	return isCorruptionOutput(msg)
}

func isCorruptionOutput(out string) bool {
	for _, marker := range corruptionMarkers {
		if strings.Contains(out, marker) {
			return true
		}
	}
	return false
}

// stderrOf extracts captured stderr from an exec error, if any.
func stderrOf(err error) string {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return string(exitErr.Stderr)
	}
	return err.Error()
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func tagOrDefault(tags map[string]string, key, def string) string {
	if v, ok := tags[key]; ok && v != "" {
		return v
	}
	return def
}
