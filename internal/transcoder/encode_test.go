package transcoder

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vodarr/vodarr/internal/ffmpeg"
)

func newTestTranscoder(t *testing.T) *Transcoder {
	t.Helper()
	return New(Config{FFmpegPath: "/usr/bin/ffmpeg"}, nil, nil, nil, slog.Default())
}

func TestBuildPlans(t *testing.T) {
	tr := newTestTranscoder(t)

	vaapi := ffmpeg.Capabilities{
		Acceleration: ffmpeg.HWAccelVAAPI,
		DecoderArgs:  []string{"-hwaccel", "vaapi", "-hwaccel_device", "/dev/dri/renderD128", "-hwaccel_output_format", "vaapi"},
		EncoderArgs:  []string{"-c:v", "h264_vaapi", "-qp", "23"},
		DeviceName:   "/dev/dri/renderD128",
	}

	t.Run("vaapi h264 source has one plan", func(t *testing.T) {
		plans := tr.buildPlans(vaapi, false)
		require.Len(t, plans, 1)
		assert.Equal(t, "vaapi", plans[0].name)
		assert.Equal(t, "scale_vaapi=format=nv12", plans[0].videoFilter)
		assert.Equal(t, vaapi.DecoderArgs, plans[0].inputArgs)
	})

	t.Run("vaapi hevc source gets a software decode fallback", func(t *testing.T) {
		plans := tr.buildPlans(vaapi, true)
		require.Len(t, plans, 2)
		assert.Equal(t, "vaapi", plans[0].name)

		fallback := plans[1]
		assert.Equal(t, "vaapi-swdecode", fallback.name)
		assert.Equal(t, []string{"-vaapi_device", "/dev/dri/renderD128"}, fallback.globalArgs)
		assert.Empty(t, fallback.inputArgs, "decode happens in software")
		assert.Equal(t, "format=nv12,hwupload", fallback.videoFilter)
		assert.Equal(t, vaapi.EncoderArgs, fallback.encoderArgs)
	})

	t.Run("videotoolbox", func(t *testing.T) {
		plans := tr.buildPlans(ffmpeg.Capabilities{
			Acceleration: ffmpeg.HWAccelVideoToolbox,
			EncoderArgs:  []string{"-c:v", "h264_videotoolbox", "-b:v", "5000k"},
		}, true)
		require.Len(t, plans, 1)
		assert.Equal(t, "videotoolbox", plans[0].name)
		assert.Empty(t, plans[0].videoFilter)
	})

	t.Run("software fallback", func(t *testing.T) {
		plans := tr.buildPlans(ffmpeg.SoftwareCapabilities(), false)
		require.Len(t, plans, 1)
		assert.Equal(t, "software", plans[0].name)
		assert.Contains(t, plans[0].encoderArgs, "libx264")
	})
}

func TestGopArgs(t *testing.T) {
	tr := newTestTranscoder(t)

	t.Run("24fps", func(t *testing.T) {
		assert.Equal(t, []string{
			"-g", "48",
			"-keyint_min", "24",
			"-force_key_frames", "expr:gte(t,n_forced*2)",
		}, tr.gopArgs(24))
	})

	t.Run("ntsc rounds", func(t *testing.T) {
		args := tr.gopArgs(29.97)
		assert.Equal(t, "60", args[1])
		assert.Equal(t, "30", args[3])
	})

	t.Run("23.976 rounds", func(t *testing.T) {
		args := tr.gopArgs(23.976)
		assert.Equal(t, "48", args[1])
		assert.Equal(t, "24", args[3])
	})
}

func TestVideoOutputArgs(t *testing.T) {
	tr := newTestTranscoder(t)
	plan := encodePlan{
		videoFilter: "scale_vaapi=format=nv12",
		encoderArgs: []string{"-c:v", "h264_vaapi", "-qp", "23"},
	}

	args := tr.videoOutputArgs(plan, "/out", 24)
	joined := strings.Join(args, " ")

	assert.True(t, strings.HasPrefix(joined, "-map 0:v:0 -vf scale_vaapi=format=nv12 -c:v h264_vaapi"))
	assert.Contains(t, joined, "-g 48 -keyint_min 24")
	assert.Contains(t, joined, "-an -sn")
	assert.Contains(t, joined, "-f hls -hls_time 2 -hls_playlist_type vod -hls_segment_type mpegts -hls_flags independent_segments -hls_list_size 0")
	assert.Contains(t, joined, "-hls_segment_filename /out/video_segment%d.ts")
}

func TestVideoOutputArgsNoFilter(t *testing.T) {
	tr := newTestTranscoder(t)
	args := tr.videoOutputArgs(encodePlan{encoderArgs: []string{"-c:v", "libx264"}}, "/out", 24)
	assert.NotContains(t, args, "-vf")
}

func TestAudioOutputArgs(t *testing.T) {
	tr := newTestTranscoder(t)
	track := ffmpeg.AudioTrack{SourceIndex: 3, Language: "fre", Channels: 6}

	args := tr.audioOutputArgs(track, 1, "/out")
	joined := strings.Join(args, " ")

	// Source selection uses the container ordinal; the output name uses the
	// rendition index.
	assert.True(t, strings.HasPrefix(joined, "-map 0:a:3 -c:a aac -ac 2 -ar 48000 -b:a 192k -vn -sn"))
	assert.Contains(t, joined, "-hls_segment_filename /out/audio_1_segment%d.ts")
}

func TestCleanPartialOutputs(t *testing.T) {
	tr := newTestTranscoder(t)
	dir := t.TempDir()

	for _, name := range []string{"video.m3u8", "video_segment0.ts", "audio_0.m3u8", "audio_0_segment0.ts"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	for _, name := range []string{"audio_info.json", "subtitles.json", "subtitle_0.vtt", ".transcoding"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	tr.cleanPartialOutputs(dir)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"audio_info.json", "subtitles.json", "subtitle_0.vtt", ".transcoding"}, names)
}

func TestRemoveAudioRendition(t *testing.T) {
	tr := newTestTranscoder(t)
	dir := t.TempDir()

	for _, name := range []string{
		"audio_0.m3u8", "audio_0_segment0.ts",
		"audio_1.m3u8", "audio_1_segment0.ts", "audio_1_segment1.ts",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	tr.removeAudioRendition(dir, 1)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"audio_0.m3u8", "audio_0_segment0.ts"}, names)
}

func TestProgressFraction(t *testing.T) {
	assert.Zero(t, progressFraction(10, 0))
	assert.Zero(t, progressFraction(-5, 100))
	assert.InDelta(t, 0.5, progressFraction(50, 100), 0.001)
	assert.InDelta(t, 1.0, progressFraction(200, 100), 0.001)
}
