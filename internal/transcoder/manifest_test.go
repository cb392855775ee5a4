package transcoder

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vodarr/vodarr/internal/ffmpeg"
)

func TestNormalizeLanguage(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty defaults to und", input: "", expected: "und"},
		{name: "bcp 47 stays verbatim", input: "en", expected: "en"},
		{name: "casing stays verbatim", input: "EN-us", expected: "EN-us"},
		{name: "iso 639-2 eng stays verbatim", input: "eng", expected: "eng"},
		{name: "iso 639-2/B fre stays verbatim", input: "fre", expected: "fre"},
		{name: "garbage passes through", input: "!!", expected: "!!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeLanguage(tt.input))
		})
	}
}

func TestBuildAudioDescriptors(t *testing.T) {
	audios := []ffmpeg.AudioTrack{
		{SourceIndex: 0, Language: "eng", Title: "Surround", Channels: 6, IsDefault: true},
		{SourceIndex: 2, Language: "fre", Channels: 2},
		{SourceIndex: 3, Language: "!!", Channels: 2},
	}

	descriptors := buildAudioDescriptors(audios)
	require.Len(t, descriptors, 3)

	first := descriptors[0]
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, "eng", first.Language)
	assert.Equal(t, "Surround", first.Title)
	assert.Equal(t, "audio_0.m3u8", first.Playlist)
	assert.True(t, first.IsDefault)

	// Rendition indexes are contiguous regardless of source ordinals, the
	// probed code survives verbatim, and untitled tracks get a display-name
	// title when the code resolves.
	second := descriptors[1]
	assert.Equal(t, 1, second.Index)
	assert.Equal(t, "fre", second.Language)
	assert.Equal(t, "French", second.Title)
	assert.Equal(t, "audio_1.m3u8", second.Playlist)
	assert.False(t, second.IsDefault)

	// Unresolvable codes fall back to a numbered title.
	third := descriptors[2]
	assert.Equal(t, "!!", third.Language)
	assert.Equal(t, "Audio 3", third.Title)
}

func TestBuildAudioDescriptorsEmpty(t *testing.T) {
	assert.Empty(t, buildAudioDescriptors(nil))
}

func TestWriteAudioInfo(t *testing.T) {
	dir := t.TempDir()
	descriptors := buildAudioDescriptors([]ffmpeg.AudioTrack{
		{SourceIndex: 0, Language: "eng", IsDefault: true},
	})
	require.NoError(t, writeAudioInfo(dir, descriptors))

	data, err := os.ReadFile(filepath.Join(dir, "audio_info.json"))
	require.NoError(t, err)

	var decoded []AudioTrackDescriptor
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "eng", decoded[0].Language)
	assert.True(t, decoded[0].IsDefault)
}

func TestWriteSubtitlesInfo(t *testing.T) {
	t.Run("with entries", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, writeSubtitlesInfo(dir, []SubtitleFile{
			{Language: "en", Title: "English", File: "subtitle_0.vtt"},
		}))

		data, err := os.ReadFile(filepath.Join(dir, "subtitles.json"))
		require.NoError(t, err)

		var decoded []SubtitleFile
		require.NoError(t, json.Unmarshal(data, &decoded))
		require.Len(t, decoded, 1)
		assert.Equal(t, "subtitle_0.vtt", decoded[0].File)
	})

	t.Run("nil writes an empty array, not null", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, writeSubtitlesInfo(dir, nil))

		data, err := os.ReadFile(filepath.Join(dir, "subtitles.json"))
		require.NoError(t, err)
		assert.Equal(t, "[]", string(data))
	})
}
