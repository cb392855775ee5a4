package transcoder

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/vodarr/vodarr/internal/ffmpeg"
)

// Manifest file names inside an output directory.
const (
	audioInfoFile = "audio_info.json"
	subtitlesFile = "subtitles.json"
)

// AudioTrackDescriptor is one published audio rendition.
type AudioTrackDescriptor struct {
	Index     int    `json:"index"`
	Language  string `json:"language"`
	Title     string `json:"title"`
	Playlist  string `json:"playlist"`
	IsDefault bool   `json:"isDefault"`
}

// SubtitleFile is one published WebVTT subtitle.
type SubtitleFile struct {
	Language string `json:"language"`
	Title    string `json:"title,omitempty"`
	File     string `json:"file"`
}

// buildAudioDescriptors maps the kept audio tracks onto published
// renditions. The first track is the default. Untitled tracks get the
// language's display name when the code resolves, a numbered title when
// it does not.
func buildAudioDescriptors(audios []ffmpeg.AudioTrack) []AudioTrackDescriptor {
	out := make([]AudioTrackDescriptor, 0, len(audios))
	for i, track := range audios {
		title := track.Title
		if title == "" {
			title = languageTitle(track.Language)
		}
		if title == "" {
			title = fmt.Sprintf("Audio %d", i+1)
		}
		out = append(out, AudioTrackDescriptor{
			Index:     i,
			Language:  NormalizeLanguage(track.Language),
			Title:     title,
			Playlist:  fmt.Sprintf("audio_%d.m3u8", i),
			IsDefault: i == 0,
		})
	}
	return out
}

// NormalizeLanguage keeps the probed language code verbatim, mapping only
// the empty string to "und". Probed codes name the subtitle files and the
// playlist LANGUAGE attributes; rewriting them here would split an asset's
// manifests from its filenames.
func NormalizeLanguage(code string) string {
	if code == "" {
		return "und"
	}
	return code
}

// languageTitle renders a display title for a resolvable language code.
// Unresolvable probe values yield ""; callers fall back to a numbered
// title.
func languageTitle(code string) string {
	if code == "" {
		return ""
	}
	tag, err := language.Parse(code)
	if err != nil {
		return ""
	}
	return display.English.Tags().Name(tag)
}

// writeAudioInfo persists the audio manifest.
func writeAudioInfo(outputDir string, descriptors []AudioTrackDescriptor) error {
	return writeJSON(filepath.Join(outputDir, audioInfoFile), descriptors)
}

// writeSubtitlesInfo persists the subtitle manifest.
func writeSubtitlesInfo(outputDir string, subs []SubtitleFile) error {
	if subs == nil {
		subs = []SubtitleFile{}
	}
	return writeJSON(filepath.Join(outputDir, subtitlesFile), subs)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}
