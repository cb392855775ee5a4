package transcoder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vodarr/vodarr/internal/ffmpeg"
)

// extractSubtitles converts every kept text subtitle track to WebVTT. One
// batch invocation reads the source once; if the batch fails each track is
// retried individually so a single broken track does not cost the others.
// Returns the manifest entries for the tracks that made it to disk.
func (t *Transcoder) extractSubtitles(ctx context.Context, req Request, subs []ffmpeg.SubtitleTrack) []SubtitleFile {
	if len(subs) == 0 {
		return nil
	}

	files := subtitleTargets(req.OutputDir, subs)

	if err := t.runSubtitleBatch(ctx, req, subs, files); err == nil {
		return presentSubtitles(req.OutputDir, subs, files)
	} else {
		t.logger.Warn("batch subtitle extraction failed, retrying per track",
			slog.String("source", req.SourcePath),
			slog.String("error", err.Error()),
		)
	}

	for i, sub := range subs {
		if err := t.runSubtitleSingle(ctx, req, sub, files[i]); err != nil {
			t.logger.Warn("subtitle track extraction failed",
				slog.Int("track", sub.SourceIndex),
				slog.String("language", sub.Language),
				slog.String("error", err.Error()),
			)
			_ = os.Remove(files[i])
		}
	}

	return presentSubtitles(req.OutputDir, subs, files)
}

// subtitleTargets derives the on-disk file per track: sub_<lang>_<i>.vtt,
// indexed by position in the kept list.
func subtitleTargets(outputDir string, subs []ffmpeg.SubtitleTrack) []string {
	files := make([]string, len(subs))
	for i, sub := range subs {
		lang := sub.Language
		if lang == "" {
			lang = "und"
		}
		files[i] = filepath.Join(outputDir, fmt.Sprintf("sub_%s_%d.vtt", lang, i))
	}
	return files
}

// runSubtitleBatch extracts every track in one ffmpeg run.
func (t *Transcoder) runSubtitleBatch(ctx context.Context, req Request, subs []ffmpeg.SubtitleTrack, files []string) error {
	ctx, cancel := context.WithTimeout(ctx, t.subtitleTimeout)
	defer cancel()

	b := ffmpeg.NewCommandBuilder(t.ffmpegPath).Input(req.SourcePath)
	for i, sub := range subs {
		b.Output(files[i],
			"-map", fmt.Sprintf("0:s:%d", sub.SourceIndex),
			"-c:s", "webvtt",
		)
	}

	proc, err := ffmpeg.StartProcess(ctx, b.Binary(), b.Args(), true, nil)
	if err != nil {
		return err
	}
	return t.waitChild(req, proc)
}

// runSubtitleSingle extracts one track.
func (t *Transcoder) runSubtitleSingle(ctx context.Context, req Request, sub ffmpeg.SubtitleTrack, file string) error {
	ctx, cancel := context.WithTimeout(ctx, t.subtitleTimeout)
	defer cancel()

	b := ffmpeg.NewCommandBuilder(t.ffmpegPath).Input(req.SourcePath).
		Output(file,
			"-map", fmt.Sprintf("0:s:%d", sub.SourceIndex),
			"-c:s", "webvtt",
		)

	proc, err := ffmpeg.StartProcess(ctx, b.Binary(), b.Args(), true, nil)
	if err != nil {
		return err
	}
	return t.waitChild(req, proc)
}

// presentSubtitles keeps only the tracks whose file landed on disk with
// content.
func presentSubtitles(outputDir string, subs []ffmpeg.SubtitleTrack, files []string) []SubtitleFile {
	var out []SubtitleFile
	for i, sub := range subs {
		info, err := os.Stat(files[i])
		if err != nil || info.Size() == 0 {
			continue
		}
		out = append(out, SubtitleFile{
			Language: sub.Language,
			Title:    sub.Title,
			File:     filepath.Base(files[i]),
		})
	}
	return out
}
