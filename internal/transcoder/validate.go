package transcoder

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/vodarr/vodarr/internal/hlsplaylist"
)

// ValidateOutput is the post-encode gate. The video playlist must be a
// finished VOD listing with every referenced segment on disk, and each
// published audio rendition must pass the same check. One segment per
// playlist is spot-checked for content.
func ValidateOutput(outputDir string, audioCount int) error {
	if err := validatePlaylist(outputDir, "video.m3u8"); err != nil {
		return err
	}
	for i := 0; i < audioCount; i++ {
		if err := validatePlaylist(outputDir, fmt.Sprintf("audio_%d.m3u8", i)); err != nil {
			return err
		}
	}
	return nil
}

func validatePlaylist(outputDir, name string) error {
	pl, err := hlsplaylist.ReadMediaPlaylist(filepath.Join(outputDir, name))
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", ErrValidationFailed, name, err)
	}
	if !pl.HasEndlist {
		return fmt.Errorf("%w: %s has no ENDLIST tag", ErrValidationFailed, name)
	}
	if len(pl.SegmentURIs) == 0 {
		return fmt.Errorf("%w: %s lists no segments", ErrValidationFailed, name)
	}

	for _, uri := range pl.SegmentURIs {
		if _, err := os.Stat(filepath.Join(outputDir, filepath.Base(uri))); err != nil {
			return fmt.Errorf("%w: %s references missing segment %s", ErrValidationFailed, name, uri)
		}
	}

	pick := pl.SegmentURIs[rand.Intn(len(pl.SegmentURIs))]
	info, err := os.Stat(filepath.Join(outputDir, filepath.Base(pick)))
	if err != nil {
		return fmt.Errorf("%w: %s spot check: %v", ErrValidationFailed, name, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: %s segment %s is empty", ErrValidationFailed, name, pick)
	}
	return nil
}
