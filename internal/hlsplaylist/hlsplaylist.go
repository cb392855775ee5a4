// Package hlsplaylist reads and writes the HLS playlists of a transcoded
// asset.
package hlsplaylist

import (
	"fmt"
	"os"
	"strings"

	"github.com/bluenviron/gohlslib/v2/pkg/playlist"
)

// Bandwidth advertised in the master playlist. The encoder does not target
// this value; it is the interop constant players expect.
const Bandwidth = 5000000

// Codec hints advertised in the master playlist.
const (
	VideoCodecHint = "avc1.640028"
	AudioCodecHint = "mp4a.40.2"
)

// MediaPlaylist is the parsed view of one media playlist.
type MediaPlaylist struct {
	// SegmentURIs in playlist order.
	SegmentURIs []string
	// HasEndlist is true when the playlist carries #EXT-X-ENDLIST.
	HasEndlist bool
}

// SegmentCount returns the number of referenced segments.
func (m *MediaPlaylist) SegmentCount() int {
	return len(m.SegmentURIs)
}

// ReadMediaPlaylist parses a media playlist file. Strict parsing goes
// through gohlslib; playlists it rejects fall back to a tolerant line scan
// so a partially written file can still be inspected.
func ReadMediaPlaylist(path string) (*MediaPlaylist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading playlist: %w", err)
	}
	return ParseMediaPlaylist(data), nil
}

// ParseMediaPlaylist parses media playlist bytes.
func ParseMediaPlaylist(data []byte) *MediaPlaylist {
	if pl, err := playlist.Unmarshal(data); err == nil {
		if media, ok := pl.(*playlist.Media); ok {
			out := &MediaPlaylist{HasEndlist: media.Endlist}
			for _, seg := range media.Segments {
				out.SegmentURIs = append(out.SegmentURIs, seg.URI)
			}
			return out
		}
	}
	return scanMediaPlaylist(data)
}

// scanMediaPlaylist is the tolerant fallback parser: every non-tag line is
// a segment URI.
func scanMediaPlaylist(data []byte) *MediaPlaylist {
	out := &MediaPlaylist{}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "#EXT-X-ENDLIST" {
			out.HasEndlist = true
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		out.SegmentURIs = append(out.SegmentURIs, line)
	}
	return out
}

// Rendition is one audio entry of the master playlist.
type Rendition struct {
	Name     string
	Language string
	URI      string
	Default  bool
}

// RenderMaster produces the master playlist advertising the video rendition
// and the audio group. The format is fixed; players depend on it.
func RenderMaster(audios []Rendition) string {
	var b strings.Builder

	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:6\n\n")

	for _, a := range audios {
		def := "NO"
		if a.Default {
			def = "YES"
		}
		b.WriteString(fmt.Sprintf(
			"#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID=\"audio\",NAME=%q,LANGUAGE=%q,DEFAULT=%s,AUTOSELECT=YES,URI=%q\n",
			a.Name, a.Language, def, a.URI,
		))
	}

	codecs := VideoCodecHint
	if len(audios) > 0 {
		codecs += "," + AudioCodecHint
	}

	if len(audios) > 0 {
		b.WriteString(fmt.Sprintf("#EXT-X-STREAM-INF:BANDWIDTH=%d,CODECS=%q,AUDIO=\"audio\"\n", Bandwidth, codecs))
	} else {
		b.WriteString(fmt.Sprintf("#EXT-X-STREAM-INF:BANDWIDTH=%d,CODECS=%q\n", Bandwidth, codecs))
	}
	b.WriteString("video.m3u8\n")

	return b.String()
}

// WriteMaster writes the master playlist to path.
func WriteMaster(path string, audios []Rendition) error {
	if err := os.WriteFile(path, []byte(RenderMaster(audios)), 0o644); err != nil {
		return fmt.Errorf("writing master playlist: %w", err)
	}
	return nil
}
