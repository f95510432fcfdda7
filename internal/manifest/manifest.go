package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"

	"hlspack/internal/ladder"
	"hlspack/internal/services"
)

// FileName is the master playlist written at the package root.
const FileName = "master.m3u8"

// codecs is fixed by the encode settings: H.264 High@4.1 plus AAC-LC.
const codecs = "avc1.640029,mp4a.40.2"

// Build renders the master playlist for the rungs whose media playlists
// exist under dir. Rungs without a playlist are omitted; the header is
// always present even when nothing survived.
func Build(dir string, rungs []ladder.Rung, frameRate float64) ([]byte, []ladder.Rung) {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:3\n")
	b.WriteString("#EXT-X-INDEPENDENT-SEGMENTS\n")

	included := make([]ladder.Rung, 0, len(rungs))
	for _, rung := range rungs {
		playlist := playlistName(rung.Index)
		if _, err := os.Stat(filepath.Join(dir, playlist)); err != nil {
			continue
		}
		fmt.Fprintf(&b, "#EXT-X-STREAM-INF:BANDWIDTH=%d,AVERAGE-BANDWIDTH=%d,RESOLUTION=%s,CODECS=%q,FRAME-RATE=%.3f\n",
			rung.PeakBandwidth(), rung.AverageBandwidth(), rung.Resolution(), codecs, frameRate)
		b.WriteString(playlist + "\n")
		included = append(included, rung)
	}
	return []byte(b.String()), included
}

// Write renders the master playlist and writes it atomically, returning
// the rungs it references.
func Write(dir string, rungs []ladder.Rung, frameRate float64) ([]ladder.Rung, error) {
	data, included := Build(dir, rungs, frameRate)
	path := filepath.Join(dir, FileName)
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return nil, services.Wrap(services.ErrTransient, "manifest", "write", fmt.Sprintf("write %s", path), err)
	}
	return included, nil
}

func playlistName(index int) string {
	return fmt.Sprintf("rung_%d.m3u8", index)
}
