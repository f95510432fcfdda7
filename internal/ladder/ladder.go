package ladder

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"hlspack/internal/services"
)

// defaultEntries is the built-in ladder used when no file is configured.
var defaultEntries = []string{
	"1920x1080:6000k:12000k:6600k:192",
	"1280x720:3000k:6000k:3300k:128",
	"854x480:1500k:3000k:1650k:128",
	"640x360:800k:1600k:880k:96",
}

var (
	resolutionPattern = regexp.MustCompile(`^(\d+)x(\d+)$`)
	bitratePattern    = regexp.MustCompile(`^(\d+)([kM])?$`)
)

// Ladder holds candidate entries in file order. Entries are kept verbatim;
// strict validation happens in Parse when each rung's job is built.
type Ladder struct {
	Path    string
	Entries []string
}

// Default returns the built-in four-rung ladder.
func Default() Ladder {
	return Ladder{Entries: slices.Clone(defaultEntries)}
}

// Load reads a ladder file. Blank lines and lines starting with # are
// dropped; surviving lines are kept as-is. A file with no entries cannot
// produce any rendition and is rejected.
func Load(path string) (Ladder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Ladder{}, services.Wrap(services.ErrConfiguration, "ladder", "load", fmt.Sprintf("read ladder file %s", path), err)
	}
	var entries []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, line)
	}
	if len(entries) == 0 {
		return Ladder{}, services.Wrap(services.ErrValidation, "ladder", "load", fmt.Sprintf("no ladder entries in %s", path), nil)
	}
	return Ladder{Path: path, Entries: entries}, nil
}

// Rung is one validated ladder entry. Bitrate tokens keep their original
// form so they can be handed to ffmpeg unchanged.
type Rung struct {
	Index            int
	Width            int
	Height           int
	VideoBitrate     string
	BufferSize       string
	MaxRate          string
	AudioBitrateKbps int

	maxRateBits int
}

// Parse validates one entry of the form WxH:video:buffer:maxrate:audioKbps.
func Parse(index int, entry string) (Rung, error) {
	fields := strings.Split(entry, ":")
	if len(fields) != 5 {
		return Rung{}, parseError(index, entry, "expected 5 colon-separated fields, got %d", len(fields))
	}

	match := resolutionPattern.FindStringSubmatch(fields[0])
	if match == nil {
		return Rung{}, parseError(index, entry, "invalid resolution %q", fields[0])
	}
	width, _ := strconv.Atoi(match[1])
	height, _ := strconv.Atoi(match[2])
	if width <= 0 || height <= 0 {
		return Rung{}, parseError(index, entry, "resolution %q must have positive dimensions", fields[0])
	}

	for _, token := range fields[1:4] {
		if _, err := parseBitrateBits(token); err != nil {
			return Rung{}, parseError(index, entry, "invalid bitrate %q", token)
		}
	}
	maxRateBits, _ := parseBitrateBits(fields[3])

	audioKbps, err := strconv.Atoi(fields[4])
	if err != nil || audioKbps <= 0 {
		return Rung{}, parseError(index, entry, "invalid audio bitrate %q", fields[4])
	}

	return Rung{
		Index:            index,
		Width:            width,
		Height:           height,
		VideoBitrate:     fields[1],
		BufferSize:       fields[2],
		MaxRate:          fields[3],
		AudioBitrateKbps: audioKbps,
		maxRateBits:      maxRateBits,
	}, nil
}

func parseError(index int, entry, format string, args ...any) error {
	detail := fmt.Sprintf("rung %d %q: %s", index, entry, fmt.Sprintf(format, args...))
	return services.Wrap(services.ErrValidation, "ladder", "parse", detail, nil)
}

// parseBitrateBits converts a bitrate token to bits per second. Tokens are
// bare digits with an optional k or M suffix.
func parseBitrateBits(token string) (int, error) {
	match := bitratePattern.FindStringSubmatch(token)
	if match == nil {
		return 0, fmt.Errorf("invalid bitrate token %q", token)
	}
	value, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, fmt.Errorf("invalid bitrate token %q", token)
	}
	switch match[2] {
	case "k":
		value *= 1000
	case "M":
		value *= 1000000
	}
	return value, nil
}

// Resolution renders WxH for manifest attributes and status output.
func (r Rung) Resolution() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// MaxRateBits is the encoder ceiling in bits per second.
func (r Rung) MaxRateBits() int {
	return r.maxRateBits
}

// AudioBits is the audio bitrate in bits per second.
func (r Rung) AudioBits() int {
	return r.AudioBitrateKbps * 1000
}

// PeakBandwidth is the manifest BANDWIDTH value: video ceiling plus audio.
func (r Rung) PeakBandwidth() int {
	return r.maxRateBits + r.AudioBits()
}

// AverageBandwidth is the manifest AVERAGE-BANDWIDTH value: 90% of the
// video ceiling plus audio.
func (r Rung) AverageBandwidth() int {
	return int(0.9*float64(r.maxRateBits)) + r.AudioBits()
}
