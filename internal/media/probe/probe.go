package probe

import (
	"context"
	"math"
	"strconv"
	"strings"

	"hlspack/internal/media/ffprobe"
	"hlspack/internal/services"
)

// fallbackFrameRate is used when neither reported rate yields a usable value.
const fallbackFrameRate = 30.0

// Source captures the probe facts that drive filter and encode decisions.
type Source struct {
	Path            string
	Codec           string
	Width           int
	Height          int
	DurationSeconds float64
	FrameRate       float64
	// FrameRateRounded is the integer rate shared by every rung. Keyframe
	// cadence and the fps filter both derive from it.
	FrameRateRounded int
	Rotation         int
	Interlaced       bool
	HasAudio         bool
}

// Inspect probes the file and interprets the result.
func Inspect(ctx context.Context, binary, path string) (Source, error) {
	result, err := ffprobe.Inspect(ctx, binary, path)
	if err != nil {
		return Source{}, services.Wrap(services.ErrExternalTool, "probe", "inspect", "", err)
	}
	src, err := Analyze(result)
	if err != nil {
		return Source{}, err
	}
	src.Path = path
	return src, nil
}

// Analyze interprets raw ffprobe output into a Source. A container without a
// video stream cannot be packaged and yields a validation error.
func Analyze(result ffprobe.Result) (Source, error) {
	stream, ok := result.FirstVideoStream()
	if !ok {
		return Source{}, services.Wrap(services.ErrValidation, "probe", "analyze", "no video stream", nil)
	}

	rate := frameRate(stream)
	return Source{
		Codec:            stream.CodecName,
		Width:            stream.Width,
		Height:           stream.Height,
		DurationSeconds:  result.DurationSeconds(),
		FrameRate:        rate,
		FrameRateRounded: roundRate(rate),
		Rotation:         rotation(stream),
		Interlaced:       interlaced(stream.FieldOrder),
		HasAudio:         result.AudioStreamCount() > 0,
	}, nil
}

// frameRate prefers the average rate, falls back to the nominal rate, and
// defaults when neither parses to a positive value. Both rational (30000/1001)
// and plain decimal forms are accepted.
func frameRate(stream ffprobe.Stream) float64 {
	if rate, ok := parseRate(stream.AvgFrameRate); ok {
		return rate
	}
	if rate, ok := parseRate(stream.RFrameRate); ok {
		return rate
	}
	return fallbackFrameRate
}

func parseRate(value string) (float64, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if num, den, ok := strings.Cut(value, "/"); ok {
		n, errN := strconv.ParseFloat(strings.TrimSpace(num), 64)
		d, errD := strconv.ParseFloat(strings.TrimSpace(den), 64)
		if errN != nil || errD != nil || d == 0 {
			return 0, false
		}
		rate := n / d
		if rate <= 0 || math.IsInf(rate, 0) || math.IsNaN(rate) {
			return 0, false
		}
		return rate, true
	}
	rate, err := strconv.ParseFloat(value, 64)
	if err != nil || rate <= 0 || math.IsInf(rate, 0) || math.IsNaN(rate) {
		return 0, false
	}
	return rate, true
}

func roundRate(rate float64) int {
	rounded := int(math.Round(rate))
	if rounded < 1 {
		return 1
	}
	return rounded
}

// rotation reads the display-matrix side data, falling back to the legacy
// rotate tag. Values outside the quarter-turn set are treated as unrotated.
func rotation(stream ffprobe.Stream) int {
	for _, side := range stream.SideDataList {
		if side.Rotation != 0 {
			return normalizeRotation(int(side.Rotation))
		}
	}
	if tag, ok := stream.Tags["rotate"]; ok {
		if value, err := strconv.Atoi(strings.TrimSpace(tag)); err == nil {
			return normalizeRotation(value)
		}
	}
	return 0
}

func normalizeRotation(value int) int {
	switch value {
	case 0, 90, 180, 270, -90, -180, -270:
		return value
	default:
		return 0
	}
}

func interlaced(fieldOrder string) bool {
	switch strings.ToLower(strings.TrimSpace(fieldOrder)) {
	case "", "progressive", "unknown":
		return false
	default:
		return true
	}
}
