package probe_test

import (
	"errors"
	"math"
	"testing"

	"hlspack/internal/media/ffprobe"
	"hlspack/internal/media/probe"
	"hlspack/internal/services"
)

func videoResult(stream ffprobe.Stream) ffprobe.Result {
	stream.CodecType = "video"
	return ffprobe.Result{Streams: []ffprobe.Stream{stream}}
}

func TestAnalyzeFrameRate(t *testing.T) {
	cases := []struct {
		name        string
		avg         string
		nominal     string
		wantRate    float64
		wantRounded int
	}{
		{name: "ntsc rational", avg: "30000/1001", wantRate: 30000.0 / 1001.0, wantRounded: 30},
		{name: "plain decimal", avg: "23.976", wantRate: 23.976, wantRounded: 24},
		{name: "integer", avg: "25", wantRate: 25, wantRounded: 25},
		{name: "zero denominator falls back to nominal", avg: "0/0", nominal: "24000/1001", wantRate: 24000.0 / 1001.0, wantRounded: 24},
		{name: "zero rate falls back to nominal", avg: "0", nominal: "50/1", wantRate: 50, wantRounded: 50},
		{name: "garbage falls back to nominal", avg: "nonsense", nominal: "30/1", wantRate: 30, wantRounded: 30},
		{name: "both empty uses default", wantRate: 30, wantRounded: 30},
		{name: "both invalid uses default", avg: "0/0", nominal: "-1", wantRate: 30, wantRounded: 30},
		{name: "tiny rate rounds up to one", avg: "1/5", wantRate: 0.2, wantRounded: 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src, err := probe.Analyze(videoResult(ffprobe.Stream{
				AvgFrameRate: tc.avg,
				RFrameRate:   tc.nominal,
			}))
			if err != nil {
				t.Fatalf("Analyze() error: %v", err)
			}
			if math.Abs(src.FrameRate-tc.wantRate) > 1e-9 {
				t.Fatalf("FrameRate = %v, want %v", src.FrameRate, tc.wantRate)
			}
			if src.FrameRateRounded != tc.wantRounded {
				t.Fatalf("FrameRateRounded = %d, want %d", src.FrameRateRounded, tc.wantRounded)
			}
		})
	}
}

func TestAnalyzeRotation(t *testing.T) {
	cases := []struct {
		name   string
		stream ffprobe.Stream
		want   int
	}{
		{
			name: "side data quarter turn",
			stream: ffprobe.Stream{
				SideDataList: []ffprobe.SideData{{Type: "Display Matrix", Rotation: -90}},
			},
			want: -90,
		},
		{
			name: "side data wins over tag",
			stream: ffprobe.Stream{
				SideDataList: []ffprobe.SideData{{Type: "Display Matrix", Rotation: 180}},
				Tags:         map[string]string{"rotate": "90"},
			},
			want: 180,
		},
		{
			name:   "tag fallback",
			stream: ffprobe.Stream{Tags: map[string]string{"rotate": "270"}},
			want:   270,
		},
		{
			name: "non quarter turn ignored",
			stream: ffprobe.Stream{
				SideDataList: []ffprobe.SideData{{Type: "Display Matrix", Rotation: 45}},
			},
			want: 0,
		},
		{
			name:   "unparsable tag ignored",
			stream: ffprobe.Stream{Tags: map[string]string{"rotate": "ninety"}},
			want:   0,
		},
		{
			name:   "no metadata",
			stream: ffprobe.Stream{},
			want:   0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src, err := probe.Analyze(videoResult(tc.stream))
			if err != nil {
				t.Fatalf("Analyze() error: %v", err)
			}
			if src.Rotation != tc.want {
				t.Fatalf("Rotation = %d, want %d", src.Rotation, tc.want)
			}
		})
	}
}

func TestAnalyzeInterlaced(t *testing.T) {
	cases := []struct {
		fieldOrder string
		want       bool
	}{
		{fieldOrder: "", want: false},
		{fieldOrder: "progressive", want: false},
		{fieldOrder: "unknown", want: false},
		{fieldOrder: "tt", want: true},
		{fieldOrder: "bb", want: true},
		{fieldOrder: "tb", want: true},
	}

	for _, tc := range cases {
		src, err := probe.Analyze(videoResult(ffprobe.Stream{FieldOrder: tc.fieldOrder}))
		if err != nil {
			t.Fatalf("Analyze() error: %v", err)
		}
		if src.Interlaced != tc.want {
			t.Fatalf("Interlaced(%q) = %v, want %v", tc.fieldOrder, src.Interlaced, tc.want)
		}
	}
}

func TestAnalyzeRequiresVideoStream(t *testing.T) {
	_, err := probe.Analyze(ffprobe.Result{
		Streams: []ffprobe.Stream{{CodecType: "audio", CodecName: "aac"}},
	})
	if err == nil {
		t.Fatal("Analyze() succeeded for audio-only input")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("error = %v, want validation marker", err)
	}
}

func TestAnalyzeCopiesStreamFacts(t *testing.T) {
	result := ffprobe.Result{
		Streams: []ffprobe.Stream{
			{CodecType: "video", CodecName: "h264", Width: 1920, Height: 1080, AvgFrameRate: "24/1"},
			{CodecType: "audio", CodecName: "aac"},
		},
	}
	result.Format.Duration = "3600.5"

	src, err := probe.Analyze(result)
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	if src.Codec != "h264" || src.Width != 1920 || src.Height != 1080 {
		t.Fatalf("stream facts = %q %dx%d, want h264 1920x1080", src.Codec, src.Width, src.Height)
	}
	if src.DurationSeconds != 3600.5 {
		t.Fatalf("DurationSeconds = %v, want 3600.5", src.DurationSeconds)
	}
	if !src.HasAudio {
		t.Fatal("HasAudio = false, want true")
	}
}
