package filters

import (
	"fmt"
	"strings"

	"hlspack/internal/media/probe"
)

// Chain is an ordered list of ffmpeg video filters.
type Chain struct {
	Stages []string
}

// String renders the chain as an ffmpeg -vf argument.
func (c Chain) String() string {
	return strings.Join(c.Stages, ",")
}

// Compose builds the filter chain for one rung. Rotation and deinterlacing
// run before any geometry change so scaling sees upright, progressive
// frames. The tail normalizes geometry, sample aspect, and frame rate for
// every rung the same way.
func Compose(src probe.Source, width, height int) Chain {
	var stages []string

	switch src.Rotation {
	case 90, -270:
		stages = append(stages, "transpose=1")
	case 180, -180:
		stages = append(stages, "hflip", "vflip")
	case 270, -90:
		stages = append(stages, "transpose=2")
	}

	if src.Interlaced {
		stages = append(stages, "yadif")
	}

	stages = append(stages,
		fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease:force_divisible_by=2", width, height),
		fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=black", width, height),
		"setsar=1",
		fmt.Sprintf("fps=%d", src.FrameRateRounded),
	)
	return Chain{Stages: stages}
}
