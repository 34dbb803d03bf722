package composition

import (
	"fmt"
	"math"

	"github.com/ZacxDev/video-captioner/internal/config"
)

// Plan is the visual composition chosen for a source video. It is either a
// PassthroughScale or a BlurPad.
type Plan interface {
	// Frame returns the canonical output size.
	Frame() (width, height int)

	plan()
}

// PassthroughScale scales an already vertical source straight to the
// canonical frame.
type PassthroughScale struct {
	TargetW int
	TargetH int
}

func (p PassthroughScale) Frame() (int, int) { return p.TargetW, p.TargetH }
func (PassthroughScale) plan() {}

// BlurPad letterboxes a non-vertical source over a blurred, darkened copy of
// itself that covers the canonical frame.
type BlurPad struct {
	TargetW         int
	TargetH         int
	BlurRadius      int
	BrightnessDelta float64
}

func (p BlurPad) Frame() (int, int) { return p.TargetW, p.TargetH }
func (BlurPad) plan() {}

// Planner classifies source geometry against the configured frame.
type Planner struct {
	frame config.FrameConfig
}

// NewPlanner creates a planner for the given frame settings
func NewPlanner(frame config.FrameConfig) *Planner {
	return &Planner{frame: frame}
}

// Plan picks PassthroughScale when width/height is within the vertical
// tolerance of the target ratio and BlurPad otherwise.
func (p *Planner) Plan(width, height int) (Plan, error) {
	if height <= 0 {
		return nil, fmt.Errorf("invalid source height %d", height)
	}
	if width <= 0 {
		return nil, fmt.Errorf("invalid source width %d", width)
	}

	if IsVertical(width, height, p.frame.TargetRatio, p.frame.VerticalTolerance) {
		return PassthroughScale{
			TargetW: p.frame.Width,
			TargetH: p.frame.Height,
		}, nil
	}

	return BlurPad{
		TargetW:         p.frame.Width,
		TargetH:         p.frame.Height,
		BlurRadius:      p.frame.BlurRadius,
		BrightnessDelta: p.frame.BrightnessDelta,
	}, nil
}

// IsVertical reports whether |width/height - target| < tolerance.
func IsVertical(width, height int, target, tolerance float64) bool {
	ratio := float64(width) / float64(height)
	return math.Abs(ratio-target) < tolerance
}

// Describe returns a short name for logs and metrics.
func Describe(p Plan) string {
	switch p.(type) {
	case PassthroughScale:
		return "passthrough"
	case BlurPad:
		return "blur-pad"
	default:
		return "unknown"
	}
}
