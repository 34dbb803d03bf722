package composition

import (
	"testing"

	"github.com/ZacxDev/video-captioner/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlan(t *testing.T) {
	planner := NewPlanner(config.Default().Frame)

	tests := []struct {
		name   string
		width  int
		height int
		want   string
	}{
		{"exact 9:16", 1080, 1920, "passthrough"},
		{"small 9:16", 720, 1280, "passthrough"},
		{"slightly wide", 1120, 1920, "passthrough"},
		{"square", 1080, 1080, "blur-pad"},
		{"landscape", 1920, 1080, "blur-pad"},
		{"4:5", 1080, 1350, "blur-pad"},
		{"very tall", 500, 1920, "blur-pad"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := planner.Plan(tt.width, tt.height)
			require.NoError(t, err)
			assert.Equal(t, tt.want, Describe(plan))

			w, h := plan.Frame()
			assert.Equal(t, 1080, w)
			assert.Equal(t, 1920, h)
		})
	}
}

func TestPlanVerticalRange(t *testing.T) {
	planner := NewPlanner(config.Default().Frame)

	for height := 400; height <= 4000; height += 37 {
		for width := 100; width <= 4000; width += 53 {
			plan, err := planner.Plan(width, height)
			require.NoError(t, err)

			ratio := float64(width) / float64(height)
			if ratio > 9.0/16.0-0.049 && ratio < 9.0/16.0+0.049 {
				assert.IsType(t, PassthroughScale{}, plan, "%dx%d", width, height)
			}
		}
	}
}

func TestPlanBlurPadCarriesLook(t *testing.T) {
	frame := config.Default().Frame
	frame.BlurRadius = 12
	frame.BrightnessDelta = -0.3

	plan, err := NewPlanner(frame).Plan(1, 1)
	require.NoError(t, err)
	assert.Equal(t, BlurPad{TargetW: 1080, TargetH: 1920, BlurRadius: 12, BrightnessDelta: -0.3}, plan)
}

func TestPlanRejectsDegenerateGeometry(t *testing.T) {
	planner := NewPlanner(config.Default().Frame)

	_, err := planner.Plan(1080, 0)
	assert.Error(t, err)

	_, err = planner.Plan(0, 1920)
	assert.Error(t, err)

	_, err = planner.Plan(1080, -1)
	assert.Error(t, err)
}
