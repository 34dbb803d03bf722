package caption

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ZacxDev/video-captioner/internal/config"
	"github.com/ZacxDev/video-captioner/pkg/types"
	"golang.org/x/exp/constraints"
)

// Color selects the layer a segment is drawn on.
type Color int

const (
	Base Color = iota
	Highlight
)

func (c Color) String() string {
	if c == Highlight {
		return "highlight"
	}
	return "base"
}

// TextSegment is one styled, time-bounded piece of caption text. Start is
// inclusive and End exclusive. XOffset, when set, is the horizontal offset
// of the segment's left edge from the frame centre in pixels; otherwise the
// segment is centred.
type TextSegment struct {
	Text    string
	Color   Color
	Start   float64
	End     float64
	XOffset *float64

	// TextFile is filled in by the render job when text is handed to the
	// encoder through a scratch file instead of inline.
	TextFile string
}

// Caption is the input of a strategy: the raw caption and its
// whitespace-split words.
type Caption struct {
	Raw   string
	Words []string
}

// Strategy turns a caption into an ordered sequence of segments.
type Strategy interface {
	Name() types.CaptionStrategy

	// NeedsDuration reports whether the strategy consumes the probed audio
	// duration under the given parameters.
	NeedsDuration(p config.CaptionConfig) bool

	Segments(c Caption, duration float64, p config.CaptionConfig) []TextSegment
}

var strategies = make(map[types.CaptionStrategy]Strategy)

// Register adds a strategy to the registry
func Register(s Strategy) {
	strategies[s.Name()] = s
}

// Lookup returns a strategy by name
func Lookup(name types.CaptionStrategy) (Strategy, error) {
	s, ok := strategies[name]
	if !ok {
		return nil, fmt.Errorf("unsupported caption strategy: %s", name)
	}
	return s, nil
}

// SupportedStrategies returns the registered strategy names, sorted.
func SupportedStrategies() []string {
	names := make([]string, 0, len(strategies))
	for name := range strategies {
		names = append(names, string(name))
	}
	sort.Strings(names)
	return names
}

// Build splits text into words and runs the strategy. An empty or
// whitespace-only caption yields no segments.
func Build(s Strategy, text string, duration float64, p config.CaptionConfig) []TextSegment {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	return s.Segments(Caption{Raw: text, Words: words}, duration, p)
}

// Span returns the end of the latest segment.
func Span(segments []TextSegment) float64 {
	var end float64
	for _, s := range segments {
		end = math.Max(end, s.End)
	}
	return end
}

// coverageEpsilon absorbs float rounding when comparing against an
// externally supplied total.
const coverageEpsilon = 1e-6

// CheckCoverage verifies that the segments of one layer start at 0, are
// contiguous and non-overlapping, and end at total. A layer with no
// segments passes. A non-positive total skips the end check.
func CheckCoverage(segments []TextSegment, layer Color, total float64) error {
	var prev *TextSegment
	for i := range segments {
		s := &segments[i]
		if s.Color != layer {
			continue
		}
		if s.End <= s.Start {
			return fmt.Errorf("%s segment %q has empty window [%v, %v)", layer, s.Text, s.Start, s.End)
		}
		if prev == nil {
			if math.Abs(s.Start) > coverageEpsilon {
				return fmt.Errorf("%s layer starts at %v, not 0", layer, s.Start)
			}
		} else if s.Start != prev.End {
			return fmt.Errorf("%s layer not contiguous: segment ends at %v, next starts at %v", layer, prev.End, s.Start)
		}
		prev = s
	}
	if prev != nil && total > 0 && math.Abs(prev.End-total) > coverageEpsilon {
		return fmt.Errorf("%s layer ends at %v, want %v", layer, prev.End, total)
	}
	return nil
}

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// stepEdges returns n+1 boundaries spaced step apart starting at 0.
func stepEdges(n int, step float64) []float64 {
	edges := make([]float64, n+1)
	for i := range edges {
		edges[i] = float64(i) * step
	}
	return edges
}

// evenEdges splits [0, total) into n equal windows. The last edge is total
// exactly so the sequence never drifts from the supplied duration.
func evenEdges(n int, total float64) []float64 {
	edges := make([]float64, n+1)
	for i := 0; i < n; i++ {
		edges[i] = total * float64(i) / float64(n)
	}
	edges[n] = total
	return edges
}
