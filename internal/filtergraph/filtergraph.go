package filtergraph

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ZacxDev/video-captioner/internal/caption"
	"github.com/ZacxDev/video-captioner/internal/composition"
	"github.com/ZacxDev/video-captioner/internal/config"
	"github.com/ZacxDev/video-captioner/pkg/types"
)

// Encoder input indexes the graph refers to.
const (
	VideoInput = 0
	AudioInput = 1
	ImageInput = 2
)

// TextStyle holds the rendering parameters shared by every text-draw node.
type TextStyle struct {
	FontFile       string
	FontSize       int
	BaseColor      string
	HighlightColor string
	BorderWidth    int
	BorderColor    string
	BottomMargin   int
	LineSpacing    int
	NewlineMode    types.NewlineMode
}

// StyleFromConfig copies the text settings into a TextStyle.
func StyleFromConfig(t config.TextConfig) TextStyle {
	return TextStyle{
		FontFile:       t.FontFile,
		FontSize:       t.FontSize,
		BaseColor:      t.BaseColor,
		HighlightColor: t.HighlightColor,
		BorderWidth:    t.BorderWidth,
		BorderColor:    t.BorderColor,
		BottomMargin:   t.BottomMargin,
		LineSpacing:    t.LineSpacing,
		NewlineMode:    t.NewlineMode,
	}
}

func (s TextStyle) color(c caption.Color) string {
	if c == caption.Highlight {
		return s.HighlightColor
	}
	return s.BaseColor
}

// ImageOverlay places a still image (encoder input ImageInput) over the
// composed frame, below the text.
type ImageOverlay struct {
	X string
	Y string
}

// NodeKind separates visual-transform nodes from text-draw nodes.
type NodeKind int

const (
	Visual NodeKind = iota
	Text
)

// Node is one filter in the graph. A node without input labels continues
// the chain of the node before it.
type Node struct {
	Kind    NodeKind
	Inputs  []string
	Filter  string
	Outputs []string
}

// Graph is an append-only list of nodes in rendering order.
type Graph struct {
	nodes   []Node
	complex bool
}

func (g *Graph) add(n Node) {
	g.nodes = append(g.nodes, n)
}

// Nodes returns a copy of the nodes in order.
func (g *Graph) Nodes() []Node {
	return append([]Node(nil), g.nodes...)
}

// Count returns the number of nodes of the given kind.
func (g *Graph) Count(kind NodeKind) int {
	n := 0
	for _, node := range g.nodes {
		if node.Kind == kind {
			n++
		}
	}
	return n
}

// Complex reports whether the graph uses labelled pads and must be passed
// with -filter_complex rather than -vf.
func (g *Graph) Complex() bool {
	return g.complex
}

// String renders the filter-graph expression. Chains are separated by ';'
// and filters within a chain by ','.
func (g *Graph) String() string {
	var b strings.Builder
	for i, n := range g.nodes {
		if i > 0 {
			if len(n.Inputs) > 0 {
				b.WriteByte(';')
			} else {
				b.WriteByte(',')
			}
		}
		for _, in := range n.Inputs {
			b.WriteString("[" + in + "]")
		}
		b.WriteString(n.Filter)
		for _, out := range n.Outputs {
			b.WriteString("[" + out + "]")
		}
	}
	return b.String()
}

// Build returns the filter-graph expression for plan and segments.
func Build(plan composition.Plan, segments []caption.TextSegment, style TextStyle) string {
	return Compose(plan, segments, style, nil).String()
}

// Compose assembles the visual nodes for plan, an optional image overlay, and
// one text-draw node per segment in segment order.
func Compose(plan composition.Plan, segments []caption.TextSegment, style TextStyle, overlay *ImageOverlay) *Graph {
	g := &Graph{}

	switch p := plan.(type) {
	case composition.BlurPad:
		g.complex = true
		blurPad(g, p, overlay != nil)
	case composition.PassthroughScale:
		g.complex = overlay != nil
		scale := Node{Kind: Visual, Filter: fmt.Sprintf("scale=%d:%d", p.TargetW, p.TargetH)}
		if g.complex {
			scale.Inputs = []string{inputLabel(VideoInput, "v")}
			scale.Outputs = []string{"base"}
		}
		g.add(scale)
	}

	if overlay != nil {
		g.add(Node{
			Kind:   Visual,
			Inputs: []string{"base", inputLabel(ImageInput, "v")},
			Filter: fmt.Sprintf("overlay=%s:%s", overlay.X, overlay.Y),
		})
	}

	span := caption.Span(segments)
	for _, seg := range segments {
		g.add(Node{Kind: Text, Filter: drawText(seg, style, span)})
	}
	return g
}

// blurPad splits the source into a blurred, darkened cover background and a
// fitted foreground, then centres the foreground over the background. The
// composite is labelled "base" when an image overlay follows.
func blurPad(g *Graph, p composition.BlurPad, labelled bool) {
	w, h := p.TargetW, p.TargetH

	g.add(Node{Kind: Visual, Inputs: []string{inputLabel(VideoInput, "v")}, Filter: "split=2", Outputs: []string{"bgsrc", "fgsrc"}})
	g.add(Node{Kind: Visual, Inputs: []string{"bgsrc"}, Filter: fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase", w, h)})
	g.add(Node{Kind: Visual, Filter: fmt.Sprintf("crop=%d:%d", w, h)})
	g.add(Node{Kind: Visual, Filter: fmt.Sprintf("boxblur=%d", p.BlurRadius)})
	g.add(Node{Kind: Visual, Filter: "eq=brightness=" + formatFloat(p.BrightnessDelta), Outputs: []string{"bg"}})
	g.add(Node{Kind: Visual, Inputs: []string{"fgsrc"}, Filter: fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", w, h), Outputs: []string{"fg"}})

	composite := Node{Kind: Visual, Inputs: []string{"bg", "fg"}, Filter: "overlay=(W-w)/2:(H-h)/2"}
	if labelled {
		composite.Outputs = []string{"base"}
	}
	g.add(composite)
}

func drawText(seg caption.TextSegment, style TextStyle, span float64) string {
	opts := []string{"fontfile=" + escapeGraph(caption.EscapeOption(style.FontFile))}

	if seg.TextFile != "" {
		opts = append(opts, "textfile="+escapeGraph(caption.EscapeOption(seg.TextFile)))
	} else {
		opts = append(opts, "text="+escapeGraph(caption.Escape(seg.Text, style.NewlineMode)))
	}

	opts = append(opts,
		fmt.Sprintf("fontsize=%d", style.FontSize),
		"fontcolor="+style.color(seg.Color),
		fmt.Sprintf("borderw=%d", style.BorderWidth),
		"bordercolor="+style.BorderColor,
		"x="+xExpr(seg.XOffset),
		fmt.Sprintf("y=h-%d", style.BottomMargin),
	)

	if seg.TextFile != "" || style.NewlineMode == types.NewlineLineBreak {
		opts = append(opts, fmt.Sprintf("line_spacing=%d", style.LineSpacing))
	}

	if !coversTimeline(seg, span) {
		opts = append(opts, fmt.Sprintf("enable='gte(t,%s)*lt(t,%s)'", formatFloat(seg.Start), formatFloat(seg.End)))
	}

	return "drawtext=" + strings.Join(opts, ":")
}

// coversTimeline reports whether seg is visible for the whole output. An
// empty window covers nothing, even when the timeline itself is empty.
func coversTimeline(seg caption.TextSegment, span float64) bool {
	return seg.End > seg.Start && seg.Start <= 0 && seg.End >= span
}

func xExpr(offset *float64) string {
	if offset == nil {
		return "(w-text_w)/2"
	}
	if *offset < 0 {
		return fmt.Sprintf("w/2-%.2f", -*offset)
	}
	return fmt.Sprintf("w/2+%.2f", *offset)
}

// graphEscaper protects an option value from the graph parser, which splits
// filters on ',' and ';', reads pad labels in brackets and strips one level
// of quotes and backslashes.
var graphEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`[`, `\[`,
	`]`, `\]`,
	`,`, `\,`,
	`;`, `\;`,
)

func escapeGraph(value string) string {
	return graphEscaper.Replace(value)
}

func inputLabel(index int, stream string) string {
	return fmt.Sprintf("%d:%s", index, stream)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
