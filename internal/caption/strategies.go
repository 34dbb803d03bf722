package caption

import (
	"strings"
	"unicode/utf8"

	"github.com/ZacxDev/video-captioner/internal/config"
	"github.com/ZacxDev/video-captioner/pkg/types"
	"github.com/samber/lo"
)

func init() {
	Register(&StaticOverlay{})
	Register(&FixedStepWordReveal{})
	Register(&AudioProportionalWordReveal{})
	Register(&ChunkedSubtitle{})
	Register(&WindowedMaskHighlight{})
	Register(&HeuristicWordDuration{})
}

// StaticOverlay shows the whole caption, line breaks intact, for the whole
// duration.
type StaticOverlay struct{}

func (s *StaticOverlay) Name() types.CaptionStrategy {
	return types.CaptionStrategyStatic
}

func (s *StaticOverlay) NeedsDuration(config.CaptionConfig) bool {
	return true
}

func (s *StaticOverlay) Segments(c Caption, duration float64, _ config.CaptionConfig) []TextSegment {
	return []TextSegment{{
		Text:  strings.TrimSpace(c.Raw),
		Color: Base,
		Start: 0,
		End:   duration,
	}}
}

// FixedStepWordReveal highlights one word every StepSeconds under the
// centred full caption. Without a positive StepSeconds the words share the
// duration evenly.
type FixedStepWordReveal struct{}

func (s *FixedStepWordReveal) Name() types.CaptionStrategy {
	return types.CaptionStrategyFixedStepWords
}

func (s *FixedStepWordReveal) NeedsDuration(p config.CaptionConfig) bool {
	return p.StepSeconds <= 0
}

func (s *FixedStepWordReveal) Segments(c Caption, duration float64, p config.CaptionConfig) []TextSegment {
	if p.StepSeconds <= 0 {
		return wordReveal(c.Words, evenEdges(len(c.Words), duration), p.GlyphWidth)
	}
	return wordReveal(c.Words, stepEdges(len(c.Words), p.StepSeconds), p.GlyphWidth)
}

// AudioProportionalWordReveal spreads the word highlights evenly over the
// audio duration.
type AudioProportionalWordReveal struct{}

func (s *AudioProportionalWordReveal) Name() types.CaptionStrategy {
	return types.CaptionStrategyAudioWords
}

func (s *AudioProportionalWordReveal) NeedsDuration(config.CaptionConfig) bool {
	return true
}

func (s *AudioProportionalWordReveal) Segments(c Caption, duration float64, p config.CaptionConfig) []TextSegment {
	return wordReveal(c.Words, evenEdges(len(c.Words), duration), p.GlyphWidth)
}

// wordReveal emits the base line over the full span followed by one
// highlight per word. Highlights are placed by estimated glyph width so they
// cascade left to right over the centred base line.
func wordReveal(words []string, edges []float64, glyphWidth float64) []TextSegment {
	line := strings.Join(words, " ")
	segments := make([]TextSegment, 0, len(words)+1)
	segments = append(segments, TextSegment{
		Text:  line,
		Color: Base,
		Start: edges[0],
		End:   edges[len(words)],
	})

	cursor := -estimateWidth(line, glyphWidth) / 2
	for i, word := range words {
		offset := cursor
		segments = append(segments, TextSegment{
			Text:    word,
			Color:   Highlight,
			Start:   edges[i],
			End:     edges[i+1],
			XOffset: &offset,
		})
		cursor += estimateWidth(word+" ", glyphWidth)
	}
	return segments
}

func estimateWidth(text string, glyphWidth float64) float64 {
	return float64(utf8.RuneCountInString(text)) * glyphWidth
}

// ChunkedSubtitle shows WordsPerChunk words at a time as a wrapped block.
// Chunks last StepSeconds each, or share the duration evenly when
// StepSeconds is not positive.
type ChunkedSubtitle struct{}

func (s *ChunkedSubtitle) Name() types.CaptionStrategy {
	return types.CaptionStrategyChunked
}

func (s *ChunkedSubtitle) NeedsDuration(p config.CaptionConfig) bool {
	return p.StepSeconds <= 0
}

func (s *ChunkedSubtitle) Segments(c Caption, duration float64, p config.CaptionConfig) []TextSegment {
	chunks := lo.Chunk(c.Words, p.WordsPerChunk)

	var edges []float64
	if p.StepSeconds > 0 {
		edges = stepEdges(len(chunks), p.StepSeconds)
	} else {
		edges = evenEdges(len(chunks), duration)
	}

	return lo.Map(chunks, func(chunk []string, i int) TextSegment {
		return TextSegment{
			Text:  strings.Join(WrapLines(chunk, p.MaxCharsPerLine), LineBreak),
			Color: Base,
			Start: edges[i],
			End:   edges[i+1],
		}
	})
}

// WindowedMaskHighlight walks a sliding window of WindowSize words across
// the caption. Each step shows the window as base text and a mask that keeps
// only the first word, with every other word blanked to spaces so the
// highlighted word stays in its column.
type WindowedMaskHighlight struct{}

func (s *WindowedMaskHighlight) Name() types.CaptionStrategy {
	return types.CaptionStrategyWindowedMask
}

func (s *WindowedMaskHighlight) NeedsDuration(config.CaptionConfig) bool {
	return true
}

func (s *WindowedMaskHighlight) Segments(c Caption, duration float64, p config.CaptionConfig) []TextSegment {
	n := len(c.Words)
	edges := evenEdges(n, duration)
	segments := make([]TextSegment, 0, 2*n)
	for i := 0; i < n; i++ {
		window := c.Words[i:clamp(i+p.WindowSize, i+1, n)]
		segments = append(segments,
			TextSegment{Text: strings.Join(window, " "), Color: Base, Start: edges[i], End: edges[i+1]},
			TextSegment{Text: Mask(window, 0), Color: Highlight, Start: edges[i], End: edges[i+1]},
		)
	}
	return segments
}

// Mask joins words with single spaces, replacing every word except the one
// at keep with a run of spaces of the same length. The result has the same
// length as strings.Join(words, " ").
func Mask(words []string, keep int) string {
	parts := make([]string, len(words))
	for i, w := range words {
		if i == keep {
			parts[i] = w
			continue
		}
		parts[i] = strings.Repeat(" ", utf8.RuneCountInString(w))
	}
	return strings.Join(parts, " ")
}

// HeuristicWordDuration gives every word its own duration (longer for long
// words and sentence ends) and lays the words back to back. Each word shows
// its wrapped chunk as base text with the word itself masked in as the
// highlight.
type HeuristicWordDuration struct{}

func (s *HeuristicWordDuration) Name() types.CaptionStrategy {
	return types.CaptionStrategyHeuristicDurations
}

func (s *HeuristicWordDuration) NeedsDuration(p config.CaptionConfig) bool {
	return p.FitToDuration
}

func (s *HeuristicWordDuration) Segments(c Caption, duration float64, p config.CaptionConfig) []TextSegment {
	durations := lo.Map(c.Words, func(w string, _ int) float64 {
		return WordDuration(w, p)
	})

	scale := 1.0
	if total := lo.Sum(durations); p.FitToDuration && duration > 0 && total > 0 {
		scale = duration / total
	}

	edges := make([]float64, len(durations)+1)
	for i, d := range durations {
		edges[i+1] = edges[i] + d*scale
	}
	if scale != 1.0 {
		edges[len(durations)] = duration
	}

	segments := make([]TextSegment, 0, 2*len(c.Words))
	for ci, chunk := range lo.Chunk(c.Words, p.WordsPerChunk) {
		groups := wrapGroups(chunk, p.MaxCharsPerLine)
		block := joinGroups(groups, -1)
		for k := range chunk {
			i := ci*p.WordsPerChunk + k
			segments = append(segments,
				TextSegment{Text: block, Color: Base, Start: edges[i], End: edges[i+1]},
				TextSegment{Text: joinGroups(groups, k), Color: Highlight, Start: edges[i], End: edges[i+1]},
			)
		}
	}
	return segments
}

// WordDuration is the heuristic display time of a single word.
func WordDuration(word string, p config.CaptionConfig) float64 {
	d := p.BaseWordSeconds
	if utf8.RuneCountInString(word) > p.LongWordThreshold {
		d += p.LongWordExtraSeconds
	}
	if strings.HasSuffix(word, ".") || strings.HasSuffix(word, "!") || strings.HasSuffix(word, "?") {
		d += p.PunctuationExtraSeconds
	}
	return d
}

// joinGroups renders wrapped lines. With keep >= 0 only the word at that
// position within the chunk is kept and all others are blanked.
func joinGroups(groups [][]string, keep int) string {
	lines := make([]string, len(groups))
	offset := 0
	for i, g := range groups {
		if keep < 0 {
			lines[i] = strings.Join(g, " ")
		} else {
			lines[i] = Mask(g, keep-offset)
		}
		offset += len(g)
	}
	return strings.Join(lines, LineBreak)
}
