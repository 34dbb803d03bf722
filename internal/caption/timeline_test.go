package caption

import (
	"strings"
	"testing"

	"github.com/ZacxDev/video-captioner/internal/config"
	"github.com/ZacxDev/video-captioner/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func params() config.CaptionConfig {
	return config.Default().Caption
}

func mustLookup(t *testing.T, name types.CaptionStrategy) Strategy {
	t.Helper()
	s, err := Lookup(name)
	require.NoError(t, err)
	return s
}

func layer(segments []TextSegment, c Color) []TextSegment {
	var out []TextSegment
	for _, s := range segments {
		if s.Color == c {
			out = append(out, s)
		}
	}
	return out
}

func TestLookup(t *testing.T) {
	assert.Equal(t, []string{
		"audio-words", "chunked", "fixed-step-words", "heuristic", "static", "windowed-mask",
	}, SupportedStrategies())

	_, err := Lookup("typewriter")
	assert.Error(t, err)
}

func TestBuildEmptyCaption(t *testing.T) {
	for _, name := range SupportedStrategies() {
		s := mustLookup(t, types.CaptionStrategy(name))
		assert.Empty(t, Build(s, "", 4, params()), name)
		assert.Empty(t, Build(s, " \n\t ", 4, params()), name)
	}
}

func TestStaticOverlay(t *testing.T) {
	segments := Build(mustLookup(t, types.CaptionStrategyStatic), "Porosit ne mesazhe apo\nWhatsapp: +383\n", 12.5, params())

	require.Len(t, segments, 1)
	assert.Equal(t, "Porosit ne mesazhe apo\nWhatsapp: +383", segments[0].Text)
	assert.Equal(t, Base, segments[0].Color)
	assert.Equal(t, 0.0, segments[0].Start)
	assert.Equal(t, 12.5, segments[0].End)
	assert.Nil(t, segments[0].XOffset)
}

func TestAudioProportionalWordReveal(t *testing.T) {
	segments := Build(mustLookup(t, types.CaptionStrategyAudioWords), "one two three four", 4.0, params())

	base := layer(segments, Base)
	require.Len(t, base, 1)
	assert.Equal(t, "one two three four", base[0].Text)
	assert.Equal(t, 0.0, base[0].Start)
	assert.Equal(t, 4.0, base[0].End)

	highlights := layer(segments, Highlight)
	require.Len(t, highlights, 4)
	for i, h := range highlights {
		assert.Equal(t, float64(i), h.Start)
		assert.Equal(t, float64(i+1), h.End)
		assert.Equal(t, 1.0, h.End-h.Start)
	}
	assert.NoError(t, CheckCoverage(segments, Base, 4.0))
	assert.NoError(t, CheckCoverage(segments, Highlight, 4.0))
}

func TestAudioProportionalNoDrift(t *testing.T) {
	segments := Build(mustLookup(t, types.CaptionStrategyAudioWords), "a b c d e f g", 10.0, params())
	highlights := layer(segments, Highlight)

	require.Len(t, highlights, 7)
	assert.Equal(t, 10.0, highlights[6].End)
	assert.NoError(t, CheckCoverage(segments, Highlight, 10.0))
}

func TestFixedStepWordReveal(t *testing.T) {
	p := params()
	p.StepSeconds = 0.5
	p.GlyphWidth = 10

	segments := Build(mustLookup(t, types.CaptionStrategyFixedStepWords), "ab cdef g", 99, p)
	require.Len(t, segments, 4)

	base := segments[0]
	assert.Equal(t, Base, base.Color)
	assert.Equal(t, "ab cdef g", base.Text)
	assert.Equal(t, 1.5, base.End)

	highlights := layer(segments, Highlight)
	wantStarts := []float64{0, 0.5, 1.0}
	// "ab cdef g" is 9 glyphs wide; the first word starts half of that left of centre.
	wantOffsets := []float64{-45, -15, 35}
	for i, h := range highlights {
		assert.Equal(t, wantStarts[i], h.Start)
		assert.Equal(t, wantStarts[i]+0.5, h.End)
		require.NotNil(t, h.XOffset)
		assert.InDelta(t, wantOffsets[i], *h.XOffset, 1e-9)
	}
	assert.NoError(t, CheckCoverage(segments, Highlight, Span(segments)))
}

func TestFixedStepWordRevealSharesDurationWithoutStep(t *testing.T) {
	p := params()
	p.StepSeconds = 0

	s := mustLookup(t, types.CaptionStrategyFixedStepWords)
	assert.True(t, s.NeedsDuration(p))

	segments := Build(s, "a b c d", 8, p)
	highlights := layer(segments, Highlight)
	require.Len(t, highlights, 4)
	for i, h := range highlights {
		assert.Equal(t, float64(2*i), h.Start)
		assert.Equal(t, float64(2*i+2), h.End)
	}
	assert.Equal(t, 8.0, segments[0].End)
	assert.NoError(t, CheckCoverage(segments, Base, 8))
	assert.NoError(t, CheckCoverage(segments, Highlight, 8))

	p.StepSeconds = 0.5
	assert.False(t, s.NeedsDuration(p))
}

func TestChunkedSubtitleSingleChunk(t *testing.T) {
	p := params()
	p.WordsPerChunk = 3
	p.StepSeconds = 2

	segments := Build(mustLookup(t, types.CaptionStrategyChunked), "Hello world foo", 0, p)
	require.Len(t, segments, 1)
	assert.Equal(t, "Hello world foo", segments[0].Text)
	assert.Equal(t, 0.0, segments[0].Start)
	assert.Equal(t, 2.0, segments[0].End)
}

func TestChunkedSubtitleRoundTrip(t *testing.T) {
	p := params()
	p.WordsPerChunk = 3
	p.MaxCharsPerLine = 8
	caption := "the  quick brown\nfox jumps over the lazy dog again"

	segments := Build(mustLookup(t, types.CaptionStrategyChunked), caption, 0, p)
	require.Len(t, segments, 4)

	texts := make([]string, len(segments))
	for i, s := range segments {
		texts[i] = s.Text
	}
	assert.Equal(t, strings.Fields(caption), strings.Fields(strings.Join(texts, " ")))
	assert.Equal(t, "the\nquick\nbrown", segments[0].Text)
	assert.Equal(t, "again", segments[3].Text)
	assert.NoError(t, CheckCoverage(segments, Base, 4*p.StepSeconds))
}

func TestChunkedSubtitleProportionalFallback(t *testing.T) {
	p := params()
	p.WordsPerChunk = 2
	p.StepSeconds = 0

	s := mustLookup(t, types.CaptionStrategyChunked)
	assert.True(t, s.NeedsDuration(p))

	segments := Build(s, "a b c d e", 9, p)
	require.Len(t, segments, 3)
	assert.Equal(t, 3.0, segments[1].Start)
	assert.Equal(t, 9.0, segments[2].End)
	assert.NoError(t, CheckCoverage(segments, Base, 9))
}

func TestWindowedMaskHighlight(t *testing.T) {
	p := params()
	p.WindowSize = 3

	segments := Build(mustLookup(t, types.CaptionStrategyWindowedMask), "A B C D", 4.0, p)
	base := layer(segments, Base)
	masks := layer(segments, Highlight)
	require.Len(t, base, 4)
	require.Len(t, masks, 4)

	assert.Equal(t, "A B C", base[0].Text)
	assert.Equal(t, "A    ", masks[0].Text)
	assert.Len(t, masks[0].Text, len(base[0].Text))
	assert.Equal(t, "B C D", base[1].Text)
	assert.Equal(t, "C D", base[2].Text)
	assert.Equal(t, "C  ", masks[2].Text)
	assert.Equal(t, "D", base[3].Text)
	assert.Equal(t, "D", masks[3].Text)

	for i := range base {
		assert.Equal(t, float64(i), base[i].Start)
		assert.Equal(t, 1.0, base[i].End-base[i].Start)
		assert.Equal(t, base[i].Start, masks[i].Start)
		assert.Equal(t, base[i].End, masks[i].End)
	}
	assert.NoError(t, CheckCoverage(segments, Base, 4))
	assert.NoError(t, CheckCoverage(segments, Highlight, 4))
}

func TestMaskPreservesColumns(t *testing.T) {
	words := []string{"déjà", "vu", "again"}
	assert.Equal(t, "déjà         ", Mask(words, 0))
	assert.Equal(t, "     vu      ", Mask(words, 1))
	assert.Equal(t, "        again", Mask(words, 2))
}

func TestWordDuration(t *testing.T) {
	p := params()
	p.BaseWordSeconds = 0.4
	p.LongWordExtraSeconds = 0.2
	p.LongWordThreshold = 6
	p.PunctuationExtraSeconds = 0.3

	assert.InDelta(t, 0.4, WordDuration("short", p), 1e-9)
	assert.InDelta(t, 0.4, WordDuration("sixsix", p), 1e-9)
	assert.InDelta(t, 0.6, WordDuration("sevenly", p), 1e-9)
	assert.InDelta(t, 0.7, WordDuration("end.", p), 1e-9)
	assert.InDelta(t, 0.9, WordDuration("finally!", p), 1e-9)
	assert.InDelta(t, 0.7, WordDuration("why?", p), 1e-9)
}

func TestHeuristicWordDuration(t *testing.T) {
	p := params()
	p.WordsPerChunk = 2
	p.MaxCharsPerLine = 24
	p.BaseWordSeconds = 1
	p.LongWordExtraSeconds = 1
	p.LongWordThreshold = 6
	p.PunctuationExtraSeconds = 0.5

	segments := Build(mustLookup(t, types.CaptionStrategyHeuristicDurations), "buy wonderful shoes now.", 0, p)
	base := layer(segments, Base)
	highlights := layer(segments, Highlight)
	require.Len(t, base, 4)
	require.Len(t, highlights, 4)

	wantEdges := []float64{0, 1, 3, 4, 5.5}
	for i := range base {
		assert.InDelta(t, wantEdges[i], base[i].Start, 1e-9)
		assert.InDelta(t, wantEdges[i+1], base[i].End, 1e-9)
		assert.Equal(t, base[i].Start, highlights[i].Start)
		assert.Equal(t, base[i].End, highlights[i].End)
	}

	assert.Equal(t, "buy wonderful", base[0].Text)
	assert.Equal(t, "buy          ", highlights[0].Text)
	assert.Equal(t, "    wonderful", highlights[1].Text)
	assert.Equal(t, "shoes now.", base[2].Text)
	assert.Equal(t, "      now.", highlights[3].Text)

	assert.NoError(t, CheckCoverage(segments, Base, 5.5))
	assert.NoError(t, CheckCoverage(segments, Highlight, 5.5))
}

func TestHeuristicMaskFollowsWrappedLines(t *testing.T) {
	p := params()
	p.WordsPerChunk = 3
	p.MaxCharsPerLine = 5

	segments := Build(mustLookup(t, types.CaptionStrategyHeuristicDurations), "aa bb cc", 0, p)
	require.Len(t, segments, 6)
	assert.Equal(t, "aa bb\ncc", segments[0].Text)
	assert.Equal(t, "   bb\n  ", segments[3].Text)
	assert.Equal(t, "     \ncc", segments[5].Text)
}

func TestHeuristicFitToDuration(t *testing.T) {
	p := params()
	p.FitToDuration = true

	s := mustLookup(t, types.CaptionStrategyHeuristicDurations)
	assert.True(t, s.NeedsDuration(p))

	segments := Build(s, "one two three. four", 8, p)
	assert.Equal(t, 8.0, Span(segments))
	assert.NoError(t, CheckCoverage(segments, Base, 8))
	assert.NoError(t, CheckCoverage(segments, Highlight, 8))
}

func TestCheckCoverage(t *testing.T) {
	ok := []TextSegment{
		{Color: Base, Start: 0, End: 1},
		{Color: Highlight, Start: 0, End: 2},
		{Color: Base, Start: 1, End: 2},
	}
	assert.NoError(t, CheckCoverage(ok, Base, 2))
	assert.NoError(t, CheckCoverage(ok, Highlight, 2))

	gap := []TextSegment{{Color: Base, Start: 0, End: 1}, {Color: Base, Start: 1.5, End: 2}}
	assert.Error(t, CheckCoverage(gap, Base, 2))

	overlap := []TextSegment{{Color: Base, Start: 0, End: 1}, {Color: Base, Start: 0.5, End: 2}}
	assert.Error(t, CheckCoverage(overlap, Base, 2))

	late := []TextSegment{{Color: Base, Start: 0.5, End: 1}}
	assert.Error(t, CheckCoverage(late, Base, 1))

	short := []TextSegment{{Color: Base, Start: 0, End: 1}}
	assert.Error(t, CheckCoverage(short, Base, 2))

	assert.NoError(t, CheckCoverage(nil, Highlight, 2))
}
