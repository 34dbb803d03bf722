package types

// CaptionStrategy names a caption reveal strategy.
type CaptionStrategy string

const (
	CaptionStrategyStatic             CaptionStrategy = "static"
	CaptionStrategyFixedStepWords     CaptionStrategy = "fixed-step-words"
	CaptionStrategyAudioWords         CaptionStrategy = "audio-words"
	CaptionStrategyChunked            CaptionStrategy = "chunked"
	CaptionStrategyWindowedMask       CaptionStrategy = "windowed-mask"
	CaptionStrategyHeuristicDurations CaptionStrategy = "heuristic"
)

// NewlineMode controls how line breaks in caption text reach the text-draw node.
type NewlineMode string

const (
	NewlineCollapse  NewlineMode = "collapse"
	NewlineLineBreak NewlineMode = "line-break"
)
