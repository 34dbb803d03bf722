package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ZacxDev/video-captioner/pkg/types"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the captioner. Components receive the
// sections they need at construction time.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	FFmpeg  FFmpegConfig  `yaml:"ffmpeg"`
	Frame   FrameConfig   `yaml:"frame"`
	Text    TextConfig    `yaml:"text"`
	Caption CaptionConfig `yaml:"caption"`
	Overlay OverlayConfig `yaml:"overlay"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig configures the HTTP boundary.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ScratchDir      string        `yaml:"scratch_dir"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// FFmpegConfig configures the external prober and encoder.
type FFmpegConfig struct {
	FFmpegPath    string        `yaml:"ffmpeg_path"`
	FFprobePath   string        `yaml:"ffprobe_path"`
	Platform      string        `yaml:"platform"`
	ProbeTimeout  time.Duration `yaml:"probe_timeout"`
	EncodeTimeout time.Duration `yaml:"encode_timeout"`
	MaxConcurrent int           `yaml:"max_concurrent"`
}

// FrameConfig describes the canonical output frame and the blur-pad look.
type FrameConfig struct {
	Width             int     `yaml:"width"`
	Height            int     `yaml:"height"`
	TargetRatio       float64 `yaml:"target_ratio"`
	VerticalTolerance float64 `yaml:"vertical_tolerance"`
	BlurRadius        int     `yaml:"blur_radius"`
	BrightnessDelta   float64 `yaml:"brightness_delta"`
}

// TextConfig describes how text-draw nodes are styled.
type TextConfig struct {
	FontFile       string            `yaml:"font_file"`
	FontSize       int               `yaml:"font_size"`
	BaseColor      string            `yaml:"base_color"`
	HighlightColor string            `yaml:"highlight_color"`
	BorderWidth    int               `yaml:"border_width"`
	BorderColor    string            `yaml:"border_color"`
	BottomMargin   int               `yaml:"bottom_margin"`
	LineSpacing    int               `yaml:"line_spacing"`
	NewlineMode    types.NewlineMode `yaml:"newline_mode"`
	UseTextFile    bool              `yaml:"use_text_file"`
}

// CaptionConfig holds the timing constants of every caption strategy.
type CaptionConfig struct {
	Strategy        types.CaptionStrategy `yaml:"strategy"`
	StaticText      string                `yaml:"static_text"`
	StepSeconds     float64               `yaml:"step_seconds"`
	WordsPerChunk   int                   `yaml:"words_per_chunk"`
	WindowSize      int                   `yaml:"window_size"`
	MaxCharsPerLine int                   `yaml:"max_chars_per_line"`
	GlyphWidth      float64               `yaml:"glyph_width"`

	BaseWordSeconds         float64 `yaml:"base_word_seconds"`
	LongWordExtraSeconds    float64 `yaml:"long_word_extra_seconds"`
	LongWordThreshold       int     `yaml:"long_word_threshold"`
	PunctuationExtraSeconds float64 `yaml:"punctuation_extra_seconds"`
	FitToDuration           bool    `yaml:"fit_to_duration"`
}

// OverlayConfig points at an optional still image composited over the video.
type OverlayConfig struct {
	ImagePath string `yaml:"image_path"`
	X         string `yaml:"x"`
	Y         string `yaml:"y"`
}

// LogConfig configures the root logger.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

const (
	// Canonical vertical frame (9:16)
	DefaultFrameWidth  = 1080
	DefaultFrameHeight = 1920

	DefaultVerticalTolerance = 0.05

	// Text overlay settings
	DefaultFontSize     = 37
	DefaultBottomMargin = 260
	DefaultLineSpacing  = 14
	DefaultBorderWidth  = 4

	// Temporary file prefix
	ScratchPrefix = "captioner"
)

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":3000",
			ScratchDir:      os.TempDir(),
			MaxUploadBytes:  512 << 20,
			ShutdownTimeout: 10 * time.Second,
		},
		FFmpeg: FFmpegConfig{
			FFmpegPath:    "ffmpeg",
			FFprobePath:   "ffprobe",
			Platform:      "tiktok",
			ProbeTimeout:  30 * time.Second,
			EncodeTimeout: 10 * time.Minute,
			MaxConcurrent: 2,
		},
		Frame: FrameConfig{
			Width:             DefaultFrameWidth,
			Height:            DefaultFrameHeight,
			TargetRatio:       9.0 / 16.0,
			VerticalTolerance: DefaultVerticalTolerance,
			BlurRadius:        20,
			BrightnessDelta:   -0.15,
		},
		Text: TextConfig{
			FontFile:       "/opt/render/project/src/Roboto-Bold.ttf",
			FontSize:       DefaultFontSize,
			BaseColor:      "white",
			HighlightColor: "yellow",
			BorderWidth:    DefaultBorderWidth,
			BorderColor:    "black",
			BottomMargin:   DefaultBottomMargin,
			LineSpacing:    DefaultLineSpacing,
			NewlineMode:    types.NewlineLineBreak,
		},
		Caption: CaptionConfig{
			Strategy:                types.CaptionStrategyAudioWords,
			StaticText:              "Porosit ne mesazhe apo\nWhatsapp: +383 49 37 30 37",
			StepSeconds:             0.5,
			WordsPerChunk:           3,
			WindowSize:              3,
			MaxCharsPerLine:         24,
			GlyphWidth:              DefaultFontSize * 0.55,
			BaseWordSeconds:         0.4,
			LongWordExtraSeconds:    0.2,
			LongWordThreshold:       6,
			PunctuationExtraSeconds: 0.3,
		},
		Overlay: OverlayConfig{
			X: "(W-w)/2",
			Y: "(H-h)/2",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds a Config from defaults, an optional YAML file and the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrapf(err, "failed to read config file %s", path)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "failed to parse config file %s", path)
		}
	}

	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from CAPTIONER_* variables. lookup is os.Getenv
// outside of tests.
func (c *Config) ApplyEnv(lookup func(string) string) error {
	str := func(key string, dst *string) {
		if v := lookup(key); v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) error {
		v := lookup(key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "invalid %s", key)
		}
		*dst = n
		return nil
	}
	duration := func(key string, dst *time.Duration) error {
		v := lookup(key)
		if v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(err, "invalid %s", key)
		}
		*dst = d
		return nil
	}

	// PORT is honoured for parity with common PaaS hosts.
	if port := lookup("PORT"); port != "" {
		c.Server.Addr = ":" + port
	}
	str("CAPTIONER_ADDR", &c.Server.Addr)
	str("CAPTIONER_SCRATCH_DIR", &c.Server.ScratchDir)
	str("FFMPEG_PATH", &c.FFmpeg.FFmpegPath)
	str("FFPROBE_PATH", &c.FFmpeg.FFprobePath)
	str("CAPTIONER_PLATFORM", &c.FFmpeg.Platform)
	str("CAPTIONER_FONT_FILE", &c.Text.FontFile)
	str("CAPTIONER_OVERLAY_IMAGE", &c.Overlay.ImagePath)
	str("CAPTIONER_LOG_LEVEL", &c.Log.Level)

	if v := lookup("CAPTIONER_STRATEGY"); v != "" {
		c.Caption.Strategy = types.CaptionStrategy(v)
	}
	if v := lookup("CAPTIONER_NEWLINE_MODE"); v != "" {
		c.Text.NewlineMode = types.NewlineMode(v)
	}

	for _, fn := range []func() error{
		func() error { return integer("CAPTIONER_MAX_CONCURRENT", &c.FFmpeg.MaxConcurrent) },
		func() error { return integer("CAPTIONER_FONT_SIZE", &c.Text.FontSize) },
		func() error { return integer("CAPTIONER_BOTTOM_MARGIN", &c.Text.BottomMargin) },
		func() error { return duration("CAPTIONER_PROBE_TIMEOUT", &c.FFmpeg.ProbeTimeout) },
		func() error { return duration("CAPTIONER_ENCODE_TIMEOUT", &c.FFmpeg.EncodeTimeout) },
	} {
		if err := fn(); err != nil {
			return err
		}
	}

	return nil
}

// Validate rejects configurations no component can work with.
func (c Config) Validate() error {
	if c.Frame.Width <= 0 || c.Frame.Height <= 0 {
		return fmt.Errorf("invalid frame size %dx%d", c.Frame.Width, c.Frame.Height)
	}
	if c.Frame.TargetRatio <= 0 {
		return fmt.Errorf("target ratio must be positive, got %v", c.Frame.TargetRatio)
	}
	if c.Frame.VerticalTolerance <= 0 {
		return fmt.Errorf("vertical tolerance must be positive, got %v", c.Frame.VerticalTolerance)
	}
	if c.Text.FontSize <= 0 {
		return fmt.Errorf("font size must be positive, got %d", c.Text.FontSize)
	}
	switch c.Text.NewlineMode {
	case types.NewlineCollapse, types.NewlineLineBreak:
	default:
		return fmt.Errorf("unsupported newline mode: %s", c.Text.NewlineMode)
	}
	if c.Caption.WordsPerChunk <= 0 {
		return fmt.Errorf("words per chunk must be positive, got %d", c.Caption.WordsPerChunk)
	}
	if c.Caption.WindowSize <= 0 {
		return fmt.Errorf("window size must be positive, got %d", c.Caption.WindowSize)
	}
	if c.Caption.MaxCharsPerLine <= 0 {
		return fmt.Errorf("max chars per line must be positive, got %d", c.Caption.MaxCharsPerLine)
	}
	if c.Caption.StepSeconds < 0 {
		return fmt.Errorf("step seconds must not be negative, got %v", c.Caption.StepSeconds)
	}
	if c.FFmpeg.MaxConcurrent <= 0 {
		return fmt.Errorf("max concurrent encodes must be positive, got %d", c.FFmpeg.MaxConcurrent)
	}
	if c.Server.ScratchDir == "" {
		return errors.New("scratch dir is required")
	}
	return nil
}
