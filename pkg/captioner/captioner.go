// Package captioner wires the caption renderer to ffmpeg and exposes it to
// the command line and the HTTP server.
package captioner

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ZacxDev/video-captioner/internal/caption"
	"github.com/ZacxDev/video-captioner/internal/config"
	"github.com/ZacxDev/video-captioner/internal/ffmpeg"
	"github.com/ZacxDev/video-captioner/internal/metrics"
	"github.com/ZacxDev/video-captioner/internal/platform"
	"github.com/ZacxDev/video-captioner/internal/render"
	"github.com/ZacxDev/video-captioner/internal/server"
	"github.com/ZacxDev/video-captioner/pkg/types"
	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
)

// RenderOptions defines one command line render
type RenderOptions struct {
	VideoPath string
	AudioPath string
	ImagePath string
	Caption   string
	Strategy  types.CaptionStrategy
	// OutputPath defaults to a name derived from VideoPath.
	OutputPath string
}

// Captioner owns the renderer and everything it depends on.
type Captioner struct {
	cfg      config.Config
	profile  platform.Platform
	metrics  *metrics.Metrics
	renderer *render.Renderer
	logger   hclog.Logger
}

// New creates a Captioner that runs the ffmpeg and ffprobe binaries named
// in cfg.
func New(cfg config.Config, logger hclog.Logger) (*Captioner, error) {
	return NewWithRunner(cfg, ffmpeg.ExecRunner{}, logger)
}

// NewWithRunner creates a Captioner whose external commands go through
// runner.
func NewWithRunner(cfg config.Config, runner ffmpeg.CommandRunner, logger hclog.Logger) (*Captioner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	profile, err := platform.Get(cfg.FFmpeg.Platform)
	if err != nil {
		return nil, err
	}
	if !platform.FitsFrame(profile, cfg.Frame.Width, cfg.Frame.Height) {
		w, h := profile.GetMaxDimensions()
		logger.Warn("frame exceeds platform dimensions",
			"frame", frameString(cfg.Frame.Width, cfg.Frame.Height),
			"platform", profile.GetName(), "max", frameString(w, h))
	}

	m := metrics.New()
	prober := ffmpeg.NewProber(cfg.FFmpeg.FFprobePath, runner, logger)
	encoder := ffmpeg.NewEncoder(cfg.FFmpeg.FFmpegPath, profile, runner, logger)

	return &Captioner{
		cfg:      cfg,
		profile:  profile,
		metrics:  m,
		renderer: render.NewRenderer(cfg, profile, prober, encoder, m, logger),
		logger:   logger,
	}, nil
}

// Profile returns the platform outputs are encoded for.
func (c *Captioner) Profile() platform.Platform {
	return c.profile
}

// Renderer returns the shared renderer.
func (c *Captioner) Renderer() *render.Renderer {
	return c.renderer
}

// Metrics returns the collectors of this captioner.
func (c *Captioner) Metrics() *metrics.Metrics {
	return c.metrics
}

// Server returns the HTTP boundary backed by this captioner.
func (c *Captioner) Server() *server.Server {
	return server.New(c.cfg.Server, c.renderer, c.metrics, c.logger)
}

// RenderFile renders opts and copies the result to opts.OutputPath. The
// inputs are left in place.
func (c *Captioner) RenderFile(ctx context.Context, opts RenderOptions) (*render.Result, error) {
	if opts.OutputPath == "" {
		opts.OutputPath = DefaultOutputPath(opts.VideoPath)
	}
	format := c.profile.GetOutputFormat()
	output := ffmpeg.EnsureExtension(opts.OutputPath, ffmpeg.GetCodecSettings(format).FileExtension)

	if dir := filepath.Dir(output); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "failed to create output directory %s", dir)
		}
	}

	req := render.Request{
		VideoPath: opts.VideoPath,
		AudioPath: opts.AudioPath,
		ImagePath: opts.ImagePath,
		Caption:   opts.Caption,
		Strategy:  opts.Strategy,
	}
	res, err := c.renderer.Render(ctx, req, func(_ context.Context, res *render.Result) error {
		return copyFile(res.OutputPath, output)
	})
	if err != nil {
		return nil, err
	}
	res.OutputPath = output

	c.logger.Info("wrote output", "path", output, "strategy", res.Strategy, "segments", len(res.Segments))
	return res, nil
}

// SupportedStrategies returns the caption strategy names.
func SupportedStrategies() []string {
	return caption.SupportedStrategies()
}

// SupportedPlatforms returns the platform profile names.
func SupportedPlatforms() []string {
	return platform.GetSupportedPlatforms()
}

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9-_.]`)
	underscores = regexp.MustCompile(`_+`)
)

// DefaultOutputPath returns "<dir>/<name>_captioned.mp4" for a video at
// "<dir>/<name>.<ext>".
func DefaultOutputPath(videoPath string) string {
	base := filepath.Base(videoPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = sanitizeFilename(base)
	if base == "" {
		base = "output"
	}
	return filepath.Join(filepath.Dir(videoPath), base+"_captioned.mp4")
}

func sanitizeFilename(filename string) string {
	sanitized := unsafeChars.ReplaceAllString(filename, "_")
	sanitized = underscores.ReplaceAllString(sanitized, "_")
	return strings.Trim(sanitized, "_")
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrap(err, "failed to open rendered file")
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrapf(err, "failed to write %s", dst)
	}
	return errors.Wrapf(out.Close(), "failed to close %s", dst)
}

func frameString(w, h int) string {
	return fmt.Sprintf("%dx%d", w, h)
}
