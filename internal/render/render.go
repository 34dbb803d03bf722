package render

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ZacxDev/video-captioner/internal/caption"
	"github.com/ZacxDev/video-captioner/internal/composition"
	"github.com/ZacxDev/video-captioner/internal/config"
	"github.com/ZacxDev/video-captioner/internal/ffmpeg"
	"github.com/ZacxDev/video-captioner/internal/filtergraph"
	"github.com/ZacxDev/video-captioner/internal/metrics"
	"github.com/ZacxDev/video-captioner/internal/platform"
	"github.com/ZacxDev/video-captioner/pkg/types"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"
)

// Prober characterises input media.
type Prober interface {
	ProbeVideo(ctx context.Context, path string) (ffmpeg.VideoProbe, error)
	ProbeAudio(ctx context.Context, path string) (ffmpeg.AudioProbe, error)
}

// Encoder produces the output file.
type Encoder interface {
	Encode(ctx context.Context, job ffmpeg.EncodeJob) error
}

// Request is one render job.
type Request struct {
	// JobID scopes scratch file names. A random id is used when empty.
	JobID string

	VideoPath string
	AudioPath string
	// ImagePath overrides the configured overlay image.
	ImagePath string

	Caption string
	// Strategy overrides the configured caption strategy.
	Strategy types.CaptionStrategy

	// Owned lists input files the job takes ownership of. They are removed
	// together with the job's scratch files.
	Owned []string
}

// Result describes a completed job. OutputPath is only valid until the
// deliver callback returns.
type Result struct {
	JobID      string
	OutputPath string
	Strategy   types.CaptionStrategy
	Video      ffmpeg.VideoProbe
	Duration   float64
	Plan       composition.Plan
	Segments   []caption.TextSegment
	Graph      string
	History    []State
}

// DeliverFunc hands the rendered file to the caller. It runs before the
// job's files are removed.
type DeliverFunc func(ctx context.Context, res *Result) error

// Renderer runs render jobs. It holds no per-job state and is safe for
// concurrent use.
type Renderer struct {
	cfg     config.Config
	profile platform.Platform
	prober  Prober
	encoder Encoder
	planner *composition.Planner
	style   filtergraph.TextStyle
	slots   *semaphore.Weighted
	metrics *metrics.Metrics
	logger  hclog.Logger
}

func NewRenderer(cfg config.Config, profile platform.Platform, prober Prober, encoder Encoder, m *metrics.Metrics, logger hclog.Logger) *Renderer {
	return &Renderer{
		cfg:     cfg,
		profile: profile,
		prober:  prober,
		encoder: encoder,
		planner: composition.NewPlanner(cfg.Frame),
		style:   filtergraph.StyleFromConfig(cfg.Text),
		slots:   semaphore.NewWeighted(int64(cfg.FFmpeg.MaxConcurrent)),
		metrics: m,
		logger:  logger.Named("render"),
	}
}

type job struct {
	req      Request
	id       string
	state    State
	history  []State
	strategy caption.Strategy
	scratch  *ScratchSet
	logger   hclog.Logger
}

func (j *job) transition(next State) {
	if next <= j.state && next != Failed {
		panic(fmt.Sprintf("render: illegal transition %s -> %s", j.state, next))
	}
	j.state = next
	j.history = append(j.history, next)
	j.logger.Debug("state changed", "state", next)
}

func (j *job) fail(kind Kind, diagnostic string, err error) *Error {
	rerr := &Error{Kind: kind, State: j.state, Diagnostic: diagnostic, Err: err}
	j.transition(Failed)
	return rerr
}

// Render runs a job through every state and calls deliver on success. All
// files the job owns are removed before Render returns, whatever the
// outcome.
func (r *Renderer) Render(ctx context.Context, req Request, deliver DeliverFunc) (res *Result, err error) {
	id := req.JobID
	if id == "" {
		id = uuid.NewString()
	}
	j := &job{
		req:     req,
		id:      id,
		scratch: NewScratchSet(r.cfg.Server.ScratchDir, id),
		logger:  r.logger.With("job_id", id),
	}
	j.scratch.Adopt(req.Owned...)
	defer r.cleanup(j)

	defer func() {
		recovered := recover()

		outcome := metrics.OutcomeCompleted
		var rerr *Error
		switch {
		case recovered != nil:
			outcome = metrics.OutcomePanicked
			j.logger.Error("render panicked", "state", j.state, "panic", recovered)
		case errors.As(err, &rerr):
			outcome = rerr.Kind.String()
			j.logger.Error("render failed", "kind", rerr.Kind, "state", rerr.State, "error", rerr.Err)
		}
		if r.metrics != nil {
			r.metrics.Jobs.WithLabelValues(outcome).Inc()
		}

		if recovered != nil {
			panic(recovered)
		}
	}()

	if err := r.validate(j); err != nil {
		return nil, err
	}
	j.transition(Received)

	res, rerr := r.run(ctx, j)
	if rerr != nil {
		return nil, rerr
	}

	if deliver != nil {
		if err := deliver(ctx, res); err != nil {
			return res, errors.Wrap(err, "failed to deliver output")
		}
	}
	return res, nil
}

func (r *Renderer) validate(j *job) *Error {
	var missing []string
	for _, in := range []struct{ field, path string }{
		{"video", j.req.VideoPath},
		{"audio", j.req.AudioPath},
	} {
		if in.path == "" {
			missing = append(missing, in.field)
			continue
		}
		if _, err := os.Stat(in.path); err != nil {
			missing = append(missing, in.field)
		}
	}
	if len(missing) > 0 {
		msg := fmt.Sprintf("missing required input: %s", strings.Join(missing, ", "))
		return j.fail(ValidationFailure, msg, errors.New(msg))
	}

	name := j.req.Strategy
	if name == "" {
		name = r.cfg.Caption.Strategy
	}
	strategy, err := caption.Lookup(name)
	if err != nil {
		return j.fail(ValidationFailure, err.Error(), err)
	}
	j.strategy = strategy
	j.logger = j.logger.With("strategy", name)
	return nil
}

func (r *Renderer) run(ctx context.Context, j *job) (*Result, *Error) {
	p := r.cfg.Caption
	res := &Result{JobID: j.id, Strategy: j.strategy.Name()}

	// Received -> Probed
	if err := ctx.Err(); err != nil {
		return nil, j.fail(ProbeFailure, err.Error(), err)
	}
	probeCtx, cancel := withTimeout(ctx, r.cfg.FFmpeg.ProbeTimeout)
	video, err := r.prober.ProbeVideo(probeCtx, j.req.VideoPath)
	if err == nil && j.strategy.NeedsDuration(p) {
		var audio ffmpeg.AudioProbe
		audio, err = r.prober.ProbeAudio(probeCtx, j.req.AudioPath)
		res.Duration = audio.Duration
	}
	cancel()
	if err != nil {
		return nil, j.fail(ProbeFailure, ffmpeg.Diagnostic(err), err)
	}
	res.Video = video
	j.transition(Probed)

	if r.profile != nil && res.Duration > float64(r.profile.GetMaxDuration()) {
		j.logger.Warn("audio longer than platform allows", "duration", res.Duration, "platform", r.profile.GetName(), "max", r.profile.GetMaxDuration())
	}

	// Probed -> Planned
	plan, err := r.planner.Plan(video.Width, video.Height)
	if err != nil {
		return nil, j.fail(ProbeFailure, err.Error(), err)
	}
	res.Plan = plan
	j.transition(Planned)
	j.logger.Debug("planned composition", "plan", composition.Describe(plan), "width", video.Width, "height", video.Height)

	// Planned -> TimelineBuilt
	text := j.req.Caption
	if strings.TrimSpace(text) == "" && j.strategy.Name() == types.CaptionStrategyStatic {
		text = p.StaticText
	}
	res.Segments = caption.Build(j.strategy, text, res.Duration, p)
	j.transition(TimelineBuilt)
	r.checkCoverage(j, res)

	// TimelineBuilt -> GraphBuilt
	if r.cfg.Text.UseTextFile {
		if err := r.writeTextFiles(j, res.Segments); err != nil {
			return nil, j.fail(EncodeFailure, err.Error(), err)
		}
	}
	image := j.req.ImagePath
	if image == "" {
		image = r.cfg.Overlay.ImagePath
	}
	var overlay *filtergraph.ImageOverlay
	if image != "" {
		overlay = &filtergraph.ImageOverlay{X: r.cfg.Overlay.X, Y: r.cfg.Overlay.Y}
	}
	graph := filtergraph.Compose(plan, res.Segments, r.style, overlay)
	res.Graph = graph.String()
	j.transition(GraphBuilt)

	// GraphBuilt -> Encoding -> Completed
	res.OutputPath = j.scratch.Path("output.mp4")
	encodeJob := ffmpeg.EncodeJob{
		VideoPath:     j.req.VideoPath,
		AudioPath:     j.req.AudioPath,
		ImagePath:     image,
		OutputPath:    res.OutputPath,
		Graph:         res.Graph,
		Complex:       graph.Complex(),
		SourceBitrate: video.Bitrate,
	}
	if err := r.encode(ctx, j, encodeJob); err != nil {
		return nil, j.fail(EncodeFailure, ffmpeg.Diagnostic(err), err)
	}
	j.transition(Completed)

	if r.profile != nil {
		if info, err := os.Stat(res.OutputPath); err == nil && info.Size() > r.profile.GetMaxFileSize() {
			j.logger.Warn("output larger than platform allows", "bytes", info.Size(), "platform", r.profile.GetName())
		}
	}

	res.History = append([]State(nil), j.history...)
	j.logger.Info("render completed", "plan", composition.Describe(plan), "segments", len(res.Segments), "duration", res.Duration)
	return res, nil
}

func (r *Renderer) encode(ctx context.Context, j *job, encodeJob ffmpeg.EncodeJob) error {
	if r.metrics != nil {
		r.metrics.EncodeWaiting.Inc()
	}
	err := r.slots.Acquire(ctx, 1)
	if r.metrics != nil {
		r.metrics.EncodeWaiting.Dec()
	}
	if err != nil {
		return errors.Wrap(err, "gave up waiting for an encoder slot")
	}
	defer r.slots.Release(1)

	j.transition(Encoding)
	if r.metrics != nil {
		r.metrics.EncodesInFlight.Inc()
		defer r.metrics.EncodesInFlight.Dec()
	}

	encodeCtx, cancel := withTimeout(ctx, r.cfg.FFmpeg.EncodeTimeout)
	defer cancel()

	start := time.Now()
	if err := r.encoder.Encode(encodeCtx, encodeJob); err != nil {
		if ctxErr := encodeCtx.Err(); ctxErr != nil {
			return errors.Wrap(err, ctxErr.Error())
		}
		return err
	}
	if r.metrics != nil {
		r.metrics.EncodeDuration.Observe(time.Since(start).Seconds())
	}
	return nil
}

// writeTextFiles moves each segment's text into a scratch file for the
// text-draw node. drawtext still expands file contents, so they are escaped
// for expansion only.
func (r *Renderer) writeTextFiles(j *job, segments []caption.TextSegment) error {
	for i := range segments {
		text := caption.EscapeExpansion(caption.Normalize(segments[i].Text, types.NewlineLineBreak))
		path, err := j.scratch.WriteFile(fmt.Sprintf("text-%d.txt", i), []byte(text))
		if err != nil {
			return err
		}
		segments[i].TextFile = path
	}
	return nil
}

func (r *Renderer) checkCoverage(j *job, res *Result) {
	if r.metrics != nil {
		r.metrics.Segments.WithLabelValues(string(res.Strategy)).Observe(float64(len(res.Segments)))
	}

	total := caption.Span(res.Segments)
	if j.strategy.NeedsDuration(r.cfg.Caption) {
		total = res.Duration
	}
	for _, layer := range []caption.Color{caption.Base, caption.Highlight} {
		if err := caption.CheckCoverage(res.Segments, layer, total); err != nil {
			j.logger.Warn("caption timeline has a coverage gap", "layer", layer, "error", err)
		}
	}
}

func (r *Renderer) cleanup(j *job) {
	for _, err := range j.scratch.Release() {
		j.logger.Warn("cleanup failed", "kind", CleanupFailure, "error", err)
		if r.metrics != nil {
			r.metrics.CleanupFailures.Inc()
		}
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
