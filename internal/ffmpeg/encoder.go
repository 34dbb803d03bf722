package ffmpeg

import (
	"context"
	"strconv"
	"time"

	"github.com/ZacxDev/video-captioner/internal/filtergraph"
	"github.com/ZacxDev/video-captioner/internal/platform"
	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// EncodeJob is one encoder invocation. Inputs are passed in filtergraph
// input order: video, audio, then the optional image.
type EncodeJob struct {
	VideoPath  string
	AudioPath  string
	ImagePath  string
	OutputPath string

	Graph   string
	Complex bool

	// SourceBitrate caps the output bitrate when known.
	SourceBitrate int64
}

// Encoder runs ffmpeg with a platform profile.
type Encoder struct {
	path    string
	profile platform.Platform
	runner  CommandRunner
	logger  hclog.Logger
	threads int
}

// NewEncoder creates an encoder for the ffmpeg binary at path
func NewEncoder(path string, profile platform.Platform, runner CommandRunner, logger hclog.Logger) *Encoder {
	return &Encoder{
		path:    path,
		profile: profile,
		runner:  runner,
		logger:  logger.Named("encode"),
		threads: GetOptimalThreadCount(),
	}
}

// Profile returns the platform the encoder targets.
func (e *Encoder) Profile() platform.Platform {
	return e.profile
}

// Stream builds the ffmpeg-go output stream for job. The command it compiles
// to is bound to ctx.
//
// ffmpeg-go emits only the inputs reachable from an output and maps every
// stream handed to it, while here the mapping comes from the graph. The
// leading inputs are therefore passed as -i options of the last one, which
// keeps them in filtergraph order and leaves the output without implicit
// maps.
func (e *Encoder) Stream(ctx context.Context, job EncodeJob) *ffmpeg.Stream {
	inputs := []string{job.VideoPath, job.AudioPath}
	if job.ImagePath != "" {
		inputs = append(inputs, job.ImagePath)
	}
	last := len(inputs) - 1
	in := ffmpeg.Input(inputs[last], ffmpeg.KwArgs{"i": inputs[:last]})

	kwargs := e.outputKwargs(job)
	kwargs["hide_banner"] = ""
	kwargs["shortest"] = ""

	audio := strconv.Itoa(filtergraph.AudioInput) + ":a"
	if job.Complex {
		// The unlabelled output of the graph is mapped automatically.
		kwargs["filter_complex"] = job.Graph
		kwargs["map"] = []string{audio}
	} else {
		kwargs["vf"] = job.Graph
		kwargs["map"] = []string{strconv.Itoa(filtergraph.VideoInput) + ":v", audio}
	}

	return ffmpeg.OutputContext(ctx, []*ffmpeg.Stream{in}, job.OutputPath, kwargs).
		OverWriteOutput().
		SetFfmpegPath(e.path)
}

// Args returns the ffmpeg command line for job.
func (e *Encoder) Args(job EncodeJob) []string {
	return e.Stream(context.Background(), job).GetArgs()
}

func (e *Encoder) outputKwargs(job EncodeJob) ffmpeg.KwArgs {
	target := extractBitrateValue(e.profile.GetVideoBitrate())
	// Never ask for more than the source carries.
	if job.SourceBitrate > 0 {
		if ceiling := int64(float64(job.SourceBitrate) * 1.05); target > ceiling {
			target = ceiling
		}
	}

	kwargs := ffmpeg.KwArgs{
		"c:v":     e.profile.GetVideoCodec(),
		"c:a":     e.profile.GetAudioCodec(),
		"b:a":     e.profile.GetAudioBitrate(),
		"preset":  e.profile.GetPreset(),
		"crf":     strconv.Itoa(e.profile.GetCRF()),
		"maxrate": formatBitrate(target),
		"bufsize": formatBitrate(2 * target),
		"threads": strconv.Itoa(e.threads),
	}

	settings := GetCodecSettings(e.profile.GetOutputFormat())
	for k, v := range settings.EncoderPresets[e.profile.GetVideoCodec()] {
		kwargs[k] = v
	}
	return kwargs
}

// Encode runs ffmpeg and waits for it to finish. A failure carries the
// encoder's stderr, available through Diagnostic.
func (e *Encoder) Encode(ctx context.Context, job EncodeJob) error {
	stream := e.Stream(ctx, job)
	e.logger.Debug("running encoder", "output", job.OutputPath, "complex", job.Complex, "graph", job.Graph)

	start := time.Now()
	if _, err := e.runner.Run(stream.Context, stream.FfmpegPath, stream.GetArgs()...); err != nil {
		return errors.Wrap(err, "failed to encode video")
	}

	e.logger.Debug("encoder finished", "output", job.OutputPath, "elapsed", time.Since(start))
	return nil
}
