package ffmpeg

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// VideoProbe is the geometry of a video input.
type VideoProbe struct {
	Width    int
	Height   int
	Codec    string
	Duration float64
	Bitrate  int64
}

// AudioProbe is the length of an audio input.
type AudioProbe struct {
	Duration float64
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	CodecType  string `json:"codec_type"`
	CodecName  string `json:"codec_name"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Duration   string `json:"duration"`
	NbFrames   string `json:"nb_frames"`
	RFrameRate string `json:"r_frame_rate"`
	BitRate    string `json:"bit_rate"`
}

type probeFormat struct {
	Duration string `json:"duration"`
	BitRate  string `json:"bit_rate"`
	Size     string `json:"size"`
}

// Prober runs ffprobe and parses its JSON report.
type Prober struct {
	path   string
	runner CommandRunner
	logger hclog.Logger
}

// NewProber creates a prober for the ffprobe binary at path
func NewProber(path string, runner CommandRunner, logger hclog.Logger) *Prober {
	return &Prober{
		path:   path,
		runner: runner,
		logger: logger.Named("probe"),
	}
}

// ProbeArgs returns the ffprobe arguments for file.
func ProbeArgs(file string) []string {
	args := ffmpeg.ConvertKwargsToCmdLineArgs(ffmpeg.KwArgs{
		"v":            "error",
		"of":           "json",
		"show_format":  "",
		"show_streams": "",
	})
	return append(args, file)
}

func (p *Prober) run(ctx context.Context, file string) ([]byte, error) {
	out, err := p.runner.Run(ctx, p.path, ProbeArgs(file)...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to probe %s", file)
	}
	return out, nil
}

// ProbeVideo returns the width and height of the first video stream in file
func (p *Prober) ProbeVideo(ctx context.Context, file string) (VideoProbe, error) {
	out, err := p.run(ctx, file)
	if err != nil {
		return VideoProbe{}, err
	}
	probe, err := ParseVideoProbe(out)
	if err != nil {
		return VideoProbe{}, errors.Wrapf(err, "failed to read probe of %s", file)
	}
	p.logger.Debug("probed video", "file", file, "width", probe.Width, "height", probe.Height, "codec", probe.Codec)
	return probe, nil
}

// ProbeAudio returns the duration of file in seconds
func (p *Prober) ProbeAudio(ctx context.Context, file string) (AudioProbe, error) {
	out, err := p.run(ctx, file)
	if err != nil {
		return AudioProbe{}, err
	}
	probe, err := ParseAudioProbe(out)
	if err != nil {
		return AudioProbe{}, errors.Wrapf(err, "failed to read probe of %s", file)
	}
	p.logger.Debug("probed audio", "file", file, "duration", probe.Duration)
	return probe, nil
}

// ParseVideoProbe extracts VideoProbe from ffprobe JSON output.
func ParseVideoProbe(data []byte) (VideoProbe, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return VideoProbe{}, errors.WithStack(err)
	}

	var video *probeStream
	for i := range out.Streams {
		if out.Streams[i].CodecType == "video" {
			video = &out.Streams[i]
			break
		}
	}
	if video == nil {
		return VideoProbe{}, errors.New("no video stream found")
	}
	if video.Width <= 0 || video.Height <= 0 {
		return VideoProbe{}, errors.Errorf("invalid video geometry %dx%d", video.Width, video.Height)
	}

	probe := VideoProbe{
		Width:  video.Width,
		Height: video.Height,
		Codec:  video.CodecName,
	}

	// Stream duration first, then container duration, then frames / rate.
	probe.Duration = parseSeconds(video.Duration)
	if probe.Duration == 0 {
		probe.Duration = parseSeconds(out.Format.Duration)
	}
	if probe.Duration == 0 {
		frames := parseSeconds(video.NbFrames)
		if rate := parseRate(video.RFrameRate); frames > 0 && rate > 0 {
			probe.Duration = frames / rate
		}
	}

	probe.Bitrate = parseBitrate(out.Format.BitRate)
	if probe.Bitrate == 0 {
		probe.Bitrate = parseBitrate(video.BitRate)
	}
	if probe.Bitrate == 0 && probe.Duration > 0 {
		if size := parseBitrate(out.Format.Size); size > 0 {
			probe.Bitrate = int64(float64(size*8) / probe.Duration)
		}
	}

	return probe, nil
}

// ParseAudioProbe extracts the duration from ffprobe JSON output. A missing
// or non-positive duration is an error.
func ParseAudioProbe(data []byte) (AudioProbe, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return AudioProbe{}, errors.WithStack(err)
	}

	duration := parseSeconds(out.Format.Duration)
	if duration == 0 {
		for _, s := range out.Streams {
			if s.CodecType == "audio" {
				duration = parseSeconds(s.Duration)
				break
			}
		}
	}
	if duration <= 0 {
		return AudioProbe{}, errors.New("could not determine audio duration")
	}
	return AudioProbe{Duration: duration}, nil
}

func parseSeconds(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func parseBitrate(s string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func parseRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		return parseSeconds(s)
	}
	n, d := parseSeconds(num), parseSeconds(den)
	if d == 0 {
		return 0
	}
	return n / d
}
