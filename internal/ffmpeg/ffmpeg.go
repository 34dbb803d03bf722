package ffmpeg

import (
	"fmt"
	"math"
	"runtime"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

type CodecSettings struct {
	ContainerFormat string
	FileExtension   string
	EncoderPresets  map[string]ffmpeg.KwArgs
}

var codecPresets = map[string]CodecSettings{
	"mp4": {
		ContainerFormat: "mp4",
		FileExtension:   ".mp4",
		EncoderPresets: map[string]ffmpeg.KwArgs{
			"libx264": {
				"profile:v": "high",
				"level":     "4.1",
				"movflags":  "+faststart",
				"pix_fmt":   "yuv420p",
			},
		},
	},
}

// GetCodecSettings returns the container settings for outputFormat,
// falling back to mp4.
func GetCodecSettings(outputFormat string) CodecSettings {
	if settings, ok := codecPresets[outputFormat]; ok {
		return settings
	}
	return codecPresets["mp4"]
}

func GetOptimalThreadCount() int {
	cpuCount := runtime.NumCPU()
	// Use 75% of available cores to prevent overload
	return int(math.Max(1, float64(cpuCount)*0.75))
}

// extractBitrateValue converts "6M" or "800k" to bits per second.
func extractBitrateValue(bitrate string) int64 {
	value := strings.TrimRight(bitrate, "Mk")
	number, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 2_000_000 // Default to 2M if parsing fails
	}

	switch {
	case strings.HasSuffix(bitrate, "M"):
		return number * 1_000_000
	case strings.HasSuffix(bitrate, "k"):
		return number * 1_000
	}
	return number
}

func formatBitrate(bps int64) string {
	if bps >= 1_000_000 && bps%1_000_000 == 0 {
		return fmt.Sprintf("%dM", bps/1_000_000)
	}
	return fmt.Sprintf("%dk", bps/1_000)
}

// EnsureExtension replaces any video extension on filename with extension.
func EnsureExtension(filename, extension string) string {
	extensions := []string{".mp4", ".webm", ".mkv", ".avi", ".mov"}
	for _, ext := range extensions {
		filename = strings.TrimSuffix(filename, ext)
	}
	return filename + extension
}
