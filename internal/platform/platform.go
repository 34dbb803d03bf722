package platform

import (
	"fmt"
	"sort"
)

// Platform describes the output profile of a short-form video destination
type Platform interface {
	// GetName returns the platform name
	GetName() string

	// GetMaxDimensions returns the canonical frame of the platform
	GetMaxDimensions() (width, height int)

	// GetMaxDuration returns the maximum allowed video duration in seconds
	GetMaxDuration() int

	// GetMaxFileSize returns the maximum allowed file size in bytes
	GetMaxFileSize() int64

	// GetVideoCodec returns the preferred video codec
	GetVideoCodec() string

	// GetAudioCodec returns the preferred audio codec
	GetAudioCodec() string

	// GetVideoBitrate returns the ceiling for the video bitrate
	GetVideoBitrate() string

	// GetAudioBitrate returns the recommended audio bitrate
	GetAudioBitrate() string

	// GetOutputFormat returns the container format (e.g., "mp4")
	GetOutputFormat() string

	// GetPreset returns the encoder speed/quality preset
	GetPreset() string

	// GetCRF returns the constant rate factor
	GetCRF() int
}

var platforms = make(map[string]Platform)

// Register adds a platform to the registry
func Register(p Platform) {
	platforms[p.GetName()] = p
}

// Get returns a platform by name
func Get(name string) (Platform, error) {
	p, ok := platforms[name]
	if !ok {
		return nil, fmt.Errorf("unsupported platform: %s", name)
	}
	return p, nil
}

// GetSupportedPlatforms returns a sorted list of supported platform names
func GetSupportedPlatforms() []string {
	names := make([]string, 0, len(platforms))
	for name := range platforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FitsFrame reports whether a width x height frame fits inside the
// platform's canonical frame.
func FitsFrame(p Platform, width, height int) bool {
	maxW, maxH := p.GetMaxDimensions()
	return width <= maxW && height <= maxH
}
