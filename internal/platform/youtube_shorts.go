package platform

type YouTubeShorts struct{}

func init() {
	Register(&YouTubeShorts{})
}

func (p *YouTubeShorts) GetName() string {
	return "youtube-shorts"
}

func (p *YouTubeShorts) GetMaxDimensions() (width, height int) {
	return 1080, 1920
}

func (p *YouTubeShorts) GetMaxDuration() int {
	return 180
}

func (p *YouTubeShorts) GetMaxFileSize() int64 {
	return 256 * 1024 * 1024 * 1024 // 256GB
}

func (p *YouTubeShorts) GetVideoCodec() string {
	return "libx264"
}

func (p *YouTubeShorts) GetAudioCodec() string {
	return "aac"
}

func (p *YouTubeShorts) GetVideoBitrate() string {
	return "12M"
}

func (p *YouTubeShorts) GetAudioBitrate() string {
	return "192k"
}

func (p *YouTubeShorts) GetOutputFormat() string {
	return "mp4"
}

func (p *YouTubeShorts) GetPreset() string {
	return "slow"
}

func (p *YouTubeShorts) GetCRF() int {
	return 18
}
