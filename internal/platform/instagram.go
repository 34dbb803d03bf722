package platform

type InstagramReel struct{}

func init() {
	Register(&InstagramReel{})
}

func (p *InstagramReel) GetName() string {
	return "instagram-reel"
}

func (p *InstagramReel) GetMaxDimensions() (width, height int) {
	return 1080, 1920
}

func (p *InstagramReel) GetMaxDuration() int {
	return 90
}

func (p *InstagramReel) GetMaxFileSize() int64 {
	return 250 * 1024 * 1024 // 250MB
}

func (p *InstagramReel) GetVideoCodec() string {
	return "libx264"
}

func (p *InstagramReel) GetAudioCodec() string {
	return "aac"
}

func (p *InstagramReel) GetVideoBitrate() string {
	return "5M"
}

func (p *InstagramReel) GetAudioBitrate() string {
	return "128k"
}

func (p *InstagramReel) GetOutputFormat() string {
	return "mp4"
}

func (p *InstagramReel) GetPreset() string {
	return "medium"
}

func (p *InstagramReel) GetCRF() int {
	return 21
}
