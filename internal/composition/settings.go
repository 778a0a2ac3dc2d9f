package composition

import "time"

// Canvas is the output frame geometry.
type Canvas struct {
	Width  int
	Height int
	FPS    int
}

// Settings controls planning and encoding.
type Settings struct {
	Canvas Canvas
	// DuckingDB is the minimum attenuation, in dB, of background music
	// relative to narration.
	DuckingDB float64
	// LevelMatch measures narration and background loudness and lowers the
	// background further when its source is louder than the narration.
	LevelMatch bool
	// Tolerance bounds recording and caption drift before a warning is raised.
	Tolerance time.Duration

	VideoCodec   string
	Preset       string
	CRF          int
	AudioCodec   string
	AudioBitrate string
	SampleRate   int
}

// DefaultSettings returns 1080p30 H.264/AAC output with 20 dB ducking.
func DefaultSettings() Settings {
	return Settings{
		Canvas:       Canvas{Width: 1920, Height: 1080, FPS: 30},
		DuckingDB:    20,
		LevelMatch:   true,
		Tolerance:    2 * time.Second,
		VideoCodec:   "libx264",
		Preset:       "medium",
		CRF:          23,
		AudioCodec:   "aac",
		AudioBitrate: "192k",
		SampleRate:   48000,
	}
}

func (s Settings) withDefaults() Settings {
	def := DefaultSettings()
	if s.Canvas.Width <= 0 || s.Canvas.Height <= 0 {
		s.Canvas.Width, s.Canvas.Height = def.Canvas.Width, def.Canvas.Height
	}
	if s.Canvas.FPS <= 0 {
		s.Canvas.FPS = def.Canvas.FPS
	}
	switch {
	case s.DuckingDB < 0:
		s.DuckingDB = -s.DuckingDB
	case s.DuckingDB == 0:
		s.DuckingDB = def.DuckingDB
	}
	if s.Tolerance <= 0 {
		s.Tolerance = def.Tolerance
	}
	if s.VideoCodec == "" {
		s.VideoCodec = def.VideoCodec
	}
	if s.Preset == "" {
		s.Preset = def.Preset
	}
	if s.CRF <= 0 {
		s.CRF = def.CRF
	}
	if s.AudioCodec == "" {
		s.AudioCodec = def.AudioCodec
	}
	if s.AudioBitrate == "" {
		s.AudioBitrate = def.AudioBitrate
	}
	if s.SampleRate <= 0 {
		s.SampleRate = def.SampleRate
	}
	return s
}

// frame is the duration of one output frame.
func (c Canvas) frame() time.Duration {
	if c.FPS <= 0 {
		return 0
	}
	return time.Second / time.Duration(c.FPS)
}
