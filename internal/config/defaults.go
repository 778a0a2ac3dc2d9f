package config

const (
	defaultRunRoot  = "~/.local/share/demoforge/runs"
	defaultLogDir   = "~/.local/share/demoforge/logs"
	defaultLogLevel = "info"

	defaultWidth            = 1920
	defaultHeight           = 1080
	defaultFPS              = 30
	defaultDuckingDB        = 20
	defaultToleranceSeconds = 2.0
	defaultVideoCodec       = "libx264"
	defaultPreset           = "medium"
	defaultCRF              = 23
	defaultAudioCodec       = "aac"
	defaultAudioBitrate     = "192k"
	defaultSampleRate       = 48000
	defaultFFmpegBinary     = "ffmpeg"
	defaultFFprobeBinary    = "ffprobe"

	defaultLLMBaseURL        = "https://api.openai.com/v1/chat/completions"
	defaultLLMModel          = "gpt-4o-mini"
	defaultLLMTemperature    = 0.7
	defaultLLMMaxTokens      = 4096
	defaultLLMTimeoutSeconds = 120

	defaultTTSBaseURL        = "https://api.elevenlabs.io/v1"
	defaultTTSModelID        = "eleven_v3"
	defaultTTSOutputFormat   = "mp3_44100_128"
	defaultTTSMaxChars       = 3000
	defaultTTSTimeoutSeconds = 300

	defaultTranscribeBaseURL        = "https://api.openai.com/v1"
	defaultTranscribeModel          = "whisper-1"
	defaultTranscribeTimeoutSeconds = 300
	defaultWordsPerCue              = 8

	defaultRetryMaxAttempts    = 4
	defaultRetryInitialDelayMS = 2000
	defaultRetryMaxDelayMS     = 30000

	defaultNotifyTimeoutSeconds = 10

	defaultTracingServiceName = "demoforge"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			RunRoot: defaultRunRoot,
			LogDir:  defaultLogDir,
		},
		Composition: Composition{
			Width:            defaultWidth,
			Height:           defaultHeight,
			FPS:              defaultFPS,
			DuckingDB:        defaultDuckingDB,
			LevelMatch:       true,
			ToleranceSeconds: defaultToleranceSeconds,
			VideoCodec:       defaultVideoCodec,
			Preset:           defaultPreset,
			CRF:              defaultCRF,
			AudioCodec:       defaultAudioCodec,
			AudioBitrate:     defaultAudioBitrate,
			SampleRate:       defaultSampleRate,
			FFmpegBinary:     defaultFFmpegBinary,
			FFprobeBinary:    defaultFFprobeBinary,
		},
		Script: Script{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Temperature:    defaultLLMTemperature,
			MaxTokens:      defaultLLMMaxTokens,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Voiceover: Voiceover{
			BaseURL:        defaultTTSBaseURL,
			ModelID:        defaultTTSModelID,
			OutputFormat:   defaultTTSOutputFormat,
			MaxChars:       defaultTTSMaxChars,
			TimeoutSeconds: defaultTTSTimeoutSeconds,
		},
		Captions: Captions{
			BaseURL:        defaultTranscribeBaseURL,
			Model:          defaultTranscribeModel,
			TimeoutSeconds: defaultTranscribeTimeoutSeconds,
			WordsPerCue:    defaultWordsPerCue,
		},
		Retry: Retry{
			MaxAttempts:    defaultRetryMaxAttempts,
			InitialDelayMS: defaultRetryInitialDelayMS,
			MaxDelayMS:     defaultRetryMaxDelayMS,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNotifyTimeoutSeconds,
		},
		Tracing: Tracing{
			ServiceName: defaultTracingServiceName,
		},
		Logging: Logging{
			Format: "console",
			Level:  defaultLogLevel,
		},
	}
}
