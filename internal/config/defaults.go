package config

const (
	defaultConfigPath  = "~/.config/crucible/config.toml"
	projectConfigName  = "crucible.toml"
	defaultDataDir     = "~/.crucible"
	defaultBind        = "127.0.0.1"
	DefaultPort        = 8787
	defaultPollSeconds = 2
	DefaultLogLevel    = "info"
	defaultLogFormat   = "json"
	defaultFrameIOURL  = "https://api.frame.io/v2"
	defaultSource      = "baselight"

	DBFilename   = "crucible.db"
	LockFilename = "crucible.lock"
)

// Environment variable names
const (
	EnvDataDir     = "CRUCIBLE_DATA_DIR"
	EnvLogLevel    = "CRUCIBLE_LOG_LEVEL"
	EnvLogFormat   = "CRUCIBLE_LOG_FORMAT"
	EnvPort        = "CRUCIBLE_PORT"
	EnvFrameIOKey  = "FRAMEIO_TOKEN"
	EnvFrameIOProj = "FRAMEIO_PROJECT_ID"
	EnvS3AccessKey = "CRUCIBLE_S3_ACCESS_KEY"
	EnvS3SecretKey = "CRUCIBLE_S3_SECRET_KEY"
)

// Default returns a Config populated with built-in defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
		},
		Server: Server{
			Bind:                defaultBind,
			Port:                DefaultPort,
			PollIntervalSeconds: defaultPollSeconds,
		},
		Logging: Logging{
			Level:  DefaultLogLevel,
			Format: defaultLogFormat,
		},
		Media: Media{
			FFmpegPath:              "ffmpeg",
			FFprobePath:             "ffprobe",
			ThumbnailWidth:          96,
			ThumbnailHeight:         74,
			ProbeTimeoutSeconds:     30,
			ThumbnailTimeoutSeconds: 30,
			RenderTimeoutSeconds:    600,
		},
		Review: Review{
			AnnotationSource: defaultSource,
		},
		FrameIO: FrameIO{
			BaseURL:        defaultFrameIOURL,
			TimeoutSeconds: 300,
		},
		ObjectStore: ObjectStore{
			UseSSL: true,
		},
	}
}
