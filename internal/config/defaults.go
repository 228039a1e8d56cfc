package config

const (
	defaultStagingDir     = "~/.local/share/tubecast/staging"
	defaultCredentialsDir = "~/.local/share/tubecast/credentials"
	defaultLogDir         = "~/.local/share/tubecast/logs"
	defaultBind           = "127.0.0.1:8087"
	defaultRedirectURL    = "http://localhost:8087/oauth/callback"
	defaultRequestTimeout = 10
	defaultCategoryID     = "10"
	defaultChunkMiB       = 8
	defaultYtDlpBinary    = "yt-dlp"
	defaultFFmpegBinary   = "ffmpeg"
	defaultFFprobeBinary  = "ffprobe"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir:     defaultStagingDir,
			CredentialsDir: defaultCredentialsDir,
			LogDir:         defaultLogDir,
			Bind:           defaultBind,
		},
		Google: Google{
			RedirectURL: defaultRedirectURL,
		},
		Messaging: Messaging{
			RequestTimeout: defaultRequestTimeout,
		},
		Upload: Upload{
			CategoryID: defaultCategoryID,
			ChunkMiB:   defaultChunkMiB,
		},
		Tools: Tools{
			YtDlp:   defaultYtDlpBinary,
			FFmpeg:  defaultFFmpegBinary,
			FFprobe: defaultFFprobeBinary,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
