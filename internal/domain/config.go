package domain

import (
	"os"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Extractor  ExtractorConfig  `mapstructure:"extractor"`
	Transcoder TranscoderConfig `mapstructure:"transcoder"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// AuthConfig holds the static bearer token allow-list
type AuthConfig struct {
	Tokens []string `mapstructure:"tokens"`
}

// ExtractorConfig contains yt-dlp related configuration
type ExtractorConfig struct {
	Binary          string        `mapstructure:"binary"`
	Format          string        `mapstructure:"format"`
	CookieFile      string        `mapstructure:"cookie_file"`
	UserAgent       string        `mapstructure:"user_agent"`
	TwitterAPIOrder []string      `mapstructure:"twitter_api_order"`
	FFmpegLocation  string        `mapstructure:"ffmpeg_location"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// TranscoderConfig contains ffmpeg/ffprobe related configuration
type TranscoderConfig struct {
	FFmpegBinary  string        `mapstructure:"ffmpeg_binary"`
	FFprobeBinary string        `mapstructure:"ffprobe_binary"`
	Timeout       time.Duration `mapstructure:"timeout"`
	ProbeTimeout  time.Duration `mapstructure:"probe_timeout"`
	Preset        string        `mapstructure:"preset"`
	CRF           int           `mapstructure:"crf"`
	AudioBitrate  string        `mapstructure:"audio_bitrate"`
}

// StorageConfig controls where per-request workspaces are created
type StorageConfig struct {
	TempDir string `mapstructure:"temp_dir"`
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// DefaultFormat prefers H.264 + AAC, falling back to whatever is best.
const DefaultFormat = "bestvideo[vcodec^=avc1]+bestaudio[acodec^=mp4a]/bestvideo[vcodec^=avc1]+bestaudio/bestvideo+bestaudio/best"

// DefaultTwitterAPIOrder is the order in which X/Twitter backends are tried
var DefaultTwitterAPIOrder = []string{"graphql", "legacy", "syndication"}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			ShutdownTimeout: 30 * time.Second,
		},
		Extractor: ExtractorConfig{
			Binary:          "yt-dlp",
			Format:          DefaultFormat,
			CookieFile:      "/app/cookies.txt",
			TwitterAPIOrder: append([]string(nil), DefaultTwitterAPIOrder...),
			Timeout:         10 * time.Minute,
		},
		Transcoder: TranscoderConfig{
			FFmpegBinary:  "ffmpeg",
			FFprobeBinary: "ffprobe",
			Timeout:       10 * time.Minute,
			ProbeTimeout:  30 * time.Second,
			Preset:        "fast",
			CRF:           23,
			AudioBitrate:  "128k",
		},
		Storage: StorageConfig{
			TempDir: os.TempDir(),
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
		},
	}
}
