package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/yourusername/video-dl-api/internal/domain"
)

// legacyEnv maps config keys to the unprefixed environment names older deployments use
var legacyEnv = map[string]string{
	"auth.tokens":                 "AUTH_TOKENS",
	"extractor.format":            "YTDLP_FORMAT",
	"extractor.cookie_file":       "YTDLP_COOKIES_FILE",
	"extractor.twitter_api_order": "YTDLP_TWITTER_API_ORDER",
	"extractor.user_agent":        "YTDLP_USER_AGENT",
	"server.host":                 "HOST",
	"server.port":                 "PORT",
	"logging.level":               "LOG_LEVEL",
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	config := domain.DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.video-dl-api")
		v.AddConfigPath("/etc/video-dl-api")
	}

	setDefaults(v, config)

	v.SetEnvPrefix("VDL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		// The prefixed name is listed first so it wins over the legacy one
		if err := v.BindEnv(key, "VDL_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("failed to bind env %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.Auth.Tokens = splitList(config.Auth.Tokens)
	config.Extractor.TwitterAPIOrder = splitList(config.Extractor.TwitterAPIOrder)
	if len(config.Extractor.TwitterAPIOrder) == 0 {
		config.Extractor.TwitterAPIOrder = append([]string(nil), domain.DefaultTwitterAPIOrder...)
	}

	config = expandPaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults registers every key so AutomaticEnv can override keys absent from the file
func setDefaults(v *viper.Viper, config *domain.Config) {
	v.SetDefault("server.host", config.Server.Host)
	v.SetDefault("server.port", config.Server.Port)
	v.SetDefault("server.shutdown_timeout", config.Server.ShutdownTimeout)
	v.SetDefault("auth.tokens", config.Auth.Tokens)
	v.SetDefault("extractor.binary", config.Extractor.Binary)
	v.SetDefault("extractor.format", config.Extractor.Format)
	v.SetDefault("extractor.cookie_file", config.Extractor.CookieFile)
	v.SetDefault("extractor.user_agent", config.Extractor.UserAgent)
	v.SetDefault("extractor.twitter_api_order", config.Extractor.TwitterAPIOrder)
	v.SetDefault("extractor.ffmpeg_location", config.Extractor.FFmpegLocation)
	v.SetDefault("extractor.timeout", config.Extractor.Timeout)
	v.SetDefault("transcoder.ffmpeg_binary", config.Transcoder.FFmpegBinary)
	v.SetDefault("transcoder.ffprobe_binary", config.Transcoder.FFprobeBinary)
	v.SetDefault("transcoder.timeout", config.Transcoder.Timeout)
	v.SetDefault("transcoder.probe_timeout", config.Transcoder.ProbeTimeout)
	v.SetDefault("transcoder.preset", config.Transcoder.Preset)
	v.SetDefault("transcoder.crf", config.Transcoder.CRF)
	v.SetDefault("transcoder.audio_bitrate", config.Transcoder.AudioBitrate)
	v.SetDefault("storage.temp_dir", config.Storage.TempDir)
	v.SetDefault("logging.level", config.Logging.Level)
	v.SetDefault("logging.format", config.Logging.Format)
	v.SetDefault("logging.output_path", config.Logging.OutputPath)
}

// splitList flattens comma-separated entries, trimming blanks and duplicates
func splitList(values []string) []string {
	var result []string
	seen := make(map[string]bool)
	for _, value := range values {
		for _, item := range strings.Split(value, ",") {
			item = strings.TrimSpace(item)
			if item == "" || seen[item] {
				continue
			}
			seen[item] = true
			result = append(result, item)
		}
	}
	return result
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.Extractor.CookieFile = expandPath(config.Extractor.CookieFile)
	config.Storage.TempDir = expandPath(config.Storage.TempDir)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	path = os.ExpandEnv(path)

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	return path
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	if len(config.Auth.Tokens) == 0 {
		return fmt.Errorf("no auth tokens configured (set auth.tokens or AUTH_TOKENS)")
	}

	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	config.Logging.Level = strings.ToLower(config.Logging.Level)
	if !validLogLevels[config.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	if config.Extractor.Binary == "" {
		return fmt.Errorf("extractor binary not configured")
	}
	if config.Transcoder.FFmpegBinary == "" || config.Transcoder.FFprobeBinary == "" {
		return fmt.Errorf("transcoder binaries not configured")
	}

	if config.Extractor.Timeout <= 0 {
		return fmt.Errorf("extractor timeout must be positive")
	}
	if config.Transcoder.Timeout <= 0 || config.Transcoder.ProbeTimeout <= 0 {
		return fmt.Errorf("transcoder timeouts must be positive")
	}
	if config.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}

	return nil
}
