package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	OpenAI     OpenAIConfig     `yaml:"openai" toml:"openai"`
	Twitch     TwitchConfig     `yaml:"twitch" toml:"twitch"`
	Kick       KickConfig       `yaml:"kick" toml:"kick"`
	Dispatch   DispatchConfig   `yaml:"dispatch" toml:"dispatch"`
	Narrator   NarratorConfig   `yaml:"narrator" toml:"narrator"`
	UI         UIConfig         `yaml:"ui" toml:"ui"`
	Health     HealthConfig     `yaml:"health" toml:"health"`
	Transcript TranscriptConfig `yaml:"transcript" toml:"transcript"`
	S3         S3Config         `yaml:"s3" toml:"s3"`
	Uploader   UploaderConfig   `yaml:"uploader" toml:"uploader"`
}

// OpenAIConfig holds the text-generation service configuration
type OpenAIConfig struct {
	APIKey         string `yaml:"api_key" toml:"api_key"`
	BaseURL        string `yaml:"base_url" toml:"base_url"` // For OpenAI-compatible endpoints
	Model          string `yaml:"model" toml:"model"`
	Prompt         string `yaml:"prompt" toml:"prompt"` // System prompt
	TimeoutSeconds int    `yaml:"timeout_seconds" toml:"timeout_seconds"`
}

// TwitchConfig holds Twitch IRC configuration
type TwitchConfig struct {
	Host      string `yaml:"host" toml:"host"`
	Port      int    `yaml:"port" toml:"port"`
	TLS       bool   `yaml:"tls" toml:"tls"`
	Nickname  string `yaml:"nickname" toml:"nickname"`
	OAuth     string `yaml:"oauth" toml:"oauth"`
	Channel   string `yaml:"channel" toml:"channel"`
	Client    string `yaml:"client" toml:"client"`       // "socket" (default) or "library"
	Reconnect bool   `yaml:"reconnect" toml:"reconnect"` // Redial after the server drops us
}

// KickConfig holds the optional Kick chat source
type KickConfig struct {
	Enabled  bool                `yaml:"enabled" toml:"enabled"`
	Channels []KickChannelConfig `yaml:"channels" toml:"channels"`
}

// KickChannelConfig is a Kick channel with an optional pre-resolved chatroom ID
type KickChannelConfig struct {
	Slug       string `yaml:"slug" toml:"slug"`
	ChatroomID int    `yaml:"chatroom_id" toml:"chatroom_id"`
}

// DispatchConfig holds the answer loop cadence
type DispatchConfig struct {
	IntervalSeconds int    `yaml:"interval_seconds" toml:"interval_seconds"`
	Mode            string `yaml:"mode" toml:"mode"` // "fixed" (default) or "drain"
}

// NarratorConfig holds text-to-speech configuration
type NarratorConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Command string `yaml:"command" toml:"command"`
}

// UIConfig holds presentation configuration
type UIConfig struct {
	Mode    string `yaml:"mode" toml:"mode"`         // "tui" (default) or "headless"
	LogFile string `yaml:"log_file" toml:"log_file"` // Log destination while the TUI owns the terminal
}

// HealthConfig holds the health endpoint configuration
type HealthConfig struct {
	Addr string `yaml:"addr" toml:"addr"`
}

// TranscriptConfig holds the answer archive configuration
type TranscriptConfig struct {
	OutputDir       string `yaml:"output_dir" toml:"output_dir"` // Empty disables transcripts
	RotateMinutes   int    `yaml:"rotate_minutes" toml:"rotate_minutes"`
	RotateMegabytes int    `yaml:"rotate_megabytes" toml:"rotate_megabytes"`
}

// S3Config holds S3 upload configuration
type S3Config struct {
	Bucket          string `yaml:"bucket" toml:"bucket"` // Empty disables uploads
	Region          string `yaml:"region" toml:"region"`
	RoleARN         string `yaml:"role_arn" toml:"role_arn"`                   // IAM role ARN for OIDC authentication
	AccessKeyID     string `yaml:"access_key_id" toml:"access_key_id"`         // Legacy: static credentials
	SecretAccessKey string `yaml:"secret_access_key" toml:"secret_access_key"` // Legacy: static credentials
	Endpoint        string `yaml:"endpoint" toml:"endpoint"`                   // For S3-compatible services
}

// UploaderConfig holds uploader configuration
type UploaderConfig struct {
	DeleteAfterUpload bool `yaml:"delete_after_upload" toml:"delete_after_upload"`
	MaxRetries        int  `yaml:"max_retries" toml:"max_retries"`
}

// Load loads configuration from a YAML file, or TOML when the path ends
// in .toml
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.OpenAI.APIKey = key
	}
	if oauth := os.Getenv("TWITCH_OAUTH"); oauth != "" {
		c.Twitch.OAuth = oauth
	}
	if roleARN := os.Getenv("AWS_ROLE_ARN"); roleARN != "" {
		c.S3.RoleARN = roleARN
	}
	if keyID := os.Getenv("S3_ACCESS_KEY_ID"); keyID != "" {
		c.S3.AccessKeyID = keyID
	}
	if secretKey := os.Getenv("S3_SECRET_ACCESS_KEY"); secretKey != "" {
		c.S3.SecretAccessKey = secretKey
	}
}

func (c *Config) applyDefaults() {
	if c.OpenAI.TimeoutSeconds == 0 {
		c.OpenAI.TimeoutSeconds = 60
	}
	if c.Twitch.Channel != "" && !strings.HasPrefix(c.Twitch.Channel, "#") {
		c.Twitch.Channel = "#" + c.Twitch.Channel
	}
	if c.Dispatch.IntervalSeconds == 0 {
		c.Dispatch.IntervalSeconds = 10
	}
	if c.UI.Mode == "" {
		c.UI.Mode = "tui"
	}
	if c.UI.LogFile == "" {
		c.UI.LogFile = "chatqa.log"
	}
	if c.Health.Addr == "" {
		c.Health.Addr = ":8080"
	}
	if c.Transcript.RotateMinutes == 0 {
		c.Transcript.RotateMinutes = 60
	}
	if c.Transcript.RotateMegabytes == 0 {
		c.Transcript.RotateMegabytes = 100
	}
	if c.Uploader.MaxRetries == 0 {
		c.Uploader.MaxRetries = 3
	}
}

// Validate checks required fields and option values
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required (or set OPENAI_API_KEY env var)")
	}
	if c.OpenAI.Model == "" {
		return fmt.Errorf("openai.model is required")
	}
	if c.OpenAI.Prompt == "" {
		return fmt.Errorf("openai.prompt is required")
	}
	if c.Twitch.Host == "" {
		return fmt.Errorf("twitch.host is required")
	}
	if c.Twitch.Port <= 0 || c.Twitch.Port > 65535 {
		return fmt.Errorf("twitch.port is required and must be between 1 and 65535")
	}
	if c.Twitch.Nickname == "" {
		return fmt.Errorf("twitch.nickname is required")
	}
	if c.Twitch.OAuth == "" {
		return fmt.Errorf("twitch.oauth is required (or set TWITCH_OAUTH env var)")
	}
	if c.Twitch.Channel == "" {
		return fmt.Errorf("twitch.channel is required")
	}
	switch c.UI.Mode {
	case "tui", "headless":
	default:
		return fmt.Errorf("ui.mode must be \"tui\" or \"headless\", got %q", c.UI.Mode)
	}
	if c.Kick.Enabled && len(c.Kick.Channels) == 0 {
		return fmt.Errorf("kick.channels is required when kick is enabled")
	}

	if c.S3.Bucket != "" {
		if c.Transcript.OutputDir == "" {
			return fmt.Errorf("transcript.output_dir is required when s3.bucket is set")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("s3.region is required")
		}
		// If using static credentials, both key and secret are required
		if c.S3.AccessKeyID != "" && c.S3.SecretAccessKey == "" {
			return fmt.Errorf("s3.secret_access_key is required when using access_key_id")
		}
	}

	return nil
}
