package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration
type Config struct {
	General   GeneralConfig   `toml:"general"`
	LLM       LLMConfig       `toml:"llm"`
	STT       STTConfig       `toml:"stt"`
	TTS       TTSConfig       `toml:"tts"`
	Templates TemplatesConfig `toml:"templates"`
	Sessions  SessionsConfig  `toml:"sessions"`
	Web       WebConfig       `toml:"web"`
}

// GeneralConfig holds general settings
type GeneralConfig struct {
	DatabasePath string `toml:"database_path"` // empty means in-memory sessions only
}

// LLMConfig holds model provider settings
type LLMConfig struct {
	DefaultProvider string         `toml:"default_provider"`
	RequestTimeout  int            `toml:"request_timeout_seconds"`
	MaxTokens       int            `toml:"max_tokens"`
	Temperature     float64        `toml:"temperature"`
	OpenAI          ProviderConfig `toml:"openai"`
	Anthropic       ProviderConfig `toml:"anthropic"`
}

// ProviderConfig holds per-provider credentials and model choice
type ProviderConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// STTConfig holds speech-to-text settings
type STTConfig struct {
	Provider string `toml:"provider"` // "deepgram"
	APIKey   string `toml:"api_key"`
	Model    string `toml:"model"`
}

// TTSConfig holds text-to-speech settings
type TTSConfig struct {
	Provider string `toml:"provider"` // "elevenlabs"
	APIKey   string `toml:"api_key"`
	VoiceID  string `toml:"voice_id"`
}

// TemplatesConfig holds prompt template settings
type TemplatesConfig struct {
	OverrideDir string `toml:"override_dir"`
	Watch       bool   `toml:"watch"`
	MaxHistory  int    `toml:"max_history"` // entries of prior conversation per prompt
}

// SessionsConfig holds session store settings
type SessionsConfig struct {
	MaxSessions int    `toml:"max_sessions"`
	TTLHours    int    `toml:"ttl_hours"`  // 0 disables the janitor
	SweepCron   string `toml:"sweep_cron"` // cron expression for TTL sweeps
}

// WebConfig holds web API settings
type WebConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		General: GeneralConfig{
			DatabasePath: filepath.Join(home, ".vox", "sessions.db"),
		},
		LLM: LLMConfig{
			DefaultProvider: "openai",
			RequestTimeout:  120,
			MaxTokens:       4096,
			Temperature:     0.7,
			OpenAI:          ProviderConfig{Model: "gpt-4o"},
			Anthropic:       ProviderConfig{Model: "claude-sonnet-4-20250514"},
		},
		STT: STTConfig{
			Provider: "deepgram",
			Model:    "nova-2",
		},
		TTS: TTSConfig{
			Provider: "elevenlabs",
		},
		Templates: TemplatesConfig{
			MaxHistory: 10,
		},
		Sessions: SessionsConfig{
			MaxSessions: 100,
			SweepCron:   "0 * * * *",
		},
		Web: WebConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
	}
}

// Load reads configuration from a TOML file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.General.DatabasePath = ExpandPath(cfg.General.DatabasePath)
	cfg.Templates.OverrideDir = ExpandPath(cfg.Templates.OverrideDir)

	return cfg, nil
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file location
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "vox", "config.toml")
}
