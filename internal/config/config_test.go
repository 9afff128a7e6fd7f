package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.LLM.DefaultProvider != "openai" {
		t.Errorf("DefaultProvider = %q, want openai", cfg.LLM.DefaultProvider)
	}
	if cfg.LLM.MaxTokens != 4096 {
		t.Errorf("MaxTokens = %d, want 4096", cfg.LLM.MaxTokens)
	}
	if cfg.Sessions.MaxSessions != 100 {
		t.Errorf("MaxSessions = %d, want 100", cfg.Sessions.MaxSessions)
	}
	if cfg.Web.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Web.Port)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.DefaultProvider != "openai" {
		t.Errorf("missing file should yield defaults, got provider %q", cfg.LLM.DefaultProvider)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	content := `
[llm]
default_provider = "anthropic"
max_tokens = 2000

[llm.anthropic]
api_key = "sk-test"
model = "claude-test"

[sessions]
max_sessions = 5
ttl_hours = 24

[web]
port = 9999
`
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.LLM.DefaultProvider != "anthropic" {
		t.Errorf("DefaultProvider = %q, want anthropic", cfg.LLM.DefaultProvider)
	}
	if cfg.LLM.MaxTokens != 2000 {
		t.Errorf("MaxTokens = %d, want 2000", cfg.LLM.MaxTokens)
	}
	if cfg.LLM.Anthropic.APIKey != "sk-test" {
		t.Errorf("Anthropic.APIKey = %q, want sk-test", cfg.LLM.Anthropic.APIKey)
	}
	if cfg.Sessions.TTLHours != 24 {
		t.Errorf("TTLHours = %d, want 24", cfg.Sessions.TTLHours)
	}
	if cfg.Web.Port != 9999 {
		t.Errorf("Port = %d, want 9999", cfg.Web.Port)
	}
	// Untouched sections keep their defaults
	if cfg.LLM.Temperature != 0.7 {
		t.Errorf("Temperature = %v, want default 0.7", cfg.LLM.Temperature)
	}
}

func TestLoadMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[[[not toml"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed TOML")
	}
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()

	got := ExpandPath("~/data/vox.db")
	want := filepath.Join(home, "data", "vox.db")
	if got != want {
		t.Errorf("ExpandPath = %q, want %q", got, want)
	}

	if got := ExpandPath("/absolute/path"); got != "/absolute/path" {
		t.Errorf("absolute path should pass through, got %q", got)
	}
}
