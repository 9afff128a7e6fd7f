// Package tts adapts text-to-speech backends behind one interface.
package tts

import (
	"context"
	"fmt"

	"github.com/voicedev/vox/internal/config"
)

// Provider is the text-to-speech capability surface
type Provider interface {
	Name() string

	// Synthesize converts text to audio bytes
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// NewProvider builds the configured text-to-speech binding
func NewProvider(cfg config.TTSConfig) (Provider, error) {
	switch cfg.Provider {
	case "elevenlabs":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("elevenlabs selected but API key is missing")
		}
		return NewElevenLabsClient(cfg.APIKey, cfg.VoiceID), nil
	case "":
		return nil, fmt.Errorf("no TTS provider specified in configuration")
	default:
		return nil, fmt.Errorf("unsupported TTS provider: %s", cfg.Provider)
	}
}
