package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	elevenLabsBaseURL = "https://api.elevenlabs.io/v1"
	defaultVoiceID    = "21m00Tcm4TlvDq8ikWAM"
)

// ElevenLabsClient binds the ElevenLabs synthesis API
type ElevenLabsClient struct {
	apiKey  string
	voiceID string
	client  *http.Client
}

// NewElevenLabsClient creates an ElevenLabs binding for the given voice
func NewElevenLabsClient(apiKey, voiceID string) *ElevenLabsClient {
	if voiceID == "" {
		voiceID = defaultVoiceID
	}
	return &ElevenLabsClient{
		apiKey:  apiKey,
		voiceID: voiceID,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// Name returns the provider identifier
func (c *ElevenLabsClient) Name() string { return "elevenlabs" }

type synthesisRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// Synthesize converts text to audio bytes
func (c *ElevenLabsClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text must not be empty")
	}

	payload, err := json.Marshal(synthesisRequest{Text: text, ModelID: "eleven_monolingual_v1"})
	if err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/text-to-speech/%s", elevenLabsBaseURL, c.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("elevenlabs status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	return io.ReadAll(resp.Body)
}
