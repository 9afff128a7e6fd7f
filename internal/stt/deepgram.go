package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	deepgramRESTURL = "https://api.deepgram.com/v1/listen"
	deepgramLiveURL = "wss://api.deepgram.com/v1/listen"
)

// DeepgramClient binds the Deepgram transcription API
type DeepgramClient struct {
	apiKey string
	model  string
	client *http.Client
	dialer *websocket.Dialer
}

// NewDeepgramClient creates a Deepgram binding with the given model
func NewDeepgramClient(apiKey, model string) *DeepgramClient {
	if model == "" {
		model = "nova-2"
	}
	return &DeepgramClient{
		apiKey: apiKey,
		model:  model,
		client: &http.Client{Timeout: 60 * time.Second},
		dialer: websocket.DefaultDialer,
	}
}

// Name returns the provider identifier
func (c *DeepgramClient) Name() string { return "deepgram" }

type deepgramResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe sends a complete recording for transcription
func (c *DeepgramClient) Transcribe(ctx context.Context, audio []byte) (string, error) {
	u := deepgramRESTURL + "?model=" + url.QueryEscape(c.model) + "&smart_format=true"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(audio))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("deepgram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("deepgram status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed deepgramResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode deepgram response: %w", err)
	}
	if len(parsed.Results.Channels) == 0 || len(parsed.Results.Channels[0].Alternatives) == 0 {
		return "", fmt.Errorf("deepgram response carried no transcript")
	}
	return parsed.Results.Channels[0].Alternatives[0].Transcript, nil
}

type deepgramLiveMessage struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// TranscribeStream opens a live websocket session, forwarding audio
// chunks up and partial transcripts down. The stream ends when the audio
// channel closes and Deepgram flushes its final results.
func (c *DeepgramClient) TranscribeStream(ctx context.Context, audio <-chan []byte) (*Stream, error) {
	sctx, cancel := context.WithCancel(ctx)

	u := deepgramLiveURL + "?model=" + url.QueryEscape(c.model) + "&interim_results=false"
	header := http.Header{"Authorization": {"Token " + c.apiKey}}

	conn, resp, err := c.dialer.DialContext(sctx, u, header)
	if err != nil {
		cancel()
		if resp != nil {
			return nil, fmt.Errorf("deepgram live dial: status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("deepgram live dial: %w", err)
	}

	s := newStream(cancel)

	// Writer: forward audio until the input closes, then ask for a flush
	go func() {
		defer func() {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`))
		}()
		for {
			select {
			case chunk, ok := <-audio:
				if !ok {
					return
				}
				if err := conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
					return
				}
			case <-sctx.Done():
				return
			}
		}
	}()

	// Reader: surface final transcripts as fragments
	go func() {
		defer conn.Close()
		defer cancel()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure) || sctx.Err() != nil {
					s.finish(sctx.Err())
				} else {
					s.finish(fmt.Errorf("deepgram live read: %w", err))
				}
				return
			}

			var msg deepgramLiveMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			if msg.Type == "Metadata" {
				// Metadata after CloseStream marks the end of results
				s.finish(nil)
				return
			}
			if len(msg.Channel.Alternatives) == 0 {
				continue
			}
			if t := msg.Channel.Alternatives[0].Transcript; t != "" {
				if !s.send(sctx, t) {
					s.finish(sctx.Err())
					return
				}
			}
		}
	}()

	return s, nil
}
