package llm

import (
	"bufio"
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
	defaultAnthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion        = "2023-06-01"
	anthropicMaxTokens      = 4096 // API requires an explicit max_tokens
)

// AnthropicClient is the Anthropic messages-API provider binding
type AnthropicClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewAnthropicClient creates an Anthropic provider with the given default model
func NewAnthropicClient(apiKey, model string, timeout time.Duration) *AnthropicClient {
	return &AnthropicClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultAnthropicBaseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Name returns the provider identifier
func (c *AnthropicClient) Name() string { return "anthropic" }

type anthropicRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type anthropicStreamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *AnthropicClient) post(ctx context.Context, req Request, stream bool) (*http.Response, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicMaxTokens
	}
	body := anthropicRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		Stream:      stream,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &FatalError{Provider: c.Name(), Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, &FatalError{Provider: c.Name(), Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classifyNetErr(c.Name(), err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, classifyStatus(c.Name(), resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return resp, nil
}

// Complete sends a blocking completion request
func (c *AnthropicClient) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := c.post(ctx, req, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var parsed anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &TransientError{Provider: c.Name(), Err: fmt.Errorf("decode response: %w", err)}
	}
	var out strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", &TransientError{Provider: c.Name(), Err: fmt.Errorf("response carried no text content")}
	}
	return out.String(), nil
}

// CompleteStream sends a streaming completion request and returns the
// fragment stream.
func (c *AnthropicClient) CompleteStream(ctx context.Context, req Request) (*Stream, error) {
	sctx, cancel := context.WithCancel(ctx)

	resp, err := c.post(sctx, req, true)
	if err != nil {
		cancel()
		return nil, err
	}

	s := newStream(cancel)
	go func() {
		defer resp.Body.Close()
		defer cancel()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data: ") {
				continue
			}

			var event anthropicStreamEvent
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
				continue
			}

			switch event.Type {
			case "content_block_delta":
				if event.Delta.Text == "" {
					continue
				}
				if !s.send(sctx, event.Delta.Text) {
					s.finish(sctx.Err())
					return
				}
			case "message_stop":
				s.finish(nil)
				return
			case "error":
				err := fmt.Errorf("%s: %s", event.Error.Type, event.Error.Message)
				if event.Error.Type == "overloaded_error" {
					s.finish(&TransientError{Provider: c.Name(), Err: err})
				} else {
					s.finish(&FatalError{Provider: c.Name(), Err: err})
				}
				return
			}
		}
		if err := scanner.Err(); err != nil {
			s.finish(classifyNetErr(c.Name(), err))
			return
		}
		s.finish(&TransientError{Provider: c.Name(), Err: fmt.Errorf("stream ended without terminator")})
	}()

	return s, nil
}
