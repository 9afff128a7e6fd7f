// Package stt adapts speech-to-text backends behind one interface.
package stt

import (
	"context"
	"fmt"
	"sync"

	"github.com/voicedev/vox/internal/config"
)

// Provider is the speech-to-text capability surface
type Provider interface {
	Name() string

	// Transcribe converts a complete audio recording to text
	Transcribe(ctx context.Context, audio []byte) (string, error)

	// TranscribeStream consumes audio chunks and produces partial-text
	// fragments until the audio channel closes.
	TranscribeStream(ctx context.Context, audio <-chan []byte) (*Stream, error)
}

// Stream is a lazy sequence of partial transcripts
type Stream struct {
	fragments chan string

	mu  sync.Mutex
	err error

	cancel     context.CancelFunc
	cancelOnce sync.Once
}

func newStream(cancel context.CancelFunc) *Stream {
	if cancel == nil {
		cancel = func() {}
	}
	return &Stream{fragments: make(chan string), cancel: cancel}
}

// Fragments returns the partial-transcript channel; closed at stream end
func (s *Stream) Fragments() <-chan string { return s.fragments }

// Err returns the terminal error, meaningful once Fragments has closed
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Cancel aborts the in-flight transcription
func (s *Stream) Cancel() { s.cancelOnce.Do(s.cancel) }

func (s *Stream) send(ctx context.Context, fragment string) bool {
	select {
	case s.fragments <- fragment:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Stream) finish(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	close(s.fragments)
}

// NewProvider builds the configured speech-to-text binding
func NewProvider(cfg config.STTConfig) (Provider, error) {
	switch cfg.Provider {
	case "deepgram":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("deepgram selected but API key is missing")
		}
		return NewDeepgramClient(cfg.APIKey, cfg.Model), nil
	case "":
		return nil, fmt.Errorf("no STT provider specified in configuration")
	default:
		return nil, fmt.Errorf("unsupported STT provider: %s", cfg.Provider)
	}
}
