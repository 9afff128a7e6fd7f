package llm

import (
	"context"
	"sync"
)

// Stream is a lazy, finite, single-consumer sequence of text fragments.
// The consumer ranges over Fragments() until it closes, then checks Err
// to distinguish normal completion from an aborted stream.
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
	return &Stream{
		fragments: make(chan string),
		cancel:    cancel,
	}
}

// Fragments returns the fragment channel. It is closed when the stream
// ends, whether normally or with an error.
func (s *Stream) Fragments() <-chan string {
	return s.fragments
}

// Err returns the terminal stream error, if any. Only meaningful after
// Fragments() has closed.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Cancel aborts the in-flight request. The fragment channel still closes,
// so a draining consumer never blocks.
func (s *Stream) Cancel() {
	s.cancelOnce.Do(s.cancel)
}

// send delivers one fragment, aborting if the producer context ends first
func (s *Stream) send(ctx context.Context, fragment string) bool {
	select {
	case s.fragments <- fragment:
		return true
	case <-ctx.Done():
		return false
	}
}

// finish records the terminal error and closes the fragment channel.
// Must be called exactly once by the producer.
func (s *Stream) finish(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	close(s.fragments)
}

// Drain collects all fragments into one string, returning the terminal
// error if the stream aborted.
func (s *Stream) Drain() (string, error) {
	var out []byte
	for f := range s.Fragments() {
		out = append(out, f...)
	}
	return string(out), s.Err()
}
