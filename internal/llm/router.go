package llm

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Backoff constants for the single in-provider retry
const (
	retryBackoff    = 250 * time.Millisecond
	maxRetryBackoff = 1 * time.Second
)

// Router selects a provider per invocation and applies the fallback
// policy. It holds no per-request state, so one router serves any number
// of concurrent callers.
type Router struct {
	providers   map[string]Provider
	order       []string // registration order, used to pick the fallback
	defaultName string

	// sleep is swapped out in tests
	sleep func(time.Duration)
}

// NewRouter creates a router whose default provider is defaultName.
// Providers are added with Register.
func NewRouter(defaultName string) *Router {
	return &Router{
		providers:   make(map[string]Provider),
		defaultName: defaultName,
		sleep:       time.Sleep,
	}
}

// Register adds a provider. Registration order decides which provider
// serves as the fallback.
func (r *Router) Register(p Provider) {
	if _, exists := r.providers[p.Name()]; !exists {
		r.order = append(r.order, p.Name())
	}
	r.providers[p.Name()] = p
}

// Providers returns the registered provider names in registration order
func (r *Router) Providers() []string {
	return append([]string(nil), r.order...)
}

// pick resolves the provider for this invocation: the preferred one when
// registered, the configured default otherwise.
func (r *Router) pick(preferred string) (Provider, error) {
	if preferred != "" {
		if p, ok := r.providers[preferred]; ok {
			return p, nil
		}
	}
	if p, ok := r.providers[r.defaultName]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("no provider registered for %q", r.defaultName)
}

// alternate returns the first registered provider other than p, or nil
func (r *Router) alternate(p Provider) Provider {
	for _, name := range r.order {
		if name != p.Name() {
			return r.providers[name]
		}
	}
	return nil
}

// completeWithRetry runs one completion with a single bounded-backoff
// retry on transient failure.
func (r *Router) completeWithRetry(ctx context.Context, p Provider, req Request) (string, error) {
	out, err := p.Complete(ctx, req)
	if err == nil || !IsTransient(err) {
		return out, err
	}

	backoff := retryBackoff
	if backoff > maxRetryBackoff {
		backoff = maxRetryBackoff
	}
	log.Printf("provider %s transient failure, retrying in %s: %v", p.Name(), backoff, err)
	r.sleep(backoff)

	return p.Complete(ctx, req)
}

// Route runs a non-streaming completion. On transient failure the
// selected provider is retried once, then exactly one alternate provider
// is attempted. Fatal errors surface immediately with no fallback.
func (r *Router) Route(ctx context.Context, req Request, preferred string) (string, error) {
	p, err := r.pick(preferred)
	if err != nil {
		return "", err
	}

	out, err := r.completeWithRetry(ctx, p, req)
	if err == nil || !IsTransient(err) {
		return out, err
	}

	alt := r.alternate(p)
	if alt == nil {
		return "", err
	}
	log.Printf("provider %s exhausted, falling back to %s", p.Name(), alt.Name())

	return alt.Complete(ctx, req)
}

// RouteStream opens a fragment stream. Failures establishing the stream
// follow the same retry-then-fallback policy as Route; once fragments
// are flowing, any failure is terminal and is never silently retried,
// so consumers cannot receive duplicated or out-of-order output.
func (r *Router) RouteStream(ctx context.Context, req Request, preferred string) (*Stream, error) {
	p, err := r.pick(preferred)
	if err != nil {
		return nil, err
	}

	s, err := p.CompleteStream(ctx, req)
	if err == nil || !IsTransient(err) {
		return s, err
	}

	log.Printf("provider %s transient failure opening stream, retrying in %s: %v", p.Name(), retryBackoff, err)
	r.sleep(retryBackoff)

	s, err = p.CompleteStream(ctx, req)
	if err == nil || !IsTransient(err) {
		return s, err
	}

	alt := r.alternate(p)
	if alt == nil {
		return nil, err
	}
	log.Printf("provider %s exhausted, falling back to %s", p.Name(), alt.Name())

	return alt.CompleteStream(ctx, req)
}
