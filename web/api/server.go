// Package api serves the HTTP surface: prompt translation, pipeline
// runs, voice endpoints, sessions, and an SSE event feed.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/voicedev/vox/internal/config"
	"github.com/voicedev/vox/internal/gitops"
	"github.com/voicedev/vox/internal/llm"
	"github.com/voicedev/vox/internal/prompt"
	"github.com/voicedev/vox/internal/session"
	"github.com/voicedev/vox/internal/stt"
	"github.com/voicedev/vox/internal/tts"
)

// Deps carries everything the server needs. STT, TTS, and Git are
// optional; their endpoints answer 503 when the dependency is absent.
type Deps struct {
	Store    session.Store
	Router   *llm.Router
	Renderer *prompt.Renderer
	LLM      *config.LLMConfig
	STT      stt.Provider
	TTS      tts.Provider
	Git      *gitops.Manager
}

// Server is the HTTP API server
type Server struct {
	deps   Deps
	sseHub *SSEHub
	httpd  *http.Server
}

// NewServer creates an API server listening on host:port
func NewServer(host string, port int, deps Deps) *Server {
	s := &Server{
		deps:   deps,
		sseHub: NewSSEHub(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.statusHandler())
	mux.HandleFunc("GET /api/templates", s.templatesHandler())
	mux.HandleFunc("POST /api/translate-prompt", s.translateHandler())
	mux.HandleFunc("POST /api/generate", s.generateHandler())
	mux.HandleFunc("POST /api/transcribe", s.transcribeHandler())
	mux.HandleFunc("POST /api/voice-to-code", s.voiceToCodeHandler())
	mux.HandleFunc("POST /api/synthesize", s.synthesizeHandler())
	mux.HandleFunc("POST /api/scaffold", s.scaffoldHandler())

	mux.HandleFunc("GET /api/sessions", s.listSessionsHandler())
	mux.HandleFunc("POST /api/sessions", s.createSessionHandler())
	mux.HandleFunc("GET /api/sessions/{id}", s.getSessionHandler())
	mux.HandleFunc("GET /api/sessions/{id}/runs", s.sessionRunsHandler())
	mux.HandleFunc("DELETE /api/sessions/{id}", s.deleteSessionHandler())

	mux.HandleFunc("GET /api/git/status", s.gitStatusHandler())
	mux.HandleFunc("GET /api/git/diff", s.gitDiffHandler())
	mux.HandleFunc("GET /api/git/log", s.gitLogHandler())
	mux.HandleFunc("GET /api/git/branches", s.gitBranchesHandler())
	mux.HandleFunc("POST /api/git/branch", s.gitCreateBranchHandler())
	mux.HandleFunc("POST /api/git/commit", s.gitCommitHandler())

	mux.HandleFunc("GET /api/events", s.sseHandler())
	mux.HandleFunc("GET /ws/transcribe", s.transcribeWSHandler())

	s.httpd = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.sseHub.Run()
		return nil
	})

	g.Go(func() error {
		log.Printf("API server listening on http://%s", s.httpd.Addr)
		if err := s.httpd.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := s.httpd.Shutdown(shutdownCtx)
		s.sseHub.Stop()
		return err
	})

	return g.Wait()
}

// Broadcast publishes an event on the SSE feed
func (s *Server) Broadcast(eventType string, data interface{}) {
	s.sseHub.Broadcast(SSEEvent{Type: eventType, Data: data})
}
