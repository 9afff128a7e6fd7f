package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/voicedev/vox/internal/domain"
	"github.com/voicedev/vox/internal/llm"
	"github.com/voicedev/vox/internal/prompt"
	"github.com/voicedev/vox/internal/scaffold"
	"github.com/voicedev/vox/internal/session"
	"github.com/voicedev/vox/internal/swarm"
)

const maxAudioBytes = 25 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, format string, args ...interface{}) {
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf(format, args...)})
}

// errorStatus maps domain errors onto HTTP status codes
func errorStatus(err error) int {
	var validation *prompt.ValidationError
	var fatal *llm.FatalError
	var transient *llm.TransientError
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &fatal), errors.As(err, &transient):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) statusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summaries, err := s.deps.Store.List()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "list sessions: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"providers": s.deps.Router.Providers(),
			"sessions":  len(summaries),
			"stt":       s.deps.STT != nil,
			"tts":       s.deps.TTS != nil,
			"git":       s.deps.Git != nil,
		})
	}
}

// translateRequest is the shared request shape for translation and
// generation endpoints
type translateRequest struct {
	NaturalText      string            `json:"natural_text"`
	TaskType         string            `json:"task_type,omitempty"`
	IncludeReasoning *bool             `json:"include_reasoning,omitempty"`
	Context          map[string]string `json:"context,omitempty"`
	SessionID        string            `json:"session_id,omitempty"`
}

// resolve validates the request and loads session history when a
// session id was supplied
func (s *Server) resolve(req translateRequest) (domain.PromptSpec, []domain.Entry, error) {
	spec, err := prompt.Build(prompt.Input{
		NaturalText:      req.NaturalText,
		TaskType:         req.TaskType,
		IncludeReasoning: req.IncludeReasoning,
		Context:          prompt.ContextFromMap(req.Context),
	})
	if err != nil {
		return domain.PromptSpec{}, nil, err
	}

	var history []domain.Entry
	if req.SessionID != "" {
		sess, err := s.deps.Store.Get(req.SessionID)
		if err != nil {
			return domain.PromptSpec{}, nil, fmt.Errorf("session %s: %w", req.SessionID, err)
		}
		history = sess.History
		// Session context applies beneath the per-request context
		spec.Context = append(append(domain.Context(nil), sess.Context...), spec.Context...)
	}
	return spec, history, nil
}

// record appends the exchange to the session when one is in play.
// Recording failures are logged, not surfaced; the result already exists.
func (s *Server) record(sessionID, userText, assistantText string) {
	if sessionID == "" {
		return
	}
	if err := s.deps.Store.Append(sessionID, "user", userText); err != nil {
		log.Printf("record user turn in %s: %v", sessionID, err)
		return
	}
	if err := s.deps.Store.Append(sessionID, "assistant", assistantText); err != nil {
		log.Printf("record assistant turn in %s: %v", sessionID, err)
	}
}

func (s *Server) translateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req translateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "decode request: %v", err)
			return
		}

		spec, history, err := s.resolve(req)
		if err != nil {
			writeError(w, errorStatus(err), "%v", err)
			return
		}

		rendered, err := s.deps.Renderer.Render(spec, history)
		if err != nil {
			writeError(w, errorStatus(err), "render prompt: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"task_type": rendered.TaskType,
			"sections":  rendered.Sections,
			"prompt":    rendered.Text(),
		})
	}
}

type generateRequest struct {
	translateRequest
	Provider string `json:"provider,omitempty"`
	UseSwarm bool   `json:"use_swarm,omitempty"`
	Stream   bool   `json:"stream,omitempty"`
}

func (s *Server) generateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "decode request: %v", err)
			return
		}
		s.generate(w, r, req)
	}
}

// generate runs the translation plus completion flow shared by the text
// and voice entry points
func (s *Server) generate(w http.ResponseWriter, r *http.Request, req generateRequest) {
	spec, history, err := s.resolve(req.translateRequest)
	if err != nil {
		writeError(w, errorStatus(err), "%v", err)
		return
	}

	if req.UseSwarm {
		orch := swarm.New(s.deps.Router, s.deps.Renderer, swarm.Options{
			Provider:   req.Provider,
			NewRequest: func(p string) llm.Request { return llm.DefaultRequest(s.deps.LLM, p) },
			OnEvent: func(ev swarm.Event) {
				s.Broadcast("pipeline", ev)
			},
		})

		run, runErr := orch.Run(r.Context(), spec, history)
		if run == nil {
			writeError(w, errorStatus(runErr), "%v", runErr)
			return
		}
		if err := s.deps.Store.SaveRun(req.SessionID, run); err != nil {
			log.Printf("record pipeline run %s: %v", run.ID, err)
		}
		if run.Status == domain.PipelineCompleted {
			s.record(req.SessionID, spec.NaturalText, run.FinalOutput())
		}

		resp := map[string]interface{}{
			"run_id":  run.ID,
			"status":  run.Status,
			"results": run.Results,
			"output":  run.FinalOutput(),
		}
		if runErr != nil {
			resp["error"] = runErr.Error()
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	rendered, err := s.deps.Renderer.Render(spec, history)
	if err != nil {
		writeError(w, errorStatus(err), "render prompt: %v", err)
		return
	}
	llmReq := llm.DefaultRequest(s.deps.LLM, rendered.Text())

	if req.Stream {
		s.streamCompletion(w, r, llmReq, req)
		return
	}

	out, err := s.deps.Router.Route(r.Context(), llmReq, req.Provider)
	if err != nil {
		writeError(w, errorStatus(err), "%v", err)
		return
	}
	s.record(req.SessionID, spec.NaturalText, out)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"output":    out,
		"task_type": spec.TaskType,
	})
}

// streamCompletion relays model fragments as server-sent events on the
// response. A failure mid-stream ends the stream; it is never restarted.
func (s *Server) streamCompletion(w http.ResponseWriter, r *http.Request, llmReq llm.Request, req generateRequest) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	stream, err := s.deps.Router.RouteStream(r.Context(), llmReq, req.Provider)
	if err != nil {
		writeError(w, errorStatus(err), "%v", err)
		return
	}
	defer stream.Cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")

	var full strings.Builder
	for fragment := range stream.Fragments() {
		full.WriteString(fragment)
		data, _ := json.Marshal(map[string]string{"text": fragment})
		fmt.Fprintf(w, "event: fragment\ndata: %s\n\n", data)
		flusher.Flush()
	}

	if err := stream.Err(); err != nil {
		data, _ := json.Marshal(map[string]string{"error": err.Error()})
		fmt.Fprintf(w, "event: error\ndata: %s\n\n", data)
		flusher.Flush()
		return
	}

	fmt.Fprintf(w, "event: done\ndata: {}\n\n")
	flusher.Flush()
	s.record(req.SessionID, req.NaturalText, full.String())
}

// readAudio pulls the audio payload off the request body, answering the
// error response itself when the payload is unusable
func readAudio(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	audio, err := io.ReadAll(io.LimitReader(r.Body, maxAudioBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read audio: %v", err)
		return nil, false
	}
	if len(audio) == 0 {
		writeError(w, http.StatusBadRequest, "request body carried no audio")
		return nil, false
	}
	return audio, true
}

func (s *Server) transcribeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.deps.STT == nil {
			writeError(w, http.StatusServiceUnavailable, "no speech-to-text provider configured")
			return
		}

		audio, ok := readAudio(w, r)
		if !ok {
			return
		}

		text, err := s.deps.STT.Transcribe(r.Context(), audio)
		if err != nil {
			writeError(w, http.StatusBadGateway, "transcribe: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"text": text})
	}
}

func (s *Server) voiceToCodeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.deps.STT == nil {
			writeError(w, http.StatusServiceUnavailable, "no speech-to-text provider configured")
			return
		}

		audio, ok := readAudio(w, r)
		if !ok {
			return
		}

		text, err := s.deps.STT.Transcribe(r.Context(), audio)
		if err != nil {
			writeError(w, http.StatusBadGateway, "transcribe: %v", err)
			return
		}

		q := r.URL.Query()
		req := generateRequest{
			translateRequest: translateRequest{
				NaturalText: text,
				TaskType:    q.Get("task_type"),
				SessionID:   q.Get("session_id"),
			},
			Provider: q.Get("provider"),
			UseSwarm: q.Get("use_swarm") == "true",
		}
		s.generate(w, r, req)
	}
}

func (s *Server) synthesizeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.deps.TTS == nil {
			writeError(w, http.StatusServiceUnavailable, "no text-to-speech provider configured")
			return
		}

		var req struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "decode request: %v", err)
			return
		}

		audio, err := s.deps.TTS.Synthesize(r.Context(), req.Text)
		if err != nil {
			writeError(w, http.StatusBadGateway, "synthesize: %v", err)
			return
		}

		w.Header().Set("Content-Type", "audio/mpeg")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(audio)
	}
}

// scaffoldInstruction asks the model for a machine-readable domain
// definition the generator can expand into files
const scaffoldInstruction = `Design a domain model for the following description. Respond with a single fenced json block of the form:
` + "```json" + `
{"domain_name": "...", "entities": [{"name": "...", "fields": [{"name": "...", "type": "...", "required": true}], "methods": []}], "value_objects": [], "repositories": [], "services": []}
` + "```" + `

Description: `

func (s *Server) scaffoldHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Description string `json:"description"`
			Language    string `json:"language,omitempty"`
			Provider    string `json:"provider,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "decode request: %v", err)
			return
		}
		if strings.TrimSpace(req.Description) == "" {
			writeError(w, http.StatusBadRequest, "description must not be empty")
			return
		}
		if req.Language == "" {
			req.Language = "python"
		}

		llmReq := llm.DefaultRequest(s.deps.LLM, scaffoldInstruction+req.Description)
		out, err := s.deps.Router.Route(r.Context(), llmReq, req.Provider)
		if err != nil {
			writeError(w, errorStatus(err), "%v", err)
			return
		}

		sc, err := scaffold.ParseLLMOutput(out)
		if err != nil {
			writeError(w, http.StatusBadGateway, "%v", err)
			return
		}

		files, err := scaffold.NewGenerator(req.Language).Generate(sc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "%v", err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"domain_name": sc.DomainName,
			"language":    req.Language,
			"files":       files,
		})
	}
}

func (s *Server) templatesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metas, err := s.deps.Renderer.Templates()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "list templates: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"templates": metas})
	}
}

func (s *Server) listSessionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summaries, err := s.deps.Store.List()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "list sessions: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": summaries})
	}
}

func (s *Server) createSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Context map[string]string `json:"context,omitempty"`
		}
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "decode request: %v", err)
				return
			}
		}

		sess, err := s.deps.Store.Create(prompt.ContextFromMap(req.Context))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "create session: %v", err)
			return
		}
		writeJSON(w, http.StatusCreated, sess)
	}
}

func (s *Server) getSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.deps.Store.Get(r.PathValue("id"))
		if err != nil {
			writeError(w, sessionStatus(err), "%v", err)
			return
		}
		writeJSON(w, http.StatusOK, sess)
	}
}

func (s *Server) sessionRunsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runs, err := s.deps.Store.Runs(r.PathValue("id"))
		if err != nil {
			writeError(w, sessionStatus(err), "%v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
	}
}

func (s *Server) deleteSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.deps.Store.Delete(r.PathValue("id")); err != nil {
			writeError(w, sessionStatus(err), "%v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func sessionStatus(err error) int {
	if errors.Is(err, session.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (s *Server) requireGit(w http.ResponseWriter) bool {
	if s.deps.Git == nil {
		writeError(w, http.StatusServiceUnavailable, "git operations not configured")
		return false
	}
	return true
}

func (s *Server) gitStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.requireGit(w) {
			return
		}
		st, err := s.deps.Git.Status(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "%v", err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

func (s *Server) gitDiffHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.requireGit(w) {
			return
		}
		diff, err := s.deps.Git.Diff(r.Context(), r.URL.Query().Get("staged") == "true")
		if err != nil {
			writeError(w, http.StatusInternalServerError, "%v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"diff": diff})
	}
}

func (s *Server) gitLogHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.requireGit(w) {
			return
		}
		count, _ := strconv.Atoi(r.URL.Query().Get("count"))
		entries, err := s.deps.Git.Log(r.Context(), count)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "%v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"commits": entries})
	}
}

func (s *Server) gitBranchesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.requireGit(w) {
			return
		}
		branches, err := s.deps.Git.Branches(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "%v", err)
			return
		}
		current, err := s.deps.Git.CurrentBranch(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "%v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"current":  current,
			"branches": branches,
		})
	}
}

func (s *Server) gitCreateBranchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.requireGit(w) {
			return
		}
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "decode request: %v", err)
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			writeError(w, http.StatusBadRequest, "branch name must not be empty")
			return
		}
		if err := s.deps.Git.CreateBranch(r.Context(), req.Name); err != nil {
			writeError(w, http.StatusBadRequest, "%v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"branch": req.Name})
	}
}

func (s *Server) gitCommitHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.requireGit(w) {
			return
		}
		var req struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "decode request: %v", err)
			return
		}
		hash, err := s.deps.Git.Commit(r.Context(), req.Message)
		if err != nil {
			writeError(w, http.StatusBadRequest, "%v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"commit": hash})
	}
}
