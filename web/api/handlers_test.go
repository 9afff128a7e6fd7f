package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/voicedev/vox/internal/config"
	"github.com/voicedev/vox/internal/llm"
	"github.com/voicedev/vox/internal/prompt"
	"github.com/voicedev/vox/internal/session"
	"github.com/voicedev/vox/internal/stt"
)

// scriptedProvider answers every completion with a fixed result
type scriptedProvider struct {
	name string
	out  string
	err  error
}

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) Complete(ctx context.Context, req llm.Request) (string, error) {
	return p.out, p.err
}

func (p *scriptedProvider) CompleteStream(ctx context.Context, req llm.Request) (*llm.Stream, error) {
	return nil, &llm.FatalError{Provider: p.name, Err: errors.New("streaming not scripted")}
}

// fakeSTT transcribes every recording to a fixed text
type fakeSTT struct {
	text string
}

func (f *fakeSTT) Name() string { return "fake-stt" }

func (f *fakeSTT) Transcribe(ctx context.Context, audio []byte) (string, error) {
	return f.text, nil
}

func (f *fakeSTT) TranscribeStream(ctx context.Context, audio <-chan []byte) (*stt.Stream, error) {
	return nil, errors.New("streaming not scripted")
}

func newTestServer(t *testing.T, provider *scriptedProvider, mutate ...func(*Deps)) (*Server, *httptest.Server, session.Store) {
	t.Helper()

	store := session.NewMemoryStore(0)
	router := llm.NewRouter(provider.name)
	router.Register(provider)

	cfg := config.Default()
	deps := Deps{
		Store:    store,
		Router:   router,
		Renderer: prompt.NewRenderer(prompt.NewLoader(), 10),
		LLM:      &cfg.LLM,
	}
	for _, m := range mutate {
		m(&deps)
	}

	srv := NewServer("127.0.0.1", 0, deps)
	go srv.sseHub.Run()
	t.Cleanup(srv.sseHub.Stop)

	ts := httptest.NewServer(srv.httpd.Handler)
	t.Cleanup(ts.Close)
	return srv, ts, store
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatal(err)
	}
}

func TestStatusEndpoint(t *testing.T) {
	_, ts, _ := newTestServer(t, &scriptedProvider{name: "fake", out: "ok"})

	resp, err := http.Get(ts.URL + "/api/status")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Status    string   `json:"status"`
		Providers []string `json:"providers"`
		STT       bool     `json:"stt"`
	}
	decodeJSON(t, resp, &body)
	if body.Status != "ok" {
		t.Errorf("status = %q, want ok", body.Status)
	}
	if len(body.Providers) != 1 || body.Providers[0] != "fake" {
		t.Errorf("providers = %v, want [fake]", body.Providers)
	}
	if body.STT {
		t.Error("stt should report false when unconfigured")
	}
}

func TestTranslateEndpoint(t *testing.T) {
	_, ts, _ := newTestServer(t, &scriptedProvider{name: "fake"})

	resp := postJSON(t, ts.URL+"/api/translate-prompt", map[string]interface{}{
		"natural_text": "create a REST API in python",
		"task_type":    "code_generation",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		TaskType string `json:"task_type"`
		Prompt   string `json:"prompt"`
	}
	decodeJSON(t, resp, &body)
	if body.TaskType != "code_generation" {
		t.Errorf("task_type = %q", body.TaskType)
	}
	for _, want := range []string{"<task>", "<instruction>", "create a REST API in python"} {
		if !strings.Contains(body.Prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, body.Prompt)
		}
	}
}

func TestTranslateEndpointValidation(t *testing.T) {
	_, ts, _ := newTestServer(t, &scriptedProvider{name: "fake"})

	resp := postJSON(t, ts.URL+"/api/translate-prompt", map[string]interface{}{
		"natural_text": "   ",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestTranslateEndpointUnknownSession(t *testing.T) {
	_, ts, _ := newTestServer(t, &scriptedProvider{name: "fake"})

	resp := postJSON(t, ts.URL+"/api/translate-prompt", map[string]interface{}{
		"natural_text": "hello",
		"session_id":   "missing",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestGenerateEndpoint(t *testing.T) {
	_, ts, store := newTestServer(t, &scriptedProvider{name: "fake", out: "generated code"})

	sess, err := store.Create(nil)
	if err != nil {
		t.Fatal(err)
	}

	resp := postJSON(t, ts.URL+"/api/generate", map[string]interface{}{
		"natural_text": "write a function",
		"session_id":   sess.ID,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Output string `json:"output"`
	}
	decodeJSON(t, resp, &body)
	if body.Output != "generated code" {
		t.Errorf("output = %q", body.Output)
	}

	// The exchange must be recorded in the session
	got, err := store.Get(sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.History) != 2 {
		t.Fatalf("history = %d entries, want 2", len(got.History))
	}
	if got.History[0].Role != "user" || got.History[1].Role != "assistant" {
		t.Errorf("history roles = %v", []string{got.History[0].Role, got.History[1].Role})
	}
}

func TestGenerateEndpointProviderFailure(t *testing.T) {
	provider := &scriptedProvider{name: "fake", err: &llm.FatalError{Provider: "fake", Err: errors.New("no auth")}}
	_, ts, _ := newTestServer(t, provider)

	resp := postJSON(t, ts.URL+"/api/generate", map[string]interface{}{
		"natural_text": "write a function",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
}

func TestGenerateEndpointSwarm(t *testing.T) {
	_, ts, store := newTestServer(t, &scriptedProvider{name: "fake", out: "role output"})

	sess, err := store.Create(nil)
	if err != nil {
		t.Fatal(err)
	}

	resp := postJSON(t, ts.URL+"/api/generate", map[string]interface{}{
		"natural_text": "build a service",
		"session_id":   sess.ID,
		"use_swarm":    true,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		RunID   string            `json:"run_id"`
		Status  string            `json:"status"`
		Output  string            `json:"output"`
		Results []json.RawMessage `json:"results"`
	}
	decodeJSON(t, resp, &body)
	if body.Status != "completed" {
		t.Errorf("status = %q, want completed", body.Status)
	}
	if len(body.Results) != 4 {
		t.Errorf("results = %d, want 4 roles", len(body.Results))
	}
	if body.Output != "role output" {
		t.Errorf("output = %q", body.Output)
	}

	// The run outcome must be recorded against the session
	resp, err = http.Get(ts.URL + "/api/sessions/" + sess.ID + "/runs")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("runs status = %d, want 200", resp.StatusCode)
	}
	var recorded struct {
		Runs []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"runs"`
	}
	decodeJSON(t, resp, &recorded)
	if len(recorded.Runs) != 1 {
		t.Fatalf("recorded runs = %d, want 1", len(recorded.Runs))
	}
	if recorded.Runs[0].ID != body.RunID || recorded.Runs[0].Status != "completed" {
		t.Errorf("recorded run = %+v, want %s completed", recorded.Runs[0], body.RunID)
	}
}

func TestSessionRunsUnknownSession(t *testing.T) {
	_, ts, _ := newTestServer(t, &scriptedProvider{name: "fake"})

	resp, err := http.Get(ts.URL + "/api/sessions/missing/runs")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestTemplatesEndpoint(t *testing.T) {
	_, ts, _ := newTestServer(t, &scriptedProvider{name: "fake"})

	resp, err := http.Get(ts.URL + "/api/templates")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Templates []struct {
			ID string `json:"id"`
		} `json:"templates"`
	}
	decodeJSON(t, resp, &body)
	found := false
	for _, tm := range body.Templates {
		if tm.ID == "code_generation" {
			found = true
		}
	}
	if !found {
		t.Errorf("code_generation template missing from %+v", body.Templates)
	}
}

func TestTranscribeEndpoint(t *testing.T) {
	_, ts, _ := newTestServer(t, &scriptedProvider{name: "fake"}, func(d *Deps) {
		d.STT = &fakeSTT{text: "create a login form"}
	})

	resp, err := http.Post(ts.URL+"/api/transcribe", "application/octet-stream", bytes.NewReader([]byte("audio-bytes")))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Text string `json:"text"`
	}
	decodeJSON(t, resp, &body)
	if body.Text != "create a login form" {
		t.Errorf("text = %q", body.Text)
	}

	// No audio in the body is a client error
	resp, err = http.Post(ts.URL+"/api/transcribe", "application/octet-stream", bytes.NewReader(nil))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty body status = %d, want 400", resp.StatusCode)
	}
}

func TestSessionLifecycle(t *testing.T) {
	_, ts, _ := newTestServer(t, &scriptedProvider{name: "fake"})

	// Create
	resp := postJSON(t, ts.URL+"/api/sessions", map[string]interface{}{
		"context": map[string]string{"project": "vox"},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	var created struct {
		ID string `json:"session_id"`
	}
	decodeJSON(t, resp, &created)
	if created.ID == "" {
		t.Fatal("session id missing")
	}

	// Get
	resp, err := http.Get(ts.URL + "/api/sessions/" + created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	// List
	resp, err = http.Get(ts.URL + "/api/sessions")
	if err != nil {
		t.Fatal(err)
	}
	var listing struct {
		Sessions []json.RawMessage `json:"sessions"`
	}
	decodeJSON(t, resp, &listing)
	if len(listing.Sessions) != 1 {
		t.Errorf("sessions = %d, want 1", len(listing.Sessions))
	}

	// Delete
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/sessions/"+created.ID, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	// Gone
	resp, err = http.Get(ts.URL + "/api/sessions/" + created.ID)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", resp.StatusCode)
	}
}

func TestScaffoldEndpoint(t *testing.T) {
	out := "```json\n" + `{"domain_name": "orders", "entities": [{"name": "Order"}]}` + "\n```"
	_, ts, _ := newTestServer(t, &scriptedProvider{name: "fake", out: out})

	resp := postJSON(t, ts.URL+"/api/scaffold", map[string]interface{}{
		"description": "an order management domain",
		"language":    "python",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		DomainName string            `json:"domain_name"`
		Files      map[string]string `json:"files"`
	}
	decodeJSON(t, resp, &body)
	if body.DomainName != "orders" {
		t.Errorf("domain_name = %q, want orders", body.DomainName)
	}
	if _, ok := body.Files["orders/entities/order.py"]; !ok {
		t.Errorf("entity file missing from %v", keys(body.Files))
	}
}

func TestVoiceEndpointsUnconfigured(t *testing.T) {
	_, ts, _ := newTestServer(t, &scriptedProvider{name: "fake"})

	for _, path := range []string{"/api/voice-to-code", "/api/transcribe"} {
		resp, err := http.Post(ts.URL+path, "application/octet-stream", bytes.NewReader([]byte("audio")))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("%s status = %d, want 503", path, resp.StatusCode)
		}
	}

	resp := postJSON(t, ts.URL+"/api/synthesize", map[string]string{"text": "hello"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("synthesize status = %d, want 503", resp.StatusCode)
	}
}

func TestGitEndpointsUnconfigured(t *testing.T) {
	_, ts, _ := newTestServer(t, &scriptedProvider{name: "fake"})

	for _, path := range []string{"/api/git/status", "/api/git/branches"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("%s = %d, want 503", path, resp.StatusCode)
		}
	}
}

func TestSSEBroadcast(t *testing.T) {
	srv, ts, _ := newTestServer(t, &scriptedProvider{name: "fake"})

	resp, err := http.Get(ts.URL + "/api/events")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q, want text/event-stream", ct)
	}

	srv.Broadcast("test", map[string]string{"hello": "world"})

	buf := make([]byte, 512)
	n, err := resp.Body.Read(buf)
	if err != nil {
		t.Fatal(err)
	}
	event := string(buf[:n])
	if !strings.Contains(event, "event: test") {
		t.Errorf("missing event type:\n%s", event)
	}
	if !strings.Contains(event, `"hello":"world"`) {
		t.Errorf("missing payload:\n%s", event)
	}
}

func keys(m map[string]string) []string {
	var out []string
	for k := range m {
		out = append(out, fmt.Sprintf("%s", k))
	}
	return out
}
