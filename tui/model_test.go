package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/voicedev/vox/internal/domain"
	"github.com/voicedev/vox/internal/session"
	"github.com/voicedev/vox/internal/swarm"
)

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel(t *testing.T) (Model, session.Store) {
	t.Helper()
	store := session.NewMemoryStore(0)
	t.Cleanup(func() { store.Close() })
	m := NewModel(ModelConfig{Store: store, Providers: []string{"openai"}})
	m.width = 120
	m.height = 40
	return m, store
}

func TestRefreshMsgPopulatesSessions(t *testing.T) {
	m, store := newTestModel(t)
	store.Create(nil)
	store.Create(nil)

	msg := refreshCmd(store)()
	refresh, ok := msg.(RefreshMsg)
	if !ok {
		t.Fatalf("msg = %T, want RefreshMsg", msg)
	}
	if refresh.Err != nil {
		t.Fatal(refresh.Err)
	}

	updated, _ := m.Update(refresh)
	m = updated.(Model)
	if len(m.sessions) != 2 {
		t.Errorf("sessions = %d, want 2", len(m.sessions))
	}
}

func TestRefreshClampsSelection(t *testing.T) {
	m, _ := newTestModel(t)
	m.sessions = []domain.Summary{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	m.selectedRow = 2

	updated, _ := m.Update(RefreshMsg{Sessions: []domain.Summary{{ID: "a"}}})
	m = updated.(Model)
	if m.selectedRow != 0 {
		t.Errorf("selectedRow = %d, want clamped to 0", m.selectedRow)
	}
}

func TestNavigationBounds(t *testing.T) {
	m, _ := newTestModel(t)
	m.sessions = []domain.Summary{{ID: "a"}, {ID: "b"}}

	// Down twice, then stuck at the last row
	for i := 0; i < 4; i++ {
		updated, _ := m.Update(key("j"))
		m = updated.(Model)
	}
	if m.selectedRow != 1 {
		t.Errorf("selectedRow = %d, want 1", m.selectedRow)
	}

	// Up past the top stays at zero
	for i := 0; i < 4; i++ {
		updated, _ := m.Update(key("k"))
		m = updated.(Model)
	}
	if m.selectedRow != 0 {
		t.Errorf("selectedRow = %d, want 0", m.selectedRow)
	}
}

func TestTabCycles(t *testing.T) {
	m, _ := newTestModel(t)

	for i, want := range []int{1, 2, 0} {
		updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
		m = updated.(Model)
		if m.activeTab != want {
			t.Errorf("press %d: activeTab = %d, want %d", i, m.activeTab, want)
		}
	}
}

func TestQuitKeys(t *testing.T) {
	m, _ := newTestModel(t)
	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("q should produce a quit command")
	}
	if msg := cmd(); msg != (tea.QuitMsg{}) {
		t.Errorf("msg = %v, want QuitMsg", msg)
	}
}

func TestEnterLoadsDetail(t *testing.T) {
	m, store := newTestModel(t)
	sess, _ := store.Create(nil)
	store.Append(sess.ID, "user", "hello there")
	m.sessions = []domain.Summary{{ID: sess.ID}}

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	if m.activeTab != 1 {
		t.Errorf("activeTab = %d, want detail tab", m.activeTab)
	}
	if cmd == nil {
		t.Fatal("enter should produce a detail load command")
	}

	detail, ok := cmd().(DetailMsg)
	if !ok {
		t.Fatalf("msg type = %T, want DetailMsg", cmd())
	}
	if detail.Err != nil {
		t.Fatal(detail.Err)
	}

	updated, _ = m.Update(detail)
	m = updated.(Model)
	if m.detail == nil || m.detail.ID != sess.ID {
		t.Error("detail session not loaded")
	}
}

func TestDeleteRefreshes(t *testing.T) {
	m, store := newTestModel(t)
	sess, _ := store.Create(nil)
	m.sessions = []domain.Summary{{ID: sess.ID}}

	_, cmd := m.Update(key("d"))
	if cmd == nil {
		t.Fatal("d should produce a delete command")
	}
	done, ok := cmd().(DeleteDoneMsg)
	if !ok {
		t.Fatalf("msg type = %T, want DeleteDoneMsg", cmd())
	}
	if done.Err != nil {
		t.Fatal(done.Err)
	}

	if _, err := store.Get(sess.ID); err != session.ErrNotFound {
		t.Error("session should be deleted from the store")
	}

	_, cmd = m.Update(done)
	if cmd == nil {
		t.Error("delete completion should trigger a refresh")
	}
}

func TestPipelineEventBuffer(t *testing.T) {
	m, _ := newTestModel(t)

	for i := 0; i < maxPipelineEvents+50; i++ {
		updated, _ := m.Update(PipelineEventMsg(swarm.Event{RunID: "r", Status: domain.PipelineRunning}))
		m = updated.(Model)
	}
	if len(m.pipeline) != maxPipelineEvents {
		t.Errorf("pipeline events = %d, want capped at %d", len(m.pipeline), maxPipelineEvents)
	}
}

func TestViewRendersTabs(t *testing.T) {
	m, _ := newTestModel(t)
	m.sessions = []domain.Summary{{ID: "abc-123", Entries: 2, CreatedAt: time.Now()}}
	m.lastRefresh = time.Now()

	out := m.View()
	for _, want := range []string{"Sessions", "Detail", "Pipeline", "abc-123"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestViewBeforeWindowSize(t *testing.T) {
	m := NewModel(ModelConfig{Store: session.NewMemoryStore(0)})
	if m.View() != "Loading..." {
		t.Errorf("zero-width view = %q, want Loading...", m.View())
	}
}
