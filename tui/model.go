// Package tui renders the interactive session and pipeline dashboard.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/voicedev/vox/internal/domain"
	"github.com/voicedev/vox/internal/session"
	"github.com/voicedev/vox/internal/swarm"
)

// Model is the TUI application model
type Model struct {
	store  session.Store
	events <-chan swarm.Event

	// Data
	sessions []domain.Summary
	detail   *domain.Session
	pipeline []swarm.Event

	// Stats
	providers []string

	// UI state
	width       int
	height      int
	activeTab   int
	selectedRow int
	scroll      int
	errMsg      string

	lastRefresh time.Time
}

// ModelConfig holds initial wiring for the TUI model
type ModelConfig struct {
	Store     session.Store
	Events    <-chan swarm.Event
	Providers []string
}

// NewModel creates a new TUI model
func NewModel(cfg ModelConfig) Model {
	return Model{
		store:     cfg.Store,
		events:    cfg.Events,
		providers: cfg.Providers,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		refreshCmd(m.store),
		tickCmd(),
		waitForEvent(m.events),
	)
}

// TickMsg triggers a periodic refresh
type TickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// RefreshMsg carries a fresh session listing
type RefreshMsg struct {
	Sessions []domain.Summary
	Err      error
}

func refreshCmd(store session.Store) tea.Cmd {
	return func() tea.Msg {
		summaries, err := store.List()
		return RefreshMsg{Sessions: summaries, Err: err}
	}
}

// DetailMsg carries one loaded session
type DetailMsg struct {
	Session *domain.Session
	Err     error
}

func detailCmd(store session.Store, id string) tea.Cmd {
	return func() tea.Msg {
		sess, err := store.Get(id)
		return DetailMsg{Session: sess, Err: err}
	}
}

// PipelineEventMsg is one pipeline state change from a running swarm
type PipelineEventMsg swarm.Event

func waitForEvent(events <-chan swarm.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return PipelineEventMsg(ev)
	}
}
