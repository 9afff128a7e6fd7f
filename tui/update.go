package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/voicedev/vox/internal/swarm"
)

// DeleteDoneMsg reports the outcome of a session delete
type DeleteDoneMsg struct {
	Err error
}

const maxPipelineEvents = 200

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, refreshCmd(m.store)
		case "j", "down":
			if m.activeTab == 0 && m.selectedRow < len(m.sessions)-1 {
				m.selectedRow++
				if m.selectedRow >= m.scroll+m.visibleRows() {
					m.scroll = m.selectedRow - m.visibleRows() + 1
				}
			} else if m.activeTab != 0 {
				m.scroll++
			}
		case "k", "up":
			if m.activeTab == 0 && m.selectedRow > 0 {
				m.selectedRow--
				if m.selectedRow < m.scroll {
					m.scroll = m.selectedRow
				}
			} else if m.activeTab != 0 && m.scroll > 0 {
				m.scroll--
			}
		case "tab":
			m.activeTab = (m.activeTab + 1) % 3
			m.scroll = 0
		case "enter":
			if m.activeTab == 0 && m.selectedRow < len(m.sessions) {
				m.activeTab = 1
				m.scroll = 0
				return m, detailCmd(m.store, m.sessions[m.selectedRow].ID)
			}
		case "d":
			if m.activeTab == 0 && m.selectedRow < len(m.sessions) {
				id := m.sessions[m.selectedRow].ID
				return m, deleteCmd(m.store, id)
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case TickMsg:
		return m, tea.Batch(tickCmd(), refreshCmd(m.store))

	case RefreshMsg:
		if msg.Err != nil {
			m.errMsg = msg.Err.Error()
			return m, nil
		}
		m.errMsg = ""
		m.sessions = msg.Sessions
		m.lastRefresh = time.Now()
		if m.selectedRow >= len(m.sessions) && len(m.sessions) > 0 {
			m.selectedRow = len(m.sessions) - 1
		}

	case DetailMsg:
		if msg.Err != nil {
			m.errMsg = msg.Err.Error()
			return m, nil
		}
		m.errMsg = ""
		m.detail = msg.Session

	case DeleteDoneMsg:
		if msg.Err != nil {
			m.errMsg = msg.Err.Error()
			return m, nil
		}
		m.detail = nil
		return m, refreshCmd(m.store)

	case PipelineEventMsg:
		m.pipeline = append(m.pipeline, swarm.Event(msg))
		if len(m.pipeline) > maxPipelineEvents {
			m.pipeline = m.pipeline[len(m.pipeline)-maxPipelineEvents:]
		}
		return m, waitForEvent(m.events)
	}

	return m, nil
}

// visibleRows returns how many session rows fit in the current window
func (m Model) visibleRows() int {
	rows := m.height - 8
	if rows < 3 {
		rows = 3
	}
	return rows
}

func deleteCmd(store interface{ Delete(string) error }, id string) tea.Cmd {
	return func() tea.Msg {
		return DeleteDoneMsg{Err: store.Delete(id)}
	}
}
