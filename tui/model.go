// Package tui is a live monitor for a running orchestrator server. It
// polls the HTTP API and renders tasks and active sessions.
package tui

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// TaskView is one bulk task as shown in the monitor.
type TaskView struct {
	ID        string `json:"task_id"`
	Kind      string `json:"kind"`
	Status    string `json:"status"`
	Total     int    `json:"total"`
	Processed int    `json:"processed"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"created_at"`
}

// SessionView is one active session as shown in the monitor.
type SessionView struct {
	AccountID    int64  `json:"account_id"`
	SessionToken string `json:"session_id"`
	Kind         string `json:"kind"`
}

// Model is the TUI application model
type Model struct {
	baseURL string
	client  *http.Client

	tasks    []TaskView
	sessions []SessionView
	fetchErr string

	width       int
	height      int
	selectedRow int

	lastRefresh time.Time
}

// NewModel creates a monitor model polling the given server.
func NewModel(baseURL string) Model {
	return Model{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refreshCmd(), tickCmd())
}

// Run starts the monitor against a server base URL.
func Run(baseURL string) error {
	p := tea.NewProgram(NewModel(baseURL), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// TickMsg triggers a refresh
type TickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// RefreshMsg carries freshly fetched server state.
type RefreshMsg struct {
	Tasks    []TaskView
	Sessions []SessionView
	Err      error
}

func (m Model) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		var msg RefreshMsg
		if err := m.getJSON("/api/tasks", &msg.Tasks); err != nil {
			msg.Err = err
			return msg
		}
		if err := m.getJSON("/api/sessions/active", &msg.Sessions); err != nil {
			msg.Err = err
		}
		return msg
	}
}

func (m Model) getJSON(path string, out any) error {
	resp, err := m.client.Get(m.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
