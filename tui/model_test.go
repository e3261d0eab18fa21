package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func refreshedModel() Model {
	m := NewModel("http://localhost:8420")
	m.width = 100
	m.height = 40
	m.tasks = []TaskView{
		{ID: "task-aaaa1111", Kind: "order-run", Status: "processing", Total: 10, Processed: 4, Succeeded: 3, Failed: 1},
		{ID: "task-bbbb2222", Kind: "checkpoint-run", Status: "completed", Total: 5, Processed: 5, Succeeded: 5},
	}
	m.sessions = []SessionView{
		{AccountID: 3, SessionToken: "user_3_abcd1234", Kind: "order-run"},
	}
	return m
}

func TestModelQuit(t *testing.T) {
	m := NewModel("http://localhost:8420")

	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}); cmd == nil {
		t.Error("q should produce a quit command")
	}
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC}); cmd == nil {
		t.Error("ctrl+c should produce a quit command")
	}
}

func TestModelSelection(t *testing.T) {
	m := refreshedModel()

	newModel, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	m = newModel.(Model)
	if m.selectedRow != 1 {
		t.Errorf("after j: selectedRow = %d, want 1", m.selectedRow)
	}

	// At the last row, j does not move past the end.
	newModel, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	m = newModel.(Model)
	if m.selectedRow != 1 {
		t.Errorf("j at last row: selectedRow = %d, want 1", m.selectedRow)
	}

	newModel, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("k")})
	m = newModel.(Model)
	if m.selectedRow != 0 {
		t.Errorf("after k: selectedRow = %d, want 0", m.selectedRow)
	}

	newModel, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("k")})
	m = newModel.(Model)
	if m.selectedRow != 0 {
		t.Errorf("k at first row: selectedRow = %d, want 0", m.selectedRow)
	}
}

func TestModelRefresh(t *testing.T) {
	m := NewModel("http://localhost:8420")

	newModel, _ := m.Update(RefreshMsg{
		Tasks:    []TaskView{{ID: "task-1", Status: "processing"}},
		Sessions: []SessionView{{AccountID: 1, SessionToken: "user_1_aaaa0000"}},
	})
	m = newModel.(Model)

	if len(m.tasks) != 1 || len(m.sessions) != 1 {
		t.Errorf("refresh applied %d tasks / %d sessions, want 1/1", len(m.tasks), len(m.sessions))
	}
	if m.fetchErr != "" {
		t.Errorf("fetchErr = %q, want empty", m.fetchErr)
	}
	if m.lastRefresh.IsZero() {
		t.Error("lastRefresh not recorded")
	}
}

func TestModelRefreshError(t *testing.T) {
	m := refreshedModel()

	newModel, _ := m.Update(RefreshMsg{Err: errors.New("connection refused")})
	m = newModel.(Model)

	if m.fetchErr != "connection refused" {
		t.Errorf("fetchErr = %q, want connection refused", m.fetchErr)
	}
	// Stale data stays on screen while the server is unreachable.
	if len(m.tasks) != 2 {
		t.Errorf("tasks dropped on fetch error: %d, want 2", len(m.tasks))
	}
}

func TestModelRefreshClampsSelection(t *testing.T) {
	m := refreshedModel()
	m.selectedRow = 1

	newModel, _ := m.Update(RefreshMsg{Tasks: []TaskView{{ID: "task-1"}}})
	m = newModel.(Model)
	if m.selectedRow != 0 {
		t.Errorf("selectedRow = %d, want 0 after task list shrank", m.selectedRow)
	}
}

func TestModelWindowSize(t *testing.T) {
	m := NewModel("http://localhost:8420")

	newModel, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 50})
	m = newModel.(Model)
	if m.width != 120 || m.height != 50 {
		t.Errorf("size = %dx%d, want 120x50", m.width, m.height)
	}
}

func TestViewRendersState(t *testing.T) {
	m := refreshedModel()
	out := m.View()

	for _, want := range []string{"task-aaa", "order-run", "user_3_a", "q quit"} {
		if !strings.Contains(out, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestShortID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"task-aaaa1111-bbbb", "task-aaa"},
		{"short", "short"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := shortID(tt.in); got != tt.want {
			t.Errorf("shortID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAgeFallsBackToRawValue(t *testing.T) {
	if got := age("not a timestamp"); got != "not a timestamp" {
		t.Errorf("age() = %q, want the raw value back", got)
	}
}
