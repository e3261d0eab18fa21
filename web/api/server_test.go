package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/redmi6provk-cell/tira-order-auto/internal/automation"
	"github.com/redmi6provk-cell/tira-order-auto/internal/config"
	"github.com/redmi6provk-cell/tira-order-auto/internal/domain"
	"github.com/redmi6provk-cell/tira-order-auto/internal/orchestrator"
	"github.com/redmi6provk-cell/tira-order-auto/internal/store"
)

// stubLauncher fails every launch. The handler tests exercise the HTTP
// surface, not the session workflow, so no session ever needs to succeed.
type stubLauncher struct{}

func (stubLauncher) Launch(ctx context.Context, acct *domain.Account, headless bool) (automation.Driver, error) {
	return nil, domain.ErrAuth("no driver in tests", nil)
}

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	delays := automation.NewDelays(config.DelayConfig{})
	svc := orchestrator.New(st, stubLauncher{}, delays, orchestrator.NewRegistry(), orchestrator.Options{})
	return NewServer(svc, st, ":0", nil), st
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, r)
	return w
}

func TestExecuteOrders(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name     string
		method   string
		body     string
		wantCode int
	}{
		{"accepted", http.MethodPost,
			`{"range_start": 1, "range_end": 2, "mode": "test_login"}`, http.StatusAccepted},
		{"malformed body", http.MethodPost, `{nope`, http.StatusBadRequest},
		{"invalid range", http.MethodPost,
			`{"range_start": 0, "range_end": 2, "mode": "test_login"}`, http.StatusBadRequest},
		{"no products", http.MethodPost,
			`{"range_start": 1, "range_end": 2}`, http.StatusBadRequest},
		{"get not allowed", http.MethodGet, "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, s, tt.method, "/api/orders/execute", tt.body)
			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.wantCode, w.Body.String())
			}
		})
	}
}

func TestExecuteOrdersReturnsTask(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/api/orders/execute",
		`{"range_start": 1, "range_end": 3, "mode": "test_login"}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp TaskResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.ID == "" {
		t.Error("task_id missing from response")
	}
	if resp.Kind != string(domain.KindOrderRun) {
		t.Errorf("kind = %q, want %q", resp.Kind, domain.KindOrderRun)
	}
	if resp.RangeStart != 1 || resp.RangeEnd != 3 {
		t.Errorf("range = %d-%d, want 1-3", resp.RangeStart, resp.RangeEnd)
	}
}

func TestExecuteCheckpoints(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/api/checkpoints/execute",
		`{"range_start": 1, "range_end": 5}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp TaskResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Kind != string(domain.KindCheckpointRun) {
		t.Errorf("kind = %q, want %q", resp.Kind, domain.KindCheckpointRun)
	}

	w = doRequest(t, s, http.MethodPost, "/api/checkpoints/execute",
		`{"range_start": 9, "range_end": 2}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("inverted range: status = %d, want 400", w.Code)
	}
}

func TestListTasks(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodGet, "/api/tasks", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var tasks []TaskResponse
	if err := json.Unmarshal(w.Body.Bytes(), &tasks); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("fresh registry listed %d tasks, want 0", len(tasks))
	}

	s.svc.Registry().CreateTask(domain.KindOrderRun, 1, 5, 2)

	w = doRequest(t, s, http.MethodGet, "/api/tasks", "")
	if err := json.Unmarshal(w.Body.Bytes(), &tasks); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(tasks) != 1 {
		t.Errorf("listed %d tasks, want 1", len(tasks))
	}
}

func TestTaskSubresources(t *testing.T) {
	s, st := newTestServer(t)

	task := s.svc.Registry().CreateTask(domain.KindOrderRun, 1, 2, 1)
	s.svc.Registry().Begin(task.ID, 2)
	s.svc.Registry().Fold(task.ID, domain.Outcome{
		AccountID: 1, Status: string(domain.RunCompleted),
	}, 1)

	acctID, err := st.InsertAccount(&domain.Account{Name: "Test", Active: true})
	if err != nil {
		t.Fatalf("InsertAccount: %v", err)
	}

	confirmation := "OD9001"
	if err := st.CreateOrder(&domain.Order{
		ID: "ord-1", BatchID: task.ID, AccountID: acctID, Number: 1,
		Status: domain.OrderCompleted, Confirmation: &confirmation,
		CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	t.Run("status", func(t *testing.T) {
		for _, path := range []string{"/api/tasks/" + task.ID, "/api/tasks/" + task.ID + "/status"} {
			w := doRequest(t, s, http.MethodGet, path, "")
			if w.Code != http.StatusOK {
				t.Fatalf("GET %s: status = %d", path, w.Code)
			}
			var resp TaskResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decoding response: %v", err)
			}
			if resp.Processed != 1 || resp.Succeeded != 1 {
				t.Errorf("counters = %d processed / %d succeeded, want 1/1", resp.Processed, resp.Succeeded)
			}
		}
	})

	t.Run("results", func(t *testing.T) {
		w := doRequest(t, s, http.MethodGet, "/api/tasks/"+task.ID+"/results", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		var results []domain.Outcome
		if err := json.Unmarshal(w.Body.Bytes(), &results); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if len(results) != 1 || results[0].AccountID != 1 {
			t.Errorf("results = %+v, want one outcome for account 1", results)
		}
	})

	t.Run("orders", func(t *testing.T) {
		w := doRequest(t, s, http.MethodGet, "/api/tasks/"+task.ID+"/orders", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		var orders []OrderResponse
		if err := json.Unmarshal(w.Body.Bytes(), &orders); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if len(orders) != 1 || orders[0].Confirmation != "OD9001" {
			t.Errorf("orders = %+v, want one with confirmation OD9001", orders)
		}
	})

	t.Run("unknown task", func(t *testing.T) {
		w := doRequest(t, s, http.MethodGet, "/api/tasks/absent/status", "")
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})

	t.Run("unknown subresource", func(t *testing.T) {
		w := doRequest(t, s, http.MethodGet, "/api/tasks/"+task.ID+"/bogus", "")
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})
}

func TestActiveSessions(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodGet, "/api/sessions/active", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var sessions []SessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &sessions); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("idle registry reported %d sessions, want 0", len(sessions))
	}
}

func TestSessionLogs(t *testing.T) {
	s, st := newTestServer(t)

	if err := st.AppendLog(domain.StepEvent{
		SessionToken: "user_1_abcd1234", Step: "INIT", Level: "INFO", Message: "starting",
	}); err != nil {
		t.Fatalf("AppendLog: %v", err)
	}

	w := doRequest(t, s, http.MethodGet, "/api/sessions/user_1_abcd1234/logs", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		SessionID string             `json:"session_id"`
		Logs      []domain.StepEvent `json:"logs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.SessionID != "user_1_abcd1234" || len(resp.Logs) != 1 {
		t.Errorf("resp = %+v, want one event for the session", resp)
	}

	w = doRequest(t, s, http.MethodGet, "/api/sessions/user_1_abcd1234", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("session without subresource: status = %d, want 404", w.Code)
	}
}

func TestAccountTestLogin(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name     string
		path     string
		wantCode int
	}{
		{"unknown account", "/api/accounts/42/test-login", http.StatusBadRequest},
		{"bad id", "/api/accounts/abc/test-login", http.StatusBadRequest},
		{"unknown action", "/api/accounts/1/deactivate", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, s, http.MethodPost, tt.path, "")
			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.wantCode, w.Body.String())
			}
		})
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrDependency("missing", nil), http.StatusBadRequest},
		{domain.ErrRule("over limit"), http.StatusUnprocessableEntity},
		{domain.ErrAuth("expired", nil), http.StatusUnauthorized},
		{domain.ErrUnexpected("boom", nil), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := errorStatus(tt.err); got != tt.want {
			t.Errorf("errorStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
