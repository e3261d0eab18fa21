package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redmi6provk-cell/tira-order-auto/internal/domain"
)

// TaskResponse is the API response for a bulk task
type TaskResponse struct {
	ID          string  `json:"task_id"`
	Kind        string  `json:"kind"`
	Status      string  `json:"status"`
	RangeStart  int     `json:"range_start"`
	RangeEnd    int     `json:"range_end"`
	Concurrency int     `json:"concurrency_limit"`
	Total       int     `json:"total"`
	Processed   int     `json:"processed"`
	Succeeded   int     `json:"succeeded"`
	Failed      int     `json:"failed"`
	PointsSum   float64 `json:"points_sum,omitempty"`
	Error       string  `json:"error,omitempty"`
	CreatedAt   string  `json:"created_at"`
	StartedAt   *string `json:"started_at,omitempty"`
	CompletedAt *string `json:"completed_at,omitempty"`
}

// SessionResponse is the API response for an active session
type SessionResponse struct {
	AccountID    int64  `json:"account_id"`
	SessionToken string `json:"session_id"`
	Kind         string `json:"kind"`
}

// OrderResponse is the API response for a persisted order
type OrderResponse struct {
	ID           string  `json:"order_id"`
	AccountID    int64   `json:"account_id"`
	Number       int     `json:"order_number"`
	Status       string  `json:"status"`
	Subtotal     float64 `json:"subtotal"`
	Total        float64 `json:"total,omitempty"`
	Confirmation string  `json:"confirmation,omitempty"`
	Error        string  `json:"error,omitempty"`
}

func taskToResponse(t domain.BulkTask) TaskResponse {
	resp := TaskResponse{
		ID:          t.ID,
		Kind:        string(t.Kind),
		Status:      string(t.Status),
		RangeStart:  t.RangeStart,
		RangeEnd:    t.RangeEnd,
		Concurrency: t.Concurrency,
		Total:       t.Total,
		Processed:   t.Processed,
		Succeeded:   t.Succeeded,
		Failed:      t.Failed,
		PointsSum:   t.PointsSum,
		Error:       t.Err,
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
	}
	if t.StartedAt != nil {
		v := t.StartedAt.Format(time.RFC3339)
		resp.StartedAt = &v
	}
	if t.CompletedAt != nil {
		v := t.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &v
	}
	return resp
}

func orderToResponse(o *domain.Order) OrderResponse {
	resp := OrderResponse{
		ID:        o.ID,
		AccountID: o.AccountID,
		Number:    o.Number,
		Status:    string(o.Status),
		Subtotal:  o.Subtotal,
		Total:     o.Total,
	}
	if o.Confirmation != nil {
		resp.Confirmation = *o.Confirmation
	}
	if o.ErrorMessage != nil {
		resp.Error = *o.ErrorMessage
	}
	return resp
}

func (s *Server) executeOrdersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var cfg domain.BulkOrderConfig
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}

		task, err := s.svc.StartBulkOrder(r.Context(), cfg)
		if err != nil {
			writeError(w, errorStatus(err), err.Error())
			return
		}

		w.WriteHeader(http.StatusAccepted)
		writeJSON(w, taskToResponse(task))
	}
}

func (s *Server) executeCheckpointsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var cfg domain.CheckpointConfig
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}

		task, err := s.svc.StartBulkCheckpoint(r.Context(), cfg)
		if err != nil {
			writeError(w, errorStatus(err), err.Error())
			return
		}

		w.WriteHeader(http.StatusAccepted)
		writeJSON(w, taskToResponse(task))
	}
}

func (s *Server) listTasksHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		tasks := s.svc.Registry().Tasks()
		responses := make([]TaskResponse, len(tasks))
		for i, t := range tasks {
			responses[i] = taskToResponse(t)
		}
		writeJSON(w, responses)
	}
}

// taskSubresourceHandler serves /api/tasks/{id}/status, /{id}/results and
// /{id}/orders.
func (s *Server) taskSubresourceHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		path := strings.TrimPrefix(r.URL.Path, "/api/tasks/")
		taskID, sub, _ := strings.Cut(path, "/")
		if taskID == "" {
			writeError(w, http.StatusBadRequest, "task ID required")
			return
		}

		switch sub {
		case "", "status":
			task, ok := s.svc.Registry().Status(taskID)
			if !ok {
				writeError(w, http.StatusNotFound, "task not found")
				return
			}
			writeJSON(w, taskToResponse(task))

		case "results":
			results, ok := s.svc.Registry().Results(taskID)
			if !ok {
				writeError(w, http.StatusNotFound, "task not found")
				return
			}
			writeJSON(w, results)

		case "orders":
			orders, err := s.store.ListOrdersByBatch(taskID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			responses := make([]OrderResponse, len(orders))
			for i, o := range orders {
				responses[i] = orderToResponse(o)
			}
			writeJSON(w, responses)

		default:
			writeError(w, http.StatusNotFound, "unknown task resource")
		}
	}
}

func (s *Server) activeSessionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		sessions := s.svc.Registry().ActiveSessions()
		responses := make([]SessionResponse, len(sessions))
		for i, run := range sessions {
			responses[i] = SessionResponse{
				AccountID:    run.AccountID,
				SessionToken: run.SessionToken,
				Kind:         string(run.Kind),
			}
		}
		writeJSON(w, responses)
	}
}

// sessionLogsHandler serves /api/sessions/{token}/logs.
func (s *Server) sessionLogsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		path := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
		token, sub, _ := strings.Cut(path, "/")
		if token == "" || sub != "logs" {
			writeError(w, http.StatusNotFound, "unknown session resource")
			return
		}

		logs, err := s.store.LogsForSession(token)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, map[string]any{
			"session_id": token,
			"logs":       logs,
		})
	}
}

// accountActionHandler serves POST /api/accounts/{id}/test-login.
func (s *Server) accountActionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		path := strings.TrimPrefix(r.URL.Path, "/api/accounts/")
		idPart, action, _ := strings.Cut(path, "/")
		if action != "test-login" {
			writeError(w, http.StatusNotFound, "unknown account action")
			return
		}
		accountID, err := strconv.ParseInt(idPart, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid account ID")
			return
		}

		result, err := s.svc.TestLogin(r.Context(), accountID)
		if err != nil {
			writeError(w, errorStatus(err), err.Error())
			return
		}
		writeJSON(w, result)
	}
}
