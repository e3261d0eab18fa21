// Package api exposes the orchestrator over HTTP: dispatch endpoints,
// task status queries, an SSE event stream and a websocket log feed.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/redmi6provk-cell/tira-order-auto/internal/domain"
	"github.com/redmi6provk-cell/tira-order-auto/internal/orchestrator"
)

// Store is the read surface the API serves order and log queries from.
type Store interface {
	ListOrdersByBatch(batchID string) ([]*domain.Order, error)
	LogsForSession(sessionToken string) ([]domain.StepEvent, error)
}

// Hubs bundles the two streaming surfaces. Create the hubs before the
// orchestrator service so its broadcaster can feed them, then hand them
// to NewServer.
type Hubs struct {
	SSE *SSEHub
	WS  *WSHub
}

// NewHubs creates the streaming hubs.
func NewHubs() *Hubs {
	return &Hubs{SSE: NewSSEHub(), WS: NewWSHub()}
}

// Broadcaster returns the event adapter feeding these hubs.
func (h *Hubs) Broadcaster() *HubBroadcaster {
	return NewHubBroadcaster(h.SSE, h.WS)
}

// Server is the HTTP control surface.
type Server struct {
	svc    *orchestrator.Service
	store  Store
	addr   string
	mux    *http.ServeMux
	sseHub *SSEHub
	wsHub  *WSHub
}

// NewServer creates an API server around an orchestrator service. A nil
// hubs gets fresh ones, which then see no orchestrator events.
func NewServer(svc *orchestrator.Service, store Store, addr string, hubs *Hubs) *Server {
	if hubs == nil {
		hubs = NewHubs()
	}
	s := &Server{
		svc:    svc,
		store:  store,
		addr:   addr,
		mux:    http.NewServeMux(),
		sseHub: hubs.SSE,
		wsHub:  hubs.WS,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/orders/execute", s.executeOrdersHandler())
	s.mux.HandleFunc("/api/checkpoints/execute", s.executeCheckpointsHandler())
	s.mux.HandleFunc("/api/tasks", s.listTasksHandler())
	s.mux.HandleFunc("/api/tasks/", s.taskSubresourceHandler())
	s.mux.HandleFunc("/api/sessions/active", s.activeSessionsHandler())
	s.mux.HandleFunc("/api/sessions/", s.sessionLogsHandler())
	s.mux.HandleFunc("/api/accounts/", s.accountActionHandler())
	s.mux.HandleFunc("/api/events", s.sseHandler())
	s.mux.HandleFunc("/ws/logs", s.wsLogsHandler())
}

// Handler exposes the route table, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start starts the HTTP server
func (s *Server) Start() error {
	go s.sseHub.Run()
	return http.ListenAndServe(s.addr, s.mux)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// errorStatus maps a classified orchestrator error onto an HTTP status.
func errorStatus(err error) int {
	switch domain.ErrorCode(err) {
	case domain.CodeDependencyNotFound:
		return http.StatusBadRequest
	case domain.CodeRuleViolation:
		return http.StatusUnprocessableEntity
	case domain.CodeAuthFailure:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
