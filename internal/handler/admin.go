// Package handler exposes the engine over a small administrative REST API.
// The API is an operational surface only; the request data path stays a
// library call.
package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ljluestc/balancer/internal/balancer"
	"github.com/ljluestc/balancer/internal/domain"
	"github.com/ljluestc/balancer/pkg/logger"
)

// AdminHandler serves the administrative endpoints
type AdminHandler struct {
	balancer  *balancer.Balancer
	log       *logger.Logger
	startTime time.Time
}

// NewAdminHandler creates an admin handler for the given balancer
func NewAdminHandler(b *balancer.Balancer, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		balancer:  b,
		log:       log.AdminLogger(),
		startTime: time.Now(),
	}
}

// Router builds the admin route table
func (h *AdminHandler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/servers", h.listServersHandler).Methods(http.MethodGet)
	r.HandleFunc("/servers", h.addServerHandler).Methods(http.MethodPost)
	r.HandleFunc("/servers/{id}", h.getServerHandler).Methods(http.MethodGet)
	r.HandleFunc("/servers/{id}", h.removeServerHandler).Methods(http.MethodDelete)
	r.HandleFunc("/stats", h.statsHandler).Methods(http.MethodGet)
	r.HandleFunc("/config", h.getConfigHandler).Methods(http.MethodGet)
	r.HandleFunc("/config", h.updateConfigHandler).Methods(http.MethodPatch)
	r.HandleFunc("/sessions/{key}", h.clearSessionHandler).Methods(http.MethodDelete)
	r.HandleFunc("/sessions", h.clearAllSessionsHandler).Methods(http.MethodDelete)
	return r
}

// ServerRequest is the body for adding a server
type ServerRequest struct {
	ID             string `json:"id"`
	Host           string `json:"host"`
	Port           int    `json:"port"`
	Weight         int    `json:"weight"`
	MaxConnections int    `json:"max_connections,omitempty"`
}

// ServerResponse describes a server in API responses
type ServerResponse struct {
	ID                string    `json:"id"`
	Host              string    `json:"host"`
	Port              int       `json:"port"`
	Weight            int       `json:"weight"`
	Healthy           bool      `json:"healthy"`
	ActiveConnections int64     `json:"active_connections"`
	MaxConnections    int       `json:"max_connections"`
	ResponseTimeMs    int64     `json:"response_time_ms"`
	LastHealthCheck   time.Time `json:"last_health_check"`
	BreakerOpen       bool      `json:"breaker_open"`
	BreakerFailures   int       `json:"breaker_failures"`
}

// ErrorResponse is the error body shape
type ErrorResponse struct {
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

func (h *AdminHandler) serverResponse(srv *domain.Server) ServerResponse {
	st := h.balancer.BreakerState(srv.ID)
	return ServerResponse{
		ID:                srv.ID,
		Host:              srv.Host,
		Port:              srv.Port,
		Weight:            srv.Weight,
		Healthy:           srv.IsHealthy(),
		ActiveConnections: srv.ActiveConnections(),
		MaxConnections:    srv.MaxConnections,
		ResponseTimeMs:    srv.ResponseTime(),
		LastHealthCheck:   srv.LastHealthCheck(),
		BreakerOpen:       st.Open,
		BreakerFailures:   st.FailureCount,
	}
}

func (h *AdminHandler) healthHandler(w http.ResponseWriter, r *http.Request) {
	all := h.balancer.GetAllServers()
	healthy := h.balancer.GetHealthyServers()

	status := "healthy"
	code := http.StatusOK
	if len(healthy) == 0 {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	} else if len(healthy) < len(all) {
		status = "degraded"
	}

	writeJSON(w, code, map[string]interface{}{
		"status":          status,
		"total_servers":   len(all),
		"healthy_servers": len(healthy),
		"uptime":          time.Since(h.startTime).String(),
		"timestamp":       time.Now().UTC(),
	})
}

func (h *AdminHandler) listServersHandler(w http.ResponseWriter, r *http.Request) {
	servers := h.balancer.GetAllServers()

	out := make([]ServerResponse, 0, len(servers))
	for _, srv := range servers {
		out = append(out, h.serverResponse(srv))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AdminHandler) getServerHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	srv, ok := h.balancer.GetServer(id)
	if !ok {
		writeError(w, http.StatusNotFound, "server not found")
		return
	}
	writeJSON(w, http.StatusOK, h.serverResponse(srv))
}

func (h *AdminHandler) addServerHandler(w http.ResponseWriter, r *http.Request) {
	var req ServerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ID == "" || req.Host == "" || req.Port <= 0 || req.Weight <= 0 {
		writeError(w, http.StatusBadRequest, "id, host, port, and a positive weight are required")
		return
	}

	srv := domain.NewServer(req.ID, req.Host, req.Port, req.Weight)
	srv.MaxConnections = req.MaxConnections

	if !h.balancer.AddServer(srv) {
		writeError(w, http.StatusConflict, "server already exists")
		return
	}

	h.log.WithField("server_id", req.ID).Info("Server added via admin API")
	writeJSON(w, http.StatusCreated, h.serverResponse(srv))
}

func (h *AdminHandler) removeServerHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.balancer.RemoveServer(id) {
		writeError(w, http.StatusNotFound, "server not found")
		return
	}

	h.log.WithField("server_id", id).Info("Server removed via admin API")
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (h *AdminHandler) statsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.balancer.GetStatistics())
}

func (h *AdminHandler) getConfigHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.balancer.GetConfig())
}

func (h *AdminHandler) updateConfigHandler(w http.ResponseWriter, r *http.Request) {
	var patch domain.ConfigPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.balancer.UpdateConfig(patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.balancer.GetConfig())
}

func (h *AdminHandler) clearSessionHandler(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	if !h.balancer.ClearSession(key) {
		writeError(w, http.StatusNotFound, "no session pin for key")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (h *AdminHandler) clearAllSessionsHandler(w http.ResponseWriter, r *http.Request) {
	h.balancer.ClearAllSessions()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, ErrorResponse{
		Error:     message,
		Timestamp: time.Now().UTC(),
	})
}
