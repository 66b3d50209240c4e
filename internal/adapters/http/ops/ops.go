// Package ops exposes the operational HTTP surface: health and metrics.
package ops

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/FAForever/faf-rating-service/pkg/metrics"
)

// StatusProvider reports the service lifecycle state and queue depth.
type StatusProvider interface {
	State() string
	Backlog() int
}

// Server wires the operational HTTP routes.
type Server struct {
	status StatusProvider
}

// NewServer creates the operational server over a status source.
func NewServer(status StatusProvider) *Server {
	return &Server{status: status}
}

// Register attaches the operational routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.handleHealth, "healthz"))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
}

type healthResponse struct {
	Status  string `json:"status"`
	State   string `json:"state"`
	Backlog int    `json:"backlog"`
}

// handleHealth reports readiness. The service is healthy only while it
// accepts new rating requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	state := s.status.State()
	resp := healthResponse{
		Status:  "ok",
		State:   state,
		Backlog: s.status.Backlog(),
	}

	code := http.StatusOK
	if state != "accepting" {
		resp.Status = "unavailable"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
