package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ats-job-pipeline/internal/config"
	"ats-job-pipeline/internal/pool"
	"ats-job-pipeline/internal/queue"
	"ats-job-pipeline/internal/telemetry"
)

// Server exposes worker health and queue state over HTTP.
type Server struct {
	cfg   config.Config
	queue *queue.Client
	pool  *pool.Manager
}

func New(cfg config.Config, q *queue.Client, p *pool.Manager) *Server {
	return &Server{cfg: cfg, queue: q, pool: p}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/metrics", telemetry.Handler())

	r.Get("/status", s.handleStatus)
	r.Get("/dlq", s.handleDLQ)
	return r
}

type queueStatus struct {
	Depth    int64 `json:"depth"`
	InFlight int64 `json:"in_flight"`
	DLQ      int64 `json:"dlq"`
}

type statusResponse struct {
	Redis  string                 `json:"redis"`
	Queues map[string]queueStatus `json:"queues"`
	Pool   pool.Stats             `json:"pool"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp := statusResponse{Redis: "ok", Queues: map[string]queueStatus{}}
	if err := s.queue.Ping(ctx); err != nil {
		resp.Redis = err.Error()
	}
	for _, name := range []string{s.cfg.ScrapeQueue, s.cfg.ExtractQueue} {
		depth, _ := s.queue.Depth(ctx, name)
		inflight, _ := s.queue.InFlight(ctx, name)
		dlq, _ := s.queue.DLQLen(ctx, name)
		resp.Queues[name] = queueStatus{Depth: depth, InFlight: inflight, DLQ: dlq}
	}
	if s.pool != nil {
		resp.Pool = s.pool.Stats()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDLQ(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	queueName := r.URL.Query().Get("queue")
	if queueName == "" {
		queueName = s.cfg.WorkerQueue
	}

	entries, err := s.queue.DLQPeek(ctx, queueName, 50)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	items := make([]json.RawMessage, 0, len(entries))
	for _, e := range entries {
		items = append(items, json.RawMessage(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"queue": queueName, "entries": items})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
