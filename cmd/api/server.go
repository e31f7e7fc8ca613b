package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/medgraph/medgraph/engine/graph"
	"github.com/medgraph/medgraph/engine/rag"
	"github.com/medgraph/medgraph/pkg/config"
	"github.com/medgraph/medgraph/pkg/llm"
	"github.com/medgraph/medgraph/pkg/mednlp"
	"github.com/medgraph/medgraph/pkg/metrics"
)

const maxBodyBytes = 64 << 10

type pinger interface {
	Ping(ctx context.Context) error
}

type statser interface {
	Stats(ctx context.Context) (graph.Stats, error)
}

// server holds the handlers' dependencies. svc is nil when start-up failed.
type server struct {
	svc       *rag.Service
	store     pinger
	stats     statser
	vocab     *mednlp.Extractor
	model     *llm.Guard
	staticDir string
	metrics   *metrics.Pipeline
	logger    *slog.Logger
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(s.staticDir))))
	mux.HandleFunc("POST /query", s.handleQuery)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.Handle("GET /metrics", s.metrics.Handler())
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func warning(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"warning": msg})
}

func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.svc == nil {
		http.Error(w, "System failed to start. Check logs.", http.StatusInternalServerError)
		return
	}
	index := filepath.Join(s.staticDir, "index.html")
	if !config.FileExists(index) {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, index)
}

// QueryRequest is the JSON body for POST /query.
type QueryRequest struct {
	Query string `json:"query"`
}

// statusFor maps a pipeline outcome to the HTTP status of the reply.
func statusFor(o rag.Outcome) int {
	switch o {
	case rag.OutcomeEmptyInput:
		return http.StatusBadRequest
	case rag.OutcomeStoreFailure, rag.OutcomeNotReady:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}

func (s *server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if s.svc == nil {
		warning(w, http.StatusInternalServerError, rag.WarnNotReady)
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.logger.Warn("bad query body", "err", err)
		warning(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp := s.svc.Process(r.Context(), req.Query)
	writeJSON(w, statusFor(resp.Outcome), resp)
}

// HealthResponse is the JSON body of GET /api/health.
type HealthResponse struct {
	Status   string `json:"status"`
	Neo4j    string `json:"neo4j"`
	Model    string `json:"model"`
	Diseases int    `json:"diseases"`
	Symptoms int    `json:"symptoms"`
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.svc == nil || s.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "not_ready", Neo4j: "unavailable", Model: "unavailable"})
		return
	}

	resp := HealthResponse{Status: "ok", Neo4j: "ok", Model: "disabled"}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("health: neo4j ping failed", "err", err)
		resp.Status, resp.Neo4j = "degraded", "unreachable"
	}
	if s.model != nil {
		resp.Model = "breaker " + s.model.BreakerState().String()
	}
	if s.vocab != nil {
		resp.Diseases, resp.Symptoms = s.vocab.DiseaseCount(), s.vocab.SymptomCount()
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		warning(w, http.StatusInternalServerError, rag.WarnNotReady)
		return
	}
	st, err := s.stats.Stats(r.Context())
	if err != nil {
		s.logger.Error("stats failed", "err", err)
		warning(w, http.StatusInternalServerError, rag.WarnStoreFailure)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
