package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/pkg/types"
)

// HistoryReader serves the recent-resolution listing. Nil disables the
// endpoint.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]types.Resolution, error)
}

// Server exposes the HTTP API of the resolution daemon.
type Server struct {
	manager *JobManager
	history HistoryReader
	mux     *http.ServeMux
}

// NewServer wires handlers onto an HTTP mux.
func NewServer(manager *JobManager, history HistoryReader) *Server {
	s := &Server{
		manager: manager,
		history: history,
		mux:     http.NewServeMux(),
	}
	s.routes()
	return s
}

// ServeHTTP satisfies the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/resolve", s.handleResolve)
	s.mux.HandleFunc("/api/jobs", s.handleJobs)
	s.mux.HandleFunc("/api/jobs/", s.handleJobByID)
	s.mux.HandleFunc("/api/history", s.handleHistory)
	s.mux.HandleFunc("/openapi.yaml", s.handleOpenAPI)
	s.mux.HandleFunc("/docs", s.handleDocs)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid json payload: %v", err), http.StatusBadRequest)
		return
	}
	criteria := types.NewCriteria(req.Quality, req.Format, req.Providers, req.Language)

	if req.Async {
		job, err := s.manager.Start(r.Context(), req.URL, criteria)
		if err != nil {
			if errors.Is(err, ErrMaxJobs) {
				writeError(w, http.StatusTooManyRequests, err)
				return
			}
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusAccepted, job.Snapshot())
		return
	}

	res, err := s.manager.ResolveSync(r.Context(), req.URL, criteria)
	if err != nil {
		writeError(w, statusForFailure(err), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, s.manager.List())
}

func (s *Server) handleJobByID(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/jobs/"), "/")
	if trimmed == "" || strings.Contains(trimmed, "/") {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	jobID, err := url.PathUnescape(trimmed)
	if err != nil {
		http.Error(w, "invalid job id", http.StatusBadRequest)
		return
	}
	job, ok := s.manager.Get(jobID)
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if s.history == nil {
		http.Error(w, "history is not configured", http.StatusNotImplemented)
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			http.Error(w, "limit must be between 1 and 500", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	items, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// statusForFailure maps pipeline failure kinds onto HTTP statuses.
func statusForFailure(err error) int {
	switch types.FailKindOf(err) {
	case types.FailInvalidInput:
		return http.StatusBadRequest
	case types.FailUnsupportedSite:
		return http.StatusUnprocessableEntity
	case types.FailTimeout:
		return http.StatusGatewayTimeout
	case types.FailCancelled:
		return 499 // client closed request
	default:
		return http.StatusBadGateway
	}
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := ErrorResponse{Error: err.Error()}
	var failure *types.Failure
	if errors.As(err, &failure) {
		resp.Kind = failure.Kind.String()
	}
	writeJSON(w, status, resp)
}
