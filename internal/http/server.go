package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"DistCount/internal/coordinator"
	"DistCount/internal/ledger"
	"DistCount/internal/logger"
	"DistCount/internal/types"
)

type ServerOpts struct {
	ID   string
	Addr string
}

// Server exposes the worker protocol over REST:
//
//	GET  /get_task?worker_id=   200 task | 202 wait | 204 job done
//	POST /task_completed        200 {"status":"ok"|"stale"}
//	GET  /status                job snapshot
//	POST /shutdown              graceful stop
type Server struct {
	opts   ServerOpts
	coord  *coordinator.Coordinator
	logger *logger.Logger
	srv    *http.Server
}

func NewServer(opts ServerOpts, coord *coordinator.Coordinator) *Server {
	s := &Server{
		opts:   opts,
		coord:  coord,
		logger: logger.New("INFO"),
	}
	s.srv = &http.Server{
		Addr:    opts.Addr,
		Handler: s.Handler(),
	}
	return s
}

// Handler builds the route mux. Exposed separately so tests can serve it
// from httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/get_task", s.handleGetTask)
	mux.HandleFunc("/task_completed", s.handleTaskCompleted)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/shutdown", s.handleShutdown)
	return mux
}

// Start serves until Shutdown is called or the job finishes. A goroutine
// watches the coordinator and stops the server once the job is done, the
// driver's only self-termination path.
func (s *Server) Start() error {
	go func() {
		<-s.coord.DoneChan()
		s.logger.Info("[%s] Job done, shutting down server", s.opts.ID)
		s.Shutdown()
	}()

	s.logger.Info("[%s] Serving worker protocol on %s", s.opts.ID, s.opts.Addr)
	if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown stops the server, letting in-flight requests drain.
func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Error("[%s] Shutdown failed: %v", s.opts.ID, err)
	}
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	workerID := r.URL.Query().Get("worker_id")
	if workerID == "" {
		http.Error(w, "worker_id is required", http.StatusBadRequest)
		return
	}

	desc, status := s.coord.NextTask(workerID)
	switch status {
	case ledger.NextAssigned:
		writeJSON(w, http.StatusOK, types.TaskResponse{Status: types.StatusOK, Task: desc})
	case ledger.NextWait:
		writeJSON(w, http.StatusAccepted, types.TaskResponse{Status: types.StatusWait})
	case ledger.NextDone:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleTaskCompleted(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req types.CompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.WorkerID == "" || (req.Kind != types.KindMap && req.Kind != types.KindReduce) || req.Index < 0 {
		http.Error(w, "invalid completion report", http.StatusBadRequest)
		return
	}

	verdict := s.coord.CompleteTask(req.WorkerID, req.Kind, req.Index)
	resp := types.CompleteResponse{Status: types.StatusOK}
	if verdict == ledger.CompleteStale {
		resp.Status = types.StatusStale
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.coord.Status())
}

func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.logger.Info("[%s] Shutdown requested", s.opts.ID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "shutdown initiated"})
	go s.Shutdown()
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
