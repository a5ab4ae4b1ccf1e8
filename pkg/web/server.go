package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/stridebuild/stride/pkg/logging"
	"github.com/stridebuild/stride/pkg/pipeline"
	"github.com/stridebuild/stride/pkg/pubsub"
	"github.com/stridebuild/stride/pkg/runner"
)

// Server exposes the pipeline state over a JSON API and streams run progress
// over SSE for watch-mode dashboards.
type Server struct {
	router    *mux.Router
	publisher *pubsub.SSEPublisher

	mu       sync.RWMutex
	pipeline *pipeline.Pipeline
	results  map[string]runner.TaskResult
}

// NewServer creates a new web server
func NewServer() *Server {
	ssePublisher := pubsub.NewSSEPublisher()

	// pipeline_status: replay only the current state to new subscribers
	ssePublisher.ConfigureTopic(pubsub.TopicPipelineStatus, pubsub.TopicConfig{
		BufferSize: 10,
		ReplayAll:  false,
	})

	// task_result: replay the full backlog so late subscribers see every task
	ssePublisher.ConfigureTopic(pubsub.TopicTaskResult, pubsub.TopicConfig{
		BufferSize: 100,
		ReplayAll:  true,
	})

	s := &Server{
		router:    mux.NewRouter(),
		publisher: ssePublisher,
		results:   make(map[string]runner.TaskResult),
	}
	s.setupRoutes()
	return s
}

// Publisher returns the publisher the runner should report into.
func (s *Server) Publisher() pubsub.Publisher {
	return s.publisher
}

// SetPipeline stores the loaded pipeline definition
func (s *Server) SetPipeline(p *pipeline.Pipeline) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pipeline = p
}

// RecordResult stores the latest result for a task
func (s *Server) RecordResult(result runner.TaskResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.Task] = result
}

// PublishStatus publishes a pipeline status event
func (s *Server) PublishStatus(state, message string, step, total int) {
	status := pubsub.PipelineStatus{
		State:   state,
		Message: message,
		Step:    step,
		Total:   total,
	}
	if err := s.publisher.Publish(pubsub.TopicPipelineStatus, state, status); err != nil {
		logging.Warn("could not publish status", "error", err)
	}
}

// Handler returns the server's HTTP handler, wrapped with request ID
// tracking.
func (s *Server) Handler() http.Handler {
	return logging.RequestIDMiddleware(s.router)
}

// Start runs the HTTP server on the given port, blocking until it stops.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	logging.Info("web server listening", "addr", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api/pipeline", s.handlePipeline).Methods("GET")
	s.router.HandleFunc("/api/tasks", s.handleTasks).Methods("GET")
	s.router.HandleFunc("/api/tasks/{name}", s.handleTask).Methods("GET")
	s.router.HandleFunc("/events/{topic}", s.handleEvents).Methods("GET")
}

func (s *Server) handlePipeline(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.pipeline == nil {
		http.Error(w, "no pipeline loaded", http.StatusNotFound)
		return
	}
	writeJSON(w, s.pipeline)
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]runner.TaskResult, 0, len(s.results))
	if s.pipeline != nil {
		// Report in declaration order
		for i := range s.pipeline.Tasks {
			if result, ok := s.results[s.pipeline.Tasks[i].Name]; ok {
				results = append(results, result)
			}
		}
	}
	writeJSON(w, results)
}

func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	s.mu.RLock()
	result, ok := s.results[name]
	s.mu.RUnlock()

	if !ok {
		http.Error(w, fmt.Sprintf("no result for task '%s'", name), http.StatusNotFound)
		return
	}
	writeJSON(w, result)
}

// handleEvents streams a topic over SSE until the client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	topic := mux.Vars(r)["topic"]

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sub, err := s.publisher.Subscribe(r.Context(), topic)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	for event := range sub.Events() {
		if err := pubsub.WriteSSE(w, event); err != nil {
			return
		}
		flusher.Flush()
	}
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Error("could not encode response", "error", err)
	}
}
