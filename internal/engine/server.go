package engine

import (
	"io"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"loanflow-backend/internal/domain"
	"loanflow-backend/internal/logger"
)

// Server exposes the engine's synchronous request endpoint. A mutex
// models the single-threaded receive loop: one operation is processed
// fully before the next is admitted.
type Server struct {
	mu     sync.Mutex
	engine *Engine
}

func NewServer(engine *Engine) *Server {
	return &Server{engine: engine}
}

// Router builds the HTTP surface: POST /apply.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/apply", s.handleApply).Methods(http.MethodPost)
	return r
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeReply(w, domain.Reply{OK: false, Msg: "invalid JSON: unreadable body"})
		return
	}

	reply := s.engine.Apply(r.Context(), payload)
	writeReply(w, reply)
}

func writeReply(w http.ResponseWriter, reply domain.Reply) {
	body, err := reply.Encode()
	if err != nil {
		logger.Error("failed to encode reply", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		logger.Warn("failed to write reply", "error", err)
	}
}
