package dispatch

import (
	"bytes"
	"io"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"

	"loanflow-backend/internal/domain"
	"loanflow-backend/internal/logger"
)

var json = jsoniter.ConfigFastest

// Dispatcher accepts client requests on a synchronous endpoint,
// acknowledges them, and republishes the original payload on the bus
// tagged with the operation as topic. It never deduplicates and never
// persists: the ack certifies "accepted and queued for publish" only.
type Dispatcher struct {
	mu  sync.Mutex
	hub *Hub
}

func New(hub *Hub) *Dispatcher {
	return &Dispatcher{hub: hub}
}

func (d *Dispatcher) Hub() *Hub {
	return d.hub
}

// Handle validates a raw request payload. The returned op and publish
// flag tell the caller whether and where to republish after the ack
// has gone out.
func (d *Dispatcher) Handle(raw []byte) (reply domain.Reply, op domain.Op, publish bool) {
	var probe struct {
		Op string `json:"op"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		logger.Warn("malformed request payload", "error", err)
		return domain.Reply{OK: false, Msg: "invalid payload"}, "", false
	}

	op, err := domain.ParseOp(probe.Op)
	if err != nil {
		logger.Warn("unsupported operation", "op", probe.Op)
		return domain.Reply{OK: false, Msg: "unsupported operation"}, "", false
	}

	return domain.Reply{OK: true, Msg: "received and published"}, op, true
}

// Router builds the HTTP surface: the client-facing request endpoint
// and the worker-facing topic subscribe endpoint.
func (d *Dispatcher) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/requests", d.handleRequest).Methods(http.MethodPost)
	r.HandleFunc("/subscribe/{topic}", d.handleSubscribe).Methods(http.MethodGet)
	return r
}

// handleRequest admits one request at a time. The ack is written and
// flushed before the publish so the client is answered regardless of
// what happens downstream.
func (d *Dispatcher) handleRequest(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	defer d.mu.Unlock()

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		raw = nil
	}

	reply, op, publish := d.Handle(raw)

	body, encErr := reply.Encode()
	if encErr != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		logger.Warn("failed to write ack", "error", err)
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	if publish {
		// The stream frames messages by newline. Valid JSON cannot
		// carry a literal newline inside a string, so flattening the
		// payload keeps it one frame without altering its content.
		flat := bytes.ReplaceAll(raw, []byte{'\n'}, []byte{' '})
		flat = bytes.ReplaceAll(flat, []byte{'\r'}, []byte{' '})
		delivered := d.hub.Publish(op, flat)
		logger.Info("published", "topic", string(op), "subscribers", delivered)
	}
}

// handleSubscribe streams one topic to a worker as newline-delimited
// JSON until the worker disconnects.
func (d *Dispatcher) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	topic, err := domain.ParseOp(mux.Vars(r)["topic"])
	if err != nil {
		http.Error(w, "unknown topic", http.StatusNotFound)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ch, cancel := d.hub.Subscribe(topic)
	defer cancel()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	logger.Info("subscriber connected", "topic", string(topic))

	for {
		select {
		case <-r.Context().Done():
			logger.Info("subscriber disconnected", "topic", string(topic))
			return
		case payload, ok := <-ch:
			if !ok {
				return
			}
			if _, err := w.Write(append(payload, '\n')); err != nil {
				logger.Warn("subscriber write failed", "topic", string(topic), "error", err)
				return
			}
			flusher.Flush()
		}
	}
}
