package worker

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"loanflow-backend/internal/domain"
	"loanflow-backend/internal/logger"
)

// Worker bridges one topic to the storage engine. It subscribes to
// exactly one operation's topic, enriches the message if the operation
// calls for it, and forwards it with a single bounded-wait call. A
// forward that times out is logged and dropped; there is no retry and
// no durable re-queue, so a message can be lost after the dispatcher
// has already acked the client.
type Worker struct {
	op             domain.Op
	subscribeURL   string
	applyURL       string
	forwardTimeout time.Duration
	backoff        time.Duration
	now            func() time.Time

	// forward is swappable for tests; defaults to the HTTP forward.
	forward func(ctx context.Context, payload []byte) (domain.Reply, error)
}

func New(op domain.Op, subscribeURL, applyURL string, forwardTimeout, backoff time.Duration) *Worker {
	w := &Worker{
		op:             op,
		subscribeURL:   subscribeURL,
		applyURL:       applyURL,
		forwardTimeout: forwardTimeout,
		backoff:        backoff,
		now:            time.Now,
	}
	w.forward = w.forwardHTTP
	return w
}

// WithClock overrides the worker clock, used by tests.
func (w *Worker) WithClock(now func() time.Time) *Worker {
	w.now = now
	return w
}

// Run subscribes and consumes until ctx is cancelled, reconnecting
// with a fixed backoff when the stream drops. Messages published while
// disconnected are lost; the bus is at-most-once.
func (w *Worker) Run(ctx context.Context) error {
	log := logger.WithComponent("worker").With("topic", string(w.op))
	for {
		if err := w.consumeStream(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn("subscribe stream dropped", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.backoff):
		}
	}
}

func (w *Worker) consumeStream(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.subscribeURL, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultTransport.RoundTrip(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("subscribe endpoint returned %s", resp.Status)
	}

	logger.Info("subscribed", "topic", string(w.op), "endpoint", w.subscribeURL)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		payload := make([]byte, len(line))
		copy(payload, line)
		w.Handle(ctx, payload)
	}
	return scanner.Err()
}

// Handle enriches one bus message and forwards it to the storage
// engine, dropping it on timeout.
func (w *Worker) Handle(ctx context.Context, payload []byte) {
	outgoing, err := w.Enrich(payload)
	if err != nil {
		logger.Warn("discarding undecodable message", "topic", string(w.op), "error", err)
		return
	}

	fwdCtx, cancel := context.WithTimeout(ctx, w.forwardTimeout)
	defer cancel()

	reply, err := w.forward(fwdCtx, outgoing)
	if err != nil {
		logger.Warn("forward to storage engine failed, message dropped", "topic", string(w.op), "error", err)
		return
	}
	logger.Info("storage engine replied", "topic", string(w.op), "ok", reply.OK, "msg", reply.Msg)
}

// Enrich prepares the outgoing payload. A RETURN passes through
// unchanged; a RENEW gets its new due date computed from the request
// timestamp.
func (w *Worker) Enrich(payload []byte) ([]byte, error) {
	if w.op != domain.OpRenew {
		return payload, nil
	}

	req, err := domain.DecodeRequest(payload)
	if err != nil {
		return nil, err
	}
	req.NewDueDate = domain.RenewalDueDate(req.Timestamp, w.now)
	return req.Encode()
}

func (w *Worker) forwardHTTP(ctx context.Context, payload []byte) (domain.Reply, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.applyURL, bytes.NewReader(payload))
	if err != nil {
		return domain.Reply{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return domain.Reply{}, fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Reply{}, err
	}
	return domain.DecodeReply(bytes.TrimSpace(body))
}
