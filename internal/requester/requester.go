package requester

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"loanflow-backend/internal/domain"
	"loanflow-backend/internal/logger"
)

// Normalize validates a request's required fields and fills the
// optional ones in place. It never touches the transport: a request
// that fails here is never sent.
func Normalize(req *domain.Request, now func() time.Time) error {
	if req.Op == "" {
		return domain.MissingField("op")
	}
	op, err := domain.ParseOp(string(req.Op))
	if err != nil {
		return &domain.ValidationError{Field: "op", Reason: fmt.Sprintf("must be %s or %s", domain.OpReturn, domain.OpRenew)}
	}
	req.Op = op

	if req.UserID == "" {
		return domain.MissingField("userId")
	}
	if req.BookID == "" {
		return domain.MissingField("bookId")
	}
	if req.Site == "" {
		return domain.MissingField("site")
	}

	if req.RequestID == "" {
		req.RequestID = "S-" + uuid.NewString()
	}
	if req.Timestamp == "" {
		req.Timestamp = domain.FormatTimestamp(now())
	}
	if req.IdempotencyKey == "" {
		// Deterministic: resubmitting the same logical request with a
		// matching requestId and bookId lands on the same key.
		req.IdempotencyKey = domain.DeriveKey(req.Op, req.RequestID, req.BookID)
	}
	return nil
}

// SendState tracks one request through the bounded-retry protocol.
type SendState int

const (
	StateIdle SendState = iota
	StateSent
	StateAwaitingReply
	StateTimedOut
	StateRetrying
	StateFailed
	StateSucceeded
)

func (s SendState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSent:
		return "sent"
	case StateAwaitingReply:
		return "awaiting-reply"
	case StateTimedOut:
		return "timed-out"
	case StateRetrying:
		return "retrying"
	case StateFailed:
		return "failed"
	case StateSucceeded:
		return "succeeded"
	default:
		return "unknown"
	}
}

// Sender sends requests to the dispatcher with bounded retries. Every
// attempt runs on a fresh connection: a synchronous exchange that
// received no reply is unusable and is discarded, never reused.
type Sender struct {
	Endpoint    string
	Timeout     time.Duration
	MaxAttempts int

	state    SendState
	attempts int

	// newTransport is swappable for tests; defaults to a keep-alive-free
	// transport so each attempt dials its own connection.
	newTransport func() *http.Transport
}

func NewSender(endpoint string, timeout time.Duration, maxAttempts int) *Sender {
	return &Sender{
		Endpoint:    endpoint,
		Timeout:     timeout,
		MaxAttempts: maxAttempts,
		state:       StateIdle,
		newTransport: func() *http.Transport {
			return &http.Transport{DisableKeepAlives: true}
		},
	}
}

// State reports the terminal state of the last Send.
func (s *Sender) State() SendState {
	return s.state
}

// Attempts reports how many sends the last Send performed.
func (s *Sender) Attempts() int {
	return s.attempts
}

// Send runs the retry protocol for one request: up to MaxAttempts
// attempts, each on its own connection with its own reply bound. The
// first reply wins; exhausting the attempts yields ErrRetriesExhausted.
func (s *Sender) Send(ctx context.Context, req domain.Request) (domain.Reply, error) {
	payload, err := req.Encode()
	if err != nil {
		return domain.Reply{}, fmt.Errorf("failed to encode request: %w", err)
	}

	s.state = StateIdle
	s.attempts = 0

	for s.attempts < s.MaxAttempts {
		if err := ctx.Err(); err != nil {
			s.state = StateFailed
			return domain.Reply{}, err
		}

		s.attempts++
		reply, err := s.attempt(ctx, payload)
		if err == nil {
			s.state = StateSucceeded
			return reply, nil
		}

		s.state = StateTimedOut
		logger.Warn("no reply from dispatcher", "request_id", req.RequestID,
			"attempt", s.attempts, "max_attempts", s.MaxAttempts, "error", err)
		if s.attempts < s.MaxAttempts {
			s.state = StateRetrying
		}
	}

	s.state = StateFailed
	return domain.Reply{}, fmt.Errorf("%w after %d attempts", domain.ErrRetriesExhausted, s.attempts)
}

// attempt performs one exchange on a dedicated connection, closing it
// on the way out whether or not a reply arrived.
func (s *Sender) attempt(ctx context.Context, payload []byte) (domain.Reply, error) {
	transport := s.newTransport()
	defer transport.CloseIdleConnections()

	client := &http.Client{Transport: transport, Timeout: s.Timeout}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return domain.Reply{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	s.state = StateSent
	resp, err := client.Do(httpReq)
	if err != nil {
		return domain.Reply{}, fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	defer resp.Body.Close()

	s.state = StateAwaitingReply
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Reply{}, fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	return domain.DecodeReply(bytes.TrimSpace(body))
}
