package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigFastest

// TimestampLayout is the wire format for every timestamp in the system,
// always UTC with a literal Z suffix.
const TimestampLayout = "2006-01-02T15:04:05Z"

// RenewalPeriod is how far a renewal pushes the due date out.
const RenewalPeriod = 7 * 24 * time.Hour

type Op string

const (
	OpReturn Op = "RETURN"
	OpRenew  Op = "RENEW"
)

// ParseOp normalizes and validates an operation code.
func ParseOp(s string) (Op, error) {
	switch op := Op(strings.ToUpper(strings.TrimSpace(s))); op {
	case OpReturn, OpRenew:
		return op, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedOp, s)
	}
}

// Request is the wire message carried through the whole pipeline. The
// requester constructs it, the dispatcher forwards it unchanged, and a
// renew worker may attach NewDueDate before it reaches the storage engine.
type Request struct {
	Op             Op     `json:"op"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
	RequestID      string `json:"requestId,omitempty"`
	UserID         string `json:"userId"`
	BookID         string `json:"bookId"`
	Site           string `json:"site"`
	Timestamp      string `json:"timestamp,omitempty"`
	NewDueDate     string `json:"newDueDate,omitempty"`
}

// Reply is the single reply shape used on every hop.
type Reply struct {
	OK  bool   `json:"ok"`
	Msg string `json:"msg"`
}

func DecodeRequest(payload []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return Request{}, err
	}
	return req, nil
}

func (r Request) Encode() ([]byte, error) {
	return json.Marshal(r)
}

func DecodeReply(payload []byte) (Reply, error) {
	var rep Reply
	if err := json.Unmarshal(payload, &rep); err != nil {
		return Reply{}, err
	}
	return rep, nil
}

func (r Reply) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// DeriveKey builds the deterministic idempotency key for a logical
// request: a truncated hash of (op, requestId, bookId). Resubmitting
// with the same requestId and bookId yields the same key.
func DeriveKey(op Op, requestID, bookID string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%s", op, requestID, bookID)))
	return hex.EncodeToString(sum[:])[:16]
}

// FallbackKey is used by the storage engine when a message arrives
// without an idempotency key.
func FallbackKey(op Op, requestID string) string {
	if requestID == "" {
		requestID = "?"
	}
	return fmt.Sprintf("NOIDEMP-%s-%s", op, requestID)
}

// RenewalDueDate computes the due date a renewal grants: the request
// timestamp plus the renewal period. An absent or malformed base
// timestamp falls back to the current time.
func RenewalDueDate(base string, now func() time.Time) string {
	t, err := time.ParseInLocation(TimestampLayout, base, time.UTC)
	if base == "" || err != nil {
		t = now().UTC()
	}
	return t.Add(RenewalPeriod).Format(TimestampLayout)
}

// FormatTimestamp renders t in the wire timestamp format.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
