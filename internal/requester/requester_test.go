package requester

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanflow-backend/internal/domain"
)

func fixedClock() time.Time {
	return time.Date(2025, 10, 7, 21, 0, 0, 0, time.UTC)
}

func TestNormalize(t *testing.T) {
	t.Run("Fills optional fields", func(t *testing.T) {
		req := domain.Request{Op: "return", UserID: "U0001", BookID: "L0001", Site: "SEDE1"}
		require.NoError(t, Normalize(&req, fixedClock))

		assert.Equal(t, domain.OpReturn, req.Op)
		assert.True(t, strings.HasPrefix(req.RequestID, "S-"))
		assert.Equal(t, "2025-10-07T21:00:00Z", req.Timestamp)
		assert.Equal(t, domain.DeriveKey(domain.OpReturn, req.RequestID, "L0001"), req.IdempotencyKey)
	})

	t.Run("Preserves supplied fields", func(t *testing.T) {
		req := domain.Request{
			Op: "RENEW", UserID: "U0001", BookID: "L0001", Site: "SEDE1",
			RequestID: "S-fixed", Timestamp: "2025-01-01T00:00:00Z", IdempotencyKey: "custom",
		}
		require.NoError(t, Normalize(&req, fixedClock))
		assert.Equal(t, "S-fixed", req.RequestID)
		assert.Equal(t, "2025-01-01T00:00:00Z", req.Timestamp)
		assert.Equal(t, "custom", req.IdempotencyKey)
	})

	t.Run("Same requestId and bookId give the same key", func(t *testing.T) {
		a := domain.Request{Op: "RETURN", UserID: "U0001", BookID: "L0001", Site: "SEDE1", RequestID: "S-1"}
		b := domain.Request{Op: "RETURN", UserID: "U0002", BookID: "L0001", Site: "SEDE2", RequestID: "S-1"}
		require.NoError(t, Normalize(&a, fixedClock))
		require.NoError(t, Normalize(&b, fixedClock))
		assert.Equal(t, a.IdempotencyKey, b.IdempotencyKey)
	})

	tests := []struct {
		name  string
		req   domain.Request
		field string
	}{
		{"Missing op", domain.Request{UserID: "U", BookID: "L", Site: "S"}, "op"},
		{"Invalid op", domain.Request{Op: "HOLD", UserID: "U", BookID: "L", Site: "S"}, "op"},
		{"Missing userId", domain.Request{Op: "RETURN", BookID: "L", Site: "S"}, "userId"},
		{"Missing bookId", domain.Request{Op: "RETURN", UserID: "U", Site: "S"}, "bookId"},
		{"Missing site", domain.Request{Op: "RETURN", UserID: "U", BookID: "L"}, "site"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Normalize(&tt.req, fixedClock)
			require.Error(t, err)
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestSendFirstReplyWins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true,"msg":"received and published"}`))
	}))
	defer srv.Close()

	s := NewSender(srv.URL, time.Second, 3)
	reply, err := s.Send(context.Background(), domain.Request{Op: domain.OpReturn, UserID: "U", BookID: "L", Site: "S"})
	require.NoError(t, err)
	assert.True(t, reply.OK)
	assert.Equal(t, 1, s.Attempts())
	assert.Equal(t, StateSucceeded, s.State())
}

func TestSendRetriesThenSucceeds(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			time.Sleep(200 * time.Millisecond) // beyond the reply bound
			return
		}
		w.Write([]byte(`{"ok":true,"msg":"received and published"}`))
	}))
	defer srv.Close()

	s := NewSender(srv.URL, 50*time.Millisecond, 5)
	reply, err := s.Send(context.Background(), domain.Request{Op: domain.OpReturn, UserID: "U", BookID: "L", Site: "S"})
	require.NoError(t, err)
	assert.True(t, reply.OK)
	assert.Equal(t, 3, s.Attempts())
	assert.Equal(t, StateSucceeded, s.State())
}

func TestSendRetryExhaustion(t *testing.T) {
	var conns atomic.Int32
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond) // never answers within the bound
	}))
	srv.Config.ConnState = func(c net.Conn, state http.ConnState) {
		if state == http.StateNew {
			conns.Add(1)
		}
	}
	srv.Start()
	defer srv.Close()

	s := NewSender(srv.URL, 40*time.Millisecond, 3)
	_, err := s.Send(context.Background(), domain.Request{Op: domain.OpReturn, UserID: "U", BookID: "L", Site: "S"})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRetriesExhausted)
	assert.Equal(t, 3, s.Attempts())
	assert.Equal(t, StateFailed, s.State())
	// Every attempt opened its own connection; a channel that received
	// no reply is discarded, never reused.
	assert.Equal(t, int32(3), conns.Load())
}

func TestSendUnreachableEndpoint(t *testing.T) {
	// A listener that is immediately closed guarantees a dead address.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	s := NewSender("http://"+addr+"/requests", 100*time.Millisecond, 3)
	_, err = s.Send(context.Background(), domain.Request{Op: domain.OpReturn, UserID: "U", BookID: "L", Site: "S"})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRetriesExhausted)
	assert.Equal(t, 3, s.Attempts())
}

func TestSendRespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewSender(srv.URL, 50*time.Millisecond, 3)
	_, err := s.Send(ctx, domain.Request{Op: domain.OpReturn, UserID: "U", BookID: "L", Site: "S"})
	require.Error(t, err)
	assert.Equal(t, StateFailed, s.State())
	assert.Equal(t, 0, s.Attempts())
}
