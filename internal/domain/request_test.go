package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOp(t *testing.T) {
	t.Run("Valid ops", func(t *testing.T) {
		op, err := ParseOp("RETURN")
		assert.NoError(t, err)
		assert.Equal(t, OpReturn, op)

		op, err = ParseOp("renew")
		assert.NoError(t, err)
		assert.Equal(t, OpRenew, op)

		op, err = ParseOp("  Return ")
		assert.NoError(t, err)
		assert.Equal(t, OpReturn, op)
	})

	t.Run("Unknown op", func(t *testing.T) {
		_, err := ParseOp("HOLD")
		assert.ErrorIs(t, err, ErrUnsupportedOp)
	})

	t.Run("Empty op", func(t *testing.T) {
		_, err := ParseOp("")
		assert.ErrorIs(t, err, ErrUnsupportedOp)
	})
}

func TestRenewalDueDate(t *testing.T) {
	fixedNow := func() time.Time {
		return time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	}

	tests := []struct {
		name     string
		base     string
		expected string
	}{
		{"Valid base timestamp", "2025-10-07T21:00:00Z", "2025-10-14T21:00:00Z"},
		{"Empty base falls back to now", "", "2025-01-08T12:00:00Z"},
		{"Malformed base falls back to now", "not-a-timestamp", "2025-01-08T12:00:00Z"},
		{"Offset format rejected, falls back", "2025-10-07T21:00:00+02:00", "2025-01-08T12:00:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RenewalDueDate(tt.base, fixedNow))
		})
	}
}

func TestDeriveKey(t *testing.T) {
	t.Run("Deterministic", func(t *testing.T) {
		a := DeriveKey(OpReturn, "S-1", "L0001")
		b := DeriveKey(OpReturn, "S-1", "L0001")
		assert.Equal(t, a, b)
		assert.Len(t, a, 16)
	})

	t.Run("Distinct per op and fields", func(t *testing.T) {
		base := DeriveKey(OpReturn, "S-1", "L0001")
		assert.NotEqual(t, base, DeriveKey(OpRenew, "S-1", "L0001"))
		assert.NotEqual(t, base, DeriveKey(OpReturn, "S-2", "L0001"))
		assert.NotEqual(t, base, DeriveKey(OpReturn, "S-1", "L0002"))
	})
}

func TestFallbackKey(t *testing.T) {
	assert.Equal(t, "NOIDEMP-RETURN-S-9", FallbackKey(OpReturn, "S-9"))
	assert.Equal(t, "NOIDEMP-RENEW-?", FallbackKey(OpRenew, ""))
}

func TestRequestRoundTrip(t *testing.T) {
	req := Request{
		Op:             OpRenew,
		IdempotencyKey: "abc123",
		RequestID:      "S-1",
		UserID:         "U0001",
		BookID:         "L0001",
		Site:           "SEDE1",
		Timestamp:      "2025-10-07T21:00:00Z",
		NewDueDate:     "2025-10-14T21:00:00Z",
	}

	payload, err := req.Encode()
	require.NoError(t, err)

	decoded, err := DecodeRequest(payload)
	require.NoError(t, err)
	assert.Equal(t, req, decoded)
}

func TestDecodeRequestInvalid(t *testing.T) {
	_, err := DecodeRequest([]byte("{not json"))
	assert.Error(t, err)
}

func TestReplyEncoding(t *testing.T) {
	payload, err := Reply{OK: true, Msg: "received and published"}.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true,"msg":"received and published"}`, string(payload))
}
