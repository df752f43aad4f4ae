package tap

import (
	"encoding/json"
	"testing"
	"time"
)

// envelope is the parsed tap message structure.
type envelope struct {
	Seq   uint64 `json:"seq"`
	TS    string `json:"ts"`
	Bytes int    `json:"bytes"`
	Data  string `json:"data"`
}

// TestBuildEnvelopeFormat verifies the hand-crafted JSON envelope matches the
// expected structure: {"seq":N,"ts":"...","bytes":N,"data":"..."}
func TestBuildEnvelopeFormat(t *testing.T) {
	batch := []byte("abcdef")
	now := time.Date(2026, 2, 25, 10, 0, 1, 0, time.UTC)

	buf := buildEnvelope(batch, 42, now)

	var env envelope
	if err := json.Unmarshal(buf, &env); err != nil {
		t.Fatalf("envelope is not valid JSON: %v\nraw: %s", err, buf)
	}

	if env.Seq != 42 {
		t.Errorf("seq: got %d, want 42", env.Seq)
	}
	if env.Bytes != len(batch) {
		t.Errorf("bytes: got %d, want %d", env.Bytes, len(batch))
	}
	if env.Data != "abcdef" {
		t.Errorf("data: got %q, want %q", env.Data, "abcdef")
	}

	parsed, err := time.Parse(time.RFC3339Nano, env.TS)
	if err != nil {
		t.Errorf("ts is not valid RFC3339Nano: %v", err)
	}
	if !parsed.Equal(now) {
		t.Errorf("ts: got %v, want %v", parsed, now)
	}
}

// TestBuildEnvelopeEscaping verifies batches containing JSON-special or
// non-printable bytes still produce valid JSON.
func TestBuildEnvelopeEscaping(t *testing.T) {
	batch := []byte("a\"b\\c\nd\x01")

	buf := buildEnvelope(batch, 1, time.Now().UTC())

	var env envelope
	if err := json.Unmarshal(buf, &env); err != nil {
		t.Fatalf("envelope is not valid JSON: %v\nraw: %s", err, buf)
	}
	if env.Data != string(batch) {
		t.Errorf("data round-trip: got %q, want %q", env.Data, batch)
	}
}

// TestEnvelopeSeqMonotonic verifies sequence numbers are reflected correctly.
func TestEnvelopeSeqMonotonic(t *testing.T) {
	now := time.Now().UTC()
	for i := uint64(1); i <= 100; i++ {
		buf := buildEnvelope([]byte("xyz"), i, now)
		var env envelope
		if err := json.Unmarshal(buf, &env); err != nil {
			t.Fatalf("seq=%d: invalid JSON: %v", i, err)
		}
		if env.Seq != i {
			t.Errorf("seq: got %d, want %d", env.Seq, i)
		}
	}
}

// TestHub_EmitWithoutClients verifies Emit is safe with no clients connected.
func TestHub_EmitWithoutClients(t *testing.T) {
	h := NewHub()
	h.Emit([]byte("abc"), 1)
	if h.ClientCount() != 0 {
		t.Fatalf("expected 0 clients, got %d", h.ClientCount())
	}
}
