package relay

import (
	"encoding/json"
	"testing"
	"time"
)

// TestBuildPayloadFormat verifies the published envelope shape without
// requiring a Redis server.
func TestBuildPayloadFormat(t *testing.T) {
	msg := Msg{
		Seq:  7,
		TS:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Data: []byte("abc"),
	}

	payload := buildPayload(msg)

	var env struct {
		Seq   uint64 `json:"seq"`
		TS    string `json:"ts"`
		Bytes int    `json:"bytes"`
		Data  string `json:"data"`
	}
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		t.Fatalf("payload is not valid JSON: %v\nraw: %s", err, payload)
	}
	if env.Seq != 7 {
		t.Errorf("seq: got %d, want 7", env.Seq)
	}
	if env.Bytes != 3 {
		t.Errorf("bytes: got %d, want 3", env.Bytes)
	}
	if env.Data != "abc" {
		t.Errorf("data: got %q, want %q", env.Data, "abc")
	}
	if _, err := time.Parse(time.RFC3339Nano, env.TS); err != nil {
		t.Errorf("ts is not valid RFC3339Nano: %v", err)
	}
}
