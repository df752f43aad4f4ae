package pipe

import (
	"log/slog"
)

// Sink receives drained batches from the consumer. seq is a monotonic batch
// number starting at 1. Sinks are best-effort: the consumer never blocks on
// or reacts to sink failures, so implementations must not block the caller.
type Sink interface {
	Emit(batch []byte, seq uint64)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(batch []byte, seq uint64)

// Emit calls f.
func (f SinkFunc) Emit(batch []byte, seq uint64) { f(batch, seq) }

// MultiSink fans each batch out to every sink in order.
type MultiSink []Sink

// Emit forwards the batch to every sink.
func (m MultiSink) Emit(batch []byte, seq uint64) {
	for _, s := range m {
		s.Emit(batch, seq)
	}
}

// LogSink writes one structured log line per drained batch.
type LogSink struct {
	Logger *slog.Logger
}

// Emit logs the batch contents and size.
func (s *LogSink) Emit(batch []byte, seq uint64) {
	s.Logger.Info("drained",
		slog.Uint64("seq", seq),
		slog.Int("bytes", len(batch)),
		slog.String("data", string(batch)),
	)
}
