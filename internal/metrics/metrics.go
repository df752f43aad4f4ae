package metrics

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"signalpipe/internal/pipe"
)

// Metrics holds all Prometheus metrics for the pipe engine.
type Metrics struct {
	PutsTotal   prometheus.Counter
	PutsDropped prometheus.Counter

	GivesOK      prometheus.Counter
	GivesPending prometheus.Counter

	ConsumerWakes prometheus.Counter
	EmptyWakes    prometheus.Counter
	TakeTimeouts  prometheus.Counter

	BytesDrained   prometheus.Counter
	BatchesDrained prometheus.Counter
	DrainSize      prometheus.Histogram
	RingOccupancy  prometheus.Gauge

	// Tap (WebSocket) fan-out
	TapClients prometheus.Gauge
	TapDrops   prometheus.Counter

	// Redis relay
	RelayPublished prometheus.Counter
	RelayErrors    prometheus.Counter
	RelayDropped   prometheus.Counter
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		PutsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipe_puts_total",
			Help: "Total producer put attempts, including dropped ones",
		}),
		PutsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipe_puts_dropped_total",
			Help: "Puts rejected because the ring was full (byte lost)",
		}),
		GivesOK: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipe_gives_ok_total",
			Help: "Signal gives that marked a fresh notification",
		}),
		GivesPending: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipe_gives_pending_total",
			Help: "Signal gives that found a notification already pending",
		}),
		ConsumerWakes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipe_consumer_wakes_total",
			Help: "Consumer wake-ups (one per consumed signal)",
		}),
		EmptyWakes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipe_consumer_empty_wakes_total",
			Help: "Wake-ups that found nothing buffered",
		}),
		TakeTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipe_take_timeouts_total",
			Help: "Bounded consumer waits that elapsed with no signal",
		}),
		BytesDrained: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipe_bytes_drained_total",
			Help: "Total bytes delivered to the diagnostic sinks",
		}),
		BatchesDrained: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipe_batches_drained_total",
			Help: "Total non-empty drains",
		}),
		DrainSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pipe_drain_size_bytes",
			Help:    "Bytes retrieved per non-empty drain",
			Buckets: []float64{1, 2, 3, 4, 6, 8, 12, 16, 24, 31},
		}),
		RingOccupancy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pipe_ring_occupancy",
			Help: "Bytes currently buffered in the ring",
		}),
		TapClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pipe_tap_clients",
			Help: "Connected tap WebSocket clients",
		}),
		TapDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipe_tap_drops_total",
			Help: "Envelopes dropped for slow tap clients",
		}),
		RelayPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipe_relay_published_total",
			Help: "Envelopes published to the Redis relay channel",
		}),
		RelayErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipe_relay_errors_total",
			Help: "Failed Redis publish attempts",
		}),
		RelayDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipe_relay_dropped_total",
			Help: "Envelopes dropped because the relay queue was full",
		}),
	}

	prometheus.MustRegister(
		m.PutsTotal,
		m.PutsDropped,
		m.GivesOK,
		m.GivesPending,
		m.ConsumerWakes,
		m.EmptyWakes,
		m.TakeTimeouts,
		m.BytesDrained,
		m.BatchesDrained,
		m.DrainSize,
		m.RingOccupancy,
		m.TapClients,
		m.TapDrops,
		m.RelayPublished,
		m.RelayErrors,
		m.RelayDropped,
	)

	return m
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	RedisEnabled   bool
	RedisConnected bool
	TapClients     int
	LastDrainTime  time.Time
	StartedAt      time.Time

	Producer pipe.ProducerStats
	Consumer pipe.ConsumerStats

	RedisLatencyMs float64
	LastCheckAt    time.Time
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetRedisEnabled(v bool) {
	h.mu.Lock()
	h.RedisEnabled = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetRedisConnected(v bool) {
	h.mu.Lock()
	h.RedisConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetTapClients(n int) {
	h.mu.Lock()
	h.TapClients = n
	h.mu.Unlock()
}

// SetPipeState records the latest counter snapshots and drain time.
func (h *HealthStatus) SetPipeState(ps pipe.ProducerStats, cs pipe.ConsumerStats, lastDrain time.Time) {
	h.mu.Lock()
	h.Producer = ps
	h.Consumer = cs
	h.LastDrainTime = lastDrain
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic Redis checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK
	if h.RedisEnabled && !h.RedisConnected {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}

	drainAge := ""
	if !h.LastDrainTime.IsZero() {
		drainAge = time.Since(h.LastDrainTime).Round(time.Millisecond).String()
	}

	status := struct {
		Status         string             `json:"status"`
		Uptime         string             `json:"uptime"`
		LastDrainTime  string             `json:"last_drain_time"`
		DrainAge       string             `json:"drain_age"`
		TapClients     int                `json:"tap_clients"`
		RedisEnabled   bool               `json:"redis_enabled"`
		RedisConnected bool               `json:"redis_connected"`
		RedisLatencyMs float64            `json:"redis_latency_ms"`
		Producer       pipe.ProducerStats `json:"producer"`
		Consumer       pipe.ConsumerStats `json:"consumer"`
		LastCheckAt    string             `json:"last_check_at"`
	}{
		Status:         overallStatus,
		Uptime:         time.Since(h.StartedAt).Round(time.Second).String(),
		LastDrainTime:  h.LastDrainTime.Format(time.RFC3339),
		DrainAge:       drainAge,
		TapClients:     h.TapClients,
		RedisEnabled:   h.RedisEnabled,
		RedisConnected: h.RedisConnected,
		RedisLatencyMs: h.RedisLatencyMs,
		Producer:       h.Producer,
		Consumer:       h.Consumer,
		LastCheckAt:    h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
