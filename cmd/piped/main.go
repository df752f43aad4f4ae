package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"signalpipe/config"
	"signalpipe/internal/logger"
	"signalpipe/internal/metrics"
	"signalpipe/internal/pipe"
	"signalpipe/internal/relay"
	"signalpipe/internal/tap"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[piped] starting...")

	// ---- Load config from env ----
	cfg := config.Load()
	slogger := logger.Init("piped", logger.ParseLevel(cfg.LogLevel))

	// ---- Setup metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- Setup context for graceful shutdown ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- Tap (WebSocket diagnostics) ----
	hub := tap.NewHub()
	hub.OnDrop = func() {
		prom.TapDrops.Inc()
	}
	hub.OnClientChange = func(n int) {
		prom.TapClients.Set(float64(n))
		health.SetTapClients(n)
	}

	// ---- Optional Redis relay ----
	var pub *relay.Publisher
	relayCh := make(chan relay.Msg, 256)
	if cfg.RedisAddr != "" {
		health.SetRedisEnabled(true)
		var err error
		pub, err = relay.New(relay.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			Channel:  cfg.RelayChannel,
		})
		if err != nil {
			log.Printf("[piped] WARNING: redis init failed: %v (continuing without relay)", err)
			health.SetRedisConnected(false)
		} else {
			health.SetRedisConnected(true)
			pub.OnPublish = func(err error) {
				if err != nil {
					prom.RelayErrors.Inc()
				} else {
					prom.RelayPublished.Inc()
				}
			}
			go pub.Run(ctx, relayCh)
			health.StartLivenessChecker(ctx, pub.Client(), 10*time.Second)
			log.Printf("[piped] redis relay ready on channel %q", cfg.RelayChannel)
		}
	}

	// ---- Diagnostic sink fan-out ----
	sinks := pipe.MultiSink{
		&pipe.LogSink{Logger: slogger},
		hub,
	}
	if pub != nil {
		sinks = append(sinks, pipe.SinkFunc(func(batch []byte, seq uint64) {
			msg := relay.Msg{Seq: seq, TS: time.Now().UTC(), Data: append([]byte(nil), batch...)}
			select {
			case relayCh <- msg:
			default:
				prom.RelayDropped.Inc()
			}
		}))
	}

	// ---- Build the pipe (fatal before any task starts) ----
	p, err := pipe.New(pipe.Config{
		RingCapacity: cfg.RingCapacity,
		BatchSize:    cfg.BatchSize,
		Delay:        cfg.ProducerDelay,
		WaitTimeout:  cfg.ConsumerTimeout,
		Alphabet:     cfg.Alphabet,
	}, sinks)
	if err != nil {
		log.Fatalf("[piped] pipe init failed: %v", err)
	}

	p.Producer.OnPut = func(ok bool) {
		prom.PutsTotal.Inc()
		if !ok {
			prom.PutsDropped.Inc()
		}
	}
	p.Producer.OnGive = func(ok bool) {
		if ok {
			prom.GivesOK.Inc()
		} else {
			prom.GivesPending.Inc()
		}
	}
	p.Consumer.OnWake = func(drained int) {
		prom.ConsumerWakes.Inc()
		if drained == 0 {
			prom.EmptyWakes.Inc()
		} else {
			prom.BatchesDrained.Inc()
			prom.BytesDrained.Add(float64(drained))
			prom.DrainSize.Observe(float64(drained))
		}
	}
	p.Consumer.OnTimeout = func() {
		prom.TakeTimeouts.Inc()
	}

	// ---- Tap server with a /stats counter snapshot ----
	tapSrv := tap.NewServer(cfg.TapAddr, hub, func() any {
		return struct {
			Producer pipe.ProducerStats `json:"producer"`
			Consumer pipe.ConsumerStats `json:"consumer"`
			RingLen  int                `json:"ring_len"`
			RingCap  int                `json:"ring_cap"`
		}{p.Producer.Stats(), p.Consumer.Stats(), p.Ring.Len(), p.Ring.Cap()}
	})
	tapSrv.Start()

	// ---- Start the tasks ----
	go p.Consumer.Run(ctx)
	go p.Producer.Run(ctx)

	// ---- Periodic occupancy gauge + health snapshot ----
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				prom.RingOccupancy.Set(float64(p.Ring.Len()))
				health.SetPipeState(p.Producer.Stats(), p.Consumer.Stats(), p.Consumer.LastDrain())
			}
		}
	}()

	log.Printf("[piped] pipe ready: ring=%d usable, batch=%d, delay=%v",
		p.Ring.Cap(), cfg.BatchSize, cfg.ProducerDelay)
	log.Printf("[piped] [Producer] → [Ring] → signal → [Consumer] → [log/tap%s]",
		relaySuffix(pub != nil))

	// ---- Wait for shutdown signal ----
	<-sigCh
	log.Println("[piped] shutdown signal received, cleaning up...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Stop(shutdownCtx)
	tapSrv.Stop(shutdownCtx)

	if pub != nil {
		pub.Close()
	}

	st := p.Producer.Stats()
	log.Printf("[piped] shutdown complete. attempts=%d dropped=%d gives_ok=%d gives_pending=%d",
		st.Attempts, st.Dropped, st.GivesOK, st.GivesPending)
}

func relaySuffix(enabled bool) string {
	if enabled {
		return "/relay"
	}
	return ""
}
