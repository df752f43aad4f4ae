// Package relay publishes drained-batch envelopes to a Redis Pub/Sub channel
// so external tooling can observe the pipe without attaching to the process.
// Pub/Sub only: nothing is stored, subscribers that miss a message miss it.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync/atomic"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// Config configures the Redis relay.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
	Channel  string // Pub/Sub channel for drain envelopes
}

// Msg is one drained batch queued for publishing.
type Msg struct {
	Seq  uint64
	TS   time.Time
	Data []byte
}

// Publisher publishes drain envelopes to Redis Pub/Sub.
type Publisher struct {
	client  *goredis.Client
	channel string

	published atomic.Uint64
	errors    atomic.Uint64

	// OnPublish is called after each publish attempt with its error, if any.
	OnPublish func(err error)
}

// Client returns the underlying Redis client for health checks.
func (p *Publisher) Client() *goredis.Client { return p.client }

// New creates a Publisher and pings the server.
func New(cfg Config) (*Publisher, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[relay] connected to %s", cfg.Addr)
	return &Publisher{client: client, channel: cfg.Channel}, nil
}

// Run reads queued messages and publishes them until ctx is cancelled or the
// channel is closed. Publish failures are counted and logged, never fatal.
func (p *Publisher) Run(ctx context.Context, msgCh <-chan Msg) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			p.publish(ctx, msg)
		}
	}
}

func (p *Publisher) publish(ctx context.Context, msg Msg) {
	payload := buildPayload(msg)
	err := p.client.Publish(ctx, p.channel, payload).Err()
	if err != nil {
		p.errors.Add(1)
		log.Printf("[relay] publish error (seq=%d): %v", msg.Seq, err)
	} else {
		p.published.Add(1)
	}
	if p.OnPublish != nil {
		p.OnPublish(err)
	}
}

// buildPayload renders the message in the same envelope shape the tap serves.
// The data field goes through json.Marshal so any byte values stay valid JSON.
func buildPayload(msg Msg) string {
	quoted, _ := json.Marshal(string(msg.Data))

	buf := make([]byte, 0, len(quoted)+96)
	buf = append(buf, `{"seq":`...)
	buf = strconv.AppendUint(buf, msg.Seq, 10)
	buf = append(buf, `,"ts":"`...)
	buf = msg.TS.UTC().AppendFormat(buf, time.RFC3339Nano)
	buf = append(buf, `","bytes":`...)
	buf = strconv.AppendInt(buf, int64(len(msg.Data)), 10)
	buf = append(buf, `,"data":`...)
	buf = append(buf, quoted...)
	buf = append(buf, '}')
	return string(buf)
}

// Published returns the number of successfully published envelopes.
func (p *Publisher) Published() uint64 { return p.published.Load() }

// Errors returns the number of failed publish attempts.
func (p *Publisher) Errors() uint64 { return p.errors.Load() }

// Close releases the Redis connection.
func (p *Publisher) Close() error {
	return p.client.Close()
}
