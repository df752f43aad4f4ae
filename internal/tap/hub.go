// Package tap streams drained batches to diagnostic WebSocket clients. It is
// a best-effort observer of the pipe: slow clients drop messages rather than
// slow the consumer down.
package tap

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// Hub manages connected WebSocket clients and fans drained-batch envelopes
// out to them. It implements the pipe sink contract: Emit never blocks.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool

	// OnDrop is called when a message is dropped for a slow client.
	OnDrop func()
	// OnClientChange is called with the client count after connects and
	// disconnects.
	OnClientChange func(n int)
}

// NewHub creates a Hub with no clients.
func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]bool)}
}

// Emit builds one envelope for the batch and sends it to every client.
// Hand-crafted JSON keeps this off the consumer's allocation budget.
func (h *Hub) Emit(batch []byte, seq uint64) {
	buf := buildEnvelope(batch, seq, time.Now().UTC())

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- buf:
		default:
			if h.OnDrop != nil {
				h.OnDrop()
			}
		}
	}
}

// buildEnvelope renders one drained batch as a JSON envelope. The data field
// goes through json.Marshal so non-printable alphabet bytes stay valid JSON.
func buildEnvelope(batch []byte, seq uint64, now time.Time) []byte {
	quoted, _ := json.Marshal(string(batch))

	buf := make([]byte, 0, len(quoted)+96)
	buf = append(buf, `{"seq":`...)
	buf = strconv.AppendUint(buf, seq, 10)
	buf = append(buf, `,"ts":"`...)
	buf = now.AppendFormat(buf, time.RFC3339Nano)
	buf = append(buf, `","bytes":`...)
	buf = strconv.AppendInt(buf, int64(len(batch)), 10)
	buf = append(buf, `,"data":`...)
	buf = append(buf, quoted...)
	buf = append(buf, '}')
	return buf
}

// HandleWS upgrades an HTTP connection and registers the client.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[tap] ws upgrade error: %v", err)
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, 256),
		hub:  h,
	}

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	log.Printf("[tap] ws client connected (%d total)", count)
	if h.OnClientChange != nil {
		h.OnClientChange(count)
	}

	go client.writePump()
	go client.readPump()
}

// removeClient unregisters a client after its read pump exits.
func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()
	close(c.send)

	if h.OnClientChange != nil {
		h.OnClientChange(count)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
