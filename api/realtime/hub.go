// Package realtime pushes engine changes to websocket clients so a UI can
// re-render without polling.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/thejonthinator/frysen/internal/engine"
	"github.com/thejonthinator/frysen/internal/inventory"
	"github.com/thejonthinator/frysen/internal/updates"
	"github.com/thejonthinator/frysen/pkg/logger"
)

const (
	TypeHello  = "hello"
	TypeChange = "change"

	sendBuffer   = 16
	writeTimeout = 5 * time.Second
)

// Message is what clients receive. Changes can be delivered out of order;
// clients keep the one with the highest revision.
type Message struct {
	Type        string              `json:"type"`
	Source      engine.Source       `json:"source,omitempty"`
	Revision    uint64              `json:"revision"`
	DisplayMode engine.DisplayMode  `json:"displayMode"`
	State       *inventory.Snapshot `json:"state,omitempty"`
	Sync        *engine.SyncStatus  `json:"sync,omitempty"`
	Update      *updates.Result     `json:"update,omitempty"`
	SentAt      time.Time           `json:"sentAt"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans engine notifications out to connected clients.
type Hub struct {
	svc     engine.Service
	logg    *logger.Logger
	origins []string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	clients     map[*client]struct{}
	unsubscribe func()
}

// NewHub builds a hub over svc. originPatterns are passed to the websocket
// handshake; requests without an Origin header are always accepted.
func NewHub(svc engine.Service, logg *logger.Logger, originPatterns ...string) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		svc:     svc,
		logg:    logg,
		origins: originPatterns,
		ctx:     ctx,
		cancel:  cancel,
		clients: map[*client]struct{}{},
	}
}

// Start subscribes the hub to engine changes.
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.unsubscribe != nil {
		return
	}
	h.unsubscribe = h.svc.Subscribe(h.onChange)
}

// Close unsubscribes, disconnects every client and waits for their handlers.
func (h *Hub) Close() {
	h.mu.Lock()
	unsubscribe := h.unsubscribe
	h.unsubscribe = nil
	h.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
	h.cancel()
	h.wg.Wait()
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		h.logg.Warn(h.logg.WithField(r.Context(), "error", err.Error()), "realtime.accept_failed")
		return
	}

	h.wg.Add(1)
	defer h.wg.Done()

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.add(c)
	defer func() {
		h.remove(c)
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}()

	ctx := conn.CloseRead(h.ctx)
	h.logg.Debug(h.logg.WithField(ctx, "clients", h.ClientCount()), "realtime.client_connected")

	hello, err := h.encode(TypeHello, "")
	if err != nil {
		h.logg.Error(ctx, "realtime.encode_failed", err)
		return
	}
	if err := write(ctx, conn, hello); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			if h.ctx.Err() != nil {
				_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
			}
			return
		case data, ok := <-c.send:
			if !ok {
				_ = conn.Close(websocket.StatusPolicyViolation, "client too slow")
				return
			}
			if err := write(ctx, conn, data); err != nil {
				return
			}
		}
	}
}

// onChange runs on the notifying goroutine and must not block; a client whose
// buffer is full is disconnected.
func (h *Hub) onChange(change engine.Change) {
	data, err := h.encode(TypeChange, change.Source)
	if err != nil {
		h.logg.Error(context.Background(), "realtime.encode_failed", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (h *Hub) encode(kind string, source engine.Source) ([]byte, error) {
	state := h.svc.State()
	status := h.svc.SyncStatus()
	update := h.svc.UpdateStatus()
	msg := Message{
		Type:        kind,
		Source:      source,
		Revision:    h.svc.Revision(),
		DisplayMode: h.svc.DisplayMode(),
		State:       &state,
		Sync:        &status,
		SentAt:      time.Now().UTC(),
	}
	if update.Status != "" {
		msg.Update = &update
	}
	return json.Marshal(msg)
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func write(ctx context.Context, conn *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}
