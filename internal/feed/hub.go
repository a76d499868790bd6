// Package feed pushes settled trades to the owning user's websocket clients.
package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"finance-sim/internal/model"
)

const replayDepth = 50

var upgrader = websocket.Upgrader{
	ReadBufferSize:    1024,
	WriteBufferSize:   1024,
	EnableCompression: true,
}

// Envelope is one message on the feed.
type Envelope struct {
	Type    string        `json:"type"` // "trade"
	Seq     int64         `json:"seq"`  // per-user, starts at 1
	Receipt model.Receipt `json:"receipt"`
	Initial bool          `json:"initial,omitempty"` // replayed on connect
}

// Hub tracks websocket clients per user and fans receipts out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*Client]struct{}
	seqs    map[int64]int64
	replay  map[int64]*replayBuffer
	log     *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		clients: make(map[int64]map[*Client]struct{}),
		seqs:    make(map[int64]int64),
		replay:  make(map[int64]*replayBuffer),
		log:     log.With("component", "feed"),
	}
}

// Serve upgrades r to a websocket bound to userID. A last_seq query
// parameter replays buffered receipts newer than that sequence number.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID int64) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}

	var lastSeq int64
	if v := r.URL.Query().Get("last_seq"); v != "" {
		lastSeq, _ = strconv.ParseInt(v, 10, 64)
	}

	c := &Client{
		conn:   conn,
		send:   make(chan []byte, 64),
		hub:    h,
		userID: userID,
	}

	h.mu.Lock()
	set, ok := h.clients[userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[userID] = set
	}
	set[c] = struct{}{}
	// Queue the backlog before any live message can reach c.
	if rb := h.replay[userID]; rb != nil {
		for _, msg := range rb.after(lastSeq) {
			select {
			case c.send <- msg:
			default:
			}
		}
	}
	h.mu.Unlock()

	h.log.Info("ws client connected", "user_id", userID, "clients", h.ClientCount())

	go c.writePump()
	go c.readPump()
}

// TradeSettled implements model.SettlementListener. Slow clients drop
// messages rather than block settlement; they can catch up with last_seq.
func (h *Hub) TradeSettled(_ context.Context, r model.Receipt) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seqs[r.UserID]++
	seq := h.seqs[r.UserID]

	live, err := json.Marshal(Envelope{Type: "trade", Seq: seq, Receipt: r})
	if err != nil {
		h.log.Error("encode receipt", "error", err)
		return
	}
	initial, _ := json.Marshal(Envelope{Type: "trade", Seq: seq, Receipt: r, Initial: true})

	rb := h.replay[r.UserID]
	if rb == nil {
		rb = newReplayBuffer(replayDepth)
		h.replay[r.UserID] = rb
	}
	rb.push(seq, initial)

	for c := range h.clients[r.UserID] {
		select {
		case c.send <- live:
		default:
			h.log.Warn("ws client slow, dropping message", "user_id", r.UserID, "seq", seq)
		}
	}
}

// ClientCount returns the number of connected clients across all users.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, set := range h.clients {
		for c := range set {
			c.conn.SetReadDeadline(time.Now())
		}
	}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if set, ok := h.clients[c.userID]; ok {
		if _, ok := set[c]; ok {
			delete(set, c)
			close(c.send)
		}
		if len(set) == 0 {
			delete(h.clients, c.userID)
		}
	}
	h.mu.Unlock()
}
