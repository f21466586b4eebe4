package ws

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wurlus/suibets/internal/sports"
)

// ──────────────────────────────────────────────────────────────────────────────
// Tunables
// ──────────────────────────────────────────────────────────────────────────────

const (
	writeDeadline     = 10 * time.Second
	pingInterval      = 30 * time.Second // server protocol ping cadence
	pongGrace         = 10 * time.Second // pong must arrive within this of a ping
	inactivityWindow  = 15 * time.Second // grace only applies to inactive clients
	idleLimit         = 10 * time.Minute // absolute idle cut
	minBroadcastGap   = 2 * time.Second  // score_update floor between broadcasts
	maxMessageSize    = 1024             // bytes; clients send small JSON frames
	sendBufferSize    = 64               // messages in each client send channel
)

// ──────────────────────────────────────────────────────────────────────────────
// Client
// ──────────────────────────────────────────────────────────────────────────────

// Client represents one connected WebSocket endpoint and its subscription.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu        sync.Mutex
	sports    map[int]struct{}
	allSports bool
	lastPong  time.Time
	lastSeen  time.Time // any inbound frame
}

// subscribe replaces the client's subscription set.
func (c *Client) subscribe(ids []int, all bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.allSports = all
	c.sports = make(map[int]struct{}, len(ids))
	for _, id := range ids {
		c.sports[id] = struct{}{}
	}
}

// wants reports whether the client subscribed to the sport.
func (c *Client) wants(sportID int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.allSports {
		return true
	}
	_, ok := c.sports[sportID]
	return ok
}

func (c *Client) touch(pong bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	c.lastSeen = now
	if pong {
		c.lastPong = now
	}
}

// staleAfterPing decides whether to drop the connection after a protocol
// ping went unanswered: no pong since the ping and no activity either.
func (c *Client) staleAfterPing(pingAt time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastPong.Before(pingAt) && time.Since(c.lastSeen) >= inactivityWindow
}

func (c *Client) idle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.lastSeen) > idleLimit
}

// ──────────────────────────────────────────────────────────────────────────────
// Hub
// ──────────────────────────────────────────────────────────────────────────────

// Hub maintains the set of active clients and fans out score updates filtered
// by each connection's subscription. Run() must be called in a dedicated
// goroutine before ServeWs is used.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client

	broadcastMu sync.Mutex
	lastScores  time.Time

	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewHub creates a Hub ready to be started with Run().
func NewHub(allowedOrigins []string, logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowedOrigins) == 0 {
					return true // dev mode: allow all
				}
				origin := r.Header.Get("Origin")
				for _, o := range allowedOrigins {
					if o == "*" || o == origin {
						return true
					}
				}
				return false
			},
		},
	}
}

// Run processes registration and unregistration sequentially. Call it once as
// a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
		}
	}
}

// ConnectedCount returns the current number of connected clients.
func (h *Hub) ConnectedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ──────────────────────────────────────────────────────────────────────────────
// ServeWs — HTTP → WebSocket upgrade
// ──────────────────────────────────────────────────────────────────────────────

// ServeWs upgrades an HTTP request to a WebSocket connection and starts the
// read/write pumps. Connections begin with an empty subscription.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "err", err)
		return
	}

	now := time.Now()
	client := &Client{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		sports:   make(map[int]struct{}),
		lastPong: now,
		lastSeen: now,
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

// ──────────────────────────────────────────────────────────────────────────────
// Client pumps
// ──────────────────────────────────────────────────────────────────────────────

// writePump drains the send channel, emits protocol pings, and enforces the
// heartbeat and idle policies.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			if c.idle() {
				return
			}
			pingAt := time.Now()
			_ = c.conn.SetWriteDeadline(pingAt.Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			// Terminate if the ping goes unanswered by an inactive client.
			time.AfterFunc(pongGrace, func() {
				if c.staleAfterPing(pingAt) {
					c.conn.Close()
				}
			})
		}
	}
}

// readPump consumes inbound frames: subscription changes and JSON pings.
// Anything unparseable is dropped. When the connection fails the client is
// unregistered.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.touch(true)
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("ws unexpected close", "err", err)
			}
			return
		}
		c.touch(false)

		var msg InboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case MsgTypeSubscribe:
			c.subscribe(msg.Sports, msg.AllSports)
		case MsgTypePing:
			pong, _ := json.Marshal(PongMessage{
				Type:      MsgTypePong,
				Timestamp: time.Now().UnixMilli(),
				Echo:      msg.Timestamp,
			})
			select {
			case c.send <- pong:
			default:
			}
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Score broadcast
// ──────────────────────────────────────────────────────────────────────────────

// BroadcastScores pushes a score_update to every subscribed client, filtered
// per connection. Broadcasts closer than the minimum spacing are dropped.
func (h *Hub) BroadcastScores(events []sports.RawEvent) {
	h.broadcastMu.Lock()
	if time.Since(h.lastScores) < minBroadcastGap {
		h.broadcastMu.Unlock()
		return
	}
	h.lastScores = time.Now()
	h.broadcastMu.Unlock()

	scoreEvents := make([]ScoreEvent, 0, len(events))
	for _, e := range events {
		scoreEvents = append(scoreEvents, toScoreEvent(e))
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		filtered := scoreEvents[:0:0]
		for i, e := range scoreEvents {
			if client.wants(events[i].SportID) {
				filtered = append(filtered, e)
			}
		}
		if len(filtered) == 0 {
			continue
		}
		data, err := json.Marshal(ScoreUpdateMessage{Type: MsgTypeScoreUpdate, Events: filtered})
		if err != nil {
			continue
		}
		select {
		case client.send <- data:
		default:
			// Client's buffer full — drop this update for them.
		}
	}
}

func toScoreEvent(e sports.RawEvent) ScoreEvent {
	score := ""
	status := "scheduled"
	if e.HomeScore != nil && e.AwayScore != nil {
		score = fmt.Sprintf("%d-%d", *e.HomeScore, *e.AwayScore)
		status = "live"
	}
	if e.Finished {
		status = "finished"
	}
	return ScoreEvent{
		ID:        e.ID,
		SportID:   e.SportID,
		Sport:     sports.SportNames[e.SportID],
		HomeTeam:  e.HomeTeam,
		AwayTeam:  e.AwayTeam,
		Score:     score,
		Status:    status,
		StartTime: e.StartTime,
	}
}
