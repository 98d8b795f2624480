package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kestrelhq/kestrel-sync/internal/bus"
	"github.com/kestrelhq/kestrel-sync/internal/infrastructure/config"
	"github.com/kestrelhq/kestrel-sync/internal/infrastructure/logging"
)

// Frame types exchanged with the panel over the socket.
const (
	frameSubscribe   = "subscribe"
	frameUnsubscribe = "unsubscribe"
	framePing        = "ping"
	framePong        = "pong"
	frameEvent       = "event"
	frameAck         = "ack"
	frameError       = "error"
)

// sendQueueLen is the per-connection outbound queue. A panel that falls this
// far behind starts losing events; it re-syncs from GET /state anyway.
const sendQueueLen = 256

// wsFrame is the wire format in both directions. Event frames carry the
// topic string (kind/id/aspect) in Channel; subscribe, unsubscribe and ack
// frames list topic strings in Channels.
type wsFrame struct {
	Type      string   `json:"type"`
	ID        string   `json:"id,omitempty"`
	Channel   string   `json:"channel,omitempty"`
	Channels  []string `json:"channels,omitempty"`
	Timestamp string   `json:"timestamp,omitempty"`
	Payload   any      `json:"payload,omitempty"`
}

// Hub fans bus events out to connected panel sockets. Each connection holds
// its own topic set; the hub only decides who gets a frame.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu    sync.RWMutex
	conns map[*wsConn]struct{}
}

// wsConn is one upgraded panel connection.
type wsConn struct {
	hub  *Hub
	sock *websocket.Conn
	out  chan []byte

	mu     sync.RWMutex
	topics map[bus.Topic]struct{}
}

// Origin policy is enforced by the CORS middleware; the upgrader accepts
// whatever reaches it.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// NewHub creates an empty hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:    cfg,
		logger: logger,
		conns:  make(map[*wsConn]struct{}),
	}
}

// Run blocks until the context is cancelled, then disconnects everyone.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Broadcast delivers a bus event to every connection subscribed to its
// topic. The frame is marshalled once and shared.
func (h *Hub) Broadcast(topic bus.Topic, payload any) {
	frame, err := json.Marshal(wsFrame{
		Type:      frameEvent,
		Channel:   topic.String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("marshalling event frame", "topic", topic.String(), "error", err)
		return
	}

	// Snapshot under the hub lock, deliver outside it. Per-connection topic
	// locks are never held together with the hub lock.
	h.mu.RLock()
	conns := make([]*wsConn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range conns {
		if c.subscribed(topic) {
			c.enqueue(frame)
			delivered++
		}
	}
	if delivered > 0 {
		h.logger.Debug("event delivered", "topic", topic.String(), "conns", delivered)
	}
}

// ClientCount returns the number of open connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) attach(c *wsConn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("panel socket connected", "conns", h.ClientCount())
}

// detach removes the connection. Whichever goroutine wins the map delete
// closes the outbound queue, so a concurrent shutdown cannot double-close.
func (h *Hub) detach(c *wsConn) {
	h.mu.Lock()
	_, open := h.conns[c]
	delete(h.conns, c)
	h.mu.Unlock()

	if open {
		close(c.out)
	}
	h.logger.Debug("panel socket disconnected", "conns", h.ClientCount())
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		close(c.out)
		c.sock.Close()
		delete(h.conns, c)
	}
}

// idleWindow is how long a connection may stay silent before the read side
// gives up on it; writeWindow bounds individual writes.
func (h *Hub) idleWindow() time.Duration {
	return time.Duration(h.cfg.PingInterval+h.cfg.PongTimeout) * time.Second
}

func (h *Hub) writeWindow() time.Duration {
	return time.Duration(h.cfg.PongTimeout) * time.Second
}

// handleWebSocket upgrades the request and starts the connection's read and
// write loops. The API binds to loopback, so the socket carries no separate
// authentication.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sock, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &wsConn{
		hub:    s.hub,
		sock:   sock,
		out:    make(chan []byte, sendQueueLen),
		topics: make(map[bus.Topic]struct{}),
	}
	s.hub.attach(c)

	go c.writeLoop()
	go c.readLoop()
}

func (c *wsConn) readLoop() {
	defer func() {
		c.hub.detach(c)
		c.sock.Close()
	}()

	c.sock.SetReadLimit(int64(c.hub.cfg.MaxMessageSize))
	c.sock.SetReadDeadline(time.Now().Add(c.hub.idleWindow())) //nolint:errcheck
	c.sock.SetPongHandler(func(string) error {
		return c.sock.SetReadDeadline(time.Now().Add(c.hub.idleWindow()))
	})

	for {
		_, data, err := c.sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			} else {
				c.hub.logger.Debug("websocket closed", "error", err)
			}
			return
		}
		// Any inbound frame counts as liveness, not just pongs.
		c.sock.SetReadDeadline(time.Now().Add(c.hub.idleWindow())) //nolint:errcheck
		c.handleFrame(data)
	}
}

func (c *wsConn) writeLoop() {
	ticker := time.NewTicker(time.Duration(c.hub.cfg.PingInterval) * time.Second)
	defer func() {
		ticker.Stop()
		c.sock.Close()
	}()

	for {
		select {
		case frame, ok := <-c.out:
			if !ok {
				c.sock.WriteMessage(websocket.CloseMessage, nil) //nolint:errcheck
				return
			}
			c.sock.SetWriteDeadline(time.Now().Add(c.hub.writeWindow())) //nolint:errcheck
			if err := c.sock.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.sock.SetWriteDeadline(time.Now().Add(c.hub.writeWindow())) //nolint:errcheck
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsConn) handleFrame(data []byte) {
	var f wsFrame
	if err := json.Unmarshal(data, &f); err != nil {
		c.sendError("", "malformed frame")
		return
	}

	switch f.Type {
	case frameSubscribe:
		c.updateTopics(f, true)
	case frameUnsubscribe:
		c.updateTopics(f, false)
	case framePing:
		c.sendFrame(wsFrame{Type: framePong, ID: f.ID})
	default:
		c.sendError(f.ID, "unknown frame type: "+f.Type)
	}
}

// updateTopics applies a subscribe or unsubscribe frame. Every channel must
// parse as a topic; one bad channel rejects the whole frame so the panel
// never ends up half-subscribed.
func (c *wsConn) updateTopics(f wsFrame, add bool) {
	topics := make([]bus.Topic, 0, len(f.Channels))
	for _, ch := range f.Channels {
		topic, ok := bus.ParseTopic(ch)
		if !ok {
			c.sendError(f.ID, "bad channel "+ch+": want kind/id/aspect")
			return
		}
		topics = append(topics, topic)
	}

	c.mu.Lock()
	for _, topic := range topics {
		if add {
			c.topics[topic] = struct{}{}
		} else {
			delete(c.topics, topic)
		}
	}
	c.mu.Unlock()

	c.hub.logger.Debug("panel subscriptions changed", "channels", f.Channels, "add", add)
	c.sendFrame(wsFrame{Type: frameAck, ID: f.ID, Channels: f.Channels})
}

func (c *wsConn) subscribed(topic bus.Topic) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.topics[topic]
	return ok
}

// enqueue hands a frame to the write loop. A full queue drops the frame; a
// queue closed by a concurrent detach is absorbed by the recover.
func (c *wsConn) enqueue(frame []byte) {
	defer func() { recover() }() //nolint:errcheck

	select {
	case c.out <- frame:
	default:
	}
}

func (c *wsConn) sendFrame(f wsFrame) {
	f.Timestamp = time.Now().UTC().Format(time.RFC3339)
	frame, err := json.Marshal(f)
	if err != nil {
		return
	}
	c.enqueue(frame)
}

func (c *wsConn) sendError(id, message string) {
	c.sendFrame(wsFrame{
		Type:    frameError,
		ID:      id,
		Payload: map[string]string{"message": message},
	})
}
