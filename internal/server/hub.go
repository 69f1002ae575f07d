package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"token-deploy-wizard/internal/wizard"
)

// WSConfig configures the snapshot push channel.
type WSConfig struct {
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is how long a client may stay silent (pongs included).
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// SendBuffer is the number of snapshots queued per client before it is dropped.
	SendBuffer int
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		PingInterval: 30 * time.Second,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 10 * time.Second,
		SendBuffer:   16,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// hub fans snapshots of one session out to its WebSocket subscribers.
type hub struct {
	config WSConfig
	logger *log.Logger

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	version uint64 // last snapshot version queued, guarded by hub.mu
}

func newHub(config WSConfig, logger *log.Logger) *hub {
	if config.SendBuffer < 1 {
		config.SendBuffer = 1
	}
	return &hub{
		config:  config,
		logger:  logger,
		clients: make(map[*wsClient]struct{}),
	}
}

// broadcast queues snap for every subscriber that has not seen a newer one.
// Slow subscribers are dropped.
func (h *hub) broadcast(snap wizard.Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		h.logger.Printf("marshal snapshot: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if snap.Version <= c.version {
			continue
		}
		select {
		case c.send <- data:
			c.version = snap.Version
		default:
			h.logger.Printf("dropping slow websocket client %s", c.conn.RemoteAddr())
			delete(h.clients, c)
			c.close()
		}
	}
}

// serve upgrades the request and streams snapshots until the client leaves.
// The first message is latest() taken after the client is registered, so no
// change between the two is lost.
func (h *hub) serve(w http.ResponseWriter, r *http.Request, latest func() wizard.Snapshot) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("websocket upgrade: %v", err)
		return
	}

	c := &wsClient{
		conn: conn,
		send: make(chan []byte, h.config.SendBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	initial := latest()
	first, err := json.Marshal(initial)
	if err != nil {
		delete(h.clients, c)
		h.mu.Unlock()
		conn.Close()
		return
	}
	c.send <- first
	c.version = initial.Version
	h.mu.Unlock()

	go h.readLoop(c)
	h.writeLoop(c)
}

// readLoop discards client messages and detects disconnects via pong deadlines.
func (h *hub) readLoop(c *wsClient) {
	defer h.remove(c)

	c.conn.SetReadLimit(1024)
	c.conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *hub) writeLoop(c *wsClient) {
	ticker := time.NewTicker(h.config.PingInterval)
	defer func() {
		ticker.Stop()
		h.remove(c)
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			// Flush what is already queued, then say goodbye.
			for {
				select {
				case msg := <-c.send:
					c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
					if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
						return
					}
				default:
					c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
					c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *hub) remove(c *wsClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

// closeAll disconnects every subscriber.
func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
}

func (h *hub) size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (c *wsClient) close() {
	c.once.Do(func() { close(c.done) })
}
