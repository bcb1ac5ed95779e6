package websocket

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Event is the wire envelope: a single-key object mapping the event
// name to its payload.
type Event map[string]interface{}

// NewEvent builds an envelope for the given event name.
func NewEvent(name string, payload interface{}) Event {
	return Event{name: payload}
}

// Hub holds the currently connected client sessions. The registry is a
// mutex-guarded map; a session present at the start of a delivery
// either receives the event or has already disconnected. No
// acknowledgment, no delivery guarantee, no replay.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID uint
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
	}
}

// Register adds a session to the registry.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()
	logrus.WithField("user_id", client.userID).Debug("WebSocket client connected")
}

// Unregister removes a session and closes its send queue.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()
	logrus.WithField("user_id", client.userID).Debug("WebSocket client disconnected")
}

// SendToUser delivers the event to every connected session of the given
// user. Sessions with a full send queue are dropped.
func (h *Hub) SendToUser(userID uint, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		logrus.WithError(err).Error("Failed to encode event")
		return
	}

	for _, client := range h.snapshot() {
		if client.userID != userID {
			continue
		}
		h.deliver(client, payload)
	}
}

// Broadcast delivers the event to every connected session.
func (h *Hub) Broadcast(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		logrus.WithError(err).Error("Failed to encode event")
		return
	}

	for _, client := range h.snapshot() {
		h.deliver(client, payload)
	}
}

// ConnectedUsers returns the ids of users with at least one session.
func (h *Hub) ConnectedUsers() []uint {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[uint]bool, len(h.clients))
	ids := make([]uint, 0, len(h.clients))
	for client := range h.clients {
		if !seen[client.userID] {
			seen[client.userID] = true
			ids = append(ids, client.userID)
		}
	}
	return ids
}

func (h *Hub) snapshot() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	return clients
}

// deliver enqueues the payload while holding the registry read lock, so
// the session cannot be unregistered (and its queue closed) mid-send.
func (h *Hub) deliver(client *Client, payload []byte) {
	h.mu.RLock()
	if !h.clients[client] {
		h.mu.RUnlock()
		return
	}

	select {
	case client.send <- payload:
		h.mu.RUnlock()
	default:
		h.mu.RUnlock()
		h.Unregister(client)
	}
}

// HandleWebSocket upgrades an authenticated request to a WebSocket
// session and registers it with the hub.
func HandleWebSocket(hub *Hub, c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Error("WebSocket upgrade failed")
		return
	}

	client := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		userID: userID.(uint),
	}

	hub.Register(client)

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithError(err).Debug("WebSocket read error")
			}
			return
		}
		// Inbound frames are ignored: the channel is push-only.
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			logrus.WithError(err).Debug("WebSocket write error")
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
