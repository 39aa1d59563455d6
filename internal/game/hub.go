package game

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

const (
	HUB_BROADCAST_BUFFER = 256
	CLIENT_SEND_BUFFER   = 256
	WS_WRITE_TIMEOUT     = 10 * time.Second
)

// ViewConn is the write side of a view connection.
type ViewConn interface {
	SetWriteDeadline(t time.Time) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one connected view. All writes go through its send queue so the
// view sees messages in publish order.
type Client struct {
	id     string
	conn   ViewConn
	send   chan []byte
	done   chan struct{}
	mu     sync.Mutex
	closed bool
}

func newClient(conn ViewConn) *Client {
	return &Client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, CLIENT_SEND_BUFFER),
		done: make(chan struct{}),
	}
}

// Hub fans session output out to every connected view. It implements View.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan WSMessage
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan WSMessage, HUB_BROADCAST_BUFFER),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				client.close()
				delete(h.clients, client)
			}
			h.mu.Unlock()
			log.Println("[WS] Hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("[WS] View connected: %s (Total: %d)", client.id, total)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				log.Printf("[WS] View disconnected: %s (Total: %d)", client.id, len(h.clients))
			}
			h.mu.Unlock()
			client.close()

		case message := <-h.broadcast:
			data, err := json.Marshal(message)
			if err != nil {
				log.Printf("[WS] Marshal error: %v", err)
				continue
			}

			h.mu.Lock()
			for client := range h.clients {
				if !client.enqueue(data) {
					// Slow or broken view: drop it rather than skip a message.
					delete(h.clients, client)
					client.close()
					log.Printf("[WS] View %s too slow, disconnected (Total: %d)", client.id, len(h.clients))
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues a message without blocking; it is dropped when the
// buffer is full.
func (h *Hub) Broadcast(message WSMessage) {
	select {
	case h.broadcast <- message:
	default:
		log.Printf("[WS] Broadcast channel full, dropping %s message", message.Type)
	}
}

func (h *Hub) PublishFrame(frame Frame) {
	h.Broadcast(WSMessage{Type: "frame", Data: frame})
}

func (h *Hub) PublishState(state RoundState) {
	h.Broadcast(WSMessage{Type: "state", Data: state})
}

func (h *Hub) PublishNotice(notice Notice) {
	h.Broadcast(WSMessage{Type: "notice", Data: notice})
}

func (h *Hub) PublishBalance(points float64) {
	h.Broadcast(WSMessage{Type: "balance", Data: BalanceResponse{Points: points}})
}

func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RegisterClient starts the client's writer and adds it to the hub.
func (h *Hub) RegisterClient(conn ViewConn) *Client {
	client := newClient(conn)
	go client.writePump()

	select {
	case h.register <- client:
	case <-h.done:
		client.close()
	}
	return client
}

func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
		client.close()
	}
}

func (c *Client) ID() string {
	return c.id
}

// Done is closed once the writer has exited and the connection is closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Send queues one message for this view only.
func (c *Client) Send(message WSMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] Send marshal error: %v", err)
		return
	}
	if !c.enqueue(data) {
		log.Printf("[WS] Dropped %s message for view %s", message.Type, c.id)
	}
}

func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) writePump() {
	defer close(c.done)
	defer c.conn.Close()

	broken := false
	for data := range c.send {
		if broken {
			continue
		}
		c.conn.SetWriteDeadline(time.Now().Add(WS_WRITE_TIMEOUT))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("[WS] Write error for view %s: %v", c.id, err)
			broken = true
			c.close()
		}
	}
}
