package ws

import (
	"context"
	"encoding/json"
	"sync"

	"go-scan-pos/internal/eventbus"

	"github.com/gofiber/contrib/websocket"
	"github.com/rs/zerolog/log"
)

type Hub struct {
	Clients    map[*websocket.Conn]bool
	Register   chan *websocket.Conn
	Unregister chan *websocket.Conn
	Broadcast  chan []byte
	quit       chan struct{}
	mutex      sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		Clients:    make(map[*websocket.Conn]bool),
		Register:   make(chan *websocket.Conn),
		Unregister: make(chan *websocket.Conn),
		Broadcast:  make(chan []byte, 64),
		quit:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.Register:
			h.mutex.Lock()
			h.Clients[conn] = true
			h.mutex.Unlock()
			log.Debug().Int("clients", h.ClientCount()).Msg("WS client connected")

		case conn := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.Clients[conn]; ok {
				delete(h.Clients, conn)
				conn.Close()
			}
			h.mutex.Unlock()

		case message := <-h.Broadcast:
			h.mutex.Lock()
			for conn := range h.Clients {
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					conn.Close()
					delete(h.Clients, conn)
				}
			}
			h.mutex.Unlock()

		case <-h.quit:
			h.mutex.Lock()
			for conn := range h.Clients {
				conn.Close()
				delete(h.Clients, conn)
			}
			h.mutex.Unlock()
			return
		}
	}
}

// Stop closes every client connection and ends Run.
func (h *Hub) Stop() {
	close(h.quit)
}

func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.Clients)
}

// Publish broadcasts a committed domain event to every connected client.
func (h *Hub) Publish(ctx context.Context, event eventbus.Event) error {
	msg, err := json.Marshal(event)
	if err != nil {
		return err
	}
	select {
	case h.Broadcast <- msg:
		return nil
	case <-h.quit:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Handler serves one websocket connection until the client goes away. Client
// messages are ignored, the socket is push only.
func (h *Hub) Handler(c *websocket.Conn) {
	select {
	case h.Register <- c:
	case <-h.quit:
		return
	}
	defer func() {
		select {
		case h.Unregister <- c:
		case <-h.quit:
		}
	}()
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}
