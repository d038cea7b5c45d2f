package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/NamanSrivas/precious-metals-app/internal/logger"
	"github.com/NamanSrivas/precious-metals-app/internal/model"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Frame is one message on the state stream.
type Frame struct {
	Type  string            `json:"type"`
	State model.ScreenState `json:"state"`
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub fans screen state updates out to every connected WebSocket client.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan model.ScreenState
	register   chan *client
	unregister chan *client
	done       chan struct{}
	connected  atomic.Int64
	log        *logrus.Entry
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan model.ScreenState, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		log:        logger.For("ws"),
	}
}

// Publish queues state for broadcast. It never blocks; when the queue is
// full the update is dropped and clients catch up on the next one.
func (h *Hub) Publish(state model.ScreenState) {
	select {
	case h.broadcast <- state:
	default:
		h.log.Warn("broadcast queue full, dropping update")
	}
}

// Run serves the hub until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			return

		case c := <-h.register:
			h.clients[c] = true
			h.connected.Store(int64(len(h.clients)))
			h.log.WithField("clients", len(h.clients)).Info("client connected")

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.connected.Store(int64(len(h.clients)))
			h.log.WithField("clients", len(h.clients)).Info("client disconnected")

		case state := <-h.broadcast:
			data, err := encodeFrame(state)
			if err != nil {
				h.log.WithError(err).Error("marshal frame")
				continue
			}
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					delete(h.clients, c)
					close(c.send)
				}
			}
		}
	}
}

// Clients returns the number of registered clients.
func (h *Hub) Clients() int {
	return int(h.connected.Load())
}

func encodeFrame(state model.ScreenState) ([]byte, error) {
	return json.Marshal(Frame{Type: string(state.Kind), State: state})
}

// serve upgrades the request and streams frames, starting with initial.
func (h *Hub) serve(w http.ResponseWriter, r *http.Request, initial []model.ScreenState) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	for _, st := range initial {
		if data, err := encodeFrame(st); err == nil {
			c.send <- data
		}
	}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	case <-r.Context().Done():
		conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only drains control frames; the stream is server to client.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.WithError(err).Warn("websocket error")
			}
			return
		}
	}
}
