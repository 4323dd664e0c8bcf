package control

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	cmap "github.com/orcaman/concurrent-map/v2"
)

// Event kinds sent over the event stream
const (
	EventFace    = "face"
	EventParams  = "params"
	EventCapture = "capture"
	EventError   = "error"
)

const (
	writeWait  = 5 * time.Second
	clientSend = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Event is one message on the event stream
type Event struct {
	Type string    `json:"type"`
	Time time.Time `json:"time"`
	Data any       `json:"data,omitempty"`
}

type client struct {
	send chan []byte
}

// Hub fans events out to every connected websocket client. Slow clients
// lose events instead of stalling the sender.
type Hub struct {
	clients cmap.ConcurrentMap[string, *client]
	log     *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients: cmap.New[*client](),
		log:     log,
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	return h.clients.Count()
}

// Broadcast sends an event to all clients without blocking
func (h *Hub) Broadcast(kind string, data any) {
	if h.clients.Count() == 0 {
		return
	}
	msg, err := json.Marshal(Event{Type: kind, Time: time.Now(), Data: data})
	if err != nil {
		h.log.Error("Failed to encode event", "type", kind, "error", err)
		return
	}
	h.clients.IterCb(func(id string, c *client) {
		select {
		case c.send <- msg:
		default:
			h.log.Debug("Dropping event for slow client", "client", id, "type", kind)
		}
	})
}

func (h *Hub) serve(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	id := uuid.NewString()
	cl := &client{send: make(chan []byte, clientSend)}
	h.clients.Set(id, cl)
	defer h.clients.Remove(id)
	h.log.Debug("Event client connected", "client", id)

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			case msg := <-cl.send:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					h.log.Debug("Event write failed", "client", id, "error", err)
					conn.Close()
					return
				}
			}
		}
	}()

	// Main read cycle
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			h.log.Debug("Event client disconnected", "client", id, "error", err)
			return
		}
		if string(message) == "ping" {
			select {
			case cl.send <- []byte("pong"):
			default:
			}
		}
	}
}
