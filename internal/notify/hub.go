package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/AdamBeresnev/cue-bracket/internal/bracket"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Message is the frame written to websocket clients.
type Message struct {
	Type    bracket.EventType `json:"type"`
	RoomID  uuid.UUID         `json:"room_id"`
	Payload bracket.Event     `json:"payload"`
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	room uuid.UUID
}

// Hub keeps one room per tournament and pushes every event of that
// tournament to the clients in it. It implements Dispatcher.
type Hub struct {
	register   chan *client
	unregister chan *client
	done       chan struct{}
	rooms      map[uuid.UUID]map[*client]bool
	mu         sync.RWMutex
	logger     *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		rooms:      make(map[uuid.UUID]map[*client]bool),
		logger:     logger,
	}
}

// Run owns room membership until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if _, ok := h.rooms[c.room]; !ok {
				h.rooms[c.room] = make(map[*client]bool)
			}
			h.rooms[c.room][c] = true
			h.logger.Debug("websocket client joined", "tournament_id", c.room, "clients", len(h.rooms[c.room]))
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if room, ok := h.rooms[c.room]; ok && room[c] {
				delete(room, c)
				close(c.send)
				if len(room) == 0 {
					delete(h.rooms, c.room)
				}
			}
			h.mu.Unlock()

		case <-ctx.Done():
			h.mu.Lock()
			for id, room := range h.rooms {
				for c := range room {
					close(c.send)
				}
				delete(h.rooms, id)
			}
			h.mu.Unlock()
			return
		}
	}
}

// RoomSize returns how many clients follow a tournament.
func (h *Hub) RoomSize(tournamentID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[tournamentID])
}

func (h *Hub) Dispatch(ctx context.Context, events ...bracket.Event) {
	for _, ev := range events {
		h.broadcast(ev)
	}
}

func (h *Hub) broadcast(ev bracket.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room, ok := h.rooms[ev.TournamentID]
	if !ok {
		return
	}

	msg, err := json.Marshal(Message{Type: ev.Type, RoomID: ev.TournamentID, Payload: ev})
	if err != nil {
		h.logger.Error("failed to marshal event", "type", ev.Type, "error", err)
		return
	}

	for c := range room {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("websocket client too slow, dropping event", "tournament_id", ev.TournamentID, "type", ev.Type)
		}
	}
}

// ServeWS upgrades the request and subscribes the connection to the
// tournament's room.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, tournamentID uuid.UUID) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		h.logger.Warn("websocket upgrade failed", "tournament_id", tournamentID, "error", err)
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		room: tournamentID,
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// readPump only exists to process pongs and notice the client leaving.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket closed unexpectedly", "tournament_id", c.room, "error", err)
			}
			return
		}
	}
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
