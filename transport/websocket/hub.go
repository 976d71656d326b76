package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wricardo/ludo-engine/game/engine"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Pending broadcasts before senders block on the hub loop.
	broadcastBuffer = 256

	// Frames queued per client before the hub drops it.
	clientBuffer = 64
)

// Event names sent to clients
const (
	EventStateUpdate = "state_update"
	EventKick        = "kick"
	EventFinish      = "finish"
	EventGameOver    = "game_over"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins in development
		return true
	},
}

// Message represents a WebSocket message
type Message struct {
	SessionID string             `json:"session_id"`
	GameState *engine.GameState  `json:"game_state,omitempty"`
	Turn      *engine.TurnRecord `json:"turn,omitempty"`
	Event     string             `json:"event,omitempty"`
	Data      interface{}        `json:"data,omitempty"`
}

// frame is a message already encoded for one session's clients
type frame struct {
	sessionID string
	data      []byte
}

// KickData is the payload of a kick event
type KickData struct {
	Kicker engine.PlayerID `json:"kicker"`
	Victim engine.PlayerID `json:"victim"`
	Token  engine.TokenID  `json:"token"`
	From   engine.Space    `json:"from"`
}

// FinishData is the payload of a finish event
type FinishData struct {
	Player    engine.PlayerID `json:"player"`
	Token     engine.TokenID  `json:"token"`
	Completed bool            `json:"completed"`
}

// Client represents a WebSocket client
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
}

// Hub maintains the set of active clients and broadcasts messages. Only the
// Run loop touches sessions.
type Hub struct {
	// Registered clients by session ID
	sessions map[string]map[*Client]bool

	// Encoded messages for session clients
	broadcast chan frame

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		sessions:   make(map[string]map[*Client]bool),
		broadcast:  make(chan frame, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case f := <-h.broadcast:
			h.broadcastMessage(f)
		}
	}
}

// ServeWS handles WebSocket requests from clients
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, clientBuffer),
		sessionID: sessionID,
	}

	client.hub.register <- client

	// Start client goroutines
	go client.writePump()
	go client.readPump()
}

// queue encodes message on the caller's goroutine, so the hub never reads
// state the caller may go on to change
func (h *Hub) queue(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Failed to marshal broadcast message: %v", err)
		return
	}
	h.broadcast <- frame{sessionID: message.SessionID, data: data}
}

// BroadcastToSession sends a game state update to all clients in a session
func (h *Hub) BroadcastToSession(sessionID string, state *engine.GameState) {
	h.queue(&Message{
		SessionID: sessionID,
		GameState: state,
		Event:     EventStateUpdate,
	})
}

// BroadcastTurn sends the state after a turn, then one kick event per
// victim and one finish event per token that reached End
func (h *Hub) BroadcastTurn(sessionID string, record *engine.TurnRecord, state *engine.GameState) {
	h.queue(&Message{
		SessionID: sessionID,
		GameState: state,
		Turn:      record,
		Event:     EventStateUpdate,
	})
	h.turnEvents(sessionID, record)
	h.gameOver(sessionID, state)
}

// BroadcastTurns is BroadcastTurn for a batch: a single state update with
// the final state, then the kick and finish events of every turn in order
func (h *Hub) BroadcastTurns(sessionID string, records []engine.TurnRecord, state *engine.GameState) {
	h.BroadcastToSession(sessionID, state)
	for i := range records {
		h.turnEvents(sessionID, &records[i])
	}
	h.gameOver(sessionID, state)
}

func (h *Hub) turnEvents(sessionID string, record *engine.TurnRecord) {
	if record == nil {
		return
	}
	for _, k := range record.Kicked {
		h.BroadcastEvent(sessionID, EventKick, KickData{
			Kicker: record.Player,
			Victim: k.Player,
			Token:  k.Token,
			From:   k.From,
		})
	}

	for _, tok := range record.Moved {
		to := record.To.P
		if tok == engine.TokenQ {
			to = record.To.Q
		}
		if to == engine.EndSpace {
			h.BroadcastEvent(sessionID, EventFinish, FinishData{
				Player:    record.Player,
				Token:     tok,
				Completed: record.Completed,
			})
		}
	}
}

func (h *Hub) gameOver(sessionID string, state *engine.GameState) {
	if state != nil && state.GameOver {
		h.BroadcastEvent(sessionID, EventGameOver, state.Finishers)
	}
}

// BroadcastEvent sends a custom event to all clients in a session
func (h *Hub) BroadcastEvent(sessionID string, event string, data interface{}) {
	h.queue(&Message{
		SessionID: sessionID,
		Event:     event,
		Data:      data,
	})
}

// registerClient adds a client to a session
func (h *Hub) registerClient(client *Client) {
	if h.sessions[client.sessionID] == nil {
		h.sessions[client.sessionID] = make(map[*Client]bool)
	}
	h.sessions[client.sessionID][client] = true

	log.Printf("Client registered for session %s (total clients: %d)",
		client.sessionID, len(h.sessions[client.sessionID]))
}

// unregisterClient removes a client from a session
func (h *Hub) unregisterClient(client *Client) {
	if clients, ok := h.sessions[client.sessionID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send)

			// Clean up empty sessions
			if len(clients) == 0 {
				delete(h.sessions, client.sessionID)
			}

			log.Printf("Client unregistered from session %s (remaining clients: %d)",
				client.sessionID, len(clients))
		}
	}
}

// broadcastMessage sends an encoded message to all clients in a session
func (h *Hub) broadcastMessage(f frame) {
	clients, ok := h.sessions[f.sessionID]
	if !ok {
		return
	}

	for client := range clients {
		select {
		case client.send <- f.data:
		default:
			// Client's send channel is full, drop it
			h.unregisterClient(client)
		}
	}
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		// Clients only listen; reads keep the connection alive
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
	}
}

// writePump sends each queued message as its own text frame so every frame
// is a single JSON document
func (c *Client) writePump() {
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
				log.Printf("WebSocket write to session %s failed: %v", c.sessionID, err)
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
