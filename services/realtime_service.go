package services

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Constants for service configuration
const (
	MaxWebSocketClients   = 100 // Maximum concurrent WebSocket clients
	WebSocketWriteTimeout = 10 * time.Second
	WebSocketPongTimeout  = 60 * time.Second
	WebSocketPingInterval = 30 * time.Second
	ClientSendBufferSize  = 256
)

// WebSocketMessage is one frame of the live subscription protocol
type WebSocketMessage struct {
	Type    string      `json:"type"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Time    string      `json:"time,omitempty"`
}

// SnapshotFunc produces the current live payload. It backs both the
// immediate snapshot a new connection receives and the periodic broadcast.
type SnapshotFunc func() interface{}

// Client represents one WebSocket subscriber
type Client struct {
	conn *websocket.Conn
	send chan []byte
}

// RealtimeService owns the connection registry and fans live payloads out
// to every subscriber. Registry mutations go through the hub goroutine's
// channels; a slow or dead client is dropped, never waited on.
type RealtimeService struct {
	clients    map[*Client]bool
	broadcast  chan WebSocketMessage
	register   chan *Client
	unregister chan *Client
	shutdown   chan struct{}
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
	snapshot   SnapshotFunc
}

// NewRealtimeService creates the hub and starts its goroutine
func NewRealtimeService(snapshot SnapshotFunc) *RealtimeService {
	s := &RealtimeService{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan WebSocketMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		shutdown:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		snapshot: snapshot,
	}

	go s.run()

	log.Println("Realtime service initialized")
	return s
}

// Shutdown stops the hub and closes all client connections
func (s *RealtimeService) Shutdown() {
	close(s.shutdown)

	s.mu.Lock()
	for client := range s.clients {
		close(client.send)
		client.conn.Close()
	}
	s.clients = make(map[*Client]bool)
	s.mu.Unlock()

	log.Println("Realtime service shutdown complete")
}

// run is the hub loop
func (s *RealtimeService) run() {
	for {
		select {
		case <-s.shutdown:
			return

		case client := <-s.register:
			s.mu.Lock()
			if len(s.clients) >= MaxWebSocketClients {
				s.mu.Unlock()
				client.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "Server at capacity"))
				client.conn.Close()
				log.Printf("WebSocket client rejected: max clients reached (%d)", MaxWebSocketClients)
				continue
			}
			s.clients[client] = true
			clientCount := len(s.clients)
			s.mu.Unlock()
			log.Printf("WebSocket client connected. Total clients: %d", clientCount)

		case client := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
			}
			clientCount := len(s.clients)
			s.mu.Unlock()
			log.Printf("WebSocket client disconnected. Total clients: %d", clientCount)

		case message := <-s.broadcast:
			data, err := json.Marshal(message)
			if err != nil {
				log.Printf("Error marshaling broadcast message: %v", err)
				continue
			}

			s.mu.Lock()
			deadClients := make([]*Client, 0)
			for client := range s.clients {
				select {
				case client.send <- data:
				default:
					// Client buffer full, mark for removal
					deadClients = append(deadClients, client)
				}
			}
			for _, client := range deadClients {
				delete(s.clients, client)
				close(client.send)
			}
			s.mu.Unlock()
		}
	}
}

// HandleWebSocket upgrades the connection, registers it and sends the
// welcome frame followed by one immediate live snapshot to this client
// only.
func (s *RealtimeService) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	atCapacity := len(s.clients) >= MaxWebSocketClients
	s.mu.RUnlock()

	if atCapacity {
		http.Error(w, "Server at capacity", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, ClientSendBufferSize),
	}

	s.register <- client

	go client.writePump()
	go client.readPump(s)

	s.sendToClient(client, WebSocketMessage{Type: "welcome", Message: "connected"})
	if s.snapshot != nil {
		s.sendToClient(client, WebSocketMessage{
			Type: "market_update",
			Data: s.snapshot(),
			Time: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// sendToClient queues one message for a single client, dropping it if the
// client buffer is full.
func (s *RealtimeService) sendToClient(c *Client, message WebSocketMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// writePump writes queued messages to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(WebSocketPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(WebSocketWriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(WebSocketWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains the connection. Client payloads carry no commands in
// this protocol; reading only services pong frames and surfaces
// disconnects, which unregister the client.
func (c *Client) readPump(s *RealtimeService) {
	defer func() {
		s.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(WebSocketPongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(WebSocketPongTimeout))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			break
		}
	}
}

// BroadcastMessage fans a message out to every registered client
func (s *RealtimeService) BroadcastMessage(msgType string, data interface{}) {
	s.broadcast <- WebSocketMessage{
		Type: msgType,
		Data: data,
		Time: time.Now().UTC().Format(time.RFC3339),
	}
}

// ClientCount returns the number of connected clients
func (s *RealtimeService) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}
