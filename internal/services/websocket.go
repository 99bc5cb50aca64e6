package services

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"unicode/utf8"

	"github.com/gorilla/websocket"
)

// MaxChatBodyLen caps a chat message's length in runes, matching the REST
// endpoint's input validation.
const MaxChatBodyLen = 2000

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// Client represents a WebSocket client
type Client struct {
	ID    uint
	Role  string
	Conn  *websocket.Conn
	Send  chan []byte
	Hub   *Hub
	rooms map[uint]bool // ride ids whose chat this client has joined
}

// ChatBroadcast is the relayed form of a persisted chat message.
type ChatBroadcast struct {
	RideID     uint   `json:"rideId"`
	MessageID  uint   `json:"messageId"`
	SenderID   uint   `json:"senderId"`
	SenderName string `json:"senderName"`
	SenderRole string `json:"senderRole"`
	Body       string `json:"body"`
	SentAt     string `json:"sentAt"`
}

// Hub maintains the set of active clients and relays ride events and chat.
// The chat relay is best effort: REST polling of the message list is the
// reliable path, the relay only shortens the wait.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex

	// ValidateParty reports whether the user is a party (customer, assigned
	// driver, or admin) to the ride. Checked again on every join and send.
	ValidateParty func(rideID, userID uint) bool

	// SaveChatMessage persists a relayed message before it is fanned out.
	SaveChatMessage func(rideID, senderID uint, body string) (ChatBroadcast, error)
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			log.Printf("Client %d connected", client.ID)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mutex.Unlock()
			log.Printf("Client %d disconnected", client.ID)
		}
	}
}

// BroadcastToUser sends a message to a specific user
func (h *Hub) BroadcastToUser(userID uint, message []byte) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for client := range h.clients {
		if client.ID == userID {
			select {
			case client.Send <- message:
			default:
				log.Printf("Warning: Could not send to client %d (channel full)", client.ID)
			}
		}
	}
}

// BroadcastToRide sends a message to every client joined to a ride's chat,
// except the sender.
func (h *Hub) BroadcastToRide(rideID, exceptUserID uint, message []byte) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for client := range h.clients {
		if client.ID == exceptUserID || !client.rooms[rideID] {
			continue
		}
		select {
		case client.Send <- message:
		default:
			log.Printf("Warning: Could not send to client %d (channel full)", client.ID)
		}
	}
}

// GetConnectedClients returns the number of connected clients
func (h *Hub) GetConnectedClients() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// WebSocket message envelope
type WebSocketMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// RideStatusUpdate notifies a party that a ride changed state.
type RideStatusUpdate struct {
	RideID   uint   `json:"rideId"`
	Status   string `json:"status"`
	DriverID *uint  `json:"driverId,omitempty"`
	Message  string `json:"message,omitempty"`
}

// chatJoin / chatSend are the inbound chat frames.
type chatJoin struct {
	RideID uint `json:"rideId"`
}

type chatSend struct {
	RideID uint   `json:"rideId"`
	Body   string `json:"body"`
}

// HandleWebSocket handles WebSocket connections
func HandleWebSocket(hub *Hub, w http.ResponseWriter, r *http.Request, userID uint, role string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		ID:    userID,
		Role:  role,
		Conn:  conn,
		Send:  make(chan []byte, 256),
		Hub:   hub,
		rooms: make(map[uint]bool),
	}

	client.Hub.register <- client

	// Start goroutines for reading and writing
	go client.writePump()
	go client.readPump()
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var wsMessage WebSocketMessage
		if err := json.Unmarshal(message, &wsMessage); err != nil {
			log.Printf("Error unmarshaling WebSocket message: %v", err)
			continue
		}

		switch wsMessage.Type {
		case "chat_join":
			c.handleChatJoin(wsMessage.Data)
		case "chat_send":
			c.handleChatSend(wsMessage.Data)
		case "chat_leave":
			c.handleChatLeave(wsMessage.Data)
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	defer c.Conn.Close()

	for message := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("WebSocket write error: %v", err)
			return
		}
	}

	c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

func (c *Client) sendError(msg string) {
	data, err := json.Marshal(WebSocketMessage{Type: "error", Data: msg})
	if err != nil {
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}

// handleChatJoin admits the client to a ride's chat room after re-validating
// they are a party to the ride.
func (c *Client) handleChatJoin(data interface{}) {
	var join chatJoin
	if !decodeFrame(data, &join) || join.RideID == 0 {
		c.sendError("invalid chat_join payload")
		return
	}

	if c.Hub.ValidateParty == nil || !c.Hub.ValidateParty(join.RideID, c.ID) {
		c.sendError("not a party to this ride")
		return
	}

	c.Hub.mutex.Lock()
	c.rooms[join.RideID] = true
	c.Hub.mutex.Unlock()

	log.Printf("Client %d joined chat for ride %d", c.ID, join.RideID)
}

func (c *Client) handleChatLeave(data interface{}) {
	var leave chatJoin
	if !decodeFrame(data, &leave) {
		return
	}

	c.Hub.mutex.Lock()
	delete(c.rooms, leave.RideID)
	c.Hub.mutex.Unlock()
}

// handleChatSend persists and relays a chat message. Membership is checked
// again on every send; joining earlier is not enough once a ride closes.
func (c *Client) handleChatSend(data interface{}) {
	var send chatSend
	if !decodeFrame(data, &send) || send.RideID == 0 || send.Body == "" {
		c.sendError("invalid chat_send payload")
		return
	}
	if utf8.RuneCountInString(send.Body) > MaxChatBodyLen {
		c.sendError("message too long")
		return
	}

	if c.Hub.ValidateParty == nil || !c.Hub.ValidateParty(send.RideID, c.ID) {
		c.sendError("not a party to this ride")
		return
	}

	if c.Hub.SaveChatMessage == nil {
		c.sendError("chat relay unavailable")
		return
	}

	broadcast, err := c.Hub.SaveChatMessage(send.RideID, c.ID, send.Body)
	if err != nil {
		log.Printf("Error saving chat message from client %d: %v", c.ID, err)
		c.sendError("failed to send message")
		return
	}

	payload, err := json.Marshal(WebSocketMessage{Type: "chat_message", Data: broadcast})
	if err != nil {
		return
	}
	c.Hub.BroadcastToRide(send.RideID, c.ID, payload)
}

// decodeFrame round-trips the loosely-typed data field into a struct.
func decodeFrame(data interface{}, out interface{}) bool {
	raw, err := json.Marshal(data)
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

// SendRideStatus pushes a ride status update to one user.
func (h *Hub) SendRideStatus(userID uint, update RideStatusUpdate) {
	message := WebSocketMessage{
		Type: "ride_status_update",
		Data: update,
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling ride status update: %v", err)
		return
	}

	h.BroadcastToUser(userID, data)
}
