package services

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"bridgeguard/internal/clients"
	"bridgeguard/internal/metrics"

	"github.com/gorilla/websocket"
)

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Should check Origin in production environment
		return true
	},
}

// Connection information
type Connection struct {
	ID          string          `json:"id"`
	UserAddress string          `json:"user_address"`
	Conn        *websocket.Conn `json:"-"`
	Send        chan []byte     `json:"-"`
	LastPing    time.Time       `json:"last_ping"`
}

// PushMessage base structure
type PushMessage struct {
	Type        string      `json:"type"`
	Timestamp   string      `json:"timestamp"`
	MessageID   string      `json:"message_id"`
	UserAddress string      `json:"user_address"`
	Data        interface{} `json:"data"`
}

// PushService forwards execution and recovery status updates to connected
// websocket clients
type PushService struct {
	connections map[string]*Connection
	userConns   map[string][]*Connection
	hub         chan PushMessage
	register    chan *Connection
	unregister  chan *Connection
	mutex       sync.RWMutex
}

// NewPushService creates the push service and starts its hub loop
func NewPushService() *PushService {
	service := &PushService{
		connections: make(map[string]*Connection),
		userConns:   make(map[string][]*Connection),
		hub:         make(chan PushMessage, 256),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
	}

	go service.run()
	return service
}

func (s *PushService) run() {
	for {
		select {
		case conn := <-s.register:
			s.handleRegister(conn)

		case conn := <-s.unregister:
			s.handleUnregister(conn)

		case message := <-s.hub:
			s.handleBroadcast(message)
		}
	}
}

// StartNATSBridge subscribes to execution events and forwards them to the
// account owner's websocket connections
func (s *PushService) StartNATSBridge(natsClient *clients.NATSClient) error {
	return natsClient.SubscribeToExecutionEvents(func(subject string, data []byte) {
		var payload struct {
			AccountAddress string `json:"account_address"`
		}
		if err := json.Unmarshal(data, &payload); err != nil || payload.AccountAddress == "" {
			log.Printf("⚠️ [Push] Dropping execution event without account address: %s", subject)
			return
		}

		var body interface{}
		if err := json.Unmarshal(data, &body); err != nil {
			return
		}
		s.Broadcast(payload.AccountAddress, "execution_update", body)
	})
}

// Broadcast queues a message for every connection of a user
func (s *PushService) Broadcast(userAddress, messageType string, data interface{}) {
	s.hub <- PushMessage{
		Type:        messageType,
		Timestamp:   time.Now().Format(time.RFC3339),
		MessageID:   generateMessageID(),
		UserAddress: userAddress,
		Data:        data,
	}
}

func (s *PushService) handleRegister(conn *Connection) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.connections[conn.ID] = conn
	s.userConns[conn.UserAddress] = append(s.userConns[conn.UserAddress], conn)
	metrics.WebsocketClientsConnected.Set(float64(len(s.connections)))

	log.Printf("📱 WebSocket connection registered: user=%s, connID=%s", conn.UserAddress, conn.ID)

	if conn.Send != nil {
		s.sendToConnection(conn, PushMessage{
			Type:        "connection_established",
			Timestamp:   time.Now().Format(time.RFC3339),
			MessageID:   generateMessageID(),
			UserAddress: conn.UserAddress,
			Data: map[string]interface{}{
				"user_address":  conn.UserAddress,
				"connection_id": conn.ID,
				"message":       "Real-time status connection established",
			},
		})
	}
}

func (s *PushService) handleUnregister(conn *Connection) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.connections, conn.ID)
	if userConns, exists := s.userConns[conn.UserAddress]; exists {
		for i, c := range userConns {
			if c.ID == conn.ID {
				s.userConns[conn.UserAddress] = append(userConns[:i], userConns[i+1:]...)
				break
			}
		}
		if len(s.userConns[conn.UserAddress]) == 0 {
			delete(s.userConns, conn.UserAddress)
		}
	}

	if conn.Send != nil {
		close(conn.Send)
	}
	if conn.Conn != nil {
		conn.Conn.Close()
	}
	metrics.WebsocketClientsConnected.Set(float64(len(s.connections)))

	log.Printf("📱 WebSocket connection unregistered: user=%s, connID=%s", conn.UserAddress, conn.ID)
}

func (s *PushService) handleBroadcast(message PushMessage) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	userConns, exists := s.userConns[message.UserAddress]
	if !exists {
		log.Printf("📭 No connections for user: %s", message.UserAddress)
		return
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("❌ Failed to marshal message: %v", err)
		return
	}

	successCount := 0
	failedCount := 0
	for _, conn := range userConns {
		select {
		case conn.Send <- data:
			successCount++
		default:
			failedCount++
			log.Printf("⚠️ [Push] Failed to send to connection: %s (channel full or closed)", conn.ID)
		}
	}

	log.Printf("📤 [Push] Message delivery summary: sent=%d, failed=%d, user=%s, type=%s",
		successCount, failedCount, message.UserAddress, message.Type)
}

func (s *PushService) sendToConnection(conn *Connection, message PushMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("❌ Failed to marshal message: %v", err)
		return
	}

	select {
	case conn.Send <- data:
	default:
		log.Printf("⚠️ Failed to send to connection: %s", conn.ID)
	}
}

// HandleWebSocket upgrades the request and manages the connection
func (s *PushService) HandleWebSocket(w http.ResponseWriter, r *http.Request, userAddress string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("❌ WebSocket upgrade failed: %v", err)
		return
	}

	connection := &Connection{
		ID:          generateConnectionID(),
		UserAddress: userAddress,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		LastPing:    time.Now(),
	}

	s.register <- connection

	go s.handleConnectionWrite(connection)
	go s.handleConnectionRead(connection)
}

func (s *PushService) handleConnectionWrite(conn *Connection) {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		conn.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				conn.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("❌ Write message failed: %v", err)
				return
			}

		case <-ticker.C:
			conn.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *PushService) handleConnectionRead(conn *Connection) {
	defer func() {
		s.unregister <- conn
		conn.Conn.Close()
	}()

	conn.Conn.SetReadLimit(512)
	conn.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.Conn.SetPongHandler(func(string) error {
		conn.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.LastPing = time.Now()
		return nil
	})

	for {
		_, _, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("❌ WebSocket read error: %v", err)
			}
			break
		}
	}
}

// GetActiveConnections returns the number of live connections
func (s *PushService) GetActiveConnections() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.connections)
}

func generateConnectionID() string {
	return fmt.Sprintf("conn_%d", time.Now().UnixNano())
}

func generateMessageID() string {
	return fmt.Sprintf("msg_%d", time.Now().UnixNano())
}
