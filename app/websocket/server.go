package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"EOrders/app/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/grandcat/zeroconf"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MessageType represents the type of feed message
type MessageType string

const (
	TypeConnected     MessageType = "connected"
	TypeOrderSent     MessageType = "order_sent"
	TypeOrderClosed   MessageType = "order_closed"
	TypeTableTransfer MessageType = "table_transfer"
	TypeHeartbeat     MessageType = "heartbeat"
)

// ClientType represents the type of connected client
type ClientType string

const (
	ClientBar    ClientType = "bar"
	ClientWaiter ClientType = "waiter"
)

// ServiceType is the mDNS service the feed is announced under
const ServiceType = "_eorders._tcp"

// Message represents a feed message
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// OrderSentData is the payload of order_sent. Items holds only the lines printed
// by this send: all lines for a full send, the new ones for a delta.
type OrderSentData struct {
	TableID   string             `json:"table_id"`
	TableName string             `json:"table_name"`
	Waiter    string             `json:"waiter,omitempty"`
	Delta     bool               `json:"delta"`
	Items     []models.OrderItem `json:"items"`
}

// OrderClosedData is the payload of order_closed
type OrderClosedData struct {
	TableID       string          `json:"table_id"`
	TableName     string          `json:"table_name"`
	OrderID       string          `json:"order_id"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"payment_method"`
}

// TableTransferData is the payload of table_transfer
type TableTransferData struct {
	FromTableID   string `json:"from_table_id"`
	FromTableName string `json:"from_table_name"`
	ToTableID     string `json:"to_table_id"`
	ToTableName   string `json:"to_table_name"`
}

// NewMessage builds a message with a JSON payload
func NewMessage(t MessageType, data interface{}) (Message, error) {
	msg := Message{Type: t, Timestamp: time.Now().UTC()}
	if data == nil {
		return msg, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return msg, fmt.Errorf("failed to encode %s payload: %w", t, err)
	}
	msg.Data = raw
	return msg, nil
}

// Client represents a connected feed client
type Client struct {
	ID          string
	Type        ClientType
	Connection  *websocket.Conn
	Send        chan []byte
	Server      *Server
	ConnectedAt time.Time
	RemoteAddr  string
}

// Options configures the feed server
type Options struct {
	Port              int
	MDNS              bool
	InstanceName      string
	HeartbeatInterval time.Duration
	// Extra handlers mounted on the same listener (REST, metrics)
	Routes map[string]http.Handler
	// OnClientCount is called whenever the number of clients changes
	OnClientCount func(n int)
}

// Server is the bar display feed: a hub fanning out order events to websocket clients
type Server struct {
	opts       Options
	clients    map[string]*Client
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	upgrader   websocket.Upgrader
	mu         sync.RWMutex
	log        *zap.Logger
	httpServer *http.Server
	listener   net.Listener
	mdns       *zeroconf.Server
	done       chan struct{}
	stopped    bool
	stopOnce   sync.Once
}

// NewServer creates a new feed server
func NewServer(opts Options, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = 30 * time.Second
	}
	if opts.InstanceName == "" {
		opts.InstanceName = "e-Orders"
	}
	return &Server{
		opts:       opts,
		clients:    make(map[string]*Client),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        log,
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Bar displays connect from the local network
				return true
			},
		},
	}
}

// Handler returns the HTTP routes of the feed
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	for path, h := range s.opts.Routes {
		mux.Handle(path, h)
	}
	return mux
}

// Run starts the hub loop; it returns when Stop is called
func (s *Server) Run() {
	ticker := time.NewTicker(s.opts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return

		case client := <-s.register:
			s.addClient(client)

		case client := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.clients[client.ID]; ok {
				delete(s.clients, client.ID)
				close(client.Send)
				n := len(s.clients)
				s.mu.Unlock()
				s.log.Info("Client unregistered", zap.String("client_id", client.ID))
				s.clientCountChanged(n)
			} else {
				s.mu.Unlock()
			}

		case message := <-s.broadcast:
			s.mu.Lock()
			dropped := 0
			for id, client := range s.clients {
				select {
				case client.Send <- message:
				default:
					// Client buffer is full, disconnect
					delete(s.clients, id)
					close(client.Send)
					dropped++
				}
			}
			n := len(s.clients)
			s.mu.Unlock()
			if dropped > 0 {
				s.log.Warn("Dropped slow feed clients", zap.Int("count", dropped))
				s.clientCountChanged(n)
			}

		case <-ticker.C:
			s.sendHeartbeat()
		}
	}
}

// addClient registers a client unless the server is stopping, in which case
// the connection is closed and false is returned
func (s *Server) addClient(client *Client) bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		client.Connection.Close()
		close(client.Send)
		return false
	}
	s.clients[client.ID] = client
	n := len(s.clients)
	s.mu.Unlock()

	s.log.Info("Client registered", zap.String("client_id", client.ID), zap.String("type", string(client.Type)))
	s.clientCountChanged(n)
	s.sendWelcome(client)
	return true
}

// Start listens on the configured port, runs the hub and announces the feed via
// mDNS when enabled. It returns once the listener is bound.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.opts.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.opts.Port, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.Run()
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Feed server stopped", zap.Error(err))
		}
	}()

	if s.opts.MDNS {
		s.startMDNS()
	}
	s.log.Info("Feed server started", zap.String("address", ln.Addr().String()))
	return nil
}

// startMDNS announces the feed via mDNS/Zeroconf
func (s *Server) startMDNS() {
	server, err := zeroconf.Register(
		s.opts.InstanceName,
		ServiceType,
		"local.",
		s.Port(),
		[]string{"version=1.0", "path=/ws"},
		nil, // all interfaces
	)
	if err != nil {
		s.log.Warn("mDNS: failed to register service", zap.Error(err))
		return
	}
	s.mdns = server
	s.log.Info("mDNS: feed announced", zap.String("service", ServiceType+".local"))
}

// Stop closes all clients, the HTTP listener and the mDNS announcement
func (s *Server) Stop(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		if s.mdns != nil {
			s.mdns.Shutdown()
		}
		close(s.done)

		s.mu.Lock()
		s.stopped = true
		for id, client := range s.clients {
			client.Connection.Close()
			close(client.Send)
			delete(s.clients, id)
		}
		s.mu.Unlock()

		if s.httpServer != nil {
			err = s.httpServer.Shutdown(ctx)
		}
	})
	return err
}

// Port returns the bound port, or the configured one before Start
func (s *Server) Port() int {
	if s.listener != nil {
		return s.listener.Addr().(*net.TCPAddr).Port
	}
	return s.opts.Port
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// BroadcastToBar queues a message for every connected client. It never blocks the
// caller: when the hub is saturated the message is dropped and logged.
func (s *Server) BroadcastToBar(message Message) {
	data, err := json.Marshal(message)
	if err != nil {
		s.log.Error("Error marshaling message", zap.Error(err))
		return
	}
	select {
	case s.broadcast <- data:
	case <-s.done:
	default:
		s.log.Warn("Feed broadcast queue full, dropping message", zap.String("type", string(message.Type)))
	}
}

func (s *Server) clientCountChanged(n int) {
	if s.opts.OnClientCount != nil {
		s.opts.OnClientCount(n)
	}
}

// handleWebSocket handles WebSocket connection upgrades
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	clientType := ClientType(r.URL.Query().Get("type"))
	switch clientType {
	case ClientBar, ClientWaiter:
	case "":
		clientType = ClientBar
	default:
		http.Error(w, "unknown client type", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade error", zap.Error(err))
		return
	}

	client := &Client{
		ID:          uuid.NewString(),
		Type:        clientType,
		Connection:  conn,
		Send:        make(chan []byte, 256),
		Server:      s,
		ConnectedAt: time.Now(),
		RemoteAddr:  r.RemoteAddr,
	}

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// handleHealth handles health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"clients": s.ClientCount(),
		"time":    time.Now().UTC(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// readPump only keeps the connection alive; clients do not send commands
func (c *Client) readPump() {
	defer func() {
		select {
		case c.Server.unregister <- c:
		case <-c.Server.done:
		}
		c.Connection.Close()
	}()

	c.Connection.SetReadLimit(4096)
	c.Connection.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Connection.SetPongHandler(func(string) error {
		c.Connection.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, data, err := c.Connection.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Server.log.Warn("WebSocket error", zap.String("client_id", c.ID), zap.Error(err))
			}
			return
		}

		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			continue
		}
		if message.Type == TypeHeartbeat {
			reply, _ := NewMessage(TypeHeartbeat, map[string]string{"status": "alive"})
			c.sendMessage(reply)
		}
	}
}

// writePump handles writing messages to the client
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Connection.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Connection.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Connection.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Connection.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Connection.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sendMessage queues a message for this client only. Callers must not race with
// the hub closing Send, so it is only used from the hub loop and readPump.
func (c *Client) sendMessage(message Message) {
	data, err := json.Marshal(message)
	if err != nil {
		return
	}
	c.Server.mu.RLock()
	defer c.Server.mu.RUnlock()
	if _, ok := c.Server.clients[c.ID]; !ok {
		return
	}
	select {
	case c.Send <- data:
	default:
		c.Server.log.Warn("Client send channel is full", zap.String("client_id", c.ID))
	}
}

func (s *Server) sendWelcome(client *Client) {
	msg, _ := NewMessage(TypeConnected, map[string]string{
		"client_id": client.ID,
		"type":      string(client.Type),
	})
	client.sendMessage(msg)
}

// sendHeartbeat sends heartbeat to all clients
func (s *Server) sendHeartbeat() {
	msg, _ := NewMessage(TypeHeartbeat, map[string]string{"ping": "pong"})
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, client := range s.clients {
		select {
		case client.Send <- data:
		default:
		}
	}
}
