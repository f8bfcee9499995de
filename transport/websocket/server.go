package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/onchain-tictactoe/internal/entity"
)

const writeWait = 5 * time.Second

// Server pushes the view of a session to every page that has it open.
type Server struct {
	logger *slog.Logger

	upgrader websocket.Upgrader

	connectionsMutex sync.RWMutex
	connections      map[string]map[*connection]struct{}
}

type connection struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (that *connection) write(data []byte) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if err := that.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}

	return that.conn.WriteMessage(websocket.TextMessage, data)
}

func New(logger *slog.Logger) *Server {
	return &Server{
		logger:      logger.With("component", "websocket"),
		upgrader:    websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
		connections: make(map[string]map[*connection]struct{}),
	}
}

// Serve - upgrades the request and keeps the connection subscribed to the session until the client leaves.
func (that *Server) Serve(writer http.ResponseWriter, req *http.Request, sessionID string) {
	log := that.logger.With("method", "Serve", "session", sessionID)

	conn, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	c := &connection{conn: conn}
	that.subscribe(sessionID, c)
	defer func() {
		that.unsubscribe(sessionID, c)
		_ = conn.Close()
	}()

	log.Info("WebSocket connection established")

	// the page never sends anything, reading only notices the close
	for {
		if _, _, err = conn.ReadMessage(); err != nil {
			log.Debug("WebSocket connection closed", "error", err)
			return
		}
	}
}

// Publish - sends the session view to its subscribers. Failing connections are dropped.
func (that *Server) Publish(session *entity.Session) {
	log := that.logger.With("method", "Publish", "session", session.ID)

	data, err := marshalView(session)
	if err != nil {
		log.Error("failed to marshal view", "error", err)
		return
	}

	that.connectionsMutex.RLock()
	subscribers := make([]*connection, 0, len(that.connections[session.ID]))
	for c := range that.connections[session.ID] {
		subscribers = append(subscribers, c)
	}
	that.connectionsMutex.RUnlock()

	for _, c := range subscribers {
		if err = c.write(data); err != nil {
			log.Warn("failed to send view", "error", err)
			that.unsubscribe(session.ID, c)
			_ = c.conn.Close()
		}
	}
}

// Subscribers - number of open connections of the session.
func (that *Server) Subscribers(sessionID string) int {
	that.connectionsMutex.RLock()
	defer that.connectionsMutex.RUnlock()

	return len(that.connections[sessionID])
}

func (that *Server) subscribe(sessionID string, c *connection) {
	that.connectionsMutex.Lock()
	defer that.connectionsMutex.Unlock()

	if that.connections[sessionID] == nil {
		that.connections[sessionID] = make(map[*connection]struct{})
	}
	that.connections[sessionID][c] = struct{}{}
}

func (that *Server) unsubscribe(sessionID string, c *connection) {
	that.connectionsMutex.Lock()
	defer that.connectionsMutex.Unlock()

	delete(that.connections[sessionID], c)
	if len(that.connections[sessionID]) == 0 {
		delete(that.connections, sessionID)
	}
}

func marshalView(session *entity.Session) ([]byte, error) {
	payload, err := json.Marshal(Payload{Phase: session.Phase, View: session.View})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	data, err := json.Marshal(Message{Action: actionView, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	return data, nil
}
