package viewer

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// writeWait bounds a single write to a browser.
const writeWait = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// systemMessage greets a browser when it connects.
type systemMessage struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	Data      string `json:"data"`
}

// hub fans device messages out to connected browsers.
type hub struct {
	log       logrus.FieldLogger
	heartbeat time.Duration
	clients   map[*websocket.Conn]*sync.Mutex
	mu        sync.RWMutex
}

func newHub(log logrus.FieldLogger, heartbeat time.Duration) *hub {
	return &hub{
		log:       log,
		heartbeat: heartbeat,
		clients:   make(map[*websocket.Conn]*sync.Mutex),
	}
}

func (s *Server) handleClient(w http.ResponseWriter, r *http.Request) {
	if !s.admit(w, r) {
		return
	}
	defer s.leave()
	s.clients.serve(w, r)
}

// serve upgrades a browser connection and keeps it registered until the
// browser goes away. Anything the browser sends is ignored.
func (h *hub) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("client upgrade failed")
		return
	}
	defer conn.Close()

	lock := &sync.Mutex{}
	hello, _ := json.Marshal(systemMessage{
		Type:      "system",
		Timestamp: time.Now().UnixMilli(),
		Data:      "connected to visionlink viewer",
	})
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, hello); err != nil {
		return
	}

	h.mu.Lock()
	h.clients[conn] = lock
	h.mu.Unlock()
	h.log.WithField("remote", r.RemoteAddr).Info("client connected")

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		h.log.WithField("remote", r.RemoteAddr).Info("client disconnected")
	}()

	done := make(chan struct{})
	defer close(done)
	alive := keepAlive(conn, h.heartbeat, done, h.log)

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
		alive()
	}
}

// broadcast writes msg to every browser. A browser that cannot keep up is
// dropped; its read loop then unregisters it.
func (h *hub) broadcast(messageType int, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn, lock := range h.clients {
		lock.Lock()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := conn.WriteMessage(messageType, msg)
		lock.Unlock()
		if err != nil {
			h.log.WithError(err).Debug("client write failed")
			conn.Close()
		}
	}
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// closeAll sends a going-away close frame to every browser.
func (h *hub) closeAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	closeMsg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "viewer shutting down")
	for conn, lock := range h.clients {
		lock.Lock()
		conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(writeWait))
		lock.Unlock()
		conn.Close()
	}
}
