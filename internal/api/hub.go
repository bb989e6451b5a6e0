package api

import (
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const wsWriteTimeout = 5 * time.Second

type wsMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// hub fans server events out to every connected UI client. Writes are
// serialized because a websocket connection allows one writer at a time.
type hub struct {
	logger   *logrus.Logger
	metrics  *metrics
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func newHub(logger *logrus.Logger, m *metrics) *hub {
	return &hub{
		logger:  logger,
		metrics: m,
		clients: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: loopbackOrigin,
		},
	}
}

// loopbackOrigin accepts requests without an Origin header and pages served
// from a loopback host.
func loopbackOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return loopbackHostname(u.Hostname())
}

func loopbackHostname(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (h *hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()
	h.metrics.wsClients.Inc()

	// Clients only listen; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(conn)
}

func (h *hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()

	if ok {
		h.metrics.wsClients.Dec()
		_ = conn.Close()
	}
}

func (h *hub) broadcast(messageType string, data any) {
	msg, err := json.Marshal(wsMessage{Type: messageType, Data: data})
	if err != nil {
		h.logger.WithError(err).Error("marshal websocket message")
		return
	}

	h.mu.Lock()
	var failed []*websocket.Conn
	for conn := range h.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.WithError(err).Debug("websocket write failed")
			failed = append(failed, conn)
		}
	}
	h.mu.Unlock()

	for _, conn := range failed {
		h.remove(conn)
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		h.remove(conn)
	}
}

// pointerCapture tells the UI to attach or drop its global pointer
// listeners for the comparison slider.
type pointerCapture struct {
	hub *hub
}

func (c pointerCapture) Capture() {
	c.hub.broadcast("pointer_capture", map[string]bool{"captured": true})
}

func (c pointerCapture) Release() {
	c.hub.broadcast("pointer_capture", map[string]bool{"captured": false})
}
