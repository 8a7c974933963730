package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yolodolo42/clawroyale/internal/tournament"
)

const streamWriteWait = 10 * time.Second

// streamEnvelope is one frame on /api/v1/stream. Type is "status" and the
// payload is the GET /api/v1/status body.
type streamEnvelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type streamClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *streamClient) send(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}

// streamHub fans poller snapshots out to connected dashboards.
type streamHub struct {
	mu      sync.Mutex
	clients map[*streamClient]struct{}
	onCount func(int)
}

func newStreamHub(onCount func(int)) *streamHub {
	return &streamHub{clients: make(map[*streamClient]struct{}), onCount: onCount}
}

func (h *streamHub) add(conn *websocket.Conn) *streamClient {
	c := &streamClient{conn: conn}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.onCount(n)
	return c
}

func (h *streamHub) remove(c *streamClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		_ = c.conn.Close()
		h.onCount(n)
	}
}

func (h *streamHub) snapshot() []*streamClient {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*streamClient, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	return out
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// Publish pushes a fresh snapshot to every stream client. Failed refreshes
// are not forwarded; clients keep the last good state. Suitable for
// tournament.WithOnUpdate.
func (s *Server) Publish(st *tournament.State, err error) {
	if err != nil || st == nil {
		return
	}
	frame := streamEnvelope{Type: "status", Payload: s.statusBody(st)}
	for _, c := range s.hub.snapshot() {
		if err := c.send(frame); err != nil {
			s.logger.Debug("stream client dropped", "error", err)
			s.hub.remove(c)
		}
	}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		s.logger.Warn("stream upgrade failed", "error", err)
		return
	}
	c := s.hub.add(conn)
	defer s.hub.remove(c)

	if err := c.send(streamEnvelope{Type: "status", Payload: s.statusBody(s.latest())}); err != nil {
		return
	}

	// The stream is one-way. Reading only notices the close; the listener's
	// read timeout does not apply to a hijacked connection we keep open.
	_ = conn.SetReadDeadline(time.Time{})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}
