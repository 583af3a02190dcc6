package apitest

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/five82/shopaura/internal/api"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type socketConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	userID  string
}

func (c *socketConn) write(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

// hub tracks sockets by the user id they joined with.
type hub struct {
	mu        sync.Mutex
	conns     map[*socketConn]struct{}
	joins     map[string]int
	refused   bool
	dropJoins bool
}

func newHub() *hub {
	return &hub{
		conns: make(map[*socketConn]struct{}),
		joins: make(map[string]int),
	}
}

func (h *hub) add(c *socketConn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) remove(c *socketConn) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
}

// join records the user and reports whether the socket should stay open.
func (h *hub) join(c *socketConn, userID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.userID = userID
	h.joins[userID]++
	return !h.dropJoins
}

func (h *hub) joined(userID string) []*socketConn {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []*socketConn
	for c := range h.conns {
		if c.userID == userID {
			out = append(out, c)
		}
	}
	return out
}

func (h *hub) closeAll() {
	h.mu.Lock()
	conns := make([]*socketConn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()
	for _, c := range conns {
		_ = c.conn.Close()
	}
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	s.sockets.mu.Lock()
	refused := s.sockets.refused
	s.sockets.mu.Unlock()
	if refused {
		http.Error(w, "socket unavailable", http.StatusServiceUnavailable)
		return
	}
	if _, ok := s.sessionUser(r); !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &socketConn{conn: conn}
	s.sockets.add(c)
	defer func() {
		s.sockets.remove(c)
		_ = conn.Close()
	}()

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			return
		}
		if f.Event != "join" {
			continue
		}
		var userID string
		if err := json.Unmarshal(f.Data, &userID); err == nil && userID != "" {
			if !s.sockets.join(c, userID) {
				return
			}
		}
	}
}

// Push stores a notification for the user and delivers it to every socket
// that joined with that user's id. The pushed payload carries "id" rather
// than "_id", like the real server's socket events. It returns the number of
// sockets reached.
func (s *Server) Push(userID string, n api.Notification) (api.Notification, int) {
	s.mu.Lock()
	n = s.addNotificationLocked(userID, n)
	s.mu.Unlock()

	payload := map[string]any{
		"id":        n.ID,
		"type":      n.Type,
		"title":     n.Title,
		"message":   n.Message,
		"createdAt": n.Timestamp,
		"isRead":    n.IsRead,
	}
	sent := 0
	for _, c := range s.sockets.joined(userID) {
		if err := c.write(map[string]any{"event": "notification", "data": payload}); err == nil {
			sent++
		}
	}
	return n, sent
}

// Joins reports how many join frames arrived for a user id.
func (s *Server) Joins(userID string) int {
	s.sockets.mu.Lock()
	defer s.sockets.mu.Unlock()
	return s.sockets.joins[userID]
}

// SocketCount reports how many sockets are open.
func (s *Server) SocketCount() int {
	s.sockets.mu.Lock()
	defer s.sockets.mu.Unlock()
	return len(s.sockets.conns)
}

// DropSockets closes every open socket from the server side.
func (s *Server) DropSockets() {
	s.sockets.closeAll()
}

// RefuseSockets makes new handshakes fail until called again with false.
func (s *Server) RefuseSockets(refuse bool) {
	s.sockets.mu.Lock()
	defer s.sockets.mu.Unlock()
	s.sockets.refused = refuse
}

// DropAfterJoin makes the server close each socket as soon as its join frame
// arrives, before sending anything.
func (s *Server) DropAfterJoin(drop bool) {
	s.sockets.mu.Lock()
	defer s.sockets.mu.Unlock()
	s.sockets.dropJoins = drop
}
