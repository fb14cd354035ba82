package tracking

import (
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"smartbus-service/pkg/httpx"
	"smartbus-service/pkg/jwt"
)

// Channel names. Bus channels are "bus:{code}", per-user booking channels
// "user:{id}".
const (
	ChannelFleet    = "fleet"
	ChannelBookings = "bookings"
)

func BusChannel(code string) string    { return "bus:" + code }
func UserChannel(userID string) string { return "user:" + userID }

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is the envelope written to subscribers.
type Message struct {
	Type string    `json:"type"`
	Data any       `json:"data"`
	TS   time.Time `json:"ts"`
}

// safeConn wraps a websocket.Conn with a write mutex.
// gorilla/websocket allows one concurrent writer; this enforces that.
type safeConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *safeConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(v)
}

func (c *safeConn) close() { c.ws.Close() }

// Hub manages WebSocket subscribers per channel.
type Hub struct {
	mu    sync.RWMutex
	conns map[string][]*safeConn
}

// NewHub creates a tracking hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[string][]*safeConn)}
}

// Routes returns a chi.Router for the /ws mount point. /buses/{id} takes
// the bus code (e.g. SB001), matched case-insensitively. /bookings takes the
// bearer token in the "token" query parameter: admins receive every
// booking event, passengers only their own.
func (h *Hub) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/fleet", func(w http.ResponseWriter, r *http.Request) {
		h.serve(w, r, ChannelFleet)
	})
	r.Get("/buses/{id}", func(w http.ResponseWriter, r *http.Request) {
		h.serve(w, r, BusChannel(strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "id")))))
	})
	r.Get("/bookings", h.bookings)
	return r
}

func (h *Hub) bookings(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		httpx.Error(w, http.StatusUnauthorized, "Access token required")
		return
	}
	claims, err := jwt.Validate(token)
	if err != nil {
		httpx.Error(w, http.StatusForbidden, "Invalid or expired token")
		return
	}
	channel := UserChannel(claims.UserID)
	if claims.Role == jwt.RoleAdmin {
		channel = ChannelBookings
	}
	h.serve(w, r, channel)
}

// serve upgrades the connection and keeps it subscribed to channel until
// the client goes away.
func (h *Hub) serve(w http.ResponseWriter, r *http.Request, channel string) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade error: %v", err)
		return
	}

	conn := &safeConn{ws: ws}

	h.mu.Lock()
	h.conns[channel] = append(h.conns[channel], conn)
	h.mu.Unlock()

	log.Printf("[ws] client connected to %s", channel)

	// Block until the client disconnects
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	h.removeConn(channel, conn)
	conn.close()
	log.Printf("[ws] client disconnected from %s", channel)
}

// Broadcast pushes a message of the given type to every subscriber of
// channel. Safe for concurrent calls.
func (h *Hub) Broadcast(channel, msgType string, data any) {
	h.mu.RLock()
	conns := append([]*safeConn(nil), h.conns[channel]...)
	h.mu.RUnlock()

	if len(conns) == 0 {
		return
	}
	msg := Message{Type: msgType, Data: data, TS: time.Now().UTC()}
	for _, c := range conns {
		if err := c.writeJSON(msg); err != nil {
			log.Printf("[ws] write error on %s: %v", channel, err)
		}
	}
}

// Subscribers reports how many connections listen on channel.
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[channel])
}

func (h *Hub) removeConn(channel string, conn *safeConn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.conns[channel]
	for i, c := range conns {
		if c == conn {
			h.conns[channel] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.conns[channel]) == 0 {
		delete(h.conns, channel)
	}
}
