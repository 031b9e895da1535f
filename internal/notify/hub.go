package notify

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"foodorder/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 32
)

// Authenticator resolves a bearer token to the caller's id and role.
type Authenticator func(token string) (userID, role string, err error)

// Hub accepts socket connections and fans events out to groups.
type Hub struct {
	registry Registry
	auth     Authenticator
	upgrader websocket.Upgrader
	now      func() time.Time

	mu       sync.Mutex
	sessions map[*Session]struct{}
}

// NewHub creates a Hub backed by registry. allowedOrigins may be empty to accept any origin.
func NewHub(registry Registry, auth Authenticator, allowedOrigins []string) *Hub {
	h := &Hub{
		registry: registry,
		auth:     auth,
		now:      time.Now,
		sessions: make(map[*Session]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(r *http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// ServeHTTP upgrades the request and serves the session until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Debug("websocket upgrade failed")
		return
	}

	s := newSession(conn, sendBuffer)
	h.mu.Lock()
	h.sessions[s] = struct{}{}
	h.mu.Unlock()
	logrus.WithField("session", s.ID).Debug("socket connected")

	go h.writePump(s)
	h.readPump(s)
}

// NotifyAdmins broadcasts to every session in the admin room.
func (h *Hub) NotifyAdmins(event string, payload interface{}) error {
	return h.broadcast(AdminRoom, event, payload)
}

// NotifyUser broadcasts to every session of one customer.
func (h *Hub) NotifyUser(userID, event string, payload interface{}) error {
	return h.broadcast(UserRoom(userID), event, payload)
}

// SessionCount reports how many sockets are connected.
func (h *Hub) SessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Close disconnects every session.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.sessions {
		s.close()
	}
}

func (h *Hub) broadcast(key, event string, payload interface{}) error {
	members := h.registry.Members(key)
	if len(members) == 0 {
		return nil
	}

	frame, err := json.Marshal(Frame{Event: event, Data: payload, Timestamp: h.now()})
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s frame", event)
	}

	var failed int
	var lastErr error
	for _, s := range members {
		if err := s.enqueue(frame); err != nil {
			failed++
			lastErr = err
		}
	}
	if failed > 0 {
		return errors.Wrapf(lastErr, "%s delivered to %d of %d sessions in %s", event, len(members)-failed, len(members), key)
	}
	return nil
}

func (h *Hub) reply(s *Session, event string, data interface{}) {
	frame, err := json.Marshal(Frame{Event: event, Data: data, Timestamp: h.now()})
	if err != nil {
		return
	}
	if err := s.enqueue(frame); err != nil {
		logrus.WithError(err).WithField("session", s.ID).Debug("dropped reply")
	}
}

func (h *Hub) readPump(s *Session) {
	defer func() {
		if key, ok := h.registry.Leave(s); ok {
			logrus.WithFields(logrus.Fields{"session": s.ID, "room": key}).Debug("left room")
		}
		h.mu.Lock()
		delete(h.sessions, s)
		h.mu.Unlock()
		s.close()
		_ = s.conn.Close()
		logrus.WithField("session", s.ID).Debug("socket disconnected")
	}()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logrus.WithError(err).WithField("session", s.ID).Debug("socket read failed")
			}
			return
		}
		h.handleMessage(s, data)
	}
}

func (h *Hub) handleMessage(s *Session, data []byte) {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.reply(s, eventError, map[string]string{"message": "malformed message"})
		return
	}

	var wantRole string
	switch msg.Event {
	case joinUserRoom:
		wantRole = models.RoleCustomer
	case joinAdminRoom:
		wantRole = models.RoleAdmin
	default:
		h.reply(s, eventError, map[string]string{"message": fmt.Sprintf("unknown event %q", msg.Event)})
		return
	}

	userID, role, err := h.auth(msg.Token)
	if err != nil {
		h.reply(s, eventError, map[string]string{"message": "invalid or expired token"})
		return
	}
	if role != wantRole {
		h.reply(s, eventError, map[string]string{"message": "token role cannot join this room"})
		return
	}

	room := AdminRoom
	if wantRole == models.RoleCustomer {
		room = UserRoom(userID)
	}
	if current, ok := s.claimGroup(room); !ok {
		h.reply(s, eventError, map[string]string{"message": "session already joined " + current})
		return
	}

	h.registry.Join(room, s)
	logrus.WithFields(logrus.Fields{"session": s.ID, "room": room}).Info("joined room")
	h.reply(s, eventJoined, map[string]string{"room": room})
}

func (h *Hub) writePump(s *Session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case frame := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.close()
				return
			}
		case <-s.done:
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}
