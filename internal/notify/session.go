package notify

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	// ErrSessionClosed is returned when writing to a disconnected session.
	ErrSessionClosed = errors.New("session closed")
	// ErrSendBufferFull is returned when a slow client has not drained its queue.
	ErrSendBufferFull = errors.New("session send buffer full")
)

// Session is one connected socket.
type Session struct {
	ID   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once

	mu    sync.Mutex
	group string
}

func newSession(conn *websocket.Conn, buffer int) *Session {
	return &Session{
		ID:   uuid.New().String(),
		conn: conn,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

// enqueue hands a frame to the writer without blocking.
func (s *Session) enqueue(frame []byte) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	select {
	case s.send <- frame:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (s *Session) close() {
	s.once.Do(func() { close(s.done) })
}

// claimGroup records the single group this session may join.
func (s *Session) claimGroup(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.group != "" {
		return s.group, false
	}
	s.group = key
	return key, true
}
