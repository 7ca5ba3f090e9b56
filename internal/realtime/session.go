package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	defaultWriteWait  = 10 * time.Second
	defaultPingPeriod = 30 * time.Second
	defaultSendBuffer = 128
)

// Conn is the transport surface a Session writes to. *websocket.Conn
// satisfies it; tests substitute a fake.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Session wraps one live transport connection for one user. Outbound
// writes go through a buffered channel so fan-out never blocks on a slow
// client; a full buffer closes the session to keep backpressure bounded.
// One user may hold many concurrent sessions (multi-device).
type Session struct {
	ID     string
	UserID uuid.UUID

	conn       Conn
	send       chan []byte
	once       sync.Once
	closed     chan struct{}
	writeWait  time.Duration
	pingPeriod time.Duration
}

type SessionOptions struct {
	WriteWait  time.Duration
	PingPeriod time.Duration
	SendBuffer int
}

func NewSession(userID uuid.UUID, conn Conn, opts SessionOptions) *Session {
	if opts.WriteWait <= 0 {
		opts.WriteWait = defaultWriteWait
	}
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = defaultPingPeriod
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	return &Session{
		ID:         uuid.NewString(),
		UserID:     userID,
		conn:       conn,
		send:       make(chan []byte, opts.SendBuffer),
		closed:     make(chan struct{}),
		writeWait:  opts.WriteWait,
		pingPeriod: opts.PingPeriod,
	}
}

// ReadMessage blocks on the next inbound frame. Only the owning read loop
// may call it.
func (s *Session) ReadMessage() (int, []byte, error) {
	return s.conn.ReadMessage()
}

// Start launches the write loop. Call exactly once per session.
func (s *Session) Start() {
	go s.writeLoop()
}

// Send enqueues payload for delivery. Delivery is best-effort and
// at-most-once: if the buffer is full the session is closed instead of
// blocking the dispatcher.
func (s *Session) Send(payload []byte) error {
	select {
	case <-s.closed:
		return errors.New("session closed")
	case s.send <- payload:
		return nil
	default:
		s.Close(websocket.CloseGoingAway, "send buffer full")
		return errors.New("send buffer exceeded")
	}
}

// Closed reports whether the session has been shut down.
func (s *Session) Closed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// Close terminates the connection and stops the write loop.
func (s *Session) Close(code int, reason string) {
	s.once.Do(func() {
		close(s.closed)
		deadline := time.Now().Add(s.writeWait)
		_ = s.conn.SetWriteDeadline(deadline)
		_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
		_ = s.conn.Close()
	})
}

func (s *Session) writeLoop() {
	ticker := time.NewTicker(s.pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.closed:
			return
		case msg := <-s.send:
			if err := s.write(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := s.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Session) write(messageType int, payload []byte) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeWait)); err != nil {
		return err
	}
	return s.conn.WriteMessage(messageType, payload)
}
