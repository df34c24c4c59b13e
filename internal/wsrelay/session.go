package wsrelay

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/nghyane/llm-wire/internal/logging"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	readLimit  = 64 << 10
)

// ErrClosed is returned by Send after the session ended.
var ErrClosed = errors.New("wsrelay: session closed")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4 << 10,
	WriteBufferSize: 16 << 10,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Session is one websocket connection. Send is safe for concurrent use; the
// read loop answers pings and notices client disconnects.
type Session struct {
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex
	done    chan struct{}
	once    sync.Once
}

// Upgrade switches the request to a websocket session tagged with id.
func Upgrade(w http.ResponseWriter, r *http.Request, id string) (*Session, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	s := &Session{id: id, conn: conn, done: make(chan struct{})}
	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go s.readLoop()
	go s.pingLoop()
	return s, nil
}

// Done is closed when the client goes away or Close is called.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) Send(msgType string, payload any) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	data, err := Encode(Message{ID: s.id, Type: msgType, Payload: payload})
	if err != nil {
		return err
	}
	return s.write(websocket.TextMessage, data)
}

func (s *Session) write(kind int, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(kind, data)
}

// Close sends a normal close frame and releases the connection.
func (s *Session) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		_ = s.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		err = s.conn.Close()
	})
	return err
}

func (s *Session) readLoop() {
	defer s.Close()
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithField("session", s.id).WithError(err).Debug("wsrelay: read failed")
			}
			return
		}
		msg, err := Decode(data)
		if err != nil {
			continue
		}
		if msg.Type == MessageTypePing {
			if err := s.Send(MessageTypePong, nil); err != nil {
				return
			}
		}
	}
}

func (s *Session) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
