package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/hammamikhairi/vocalpal/internal/logger"
	"github.com/hammamikhairi/vocalpal/internal/session"
)

const (
	writeWait    = 5 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 50 * time.Second
	clientBuffer = 16
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The renderer is served from another origin during development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// clientMessage is what a renderer may send: {"type":"transcript","text":...}
// or {"type":"mic"}.
type clientMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

func (s *Server) stream(c echo.Context) error {
	conn, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.log.Warn("ws upgrade: %v", err)
		return nil
	}

	cl := s.hub.add(conn)
	defer s.hub.remove(cl)

	// First frame is the current state.
	var st session.State
	if err := s.runner.Do(c.Request().Context(), func() { st = s.ctrl.State() }); err == nil {
		cl.send(st)
	}

	go cl.writePump()
	s.readPump(cl)
	return nil
}

// readPump handles client commands until the connection closes.
func (s *Server) readPump(cl *client) {
	conn := cl.conn
	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("ws read: %v", err)
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch strings.ToLower(msg.Type) {
		case "transcript":
			text := msg.Text
			s.runAsync(func() { s.ctrl.HandleTranscript(text) })
		case "mic":
			s.runAsync(s.ctrl.ToggleMic)
		}
	}
}

// runAsync posts fn without waiting. Results reach the client through
// the state feed.
func (s *Server) runAsync(fn func()) {
	s.runner.Post(fn)
}

// ── Hub ──────────────────────────────────────────────────────────

type hub struct {
	log     *logger.Logger
	mu      sync.Mutex
	clients map[*client]struct{}
}

func newHub(log *logger.Logger) *hub {
	return &hub{log: log, clients: make(map[*client]struct{})}
}

func (h *hub) add(conn *websocket.Conn) *client {
	cl := &client{conn: conn, out: make(chan session.State, clientBuffer), done: make(chan struct{}), log: h.log}
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Debug("ws client connected (%d total)", n)
	return cl
}

func (h *hub) remove(cl *client) {
	h.mu.Lock()
	_, ok := h.clients[cl]
	delete(h.clients, cl)
	h.mu.Unlock()
	if ok {
		cl.close()
	}
}

func (h *hub) publish(st session.State) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		cl.send(st)
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()
	for cl := range clients {
		cl.close()
	}
}

type client struct {
	conn *websocket.Conn
	out  chan session.State
	done chan struct{}
	once sync.Once
	log  *logger.Logger
}

// send queues a state, dropping the oldest queued one when the client is
// behind. Only the latest state matters to a renderer.
func (cl *client) send(st session.State) {
	for {
		select {
		case cl.out <- st:
			return
		default:
		}
		select {
		case <-cl.out:
		default:
		}
	}
}

func (cl *client) close() {
	cl.once.Do(func() {
		close(cl.done)
		_ = cl.conn.Close()
	})
}

func (cl *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cl.done:
			return
		case st := <-cl.out:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteJSON(st); err != nil {
				cl.log.Debug("ws write: %v", err)
				cl.close()
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				cl.close()
				return
			}
		}
	}
}
