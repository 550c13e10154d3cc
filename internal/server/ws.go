package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/luca-ts/impostor-backend/internal"
)

// =============================================================================
// WEBSOCKET CONNECTION HANDLING
// =============================================================================

// checkOrigin mirrors the CORS middleware's origin policy for websocket
// upgrades. Requests without an Origin header (non-browser clients) pass.
func (s *Server) checkOrigin(r *http.Request) bool {
	if s.cfg.AllowedOrigin == "*" {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || origin == s.cfg.AllowedOrigin
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendQueueSize  = 64
)

// wsConn adapts one gorilla websocket to the engine's Conn interface. All
// writes go through a buffered queue drained by a single writer goroutine;
// when the queue is full the oldest pending message is dropped so a slow
// client can never stall the engine loop.
type wsConn struct {
	ws   *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

func newWSConn(ws *websocket.Conn) *wsConn {
	return &wsConn{
		ws:   ws,
		send: make(chan []byte, sendQueueSize),
	}
}

func (c *wsConn) Send(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	for {
		select {
		case c.send <- payload:
			return nil
		default:
			// Queue full: drop the oldest message to make room.
			select {
			case <-c.send:
			default:
			}
		}
	}
}

func (c *wsConn) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

func (c *wsConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// writePump drains the send queue onto the socket and keeps the connection
// alive with periodic pings.
func (c *wsConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// HandleWebSocket upgrades the connection and runs its read loop.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Server.HandleWebSocket] upgrade failed: %v", err)
		return
	}

	conn := newWSConn(ws)
	go conn.writePump()

	s.engine.Register(conn)
	go s.readPump(conn)
}

// readPump parses inbound actions and forwards them to the engine. It owns
// connection teardown: the engine learns about the close through Unregister.
func (s *Server) readPump(conn *wsConn) {
	defer func() {
		s.engine.Unregister(conn)
		conn.Close()
		conn.ws.Close()
	}()

	conn.ws.SetReadLimit(maxMessageSize)
	conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		conn.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[Server.readPump] read error: %v", err)
			}
			return
		}

		var msg internal.Inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Printf("[Server.readPump] failed to parse message: %v", err)
			conn.Send(internal.Message[any]{
				Type: internal.EventError,
				Data: internal.ErrorData{Message: "malformed message"},
			})
			continue
		}
		if msg.Type == "" {
			conn.Send(internal.Message[any]{
				Type: internal.EventError,
				Data: internal.ErrorData{Message: "missing message type"},
			})
			continue
		}

		s.engine.HandleMessage(conn, msg)
	}
}
