// Package observer streams per-tick world snapshots to read-only WebSocket
// clients (spectators, debugging tools). It never feeds anything back into
// the simulation.
package observer

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/1ureka/blockgame/internal/util"
)

// DefaultQueue is the number of snapshots buffered per observer.
const DefaultQueue = 16

const writeTimeout = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// PlayerView is one player as shown to observers.
type PlayerView struct {
	Player   uint32     `json:"player"`
	Session  string     `json:"session"`
	Addr     string     `json:"addr"`
	Position [3]float32 `json:"position"`
}

// Snapshot is one tick of the world as shown to observers.
type Snapshot struct {
	Tick    uint32       `json:"tick"`
	Players []PlayerView `json:"players"`
}

// Server accepts observers on /ws and fans snapshots out to them.
type Server struct {
	queue    int
	listener net.Listener

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

// NewServer creates a server that buffers up to queue snapshots per
// observer; slower observers lose the oldest ones.
func NewServer(queue int) *Server {
	if queue <= 0 {
		queue = DefaultQueue
	}
	return &Server{
		queue:   queue,
		clients: make(map[*client]struct{}),
	}
}

// Handler returns the HTTP handler serving /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// Start listens on addr and serves in the background. Returns the bound
// address.
func (s *Server) Start(addr string) (net.Addr, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to start observer server: %w", err)
	}
	s.listener = listener

	go func() {
		err := http.Serve(listener, s.Handler())
		if err != nil && !errors.Is(err, net.ErrClosed) {
			util.LogError("observer server stopped: %v", err)
		}
	}()

	util.LogInfo("observer feed on ws://%s/ws", listener.Addr())
	return listener.Addr(), nil
}

// Clients returns the number of connected observers.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Publish sends snap to every observer without blocking.
func (s *Server) Publish(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.clients) == 0 {
		return
	}

	msg, err := json.Marshal(snap)
	if err != nil {
		util.LogError("can't encode snapshot: %v", err)
		return
	}
	for c := range s.clients {
		c.enqueue(msg)
	}
}

// Close stops accepting observers and disconnects the current ones.
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	clients := s.clients
	s.clients = make(map[*client]struct{})
	s.mu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	for c := range clients {
		c.close()
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, s.queue),
		done: make(chan struct{}),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	util.LogDebug("observer %s connected", conn.RemoteAddr())

	go c.writeLoop()
	c.readLoop()

	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	c.close()
	util.LogDebug("observer %s disconnected", conn.RemoteAddr())
}

// ---------------------------------------------------------------------------
// client
// ---------------------------------------------------------------------------

type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

// enqueue never blocks: when the queue is full the oldest snapshot goes.
func (c *client) enqueue(msg []byte) {
	for {
		select {
		case c.send <- msg:
			return
		default:
		}
		select {
		case <-c.send:
		default:
		}
	}
}

// readLoop discards inbound frames until the connection fails. Reading is
// still required to process control frames.
func (c *client) readLoop() {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.close()
				return
			}
		}
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}
