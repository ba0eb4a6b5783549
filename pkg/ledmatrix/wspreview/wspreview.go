// Package wspreview is a ledmatrix.Backend that streams frames to
// browsers over a websocket, for developing layouts without hardware.
//
// A client connecting to /ws first receives a JSON text message
// describing the panel, then one binary message per frame holding
// width*height RGB triplets in row-major order.
package wspreview

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/fkcurrie/rpi-metro-display/pkg/ledmatrix"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// frames queued per client before new frames are dropped for it
	sendBuffer = 4
)

// Topology is the first message sent to every client
type Topology struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Rows        int    `json:"rows"`
	Cols        int    `json:"cols"`
	ChainLength int    `json:"chain_length"`
	Mapping     string `json:"hardware_mapping"`
}

type message struct {
	kind int
	data []byte
}

type client struct {
	conn *websocket.Conn
	send chan message
}

// Backend broadcasts presented frames to connected websocket clients
type Backend struct {
	addr     string
	log      zerolog.Logger
	upgrader websocket.Upgrader

	mu       sync.Mutex
	ready    bool
	topology []byte
	last     []byte
	frameID  uint64
	started  time.Time
	clients  map[*client]struct{}
	server   *http.Server
	listener net.Listener
}

// Option configures a Backend
type Option func(*Backend)

// WithAddr makes Initialize start an HTTP server on addr. Without it the
// caller mounts Handler itself.
func WithAddr(addr string) Option {
	return func(b *Backend) { b.addr = addr }
}

// WithLogger sets the logger
func WithLogger(l zerolog.Logger) Option {
	return func(b *Backend) { b.log = l }
}

// New creates a preview backend
func New(opts ...Option) *Backend {
	b := &Backend{
		log:     zerolog.Nop(),
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Handler serves the preview page, the frame websocket and a health endpoint
func (b *Backend) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", b.handleIndex)
	mux.HandleFunc("/ws", b.handleFrames)
	mux.HandleFunc("/health", b.handleHealth)
	return mux
}

// Addr returns the address the server listens on, if it was started
func (b *Backend) Addr() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listener == nil {
		return ""
	}
	return b.listener.Addr().String()
}

// Initialize implements ledmatrix.Backend
func (b *Backend) Initialize(cfg ledmatrix.PanelConfig) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ready {
		return errors.New("preview backend already initialized")
	}

	top, err := json.Marshal(Topology{
		Width:       cfg.Width(),
		Height:      cfg.Height(),
		Rows:        cfg.Rows,
		Cols:        cfg.Cols,
		ChainLength: cfg.ChainLength,
		Mapping:     string(cfg.HardwareMapping),
	})
	if err != nil {
		return err
	}
	b.topology = top
	b.started = time.Now()

	if b.addr != "" {
		ln, err := net.Listen("tcp", b.addr)
		if err != nil {
			return err
		}
		b.listener = ln
		b.server = &http.Server{Handler: b.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := b.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				b.log.Error().Err(err).Msg("Preview server stopped")
			}
		}()
		b.log.Info().Str("addr", ln.Addr().String()).Msg("Preview server listening")
	}

	b.ready = true
	return nil
}

// Present implements ledmatrix.Backend
func (b *Backend) Present(frame *ledmatrix.Canvas) error {
	data := make([]byte, 0, frame.Width()*frame.Height()*3)
	for y := 0; y < frame.Height(); y++ {
		for _, p := range frame.Row(y) {
			data = append(data, p.R, p.G, p.B)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.ready {
		return errors.New("preview backend not initialized")
	}
	b.frameID++
	b.last = data
	for c := range b.clients {
		select {
		case c.send <- message{websocket.BinaryMessage, data}:
		default:
			b.log.Debug().Msg("Preview client is slow, frame dropped")
		}
	}
	return nil
}

// Close implements ledmatrix.Backend. It disconnects every client and
// stops the server if Initialize started one.
func (b *Backend) Close() error {
	b.mu.Lock()
	if !b.ready {
		b.mu.Unlock()
		return nil
	}
	b.ready = false
	for c := range b.clients {
		close(c.send)
		delete(b.clients, c)
	}
	server := b.server
	b.server, b.listener = nil, nil
	b.mu.Unlock()

	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return server.Shutdown(ctx)
	}
	return nil
}

func (b *Backend) handleFrames(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Debug().Err(err).Msg("Websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan message, sendBuffer)}

	b.mu.Lock()
	if !b.ready {
		b.mu.Unlock()
		conn.Close()
		return
	}
	c.send <- message{websocket.TextMessage, b.topology}
	if b.last != nil {
		c.send <- message{websocket.BinaryMessage, b.last}
	}
	b.clients[c] = struct{}{}
	b.mu.Unlock()

	b.log.Debug().Str("remote", r.RemoteAddr).Msg("Preview client connected")

	go b.writePump(c)
	go b.readPump(c)
}

// readPump discards client messages and unregisters the client when the
// connection goes away
func (b *Backend) readPump(c *client) {
	defer func() {
		b.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (b *Backend) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(msg.kind, msg.data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (b *Backend) remove(c *client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.send)
	}
}

func (b *Backend) handleHealth(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	resp := map[string]any{
		"ready":    b.ready,
		"frame_id": b.frameID,
		"clients":  len(b.clients),
		"uptime_s": time.Since(b.started).Seconds(),
	}
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (b *Backend) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}

var _ ledmatrix.Backend = (*Backend)(nil)
