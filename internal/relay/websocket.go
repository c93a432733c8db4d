// Package relay exposes the WebSocket transport: HTTP handlers that
// upgrade a connection and serve the same tag:payload protocol, one
// message per text frame.
package relay

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The wire protocol carries no credentials and the browser is not a
	// first-class client here, so any origin may connect.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsTransport adapts a WebSocket session to the worker transport: each
// text frame carries exactly one encoded protocol message.
type wsTransport struct {
	conn *websocket.Conn

	mu     sync.Mutex
	closed bool
}

func (w *wsTransport) Send(msg Message) error {
	encoded, err := msg.Encode()
	if err != nil {
		return err
	}

	if err := w.conn.WriteMessage(websocket.TextMessage, encoded); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func (w *wsTransport) Receive() (Message, error) {
	_, frame, err := w.conn.ReadMessage()
	if err != nil {
		return Message{}, fmt.Errorf("read frame: %w", err)
	}

	// Same headroom as the TCP framing buffer: a maximal encoded
	// message plus its newline.
	if len(frame) > MaxLen+1 {
		return Message{}, fmt.Errorf("frame of %d bytes exceeds message limit", len(frame))
	}
	return Decode(string(frame)), nil
}

func (w *wsTransport) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	return w.conn.Close()
}

func (w *wsTransport) RemoteAddr() string {
	return w.conn.RemoteAddr().String()
}

// WebSocketHandler handles WebSocket upgrade requests and runs the
// protocol state machine over the upgraded session. The handler blocks
// for the lifetime of the session.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	t := &wsTransport{conn: conn}
	stop := context.AfterFunc(s.ctx, func() { _ = t.Close() })
	defer stop()

	s.wg.Add(1)
	defer s.wg.Done()
	s.serve(t)
}

// HealthHandler provides a simple health check endpoint that returns
// server status.
func (s *Server) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "chat-relay server is running!")
}

// SetupRoutes configures and returns an HTTP ServeMux with all
// application routes: the health check and the WebSocket endpoint.
func SetupRoutes(s *Server) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.HealthHandler)
	mux.HandleFunc("/ws", s.WebSocketHandler)
	return mux
}

// CreateHTTPServer creates and configures the HTTP server carrying the
// WebSocket transport. Read/idle limits apply to the handshake only;
// upgraded sessions are long-lived.
func CreateHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// ShutdownHTTPServer gracefully shuts down the HTTP server, waiting for
// active handshakes to finish or until the timeout is reached.
func ShutdownHTTPServer(server *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		return err
	}
	return nil
}
