// Package relay coordinates the room registry, the TCP accept loop, and
// worker lifecycle for the chat relay via the Server type.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sort"
	"sync"
	"time"
)

// Server owns the room registry and the TCP listener, and spawns one
// worker goroutine per accepted connection. It lives for the process
// duration; Shutdown cancels the worker context, closes the listener, and
// waits for workers to exit.
type Server struct {
	cfg Config

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	rooms    map[string]*Room
	listener net.Listener

	events chan string
}

// RoomStatus is a point-in-time view of one room, used by the admin
// console and by tests.
type RoomStatus struct {
	Name    string
	Members int
}

// NewServer creates a server from the given configuration. Passing nil
// uses defaults.
func NewServer(cfg *Config) *Server {
	if cfg == nil {
		cfg = NewConfig()
	}
	sanitized := sanitizeConfig(*cfg)

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:    sanitized,
		ctx:    ctx,
		cancel: cancel,
		rooms:  make(map[string]*Room),
		events: make(chan string, 64),
	}
}

// Start binds the TCP listener and launches the accept loop. It returns
// once the server is listening.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.cfg.TCPAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.TCPAddr, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.wg.Add(1)
	go s.acceptLoop(listener)

	s.logActivity("server listening on %s", listener.Addr())
	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) acceptLoop(listener net.Listener) {
	defer s.wg.Done()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
			}
			log.Printf("Accept error: %v", err)
			return
		}

		s.wg.Add(1)
		go s.handleTCP(conn)
	}
}

// handleTCP drives one accepted TCP connection end to end. Shutdown
// unblocks a worker parked in Receive by closing the connection from the
// context watchdog.
func (s *Server) handleTCP(conn net.Conn) {
	defer s.wg.Done()

	c := NewConnection(conn, conn.RemoteAddr().String())
	stop := context.AfterFunc(s.ctx, func() { _ = c.Close() })
	defer stop()

	s.serve(c)
}

// FindOrCreateRoom returns the room registered under name, creating it on
// first reference. Rooms are never removed from the registry. The
// registry lock is held only for the lookup-or-insert, never across I/O.
func (s *Server) FindOrCreateRoom(name string) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()

	if room, ok := s.rooms[name]; ok {
		return room
	}

	room := NewRoom(name)
	s.rooms[name] = room
	return room
}

// RoomsSnapshot returns a name-sorted view of every registered room.
func (s *Server) RoomsSnapshot() []RoomStatus {
	s.mu.Lock()
	rooms := make([]*Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		rooms = append(rooms, room)
	}
	s.mu.Unlock()

	statuses := make([]RoomStatus, 0, len(rooms))
	for _, room := range rooms {
		statuses = append(statuses, RoomStatus{Name: room.Name(), Members: room.MemberCount()})
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return statuses
}

// Events returns the activity feed consumed by the admin console. Events
// are dropped, never blocked on, when nothing is reading.
func (s *Server) Events() <-chan string {
	return s.events
}

func (s *Server) logActivity(format string, v ...any) {
	log.Printf(format, v...)

	select {
	case s.events <- fmt.Sprintf(format, v...):
	default:
	}
}

// Shutdown cancels all workers, closes the listener, and waits up to
// timeout for goroutines to finish. It returns context.DeadlineExceeded
// if workers are still running when the timeout is reached.
func (s *Server) Shutdown(timeout time.Duration) error {
	log.Println("Initiating relay shutdown...")

	s.cancel()

	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	if listener != nil {
		if err := listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			log.Printf("Error closing listener: %v", err)
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Relay shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		log.Println("Relay shutdown timeout reached, some workers may still be running")
		return context.DeadlineExceeded
	}
}
