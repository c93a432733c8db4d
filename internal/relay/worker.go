// Package relay drives the per-connection protocol state machine: login
// handshake, publisher command loop, and subscriber delivery loop.
package relay

import "log"

// transport is the framed message stream a worker drives. It isolates the
// protocol loops from the underlying carrier, so the same state machine
// serves TCP connections and WebSocket sessions.
type transport interface {
	Send(Message) error
	Receive() (Message, error)
	Close() error
	RemoteAddr() string
}

// serve runs the connection lifecycle: AWAIT_LOGIN, then either the
// publisher or the subscriber loop, then teardown. Login failures reply
// ERR and close without creating a user.
func (s *Server) serve(t transport) {
	defer func() {
		if err := t.Close(); err != nil {
			log.Printf("Error closing connection from %s: %v", t.RemoteAddr(), err)
		}
	}()

	login, err := t.Receive()
	if err != nil || (login.Tag != TagSLogin && login.Tag != TagRLogin) {
		_ = t.Send(NewMessage(TagErr, "Login Message Receive Error"))
		return
	}

	if !ValidName(login.Payload) {
		_ = t.Send(NewMessage(TagErr, "Invalid username"))
		return
	}

	user := NewUser(login.Payload)
	defer s.leaveCurrentRoom(user)

	switch login.Tag {
	case TagSLogin:
		if err := t.Send(NewMessage(TagOK, "Logged in as a sender: "+user.Username)); err != nil {
			return
		}
		s.logActivity("publisher %s logged in from %s", user.Username, t.RemoteAddr())
		s.servePublisher(t, user)
	case TagRLogin:
		if err := t.Send(NewMessage(TagOK, "Logged in as a receiver: "+user.Username)); err != nil {
			return
		}
		s.logActivity("subscriber %s logged in from %s", user.Username, t.RemoteAddr())
		s.serveSubscriber(t, user)
	}

	s.logActivity("%s disconnected (%s)", user.Username, t.RemoteAddr())
}

// servePublisher runs the command/reply loop: receive one command, act,
// send exactly one reply, repeat until QUIT or a receive failure.
func (s *Server) servePublisher(t transport, user *User) {
	limiter := newRateLimiter(s.cfg.RateLimit.Burst, s.cfg.RateLimit.RefillInterval)

	for {
		msg, err := t.Receive()
		if err != nil {
			_ = t.Send(NewMessage(TagErr, "Error receiving message"))
			return
		}

		if msg.TooLong() {
			_ = t.Send(NewMessage(TagErr, "Message is too long"))
			continue
		}

		if !limiter.allow() {
			_ = t.Send(NewMessage(TagErr, "rate limit exceeded"))
			continue
		}

		switch msg.Tag {
		case TagErr:
			log.Printf("Peer %s reported: %s", t.RemoteAddr(), msg.Payload)
			return

		case TagJoin:
			if !s.joinRoom(user, msg.Payload) {
				_ = t.Send(NewMessage(TagErr, "Invalid Room number"))
				continue
			}
			_ = t.Send(NewMessage(TagOK, "joined room"))

		case TagSendAll:
			if user.room == "" {
				_ = t.Send(NewMessage(TagErr, "Not joined any room"))
				continue
			}
			s.FindOrCreateRoom(user.room).Broadcast(user.Username, msg.Payload)
			_ = t.Send(NewMessage(TagOK, "sent"))

		case TagLeave:
			if user.room == "" {
				_ = t.Send(NewMessage(TagErr, "Not in a room"))
				continue
			}
			s.leaveCurrentRoom(user)
			_ = t.Send(NewMessage(TagOK, "Left the room"))

		case TagQuit:
			_ = t.Send(NewMessage(TagOK, "Bye"))
			return

		default:
			_ = t.Send(NewMessage(TagErr, "Invalid tag"))
		}
	}
}

// serveSubscriber expects exactly one JOIN, then drains the user's
// mailbox to the connection until the server shuts down or a send fails.
// No further protocol exchange happens on the connection after the JOIN
// reply.
func (s *Server) serveSubscriber(t transport, user *User) {
	join, err := t.Receive()
	if err != nil {
		_ = t.Send(NewMessage(TagErr, "Error receiving message"))
		return
	}

	if join.Tag != TagJoin {
		_ = t.Send(NewMessage(TagErr, "Tag Error"))
		return
	}

	if !s.joinRoom(user, join.Payload) {
		_ = t.Send(NewMessage(TagErr, "Invalid Room number"))
		return
	}
	if err := t.Send(NewMessage(TagOK, "joined room")); err != nil {
		return
	}

	for {
		msg, ok := user.Mailbox.Dequeue(s.ctx)
		if !ok {
			return
		}
		if err := t.Send(msg); err != nil {
			// Stream is presumed dead; teardown releases membership.
			return
		}
	}
}

// joinRoom validates the room name and moves the user into the room,
// leaving any previously joined room first so membership is always at
// most one room.
func (s *Server) joinRoom(user *User, roomName string) bool {
	if !ValidName(roomName) {
		return false
	}

	if user.room != "" {
		s.FindOrCreateRoom(user.room).RemoveMember(user)
	}

	room := s.FindOrCreateRoom(roomName)
	room.AddMember(user)
	user.room = roomName
	s.logActivity("%s joined room %s", user.Username, roomName)
	return true
}

// leaveCurrentRoom removes the user from its room, if any. It is part of
// every worker's teardown path so a room never holds a reference to a
// destroyed user.
func (s *Server) leaveCurrentRoom(user *User) {
	if user.room == "" {
		return
	}

	s.FindOrCreateRoom(user.room).RemoveMember(user)
	s.logActivity("%s left room %s", user.Username, user.room)
	user.room = ""
}
