// Package testhelpers provides common utilities for testing the chat
// relay server.
//
// It contains reusable helpers shared across unit and integration tests:
// starting a throwaway server on an ephemeral port, dialing protocol
// connections, and asserting on replies, to reduce duplication in test
// files.
package testhelpers

import (
	"testing"
	"time"

	"github.com/aha8693/chat-relay/internal/relay"
)

// StartRelay starts a relay server on an ephemeral loopback port and
// registers its shutdown as test cleanup. It returns the running server;
// use server.Addr() to dial it.
func StartRelay(t *testing.T) *relay.Server {
	t.Helper()

	cfg := relay.NewConfig()
	cfg.TCPAddr = "127.0.0.1:0"
	cfg.HTTPAddr = ""
	cfg.RateLimit.Burst = 1000

	server := relay.NewServer(cfg)
	if err := server.Start(); err != nil {
		t.Fatalf("failed to start relay server: %v", err)
	}
	t.Cleanup(func() {
		if err := server.Shutdown(5 * time.Second); err != nil {
			t.Errorf("server shutdown: %v", err)
		}
	})
	return server
}

// DialRelay opens a protocol connection to the given server and registers
// its close as test cleanup.
func DialRelay(t *testing.T, server *relay.Server) *relay.Connection {
	t.Helper()

	conn, err := relay.Dial(server.Addr())
	if err != nil {
		t.Fatalf("failed to dial relay server: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// Request sends one message and returns the server's reply, failing the
// test on any transport error.
func Request(t *testing.T, conn *relay.Connection, msg relay.Message) relay.Message {
	t.Helper()

	if err := conn.Send(msg); err != nil {
		t.Fatalf("send %s failed: %v", msg.Tag, err)
	}
	reply, err := conn.Receive()
	if err != nil {
		t.Fatalf("receive reply to %s failed: %v", msg.Tag, err)
	}
	return reply
}

// ExpectOK asserts that the reply carries the OK tag.
func ExpectOK(t *testing.T, reply relay.Message) {
	t.Helper()
	if reply.Tag != relay.TagOK {
		t.Fatalf("reply = (%s, %q), want OK", reply.Tag, reply.Payload)
	}
}

// ExpectErr asserts that the reply is an ERR with the given payload.
func ExpectErr(t *testing.T, reply relay.Message, payload string) {
	t.Helper()
	if reply.Tag != relay.TagErr {
		t.Fatalf("reply = (%s, %q), want ERR", reply.Tag, reply.Payload)
	}
	if reply.Payload != payload {
		t.Errorf("ERR payload = %q, want %q", reply.Payload, payload)
	}
}

// LoginPublisher performs the SLOGIN handshake.
func LoginPublisher(t *testing.T, conn *relay.Connection, username string) {
	t.Helper()
	ExpectOK(t, Request(t, conn, relay.NewMessage(relay.TagSLogin, username)))
}

// LoginSubscriber performs the RLOGIN handshake followed by the single
// JOIN, leaving the connection in its delivery-drain state.
func LoginSubscriber(t *testing.T, conn *relay.Connection, username, room string) {
	t.Helper()
	ExpectOK(t, Request(t, conn, relay.NewMessage(relay.TagRLogin, username)))
	ExpectOK(t, Request(t, conn, relay.NewMessage(relay.TagJoin, room)))
}
