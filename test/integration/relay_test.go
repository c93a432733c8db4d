// Package integration contains end-to-end tests that exercise the relay
// server over real TCP connections, covering the full login, room, and
// delivery flows.
package integration

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aha8693/chat-relay/internal/relay"
	"github.com/aha8693/chat-relay/test/testhelpers"
)

// TestPublishSubscribeDelivery runs the happy path: a publisher logs in,
// joins a room, and sends a message; a subscriber in the same room
// receives the delivery with the room:sender:text payload.
func TestPublishSubscribeDelivery(t *testing.T) {
	server := testhelpers.StartRelay(t)

	subscriber := testhelpers.DialRelay(t, server)
	testhelpers.LoginSubscriber(t, subscriber, "bob", "general")

	publisher := testhelpers.DialRelay(t, server)
	testhelpers.LoginPublisher(t, publisher, "alice")
	testhelpers.ExpectOK(t, testhelpers.Request(t, publisher, relay.NewMessage(relay.TagJoin, "general")))
	testhelpers.ExpectOK(t, testhelpers.Request(t, publisher, relay.NewMessage(relay.TagSendAll, "hi")))

	delivery, err := subscriber.Receive()
	if err != nil {
		t.Fatalf("subscriber receive failed: %v", err)
	}
	if delivery.Tag != relay.TagDelivery {
		t.Fatalf("subscriber received tag %s, want DELIVERY", delivery.Tag)
	}
	if delivery.Payload != "general:alice:hi" {
		t.Errorf("delivery payload = %q, want %q", delivery.Payload, "general:alice:hi")
	}
}

// TestDeliveryOrderPreserved verifies that one publisher's messages reach
// a subscriber in publish order.
func TestDeliveryOrderPreserved(t *testing.T) {
	server := testhelpers.StartRelay(t)

	subscriber := testhelpers.DialRelay(t, server)
	testhelpers.LoginSubscriber(t, subscriber, "bob", "ordered")

	publisher := testhelpers.DialRelay(t, server)
	testhelpers.LoginPublisher(t, publisher, "alice")
	testhelpers.ExpectOK(t, testhelpers.Request(t, publisher, relay.NewMessage(relay.TagJoin, "ordered")))

	const count = 20
	for i := 0; i < count; i++ {
		testhelpers.ExpectOK(t, testhelpers.Request(t, publisher,
			relay.NewMessage(relay.TagSendAll, fmt.Sprintf("m%d", i))))
	}

	for i := 0; i < count; i++ {
		delivery, err := subscriber.Receive()
		if err != nil {
			t.Fatalf("receive %d failed: %v", i, err)
		}
		if want := fmt.Sprintf("ordered:alice:m%d", i); delivery.Payload != want {
			t.Fatalf("delivery %d = %q, want %q", i, delivery.Payload, want)
		}
	}
}

// TestSendBeforeJoin verifies that SENDALL without a joined room is
// rejected and the session keeps going.
func TestSendBeforeJoin(t *testing.T) {
	server := testhelpers.StartRelay(t)

	publisher := testhelpers.DialRelay(t, server)
	testhelpers.LoginPublisher(t, publisher, "alice")

	testhelpers.ExpectErr(t,
		testhelpers.Request(t, publisher, relay.NewMessage(relay.TagSendAll, "hello")),
		"Not joined any room")

	// The loop must still be alive.
	testhelpers.ExpectOK(t, testhelpers.Request(t, publisher, relay.NewMessage(relay.TagJoin, "general")))
}

// TestJoinInvalidRoomName verifies that a non-alphanumeric room name is
// rejected.
func TestJoinInvalidRoomName(t *testing.T) {
	server := testhelpers.StartRelay(t)

	publisher := testhelpers.DialRelay(t, server)
	testhelpers.LoginPublisher(t, publisher, "alice")

	testhelpers.ExpectErr(t,
		testhelpers.Request(t, publisher, relay.NewMessage(relay.TagJoin, "room#1")),
		"Invalid Room number")
}

// TestLeaveWithoutRoom verifies the LEAVE error and success paths.
func TestLeaveWithoutRoom(t *testing.T) {
	server := testhelpers.StartRelay(t)

	publisher := testhelpers.DialRelay(t, server)
	testhelpers.LoginPublisher(t, publisher, "alice")

	testhelpers.ExpectErr(t,
		testhelpers.Request(t, publisher, relay.NewMessage(relay.TagLeave, "")),
		"Not in a room")

	testhelpers.ExpectOK(t, testhelpers.Request(t, publisher, relay.NewMessage(relay.TagJoin, "general")))
	testhelpers.ExpectOK(t, testhelpers.Request(t, publisher, relay.NewMessage(relay.TagLeave, "")))
}

// TestInvalidTagRejected verifies that an unknown tag draws an ERR and
// the loop continues.
func TestInvalidTagRejected(t *testing.T) {
	server := testhelpers.StartRelay(t)

	publisher := testhelpers.DialRelay(t, server)
	testhelpers.LoginPublisher(t, publisher, "alice")

	testhelpers.ExpectErr(t,
		testhelpers.Request(t, publisher, relay.NewMessage("BOGUS", "x")),
		"Invalid tag")

	testhelpers.ExpectOK(t, testhelpers.Request(t, publisher, relay.NewMessage(relay.TagJoin, "general")))
}

// TestLoginRejectsBadHandshake verifies that a connection opening with a
// non-login tag or an invalid username is refused.
func TestLoginRejectsBadHandshake(t *testing.T) {
	server := testhelpers.StartRelay(t)

	wrongTag := testhelpers.DialRelay(t, server)
	reply := testhelpers.Request(t, wrongTag, relay.NewMessage(relay.TagJoin, "general"))
	if reply.Tag != relay.TagErr {
		t.Errorf("login with JOIN tag replied %s, want ERR", reply.Tag)
	}

	badName := testhelpers.DialRelay(t, server)
	testhelpers.ExpectErr(t,
		testhelpers.Request(t, badName, relay.NewMessage(relay.TagSLogin, "al ice")),
		"Invalid username")
}

// TestOversizedSendRefusedLocally verifies that a payload pushing the
// encoded length past the limit is refused by the client-side connection
// before any bytes are written, and the session stays usable.
func TestOversizedSendRefusedLocally(t *testing.T) {
	server := testhelpers.StartRelay(t)

	publisher := testhelpers.DialRelay(t, server)
	testhelpers.LoginPublisher(t, publisher, "alice")

	oversized := relay.NewMessage(relay.TagSendAll, strings.Repeat("x", relay.MaxLen-1))
	err := publisher.Send(oversized)
	if !errors.Is(err, relay.ErrTooLong) {
		t.Fatalf("Send() error = %v, want ErrTooLong", err)
	}
	if !errors.Is(publisher.LastResult(), relay.ErrTooLong) {
		t.Errorf("LastResult() = %v, want ErrTooLong", publisher.LastResult())
	}

	// Nothing was written, so the server is still waiting for the first
	// command.
	testhelpers.ExpectOK(t, testhelpers.Request(t, publisher, relay.NewMessage(relay.TagJoin, "general")))
}

// TestQuitRepliesBeforeClose verifies that QUIT is acknowledged with OK
// before either side closes the connection.
func TestQuitRepliesBeforeClose(t *testing.T) {
	server := testhelpers.StartRelay(t)

	publisher := testhelpers.DialRelay(t, server)
	testhelpers.LoginPublisher(t, publisher, "alice")

	reply := testhelpers.Request(t, publisher, relay.NewMessage(relay.TagQuit, ""))
	testhelpers.ExpectOK(t, reply)
	if reply.Payload != "Bye" {
		t.Errorf("QUIT reply payload = %q, want %q", reply.Payload, "Bye")
	}

	// The server side closes after the reply; the next receive fails.
	if _, err := publisher.Receive(); err == nil {
		t.Error("connection still delivering messages after QUIT")
	}
}

// TestJoinSwitchesRooms pins down the corrected double-join semantics:
// joining a second room while already in one leaves membership in exactly
// the new room.
func TestJoinSwitchesRooms(t *testing.T) {
	server := testhelpers.StartRelay(t)

	publisher := testhelpers.DialRelay(t, server)
	testhelpers.LoginPublisher(t, publisher, "alice")
	testhelpers.ExpectOK(t, testhelpers.Request(t, publisher, relay.NewMessage(relay.TagJoin, "first")))
	testhelpers.ExpectOK(t, testhelpers.Request(t, publisher, relay.NewMessage(relay.TagJoin, "second")))

	counts := make(map[string]int)
	for _, status := range server.RoomsSnapshot() {
		counts[status.Name] = status.Members
	}

	if counts["first"] != 0 {
		t.Errorf("old room still has %d members, want 0", counts["first"])
	}
	if counts["second"] != 1 {
		t.Errorf("new room has %d members, want 1", counts["second"])
	}
}

// TestBroadcastScopedToRoom verifies that a message published to one room
// is not delivered to a subscriber in another.
func TestBroadcastScopedToRoom(t *testing.T) {
	server := testhelpers.StartRelay(t)

	inRoom := testhelpers.DialRelay(t, server)
	testhelpers.LoginSubscriber(t, inRoom, "bob", "target")

	elsewhere := testhelpers.DialRelay(t, server)
	testhelpers.LoginSubscriber(t, elsewhere, "carol", "other")

	publisher := testhelpers.DialRelay(t, server)
	testhelpers.LoginPublisher(t, publisher, "alice")
	testhelpers.ExpectOK(t, testhelpers.Request(t, publisher, relay.NewMessage(relay.TagJoin, "target")))
	testhelpers.ExpectOK(t, testhelpers.Request(t, publisher, relay.NewMessage(relay.TagSendAll, "scoped")))

	delivery, err := inRoom.Receive()
	if err != nil {
		t.Fatalf("in-room subscriber receive failed: %v", err)
	}
	if delivery.Payload != "target:alice:scoped" {
		t.Errorf("delivery payload = %q, want %q", delivery.Payload, "target:alice:scoped")
	}

	// A second publish proves the other subscriber saw nothing in
	// between: its first delivery, if any ever came, would have been the
	// first message.
	testhelpers.ExpectOK(t, testhelpers.Request(t, publisher, relay.NewMessage(relay.TagJoin, "other")))
	testhelpers.ExpectOK(t, testhelpers.Request(t, publisher, relay.NewMessage(relay.TagSendAll, "marker")))

	first, err := elsewhere.Receive()
	if err != nil {
		t.Fatalf("other-room subscriber receive failed: %v", err)
	}
	if first.Payload != "other:alice:marker" {
		t.Errorf("other-room subscriber first delivery = %q, want %q", first.Payload, "other:alice:marker")
	}
}

// TestRateLimitedPublisher verifies that a publisher exceeding the
// configured command budget is answered with an ERR while the session
// stays open. Token refill timing is covered by the limiter unit tests.
func TestRateLimitedPublisher(t *testing.T) {
	cfg := relay.NewConfig()
	cfg.TCPAddr = "127.0.0.1:0"
	cfg.HTTPAddr = ""
	cfg.RateLimit.Burst = 2
	cfg.RateLimit.RefillInterval = time.Hour

	server := relay.NewServer(cfg)
	if err := server.Start(); err != nil {
		t.Fatalf("failed to start relay server: %v", err)
	}
	t.Cleanup(func() { _ = server.Shutdown(5 * time.Second) })

	publisher := testhelpers.DialRelay(t, server)
	testhelpers.LoginPublisher(t, publisher, "alice")

	testhelpers.ExpectOK(t, testhelpers.Request(t, publisher, relay.NewMessage(relay.TagJoin, "general")))
	testhelpers.ExpectOK(t, testhelpers.Request(t, publisher, relay.NewMessage(relay.TagSendAll, "one")))
	testhelpers.ExpectErr(t,
		testhelpers.Request(t, publisher, relay.NewMessage(relay.TagSendAll, "two")),
		"rate limit exceeded")
}

// TestShutdownReleasesWorkers verifies that Shutdown unblocks parked
// subscriber and publisher workers and returns within its timeout.
func TestShutdownReleasesWorkers(t *testing.T) {
	cfg := relay.NewConfig()
	cfg.TCPAddr = "127.0.0.1:0"
	cfg.HTTPAddr = ""

	server := relay.NewServer(cfg)
	if err := server.Start(); err != nil {
		t.Fatalf("failed to start relay server: %v", err)
	}

	subscriber := testhelpers.DialRelay(t, server)
	testhelpers.LoginSubscriber(t, subscriber, "bob", "general")

	publisher := testhelpers.DialRelay(t, server)
	testhelpers.LoginPublisher(t, publisher, "alice")

	if err := server.Shutdown(5 * time.Second); err != nil {
		t.Fatalf("Shutdown() = %v, want nil", err)
	}
}
