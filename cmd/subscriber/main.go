// The subscriber client: logs in as a receiver, joins one room, and
// prints every delivered chat line as "sender: text".
//
// Exit codes: 0 never (the loop runs until the stream dies), 1 usage or
// connection failure, 2 any protocol-level failure.
package main

import (
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/aha8693/chat-relay/internal/relay"
)

func main() {
	if len(os.Args) != 5 {
		fmt.Fprintln(os.Stderr, "Usage: ./subscriber [server_address] [port] [username] [room]")
		os.Exit(1)
	}

	addr := net.JoinHostPort(os.Args[1], os.Args[2])
	username := os.Args[3]
	roomName := os.Args[4]

	conn, err := relay.Dial(addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Server Connection Failure")
		os.Exit(1)
	}
	defer conn.Close()

	if code := handshake(conn, relay.NewMessage(relay.TagRLogin, username), "RLOGIN"); code != 0 {
		os.Exit(code)
	}
	if code := handshake(conn, relay.NewMessage(relay.TagJoin, roomName), "JOIN"); code != 0 {
		os.Exit(code)
	}

	for {
		msg, err := conn.Receive()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Message Receive Failure")
			os.Exit(2)
		}

		if msg.Tag == relay.TagErr {
			fmt.Fprintln(os.Stderr, msg.Payload)
			os.Exit(2)
		}

		if msg.Tag != relay.TagDelivery {
			continue
		}

		// The payload is "room:sender:text"; print the last two fields.
		fields := strings.Split(msg.Payload, ":")
		if len(fields) >= 2 {
			fmt.Printf("%s: %s\n", fields[len(fields)-2], fields[len(fields)-1])
		}
	}
}

// handshake sends one request and checks for an OK reply, returning the
// process exit code to use on failure.
func handshake(conn *relay.Connection, msg relay.Message, step string) int {
	if err := conn.Send(msg); err != nil {
		fmt.Fprintln(os.Stderr, "Message Send Failure: "+step)
		return 2
	}

	reply, err := conn.Receive()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Message Receive Failure: "+step)
		return 2
	}
	if reply.Tag == relay.TagErr {
		fmt.Fprintln(os.Stderr, reply.Payload)
		return 2
	}
	return 0
}
