// The publisher client: logs in as a sender and translates an interactive
// command loop (/join, /leave, /quit, plain text) into protocol requests.
//
// Exit codes: 0 normal quit, 1 usage or connection failure, 2 any
// protocol-level login failure.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/aha8693/chat-relay/internal/relay"
)

func main() {
	if len(os.Args) != 4 {
		fmt.Fprintln(os.Stderr, "Usage: ./publisher [server_address] [port] [username]")
		os.Exit(1)
	}

	addr := net.JoinHostPort(os.Args[1], os.Args[2])
	username := os.Args[3]

	conn, err := relay.Dial(addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Server Connection Failure")
		os.Exit(1)
	}
	defer conn.Close()

	if code := login(conn, username); code != 0 {
		os.Exit(code)
	}

	os.Exit(commandLoop(conn))
}

func login(conn *relay.Connection, username string) int {
	if err := conn.Send(relay.NewMessage(relay.TagSLogin, username)); err != nil {
		fmt.Fprintln(os.Stderr, "Message Send Failure: SLOGIN")
		return 2
	}

	reply, err := conn.Receive()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Message Receive Failure: SLOGIN")
		return 2
	}
	if reply.Tag == relay.TagErr {
		fmt.Fprintln(os.Stderr, reply.Payload)
		return 2
	}
	return 0
}

func commandLoop(conn *relay.Connection) int {
	scanner := bufio.NewScanner(os.Stdin)

	for scanner.Scan() {
		input := scanner.Text()

		var msg relay.Message
		switch {
		case strings.HasPrefix(input, "/join "):
			msg = relay.NewMessage(relay.TagJoin, strings.TrimPrefix(input, "/join "))
		case input == "/leave":
			msg = relay.NewMessage(relay.TagLeave, "")
		case input == "/quit":
			return quit(conn)
		case !strings.HasPrefix(input, "/"):
			msg = relay.NewMessage(relay.TagSendAll, input)
		default:
			fmt.Fprintln(os.Stderr, "Invalid commands: "+input)
			continue
		}

		if err := conn.Send(msg); err != nil {
			fmt.Fprintln(os.Stderr, "Message Send Failure: "+string(msg.Tag))
			if errors.Is(conn.LastResult(), relay.ErrTooLong) {
				fmt.Fprintln(os.Stderr, "Message is too long")
			}
			continue
		}

		reply, err := conn.Receive()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Message Receive Failure: "+input)
			continue
		}
		if reply.Tag == relay.TagErr {
			fmt.Fprintln(os.Stderr, reply.Payload)
		}
	}

	return 0
}

// quit sends QUIT and waits for the server reply before exiting, so the
// OK is observed before either side closes the stream.
func quit(conn *relay.Connection) int {
	if err := conn.Send(relay.NewMessage(relay.TagQuit, "")); err != nil {
		fmt.Fprintln(os.Stderr, "Message Send Failure: QUIT")
		return 2
	}

	reply, err := conn.Receive()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Message Receive Failure: QUIT")
		return 2
	}
	if reply.Tag == relay.TagErr {
		fmt.Fprintln(os.Stderr, reply.Payload)
		return 2
	}
	return 0
}
