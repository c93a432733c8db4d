// Package relay implements the core of the chat relay server.
//
// The implementation is organized into specialized files for the wire
// protocol, connections, per-user mailboxes, rooms, configuration, and the
// server itself to keep the codebase maintainable and testable as the
// project grows.
package relay
