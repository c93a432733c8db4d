// Package relay defines the line-oriented wire protocol shared by the
// server and the client programs.
package relay

import "strings"

// MaxLen is the maximum encoded length of a wire message, including the
// tag/payload separator. Messages that would encode longer than this are
// refused before any bytes are written.
const MaxLen = 255

// Tag identifies the purpose of a protocol message. The set of tags is
// closed; anything else on the wire is answered with TagErr.
type Tag string

// Protocol tags.
const (
	TagSLogin   Tag = "SLOGIN"   // login as publisher
	TagRLogin   Tag = "RLOGIN"   // login as subscriber
	TagJoin     Tag = "JOIN"     // join or switch room
	TagLeave    Tag = "LEAVE"    // leave current room
	TagSendAll  Tag = "SENDALL"  // publish text to current room
	TagQuit     Tag = "QUIT"     // end publisher session
	TagOK       Tag = "OK"       // command accepted
	TagErr      Tag = "ERR"      // command rejected
	TagDelivery Tag = "DELIVERY" // one broadcasted chat line
)

// Message is one protocol exchange unit: a tag plus a free-form payload.
// Messages are immutable once constructed and are passed by value across
// goroutine boundaries.
type Message struct {
	Tag     Tag
	Payload string
}

// NewMessage constructs a message from a tag and payload.
func NewMessage(tag Tag, payload string) Message {
	return Message{Tag: tag, Payload: payload}
}

// TooLong reports whether the message would exceed MaxLen when encoded.
func (m Message) TooLong() bool {
	return len(m.Tag)+len(m.Payload)+1 > MaxLen
}

// Encode renders the message in its canonical wire form "tag:payload\n".
// It returns ErrTooLong if the encoded form would exceed MaxLen.
func (m Message) Encode() ([]byte, error) {
	if m.TooLong() {
		return nil, ErrTooLong
	}

	buf := make([]byte, 0, len(m.Tag)+len(m.Payload)+2)
	buf = append(buf, m.Tag...)
	buf = append(buf, ':')
	buf = append(buf, m.Payload...)
	buf = append(buf, '\n')
	return buf, nil
}

// Decode parses one wire line into a message. The line is split on the
// first ':'; the payload may itself contain further ':' characters. A line
// with no separator decodes to a tag with an empty payload. Structural
// validation of the tag happens one layer up, when the tag is matched
// against the known enumeration.
func Decode(line string) Message {
	line = strings.TrimRight(line, "\r\n")

	tag, payload, _ := strings.Cut(line, ":")
	return Message{Tag: Tag(tag), Payload: payload}
}

// ValidName reports whether s is acceptable as a username or room name:
// non-empty, alphanumeric only, and short enough to fit in an encoded
// message.
func ValidName(s string) bool {
	if s == "" || len(s)+1 > MaxLen {
		return false
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9') {
			return false
		}
	}
	return true
}
