package relay

import (
	"strings"
	"testing"
)

// TestEncodeDecodeRoundTrip verifies that every valid (tag, payload) pair
// survives an encode/decode cycle unchanged, including payloads that
// themselves contain the separator character.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		tag     Tag
		payload string
	}{
		{"login", TagSLogin, "alice"},
		{"join", TagJoin, "general"},
		{"empty payload", TagLeave, ""},
		{"payload with colons", TagDelivery, "general:alice:hi there: see you at 5:30"},
		{"max length payload", TagOK, strings.Repeat("x", MaxLen-len(TagOK)-1)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			encoded, err := NewMessage(tc.tag, tc.payload).Encode()
			if err != nil {
				t.Fatalf("Encode() failed: %v", err)
			}

			decoded := Decode(string(encoded))
			if decoded.Tag != tc.tag || decoded.Payload != tc.payload {
				t.Errorf("round trip produced (%q, %q), want (%q, %q)",
					decoded.Tag, decoded.Payload, tc.tag, tc.payload)
			}
		})
	}
}

// TestEncodeRefusesOversizedMessage verifies that encoding fails before
// any bytes are produced once the encoded length reaches MaxLen.
func TestEncodeRefusesOversizedMessage(t *testing.T) {
	payload := strings.Repeat("x", MaxLen-len(TagSendAll))
	msg := NewMessage(TagSendAll, payload)

	if !msg.TooLong() {
		t.Fatal("expected message to be over the limit")
	}

	encoded, err := msg.Encode()
	if err != ErrTooLong {
		t.Errorf("Encode() error = %v, want ErrTooLong", err)
	}
	if encoded != nil {
		t.Errorf("Encode() produced %d bytes, want none", len(encoded))
	}
}

// TestDecodeWithoutSeparator verifies that a line with no ':' decodes to
// the whole line as tag with an empty payload.
func TestDecodeWithoutSeparator(t *testing.T) {
	msg := Decode("LEAVE\n")

	if msg.Tag != TagLeave {
		t.Errorf("Decode tag = %q, want %q", msg.Tag, TagLeave)
	}
	if msg.Payload != "" {
		t.Errorf("Decode payload = %q, want empty", msg.Payload)
	}
}

// TestDecodeStripsLineEndings verifies that trailing CR/LF characters are
// not carried into the payload.
func TestDecodeStripsLineEndings(t *testing.T) {
	msg := Decode("OK:joined room\r\n")

	if msg.Payload != "joined room" {
		t.Errorf("Decode payload = %q, want %q", msg.Payload, "joined room")
	}
}

// TestValidName verifies the shared username/room-name validation rule:
// non-empty, alphanumeric only, and short enough to encode.
func TestValidName(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  bool
	}{
		{"simple", "alice", true},
		{"digits", "room42", true},
		{"mixed case", "GeneralChat", true},
		{"empty", "", false},
		{"hash", "room#1", false},
		{"space", "general chat", false},
		{"colon", "a:b", false},
		{"longest valid", strings.Repeat("a", MaxLen-1), true},
		{"too long", strings.Repeat("a", MaxLen), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ValidName(tc.input); got != tc.want {
				t.Errorf("ValidName(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}
