package relay

import "github.com/google/uuid"

// User is one logged-in identity: a generated id, the validated username,
// the name of the room it currently belongs to (empty when not joined),
// and its owned mailbox. The id, not the pointer, is what rooms key their
// membership on, so a torn-down user can never dangle inside a member set.
//
// The room field is only touched by the worker goroutine that owns the
// user; the mailbox handles its own synchronization.
type User struct {
	ID       uuid.UUID
	Username string
	Mailbox  *Mailbox

	room string
}

// NewUser creates a user with a fresh id and an empty mailbox.
func NewUser(username string) *User {
	return &User{
		ID:       uuid.New(),
		Username: username,
		Mailbox:  NewMailbox(),
	}
}

// Room returns the name of the room the user is currently in, or "" if
// the user has not joined one.
func (u *User) Room() string {
	return u.room
}
