// Package relay coordinates room membership and message fan-out for the
// chat relay via the Room type.
package relay

import (
	"sync"

	"github.com/google/uuid"
)

// Room is a named broadcast group. Membership is a mutex-guarded map from
// user id to user; the room holds a non-owning reference, so a worker must
// remove its user from the room before tearing it down.
//
// Rooms are created lazily by the server registry and live for the process
// duration, even with zero members.
type Room struct {
	name string

	mu      sync.Mutex
	members map[uuid.UUID]*User
}

// NewRoom creates an empty room with the given name.
func NewRoom(name string) *Room {
	return &Room{
		name:    name,
		members: make(map[uuid.UUID]*User),
	}
}

// Name returns the room's registry key.
func (r *Room) Name() string {
	return r.name
}

// AddMember inserts the user into the member set. Adding a user that is
// already a member is a no-op.
func (r *Room) AddMember(user *User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[user.ID] = user
}

// RemoveMember erases the user from the member set. Removing an absent
// user is a no-op.
func (r *Room) RemoveMember(user *User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, user.ID)
}

// MemberCount returns the current number of members.
func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// Broadcast enqueues a DELIVERY message "room:sender:text" into every
// current member's mailbox. The room lock is held for the whole fan-out so
// membership cannot change mid-broadcast; mailbox enqueue takes its own
// lock, and the Room-then-Mailbox order is the only nested acquisition in
// the system. No I/O happens under the lock — delivery to the socket is
// the subscriber worker's job.
func (r *Room) Broadcast(senderUsername, text string) {
	msg := NewMessage(TagDelivery, r.name+":"+senderUsername+":"+text)

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, member := range r.members {
		member.Mailbox.Enqueue(msg)
	}
}
