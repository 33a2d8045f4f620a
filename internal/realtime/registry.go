package realtime

import (
	"sync"

	domainchat "idpsupport/internal/domain/chat"
	domainuser "idpsupport/internal/domain/user"
)

// Session is one live client connection. Emit queues an event for delivery
// and must never block: a slow consumer loses events rather than stalling a
// broadcast.
type Session interface {
	ID() string
	UserID() domainuser.ID
	Emit(event string, payload any)
}

// PersonalRoom is the broadcast target reaching all of a user's connections.
func PersonalRoom(userID domainuser.ID) string {
	return "user_" + string(userID)
}

// ChatRoom is the broadcast target for one conversation.
func ChatRoom(chatID domainchat.ID) string {
	return "chat_" + string(chatID)
}

// Registry tracks which sessions joined which rooms. It holds no durable
// state; clients rejoin after a restart.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[string]map[Session]struct{}
	joined map[Session]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:  make(map[string]map[Session]struct{}),
		joined: make(map[Session]map[string]struct{}),
	}
}

// Join adds the session to a room. Joining twice is a no-op.
func (r *Registry) Join(room string, sess Session) {
	if room == "" || sess == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	members, ok := r.rooms[room]
	if !ok {
		members = make(map[Session]struct{})
		r.rooms[room] = members
	}
	members[sess] = struct{}{}

	joined, ok := r.joined[sess]
	if !ok {
		joined = make(map[string]struct{})
		r.joined[sess] = joined
	}
	joined[room] = struct{}{}
}

// Leave removes the session from a single room.
func (r *Registry) Leave(room string, sess Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(room, sess)
}

// Remove drops the session from every room it joined. Other sessions of the
// same user are unaffected.
func (r *Registry) Remove(sess Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for room := range r.joined[sess] {
		r.leaveLocked(room, sess)
	}
}

func (r *Registry) leaveLocked(room string, sess Session) {
	if members, ok := r.rooms[room]; ok {
		delete(members, sess)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}
	if joined, ok := r.joined[sess]; ok {
		delete(joined, room)
		if len(joined) == 0 {
			delete(r.joined, sess)
		}
	}
}

// InRoom reports current membership.
func (r *Registry) InRoom(room string, sess Session) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[room][sess]
	return ok
}

// RoomSize returns the number of live sessions in a room.
func (r *Registry) RoomSize(room string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[room])
}

// Broadcast delivers the event to every session currently in the room. Each
// session receives it once; nobody outside the room hears it.
func (r *Registry) Broadcast(room, event string, payload any) {
	r.BroadcastExcept(room, nil, event, payload)
}

// BroadcastExcept delivers to the room, skipping one session (used for
// messagesRead, which must not echo to the reader).
func (r *Registry) BroadcastExcept(room string, skip Session, event string, payload any) {
	r.mu.RLock()
	recipients := make([]Session, 0, len(r.rooms[room]))
	for sess := range r.rooms[room] {
		if sess == skip {
			continue
		}
		recipients = append(recipients, sess)
	}
	r.mu.RUnlock()

	for _, sess := range recipients {
		sess.Emit(event, payload)
	}
}
