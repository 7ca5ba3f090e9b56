package realtime

import (
	"sync"

	"github.com/google/uuid"
)

// Registry tracks live sessions and the rooms each has joined. It is the
// single piece of shared in-memory state touched by every connection
// goroutine, so every mutation happens under the lock. It is constructed
// once per process and injected wherever presence or fan-out is needed.
type Registry struct {
	mu           sync.RWMutex
	sessions     map[string]*Session
	userSessions map[uuid.UUID]map[string]*Session
	rooms        map[RoomKey]map[string]*Session
	sessionRooms map[string]map[RoomKey]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:     make(map[string]*Session),
		userSessions: make(map[uuid.UUID]map[string]*Session),
		rooms:        make(map[RoomKey]map[string]*Session),
		sessionRooms: make(map[string]map[RoomKey]struct{}),
	}
}

// Register adds a session and auto-joins it to its own user room. It
// returns true when this is the user's first live session, which is the
// moment an "online" broadcast is due.
func (r *Registry) Register(sess *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[sess.ID] = sess
	r.sessionRooms[sess.ID] = make(map[RoomKey]struct{})

	userSet := r.userSessions[sess.UserID]
	first := len(userSet) == 0
	if userSet == nil {
		userSet = make(map[string]*Session)
		r.userSessions[sess.UserID] = userSet
	}
	userSet[sess.ID] = sess

	r.joinLocked(sess, UserRoom(sess.UserID))
	return first
}

// Unregister removes exactly this session's entries, leaving the user's
// other sessions untouched. It returns true when this was the user's last
// live session (offline broadcast is last-session-wins).
func (r *Registry) Unregister(sess *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[sess.ID]; !ok {
		return false
	}
	delete(r.sessions, sess.ID)

	for key := range r.sessionRooms[sess.ID] {
		r.leaveLocked(sess.ID, key)
	}
	delete(r.sessionRooms, sess.ID)

	userSet := r.userSessions[sess.UserID]
	delete(userSet, sess.ID)
	if len(userSet) == 0 {
		delete(r.userSessions, sess.UserID)
		return true
	}
	return false
}

// Join subscribes the session to a room. Unknown sessions are ignored so a
// late join racing a disconnect cannot resurrect state.
func (r *Registry) Join(sess *Session, key RoomKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sess.ID]; !ok {
		return
	}
	r.joinLocked(sess, key)
}

func (r *Registry) Leave(sess *Session, key RoomKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(sess.ID, key)
	if memberships, ok := r.sessionRooms[sess.ID]; ok {
		delete(memberships, key)
	}
}

// JoinUser subscribes every live session of the user to the room. This is
// the incremental half of the snapshot+incremental room model: membership
// mutations call it so sessions connected before the mutation still land
// in the new room.
func (r *Registry) JoinUser(userID uuid.UUID, key RoomKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sess := range r.userSessions[userID] {
		r.joinLocked(sess, key)
	}
}

// LeaveUser removes every live session of the user from the room.
func (r *Registry) LeaveUser(userID uuid.UUID, key RoomKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.userSessions[userID] {
		r.leaveLocked(id, key)
		if memberships, ok := r.sessionRooms[id]; ok {
			delete(memberships, key)
		}
	}
}

func (r *Registry) IsOnline(userID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.userSessions[userID]) > 0
}

// Online returns the set of user ids with at least one live session.
func (r *Registry) Online() []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]uuid.UUID, 0, len(r.userSessions))
	for id := range r.userSessions {
		out = append(out, id)
	}
	return out
}

// RoomSessions snapshots the sessions currently joined to the room.
func (r *Registry) RoomSessions(key RoomKey) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room := r.rooms[key]
	out := make([]*Session, 0, len(room))
	for _, sess := range room {
		out = append(out, sess)
	}
	return out
}

// RoomReachesOther reports whether any session in the room belongs to a
// user other than exclude. Delivery confirmation hinges on reaching a
// recipient, not on echoing to the sender's own devices.
func (r *Registry) RoomReachesOther(key RoomKey, exclude uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, sess := range r.rooms[key] {
		if sess.UserID != exclude {
			return true
		}
	}
	return false
}

// Sessions snapshots every live session (global broadcasts).
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		out = append(out, sess)
	}
	return out
}

func (r *Registry) joinLocked(sess *Session, key RoomKey) {
	room := r.rooms[key]
	if room == nil {
		room = make(map[string]*Session)
		r.rooms[key] = room
	}
	room[sess.ID] = sess

	memberships := r.sessionRooms[sess.ID]
	if memberships == nil {
		memberships = make(map[RoomKey]struct{})
		r.sessionRooms[sess.ID] = memberships
	}
	memberships[key] = struct{}{}
}

func (r *Registry) leaveLocked(sessionID string, key RoomKey) {
	room := r.rooms[key]
	if room == nil {
		return
	}
	delete(room, sessionID)
	if len(room) == 0 {
		delete(r.rooms, key)
	}
}
