package realtime

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

// fakeConn satisfies Conn without any transport.
type fakeConn struct {
	closed bool
}

func (c *fakeConn) ReadMessage() (int, []byte, error)         { select {} }
func (c *fakeConn) WriteMessage(int, []byte) error            { return nil }
func (c *fakeConn) WriteControl(int, []byte, time.Time) error { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error          { return nil }
func (c *fakeConn) Close() error                              { c.closed = true; return nil }

func newTestSession(userID uuid.UUID) *Session {
	return NewSession(userID, &fakeConn{}, SessionOptions{})
}

func TestRegisterFirstAndUnregisterLast(t *testing.T) {
	r := NewRegistry()
	user := uuid.New()

	s1 := newTestSession(user)
	s2 := newTestSession(user)

	if first := r.Register(s1); !first {
		t.Fatal("first session should report first=true")
	}
	if first := r.Register(s2); first {
		t.Fatal("second session of same user should report first=false")
	}
	if !r.IsOnline(user) {
		t.Fatal("user with sessions should be online")
	}

	if last := r.Unregister(s1); last {
		t.Fatal("user still has a session, last should be false")
	}
	if !r.IsOnline(user) {
		t.Fatal("user should stay online while one session remains")
	}
	if last := r.Unregister(s2); !last {
		t.Fatal("removing the final session should report last=true")
	}
	if r.IsOnline(user) {
		t.Fatal("user without sessions should be offline")
	}
}

func TestRegisterAutoJoinsUserRoom(t *testing.T) {
	r := NewRegistry()
	user := uuid.New()
	s := newTestSession(user)
	r.Register(s)

	sessions := r.RoomSessions(UserRoom(user))
	if len(sessions) != 1 || sessions[0].ID != s.ID {
		t.Fatalf("expected session in user room, got %d sessions", len(sessions))
	}
}

func TestRoomNamespacesDoNotCollide(t *testing.T) {
	r := NewRegistry()
	id := uuid.New() // same uuid for a group and a chat
	user := uuid.New()
	s := newTestSession(user)
	r.Register(s)
	r.Join(s, GroupRoom(id))

	if got := len(r.RoomSessions(GroupRoom(id))); got != 1 {
		t.Fatalf("group room should have 1 session, got %d", got)
	}
	if got := len(r.RoomSessions(ChatRoom(id))); got != 0 {
		t.Fatalf("chat room with same uuid must stay empty, got %d", got)
	}
}

func TestJoinUserCoversAllSessions(t *testing.T) {
	r := NewRegistry()
	user := uuid.New()
	s1 := newTestSession(user)
	s2 := newTestSession(user)
	r.Register(s1)
	r.Register(s2)

	groupID := uuid.New()
	r.JoinUser(user, GroupRoom(groupID))

	if got := len(r.RoomSessions(GroupRoom(groupID))); got != 2 {
		t.Fatalf("both sessions should be in the room, got %d", got)
	}

	r.LeaveUser(user, GroupRoom(groupID))
	if got := len(r.RoomSessions(GroupRoom(groupID))); got != 0 {
		t.Fatalf("room should be empty after LeaveUser, got %d", got)
	}
}

func TestUnregisterRemovesFromRooms(t *testing.T) {
	r := NewRegistry()
	user := uuid.New()
	s := newTestSession(user)
	r.Register(s)

	room := GroupRoom(uuid.New())
	r.Join(s, room)
	r.Unregister(s)

	if got := len(r.RoomSessions(room)); got != 0 {
		t.Fatalf("unregistered session must leave its rooms, got %d", got)
	}
}

func TestRoomReachesOther(t *testing.T) {
	r := NewRegistry()
	sender := uuid.New()
	recipient := uuid.New()
	room := GroupRoom(uuid.New())

	senderSess := newTestSession(sender)
	r.Register(senderSess)
	r.Join(senderSess, room)

	if r.RoomReachesOther(room, sender) {
		t.Fatal("room holding only the sender reaches nobody else")
	}

	recipientSess := newTestSession(recipient)
	r.Register(recipientSess)
	r.Join(recipientSess, room)

	if !r.RoomReachesOther(room, sender) {
		t.Fatal("room with another user's session should reach someone")
	}
}

func TestJoinUnknownSessionIsIgnored(t *testing.T) {
	r := NewRegistry()
	s := newTestSession(uuid.New())
	room := GroupRoom(uuid.New())
	// never registered
	r.Join(s, room)

	if got := len(r.RoomSessions(room)); got != 0 {
		t.Fatalf("unregistered session must not join rooms, got %d", got)
	}
}
