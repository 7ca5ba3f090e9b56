package realtime

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"github.com/The-Nikhil-Pandey/clinxchat-api/pkg/logger"
)

func drain(s *Session) []Envelope {
	var out []Envelope
	for {
		select {
		case raw := <-s.send:
			var env Envelope
			if err := json.Unmarshal(raw, &env); err != nil {
				panic(err)
			}
			out = append(out, env)
		default:
			return out
		}
	}
}

func TestDispatchAtMostOncePerSession(t *testing.T) {
	r := NewRegistry()
	d := NewDispatcher(r, logger.Nop())

	user := uuid.New()
	s := newTestSession(user)
	r.Register(s)

	roomA := GroupRoom(uuid.New())
	roomB := ChannelRoom(uuid.New())
	r.Join(s, roomA)
	r.Join(s, roomB)

	// Session sits in both target rooms but must receive one copy.
	delivered := d.Dispatch(Event{
		Name:    EventReceiveMessage,
		Rooms:   []RoomKey{roomA, roomB},
		Payload: map[string]string{"k": "v"},
	})
	if delivered != 1 {
		t.Fatalf("expected 1 delivery, got %d", delivered)
	}
	if got := len(drain(s)); got != 1 {
		t.Fatalf("expected 1 buffered frame, got %d", got)
	}
}

func TestDispatchExcludesOriginSession(t *testing.T) {
	r := NewRegistry()
	d := NewDispatcher(r, logger.Nop())

	user := uuid.New()
	origin := newTestSession(user)
	other := newTestSession(user)
	r.Register(origin)
	r.Register(other)

	room := GroupRoom(uuid.New())
	r.Join(origin, room)
	r.Join(other, room)

	delivered := d.Dispatch(Event{
		Name:           EventTyping,
		Rooms:          []RoomKey{room},
		ExcludeSession: origin.ID,
		Payload:        TypingPayload{UserID: user},
	})
	if delivered != 1 {
		t.Fatalf("expected 1 delivery, got %d", delivered)
	}
	if got := len(drain(origin)); got != 0 {
		t.Fatalf("origin session must not echo its own indicator, got %d frames", got)
	}
	if got := len(drain(other)); got != 1 {
		t.Fatalf("sibling session should receive the indicator, got %d frames", got)
	}
}

func TestDispatchToUserHitsAllDevices(t *testing.T) {
	r := NewRegistry()
	d := NewDispatcher(r, logger.Nop())

	user := uuid.New()
	s1 := newTestSession(user)
	s2 := newTestSession(user)
	r.Register(s1)
	r.Register(s2)

	stranger := newTestSession(uuid.New())
	r.Register(stranger)

	delivered := d.DispatchToUser(user, EventNotification, map[string]string{"hello": "there"})
	if delivered != 2 {
		t.Fatalf("expected both device sessions, got %d", delivered)
	}
	if got := len(drain(stranger)); got != 0 {
		t.Fatalf("other users must not receive user-room events, got %d", got)
	}
}

func TestBroadcastReachesEverySession(t *testing.T) {
	r := NewRegistry()
	d := NewDispatcher(r, logger.Nop())

	for i := 0; i < 3; i++ {
		r.Register(newTestSession(uuid.New()))
	}

	delivered := d.Broadcast(EventUserOnline, PresencePayload{UserID: uuid.New()}, "")
	if delivered != 3 {
		t.Fatalf("expected 3 deliveries, got %d", delivered)
	}
}

func TestDispatchEnvelopeShape(t *testing.T) {
	r := NewRegistry()
	d := NewDispatcher(r, logger.Nop())

	user := uuid.New()
	s := newTestSession(user)
	r.Register(s)

	d.DispatchToUser(user, EventNotification, map[string]string{"a": "b"})

	frames := drain(s)
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if frames[0].Event != EventNotification {
		t.Fatalf("unexpected event name %q", frames[0].Event)
	}
}
