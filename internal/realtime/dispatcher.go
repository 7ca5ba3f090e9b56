package realtime

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/The-Nikhil-Pandey/clinxchat-api/pkg/logger"
)

// Dispatcher pushes events to live sessions. Delivery is best-effort and
// at-most-once per session: a session appearing in several target rooms
// still receives a single copy, and offline sessions receive nothing (they
// reconcile by fetching on reconnect). Dispatch does no queueing: callers
// that need commit-order fan-out serialize their write+dispatch unit per
// conversation before calling in.
type Dispatcher struct {
	registry *Registry
	log      logger.Logger
}

func NewDispatcher(registry *Registry, log logger.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, log: log}
}

// Dispatch emits the event and reports how many distinct sessions it
// reached. Send failures are logged, never propagated: fan-out must not
// fail the write that triggered it.
func (d *Dispatcher) Dispatch(ev Event) int {
	payload, err := json.Marshal(Envelope{Event: ev.Name, Data: ev.Payload})
	if err != nil {
		d.log.Error("failed to encode event", "event", ev.Name, "error", err)
		return 0
	}

	var targets []*Session
	if ev.Global {
		targets = d.registry.Sessions()
	} else {
		seen := make(map[string]struct{})
		for _, key := range ev.Rooms {
			for _, sess := range d.registry.RoomSessions(key) {
				if _, dup := seen[sess.ID]; dup {
					continue
				}
				seen[sess.ID] = struct{}{}
				targets = append(targets, sess)
			}
		}
	}

	delivered := 0
	for _, sess := range targets {
		if ev.ExcludeSession != "" && sess.ID == ev.ExcludeSession {
			continue
		}
		if err := sess.Send(payload); err != nil {
			d.log.Warn("dropped event for session", "event", ev.Name, "session_id", sess.ID, "error", err)
			continue
		}
		delivered++
	}
	return delivered
}

// DispatchToUser targets every live session of one user.
func (d *Dispatcher) DispatchToUser(userID uuid.UUID, name string, payload any) int {
	return d.Dispatch(Event{
		Name:    name,
		Rooms:   []RoomKey{UserRoom(userID)},
		Payload: payload,
	})
}

// Broadcast targets every live session (presence changes).
func (d *Dispatcher) Broadcast(name string, payload any, excludeSession string) int {
	return d.Dispatch(Event{
		Name:           name,
		Global:         true,
		ExcludeSession: excludeSession,
		Payload:        payload,
	})
}
