package chatclient

import (
	"sort"

	"LPChat/module/chat/model"
)

// Timeline keeps, per room, an ordered id-deduplicated message log. It
// is touched only from the core's event loop, so it carries no lock.
//
// Invariant: every stored sequence is non-decreasing by
// (created_at, msg_id) and contains no duplicate ids.
type Timeline struct {
	rooms  map[string][]*model.Message
	ids    map[string]map[string]struct{}
	active string
}

func NewTimeline() *Timeline {
	return &Timeline{
		rooms: make(map[string][]*model.Message),
		ids:   make(map[string]map[string]struct{}),
	}
}

// SetActive marks the room whose live events are accepted. Empty string
// means no room is active.
func (t *Timeline) SetActive(roomID string) { t.active = roomID }

func (t *Timeline) Active() string { return t.active }

// ApplyHistory merges a fetched page into the room's log: the result is
// the union of prior entries (e.g. live events buffered while the fetch
// was in flight) and the page, sorted by (created_at, msg_id) with
// duplicate ids collapsed. Applying the same page twice is a no-op.
func (t *Timeline) ApplyHistory(roomID string, msgs []*model.Message) {
	seen := t.ids[roomID]
	if seen == nil {
		seen = make(map[string]struct{})
		t.ids[roomID] = seen
	}
	log := t.rooms[roomID]
	for _, m := range msgs {
		if _, dup := seen[m.MsgID]; dup {
			continue
		}
		seen[m.MsgID] = struct{}{}
		log = append(log, m)
	}
	sort.SliceStable(log, func(i, j int) bool {
		return model.OrderBefore(log[i], log[j])
	})
	t.rooms[roomID] = log
}

// ApplyLive appends one live message if roomID is the active room and the
// id is new; anything else is discarded (duplicate delivery and
// late-arriving events for a left room are both normal, not errors).
func (t *Timeline) ApplyLive(roomID string, m *model.Message) bool {
	if roomID != t.active || roomID == "" {
		return false
	}
	seen := t.ids[roomID]
	if seen == nil {
		seen = make(map[string]struct{})
		t.ids[roomID] = seen
	}
	if _, dup := seen[m.MsgID]; dup {
		return false
	}
	seen[m.MsgID] = struct{}{}

	log := t.rooms[roomID]
	// live events normally arrive in order; fall back to a sorted insert
	// when one doesn't
	if n := len(log); n > 0 && model.OrderBefore(m, log[n-1]) {
		i := sort.Search(n, func(i int) bool { return model.OrderBefore(m, log[i]) })
		log = append(log, nil)
		copy(log[i+1:], log[i:])
		log[i] = m
	} else {
		log = append(log, m)
	}
	t.rooms[roomID] = log
	return true
}

// Timeline returns a read-only snapshot of the room's ordered log.
func (t *Timeline) Timeline(roomID string) []model.Message {
	log := t.rooms[roomID]
	out := make([]model.Message, len(log))
	for i, m := range log {
		out[i] = *m
	}
	return out
}
