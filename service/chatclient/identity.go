package chatclient

import (
	"strings"

	"LPChat/module/chat/model"
)

// Identity resolves presentation facts about authorship and room labels
// for the current session. It never mutates messages or rooms.
type Identity struct {
	UserID      string
	DisplayName string
}

// IsMine reports whether the message was authored by the current
// session. Sender ids may arrive as different concrete representations
// (bare reference vs materialized record), so the comparison is on the
// resolved id string.
func (id Identity) IsMine(m *model.Message) bool {
	return m.Sender.ID != "" && m.Sender.ID == id.UserID
}

const privateNameSep = " & "

// RoomDisplayName derives the label to render for a room. Public rooms
// keep their authored name. Private rooms store a composite
// ("Alice & Bob"); the current session's own display name and the
// separator are stripped so the counterpart's name remains. When the
// stripping empties the label, the raw stored name is the fallback.
func (id Identity) RoomDisplayName(r *model.Room) string {
	if !r.IsPrivate() || id.DisplayName == "" {
		return r.Name
	}
	out := strings.Replace(r.Name, id.DisplayName, "", 1)
	out = strings.Replace(out, privateNameSep, "", 1)
	out = strings.TrimSpace(out)
	if out == "" {
		return r.Name
	}
	return out
}
