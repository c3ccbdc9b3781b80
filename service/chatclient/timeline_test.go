package chatclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LPChat/module/chat/model"
)

func msg(id, roomID string, at int64, body string) *model.Message {
	return &model.Message{
		MsgID:     id,
		RoomID:    roomID,
		Sender:    model.Sender{ID: "u1", DisplayName: "Alice"},
		Body:      body,
		CreatedAt: at,
	}
}

func bodies(log []model.Message) []string {
	out := make([]string, len(log))
	for i, m := range log {
		out[i] = m.Body
	}
	return out
}

func TestApplyHistorySortsAndDedupes(t *testing.T) {
	tl := NewTimeline()
	tl.ApplyHistory("r1", []*model.Message{
		msg("m3", "r1", 300, "c"),
		msg("m1", "r1", 100, "a"),
		msg("m2", "r1", 200, "b"),
		msg("m1", "r1", 100, "a"), // duplicate id inside one page
	})
	assert.Equal(t, []string{"a", "b", "c"}, bodies(tl.Timeline("r1")))
}

func TestApplyHistoryIsIdempotent(t *testing.T) {
	tl := NewTimeline()
	page := []*model.Message{
		msg("m1", "r1", 100, "a"),
		msg("m2", "r1", 200, "b"),
	}
	tl.ApplyHistory("r1", page)
	tl.ApplyHistory("r1", page)
	require.Len(t, tl.Timeline("r1"), 2)
}

func TestApplyHistoryTiebreaksOnMsgID(t *testing.T) {
	tl := NewTimeline()
	tl.ApplyHistory("r1", []*model.Message{
		msg("m9", "r1", 100, "second"),
		msg("m1", "r1", 100, "first"),
	})
	assert.Equal(t, []string{"first", "second"}, bodies(tl.Timeline("r1")))
}

func TestApplyLiveRequiresActiveRoom(t *testing.T) {
	tl := NewTimeline()

	// no active room at all
	assert.False(t, tl.ApplyLive("r1", msg("m1", "r1", 100, "a")))

	tl.SetActive("r1")
	assert.True(t, tl.ApplyLive("r1", msg("m1", "r1", 100, "a")))

	// a different room while r1 is active
	assert.False(t, tl.ApplyLive("r2", msg("m2", "r2", 200, "b")))
	assert.Empty(t, tl.Timeline("r2"))
}

func TestApplyLiveDropsDuplicateID(t *testing.T) {
	tl := NewTimeline()
	tl.SetActive("r1")
	require.True(t, tl.ApplyLive("r1", msg("m1", "r1", 100, "a")))
	assert.False(t, tl.ApplyLive("r1", msg("m1", "r1", 100, "a")))
	assert.Len(t, tl.Timeline("r1"), 1)
}

func TestApplyLiveOutOfOrderInsertsSorted(t *testing.T) {
	tl := NewTimeline()
	tl.SetActive("r1")
	require.True(t, tl.ApplyLive("r1", msg("m2", "r1", 200, "b")))
	require.True(t, tl.ApplyLive("r1", msg("m1", "r1", 100, "a")))
	require.True(t, tl.ApplyLive("r1", msg("m3", "r1", 300, "c")))
	assert.Equal(t, []string{"a", "b", "c"}, bodies(tl.Timeline("r1")))
}

func TestHistoryMergesWithBufferedLive(t *testing.T) {
	tl := NewTimeline()
	tl.SetActive("r1")

	// live event lands while the history fetch is still in flight
	require.True(t, tl.ApplyLive("r1", msg("m3", "r1", 300, "c")))

	// the page also contains the live event
	tl.ApplyHistory("r1", []*model.Message{
		msg("m1", "r1", 100, "a"),
		msg("m2", "r1", 200, "b"),
		msg("m3", "r1", 300, "c"),
	})
	assert.Equal(t, []string{"a", "b", "c"}, bodies(tl.Timeline("r1")))
}

func TestLateEventsAfterLeaveAreDiscarded(t *testing.T) {
	tl := NewTimeline()
	tl.SetActive("r1")
	require.True(t, tl.ApplyLive("r1", msg("m0", "r1", 50, "kept")))

	tl.SetActive("")
	for i := 0; i < 10; i++ {
		assert.False(t, tl.ApplyLive("r1", msg("late", "r1", int64(100+i), "late")))
	}
	assert.Equal(t, []string{"kept"}, bodies(tl.Timeline("r1")))
}

func TestTimelineSnapshotIsACopy(t *testing.T) {
	tl := NewTimeline()
	tl.SetActive("r1")
	require.True(t, tl.ApplyLive("r1", msg("m1", "r1", 100, "a")))

	snap := tl.Timeline("r1")
	snap[0].Body = "mutated"
	assert.Equal(t, "a", tl.Timeline("r1")[0].Body)
}
