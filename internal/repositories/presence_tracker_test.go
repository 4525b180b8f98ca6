package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyhub-service/internal/kv"
	"studyhub-service/internal/models"
)

func newPresenceFixture(t *testing.T) (*KVPresenceTracker, *KVGroupRepo) {
	t.Helper()
	store := kv.NewMemoryStore()
	groups := NewKVGroupRepo(store)
	tracker := NewKVPresenceTracker(store, groups)
	return tracker, groups
}

func TestJoinAddsUserOnce(t *testing.T) {
	tracker, _ := newPresenceFixture(t)
	ctx := context.Background()

	users, err := tracker.Join(ctx, "g1", "u1", "ana")
	require.NoError(t, err)
	assert.Equal(t, []models.RoomUser{{ID: "u1", Username: "ana"}}, users)

	// Rejoining keeps the original entry, stale display name included.
	users, err = tracker.Join(ctx, "g1", "u1", "ana-renamed")
	require.NoError(t, err)
	assert.Equal(t, []models.RoomUser{{ID: "u1", Username: "ana"}}, users)
}

func TestJoinStampsFirstJoinOnce(t *testing.T) {
	tracker, groups := newPresenceFixture(t)
	ctx := context.Background()

	require.NoError(t, groups.SaveGroup(ctx, models.StudyGroup{ID: "g1", Participants: []string{"u1"}}))

	first := time.Date(2024, 1, 10, 14, 5, 0, 0, time.UTC)
	tracker.now = func() time.Time { return first }
	_, err := tracker.Join(ctx, "g1", "u1", "ana")
	require.NoError(t, err)

	tracker.now = func() time.Time { return first.Add(time.Hour) }
	_, err = tracker.Join(ctx, "g1", "u1", "ana")
	require.NoError(t, err)

	group, err := groups.GetGroup(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, first, group.FirstJoinAt["u1"])
}

func TestJoinWithoutBackingGroup(t *testing.T) {
	tracker, _ := newPresenceFixture(t)

	// No study-group record exists for this room. Presence still works.
	users, err := tracker.Join(context.Background(), "g1", "u1", "ana")
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestLeaveRemovesUserAndRosterEntry(t *testing.T) {
	tracker, groups := newPresenceFixture(t)
	ctx := context.Background()

	require.NoError(t, groups.SaveGroup(ctx, models.StudyGroup{ID: "g1", Participants: []string{"u1", "u2"}}))

	_, err := tracker.Join(ctx, "g1", "u1", "ana")
	require.NoError(t, err)
	_, err = tracker.Join(ctx, "g1", "u2", "ben")
	require.NoError(t, err)

	users, err := tracker.Leave(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, []models.RoomUser{{ID: "u2", Username: "ben"}}, users)

	group, err := groups.GetGroup(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, group.Participants)
}

func TestLeaveAbsentUserIsNoop(t *testing.T) {
	tracker, _ := newPresenceFixture(t)
	ctx := context.Background()

	_, err := tracker.Join(ctx, "g1", "u1", "ana")
	require.NoError(t, err)

	users, err := tracker.Leave(ctx, "g1", "u9")
	require.NoError(t, err)
	assert.Equal(t, []models.RoomUser{{ID: "u1", Username: "ana"}}, users)
}

func TestGetEmptyRoom(t *testing.T) {
	tracker, _ := newPresenceFixture(t)

	users, err := tracker.Get(context.Background(), "g1")
	require.NoError(t, err)
	assert.Empty(t, users)
}
