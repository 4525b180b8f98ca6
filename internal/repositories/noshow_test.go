package repositories

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyhub-service/internal/models"
)

func scheduledGroup(participants ...string) models.StudyGroup {
	return models.StudyGroup{
		ID:           "g1",
		Date:         "2024-01-10",
		Time:         "14:00",
		Participants: participants,
	}
}

func TestReapNoShowsRespectsGracePeriod(t *testing.T) {
	group := scheduledGroup("u1", "u2")

	// 14:10 is inside the 15 minute grace window.
	now := time.Date(2024, 1, 10, 14, 10, 0, 0, time.UTC)
	assert.False(t, ReapNoShows(&group, now))
	assert.Equal(t, []string{"u1", "u2"}, group.Participants)

	// The cutoff itself is past the window.
	now = time.Date(2024, 1, 10, 14, 15, 0, 0, time.UTC)
	assert.True(t, ReapNoShows(&group, now))
	assert.Empty(t, group.Participants)
}

func TestReapNoShowsKeepsJoinedParticipants(t *testing.T) {
	group := scheduledGroup("u1", "u2")
	group.FirstJoinAt = map[string]time.Time{
		"u1": time.Date(2024, 1, 10, 14, 5, 0, 0, time.UTC),
	}

	now := time.Date(2024, 1, 10, 14, 20, 0, 0, time.UTC)
	require.True(t, ReapNoShows(&group, now))
	assert.Equal(t, []string{"u1"}, group.Participants)
}

func TestReapNoShowsIsIdempotent(t *testing.T) {
	group := scheduledGroup("u1", "u2")
	group.FirstJoinAt = map[string]time.Time{
		"u1": time.Date(2024, 1, 10, 14, 5, 0, 0, time.UTC),
	}
	now := time.Date(2024, 1, 10, 14, 20, 0, 0, time.UTC)

	require.True(t, ReapNoShows(&group, now))
	first := append([]string(nil), group.Participants...)

	assert.False(t, ReapNoShows(&group, now))
	assert.Equal(t, first, group.Participants)
}

func TestReapNoShowsSkipsUnscheduledGroups(t *testing.T) {
	group := models.StudyGroup{ID: "g1", Participants: []string{"u1"}}
	now := time.Date(2024, 1, 10, 14, 20, 0, 0, time.UTC)

	assert.False(t, ReapNoShows(&group, now))
	assert.Equal(t, []string{"u1"}, group.Participants)

	group = models.StudyGroup{ID: "g1", Date: "2024-01-10", Participants: []string{"u1"}}
	assert.False(t, ReapNoShows(&group, now))

	group = models.StudyGroup{ID: "g1", Date: "not a date", Time: "14:00", Participants: []string{"u1"}}
	assert.False(t, ReapNoShows(&group, now))
}

func TestReapNoShowsSkipsEmptyRoster(t *testing.T) {
	group := scheduledGroup()
	now := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)
	assert.False(t, ReapNoShows(&group, now))
}
