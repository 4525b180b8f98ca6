package repositories

import (
	"time"

	"studyhub-service/internal/models"
)

// noShowGrace is how long after the scheduled start a roster member may
// still make their first room join before being evicted.
const noShowGrace = 15 * time.Minute

// ReapNoShows removes participants who never joined the room within the
// grace window after the scheduled start. It reports whether the roster
// changed so callers persist only actual mutations, which makes it safe
// to run on every read.
//
// Groups with no schedule or no participants are never reaped.
func ReapNoShows(group *models.StudyGroup, now time.Time) bool {
	if len(group.Participants) == 0 {
		return false
	}
	start, ok := group.ScheduledStart()
	if !ok {
		return false
	}
	if now.Before(start.Add(noShowGrace)) {
		return false
	}

	kept := group.Participants[:0]
	for _, id := range group.Participants {
		if _, joined := group.FirstJoinAt[id]; joined {
			kept = append(kept, id)
		}
	}
	if len(kept) == len(group.Participants) {
		return false
	}
	group.Participants = kept
	return true
}
