package models

import "time"

// StudyGroup is the roster record owned by the scheduling layer. This
// service reads it for authorization and mutates only Participants and
// FirstJoinAt (no-show eviction, first-join stamping).
type StudyGroup struct {
	ID           string               `json:"id"`
	Name         string               `json:"name,omitempty"`
	Date         string               `json:"date,omitempty"` // YYYY-MM-DD
	Time         string               `json:"time,omitempty"` // HH:MM
	Participants []string             `json:"participants"`
	FirstJoinAt  map[string]time.Time `json:"participantFirstJoinAt,omitempty"`
}

// ScheduledStart parses the group's date and time as UTC. ok is false
// when either field is missing or unparseable.
func (g *StudyGroup) ScheduledStart() (time.Time, bool) {
	if g.Date == "" || g.Time == "" {
		return time.Time{}, false
	}
	start, err := time.Parse("2006-01-02 15:04", g.Date+" "+g.Time)
	if err != nil {
		return time.Time{}, false
	}
	return start, true
}

// HasParticipant reports whether the user is on the group roster.
func (g *StudyGroup) HasParticipant(userID string) bool {
	for _, id := range g.Participants {
		if id == userID {
			return true
		}
	}
	return false
}
