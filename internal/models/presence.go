package models

// RoomUser is one entry in a room's presence set.
type RoomUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// PresenceRecord is the persisted presence set for one room, keyed by
// user id. Presence outlives socket connections: a user stays present
// until an explicit leave.
type PresenceRecord struct {
	Users []RoomUser `json:"users"`
}
