package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"studyhub-service/internal/kv"
	"studyhub-service/internal/models"
)

const presenceKeyPrefix = "room-presence:"

// PresenceTracker maintains the set of users currently in a study room.
// Presence is independent of live sockets: one join marks the user
// present across all their connections until an explicit leave.
type PresenceTracker interface {
	Join(ctx context.Context, roomID, userID, username string) ([]models.RoomUser, error)
	Leave(ctx context.Context, roomID, userID string) ([]models.RoomUser, error)
	Get(ctx context.Context, roomID string) ([]models.RoomUser, error)
}

// KVPresenceTracker persists presence records per room and stamps the
// first join onto the owning StudyGroup for the no-show policy.
type KVPresenceTracker struct {
	store  kv.Store
	groups StudyGroupRepository
	now    func() time.Time
}

// NewKVPresenceTracker constructs a KVPresenceTracker.
func NewKVPresenceTracker(store kv.Store, groups StudyGroupRepository) *KVPresenceTracker {
	return &KVPresenceTracker{store: store, groups: groups, now: time.Now}
}

func presenceKey(roomID string) string {
	return presenceKeyPrefix + roomID
}

// Join adds the user to the room's presence set. Joining twice is a
// no-op that keeps the original entry, display name included.
func (t *KVPresenceTracker) Join(ctx context.Context, roomID, userID, username string) ([]models.RoomUser, error) {
	record, err := t.load(ctx, roomID)
	if err != nil {
		return nil, err
	}

	present := false
	for _, u := range record.Users {
		if u.ID == userID {
			present = true
			break
		}
	}
	if !present {
		record.Users = append(record.Users, models.RoomUser{ID: userID, Username: username})
		if err := t.save(ctx, roomID, record); err != nil {
			return nil, err
		}
	}

	// Stamp the first join for the no-show policy. Rooms without a
	// backing group record (already deleted upstream) are fine.
	if err := t.groups.RecordFirstJoin(ctx, roomID, userID, t.now()); err != nil && !errors.Is(err, ErrGroupNotFound) {
		return nil, err
	}

	return record.Users, nil
}

// Leave removes the user from the presence set and from the group
// roster: a room is no longer joinable once left.
func (t *KVPresenceTracker) Leave(ctx context.Context, roomID, userID string) ([]models.RoomUser, error) {
	record, err := t.load(ctx, roomID)
	if err != nil {
		return nil, err
	}

	kept := record.Users[:0]
	for _, u := range record.Users {
		if u.ID != userID {
			kept = append(kept, u)
		}
	}
	if len(kept) != len(record.Users) {
		record.Users = kept
		if err := t.save(ctx, roomID, record); err != nil {
			return nil, err
		}
	}

	if err := t.groups.RemoveParticipant(ctx, roomID, userID); err != nil && !errors.Is(err, ErrGroupNotFound) {
		return nil, err
	}

	return record.Users, nil
}

// Get returns the room's current presence set.
func (t *KVPresenceTracker) Get(ctx context.Context, roomID string) ([]models.RoomUser, error) {
	record, err := t.load(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return record.Users, nil
}

func (t *KVPresenceTracker) load(ctx context.Context, roomID string) (models.PresenceRecord, error) {
	raw, err := t.store.Get(ctx, presenceKey(roomID))
	if err != nil {
		return models.PresenceRecord{}, fmt.Errorf("load presence %s: %w", roomID, err)
	}
	if len(raw) == 0 {
		return models.PresenceRecord{}, nil
	}

	var record models.PresenceRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		// Malformed records read as empty.
		return models.PresenceRecord{}, nil
	}
	return record, nil
}

func (t *KVPresenceTracker) save(ctx context.Context, roomID string, record models.PresenceRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal presence %s: %w", roomID, err)
	}
	if err := t.store.Set(ctx, presenceKey(roomID), raw); err != nil {
		return fmt.Errorf("persist presence %s: %w", roomID, err)
	}
	return nil
}

var _ PresenceTracker = (*KVPresenceTracker)(nil)
