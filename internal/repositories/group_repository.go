package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"studyhub-service/internal/kv"
	"studyhub-service/internal/models"
)

var ErrGroupNotFound = errors.New("study group not found")

const groupKeyPrefix = "study-group:"

// StudyGroupRepository reads and conditionally mutates StudyGroup
// records. The records are owned by the scheduling layer; this service
// touches only the participant roster and first-join timestamps.
type StudyGroupRepository interface {
	GetGroup(ctx context.Context, groupID string) (models.StudyGroup, error)
	ListGroups(ctx context.Context) ([]models.StudyGroup, error)
	SaveGroup(ctx context.Context, group models.StudyGroup) error
	IsParticipant(ctx context.Context, groupID, userID string) (bool, error)
	RecordFirstJoin(ctx context.Context, groupID, userID string, at time.Time) error
	RemoveParticipant(ctx context.Context, groupID, userID string) error
}

// KVGroupRepo is the kv-backed StudyGroupRepository. Every read runs
// the no-show policy and persists the group back only when the roster
// actually changed.
type KVGroupRepo struct {
	store kv.Store
	now   func() time.Time
}

// NewKVGroupRepo constructs a KVGroupRepo.
func NewKVGroupRepo(store kv.Store) *KVGroupRepo {
	return &KVGroupRepo{store: store, now: time.Now}
}

func groupKey(groupID string) string {
	return groupKeyPrefix + groupID
}

// GetGroup fetches one group, applying no-show reaping lazily.
func (r *KVGroupRepo) GetGroup(ctx context.Context, groupID string) (models.StudyGroup, error) {
	raw, err := r.store.Get(ctx, groupKey(groupID))
	if err != nil {
		return models.StudyGroup{}, fmt.Errorf("load group %s: %w", groupID, err)
	}
	if len(raw) == 0 {
		return models.StudyGroup{}, ErrGroupNotFound
	}

	var group models.StudyGroup
	if err := json.Unmarshal(raw, &group); err != nil {
		return models.StudyGroup{}, ErrGroupNotFound
	}
	if group.ID == "" {
		group.ID = groupID
	}

	if ReapNoShows(&group, r.now().UTC()) {
		if err := r.SaveGroup(ctx, group); err != nil {
			log.Printf("persist reaped group %s: %v", groupID, err)
		}
	}
	return group, nil
}

// ListGroups returns every group, each reaped lazily on the way out.
func (r *KVGroupRepo) ListGroups(ctx context.Context) ([]models.StudyGroup, error) {
	values, err := r.store.GetByPrefix(ctx, groupKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}

	groups := make([]models.StudyGroup, 0, len(values))
	for _, raw := range values {
		var group models.StudyGroup
		if err := json.Unmarshal(raw, &group); err != nil {
			continue
		}
		if ReapNoShows(&group, r.now().UTC()) {
			if err := r.SaveGroup(ctx, group); err != nil {
				log.Printf("persist reaped group %s: %v", group.ID, err)
			}
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// SaveGroup persists the whole group record as one upsert.
func (r *KVGroupRepo) SaveGroup(ctx context.Context, group models.StudyGroup) error {
	raw, err := json.Marshal(group)
	if err != nil {
		return fmt.Errorf("marshal group %s: %w", group.ID, err)
	}
	if err := r.store.Set(ctx, groupKey(group.ID), raw); err != nil {
		return fmt.Errorf("persist group %s: %w", group.ID, err)
	}
	return nil
}

// IsParticipant checks whether the user is on the group roster.
func (r *KVGroupRepo) IsParticipant(ctx context.Context, groupID, userID string) (bool, error) {
	group, err := r.GetGroup(ctx, groupID)
	if err != nil {
		return false, err
	}
	return group.HasParticipant(userID), nil
}

// RecordFirstJoin stamps the user's first join on the group, once. Later
// joins never overwrite the stamp.
func (r *KVGroupRepo) RecordFirstJoin(ctx context.Context, groupID, userID string, at time.Time) error {
	group, err := r.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if _, ok := group.FirstJoinAt[userID]; ok {
		return nil
	}
	if group.FirstJoinAt == nil {
		group.FirstJoinAt = make(map[string]time.Time)
	}
	group.FirstJoinAt[userID] = at.UTC()
	return r.SaveGroup(ctx, group)
}

// RemoveParticipant drops the user from the roster; removing an absent
// user is a no-op.
func (r *KVGroupRepo) RemoveParticipant(ctx context.Context, groupID, userID string) error {
	group, err := r.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	kept := group.Participants[:0]
	for _, id := range group.Participants {
		if id != userID {
			kept = append(kept, id)
		}
	}
	if len(kept) == len(group.Participants) {
		return nil
	}
	group.Participants = kept
	return r.SaveGroup(ctx, group)
}

var _ StudyGroupRepository = (*KVGroupRepo)(nil)
