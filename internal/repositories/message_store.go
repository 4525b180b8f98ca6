package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"studyhub-service/internal/kv"
	"studyhub-service/internal/models"
)

// maxThreadMessages bounds every thread; the oldest messages are
// silently dropped once the bound is exceeded.
const maxThreadMessages = 200

const (
	directThreadPrefix = "dm-thread:"
	roomThreadPrefix   = "room-thread:"
)

// DirectThreadKey derives the storage key for the thread between two
// users. The pair is sorted so both participants resolve to the same key.
func DirectThreadKey(userA, userB string) string {
	if userB < userA {
		userA, userB = userB, userA
	}
	return directThreadPrefix + userA + "_" + userB
}

// RoomThreadKey derives the storage key for a room's thread.
func RoomThreadKey(roomID string) string {
	return roomThreadPrefix + roomID
}

// MessageStore persists bounded message threads.
type MessageStore interface {
	Append(ctx context.Context, threadKey string, msg models.Message) ([]models.Message, error)
	Get(ctx context.Context, threadKey string) ([]models.Message, error)
}

// KVMessageStore stores each thread as one JSON array under its thread
// key. Append is a read-modify-write of the whole array: a per-thread
// lock serializes appends within this process, but two processes writing
// the same thread still race last-writer-wins.
type KVMessageStore struct {
	store kv.Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKVMessageStore constructs a KVMessageStore.
func NewKVMessageStore(store kv.Store) *KVMessageStore {
	return &KVMessageStore{store: store, locks: make(map[string]*sync.Mutex)}
}

func (s *KVMessageStore) threadLock(threadKey string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[threadKey]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[threadKey] = lock
	}
	return lock
}

// Append adds the message to the thread, trims it to the bound and
// persists it back as one unit. The stored thread is returned.
func (s *KVMessageStore) Append(ctx context.Context, threadKey string, msg models.Message) ([]models.Message, error) {
	lock := s.threadLock(threadKey)
	lock.Lock()
	defer lock.Unlock()

	thread, err := s.load(ctx, threadKey)
	if err != nil {
		return nil, err
	}

	thread = append(thread, msg)
	if len(thread) > maxThreadMessages {
		thread = thread[len(thread)-maxThreadMessages:]
	}

	raw, err := json.Marshal(thread)
	if err != nil {
		return nil, fmt.Errorf("marshal thread %s: %w", threadKey, err)
	}
	if err := s.store.Set(ctx, threadKey, raw); err != nil {
		return nil, fmt.Errorf("persist thread %s: %w", threadKey, err)
	}
	return thread, nil
}

// Get returns the thread in insertion order. Missing or malformed
// records read as an empty thread.
func (s *KVMessageStore) Get(ctx context.Context, threadKey string) ([]models.Message, error) {
	return s.load(ctx, threadKey)
}

func (s *KVMessageStore) load(ctx context.Context, threadKey string) ([]models.Message, error) {
	raw, err := s.store.Get(ctx, threadKey)
	if err != nil {
		return nil, fmt.Errorf("load thread %s: %w", threadKey, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var thread []models.Message
	if err := json.Unmarshal(raw, &thread); err != nil {
		// Legacy or partially written records read as empty.
		return nil, nil
	}
	return thread, nil
}

var _ MessageStore = (*KVMessageStore)(nil)
