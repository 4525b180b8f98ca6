package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"studyhub-service/internal/auth"
	"studyhub-service/internal/kv"
	"studyhub-service/internal/models"
)

type StudyGroupRepositoryMock struct {
	mock.Mock
}

func (m *StudyGroupRepositoryMock) GetGroup(ctx context.Context, groupID string) (models.StudyGroup, error) {
	args := m.Called(ctx, groupID)
	var group models.StudyGroup
	if val := args.Get(0); val != nil {
		group = val.(models.StudyGroup)
	}
	return group, args.Error(1)
}

func (m *StudyGroupRepositoryMock) ListGroups(ctx context.Context) ([]models.StudyGroup, error) {
	args := m.Called(ctx)
	var groups []models.StudyGroup
	if val := args.Get(0); val != nil {
		groups = val.([]models.StudyGroup)
	}
	return groups, args.Error(1)
}

func (m *StudyGroupRepositoryMock) SaveGroup(ctx context.Context, group models.StudyGroup) error {
	args := m.Called(ctx, group)
	return args.Error(0)
}

func (m *StudyGroupRepositoryMock) IsParticipant(ctx context.Context, groupID, userID string) (bool, error) {
	args := m.Called(ctx, groupID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *StudyGroupRepositoryMock) RecordFirstJoin(ctx context.Context, groupID, userID string, at time.Time) error {
	args := m.Called(ctx, groupID, userID, at)
	return args.Error(0)
}

func (m *StudyGroupRepositoryMock) RemoveParticipant(ctx context.Context, groupID, userID string) error {
	args := m.Called(ctx, groupID, userID)
	return args.Error(0)
}

type PresenceTrackerMock struct {
	mock.Mock
}

func (m *PresenceTrackerMock) Join(ctx context.Context, roomID, userID, username string) ([]models.RoomUser, error) {
	args := m.Called(ctx, roomID, userID, username)
	var users []models.RoomUser
	if val := args.Get(0); val != nil {
		users = val.([]models.RoomUser)
	}
	return users, args.Error(1)
}

func (m *PresenceTrackerMock) Leave(ctx context.Context, roomID, userID string) ([]models.RoomUser, error) {
	args := m.Called(ctx, roomID, userID)
	var users []models.RoomUser
	if val := args.Get(0); val != nil {
		users = val.([]models.RoomUser)
	}
	return users, args.Error(1)
}

func (m *PresenceTrackerMock) Get(ctx context.Context, roomID string) ([]models.RoomUser, error) {
	args := m.Called(ctx, roomID)
	var users []models.RoomUser
	if val := args.Get(0); val != nil {
		users = val.([]models.RoomUser)
	}
	return users, args.Error(1)
}

type MessageStoreMock struct {
	mock.Mock
}

func (m *MessageStoreMock) Append(ctx context.Context, threadKey string, msg models.Message) ([]models.Message, error) {
	args := m.Called(ctx, threadKey, msg)
	var thread []models.Message
	if val := args.Get(0); val != nil {
		thread = val.([]models.Message)
	}
	return thread, args.Error(1)
}

func (m *MessageStoreMock) Get(ctx context.Context, threadKey string) ([]models.Message, error) {
	args := m.Called(ctx, threadKey)
	var thread []models.Message
	if val := args.Get(0); val != nil {
		thread = val.([]models.Message)
	}
	return thread, args.Error(1)
}

type TokenResolverMock struct {
	mock.Mock
}

func (m *TokenResolverMock) Resolve(ctx context.Context, token string) (auth.Identity, error) {
	args := m.Called(ctx, token)
	var identity auth.Identity
	if val := args.Get(0); val != nil {
		identity = val.(auth.Identity)
	}
	return identity, args.Error(1)
}

type StoreMock struct {
	mock.Mock
}

func (m *StoreMock) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	var value []byte
	if val := args.Get(0); val != nil {
		value = val.([]byte)
	}
	return value, args.Error(1)
}

func (m *StoreMock) Set(ctx context.Context, key string, value []byte) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *StoreMock) Del(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *StoreMock) GetByPrefix(ctx context.Context, prefix string) ([][]byte, error) {
	args := m.Called(ctx, prefix)
	var values [][]byte
	if val := args.Get(0); val != nil {
		values = val.([][]byte)
	}
	return values, args.Error(1)
}

var _ auth.TokenResolver = (*TokenResolverMock)(nil)
var _ kv.Store = (*StoreMock)(nil)
