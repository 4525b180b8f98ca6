package mocks

import (
	"studyhub-service/internal/repositories"
)

var _ repositories.StudyGroupRepository = (*StudyGroupRepositoryMock)(nil)
var _ repositories.PresenceTracker = (*PresenceTrackerMock)(nil)
var _ repositories.MessageStore = (*MessageStoreMock)(nil)
