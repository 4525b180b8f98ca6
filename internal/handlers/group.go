package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"studyhub-service/internal/models"
	"studyhub-service/internal/repositories"
	"studyhub-service/internal/telemetry"
)

// GroupHandler serves the study-group REST surface: group reads (which
// trigger no-show reaping), the presence fallback for clients without a
// socket, and bounded thread history.
type GroupHandler struct {
	groups   repositories.StudyGroupRepository
	presence repositories.PresenceTracker
	messages repositories.MessageStore
	audit    *telemetry.AuditEmitter
}

// NewGroupHandler constructs a GroupHandler.
func NewGroupHandler(groups repositories.StudyGroupRepository, presence repositories.PresenceTracker, messages repositories.MessageStore, audit *telemetry.AuditEmitter) *GroupHandler {
	return &GroupHandler{
		groups:   groups,
		presence: presence,
		messages: messages,
		audit:    audit,
	}
}

// ListGroups returns every study group. Each group passes through the
// no-show policy on the way out.
func (h *GroupHandler) ListGroups(c *gin.Context) {
	groups, err := h.groups.ListGroups(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load groups"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// GetGroup fetches one group by id.
func (h *GroupHandler) GetGroup(c *gin.Context) {
	group, err := h.groups.GetGroup(c.Request.Context(), c.Param("group_id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrGroupNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "group not found"})
		return
	}
	c.JSON(http.StatusOK, group)
}

// GetPresence returns the room's current presence set.
func (h *GroupHandler) GetPresence(c *gin.Context) {
	users, err := h.presence.Get(c.Request.Context(), c.Param("group_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load presence"})
		return
	}
	if users == nil {
		users = []models.RoomUser{}
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// JoinPresence marks the caller present in the room. HTTP fallback for
// clients that have not opened a socket yet.
func (h *GroupHandler) JoinPresence(c *gin.Context) {
	groupID := c.Param("group_id")
	userID := c.GetString("userID")
	username := c.GetString("username")

	member, err := h.groups.IsParticipant(c.Request.Context(), groupID, userID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrGroupNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "group not found"})
		return
	}
	if !member {
		h.emitAudit(c, "ERROR", "presence join rejected")
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant"})
		return
	}

	users, err := h.presence.Join(c.Request.Context(), groupID, userID, username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not join room"})
		return
	}

	h.emitAudit(c, "INFO", "presence joined")
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// LeavePresence removes the caller from the room's presence set and
// from the group roster.
func (h *GroupHandler) LeavePresence(c *gin.Context) {
	groupID := c.Param("group_id")
	userID := c.GetString("userID")

	users, err := h.presence.Leave(c.Request.Context(), groupID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not leave room"})
		return
	}

	h.emitAudit(c, "INFO", "presence left")
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// GetRoomMessages returns the room's bounded thread, participants only.
func (h *GroupHandler) GetRoomMessages(c *gin.Context) {
	groupID := c.Param("group_id")
	userID := c.GetString("userID")

	member, err := h.groups.IsParticipant(c.Request.Context(), groupID, userID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrGroupNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "group not found"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant"})
		return
	}

	msgs, err := h.messages.Get(c.Request.Context(), repositories.RoomThreadKey(groupID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// GetDirectMessages returns the caller's thread with another user.
func (h *GroupHandler) GetDirectMessages(c *gin.Context) {
	friendID := c.Param("friend_id")
	userID := c.GetString("userID")
	if friendID == "" || friendID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid friend id"})
		return
	}

	msgs, err := h.messages.Get(c.Request.Context(), repositories.DirectThreadKey(userID, friendID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *GroupHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}
