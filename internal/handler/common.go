package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/domain"
)

// currentUserID reads the authenticated user id set by the auth middleware.
func currentUserID(c *gin.Context) uuid.UUID {
	id, _ := c.Get("user_id")
	userID, _ := id.(uuid.UUID)
	return userID
}

func currentUserName(c *gin.Context) string {
	name, _ := c.Get("user_name")
	s, _ := name.(string)
	return s
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

// conversationRef parses the :kind/:id path pair into a typed reference.
func conversationRef(c *gin.Context) (domain.ConversationRef, bool) {
	kind := domain.ConversationKind(c.Param("kind"))
	switch kind {
	case domain.KindChat, domain.KindGroup, domain.KindChannel:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation kind"})
		return domain.ConversationRef{}, false
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return domain.ConversationRef{}, false
	}
	return domain.ConversationRef{Kind: kind, ID: id}, true
}

// fail records the error for the error-handling middleware to map to a
// status code and JSON body.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
