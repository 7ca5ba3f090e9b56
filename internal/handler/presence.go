package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/service"
	"github.com/The-Nikhil-Pandey/clinxchat-api/pkg/logger"
)

type PresenceHandler struct {
	presenceService service.PresenceService
	log             logger.Logger
}

func NewPresenceHandler(presenceService service.PresenceService, log logger.Logger) *PresenceHandler {
	return &PresenceHandler{
		presenceService: presenceService,
		log:             log,
	}
}

func (h *PresenceHandler) Online(c *gin.Context) {
	users, err := h.presenceService.OnlineUsers(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"online": users})
}

func (h *PresenceHandler) IsOnline(c *gin.Context) {
	userID, ok := uuidParam(c, "userId")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id": userID,
		"online":  h.presenceService.IsOnline(c.Request.Context(), userID),
	})
}
