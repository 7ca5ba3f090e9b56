package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/repository"
	apperrors "github.com/The-Nikhil-Pandey/clinxchat-api/pkg/errors"
	"github.com/The-Nikhil-Pandey/clinxchat-api/pkg/logger"
)

type ChatHandler struct {
	chatRepo repository.ChatRepository
	log      logger.Logger
}

func NewChatHandler(chatRepo repository.ChatRepository, log logger.Logger) *ChatHandler {
	return &ChatHandler{
		chatRepo: chatRepo,
		log:      log,
	}
}

type OpenChatRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
}

func (h *ChatHandler) List(c *gin.Context) {
	chats, err := h.chatRepo.ListForUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, chats)
}

// Open finds or creates the direct chat with another user without sending a
// message. The chat also materializes lazily on first send, so this endpoint
// is a convenience for clients that render the conversation shell first.
func (h *ChatHandler) Open(c *gin.Context) {
	var req OpenChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID := currentUserID(c)
	if req.UserID == userID {
		fail(c, apperrors.Invalid("cannot open a chat with yourself"))
		return
	}

	chat, created, err := h.chatRepo.FindOrCreate(c.Request.Context(), userID, req.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, chat)
}
