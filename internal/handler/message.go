package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/domain"
	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/service"
	"github.com/The-Nikhil-Pandey/clinxchat-api/pkg/logger"
)

type MessageHandler struct {
	messageService service.MessageService
	log            logger.Logger
}

func NewMessageHandler(messageService service.MessageService, log logger.Logger) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		log:            log,
	}
}

// SendMessageRequest addresses either an existing conversation or, for the
// first message of a direct chat, a bare recipient.
type SendMessageRequest struct {
	Conversation *domain.ConversationRef `json:"conversation"`
	RecipientID  *uuid.UUID              `json:"recipient_id"`
	Type         string                  `json:"type" binding:"required"`
	Content      string                  `json:"content"`
	FilePath     *string                 `json:"file_path"`
	Duration     *int                    `json:"duration"`
}

func (h *MessageHandler) Send(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.messageService.Send(c.Request.Context(), currentUserID(c), service.SendInput{
		Ref:         req.Conversation,
		RecipientID: req.RecipientID,
		Type:        req.Type,
		Content:     req.Content,
		FilePath:    req.FilePath,
		Duration:    req.Duration,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *MessageHandler) Page(c *gin.Context) {
	ref, ok := conversationRef(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	messages, err := h.messageService.Page(c.Request.Context(), currentUserID(c), ref, limit, offset)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"messages": messages,
		"limit":    limit,
		"offset":   offset,
	})
}

func (h *MessageHandler) MarkSeen(c *gin.Context) {
	ref, ok := conversationRef(c)
	if !ok {
		return
	}

	// HTTP callers have no realtime session to exclude.
	updated, err := h.messageService.MarkSeen(c.Request.Context(), currentUserID(c), ref, "")
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

func (h *MessageHandler) CountUnseen(c *gin.Context) {
	ref, ok := conversationRef(c)
	if !ok {
		return
	}

	count, err := h.messageService.CountUnseen(c.Request.Context(), currentUserID(c), ref)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unseen": count})
}
