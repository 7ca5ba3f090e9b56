package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/service"
	"github.com/The-Nikhil-Pandey/clinxchat-api/pkg/logger"
)

type ChannelHandler struct {
	channelService service.ChannelService
	log            logger.Logger
}

func NewChannelHandler(channelService service.ChannelService, log logger.Logger) *ChannelHandler {
	return &ChannelHandler{
		channelService: channelService,
		log:            log,
	}
}

type CreateChannelRequest struct {
	Name      string `json:"name" binding:"required"`
	Type      string `json:"type"`
	IsDefault bool   `json:"is_default"`
}

func (h *ChannelHandler) Create(c *gin.Context) {
	teamID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	channel, err := h.channelService.Create(c.Request.Context(), currentUserID(c), teamID, req.Name, req.Type, req.IsDefault)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, channel)
}

func (h *ChannelHandler) Get(c *gin.Context) {
	channelID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	channel, err := h.channelService.Get(c.Request.Context(), currentUserID(c), channelID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, channel)
}

func (h *ChannelHandler) ListForTeam(c *gin.Context) {
	teamID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	channels, err := h.channelService.ListForTeam(c.Request.Context(), currentUserID(c), teamID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, channels)
}

func (h *ChannelHandler) ListMine(c *gin.Context) {
	teamID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	channels, err := h.channelService.ListMine(c.Request.Context(), currentUserID(c), teamID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, channels)
}

func (h *ChannelHandler) Delete(c *gin.Context) {
	channelID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.channelService.Delete(c.Request.Context(), currentUserID(c), channelID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ChannelHandler) Join(c *gin.Context) {
	channelID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.channelService.Join(c.Request.Context(), currentUserID(c), channelID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "joined"})
}

func (h *ChannelHandler) Leave(c *gin.Context) {
	channelID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.channelService.Leave(c.Request.Context(), currentUserID(c), channelID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ChannelHandler) AddMember(c *gin.Context) {
	channelID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.channelService.AddMember(c.Request.Context(), currentUserID(c), channelID, req.UserID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "member added"})
}
