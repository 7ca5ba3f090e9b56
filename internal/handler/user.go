package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/service"
	"github.com/The-Nikhil-Pandey/clinxchat-api/pkg/logger"
)

type UserHandler struct {
	userService service.UserService
	log         logger.Logger
}

func NewUserHandler(userService service.UserService, log logger.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		log:         log,
	}
}

type UpdateProfileRequest struct {
	Name      string  `json:"name" binding:"required"`
	AvatarURL *string `json:"avatar_url"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type SwitchTeamRequest struct {
	TeamID *uuid.UUID `json:"team_id"`
}

type RegisterDeviceRequest struct {
	Platform  string `json:"platform" binding:"required"`
	PushToken string `json:"push_token" binding:"required"`
}

func (h *UserHandler) GetMe(c *gin.Context) {
	user, err := h.userService.GetProfile(c.Request.Context(), currentUserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), currentUserID(c), req.Name, req.AvatarURL)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.userService.UpdateStatus(c.Request.Context(), currentUserID(c), req.Status); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": req.Status})
}

func (h *UserHandler) SwitchTeam(c *gin.Context) {
	var req SwitchTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.userService.SwitchTeam(c.Request.Context(), currentUserID(c), req.TeamID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"current_team_id": req.TeamID})
}

func (h *UserHandler) RegisterDevice(c *gin.Context) {
	var req RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	device, err := h.userService.RegisterDevice(c.Request.Context(), currentUserID(c), req.Platform, req.PushToken)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, device)
}

func (h *UserHandler) RemoveDevice(c *gin.Context) {
	deviceID, ok := uuidParam(c, "deviceId")
	if !ok {
		return
	}
	if err := h.userService.RemoveDevice(c.Request.Context(), currentUserID(c), deviceID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) ListDevices(c *gin.Context) {
	devices, err := h.userService.ListDevices(c.Request.Context(), currentUserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, devices)
}
