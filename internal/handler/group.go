package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/domain"
	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/service"
	"github.com/The-Nikhil-Pandey/clinxchat-api/pkg/logger"
)

type GroupHandler struct {
	groupService service.GroupService
	log          logger.Logger
}

func NewGroupHandler(groupService service.GroupService, log logger.Logger) *GroupHandler {
	return &GroupHandler{
		groupService: groupService,
		log:          log,
	}
}

type CreateGroupRequest struct {
	Name      string  `json:"name" binding:"required"`
	AvatarURL *string `json:"avatar_url"`
}

type UpdateGroupRequest struct {
	Name      string  `json:"name" binding:"required"`
	AvatarURL *string `json:"avatar_url"`
}

type MemberRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
}

type ChangeRoleRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
	Role   string    `json:"role" binding:"required"`
}

type CreateInviteLinkRequest struct {
	ExpiresAt *time.Time `json:"expires_at"`
}

type JoinViaLinkRequest struct {
	Token string `json:"token" binding:"required"`
}

type DecideJoinRequest struct {
	Approve bool `json:"approve"`
}

func (h *GroupHandler) Create(c *gin.Context) {
	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group, err := h.groupService.Create(c.Request.Context(), currentUserID(c), req.Name, req.AvatarURL)
	if err != nil {
		fail(c, err)
		return
	}
	h.log.Info("group created", "group_id", group.ID, "created_by", group.CreatedBy)
	c.JSON(http.StatusCreated, group)
}

func (h *GroupHandler) Get(c *gin.Context) {
	groupID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	group, err := h.groupService.Get(c.Request.Context(), currentUserID(c), groupID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, group)
}

func (h *GroupHandler) List(c *gin.Context) {
	groups, err := h.groupService.ListMine(c.Request.Context(), currentUserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, groups)
}

func (h *GroupHandler) UpdateSettings(c *gin.Context) {
	groupID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group, err := h.groupService.UpdateSettings(c.Request.Context(), currentUserID(c), groupID, req.Name, req.AvatarURL)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, group)
}

func (h *GroupHandler) UpdatePermissions(c *gin.Context) {
	groupID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var perms domain.PermissionSet
	if err := c.ShouldBindJSON(&perms); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.groupService.UpdatePermissions(c.Request.Context(), currentUserID(c), groupID, perms); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, perms)
}

func (h *GroupHandler) AddMember(c *gin.Context) {
	groupID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.groupService.AddMember(c.Request.Context(), currentUserID(c), groupID, req.UserID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "member added"})
}

func (h *GroupHandler) RemoveMember(c *gin.Context) {
	groupID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	userID, ok := uuidParam(c, "userId")
	if !ok {
		return
	}

	if err := h.groupService.RemoveMember(c.Request.Context(), currentUserID(c), groupID, userID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *GroupHandler) Leave(c *gin.Context) {
	groupID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	userID := currentUserID(c)
	if err := h.groupService.RemoveMember(c.Request.Context(), userID, groupID, userID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *GroupHandler) ChangeRole(c *gin.Context) {
	groupID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.groupService.ChangeRole(c.Request.Context(), currentUserID(c), groupID, req.UserID, req.Role); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"role": req.Role})
}

func (h *GroupHandler) ListMembers(c *gin.Context) {
	groupID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	members, err := h.groupService.ListMembers(c.Request.Context(), currentUserID(c), groupID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

func (h *GroupHandler) CreateInviteLink(c *gin.Context) {
	groupID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req CreateInviteLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	link, err := h.groupService.CreateInviteLink(c.Request.Context(), currentUserID(c), groupID, req.ExpiresAt)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, link)
}

func (h *GroupHandler) DeleteInviteLink(c *gin.Context) {
	groupID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	linkID, ok := uuidParam(c, "linkId")
	if !ok {
		return
	}

	if err := h.groupService.DeleteInviteLink(c.Request.Context(), currentUserID(c), groupID, linkID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *GroupHandler) JoinViaLink(c *gin.Context) {
	var req JoinViaLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group, joinReq, err := h.groupService.JoinViaLink(c.Request.Context(), currentUserID(c), req.Token)
	if err != nil {
		fail(c, err)
		return
	}
	if joinReq != nil {
		// Admin approval required, a pending request was filed instead.
		c.JSON(http.StatusAccepted, gin.H{"group": group, "join_request": joinReq})
		return
	}
	c.JSON(http.StatusOK, gin.H{"group": group})
}

func (h *GroupHandler) RequestJoin(c *gin.Context) {
	groupID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	req, err := h.groupService.RequestJoin(c.Request.Context(), currentUserID(c), groupID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

func (h *GroupHandler) ListJoinRequests(c *gin.Context) {
	groupID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	requests, err := h.groupService.ListJoinRequests(c.Request.Context(), currentUserID(c), groupID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

func (h *GroupHandler) DecideJoinRequest(c *gin.Context) {
	requestID, ok := uuidParam(c, "requestId")
	if !ok {
		return
	}
	var req DecideJoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.groupService.DecideJoinRequest(c.Request.Context(), currentUserID(c), requestID, req.Approve); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"approved": req.Approve})
}
