package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/service"
	"github.com/The-Nikhil-Pandey/clinxchat-api/pkg/logger"
)

type TeamHandler struct {
	teamService service.TeamService
	log         logger.Logger
}

func NewTeamHandler(teamService service.TeamService, log logger.Logger) *TeamHandler {
	return &TeamHandler{
		teamService: teamService,
		log:         log,
	}
}

type CreateTeamRequest struct {
	Name        string `json:"name" binding:"required"`
	MemberLimit int    `json:"member_limit"`
}

type InviteRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type AcceptInviteRequest struct {
	Token string `json:"token" binding:"required"`
}

func (h *TeamHandler) Create(c *gin.Context) {
	var req CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	team, err := h.teamService.Create(c.Request.Context(), currentUserID(c), req.Name, req.MemberLimit)
	if err != nil {
		fail(c, err)
		return
	}
	h.log.Info("team created", "team_id", team.ID, "owner_id", team.OwnerID)
	c.JSON(http.StatusCreated, team)
}

func (h *TeamHandler) Get(c *gin.Context) {
	teamID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	team, err := h.teamService.Get(c.Request.Context(), currentUserID(c), teamID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, team)
}

func (h *TeamHandler) ListMembers(c *gin.Context) {
	teamID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	members, err := h.teamService.ListMembers(c.Request.Context(), currentUserID(c), teamID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

func (h *TeamHandler) Invite(c *gin.Context) {
	teamID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	invite, err := h.teamService.Invite(c.Request.Context(), currentUserID(c), teamID, req.Email)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, invite)
}

func (h *TeamHandler) ListInvites(c *gin.Context) {
	teamID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	invites, err := h.teamService.ListInvites(c.Request.Context(), currentUserID(c), teamID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, invites)
}

func (h *TeamHandler) AcceptInvite(c *gin.Context) {
	var req AcceptInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	team, err := h.teamService.AcceptInvite(c.Request.Context(), currentUserID(c), req.Token)
	if err != nil {
		fail(c, err)
		return
	}
	h.log.Info("invite accepted", "team_id", team.ID, "user_id", currentUserID(c))
	c.JSON(http.StatusOK, team)
}
