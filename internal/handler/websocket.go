package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/config"
	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/domain"
	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/realtime"
	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/repository"
	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/service"
	"github.com/The-Nikhil-Pandey/clinxchat-api/pkg/logger"
)

// WebSocketHandler owns the connection lifecycle: token handshake, session
// registration, the membership snapshot that subscribes a fresh session to
// its rooms, the client frame loop, and teardown.
type WebSocketHandler struct {
	authService     service.AuthService
	membership      service.MembershipService
	messageService  service.MessageService
	presenceService service.PresenceService
	userRepo        repository.UserRepository
	groupRepo       repository.GroupRepository
	channelRepo     repository.ChannelRepository
	registry        *realtime.Registry
	upgrader        websocket.Upgrader
	opts            realtime.SessionOptions
	handshake       config.RealtimeConfig
	log             logger.Logger
}

func NewWebSocketHandler(
	authService service.AuthService,
	membership service.MembershipService,
	messageService service.MessageService,
	presenceService service.PresenceService,
	repos *repository.Repositories,
	registry *realtime.Registry,
	cfg config.RealtimeConfig,
	log logger.Logger,
) *WebSocketHandler {
	return &WebSocketHandler{
		authService:     authService,
		membership:      membership,
		messageService:  messageService,
		presenceService: presenceService,
		userRepo:        repos.User,
		groupRepo:       repos.Group,
		channelRepo:     repos.Channel,
		registry:        registry,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: cfg.HandshakeTimeout,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			CheckOrigin:      func(*http.Request) bool { return true },
		},
		opts: realtime.SessionOptions{
			WriteWait:  cfg.WriteWait,
			PingPeriod: cfg.PingPeriod,
			SendBuffer: cfg.SendBuffer,
		},
		handshake: cfg,
		log:       log,
	}
}

// Connect upgrades GET /ws?token=... into a realtime session.
func (h *WebSocketHandler) Connect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token query parameter required"})
		return
	}

	authCtx, cancel := context.WithTimeout(c.Request.Context(), h.handshake.HandshakeTimeout)
	user, err := h.authService.ValidateToken(authCtx, token)
	cancel()
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err, "user_id", user.ID)
		return
	}

	sess := realtime.NewSession(user.ID, conn, h.opts)
	first := h.registry.Register(sess)
	h.subscribeRooms(c.Request.Context(), sess, user)
	sess.Start()

	if first {
		h.presenceService.MarkOnline(c.Request.Context(), user.ID, user.Name)
	}
	h.log.Info("websocket connected", "user_id", user.ID, "session_id", sess.ID, "first", first)

	h.readLoop(sess, user)

	last := h.registry.Unregister(sess)
	sess.Close(websocket.CloseNormalClosure, "")
	if last {
		h.presenceService.MarkOffline(context.Background(), user.ID, user.Name)
	}
	h.log.Info("websocket disconnected", "user_id", user.ID, "session_id", sess.ID, "last", last)
}

// subscribeRooms joins the session to every group and current-team channel
// the user belongs to. Later membership changes are applied incrementally by
// the services.
func (h *WebSocketHandler) subscribeRooms(ctx context.Context, sess *realtime.Session, user *domain.User) {
	groups, err := h.groupRepo.ListForUser(ctx, user.ID)
	if err != nil {
		h.log.Warn("room snapshot: groups failed", "user_id", user.ID, "error", err)
	} else {
		for _, g := range groups {
			h.registry.Join(sess, realtime.GroupRoom(g.ID))
		}
	}

	if user.CurrentTeamID == nil {
		return
	}
	channels, err := h.channelRepo.ListForUser(ctx, *user.CurrentTeamID, user.ID)
	if err != nil {
		h.log.Warn("room snapshot: channels failed", "user_id", user.ID, "error", err)
		return
	}
	for _, ch := range channels {
		h.registry.Join(sess, realtime.ChannelRoom(ch.ID))
	}
}

func (h *WebSocketHandler) readLoop(sess *realtime.Session, user *domain.User) {
	for {
		_, raw, err := sess.ReadMessage()
		if err != nil {
			return
		}
		var frame realtime.ClientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			h.log.Debug("dropping malformed frame", "session_id", sess.ID)
			continue
		}
		h.handleFrame(sess, user, frame)
	}
}

func (h *WebSocketHandler) handleFrame(sess *realtime.Session, user *domain.User, frame realtime.ClientFrame) {
	ctx := context.Background()

	switch frame.Event {
	case realtime.FrameJoinRoom:
		if frame.Conversation == nil {
			return
		}
		// Joins are membership-checked; a session can never subscribe to a
		// conversation its user does not belong to.
		if _, err := h.membership.RequireMember(ctx, user.ID, *frame.Conversation); err != nil {
			h.log.Debug("join_room denied", "user_id", user.ID, "conversation", frame.Conversation.String())
			return
		}
		h.registry.Join(sess, realtime.ConversationRoom(*frame.Conversation))

	case realtime.FrameTyping, realtime.FrameStopTyping:
		if frame.Conversation == nil {
			return
		}
		stop := frame.Event == realtime.FrameStopTyping
		if err := h.messageService.Typing(ctx, user.ID, *frame.Conversation, user.Name, stop, sess.ID); err != nil {
			h.log.Debug("typing relay failed", "user_id", user.ID, "error", err)
		}

	case realtime.FrameMarkSeen:
		if frame.Conversation == nil {
			return
		}
		if _, err := h.messageService.MarkSeen(ctx, user.ID, *frame.Conversation, sess.ID); err != nil {
			h.log.Warn("mark_seen failed", "user_id", user.ID, "error", err)
		}

	default:
		h.log.Debug("unknown frame", "event", frame.Event, "session_id", sess.ID)
	}
}
