package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/domain"
	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/realtime"
	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/repository"
	apperrors "github.com/The-Nikhil-Pandey/clinxchat-api/pkg/errors"
	"github.com/The-Nikhil-Pandey/clinxchat-api/pkg/logger"
)

// SendInput targets either an existing conversation (Ref) or, for the first
// message of a direct chat, a recipient user id.
type SendInput struct {
	Ref         *domain.ConversationRef
	RecipientID *uuid.UUID
	Type        string
	Content     string
	FilePath    *string
	Duration    *int
}

type MessageService interface {
	Send(ctx context.Context, senderID uuid.UUID, in SendInput) (*domain.Message, error)
	// Page returns a message page and, as a side effect for non-senders,
	// confirms delivery of everything they had not received (pull-based
	// fallback for recipients who were offline during fan-out).
	Page(ctx context.Context, viewerID uuid.UUID, ref domain.ConversationRef, limit, offset int) ([]*domain.Message, error)
	// MarkSeen applies the bulk monotonic seen transition for the viewer and
	// notifies the other participants' sessions, excluding the originating
	// session when one is given.
	MarkSeen(ctx context.Context, viewerID uuid.UUID, ref domain.ConversationRef, originSession string) (int64, error)
	CountUnseen(ctx context.Context, viewerID uuid.UUID, ref domain.ConversationRef) (int, error)
	// Typing relays a typing/stop-typing indicator; it never touches the store.
	Typing(ctx context.Context, userID uuid.UUID, ref domain.ConversationRef, name string, stop bool, originSession string) error
}

type messageService struct {
	messageRepo repository.MessageRepository
	chatRepo    repository.ChatRepository
	userRepo    repository.UserRepository
	membership  MembershipService
	registry    *realtime.Registry
	dispatcher  *realtime.Dispatcher
	notifier    Notifier
	sendLocks   *convLocks
	log         logger.Logger
}

func NewMessageService(
	messageRepo repository.MessageRepository,
	chatRepo repository.ChatRepository,
	userRepo repository.UserRepository,
	membership MembershipService,
	registry *realtime.Registry,
	dispatcher *realtime.Dispatcher,
	notifier Notifier,
	log logger.Logger,
) MessageService {
	return &messageService{
		messageRepo: messageRepo,
		chatRepo:    chatRepo,
		userRepo:    userRepo,
		membership:  membership,
		registry:    registry,
		dispatcher:  dispatcher,
		notifier:    notifier,
		sendLocks:   newConvLocks(),
		log:         log,
	}
}

// convLocks hands out one mutex per conversation key. Entries are
// refcounted so the map shrinks back once the last holder releases.
type convLocks struct {
	mu    sync.Mutex
	locks map[string]*convLock
}

type convLock struct {
	mu   sync.Mutex
	refs int
}

func newConvLocks() *convLocks {
	return &convLocks{locks: make(map[string]*convLock)}
}

func (l *convLocks) acquire(key string) *convLock {
	l.mu.Lock()
	cl := l.locks[key]
	if cl == nil {
		cl = &convLock{}
		l.locks[key] = cl
	}
	cl.refs++
	l.mu.Unlock()
	cl.mu.Lock()
	return cl
}

func (l *convLocks) release(key string, cl *convLock) {
	cl.mu.Unlock()
	l.mu.Lock()
	cl.refs--
	if cl.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()
}

func (s *messageService) Send(ctx context.Context, senderID uuid.UUID, in SendInput) (*domain.Message, error) {
	if !domain.ValidMessageType(in.Type) {
		return nil, apperrors.Invalid("invalid message type")
	}
	if in.Content == "" && in.FilePath == nil {
		return nil, apperrors.Invalid("message content is required")
	}

	ref, recipient, err := s.resolveTarget(ctx, senderID, in)
	if err != nil {
		return nil, err
	}

	membership, err := s.membership.RequireMember(ctx, senderID, ref)
	if err != nil {
		return nil, err
	}
	if ref.Kind == domain.KindGroup && !membership.Can(func(p domain.PermissionSet) bool { return p.SendMessage }) {
		return nil, apperrors.Forbidden("sending messages is disabled for members")
	}

	msg := &domain.Message{
		ID:           uuid.New(),
		Conversation: ref,
		SenderID:     senderID,
		Type:         in.Type,
		Content:      in.Content,
		FilePath:     in.FilePath,
		Duration:     in.Duration,
		CreatedAt:    time.Now(),
	}
	// Concurrent sends to one conversation serialize here: the lock spans
	// both the store write and the fan-out, so sessions observe events in
	// commit order.
	lock := s.sendLocks.acquire(ref.String())
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		s.sendLocks.release(ref.String(), lock)
		return nil, err
	}
	s.fanOutMessage(ctx, msg, recipient)
	s.sendLocks.release(ref.String(), lock)

	s.notifyRecipients(ctx, msg, recipient)

	return msg, nil
}

// resolveTarget maps the input to a conversation ref, lazily creating the
// direct chat on first contact. Repeat sends to the same recipient converge
// on the same chat id.
func (s *messageService) resolveTarget(ctx context.Context, senderID uuid.UUID, in SendInput) (domain.ConversationRef, *uuid.UUID, error) {
	if in.Ref != nil {
		if in.Ref.Kind == domain.KindChat {
			chat, err := s.chatRepo.GetByID(ctx, in.Ref.ID)
			if err != nil {
				return domain.ConversationRef{}, nil, err
			}
			other := chat.OtherUser(senderID)
			return *in.Ref, &other, nil
		}
		return *in.Ref, nil, nil
	}
	if in.RecipientID == nil {
		return domain.ConversationRef{}, nil, apperrors.Invalid("conversation or recipient is required")
	}
	if *in.RecipientID == senderID {
		return domain.ConversationRef{}, nil, apperrors.Invalid("cannot message yourself")
	}
	if _, err := s.userRepo.GetByID(ctx, *in.RecipientID); err != nil {
		return domain.ConversationRef{}, nil, err
	}

	chat, created, err := s.chatRepo.FindOrCreate(ctx, senderID, *in.RecipientID)
	if err != nil {
		return domain.ConversationRef{}, nil, err
	}
	if created {
		s.log.Info("chat created", "chat_id", chat.ID, "user_a", chat.UserAID, "user_b", chat.UserBID)
	}
	return domain.ChatRef(chat.ID), in.RecipientID, nil
}

func (s *messageService) fanOutMessage(ctx context.Context, msg *domain.Message, recipient *uuid.UUID) {
	payload := realtime.ReceiveMessagePayload{Conversation: msg.Conversation, Message: msg}

	var room realtime.RoomKey
	var reached bool
	switch msg.Conversation.Kind {
	case domain.KindChat:
		// Direct messages target the recipient's user room; the sender
		// already holds optimistic local state.
		if recipient == nil {
			return
		}
		room = realtime.UserRoom(*recipient)
		s.dispatcher.Dispatch(realtime.Event{
			Name:    realtime.EventReceiveMessage,
			Rooms:   []realtime.RoomKey{room},
			Payload: payload,
		})
		reached = s.registry.RoomReachesOther(room, msg.SenderID)
	default:
		room = realtime.ConversationRoom(msg.Conversation)
		s.dispatcher.Dispatch(realtime.Event{
			Name:    realtime.EventReceiveMessage,
			Rooms:   []realtime.RoomKey{room},
			Payload: payload,
		})
		reached = s.registry.RoomReachesOther(room, msg.SenderID)
	}

	// Socket fan-out that reached a recipient confirms delivery; offline
	// recipients confirm later via the pull path in Page.
	if reached {
		if _, err := s.messageRepo.MarkDelivered(ctx, msg.ID); err != nil {
			s.log.Warn("failed to confirm delivery", "error", err, "message_id", msg.ID)
		} else {
			now := time.Now()
			msg.DeliveredAt = &now
		}
	}
}

func (s *messageService) notifyRecipients(ctx context.Context, msg *domain.Message, recipient *uuid.UUID) {
	if s.notifier == nil {
		return
	}
	var targets []uuid.UUID
	if recipient != nil {
		targets = []uuid.UUID{*recipient}
	} else {
		ids, err := s.membership.MemberUserIDs(ctx, msg.Conversation)
		if err != nil {
			s.log.Warn("failed to resolve notification targets", "error", err)
			return
		}
		for _, id := range ids {
			if id != msg.SenderID {
				targets = append(targets, id)
			}
		}
	}
	for _, userID := range targets {
		s.notifier.Notify(ctx, userID, domain.NotificationMessage, "New message", msg.Content, map[string]any{
			"conversation": msg.Conversation,
			"message_id":   msg.ID,
		})
	}
}

func (s *messageService) Page(ctx context.Context, viewerID uuid.UUID, ref domain.ConversationRef, limit, offset int) ([]*domain.Message, error) {
	if _, err := s.membership.RequireMember(ctx, viewerID, ref); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	messages, err := s.messageRepo.Page(ctx, ref, limit, offset)
	if err != nil {
		return nil, err
	}

	// Fetching the page is the viewer observing the conversation: it both
	// acks delivery for offline recipients and settles the seen state. The
	// bulk update cascades delivered_at, so one batch covers both.
	n, err := s.messageRepo.MarkSeenBulk(ctx, ref, viewerID)
	if err != nil {
		s.log.Warn("failed to settle seen state on fetch", "error", err)
	} else if n > 0 {
		s.dispatchToConversation(ctx, ref, realtime.Event{
			Name:    realtime.EventMessageSeen,
			Payload: realtime.MessageSeenPayload{Conversation: ref, UserID: viewerID},
		}, viewerID)
	}
	return messages, nil
}

func (s *messageService) MarkSeen(ctx context.Context, viewerID uuid.UUID, ref domain.ConversationRef, originSession string) (int64, error) {
	if _, err := s.membership.RequireMember(ctx, viewerID, ref); err != nil {
		return 0, err
	}

	n, err := s.messageRepo.MarkSeenBulk(ctx, ref, viewerID)
	if err != nil {
		return 0, err
	}

	// Level-triggered: safe to deliver even when nothing transitioned.
	s.dispatchToConversation(ctx, ref, realtime.Event{
		Name:           realtime.EventMessageSeen,
		ExcludeSession: originSession,
		Payload:        realtime.MessageSeenPayload{Conversation: ref, UserID: viewerID},
	}, viewerID)
	return n, nil
}

func (s *messageService) CountUnseen(ctx context.Context, viewerID uuid.UUID, ref domain.ConversationRef) (int, error) {
	if _, err := s.membership.RequireMember(ctx, viewerID, ref); err != nil {
		return 0, err
	}
	return s.messageRepo.CountUnseen(ctx, ref, viewerID)
}

func (s *messageService) Typing(ctx context.Context, userID uuid.UUID, ref domain.ConversationRef, name string, stop bool, originSession string) error {
	if _, err := s.membership.RequireMember(ctx, userID, ref); err != nil {
		return err
	}
	event := realtime.EventTyping
	if stop {
		event = realtime.EventStopTyping
	}
	ev := realtime.Event{
		Name:           event,
		ExcludeSession: originSession,
		Payload:        realtime.TypingPayload{Conversation: ref, UserID: userID, Name: name},
	}
	s.dispatchToConversation(ctx, ref, ev, userID)
	return nil
}

// dispatchToConversation routes an indicator event the same way message
// events route: direct chats hit the other participant's user room, groups
// and channels hit their own room.
func (s *messageService) dispatchToConversation(ctx context.Context, ref domain.ConversationRef, ev realtime.Event, originUser uuid.UUID) {
	if ref.Kind == domain.KindChat {
		chat, err := s.chatRepo.GetByID(ctx, ref.ID)
		if err != nil {
			s.log.Warn("failed to resolve chat for dispatch", "error", err, "chat_id", ref.ID)
			return
		}
		ev.Rooms = []realtime.RoomKey{realtime.UserRoom(chat.OtherUser(originUser))}
	} else {
		ev.Rooms = []realtime.RoomKey{realtime.ConversationRoom(ref)}
	}
	s.dispatcher.Dispatch(ev)
}
