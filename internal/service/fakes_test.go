package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/domain"
	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/realtime"
	apperrors "github.com/The-Nikhil-Pandey/clinxchat-api/pkg/errors"
	"github.com/The-Nikhil-Pandey/clinxchat-api/pkg/logger"
)

// In-memory repository fakes mirroring the SQL guards of the real layer.

type fakeConn struct{}

func (fakeConn) ReadMessage() (int, []byte, error)         { select {} }
func (fakeConn) WriteMessage(int, []byte) error            { return nil }
func (fakeConn) WriteControl(int, []byte, time.Time) error { return nil }
func (fakeConn) SetWriteDeadline(time.Time) error          { return nil }
func (fakeConn) Close() error                              { return nil }

func connect(reg *realtime.Registry, userID uuid.UUID) *realtime.Session {
	sess := realtime.NewSession(userID, fakeConn{}, realtime.SessionOptions{})
	reg.Register(sess)
	return sess
}

// recordingConn captures the frames the session's write loop flushes, in
// write order.
type recordingConn struct {
	mu     sync.Mutex
	frames [][]byte
}

func (c *recordingConn) ReadMessage() (int, []byte, error) { select {} }
func (c *recordingConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, append([]byte(nil), data...))
	return nil
}
func (c *recordingConn) WriteControl(int, []byte, time.Time) error { return nil }
func (c *recordingConn) SetWriteDeadline(time.Time) error          { return nil }
func (c *recordingConn) Close() error                              { return nil }

func (c *recordingConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func (c *recordingConn) frame(i int) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames[i]
}

func (c *recordingConn) waitFrames(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.count() >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d frames, have %d", n, c.count())
}

func connectRecording(reg *realtime.Registry, userID uuid.UUID) (*realtime.Session, *recordingConn) {
	conn := &recordingConn{}
	sess := realtime.NewSession(userID, conn, realtime.SessionOptions{})
	reg.Register(sess)
	sess.Start()
	return sess, conn
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return apperrors.Conflict("user with this email already exists")
		}
	}
	r.users[u.ID] = u
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.NotFound("user not found")
	}
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, apperrors.NotFound("user not found")
}

func (r *fakeUserRepo) Update(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
	return nil
}

func (r *fakeUserRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.Status = status
		return nil
	}
	return apperrors.NotFound("user not found")
}

func (r *fakeUserRepo) UpdateCurrentTeam(_ context.Context, id uuid.UUID, teamID *uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.CurrentTeamID = teamID
		return nil
	}
	return apperrors.NotFound("user not found")
}

func (r *fakeUserRepo) CreateSession(context.Context, *domain.UserSession) error { return nil }
func (r *fakeUserRepo) GetSessionByTokenHash(context.Context, string) (*domain.UserSession, error) {
	return nil, apperrors.NotFound("session not found")
}
func (r *fakeUserRepo) RevokeSession(context.Context, uuid.UUID, string) error { return nil }
func (r *fakeUserRepo) CreateDevice(context.Context, *domain.Device) error     { return nil }
func (r *fakeUserRepo) DeleteDevice(context.Context, uuid.UUID, uuid.UUID) error {
	return nil
}
func (r *fakeUserRepo) ListDevices(context.Context, uuid.UUID) ([]*domain.Device, error) {
	return nil, nil
}

type fakeChatRepo struct {
	mu    sync.Mutex
	chats map[uuid.UUID]*domain.Chat
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{chats: make(map[uuid.UUID]*domain.Chat)}
}

func (r *fakeChatRepo) FindOrCreate(_ context.Context, userA, userB uuid.UUID) (*domain.Chat, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if userB.String() < userA.String() {
		userA, userB = userB, userA
	}
	for _, c := range r.chats {
		if c.UserAID == userA && c.UserBID == userB {
			return c, false, nil
		}
	}
	chat := &domain.Chat{ID: uuid.New(), UserAID: userA, UserBID: userB, CreatedAt: time.Now()}
	r.chats[chat.ID] = chat
	return chat, true, nil
}

func (r *fakeChatRepo) FindBetween(ctx context.Context, userA, userB uuid.UUID) (*domain.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.chats {
		if c.HasUser(userA) && c.HasUser(userB) {
			return c, nil
		}
	}
	return nil, apperrors.NotFound("chat not found")
}

func (r *fakeChatRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chats[id]
	if !ok {
		return nil, apperrors.NotFound("chat not found")
	}
	return c, nil
}

func (r *fakeChatRepo) ListForUser(_ context.Context, userID uuid.UUID) ([]*domain.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Chat
	for _, c := range r.chats {
		if c.HasUser(userID) {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []*domain.Message

	// afterCommit, when set, runs after a message lands in the store and
	// before Create returns. Tests use it to widen the commit→fan-out
	// window of one sender.
	afterCommit func(*domain.Message)
}

func newFakeMessageRepo() *fakeMessageRepo { return &fakeMessageRepo{} }

func (r *fakeMessageRepo) Create(_ context.Context, msg *domain.Message) error {
	r.mu.Lock()
	r.messages = append(r.messages, msg)
	hook := r.afterCommit
	r.mu.Unlock()
	if hook != nil {
		hook(msg)
	}
	return nil
}

func (r *fakeMessageRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

func (r *fakeMessageRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, apperrors.NotFound("message not found")
}

func (r *fakeMessageRepo) Page(_ context.Context, ref domain.ConversationRef, limit, offset int) ([]*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var conv []*domain.Message
	for _, m := range r.messages {
		if m.Conversation == ref {
			conv = append(conv, m)
		}
	}
	sort.Slice(conv, func(i, j int) bool { return conv[i].CreatedAt.After(conv[j].CreatedAt) })
	if offset >= len(conv) {
		return nil, nil
	}
	end := offset + limit
	if end > len(conv) {
		end = len(conv)
	}
	return conv[offset:end], nil
}

func (r *fakeMessageRepo) MarkDelivered(_ context.Context, messageID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID == messageID {
			if m.DeliveredAt != nil {
				return false, nil
			}
			now := time.Now()
			m.DeliveredAt = &now
			return true, nil
		}
	}
	return false, apperrors.NotFound("message not found")
}

func (r *fakeMessageRepo) MarkSeenBulk(_ context.Context, ref domain.ConversationRef, viewerID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	now := time.Now()
	for _, m := range r.messages {
		if m.Conversation == ref && m.SenderID != viewerID && m.SeenAt == nil {
			m.SeenAt = &now
			if m.DeliveredAt == nil {
				m.DeliveredAt = &now
			}
			n++
		}
	}
	return n, nil
}

func (r *fakeMessageRepo) CountUnseen(_ context.Context, ref domain.ConversationRef, viewerID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.messages {
		if m.Conversation == ref && m.SenderID != viewerID && m.SeenAt == nil {
			n++
		}
	}
	return n, nil
}

type fakeGroupRepo struct {
	mu       sync.Mutex
	groups   map[uuid.UUID]*domain.Group
	members  map[uuid.UUID]map[uuid.UUID]*domain.GroupMember
	requests map[uuid.UUID]*domain.JoinRequest
	links    map[uuid.UUID]*domain.InviteLink
}

func newFakeGroupRepo() *fakeGroupRepo {
	return &fakeGroupRepo{
		groups:   make(map[uuid.UUID]*domain.Group),
		members:  make(map[uuid.UUID]map[uuid.UUID]*domain.GroupMember),
		requests: make(map[uuid.UUID]*domain.JoinRequest),
		links:    make(map[uuid.UUID]*domain.InviteLink),
	}
}

func (r *fakeGroupRepo) Create(_ context.Context, g *domain.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups[g.ID] = g
	r.members[g.ID] = map[uuid.UUID]*domain.GroupMember{
		g.CreatedBy: {GroupID: g.ID, UserID: g.CreatedBy, Role: domain.RoleAdmin, JoinedAt: g.CreatedAt},
	}
	return nil
}

func (r *fakeGroupRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[id]
	if !ok {
		return nil, apperrors.NotFound("group not found")
	}
	return g, nil
}

func (r *fakeGroupRepo) UpdatePermissions(_ context.Context, id uuid.UUID, perms domain.PermissionSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[id]
	if !ok {
		return apperrors.NotFound("group not found")
	}
	g.Permissions = perms
	return nil
}

func (r *fakeGroupRepo) UpdateSettings(_ context.Context, g *domain.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups[g.ID] = g
	return nil
}

func (r *fakeGroupRepo) ListForUser(_ context.Context, userID uuid.UUID) ([]*domain.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Group
	for gid, members := range r.members {
		if _, ok := members[userID]; ok {
			out = append(out, r.groups[gid])
		}
	}
	return out, nil
}

func (r *fakeGroupRepo) AddMember(_ context.Context, m *domain.GroupMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.members[m.GroupID]
	if !ok {
		return apperrors.NotFound("group not found")
	}
	if _, exists := set[m.UserID]; exists {
		return nil // ON CONFLICT DO NOTHING
	}
	set[m.UserID] = m
	return nil
}

func (r *fakeGroupRepo) RemoveMember(_ context.Context, groupID, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members[groupID], userID)
	return nil
}

func (r *fakeGroupRepo) GetMember(_ context.Context, groupID, userID uuid.UUID) (*domain.GroupMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[groupID][userID]
	if !ok {
		return nil, apperrors.NotFound("not a member")
	}
	return m, nil
}

func (r *fakeGroupRepo) ListMembers(_ context.Context, groupID uuid.UUID) ([]*domain.GroupMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.GroupMember
	for _, m := range r.members[groupID] {
		out = append(out, m)
	}
	return out, nil
}

func (r *fakeGroupRepo) UpdateMemberRole(_ context.Context, groupID, userID uuid.UUID, role string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[groupID][userID]
	if !ok {
		return apperrors.NotFound("not a member")
	}
	m.Role = role
	return nil
}

func (r *fakeGroupRepo) CreateJoinRequest(_ context.Context, req *domain.JoinRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests[req.ID] = req
	return nil
}

func (r *fakeGroupRepo) GetJoinRequest(_ context.Context, id uuid.UUID) (*domain.JoinRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, apperrors.NotFound("join request not found")
	}
	return req, nil
}

func (r *fakeGroupRepo) GetPendingJoinRequest(_ context.Context, groupID, userID uuid.UUID) (*domain.JoinRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range r.requests {
		if req.GroupID == groupID && req.UserID == userID && req.Status == domain.JoinRequestPending {
			return req, nil
		}
	}
	return nil, apperrors.NotFound("no pending request")
}

func (r *fakeGroupRepo) ListJoinRequests(_ context.Context, groupID uuid.UUID, status string) ([]*domain.JoinRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.JoinRequest
	for _, req := range r.requests {
		if req.GroupID == groupID && req.Status == status {
			out = append(out, req)
		}
	}
	return out, nil
}

func (r *fakeGroupRepo) DecideJoinRequest(_ context.Context, id uuid.UUID, status string, decidedBy uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return false, apperrors.NotFound("join request not found")
	}
	if req.Status != domain.JoinRequestPending {
		return false, nil
	}
	now := time.Now()
	req.Status = status
	req.DecidedBy = &decidedBy
	req.DecidedAt = &now
	return true, nil
}

func (r *fakeGroupRepo) CreateInviteLink(_ context.Context, link *domain.InviteLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.links[link.ID] = link
	return nil
}

func (r *fakeGroupRepo) GetInviteLinkByToken(_ context.Context, token string) (*domain.InviteLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.links {
		if l.Token == token {
			return l, nil
		}
	}
	return nil, apperrors.NotFound("invite link not found")
}

func (r *fakeGroupRepo) DeleteInviteLink(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.links, id)
	return nil
}

type fakeTeamRepo struct {
	mu      sync.Mutex
	teams   map[uuid.UUID]*domain.Team
	members map[uuid.UUID]map[uuid.UUID]*domain.TeamMember
	invites map[uuid.UUID]*domain.TeamInvite
}

func newFakeTeamRepo() *fakeTeamRepo {
	return &fakeTeamRepo{
		teams:   make(map[uuid.UUID]*domain.Team),
		members: make(map[uuid.UUID]map[uuid.UUID]*domain.TeamMember),
		invites: make(map[uuid.UUID]*domain.TeamInvite),
	}
}

func (r *fakeTeamRepo) Create(_ context.Context, t *domain.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.teams[t.ID] = t
	r.members[t.ID] = map[uuid.UUID]*domain.TeamMember{
		t.OwnerID: {TeamID: t.ID, UserID: t.OwnerID, Role: domain.TeamRoleOwner, JoinedAt: t.CreatedAt},
	}
	return nil
}

func (r *fakeTeamRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teams[id]
	if !ok {
		return nil, apperrors.NotFound("team not found")
	}
	return t, nil
}

func (r *fakeTeamRepo) GetMember(_ context.Context, teamID, userID uuid.UUID) (*domain.TeamMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[teamID][userID]
	if !ok {
		return nil, apperrors.NotFound("not a member")
	}
	return m, nil
}

func (r *fakeTeamRepo) ListMembers(_ context.Context, teamID uuid.UUID) ([]*domain.TeamMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.TeamMember
	for _, m := range r.members[teamID] {
		out = append(out, m)
	}
	return out, nil
}

func (r *fakeTeamRepo) Occupancy(_ context.Context, teamID uuid.UUID) (int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pending := 0
	now := time.Now()
	for _, inv := range r.invites {
		if inv.TeamID == teamID && !inv.Accepted() && !inv.Expired(now) {
			pending++
		}
	}
	return len(r.members[teamID]), pending, nil
}

func (r *fakeTeamRepo) CreateInvite(_ context.Context, inv *domain.TeamInvite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invites[inv.ID] = inv
	return nil
}

func (r *fakeTeamRepo) GetInviteByToken(_ context.Context, token string) (*domain.TeamInvite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.invites {
		if inv.Token == token {
			return inv, nil
		}
	}
	return nil, apperrors.NotFound("invite not found")
}

func (r *fakeTeamRepo) ListInvites(_ context.Context, teamID uuid.UUID) ([]*domain.TeamInvite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.TeamInvite
	for _, inv := range r.invites {
		if inv.TeamID == teamID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *fakeTeamRepo) AcceptInvite(_ context.Context, inviteID, userID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invites[inviteID]
	if !ok {
		return nil, apperrors.NotFound("invite not found")
	}
	if inv.Accepted() {
		return nil, apperrors.Conflict("invite already accepted")
	}
	now := time.Now()
	inv.AcceptedAt = &now
	set := r.members[inv.TeamID]
	if _, exists := set[userID]; !exists {
		set[userID] = &domain.TeamMember{TeamID: inv.TeamID, UserID: userID, Role: domain.TeamRoleMember, JoinedAt: now}
	}
	return nil, nil
}

type fakeChannelRepo struct {
	mu       sync.Mutex
	channels map[uuid.UUID]*domain.Channel
	members  map[uuid.UUID]map[uuid.UUID]*domain.ChannelMember
}

func newFakeChannelRepo() *fakeChannelRepo {
	return &fakeChannelRepo{
		channels: make(map[uuid.UUID]*domain.Channel),
		members:  make(map[uuid.UUID]map[uuid.UUID]*domain.ChannelMember),
	}
}

func (r *fakeChannelRepo) Create(_ context.Context, ch *domain.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[ch.ID] = ch
	r.members[ch.ID] = map[uuid.UUID]*domain.ChannelMember{
		ch.CreatedBy: {ChannelID: ch.ID, UserID: ch.CreatedBy, JoinedAt: ch.CreatedAt},
	}
	return nil
}

func (r *fakeChannelRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.channels[id]
	if !ok {
		return nil, apperrors.NotFound("channel not found")
	}
	return ch, nil
}

func (r *fakeChannelRepo) ListForTeam(_ context.Context, teamID uuid.UUID) ([]*domain.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Channel
	for _, ch := range r.channels {
		if ch.TeamID == teamID {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (r *fakeChannelRepo) ListForUser(_ context.Context, teamID, userID uuid.UUID) ([]*domain.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Channel
	for id, ch := range r.channels {
		if ch.TeamID != teamID {
			continue
		}
		if _, ok := r.members[id][userID]; ok {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (r *fakeChannelRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.channels[id]
	if !ok {
		return apperrors.NotFound("channel not found")
	}
	if ch.IsDefault {
		return apperrors.Forbidden("default channels cannot be deleted")
	}
	delete(r.channels, id)
	delete(r.members, id)
	return nil
}

func (r *fakeChannelRepo) AddMember(_ context.Context, m *domain.ChannelMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.members[m.ChannelID]
	if !ok {
		return apperrors.NotFound("channel not found")
	}
	set[m.UserID] = m
	return nil
}

func (r *fakeChannelRepo) RemoveMember(_ context.Context, channelID, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members[channelID], userID)
	return nil
}

func (r *fakeChannelRepo) GetMember(_ context.Context, channelID, userID uuid.UUID) (*domain.ChannelMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[channelID][userID]
	if !ok {
		return nil, apperrors.NotFound("not a member")
	}
	return m, nil
}

func (r *fakeChannelRepo) ListMembers(_ context.Context, channelID uuid.UUID) ([]*domain.ChannelMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.ChannelMember
	for _, m := range r.members[channelID] {
		out = append(out, m)
	}
	return out, nil
}

// fakeNotifier records delivered notifications per user.
type fakeNotifier struct {
	mu    sync.Mutex
	calls map[uuid.UUID][]string
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{calls: make(map[uuid.UUID][]string)}
}

func (n *fakeNotifier) Notify(_ context.Context, userID uuid.UUID, ntype, _, _ string, _ map[string]any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls[userID] = append(n.calls[userID], ntype)
}

func (n *fakeNotifier) types(userID uuid.UUID) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[userID]
}

func nopLog() logger.Logger { return logger.Nop() }
