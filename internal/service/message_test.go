package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/domain"
	"github.com/The-Nikhil-Pandey/clinxchat-api/internal/realtime"
	apperrors "github.com/The-Nikhil-Pandey/clinxchat-api/pkg/errors"
)

type messageFixture struct {
	users    *fakeUserRepo
	chats    *fakeChatRepo
	messages *fakeMessageRepo
	groups   *fakeGroupRepo
	registry *realtime.Registry
	notifier *fakeNotifier
	svc      MessageService
}

func newMessageFixture() *messageFixture {
	f := &messageFixture{
		users:    newFakeUserRepo(),
		chats:    newFakeChatRepo(),
		messages: newFakeMessageRepo(),
		groups:   newFakeGroupRepo(),
		registry: realtime.NewRegistry(),
		notifier: newFakeNotifier(),
	}
	teams := newFakeTeamRepo()
	channels := newFakeChannelRepo()
	membership := NewMembershipService(f.chats, f.groups, channels, teams, nopLog())
	dispatcher := realtime.NewDispatcher(f.registry, nopLog())
	f.svc = NewMessageService(f.messages, f.chats, f.users, membership, f.registry, dispatcher, f.notifier, nopLog())
	return f
}

func (f *messageFixture) addUser(t *testing.T, name string) uuid.UUID {
	t.Helper()
	u := &domain.User{ID: uuid.New(), Name: name, Email: name + "@example.com"}
	if err := f.users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u.ID
}

func TestSendDirectMessageCreatesChatOnce(t *testing.T) {
	f := newMessageFixture()
	ctx := context.Background()
	alice := f.addUser(t, "alice")
	bob := f.addUser(t, "bob")

	first, err := f.svc.Send(ctx, alice, SendInput{RecipientID: &bob, Type: domain.MessageTypeText, Content: "hi"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	// The reply goes through the recipient path too; both must land in the
	// same chat regardless of direction.
	second, err := f.svc.Send(ctx, bob, SendInput{RecipientID: &alice, Type: domain.MessageTypeText, Content: "hey"})
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if first.Conversation != second.Conversation {
		t.Fatalf("messages landed in different chats: %v vs %v", first.Conversation, second.Conversation)
	}
	if len(f.chats.chats) != 1 {
		t.Fatalf("expected exactly one chat, got %d", len(f.chats.chats))
	}
}

func TestSendToSelfRejected(t *testing.T) {
	f := newMessageFixture()
	alice := f.addUser(t, "alice")

	_, err := f.svc.Send(context.Background(), alice, SendInput{RecipientID: &alice, Type: domain.MessageTypeText, Content: "hi"})
	if apperrors.KindOf(err) != apperrors.KindInvalid {
		t.Fatalf("expected invalid, got %v", err)
	}
}

func TestSendDeliveredOnlyWhenRecipientOnline(t *testing.T) {
	f := newMessageFixture()
	ctx := context.Background()
	alice := f.addUser(t, "alice")
	bob := f.addUser(t, "bob")

	offline, err := f.svc.Send(ctx, alice, SendInput{RecipientID: &bob, Type: domain.MessageTypeText, Content: "anyone there"})
	if err != nil {
		t.Fatalf("send offline: %v", err)
	}
	if offline.DeliveredAt != nil {
		t.Fatal("message delivered with no recipient session")
	}

	connect(f.registry, bob)
	online, err := f.svc.Send(ctx, alice, SendInput{RecipientID: &bob, Type: domain.MessageTypeText, Content: "there you are"})
	if err != nil {
		t.Fatalf("send online: %v", err)
	}
	if online.DeliveredAt == nil {
		t.Fatal("message not delivered with recipient session registered")
	}
}

func TestSendSenderOwnSessionDoesNotConfirmDelivery(t *testing.T) {
	f := newMessageFixture()
	ctx := context.Background()
	alice := f.addUser(t, "alice")
	bob := f.addUser(t, "bob")

	// A direct message targets the recipient's user room; the sender's own
	// sessions never count as reaching the recipient.
	connect(f.registry, alice)
	msg, err := f.svc.Send(ctx, alice, SendInput{RecipientID: &bob, Type: domain.MessageTypeText, Content: "hello"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.DeliveredAt != nil {
		t.Fatal("sender session confirmed its own delivery")
	}
}

func TestSendGroupRequiresMembership(t *testing.T) {
	f := newMessageFixture()
	ctx := context.Background()
	owner := f.addUser(t, "owner")
	outsider := f.addUser(t, "outsider")

	group := &domain.Group{ID: uuid.New(), Name: "ops", CreatedBy: owner, Permissions: domain.DefaultPermissions()}
	if err := f.groups.Create(ctx, group); err != nil {
		t.Fatalf("create group: %v", err)
	}

	ref := domain.GroupRef(group.ID)
	_, err := f.svc.Send(ctx, outsider, SendInput{Ref: &ref, Type: domain.MessageTypeText, Content: "let me in"})
	if apperrors.KindOf(err) != apperrors.KindForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := f.svc.Send(ctx, owner, SendInput{Ref: &ref, Type: domain.MessageTypeText, Content: "standup in 5"}); err != nil {
		t.Fatalf("member send: %v", err)
	}
}

func TestSendGroupHonorsSendMessagePermission(t *testing.T) {
	f := newMessageFixture()
	ctx := context.Background()
	admin := f.addUser(t, "admin")
	member := f.addUser(t, "member")

	perms := domain.DefaultPermissions()
	perms.SendMessage = false
	group := &domain.Group{ID: uuid.New(), Name: "announcements", CreatedBy: admin, Permissions: perms}
	if err := f.groups.Create(ctx, group); err != nil {
		t.Fatalf("create group: %v", err)
	}
	if err := f.groups.AddMember(ctx, &domain.GroupMember{GroupID: group.ID, UserID: member, Role: domain.RoleMember}); err != nil {
		t.Fatalf("add member: %v", err)
	}

	ref := domain.GroupRef(group.ID)
	if _, err := f.svc.Send(ctx, member, SendInput{Ref: &ref, Type: domain.MessageTypeText, Content: "hi"}); apperrors.KindOf(err) != apperrors.KindForbidden {
		t.Fatalf("expected forbidden for plain member, got %v", err)
	}
	// Role overrides beat the group-wide flag.
	if _, err := f.svc.Send(ctx, admin, SendInput{Ref: &ref, Type: domain.MessageTypeText, Content: "release is out"}); err != nil {
		t.Fatalf("admin send: %v", err)
	}
}

func TestSendInvalidTypeRejected(t *testing.T) {
	f := newMessageFixture()
	alice := f.addUser(t, "alice")
	bob := f.addUser(t, "bob")

	_, err := f.svc.Send(context.Background(), alice, SendInput{RecipientID: &bob, Type: "carrier-pigeon", Content: "coo"})
	if apperrors.KindOf(err) != apperrors.KindInvalid {
		t.Fatalf("expected invalid, got %v", err)
	}
}

func TestSendNotifiesRecipient(t *testing.T) {
	f := newMessageFixture()
	ctx := context.Background()
	alice := f.addUser(t, "alice")
	bob := f.addUser(t, "bob")

	if _, err := f.svc.Send(ctx, alice, SendInput{RecipientID: &bob, Type: domain.MessageTypeText, Content: "ping"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := f.notifier.types(bob); len(got) != 1 || got[0] != domain.NotificationMessage {
		t.Fatalf("recipient notifications = %v", got)
	}
	if got := f.notifier.types(alice); len(got) != 0 {
		t.Fatalf("sender should not be notified, got %v", got)
	}
}

func TestConcurrentSendsFanOutInCommitOrder(t *testing.T) {
	f := newMessageFixture()
	ctx := context.Background()
	alice := f.addUser(t, "alice")
	carol := f.addUser(t, "carol")
	bob := f.addUser(t, "bob")

	group := &domain.Group{ID: uuid.New(), Name: "ops", CreatedBy: alice, Permissions: domain.DefaultPermissions()}
	if err := f.groups.Create(ctx, group); err != nil {
		t.Fatalf("create group: %v", err)
	}
	for _, id := range []uuid.UUID{carol, bob} {
		if err := f.groups.AddMember(ctx, &domain.GroupMember{GroupID: group.ID, UserID: id, Role: domain.RoleMember}); err != nil {
			t.Fatalf("add member: %v", err)
		}
	}
	ref := domain.GroupRef(group.ID)

	sess, conn := connectRecording(f.registry, bob)
	f.registry.Join(sess, realtime.GroupRoom(group.ID))

	// Stall the first sender between its commit and its fan-out. The
	// second sender must queue behind it instead of overtaking.
	release := make(chan struct{})
	firstCommitted := make(chan struct{})
	f.messages.afterCommit = func(m *domain.Message) {
		if m.Content == "first" {
			close(firstCommitted)
			<-release
		}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if _, err := f.svc.Send(ctx, alice, SendInput{Ref: &ref, Type: domain.MessageTypeText, Content: "first"}); err != nil {
			t.Errorf("send first: %v", err)
		}
	}()
	<-firstCommitted

	go func() {
		defer wg.Done()
		if _, err := f.svc.Send(ctx, carol, SendInput{Ref: &ref, Type: domain.MessageTypeText, Content: "second"}); err != nil {
			t.Errorf("send second: %v", err)
		}
	}()

	time.Sleep(20 * time.Millisecond)
	if n := f.messages.count(); n != 1 {
		t.Fatalf("second send committed while the first was mid fan-out (%d messages stored)", n)
	}
	close(release)
	wg.Wait()

	conn.waitFrames(t, 2)
	for i, want := range []string{"first", "second"} {
		var env struct {
			Event string                         `json:"event"`
			Data  realtime.ReceiveMessagePayload `json:"data"`
		}
		if err := json.Unmarshal(conn.frame(i), &env); err != nil {
			t.Fatalf("decode frame %d: %v", i, err)
		}
		if env.Event != realtime.EventReceiveMessage {
			t.Fatalf("frame %d event = %q", i, env.Event)
		}
		if env.Data.Message.Content != want {
			t.Fatalf("frame %d content = %q, want %q", i, env.Data.Message.Content, want)
		}
	}
}

func TestMarkSeenSkipsOriginSession(t *testing.T) {
	f := newMessageFixture()
	ctx := context.Background()
	alice := f.addUser(t, "alice")
	bob := f.addUser(t, "bob")

	group := &domain.Group{ID: uuid.New(), Name: "ops", CreatedBy: alice, Permissions: domain.DefaultPermissions()}
	if err := f.groups.Create(ctx, group); err != nil {
		t.Fatalf("create group: %v", err)
	}
	if err := f.groups.AddMember(ctx, &domain.GroupMember{GroupID: group.ID, UserID: bob, Role: domain.RoleMember}); err != nil {
		t.Fatalf("add member: %v", err)
	}
	ref := domain.GroupRef(group.ID)
	if _, err := f.svc.Send(ctx, alice, SendInput{Ref: &ref, Type: domain.MessageTypeText, Content: "read me"}); err != nil {
		t.Fatalf("send: %v", err)
	}

	aliceSess, aliceConn := connectRecording(f.registry, alice)
	f.registry.Join(aliceSess, realtime.GroupRoom(group.ID))
	bobSess, bobConn := connectRecording(f.registry, bob)
	f.registry.Join(bobSess, realtime.GroupRoom(group.ID))

	if _, err := f.svc.MarkSeen(ctx, bob, ref, bobSess.ID); err != nil {
		t.Fatalf("mark seen: %v", err)
	}

	aliceConn.waitFrames(t, 1)
	var env struct {
		Event string                      `json:"event"`
		Data  realtime.MessageSeenPayload `json:"data"`
	}
	if err := json.Unmarshal(aliceConn.frame(0), &env); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if env.Event != realtime.EventMessageSeen || env.Data.UserID != bob {
		t.Fatalf("frame = %q from %v", env.Event, env.Data.UserID)
	}

	// The originating session never echoes back to itself.
	time.Sleep(20 * time.Millisecond)
	if n := bobConn.count(); n != 0 {
		t.Fatalf("origin session received %d frames", n)
	}
}

func TestMarkSeenMonotonicAndCountUnseen(t *testing.T) {
	f := newMessageFixture()
	ctx := context.Background()
	alice := f.addUser(t, "alice")
	bob := f.addUser(t, "bob")

	var ref domain.ConversationRef
	for i := 0; i < 3; i++ {
		msg, err := f.svc.Send(ctx, alice, SendInput{RecipientID: &bob, Type: domain.MessageTypeText, Content: "msg"})
		if err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
		ref = msg.Conversation
	}

	unseen, err := f.svc.CountUnseen(ctx, bob, ref)
	if err != nil {
		t.Fatalf("count unseen: %v", err)
	}
	if unseen != 3 {
		t.Fatalf("unseen = %d, want 3", unseen)
	}

	updated, err := f.svc.MarkSeen(ctx, bob, ref, "")
	if err != nil {
		t.Fatalf("mark seen: %v", err)
	}
	if updated != 3 {
		t.Fatalf("updated = %d, want 3", updated)
	}

	// Seen is set-once; a second pass touches nothing.
	updated, err = f.svc.MarkSeen(ctx, bob, ref, "")
	if err != nil {
		t.Fatalf("mark seen again: %v", err)
	}
	if updated != 0 {
		t.Fatalf("second mark seen updated %d messages", updated)
	}

	unseen, err = f.svc.CountUnseen(ctx, bob, ref)
	if err != nil {
		t.Fatalf("count unseen after: %v", err)
	}
	if unseen != 0 {
		t.Fatalf("unseen after mark = %d, want 0", unseen)
	}

	// The viewer's own sends never count against them.
	if unseen, err = f.svc.CountUnseen(ctx, alice, ref); err != nil || unseen != 0 {
		t.Fatalf("sender unseen = %d, err %v", unseen, err)
	}
}

func TestPageSettlesDeliveryAndSeenForViewer(t *testing.T) {
	f := newMessageFixture()
	ctx := context.Background()
	alice := f.addUser(t, "alice")
	bob := f.addUser(t, "bob")

	msg, err := f.svc.Send(ctx, alice, SendInput{RecipientID: &bob, Type: domain.MessageTypeText, Content: "catch up later"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.DeliveredAt != nil {
		t.Fatal("precondition: message should be undelivered")
	}

	page, err := f.svc.Page(ctx, bob, msg.Conversation, 50, 0)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if len(page) != 1 {
		t.Fatalf("page len = %d, want 1", len(page))
	}

	// Fetching the conversation is the viewer observing it: delivery and
	// seen both settle.
	stored, err := f.messages.GetByID(ctx, msg.ID)
	if err != nil {
		t.Fatalf("get message: %v", err)
	}
	if stored.DeliveredAt == nil || stored.SeenAt == nil {
		t.Fatalf("after page: delivered=%v seen=%v, want both set", stored.DeliveredAt, stored.SeenAt)
	}
	if unseen, err := f.svc.CountUnseen(ctx, bob, msg.Conversation); err != nil || unseen != 0 {
		t.Fatalf("unseen after page = %d, err %v", unseen, err)
	}

	// The sender paging their own conversation never transitions anything.
	if _, err := f.svc.Page(ctx, alice, msg.Conversation, 50, 0); err != nil {
		t.Fatalf("sender page: %v", err)
	}
}

func TestPageRequiresMembership(t *testing.T) {
	f := newMessageFixture()
	ctx := context.Background()
	alice := f.addUser(t, "alice")
	bob := f.addUser(t, "bob")
	eve := f.addUser(t, "eve")

	msg, err := f.svc.Send(ctx, alice, SendInput{RecipientID: &bob, Type: domain.MessageTypeText, Content: "secret"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := f.svc.Page(ctx, eve, msg.Conversation, 50, 0); apperrors.KindOf(err) != apperrors.KindForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}
