package main

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/PaulBabatuyi/clique-gRPC/internal/auth"
	"github.com/PaulBabatuyi/clique-gRPC/internal/chatv1"
	"github.com/PaulBabatuyi/clique-gRPC/internal/conversation"
	"github.com/PaulBabatuyi/clique-gRPC/internal/data"
)

func newTestServer(t *testing.T) (*Server, *memDB) {
	t.Helper()
	db := newMemDB()
	st := db.stores()
	resolver := conversation.NewResolver(memConversations{db}, memProfiles{db}, zerolog.Nop())
	srv := newServer(st, resolver, auth.NewJWTManager("test-secret", time.Hour), NewConnectionHub(), zerolog.Nop())
	return srv, db
}

// signUp registers a user and returns a context carrying their claims.
func signUp(t *testing.T, s *Server, email, name string) (context.Context, *chatv1.AuthResponse) {
	t.Helper()
	resp, err := s.SignUp(context.Background(), &chatv1.SignUpRequest{Email: email, Password: "correct horse", DisplayName: name})
	require.NoError(t, err)
	return ctxFor(t, s, resp.Token), resp
}

func ctxFor(t *testing.T, s *Server, token string) context.Context {
	t.Helper()
	claims, err := s.auth.VerifyToken(token)
	require.NoError(t, err)
	return context.WithValue(context.Background(), authContextKey{}, claims)
}

func requireCode(t *testing.T, err error, code codes.Code) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, status.Code(err), "unexpected status: %v", err)
}

// fakeStream implements chatv1.ChatService_SubscribeServer.
type fakeStream struct {
	ctx context.Context

	mu     sync.Mutex
	events []*chatv1.Event
	fail   bool
}

func newFakeStream(ctx context.Context) *fakeStream { return &fakeStream{ctx: ctx} }

func (f *fakeStream) Send(ev *chatv1.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broken")
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeStream) received() []*chatv1.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*chatv1.Event(nil), f.events...)
}

func (f *fakeStream) Context() context.Context        { return f.ctx }
func (f *fakeStream) SetHeader(md metadata.MD) error  { return nil }
func (f *fakeStream) SendHeader(md metadata.MD) error { return nil }
func (f *fakeStream) SetTrailer(md metadata.MD)       {}
func (f *fakeStream) RecvMsg(m any) error             { return nil }
func (f *fakeStream) SendMsg(m any) error {
	ev, ok := m.(*chatv1.Event)
	if !ok {
		return errors.New("SendMsg: unexpected type")
	}
	return f.Send(ev)
}

func TestSignUp_CreatesProfileAndSession(t *testing.T) {
	s, db := newTestServer(t)

	resp, err := s.SignUp(context.Background(), &chatv1.SignUpRequest{
		Email:       "  Alice@Example.com ",
		Password:    "correct horse",
		DisplayName: " Alice ",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
	require.Equal(t, "alice", resp.Profile.Username)
	require.Equal(t, "Alice", resp.Profile.DisplayName)

	active, err := memSessions{db}.SessionActive(context.Background(), resp.SessionId)
	require.NoError(t, err)
	require.True(t, active)

	// same local part on another domain gets a suffixed username
	_, second := signUp(t, s, "alice@other.org", "Other Alice")
	require.Equal(t, "alice2", second.Profile.Username)

	// short local parts are padded
	_, short := signUp(t, s, "al@example.com", "Al")
	require.Equal(t, "useral", short.Profile.Username)
}

func TestSignUp_Validation(t *testing.T) {
	s, _ := newTestServer(t)

	_, err := s.SignUp(context.Background(), &chatv1.SignUpRequest{Email: "not-an-email", Password: "short", DisplayName: ""})
	requireCode(t, err, codes.InvalidArgument)

	st := status.Convert(err)
	fields := map[string]bool{}
	for _, d := range st.Details() {
		if br, ok := d.(*errdetails.BadRequest); ok {
			for _, v := range br.GetFieldViolations() {
				fields[v.GetField()] = true
			}
		}
	}
	require.True(t, fields["Email"])
	require.True(t, fields["Password"])
	require.True(t, fields["DisplayName"])
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	s, _ := newTestServer(t)
	signUp(t, s, "bob@example.com", "Bob")

	_, err := s.SignUp(context.Background(), &chatv1.SignUpRequest{Email: "BOB@example.com", Password: "correct horse", DisplayName: "Bob"})
	requireCode(t, err, codes.AlreadyExists)
}

type failingProfiles struct{ memProfiles }

func (failingProfiles) CreateProfile(context.Context, *data.Profile) error {
	return errors.New("disk full")
}

func TestSignUp_RollsBackUserWhenProfileFails(t *testing.T) {
	s, db := newTestServer(t)
	s.profiles = failingProfiles{memProfiles{db}}

	_, err := s.SignUp(context.Background(), &chatv1.SignUpRequest{Email: "carol@example.com", Password: "correct horse", DisplayName: "Carol"})
	requireCode(t, err, codes.Internal)

	_, err = memUsers{db}.GetUserByEmail(context.Background(), "carol@example.com")
	require.ErrorIs(t, err, data.ErrNotFound)
}

func TestSignIn(t *testing.T) {
	s, _ := newTestServer(t)
	_, reg := signUp(t, s, "dave@example.com", "Dave")

	resp, err := s.SignIn(context.Background(), &chatv1.SignInRequest{Email: "Dave@Example.com", Password: "correct horse"})
	require.NoError(t, err)
	require.Equal(t, reg.UserId, resp.UserId)
	require.NotEqual(t, reg.SessionId, resp.SessionId)
	require.Equal(t, "dave", resp.Profile.Username)

	_, err = s.SignIn(context.Background(), &chatv1.SignInRequest{Email: "dave@example.com", Password: "wrong password"})
	requireCode(t, err, codes.Unauthenticated)

	_, err = s.SignIn(context.Background(), &chatv1.SignInRequest{Email: "nobody@example.com", Password: "whatever1"})
	requireCode(t, err, codes.Unauthenticated)
}

func TestSignOut_EndsSessionAndStreams(t *testing.T) {
	s, db := newTestServer(t)
	ctx, reg := signUp(t, s, "erin@example.com", "Erin")

	stream := newFakeStream(ctx)
	done := make(chan error, 1)
	go func() { done <- s.Subscribe(&chatv1.SubscribeRequest{}, stream) }()
	require.Eventually(t, func() bool { return s.hub.Online(reg.UserId) }, time.Second, 5*time.Millisecond)

	_, err := s.SignOut(ctx, &chatv1.SignOutRequest{})
	require.NoError(t, err)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatalf("Subscribe did not return after sign-out")
	}

	events := stream.received()
	require.Len(t, events, 1)
	require.Equal(t, chatv1.EventSignedOut, events[0].Kind)
	require.Equal(t, reg.SessionId, events[0].SessionId)

	active, err := memSessions{db}.SessionActive(context.Background(), reg.SessionId)
	require.NoError(t, err)
	require.False(t, active)
	require.False(t, s.hub.Online(reg.UserId))
}

func TestRefreshToken_RotatesSession(t *testing.T) {
	s, db := newTestServer(t)
	ctx, reg := signUp(t, s, "frank@example.com", "Frank")

	resp, err := s.RefreshToken(ctx, &chatv1.RefreshTokenRequest{})
	require.NoError(t, err)
	require.NotEqual(t, reg.SessionId, resp.SessionId)

	sessions := memSessions{db}
	oldActive, _ := sessions.SessionActive(context.Background(), reg.SessionId)
	newActive, _ := sessions.SessionActive(context.Background(), resp.SessionId)
	require.False(t, oldActive)
	require.True(t, newActive)
}

func TestProfiles(t *testing.T) {
	s, _ := newTestServer(t)
	ctx, alice := signUp(t, s, "alice@example.com", "Alice")
	_, bob := signUp(t, s, "bob@example.com", "Bob")

	got, err := s.GetProfile(ctx, &chatv1.GetProfileRequest{})
	require.NoError(t, err)
	require.Equal(t, alice.UserId, got.Profile.Id)

	got, err = s.GetProfile(ctx, &chatv1.GetProfileRequest{UserId: bob.UserId})
	require.NoError(t, err)
	require.Equal(t, "bob", got.Profile.Username)

	_, err = s.GetProfile(ctx, &chatv1.GetProfileRequest{UserId: bson.NewObjectID().Hex()})
	requireCode(t, err, codes.NotFound)

	name, bio := "Alice L.", "hello"
	updated, err := s.UpdateProfile(ctx, &chatv1.UpdateProfileRequest{DisplayName: &name, Bio: &bio})
	require.NoError(t, err)
	require.Equal(t, "Alice L.", updated.Profile.DisplayName)
	require.Equal(t, "hello", updated.Profile.Bio)

	taken := "BOB"
	_, err = s.UpdateProfile(ctx, &chatv1.UpdateProfileRequest{Username: &taken})
	requireCode(t, err, codes.AlreadyExists)

	bad := "no spaces allowed"
	_, err = s.UpdateProfile(ctx, &chatv1.UpdateProfileRequest{Username: &bad})
	requireCode(t, err, codes.InvalidArgument)

	_, err = s.UpdateProfile(ctx, &chatv1.UpdateProfileRequest{})
	requireCode(t, err, codes.InvalidArgument)
}

func TestUpdateProfile_ClearsAvatar(t *testing.T) {
	s, _ := newTestServer(t)
	ctx, _ := signUp(t, s, "alice@example.com", "Alice")

	avatar := "https://cdn.example.com/alice.png"
	updated, err := s.UpdateProfile(ctx, &chatv1.UpdateProfileRequest{AvatarUrl: &avatar})
	require.NoError(t, err)
	require.Equal(t, avatar, updated.Profile.AvatarUrl)

	empty := "  "
	updated, err = s.UpdateProfile(ctx, &chatv1.UpdateProfileRequest{AvatarUrl: &empty})
	require.NoError(t, err)
	require.Empty(t, updated.Profile.AvatarUrl)

	got, err := s.GetProfile(ctx, &chatv1.GetProfileRequest{})
	require.NoError(t, err)
	require.Empty(t, got.Profile.AvatarUrl)

	bad := "not a url"
	_, err = s.UpdateProfile(ctx, &chatv1.UpdateProfileRequest{AvatarUrl: &bad})
	requireCode(t, err, codes.InvalidArgument)
}

func TestSearchUsers(t *testing.T) {
	s, _ := newTestServer(t)
	ctx, _ := signUp(t, s, "alice@example.com", "Alice")
	signUp(t, s, "alina@example.com", "Alina")
	signUp(t, s, "bob@example.com", "Bob Malik")

	resp, err := s.SearchUsers(ctx, &chatv1.SearchUsersRequest{Query: " a "})
	require.NoError(t, err)
	require.Empty(t, resp.Profiles)

	resp, err = s.SearchUsers(ctx, &chatv1.SearchUsersRequest{Query: "ALI"})
	require.NoError(t, err)
	names := make([]string, 0, len(resp.Profiles))
	for _, p := range resp.Profiles {
		names = append(names, p.Username)
	}
	// the caller is never part of the results
	require.Equal(t, []string{"alina", "bob"}, names)
}

func TestFindOrCreateConversation(t *testing.T) {
	s, db := newTestServer(t)
	aliceCtx, alice := signUp(t, s, "alice@example.com", "Alice")
	bobCtx, bob := signUp(t, s, "bob@example.com", "Bob")

	first, err := s.FindOrCreateConversation(aliceCtx, &chatv1.FindOrCreateConversationRequest{OtherUserId: bob.UserId})
	require.NoError(t, err)
	again, err := s.FindOrCreateConversation(aliceCtx, &chatv1.FindOrCreateConversationRequest{OtherUserId: bob.UserId})
	require.NoError(t, err)
	reverse, err := s.FindOrCreateConversation(bobCtx, &chatv1.FindOrCreateConversationRequest{OtherUserId: alice.UserId})
	require.NoError(t, err)

	require.Equal(t, first.ConversationId, again.ConversationId)
	require.Equal(t, first.ConversationId, reverse.ConversationId)
	require.Len(t, db.conversations, 1)

	_, err = s.FindOrCreateConversation(aliceCtx, &chatv1.FindOrCreateConversationRequest{OtherUserId: alice.UserId})
	requireCode(t, err, codes.InvalidArgument)

	_, err = s.FindOrCreateConversation(aliceCtx, &chatv1.FindOrCreateConversationRequest{OtherUserId: bson.NewObjectID().Hex()})
	requireCode(t, err, codes.NotFound)
}

func TestFindOrCreateConversation_NoOrphanOnParticipantFailure(t *testing.T) {
	s, db := newTestServer(t)
	ctx, _ := signUp(t, s, "alice@example.com", "Alice")
	_, bob := signUp(t, s, "bob@example.com", "Bob")

	db.failParticipants = true
	_, err := s.FindOrCreateConversation(ctx, &chatv1.FindOrCreateConversationRequest{OtherUserId: bob.UserId})
	requireCode(t, err, codes.Internal)
	require.Empty(t, db.conversations)
}

type resolverFunc func(ctx context.Context, currentUserID, otherUserID string) (string, error)

func (f resolverFunc) Resolve(ctx context.Context, currentUserID, otherUserID string) (string, error) {
	return f(ctx, currentUserID, otherUserID)
}

func TestFindOrCreateConversation_ConflictIsRetryable(t *testing.T) {
	s, _ := newTestServer(t)
	ctx, _ := signUp(t, s, "alice@example.com", "Alice")
	_, bob := signUp(t, s, "bob@example.com", "Bob")

	s.resolver = resolverFunc(func(context.Context, string, string) (string, error) {
		return "", conversation.ErrConflict
	})
	_, err := s.FindOrCreateConversation(ctx, &chatv1.FindOrCreateConversationRequest{OtherUserId: bob.UserId})
	requireCode(t, err, codes.Aborted)

	s.resolver = resolverFunc(func(context.Context, string, string) (string, error) {
		return "", data.ErrUserNotFound
	})
	_, err = s.FindOrCreateConversation(ctx, &chatv1.FindOrCreateConversationRequest{OtherUserId: bob.UserId})
	requireCode(t, err, codes.NotFound)
}

func TestSendMessage_PersistsAndEchoes(t *testing.T) {
	s, _ := newTestServer(t)
	aliceCtx, _ := signUp(t, s, "alice@example.com", "Alice")
	bobCtx, bob := signUp(t, s, "bob@example.com", "Bob")
	carolCtx, _ := signUp(t, s, "carol@example.com", "Carol")

	conv, err := s.FindOrCreateConversation(aliceCtx, &chatv1.FindOrCreateConversationRequest{OtherUserId: bob.UserId})
	require.NoError(t, err)

	aliceStream := newFakeStream(aliceCtx)
	bobStream := newFakeStream(bobCtx)
	claimsA, _ := getClaimsFromContext(aliceCtx)
	claimsB, _ := getClaimsFromContext(bobCtx)
	s.hub.Register(claimsA.UserID, claimsA.SessionID(), aliceStream)
	s.hub.Register(claimsB.UserID, claimsB.SessionID(), bobStream)

	resp, err := s.SendMessage(aliceCtx, &chatv1.SendMessageRequest{
		ChatKind: chatv1.ChatConversation,
		ChatId:   conv.ConversationId,
		Content:  "  <b>hi</b> bob  ",
		ClientId: "tmp-1",
	})
	require.NoError(t, err)
	require.Equal(t, "<b>hi</b> bob", resp.Message.Content)
	require.Equal(t, "tmp-1", resp.Message.ClientId)

	// stored as sent; rendering is the reader's concern
	history, err := s.GetMessages(bobCtx, &chatv1.GetMessagesRequest{ChatKind: chatv1.ChatConversation, ChatId: conv.ConversationId})
	require.NoError(t, err)
	require.Len(t, history.Messages, 1)
	require.Equal(t, "<b>hi</b> bob", history.Messages[0].Content)

	for _, st := range []*fakeStream{aliceStream, bobStream} {
		events := st.received()
		require.Len(t, events, 1)
		require.Equal(t, chatv1.EventMessage, events[0].Kind)
		require.Equal(t, resp.Message.Id, events[0].Message.Id)
		require.Equal(t, "tmp-1", events[0].Message.ClientId)
	}

	list, err := s.ListConversations(bobCtx, &chatv1.ListConversationsRequest{})
	require.NoError(t, err)
	require.Len(t, list.Conversations, 1)
	require.Equal(t, "alice", list.Conversations[0].Other.Username)
	require.Equal(t, resp.Message.Content, list.Conversations[0].LastMessage)

	// outsiders can neither write nor read
	_, err = s.SendMessage(carolCtx, &chatv1.SendMessageRequest{ChatKind: chatv1.ChatConversation, ChatId: conv.ConversationId, Content: "hey"})
	requireCode(t, err, codes.PermissionDenied)
	_, err = s.GetMessages(carolCtx, &chatv1.GetMessagesRequest{ChatKind: chatv1.ChatConversation, ChatId: conv.ConversationId})
	requireCode(t, err, codes.PermissionDenied)
}

func TestSendMessage_Validation(t *testing.T) {
	s, _ := newTestServer(t)
	ctx, _ := signUp(t, s, "alice@example.com", "Alice")
	_, bob := signUp(t, s, "bob@example.com", "Bob")
	conv, err := s.FindOrCreateConversation(ctx, &chatv1.FindOrCreateConversationRequest{OtherUserId: bob.UserId})
	require.NoError(t, err)

	cases := map[string]*chatv1.SendMessageRequest{
		"blank":      {ChatKind: chatv1.ChatConversation, ChatId: conv.ConversationId, Content: "   "},
		"too long":   {ChatKind: chatv1.ChatConversation, ChatId: conv.ConversationId, Content: strings.Repeat("x", maxContentChars+1)},
		"bad kind":   {ChatKind: "dm", ChatId: conv.ConversationId, Content: "hi"},
		"bad chat":   {ChatKind: chatv1.ChatConversation, ChatId: "zzz", Content: "hi"},
		"long label": {ChatKind: chatv1.ChatConversation, ChatId: conv.ConversationId, Content: "hi", ClientId: strings.Repeat("c", maxClientIDLen+1)},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.SendMessage(ctx, req)
			requireCode(t, err, codes.InvalidArgument)
		})
	}

	_, err = s.SendMessage(ctx, &chatv1.SendMessageRequest{ChatKind: chatv1.ChatConversation, ChatId: bson.NewObjectID().Hex(), Content: "hi"})
	requireCode(t, err, codes.NotFound)
}

func TestGetMessages_OldestFirstWithSenders(t *testing.T) {
	s, _ := newTestServer(t)
	aliceCtx, _ := signUp(t, s, "alice@example.com", "Alice")
	bobCtx, bob := signUp(t, s, "bob@example.com", "Bob")
	conv, err := s.FindOrCreateConversation(aliceCtx, &chatv1.FindOrCreateConversationRequest{OtherUserId: bob.UserId})
	require.NoError(t, err)

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Second) }

	for _, m := range []struct {
		ctx  context.Context
		text string
	}{{aliceCtx, "one"}, {aliceCtx, "two"}, {bobCtx, "three"}} {
		_, err := s.SendMessage(m.ctx, &chatv1.SendMessageRequest{ChatKind: chatv1.ChatConversation, ChatId: conv.ConversationId, Content: m.text})
		require.NoError(t, err)
	}

	resp, err := s.GetMessages(bobCtx, &chatv1.GetMessagesRequest{ChatKind: chatv1.ChatConversation, ChatId: conv.ConversationId, Limit: 2})
	require.NoError(t, err)
	require.Len(t, resp.Messages, 2)
	require.Equal(t, "two", resp.Messages[0].Content)
	require.Equal(t, "three", resp.Messages[1].Content)
	require.Len(t, resp.Senders, 2)
}

func TestGroupsAndChannels(t *testing.T) {
	s, _ := newTestServer(t)
	ownerCtx, _ := signUp(t, s, "owner@example.com", "Owner")
	memberCtx, member := signUp(t, s, "member@example.com", "Member")
	_, outsider := signUp(t, s, "outsider@example.com", "Outsider")

	created, err := s.CreateGroup(ownerCtx, &chatv1.CreateGroupRequest{Name: " Book club "})
	require.NoError(t, err)
	require.Equal(t, "Book club", created.Group.Name)
	require.True(t, created.Group.IsAdmin)
	groupID := created.Group.Id

	_, err = s.CreateGroup(ownerCtx, &chatv1.CreateGroupRequest{Name: "  "})
	requireCode(t, err, codes.InvalidArgument)

	// not a member yet
	_, err = s.GetGroup(memberCtx, &chatv1.GetGroupRequest{GroupId: groupID})
	requireCode(t, err, codes.PermissionDenied)

	invited, err := s.InviteMember(ownerCtx, &chatv1.InviteMemberRequest{GroupId: groupID, UserId: member.UserId})
	require.NoError(t, err)
	require.Contains(t, invited.Group.MemberIds, member.UserId)

	// members cannot administer the group
	_, err = s.InviteMember(memberCtx, &chatv1.InviteMemberRequest{GroupId: groupID, UserId: outsider.UserId})
	requireCode(t, err, codes.PermissionDenied)
	require.Equal(t, "Permission denied", status.Convert(err).Message())
	_, err = s.CreateChannel(memberCtx, &chatv1.CreateChannelRequest{GroupId: groupID, Name: "random"})
	requireCode(t, err, codes.PermissionDenied)

	ch, err := s.CreateChannel(ownerCtx, &chatv1.CreateChannelRequest{GroupId: groupID, Name: "general"})
	require.NoError(t, err)
	_, err = s.CreateChannel(ownerCtx, &chatv1.CreateChannelRequest{GroupId: groupID, Name: "general"})
	requireCode(t, err, codes.AlreadyExists)

	groups, err := s.ListGroups(memberCtx, &chatv1.ListGroupsRequest{})
	require.NoError(t, err)
	require.Len(t, groups.Groups, 1)
	require.False(t, groups.Groups[0].IsAdmin)

	detail, err := s.GetGroup(memberCtx, &chatv1.GetGroupRequest{GroupId: groupID})
	require.NoError(t, err)
	require.Len(t, detail.Channels, 1)
	require.Len(t, detail.Members, 2)

	sent, err := s.SendMessage(memberCtx, &chatv1.SendMessageRequest{ChatKind: chatv1.ChatChannel, ChatId: ch.Channel.Id, Content: "hello club"})
	require.NoError(t, err)

	history, err := s.GetMessages(ownerCtx, &chatv1.GetMessagesRequest{ChatKind: chatv1.ChatChannel, ChatId: ch.Channel.Id})
	require.NoError(t, err)
	require.Len(t, history.Messages, 1)
	require.Equal(t, sent.Message.Id, history.Messages[0].Id)

	channels, err := s.ListChannels(memberCtx, &chatv1.ListChannelsRequest{GroupId: groupID})
	require.NoError(t, err)
	require.Len(t, channels.Channels, 1)
}

func TestHandlers_RequireClaims(t *testing.T) {
	s, _ := newTestServer(t)
	_, err := s.ListGroups(context.Background(), &chatv1.ListGroupsRequest{})
	requireCode(t, err, codes.Unauthenticated)
}
