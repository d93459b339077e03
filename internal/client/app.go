// Package client is the Go client for the clique chat service. An App
// owns the session store and drives it from backend responses; the feed
// and session packages hold the state a UI renders.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PaulBabatuyi/clique-gRPC/internal/chatv1"
	"github.com/PaulBabatuyi/clique-gRPC/internal/client/feed"
	"github.com/PaulBabatuyi/clique-gRPC/internal/client/session"
)

// ErrNotSignedIn is returned by calls that need an authenticated session.
var ErrNotSignedIn = errors.New("not signed in")

// App wires a backend client to a session store.
type App struct {
	backend chatv1.ChatServiceClient
	session *session.Store
	log     zerolog.Logger
	now     func() time.Time
}

func New(backend chatv1.ChatServiceClient, store *session.Store, log zerolog.Logger) *App {
	return &App{backend: backend, session: store, log: log, now: time.Now}
}

// Session returns the store the App drives.
func (a *App) Session() *session.Store { return a.session }

// Backend exposes the raw service client for calls with no client-side state.
func (a *App) Backend() chatv1.ChatServiceClient { return a.backend }

// Route resolves path against the current session status.
func (a *App) Route(path string) Route {
	return Resolve(path, a.session.Status() == session.Authenticated)
}

// Searcher returns a Searcher bound to the backend.
func (a *App) Searcher() *Searcher { return NewSearcher(a.backend) }

func (a *App) SignUp(ctx context.Context, email, password, displayName string) (*chatv1.Profile, error) {
	return a.authenticate(func() (*chatv1.AuthResponse, error) {
		return a.backend.SignUp(ctx, &chatv1.SignUpRequest{Email: email, Password: password, DisplayName: displayName})
	})
}

func (a *App) SignIn(ctx context.Context, email, password string) (*chatv1.Profile, error) {
	return a.authenticate(func() (*chatv1.AuthResponse, error) {
		return a.backend.SignIn(ctx, &chatv1.SignInRequest{Email: email, Password: password})
	})
}

func (a *App) authenticate(call func() (*chatv1.AuthResponse, error)) (*chatv1.Profile, error) {
	a.session.Apply(session.Event{Kind: session.SigningIn})
	resp, err := call()
	if err != nil {
		a.session.Apply(session.Event{Kind: session.SignInFailed})
		return nil, err
	}
	a.session.Apply(session.Event{Kind: session.SignedIn, Session: sessionFromAuth(resp)})
	a.log.Debug().Str("user_id", resp.UserId).Msg("signed in")
	return resp.Profile, nil
}

// SignOut ends the session on the backend and clears the local store. The
// store is cleared even when the backend call fails.
func (a *App) SignOut(ctx context.Context) error {
	if a.session.Status() != session.Authenticated {
		a.session.Apply(session.Event{Kind: session.SignedOut})
		return nil
	}
	_, err := a.backend.SignOut(ctx, &chatv1.SignOutRequest{})
	a.session.Apply(session.Event{Kind: session.SignedOut})
	if err != nil {
		a.log.Warn().Err(err).Msg("sign out")
		return err
	}
	return nil
}

// Refresh exchanges the current token for a new one.
func (a *App) Refresh(ctx context.Context) error {
	if a.session.Status() != session.Authenticated {
		return ErrNotSignedIn
	}
	resp, err := a.backend.RefreshToken(ctx, &chatv1.RefreshTokenRequest{})
	if err != nil {
		if status.Code(err) == codes.Unauthenticated {
			a.session.Apply(session.Event{Kind: session.SignedOut})
		}
		return err
	}
	a.session.Apply(session.Event{Kind: session.TokenRefreshed, Session: sessionFromAuth(resp)})
	return nil
}

// Profile returns userID's profile, or the caller's own when userID is empty.
func (a *App) Profile(ctx context.Context, userID string) (*chatv1.Profile, error) {
	resp, err := a.backend.GetProfile(ctx, &chatv1.GetProfileRequest{UserId: userID})
	if err != nil {
		return nil, err
	}
	return resp.Profile, nil
}

func (a *App) UpdateProfile(ctx context.Context, in *chatv1.UpdateProfileRequest) (*chatv1.Profile, error) {
	resp, err := a.backend.UpdateProfile(ctx, in)
	if err != nil {
		return nil, err
	}
	if cur, ok := a.session.Current(); ok && resp.Profile != nil {
		cur.Username, cur.DisplayName = resp.Profile.Username, resp.Profile.DisplayName
		a.session.Apply(session.Event{Kind: session.TokenRefreshed, Session: &cur})
	}
	return resp.Profile, nil
}

// StartConversation finds or creates the conversation with otherUserID and
// returns the path to navigate to.
func (a *App) StartConversation(ctx context.Context, otherUserID string) (string, error) {
	if a.session.Status() != session.Authenticated {
		return "", ErrNotSignedIn
	}
	otherUserID = strings.TrimSpace(otherUserID)
	if otherUserID == "" {
		return "", fmt.Errorf("start conversation: %w", status.Error(codes.InvalidArgument, "user id is required"))
	}
	resp, err := a.backend.FindOrCreateConversation(ctx, &chatv1.FindOrCreateConversationRequest{OtherUserId: otherUserID})
	if err != nil {
		return "", err
	}
	return ConversationPath(resp.ConversationId), nil
}

func (a *App) Conversations(ctx context.Context) ([]*chatv1.ConversationSummary, error) {
	resp, err := a.backend.ListConversations(ctx, &chatv1.ListConversationsRequest{})
	if err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

// LoadFeed fetches a chat's history into a new feed. The feed is returned
// even when the fetch fails; its view then reports the failure.
func (a *App) LoadFeed(ctx context.Context, chatKind, chatID string, limit int32) (*feed.Feed, map[string]*chatv1.Profile, error) {
	f := feed.New(chatID)
	f.BeginLoad()
	resp, err := a.backend.GetMessages(ctx, &chatv1.GetMessagesRequest{ChatKind: chatKind, ChatId: chatID, Limit: limit})
	if err != nil {
		f.Failed(err)
		return f, nil, err
	}
	f.Loaded(lo.Map(resp.Messages, func(m *chatv1.Message, _ int) feed.Message { return feedMessage(m) }))
	senders := lo.SliceToMap(resp.Senders, func(p *chatv1.Profile) (string, *chatv1.Profile) { return p.Id, p })
	return f, senders, nil
}

// Send shows content as pending in f, sends it and reconciles the result.
// On failure the pending entry is marked failed and left for the caller to
// retry or discard.
func (a *App) Send(ctx context.Context, f *feed.Feed, chatKind, content string) (feed.Message, error) {
	cur, ok := a.session.Current()
	if !ok {
		return feed.Message{}, ErrNotSignedIn
	}
	pending := f.AddPending(cur.UserID, content, a.now())
	resp, err := a.backend.SendMessage(ctx, &chatv1.SendMessageRequest{
		ChatKind: chatKind,
		ChatId:   f.ChatID(),
		Content:  content,
		ClientId: pending.ClientID,
	})
	if err != nil {
		f.MarkFailed(pending.ClientID)
		pending.State = feed.Failed
		return pending, err
	}
	m := feedMessage(resp.Message)
	f.Confirm(m)
	return m, nil
}

// Watch subscribes to the caller's event stream and hands every message to
// onMessage until ctx is done or the stream ends. A signed_out event clears
// the session store.
func (a *App) Watch(ctx context.Context, onMessage func(feed.Message)) error {
	if a.session.Status() != session.Authenticated {
		return ErrNotSignedIn
	}
	stream, err := a.backend.Subscribe(ctx, &chatv1.SubscribeRequest{})
	if err != nil {
		return err
	}
	for {
		ev, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		switch ev.Kind {
		case chatv1.EventMessage:
			if ev.Message != nil {
				onMessage(feedMessage(ev.Message))
			}
		case chatv1.EventSignedOut:
			a.session.Apply(session.Event{Kind: session.SignedOut})
			a.log.Info().Str("session_id", ev.SessionId).Msg("signed out by server")
			return nil
		default:
			a.log.Debug().Str("kind", ev.Kind).Msg("ignoring event")
		}
	}
}

func sessionFromAuth(resp *chatv1.AuthResponse) *session.Session {
	s := &session.Session{
		UserID:    resp.UserId,
		SessionID: resp.SessionId,
		Token:     resp.Token,
		ExpiresAt: resp.ExpiresAt,
	}
	if resp.Profile != nil {
		s.Username = resp.Profile.Username
		s.DisplayName = resp.Profile.DisplayName
	}
	return s
}

func feedMessage(m *chatv1.Message) feed.Message {
	return feed.Message{
		ID:       m.Id,
		ClientID: m.ClientId,
		ChatID:   m.ChatId,
		SenderID: m.SenderId,
		Content:  m.Content,
		SentAt:   m.SentAt,
		State:    feed.Sent,
	}
}
