package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"google.golang.org/grpc"

	"github.com/PaulBabatuyi/clique-gRPC/internal/auth"
	"github.com/PaulBabatuyi/clique-gRPC/internal/chatv1"
	"github.com/PaulBabatuyi/clique-gRPC/internal/data"
)

// The store interfaces below list the subset of each data store the handlers
// use, so tests can substitute in-memory fakes.

type usersStore interface {
	CreateUser(ctx context.Context, email, hashedPassword string) (*data.User, error)
	GetUserByEmail(ctx context.Context, email string) (*data.User, error)
	DeleteUser(ctx context.Context, id bson.ObjectID) error
}

type profilesStore interface {
	CreateProfile(ctx context.Context, profile *data.Profile) error
	GetProfile(ctx context.Context, id bson.ObjectID) (*data.Profile, error)
	GetProfiles(ctx context.Context, ids []bson.ObjectID) (map[bson.ObjectID]*data.Profile, error)
	ProfileExists(ctx context.Context, id bson.ObjectID) (bool, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	UpdateProfile(ctx context.Context, id bson.ObjectID, changes data.ProfileChanges) (*data.Profile, error)
	SearchProfiles(ctx context.Context, term string, exclude bson.ObjectID, limit int64) ([]*data.Profile, error)
	TouchLastOnline(ctx context.Context, id bson.ObjectID, t time.Time) error
}

type sessionsStore interface {
	CreateSession(ctx context.Context, id string, userID bson.ObjectID, expiresAt time.Time) error
	SessionActive(ctx context.Context, id string) (bool, error)
	DeleteSession(ctx context.Context, id string) error
}

type conversationsStore interface {
	GetConversation(ctx context.Context, id bson.ObjectID) (*data.Conversation, error)
	ListForUser(ctx context.Context, userID bson.ObjectID, limit int64) ([]*data.Conversation, error)
	TouchLastMessage(ctx context.Context, id bson.ObjectID, content string, at time.Time) error
}

type messagesStore interface {
	SaveMessage(ctx context.Context, kind data.ChatKind, chatID, senderID bson.ObjectID, content, clientID string, sentAt time.Time) (*data.Message, error)
	GetMessageHistory(ctx context.Context, chatID bson.ObjectID, limit int64) ([]*data.Message, error)
}

type groupsStore interface {
	CreateGroup(ctx context.Context, name string, ownerID bson.ObjectID) (*data.Group, error)
	GetGroup(ctx context.Context, id bson.ObjectID) (*data.Group, error)
	ListGroupsForMember(ctx context.Context, userID bson.ObjectID) ([]*data.Group, error)
	AddMember(ctx context.Context, groupID, userID bson.ObjectID) error
	CreateChannel(ctx context.Context, groupID bson.ObjectID, name string) (*data.Channel, error)
	GetChannel(ctx context.Context, id bson.ObjectID) (*data.Channel, error)
	ListChannels(ctx context.Context, groupID bson.ObjectID) ([]*data.Channel, error)
}

// conversationResolver finds or creates the conversation between two users.
type conversationResolver interface {
	Resolve(ctx context.Context, currentUserID, otherUserID string) (string, error)
}

// stores groups the persistence dependencies of Server.
type stores struct {
	users         usersStore
	profiles      profilesStore
	sessions      sessionsStore
	conversations conversationsStore
	messages      messagesStore
	groups        groupsStore
}

// Server implements the chat service and contains references to stores and auth logic.
type Server struct {
	chatv1.UnimplementedChatServiceServer

	stores
	resolver conversationResolver
	auth     *auth.JWTManager
	hub      *ConnectionHub
	log      zerolog.Logger
	now      func() time.Time
}

// newServer returns a ready-to-use Server wired with stores, resolver and auth manager.
func newServer(st stores, resolver conversationResolver, authMgr *auth.JWTManager, hub *ConnectionHub, log zerolog.Logger) *Server {
	return &Server{
		stores:   st,
		resolver: resolver,
		auth:     authMgr,
		hub:      hub,
		log:      log,
		now:      time.Now,
	}
}

// registerService registers the ChatService on the given gRPC server.
func registerService(s *grpc.Server, srv *Server) {
	chatv1.RegisterChatServiceServer(s, srv)
}
