// Package db manages MongoDB connections, collections and indexes.
package db

import (
	"context" // startup and shutdown deadlines
	"fmt"     // wrapping driver errors
	"time"    // connect and ping timeouts

	"go.mongodb.org/mongo-driver/v2/bson"           // index key documents
	"go.mongodb.org/mongo-driver/v2/mongo"          // client, database and collections
	"go.mongodb.org/mongo-driver/v2/mongo/options"  // client and index options
	"go.mongodb.org/mongo-driver/v2/mongo/readpref" // ping against the primary
)

// Collection names.
const (
	Users                    = "users"
	Profiles                 = "profiles"
	Sessions                 = "sessions"
	Conversations            = "conversations"
	ConversationParticipants = "conversation_participants"
	Messages                 = "messages"
	Groups                   = "groups"
	Channels                 = "channels"
)

// DefaultDatabase is used when no database name is configured.
const DefaultDatabase = "chat_db"

// Client wraps mongo.Client and exposes collections.
type Client struct {
	// client is safe for concurrent use and shared by every store
	client *mongo.Client
	// db is the configured database every collection is read from
	db *mongo.Database
}

// New connects to MongoDB, verifies the connection and returns a Client
// bound to the given database.
func New(ctx context.Context, mongoURI, database string) (*Client, error) {
	if database == "" {
		database = DefaultDatabase
	}

	opts := options.Client().
		ApplyURI(mongoURI).                 // e.g. mongodb://localhost:27017
		SetConnectTimeout(10 * time.Second) // give up on unreachable hosts

	// Connect only configures the pool; no round trip happens yet
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping forces a round trip so a bad URI fails at startup
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx) // release the pool before failing
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &Client{client: client, db: client.Database(database)}, nil
}

// Collection returns the named collection.
func (c *Client) Collection(name string) *mongo.Collection {
	return c.db.Collection(name)
}

// Close disconnects from MongoDB.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// Drop removes every collection the service owns. Used by integration tests.
func (c *Client) Drop(ctx context.Context) error {
	for _, name := range []string{Users, Profiles, Sessions, Conversations, ConversationParticipants, Messages, Groups, Channels} {
		if err := c.Collection(name).Drop(ctx); err != nil {
			return fmt.Errorf("drop %s: %w", name, err)
		}
	}
	return nil
}

// indexes lists the indexes each collection needs.
func indexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		Users: {
			// no two accounts share an email
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		Profiles: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		Sessions: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
			// MongoDB's TTL monitor drops sessions once expires_at has passed
			{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		},
		Conversations: {
			// one conversation per unordered participant pair; this is what
			// serializes concurrent find-or-create calls
			{Keys: bson.D{{Key: "pair_key", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "participant_ids", Value: 1}, {Key: "last_message_at", Value: -1}}},
		},
		ConversationParticipants: {
			{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "profile_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "profile_id", Value: 1}}},
		},
		Messages: {
			// history reads: all messages of one chat, newest first
			{Keys: bson.D{{Key: "chat_id", Value: 1}, {Key: "sent_at", Value: -1}}},
		},
		Groups: {
			{Keys: bson.D{{Key: "member_ids", Value: 1}}},
		},
		Channels: {
			{Keys: bson.D{{Key: "group_id", Value: 1}, {Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
}

// CreateIndexes creates the indexes of every collection.
func (c *Client) CreateIndexes(ctx context.Context) error {
	for name, models := range indexes() {
		// CreateMany is a no-op for indexes that already exist
		if _, err := c.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", name, err)
		}
	}
	return nil
}
