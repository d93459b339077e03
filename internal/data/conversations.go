package data

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ConversationsStore manages two-party conversations and their participant links.
type ConversationsStore struct {
	conversations *mongo.Collection
	participants  *mongo.Collection
}

// NewConversationsStore returns a store over the conversations and
// conversation_participants collections.
func NewConversationsStore(conversations, participants *mongo.Collection) *ConversationsStore {
	return &ConversationsStore{conversations: conversations, participants: participants}
}

// FindByPair returns the conversation registered under pairKey.
func (c *ConversationsStore) FindByPair(ctx context.Context, pairKey string) (*Conversation, error) {
	return c.findOne(ctx, bson.M{"pair_key": pairKey})
}

// GetConversation returns a conversation by id.
func (c *ConversationsStore) GetConversation(ctx context.Context, id bson.ObjectID) (*Conversation, error) {
	return c.findOne(ctx, bson.M{"_id": id})
}

// Create inserts a conversation for pairKey. When another caller created the
// same pair first, the unique index rejects the insert and ErrDuplicate is returned.
func (c *ConversationsStore) Create(ctx context.Context, pairKey string, participantIDs []bson.ObjectID) (*Conversation, error) {
	conv := &Conversation{
		PairKey:        pairKey,
		ParticipantIDs: participantIDs,
		CreatedAt:      time.Now().UTC(),
	}

	result, err := c.conversations.InsertOne(ctx, conv)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	conv.ID = result.InsertedID.(bson.ObjectID)
	return conv, nil
}

// AddParticipants inserts one participant link per profile id.
func (c *ConversationsStore) AddParticipants(ctx context.Context, conversationID bson.ObjectID, profileIDs []bson.ObjectID) error {
	now := time.Now().UTC()
	docs := make([]any, 0, len(profileIDs))
	for _, id := range profileIDs {
		docs = append(docs, &Participant{ConversationID: conversationID, ProfileID: id, JoinedAt: now})
	}
	_, err := c.participants.InsertMany(ctx, docs)
	return err
}

// Delete removes a conversation and any participant links pointing at it.
func (c *ConversationsStore) Delete(ctx context.Context, conversationID bson.ObjectID) error {
	if _, err := c.participants.DeleteMany(ctx, bson.M{"conversation_id": conversationID}); err != nil {
		return err
	}
	_, err := c.conversations.DeleteOne(ctx, bson.M{"_id": conversationID})
	return err
}

// ListForUser returns the user's conversations, most recent activity first.
func (c *ConversationsStore) ListForUser(ctx context.Context, userID bson.ObjectID, limit int64) ([]*Conversation, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "last_message_at", Value: -1}, {Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := c.conversations.Find(ctx, bson.M{"participant_ids": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var convs []*Conversation
	if err := cursor.All(ctx, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// TouchLastMessage records the latest message preview on the conversation.
func (c *ConversationsStore) TouchLastMessage(ctx context.Context, id bson.ObjectID, content string, at time.Time) error {
	_, err := c.conversations.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"last_message": content, "last_message_at": at.UTC()}},
	)
	return err
}

func (c *ConversationsStore) findOne(ctx context.Context, filter bson.M) (*Conversation, error) {
	var conv Conversation
	if err := c.conversations.FindOne(ctx, filter).Decode(&conv); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &conv, nil
}
