package data

import (
	"context" // cancellation and deadlines from the gRPC call
	"time"    // message timestamps

	"go.mongodb.org/mongo-driver/v2/bson"          // filters, sorts and ObjectIDs
	"go.mongodb.org/mongo-driver/v2/mongo"         // collection handle
	"go.mongodb.org/mongo-driver/v2/mongo/options" // Find sort and limit
)

// MessagesStore provides message database operations.
type MessagesStore struct {
	// coll is the "messages" collection, indexed on (chat_id, sent_at)
	// Set once by NewMessagesStore and shared by every method
	coll *mongo.Collection
}

// NewMessagesStore returns a MessagesStore using given collection.
func NewMessagesStore(coll *mongo.Collection) *MessagesStore {
	return &MessagesStore{coll: coll} // keep the collection handle
}

// SaveMessage inserts a message document and returns the saved record.
func (m *MessagesStore) SaveMessage(ctx context.Context, kind ChatKind, chatID, senderID bson.ObjectID, content, clientID string, sentAt time.Time) (*Message, error) {
	msg := &Message{
		ChatKind:  kind,             // conversation or channel
		ChatID:    chatID,           // conversation or channel id
		SenderID:  senderID,         // caller's id from the JWT claims
		Content:   content,          // trimmed text as the sender wrote it
		ClientID:  clientID,         // sender's temporary id, echoed for reconciliation
		SentAt:    sentAt.UTC(),     // server receive time, drives history order
		CreatedAt: time.Now().UTC(), // write time
	}

	// InsertOne adds the message; the driver assigns _id
	result, err := m.coll.InsertOne(ctx, msg)
	if err != nil {
		return nil, err // database error
	}
	// the generated id is what clients use to replace their pending entry
	msg.ID = result.InsertedID.(bson.ObjectID)
	return msg, nil
}

// GetMessageHistory returns the most recent limit messages of a chat, ordered oldest to newest.
func (m *MessagesStore) GetMessageHistory(ctx context.Context, chatID bson.ObjectID, limit int64) ([]*Message, error) {
	// newest first so the limit keeps the latest messages; _id breaks sent_at ties
	opts := options.Find().
		SetSort(bson.D{{Key: "sent_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)

	// Find streams matching documents through a cursor
	cursor, err := m.coll.Find(ctx, bson.M{"chat_id": chatID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx) // release the server-side cursor

	// All drains the cursor into the slice
	var messages []*Message
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, err
	}

	// reverse into chronological order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
