package data

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// SessionsStore keeps the server-side record of issued tokens so that
// sign-out can revoke a token before it expires.
type SessionsStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewSessionsStore returns a SessionsStore using the provided collection.
func NewSessionsStore(coll *mongo.Collection) *SessionsStore {
	return &SessionsStore{coll: coll, now: time.Now}
}

// CreateSession records a session opened for userID.
func (s *SessionsStore) CreateSession(ctx context.Context, id string, userID bson.ObjectID, expiresAt time.Time) error {
	_, err := s.coll.InsertOne(ctx, &Session{
		ID:        id,
		UserID:    userID,
		CreatedAt: s.now().UTC(),
		ExpiresAt: expiresAt.UTC(),
	})
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

// SessionActive reports whether the session exists and has not expired.
// The TTL monitor removes expired documents lazily, so expiry is checked here too.
func (s *SessionsStore) SessionActive(ctx context.Context, id string) (bool, error) {
	filter := bson.M{"_id": id, "expires_at": bson.M{"$gt": s.now().UTC()}}
	count, err := s.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// DeleteSession revokes a session. Deleting an unknown session is not an error.
func (s *SessionsStore) DeleteSession(ctx context.Context, id string) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
