//go:generate go run go.uber.org/mock/mockgen -source=resolver.go -destination=../mocks/mock_conversation_store.go -package=mocks

// Package conversation resolves the unique two-party conversation for a pair of users.
package conversation

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/PaulBabatuyi/clique-gRPC/internal/data"
	"github.com/PaulBabatuyi/clique-gRPC/internal/normalize"
)

var (
	ErrInvalidParticipant = errors.New("invalid participant id")
	ErrSelfConversation   = errors.New("cannot start a conversation with yourself")
	// ErrConflict means the pair kept colliding with a concurrent writer
	// and no conversation could be read back. Callers may retry.
	ErrConflict = errors.New("conversation conflict")
)

// createAttempts bounds how often Create is tried when the pair key
// collides but the winning row cannot be read.
const createAttempts = 2

// Store is the persistence the resolver needs. Create must fail with
// data.ErrDuplicate when pairKey is already taken.
type Store interface {
	FindByPair(ctx context.Context, pairKey string) (*data.Conversation, error)
	Create(ctx context.Context, pairKey string, participantIDs []bson.ObjectID) (*data.Conversation, error)
	AddParticipants(ctx context.Context, conversationID bson.ObjectID, profileIDs []bson.ObjectID) error
	Delete(ctx context.Context, conversationID bson.ObjectID) error
}

// Directory answers whether a user exists.
type Directory interface {
	ProfileExists(ctx context.Context, id bson.ObjectID) (bool, error)
}

// Resolver implements find-or-create for two-party conversations.
type Resolver struct {
	store     Store
	directory Directory
	log       zerolog.Logger
}

// NewResolver returns a Resolver backed by store and directory.
func NewResolver(store Store, directory Directory, log zerolog.Logger) *Resolver {
	return &Resolver{store: store, directory: directory, log: log}
}

// Resolve returns the id of the conversation between currentUserID and
// otherUserID, creating it on first use. The result does not depend on
// argument order, and concurrent calls for one pair yield a single conversation.
func (r *Resolver) Resolve(ctx context.Context, currentUserID, otherUserID string) (string, error) {
	current, err := bson.ObjectIDFromHex(currentUserID)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidParticipant, currentUserID)
	}
	other, err := bson.ObjectIDFromHex(otherUserID)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidParticipant, otherUserID)
	}
	if current == other {
		return "", ErrSelfConversation
	}

	key := normalize.PairKey(current.Hex(), other.Hex())

	conv, err := r.store.FindByPair(ctx, key)
	switch {
	case err == nil:
		return conv.ID.Hex(), nil
	case !errors.Is(err, data.ErrNotFound):
		return "", fmt.Errorf("find conversation: %w", err)
	}

	exists, err := r.directory.ProfileExists(ctx, other)
	if err != nil {
		return "", fmt.Errorf("lookup user: %w", err)
	}
	if !exists {
		return "", data.ErrUserNotFound
	}

	conv, created, err := r.create(ctx, key, current, other)
	if err != nil {
		return "", err
	}
	if !created {
		return conv.ID.Hex(), nil
	}

	if err := r.store.AddParticipants(ctx, conv.ID, conv.ParticipantIDs); err != nil {
		// roll back so no participant-less conversation is left behind
		if delErr := r.store.Delete(context.WithoutCancel(ctx), conv.ID); delErr != nil {
			r.log.Error().Err(delErr).Str("conversation_id", conv.ID.Hex()).Msg("rollback of conversation failed")
		}
		return "", fmt.Errorf("add participants: %w", err)
	}

	r.log.Info().
		Str("conversation_id", conv.ID.Hex()).
		Str("pair_key", key).
		Msg("conversation created")
	return conv.ID.Hex(), nil
}

// create inserts the pair's conversation. created is false when another
// writer got there first and its conversation was returned instead.
func (r *Resolver) create(ctx context.Context, key string, current, other bson.ObjectID) (conv *data.Conversation, created bool, err error) {
	for attempt := 1; attempt <= createAttempts; attempt++ {
		conv, err = r.store.Create(ctx, key, []bson.ObjectID{current, other})
		if err == nil {
			return conv, true, nil
		}
		if !errors.Is(err, data.ErrDuplicate) {
			return nil, false, fmt.Errorf("create conversation: %w", err)
		}

		conv, err = r.store.FindByPair(ctx, key)
		switch {
		case err == nil:
			return conv, false, nil
		case !errors.Is(err, data.ErrNotFound):
			return nil, false, fmt.Errorf("find conversation after conflict: %w", err)
		}
		// the winner was rolled back between our insert and read
		r.log.Warn().Str("pair_key", key).Int("attempt", attempt).Msg("conversation vanished after conflict")
	}
	return nil, false, ErrConflict
}
