package data

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Sentinel errors returned by every store.
var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")

	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)
	ErrUserExists   = fmt.Errorf("user %w", ErrDuplicate)
)

// User maps to the users collection (credentials only).
type User struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Email     string        `bson:"email"`
	Password  string        `bson:"password"`
	CreatedAt time.Time     `bson:"created_at"`
	UpdatedAt time.Time     `bson:"updated_at"`
}

// Profile maps to the profiles collection. Its _id is the owning User's id.
type Profile struct {
	ID          bson.ObjectID `bson:"_id"`
	Username    string        `bson:"username"`
	DisplayName string        `bson:"display_name"`
	AvatarURL   string        `bson:"avatar_url,omitempty"`
	Bio         string        `bson:"bio,omitempty"`
	LastOnline  *time.Time    `bson:"last_online,omitempty"`
	CreatedAt   time.Time     `bson:"created_at"`
	UpdatedAt   time.Time     `bson:"updated_at"`
}

// ProfileChanges is a partial profile update; nil fields are left untouched.
type ProfileChanges struct {
	Username    *string
	DisplayName *string
	AvatarURL   *string
	Bio         *string
}

// Session maps to the sessions collection; _id is the token's JWT id.
type Session struct {
	ID        string        `bson:"_id"`
	UserID    bson.ObjectID `bson:"user_id"`
	CreatedAt time.Time     `bson:"created_at"`
	ExpiresAt time.Time     `bson:"expires_at"`
}

// Conversation maps to the conversations collection. PairKey is unique.
type Conversation struct {
	ID             bson.ObjectID   `bson:"_id,omitempty"`
	PairKey        string          `bson:"pair_key"`
	ParticipantIDs []bson.ObjectID `bson:"participant_ids"`
	CreatedAt      time.Time       `bson:"created_at"`
	LastMessage    string          `bson:"last_message,omitempty"`
	LastMessageAt  *time.Time      `bson:"last_message_at,omitempty"`
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Conversation) HasParticipant(userID bson.ObjectID) bool {
	for _, id := range c.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Other returns the participant that is not userID.
func (c *Conversation) Other(userID bson.ObjectID) bson.ObjectID {
	for _, id := range c.ParticipantIDs {
		if id != userID {
			return id
		}
	}
	return userID
}

// Participant maps to the conversation_participants collection.
type Participant struct {
	ID             bson.ObjectID `bson:"_id,omitempty"`
	ConversationID bson.ObjectID `bson:"conversation_id"`
	ProfileID      bson.ObjectID `bson:"profile_id"`
	JoinedAt       time.Time     `bson:"joined_at"`
}

// ChatKind tells whether a message belongs to a conversation or a channel.
type ChatKind string

const (
	ChatConversation ChatKind = "conversation"
	ChatChannel      ChatKind = "channel"
)

// Valid reports whether k is a known kind.
func (k ChatKind) Valid() bool {
	return k == ChatConversation || k == ChatChannel
}

// Message maps to the messages collection. Messages are immutable.
type Message struct {
	ID       bson.ObjectID `bson:"_id,omitempty"`
	ChatKind ChatKind      `bson:"chat_kind"`
	ChatID   bson.ObjectID `bson:"chat_id"`
	SenderID bson.ObjectID `bson:"sender_id"`
	Content  string        `bson:"content"`
	// ClientID is the sender's temporary id, echoed back for reconciliation.
	ClientID  string    `bson:"client_id,omitempty"`
	SentAt    time.Time `bson:"sent_at"`
	CreatedAt time.Time `bson:"created_at"`
}

// Group maps to the groups collection. The owner is the group admin.
type Group struct {
	ID        bson.ObjectID   `bson:"_id,omitempty"`
	Name      string          `bson:"name"`
	OwnerID   bson.ObjectID   `bson:"owner_id"`
	MemberIDs []bson.ObjectID `bson:"member_ids"`
	CreatedAt time.Time       `bson:"created_at"`
}

// IsMember reports whether userID belongs to the group.
func (g *Group) IsMember(userID bson.ObjectID) bool {
	for _, id := range g.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Channel maps to the channels collection; names are unique per group.
type Channel struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	GroupID   bson.ObjectID `bson:"group_id"`
	Name      string        `bson:"name"`
	CreatedAt time.Time     `bson:"created_at"`
}
