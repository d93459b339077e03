// Package chatv1 defines the clique.v1.ChatService wire types, its gRPC
// service descriptor and a typed client. Messages are encoded as JSON.
package chatv1

import "time"

// ChatKind values carried in Message.ChatKind and chat-scoped requests.
const (
	ChatConversation = "conversation"
	ChatChannel      = "channel"
)

// EventKind values carried in Event.Kind.
const (
	EventMessage   = "message"
	EventSignedOut = "signed_out"
)

type Profile struct {
	Id          string     `json:"id"`
	Username    string     `json:"username"`
	DisplayName string     `json:"display_name"`
	AvatarUrl   string     `json:"avatar_url,omitempty"`
	Bio         string     `json:"bio,omitempty"`
	LastOnline  *time.Time `json:"last_online,omitempty"`
}

type Message struct {
	Id       string    `json:"id"`
	ChatKind string    `json:"chat_kind"`
	ChatId   string    `json:"chat_id"`
	SenderId string    `json:"sender_id"`
	Content  string    `json:"content"`
	ClientId string    `json:"client_id,omitempty"`
	SentAt   time.Time `json:"sent_at"`
}

type Group struct {
	Id        string   `json:"id"`
	Name      string   `json:"name"`
	OwnerId   string   `json:"owner_id"`
	MemberIds []string `json:"member_ids"`
	IsAdmin   bool     `json:"is_admin"`
}

type Channel struct {
	Id      string `json:"id"`
	GroupId string `json:"group_id"`
	Name    string `json:"name"`
}

type ConversationSummary struct {
	Id            string     `json:"id"`
	Other         *Profile   `json:"other,omitempty"`
	LastMessage   string     `json:"last_message,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
}

// Auth

type SignUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

func (x *SignUpRequest) GetEmail() string {
	if x == nil {
		return ""
	}
	return x.Email
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (x *SignInRequest) GetEmail() string {
	if x == nil {
		return ""
	}
	return x.Email
}

type AuthResponse struct {
	Token     string    `json:"token"`
	UserId    string    `json:"user_id"`
	SessionId string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
	Profile   *Profile  `json:"profile,omitempty"`
}

type SignOutRequest struct{}

type SignOutResponse struct{}

type RefreshTokenRequest struct{}

// Profiles

type GetProfileRequest struct {
	// UserId defaults to the caller when empty.
	UserId string `json:"user_id,omitempty"`
}

type ProfileResponse struct {
	Profile *Profile `json:"profile"`
}

// UpdateProfileRequest carries only the fields to change.
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name,omitempty"`
	Username    *string `json:"username,omitempty"`
	AvatarUrl   *string `json:"avatar_url,omitempty"`
	Bio         *string `json:"bio,omitempty"`
}

type SearchUsersRequest struct {
	Query string `json:"query"`
}

type SearchUsersResponse struct {
	Profiles []*Profile `json:"profiles"`
}

// Conversations and messages

type FindOrCreateConversationRequest struct {
	OtherUserId string `json:"other_user_id"`
}

type FindOrCreateConversationResponse struct {
	ConversationId string `json:"conversation_id"`
}

type ListConversationsRequest struct {
	Limit int32 `json:"limit,omitempty"`
}

type ListConversationsResponse struct {
	Conversations []*ConversationSummary `json:"conversations"`
}

type SendMessageRequest struct {
	ChatKind string `json:"chat_kind"`
	ChatId   string `json:"chat_id"`
	Content  string `json:"content"`
	ClientId string `json:"client_id,omitempty"`
}

type SendMessageResponse struct {
	Message *Message `json:"message"`
}

type GetMessagesRequest struct {
	ChatKind string `json:"chat_kind"`
	ChatId   string `json:"chat_id"`
	Limit    int32  `json:"limit,omitempty"`
}

type GetMessagesResponse struct {
	Messages []*Message `json:"messages"`
	// Senders holds the profile of every sender appearing in Messages.
	Senders []*Profile `json:"senders"`
}

// Groups and channels

type CreateGroupRequest struct {
	Name string `json:"name"`
}

type GroupResponse struct {
	Group *Group `json:"group"`
}

type ListGroupsRequest struct{}

type ListGroupsResponse struct {
	Groups []*Group `json:"groups"`
}

type GetGroupRequest struct {
	GroupId string `json:"group_id"`
}

type GetGroupResponse struct {
	Group    *Group     `json:"group"`
	Channels []*Channel `json:"channels"`
	Members  []*Profile `json:"members"`
}

type InviteMemberRequest struct {
	GroupId string `json:"group_id"`
	UserId  string `json:"user_id"`
}

type CreateChannelRequest struct {
	GroupId string `json:"group_id"`
	Name    string `json:"name"`
}

type ChannelResponse struct {
	Channel *Channel `json:"channel"`
}

type ListChannelsRequest struct {
	GroupId string `json:"group_id"`
}

type ListChannelsResponse struct {
	Channels []*Channel `json:"channels"`
}

// Push events

type SubscribeRequest struct{}

type Event struct {
	Kind      string   `json:"kind"`
	Message   *Message `json:"message,omitempty"`
	SessionId string   `json:"session_id,omitempty"`
}
