package main

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/v2/bson"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PaulBabatuyi/clique-gRPC/internal/chatv1"
	"github.com/PaulBabatuyi/clique-gRPC/internal/conversation"
	"github.com/PaulBabatuyi/clique-gRPC/internal/data"
)

const (
	maxContentChars     = 4000
	maxClientIDLen      = 64
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// FindOrCreateConversation returns the conversation between the caller and
// req.OtherUserId, creating it on first contact.
func (s *Server) FindOrCreateConversation(ctx context.Context, req *chatv1.FindOrCreateConversationRequest) (*chatv1.FindOrCreateConversationResponse, error) {
	_, claims, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	id, err := s.resolver.Resolve(ctx, claims.UserID, req.OtherUserId)
	switch {
	case errors.Is(err, conversation.ErrInvalidParticipant), errors.Is(err, conversation.ErrSelfConversation):
		return nil, status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, data.ErrUserNotFound):
		return nil, status.Error(codes.NotFound, "user not found")
	case errors.Is(err, conversation.ErrConflict):
		return nil, status.Error(codes.Aborted, "conversation is being created, try again")
	case err != nil:
		return nil, s.internalError(err, "failed to resolve conversation")
	}
	return &chatv1.FindOrCreateConversationResponse{ConversationId: id}, nil
}

// ListConversations returns the caller's conversations, most recent activity first.
func (s *Server) ListConversations(ctx context.Context, req *chatv1.ListConversationsRequest) (*chatv1.ListConversationsResponse, error) {
	caller, _, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	convs, err := s.conversations.ListForUser(ctx, caller, clampLimit(req.Limit, defaultHistoryLimit, maxHistoryLimit))
	if err != nil {
		return nil, s.internalError(err, "failed to list conversations")
	}

	others := lo.Map(convs, func(c *data.Conversation, _ int) bson.ObjectID { return c.Other(caller) })
	profiles, err := s.profiles.GetProfiles(ctx, lo.Uniq(others))
	if err != nil {
		return nil, s.internalError(err, "failed to load participants")
	}

	out := make([]*chatv1.ConversationSummary, 0, len(convs))
	for i, c := range convs {
		out = append(out, &chatv1.ConversationSummary{
			Id:            c.ID.Hex(),
			Other:         toProfile(profiles[others[i]]),
			LastMessage:   c.LastMessage,
			LastMessageAt: c.LastMessageAt,
		})
	}
	return &chatv1.ListConversationsResponse{Conversations: out}, nil
}

// SendMessage persists a message and pushes it to every participant's streams,
// the sender's included.
func (s *Server) SendMessage(ctx context.Context, req *chatv1.SendMessageRequest) (*chatv1.SendMessageResponse, error) {
	caller, _, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	kind, chatID, err := parseChat(req.ChatKind, req.ChatId)
	if err != nil {
		return nil, err
	}

	content := strings.TrimSpace(req.Content)
	if n := utf8.RuneCountInString(content); n == 0 || n > maxContentChars {
		return nil, status.Errorf(codes.InvalidArgument, "message must be between 1 and %d characters", maxContentChars)
	}
	if len(req.ClientId) > maxClientIDLen {
		return nil, status.Error(codes.InvalidArgument, "client id too long")
	}

	members, err := s.chatMembers(ctx, kind, chatID, caller)
	if err != nil {
		return nil, err
	}

	saved, err := s.messages.SaveMessage(ctx, kind, chatID, caller, content, req.ClientId, s.now().UTC())
	if err != nil {
		return nil, s.internalError(err, "failed to save message")
	}

	if kind == data.ChatConversation {
		if err := s.conversations.TouchLastMessage(ctx, chatID, saved.Content, saved.SentAt); err != nil {
			s.log.Warn().Err(err).Str("conversation_id", chatID.Hex()).Msg("failed to update last message")
		}
	}

	msg := toMessage(saved)
	s.deliver(members, msg)
	return &chatv1.SendMessageResponse{Message: msg}, nil
}

// GetMessages returns the most recent messages of a chat, oldest first, with
// the profiles of their senders.
func (s *Server) GetMessages(ctx context.Context, req *chatv1.GetMessagesRequest) (*chatv1.GetMessagesResponse, error) {
	caller, _, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	kind, chatID, err := parseChat(req.ChatKind, req.ChatId)
	if err != nil {
		return nil, err
	}
	if _, err := s.chatMembers(ctx, kind, chatID, caller); err != nil {
		return nil, err
	}

	msgs, err := s.messages.GetMessageHistory(ctx, chatID, clampLimit(req.Limit, defaultHistoryLimit, maxHistoryLimit))
	if err != nil {
		return nil, s.internalError(err, "failed to get history")
	}

	senderIDs := lo.Uniq(lo.Map(msgs, func(m *data.Message, _ int) bson.ObjectID { return m.SenderID }))
	profiles, err := s.profiles.GetProfiles(ctx, senderIDs)
	if err != nil {
		return nil, s.internalError(err, "failed to load senders")
	}

	resp := &chatv1.GetMessagesResponse{
		Messages: make([]*chatv1.Message, 0, len(msgs)),
		Senders:  make([]*chatv1.Profile, 0, len(profiles)),
	}
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, toMessage(m))
	}
	for _, id := range senderIDs {
		if p, ok := profiles[id]; ok {
			resp.Senders = append(resp.Senders, toProfile(p))
		}
	}
	return resp, nil
}

// Subscribe streams events for the caller until the client goes away or the
// session is signed out.
func (s *Server) Subscribe(_ *chatv1.SubscribeRequest, stream chatv1.ChatService_SubscribeServer) error {
	caller, claims, err := callerFromContext(stream.Context())
	if err != nil {
		return err
	}
	if s.hub == nil {
		return status.Error(codes.Unavailable, "push delivery disabled")
	}

	connID, ended := s.hub.Register(claims.UserID, claims.SessionID(), stream)
	defer s.hub.Unregister(claims.UserID, connID)

	s.touchPresence(caller)
	defer s.touchPresence(caller)

	s.log.Debug().Str("user_id", claims.UserID).Int64("conn_id", connID).Msg("subscriber connected")
	select {
	case <-stream.Context().Done():
	case <-ended:
	}
	s.log.Debug().Str("user_id", claims.UserID).Int64("conn_id", connID).Msg("subscriber disconnected")
	return nil
}

// chatMembers returns the users allowed in the chat, failing with NotFound for
// an unknown chat and PermissionDenied when caller is not among them.
func (s *Server) chatMembers(ctx context.Context, kind data.ChatKind, chatID, caller bson.ObjectID) ([]bson.ObjectID, error) {
	switch kind {
	case data.ChatConversation:
		conv, err := s.conversations.GetConversation(ctx, chatID)
		if errors.Is(err, data.ErrNotFound) {
			return nil, status.Error(codes.NotFound, "conversation not found")
		}
		if err != nil {
			return nil, s.internalError(err, "failed to load conversation")
		}
		if !conv.HasParticipant(caller) {
			return nil, errPermissionDenied
		}
		return conv.ParticipantIDs, nil

	default:
		ch, err := s.groups.GetChannel(ctx, chatID)
		if errors.Is(err, data.ErrNotFound) {
			return nil, status.Error(codes.NotFound, "channel not found")
		}
		if err != nil {
			return nil, s.internalError(err, "failed to load channel")
		}
		group, err := s.memberGroup(ctx, ch.GroupID, caller)
		if err != nil {
			return nil, err
		}
		return group.MemberIDs, nil
	}
}

// deliver pushes msg to the connected streams of every member. Offline members
// read it from history later.
func (s *Server) deliver(members []bson.ObjectID, msg *chatv1.Message) {
	if s.hub == nil {
		return
	}
	ev := &chatv1.Event{Kind: chatv1.EventMessage, Message: msg}
	for _, id := range members {
		if !s.hub.Online(id.Hex()) {
			continue
		}
		if err := s.hub.SendToUser(id.Hex(), ev); err != nil {
			s.log.Debug().Err(err).Str("user_id", id.Hex()).Msg("delivery failed")
		}
	}
}

func parseChat(kind, id string) (data.ChatKind, bson.ObjectID, error) {
	k := data.ChatKind(kind)
	if !k.Valid() {
		return "", bson.NilObjectID, status.Errorf(codes.InvalidArgument, "unknown chat kind %q", kind)
	}
	chatID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return "", bson.NilObjectID, status.Error(codes.InvalidArgument, "invalid chat id")
	}
	return k, chatID, nil
}

func clampLimit(requested int32, def, ceiling int64) int64 {
	n := int64(requested)
	if n <= 0 {
		return def
	}
	if n > ceiling {
		return ceiling
	}
	return n
}
