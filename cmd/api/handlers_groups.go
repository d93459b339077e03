package main

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PaulBabatuyi/clique-gRPC/internal/auth"
	"github.com/PaulBabatuyi/clique-gRPC/internal/chatv1"
	"github.com/PaulBabatuyi/clique-gRPC/internal/data"
)

// CreateGroup creates a group owned by the caller.
func (s *Server) CreateGroup(ctx context.Context, req *chatv1.CreateGroupRequest) (*chatv1.GroupResponse, error) {
	caller, _, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if err := auth.Validate(auth.NameInput{Name: name}); err != nil {
		return nil, invalidInput(err)
	}

	group, err := s.groups.CreateGroup(ctx, name, caller)
	if err != nil {
		return nil, s.internalError(err, "failed to create group")
	}
	s.log.Info().Str("group_id", group.ID.Hex()).Str("owner_id", caller.Hex()).Msg("group created")
	return &chatv1.GroupResponse{Group: toGroup(group, caller)}, nil
}

// ListGroups returns the groups the caller belongs to.
func (s *Server) ListGroups(ctx context.Context, _ *chatv1.ListGroupsRequest) (*chatv1.ListGroupsResponse, error) {
	caller, _, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	groups, err := s.groups.ListGroupsForMember(ctx, caller)
	if err != nil {
		return nil, s.internalError(err, "failed to list groups")
	}

	out := make([]*chatv1.Group, 0, len(groups))
	for _, g := range groups {
		out = append(out, toGroup(g, caller))
	}
	return &chatv1.ListGroupsResponse{Groups: out}, nil
}

// GetGroup returns a group with its channels and member profiles.
func (s *Server) GetGroup(ctx context.Context, req *chatv1.GetGroupRequest) (*chatv1.GetGroupResponse, error) {
	caller, _, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	groupID, err := parseID(req.GroupId, "group")
	if err != nil {
		return nil, err
	}

	group, err := s.memberGroup(ctx, groupID, caller)
	if err != nil {
		return nil, err
	}

	channels, err := s.groups.ListChannels(ctx, groupID)
	if err != nil {
		return nil, s.internalError(err, "failed to list channels")
	}
	profiles, err := s.profiles.GetProfiles(ctx, group.MemberIDs)
	if err != nil {
		return nil, s.internalError(err, "failed to load members")
	}

	resp := &chatv1.GetGroupResponse{
		Group:    toGroup(group, caller),
		Channels: make([]*chatv1.Channel, 0, len(channels)),
		Members:  make([]*chatv1.Profile, 0, len(group.MemberIDs)),
	}
	for _, c := range channels {
		resp.Channels = append(resp.Channels, toChannel(c))
	}
	for _, id := range group.MemberIDs {
		if p, ok := profiles[id]; ok {
			resp.Members = append(resp.Members, toProfile(p))
		}
	}
	return resp, nil
}

// InviteMember adds a user to a group. Only the group owner may invite.
func (s *Server) InviteMember(ctx context.Context, req *chatv1.InviteMemberRequest) (*chatv1.GroupResponse, error) {
	caller, _, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	groupID, err := parseID(req.GroupId, "group")
	if err != nil {
		return nil, err
	}
	userID, err := parseID(req.UserId, "user")
	if err != nil {
		return nil, err
	}

	group, err := s.ownedGroup(ctx, groupID, caller)
	if err != nil {
		return nil, err
	}

	exists, err := s.profiles.ProfileExists(ctx, userID)
	if err != nil {
		return nil, s.internalError(err, "failed to look up user")
	}
	if !exists {
		return nil, status.Error(codes.NotFound, "user not found")
	}

	if !group.IsMember(userID) {
		if err := s.groups.AddMember(ctx, groupID, userID); err != nil {
			if errors.Is(err, data.ErrNotFound) {
				return nil, status.Error(codes.NotFound, "group not found")
			}
			return nil, s.internalError(err, "failed to add member")
		}
		group.MemberIDs = append(group.MemberIDs, userID)
	}
	return &chatv1.GroupResponse{Group: toGroup(group, caller)}, nil
}

// CreateChannel adds a named channel to a group. Only the group owner may create channels.
func (s *Server) CreateChannel(ctx context.Context, req *chatv1.CreateChannelRequest) (*chatv1.ChannelResponse, error) {
	caller, _, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	groupID, err := parseID(req.GroupId, "group")
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if err := auth.Validate(auth.NameInput{Name: name}); err != nil {
		return nil, invalidInput(err)
	}

	if _, err := s.ownedGroup(ctx, groupID, caller); err != nil {
		return nil, err
	}

	ch, err := s.groups.CreateChannel(ctx, groupID, name)
	if errors.Is(err, data.ErrDuplicate) {
		return nil, status.Error(codes.AlreadyExists, "channel already exists")
	}
	if err != nil {
		return nil, s.internalError(err, "failed to create channel")
	}
	return &chatv1.ChannelResponse{Channel: toChannel(ch)}, nil
}

// ListChannels returns the channels of a group the caller belongs to.
func (s *Server) ListChannels(ctx context.Context, req *chatv1.ListChannelsRequest) (*chatv1.ListChannelsResponse, error) {
	caller, _, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	groupID, err := parseID(req.GroupId, "group")
	if err != nil {
		return nil, err
	}
	if _, err := s.memberGroup(ctx, groupID, caller); err != nil {
		return nil, err
	}

	channels, err := s.groups.ListChannels(ctx, groupID)
	if err != nil {
		return nil, s.internalError(err, "failed to list channels")
	}
	out := make([]*chatv1.Channel, 0, len(channels))
	for _, c := range channels {
		out = append(out, toChannel(c))
	}
	return &chatv1.ListChannelsResponse{Channels: out}, nil
}

// memberGroup loads a group and checks that caller belongs to it.
func (s *Server) memberGroup(ctx context.Context, groupID, caller bson.ObjectID) (*data.Group, error) {
	group, err := s.groups.GetGroup(ctx, groupID)
	if errors.Is(err, data.ErrNotFound) {
		return nil, status.Error(codes.NotFound, "group not found")
	}
	if err != nil {
		return nil, s.internalError(err, "failed to load group")
	}
	if !group.IsMember(caller) {
		return nil, errPermissionDenied
	}
	return group, nil
}

// ownedGroup loads a group and checks that caller is its admin.
func (s *Server) ownedGroup(ctx context.Context, groupID, caller bson.ObjectID) (*data.Group, error) {
	group, err := s.memberGroup(ctx, groupID, caller)
	if err != nil {
		return nil, err
	}
	if group.OwnerID != caller {
		return nil, errPermissionDenied
	}
	return group, nil
}

func parseID(hex, what string) (bson.ObjectID, error) {
	id, err := bson.ObjectIDFromHex(hex)
	if err != nil {
		return bson.NilObjectID, status.Errorf(codes.InvalidArgument, "invalid %s id", what)
	}
	return id, nil
}
