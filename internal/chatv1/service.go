package chatv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "clique.v1.ChatService"

const (
	ChatService_SignUp_FullMethodName                   = "/clique.v1.ChatService/SignUp"
	ChatService_SignIn_FullMethodName                   = "/clique.v1.ChatService/SignIn"
	ChatService_SignOut_FullMethodName                  = "/clique.v1.ChatService/SignOut"
	ChatService_RefreshToken_FullMethodName             = "/clique.v1.ChatService/RefreshToken"
	ChatService_GetProfile_FullMethodName               = "/clique.v1.ChatService/GetProfile"
	ChatService_UpdateProfile_FullMethodName            = "/clique.v1.ChatService/UpdateProfile"
	ChatService_SearchUsers_FullMethodName              = "/clique.v1.ChatService/SearchUsers"
	ChatService_FindOrCreateConversation_FullMethodName = "/clique.v1.ChatService/FindOrCreateConversation"
	ChatService_ListConversations_FullMethodName        = "/clique.v1.ChatService/ListConversations"
	ChatService_SendMessage_FullMethodName              = "/clique.v1.ChatService/SendMessage"
	ChatService_GetMessages_FullMethodName              = "/clique.v1.ChatService/GetMessages"
	ChatService_CreateGroup_FullMethodName              = "/clique.v1.ChatService/CreateGroup"
	ChatService_ListGroups_FullMethodName               = "/clique.v1.ChatService/ListGroups"
	ChatService_GetGroup_FullMethodName                 = "/clique.v1.ChatService/GetGroup"
	ChatService_InviteMember_FullMethodName             = "/clique.v1.ChatService/InviteMember"
	ChatService_CreateChannel_FullMethodName            = "/clique.v1.ChatService/CreateChannel"
	ChatService_ListChannels_FullMethodName             = "/clique.v1.ChatService/ListChannels"
	ChatService_Subscribe_FullMethodName                = "/clique.v1.ChatService/Subscribe"
)

// ChatService_SubscribeServer is the server side of the Subscribe stream.
type ChatService_SubscribeServer = grpc.ServerStreamingServer[Event]

// ChatServiceServer is the server API for ChatService.
type ChatServiceServer interface {
	SignUp(context.Context, *SignUpRequest) (*AuthResponse, error)
	SignIn(context.Context, *SignInRequest) (*AuthResponse, error)
	SignOut(context.Context, *SignOutRequest) (*SignOutResponse, error)
	RefreshToken(context.Context, *RefreshTokenRequest) (*AuthResponse, error)
	GetProfile(context.Context, *GetProfileRequest) (*ProfileResponse, error)
	UpdateProfile(context.Context, *UpdateProfileRequest) (*ProfileResponse, error)
	SearchUsers(context.Context, *SearchUsersRequest) (*SearchUsersResponse, error)
	FindOrCreateConversation(context.Context, *FindOrCreateConversationRequest) (*FindOrCreateConversationResponse, error)
	ListConversations(context.Context, *ListConversationsRequest) (*ListConversationsResponse, error)
	SendMessage(context.Context, *SendMessageRequest) (*SendMessageResponse, error)
	GetMessages(context.Context, *GetMessagesRequest) (*GetMessagesResponse, error)
	CreateGroup(context.Context, *CreateGroupRequest) (*GroupResponse, error)
	ListGroups(context.Context, *ListGroupsRequest) (*ListGroupsResponse, error)
	GetGroup(context.Context, *GetGroupRequest) (*GetGroupResponse, error)
	InviteMember(context.Context, *InviteMemberRequest) (*GroupResponse, error)
	CreateChannel(context.Context, *CreateChannelRequest) (*ChannelResponse, error)
	ListChannels(context.Context, *ListChannelsRequest) (*ListChannelsResponse, error)
	Subscribe(*SubscribeRequest, ChatService_SubscribeServer) error
}

// UnimplementedChatServiceServer must be embedded by implementations so
// that adding methods to the service does not break them.
type UnimplementedChatServiceServer struct{}

func unimplemented(method string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
}

func (UnimplementedChatServiceServer) SignUp(context.Context, *SignUpRequest) (*AuthResponse, error) {
	return nil, unimplemented("SignUp")
}
func (UnimplementedChatServiceServer) SignIn(context.Context, *SignInRequest) (*AuthResponse, error) {
	return nil, unimplemented("SignIn")
}
func (UnimplementedChatServiceServer) SignOut(context.Context, *SignOutRequest) (*SignOutResponse, error) {
	return nil, unimplemented("SignOut")
}
func (UnimplementedChatServiceServer) RefreshToken(context.Context, *RefreshTokenRequest) (*AuthResponse, error) {
	return nil, unimplemented("RefreshToken")
}
func (UnimplementedChatServiceServer) GetProfile(context.Context, *GetProfileRequest) (*ProfileResponse, error) {
	return nil, unimplemented("GetProfile")
}
func (UnimplementedChatServiceServer) UpdateProfile(context.Context, *UpdateProfileRequest) (*ProfileResponse, error) {
	return nil, unimplemented("UpdateProfile")
}
func (UnimplementedChatServiceServer) SearchUsers(context.Context, *SearchUsersRequest) (*SearchUsersResponse, error) {
	return nil, unimplemented("SearchUsers")
}
func (UnimplementedChatServiceServer) FindOrCreateConversation(context.Context, *FindOrCreateConversationRequest) (*FindOrCreateConversationResponse, error) {
	return nil, unimplemented("FindOrCreateConversation")
}
func (UnimplementedChatServiceServer) ListConversations(context.Context, *ListConversationsRequest) (*ListConversationsResponse, error) {
	return nil, unimplemented("ListConversations")
}
func (UnimplementedChatServiceServer) SendMessage(context.Context, *SendMessageRequest) (*SendMessageResponse, error) {
	return nil, unimplemented("SendMessage")
}
func (UnimplementedChatServiceServer) GetMessages(context.Context, *GetMessagesRequest) (*GetMessagesResponse, error) {
	return nil, unimplemented("GetMessages")
}
func (UnimplementedChatServiceServer) CreateGroup(context.Context, *CreateGroupRequest) (*GroupResponse, error) {
	return nil, unimplemented("CreateGroup")
}
func (UnimplementedChatServiceServer) ListGroups(context.Context, *ListGroupsRequest) (*ListGroupsResponse, error) {
	return nil, unimplemented("ListGroups")
}
func (UnimplementedChatServiceServer) GetGroup(context.Context, *GetGroupRequest) (*GetGroupResponse, error) {
	return nil, unimplemented("GetGroup")
}
func (UnimplementedChatServiceServer) InviteMember(context.Context, *InviteMemberRequest) (*GroupResponse, error) {
	return nil, unimplemented("InviteMember")
}
func (UnimplementedChatServiceServer) CreateChannel(context.Context, *CreateChannelRequest) (*ChannelResponse, error) {
	return nil, unimplemented("CreateChannel")
}
func (UnimplementedChatServiceServer) ListChannels(context.Context, *ListChannelsRequest) (*ListChannelsResponse, error) {
	return nil, unimplemented("ListChannels")
}
func (UnimplementedChatServiceServer) Subscribe(*SubscribeRequest, ChatService_SubscribeServer) error {
	return unimplemented("Subscribe")
}

// RegisterChatServiceServer registers srv on s.
func RegisterChatServiceServer(s grpc.ServiceRegistrar, srv ChatServiceServer) {
	s.RegisterService(&ChatService_ServiceDesc, srv)
}

// unary builds the MethodDesc for one request/response method.
func unary[Req, Resp any](name string, call func(ChatServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ChatServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ChatServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func subscribeHandler(srv any, stream grpc.ServerStream) error {
	in := new(SubscribeRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ChatServiceServer).Subscribe(in, &grpc.GenericServerStream[SubscribeRequest, Event]{ServerStream: stream})
}

// ChatService_ServiceDesc is the grpc.ServiceDesc for ChatService.
var ChatService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ChatServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("SignUp", ChatServiceServer.SignUp),
		unary("SignIn", ChatServiceServer.SignIn),
		unary("SignOut", ChatServiceServer.SignOut),
		unary("RefreshToken", ChatServiceServer.RefreshToken),
		unary("GetProfile", ChatServiceServer.GetProfile),
		unary("UpdateProfile", ChatServiceServer.UpdateProfile),
		unary("SearchUsers", ChatServiceServer.SearchUsers),
		unary("FindOrCreateConversation", ChatServiceServer.FindOrCreateConversation),
		unary("ListConversations", ChatServiceServer.ListConversations),
		unary("SendMessage", ChatServiceServer.SendMessage),
		unary("GetMessages", ChatServiceServer.GetMessages),
		unary("CreateGroup", ChatServiceServer.CreateGroup),
		unary("ListGroups", ChatServiceServer.ListGroups),
		unary("GetGroup", ChatServiceServer.GetGroup),
		unary("InviteMember", ChatServiceServer.InviteMember),
		unary("CreateChannel", ChatServiceServer.CreateChannel),
		unary("ListChannels", ChatServiceServer.ListChannels),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			Handler:       subscribeHandler,
			ServerStreams: true,
		},
	},
	Metadata: "clique/v1/chat",
}
