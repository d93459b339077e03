package main

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/PaulBabatuyi/clique-gRPC/internal/auth"
	"github.com/PaulBabatuyi/clique-gRPC/internal/chatv1"
)

// methods that don't require authentication
var publicMethods = map[string]bool{
	chatv1.ChatService_SignUp_FullMethodName: true,
	chatv1.ChatService_SignIn_FullMethodName: true,
}

// context key type for storing auth claims in context
type authContextKey struct{}

// getClaimsFromContext extracts auth claims from the context, if present.
func getClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	v := ctx.Value(authContextKey{})
	if v == nil {
		return nil, false
	}
	c, ok := v.(*auth.Claims)
	return c, ok
}

// callerFromContext returns the authenticated user id and claims.
func callerFromContext(ctx context.Context) (bson.ObjectID, *auth.Claims, error) {
	claims, ok := getClaimsFromContext(ctx)
	if !ok {
		return bson.NilObjectID, nil, status.Error(codes.Unauthenticated, "missing auth claims")
	}
	id, err := bson.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return bson.NilObjectID, nil, status.Error(codes.Unauthenticated, "invalid token subject")
	}
	return id, claims, nil
}

// sessionChecker reports whether a session id has not been revoked.
type sessionChecker interface {
	SessionActive(ctx context.Context, id string) (bool, error)
}

// authenticator verifies the bearer token in the incoming metadata and, when
// sessions is non-nil, that its session is still open.
type authenticator struct {
	jwt      *auth.JWTManager
	sessions sessionChecker
}

func (a authenticator) authenticate(ctx context.Context) (*auth.Claims, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, status.Errorf(codes.Unauthenticated, "missing metadata")
	}
	authHeaders := md.Get("authorization")
	if len(authHeaders) == 0 {
		return nil, status.Errorf(codes.Unauthenticated, "missing authorization header")
	}

	token := strings.TrimSpace(strings.TrimPrefix(authHeaders[0], "Bearer"))
	if token == "" {
		return nil, status.Errorf(codes.Unauthenticated, "invalid token")
	}

	claims, err := a.jwt.VerifyToken(token)
	if err != nil {
		return nil, status.Errorf(codes.Unauthenticated, "unauthenticated: %v", err)
	}

	if a.sessions != nil {
		active, err := a.sessions.SessionActive(ctx, claims.SessionID())
		if err != nil {
			return nil, status.Errorf(codes.Internal, "failed to check session")
		}
		if !active {
			return nil, status.Errorf(codes.Unauthenticated, "session has ended")
		}
	}
	return claims, nil
}

// authUnaryInterceptor returns a UnaryServerInterceptor that enforces JWT authentication
// for all methods except the public ones (SignUp, SignIn).
func authUnaryInterceptor(a authenticator) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if publicMethods[info.FullMethod] {
			return handler(ctx, req)
		}

		claims, err := a.authenticate(ctx)
		if err != nil {
			return nil, err
		}

		// attach claims into context for handlers
		ctx = context.WithValue(ctx, authContextKey{}, claims)
		return handler(ctx, req)
	}
}

// authStreamInterceptor is the stream equivalent of authUnaryInterceptor.
func authStreamInterceptor(a authenticator) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if publicMethods[info.FullMethod] {
			return handler(srv, ss)
		}

		claims, err := a.authenticate(ss.Context())
		if err != nil {
			return err
		}

		// wrap stream context with claims
		newCtx := context.WithValue(ss.Context(), authContextKey{}, claims)
		return handler(srv, authedServerStream{ServerStream: ss, ctx: newCtx})
	}
}

// authedServerStream wraps grpc.ServerStream to override Context()
type authedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the wrapped context (with claims)
func (g authedServerStream) Context() context.Context { return g.ctx }

// loggingUnaryInterceptor logs every call with its status code and latency.
func loggingUnaryInterceptor(log zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logCall(log, info.FullMethod, start, err)
		return resp, err
	}
}

// loggingStreamInterceptor logs a stream when it ends.
func loggingStreamInterceptor(log zerolog.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, ss)
		logCall(log, info.FullMethod, start, err)
		return err
	}
}

func logCall(log zerolog.Logger, method string, start time.Time, err error) {
	code := status.Code(err)
	var ev *zerolog.Event
	switch code {
	case codes.OK:
		ev = log.Info()
	case codes.Internal, codes.Unknown, codes.DataLoss:
		ev = log.Error().Err(err)
	default:
		ev = log.Warn().Err(err)
	}
	ev.Str("method", method).
		Str("code", code.String()).
		Dur("duration", time.Since(start)).
		Msg("rpc")
}
