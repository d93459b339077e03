package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/PaulBabatuyi/clique-gRPC/internal/auth"
	"github.com/PaulBabatuyi/clique-gRPC/internal/chatv1"
	"github.com/PaulBabatuyi/clique-gRPC/internal/config"
	"github.com/PaulBabatuyi/clique-gRPC/internal/conversation"
	"github.com/PaulBabatuyi/clique-gRPC/internal/data"
	"github.com/PaulBabatuyi/clique-gRPC/internal/db"
	"github.com/PaulBabatuyi/clique-gRPC/internal/logger"
	"github.com/PaulBabatuyi/clique-gRPC/internal/middleware"
)

func main() {
	cfg, log, err := setup()
	if err != nil {
		// the configured logger may not exist yet
		boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
		boot.Fatal().Err(err).Msg("startup failed")
	}

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

// setup loads the configuration and builds the logger it asks for.
func setup() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("invalid configuration: %w", err)
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("invalid logger configuration: %w", err)
	}
	return cfg, log, nil
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx := context.Background()

	// Initialize database
	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	dbClient, err := db.New(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return err
	}
	defer func() {
		_ = dbClient.Close(context.Background())
	}()

	// Ensure indexes exist (the unique ones back conversation and username dedup)
	if err := dbClient.CreateIndexes(connectCtx); err != nil {
		return err
	}

	profiles := data.NewProfilesStore(dbClient.Collection(db.Profiles))
	conversations := data.NewConversationsStore(dbClient.Collection(db.Conversations), dbClient.Collection(db.ConversationParticipants))
	st := stores{
		users:         data.NewUsersStore(dbClient.Collection(db.Users)),
		profiles:      profiles,
		sessions:      data.NewSessionsStore(dbClient.Collection(db.Sessions)),
		conversations: conversations,
		messages:      data.NewMessagesStore(dbClient.Collection(db.Messages)),
		groups:        data.NewGroupsStore(dbClient.Collection(db.Groups), dbClient.Collection(db.Channels)),
	}
	resolver := conversation.NewResolver(conversations, profiles, log.With().Str("component", "resolver").Logger())

	// Signing keys: JWT_KEYS enables rotation, JWT_SECRET is the single-key fallback.
	var jwtMgr *auth.JWTManager
	if len(cfg.JWTKeys) > 0 {
		jwtMgr = auth.NewJWTManagerFromKeys(cfg.JWTKeys, cfg.JWTActiveKid, cfg.TokenTTL)
	} else {
		jwtMgr = auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	}

	// SignUp and SignIn get a small burst so a typo can be retried at once.
	attempts := middleware.NewAttemptLimiter(cfg.RateLimitRPM, 3, time.Minute)
	defer attempts.Close()

	var serverOpts []grpc.ServerOption
	if cfg.TLSEnabled() {
		creds, err := credentials.NewServerTLSFromFile(cfg.TLSCert, cfg.TLSKey)
		if err != nil {
			return err
		}
		serverOpts = append(serverOpts, grpc.Creds(creds))
	} else {
		log.Warn().Msg("TLS is not configured; serving plaintext")
	}

	authn := authenticator{jwt: jwtMgr, sessions: st.sessions}
	serverOpts = append(serverOpts,
		grpc.ChainUnaryInterceptor(
			loggingUnaryInterceptor(log),
			middleware.LimitUnary(attempts, chatv1.ChatService_SignUp_FullMethodName, chatv1.ChatService_SignIn_FullMethodName),
			authUnaryInterceptor(authn),
		),
		grpc.ChainStreamInterceptor(
			loggingStreamInterceptor(log),
			authStreamInterceptor(authn),
		),
	)

	grpcServer := grpc.NewServer(serverOpts...)

	hub := NewConnectionHub()
	srv := newServer(st, resolver, jwtMgr, hub, log)
	registerService(grpcServer, srv)

	lis, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("gRPC server listening")
		serveErr <- grpcServer.Serve(lis)
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		return err
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down gRPC server")
	}

	// Subscribe streams only end when clients leave; bound the graceful wait.
	done := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		grpcServer.Stop()
	}
	return nil
}
