package client

import (
	"context"
	"crypto/tls"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/PaulBabatuyi/clique-gRPC/internal/client/session"
)

// tokenCredentials attaches the store's current token to every call.
type tokenCredentials struct {
	store  *session.Store
	secure bool
}

// TokenCredentials returns per-RPC credentials backed by store. Calls made
// while anonymous carry no authorization header.
func TokenCredentials(store *session.Store, requireTLS bool) credentials.PerRPCCredentials {
	return tokenCredentials{store: store, secure: requireTLS}
}

func (c tokenCredentials) GetRequestMetadata(ctx context.Context, _ ...string) (map[string]string, error) {
	token := c.store.Token()
	if token == "" {
		return nil, nil
	}
	return map[string]string{"authorization": "Bearer " + token}, nil
}

func (c tokenCredentials) RequireTransportSecurity() bool { return c.secure }

// Dial opens a client connection to addr that authenticates with store.
func Dial(addr string, store *session.Store, useTLS bool, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	transport := insecure.NewCredentials()
	if useTLS {
		transport = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(transport),
		grpc.WithPerRPCCredentials(TokenCredentials(store, useTLS)),
	}
	conn, err := grpc.NewClient(addr, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return conn, nil
}
