package middleware

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

type emailReq struct{ email string }

func (r emailReq) GetEmail() string { return r.email }

func TestAttemptLimiter_BurstRefillAndSweep(t *testing.T) {
	l := NewAttemptLimiter(6, 3, time.Hour)
	defer l.Close()

	base := time.Now()
	l.now = func() time.Time { return base }

	key := "email:test@example.com"
	for i := 0; i < 3; i++ {
		if !l.Allow(key) {
			t.Fatalf("expected allow at attempt %d", i)
		}
	}
	if l.Allow(key) {
		t.Fatalf("expected block after burst consumed")
	}

	// 6 per minute refills one token every 10s
	l.now = func() time.Time { return base.Add(11 * time.Second) }
	if !l.Allow(key) {
		t.Fatalf("expected a refilled token")
	}

	l.now = func() time.Time { return base.Add(idleAfter + time.Minute) }
	if n := l.sweep(); n != 1 {
		t.Fatalf("expected 1 swept bucket, got %d", n)
	}
}

func TestAttemptLimiter_CloseTwice(t *testing.T) {
	l := NewAttemptLimiter(1, 1, time.Hour)
	l.Close()
	l.Close()
}

func TestAttemptKey(t *testing.T) {
	ctx := peer.NewContext(context.Background(), &peer.Peer{Addr: &net.TCPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 4000}})

	if got := attemptKey(ctx, emailReq{email: "  Alice@Example.com "}); got != "email:alice@example.com" {
		t.Fatalf("unexpected key for email request: %q", got)
	}
	if got := attemptKey(ctx, emailReq{}); got != "peer:10.0.0.1:4000" {
		t.Fatalf("unexpected key for anonymous request: %q", got)
	}
	if got := attemptKey(context.Background(), struct{}{}); got != "unknown" {
		t.Fatalf("unexpected fallback key: %q", got)
	}
}

func TestLimitUnary(t *testing.T) {
	l := NewAttemptLimiter(1, 2, time.Hour)
	defer l.Close()

	intercept := LimitUnary(l, "/svc/SignIn")
	handler := func(ctx context.Context, req any) (any, error) { return "ok", nil }

	call := func(method, email string) error {
		_, err := intercept(context.Background(), emailReq{email: email}, &grpc.UnaryServerInfo{FullMethod: method}, handler)
		return err
	}

	for i := 0; i < 2; i++ {
		if err := call("/svc/SignIn", "bob@example.com"); err != nil {
			t.Fatalf("call %d: unexpected error %v", i, err)
		}
	}
	if err := call("/svc/SignIn", "BOB@example.com"); status.Code(err) != codes.ResourceExhausted {
		t.Fatalf("expected ResourceExhausted, got %v", err)
	}
	// another account has its own budget
	if err := call("/svc/SignIn", "carol@example.com"); err != nil {
		t.Fatalf("unexpected error for other key: %v", err)
	}
	// methods not listed are never limited
	for i := 0; i < 5; i++ {
		if err := call("/svc/GetProfile", "bob@example.com"); err != nil {
			t.Fatalf("unlimited method rejected: %v", err)
		}
	}
}
