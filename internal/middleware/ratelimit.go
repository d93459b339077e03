// Package middleware holds gRPC interceptors shared by the API server.
package middleware

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/PaulBabatuyi/clique-gRPC/internal/normalize"
)

// idleAfter is how long a key may go unused before its bucket is dropped.
const idleAfter = 10 * time.Minute

// AttemptLimiter gives every caller key its own token bucket. Idle buckets
// are swept periodically.
type AttemptLimiter struct {
	every rate.Limit
	burst int
	now   func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket

	done     chan struct{}
	doneOnce sync.Once
}

type bucket struct {
	lim     *rate.Limiter
	touched time.Time
}

// NewAttemptLimiter allows perMinute attempts per key with the given burst
// and sweeps idle keys every sweepEvery.
func NewAttemptLimiter(perMinute, burst int, sweepEvery time.Duration) *AttemptLimiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	if burst <= 0 {
		burst = 1
	}
	l := &AttemptLimiter{
		every:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   burst,
		now:     time.Now,
		buckets: make(map[string]*bucket),
		done:    make(chan struct{}),
	}
	go l.sweepLoop(sweepEvery)
	return l
}

func (l *AttemptLimiter) sweepLoop(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-t.C:
			l.sweep()
		}
	}
}

// sweep drops buckets untouched for idleAfter and returns how many went.
func (l *AttemptLimiter) sweep() int {
	cutoff := l.now().Add(-idleAfter)
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for key, b := range l.buckets {
		if b.touched.Before(cutoff) {
			delete(l.buckets, key)
			n++
		}
	}
	return n
}

// Close stops the sweeper. Calling it again is a no-op.
func (l *AttemptLimiter) Close() {
	l.doneOnce.Do(func() { close(l.done) })
}

// Allow spends one token from key's bucket.
func (l *AttemptLimiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.every, l.burst)}
		l.buckets[key] = b
	}
	b.touched = now
	l.mu.Unlock()
	return b.lim.AllowN(now, 1)
}

// attemptKey identifies the caller of a limited method. Requests carrying an
// email (SignIn, SignUp) are keyed by the normalized address so one account
// cannot be brute-forced from many addresses; others fall back to the peer.
func attemptKey(ctx context.Context, req any) string {
	if r, ok := req.(interface{ GetEmail() string }); ok {
		if e := normalize.Email(r.GetEmail()); e != "" {
			return "email:" + e
		}
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return "peer:" + p.Addr.String()
	}
	return "unknown"
}

// LimitUnary rejects calls to methods with ResourceExhausted once the
// caller's budget is spent. Other methods pass through.
func LimitUnary(l *AttemptLimiter, methods ...string) grpc.UnaryServerInterceptor {
	limited := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		limited[m] = struct{}{}
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := limited[info.FullMethod]; ok && !l.Allow(attemptKey(ctx, req)) {
			return nil, status.Error(codes.ResourceExhausted, "rate limit exceeded")
		}
		return handler(ctx, req)
	}
}
