//go:generate go run go.uber.org/mock/mockgen -source=search.go -destination=../mocks/mock_user_searcher.go -package=mocks

package client

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode/utf8"

	"google.golang.org/grpc"

	"github.com/PaulBabatuyi/clique-gRPC/internal/chatv1"
)

// MinSearchChars is the shortest term sent to the backend.
const MinSearchChars = 2

// ErrStale is returned for a search superseded by a newer one.
var ErrStale = errors.New("search superseded")

// UserSearcher is the backend call a Searcher depends on.
type UserSearcher interface {
	SearchUsers(ctx context.Context, in *chatv1.SearchUsersRequest, opts ...grpc.CallOption) (*chatv1.SearchUsersResponse, error)
}

// Searcher runs type-ahead user searches. Only the latest search may
// deliver results; starting one cancels the one in flight.
type Searcher struct {
	backend UserSearcher

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

func NewSearcher(backend UserSearcher) *Searcher {
	return &Searcher{backend: backend}
}

// Search returns profiles matching term. Terms shorter than MinSearchChars
// return no results without a backend call.
func (s *Searcher) Search(ctx context.Context, term string) ([]*chatv1.Profile, error) {
	term = strings.TrimSpace(term)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.seq++
	mine := s.seq
	if utf8.RuneCountInString(term) < MinSearchChars {
		s.mu.Unlock()
		return nil, nil
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	resp, err := s.backend.SearchUsers(ctx, &chatv1.SearchUsersRequest{Query: term})

	s.mu.Lock()
	latest := s.seq == mine
	s.mu.Unlock()
	if !latest {
		return nil, ErrStale
	}
	if err != nil {
		return nil, err
	}
	return resp.Profiles, nil
}
