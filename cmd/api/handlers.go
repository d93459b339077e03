package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/v2/bson"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PaulBabatuyi/clique-gRPC/internal/auth"
	"github.com/PaulBabatuyi/clique-gRPC/internal/chatv1"
	"github.com/PaulBabatuyi/clique-gRPC/internal/data"
	"github.com/PaulBabatuyi/clique-gRPC/internal/normalize"
)

const (
	searchMinChars      = 2
	searchLimit         = 10
	maxUsernameAttempts = 20
)

// SignUp handles user registration: validates input, hashes the password,
// stores user and profile, and opens a session.
func (s *Server) SignUp(ctx context.Context, req *chatv1.SignUpRequest) (*chatv1.AuthResponse, error) {
	in := auth.SignUpRequest{
		Email:       normalize.Email(req.GetEmail()),
		Password:    req.Password,
		DisplayName: strings.TrimSpace(req.DisplayName),
	}
	if err := auth.Validate(in); err != nil {
		return nil, invalidInput(err)
	}

	hashed, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, s.internalError(err, "failed to hash password")
	}

	user, err := s.users.CreateUser(ctx, in.Email, hashed)
	if errors.Is(err, data.ErrUserExists) {
		return nil, status.Error(codes.AlreadyExists, "user already exists")
	}
	if err != nil {
		return nil, s.internalError(err, "failed to create user")
	}

	profile, err := s.createProfile(ctx, user.ID, in.Email, in.DisplayName)
	if err != nil {
		// a user without a profile cannot sign in usefully; remove it
		if delErr := s.users.DeleteUser(context.WithoutCancel(ctx), user.ID); delErr != nil {
			s.log.Error().Err(delErr).Str("user_id", user.ID.Hex()).Msg("rollback of user failed")
		}
		return nil, s.internalError(err, "failed to create profile")
	}

	resp, err := s.openSession(ctx, user)
	if err != nil {
		return nil, err
	}
	resp.Profile = toProfile(profile)

	s.log.Info().Str("user_id", user.ID.Hex()).Str("username", profile.Username).Msg("user signed up")
	return resp, nil
}

// SignIn authenticates a user and opens a new session.
func (s *Server) SignIn(ctx context.Context, req *chatv1.SignInRequest) (*chatv1.AuthResponse, error) {
	in := auth.SignInRequest{Email: normalize.Email(req.GetEmail()), Password: req.Password}
	if err := auth.Validate(in); err != nil {
		return nil, invalidInput(err)
	}

	user, err := s.users.GetUserByEmail(ctx, in.Email)
	if errors.Is(err, data.ErrNotFound) {
		return nil, status.Error(codes.Unauthenticated, "invalid credentials")
	}
	if err != nil {
		return nil, s.internalError(err, "failed to look up user")
	}

	if err := auth.CheckPassword(user.Password, in.Password); err != nil {
		return nil, status.Error(codes.Unauthenticated, "invalid credentials")
	}

	resp, err := s.openSession(ctx, user)
	if err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetProfile(ctx, user.ID)
	if err != nil && !errors.Is(err, data.ErrNotFound) {
		return nil, s.internalError(err, "failed to load profile")
	}
	resp.Profile = toProfile(profile)
	return resp, nil
}

// SignOut ends the caller's session and notifies the streams opened with it.
func (s *Server) SignOut(ctx context.Context, _ *chatv1.SignOutRequest) (*chatv1.SignOutResponse, error) {
	_, claims, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.DeleteSession(ctx, claims.SessionID()); err != nil {
		return nil, s.internalError(err, "failed to end session")
	}

	if s.hub != nil {
		n := s.hub.CloseSession(claims.UserID, claims.SessionID(), &chatv1.Event{
			Kind:      chatv1.EventSignedOut,
			SessionId: claims.SessionID(),
		})
		s.log.Debug().Str("user_id", claims.UserID).Int("streams", n).Msg("session streams closed")
	}
	return &chatv1.SignOutResponse{}, nil
}

// RefreshToken replaces the caller's session with a fresh one.
func (s *Server) RefreshToken(ctx context.Context, _ *chatv1.RefreshTokenRequest) (*chatv1.AuthResponse, error) {
	userID, claims, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := s.openSession(ctx, &data.User{ID: userID, Email: claims.Email})
	if err != nil {
		return nil, err
	}
	if err := s.sessions.DeleteSession(ctx, claims.SessionID()); err != nil {
		s.log.Warn().Err(err).Str("session_id", claims.SessionID()).Msg("failed to revoke refreshed session")
	}
	if s.hub != nil {
		s.hub.Rebind(claims.UserID, claims.SessionID(), resp.SessionId)
	}
	return resp, nil
}

// GetProfile returns the profile of req.UserId, or of the caller when empty.
func (s *Server) GetProfile(ctx context.Context, req *chatv1.GetProfileRequest) (*chatv1.ProfileResponse, error) {
	id, _, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if req.UserId != "" {
		if id, err = bson.ObjectIDFromHex(req.UserId); err != nil {
			return nil, status.Error(codes.InvalidArgument, "invalid user id")
		}
	}

	profile, err := s.profiles.GetProfile(ctx, id)
	if errors.Is(err, data.ErrNotFound) {
		return nil, status.Error(codes.NotFound, "user not found")
	}
	if err != nil {
		return nil, s.internalError(err, "failed to load profile")
	}
	return &chatv1.ProfileResponse{Profile: toProfile(profile)}, nil
}

// UpdateProfile applies a partial update to the caller's profile.
func (s *Server) UpdateProfile(ctx context.Context, req *chatv1.UpdateProfileRequest) (*chatv1.ProfileResponse, error) {
	id, _, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	in := auth.ProfileUpdate{
		DisplayName: trimmed(req.DisplayName),
		Username:    trimmed(req.Username),
		AvatarURL:   trimmed(req.AvatarUrl),
		Bio:         trimmed(req.Bio),
	}
	if in.Username != nil {
		lower := strings.ToLower(*in.Username)
		in.Username = &lower
	}
	if in.Empty() {
		return nil, status.Error(codes.InvalidArgument, "nothing to update")
	}
	if err := auth.Validate(in); err != nil {
		return nil, invalidInput(err)
	}

	profile, err := s.profiles.UpdateProfile(ctx, id, data.ProfileChanges{
		Username:    in.Username,
		DisplayName: in.DisplayName,
		AvatarURL:   in.AvatarURL,
		Bio:         in.Bio,
	})
	switch {
	case errors.Is(err, data.ErrDuplicate):
		return nil, status.Error(codes.AlreadyExists, "username already taken")
	case errors.Is(err, data.ErrNotFound):
		return nil, status.Error(codes.NotFound, "user not found")
	case err != nil:
		return nil, s.internalError(err, "failed to update profile")
	}
	return &chatv1.ProfileResponse{Profile: toProfile(profile)}, nil
}

// SearchUsers matches the query against usernames and display names.
// Queries shorter than two characters return no results without touching the store.
func (s *Server) SearchUsers(ctx context.Context, req *chatv1.SearchUsersRequest) (*chatv1.SearchUsersResponse, error) {
	id, _, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	term := normalize.SearchTerm(req.Query)
	if utf8.RuneCountInString(term) < searchMinChars {
		return &chatv1.SearchUsersResponse{Profiles: []*chatv1.Profile{}}, nil
	}

	found, err := s.profiles.SearchProfiles(ctx, term, id, searchLimit)
	if err != nil {
		return nil, s.internalError(err, "failed to search users")
	}

	out := make([]*chatv1.Profile, 0, len(found))
	for _, p := range found {
		out = append(out, toProfile(p))
	}
	return &chatv1.SearchUsersResponse{Profiles: out}, nil
}

// openSession issues a token for user and records its session.
func (s *Server) openSession(ctx context.Context, user *data.User) (*chatv1.AuthResponse, error) {
	token, err := s.auth.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, s.internalError(err, "failed to generate token")
	}
	if err := s.sessions.CreateSession(ctx, token.SessionID, user.ID, token.ExpiresAt); err != nil {
		return nil, s.internalError(err, "failed to create session")
	}
	return &chatv1.AuthResponse{
		Token:     token.Value,
		UserId:    user.ID.Hex(),
		SessionId: token.SessionID,
		ExpiresAt: token.ExpiresAt,
	}, nil
}

// createProfile stores the profile of a new user under a free username derived
// from the email local part: "alice", then "alice2", "alice3" and so on.
func (s *Server) createProfile(ctx context.Context, userID bson.ObjectID, email, displayName string) (*data.Profile, error) {
	base := baseUsername(email)
	for i := 1; i <= maxUsernameAttempts; i++ {
		candidate := base
		if i > 1 {
			candidate = base + strconv.Itoa(i)
		}

		taken, err := s.profiles.UsernameTaken(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if taken {
			continue
		}

		now := s.now().UTC()
		profile := &data.Profile{
			ID:          userID,
			Username:    candidate,
			DisplayName: displayName,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		err = s.profiles.CreateProfile(ctx, profile)
		if errors.Is(err, data.ErrDuplicate) {
			// taken between the check and the insert
			continue
		}
		if err != nil {
			return nil, err
		}
		return profile, nil
	}
	return nil, fmt.Errorf("no free username for %q after %d attempts", base, maxUsernameAttempts)
}

func baseUsername(email string) string {
	local, _, _ := strings.Cut(email, "@")
	base := normalize.Username(local)
	if utf8.RuneCountInString(base) < 3 {
		base = "user" + base
	}
	if r := []rune(base); len(r) > 24 {
		base = string(r[:24])
	}
	return base
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

// touchPresence records the user as seen now. It runs on stream connect and
// disconnect, when the request context may already be gone.
func (s *Server) touchPresence(userID bson.ObjectID) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.profiles.TouchLastOnline(ctx, userID, s.now()); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID.Hex()).Msg("failed to update last online")
	}
}
