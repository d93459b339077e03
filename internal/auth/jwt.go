// Package auth issues and verifies session tokens and hashes passwords.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/crypto/bcrypt"

	"github.com/PaulBabatuyi/clique-gRPC/internal/normalize"
)

// JWTManager signs and validates JWT tokens used by the API.
type JWTManager struct {
	keys      map[string][]byte // kid -> HMAC secret
	activeKid string            // kid used to sign new tokens ("" for single-secret mode)
	duration  time.Duration     // how long tokens are valid
	now       func() time.Time
}

// Claims is the custom JWT payload. RegisteredClaims.ID carries the session id.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// SessionID returns the id of the server-side session the token belongs to.
func (c *Claims) SessionID() string { return c.ID }

// Token is a signed token together with the session it opens.
type Token struct {
	Value     string
	SessionID string
	ExpiresAt time.Time
}

// NewJWTManager returns a JWTManager signing with a single secret.
func NewJWTManager(secretKey string, duration time.Duration) *JWTManager {
	return &JWTManager{
		keys:     map[string][]byte{"": []byte(secretKey)},
		duration: duration,
		now:      time.Now,
	}
}

// NewJWTManagerFromKeys returns a JWTManager that signs with keys[activeKid] and
// still verifies tokens signed by any other key in the set. The kid is carried in
// the token header so keys can be rotated without invalidating live sessions.
func NewJWTManagerFromKeys(keys map[string]string, activeKid string, duration time.Duration) *JWTManager {
	m := &JWTManager{
		keys:      make(map[string][]byte, len(keys)),
		activeKid: activeKid,
		duration:  duration,
		now:       time.Now,
	}
	for kid, secret := range keys {
		m.keys[kid] = []byte(secret)
	}
	return m
}

// Duration returns the token lifetime.
func (m *JWTManager) Duration() time.Duration { return m.duration }

// GenerateToken issues a signed JWT for a user, opening a new session id.
func (m *JWTManager) GenerateToken(userID bson.ObjectID, email string) (Token, error) {
	issuedAt := m.now()
	expiresAt := issuedAt.Add(m.duration)
	sessionID := bson.NewObjectID().Hex()

	claims := &Claims{
		UserID: userID.Hex(),
		Email:  normalize.Email(email),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   userID.Hex(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			Issuer:    "clique",
		},
	}

	secret, ok := m.keys[m.activeKid]
	if !ok {
		return Token{}, fmt.Errorf("signing key %q not configured", m.activeKid)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	if m.activeKid != "" {
		token.Header["kid"] = m.activeKid
	}

	signed, err := token.SignedString(secret)
	if err != nil {
		return Token{}, err
	}
	return Token{Value: signed, SessionID: sessionID, ExpiresAt: expiresAt}, nil
}

// VerifyToken parses and validates a token and returns its claims.
func (m *JWTManager) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// only HMAC tokens are ever issued
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		kid, _ := token.Header["kid"].(string)
		secret, ok := m.keys[kid]
		if !ok {
			return nil, fmt.Errorf("unknown key id %q", kid)
		}
		return secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.UserID == "" || claims.ID == "" {
		return nil, errors.New("token is missing user or session id")
	}
	return claims, nil
}

// HashPassword returns a bcrypt hash for the provided plaintext.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func CheckPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
