package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		req := require.New(t)
		t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
		t.Setenv("JWT_SECRET", "test-secret")
		t.Setenv("JWT_KEYS", "")

		cfg, err := Load()
		req.NoError(err)
		req.Equal("chat_db", cfg.MongoDatabase)
		req.Equal(50051, cfg.Port)
		req.Equal(":50051", cfg.Addr())
		req.Equal(24*time.Hour, cfg.TokenTTL)
		req.Equal(10, cfg.RateLimitRPM)
		req.False(cfg.TLSEnabled())
	})

	t.Run("parses rotation keys", func(t *testing.T) {
		req := require.New(t)
		t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
		t.Setenv("JWT_KEYS", "k1:secret-one,k2:secret-two")
		t.Setenv("JWT_ACTIVE_KID", "k2")

		cfg, err := Load()
		req.NoError(err)
		req.Equal(map[string]string{"k1": "secret-one", "k2": "secret-two"}, cfg.JWTKeys)
	})

	t.Run("requires a signing secret", func(t *testing.T) {
		t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
		t.Setenv("JWT_SECRET", "")
		t.Setenv("JWT_KEYS", "")
		_, err := Load()
		require.Error(t, err)
	})

	t.Run("requires mongo uri", func(t *testing.T) {
		t.Setenv("MONGODB_URI", "")
		t.Setenv("JWT_SECRET", "x")
		_, err := Load()
		require.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"secret only", Config{JWTSecret: "s", TokenTTL: time.Hour}, false},
		{"unknown active kid", Config{JWTKeys: map[string]string{"a": "x"}, JWTActiveKid: "b", TokenTTL: time.Hour}, true},
		{"tls required without certs", Config{JWTSecret: "s", RequireTLS: true, TokenTTL: time.Hour}, true},
		{"zero ttl", Config{JWTSecret: "s"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
