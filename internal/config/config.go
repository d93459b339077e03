// Package config loads the API server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the API server.
type Config struct {
	// Storage
	MongoURI      string `env:"MONGODB_URI,required,notEmpty"`
	MongoDatabase string `env:"MONGODB_DATABASE" envDefault:"chat_db"`

	// Tokens. Either JWTSecret or JWTKeys ("kid:secret,kid2:secret2") must be set.
	JWTSecret    string            `env:"JWT_SECRET"`
	JWTKeys      map[string]string `env:"JWT_KEYS" envSeparator:"," envKeyValSeparator:":"`
	JWTActiveKid string            `env:"JWT_ACTIVE_KID"`
	TokenTTL     time.Duration     `env:"TOKEN_TTL" envDefault:"24h"`

	// Transport
	Port         int    `env:"PORT" envDefault:"50051"`
	RateLimitRPM int    `env:"RATE_LIMIT_RPM" envDefault:"10"`
	TLSCert      string `env:"TLS_CERT"`
	TLSKey       string `env:"TLS_KEY"`
	RequireTLS   bool   `env:"REQUIRE_TLS" envDefault:"false"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
}

// Load reads an optional .env file, then parses environment variables into Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the cross-field rules env tags cannot express.
func (c *Config) Validate() error {
	if len(c.JWTKeys) == 0 && strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("either JWT_SECRET or JWT_KEYS must be set")
	}
	if len(c.JWTKeys) > 0 {
		if c.JWTActiveKid == "" {
			return errors.New("JWT_ACTIVE_KID is required when JWT_KEYS is set")
		}
		if _, ok := c.JWTKeys[c.JWTActiveKid]; !ok {
			return fmt.Errorf("JWT_ACTIVE_KID %q not found in JWT_KEYS", c.JWTActiveKid)
		}
	}
	if c.RequireTLS && (c.TLSCert == "" || c.TLSKey == "") {
		return errors.New("REQUIRE_TLS is true but TLS_CERT/TLS_KEY are not configured")
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	return nil
}

// Addr returns the gRPC listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// TLSEnabled reports whether both certificate and key are configured.
func (c *Config) TLSEnabled() bool {
	return c.TLSCert != "" && c.TLSKey != ""
}
