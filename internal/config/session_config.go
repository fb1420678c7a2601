package config

import (
	"encoding/base64"
	"strconv"
	"time"
)

// SessionConfig exposes the tunables of the session core: token lifetimes,
// signing material, and lockout policy.
type SessionConfig interface {
	GetAccessTokenLifetime() time.Duration
	GetRefreshTokenLifetime() time.Duration
	GetAudience() string
	GetSigningKey() []byte
	GetEncryptionKey() []byte
	GetRefreshTokenByteLength() int
	GetRotationSafetyMargin() time.Duration
	GetLockoutThreshold() int
	GetLockoutWindow() time.Duration
}

const (
	defaultAccessTokenMinutes  = 20
	defaultRefreshTokenMinutes = 720
	minTokenMinutes            = 1
	maxTokenMinutes            = 1440
)

type Session struct{}

var _ SessionConfig = Session{}

func (Session) GetAccessTokenLifetime() time.Duration {
	return lifetimeMinutes("ACCESS_TOKEN_LIFETIME_MINUTES", defaultAccessTokenMinutes)
}

func (Session) GetRefreshTokenLifetime() time.Duration {
	return lifetimeMinutes("REFRESH_TOKEN_LIFETIME_MINUTES", defaultRefreshTokenMinutes)
}

func (Session) GetAudience() string {
	return GetEnv("TOKEN_AUDIENCE", "api://default")
}

// GetSigningKey returns the mandatory symmetric signing key. An empty return
// means the key is unset; callers are expected to treat that as fatal at
// startup.
func (Session) GetSigningKey() []byte {
	key := GetEnv("TOKEN_SIGNING_KEY", "")
	if key == "" {
		return nil
	}
	return []byte(key)
}

// GetEncryptionKey returns the optional symmetric encryption key used to wrap
// minted tokens as JWE. The value must be base64-encoded 32 bytes; anything
// else is treated as unset. Wrapping is discouraged when the consuming client
// has to read the claims without the matching key.
func (Session) GetEncryptionKey() []byte {
	encoded := GetEnv("TOKEN_ENCRYPTION_KEY", "")
	if encoded == "" {
		return nil
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(key) != 32 {
		return nil
	}
	return key
}

func (Session) GetRefreshTokenByteLength() int {
	return 64
}

// GetRotationSafetyMargin is the minimum remaining lifetime a stored refresh
// token must have to be reused instead of rotated.
func (Session) GetRotationSafetyMargin() time.Duration {
	return 5 * time.Second
}

func (Session) GetLockoutThreshold() int {
	return 5
}

func (Session) GetLockoutWindow() time.Duration {
	return 5 * time.Minute
}

// lifetimeMinutes reads a minute count from the environment and clamps it to
// [1, 1440]; unparseable values fold back to the default.
func lifetimeMinutes(envVar string, defaultMinutes int) time.Duration {
	minutes := defaultMinutes
	if v := GetEnv(envVar, ""); v != "" {
		parsed, err := strconv.Atoi(v)
		if err == nil {
			minutes = parsed
		}
	}
	if minutes < minTokenMinutes {
		minutes = minTokenMinutes
	}
	if minutes > maxTokenMinutes {
		minutes = maxTokenMinutes
	}
	return time.Duration(minutes) * time.Minute
}
