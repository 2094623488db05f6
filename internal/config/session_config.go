package config

import (
	"os"
	"path/filepath"
	"time"
)

// SessionBackend names where the session records are persisted.
type SessionBackend string

const (
	SessionBackendMemory SessionBackend = "memory"
	SessionBackendFile   SessionBackend = "file"
	SessionBackendRedis  SessionBackend = "redis"
)

type SessionConfig interface {
	GetSessionBackend() SessionBackend
	GetSessionFile() string
	GetSessionPassphrase() string
	GetRedisURL() string
	GetRedisPrefix() string
	GetRedisTTL() time.Duration
	GetRedisOpTimeout() time.Duration
}

type Session struct{}

var _ SessionConfig = Session{}

func (Session) GetSessionBackend() SessionBackend {
	switch b := SessionBackend(GetEnv("CONSOLE_SESSION_BACKEND", string(SessionBackendFile))); b {
	case SessionBackendMemory, SessionBackendFile, SessionBackendRedis:
		return b
	}
	return SessionBackendFile
}

// GetSessionFile defaults to a file under the user's config directory.
func (Session) GetSessionFile() string {
	if path := os.Getenv("CONSOLE_SESSION_FILE"); path != "" {
		return path
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "travelbook-console", "session.json")
}

// GetSessionPassphrase enables at-rest encryption of the session file when set.
func (Session) GetSessionPassphrase() string {
	return os.Getenv("CONSOLE_SESSION_PASSPHRASE")
}

func (Session) GetRedisURL() string {
	return GetEnv("CONSOLE_REDIS_URL", "redis://localhost:6379/0")
}

func (Session) GetRedisPrefix() string {
	return GetEnv("CONSOLE_REDIS_PREFIX", "console:session:")
}

func (Session) GetRedisTTL() time.Duration {
	return GetDuration("CONSOLE_REDIS_TTL", 0)
}

// GetRedisOpTimeout bounds each Redis round-trip.
func (Session) GetRedisOpTimeout() time.Duration {
	return GetDuration("CONSOLE_REDIS_TIMEOUT", 3*time.Second)
}
