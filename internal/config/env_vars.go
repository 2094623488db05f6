package config

import (
	"os"
	"strconv"
	"time"
)

const (
	appNameVar        = "APP_NAME"
	apiBaseURLVar     = "CONSOLE_API_BASE_URL"
	requestTimeoutVar = "CONSOLE_REQUEST_TIMEOUT"
	logLevelVar       = "CONSOLE_LOG_LEVEL"
	logPrettyVar      = "CONSOLE_LOG_PRETTY"

	// DefaultRequestTimeout bounds every API call made by the console.
	DefaultRequestTimeout = 10 * time.Second
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Travelbook Console")
}

type API struct{}

var _ APIConfig = API{}

// GetAPIBaseURL returns the REST backend root (e.g. "https://api.travelbook.example/api").
// Relative request paths are joined onto it.
func (API) GetAPIBaseURL() string {
	return GetEnv(apiBaseURLVar, "http://localhost:8080/api")
}

func (API) GetRequestTimeout() time.Duration {
	return GetDuration(requestTimeoutVar, DefaultRequestTimeout)
}

type Logging struct{}

var _ LogConfig = Logging{}

func (Logging) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

func (Logging) GetLogPretty() bool {
	return GetBool(logPrettyVar, true)
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetDuration parses a Go duration ("15s") or a bare number of milliseconds.
func GetDuration(envVar string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}

func GetBool(envVar string, defaultValue bool) bool {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}
