package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ovaphlow/pitchfork/service-charging-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-charging-go/pkg/utilities"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// ErrMissingSecret is returned by Load when JWT_SECRET is not set.
var ErrMissingSecret = errors.New("missing required environment variable: JWT_SECRET")

type Config struct {
	Env       string
	Port      string
	JWTSecret string
	TokenTTL  time.Duration
	// OwnerOnlyMutations restricts station update/delete to the creator.
	OwnerOnlyMutations bool
	CORSOrigins        []string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration

	Database database.Config
	Log      utilities.Config
}

// Dev reports whether internal error details may be returned to clients.
func (c *Config) Dev() bool { return c.Env == EnvDevelopment }

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string { return "0.0.0.0:" + c.Port }

// Load reads the service configuration from the environment. The signing
// secret has no default: a missing JWT_SECRET is a startup error.
func Load() (*Config, error) {
	secret := os.Getenv("JWT_SECRET")
	if strings.TrimSpace(secret) == "" {
		return nil, ErrMissingSecret
	}
	return &Config{
		Env:                getEnv("APP_ENV", EnvProduction),
		Port:               getEnv("PORT", "3000"),
		JWTSecret:          secret,
		TokenTTL:           getEnvAsDuration("TOKEN_TTL", 24*time.Hour),
		OwnerOnlyMutations: getEnvAsBool("OWNER_ONLY_MUTATIONS", false),
		CORSOrigins:        splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		ReadTimeout:        getEnvAsDuration("HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:       getEnvAsDuration("HTTP_WRITE_TIMEOUT", 30*time.Second),
		Database:           database.ConfigFromEnv(),
		Log:                utilities.ConfigFromEnv(),
	}, nil
}

func getEnv(key string, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		return defaultVal
	}
	return val
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := time.ParseDuration(valStr)
	if err != nil || val <= 0 {
		return defaultVal
	}
	return val
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
