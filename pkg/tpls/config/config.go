package config

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings for the server. Everything comes from
// the environment; a local .env is honored in development.
type Config struct {
	Port   string
	DBPath string

	// Traffic Portal API
	PortalBaseURL   string
	PortalAPIKey    string
	ValidateTimeout time.Duration
	CreateTimeout   time.Duration
}

// Load reads configuration from the environment with development defaults.
func Load() *Config {
	_ = godotenv.Load() // Ignore error if .env not found (e.g. prod)

	return &Config{
		Port:            getEnv("PORT", "8080"),
		DBPath:          getEnv("TPLS_DB_PATH", "tpls.db"),
		PortalBaseURL:   getEnv("TPLS_API_BASE_URL", "https://dev.trfc.link"),
		PortalAPIKey:    getEnv("TPLS_API_KEY", ""),
		ValidateTimeout: getDuration("TPLS_VALIDATE_TIMEOUT", 5*time.Second),
		CreateTimeout:   getDuration("TPLS_CREATE_TIMEOUT", 15*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// String renders the config for the startup log line with secrets masked.
func (c *Config) String() string {
	return fmt.Sprintf("port=%s db=%s portal=%s api-key=%s validate-timeout=%s create-timeout=%s",
		c.Port, c.DBPath, c.PortalBaseURL, PrintableSecret(c.PortalAPIKey), c.ValidateTimeout, c.CreateTimeout)
}

// PrintableSecret masks a secret for logging while keeping enough to tell
// two configurations apart.
func PrintableSecret(secret string) string {
	if len(secret) == 0 {
		return "<nil>"
	} else if len(secret) > 30 {
		sum := md5.Sum([]byte(secret))
		hash := hex.EncodeToString(sum[:])
		return fmt.Sprintf("md5(%s),length=%d", hash[0:8], len(secret))
	} else if len(secret) > 16 {
		return fmt.Sprintf("%s****%s", secret[0:1], secret[len(secret)-2:])
	} else if len(secret) > 10 {
		return fmt.Sprintf("****%s", secret[len(secret)-1:])
	}
	return "****"
}
