package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	envPrefix  = "NOTEKEEPER_"
	envFileVar = envPrefix + "ENV_FILE"
)

// loadDotEnv reads the .env file into the process environment. Variables
// already set win; a missing file is not an error.
func loadDotEnv() {
	path := os.Getenv(envFileVar)
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(fmt.Errorf("load %s: %w", path, err))
	}
}

func envString(name string, dst *string) {
	if v, ok := os.LookupEnv(envPrefix + name); ok {
		*dst = v
	}
}

func envInt(name string, dst *int) {
	v, ok := os.LookupEnv(envPrefix + name)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Errorf("%s%s: %w", envPrefix, name, err))
	}
	*dst = n
}

func envDuration(name string, dst *time.Duration) {
	v, ok := os.LookupEnv(envPrefix + name)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(fmt.Errorf("%s%s: %w", envPrefix, name, err))
	}
	*dst = d
}

// parseEnv overlays Config with NOTEKEEPER_* variables. Panics on values
// that do not parse.
func parseEnv(cfg *Config) {
	loadDotEnv()

	envString("BACKEND", &cfg.Backend)
	envString("DATABASE_DSN", &cfg.DatabaseDSN)
	envString("LOCAL_DB", &cfg.LocalDBPath)
	envString("SESSION_SECRET", &cfg.SessionSecret)
	envDuration("SESSION_VALIDITY", &cfg.SessionValidity)

	envString("S3_REGION", &cfg.S3.Region)
	envString("S3_BUCKET", &cfg.S3.Bucket)
	envString("S3_ENDPOINT", &cfg.S3.BaseEndpoint)
	envString("S3_ACCESS_KEY", &cfg.S3.AccessKey)
	envString("S3_SECRET_KEY", &cfg.S3.SecretKey)
	envString("S3_PUBLIC_URL", &cfg.S3.PublicBaseURL)

	envString("DOWNLOAD_DIR", &cfg.DownloadDir)
	envString("PREVIEW_ADDR", &cfg.PreviewAddr)
	envInt("RETRY_ATTEMPTS", &cfg.RetryAttempts)
	envDuration("RETRY_BASE_DELAY", &cfg.RetryBaseDelay)
	envDuration("CACHE_EXPIRATION", &cfg.CacheExpiration)
	envDuration("SWEEP_INTERVAL", &cfg.SweepInterval)
	envInt("CACHE_MAX_ENTRIES", &cfg.CacheMaxEntries)

	envString("CHAT_API_KEY", &cfg.ChatAPIKey)
	envString("CHAT_BASE_URL", &cfg.ChatBaseURL)
	envString("CHAT_MODEL", &cfg.ChatModel)

	envString("SENDGRID_API_KEY", &cfg.SendGridKey)
	envString("CONTACT_FROM", &cfg.ContactFrom)
	envString("CONTACT_TO", &cfg.ContactTo)
	envDuration("CONTACT_COOLDOWN", &cfg.ContactCooldown)

	envString("LOG_FORMAT", &cfg.LogFormat)
}
