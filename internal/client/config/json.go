package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/flagx"
	"github.com/dmitrijs2005/notekeeper/internal/timex"
)

type jsonS3 struct {
	Region        string `json:"region"`
	Bucket        string `json:"bucket"`
	BaseEndpoint  string `json:"base_endpoint"`
	AccessKey     string `json:"access_key"`
	SecretKey     string `json:"secret_key"`
	PublicBaseURL string `json:"public_base_url"`
}

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Absent or
// zero fields leave the current value unchanged.
type JsonConfig struct {
	Backend         string         `json:"backend"`
	DatabaseDSN     string         `json:"database_dsn"`
	LocalDBPath     string         `json:"local_db"`
	SessionSecret   string         `json:"session_secret"`
	SessionValidity timex.Duration `json:"session_validity"`
	S3              jsonS3         `json:"s3"`

	DownloadDir     string         `json:"download_dir"`
	PreviewAddr     string         `json:"preview_addr"`
	RetryAttempts   int            `json:"retry_attempts"`
	RetryBaseDelay  timex.Duration `json:"retry_base_delay"`
	CacheExpiration timex.Duration `json:"cache_expiration"`
	SweepInterval   timex.Duration `json:"sweep_interval"`
	CacheMaxEntries int            `json:"cache_max_entries"`

	ChatAPIKey  string `json:"chat_api_key"`
	ChatBaseURL string `json:"chat_base_url"`
	ChatModel   string `json:"chat_model"`

	SendGridKey     string         `json:"sendgrid_api_key"`
	ContactFrom     string         `json:"contact_from"`
	ContactTo       string         `json:"contact_to"`
	ContactCooldown timex.Duration `json:"contact_cooldown"`

	LogFormat string `json:"log_format"`
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}

// parseJson overlays Config with values loaded from the file named by -c,
// -config or NOTEKEEPER_CONFIG. Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.Backend, jc.Backend)
	setString(&cfg.DatabaseDSN, jc.DatabaseDSN)
	setString(&cfg.LocalDBPath, jc.LocalDBPath)
	setString(&cfg.SessionSecret, jc.SessionSecret)
	setDuration(&cfg.SessionValidity, jc.SessionValidity)

	setString(&cfg.S3.Region, jc.S3.Region)
	setString(&cfg.S3.Bucket, jc.S3.Bucket)
	setString(&cfg.S3.BaseEndpoint, jc.S3.BaseEndpoint)
	setString(&cfg.S3.AccessKey, jc.S3.AccessKey)
	setString(&cfg.S3.SecretKey, jc.S3.SecretKey)
	setString(&cfg.S3.PublicBaseURL, jc.S3.PublicBaseURL)

	setString(&cfg.DownloadDir, jc.DownloadDir)
	setString(&cfg.PreviewAddr, jc.PreviewAddr)
	setInt(&cfg.RetryAttempts, jc.RetryAttempts)
	setDuration(&cfg.RetryBaseDelay, jc.RetryBaseDelay)
	setDuration(&cfg.CacheExpiration, jc.CacheExpiration)
	setDuration(&cfg.SweepInterval, jc.SweepInterval)
	setInt(&cfg.CacheMaxEntries, jc.CacheMaxEntries)

	setString(&cfg.ChatAPIKey, jc.ChatAPIKey)
	setString(&cfg.ChatBaseURL, jc.ChatBaseURL)
	setString(&cfg.ChatModel, jc.ChatModel)

	setString(&cfg.SendGridKey, jc.SendGridKey)
	setString(&cfg.ContactFrom, jc.ContactFrom)
	setString(&cfg.ContactTo, jc.ContactTo)
	setDuration(&cfg.ContactCooldown, jc.ContactCooldown)

	setString(&cfg.LogFormat, jc.LogFormat)
}
