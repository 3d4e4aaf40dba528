package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/ctxvault/internal/flagx"
	"github.com/dmitrijs2005/ctxvault/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the config file. Interval fields use
// timex.Duration, which accepts strings such as "12h" and integer
// nanoseconds. Zero values leave the current setting alone.
type FileConfig struct {
	HTTPAddr             string         `json:"http_addr" yaml:"http_addr"`
	GRPCAddr             string         `json:"grpc_addr" yaml:"grpc_addr"`
	DatabaseDSN          string         `json:"database_dsn" yaml:"database_dsn"`
	LogLevel             string         `json:"log_level" yaml:"log_level"`
	OwnerID              string         `json:"owner_id" yaml:"owner_id"`
	AdminPasswordHash    string         `json:"admin_password_hash" yaml:"admin_password_hash"`
	AdminSecretKey       string         `json:"admin_secret_key" yaml:"admin_secret_key"`
	AdminSessionDuration timex.Duration `json:"admin_session_duration" yaml:"admin_session_duration"`
	CronSecret           string         `json:"cron_secret" yaml:"cron_secret"`
	RetentionSchedule    string         `json:"retention_schedule" yaml:"retention_schedule"`
	RetentionHours       map[string]int `json:"retention_hours" yaml:"retention_hours"`
	SyncChunkSize        int            `json:"sync_chunk_size" yaml:"sync_chunk_size"`
	RateLimitPerMinute   int            `json:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
	CORSAllowedOrigins   []string       `json:"cors_allowed_origins" yaml:"cors_allowed_origins"`
	RequestTimeout       timex.Duration `json:"request_timeout" yaml:"request_timeout"`
	S3RootUser           string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword       string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket             string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region             string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint       string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
}

// parseFile overlays the file named by -c/-config. Files ending in .yaml
// or .yml are YAML, anything else JSON. No flag means nothing to load.
func parseFile(config *Config) error {
	path := flagx.ConfigFileFlag(os.Args[1:])
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	fc := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fc)
	default:
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	fc.apply(config)
	return nil
}

func (fc *FileConfig) apply(config *Config) {
	setString(&config.HTTPAddr, fc.HTTPAddr)
	setString(&config.GRPCAddr, fc.GRPCAddr)
	setString(&config.DatabaseDSN, fc.DatabaseDSN)
	setString(&config.LogLevel, fc.LogLevel)
	setString(&config.OwnerID, fc.OwnerID)
	setString(&config.AdminPasswordHash, fc.AdminPasswordHash)
	setString(&config.AdminSecretKey, fc.AdminSecretKey)
	setString(&config.CronSecret, fc.CronSecret)
	setString(&config.RetentionSchedule, fc.RetentionSchedule)
	setString(&config.S3RootUser, fc.S3RootUser)
	setString(&config.S3RootPassword, fc.S3RootPassword)
	setString(&config.S3Bucket, fc.S3Bucket)
	setString(&config.S3Region, fc.S3Region)
	setString(&config.S3BaseEndpoint, fc.S3BaseEndpoint)

	if fc.AdminSessionDuration.Duration > 0 {
		config.AdminSessionDuration = fc.AdminSessionDuration.Duration
	}
	if fc.RequestTimeout.Duration > 0 {
		config.RequestTimeout = fc.RequestTimeout.Duration
	}
	if fc.SyncChunkSize > 0 {
		config.SyncChunkSize = fc.SyncChunkSize
	}
	if fc.RateLimitPerMinute > 0 {
		config.RateLimitPerMinute = fc.RateLimitPerMinute
	}
	if len(fc.CORSAllowedOrigins) > 0 {
		config.CORSAllowedOrigins = fc.CORSAllowedOrigins
	}
	for target, hours := range fc.RetentionHours {
		if config.RetentionHours == nil {
			config.RetentionHours = map[string]int{}
		}
		config.RetentionHours[target] = hours
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
