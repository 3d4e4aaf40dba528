package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/ctxvault/internal/schema"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable the server reads.
const EnvPrefix = "CTXVAULT_"

// dotEnvFile is loaded before the environment is read. Variables already
// set in the process environment win.
var dotEnvFile = ".env"

// loadDotEnv loads dotEnvFile into the process environment. A missing file
// is fine.
func loadDotEnv() error {
	if err := godotenv.Load(dotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", dotEnvFile, err)
	}
	return nil
}

// RetentionTargets lists every retention target: the record kinds, then
// screenshots, activity and jobs.
func RetentionTargets() []string {
	var out []string
	for _, k := range schema.All() {
		out = append(out, k.Name)
	}
	return append(out, RetentionScreenshots, RetentionActivity, RetentionJobs)
}

// parseEnv overlays CTXVAULT_* variables. Retention targets are read from
// CTXVAULT_RETENTION_<TARGET>_HOURS.
func parseEnv(config *Config, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	str("HTTP_ADDR", &config.HTTPAddr)
	str("GRPC_ADDR", &config.GRPCAddr)
	str("DATABASE_DSN", &config.DatabaseDSN)
	str("LOG_LEVEL", &config.LogLevel)
	str("OWNER_ID", &config.OwnerID)
	str("ADMIN_PASSWORD_HASH", &config.AdminPasswordHash)
	str("ADMIN_SECRET_KEY", &config.AdminSecretKey)
	str("CRON_SECRET", &config.CronSecret)
	str("RETENTION_SCHEDULE", &config.RetentionSchedule)
	str("S3_ROOT_USER", &config.S3RootUser)
	str("S3_ROOT_PASSWORD", &config.S3RootPassword)
	str("S3_BUCKET", &config.S3Bucket)
	str("S3_REGION", &config.S3Region)
	str("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)

	if v, ok := lookup(EnvPrefix + "CORS_ALLOWED_ORIGINS"); ok && v != "" {
		config.CORSAllowedOrigins = splitList(v)
	}

	ints := map[string]*int{
		"SYNC_CHUNK_SIZE":       &config.SyncChunkSize,
		"RATE_LIMIT_PER_MINUTE": &config.RateLimitPerMinute,
	}
	for name, dst := range ints {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
			}
			*dst = n
		}
	}

	durations := map[string]*time.Duration{
		"ADMIN_SESSION_DURATION": &config.AdminSessionDuration,
		"REQUEST_TIMEOUT":        &config.RequestTimeout,
	}
	for name, dst := range durations {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
			}
			*dst = d
		}
	}

	for _, target := range RetentionTargets() {
		name := "RETENTION_" + strings.ToUpper(target) + "_HOURS"
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
			}
			if config.RetentionHours == nil {
				config.RetentionHours = map[string]int{}
			}
			config.RetentionHours[target] = n
		}
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
