package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/ctxvault/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string      HTTP bind address (e.g., ":8080")
//	-grpc string   gRPC health bind address (e.g., ":50051")
//	-d string      PostgreSQL DSN
//	-l string      log level
//	-s string      admin JWT HMAC secret key
//	-t int         admin session validity, minutes
//	-k string      cron endpoint secret
//	-n int         sync chunk size
//	-u string      S3 root user
//	-p string      S3 root password
//	-b string      S3 bucket name
//	-g string      S3 region
//	-e string      S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// os.Args is first filtered with flagx.FilterArgs so -c/-config and
// unrelated flags do not collide.
func parseFlags(config *Config) error {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-grpc", "-d", "-l", "-s", "-t", "-k", "-n", "-u", "-p", "-b", "-g", "-e",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port of the HTTP API")
	fs.StringVar(&config.GRPCAddr, "grpc", config.GRPCAddr, "address and port of the gRPC health service")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.AdminSecretKey, "s", config.AdminSecretKey, "admin session secret key")

	sessionMinutes := fs.Int("t", int(config.AdminSessionDuration.Minutes()), "admin session validity (in minutes)")

	fs.StringVar(&config.CronSecret, "k", config.CronSecret, "cron endpoint secret")
	fs.IntVar(&config.SyncChunkSize, "n", config.SyncChunkSize, "records per upsert chunk")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		return err
	}

	config.AdminSessionDuration = time.Duration(*sessionMinutes) * time.Minute
	return nil
}
