// Package config loads settings for the ctxcli owner tool.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON or YAML file given with --config.
//  3. Environment: CTXVAULT_SERVER_URL, CTXVAULT_TOKEN, CTXVAULT_TIMEOUT.
//  4. Command-line flags, applied by the cli package.
//
// The passphrase is never part of the configuration; the CLI prompts for it.
//
//	server_url: https://vault.example.com
//	token: ctx_...
//	timeout: 30s
package config
