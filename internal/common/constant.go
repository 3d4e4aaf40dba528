// Package common contains shared constants and sentinel errors used across
// ctxvault components.
package common

// AuthorizationHeaderName carries the bearer token on every API request.
const AuthorizationHeaderName = "Authorization"

// DeviceIDHeaderName identifies the polling device on write-job endpoints
// and is the fallback device id for sync batches.
const DeviceIDHeaderName = "X-Device-Id"

// BearerPrefix is the scheme prefix expected in the Authorization header.
const BearerPrefix = "Bearer "
