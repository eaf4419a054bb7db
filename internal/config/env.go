// Package config defines environment variable keys for configuration.
package config

//nolint:gosec,revive // Environment variable keys are not credentials and do not need per-const comments.
const (
	// Core (Required in server mode)
	EnvAPIKey = "CHATAI_API_KEY"

	// Server
	EnvHost            = "CHATAI_HOST"
	EnvPort            = "CHATAI_PORT"
	EnvLogLevel        = "CHATAI_LOG_LEVEL"
	EnvShutdownTimeout = "CHATAI_SHUTDOWN_TIMEOUT"
	EnvMaxBodyBytes    = "CHATAI_MAX_BODY_BYTES"
	EnvMaxMessageRunes = "CHATAI_MAX_MESSAGE_RUNES"
	EnvConfigFile      = "CHATAI_CONFIG_FILE"

	// Data
	EnvDataSource      = "CHATAI_DATA_SOURCE"
	EnvDataEncoding    = "CHATAI_DATA_ENCODING"
	EnvDataLoadTimeout = "CHATAI_DATA_LOAD_TIMEOUT"

	// Matching
	EnvMatchStripPunctuation = "CHATAI_MATCH_STRIP_PUNCTUATION"

	// CORS
	EnvCORSAllowedOrigins = "CHATAI_CORS_ALLOWED_ORIGINS"

	// Rate Limits
	EnvRateBurst  = "CHATAI_RATE_BURST"
	EnvRateRefill = "CHATAI_RATE_REFILL"

	// S3 / R2 data source
	EnvS3Endpoint        = "CHATAI_S3_ENDPOINT"
	EnvS3Region          = "CHATAI_S3_REGION"
	EnvS3AccessKeyID     = "CHATAI_S3_ACCESS_KEY_ID"
	EnvS3SecretAccessKey = "CHATAI_S3_SECRET_ACCESS_KEY"

	// Sentry Feature
	EnvSentryToken       = "CHATAI_SENTRY_TOKEN"
	EnvSentryHost        = "CHATAI_SENTRY_HOST"
	EnvSentryEnvironment = "CHATAI_SENTRY_ENVIRONMENT"
	EnvSentrySampleRate  = "CHATAI_SENTRY_SAMPLE_RATE"

	// Better Stack Feature
	EnvBetterStackToken    = "CHATAI_BETTERSTACK_TOKEN"
	EnvBetterStackEndpoint = "CHATAI_BETTERSTACK_ENDPOINT"

	// Metrics Auth Feature
	EnvMetricsAuthEnabled = "CHATAI_METRICS_AUTH_ENABLED"
	EnvMetricsUsername    = "CHATAI_METRICS_USERNAME"
	EnvMetricsPassword    = "CHATAI_METRICS_PASSWORD"
)

// envPrefix is stripped and the remainder lowercased to get the YAML key.
const envPrefix = "CHATAI_"
