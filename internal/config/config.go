// Package config provides centralized configuration management for the loader.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Registry RegistryConfig
	Files    FilesConfig
	Load     LoadConfig
	Logging  LoggingConfig
}

// RegistryConfig holds WHO ICD-11 API settings.
type RegistryConfig struct {
	// AuthURL is the OAuth2 token endpoint used for the client-credentials exchange
	AuthURL string `env:"ICD_AUTH_URL" default:"https://icdaccessmanagement.who.int/connect/token"`

	// ClientID is the API client id (required)
	ClientID string `env:"ICD_CLIENT_ID" required:"true"`

	// ClientSecret is the API client secret (required)
	ClientSecret string `env:"ICD_CLIENT_SECRET" required:"true"`

	// BaseURL is the API root, without a trailing slash (default: https://id.who.int/icd)
	BaseURL string `env:"ICD_API_BASE_URL" envAlt:"ICD_BASE_URL" default:"https://id.who.int/icd"`

	// ReleaseID selects the classification release (default: 2025-01)
	ReleaseID string `env:"ICD_RELEASE_ID" default:"2025-01"`

	// Linearization is the linearization name (default: mms)
	Linearization string `env:"ICD_LINEARIZATION" default:"mms"`

	// Language is sent as Accept-Language (default: es)
	Language string `env:"ICD_LANGUAGE" default:"es"`

	// APIVersion is sent as the API-Version header (default: v2)
	APIVersion string `env:"ICD_API_VERSION" default:"v2"`

	// Timeout bounds every single request, token exchange included (default: 10s)
	Timeout time.Duration `env:"ICD_REQUEST_TIMEOUT" default:"10s"`
}

// FilesConfig holds input and output file locations.
type FilesConfig struct {
	// InputCodes is the JSON file holding the array of codes to load (default: codes.json)
	InputCodes string `env:"INPUT_CODES_FILE" default:"codes.json"`

	// OutputSQL is the file receiving the generated statements (default: output.sql)
	OutputSQL string `env:"OUTPUT_SQL_FILE" default:"output.sql"`
}

// LoadConfig holds settings for the generated rows.
type LoadConfig struct {
	// VersionID must match an existing HIS_TB_MMS_VERSION row (default: 1)
	VersionID int `env:"MMS_VERSION_ID" default:"1"`

	// Table is the registered table key statements are generated for (default: mms_categoria)
	Table string `env:"MMS_TARGET_TABLE" default:"mms_categoria"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// LinearizationURL returns the release and linearization scoped API root.
func (c *RegistryConfig) LinearizationURL() string {
	return c.BaseURL + "/release/" + c.ReleaseID + "/" + c.Linearization
}
