package config

import (
	"fmt"
	"math"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	return LoadWithOverrides()
}

// LoadWithOverrides is Load with caller-supplied adjustments (typically
// command-line flags) applied after the environment is read and before
// validation runs.
func LoadWithOverrides(overrides ...func(*Config)) (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	for _, apply := range overrides {
		apply(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		// Skip unexported fields
		if !fieldVal.CanSet() {
			continue
		}

		// Recurse into nested structs
		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal); err != nil {
				return err
			}
			continue
		}

		// Get tags
		envName := field.Tag.Get("env")
		envAlt := field.Tag.Get("envAlt")
		defaultVal := field.Tag.Get("default")
		required := field.Tag.Get("required") == "true"

		if envName == "" {
			continue
		}

		// Try primary env var, then alternate
		value := os.Getenv(envName)
		if value == "" && envAlt != "" {
			value = os.Getenv(envAlt)
		}

		// Apply default if not set
		if value == "" {
			if required {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = defaultVal
		}

		if value == "" {
			continue
		}

		// Set the field value
		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		// Handle time.Duration specially
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Registry validation
	if c.Registry.ClientID == "" {
		errs = append(errs, "ICD_CLIENT_ID is required")
	}
	if c.Registry.ClientSecret == "" {
		errs = append(errs, "ICD_CLIENT_SECRET is required")
	}
	if msg := checkURL("ICD_AUTH_URL", c.Registry.AuthURL); msg != "" {
		errs = append(errs, msg)
	}
	if msg := checkURL("ICD_API_BASE_URL", c.Registry.BaseURL); msg != "" {
		errs = append(errs, msg)
	}
	if strings.HasSuffix(c.Registry.BaseURL, "/") {
		errs = append(errs, fmt.Sprintf("ICD_API_BASE_URL (%q) must not end with a slash", c.Registry.BaseURL))
	}
	if c.Registry.ReleaseID == "" {
		errs = append(errs, "ICD_RELEASE_ID must not be empty")
	}
	if c.Registry.Linearization == "" {
		errs = append(errs, "ICD_LINEARIZATION must not be empty")
	}
	if c.Registry.Timeout <= 0 {
		errs = append(errs, "ICD_REQUEST_TIMEOUT must be positive")
	}

	// Files validation
	if c.Files.InputCodes == "" {
		errs = append(errs, "INPUT_CODES_FILE must not be empty")
	}
	if c.Files.OutputSQL == "" {
		errs = append(errs, "OUTPUT_SQL_FILE must not be empty")
	}

	// Load validation
	if c.Load.VersionID <= 0 {
		errs = append(errs, fmt.Sprintf("MMS_VERSION_ID (%d) must be positive", c.Load.VersionID))
	} else if c.Load.VersionID > math.MaxInt32 {
		errs = append(errs, fmt.Sprintf("MMS_VERSION_ID (%d) exceeds %d", c.Load.VersionID, math.MaxInt32))
	}
	if c.Load.Table == "" {
		errs = append(errs, "MMS_TARGET_TABLE must not be empty")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// checkURL returns a validation message if raw is not an absolute URL.
func checkURL(name, raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Sprintf("%s (%q) must be an absolute URL", name, raw)
	}
	return ""
}

// String returns a safe string representation of the config for logging.
// The client secret is masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Registry: {AuthURL: %q, ClientID: %q, ClientSecret: [MASKED], BaseURL: %q, Release: %q, Linearization: %q, Timeout: %s}, ",
		c.Registry.AuthURL, c.Registry.ClientID, c.Registry.BaseURL, c.Registry.ReleaseID, c.Registry.Linearization, c.Registry.Timeout))
	b.WriteString(fmt.Sprintf("Files: {InputCodes: %q, OutputSQL: %q}, ",
		c.Files.InputCodes, c.Files.OutputSQL))
	b.WriteString(fmt.Sprintf("Load: {VersionID: %d, Table: %q}, ",
		c.Load.VersionID, c.Load.Table))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
