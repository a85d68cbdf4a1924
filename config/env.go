// Package config loads application settings from defaults, an optional
// config/app.json file, and an optional .env file (later sources win).
//
// Unlike reading os.Getenv all over the codebase, Load returns an explicit
// *Config that is handed to each component at construction, so components
// can be tested in isolation without process-level state.
package config

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultMongoURI  = "mongodb://localhost:27017"
	defaultMongoDB   = "school_payments"
	defaultRedisAddr = "localhost:6379"
	defaultJWTSecret = "change-me-in-production"
	defaultJWTExpiry = "1d"
	defaultAppPort   = "8080"
	defaultAppEnv    = "local"
)

// Config is the full configuration surface of the service.
type Config struct {
	AppEnv     string
	AppPort    string
	AppBaseURL string

	MongoURI string
	MongoDB  string

	RedisAddr     string
	RedisPassword string

	JWTSecret string
	JWTExpiry time.Duration

	// Payment gateway.
	GatewayBaseURL string // PAYMENT_API_BASE
	GatewayAPIKey  string // PAYMENT_API_KEY
	GatewayPGKey   string // PAYMENT_PG_KEY, signs collect-request payloads
	GatewayTimeout time.Duration
	GatewayRetries int

	// DefaultSchoolID is used when a request does not carry a school id.
	DefaultSchoolID string

	// SchoolNames is the static school_id → display name map parsed from
	// SCHOOLS_MAP_JSON. Used as a fallback when no School document exists.
	SchoolNames map[string]string

	// Simulation mode: bypass the real gateway entirely.
	FakeGateway bool // DEV_FAKE_GATEWAY
	AutoCapture bool // DEV_AUTO_CAPTURE
}

// Load merges defaults, config/app.json and .env, then builds a Config.
func Load() (*Config, error) {
	return LoadFrom("config/app.json", ".env")
}

// LoadFrom is Load with explicit file paths, for tests.
func LoadFrom(jsonPath, envPath string) (*Config, error) {
	values := defaultValues()

	if err := mergeJSONConfig(jsonPath, values); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}
	if err := mergeDotEnv(envPath, values); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	// Real environment variables win over files.
	for key := range values {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			values[key] = strings.TrimSpace(v)
		}
	}

	return build(values)
}

func defaultValues() map[string]string {
	return map[string]string{
		"APP_ENV":          defaultAppEnv,
		"APP_PORT":         defaultAppPort,
		"APP_BASE_URL":     "",
		"MONGO_URI":        defaultMongoURI,
		"MONGO_DB":         defaultMongoDB,
		"REDIS_ADDR":       defaultRedisAddr,
		"REDIS_PASSWORD":   "",
		"JWT_SECRET":       defaultJWTSecret,
		"JWT_EXPIRES_IN":   defaultJWTExpiry,
		"PAYMENT_API_BASE": "",
		"PAYMENT_API_KEY":  "",
		"PAYMENT_PG_KEY":   "",
		"GATEWAY_TIMEOUT":  "10s",
		"GATEWAY_RETRIES":  "3",
		"SCHOOL_ID":        "",
		"SCHOOLS_MAP_JSON": "",
		"DEV_FAKE_GATEWAY": "",
		"DEV_AUTO_CAPTURE": "",
	}
}

func build(values map[string]string) (*Config, error) {
	cfg := &Config{
		AppEnv:          values["APP_ENV"],
		AppPort:         values["APP_PORT"],
		AppBaseURL:      strings.TrimRight(values["APP_BASE_URL"], "/"),
		MongoURI:        values["MONGO_URI"],
		MongoDB:         values["MONGO_DB"],
		RedisAddr:       values["REDIS_ADDR"],
		RedisPassword:   values["REDIS_PASSWORD"],
		JWTSecret:       values["JWT_SECRET"],
		GatewayBaseURL:  strings.TrimRight(values["PAYMENT_API_BASE"], "/"),
		GatewayAPIKey:   values["PAYMENT_API_KEY"],
		GatewayPGKey:    values["PAYMENT_PG_KEY"],
		DefaultSchoolID: values["SCHOOL_ID"],
		FakeGateway:     parseBool(values["DEV_FAKE_GATEWAY"]),
		AutoCapture:     parseBool(values["DEV_AUTO_CAPTURE"]),
		SchoolNames:     map[string]string{},
	}

	expiry, err := ParseExpiry(values["JWT_EXPIRES_IN"])
	if err != nil {
		return nil, fmt.Errorf("config: JWT_EXPIRES_IN: %w", err)
	}
	cfg.JWTExpiry = expiry

	timeout, err := time.ParseDuration(values["GATEWAY_TIMEOUT"])
	if err != nil {
		return nil, fmt.Errorf("config: GATEWAY_TIMEOUT: %w", err)
	}
	cfg.GatewayTimeout = timeout

	retries, err := strconv.Atoi(values["GATEWAY_RETRIES"])
	if err != nil || retries < 1 {
		return nil, fmt.Errorf("config: GATEWAY_RETRIES must be a positive integer, got %q", values["GATEWAY_RETRIES"])
	}
	cfg.GatewayRetries = retries

	if raw := values["SCHOOLS_MAP_JSON"]; raw != "" {
		// A malformed map is ignored rather than fatal; names fall back to ids.
		_ = json.Unmarshal([]byte(raw), &cfg.SchoolNames)
	}

	return cfg, nil
}

// IsProduction reports whether the app runs with production logging defaults.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production" || c.AppEnv == "prod"
}

// MissingGatewayVars returns the names of required settings that are absent
// for a real (non-simulated) payment creation. Empty means fully configured.
func (c *Config) MissingGatewayVars() []string {
	var missing []string
	if !c.FakeGateway {
		if c.GatewayBaseURL == "" || strings.Contains(c.GatewayBaseURL, "<PUT_") {
			missing = append(missing, "PAYMENT_API_BASE")
		}
		if c.GatewayAPIKey == "" {
			missing = append(missing, "PAYMENT_API_KEY")
		}
		if c.GatewayPGKey == "" {
			missing = append(missing, "PAYMENT_PG_KEY")
		}
	}
	if c.AppBaseURL == "" {
		missing = append(missing, "APP_BASE_URL")
	}
	return missing
}

// StatusURL builds the customer-facing status page URL for an order.
func (c *Config) StatusURL(customOrderID string) string {
	return c.AppBaseURL + "/status/" + customOrderID
}

// ParseExpiry parses a token lifetime. It accepts Go durations ("24h") and
// a day-suffix shorthand ("1d", "7d") common in JWT expiry settings.
func ParseExpiry(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		s = defaultJWTExpiry
	}
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil || days <= 0 {
			return 0, fmt.Errorf("invalid day expiry %q", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid expiry %q", s)
	}
	return d, nil
}

func parseBool(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "true")
}

func mergeJSONConfig(path string, out map[string]string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var raw map[string]interface{}
	if err := json.NewDecoder(file).Decode(&raw); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	for key, val := range raw {
		s, ok := val.(string)
		if !ok {
			continue
		}
		k := strings.ToUpper(strings.TrimSpace(key))
		if k == "" {
			continue
		}
		out[k] = strings.TrimSpace(s)
	}
	return nil
}

func mergeDotEnv(path string, out map[string]string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		idx := strings.IndexByte(line, '=')
		if idx <= 0 {
			continue
		}

		key := strings.ToUpper(strings.TrimSpace(line[:idx]))
		value := strings.TrimSpace(line[idx+1:])
		value = strings.Trim(value, `"'`)
		if key == "" {
			continue
		}
		out[key] = value
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}
