// Package config loads the server configuration.
//
// LAYERING (later layers win):
//  1. built-in defaults
//  2. an optional YAML file (CONFIG_PATH, default config.yaml)
//  3. a .env file in the working directory, if present
//  4. process environment variables
//
// Every key has the same name in all layers, e.g. STORE_DRIVER in the
// environment or store_driver / STORE_DRIVER in the YAML file.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is read when CONFIG_PATH is unset. A missing file is
// not an error.
const DefaultConfigPath = "config.yaml"

type Config struct {
	Port      int    `mapstructure:"PORT"`
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`
	StaticDir string `mapstructure:"STATIC_DIR"`

	// --- credential store ---
	StoreDriver string `mapstructure:"STORE_DRIVER"` // memory | sqlite | postgres | mysql
	DBPath      string `mapstructure:"DB_PATH"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	MySQLDSN    string `mapstructure:"MYSQL_DSN"`

	// --- sessions ---
	SessionStore   string        `mapstructure:"SESSION_STORE"` // memory | redis
	RedisAddr      string        `mapstructure:"REDIS_ADDR"`
	RedisPassword  string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB        int           `mapstructure:"REDIS_DB"`
	SessionSecret  string        `mapstructure:"SESSION_SECRET"`
	SessionTTL     time.Duration `mapstructure:"SESSION_TTL"`
	CookieSecure   bool          `mapstructure:"COOKIE_SECURE"`
	PasswordHasher string        `mapstructure:"PASSWORD_HASHER"` // bcrypt | argon2id
	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`

	// --- summarizer ---
	SummarizerAPIKey    string        `mapstructure:"SUMMARIZER_API_KEY"`
	SummarizerBaseURL   string        `mapstructure:"SUMMARIZER_BASE_URL"`
	SummarizerModel     string        `mapstructure:"SUMMARIZER_MODEL"`
	SummarizerMaxTokens int           `mapstructure:"SUMMARIZER_MAX_TOKENS"`
	SummarizerTimeout   time.Duration `mapstructure:"SUMMARIZER_TIMEOUT"`
	SummarizerJSONMode  bool          `mapstructure:"SUMMARIZER_JSON_MODE"`

	// WriteTimeout bounds a whole response. An analyze call runs up to
	// AnalysisCallsPerRequest model round trips back to back, so it must
	// cover that many SummarizerTimeouts; zero derives it from them.
	WriteTimeout time.Duration `mapstructure:"WRITE_TIMEOUT"`
}

// AnalysisCallsPerRequest is the most summarizer calls one analyze request
// makes, one per uploaded file. It matches service.MaxFilesPerRequest.
const AnalysisCallsPerRequest = 5

// writeTimeoutMargin covers upload parsing and PDF extraction on top of the
// model calls.
const writeTimeoutMargin = time.Minute

var defaults = map[string]any{
	"PORT":                  8080,
	"LOG_LEVEL":             "info",
	"LOG_FORMAT":            "text",
	"STATIC_DIR":            "web/static",
	"STORE_DRIVER":          "sqlite",
	"DB_PATH":               "data/paper-digest.db",
	"DATABASE_URL":          "",
	"MYSQL_DSN":             "",
	"SESSION_STORE":         "memory",
	"REDIS_ADDR":            "localhost:6379",
	"REDIS_PASSWORD":        "",
	"REDIS_DB":              0,
	"SESSION_SECRET":        "",
	"SESSION_TTL":           "24h",
	"COOKIE_SECURE":         false,
	"PASSWORD_HASHER":       "bcrypt",
	"CORS_ORIGINS":          []string{},
	"SUMMARIZER_API_KEY":    "",
	"SUMMARIZER_BASE_URL":   "",
	"SUMMARIZER_MODEL":      "gpt-4o-mini",
	"SUMMARIZER_MAX_TOKENS": 2048,
	"SUMMARIZER_TIMEOUT":    "2m",
	"SUMMARIZER_JSON_MODE":  true,
	"WRITE_TIMEOUT":         "0s",
}

// legacyAPIKey is consulted when SUMMARIZER_API_KEY is empty.
const legacyAPIKey = "OPENAI_API_KEY"

// Load reads the configuration from CONFIG_PATH (or config.yaml), .env and
// the environment.
func Load() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = DefaultConfigPath
	}
	return load(path, ".env")
}

func load(configPath, envFile string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	fileValues, err := readFile(configPath)
	if err != nil {
		return nil, err
	}
	for k, val := range fileValues {
		v.SetDefault(k, val)
	}

	// godotenv never overrides variables that are already set, so real
	// environment variables still win over .env.
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("config: loading %s: %w", envFile, err)
		}
	}

	v.AutomaticEnv()
	for k := range defaults {
		_ = v.BindEnv(k)
	}
	_ = v.BindEnv(legacyAPIKey)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unable to decode: %w", err)
	}

	if cfg.SummarizerAPIKey == "" {
		cfg.SummarizerAPIKey = v.GetString(legacyAPIKey)
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = cfg.MinWriteTimeout()
	}
	cfg.CORSOrigins = cleanList(cfg.CORSOrigins)
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	cfg.SessionStore = strings.ToLower(strings.TrimSpace(cfg.SessionStore))

	return &cfg, nil
}

// readFile returns the top-level keys of a YAML file, upper-cased. A
// missing file yields no values.
func readFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	out := make(map[string]any, len(raw))
	for k, val := range raw {
		key := strings.ToUpper(strings.TrimSpace(k))
		if _, known := defaults[key]; !known {
			return nil, fmt.Errorf("config: %s: unknown key %q", path, k)
		}
		out[key] = val
	}
	return out, nil
}

// cleanList splits comma-joined entries, trims them and drops blanks.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: PORT %d out of range", c.Port)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}

	switch c.StoreDriver {
	case "memory":
	case "sqlite":
		if c.DBPath == "" {
			return errors.New("config: STORE_DRIVER=sqlite requires DB_PATH")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("config: STORE_DRIVER=postgres requires DATABASE_URL")
		}
	case "mysql":
		if c.MySQLDSN == "" {
			return errors.New("config: STORE_DRIVER=mysql requires MYSQL_DSN")
		}
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.SessionStore {
	case "memory":
	case "redis":
		if c.RedisAddr == "" {
			return errors.New("config: SESSION_STORE=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("config: unknown SESSION_STORE %q", c.SessionStore)
	}

	switch c.PasswordHasher {
	case "bcrypt", "argon2id":
	default:
		return fmt.Errorf("config: PASSWORD_HASHER must be bcrypt or argon2id, got %q", c.PasswordHasher)
	}

	if c.SessionSecret != "" && len(c.SessionSecret) < 16 {
		return errors.New("config: SESSION_SECRET must be at least 16 characters")
	}
	if c.SessionTTL <= 0 {
		return errors.New("config: SESSION_TTL must be positive")
	}
	if c.SummarizerTimeout <= 0 {
		return errors.New("config: SUMMARIZER_TIMEOUT must be positive")
	}
	if floor := c.MinWriteTimeout(); c.WriteTimeout < floor {
		return fmt.Errorf("config: WRITE_TIMEOUT %s is shorter than %d summarizer calls plus margin (%s)",
			c.WriteTimeout, AnalysisCallsPerRequest, floor)
	}
	return nil
}

// MinWriteTimeout is the shortest WriteTimeout that lets a full analyze
// request finish when every model call takes the whole SummarizerTimeout.
func (c *Config) MinWriteTimeout() time.Duration {
	return AnalysisCallsPerRequest*c.SummarizerTimeout + writeTimeoutMargin
}

// SlogLevel parses LOG_LEVEL (debug, info, warn, error).
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: invalid LOG_LEVEL %q", c.LogLevel)
	}
	return level, nil
}

// EnsureSessionSecret fills an empty SessionSecret with a random one and
// reports whether it did. Sessions signed with a generated secret do not
// survive a restart.
func (c *Config) EnsureSessionSecret() (bool, error) {
	if c.SessionSecret != "" {
		return false, nil
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return false, fmt.Errorf("config: generating session secret: %w", err)
	}
	c.SessionSecret = hex.EncodeToString(buf)
	return true, nil
}

// String prints the effective configuration with secrets masked.
func (c *Config) String() string {
	var sb strings.Builder
	line := func(name string, v any) {
		fmt.Fprintf(&sb, "  %s: %v\n", name, v)
	}

	sb.WriteString("\n")
	line("Port", c.Port)
	line("LogLevel", c.LogLevel)
	line("LogFormat", c.LogFormat)
	line("StaticDir", c.StaticDir)
	line("StoreDriver", c.StoreDriver)
	line("DBPath", c.DBPath)
	line("DatabaseURL", mask(c.DatabaseURL))
	line("MySQLDSN", mask(c.MySQLDSN))
	line("SessionStore", c.SessionStore)
	line("RedisAddr", c.RedisAddr)
	line("RedisPassword", mask(c.RedisPassword))
	line("RedisDB", c.RedisDB)
	line("SessionSecret", mask(c.SessionSecret))
	line("SessionTTL", c.SessionTTL)
	line("CookieSecure", c.CookieSecure)
	line("PasswordHasher", c.PasswordHasher)
	line("CORSOrigins", strings.Join(c.CORSOrigins, ","))
	line("SummarizerAPIKey", mask(c.SummarizerAPIKey))
	line("SummarizerBaseURL", c.SummarizerBaseURL)
	line("SummarizerModel", c.SummarizerModel)
	line("SummarizerMaxTokens", c.SummarizerMaxTokens)
	line("SummarizerTimeout", c.SummarizerTimeout)
	line("SummarizerJSONMode", c.SummarizerJSONMode)
	line("WriteTimeout", c.WriteTimeout)
	return sb.String()
}

// mask hides a secret entirely; DSNs count as secrets because they embed
// passwords.
func mask(s string) string {
	if s == "" {
		return "(empty)"
	}
	return "********"
}
