package app

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"onfawiki/internal/wiki"
)

// Config contains runtime configuration. It is loaded once at start-up from
// .env files, an optional YAML file and the environment, in that order of
// increasing precedence.
type Config struct {
	StoreURL        string        `yaml:"store_url"`
	Port            string        `yaml:"port"`
	FetchTimeout    time.Duration `yaml:"fetch_timeout"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	AdminUser       string        `yaml:"admin_user"`
	AdminPassword   string        `yaml:"admin_password"`
	SessionSecret   string        `yaml:"session_secret"`
	LogLevel        string        `yaml:"log_level"`
	GroqAPIKey      string        `yaml:"groq_api_key"`
	TranslationsDir string        `yaml:"translations_dir"`

	// EphemeralSecret is set when SessionSecret was generated at start-up;
	// sessions then do not survive a restart.
	EphemeralSecret bool `yaml:"-"`
}

// DefaultConfig holds the values used when nothing else is set.
func DefaultConfig() Config {
	return Config{
		Port:         "8080",
		FetchTimeout: wiki.DefaultFetchTimeout,
		CacheTTL:     30 * time.Second,
		LogLevel:     "info",
	}
}

// LoadConfig builds the configuration. path names an optional YAML file;
// CONFIG_FILE is used when path is empty. A missing store URL is not an
// error here: opening the store reports it.
func LoadConfig(path string) (Config, error) {
	if err := loadEnvFiles(); err != nil {
		return Config{}, err
	}

	cfg := DefaultConfig()
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, &wiki.ConfigError{Key: path, Reason: err.Error()}
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if cfg.SessionSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return Config{}, err
		}
		cfg.SessionSecret = secret
		cfg.EphemeralSecret = true
	}
	return cfg, nil
}

// AdminEnabled reports whether admin login is possible.
func (c Config) AdminEnabled() bool {
	return c.AdminUser != "" && c.AdminPassword != ""
}

// loadEnvFiles loads ENV_FILE when set, otherwise .env.local then .env.
// Variables already in the environment are never overwritten.
func loadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

func applyEnv(cfg *Config) error {
	strs := []struct {
		key string
		dst *string
	}{
		{"WIKI_STORE_URL", &cfg.StoreURL},
		{"PORT", &cfg.Port},
		{"WIKI_ADMIN_USER", &cfg.AdminUser},
		{"WIKI_ADMIN_PASSWORD", &cfg.AdminPassword},
		{"WIKI_SESSION_SECRET", &cfg.SessionSecret},
		{"LOG_LEVEL", &cfg.LogLevel},
		{"GROQ_API_KEY", &cfg.GroqAPIKey},
		{"WIKI_TRANSLATIONS_DIR", &cfg.TranslationsDir},
	}
	for _, s := range strs {
		if v, ok := os.LookupEnv(s.key); ok && v != "" {
			*s.dst = v
		}
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"WIKI_FETCH_TIMEOUT", &cfg.FetchTimeout},
		{"WIKI_CACHE_TTL", &cfg.CacheTTL},
	}
	for _, d := range durations {
		v, ok := os.LookupEnv(d.key)
		if !ok || v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil || parsed < 0 {
			return &wiki.ConfigError{Key: d.key, Reason: fmt.Sprintf("invalid duration %q", v)}
		}
		*d.dst = parsed
	}
	return nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
