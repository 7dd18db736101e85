package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	AppName     = "pricetag-scanner"
	EnvFileName = "config.env"
)

// Config is the process configuration, read once at startup.
type Config struct {
	GeminiAPIKey  string        `envconfig:"GEMINI_API_KEY"`
	GeminiModel   string        `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`
	GeminiBaseURL string        `envconfig:"GEMINI_BASE_URL"`
	ListenAddr    string        `envconfig:"LISTEN_ADDR" default:":8080"`
	DBPath        string        `envconfig:"DB_PATH" default:"pricetag.db"`
	CacheEnabled  bool          `envconfig:"CACHE_ENABLED" default:"false"`
	CacheTTL      time.Duration `envconfig:"CACHE_TTL" default:"24h"`
	LogFile       string        `envconfig:"LOG_FILE"`
}

// HasCredentials reports whether a model API key is configured.
func (c *Config) HasCredentials() bool {
	return c.GeminiAPIKey != ""
}

// Load reads the configuration from the environment. Call LoadEnvFile first
// to pick up values from config files.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	return &cfg, nil
}

// Dir returns the application's config directory path, creating it if
// needed.
func Dir() (string, error) {
	configBase, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	configDir := filepath.Join(configBase, AppName)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// FilePath returns the full path to the config file.
func FilePath() (string, error) {
	configDir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, EnvFileName), nil
}

// LoadEnvFile loads environment variables from ./.env and from the config
// file in the user's config directory. Already set variables win. Errors are
// ignored since the files may not exist.
func LoadEnvFile() {
	_ = godotenv.Load()

	configPath, err := FilePath()
	if err != nil {
		return
	}
	_ = godotenv.Load(configPath)
}

// WriteEnvFile writes values to the config file with 0600 permissions and
// returns the path written.
func WriteEnvFile(values map[string]string) (string, error) {
	configPath, err := FilePath()
	if err != nil {
		return "", err
	}

	existing, err := godotenv.Read(configPath)
	if err != nil {
		existing = map[string]string{}
	}
	for k, v := range values {
		existing[k] = v
	}

	if err := godotenv.Write(existing, configPath); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Chmod(configPath, 0600); err != nil {
		return "", fmt.Errorf("failed to set config file permissions: %w", err)
	}

	return configPath, nil
}
