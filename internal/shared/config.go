package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	defaultUpstreamTimeout = 10 * time.Second
)

// Config represents the application configuration loaded from a TOML file.
//
// Fields tagged with env can be overridden from the process environment, see [ApplyEnv].
type Config struct {
	Env         string            `toml:"env" env:"ENV"`
	Credentials CredentialsConfig `toml:"credentials"`
	Spotify     SpotifyAPIConfig  `toml:"spotify"`
	Server      ServerConfig      `toml:"server"`
	Database    DatabaseConfig    `toml:"database"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id" env:"CLIENT_ID"`
	ClientSecret string `toml:"client_secret" env:"CLIENT_SECRET"`
	RedirectURI  string `toml:"redirect_uri" env:"REDIRECT_URI"`
	ShowDialog   bool   `toml:"show_dialog"`
}

// SpotifyAPIConfig points the client at the provider's endpoints.
type SpotifyAPIConfig struct {
	AuthURL  string `toml:"auth_url"`
	TokenURL string `toml:"token_url"`
	APIURL   string `toml:"api_url"`
	Timeout  string `toml:"timeout" env:"SPOTIFY_TIMEOUT"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host          string  `toml:"host" env:"HOST"`
	Port          int     `toml:"port" env:"PORT"`
	StaticDir     string  `toml:"static_dir" env:"STATIC_DIR"`
	CORSOrigin    string  `toml:"cors_origin" env:"CORS_ORIGIN"`
	SecureCookies bool    `toml:"secure_cookies" env:"SECURE_COOKIES"`
	RateLimit     float64 `toml:"rate_limit"`
	RateBurst     int     `toml:"rate_burst"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path" env:"DATABASE_PATH"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LogConfig controls logger verbosity.
type LogConfig struct {
	Level string `toml:"level" env:"LOG_LEVEL"`
}

// Addr returns the host:port pair the HTTP server listens on.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// UpstreamTimeout parses the configured per-call timeout, falling back to 10s.
func (s SpotifyAPIConfig) UpstreamTimeout() time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(s.Timeout))
	if err != nil || d <= 0 {
		return defaultUpstreamTimeout
	}
	return d
}

// SecureCookies reports whether cookies should carry the Secure attribute.
//
// Production always forces it on.
func (c *Config) SecureCookies() bool {
	return c.Server.SecureCookies || strings.EqualFold(c.Env, EnvProduction)
}

// Validate checks the settings required to run the proxy.
func (c *Config) Validate() error {
	sp := c.Credentials.Spotify
	if sp.ClientID == "" || sp.ClientSecret == "" {
		return fmt.Errorf("%w: spotify client_id and client_secret must be set", ErrMissingCredentials)
	}
	if sp.RedirectURI == "" {
		return fmt.Errorf("%w: spotify redirect_uri must be set", ErrInvalidConfig)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d", ErrInvalidConfig, c.Server.Port)
	}
	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		return fmt.Errorf("%w: rate limit settings must not be negative", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// ResolveConfig loads path when it exists, otherwise the defaults, then loads the
// .env file (if any) and overlays the environment.
func ResolveConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if config, err = LoadConfig(path); err != nil {
				return nil, err
			}
		}
	}

	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	if err := ApplyEnv(config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process environment.
//
// Missing files are ignored; variables already set are not overwritten.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overlays environment variables onto config.
func ApplyEnv(config *Config) error {
	if err := cleanenv.ReadEnv(config); err != nil {
		return fmt.Errorf("%w: failed to read environment: %v", ErrInvalidConfig, err)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
