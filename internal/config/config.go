package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version information - set by GoReleaser during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// GetVersionInfo returns a formatted version string
func GetVersionInfo() string {
	return fmt.Sprintf("ridelink version %s, commit %s, built at %s", version, commit, date)
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Google   GoogleConfig   `mapstructure:"google"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Client   ClientConfig   `mapstructure:"client"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level             string `mapstructure:"level"`
	Format            string `mapstructure:"format"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// GoogleConfig holds the identity-provider settings. ClientID is the OAuth
// web client ID used as the expected audience of incoming ID tokens.
type GoogleConfig struct {
	ClientID  string `mapstructure:"client_id"`
	IssuerURL string `mapstructure:"issuer_url"`
}

// AuthConfig holds session-token settings for the backend.
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// ClientConfig holds settings for the client SDK / CLI.
type ClientConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	CredentialsDir string        `mapstructure:"credentials_dir"`
}

// InitFlags initializes command line flags (without parsing)
func InitFlags() {
	pflag.String("database-url", "", "PostgreSQL connection URL")
	pflag.String("base-url", "", "Backend base URL for the client CLI")
	// Note: no pflag.Parse() here as it's called in main.go
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 5000)
	viper.SetDefault("server.shutdown_timeout", 5*time.Second)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "console")
	viper.SetDefault("database.max_conns", 8)
	viper.SetDefault("google.issuer_url", "https://accounts.google.com")
	viper.SetDefault("auth.token_ttl", 7*24*time.Hour)
	viper.SetDefault("client.base_url", "http://localhost:5000")
	viper.SetDefault("client.request_timeout", 30*time.Second)

	// Keys without a meaningful default still need one registered so
	// AutomaticEnv can populate them through Unmarshal.
	viper.SetDefault("database.url", "")
	viper.SetDefault("google.client_id", "")
	viper.SetDefault("auth.jwt_secret", "")
	viper.SetDefault("client.credentials_dir", "")
}

func Load() (*Config, error) {
	viper.Reset() // Ensure clean state

	viper.SetEnvPrefix("RIDELINK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.BindPFlags(pflag.CommandLine); err != nil {
		return nil, err
	}

	// Load ./config.yaml first
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.AddConfigPath("/etc/ridelink")

	if err := viper.ReadInConfig(); err != nil {
		// A config file is optional; env vars and flags may carry everything.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	// Loading additional config files
	if _, err := os.Stat("/config/config.yaml"); err == nil {
		viper.SetConfigFile("/config/config.yaml")
		// Merge /config/config.yaml (overrides overlapping keys)
		if err := viper.MergeInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, err
			}
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if dbURL := viper.GetString("database-url"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if baseURL := viper.GetString("base-url"); baseURL != "" {
		config.Client.BaseURL = baseURL
	}

	return &config, nil
}

// ValidateServer checks the settings the backend cannot run without. The
// client CLI deliberately skips these.
func (c *Config) ValidateServer() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required, please adjust the config or pass --database-url or RIDELINK_DATABASE_URL environment variable")
	}
	if c.Google.ClientID == "" {
		return fmt.Errorf("google.client_id is required for verifying provider credentials")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required for signing session tokens")
	}
	return nil
}
