// Package config loads StudySync settings from the environment.
// Server variables use the STUDYSYNC_ prefix, e.g. STUDYSYNC_PORT, STUDYSYNC_STORE.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Prefix is the environment variable prefix shared by server and client settings.
const Prefix = "STUDYSYNC"

// Storage backends
const (
	StoreSQLite   = "sqlite"
	StoreDynamoDB = "dynamodb"
)

// Server holds the configuration of the StudySync API server.
type Server struct {
	Port string `envconfig:"PORT" default:"8080"`

	// Store selects the persistence backend: sqlite or dynamodb
	Store      string `envconfig:"STORE" default:"sqlite"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"studysync.db"`

	// AWS settings, used by the dynamodb store and profile picture uploads
	AWSRegion         string `envconfig:"AWS_REGION" default:"us-west-2"`
	DynamoTablePrefix string `envconfig:"DYNAMO_TABLE_PREFIX" default:""`
	DynamoEndpoint    string `envconfig:"DYNAMO_ENDPOINT" default:""`
	S3Bucket          string `envconfig:"S3_BUCKET" default:""`

	// SessionSecret signs the session cookie. Empty means a random per-process key.
	SessionSecret string `envconfig:"SESSION_SECRET" default:""`
	SecureCookies bool   `envconfig:"SECURE_COOKIES" default:"false"`

	// NATSURL enables cross-instance chat fan-out when set
	NATSURL string `envconfig:"NATS_URL" default:""`

	FrontendURL    string   `envconfig:"FRONTEND_URL" default:"http://localhost:3000"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`

	GoogleClientID     string `envconfig:"OAUTH_GOOGLE_CLIENT_ID" default:""`
	GoogleClientSecret string `envconfig:"OAUTH_GOOGLE_CLIENT_SECRET" default:""`
	GitHubClientID     string `envconfig:"OAUTH_GITHUB_CLIENT_ID" default:""`
	GitHubClientSecret string `envconfig:"OAUTH_GITHUB_CLIENT_SECRET" default:""`
	// OAuthRedirectBase is the externally visible server URL used to build callback URLs
	OAuthRedirectBase string `envconfig:"OAUTH_REDIRECT_BASE" default:"http://localhost:8080"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Client holds the configuration of the StudySync client SDK and CLI.
type Client struct {
	APIURL       string        `envconfig:"API_URL" default:"http://localhost:8080" yaml:"apiUrl"`
	DataDir      string        `envconfig:"DATA_DIR" default:"" yaml:"dataDir"`
	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"3s" yaml:"pollInterval"`
	Timeout      time.Duration `envconfig:"TIMEOUT" default:"15s" yaml:"timeout"`
	LogLevel     string        `envconfig:"LOG_LEVEL" default:"warn" yaml:"logLevel"`
}

// NewServer parses the server configuration from the environment.
func NewServer() (*Server, error) {
	var cfg Server
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Info().
		Str("port", cfg.Port).
		Str("store", cfg.Store).
		Str("region", cfg.AWSRegion).
		Bool("s3_enabled", cfg.S3Bucket != "").
		Bool("nats_enabled", cfg.NATSURL != "").
		Strs("oauth_providers", cfg.OAuthProviders()).
		Msg("Configuration loaded")

	return &cfg, nil
}

// Validate checks enumerated settings.
func (c *Server) Validate() error {
	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	switch c.Store {
	case StoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("STORE=sqlite requires SQLITE_PATH")
		}
	case StoreDynamoDB:
		if c.AWSRegion == "" {
			return fmt.Errorf("STORE=dynamodb requires AWS_REGION")
		}
	default:
		return fmt.Errorf("unsupported STORE: %s", c.Store)
	}
	if c.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	return nil
}

// OAuthProviders lists providers with both a client id and secret configured.
func (c *Server) OAuthProviders() []string {
	var out []string
	if c.GoogleClientID != "" && c.GoogleClientSecret != "" {
		out = append(out, "google")
	}
	if c.GitHubClientID != "" && c.GitHubClientSecret != "" {
		out = append(out, "github")
	}
	return out
}

// Addr returns the listen address.
func (c *Server) Addr() string {
	return ":" + c.Port
}

// NewServerForTesting returns an in-memory sqlite configuration.
func NewServerForTesting() *Server {
	return &Server{
		Port:              "0",
		Store:             StoreSQLite,
		SQLitePath:        "file::memory:",
		AWSRegion:         "us-west-2",
		SessionSecret:     "test-session-secret-0123456789abcdef",
		FrontendURL:       "http://localhost:3000",
		AllowedOrigins:    []string{"http://localhost:3000"},
		OAuthRedirectBase: "http://localhost:8080",
		LogLevel:          "disabled",
	}
}

// NewClient parses the client configuration. Values from base (typically a config
// file) are used where the matching variable is not set in the environment.
func NewClient(base *Client) (*Client, error) {
	cfg := Client{}
	if base != nil {
		cfg = *base
	}
	var env Client
	if err := envconfig.Process(Prefix, &env); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	overlay(&cfg, &env)
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL must be positive")
	}
	return &cfg, nil
}

// overlay copies env values over cfg when they differ from the envconfig defaults
// or when cfg leaves the field unset.
func overlay(cfg, env *Client) {
	def := defaultClient()
	if cfg.APIURL == "" || env.APIURL != def.APIURL {
		cfg.APIURL = env.APIURL
	}
	if cfg.DataDir == "" || env.DataDir != def.DataDir {
		cfg.DataDir = env.DataDir
	}
	if cfg.PollInterval == 0 || env.PollInterval != def.PollInterval {
		cfg.PollInterval = env.PollInterval
	}
	if cfg.Timeout == 0 || env.Timeout != def.Timeout {
		cfg.Timeout = env.Timeout
	}
	if cfg.LogLevel == "" || env.LogLevel != def.LogLevel {
		cfg.LogLevel = env.LogLevel
	}
}

func defaultClient() Client {
	return Client{
		APIURL:       "http://localhost:8080",
		PollInterval: 3 * time.Second,
		Timeout:      15 * time.Second,
		LogLevel:     "warn",
	}
}
