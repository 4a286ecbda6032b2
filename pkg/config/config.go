package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config defines runtime settings for officemcp. Credentials left empty make
// the matching tools report Unavailable.
type Config struct {
	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"`
	ProjectID string `yaml:"projectId"`
	// BaseURL is the public prefix for short links and shared files.
	BaseURL string `yaml:"baseUrl"`
	// Timeout bounds each outbound backend call.
	Timeout time.Duration `yaml:"timeout"`

	HTTP     HTTPConfig     `yaml:"http"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Weather  APIConfig      `yaml:"weather"`
	Search   SearchConfig   `yaml:"search"`
	Slack    SlackConfig    `yaml:"slack"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Amazon   APIConfig      `yaml:"amazon"`
	Odoo     OdooConfig     `yaml:"odoo"`
	Files    FilesConfig    `yaml:"files"`
	Maths    MathsConfig    `yaml:"maths"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type GatewayConfig struct {
	TCPAddr     string   `yaml:"tcpAddr"`
	WSAddr      string   `yaml:"wsAddr"`
	MaxSessions int      `yaml:"maxSessions"`
	// Allow lists the remote hosts permitted to open sessions. Empty allows all.
	Allow       []string `yaml:"allow"`
}

// DatabaseConfig selects the chat store. Driver is "sqlite" or "postgres".
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// RedisConfig backs the URL shortener. An empty Addr keeps links in memory.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type APIConfig struct {
	APIKey  string `yaml:"apiKey"`
	BaseURL string `yaml:"baseUrl"`
}

type SearchConfig struct {
	APIKey   string `yaml:"apiKey"`
	EngineID string `yaml:"engineId"`
}

type SlackConfig struct {
	Token  string `yaml:"token"`
	APIURL string `yaml:"apiUrl"`
}

type OpenAIConfig struct {
	APIKey         string `yaml:"apiKey"`
	BaseURL        string `yaml:"baseUrl"`
	ReasoningModel string `yaml:"reasoningModel"`
}

type OdooConfig struct {
	URL      string `yaml:"url"`
	APIURL   string `yaml:"apiUrl"`
	DB       string `yaml:"db"`
	Login    string `yaml:"login"`
	Password string `yaml:"password"`
}

type FilesConfig struct {
	Root string `yaml:"root"`
}

type MathsConfig struct {
	Interpreter string        `yaml:"interpreter"`
	Timeout     time.Duration `yaml:"timeout"`
	// Blocklist replaces the built-in list of refused code fragments.
	Blocklist   []string      `yaml:"blocklist"`
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "json",
		ProjectID: "default",
		BaseURL:   "http://localhost:8080",
		Timeout:   30 * time.Second,
		HTTP:      HTTPConfig{Addr: ":8080"},
		Gateway:   GatewayConfig{TCPAddr: ":7070", WSAddr: ":7071", MaxSessions: 64},
		Database:  DatabaseConfig{Driver: "sqlite", DSN: "officemcp.db"},
		Redis:     RedisConfig{Prefix: "url:"},
		Maths:     MathsConfig{Interpreter: "python3", Timeout: 10 * time.Second},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when path
// is empty), a .env file in the working directory, and environment variables,
// in that order. Values from .env never replace variables already set.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv exports the variables in file without overriding the process
// environment. A missing file is not an error.
func LoadDotEnv(file string) error {
	err := godotenv.Load(file)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", file, err)
}

func applyEnv(cfg *Config) error {
	str := func(dst *string, keys ...string) {
		for _, key := range keys {
			if v := os.Getenv(key); v != "" {
				*dst = v
				return
			}
		}
	}

	str(&cfg.LogLevel, "OFFICEMCP_LOG_LEVEL")
	str(&cfg.LogFormat, "OFFICEMCP_LOG_FORMAT")
	str(&cfg.ProjectID, "OFFICEMCP_PROJECT_ID", "PROJECT_ID")
	str(&cfg.BaseURL, "OFFICEMCP_BASE_URL", "BASE_URL")
	str(&cfg.HTTP.Addr, "OFFICEMCP_HTTP_ADDR")
	str(&cfg.Gateway.TCPAddr, "OFFICEMCP_GATEWAY_TCP_ADDR")
	str(&cfg.Gateway.WSAddr, "OFFICEMCP_GATEWAY_WS_ADDR")
	str(&cfg.Database.Driver, "OFFICEMCP_DATABASE_DRIVER", "DATABASE_DRIVER")
	str(&cfg.Database.DSN, "OFFICEMCP_DATABASE_DSN", "DATABASE_DSN", "DATABASE_URL")
	str(&cfg.Redis.Addr, "OFFICEMCP_REDIS_ADDR", "REDIS_ADDR")
	str(&cfg.Redis.Password, "REDIS_PASSWORD")
	str(&cfg.Weather.APIKey, "OPENWEATHER_KEY")
	str(&cfg.Search.APIKey, "CUSTOM_SEARCH_API_KEY")
	str(&cfg.Search.EngineID, "CUSTOM_SEARCH_ID")
	str(&cfg.Slack.Token, "SLACK_BOT_TOKEN")
	str(&cfg.OpenAI.APIKey, "OPENAI_API_KEY")
	str(&cfg.OpenAI.ReasoningModel, "OPENAI_REASONING_MODEL")
	str(&cfg.Amazon.APIKey, "RAPIDAPI_KEY")
	str(&cfg.Odoo.URL, "ODOO_URL")
	str(&cfg.Odoo.APIURL, "ODOO_API_URL")
	str(&cfg.Odoo.DB, "ODOO_DB")
	str(&cfg.Odoo.Login, "ODOO_LOGIN", "ODOO_USERNAME")
	str(&cfg.Odoo.Password, "ODOO_PASSWORD")
	str(&cfg.Files.Root, "OFFICEMCP_FILES_ROOT")
	str(&cfg.Maths.Interpreter, "OFFICEMCP_PYTHON")

	if v := os.Getenv("OFFICEMCP_MATHS_BLOCKLIST"); v != "" {
		cfg.Maths.Blocklist = splitList(v)
	}
	if v := os.Getenv("OFFICEMCP_GATEWAY_ALLOW"); v != "" {
		cfg.Gateway.Allow = splitList(v)
	}
	if v := os.Getenv("OFFICEMCP_MAX_SESSIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("OFFICEMCP_MAX_SESSIONS: %w", err)
		}
		cfg.Gateway.MaxSessions = n
	}
	if v := os.Getenv("OFFICEMCP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("OFFICEMCP_TIMEOUT: %w", err)
		}
		cfg.Timeout = d
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Database.Driver) {
	case "", "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "json", "text":
	default:
		return fmt.Errorf("unsupported log format %q", c.LogFormat)
	}
	if c.Gateway.MaxSessions < 0 {
		return fmt.Errorf("gateway max sessions must not be negative")
	}
	if c.Timeout < 0 || c.Maths.Timeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

// DefaultConfigPath returns the default location for the CLI config file.
func DefaultConfigPath() string {
	if path := os.Getenv("OFFICEMCP_CONFIG"); path != "" {
		return path
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".officemcp", "config.yaml")
}
