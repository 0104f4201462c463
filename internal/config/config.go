package config

import (
	"bytes"
	"fmt"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in a workspace.
const FileName = "smartstart.yml"

// Config models smartstart.yml.
type Config struct {
	Scheduling struct {
		AvgHoursPerDay float64 `yaml:"avg_hours_per_day" json:"avg_hours_per_day"`
	} `yaml:"scheduling" json:"scheduling"`
	Recommendations struct {
		Limit int `yaml:"limit" json:"limit"`
	} `yaml:"recommendations" json:"recommendations"`
	Server   ServerConfig    `yaml:"server" json:"server"`
	Logging  LoggingConfig   `yaml:"logging" json:"logging"`
	Webhooks []WebhookConfig `yaml:"webhooks,omitempty" json:"webhooks,omitempty"`
}

type ServerConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	BasePath string `yaml:"base_path" json:"base_path"`
	CORS     struct {
		AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`
	} `yaml:"cors" json:"cors"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Pretty bool   `yaml:"pretty" json:"pretty"`
}

// WebhookConfig posts matching events to URL. An empty Events list matches every type.
type WebhookConfig struct {
	URL            string   `yaml:"url" json:"url"`
	Events         []string `yaml:"events,omitempty" json:"events,omitempty"`
	Secret         string   `yaml:"secret,omitempty" json:"secret,omitempty"`
	TimeoutSeconds int      `yaml:"timeout_seconds,omitempty" json:"timeout_seconds,omitempty"`
	Enabled        *bool    `yaml:"enabled,omitempty" json:"enabled,omitempty"`
}

var logLevels = []string{"debug", "info", "warn", "error", "disabled"}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	h := c.Scheduling.AvgHoursPerDay
	if math.IsNaN(h) || math.IsInf(h, 0) || h <= 0 {
		return fmt.Errorf("config.scheduling.avg_hours_per_day must be positive")
	}
	if h > 24 {
		return fmt.Errorf("config.scheduling.avg_hours_per_day cannot exceed 24")
	}
	if c.Recommendations.Limit < 1 {
		return fmt.Errorf("config.recommendations.limit must be at least 1")
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	for _, o := range c.Server.CORS.AllowedOrigins {
		if o == "" {
			return fmt.Errorf("config.server.cors.allowed_origins contains an empty origin")
		}
	}
	for i, w := range c.Webhooks {
		u, err := url.Parse(strings.TrimSpace(w.URL))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("config.webhooks[%d].url must be an http(s) URL", i)
		}
		if w.TimeoutSeconds < 0 {
			return fmt.Errorf("config.webhooks[%d].timeout_seconds cannot be negative", i)
		}
	}
	if !knownLevel(c.Logging.Level) {
		return fmt.Errorf("config.logging.level must be one of %s", strings.Join(logLevels, ", "))
	}
	return nil
}

func knownLevel(level string) bool {
	for _, l := range logLevels {
		if l == level {
			return true
		}
	}
	return false
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, FileName)
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with smartstart config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional falls back to Default when the workspace has no config file.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Keys missing from data keep
// their default values.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `scheduling:
  # hours a student can realistically put in per day
  avg_hours_per_day: 2

recommendations:
  # how many stored recommendations the API and CLI return
  limit: 10

server:
  addr: 127.0.0.1:8080
  base_path: /v1
  cors:
    allowed_origins: ["*"]

logging:
  level: info
  pretty: true

# webhooks:
#   - url: https://example.com/hooks/smartstart
#     events: [sync.completed, link.requested, link.responded]
#     secret: change-me
#     timeout_seconds: 5
`
