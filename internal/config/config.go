package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"caseline/internal/workflow"
)

// Config models caseline.yml. The transition table itself is code, not
// config; changing it is a deployment. Config covers practice identity,
// auth, reporting buckets and the audit webhook feed.
type Config struct {
	Practice struct {
		ID   string `yaml:"id"`
		Name string `yaml:"name"`
	} `yaml:"practice"`
	Auth struct {
		JWTSecret              string `yaml:"jwt_secret"`
		AllowLegacyActorHeader bool   `yaml:"allow_legacy_actor_header"`
		DevLogin               bool   `yaml:"dev_login"`
	} `yaml:"auth"`
	Reporting struct {
		// Buckets group statuses for the status-count report, e.g.
		// open: [pending_intake, pending_approval, in_design, ...].
		Buckets map[string][]string `yaml:"buckets"`
	} `yaml:"reporting"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

type WebhookConfig struct {
	URL            string   `yaml:"url"`
	Secret         string   `yaml:"secret"`
	Statuses       []string `yaml:"statuses"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	Enabled        *bool    `yaml:"enabled"`
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Practice.ID == "" {
		return fmt.Errorf("config.practice.id is required")
	}
	for bucket, statuses := range c.Reporting.Buckets {
		if bucket == "" {
			return fmt.Errorf("config.reporting.buckets contains empty bucket name")
		}
		if len(statuses) == 0 {
			return fmt.Errorf("bucket %s has no statuses", bucket)
		}
		for _, s := range statuses {
			if _, err := workflow.ParseStatus(s); err != nil {
				return fmt.Errorf("bucket %s: %w", bucket, err)
			}
		}
	}
	for i, hook := range c.Webhooks {
		if hook.URL == "" {
			return fmt.Errorf("webhook %d has empty url", i)
		}
		for _, s := range hook.Statuses {
			if _, err := workflow.ParseStatus(s); err != nil {
				return fmt.Errorf("webhook %d: %w", i, err)
			}
		}
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "caseline.yml")
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; generate with cl config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the default config if the file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default("default-practice"), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the default Config struct for a practice.
func Default(practiceID string) *Config {
	var cfg Config
	_ = yaml.Unmarshal([]byte(fmt.Sprintf(defaultTemplate, practiceID)), &cfg)
	cfg.Practice.ID = practiceID
	return &cfg
}

// GenerateDefault returns default config YAML.
func GenerateDefault(practiceID string) string {
	return fmt.Sprintf(defaultTemplate, practiceID)
}

const defaultTemplate = `practice:
  id: %s
  name: ""

auth:
  jwt_secret: ""
  allow_legacy_actor_header: true
  dev_login: false

reporting:
  buckets:
    intake: [pending_intake, pending_approval]
    production: [in_design, pending_review, review_rejected]
    sign_off: [pending_client_review, client_rejected]
    closed: [approved, cancelled]
    legacy: [opened, assigned]

webhooks: []
`
