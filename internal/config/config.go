// Package config provides YAML-based configuration loading for deskbot.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Supported chat platforms.
const (
	PlatformBotFramework = "botframework"
	PlatformSlack        = "slack"
	PlatformDiscord      = "discord"
	PlatformConsole      = "console"
)

// Supported storage drivers.
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StorageMySQL    = "mysql"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

// Supported recognizer providers.
const (
	RecognizerKeyword = "keyword"
	RecognizerOpenAI  = "openai"
)

// Config is the top-level deskbot configuration, loaded from deskbot.yaml.
type Config struct {
	Platform     string             `yaml:"platform"`
	Server       ServerConfig       `yaml:"server"`
	BotFramework BotFrameworkConfig `yaml:"botframework"`
	Slack        SlackConfig        `yaml:"slack"`
	Discord      DiscordConfig      `yaml:"discord"`
	ServiceNow   ServiceNowConfig   `yaml:"servicenow"`
	Recognizer   RecognizerConfig   `yaml:"recognizer"`
	QnA          QnAConfig          `yaml:"qna"`
	Storage      StorageConfig      `yaml:"storage"`
	Identity     IdentityConfig     `yaml:"identity"`
	Branding     BrandingConfig     `yaml:"branding"`
}

// ServerConfig controls the HTTP listener that hosts the messaging endpoint.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// BotFrameworkConfig holds the connector credentials. AppID and AppPassword
// also drive the Teams token-exchange identity path.
type BotFrameworkConfig struct {
	AppID          string `yaml:"app_id"`
	AppPassword    string `yaml:"app_password"`
	OpenIDMetadata string `yaml:"openid_metadata"`
	TokenURL       string `yaml:"token_url"`
	Scope          string `yaml:"scope"`
	Issuer         string `yaml:"issuer"`
}

// SlackConfig holds Slack Socket Mode credentials.
type SlackConfig struct {
	AppToken  string `yaml:"app_token"`
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel"`
}

// DiscordConfig holds Discord Gateway credentials.
type DiscordConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel"`
}

// ServiceNowConfig describes the ticketing instance and its service account.
type ServiceNowConfig struct {
	InstanceURL       string `yaml:"instance_url"`
	APIPath           string `yaml:"api_path"`
	PortalPath        string `yaml:"portal_path"`
	Username          string `yaml:"username"`
	Password          string `yaml:"password"`
	KnowledgeBaseID   string `yaml:"knowledge_base_id"`
	RequestTimeoutSec int    `yaml:"request_timeout_sec"`
}

// RecognizerConfig selects the intent recognizer.
type RecognizerConfig struct {
	Provider  string       `yaml:"provider"`
	Threshold float64      `yaml:"threshold"`
	OpenAI    OpenAIConfig `yaml:"openai"`
}

// OpenAIConfig configures the LLM recognizer.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// QnAConfig configures the QnA Maker knowledge base. The QnA recognizer is
// enabled only when EndpointHost and KnowledgeBaseID are both set.
type QnAConfig struct {
	EndpointHost    string  `yaml:"endpoint_host"`
	KnowledgeBaseID string  `yaml:"knowledge_base_id"`
	AuthKey         string  `yaml:"auth_key"`
	Threshold       float64 `yaml:"threshold"`
}

// StorageConfig selects and configures the bot-state backend.
type StorageConfig struct {
	Driver        string      `yaml:"driver"`
	DSN           string      `yaml:"dsn"`
	Gzip          bool        `yaml:"gzip"`
	RetentionDays int         `yaml:"retention_days"`
	PurgeCron     string      `yaml:"purge_cron"`
	Redis         RedisConfig `yaml:"redis"`
}

// RedisConfig holds connection settings for the redis state backend.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// IdentityConfig bounds the credential-prompt loop.
type IdentityConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
}

// BrandingConfig customizes the bot's name and card imagery.
type BrandingConfig struct {
	Name     string `yaml:"name"`
	ImageURL string `yaml:"image_url"`
}

// Load reads a YAML config file from path and returns a validated Config.
// A .env file in the working directory, if present, is loaded into the
// process environment first so that ${VAR} references resolve.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse expands ${VAR} references and unmarshals YAML bytes into a
// validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Platform == "" {
		c.Platform = PlatformBotFramework
	}
	if c.Server.Port == 0 {
		c.Server.Port = 3978
	}
	bf := &c.BotFramework
	if bf.OpenIDMetadata == "" {
		bf.OpenIDMetadata = "https://login.botframework.com/v1/.well-known/openidconfiguration"
	}
	if bf.TokenURL == "" {
		bf.TokenURL = "https://login.microsoftonline.com/botframework.com/oauth2/v2.0/token"
	}
	if bf.Scope == "" {
		bf.Scope = "https://api.botframework.com/.default"
	}
	if bf.Issuer == "" {
		bf.Issuer = "https://api.botframework.com"
	}
	sn := &c.ServiceNow
	sn.InstanceURL = strings.TrimRight(sn.InstanceURL, "/")
	if sn.APIPath == "" {
		sn.APIPath = "/api/now/table"
	}
	if sn.PortalPath == "" {
		sn.PortalPath = "/sp"
	}
	if sn.RequestTimeoutSec == 0 {
		sn.RequestTimeoutSec = 30
	}
	if c.Recognizer.Provider == "" {
		c.Recognizer.Provider = RecognizerKeyword
	}
	if c.Recognizer.Threshold == 0 {
		c.Recognizer.Threshold = 0.5
	}
	if c.Recognizer.OpenAI.Model == "" {
		c.Recognizer.OpenAI.Model = "gpt-4o-mini"
	}
	if c.QnA.Threshold == 0 {
		c.QnA.Threshold = 0.3
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageMemory
	}
	if c.Storage.RetentionDays == 0 {
		c.Storage.RetentionDays = 30
	}
	if c.Storage.PurgeCron == "" {
		c.Storage.PurgeCron = "0 3 * * *"
	}
	if c.Storage.Redis.Address == "" {
		c.Storage.Redis.Address = "127.0.0.1:6379"
	}
	if c.Storage.Redis.Prefix == "" {
		c.Storage.Redis.Prefix = "deskbot"
	}
	if c.Identity.MaxAttempts == 0 {
		c.Identity.MaxAttempts = 3
	}
	if c.Branding.Name == "" {
		c.Branding.Name = "EcoBot"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Platform {
	case PlatformBotFramework, PlatformConsole:
	case PlatformSlack:
		if c.Slack.AppToken == "" {
			errs = append(errs, "slack.app_token is required")
		}
		if c.Slack.BotToken == "" {
			errs = append(errs, "slack.bot_token is required")
		}
	case PlatformDiscord:
		if c.Discord.BotToken == "" {
			errs = append(errs, "discord.bot_token is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("unsupported platform %q", c.Platform))
	}
	if c.ServiceNow.InstanceURL == "" {
		errs = append(errs, "servicenow.instance_url is required")
	}
	if c.ServiceNow.Username == "" {
		errs = append(errs, "servicenow.username is required")
	}
	if c.ServiceNow.Password == "" {
		errs = append(errs, "servicenow.password is required")
	}
	switch c.Recognizer.Provider {
	case RecognizerKeyword:
	case RecognizerOpenAI:
		if c.Recognizer.OpenAI.APIKey == "" {
			errs = append(errs, "recognizer.openai.api_key is required for the openai provider")
		}
	default:
		errs = append(errs, fmt.Sprintf("unsupported recognizer provider %q", c.Recognizer.Provider))
	}
	switch c.Storage.Driver {
	case StorageMemory, StorageRedis:
	case StorageSQLite, StorageMySQL, StoragePostgres:
		if c.Storage.DSN == "" {
			errs = append(errs, fmt.Sprintf("storage.dsn is required for the %s driver", c.Storage.Driver))
		}
	default:
		errs = append(errs, fmt.Sprintf("unsupported storage driver %q", c.Storage.Driver))
	}
	if c.Identity.MaxAttempts < 0 {
		errs = append(errs, "identity.max_attempts must be >= 0")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// TokenExchangeEnabled reports whether connector credentials are present,
// which enables the Teams token-exchange identity path.
func (c *Config) TokenExchangeEnabled() bool {
	return c.BotFramework.AppID != "" && c.BotFramework.AppPassword != ""
}

// QnAEnabled reports whether the QnA recognizer is configured.
func (c *Config) QnAEnabled() bool {
	return c.QnA.EndpointHost != "" && c.QnA.KnowledgeBaseID != ""
}
