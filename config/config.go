package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// DefaultPath is where the CLI looks for the config file.
const DefaultPath = "config/config.json"

// Config holds everything the agent needs to generate, publish and record status.
type Config struct {
	ServerAddr string        `json:"server_addr,omitempty"`
	LogLevel   string        `json:"log_level,omitempty"`
	CronSecret string        `json:"cron_secret,omitempty"`
	LLM        *LLMConfig    `json:"llm,omitempty"`
	Twitter    TwitterConfig `json:"twitter"`
	Status     StatusConfig  `json:"status"`
	Agent      AgentConfig   `json:"agent"`
}

// LLMConfig 生成模块的模型配置。
type LLMConfig struct {
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	APIKey   string `json:"api_key,omitempty"`
	BaseURL  string `json:"base_url,omitempty"`
}

// TwitterConfig configures the posting surface. A missing access token is not a
// load error: it surfaces as a configuration failure on the first publish.
type TwitterConfig struct {
	Provider        string `json:"provider,omitempty"` // "x" or "dryrun"
	AccessToken     string `json:"access_token,omitempty"`
	BaseURL         string `json:"base_url,omitempty"`
	MaxPostsPerHour int    `json:"max_posts_per_hour,omitempty"`
	TimeoutSeconds  int    `json:"timeout_seconds,omitempty"`
}

// StatusConfig selects where the last run outcome is kept.
type StatusConfig struct {
	Backend  string `json:"backend,omitempty"` // "memory", "bolt" or "redis"
	Path     string `json:"path,omitempty"`
	RedisURL string `json:"redis_url,omitempty"`
	RedisKey string `json:"redis_key,omitempty"`
}

// AgentConfig tunes the orchestration pipeline and the in-process schedule.
type AgentConfig struct {
	Schedule               string   `json:"schedule,omitempty"`
	Topics                 []string `json:"topics,omitempty"`
	GenerateTimeoutSeconds int      `json:"generate_timeout_seconds,omitempty"`
	PublishTimeoutSeconds  int      `json:"publish_timeout_seconds,omitempty"`
}

const (
	ProviderX      = "x"
	ProviderDryRun = "dryrun"

	BackendMemory = "memory"
	BackendBolt   = "bolt"
	BackendRedis  = "redis"
)

// LoadEnv loads .env files into the process environment when present.
func LoadEnv(logger *logrus.Logger) {
	files := []string{".env", ".env.dev"}
	loaded := make([]string, 0, len(files))
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Overload(file); err != nil {
			if logger != nil {
				logger.WithError(err).Warnf("Failed to load %s", file)
			}
			continue
		}
		loaded = append(loaded, file)
	}
	if logger == nil {
		return
	}
	if len(loaded) == 0 {
		logger.Debug("No local env files loaded; relying on process environment")
	} else {
		logger.Debugf("Loaded env files: %s", strings.Join(loaded, ", "))
	}
}

// LoadConfig reads JSON config from disk, then applies environment overrides and
// defaults. A missing file is not an error; the environment alone can drive the agent.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, err
		default:
			if err := json.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if c.LLM == nil {
		c.LLM = &LLMConfig{}
	}
	setString(&c.ServerAddr, "SERVER_ADDR")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.CronSecret, "CRON_SECRET")
	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.LLM.Model, "LLM_MODEL")
	setString(&c.LLM.APIKey, "OPENAI_API_KEY")
	setString(&c.LLM.BaseURL, "OPENAI_BASE_URL")
	setString(&c.Twitter.Provider, "X_PROVIDER")
	setString(&c.Twitter.AccessToken, "X_ACCESS_TOKEN")
	setString(&c.Twitter.BaseURL, "X_API_BASE_URL")
	setInt(&c.Twitter.MaxPostsPerHour, "X_MAX_POSTS_PER_HOUR")
	setString(&c.Status.Backend, "STATUS_BACKEND")
	setString(&c.Status.Path, "STATUS_PATH")
	setString(&c.Status.RedisURL, "REDIS_URL")
	setString(&c.Agent.Schedule, "AGENT_SCHEDULE")
	if topics := strings.TrimSpace(os.Getenv("AGENT_TOPICS")); topics != "" {
		c.Agent.Topics = splitList(topics)
	}
}

func (c *Config) applyDefaults() {
	if c.ServerAddr == "" {
		c.ServerAddr = ":8080"
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.Model == "" && c.LLM.Provider == "openai" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.Twitter.Provider == "" {
		c.Twitter.Provider = ProviderX
	}
	if c.Twitter.TimeoutSeconds <= 0 {
		c.Twitter.TimeoutSeconds = 30
	}
	if c.Status.Backend == "" {
		c.Status.Backend = BackendMemory
	}
	if c.Status.Backend == BackendBolt && c.Status.Path == "" {
		c.Status.Path = "data/status.bolt"
	}
	if c.Status.RedisKey == "" {
		c.Status.RedisKey = "auto_tweet_agent:status"
	}
	if c.Agent.GenerateTimeoutSeconds <= 0 {
		c.Agent.GenerateTimeoutSeconds = 60
	}
	if c.Agent.PublishTimeoutSeconds <= 0 {
		c.Agent.PublishTimeoutSeconds = 30
	}
}

// Validate checks enumerated settings. Credentials are deliberately not checked here.
func (c Config) Validate() error {
	switch c.Twitter.Provider {
	case ProviderX, ProviderDryRun:
	default:
		return fmt.Errorf("twitter provider %s not supported", c.Twitter.Provider)
	}
	switch c.Status.Backend {
	case BackendMemory, BackendBolt:
	case BackendRedis:
		if c.Status.RedisURL == "" {
			return errors.New("status backend redis requires status.redis_url or REDIS_URL")
		}
	default:
		return fmt.Errorf("status backend %s not supported", c.Status.Backend)
	}
	if c.Twitter.MaxPostsPerHour < 0 {
		return errors.New("twitter.max_posts_per_hour must not be negative")
	}
	return nil
}

func (a AgentConfig) GenerateTimeout() time.Duration {
	return time.Duration(a.GenerateTimeoutSeconds) * time.Second
}

func (a AgentConfig) PublishTimeout() time.Duration {
	return time.Duration(a.PublishTimeoutSeconds) * time.Second
}

func (t TwitterConfig) Timeout() time.Duration {
	return time.Duration(t.TimeoutSeconds) * time.Second
}

func setString(dst *string, key string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		*dst = value
	}
}

func setInt(dst *int, key string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			*dst = parsed
		}
	}
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
