// Package config provides the agent configuration: the tool server,
// the LLM credentials and the memory store, loaded from a YAML/JSON file,
// an optional .env file and the process environment.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpagent/pkg/llmfactory"
	"github.com/effective-security/x/configloader"
	"github.com/effective-security/x/values"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	// DefaultMCPBaseURL is the tool server address used when none is configured
	DefaultMCPBaseURL = "http://127.0.0.1:9000/mcp/"
	// DefaultTransport is the tool server transport used when none is configured
	DefaultTransport = TransportHTTP
	// DefaultModel is the model used when none is configured
	DefaultModel = "gpt-4o"
	// DefaultMemoryUser is the memory user id used when none is configured
	DefaultMemoryUser = "mofa-memory-user"
	// DefaultMemoryLimit is the number of memories retrieved per query
	DefaultMemoryLimit = 5
	// DefaultRedisPrefix is the key prefix of the Redis memory store
	DefaultRedisPrefix = "mcpagent"
)

// Tool server transports
const (
	TransportHTTP           = "http"
	TransportStreamableHTTP = "streamable-http"
	TransportSSE            = "sse"
)

// Memory backends
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Config of the agent
type Config struct {
	// LogLevel specifies the global log level: TRACE|DEBUG|INFO|NOTICE|WARNING|ERROR
	LogLevel string       `json:"log_level,omitempty" yaml:"log_level,omitempty"`
	MCP      MCPConfig    `json:"mcp" yaml:"mcp"`
	LLM      LLMConfig    `json:"llm" yaml:"llm"`
	Agent    AgentConfig  `json:"agent" yaml:"agent"`
	Memory   MemoryConfig `json:"memory" yaml:"memory"`
}

// MCPConfig specifies the tool server
type MCPConfig struct {
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" validate:"required,url"`
	// Transport specifies the tool server protocol:
	// http for the REST dialect, streamable-http or sse for MCP
	Transport string            `json:"transport,omitempty" yaml:"transport,omitempty" validate:"oneof=http streamable-http sse"`
	Headers   map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// LLMConfig specifies the model provider
type LLMConfig struct {
	// APIType specifies the provider: OPENAI|ANTHROPIC|GOOGLEAI|BEDROCK
	APIType     string  `json:"api_type,omitempty" yaml:"api_type,omitempty"`
	APIKey      string  `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL     string  `json:"base_url,omitempty" yaml:"base_url,omitempty" validate:"omitempty,url"`
	Region      string  `json:"region,omitempty" yaml:"region,omitempty"`
	Model       string  `json:"model,omitempty" yaml:"model,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty" validate:"gte=0"`
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty" validate:"gte=0,lte=2"`
	// ProvidersFile specifies an optional llmfactory config,
	// when set the agents take their models from it
	ProvidersFile string `json:"providers_file,omitempty" yaml:"providers_file,omitempty"`
}

// AgentConfig specifies the tool agent
type AgentConfig struct {
	Name         string `json:"name,omitempty" yaml:"name,omitempty"`
	SystemPrompt string `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
}

// MemoryConfig specifies the memory agent and its store
type MemoryConfig struct {
	Backend      string `json:"backend,omitempty" yaml:"backend,omitempty" validate:"oneof=memory redis sqlite"`
	UserID       string `json:"user_id,omitempty" yaml:"user_id,omitempty" validate:"required"`
	Limit        int    `json:"limit,omitempty" yaml:"limit,omitempty" validate:"gte=1"`
	SystemPrompt string `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
	RedisURL     string `json:"redis_url,omitempty" yaml:"redis_url,omitempty" validate:"required_if=Backend redis"`
	RedisPrefix  string `json:"redis_prefix,omitempty" yaml:"redis_prefix,omitempty"`
	DBPath       string `json:"db_path,omitempty" yaml:"db_path,omitempty" validate:"required_if=Backend sqlite"`
}

// LoadDotEnv loads the .env files into the process environment,
// missing files are skipped and existing variables are not overridden.
func LoadDotEnv(files ...string) error {
	for _, file := range files {
		if _, err := os.Stat(file); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return errors.Wrapf(err, "failed to load %s", file)
		}
	}
	return nil
}

// Load returns the configuration from the file with environment overrides,
// defaults applied and validated. An empty file name uses the environment only.
func Load(file string) (*Config, error) {
	cfg := new(Config)
	if file != "" {
		if err := configloader.UnmarshalAndExpand(file, cfg); err != nil {
			return nil, errors.WithMessagef(err, "failed to load config %s", file)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides the values set in the environment
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	set := func(key string, target *string) {
		if val, ok := lookup(key); ok && val != "" {
			*target = val
		}
	}

	set("MCP_BASE_URL", &c.MCP.BaseURL)
	set("MCP_TRANSPORT", &c.MCP.Transport)
	set("LLM_API_TYPE", &c.LLM.APIType)
	set("LLM_API_KEY", &c.LLM.APIKey)
	set("LLM_BASE_URL", &c.LLM.BaseURL)
	set("LLM_MODEL_NAME", &c.LLM.Model)
	set("SYSTEM_PROMPT", &c.Memory.SystemPrompt)
	set("MEMORY_ID", &c.Memory.UserID)
	set("REDIS_URL", &c.Memory.RedisURL)
	set("MEMORY_DB", &c.Memory.DBPath)

	if val, ok := lookup("MEMORY_LIMIT"); ok && val != "" {
		limit, err := strconv.Atoi(val)
		if err != nil {
			return errors.Wrap(err, "invalid MEMORY_LIMIT")
		}
		c.Memory.Limit = limit
	}
	return nil
}

// SetDefaults fills the values that are not configured
func (c *Config) SetDefaults() {
	c.MCP.BaseURL = values.StringsCoalesce(c.MCP.BaseURL, DefaultMCPBaseURL)
	c.MCP.Transport = strings.ToLower(values.StringsCoalesce(c.MCP.Transport, DefaultTransport))
	c.LLM.APIType = strings.ToUpper(c.LLM.APIType)
	c.LLM.Model = values.StringsCoalesce(c.LLM.Model, DefaultModel)
	c.Memory.UserID = values.StringsCoalesce(c.Memory.UserID, DefaultMemoryUser)
	if c.Memory.Limit == 0 {
		c.Memory.Limit = DefaultMemoryLimit
	}
	c.Memory.RedisPrefix = values.StringsCoalesce(c.Memory.RedisPrefix, DefaultRedisPrefix)

	if c.Memory.Backend == "" {
		switch {
		case c.Memory.RedisURL != "":
			c.Memory.Backend = BackendRedis
		case c.Memory.DBPath != "":
			c.Memory.Backend = BackendSQLite
		default:
			c.Memory.Backend = BackendMemory
		}
	}
	c.Memory.Backend = strings.ToLower(c.Memory.Backend)
}

// Validate returns an error if the configuration is invalid
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.WithMessage(err, "invalid configuration")
	}
	return nil
}

// ProviderConfig returns the llmfactory provider for the LLM section
func (c *Config) ProviderConfig() *llmfactory.ProviderConfig {
	return &llmfactory.ProviderConfig{
		Name:         "default",
		APIType:      c.LLM.APIType,
		Token:        c.LLM.APIKey,
		BaseURL:      c.LLM.BaseURL,
		Region:       c.LLM.Region,
		DefaultModel: c.LLM.Model,
	}
}
