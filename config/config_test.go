package config_test

import (
	"os"
	"testing"

	"github.com/effective-security/mcpagent/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Load(t *testing.T) {
	t.Setenv("MCP_TOKEN", "mcp-token")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("LLM_MODEL_NAME", "")

	cfg, err := config.Load("testdata/agent.yaml")
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, "http://127.0.0.1:9100/mcp/", cfg.MCP.BaseURL)
	assert.Equal(t, config.TransportStreamableHTTP, cfg.MCP.Transport)
	assert.Equal(t, "Bearer mcp-token", cfg.MCP.Headers["Authorization"])
	assert.Equal(t, "ANTHROPIC", cfg.LLM.APIType)
	assert.Equal(t, "sk-ant", cfg.LLM.APIKey)
	assert.Equal(t, "claude-sonnet-4-5", cfg.LLM.Model)
	assert.Equal(t, 2048, cfg.LLM.MaxTokens)
	assert.Equal(t, "tool-agent", cfg.Agent.Name)
	assert.Equal(t, config.BackendSQLite, cfg.Memory.Backend)
	assert.Equal(t, 3, cfg.Memory.Limit)
	assert.Equal(t, config.DefaultMemoryUser, cfg.Memory.UserID)

	pc := cfg.ProviderConfig()
	assert.Equal(t, "ANTHROPIC", pc.APIType)
	assert.Equal(t, "sk-ant", pc.Token)
	assert.Equal(t, "claude-sonnet-4-5", pc.DefaultModel)

	_, err = config.Load("testdata/missing.yaml")
	require.Error(t, err)
}

func Test_LoadEnvOverrides(t *testing.T) {
	t.Setenv("MCP_BASE_URL", "http://tools.local:8000")
	t.Setenv("LLM_API_KEY", "sk-test")
	t.Setenv("LLM_MODEL_NAME", "deepseek-chat")
	t.Setenv("LLM_BASE_URL", "http://gateway.local/v1")
	t.Setenv("MEMORY_LIMIT", "7")
	t.Setenv("MEMORY_ID", "alice")
	t.Setenv("REDIS_URL", "redis://127.0.0.1:6379/0")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://tools.local:8000", cfg.MCP.BaseURL)
	assert.Equal(t, config.TransportHTTP, cfg.MCP.Transport)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "deepseek-chat", cfg.LLM.Model)
	assert.Equal(t, "http://gateway.local/v1", cfg.LLM.BaseURL)
	assert.Equal(t, 7, cfg.Memory.Limit)
	assert.Equal(t, "alice", cfg.Memory.UserID)
	assert.Equal(t, config.BackendRedis, cfg.Memory.Backend)
	assert.Equal(t, config.DefaultRedisPrefix, cfg.Memory.RedisPrefix)

	t.Setenv("MEMORY_LIMIT", "many")
	_, err = config.Load("")
	assert.EqualError(t, err, `invalid MEMORY_LIMIT: strconv.Atoi: parsing "many": invalid syntax`)
}

func Test_Defaults(t *testing.T) {
	cfg := new(config.Config)
	require.NoError(t, cfg.ApplyEnv(func(string) (string, bool) { return "", false }))
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, config.DefaultMCPBaseURL, cfg.MCP.BaseURL)
	assert.Equal(t, config.TransportHTTP, cfg.MCP.Transport)
	assert.Equal(t, config.DefaultModel, cfg.LLM.Model)
	assert.Equal(t, config.DefaultMemoryUser, cfg.Memory.UserID)
	assert.Equal(t, config.DefaultMemoryLimit, cfg.Memory.Limit)
	assert.Equal(t, config.BackendMemory, cfg.Memory.Backend)
}

func Test_Validate(t *testing.T) {
	tcases := []struct {
		name   string
		update func(c *config.Config)
	}{
		{"transport", func(c *config.Config) { c.MCP.Transport = "grpc" }},
		{"base_url", func(c *config.Config) { c.MCP.BaseURL = "not a url" }},
		{"backend", func(c *config.Config) { c.Memory.Backend = "mongo" }},
		{"redis_url", func(c *config.Config) { c.Memory.Backend = config.BackendRedis }},
		{"db_path", func(c *config.Config) { c.Memory.Backend = config.BackendSQLite }},
		{"limit", func(c *config.Config) { c.Memory.Limit = -1 }},
		{"temperature", func(c *config.Config) { c.LLM.Temperature = 3 }},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := new(config.Config)
			cfg.SetDefaults()
			tc.update(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")
		})
	}
}

func Test_LoadDotEnv(t *testing.T) {
	os.Unsetenv("MCPAGENT_DOTENV_TEST")
	t.Cleanup(func() { os.Unsetenv("MCPAGENT_DOTENV_TEST") })

	require.NoError(t, config.LoadDotEnv("testdata/missing.env", "testdata/test.env"))
	assert.Equal(t, "from-dotenv", os.Getenv("MCPAGENT_DOTENV_TEST"))
}
