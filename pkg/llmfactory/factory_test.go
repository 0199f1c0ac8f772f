package llmfactory_test

import (
	"context"
	"testing"

	"github.com/effective-security/mcpagent/pkg/llmfactory"
	"github.com/effective-security/mcpagent/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setenv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "fakekey")
	t.Setenv("LLM_API_KEY", "fakekey")
	t.Setenv("ANTHROPIC_API_KEY", "fakekey")
	t.Setenv("GOOGLEAI_TOKEN", "fakekey")
}

func fakeFactory(t *testing.T) {
	llmfactory.NewLLM = func(cfg *llmfactory.ProviderConfig, preferredModels ...string) (llms.Model, error) {
		return &fakeLLM{provider: cfg.Name, model: cfg.FindModel(preferredModels...)}, nil
	}
	t.Cleanup(func() {
		llmfactory.NewLLM = llmfactory.CreateLLM
	})
}

func Test_Factory(t *testing.T) {
	setenv(t)
	fakeFactory(t)

	cfg, err := llmfactory.LoadConfig("testdata/llm.yaml")
	require.NoError(t, err)
	require.Len(t, cfg.Providers, 5)
	assert.Equal(t, "fakekey", cfg.Providers[0].Token)
	require.NotNil(t, cfg.Providers[1].MaxRetries)
	assert.Equal(t, 0, *cfg.Providers[1].MaxRetries)

	f := llmfactory.New(cfg)

	check := func(model llms.Model, err error, provider, name string) {
		t.Helper()
		require.NoError(t, err)
		require.NotNil(t, model)
		fm := model.(*fakeLLM)
		assert.Equal(t, provider, fm.provider)
		assert.Equal(t, name, fm.model)
	}

	model, err := f.DefaultModel()
	check(model, err, "openai", "gpt-4o")

	model2, err := f.DefaultModel()
	require.NoError(t, err)
	assert.Same(t, model, model2)

	model, err = f.ModelByName("gpt-4o-mini")
	check(model, err, "openai", "gpt-4o-mini")

	model, err = f.ModelByName("unknown", "deepseek-chat")
	check(model, err, "gateway", "deepseek-chat")

	model, err = f.ModelByName("claude-sonnet-4-5")
	check(model, err, "anthropic", "claude-sonnet-4-5")

	model, err = f.ModelByName("non-existent-model")
	check(model, err, "openai", "gpt-4o")

	model, err = f.ModelByName()
	check(model, err, "openai", "gpt-4o")

	model, err = f.ModelByType("OPENAI")
	check(model, err, "openai", "gpt-4o")

	model, err = f.ModelByType("ANTHROPIC")
	check(model, err, "anthropic", "claude-sonnet-4-5")

	model, err = f.ModelByType("googleai")
	check(model, err, "gemini", "gemini-2.5-flash")

	model, err = f.ModelByType("BEDROCK")
	check(model, err, "bedrock", "anthropic.claude-3-5-sonnet-20240620-v1:0")

	_, err = f.ModelByType("UNSUPPORTED")
	assert.EqualError(t, err, "provider not found for type: UNSUPPORTED")

	model, err = f.AgentModel("tool-agent")
	check(model, err, "gateway", "deepseek-chat")

	model, err = f.AgentModel("memory-agent", "claude-sonnet-4-5")
	check(model, err, "openai", "gpt-4o-mini")

	delete(cfg.AgentModels, "default")
	model, err = f.AgentModel("memory-agent", "claude-sonnet-4-5")
	check(model, err, "anthropic", "claude-sonnet-4-5")

	emptyFactory := llmfactory.New(&llmfactory.Config{})
	_, err = emptyFactory.DefaultModel()
	assert.EqualError(t, err, "no providers configured")
	_, err = emptyFactory.ModelByName("gpt-4o")
	assert.EqualError(t, err, "no providers configured")

	invalidFactory := llmfactory.New(&llmfactory.Config{
		DefaultProvider: "non-existent",
		Providers:       cfg.Providers,
	})
	model, err = invalidFactory.DefaultModel()
	check(model, err, "openai", "gpt-4o")
}

func Test_Load(t *testing.T) {
	setenv(t)

	f, err := llmfactory.Load("testdata/llm.yaml")
	require.NoError(t, err)
	require.NotNil(t, f)

	_, err = llmfactory.Load("testdata/non-existent.yaml")
	require.Error(t, err)

	cfg, err := llmfactory.LoadConfig("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Providers)
}

func Test_CreateLLM(t *testing.T) {
	tcases := []struct {
		cfg      llmfactory.ProviderConfig
		provider llms.ProviderType
		model    string
	}{
		{
			cfg:      llmfactory.ProviderConfig{APIType: "OPEN_AI", Token: "sk", DefaultModel: "gpt-4o"},
			provider: llms.ProviderOpenAI,
			model:    "gpt-4o",
		},
		{
			cfg:      llmfactory.ProviderConfig{Token: "sk", BaseURL: "http://127.0.0.1:8080/v1", OrgID: "org"},
			provider: llms.ProviderOpenAI,
			model:    "gpt-4o",
		},
		{
			cfg:      llmfactory.ProviderConfig{APIType: "anthropic", Token: "sk", DefaultModel: "claude-sonnet-4-5"},
			provider: llms.ProviderAnthropic,
			model:    "claude-sonnet-4-5",
		},
		{
			cfg:      llmfactory.ProviderConfig{APIType: "GOOGLEAI", Token: "key", DefaultModel: "gemini-2.5-pro"},
			provider: llms.ProviderGoogleAI,
			model:    "gemini-2.5-pro",
		},
		{
			cfg:      llmfactory.ProviderConfig{APIType: "BEDROCK", Region: "us-east-1", DefaultModel: "amazon.nova-pro-v1:0"},
			provider: llms.ProviderBedrock,
			model:    "amazon.nova-pro-v1:0",
		},
	}
	for _, tc := range tcases {
		t.Run(string(tc.provider), func(t *testing.T) {
			model, err := llmfactory.CreateLLM(&tc.cfg)
			require.NoError(t, err)
			assert.Equal(t, tc.provider, model.GetProviderType())
			assert.Equal(t, tc.model, model.GetName())
		})
	}

	_, err := llmfactory.CreateLLM(&llmfactory.ProviderConfig{APIType: "PERPLEXITY"})
	assert.EqualError(t, err, "unsupported provider type: PERPLEXITY")

	_, err = llmfactory.CreateLLM(&llmfactory.ProviderConfig{APIType: "OPENAI"})
	require.Error(t, err)
}

func Test_FindModel(t *testing.T) {
	cfg := &llmfactory.ProviderConfig{DefaultModel: "a", AvailableModels: []string{"b", "c"}}
	assert.Equal(t, "c", cfg.FindModel("x", "c"))
	assert.Equal(t, "a", cfg.FindModel("x"))
	assert.Equal(t, "a", cfg.FindModel())
	assert.True(t, cfg.Serves("a"))
	assert.True(t, cfg.Serves("b"))
	assert.False(t, cfg.Serves(""))
	assert.False(t, cfg.Serves("x"))
}

type fakeLLM struct {
	provider string
	model    string
}

func (f *fakeLLM) GetName() string {
	return f.model
}

func (f *fakeLLM) GetProviderType() llms.ProviderType {
	return llms.ProviderType(f.provider)
}

func (f *fakeLLM) GenerateContent(_ context.Context, _ []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "ok"}}}, nil
}
