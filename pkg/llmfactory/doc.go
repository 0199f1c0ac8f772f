// Package llmfactory creates llms.Model instances from provider configuration
// (OpenAI or a compatible gateway, Anthropic, Gemini, Bedrock) and selects a model
// per agent by name, provider type or the configured default.
package llmfactory
