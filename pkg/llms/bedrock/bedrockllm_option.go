package bedrock

// Option is an option for the Bedrock LLM.
type Option func(*options)

type options struct {
	modelID   string
	region    string
	client    ConverseAPI
	maxTokens int
}

// WithModel allows setting a custom model ID, for example
// "anthropic.claude-3-5-sonnet-20241022-v2:0" or an inference profile.
func WithModel(modelID string) Option {
	return func(o *options) {
		o.modelID = modelID
	}
}

// WithRegion sets the AWS region used when the client is created from the
// default AWS configuration.
func WithRegion(region string) Option {
	return func(o *options) {
		o.region = region
	}
}

// WithClient allows setting a custom Converse client,
// for example a *bedrockruntime.Client with custom configuration.
func WithClient(client ConverseAPI) Option {
	return func(o *options) {
		o.client = client
	}
}

// WithMaxTokens sets the default maximum number of tokens to generate.
func WithMaxTokens(n int) Option {
	return func(o *options) {
		o.maxTokens = n
	}
}
