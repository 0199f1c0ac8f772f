package openai

import (
	"net/http"
)

const (
	// DefaultBaseURL is the OpenAI API endpoint.
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultChatModel is used when no model is configured.
	DefaultChatModel = "gpt-4o"
	// DefaultMaxRetries is the number of retries on transient API errors.
	DefaultMaxRetries = 2
)

type options struct {
	token        string
	model        string
	baseURL      string
	organization string
	httpClient   *http.Client
	maxRetries   int
	headers      map[string]string
}

// Option is a functional option for the OpenAI client.
type Option func(*options)

// WithToken passes the OpenAI API token to the client.
func WithToken(token string) Option {
	return func(opts *options) {
		opts.token = token
	}
}

// WithModel passes the OpenAI model to the client.
// If not set, DefaultChatModel is used.
func WithModel(model string) Option {
	return func(opts *options) {
		opts.model = model
	}
}

// WithBaseURL passes the base url to the client, this allows to use any
// OpenAI compatible gateway. If not set, DefaultBaseURL is used.
func WithBaseURL(baseURL string) Option {
	return func(opts *options) {
		opts.baseURL = baseURL
	}
}

// WithOrganization passes the OpenAI organization to the client.
func WithOrganization(organization string) Option {
	return func(opts *options) {
		opts.organization = organization
	}
}

// WithHTTPClient allows setting a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(opts *options) {
		opts.httpClient = client
	}
}

// WithMaxRetries sets the number of retries on transient API errors.
func WithMaxRetries(n int) Option {
	return func(opts *options) {
		opts.maxRetries = n
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(opts *options) {
		if opts.headers == nil {
			opts.headers = map[string]string{}
		}
		opts.headers[key] = value
	}
}
