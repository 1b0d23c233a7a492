package llm

import "context"

// unconfiguredProvider stands in for a slot whose API key is missing. It
// fails every call so the chain moves on to the next provider.
type unconfiguredProvider struct {
	name string
}

func (u unconfiguredProvider) Generate(context.Context, Request) (*Response, error) {
	return nil, &ConfigMissingError{Provider: u.name, EnvVar: apiKeyEnv(u.name)}
}

func (u unconfiguredProvider) Name() string {
	return u.name
}

func (u unconfiguredProvider) ModelID() string {
	return ""
}
