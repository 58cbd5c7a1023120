package guidance

import "context"

// Provider produces a structured answer for a user question. Implementations
// are selected at startup: the live model client when an API key is
// configured, the canned mock otherwise. Tests inject failing variants.
type Provider interface {
	Guidance(ctx context.Context, question string) (*Response, error)
}
