package domain

import "context"

// GenerateRequest is one prompt pair sent to a language model.
type GenerateRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
}

// Generator produces free-form text from a prompt pair. The returned text is untrusted.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}
