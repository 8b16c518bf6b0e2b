package llm

import "context"

// Mock echoes the prompt; used in tests and when no provider is configured.
type Mock struct{}

func (Mock) Generate(_ context.Context, prompt string) (string, error) {
	return "This is a test answer for: " + prompt, nil
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
