package ai

import "context"

// Client sends a composed prompt to the hosted model and returns the reply text.
type Client interface {
	Analyze(ctx context.Context, prompt string) (string, error)
	Model() string
}
