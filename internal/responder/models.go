package responder

import (
	"context"
)

// Config contains the reply generation settings
type Config struct {
	Model       string         // Chat model name
	Temperature float64        // Sampling temperature
	MaxTokens   int            // Bounded output length
	Prompt      PromptRenderer // Renders the system prompt for each query
}

// PromptRenderer renders the system prompt sent ahead of every query
type PromptRenderer interface {
	SystemPrompt() (string, error)
}

// StaticPrompt is a system prompt that never changes
type StaticPrompt string

// SystemPrompt returns p
func (p StaticPrompt) SystemPrompt() (string, error) {
	return string(p), nil
}

// QuerySource yields cleaned queries. Pop blocks until one is available or ctx is done.
type QuerySource interface {
	Pop(ctx context.Context) (string, error)
}

// Speaker turns text into audible speech
type Speaker interface {
	Speak(ctx context.Context, text string) error
}
