package templating

import (
	"time"
)

// DefaultSystemPrompt is rendered when no prompt template file is configured
const DefaultSystemPrompt = "You are a helpful and concise voice assistant. " +
	"Provide clear, accurate, and natural-sounding responses. " +
	"Keep responses brief but informative, ideally under {{.MaxWords}} words."

// PromptData is the data available to system prompt templates
type PromptData struct {
	WakeWord string    // Wake word the user says before a query
	MaxWords int       // Word limit for spoken replies
	Time     string    // Formatted render time
	Now      time.Time // Render time
}

// FormattingOptions controls how prompt data is formatted
type FormattingOptions struct {
	TimeFormat string
}

// DefaultFormattingOptions returns sensible defaults for template formatting
func DefaultFormattingOptions() FormattingOptions {
	return FormattingOptions{
		TimeFormat: "Monday, January 2, 2006 at 15:04",
	}
}
