package templating

import (
	"time"

	"github.com/yegors/voice-assistant/pkg/logger"
)

// Service renders the assistant's system prompt
type Service struct {
	engine       *Engine
	templatePath string
	wakeWord     string
	maxWords     int
	opts         FormattingOptions
	logger       *logger.Logger
}

// NewService creates a new templating service. An empty templatePath selects the
// built-in prompt.
func NewService(templatePath, wakeWord string, maxWords int, logger *logger.Logger) *Service {
	return &Service{
		engine:       NewEngine(logger),
		templatePath: templatePath,
		wakeWord:     wakeWord,
		maxWords:     maxWords,
		opts:         DefaultFormattingOptions(),
		logger:       logger.Named("templating-service"),
	}
}

// SystemPrompt renders the prompt with the current time. The template is parsed
// once and reused.
func (s *Service) SystemPrompt() (string, error) {
	now := time.Now()
	return s.engine.RenderTemplate(s.templatePath, PromptData{
		WakeWord: s.wakeWord,
		MaxWords: s.maxWords,
		Time:     now.Format(s.opts.TimeFormat),
		Now:      now,
	})
}
