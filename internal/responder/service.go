package responder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yegors/voice-assistant/internal/ai"
	"github.com/yegors/voice-assistant/pkg/logger"
)

// Service answers queries with a language model and speaks the reply
type Service struct {
	chat    ai.ChatProvider
	speaker Speaker
	config  Config
	logger  *logger.Logger
}

// NewService creates a new response service
func NewService(chat ai.ChatProvider, speaker Speaker, config Config, logger *logger.Logger) *Service {
	return &Service{
		chat:    chat,
		speaker: speaker,
		config:  config,
		logger:  logger.Named("responder"),
	}
}

// Generate asks the language model for a reply to query
func (s *Service) Generate(ctx context.Context, query string) (string, error) {
	start := time.Now()

	var messages []ai.ChatMessage
	if s.config.Prompt != nil {
		prompt, err := s.config.Prompt.SystemPrompt()
		if err != nil {
			return "", fmt.Errorf("failed to render system prompt: %w", err)
		}
		messages = append(messages, ai.ChatMessage{Role: ai.RoleSystem, Content: prompt})
	}
	messages = append(messages, ai.ChatMessage{Role: ai.RoleUser, Content: query})

	reply, err := s.chat.ChatCompletion(ctx, messages, ai.ChatConfig{
		Model:       s.config.Model,
		Temperature: s.config.Temperature,
		MaxTokens:   s.config.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate response: %w", err)
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", errors.New("empty response from language model")
	}

	s.logger.Debug("Response generated",
		logger.String("query", query),
		logger.Duration("elapsed", time.Since(start)))
	return reply, nil
}

// Respond generates and speaks a reply to query. When either step fails a
// fallback phrase is spoken instead. It returns the text that was spoken.
func (s *Service) Respond(ctx context.Context, query string) string {
	reply, err := s.Generate(ctx, query)
	if err == nil {
		s.logger.Info("Assistant", logger.String("reply", reply))
		if err = s.speaker.Speak(ctx, reply); err == nil {
			return reply
		}
	}

	if ctx.Err() != nil {
		return ""
	}

	s.logger.Error("Error processing response", logger.Error(err), logger.String("query", query))
	fallback := FallbackFor(err)
	if serr := s.speaker.Speak(ctx, fallback); serr != nil {
		s.logger.Error("Failed to speak fallback", logger.Error(serr))
	}
	return fallback
}

// Run pops queries from in until ctx is done. A failed query never stops the loop.
func (s *Service) Run(ctx context.Context, in QuerySource) error {
	s.logger.Info("Responder started", logger.String("model", s.config.Model))

	for {
		query, err := in.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				s.logger.Info("Responder stopped")
				return nil
			}
			return fmt.Errorf("failed to read query: %w", err)
		}

		s.Respond(ctx, query)
	}
}
