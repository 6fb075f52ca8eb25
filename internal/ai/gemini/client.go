package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yegors/voice-assistant/internal/ai"
	"github.com/yegors/voice-assistant/pkg/logger"
	"google.golang.org/genai"
)

// Client represents a Google Gemini API client used for chat completions
type Client struct {
	api    *genai.Client
	logger *logger.Logger
}

// NewClient creates a new Gemini Client. baseURL overrides the API host and is
// normally empty.
func NewClient(ctx context.Context, apiKey string, logger *logger.Logger, baseURL string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: strings.TrimRight(baseURL, "/") + "/"}
	}

	api, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Client{
		api:    api,
		logger: logger.Named("gemini"),
	}, nil
}

// -- ChatProvider Implementation --

func (c *Client) ChatCompletion(ctx context.Context, messages []ai.ChatMessage, config ai.ChatConfig) (string, error) {
	var contents []*genai.Content
	var systemInstruction *genai.Content

	for _, msg := range messages {
		switch msg.Role {
		case ai.RoleSystem:
			systemInstruction = genai.NewContentFromText(msg.Content, genai.RoleUser)
		case ai.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	genConfig := &genai.GenerateContentConfig{
		SystemInstruction: systemInstruction,
		Temperature:       genai.Ptr(float32(config.Temperature)),
		MaxOutputTokens:   int32(config.MaxTokens),
	}

	resp, err := c.api.Models.GenerateContent(ctx, config.Model, contents, genConfig)
	if err != nil {
		return "", fmt.Errorf("gemini chat failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("no content in gemini response")
	}

	c.logger.Debug("Chat completion", logger.String("model", config.Model))
	return text, nil
}
