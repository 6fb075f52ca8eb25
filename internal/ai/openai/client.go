package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/yegors/voice-assistant/internal/ai"
	"github.com/yegors/voice-assistant/internal/audio"
	"github.com/yegors/voice-assistant/pkg/logger"
)

// DefaultBaseURL is used when no base URL is configured
const DefaultBaseURL = "https://api.openai.com"

// Client handles communication with OpenAI's APIs. It serves chat completions,
// Whisper transcription and text-to-speech.
type Client struct {
	api     *goopenai.Client
	logger  *logger.Logger
	baseURL string // Stored without trailing slash and without /v1
}

// NewClient creates a new OpenAI client. An empty baseURL selects the public endpoint.
func NewClient(apiKey string, logger *logger.Logger, baseURL string) *Client {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	base = strings.TrimSuffix(base, "/v1")

	cfg := goopenai.DefaultConfig(apiKey)
	cfg.BaseURL = base + "/v1"

	return &Client{
		api:     goopenai.NewClientWithConfig(cfg),
		logger:  logger.Named("openai"),
		baseURL: base,
	}
}

// BaseURL returns the endpoint root the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// -- ChatProvider Implementation --

func (c *Client) ChatCompletion(ctx context.Context, messages []ai.ChatMessage, config ai.ChatConfig) (string, error) {
	reqMessages := make([]goopenai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		reqMessages[i] = goopenai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       config.Model,
		Messages:    reqMessages,
		MaxTokens:   config.MaxTokens,
		Temperature: float32(config.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in response")
	}

	c.logger.Debug("Chat completion",
		logger.String("model", resp.Model),
		logger.Int("total_tokens", resp.Usage.TotalTokens))

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// -- TranscriptionProvider Implementation --

// Transcribe uploads the utterance as a 16-bit WAV file to the Whisper endpoint
func (c *Client) Transcribe(ctx context.Context, samples []float32, config ai.TranscriptionConfig) (string, error) {
	if len(samples) == 0 {
		return "", nil
	}

	wav, err := audio.EncodeSegmentWAV(audio.Segment{Samples: samples, SampleRate: config.SampleRate})
	if err != nil {
		return "", fmt.Errorf("failed to encode utterance: %w", err)
	}

	resp, err := c.api.CreateTranscription(ctx, goopenai.AudioRequest{
		Model:    config.Model,
		FilePath: "utterance.wav",
		Reader:   bytes.NewReader(wav),
		Language: config.Language,
		Prompt:   config.Prompt,
		Format:   goopenai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}

	return resp.Text, nil
}

// -- SpeechProvider Implementation --

// Synthesize returns the encoded speech stream for text
func (c *Client) Synthesize(ctx context.Context, text string, config ai.SpeechConfig) (io.ReadCloser, error) {
	format := config.Format
	if format == "" {
		format = string(goopenai.SpeechResponseFormatMp3)
	}

	resp, err := c.api.CreateSpeech(ctx, goopenai.CreateSpeechRequest{
		Model:          goopenai.SpeechModel(config.Model),
		Input:          text,
		Voice:          goopenai.SpeechVoice(config.Voice),
		ResponseFormat: goopenai.SpeechResponseFormat(format),
	})
	if err != nil {
		return nil, fmt.Errorf("speech synthesis failed: %w", err)
	}

	return resp.ReadCloser, nil
}
