package responder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yegors/voice-assistant/internal/ai"
	"github.com/yegors/voice-assistant/pkg/logger"
)

type fakeChat struct {
	reply    string
	err      error
	messages [][]ai.ChatMessage
	config   ai.ChatConfig
}

func (f *fakeChat) ChatCompletion(_ context.Context, messages []ai.ChatMessage, config ai.ChatConfig) (string, error) {
	f.messages = append(f.messages, messages)
	f.config = config
	return f.reply, f.err
}

type fakeSpeaker struct {
	mu     sync.Mutex
	spoken []string
	fail   map[string]error
	done   chan struct{}
}

func (f *fakeSpeaker) Speak(_ context.Context, text string) error {
	f.mu.Lock()
	f.spoken = append(f.spoken, text)
	f.mu.Unlock()
	if f.done != nil {
		f.done <- struct{}{}
	}
	return f.fail[text]
}

type fakeSpeech struct {
	data string
	err  error
}

func (f *fakeSpeech) Synthesize(context.Context, string, ai.SpeechConfig) (io.ReadCloser, error) {
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(strings.NewReader(f.data)), nil
}

type fakePlayer struct {
	err     error
	paths   []string
	content []string
}

func (f *fakePlayer) Play(_ context.Context, path string) error {
	f.paths = append(f.paths, path)
	data, _ := os.ReadFile(path)
	f.content = append(f.content, string(data))
	return f.err
}

func testConfig() Config {
	return Config{Model: "gpt-4", Temperature: 0.7, MaxTokens: 150, Prompt: StaticPrompt("be brief")}
}

func TestFallbackForIsDeterministic(t *testing.T) {
	errs := []error{
		errors.New("connection refused"),
		errors.New("rate limited"),
		errors.New(""),
		nil,
	}

	for _, err := range errs {
		first := FallbackFor(err)
		for i := 0; i < 5; i++ {
			if got := FallbackFor(err); got != first {
				t.Fatalf("FallbackFor(%v) changed from %q to %q", err, first, got)
			}
		}
		found := false
		for _, p := range FallbackPhrases {
			if p == first {
				found = true
			}
		}
		if !found {
			t.Errorf("FallbackFor(%v) = %q, not a fallback phrase", err, first)
		}
	}

	if FallbackFor(errors.New("boom")) != FallbackFor(errors.New("boom")) {
		t.Error("equal messages gave different phrases")
	}
}

func TestRespond(t *testing.T) {
	chatErr := errors.New("chat unavailable")
	speakErr := errors.New("speaker unplugged")

	tests := []struct {
		name       string
		chat       *fakeChat
		speakFail  map[string]error
		wantSpoken []string
	}{
		{
			name:       "reply spoken",
			chat:       &fakeChat{reply: " Why did the chicken cross the road? "},
			wantSpoken: []string{"Why did the chicken cross the road?"},
		},
		{
			name:       "chat error speaks fallback",
			chat:       &fakeChat{err: chatErr},
			wantSpoken: []string{"fallback"},
		},
		{
			name:       "empty reply speaks fallback",
			chat:       &fakeChat{reply: "   "},
			wantSpoken: []string{"fallback"},
		},
		{
			name:       "playback error speaks fallback",
			chat:       &fakeChat{reply: "hello"},
			speakFail:  map[string]error{"hello": speakErr},
			wantSpoken: []string{"hello", "fallback"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			speaker := &fakeSpeaker{fail: tt.speakFail}
			s := NewService(tt.chat, speaker, testConfig(), logger.NewNop())

			spoken := s.Respond(context.Background(), "tell me a joke")

			if len(speaker.spoken) != len(tt.wantSpoken) {
				t.Fatalf("spoken = %v, want %d outputs", speaker.spoken, len(tt.wantSpoken))
			}
			last := speaker.spoken[len(speaker.spoken)-1]
			if last != spoken {
				t.Errorf("Respond() = %q, last spoken %q", spoken, last)
			}
			for i, want := range tt.wantSpoken {
				got := speaker.spoken[i]
				if want == "fallback" {
					ok := false
					for _, p := range FallbackPhrases {
						ok = ok || p == got
					}
					if !ok {
						t.Errorf("spoken[%d] = %q, want a fallback phrase", i, got)
					}
					continue
				}
				if got != want {
					t.Errorf("spoken[%d] = %q, want %q", i, got, want)
				}
			}
		})
	}
}

func TestRespondSendsSystemPrompt(t *testing.T) {
	chat := &fakeChat{reply: "ok"}
	s := NewService(chat, &fakeSpeaker{}, testConfig(), logger.NewNop())
	s.Respond(context.Background(), "tell me a joke")

	if len(chat.messages) != 1 {
		t.Fatalf("chat calls = %d, want 1", len(chat.messages))
	}
	msgs := chat.messages[0]
	if len(msgs) != 2 || msgs[0].Role != ai.RoleSystem || msgs[0].Content != "be brief" ||
		msgs[1].Role != ai.RoleUser || msgs[1].Content != "tell me a joke" {
		t.Errorf("messages = %+v", msgs)
	}
	if chat.config.Model != "gpt-4" || chat.config.Temperature != 0.7 || chat.config.MaxTokens != 150 {
		t.Errorf("config = %+v", chat.config)
	}
}

type countingPrompt struct {
	calls int
	err   error
}

func (p *countingPrompt) SystemPrompt() (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return fmt.Sprintf("prompt %d", p.calls), nil
}

func TestGenerateRendersPromptPerQuery(t *testing.T) {
	chat := &fakeChat{reply: "ok"}
	prompt := &countingPrompt{}
	cfg := testConfig()
	cfg.Prompt = prompt
	s := NewService(chat, &fakeSpeaker{}, cfg, logger.NewNop())

	for i := 0; i < 3; i++ {
		if _, err := s.Generate(context.Background(), "what time is it"); err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
	}

	if prompt.calls != 3 {
		t.Errorf("prompt renders = %d, want 3", prompt.calls)
	}
	for i, msgs := range chat.messages {
		want := fmt.Sprintf("prompt %d", i+1)
		if msgs[0].Content != want {
			t.Errorf("call %d system prompt = %q, want %q", i, msgs[0].Content, want)
		}
	}
}

func TestRespondPromptErrorSpeaksFallback(t *testing.T) {
	chat := &fakeChat{reply: "ok"}
	speaker := &fakeSpeaker{}
	cfg := testConfig()
	cfg.Prompt = &countingPrompt{err: errors.New("template gone")}
	s := NewService(chat, speaker, cfg, logger.NewNop())

	spoken := s.Respond(context.Background(), "hello")

	if len(chat.messages) != 0 {
		t.Errorf("chat called %d times after prompt failure", len(chat.messages))
	}
	if spoken != FallbackFor(errors.New("failed to render system prompt: template gone")) {
		t.Errorf("Respond() = %q, want the fallback for the render error", spoken)
	}
}

func TestRespondFallbackSpeakFailureIsLogged(t *testing.T) {
	speaker := &fakeSpeaker{fail: map[string]error{}}
	for _, p := range FallbackPhrases {
		speaker.fail[p] = errors.New("no audio")
	}
	s := NewService(&fakeChat{err: errors.New("down")}, speaker, testConfig(), logger.NewNop())

	s.Respond(context.Background(), "anything")
	if len(speaker.spoken) != 1 {
		t.Errorf("spoken = %v, want exactly the fallback attempt", speaker.spoken)
	}
}

type chanQueries chan string

func (c chanQueries) Pop(ctx context.Context) (string, error) {
	select {
	case q := <-c:
		return q, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestRunContinuesAfterFailures(t *testing.T) {
	speaker := &fakeSpeaker{done: make(chan struct{}, 4)}
	s := NewService(&fakeChat{err: errors.New("always down")}, speaker, testConfig(), logger.NewNop())

	in := make(chanQueries, 2)
	in <- "first"
	in <- "second"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, in) }()

	for i := 0; i < 2; i++ {
		select {
		case <-speaker.done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for spoken output")
		}
	}
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(speaker.spoken) != 2 {
		t.Errorf("spoken = %v, want one output per query", speaker.spoken)
	}
}

func TestVoiceRemovesTempFile(t *testing.T) {
	tests := []struct {
		name    string
		playErr error
	}{
		{"playback succeeds", nil},
		{"playback fails", errors.New("device busy")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			player := &fakePlayer{err: tt.playErr}
			v := NewVoice(&fakeSpeech{data: "mp3-bytes"}, player, ai.SpeechConfig{Model: "tts-1", Voice: "alloy"}, dir, logger.NewNop())

			err := v.Speak(context.Background(), "hello")
			if (err != nil) != (tt.playErr != nil) {
				t.Fatalf("Speak() error = %v", err)
			}

			if len(player.paths) != 1 {
				t.Fatalf("played %d files, want 1", len(player.paths))
			}
			if player.content[0] != "mp3-bytes" {
				t.Errorf("played content = %q", player.content[0])
			}
			if !strings.HasPrefix(strings.TrimPrefix(player.paths[0], dir), string(os.PathSeparator)+"reply_") ||
				!strings.HasSuffix(player.paths[0], ".mp3") {
				t.Errorf("unexpected temp file name %s", player.paths[0])
			}

			entries, err := os.ReadDir(dir)
			if err != nil {
				t.Fatal(err)
			}
			if len(entries) != 0 {
				t.Errorf("temp dir not empty: %d entries left", len(entries))
			}
		})
	}
}

func TestVoiceUniqueFileNames(t *testing.T) {
	player := &fakePlayer{}
	v := NewVoice(&fakeSpeech{data: "x"}, player, ai.SpeechConfig{}, t.TempDir(), logger.NewNop())

	for i := 0; i < 3; i++ {
		if err := v.Speak(context.Background(), "hi"); err != nil {
			t.Fatal(err)
		}
	}
	seen := map[string]bool{}
	for _, p := range player.paths {
		if seen[p] {
			t.Errorf("file name %s reused", p)
		}
		seen[p] = true
	}
}

func TestVoiceSynthesisError(t *testing.T) {
	player := &fakePlayer{}
	v := NewVoice(&fakeSpeech{err: errors.New("tts down")}, player, ai.SpeechConfig{}, t.TempDir(), logger.NewNop())

	if err := v.Speak(context.Background(), "hi"); err == nil {
		t.Fatal("expected error")
	}
	if len(player.paths) != 0 {
		t.Error("player called after synthesis failure")
	}
}
