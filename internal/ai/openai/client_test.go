package openai

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yegors/voice-assistant/internal/ai"
	"github.com/yegors/voice-assistant/pkg/logger"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-key", logger.NewNop(), srv.URL)
}

func TestNewClientBaseURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", DefaultBaseURL},
		{"https://proxy.local/", "https://proxy.local"},
		{"https://proxy.local/v1", "https://proxy.local"},
		{"https://proxy.local/v1/", "https://proxy.local"},
	}

	for _, tt := range tests {
		c := NewClient("k", logger.NewNop(), tt.in)
		if got := c.BaseURL(); got != tt.want {
			t.Errorf("NewClient(%q).BaseURL() = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestChatCompletion(t *testing.T) {
	var gotBody struct {
		Model       string  `json:"model"`
		MaxTokens   int     `json:"max_tokens"`
		Temperature float64 `json:"temperature"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"model":"gpt-4","choices":[{"index":0,"message":{"role":"assistant","content":"  Paris.  "}}],"usage":{"total_tokens":12}}`)
	})

	reply, err := c.ChatCompletion(context.Background(), []ai.ChatMessage{
		{Role: ai.RoleSystem, Content: "be brief"},
		{Role: ai.RoleUser, Content: "capital of france"},
	}, ai.ChatConfig{Model: "gpt-4", Temperature: 0.7, MaxTokens: 150})
	if err != nil {
		t.Fatalf("ChatCompletion() error = %v", err)
	}
	if reply != "Paris." {
		t.Errorf("reply = %q, want %q", reply, "Paris.")
	}

	if gotBody.Model != "gpt-4" || gotBody.MaxTokens != 150 {
		t.Errorf("request model/max_tokens = %s/%d", gotBody.Model, gotBody.MaxTokens)
	}
	if len(gotBody.Messages) != 2 || gotBody.Messages[1].Content != "capital of france" {
		t.Errorf("request messages = %+v", gotBody.Messages)
	}
}

func TestChatCompletionErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":{"message":"boom","type":"server_error"}}`},
		{"no choices", http.StatusOK, `{"model":"gpt-4","choices":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})
			if _, err := c.ChatCompletion(context.Background(), nil, ai.ChatConfig{Model: "gpt-4"}); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestTranscribe(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("model = %q", got)
		}
		if got := r.FormValue("language"); got != "en" {
			t.Errorf("language = %q", got)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file: %v", err)
		} else {
			data, _ := io.ReadAll(file)
			if !strings.HasPrefix(string(data), "RIFF") || len(data) != 44+1600*2 {
				t.Errorf("upload is not a 1600-sample WAV file (%d bytes)", len(data))
			} else if rate := binary.LittleEndian.Uint32(data[24:28]); rate != 16000 {
				t.Errorf("WAV sample rate = %d", rate)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"text":"hey abc what time is it"}`)
	})

	samples := make([]float32, 1600)
	for i := range samples {
		samples[i] = 0.25
	}
	text, err := c.Transcribe(context.Background(), samples, ai.TranscriptionConfig{
		Model:      "whisper-1",
		Language:   "en",
		SampleRate: 16000,
	})
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if text != "hey abc what time is it" {
		t.Errorf("text = %q", text)
	}
}

func TestTranscribeEmpty(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty audio")
	})
	text, err := c.Transcribe(context.Background(), nil, ai.TranscriptionConfig{SampleRate: 16000})
	if err != nil || text != "" {
		t.Errorf("Transcribe(nil) = %q, %v", text, err)
	}
}

func TestSynthesize(t *testing.T) {
	var req struct {
		Model          string `json:"model"`
		Input          string `json:"input"`
		Voice          string `json:"voice"`
		ResponseFormat string `json:"response_format"`
	}

	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/speech" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		io.WriteString(w, "ID3-fake-mp3")
	})

	rc, err := c.Synthesize(context.Background(), "hello there", ai.SpeechConfig{Model: "tts-1", Voice: "nova"})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	if string(data) != "ID3-fake-mp3" {
		t.Errorf("stream = %q", data)
	}
	if req.Model != "tts-1" || req.Voice != "nova" || req.Input != "hello there" || req.ResponseFormat != "mp3" {
		t.Errorf("request = %+v", req)
	}
}
