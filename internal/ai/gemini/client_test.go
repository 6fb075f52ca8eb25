package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yegors/voice-assistant/internal/ai"
	"github.com/yegors/voice-assistant/pkg/logger"
)

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(context.Background(), "", logger.NewNop(), ""); err == nil {
		t.Fatal("expected error for empty API key")
	}
}

func TestChatCompletion(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "models/gemini-2.0-flash:generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":" Sunny and warm. "}]}}]}`)
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), "test-key", logger.NewNop(), srv.URL)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	reply, err := c.ChatCompletion(context.Background(), []ai.ChatMessage{
		{Role: ai.RoleSystem, Content: "be brief"},
		{Role: ai.RoleUser, Content: "weather"},
	}, ai.ChatConfig{Model: "gemini-2.0-flash", Temperature: 0.7, MaxTokens: 150})
	if err != nil {
		t.Fatalf("ChatCompletion() error = %v", err)
	}
	if reply != "Sunny and warm." {
		t.Errorf("reply = %q", reply)
	}

	if _, ok := body["systemInstruction"]; !ok {
		t.Error("system instruction missing from request")
	}
	contents, _ := body["contents"].([]any)
	if len(contents) != 1 {
		t.Errorf("contents = %v, want one user turn", body["contents"])
	}
}

func TestChatCompletionEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"candidates":[]}`)
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), "test-key", logger.NewNop(), srv.URL)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if _, err := c.ChatCompletion(context.Background(), []ai.ChatMessage{{Role: ai.RoleUser, Content: "hi"}}, ai.ChatConfig{Model: "gemini-2.0-flash"}); err == nil {
		t.Fatal("expected error for empty response")
	}
}
