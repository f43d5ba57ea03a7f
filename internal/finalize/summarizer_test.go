package finalize

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// startChatServer serves the minimal chat-completions response shape the
// client reads, optionally capturing the decoded request body.
func startChatServer(t *testing.T, content string, capture *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if capture != nil {
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode request: %v", err)
			}
			*capture = body
		}
		w.Header().Set("Content-Type", "application/json")
		resp, _ := json.Marshal(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"choices": []map[string]any{
				{
					"index":         0,
					"message":       map[string]any{"role": "assistant", "content": content},
					"finish_reason": "stop",
				},
			},
		})
		w.Write(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestChatSummarizer_RequestShape(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := startChatServer(t, "a fine summary", &got)

	s, err := NewChatSummarizer("sk-test", "gpt-4o-mini", "You summarize calls.",
		WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewChatSummarizer: %v", err)
	}

	out, err := s.Summarize(context.Background(), "Caller: hello")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if out != "a fine summary" {
		t.Errorf("summary = %q", out)
	}

	if got["model"] != "gpt-4o-mini" {
		t.Errorf("model = %v", got["model"])
	}
	if got["temperature"] != 0.4 {
		t.Errorf("temperature = %v, want 0.4", got["temperature"])
	}
	if got["max_tokens"] != float64(800) {
		t.Errorf("max_tokens = %v, want 800", got["max_tokens"])
	}

	msgs, ok := got["messages"].([]any)
	if !ok || len(msgs) != 2 {
		t.Fatalf("messages = %v, want system + user", got["messages"])
	}
	sys := msgs[0].(map[string]any)
	usr := msgs[1].(map[string]any)
	if sys["role"] != "system" || sys["content"] != "You summarize calls." {
		t.Errorf("system message = %v", sys)
	}
	if usr["role"] != "user" {
		t.Errorf("user message role = %v", usr["role"])
	}
}

func TestChatSummarizer_EmptyContentIsError(t *testing.T) {
	t.Parallel()

	srv := startChatServer(t, "", nil)

	s, err := NewChatSummarizer("sk-test", "gpt-4o-mini", "prompt",
		WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewChatSummarizer: %v", err)
	}
	if _, err := s.Summarize(context.Background(), "transcript"); err == nil {
		t.Fatal("want error for empty completion content")
	}
}

func TestNewChatSummarizer_RequiresKeyAndModel(t *testing.T) {
	t.Parallel()

	if _, err := NewChatSummarizer("", "m", "p"); err == nil {
		t.Error("want error for empty api key")
	}
	if _, err := NewChatSummarizer("k", "", "p"); err == nil {
		t.Error("want error for empty model")
	}
}
