package ai

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/openai/openai-go"
)

// mockChatService implements chatService for testing.
type mockChatService struct {
	resp  openai.ChatCompletion
	err   error
	calls int
}

func (m *mockChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	m.calls++
	return m.resp, m.err
}

// flakyChatService fails with a transient error until failures is exhausted.
type flakyChatService struct {
	failures int
	resp     openai.ChatCompletion
	calls    int
}

func (m *flakyChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	m.calls++
	if m.calls <= m.failures {
		return openai.ChatCompletion{}, errors.New("rate_limit_exceeded: slow down")
	}
	return m.resp, nil
}

func textCompletion(content string) openai.ChatCompletion {
	return openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

func TestGenerate_Success(t *testing.T) {
	client := &Client{chat: &mockChatService{resp: textCompletion("Hola")}, model: DefaultModel}
	out, err := client.Generate(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != "Hola" {
		t.Errorf("expected 'Hola', got %q", out)
	}
}

func TestGenerate_NonRetryableError(t *testing.T) {
	mock := &mockChatService{err: errors.New("invalid_api_key")}
	client := &Client{chat: mock, model: DefaultModel}
	_, err := client.Generate(context.Background(), "sys", "usr")
	if err == nil || !strings.Contains(err.Error(), "invalid_api_key") {
		t.Errorf("expected invalid_api_key error, got %v", err)
	}
	if mock.calls != 1 {
		t.Errorf("non-retryable error should not be retried, got %d calls", mock.calls)
	}
}

func TestGenerate_RetriesTransientError(t *testing.T) {
	if testing.Short() {
		t.Skip("retry test sleeps through backoff delays")
	}
	mock := &flakyChatService{failures: 1, resp: textCompletion("ok")}
	client := &Client{chat: mock, model: DefaultModel}
	out, err := client.Generate(context.Background(), "sys", "usr")
	if err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if out != "ok" {
		t.Errorf("expected 'ok', got %q", out)
	}
	if mock.calls != 2 {
		t.Errorf("expected 2 calls (1 failure + 1 retry), got %d", mock.calls)
	}
}

func TestGenerate_NoChoices(t *testing.T) {
	client := &Client{chat: &mockChatService{resp: openai.ChatCompletion{}}, model: DefaultModel}
	_, err := client.Generate(context.Background(), "sys", "usr")
	if err != ErrNoChoicesReturned {
		t.Errorf("expected ErrNoChoicesReturned, got %v", err)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  string
		want bool
	}{
		{"rate_limit_exceeded: too many requests", true},
		{"server_error occurred", true},
		{"context deadline exceeded (timeout)", true},
		{"invalid_api_key", false},
		{"model_not_found", false},
	}
	for _, tt := range tests {
		if got := isRetryable(errors.New(tt.err)); got != tt.want {
			t.Errorf("isRetryable(%q) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestNewClient_NoKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewClient()
	if err != ErrNoAPIKey {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestNewClient_WithKey(t *testing.T) {
	cli, err := NewClient(WithAPIKey("test-key"), WithModel("gpt-4o"))
	if err != nil {
		t.Fatalf("expected no error with API key, got %v", err)
	}
	if cli == nil {
		t.Fatal("expected client instance, got nil")
	}
	if cli.model != "gpt-4o" {
		t.Errorf("expected model override, got %q", cli.model)
	}
}

func TestEstimateCost(t *testing.T) {
	// 1000 prompt + 1000 completion tokens of gpt-4o-mini
	got := EstimateCost("gpt-4o-mini", 1000, 1000)
	want := 0.00075
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("EstimateCost = %v, want %v", got, want)
	}

	// Unknown models fall back to the mini rate
	if fallback := EstimateCost("未知", 1000, 1000); math.Abs(fallback-got) > 1e-12 {
		t.Errorf("unknown model should use fallback rate, got %v", fallback)
	}
}
