package ai

import (
	"context"
	"testing"

	"github.com/stirosario/tecnos/internal/models"
)

func TestClassifyProblem_ParsesFencedJSON(t *testing.T) {
	raw := "```json\n{\"deviceType\":\"notebook\",\"category\":\"power\",\"urgency\":\"high\",\"summary\":\"La notebook no enciende\"}\n```"
	client := &Client{chat: &mockChatService{resp: textCompletion(raw)}, model: DefaultModel}

	analysis, err := client.ClassifyProblem(context.Background(), "mi compu no enciende")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if analysis.DeviceType != models.DeviceNotebook {
		t.Errorf("expected notebook, got %q", analysis.DeviceType)
	}
	if analysis.Category != "power" {
		t.Errorf("expected power category, got %q", analysis.Category)
	}
}

func TestClassifyProblem_UnknownDeviceFallsBack(t *testing.T) {
	raw := `{"deviceType":"toaster","category":"other","urgency":"low","summary":"?"}`
	client := &Client{chat: &mockChatService{resp: textCompletion(raw)}, model: DefaultModel}

	analysis, err := client.ClassifyProblem(context.Background(), "my toaster is sad")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if analysis.DeviceType != models.DeviceOther {
		t.Errorf("expected fallback to other, got %q", analysis.DeviceType)
	}
}

func TestClassifyProblem_GarbageOutput(t *testing.T) {
	client := &Client{chat: &mockChatService{resp: textCompletion("sorry, I cannot help")}, model: DefaultModel}
	if _, err := client.ClassifyProblem(context.Background(), "x"); err == nil {
		t.Error("expected error for unparseable output")
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"prose before {\"a\":1} prose after", `{"a":1}`},
		{"no json here", "no json here"},
	}
	for _, tt := range tests {
		if got := extractJSON(tt.in); got != tt.want {
			t.Errorf("extractJSON(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
