package rewrite

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		request Request
		wantErr string
	}{
		{
			name:    "valid",
			request: Request{RawInput: "shipped the billing migration", Tone: ToneProfessional},
		},
		{
			name:    "too short",
			request: Request{RawInput: "short", Tone: ToneProfessional},
			wantErr: "at least 10 characters",
		},
		{
			name:    "too long",
			request: Request{RawInput: strings.Repeat("a", MaxInputLen+1), Tone: ToneExecutive},
			wantErr: "2000 characters or less",
		},
		{
			name:    "boundary min",
			request: Request{RawInput: strings.Repeat("a", MinInputLen), Tone: ToneActionOriented},
		},
		{
			name:    "boundary max",
			request: Request{RawInput: strings.Repeat("a", MaxInputLen), Tone: ToneActionOriented},
		},
		{
			name:    "unknown tone",
			request: Request{RawInput: "led the platform team for two years", Tone: "sarcastic"},
			wantErr: "not one of",
		},
		{
			name:    "empty tone",
			request: Request{RawInput: "led the platform team for two years"},
			wantErr: "not one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestEventEncodesExactlyOneKey(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{"text", TextEvent("• Led the team"), `{"text":"• Led the team"}`},
		{"done", DoneEvent(), `{"done":true}`},
		{"error", ErrorEvent("generation failed"), `{"error":"generation failed"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.event)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("encoded = %s, want %s", data, tt.want)
			}
		})
	}
}

func TestBuildSystemPromptCarriesToneAndCount(t *testing.T) {
	for _, tone := range []Tone{ToneProfessional, ToneActionOriented, ToneExecutive} {
		prompt := BuildSystemPrompt(3, tone)
		if !strings.Contains(prompt, toneInstructions[tone]) {
			t.Errorf("prompt for %s is missing its tone instructions", tone)
		}
		if !strings.Contains(prompt, "3 distinct result(s)") {
			t.Errorf("prompt for %s does not name the variation count", tone)
		}
		if !strings.Contains(prompt, "<result>") {
			t.Errorf("prompt for %s does not state the output tag format", tone)
		}
	}
}

func TestBuildUserPromptWrapsInput(t *testing.T) {
	prompt := BuildUserPrompt("managed vendor relationships")
	if !strings.HasSuffix(prompt, "managed vendor relationships") {
		t.Errorf("user prompt does not end with the raw input: %q", prompt)
	}
}
