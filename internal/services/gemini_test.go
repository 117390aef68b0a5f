package services

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/jwebster45206/drifter/pkg/chat"
	"github.com/jwebster45206/drifter/pkg/prompts"
)

func TestToGenaiSchema(t *testing.T) {
	s := toGenaiSchema(prompts.DayLogSchema())
	if s.Type != genai.TypeObject {
		t.Fatalf("Expected object, got %v", s.Type)
	}
	events := s.Properties["events"]
	if events == nil || events.Type != genai.TypeArray || events.Items == nil {
		t.Fatalf("Expected events array with items, got %+v", events)
	}
	if events.Items.Properties["time"].Type != genai.TypeString {
		t.Errorf("Expected event time to be a string")
	}
	if s.Properties["isDanger"].Type != genai.TypeBoolean {
		t.Errorf("Expected isDanger to be boolean")
	}
	if len(s.Required) == 0 {
		t.Error("Expected required fields to carry over")
	}

	ending := toGenaiSchema(prompts.EndingSchema())
	if got := ending.Properties["outcome"].Enum; len(got) != 3 {
		t.Errorf("Expected 3 outcome values, got %v", got)
	}

	if toGenaiSchema(nil) != nil {
		t.Error("Expected nil schema to stay nil")
	}
	if toGenaiSchema(&chat.Schema{Type: chat.TypeInteger}).Type != genai.TypeInteger {
		t.Error("Expected integer mapping")
	}
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Parts: []genai.Part{genai.Text(`{"day":`), genai.Text(`2}`)}},
			FinishReason: genai.FinishReasonMaxTokens,
		}},
	}
	text, finish := responseText(resp)
	if text != `{"day":2}` {
		t.Errorf("responseText() = %q", text)
	}
	if finish != genai.FinishReasonMaxTokens {
		t.Errorf("Expected max tokens finish reason, got %v", finish)
	}

	if text, _ := responseText(&genai.GenerateContentResponse{}); text != "" {
		t.Errorf("Expected empty text without candidates, got %q", text)
	}
	if text, _ := responseText(nil); text != "" {
		t.Errorf("Expected empty text for nil response, got %q", text)
	}
}
