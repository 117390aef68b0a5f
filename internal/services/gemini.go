package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/jwebster45206/drifter/pkg/chat"
)

// GeminiService generates through the Gemini API with a JSON response
// schema.
type GeminiService struct {
	client    *genai.Client
	modelName string
	logger    *slog.Logger
}

// NewGeminiService creates a Gemini client. Extra client options (such as an
// endpoint override) may be appended.
func NewGeminiService(ctx context.Context, apiKey string, modelName string, logger *slog.Logger, opts ...option.ClientOption) (*GeminiService, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiService{
		client:    client,
		modelName: modelName,
		logger:    logger,
	}, nil
}

func (g *GeminiService) Close() error {
	return g.client.Close()
}

func (g *GeminiService) Generate(ctx context.Context, req chat.GenerateRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	// a fresh model per call so concurrent campaigns do not share config
	model := g.client.GenerativeModel(g.modelName)
	if req.SystemInstruction != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.SystemInstruction)}}
	}
	if req.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxOutputTokens))
	}
	if req.Schema != nil {
		model.ResponseMIMEType = "application/json"
		model.ResponseSchema = toGenaiSchema(req.Schema)
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	text, finish := responseText(resp)
	if finish == genai.FinishReasonMaxTokens {
		g.logger.Warn("Gemini response truncated at token limit", "model", g.modelName, "max_tokens", req.MaxOutputTokens)
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrNoResponse
	}
	return text, nil
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, genai.FinishReason) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", genai.FinishReasonUnspecified
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return "", cand.FinishReason
	}
	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String(), cand.FinishReason
}

func toGenaiSchema(s *chat.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Required: s.Required,
		Enum:     s.Enum,
	}
	switch s.Type {
	case chat.TypeObject:
		out.Type = genai.TypeObject
	case chat.TypeArray:
		out.Type = genai.TypeArray
	case chat.TypeString:
		out.Type = genai.TypeString
	case chat.TypeNumber:
		out.Type = genai.TypeNumber
	case chat.TypeInteger:
		out.Type = genai.TypeInteger
	case chat.TypeBoolean:
		out.Type = genai.TypeBoolean
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGenaiSchema(prop)
		}
	}
	out.Items = toGenaiSchema(s.Items)
	return out
}
