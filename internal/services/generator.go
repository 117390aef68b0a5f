package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jwebster45206/drifter/internal/config"
	"github.com/jwebster45206/drifter/pkg/chat"
)

// ErrNoResponse is returned when a provider answers without any content.
var ErrNoResponse = errors.New("no response from generator")

// Generator produces one structured text completion. Implementations return
// the raw text; sanitizing and validation happen downstream.
type Generator interface {
	Generate(ctx context.Context, req chat.GenerateRequest) (string, error)
}

// NewGenerator builds the generator selected by cfg.LLMProvider.
func NewGenerator(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Generator, error) {
	switch cfg.LLMProvider {
	case "gemini":
		return NewGeminiService(ctx, cfg.GeminiAPIKey, cfg.ModelName, logger)
	case "venice":
		return NewVeniceService(cfg.VeniceAPIKey, cfg.ModelName), nil
	case "anthropic":
		return NewAnthropicService(cfg.AnthropicAPIKey, cfg.ModelName, logger), nil
	case "mock":
		logger.Warn("Using mock generator, narrative content is canned")
		return NewMockGenerator(), nil
	default:
		return nil, fmt.Errorf("invalid LLM provider %q", cfg.LLMProvider)
	}
}
