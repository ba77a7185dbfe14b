// Package vision selects and constructs the image-comparison provider.
package vision

import (
	"fmt"

	"github.com/aryakhanna/renderqa/internal/config"
	"github.com/aryakhanna/renderqa/internal/vision/anthropic"
	"github.com/aryakhanna/renderqa/internal/vision/mock"
	"github.com/aryakhanna/renderqa/internal/vision/openai"
	"github.com/aryakhanna/renderqa/pkg/models"
)

// NewProvider constructs the appropriate vision provider based on config.
// Called once at server startup.
func NewProvider(cfg config.VisionConfig) (models.VisionProvider, error) {
	switch cfg.Provider {
	case "openai":
		return openai.NewProvider(cfg.OpenAI, cfg.Timeout), nil
	case "anthropic":
		return anthropic.NewProvider(cfg.Anthropic, cfg.Timeout), nil
	case "mock":
		return mock.NewProvider(), nil
	default:
		return nil, fmt.Errorf("unknown vision provider %q: must be one of openai, anthropic, mock", cfg.Provider)
	}
}
