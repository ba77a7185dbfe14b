package mock

import (
	"context"
	"fmt"

	"github.com/aryakhanna/renderqa/pkg/models"
)

// MockProvider satisfies models.VisionProvider for testing and development.
type MockProvider struct {
	Name_       string
	CompareFunc func(ctx context.Context, req models.ComparisonRequest) (models.AnalysisResult, error)
}

func (m *MockProvider) Name() string { return m.Name_ }

func (m *MockProvider) Compare(ctx context.Context, req models.ComparisonRequest) (models.AnalysisResult, error) {
	if m.CompareFunc != nil {
		return m.CompareFunc(ctx, req)
	}
	return models.AnalysisResult{Differences: []models.Difference{}}, nil
}

// NewProvider returns a MockProvider with sensible default responses.
func NewProvider() *MockProvider {
	return &MockProvider{
		Name_: "mock",
		CompareFunc: func(_ context.Context, req models.ComparisonRequest) (models.AnalysisResult, error) {
			return models.AnalysisResult{
				Differences: []models.Difference{},
				Summary: fmt.Sprintf("Mock comparison of %d renders against %d references",
					len(req.Images), len(req.References)),
				Verdict: models.VerdictApproved,
				Scores:  map[string]float64{"geometry": 95, "texture": 92, "overall": 94},
			}, nil
		},
	}
}

// NewFailingProvider returns a MockProvider that always returns the given error.
func NewFailingProvider(err error) *MockProvider {
	return &MockProvider{
		Name_: "mock-failing",
		CompareFunc: func(_ context.Context, _ models.ComparisonRequest) (models.AnalysisResult, error) {
			return models.AnalysisResult{}, err
		},
	}
}

// Compile-time check that MockProvider implements VisionProvider.
var _ models.VisionProvider = (*MockProvider)(nil)
