package models

import "context"

// VisionProvider compares rendered images against reference imagery.
// Implementations live under internal/vision.
type VisionProvider interface {
	Name() string
	Compare(ctx context.Context, req ComparisonRequest) (AnalysisResult, error)
}
