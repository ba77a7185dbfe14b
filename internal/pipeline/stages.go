package pipeline

import (
	"context"

	"github.com/aryakhanna/renderqa/pkg/models"
)

// Stage names used in processing logs and metrics labels.
const (
	StageRender  = "render"
	StageAnalyze = "analyze"
	StageReport  = "report"
	StagePublish = "publish"
)

// RenderResult is what the render collaborator yields: captured images,
// model statistics, and the angles that failed to capture. Per-angle
// failures are tolerated; the stage only fails when zero images result.
type RenderResult struct {
	Images       []string
	ModelStats   *models.ModelStats
	FailedAngles []AngleFailure
}

// AngleFailure records one camera angle that did not produce an image.
type AngleFailure struct {
	Angle  string
	Reason string
}

// Renderer captures product images and model statistics for an article.
type Renderer interface {
	Render(ctx context.Context, articleID string) (RenderResult, error)
}

// ReportResult is what the report collaborator yields. Annotated is false
// when the annotation overlay failed and the report fell back to the
// unannotated source images.
type ReportResult struct {
	URL             string
	Annotated       bool
	AnnotationError string
}

// Reporter lays out the QA report document for a job that has an analysis.
type Reporter interface {
	Report(ctx context.Context, job *models.Job) (ReportResult, error)
}

// Publisher propagates the verdict to the job's target record.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, job *models.Job) error
}
