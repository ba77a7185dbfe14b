package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/aryakhanna/renderqa/internal/pipeline"
	"github.com/aryakhanna/renderqa/internal/store"
	"github.com/aryakhanna/renderqa/internal/vision/mock"
	"github.com/aryakhanna/renderqa/pkg/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockRenderer struct {
	calls      int
	RenderFunc func(ctx context.Context, articleID string) (pipeline.RenderResult, error)
}

func (m *mockRenderer) Render(ctx context.Context, articleID string) (pipeline.RenderResult, error) {
	m.calls++
	return m.RenderFunc(ctx, articleID)
}

type mockReporter struct {
	calls      int
	ReportFunc func(ctx context.Context, job *models.Job) (pipeline.ReportResult, error)
}

func (m *mockReporter) Report(ctx context.Context, job *models.Job) (pipeline.ReportResult, error) {
	m.calls++
	if m.ReportFunc != nil {
		return m.ReportFunc(ctx, job)
	}
	return pipeline.ReportResult{URL: "https://reports.local/r1", Annotated: true}, nil
}

type mockPublisher struct {
	calls       int
	PublishFunc func(ctx context.Context, job *models.Job) error
}

func (m *mockPublisher) Name() string { return "mock" }

func (m *mockPublisher) Publish(ctx context.Context, job *models.Job) error {
	m.calls++
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, job)
	}
	return nil
}

func renderImages(n int) *mockRenderer {
	return &mockRenderer{
		RenderFunc: func(_ context.Context, _ string) (pipeline.RenderResult, error) {
			imgs := make([]string, n)
			for i := range imgs {
				imgs[i] = fmt.Sprintf("https://renders.local/img%d.png", i)
			}
			return pipeline.RenderResult{
				Images:     imgs,
				ModelStats: &models.ModelStats{MeshCount: 2, Vertices: 1200, Triangles: 2000},
			}, nil
		},
	}
}

type fixture struct {
	store     *store.MemoryStore
	renderer  *mockRenderer
	vision    *mock.MockProvider
	reporter  *mockReporter
	publisher *mockPublisher
	orch      *pipeline.Orchestrator
}

func newFixture(r *mockRenderer) *fixture {
	f := &fixture{
		store:     store.NewMemoryStore(10, 3),
		renderer:  r,
		vision:    mock.NewProvider(),
		reporter:  &mockReporter{},
		publisher: &mockPublisher{},
	}
	f.orch = pipeline.NewOrchestrator(f.store, f.renderer, f.vision, f.reporter, f.publisher, nil)
	return f
}

func (f *fixture) admit(t *testing.T, in store.AdmitInput) *models.Job {
	t.Helper()
	job, created, err := f.store.Admit(in)
	require.NoError(t, err)
	require.True(t, created)
	return job
}

func logLines(job *models.Job, stage string) []string {
	var out []string
	for _, l := range job.Logs {
		if l.Stage == stage {
			out = append(out, l.Message)
		}
	}
	return out
}

// --- tests ---

func TestRun_HappyPath(t *testing.T) {
	f := newFixture(renderImages(4))
	job := f.admit(t, store.AdmitInput{
		ArticleID:    "A1",
		ProductName:  "Chair",
		References:   []string{"ref1.jpg"},
		TargetRecord: "row-42",
	})

	err := f.orch.Run(context.Background(), job.ID)
	require.NoError(t, err)

	got, ok := f.store.Get(job.ID)
	require.True(t, ok)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.Len(t, got.Images, 4)
	require.NotNil(t, got.Analysis)
	assert.Equal(t, models.VerdictApproved, got.Analysis.Verdict)
	require.NotNil(t, got.ReportURL)
	assert.Equal(t, "https://reports.local/r1", *got.ReportURL)
	assert.NotNil(t, got.StartedAt)
	assert.NotNil(t, got.CompletedAt)
	assert.Equal(t, 1, f.publisher.calls)
}

func TestRun_EmptyReferencesSkipsAnalysis(t *testing.T) {
	f := newFixture(renderImages(3))
	visionCalls := 0
	f.vision.CompareFunc = func(_ context.Context, _ models.ComparisonRequest) (models.AnalysisResult, error) {
		visionCalls++
		return models.AnalysisResult{}, nil
	}

	job := f.admit(t, store.AdmitInput{ArticleID: "A1", ProductName: "Chair"})

	err := f.orch.Run(context.Background(), job.ID)
	require.NoError(t, err)

	got, _ := f.store.Get(job.ID)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.Len(t, got.Images, 3)
	assert.Nil(t, got.Analysis)
	assert.Nil(t, got.ReportURL)
	assert.Equal(t, 0, visionCalls)
	assert.Equal(t, 0, f.reporter.calls)
	assert.Equal(t, 0, f.publisher.calls)

	lines := logLines(got, pipeline.StageAnalyze)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "skipped")
}

func TestRun_AnalyzeFailureDegradesJob(t *testing.T) {
	f := newFixture(renderImages(5))
	f.vision.CompareFunc = func(_ context.Context, _ models.ComparisonRequest) (models.AnalysisResult, error) {
		return models.AnalysisResult{}, errors.New("model overloaded")
	}

	job := f.admit(t, store.AdmitInput{
		ArticleID:   "A1",
		ProductName: "Chair",
		References:  []string{"ref1.jpg"},
	})

	err := f.orch.Run(context.Background(), job.ID)
	require.NoError(t, err)

	got, _ := f.store.Get(job.ID)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.Len(t, got.Images, 5)
	assert.Nil(t, got.Analysis)
	assert.Nil(t, got.ReportURL)
	assert.Equal(t, 0, f.reporter.calls)

	// Exactly one descriptive log line for the degrade.
	var degrades []string
	for _, l := range got.Logs {
		if strings.Contains(l.Message, "degraded") {
			degrades = append(degrades, l.Message)
		}
	}
	require.Len(t, degrades, 1)
	assert.Contains(t, degrades[0], "model overloaded")
}

func TestRun_ZeroImagesIsFatal(t *testing.T) {
	f := newFixture(&mockRenderer{
		RenderFunc: func(_ context.Context, _ string) (pipeline.RenderResult, error) {
			return pipeline.RenderResult{}, nil
		},
	})
	job := f.admit(t, store.AdmitInput{ArticleID: "A1", ProductName: "Chair", References: []string{"r1"}})

	err := f.orch.Run(context.Background(), job.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrNoImages)

	// Status stays Processing; the retry policy owns the transition out.
	got, _ := f.store.Get(job.ID)
	assert.Equal(t, models.JobStatusProcessing, got.Status)
}

func TestRun_RenderErrorIsFatal(t *testing.T) {
	f := newFixture(&mockRenderer{
		RenderFunc: func(_ context.Context, _ string) (pipeline.RenderResult, error) {
			return pipeline.RenderResult{}, errors.New("capture service down")
		},
	})
	job := f.admit(t, store.AdmitInput{ArticleID: "A1", ProductName: "Chair"})

	err := f.orch.Run(context.Background(), job.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "capture service down")
}

func TestRun_PartialAngleFailuresAreLogged(t *testing.T) {
	f := newFixture(&mockRenderer{
		RenderFunc: func(_ context.Context, _ string) (pipeline.RenderResult, error) {
			return pipeline.RenderResult{
				Images: []string{"img0.png", "img1.png"},
				FailedAngles: []pipeline.AngleFailure{
					{Angle: "rear", Reason: "camera clip"},
					{Angle: "top", Reason: "timeout"},
				},
			}, nil
		},
	})
	job := f.admit(t, store.AdmitInput{ArticleID: "A1", ProductName: "Chair"})

	err := f.orch.Run(context.Background(), job.ID)
	require.NoError(t, err)

	got, _ := f.store.Get(job.ID)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.Len(t, got.Images, 2)

	lines := logLines(got, pipeline.StageRender)
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "rear")
	assert.Contains(t, lines[1], "top")
	assert.Contains(t, lines[2], "captured 2 images")
}

func TestRun_ReportFailureDegradesJob(t *testing.T) {
	f := newFixture(renderImages(2))
	f.reporter.ReportFunc = func(_ context.Context, _ *models.Job) (pipeline.ReportResult, error) {
		return pipeline.ReportResult{}, errors.New("layout service down")
	}

	job := f.admit(t, store.AdmitInput{
		ArticleID:    "A1",
		ProductName:  "Chair",
		References:   []string{"ref1.jpg"},
		TargetRecord: "row-42",
	})

	err := f.orch.Run(context.Background(), job.ID)
	require.NoError(t, err)

	got, _ := f.store.Get(job.ID)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.NotNil(t, got.Analysis)
	assert.Nil(t, got.ReportURL)
	assert.Equal(t, 0, f.publisher.calls)

	lines := logLines(got, pipeline.StageReport)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "degraded")
}

func TestRun_AnnotationFallbackIsLogged(t *testing.T) {
	f := newFixture(renderImages(2))
	f.reporter.ReportFunc = func(_ context.Context, _ *models.Job) (pipeline.ReportResult, error) {
		return pipeline.ReportResult{
			URL:             "https://reports.local/r2",
			Annotated:       false,
			AnnotationError: "overlay service 502",
		}, nil
	}

	job := f.admit(t, store.AdmitInput{
		ArticleID:   "A1",
		ProductName: "Chair",
		References:  []string{"ref1.jpg"},
	})

	err := f.orch.Run(context.Background(), job.ID)
	require.NoError(t, err)

	got, _ := f.store.Get(job.ID)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	require.NotNil(t, got.ReportURL)

	lines := logLines(got, pipeline.StageReport)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "unannotated")
	assert.Contains(t, lines[0], "overlay service 502")
}

func TestRun_PublishFailureDegradesJob(t *testing.T) {
	f := newFixture(renderImages(2))
	f.publisher.PublishFunc = func(_ context.Context, _ *models.Job) error {
		return errors.New("record locked")
	}

	job := f.admit(t, store.AdmitInput{
		ArticleID:    "A1",
		ProductName:  "Chair",
		References:   []string{"ref1.jpg"},
		TargetRecord: "row-42",
	})

	err := f.orch.Run(context.Background(), job.ID)
	require.NoError(t, err)

	got, _ := f.store.Get(job.ID)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	require.NotNil(t, got.ReportURL)

	lines := logLines(got, pipeline.StagePublish)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "degraded")
	assert.Contains(t, lines[0], "record locked")
}

func TestRun_PublishSkippedWithoutTarget(t *testing.T) {
	f := newFixture(renderImages(2))
	job := f.admit(t, store.AdmitInput{
		ArticleID:   "A1",
		ProductName: "Chair",
		References:  []string{"ref1.jpg"},
	})

	err := f.orch.Run(context.Background(), job.ID)
	require.NoError(t, err)

	got, _ := f.store.Get(job.ID)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.Equal(t, 0, f.publisher.calls)

	lines := logLines(got, pipeline.StagePublish)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "skipped")
}

func TestRun_PanicIsFatal(t *testing.T) {
	f := newFixture(&mockRenderer{
		RenderFunc: func(_ context.Context, _ string) (pipeline.RenderResult, error) {
			panic("renderer blew up")
		},
	})
	job := f.admit(t, store.AdmitInput{ArticleID: "A1", ProductName: "Chair"})

	err := f.orch.Run(context.Background(), job.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")
	assert.Contains(t, err.Error(), "renderer blew up")
}

func TestRun_MissingJobIsNoop(t *testing.T) {
	f := newFixture(renderImages(1))

	err := f.orch.Run(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 0, f.renderer.calls)
}
