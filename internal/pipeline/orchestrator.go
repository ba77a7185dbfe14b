// Package pipeline runs the per-job stage sequence: render, analyze,
// report, publish. Render is the only stage that can fail a job; the rest
// degrade, leaving the job to complete without their output.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aryakhanna/renderqa/internal/metrics"
	"github.com/aryakhanna/renderqa/internal/store"
	"github.com/aryakhanna/renderqa/pkg/models"
	"github.com/google/uuid"
)

// ErrNoImages is the fatal render outcome: the capture service returned
// without a single usable image.
var ErrNoImages = errors.New("render produced zero images")

// Orchestrator executes the stage sequence for one job at a time. Stages
// are constructor-injected so tests and alternative collaborators can swap
// them freely.
type Orchestrator struct {
	store     store.Store
	renderer  Renderer
	vision    models.VisionProvider
	reporter  Reporter
	publisher Publisher
	metrics   *metrics.Metrics
}

// NewOrchestrator wires the orchestrator. metrics may be nil.
func NewOrchestrator(st store.Store, r Renderer, v models.VisionProvider, rep Reporter, pub Publisher, m *metrics.Metrics) *Orchestrator {
	return &Orchestrator{
		store:     st,
		renderer:  r,
		vision:    v,
		reporter:  rep,
		publisher: pub,
		metrics:   m,
	}
}

// Run moves the job through Processing to Completed, or returns a fatal
// error for the caller's retry policy. Degrades never surface as errors;
// they are absorbed into the job's processing logs. Panics in collaborator
// code are recovered and treated as fatal.
func (o *Orchestrator) Run(ctx context.Context, id uuid.UUID) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in pipeline", "job_id", id, "error", r)
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	job, ok := o.store.Update(id, func(j *models.Job) {
		now := time.Now().UTC()
		j.Status = models.JobStatusProcessing
		j.StartedAt = &now
		j.AppendLog("pipeline", "started")
	})
	if !ok {
		// Evicted between enqueue and execution; nothing to run.
		slog.Warn("job missing at execution time", "job_id", id)
		return nil
	}

	if out := o.runRender(ctx, job); out.Kind == Fatal {
		return out.Err
	}
	job, _ = o.store.Get(id)

	analyzed := o.runAnalyze(ctx, job)
	if analyzed.Kind == Succeeded {
		job, _ = o.store.Get(id)

		if reported := o.runReport(ctx, job); reported.Kind == Succeeded {
			job, _ = o.store.Get(id)
			o.runPublish(ctx, job)
		}
	}

	o.store.Update(id, func(j *models.Job) {
		now := time.Now().UTC()
		j.Status = models.JobStatusCompleted
		j.CompletedAt = &now
		j.AppendLog("pipeline", "completed")
	})
	o.metrics.JobCompleted()
	slog.Info("job completed", "job_id", id, "article_id", job.ArticleID)
	return nil
}

// runRender captures images and model statistics. Per-angle failures are
// logged individually and tolerated; zero images is fatal.
func (o *Orchestrator) runRender(ctx context.Context, job *models.Job) Outcome {
	res, err := o.renderer.Render(ctx, job.ArticleID)
	if err != nil {
		return fatal(fmt.Errorf("render: %w", err))
	}
	if len(res.Images) == 0 {
		return fatal(fmt.Errorf("render: %w", ErrNoImages))
	}

	o.store.Update(job.ID, func(j *models.Job) {
		j.Images = append([]string(nil), res.Images...)
		j.ModelStats = res.ModelStats
		for _, fa := range res.FailedAngles {
			j.AppendLog(StageRender, fmt.Sprintf("angle %s failed: %s", fa.Angle, fa.Reason))
		}
		j.AppendLog(StageRender, fmt.Sprintf("captured %d images", len(res.Images)))
	})
	return succeed()
}

// runAnalyze compares rendered images against references. Skipped without
// any collaborator call when the job carries no references; any failure is
// a degrade, never fatal.
func (o *Orchestrator) runAnalyze(ctx context.Context, job *models.Job) Outcome {
	if len(job.References) == 0 {
		o.store.Update(job.ID, func(j *models.Job) {
			j.AppendLog(StageAnalyze, "no references supplied, analysis skipped")
		})
		return skip("no references")
	}

	result, err := o.vision.Compare(ctx, models.ComparisonRequest{
		ArticleID:   job.ArticleID,
		ProductName: job.ProductName,
		Images:      job.Images,
		References:  job.References,
		ModelStats:  job.ModelStats,
	})
	if err != nil {
		o.degradeStage(job.ID, StageAnalyze, err)
		return degrade(err)
	}

	o.store.Update(job.ID, func(j *models.Job) {
		j.Analysis = &result
		j.AppendLog(StageAnalyze, fmt.Sprintf("analysis complete, verdict %s, %d differences",
			result.Verdict, len(result.Differences)))
	})
	return succeed()
}

// runReport produces the report document. Runs only after a successful
// analysis; any failure is a degrade. An annotation fallback inside the
// reporter is logged but does not degrade the stage.
func (o *Orchestrator) runReport(ctx context.Context, job *models.Job) Outcome {
	res, err := o.reporter.Report(ctx, job)
	if err != nil {
		o.degradeStage(job.ID, StageReport, err)
		return degrade(err)
	}

	o.store.Update(job.ID, func(j *models.Job) {
		if !res.Annotated && res.AnnotationError != "" {
			j.AppendLog(StageReport, fmt.Sprintf("annotation failed, using unannotated images: %s", res.AnnotationError))
		}
		j.ReportURL = &res.URL
		j.AppendLog(StageReport, fmt.Sprintf("report ready at %s", res.URL))
	})
	if !res.Annotated && res.AnnotationError != "" {
		o.metrics.StageDegraded("annotate")
	}
	return succeed()
}

// runPublish propagates the verdict. Runs only when a report URL exists and
// the job carries a target record; failure is a degrade.
func (o *Orchestrator) runPublish(ctx context.Context, job *models.Job) Outcome {
	if job.ReportURL == nil {
		return skip("no report url")
	}
	if job.TargetRecord == "" {
		o.store.Update(job.ID, func(j *models.Job) {
			j.AppendLog(StagePublish, "no target record, publish skipped")
		})
		return skip("no target record")
	}

	if err := o.publisher.Publish(ctx, job); err != nil {
		o.degradeStage(job.ID, StagePublish, err)
		return degrade(err)
	}

	o.store.Update(job.ID, func(j *models.Job) {
		j.AppendLog(StagePublish, fmt.Sprintf("verdict published to %s via %s", j.TargetRecord, o.publisher.Name()))
	})
	return succeed()
}

// degradeStage appends exactly one log line for an absorbed stage failure.
func (o *Orchestrator) degradeStage(id uuid.UUID, stage string, err error) {
	o.store.Update(id, func(j *models.Job) {
		j.AppendLog(stage, fmt.Sprintf("%s degraded: %v", stage, err))
	})
	o.metrics.StageDegraded(stage)
	slog.Warn("stage degraded", "job_id", id, "stage", stage, "error", err)
}
