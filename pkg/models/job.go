package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// DefaultMaxRetries is the number of attempts a job gets before it is
// marked failed for good.
const DefaultMaxRetries = 3

// Job is one request to validate a rendered 3D asset against reference
// imagery. The API returns the record on POST /api/v1/jobs; the client polls
// GET /api/v1/jobs/{id} until status is completed or failed.
//
// A job is mutated only by the single pipeline worker once admitted. Stage
// outputs (Images, ModelStats, Analysis, ReportURL) are populated as stages
// succeed and stay nil/empty when a stage is skipped or degrades.
type Job struct {
	ID           uuid.UUID       `json:"id"`
	ArticleID    string          `json:"article_id"`
	ProductName  string          `json:"product_name"`
	References   []string        `json:"references"`
	TargetRecord string          `json:"target_record,omitempty"`
	Status       string          `json:"status"`
	Retries      int             `json:"retries"`
	MaxRetries   int             `json:"max_retries"`
	Error        *string         `json:"error,omitempty"`
	Images       []string        `json:"images,omitempty"`
	ModelStats   *ModelStats     `json:"model_stats,omitempty"`
	Analysis     *AnalysisResult `json:"analysis,omitempty"`
	ReportURL    *string         `json:"report_url,omitempty"`
	Logs         []JobLog        `json:"logs"`
	CreatedAt    time.Time       `json:"created_at"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// JobLog is one append-only processing event. Logs only grow for the life
// of the record; they are never truncated.
type JobLog struct {
	At      time.Time `json:"at"`
	Stage   string    `json:"stage"`
	Message string    `json:"message"`
}

// AppendLog records a processing event on the job.
func (j *Job) AppendLog(stage, message string) {
	j.Logs = append(j.Logs, JobLog{At: time.Now().UTC(), Stage: stage, Message: message})
}

// Terminal reports whether the job has reached a final status.
func (j *Job) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// ModelStats are geometry statistics extracted alongside the rendered
// images by the render service.
type ModelStats struct {
	MeshCount        int   `json:"mesh_count"`
	MaterialCount    int   `json:"material_count"`
	Vertices         int   `json:"vertices"`
	Triangles        int   `json:"triangles"`
	DoubleSidedCount int   `json:"double_sided_count"`
	FileSize         int64 `json:"file_size"`
}
