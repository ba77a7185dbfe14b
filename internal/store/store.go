package store

import (
	"errors"

	"github.com/aryakhanna/renderqa/pkg/models"
	"github.com/google/uuid"
)

// ErrInvalidInput marks admission failures. These surface synchronously to
// the caller of Admit and are never retried.
var ErrInvalidInput = errors.New("invalid admission input")

// AdmitInput is the payload accepted by Admit.
type AdmitInput struct {
	ArticleID    string
	ProductName  string
	References   []string
	TargetRecord string
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	ArticleID string
	Status    string
	Limit     int
}

// Counts are the per-status record totals, computed on demand.
type Counts struct {
	Pending    int
	Processing int
	Completed  int
	Failed     int
	Total      int
}

// Store is the job table. All pipeline state lives here, in process memory;
// nothing survives a restart.
//
// Reads return defensive copies. Mutations go through Update so the table
// stays consistent under concurrent status queries while the single worker
// runs.
type Store interface {
	// Admit returns the existing Pending/Processing record for the same
	// ArticleID unchanged if one exists; otherwise it creates a new Pending
	// record. The second return value reports whether a record was created.
	Admit(in AdmitInput) (*models.Job, bool, error)
	Get(id uuid.UUID) (*models.Job, bool)
	GetByArticleID(articleID string) (*models.Job, bool)
	// List returns records ordered by CreatedAt descending.
	List(f Filter) []*models.Job
	// Update applies fn to the record under the store lock and returns a
	// copy of the result.
	Update(id uuid.UUID, fn func(*models.Job)) (*models.Job, bool)
	Counts() Counts
}
