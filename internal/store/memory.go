package store

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aryakhanna/renderqa/pkg/models"
	"github.com/google/uuid"
)

const (
	defaultMaxJobs = 500
)

// MemoryStore is a bounded, mutex-guarded in-memory job table. When the
// table exceeds its bound after an admission, the oldest records that are
// not Processing are evicted until the table is back under the bound.
type MemoryStore struct {
	mu         sync.Mutex
	jobs       map[uuid.UUID]*record
	maxJobs    int
	maxRetries int
	seq        uint64
}

type record struct {
	job *models.Job
	seq uint64
}

// NewMemoryStore creates a MemoryStore holding at most maxJobs records and
// stamping maxRetries on every admitted job. Non-positive arguments fall
// back to defaults.
func NewMemoryStore(maxJobs, maxRetries int) *MemoryStore {
	if maxJobs <= 0 {
		maxJobs = defaultMaxJobs
	}
	if maxRetries <= 0 {
		maxRetries = models.DefaultMaxRetries
	}
	return &MemoryStore{
		jobs:       make(map[uuid.UUID]*record),
		maxJobs:    maxJobs,
		maxRetries: maxRetries,
	}
}

func (s *MemoryStore) Admit(in AdmitInput) (*models.Job, bool, error) {
	if err := validateInput(in); err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Idempotent de-duplication: one live record per article at a time.
	if rec := s.liveByArticleLocked(in.ArticleID); rec != nil {
		return cloneJob(rec.job), false, nil
	}

	s.seq++
	job := &models.Job{
		ID:           uuid.New(),
		ArticleID:    in.ArticleID,
		ProductName:  in.ProductName,
		References:   append([]string(nil), in.References...),
		TargetRecord: in.TargetRecord,
		Status:       models.JobStatusPending,
		MaxRetries:   s.maxRetries,
		CreatedAt:    time.Now().UTC(),
	}
	job.AppendLog("admission", "job admitted")
	s.jobs[job.ID] = &record{job: job, seq: s.seq}

	s.evictLocked()

	return cloneJob(job), true, nil
}

func (s *MemoryStore) Get(id uuid.UUID) (*models.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[id]
	if !ok {
		return nil, false
	}
	return cloneJob(rec.job), true
}

func (s *MemoryStore) GetByArticleID(articleID string) (*models.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var newest *record
	for _, rec := range s.jobs {
		if rec.job.ArticleID != articleID {
			continue
		}
		if newest == nil || rec.seq > newest.seq {
			newest = rec
		}
	}
	if newest == nil {
		return nil, false
	}
	return cloneJob(newest.job), true
}

func (s *MemoryStore) List(f Filter) []*models.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs := make([]*record, 0, len(s.jobs))
	for _, rec := range s.jobs {
		if f.ArticleID != "" && rec.job.ArticleID != f.ArticleID {
			continue
		}
		if f.Status != "" && rec.job.Status != f.Status {
			continue
		}
		recs = append(recs, rec)
	}

	// Newest first; admission sequence breaks CreatedAt ties.
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].job.CreatedAt.Equal(recs[j].job.CreatedAt) {
			return recs[i].seq > recs[j].seq
		}
		return recs[i].job.CreatedAt.After(recs[j].job.CreatedAt)
	})

	if f.Limit > 0 && len(recs) > f.Limit {
		recs = recs[:f.Limit]
	}

	jobs := make([]*models.Job, len(recs))
	for i, rec := range recs {
		jobs[i] = cloneJob(rec.job)
	}
	return jobs
}

func (s *MemoryStore) Update(id uuid.UUID, fn func(*models.Job)) (*models.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[id]
	if !ok {
		return nil, false
	}
	fn(rec.job)
	return cloneJob(rec.job), true
}

func (s *MemoryStore) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()

	var c Counts
	for _, rec := range s.jobs {
		switch rec.job.Status {
		case models.JobStatusPending:
			c.Pending++
		case models.JobStatusProcessing:
			c.Processing++
		case models.JobStatusCompleted:
			c.Completed++
		case models.JobStatusFailed:
			c.Failed++
		}
	}
	c.Total = len(s.jobs)
	return c
}

// liveByArticleLocked returns the Pending/Processing record for articleID,
// or nil. Caller holds s.mu.
func (s *MemoryStore) liveByArticleLocked(articleID string) *record {
	for _, rec := range s.jobs {
		if rec.job.ArticleID != articleID {
			continue
		}
		if rec.job.Status == models.JobStatusPending || rec.job.Status == models.JobStatusProcessing {
			return rec
		}
	}
	return nil
}

// evictLocked removes oldest-created records that are not Processing until
// the table is back under its bound. Caller holds s.mu.
func (s *MemoryStore) evictLocked() {
	if len(s.jobs) <= s.maxJobs {
		return
	}

	candidates := make([]*record, 0, len(s.jobs))
	for _, rec := range s.jobs {
		if rec.job.Status == models.JobStatusProcessing {
			continue
		}
		candidates = append(candidates, rec)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].job.CreatedAt.Equal(candidates[j].job.CreatedAt) {
			return candidates[i].seq < candidates[j].seq
		}
		return candidates[i].job.CreatedAt.Before(candidates[j].job.CreatedAt)
	})

	for _, rec := range candidates {
		if len(s.jobs) <= s.maxJobs {
			return
		}
		delete(s.jobs, rec.job.ID)
	}
}

func validateInput(in AdmitInput) error {
	if strings.TrimSpace(in.ArticleID) == "" {
		return fmt.Errorf("%w: article_id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.ProductName) == "" {
		return fmt.Errorf("%w: product_name is required", ErrInvalidInput)
	}
	for i, ref := range in.References {
		if strings.TrimSpace(ref) == "" {
			return fmt.Errorf("%w: references[%d] is empty", ErrInvalidInput, i)
		}
	}
	return nil
}

// cloneJob deep-copies a job so callers never share slices or maps with the
// record owned by the store.
func cloneJob(j *models.Job) *models.Job {
	cp := *j
	cp.References = append([]string(nil), j.References...)
	cp.Images = append([]string(nil), j.Images...)
	cp.Logs = append([]models.JobLog(nil), j.Logs...)
	if j.Error != nil {
		e := *j.Error
		cp.Error = &e
	}
	if j.ReportURL != nil {
		u := *j.ReportURL
		cp.ReportURL = &u
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		cp.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		cp.CompletedAt = &t
	}
	if j.ModelStats != nil {
		ms := *j.ModelStats
		cp.ModelStats = &ms
	}
	if j.Analysis != nil {
		a := *j.Analysis
		a.Differences = make([]models.Difference, len(j.Analysis.Differences))
		for i, d := range j.Analysis.Differences {
			d.Issues = append([]string(nil), d.Issues...)
			a.Differences[i] = d
		}
		if j.Analysis.Scores != nil {
			a.Scores = make(map[string]float64, len(j.Analysis.Scores))
			for k, v := range j.Analysis.Scores {
				a.Scores[k] = v
			}
		}
		cp.Analysis = &a
	}
	return &cp
}

var _ Store = (*MemoryStore)(nil)
