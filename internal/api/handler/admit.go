package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aryakhanna/renderqa/internal/api/response"
	"github.com/aryakhanna/renderqa/internal/metrics"
	"github.com/aryakhanna/renderqa/internal/store"
	"github.com/google/uuid"
)

// Enqueuer hands an admitted job id to the scheduler.
type Enqueuer interface {
	Enqueue(id uuid.UUID)
}

// NewAdmitHandler returns an http.HandlerFunc for POST /api/v1/jobs.
// Admitting an article that already has a Pending/Processing job returns
// the existing record with 200; a fresh admission enqueues and returns 202.
func NewAdmitHandler(st store.Store, q Enqueuer, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ArticleID    string   `json:"article_id"`
			ProductName  string   `json:"product_name"`
			References   []string `json:"references"`
			TargetRecord string   `json:"target_record"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		job, created, err := st.Admit(store.AdmitInput{
			ArticleID:    req.ArticleID,
			ProductName:  req.ProductName,
			References:   req.References,
			TargetRecord: req.TargetRecord,
		})
		if err != nil {
			if errors.Is(err, store.ErrInvalidInput) {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		if !created {
			response.JSON(w, job)
			return
		}

		m.JobAdmitted()
		q.Enqueue(job.ID)
		response.Accepted(w, job)
	}
}
