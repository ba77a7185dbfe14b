package handler

import (
	"net/http"
	"strconv"

	"github.com/aryakhanna/renderqa/internal/api/response"
	"github.com/aryakhanna/renderqa/internal/store"
	"github.com/aryakhanna/renderqa/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Snapshotter computes the queue view on demand.
type Snapshotter interface {
	Snapshot() models.QueueSnapshot
}

var validStatuses = map[string]bool{
	models.JobStatusPending:    true,
	models.JobStatusProcessing: true,
	models.JobStatusCompleted:  true,
	models.JobStatusFailed:     true,
}

// NewGetJobHandler returns an http.HandlerFunc for GET /api/v1/jobs/{jobID}.
func NewGetJobHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobID must be a valid UUID", nil)
			return
		}

		job, ok := st.Get(id)
		if !ok {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "No job with that id", nil)
			return
		}
		response.JSON(w, job)
	}
}

type listMeta struct {
	Count    int                  `json:"count"`
	Snapshot models.QueueSnapshot `json:"snapshot"`
}

// NewListJobsHandler returns an http.HandlerFunc for GET /api/v1/jobs.
// Supports article_id, status and limit query parameters; records come back
// newest first alongside a queue snapshot.
func NewListJobsHandler(st store.Store, snap Snapshotter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		status := q.Get("status")
		if status != "" && !validStatuses[status] {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"status must be one of pending, processing, completed, failed", nil)
			return
		}

		limit := 50
		if v := q.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be a positive integer", nil)
				return
			}
			limit = n
		}
		if limit > 200 {
			limit = 200
		}

		jobs := st.List(store.Filter{
			ArticleID: q.Get("article_id"),
			Status:    status,
			Limit:     limit,
		})

		response.Collection(w, jobs, listMeta{
			Count:    len(jobs),
			Snapshot: snap.Snapshot(),
		})
	}
}

// NewQueueHandler returns an http.HandlerFunc for GET /api/v1/queue.
func NewQueueHandler(snap Snapshotter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, snap.Snapshot())
	}
}
