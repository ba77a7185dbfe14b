package queue

import (
	"fmt"
	"time"

	"github.com/aryakhanna/renderqa/pkg/models"
)

// Decision is the retry policy's verdict for a failed attempt.
type Decision int

const (
	// Requeue: the job goes back to Pending at the tail of the queue.
	Requeue Decision = iota
	// Terminate: retries are exhausted; the job is Failed for good.
	Terminate
)

// RetryPolicy decides between requeue and terminal failure after a fatal
// stage error. It never sees degrades. Retries are immediate; the only
// pacing is the scheduler's fixed inter-job delay.
type RetryPolicy struct{}

// Apply mutates the job for one failed attempt: bumps the retry count,
// records the error, and flips status to Pending or Failed. The caller must
// hold the store lock (i.e. call this inside store.Update).
func (RetryPolicy) Apply(j *models.Job, cause error) Decision {
	j.Retries++
	msg := cause.Error()
	j.Error = &msg

	if j.Retries < j.MaxRetries {
		j.Status = models.JobStatusPending
		j.AppendLog("retry", fmt.Sprintf("attempt %d/%d failed: %s, requeued", j.Retries, j.MaxRetries, msg))
		return Requeue
	}

	now := time.Now().UTC()
	j.Status = models.JobStatusFailed
	j.CompletedAt = &now
	j.AppendLog("retry", fmt.Sprintf("attempt %d/%d failed: %s, retries exhausted", j.Retries, j.MaxRetries, msg))
	return Terminate
}
