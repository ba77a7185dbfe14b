package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/aryakhanna/renderqa/internal/pipeline"
	"github.com/aryakhanna/renderqa/pkg/models"
)

var ErrSheetsUnavailable = errors.New("sheets service unavailable")

// SheetsClient publishes verdicts to an external record-update service.
type SheetsClient struct {
	baseURL string
	client  *http.Client
}

func NewSheetsClient(baseURL string, timeout time.Duration) *SheetsClient {
	return &SheetsClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *SheetsClient) Name() string { return "sheets" }

type recordUpdate struct {
	ArticleID   string     `json:"article_id"`
	ProductName string     `json:"product_name"`
	Verdict     string     `json:"verdict"`
	Summary     string     `json:"summary,omitempty"`
	ReportURL   string     `json:"report_url"`
	PublishedAt time.Time  `json:"published_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (c *SheetsClient) Publish(ctx context.Context, job *models.Job) error {
	upd := recordUpdate{
		ArticleID:   job.ArticleID,
		ProductName: job.ProductName,
		PublishedAt: time.Now().UTC(),
		CompletedAt: job.CompletedAt,
	}
	if job.Analysis != nil {
		upd.Verdict = job.Analysis.Verdict
		upd.Summary = job.Analysis.Summary
	}
	if job.ReportURL != nil {
		upd.ReportURL = *job.ReportURL
	}

	body, err := json.Marshal(upd)
	if err != nil {
		return fmt.Errorf("encoding record update: %w", err)
	}

	u := fmt.Sprintf("%s/v1/records/%s", c.baseURL, url.PathEscape(job.TargetRecord))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSheetsUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("%w: status %d", ErrSheetsUnavailable, resp.StatusCode)
	}
	return nil
}

var _ pipeline.Publisher = (*SheetsClient)(nil)
