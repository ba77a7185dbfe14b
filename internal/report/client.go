// Package report builds the QA report document via the layout service,
// overlaying difference annotations when the annotation service cooperates.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aryakhanna/renderqa/internal/config"
	"github.com/aryakhanna/renderqa/internal/pipeline"
	"github.com/aryakhanna/renderqa/pkg/models"
)

var (
	ErrLayoutUnavailable   = errors.New("layout service unavailable")
	ErrAnnotateUnavailable = errors.New("annotation service unavailable")
)

// Client implements pipeline.Reporter. Annotation failures fall back to the
// unannotated source images; only a layout failure fails the stage.
type Client struct {
	layoutURL   string
	annotateURL string
	client      *http.Client
}

func NewClient(cfg config.ReportConfig) *Client {
	return &Client{
		layoutURL:   cfg.LayoutURL,
		annotateURL: cfg.AnnotateURL,
		client:      &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) Report(ctx context.Context, job *models.Job) (pipeline.ReportResult, error) {
	images := job.Images
	annotated := false
	annotationErr := ""

	if c.annotateURL != "" && job.Analysis != nil && len(job.Analysis.Differences) > 0 {
		overlaid, err := c.annotate(ctx, job.Images, job.Analysis.Differences)
		if err != nil {
			annotationErr = err.Error()
		} else {
			images = overlaid
			annotated = true
		}
	}

	url, err := c.layout(ctx, job, images)
	if err != nil {
		return pipeline.ReportResult{}, err
	}

	return pipeline.ReportResult{
		URL:             url,
		Annotated:       annotated,
		AnnotationError: annotationErr,
	}, nil
}

type annotateRequest struct {
	Images      []string            `json:"images"`
	Differences []models.Difference `json:"differences"`
}

type annotateResponse struct {
	Images []string `json:"images"`
}

func (c *Client) annotate(ctx context.Context, images []string, diffs []models.Difference) ([]string, error) {
	body, err := json.Marshal(annotateRequest{Images: images, Differences: diffs})
	if err != nil {
		return nil, fmt.Errorf("encoding annotate request: %w", err)
	}

	u := fmt.Sprintf("%s/v1/annotate", c.annotateURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnnotateUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrAnnotateUnavailable, resp.StatusCode)
	}

	var ar annotateResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return nil, fmt.Errorf("decoding annotate response: %w", err)
	}
	if len(ar.Images) == 0 {
		return nil, fmt.Errorf("%w: returned no images", ErrAnnotateUnavailable)
	}
	return ar.Images, nil
}

type layoutRequest struct {
	ArticleID   string                 `json:"article_id"`
	ProductName string                 `json:"product_name"`
	Images      []string               `json:"images"`
	References  []string               `json:"references"`
	ModelStats  *models.ModelStats     `json:"model_stats,omitempty"`
	Analysis    *models.AnalysisResult `json:"analysis,omitempty"`
	GeneratedAt time.Time              `json:"generated_at"`
}

type layoutResponse struct {
	ReportURL string `json:"report_url"`
}

func (c *Client) layout(ctx context.Context, job *models.Job, images []string) (string, error) {
	body, err := json.Marshal(layoutRequest{
		ArticleID:   job.ArticleID,
		ProductName: job.ProductName,
		Images:      images,
		References:  job.References,
		ModelStats:  job.ModelStats,
		Analysis:    job.Analysis,
		GeneratedAt: time.Now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("encoding layout request: %w", err)
	}

	u := fmt.Sprintf("%s/v1/reports", c.layoutURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLayoutUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrLayoutUnavailable, resp.StatusCode)
	}

	var lr layoutResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return "", fmt.Errorf("decoding layout response: %w", err)
	}
	if lr.ReportURL == "" {
		return "", fmt.Errorf("%w: returned empty report url", ErrLayoutUnavailable)
	}
	return lr.ReportURL, nil
}

var _ pipeline.Reporter = (*Client)(nil)
