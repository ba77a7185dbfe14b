// Package render is the client for the headless capture service that
// produces product images and model statistics.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/aryakhanna/renderqa/internal/pipeline"
	"github.com/aryakhanna/renderqa/pkg/models"
)

// Sentinel errors for render service failures.
var (
	ErrUnreachable = errors.New("render service unreachable")
	ErrRenderError = errors.New("render service error")
	ErrTimeout     = errors.New("render request timeout")
)

// HTTPClient implements pipeline.Renderer against the render service's HTTP
// API. The embedded http.Client timeout is the only deadline; the pipeline
// never cancels a render from above.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a new render service client.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type renderRequest struct {
	ArticleID string `json:"article_id"`
}

type renderResponse struct {
	Images       []string           `json:"images"`
	ModelStats   *models.ModelStats `json:"model_stats,omitempty"`
	FailedAngles []failedAngle      `json:"failed_angles,omitempty"`
}

type failedAngle struct {
	Angle  string `json:"angle"`
	Reason string `json:"reason"`
}

func (c *HTTPClient) Render(ctx context.Context, articleID string) (pipeline.RenderResult, error) {
	body, err := json.Marshal(renderRequest{ArticleID: articleID})
	if err != nil {
		return pipeline.RenderResult{}, fmt.Errorf("encoding render request: %w", err)
	}

	u := fmt.Sprintf("%s/v1/render", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return pipeline.RenderResult{}, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return pipeline.RenderResult{}, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return pipeline.RenderResult{}, fmt.Errorf("%w: status %d", ErrRenderError, resp.StatusCode)
	}

	var rr renderResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return pipeline.RenderResult{}, fmt.Errorf("decoding render response: %w", err)
	}

	result := pipeline.RenderResult{
		Images:     rr.Images,
		ModelStats: rr.ModelStats,
	}
	for _, fa := range rr.FailedAngles {
		result.FailedAngles = append(result.FailedAngles, pipeline.AngleFailure{
			Angle:  fa.Angle,
			Reason: fa.Reason,
		})
	}
	return result, nil
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}

var _ pipeline.Renderer = (*HTTPClient)(nil)
