// Package anthropic implements the vision provider against the Anthropic
// Messages API with image inputs.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aryakhanna/renderqa/internal/config"
	"github.com/aryakhanna/renderqa/internal/vision/schema"
	"github.com/aryakhanna/renderqa/pkg/models"
)

const anthropicVersion = "2023-06-01"

const systemPrompt = `You are a 3D product QA reviewer. Compare the rendered images against the
reference images, taking the model statistics into account. Respond with a
single JSON object matching this shape exactly, no prose and no code fences:
{"differences":[{"rendered_index":0,"reference_index":0,"issues":["..."],
"bbox":{"x":0,"y":0,"width":0,"height":0},"severity":"low|medium|high"}],
"summary":"...","verdict":"approved|not_approved",
"scores":{"geometry":0,"texture":0,"overall":0}}
Scores are 0-100 similarity values and are optional.`

// Provider implements models.VisionProvider using Anthropic.
type Provider struct {
	cfg    config.AnthropicConfig
	client *http.Client
}

func NewProvider(cfg config.AnthropicConfig, timeout time.Duration) *Provider {
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *Provider) Name() string { return "anthropic" }

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (p *Provider) Compare(ctx context.Context, req models.ComparisonRequest) (models.AnalysisResult, error) {
	content := []contentBlock{{Type: "text", Text: userText(req)}}
	for _, img := range req.Images {
		content = append(content, contentBlock{Type: "image", Source: &imageSource{Type: "url", URL: img}})
	}
	for _, ref := range req.References {
		content = append(content, contentBlock{Type: "image", Source: &imageSource{Type: "url", URL: ref}})
	}

	body, err := json.Marshal(messagesRequest{
		Model:     p.cfg.Model,
		MaxTokens: 4096,
		System:    systemPrompt,
		Messages:  []message{{Role: "user", Content: content}},
	})
	if err != nil {
		return models.AnalysisResult{}, fmt.Errorf("encoding comparison request: %w", err)
	}

	u := fmt.Sprintf("%s/v1/messages", p.cfg.BaseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return models.AnalysisResult{}, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.cfg.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return models.AnalysisResult{}, fmt.Errorf("calling anthropic: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.AnalysisResult{}, fmt.Errorf("anthropic returned status %d", resp.StatusCode)
	}

	var mr messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return models.AnalysisResult{}, fmt.Errorf("decoding anthropic response: %w", err)
	}
	for _, block := range mr.Content {
		if block.Type == "text" {
			return schema.Parse([]byte(block.Text))
		}
	}
	return models.AnalysisResult{}, fmt.Errorf("anthropic returned no text content")
}

func userText(req models.ComparisonRequest) string {
	text := fmt.Sprintf("Article %s (%s): the first %d images are renders, the remaining %d are references.",
		req.ArticleID, req.ProductName, len(req.Images), len(req.References))
	if req.ModelStats != nil {
		text += fmt.Sprintf(" Model stats: %d meshes, %d materials, %d vertices, %d triangles, %d double-sided, %d bytes.",
			req.ModelStats.MeshCount, req.ModelStats.MaterialCount, req.ModelStats.Vertices,
			req.ModelStats.Triangles, req.ModelStats.DoubleSidedCount, req.ModelStats.FileSize)
	}
	return text
}

var _ models.VisionProvider = (*Provider)(nil)
