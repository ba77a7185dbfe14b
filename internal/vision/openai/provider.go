// Package openai implements the vision provider against an OpenAI-style
// chat completions API with image inputs.
package openai

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

const systemPrompt = `You are a 3D product QA reviewer. Compare the rendered images against the
reference images, taking the model statistics into account. Respond with a
single JSON object matching this shape exactly, no prose:
{"differences":[{"rendered_index":0,"reference_index":0,"issues":["..."],
"bbox":{"x":0,"y":0,"width":0,"height":0},"severity":"low|medium|high"}],
"summary":"...","verdict":"approved|not_approved",
"scores":{"geometry":0,"texture":0,"overall":0}}
Scores are 0-100 similarity values and are optional.`

// Provider implements models.VisionProvider using OpenAI.
type Provider struct {
	cfg    config.OpenAIConfig
	client *http.Client
}

func NewProvider(cfg config.OpenAIConfig, timeout time.Duration) *Provider {
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *Provider) Name() string { return "openai" }

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p *Provider) Compare(ctx context.Context, req models.ComparisonRequest) (models.AnalysisResult, error) {
	content := []contentPart{{Type: "text", Text: userText(req)}}
	for _, img := range req.Images {
		content = append(content, contentPart{Type: "image_url", ImageURL: &imageURL{URL: img}})
	}
	for _, ref := range req.References {
		content = append(content, contentPart{Type: "image_url", ImageURL: &imageURL{URL: ref}})
	}

	body, err := json.Marshal(chatRequest{
		Model: p.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: []contentPart{{Type: "text", Text: systemPrompt}}},
			{Role: "user", Content: content},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return models.AnalysisResult{}, fmt.Errorf("encoding comparison request: %w", err)
	}

	u := fmt.Sprintf("%s/v1/chat/completions", p.cfg.BaseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return models.AnalysisResult{}, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return models.AnalysisResult{}, fmt.Errorf("calling openai: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.AnalysisResult{}, fmt.Errorf("openai returned status %d", resp.StatusCode)
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return models.AnalysisResult{}, fmt.Errorf("decoding openai response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return models.AnalysisResult{}, fmt.Errorf("openai returned no choices")
	}

	return schema.Parse([]byte(cr.Choices[0].Message.Content))
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
