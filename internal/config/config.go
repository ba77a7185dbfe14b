package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the RenderQA server.
type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	Render   RenderConfig
	Vision   VisionConfig
	Report   ReportConfig
	Publish  PublishConfig
	Pipeline PipelineConfig
}

type ServerConfig struct {
	Port            int
	Env             string
	RateLimitPerMin int
}

type RedisConfig struct {
	URL string
}

type RenderConfig struct {
	BaseURL string
	Timeout time.Duration
}

type VisionConfig struct {
	Provider  string
	Timeout   time.Duration
	OpenAI    OpenAIConfig
	Anthropic AnthropicConfig
}

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type AnthropicConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type ReportConfig struct {
	LayoutURL   string
	AnnotateURL string
	Timeout     time.Duration
}

type PublishConfig struct {
	Mode         string
	SheetsURL    string
	WorkbookPath string
	Timeout      time.Duration
}

type PipelineConfig struct {
	MaxRetries    int
	InterJobDelay time.Duration
	StoreMaxJobs  int
}

var validProviders = map[string]bool{
	"openai":    true,
	"anthropic": true,
	"mock":      true,
}

var validPublishModes = map[string]bool{
	"sheets":   true,
	"workbook": true,
}

// Load reads configuration from environment variables and returns a validated
// Config. A .env file is applied first when present. Returns an error with a
// descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            envInt("RENDERQA_PORT", 8080),
			Env:             envString("RENDERQA_ENV", "development"),
			RateLimitPerMin: envInt("RENDERQA_RATE_LIMIT_PER_MIN", 60),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Render: RenderConfig{
			BaseURL: os.Getenv("RENDER_BASE_URL"),
			Timeout: envDuration("RENDER_TIMEOUT", 2*time.Minute),
		},
		Vision: VisionConfig{
			Provider: os.Getenv("VISION_PROVIDER"),
			Timeout:  envDuration("VISION_TIMEOUT", 90*time.Second),
			OpenAI: OpenAIConfig{
				APIKey:  os.Getenv("OPENAI_API_KEY"),
				Model:   envString("OPENAI_MODEL", "gpt-4o"),
				BaseURL: envString("OPENAI_BASE_URL", "https://api.openai.com"),
			},
			Anthropic: AnthropicConfig{
				APIKey:  os.Getenv("ANTHROPIC_API_KEY"),
				Model:   envString("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
				BaseURL: envString("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
			},
		},
		Report: ReportConfig{
			LayoutURL:   os.Getenv("REPORT_LAYOUT_URL"),
			AnnotateURL: os.Getenv("REPORT_ANNOTATE_URL"),
			Timeout:     envDuration("REPORT_TIMEOUT", 60*time.Second),
		},
		Publish: PublishConfig{
			Mode:         envString("PUBLISH_MODE", "workbook"),
			SheetsURL:    os.Getenv("PUBLISH_SHEETS_URL"),
			WorkbookPath: envString("PUBLISH_WORKBOOK_PATH", "qa-verdicts.xlsx"),
			Timeout:      envDuration("PUBLISH_TIMEOUT", 30*time.Second),
		},
		Pipeline: PipelineConfig{
			MaxRetries:    envInt("PIPELINE_MAX_RETRIES", 3),
			InterJobDelay: envDuration("PIPELINE_INTER_JOB_DELAY", 2*time.Second),
			StoreMaxJobs:  envInt("PIPELINE_STORE_MAX_JOBS", 500),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Render.BaseURL == "" {
		return fmt.Errorf("RENDER_BASE_URL is required")
	}
	if !isHTTPURL(c.Render.BaseURL) {
		return fmt.Errorf("RENDER_BASE_URL must start with http:// or https://, got %q", c.Render.BaseURL)
	}

	if c.Vision.Provider == "" {
		return fmt.Errorf("VISION_PROVIDER is required")
	}
	if !validProviders[c.Vision.Provider] {
		return fmt.Errorf("VISION_PROVIDER must be one of openai, anthropic, mock; got %q", c.Vision.Provider)
	}
	if c.Vision.Provider == "openai" && c.Vision.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when VISION_PROVIDER is openai")
	}
	if c.Vision.Provider == "anthropic" && c.Vision.Anthropic.APIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required when VISION_PROVIDER is anthropic")
	}

	if c.Report.LayoutURL == "" {
		return fmt.Errorf("REPORT_LAYOUT_URL is required")
	}
	if !isHTTPURL(c.Report.LayoutURL) {
		return fmt.Errorf("REPORT_LAYOUT_URL must start with http:// or https://, got %q", c.Report.LayoutURL)
	}
	if c.Report.AnnotateURL != "" && !isHTTPURL(c.Report.AnnotateURL) {
		return fmt.Errorf("REPORT_ANNOTATE_URL must start with http:// or https://, got %q", c.Report.AnnotateURL)
	}

	if !validPublishModes[c.Publish.Mode] {
		return fmt.Errorf("PUBLISH_MODE must be one of sheets, workbook; got %q", c.Publish.Mode)
	}
	if c.Publish.Mode == "sheets" {
		if c.Publish.SheetsURL == "" {
			return fmt.Errorf("PUBLISH_SHEETS_URL is required when PUBLISH_MODE is sheets")
		}
		if !isHTTPURL(c.Publish.SheetsURL) {
			return fmt.Errorf("PUBLISH_SHEETS_URL must start with http:// or https://, got %q", c.Publish.SheetsURL)
		}
	}
	if c.Publish.Mode == "workbook" && c.Publish.WorkbookPath == "" {
		return fmt.Errorf("PUBLISH_WORKBOOK_PATH is required when PUBLISH_MODE is workbook")
	}

	if c.Pipeline.MaxRetries < 1 {
		return fmt.Errorf("PIPELINE_MAX_RETRIES must be at least 1, got %d", c.Pipeline.MaxRetries)
	}
	if c.Pipeline.StoreMaxJobs < 1 {
		return fmt.Errorf("PIPELINE_STORE_MAX_JOBS must be at least 1, got %d", c.Pipeline.StoreMaxJobs)
	}

	return nil
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
