// Package publish propagates a finished job's verdict to its target record,
// either over HTTP to a sheets service or into a local XLSX workbook.
package publish

import (
	"fmt"

	"github.com/aryakhanna/renderqa/internal/config"
	"github.com/aryakhanna/renderqa/internal/pipeline"
)

// NewPublisher constructs the publisher selected by config. Called once at
// server startup.
func NewPublisher(cfg config.PublishConfig) (pipeline.Publisher, error) {
	switch cfg.Mode {
	case "sheets":
		return NewSheetsClient(cfg.SheetsURL, cfg.Timeout), nil
	case "workbook":
		return NewWorkbookWriter(cfg.WorkbookPath), nil
	default:
		return nil, fmt.Errorf("unknown publish mode %q: must be one of sheets, workbook", cfg.Mode)
	}
}
