package publish

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/aryakhanna/renderqa/internal/pipeline"
	"github.com/aryakhanna/renderqa/pkg/models"
)

const sheet = "Verdicts"

var headers = []string{
	"Published At",
	"Target Record",
	"Article ID",
	"Product",
	"Verdict",
	"Summary",
	"Report URL",
}

// WorkbookWriter appends verdict rows to a local XLSX workbook. Useful when
// no sheets service is deployed; the workbook is created on first publish.
type WorkbookWriter struct {
	mu   sync.Mutex
	path string
}

func NewWorkbookWriter(path string) *WorkbookWriter {
	return &WorkbookWriter{path: path}
}

func (w *WorkbookWriter) Name() string { return "workbook" }

func (w *WorkbookWriter) Publish(_ context.Context, job *models.Job) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := w.open()
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("reading workbook rows: %w", err)
	}
	row := len(rows) + 1

	verdict, summary := "", ""
	if job.Analysis != nil {
		verdict = job.Analysis.Verdict
		summary = job.Analysis.Summary
	}
	reportURL := ""
	if job.ReportURL != nil {
		reportURL = *job.ReportURL
	}

	values := []any{
		time.Now().UTC().Format(time.RFC3339),
		job.TargetRecord,
		job.ArticleID,
		job.ProductName,
		verdict,
		summary,
		reportURL,
	}
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("writing cell %s: %w", cell, err)
		}
	}

	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}

// open loads the workbook from disk, or creates a fresh one with the header
// row when the file does not exist yet.
func (w *WorkbookWriter) open() (*excelize.File, error) {
	if _, err := os.Stat(w.path); err == nil {
		f, err := excelize.OpenFile(w.path)
		if err != nil {
			return nil, fmt.Errorf("opening workbook: %w", err)
		}
		return f, nil
	}

	f := excelize.NewFile()
	if _, err := f.NewSheet(sheet); err != nil {
		return nil, fmt.Errorf("creating sheet: %w", err)
	}
	index, err := f.GetSheetIndex(sheet)
	if err != nil {
		return nil, fmt.Errorf("locating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, fmt.Errorf("writing header %s: %w", cell, err)
		}
	}
	_ = f.SetColWidth(sheet, "A", "A", 22)
	_ = f.SetColWidth(sheet, "B", "D", 18)
	_ = f.SetColWidth(sheet, "E", "E", 14)
	_ = f.SetColWidth(sheet, "F", "F", 48)
	_ = f.SetColWidth(sheet, "G", "G", 60)

	return f, nil
}

var _ pipeline.Publisher = (*WorkbookWriter)(nil)
