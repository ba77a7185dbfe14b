package publish_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/aryakhanna/renderqa/internal/config"
	"github.com/aryakhanna/renderqa/internal/publish"
	"github.com/aryakhanna/renderqa/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func publishedJob() *models.Job {
	reportURL := "https://reports.local/A123.html"
	return &models.Job{
		ArticleID:    "A123",
		ProductName:  "Chair",
		TargetRecord: "row 42",
		ReportURL:    &reportURL,
		Analysis: &models.AnalysisResult{
			Summary: "Clean match.",
			Verdict: models.VerdictApproved,
		},
	}
}

func TestNewPublisher_SelectsMode(t *testing.T) {
	p, err := publish.NewPublisher(config.PublishConfig{
		Mode:      "sheets",
		SheetsURL: "https://sheets.local",
		Timeout:   5 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, "sheets", p.Name())

	p, err = publish.NewPublisher(config.PublishConfig{
		Mode:         "workbook",
		WorkbookPath: filepath.Join(t.TempDir(), "verdicts.xlsx"),
	})
	require.NoError(t, err)
	assert.Equal(t, "workbook", p.Name())

	_, err = publish.NewPublisher(config.PublishConfig{Mode: "carrier-pigeon"})
	require.Error(t, err)
}

func TestSheetsClient_Publish(t *testing.T) {
	var gotPath string
	var gotUpdate map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotUpdate))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := publish.NewSheetsClient(srv.URL, 5*time.Second)
	err := c.Publish(context.Background(), publishedJob())
	require.NoError(t, err)

	assert.Equal(t, "/v1/records/row%2042", gotPath)
	assert.Equal(t, "A123", gotUpdate["article_id"])
	assert.Equal(t, models.VerdictApproved, gotUpdate["verdict"])
	assert.Equal(t, "https://reports.local/A123.html", gotUpdate["report_url"])
}

func TestSheetsClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	c := publish.NewSheetsClient(srv.URL, 5*time.Second)
	err := c.Publish(context.Background(), publishedJob())
	require.Error(t, err)
	assert.ErrorIs(t, err, publish.ErrSheetsUnavailable)
}

func TestWorkbookWriter_CreatesAndAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "verdicts.xlsx")
	w := publish.NewWorkbookWriter(path)

	require.NoError(t, w.Publish(context.Background(), publishedJob()))

	second := publishedJob()
	second.ArticleID = "B456"
	second.Analysis.Verdict = models.VerdictNotApproved
	require.NoError(t, w.Publish(context.Background(), second))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Verdicts")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Published At", rows[0][0])
	assert.Equal(t, "A123", rows[1][2])
	assert.Equal(t, models.VerdictApproved, rows[1][4])
	assert.Equal(t, "B456", rows[2][2])
	assert.Equal(t, models.VerdictNotApproved, rows[2][4])
}
