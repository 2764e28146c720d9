package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/use-agent/prerender/models"
)

func TestObservePage(t *testing.T) {
	m := NewMetrics()

	m.ObservePage(&models.PageResult{
		Succeeded:  true,
		DurationMs: 1500,
		Artifacts: []models.Artifact{
			{Format: models.FormatHTML, Size: 100},
			{Format: models.FormatText, Size: 20},
		},
	})
	m.ObservePage(&models.PageResult{
		DurationMs: 300,
		Error:      &models.ErrorDetail{Code: models.ErrCodeNavigation},
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PagesTotal.WithLabelValues("succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PagesTotal.WithLabelValues("failed")))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.ArtifactBytes.WithLabelValues("html")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues(models.ErrCodeNavigation)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.PageDuration))
}

func TestBatchOutcome(t *testing.T) {
	ok := models.PageResult{Succeeded: true}
	bad := models.PageResult{}

	tests := []struct {
		name    string
		results []models.PageResult
		want    string
	}{
		{"empty", nil, "failed"},
		{"all succeeded", []models.PageResult{ok, ok}, "completed"},
		{"mixed", []models.PageResult{ok, bad}, "partial"},
		{"all failed", []models.PageResult{bad}, "failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BatchOutcome(&models.BatchReport{Results: tt.results}))
		})
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObservePage(&models.PageResult{})
	m.ObserveBatch(models.NewBatchReport())
	m.IncError("X")
}
