// Package telemetry records what a render run produced: the optional timing
// CSV, the metadata JSON log and Prometheus collectors.
package telemetry

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/use-agent/prerender/models"
)

// Fixed output filenames, relative to the run's output directory.
const (
	TimingFile   = "timing.csv"
	MetadataFile = "metadata.json"
)

var timingHeader = []string{"URL", "Time (ms)"}

// Entry is one element of the metadata log.
type Entry struct {
	URL        string `json:"url"`
	DurationMs int64  `json:"duration_ms"`
	*models.PageMetadata
}

// Write emits the telemetry files for report into dir. The timing CSV is
// written only when withCSV is set and at least one page succeeded; the
// metadata log is always written, even when the CSV fails. Existing files
// are overwritten.
func Write(report *models.BatchReport, dir string, withCSV bool) error {
	succeeded := report.SucceededResults()

	var timingErr error
	if withCSV && len(succeeded) > 0 {
		timingErr = writeTiming(filepath.Join(dir, TimingFile), succeeded)
	}
	metaErr := writeMetadata(filepath.Join(dir, MetadataFile), succeeded)
	return errors.Join(timingErr, metaErr)
}

func writeTiming(path string, results []models.PageResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create timing file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(timingHeader); err != nil {
		return fmt.Errorf("write timing header: %w", err)
	}
	for _, r := range results {
		if err := w.Write([]string{r.URL, strconv.FormatInt(r.DurationMs, 10)}); err != nil {
			return fmt.Errorf("write timing record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush timing file: %w", err)
	}
	return f.Close()
}

func writeMetadata(path string, results []models.PageResult) error {
	entries := make([]Entry, 0, len(results))
	for _, r := range results {
		meta := r.Metadata
		if meta == nil {
			meta = &models.PageMetadata{}
		}
		entries = append(entries, Entry{URL: r.URL, DurationMs: r.DurationMs, PageMetadata: meta})
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create metadata file: %w", err)
	}
	defer f.Close()

	buf := bufio.NewWriter(f)
	enc := json.NewEncoder(buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("flush metadata file: %w", err)
	}
	return f.Close()
}
