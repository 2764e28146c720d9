package models

import "time"

// PageMetadata is the per-page information recorded in the metadata log.
type PageMetadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Canonical   string `json:"canonical"`
	Heading     string `json:"h1"`

	// Readability enrichment; empty when the page has no article content.
	Byline   string `json:"byline,omitempty"`
	SiteName string `json:"site_name,omitempty"`
	Excerpt  string `json:"excerpt,omitempty"`
	Language string `json:"language,omitempty"`

	WordCount int `json:"word_count,omitempty"`

	// TextHash and DOMHash are hex SimHash fingerprints of the rendered
	// text and tag structure. Stable pages keep them across runs.
	TextHash string `json:"text_simhash,omitempty"`
	DOMHash  string `json:"dom_simhash,omitempty"`

	PDFPages int `json:"pdf_pages,omitempty"`

	// FileSizes holds the byte length of every exported artifact.
	FileSizes map[FormatKind]int `json:"file_sizes"`
}

// RecordSize stores the byte length of an exported artifact.
func (m *PageMetadata) RecordSize(f FormatKind, n int) {
	if m.FileSizes == nil {
		m.FileSizes = make(map[FormatKind]int)
	}
	m.FileSizes[f] = n
}

// Artifact is one exported representation of a captured page.
type Artifact struct {
	Format FormatKind `json:"format"`
	Data   []byte     `json:"-"`

	// Filename is the base name plus format suffix, relative to the
	// output directory.
	Filename string `json:"filename"`
	Size     int    `json:"size"`
}

// PageResult is the outcome of rendering one URL.
type PageResult struct {
	URL        string        `json:"url"`
	Succeeded  bool          `json:"succeeded"`
	DurationMs int64         `json:"duration_ms"`
	Artifacts  []Artifact    `json:"artifacts,omitempty"`
	Metadata   *PageMetadata `json:"metadata,omitempty"`
	Error      *ErrorDetail  `json:"error,omitempty"`
}

// ErrorMessage returns the failure message or "" for successful pages.
func (r *PageResult) ErrorMessage() string {
	if r.Error == nil {
		return ""
	}
	return r.Error.Message
}

// BatchReport accumulates the page results of one run.
type BatchReport struct {
	Results    []PageResult `json:"results"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

// NewBatchReport creates an empty report stamped with the run start time.
func NewBatchReport() *BatchReport {
	return &BatchReport{
		Results:   []PageResult{},
		StartedAt: time.Now(),
	}
}

// Append records the result of one page.
func (b *BatchReport) Append(r PageResult) {
	b.Results = append(b.Results, r)
}

// Succeeded counts successful pages.
func (b *BatchReport) Succeeded() int {
	n := 0
	for _, r := range b.Results {
		if r.Succeeded {
			n++
		}
	}
	return n
}

// Failed counts failed pages.
func (b *BatchReport) Failed() int {
	return len(b.Results) - b.Succeeded()
}

// SucceededResults returns only the successful page results, in order.
func (b *BatchReport) SucceededResults() []PageResult {
	out := make([]PageResult, 0, len(b.Results))
	for _, r := range b.Results {
		if r.Succeeded {
			out = append(out, r)
		}
	}
	return out
}
