// Command benchmark renders a fixed set of sites through a running
// prerender-server and reports average render time and artifact sizes.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/use-agent/prerender/models"
)

// CLI flags
var (
	apiURL  = flag.String("api-url", "http://localhost:8080", "prerender-server base URL")
	apiKey  = flag.String("api-key", "", "API key for authenticated requests")
	runs    = flag.Int("runs", 3, "Number of runs per URL for averaging")
	formats = flag.String("formats", "html,html-embedded,screenshot,pdf,text", "Formats to render")
	output  = flag.String("output", "benchmark-results.json", "JSON output file path")
)

// Test URLs covering 5 site types.
var testURLs = []struct {
	Label string
	URL   string
}{
	{"Static", "https://example.com"},
	{"Blog", "https://go.dev/blog/go1.21"},
	{"Docs", "https://go.dev/doc/effective_go"},
	{"News", "https://www.bbc.com/news"},
	{"Complex", "https://github.com/go-rod/rod"},
}

// --- Benchmark result types ---

type runResult struct {
	Run        int                       `json:"run"`
	DurationMs int64                     `json:"duration_ms"`
	Sizes      map[models.FormatKind]int `json:"sizes,omitempty"`
	PDFPages   int                       `json:"pdf_pages,omitempty"`
	HasTitle   bool                      `json:"has_title"`
	Success    bool                      `json:"success"`
	Error      string                    `json:"error,omitempty"`
}

type urlAverages struct {
	DurationMs float64                       `json:"duration_ms"`
	Sizes      map[models.FormatKind]float64 `json:"sizes"`
}

type urlResult struct {
	URL      string       `json:"url"`
	Label    string       `json:"label"`
	Runs     []runResult  `json:"runs"`
	Averages *urlAverages `json:"averages,omitempty"`
}

type benchmarkReport struct {
	Timestamp  string      `json:"timestamp"`
	APIURL     string      `json:"api_url"`
	RunsPerURL int         `json:"runs_per_url"`
	Formats    []string    `json:"formats"`
	Results    []urlResult `json:"results"`
}

func main() {
	flag.Parse()
	formatList := strings.Split(*formats, ",")

	fmt.Println("=== Prerender Benchmark Suite ===")
	fmt.Printf("API URL:   %s\n", *apiURL)
	fmt.Printf("Runs/URL:  %d\n", *runs)
	fmt.Printf("Formats:   %s\n", *formats)
	fmt.Printf("Output:    %s\n", *output)
	fmt.Println()

	client := &http.Client{Timeout: 30 * time.Second}

	if err := checkAPI(client, *apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		fmt.Fprintf(os.Stderr, "Make sure prerender-server is running\n")
		os.Exit(1)
	}

	report := benchmarkReport{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		APIURL:     *apiURL,
		RunsPerURL: *runs,
		Formats:    formatList,
	}

	for _, t := range testURLs {
		fmt.Printf("Benchmarking [%s] %s ...\n", t.Label, t.URL)
		ur := urlResult{URL: t.URL, Label: t.Label}

		for i := 1; i <= *runs; i++ {
			fmt.Printf("  Run %d/%d ... ", i, *runs)
			rr := benchmarkURL(client, t.URL, formatList, i)
			if rr.Success {
				fmt.Printf("OK  %dms\n", rr.DurationMs)
			} else {
				fmt.Printf("FAILED: %s\n", rr.Error)
			}
			ur.Runs = append(ur.Runs, rr)
		}

		ur.Averages = computeAverages(ur.Runs)
		report.Results = append(report.Results, ur)
		fmt.Println()
	}

	printTable(report.Results, formatList)

	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func checkAPI(client *http.Client, baseURL string) error {
	resp, err := client.Get(baseURL + "/api/v1/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func newRequest(method, path string, body []byte) (*http.Request, error) {
	req, err := http.NewRequest(method, *apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if *apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+*apiKey)
	}
	return req, nil
}

// benchmarkURL submits one render job into a scratch directory and waits
// for it to finish.
func benchmarkURL(client *http.Client, url string, formatList []string, run int) runResult {
	rr := runResult{Run: run}

	body, err := json.Marshal(map[string]any{
		"url":     url,
		"formats": formatList,
		"output":  fmt.Sprintf("benchmark/run-%d", run),
	})
	if err != nil {
		rr.Error = fmt.Sprintf("marshal error: %v", err)
		return rr
	}

	req, err := newRequest(http.MethodPost, "/api/v1/render", body)
	if err != nil {
		rr.Error = fmt.Sprintf("request error: %v", err)
		return rr
	}
	resp, err := client.Do(req)
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr
	}
	var accepted models.RenderResponse
	err = json.NewDecoder(resp.Body).Decode(&accepted)
	resp.Body.Close()
	if err != nil || accepted.ID == "" {
		rr.Error = fmt.Sprintf("job not accepted (HTTP %d)", resp.StatusCode)
		return rr
	}

	status, err := waitForJob(client, accepted.ID, 5*time.Minute)
	if err != nil {
		rr.Error = err.Error()
		return rr
	}
	if len(status.Results) == 0 {
		rr.Error = "no page rendered"
		if status.Error != nil {
			rr.Error = status.Error.Message
		}
		return rr
	}

	page := status.Results[0]
	rr.Success = page.Succeeded
	rr.DurationMs = page.DurationMs
	rr.Error = page.ErrorMessage()
	if page.Metadata != nil {
		rr.Sizes = page.Metadata.FileSizes
		rr.PDFPages = page.Metadata.PDFPages
		rr.HasTitle = page.Metadata.Title != ""
	}
	return rr
}

func waitForJob(client *http.Client, id string, limit time.Duration) (*models.JobStatusResponse, error) {
	deadline := time.Now().Add(limit)
	for time.Now().Before(deadline) {
		time.Sleep(time.Second)

		req, err := newRequest(http.MethodGet, "/api/v1/render/"+id, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("poll failed: %w", err)
		}
		var status models.JobStatusResponse
		err = json.NewDecoder(resp.Body).Decode(&status)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("decode error: %w", err)
		}
		if status.Status != models.JobQueued && status.Status != models.JobRunning {
			return &status, nil
		}
	}
	return nil, fmt.Errorf("job %s did not finish within %s", id, limit)
}

func computeAverages(runs []runResult) *urlAverages {
	var successCount int
	avg := urlAverages{Sizes: make(map[models.FormatKind]float64)}

	for _, r := range runs {
		if !r.Success {
			continue
		}
		successCount++
		avg.DurationMs += float64(r.DurationMs)
		for f, n := range r.Sizes {
			avg.Sizes[f] += float64(n)
		}
	}

	if successCount == 0 {
		return nil
	}

	n := float64(successCount)
	avg.DurationMs /= n
	for f := range avg.Sizes {
		avg.Sizes[f] /= n
	}
	return &avg
}

func printTable(results []urlResult, formatList []string) {
	sorted := append([]string(nil), formatList...)
	sort.Strings(sorted)

	fmt.Println(strings.Repeat("─", 100))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "URL\tAvg Render")
	for _, f := range sorted {
		fmt.Fprintf(w, "\t%s", f)
	}
	fmt.Fprintln(w)

	for _, r := range results {
		if r.Averages == nil {
			fmt.Fprintf(w, "%s\tFAILED\n", truncateURL(r.URL, 40))
			continue
		}
		fmt.Fprintf(w, "%s\t%dms", truncateURL(r.URL, 40), int64(r.Averages.DurationMs))
		for _, f := range sorted {
			fmt.Fprintf(w, "\t%s", formatBytes(r.Averages.Sizes[models.FormatKind(f)]))
		}
		fmt.Fprintln(w)
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 100))
}

func truncateURL(u string, max int) string {
	if len(u) <= max {
		return u
	}
	return u[:max-3] + "..."
}

func formatBytes(n float64) string {
	switch {
	case n <= 0:
		return "-"
	case n < 1<<10:
		return fmt.Sprintf("%.0f B", n)
	case n < 1<<20:
		return fmt.Sprintf("%.1f KiB", n/(1<<10))
	default:
		return fmt.Sprintf("%.1f MiB", n/(1<<20))
	}
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
