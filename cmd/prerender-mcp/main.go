package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/prerender/models"
)

// apiClient talks to a running prerender-server.
type apiClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	poll    time.Duration
}

func main() {
	apiURL := os.Getenv("PRERENDER_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}

	api := &apiClient{
		baseURL: strings.TrimRight(apiURL, "/"),
		apiKey:  os.Getenv("PRERENDER_API_KEY"),
		http:    &http.Client{Timeout: 30 * time.Second},
		poll:    2 * time.Second,
	}

	s := server.NewMCPServer(
		"prerender",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	renderURLTool := mcp.NewTool("render_url",
		mcp.WithDescription("Render a web page, or every page of an XML sitemap, in a headless browser and save offline copies (HTML, inlined HTML, screenshot, PDF, text) on the render server. Waits until the batch finishes and reports each page's outcome."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Page URL, or a sitemap URL ending in .xml"),
		),
		mcp.WithArray("formats",
			mcp.Description("Artifacts to export per page: html, html-minified, html-embedded, screenshot, pdf, text (default: html)"),
		),
		mcp.WithNumber("width",
			mcp.Description("Viewport width in CSS pixels (default: 1024)"),
		),
	)
	s.AddTool(renderURLTool, handleRenderURL(api))

	renderStatusTool := mcp.NewTool("render_status",
		mcp.WithDescription("Report the status and per-page results of a render job."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Job id returned by render_url"),
		),
	)
	s.AddTool(renderStatusTool, handleRenderStatus(api))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func (a *apiClient) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.apiKey != "" {
		req.Header.Set("X-API-Key", a.apiKey)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

func (a *apiClient) status(ctx context.Context, id string) (*models.JobStatusResponse, error) {
	code, body, err := a.do(ctx, http.MethodGet, "/api/v1/render/"+id, nil)
	if err != nil {
		return nil, err
	}
	if code != http.StatusOK {
		return nil, apiError(code, body)
	}
	var status models.JobStatusResponse
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("parse job status: %w", err)
	}
	return &status, nil
}

// waitForJob polls until the job leaves the queued and running states.
func (a *apiClient) waitForJob(ctx context.Context, id string) (*models.JobStatusResponse, error) {
	ticker := time.NewTicker(a.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			status, err := a.status(ctx, id)
			if err != nil {
				return nil, err
			}
			if status.Status != models.JobQueued && status.Status != models.JobRunning {
				return status, nil
			}
		}
	}
}

func apiError(code int, body []byte) error {
	var resp struct {
		Error *models.ErrorDetail `json:"error"`
	}
	if json.Unmarshal(body, &resp) == nil && resp.Error != nil {
		return fmt.Errorf("[%s] %s", resp.Error.Code, resp.Error.Message)
	}
	return fmt.Errorf("API returned HTTP %d", code)
}

func handleRenderURL(api *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		formats, err := request.RequireStringSlice("formats")
		if err != nil || len(formats) == 0 {
			formats = []string{string(models.FormatHTML)}
		}
		payload := map[string]any{
			"url":     url,
			"formats": formats,
		}
		if width, ok := request.GetArguments()["width"].(float64); ok && width > 0 {
			payload["width"] = int(width)
		}

		code, body, err := api.do(ctx, http.MethodPost, "/api/v1/render", payload)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if code != http.StatusAccepted {
			return mcp.NewToolResultError(apiError(code, body).Error()), nil
		}

		var accepted models.RenderResponse
		if err := json.Unmarshal(body, &accepted); err != nil || accepted.ID == "" {
			return mcp.NewToolResultError("render job creation failed"), nil
		}

		status, err := api.waitForJob(ctx, accepted.ID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("polling render job %s failed: %v", accepted.ID, err)), nil
		}
		return mcp.NewToolResultText(formatStatus(status)), nil
	}
}

func handleRenderStatus(api *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError("id is required"), nil
		}
		status, err := api.status(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatStatus(status)), nil
	}
}

func formatStatus(s *models.JobStatusResponse) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Render %s: %s (%d succeeded, %d failed of %d)\n", s.ID, s.Status, s.Succeeded, s.Failed, s.Total)
	if s.Error != nil {
		fmt.Fprintf(&sb, "Error: [%s] %s\n", s.Error.Code, s.Error.Message)
	}

	for i, r := range s.Results {
		sb.WriteString("\n")
		if !r.Succeeded {
			fmt.Fprintf(&sb, "[%d] %s FAILED (%d ms): %s\n", i+1, r.URL, r.DurationMs, r.ErrorMessage())
			continue
		}
		title := ""
		if r.Metadata != nil {
			title = r.Metadata.Title
		}
		fmt.Fprintf(&sb, "[%d] %s (%d ms) %s\n", i+1, r.URL, r.DurationMs, title)
		for _, a := range r.Artifacts {
			fmt.Fprintf(&sb, "    %s  %d bytes\n", a.Filename, a.Size)
		}
	}
	return sb.String()
}
