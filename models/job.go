package models

// Job status values reported by the HTTP API.
const (
	JobQueued    = "queued"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobPartial   = "partial"
	JobFailed    = "failed"
)

// RenderResponse is the immediate response for POST /api/v1/render.
type RenderResponse struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Error  *ErrorDetail `json:"error,omitempty"`
}

// JobStatusResponse is the response for GET /api/v1/render/:id.
type JobStatusResponse struct {
	ID        string       `json:"id"`
	Status    string       `json:"status"`
	URL       string       `json:"url"`
	Total     int          `json:"total"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Results   []PageResult `json:"results,omitempty"`
	Error     *ErrorDetail `json:"error,omitempty"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status     string `json:"status"` // "healthy" or "busy"
	Uptime     string `json:"uptime"`
	QueueDepth int    `json:"queue_depth"`
	Running    bool   `json:"running"`
	Version    string `json:"version"`
}
