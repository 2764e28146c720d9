// Package webhook notifies an external endpoint when a render batch ends.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/use-agent/prerender/config"
	"github.com/use-agent/prerender/models"
)

// EventBatchCompleted is sent once per finished render job.
const EventBatchCompleted = "batch.completed"

// SignatureHeader carries the HMAC-SHA256 of the body when a secret is set.
const SignatureHeader = "X-Prerender-Signature"

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type      string `json:"type"`
	JobID     string `json:"job_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

// BatchSummary is the data of a batch.completed event.
type BatchSummary struct {
	URL       string `json:"url"`
	Status    string `json:"status"`
	Total     int    `json:"total"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Error     string `json:"error,omitempty"`
}

// Notifier posts signed events. Deliveries run in the background and are
// retried; Wait blocks until all of them finished.
type Notifier struct {
	url    string
	secret string
	client *http.Client
	logger *slog.Logger

	// retryDelays is the wait before each attempt.
	retryDelays []time.Duration

	wg sync.WaitGroup
}

// New returns a Notifier, or nil when no endpoint is configured. A nil
// Notifier drops every event.
func New(cfg config.WebhookConfig, logger *slog.Logger) *Notifier {
	if cfg.URL == "" {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		url:         cfg.URL,
		secret:      cfg.Secret,
		client:      &http.Client{Timeout: 10 * time.Second},
		logger:      logger,
		retryDelays: []time.Duration{0, 1 * time.Second, 5 * time.Second, 30 * time.Second},
	}
}

// BatchCompleted builds the event for a finished job. report may be nil
// when the batch aborted before any page was rendered.
func BatchCompleted(jobID, url, status string, report *models.BatchReport, jobErr error) *Event {
	summary := BatchSummary{URL: url, Status: status}
	if report != nil {
		summary.Total = len(report.Results)
		summary.Succeeded = report.Succeeded()
		summary.Failed = report.Failed()
	}
	if jobErr != nil {
		summary.Error = jobErr.Error()
	}
	return &Event{
		Type:      EventBatchCompleted,
		JobID:     jobID,
		Timestamp: time.Now().Unix(),
		Data:      summary,
	}
}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Deliver sends event once.
func (n *Notifier) Deliver(ctx context.Context, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Prerender-Webhook/1.0")
	if n.secret != "" {
		req.Header.Set(SignatureHeader, Sign(n.secret, body))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Notify delivers event in the background, retrying after 1s, 5s and 30s.
func (n *Notifier) Notify(event *Event) {
	if n == nil {
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		for attempt, delay := range n.retryDelays {
			if delay > 0 {
				time.Sleep(delay)
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := n.Deliver(ctx, event)
			cancel()
			if err == nil {
				n.logger.Info("webhook delivered",
					"event", event.Type,
					"job_id", event.JobID,
					"attempt", attempt+1,
				)
				return
			}
			n.logger.Warn("webhook delivery failed",
				"event", event.Type,
				"job_id", event.JobID,
				"attempt", attempt+1,
				"error", err,
			)
		}
		n.logger.Error("webhook delivery exhausted all retries",
			"event", event.Type,
			"job_id", event.JobID,
		)
	}()
}

// Wait blocks until every pending delivery succeeded or gave up.
func (n *Notifier) Wait() {
	if n == nil {
		return
	}
	n.wg.Wait()
}
