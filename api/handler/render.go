package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/prerender/jobs"
	"github.com/use-agent/prerender/models"
)

// PostRender returns a handler for POST /api/v1/render.
//
// The request is validated synchronously and queued; rendering happens on
// the job worker. Artifacts land under outputRoot, in the directory named
// by "output" or, when absent, in a directory named after the job.
func PostRender(q *jobs.Queue, outputRoot string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CaptureRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, http.StatusBadRequest, models.ErrCodeInvalidInput, "invalid request body: "+err.Error())
			return
		}

		raw := make([]string, len(req.Formats))
		for i, f := range req.Formats {
			raw[i] = string(f)
		}
		formats, unknown := models.ParseFormats(raw)
		if len(unknown) > 0 {
			slog.Debug("ignoring unknown formats", "formats", unknown)
		}
		req.Formats = formats

		sub, err := outputSubdir(req.OutputDir)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, models.ErrCodeInvalidInput, err.Error())
			return
		}
		req.OutputDir = ""

		req.Defaults()
		if err := req.Validate(); err != nil {
			var pe *models.PrerenderError
			if errors.As(err, &pe) {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": pe.ToDetail()})
				return
			}
			abortWithError(c, http.StatusBadRequest, models.ErrCodeInvalidInput, err.Error())
			return
		}

		// The final directory depends on the job id when no subdirectory
		// was given, so it is filled in after the id is known.
		req.OutputDir = filepath.Join(outputRoot, sub)
		job, err := q.SubmitFunc(req, func(id string, r *models.CaptureRequest) {
			if sub == "" {
				r.OutputDir = filepath.Join(outputRoot, id)
			}
		})
		if errors.Is(err, jobs.ErrQueueFull) {
			abortWithError(c, http.StatusServiceUnavailable, models.ErrCodeQueueFull, "render queue is full, retry later")
			return
		}
		if err != nil {
			abortWithError(c, http.StatusInternalServerError, models.ErrCodeInternal, err.Error())
			return
		}

		c.JSON(http.StatusAccepted, models.RenderResponse{
			ID:     job.ID,
			Status: job.Status,
		})
	}
}

// GetRender returns a handler for GET /api/v1/render/:id.
func GetRender(q *jobs.Queue) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, ok := q.Get(c.Param("id"))
		if !ok {
			abortWithError(c, http.StatusNotFound, models.ErrCodeNotFound, "render job not found")
			return
		}
		c.JSON(http.StatusOK, jobs.StatusResponse(job))
	}
}

// outputSubdir validates a client-chosen output directory. Only relative
// paths that stay inside the server's output root are accepted.
func outputSubdir(dir string) (string, error) {
	if dir == "" {
		return "", nil
	}
	clean := filepath.Clean(dir)
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", errors.New("output must be a relative path inside the server output directory")
	}
	if clean == "." {
		return "", nil
	}
	return clean, nil
}

func abortWithError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": models.ErrorDetail{Code: code, Message: msg},
	})
}
