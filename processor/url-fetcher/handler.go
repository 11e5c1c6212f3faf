package urlfetcher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/c360studio/semfetch/source/webfetch"
)

// BatchProcessor runs a multi-URL fetch.
type BatchProcessor interface {
	ProcessURLs(ctx context.Context, urls []string, opts webfetch.FetchOptions) (*webfetch.ContextResult, error)
}

// Handler turns fetch requests into content payloads.
type Handler struct {
	batches BatchProcessor
	logger  *slog.Logger
	now     func() time.Time
}

// NewHandler creates a new fetch request handler.
func NewHandler(batches BatchProcessor, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		batches: batches,
		logger:  logger,
		now:     time.Now,
	}
}

// Process fetches every URL in req. Request-level rejections are reported in
// the payload rather than returned, so callers always get an answer.
func (h *Handler) Process(ctx context.Context, req FetchRequest) *URLContentPayload {
	payload := &URLContentPayload{CorrelationID: req.CorrelationID}

	result, err := h.batches.ProcessURLs(ctx, req.URLs, req.Options)
	payload.CompletedAt = h.now()
	if err != nil {
		payload.Error = err.Error()
		payload.ErrorCode = requestErrorCode(err)
		payload.Contents = []string{}
		h.logger.Warn("Fetch request rejected",
			"correlation_id", req.CorrelationID,
			"urls", len(req.URLs),
			"error", err)
		return payload
	}

	payload.Contents = result.Contents
	payload.Batch = result.Batch
	return payload
}

// requestErrorCode classifies errors that rejected a whole request.
func requestErrorCode(err error) string {
	var tooMany *webfetch.TooManyURLsError
	switch {
	case errors.Is(err, webfetch.ErrNoURLs), errors.As(err, &tooMany):
		return webfetch.CodeValidation
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return webfetch.CodeFetch
	default:
		return webfetch.ErrorCode(err)
	}
}
