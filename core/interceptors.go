package core

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

// ######################################################
//
//	REQUEST/RESPONSE INTERCEPTORS
//
// ######################################################

// beforeRequest runs once per attempt, so a retried call hits the hook again.
func (s *Session) beforeRequest(ctx context.Context, logger *slog.Logger, r *http.Request, payload []byte) error {
	beforeRequestLog(ctx, logger, payload)
	if s.config.BeforeRequestFn != nil {
		return s.config.BeforeRequestFn(ctx, r)
	}
	return nil
}

// afterRequest runs once per successful call, after classification.
func (s *Session) afterRequest(ctx context.Context, logger *slog.Logger, response *Response) (*Response, error) {
	var err error
	afterRequestLog(ctx, logger, response)
	if s.config.AfterRequestFn != nil {
		if response, err = s.config.AfterRequestFn(ctx, response); err != nil {
			return nil, err
		}
	}
	return response, nil
}

// ######################################################
//
//	REQUEST/RESPONSE LOGGING
//
// ######################################################

// beforeRequestLog logs the attempt. The body is only rendered at debug level.
func beforeRequestLog(ctx context.Context, logger *slog.Logger, payload []byte) {
	if !logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		logger.Debug("http request start")
		return
	}
	var compact bytes.Buffer
	body := string(trimmed)
	if err := json.Compact(&compact, trimmed); err == nil {
		body = compact.String()
	}
	logger.Debug("http request start", "body", body)
}

// afterRequestLog logs a summary at info level and the full body at debug level.
func afterRequestLog(ctx context.Context, logger *slog.Logger, response *Response) {
	if logger.Enabled(ctx, slog.LevelDebug) {
		logger.Debug("response", "body", response.Body.PrettyJson("  "))
		return
	}
	attrs := []any{"status", response.StatusCode}
	if records, ok := response.Body["records"].([]any); ok {
		attrs = append(attrs, "records", len(records))
	}
	logger.Info("response", attrs...)
}
