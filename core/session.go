package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

type contextKey string

const requestIDKey contextKey = "@requestID"

// RequestIDFromContext returns the correlation id the executor attached to
// the context passed to BeforeRequestFn and AfterRequestFn.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// Request describes one logical API call. Path is relative to the versioned
// endpoint and must start with "/". Body is JSON encoded and is ignored for
// GET and DELETE.
type Request struct {
	Method  string
	Path    string
	Query   Params
	Headers http.Header
	Body    any
}

// Response is the envelope of a successful call. Body is always a JSON object.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       Record
}

type RESTSession interface {
	Do(context.Context, *Request) (*Response, error)
	Get(context.Context, string, Params, http.Header) (*Response, error)
	Post(context.Context, string, any, http.Header) (*Response, error)
	Put(context.Context, string, any, http.Header) (*Response, error)
	Patch(context.Context, string, any, http.Header) (*Response, error)
	Delete(context.Context, string, Params, http.Header) (*Response, error)
	GetConfig() *Config
}

// Session executes requests against the API, retrying rate limited
// attempts with the configured backoff policy.
type Session struct {
	config  *Config
	limiter *rate.Limiter
}

// NewSession validates config, filling missing fields with defaults, and
// returns a ready session. The config must not be modified afterwards.
func NewSession(config *Config) (*Session, error) {
	if config == nil {
		return nil, errors.New("config must not be nil")
	}
	if err := config.Validate(DefaultValidators(Defaults{})...); err != nil {
		return nil, err
	}
	session := &Session{config: config}
	if config.RequestsPerSecond > 0 {
		burst := int(math.Max(1, math.Ceil(config.RequestsPerSecond)))
		session.limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst)
	}
	return session, nil
}

func (s *Session) GetConfig() *Config {
	return s.config
}

func (s *Session) Get(ctx context.Context, path string, query Params, headers http.Header) (*Response, error) {
	return s.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query, Headers: headers})
}

func (s *Session) Post(ctx context.Context, path string, body any, headers http.Header) (*Response, error) {
	return s.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body, Headers: headers})
}

func (s *Session) Put(ctx context.Context, path string, body any, headers http.Header) (*Response, error) {
	return s.Do(ctx, &Request{Method: http.MethodPut, Path: path, Body: body, Headers: headers})
}

func (s *Session) Patch(ctx context.Context, path string, body any, headers http.Header) (*Response, error) {
	return s.Do(ctx, &Request{Method: http.MethodPatch, Path: path, Body: body, Headers: headers})
}

func (s *Session) Delete(ctx context.Context, path string, query Params, headers http.Header) (*Response, error) {
	return s.Do(ctx, &Request{Method: http.MethodDelete, Path: path, Query: query, Headers: headers})
}

// Do sends the request. A 429 response is retried after Backoff.Delay(n),
// where n counts the rate limited attempts so far, unless retries are turned
// off or MaxRateLimitRetries is reached. Network failures and timeouts are
// returned as CONNECTION_ERROR and never retried. Every other outcome goes
// through Classify exactly once.
func (s *Session) Do(ctx context.Context, r *Request) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	method := strings.ToUpper(r.Method)
	if method == "" {
		method = http.MethodGet
	}
	url := s.BuildUrl(r.Path, r.Query)
	headers := s.buildHeaders(r.Headers)

	var payload []byte
	if hasBody(method) && r.Body != nil {
		var err error
		if payload, err = json.Marshal(r.Body); err != nil {
			return nil, fmt.Errorf("failed to encode %s request body: %w", method, err)
		}
	}

	requestID := uuid.NewString()
	ctx = context.WithValue(ctx, requestIDKey, requestID)
	logger := s.config.Logger.With("request_id", requestID, "method", method, "url", url)

	for attempt := 0; ; attempt++ {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil, newConnectionError(err)
			}
		}
		raw, err := s.send(ctx, logger, method, url, headers, payload)
		if err != nil {
			return nil, err
		}
		if raw.statusCode == http.StatusTooManyRequests && s.retryRateLimited(attempt) {
			delay := s.config.Backoff.Delay(attempt)
			logger.Warn("rate limited, backing off", "attempt", attempt+1, "delay", delay)
			s.config.Metrics.observeRetry()
			if err := s.config.Sleep(ctx, delay); err != nil {
				return nil, newConnectionError(err)
			}
			continue
		}
		return s.finish(ctx, logger, raw)
	}
}

// BuildUrl joins endpoint, major version, path and encoded query.
func (s *Session) BuildUrl(path string, query Params) string {
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	url := fmt.Sprintf("%s/v%s%s", s.config.EndpointUrl, s.config.MajorVersion(), path)
	if qs := query.ToQuery(); qs != "" {
		url += "?" + qs
	}
	return url
}

type rawResponse struct {
	statusCode int
	header     http.Header
	body       []byte
}

// send performs a single attempt bounded by the request timeout.
// The body is read in full before the attempt context is released.
func (s *Session) send(ctx context.Context, logger *slog.Logger, method, url string, headers http.Header, payload []byte) (*rawResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout())
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request to %s: %w", method, url, err)
	}
	req.Header = headers.Clone()
	if err = s.beforeRequest(ctx, logger, req, payload); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := s.config.HTTPClient.Do(req)
	if err != nil {
		s.config.Metrics.observeAttempt(method, 0, time.Since(start))
		logger.Error("http request failed", "error", err)
		return nil, newConnectionError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	s.config.Metrics.observeAttempt(method, resp.StatusCode, elapsed)
	if err != nil {
		logger.Error("failed to read response body", "status", resp.StatusCode, "error", err)
		return nil, newConnectionError(err)
	}
	logger.Info("http response", "status", resp.StatusCode, "elapsed", elapsed)
	return &rawResponse{statusCode: resp.StatusCode, header: resp.Header, body: data}, nil
}

func (s *Session) finish(ctx context.Context, logger *slog.Logger, raw *rawResponse) (*Response, error) {
	decoded := DecodeBody(raw.body)
	if apiErr := Classify(raw.statusCode, decoded); apiErr != nil {
		logger.Debug("request failed", "kind", apiErr.Kind, "status", raw.statusCode)
		return nil, apiErr
	}
	body, _ := ToRecord(decoded)
	return s.afterRequest(ctx, logger, &Response{
		StatusCode: raw.statusCode,
		Header:     raw.header,
		Body:       body,
	})
}

func (s *Session) retryRateLimited(attempt int) bool {
	if s.config.NoRetryIfRateLimited {
		return false
	}
	return s.config.MaxRateLimitRetries == 0 || attempt < s.config.MaxRateLimitRetries
}

// buildHeaders applies defaults first and caller headers last so callers
// win. X-Airtable-User-Agent is folded into User-Agent. http.Header keeps no
// insertion order, so when a caller sends both headers the alias always wins.
func (s *Session) buildHeaders(custom http.Header) http.Header {
	headers := make(http.Header)
	headers.Set(HeaderAuthorization, AuthTypeBearer+" "+s.config.ApiKey)
	headers.Set(HeaderUserAgent, s.config.UserAgent)
	headers.Set(HeaderContentType, ContentTypeJSON)

	for key, values := range custom {
		if len(values) == 0 {
			continue
		}
		headers.Del(key)
		for _, value := range values {
			headers.Add(key, value)
		}
	}
	if alias := headers.Get(HeaderUserAgentOverride); alias != "" {
		headers.Set(HeaderUserAgent, alias)
		headers.Del(HeaderUserAgentOverride)
	}
	return headers
}

func hasBody(method string) bool {
	return method != http.MethodGet && method != http.MethodDelete
}
