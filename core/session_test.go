package core

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(r *http.Request) (*http.Response, error) { return f(r) }

// sleepRecorder replaces the real timer and remembers every requested delay.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
	err    error
}

func (s *sleepRecorder) Sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return s.err
}

func (s *sleepRecorder) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

func newTestConfig(endpoint string, sleeper *sleepRecorder) *Config {
	return &Config{
		ApiKey:      "key123",
		EndpointUrl: endpoint,
		Logger:      NewLogger("off", io.Discard),
		Backoff:     &BackoffPolicy{Initial: 5 * time.Second, Max: 10 * time.Minute, Rand: fixedRand(0.5)},
		Sleep:       sleeper.Sleep,
	}
}

func newTestSession(t *testing.T, handler http.HandlerFunc, mutate ...func(*Config)) (*Session, *sleepRecorder) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	sleeper := &sleepRecorder{}
	config := newTestConfig(server.URL, sleeper)
	for _, fn := range mutate {
		fn(config)
	}
	session, err := NewSession(config)
	require.NoError(t, err)
	return session, sleeper
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set(HeaderContentType, ContentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestSession_BuildUrl(t *testing.T) {
	session, err := NewSession(&Config{ApiKey: "key123", EndpointUrl: "https://api.airtable.com/", Logger: NewLogger("off", io.Discard)})
	require.NoError(t, err)

	assert.Equal(t, "https://api.airtable.com/v0/app123/Table", session.BuildUrl("/app123/Table", nil))
	assert.Equal(t, "https://api.airtable.com/v0/app123/Table?pageSize=10", session.BuildUrl("app123/Table", Params{"pageSize": 10}))
	assert.Equal(t,
		"https://api.airtable.com/v0/app123/Table?filterByFormula=a+b&sort%5B0%5D%5Bdirection%5D=desc&sort%5B0%5D%5Bfield%5D=Name",
		session.BuildUrl("/app123/Table", Params{
			"filterByFormula": "a b",
			"sort":            []any{map[string]any{"field": "Name", "direction": "desc"}},
		}),
	)
}

func TestSession_RequestShape(t *testing.T) {
	var (
		mu        sync.Mutex
		gotMethod string
		gotPath   string
		gotQuery  map[string][]string
		gotHeader http.Header
		gotBody   []byte
	)
	session, _ := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		gotHeader = r.Header.Clone()
		gotBody, _ = io.ReadAll(r.Body)
		writeJSON(w, http.StatusOK, map[string]any{"id": "rec123"})
	})

	t.Run("get", func(t *testing.T) {
		resp, err := session.Get(context.Background(), "/app123/Table", Params{"fields": []string{"Name", "Notes"}}, nil)
		require.NoError(t, err)
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "rec123", resp.Body.GetString("id"))

		assert.Equal(t, http.MethodGet, gotMethod)
		assert.Equal(t, "/v0/app123/Table", gotPath)
		assert.Equal(t, []string{"Name", "Notes"}, gotQuery["fields[]"])
		assert.Equal(t, "Bearer key123", gotHeader.Get(HeaderAuthorization))
		assert.Equal(t, DefaultUserAgent(), gotHeader.Get(HeaderUserAgent))
		assert.Equal(t, ContentTypeJSON, gotHeader.Get(HeaderContentType))
		assert.Empty(t, gotBody)
	})

	t.Run("get never sends a body", func(t *testing.T) {
		_, err := session.Do(context.Background(), &Request{Method: "get", Path: "/app123/Table", Body: map[string]any{"x": 1}})
		require.NoError(t, err)
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, http.MethodGet, gotMethod)
		assert.Empty(t, gotBody)
	})

	t.Run("delete never sends a body", func(t *testing.T) {
		_, err := session.Do(context.Background(), &Request{Method: http.MethodDelete, Path: "/app123/Table/rec123", Body: map[string]any{"x": 1}})
		require.NoError(t, err)
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, http.MethodDelete, gotMethod)
		assert.Empty(t, gotBody)
	})

	t.Run("patch sends json body", func(t *testing.T) {
		_, err := session.Patch(context.Background(), "/app123/Table/rec123", map[string]any{"fields": map[string]any{"Name": "Ada"}}, nil)
		require.NoError(t, err)
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, http.MethodPatch, gotMethod)
		assert.JSONEq(t, `{"fields":{"Name":"Ada"}}`, string(gotBody))
	})

	t.Run("caller headers override defaults", func(t *testing.T) {
		headers := http.Header{}
		headers.Set(HeaderUserAgentOverride, "custom-agent/2.0")
		headers.Set(HeaderApplicationID, "app123")
		headers.Set(HeaderContentType, "application/json; charset=utf-8")
		_, err := session.Post(context.Background(), "/app123/Table", map[string]any{}, headers)
		require.NoError(t, err)
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, "custom-agent/2.0", gotHeader.Get(HeaderUserAgent))
		assert.Empty(t, gotHeader.Get(HeaderUserAgentOverride))
		assert.Equal(t, "app123", gotHeader.Get(HeaderApplicationID))
		assert.Equal(t, "application/json; charset=utf-8", gotHeader.Get(HeaderContentType))
		assert.Equal(t, "Bearer key123", gotHeader.Get(HeaderAuthorization))
	})

	t.Run("alias wins over explicit user agent", func(t *testing.T) {
		headers := http.Header{}
		headers.Set(HeaderUserAgent, "explicit/1.0")
		headers.Set(HeaderUserAgentOverride, "alias/1.0")
		_, err := session.Get(context.Background(), "/app123/Table", nil, headers)
		require.NoError(t, err)
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, "alias/1.0", gotHeader.Get(HeaderUserAgent))
		assert.Empty(t, gotHeader.Get(HeaderUserAgentOverride))
	})
}

func TestSession_RateLimitRetry(t *testing.T) {
	var calls atomic.Int32
	registry := prometheus.NewRegistry()
	metrics, err := NewMetrics(registry)
	require.NoError(t, err)

	session, sleeper := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			writeJSON(w, http.StatusTooManyRequests, map[string]any{})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": "rec123"})
	}, func(c *Config) { c.Metrics = metrics })

	resp, err := session.Get(context.Background(), "/app123/Table/rec123", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "rec123", resp.Body.GetString("id"))
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []time.Duration{2500 * time.Millisecond}, sleeper.Delays())

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RateLimitRetries))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RequestsTotal.WithLabelValues(http.MethodGet, "429")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RequestsTotal.WithLabelValues(http.MethodGet, "200")))
}

func TestSession_RateLimitRetryDisabled(t *testing.T) {
	var calls atomic.Int32
	session, sleeper := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusTooManyRequests, map[string]any{})
	}, func(c *Config) { c.NoRetryIfRateLimited = true })

	_, err := session.Get(context.Background(), "/app123/Table/rec123", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTooManyRequests)
	assert.True(t, ExpectStatusCodes(err, http.StatusTooManyRequests))
	assert.Equal(t, int32(1), calls.Load())
	assert.Empty(t, sleeper.Delays())
}

func TestSession_RateLimitRetryCap(t *testing.T) {
	var calls atomic.Int32
	session, sleeper := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusTooManyRequests, map[string]any{})
	}, func(c *Config) { c.MaxRateLimitRetries = 2 })

	_, err := session.Get(context.Background(), "/app123/Table", nil, nil)
	assert.True(t, IsKind(err, KindTooManyRequests))
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{2500 * time.Millisecond, 5 * time.Second}, sleeper.Delays())
}

func TestSession_SleepCancelled(t *testing.T) {
	session, sleeper := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, map[string]any{})
	})
	sleeper.err = context.Canceled

	_, err := session.Get(context.Background(), "/app123/Table", nil, nil)
	assert.True(t, IsKind(err, KindConnectionError))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, sleeper.Delays(), 1)
}

func TestSession_Timeout(t *testing.T) {
	var calls atomic.Int32
	session, sleeper := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, func(c *Config) {
		timeout := 20 * time.Millisecond
		c.RequestTimeout = &timeout
	})

	_, err := session.Get(context.Background(), "/app123/Table", nil, nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConnectionError))
	assert.Equal(t, 0, err.(*Error).StatusCode)
	assert.Equal(t, int32(1), calls.Load())
	assert.Empty(t, sleeper.Delays())
}

func TestSession_NetworkFailure(t *testing.T) {
	var calls atomic.Int32
	transportErr := errors.New("dial tcp: connection refused")
	sleeper := &sleepRecorder{}
	config := newTestConfig("https://api.airtable.com", sleeper)
	config.HTTPClient = doerFunc(func(*http.Request) (*http.Response, error) {
		calls.Add(1)
		return nil, transportErr
	})
	session, err := NewSession(config)
	require.NoError(t, err)

	_, err = session.Get(context.Background(), "/app123/Table", nil, nil)
	assert.ErrorIs(t, err, ErrConnection)
	assert.ErrorIs(t, err, transportErr)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, int32(1), calls.Load())
}

func TestSession_Classification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		raw      string
		wantKind ErrorKind
		wantMsg  string
	}{
		{"402 propagates message", 402, `{"error":{"message":"foo bar"}}`, KindUnexpectedError, "foo bar"},
		{"404", 404, `{"error":{"type":"NOT_FOUND","message":"Could not find record rec999"}}`, KindNotFound, "Could not find record rec999"},
		{"422 server type", 422, `{"error":{"type":"INVALID_REQUEST_UNKNOWN","message":"Invalid request"}}`, "INVALID_REQUEST_UNKNOWN", "Invalid request"},
		{"200 with invalid json", 200, `not json`, KindUnexpectedError, msgInvalidJSON},
		{"200 with array", 200, `[]`, KindUnexpectedError, msgInvalidJSON},
		{"500 with html", 500, `<html></html>`, KindUnexpectedError, msgInvalidJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, _ := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.raw)
			})
			_, err := session.Get(context.Background(), "/app123/Table", nil, nil)
			var atErr *Error
			require.ErrorAs(t, err, &atErr)
			assert.Equal(t, tt.wantKind, atErr.Kind)
			assert.Equal(t, tt.wantMsg, atErr.Message)
			assert.Equal(t, tt.status, atErr.StatusCode)
		})
	}
}

func TestSession_Hooks(t *testing.T) {
	var (
		calls      atomic.Int32
		mu         sync.Mutex
		requestIDs []string
	)
	session, _ := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			writeJSON(w, http.StatusTooManyRequests, map[string]any{})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": "rec123"})
	}, func(c *Config) {
		c.BeforeRequestFn = func(ctx context.Context, r *http.Request) error {
			mu.Lock()
			defer mu.Unlock()
			requestIDs = append(requestIDs, RequestIDFromContext(ctx))
			r.Header.Set("X-Trace", "on")
			return nil
		}
		c.AfterRequestFn = func(ctx context.Context, response *Response) (*Response, error) {
			response.Body["request_id"] = RequestIDFromContext(ctx)
			return response, nil
		}
	})

	resp, err := session.Get(context.Background(), "/app123/Table/rec123", nil, nil)
	require.NoError(t, err)
	require.Len(t, requestIDs, 2)
	assert.NotEmpty(t, requestIDs[0])
	assert.Equal(t, requestIDs[0], requestIDs[1])
	assert.Equal(t, requestIDs[0], resp.Body.GetString("request_id"))

	t.Run("before hook error aborts", func(t *testing.T) {
		hookErr := errors.New("blocked")
		session.config.BeforeRequestFn = func(context.Context, *http.Request) error { return hookErr }
		before := calls.Load()
		_, err := session.Get(context.Background(), "/app123/Table/rec123", nil, nil)
		assert.ErrorIs(t, err, hookErr)
		assert.Equal(t, before, calls.Load())
	})
}

func TestSession_RequestsPerSecond(t *testing.T) {
	session, _ := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{})
	}, func(c *Config) { c.RequestsPerSecond = 1000 })
	require.NotNil(t, session.limiter)

	for i := 0; i < 3; i++ {
		_, err := session.Get(context.Background(), "/app123/Table", nil, nil)
		require.NoError(t, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := session.Get(ctx, "/app123/Table", nil, nil)
	assert.True(t, IsKind(err, KindConnectionError))
}
