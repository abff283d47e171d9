package airtable

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-airtable/airtable/core"
	"github.com/go-airtable/airtable/internal/mockapi"
)

const testApiKey = "key123"

type testEnv struct {
	client *Client
	api    *mockapi.Server
	table  *Table
	logs   *bytes.Buffer
}

func newTestEnv(t *testing.T, mutate ...func(*Config)) *testEnv {
	t.Helper()
	api := mockapi.New(mockapi.WithApiKey(testApiKey))
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	logs := &bytes.Buffer{}
	logger := core.NewLogger("warn", logs)
	config := &Config{
		ApiKey:       testApiKey,
		EndpointUrl:  server.URL,
		Logger:       logger,
		Deprecations: core.NewDeprecationRegistry(logger),
		Sleep:        func(context.Context, time.Duration) error { return nil },
	}
	for _, fn := range mutate {
		fn(config)
	}
	client, err := New(config)
	require.NoError(t, err)
	return &testEnv{
		client: client,
		api:    api,
		table:  client.Base("app123").Table("Table"),
		logs:   logs,
	}
}

func (e *testEnv) seed(ids ...string) {
	records := make([]mockapi.Record, 0, len(ids))
	for i, id := range ids {
		records = append(records, mockapi.Record{ID: id, Fields: map[string]any{"Name": id, "Position": i}})
	}
	e.api.Seed("app123", "Table", records...)
}

func recordIDs(records []*Record) []string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID())
	}
	return ids
}

var discardLogger = core.NewLogger("off", io.Discard)
