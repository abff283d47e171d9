package airtable

import (
	"context"
	"net/http"

	"github.com/go-airtable/airtable/core"
)

// Base is a handle on one base. It only carries the id; tables are created on demand.
type Base struct {
	client *Client
	id     string
}

func (b *Base) ID() string {
	return b.id
}

func (b *Base) Client() *Client {
	return b.client
}

// Table returns a handle for the named table. No request is made.
func (b *Base) Table(name string) *Table {
	return &Table{base: b, name: name}
}

// MakeRequest sends r with its path prefixed by the base id.
func (b *Base) MakeRequest(ctx context.Context, r *Request) (*Response, error) {
	scoped := *r
	scoped.Path = b.scopedPath(r.Path)
	return b.client.MakeRequest(ctx, &scoped)
}

// RunAction sends a raw action scoped to the base.
//
// Deprecated: use MakeRequest.
func (b *Base) RunAction(ctx context.Context, method, path string, query Params, body any) (*Response, error) {
	b.deprecations().Warn("base.runAction", "Airtable: `runAction()` is deprecated. Use `makeRequest()` instead.")
	return b.action(ctx, &Request{Method: method, Path: path, Query: query, Body: body})
}

// RunActionWithCallback is the callback form of RunAction.
//
// Deprecated: use MakeRequest.
func (b *Base) RunActionWithCallback(ctx context.Context, method, path string, query Params, body any, done Callback[*Response]) {
	runAsync(ctx, func(ctx context.Context) (*Response, error) {
		return b.RunAction(ctx, method, path, query, body)
	}, done)
}

// action is the transport used by tables and records. It tags the request
// with the application id and full API version.
func (b *Base) action(ctx context.Context, r *Request) (*Response, error) {
	headers := make(http.Header)
	for key, values := range r.Headers {
		headers[key] = values
	}
	headers.Set(core.HeaderApiVersion, b.client.Config().ApiVersion)
	headers.Set(core.HeaderApplicationID, b.id)
	return b.MakeRequest(ctx, &Request{
		Method:  r.Method,
		Path:    r.Path,
		Query:   r.Query,
		Headers: headers,
		Body:    r.Body,
	})
}

func (b *Base) scopedPath(path string) string {
	if path == "" {
		path = "/"
	}
	if path[0] != '/' {
		path = "/" + path
	}
	return "/" + b.id + path
}

var fallbackDeprecations = core.NewDeprecationRegistry(nil)

func (b *Base) deprecations() *DeprecationRegistry {
	if registry := b.client.Config().Deprecations; registry != nil {
		return registry
	}
	return fallbackDeprecations
}
