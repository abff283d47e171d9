package airtable

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-airtable/airtable/core"
)

// RecordData is one item of a batch create or update. ID is empty on create.
type RecordData struct {
	ID     string `json:"id,omitempty"`
	Fields Fields `json:"fields"`
}

// Table is a handle on one table of a base.
type Table struct {
	base *Base
	name string
}

func (t *Table) Name() string {
	return t.name
}

func (t *Table) Base() *Base {
	return t.base
}

// Record returns a local record with the given id and no fields.
// Use Fetch to load it or Save to persist local changes.
func (t *Table) Record(id string) *Record {
	return newRecord(t, id, nil)
}

// Find fetches one record by id.
func (t *Table) Find(ctx context.Context, id string) (*Record, error) {
	return t.Record(id).Fetch(ctx)
}

// Select validates params and returns a query over the table. Unknown keys
// are dropped with a warning; invalid values fail with *core.InvalidParametersError.
func (t *Table) Select(params Params) (*Query, error) {
	validation := core.ValidateParams(params)
	if !validation.Ok() {
		return nil, &core.InvalidParametersError{Operation: "select", Errors: validation.Errors}
	}
	if len(validation.IgnoredKeys) > 0 {
		t.logger().Warn("Airtable: some parameters to `select` will be ignored",
			"table", t.name, "ignored", validation.IgnoredKeys)
	}
	return &Query{table: t, params: validation.ValidParams}, nil
}

// Create adds one record. opts are merged into the body (for example "typecast").
func (t *Table) Create(ctx context.Context, fields Fields, opts Params) (*Record, error) {
	resp, err := t.action(ctx, http.MethodPost, "", nil, withFields(fields, opts))
	if err != nil {
		return nil, err
	}
	return newRecord(t, "", resp.Body), nil
}

// CreateBatch adds several records in one request and returns them in order.
// opts cannot override "records".
func (t *Table) CreateBatch(ctx context.Context, records []RecordData, opts Params) ([]*Record, error) {
	body := Params{"records": records}
	body.Update(opts, false)
	resp, err := t.action(ctx, http.MethodPost, "", nil, body)
	if err != nil {
		return nil, err
	}
	return t.recordsFrom(resp)
}

// Update changes the given fields of one record (PATCH).
func (t *Table) Update(ctx context.Context, id string, fields Fields, opts Params) (*Record, error) {
	return t.Record(id).PatchUpdate(ctx, fields, opts)
}

// UpdateBatch changes several records in one request (PATCH).
func (t *Table) UpdateBatch(ctx context.Context, records []RecordData, opts Params) ([]*Record, error) {
	return t.updateBatch(ctx, http.MethodPatch, records, opts)
}

// Replace replaces the whole field set of one record (PUT).
func (t *Table) Replace(ctx context.Context, id string, fields Fields, opts Params) (*Record, error) {
	return t.Record(id).PutUpdate(ctx, fields, opts)
}

// ReplaceBatch replaces several records in one request (PUT).
func (t *Table) ReplaceBatch(ctx context.Context, records []RecordData, opts Params) ([]*Record, error) {
	return t.updateBatch(ctx, http.MethodPut, records, opts)
}

// Destroy deletes one record and returns it.
func (t *Table) Destroy(ctx context.Context, id string) (*Record, error) {
	return t.Record(id).Destroy(ctx)
}

// DestroyBatch deletes several records in one request. The returned records
// carry the deleted ids in server order.
func (t *Table) DestroyBatch(ctx context.Context, ids []string) ([]*Record, error) {
	resp, err := t.action(ctx, http.MethodDelete, "", Params{"records": ids}, nil)
	if err != nil {
		return nil, err
	}
	raws, err := resp.Body.Objects("records")
	if err != nil {
		return nil, err
	}
	deleted := make([]*Record, 0, len(raws))
	for _, raw := range raws {
		deleted = append(deleted, newRecord(t, raw.GetString("id"), nil))
	}
	return deleted, nil
}

// List fetches a single page of records and the offset of the next one.
//
// Deprecated: use Select.
func (t *Table) List(ctx context.Context, pageSize int, offset string, opts Params) ([]*Record, string, error) {
	t.base.deprecations().Warn("table.list", "Airtable: `list()` is deprecated. Use `select()` instead.")
	return t.listPage(ctx, pageSize, offset, opts)
}

// ForEach calls fn for every record of the table, page after page.
//
// Deprecated: use Select and Query.EachPage.
func (t *Table) ForEach(ctx context.Context, opts Params, fn func(*Record)) error {
	t.base.deprecations().Warn("table.forEach", "Airtable: `forEach()` is deprecated. Use `select()` instead.")
	pageSize := 0
	if size, ok := opts[core.ParamPageSize].(int); ok {
		pageSize = size
	}
	rest := opts.Clone()
	rest.Without(core.ParamPageSize, core.ParamOffset)

	offset := ""
	for {
		records, next, err := t.listPage(ctx, pageSize, offset, rest)
		if err != nil {
			return err
		}
		for _, record := range records {
			fn(record)
		}
		if next == "" {
			return nil
		}
		offset = next
	}
}

func (t *Table) listPage(ctx context.Context, pageSize int, offset string, opts Params) ([]*Record, string, error) {
	query := opts.Clone()
	if pageSize > 0 {
		query[core.ParamPageSize] = pageSize
	}
	if offset != "" {
		query[core.ParamOffset] = offset
	}
	resp, err := t.action(ctx, http.MethodGet, "", query, nil)
	if err != nil {
		return nil, "", err
	}
	records, err := t.recordsFrom(resp)
	if err != nil {
		return nil, "", err
	}
	return records, resp.Body.GetString(core.ParamOffset), nil
}

func (t *Table) updateBatch(ctx context.Context, method string, records []RecordData, opts Params) ([]*Record, error) {
	body := Params{"records": records}
	body.Update(opts, false)
	resp, err := t.action(ctx, method, "", nil, body)
	if err != nil {
		return nil, err
	}
	return t.recordsFrom(resp)
}

func (t *Table) recordsFrom(resp *Response) ([]*Record, error) {
	raws, err := resp.Body.Objects("records")
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", t.name, err)
	}
	records := make([]*Record, 0, len(raws))
	for _, raw := range raws {
		records = append(records, newRecord(t, "", raw))
	}
	return records, nil
}

// action sends a request to the table path, or to one record under it when id is set.
func (t *Table) action(ctx context.Context, method, id string, query Params, body any) (*Response, error) {
	path := "/" + url.PathEscape(t.name)
	if id != "" {
		path += "/" + url.PathEscape(id)
	}
	return t.base.action(ctx, &Request{Method: method, Path: path, Query: query, Body: body})
}

func (t *Table) FindWithCallback(ctx context.Context, id string, done Callback[*Record]) {
	runAsync(ctx, func(ctx context.Context) (*Record, error) {
		return t.Find(ctx, id)
	}, done)
}

func (t *Table) CreateWithCallback(ctx context.Context, fields Fields, opts Params, done Callback[*Record]) {
	runAsync(ctx, func(ctx context.Context) (*Record, error) {
		return t.Create(ctx, fields, opts)
	}, done)
}

func (t *Table) CreateBatchWithCallback(ctx context.Context, records []RecordData, opts Params, done Callback[[]*Record]) {
	runAsync(ctx, func(ctx context.Context) ([]*Record, error) {
		return t.CreateBatch(ctx, records, opts)
	}, done)
}

func (t *Table) UpdateWithCallback(ctx context.Context, id string, fields Fields, opts Params, done Callback[*Record]) {
	runAsync(ctx, func(ctx context.Context) (*Record, error) {
		return t.Update(ctx, id, fields, opts)
	}, done)
}

func (t *Table) ReplaceWithCallback(ctx context.Context, id string, fields Fields, opts Params, done Callback[*Record]) {
	runAsync(ctx, func(ctx context.Context) (*Record, error) {
		return t.Replace(ctx, id, fields, opts)
	}, done)
}

func (t *Table) DestroyWithCallback(ctx context.Context, id string, done Callback[*Record]) {
	runAsync(ctx, func(ctx context.Context) (*Record, error) {
		return t.Destroy(ctx, id)
	}, done)
}

func (t *Table) DestroyBatchWithCallback(ctx context.Context, ids []string, done Callback[[]*Record]) {
	runAsync(ctx, func(ctx context.Context) ([]*Record, error) {
		return t.DestroyBatch(ctx, ids)
	}, done)
}

func (t *Table) logger() *slog.Logger {
	if logger := t.base.client.Config().Logger; logger != nil {
		return logger
	}
	return slog.Default()
}
