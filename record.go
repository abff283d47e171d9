package airtable

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-airtable/airtable/core"
)

var errMissingRecordID = errors.New("airtable: record id is required")

// Record is the local copy of one row. Its field mapping is replaced wholesale
// whenever the server returns the record, so after Fetch or an update it
// mirrors the server's state. A Record is safe for concurrent use.
type Record struct {
	table *Table
	id    string

	mu     sync.RWMutex
	fields Fields
	raw    core.Record
}

// newRecord builds a record bound to table. An empty id is taken from raw.
func newRecord(table *Table, id string, raw core.Record) *Record {
	r := &Record{table: table, id: id}
	if r.id == "" {
		r.id = raw.GetString("id")
	}
	r.setRawJSON(raw)
	return r
}

func (r *Record) ID() string {
	return r.id
}

func (r *Record) Table() *Table {
	return r.table
}

// Fields returns a copy of the field mapping.
func (r *Record) Fields() Fields {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(Fields, len(r.fields))
	for k, v := range r.fields {
		out[k] = v
	}
	return out
}

func (r *Record) Get(name string) any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fields[name]
}

// Set changes a field locally. Call Save to persist it.
func (r *Record) Set(name string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fields[name] = value
}

// Decode copies the fields into the struct pointed to by target, matching
// json tags against field names. See core.DecodeFields for the coercions.
func (r *Record) Decode(target any) error {
	return core.DecodeFields(r.Fields(), target)
}

// CreatedTime returns the server creation time, if the record was received from the server.
func (r *Record) CreatedTime() (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	created, err := time.Parse(time.RFC3339, r.raw.GetString("createdTime"))
	if err != nil {
		return time.Time{}, false
	}
	return created, true
}

// RawJSON returns the payload the record was last built from. It is nil for
// records that never came from the server.
func (r *Record) RawJSON() core.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.raw
}

// String renders the record as a table of id and fields.
func (r *Record) String() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	view := make(core.Record, len(r.fields)+1)
	for k, v := range r.fields {
		view[k] = v
	}
	view["id"] = r.id
	return view.PrettyTable()
}

func (r *Record) setRawJSON(raw core.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.raw = raw
	r.fields = Fields{}
	if fields, ok := raw.Object("fields"); ok {
		r.fields = Fields(fields)
	}
}

// Fetch replaces the local fields with the server's copy.
func (r *Record) Fetch(ctx context.Context) (*Record, error) {
	resp, err := r.action(ctx, http.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	r.setRawJSON(resp.Body)
	return r, nil
}

// Save persists the current local fields with a full replace.
func (r *Record) Save(ctx context.Context) (*Record, error) {
	return r.PutUpdate(ctx, r.Fields(), nil)
}

// PatchUpdate changes the given fields and leaves the others untouched on the
// server. opts are merged into the request body (for example "typecast").
func (r *Record) PatchUpdate(ctx context.Context, fields Fields, opts Params) (*Record, error) {
	return r.update(ctx, http.MethodPatch, fields, opts)
}

// UpdateFields is an alias of PatchUpdate.
func (r *Record) UpdateFields(ctx context.Context, fields Fields, opts Params) (*Record, error) {
	return r.PatchUpdate(ctx, fields, opts)
}

// PutUpdate replaces the whole field set; fields left out are cleared on the server.
func (r *Record) PutUpdate(ctx context.Context, fields Fields, opts Params) (*Record, error) {
	return r.update(ctx, http.MethodPut, fields, opts)
}

// ReplaceFields is an alias of PutUpdate.
func (r *Record) ReplaceFields(ctx context.Context, fields Fields, opts Params) (*Record, error) {
	return r.PutUpdate(ctx, fields, opts)
}

// Destroy deletes the record. The returned record carries the destroyed id.
func (r *Record) Destroy(ctx context.Context) (*Record, error) {
	if _, err := r.action(ctx, http.MethodDelete, nil); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Record) update(ctx context.Context, method string, fields Fields, opts Params) (*Record, error) {
	resp, err := r.action(ctx, method, withFields(fields, opts))
	if err != nil {
		return nil, err
	}
	r.setRawJSON(resp.Body)
	return r, nil
}

func (r *Record) action(ctx context.Context, method string, body any) (*Response, error) {
	if r.id == "" {
		return nil, errMissingRecordID
	}
	return r.table.action(ctx, method, r.id, nil, body)
}

func (r *Record) FetchWithCallback(ctx context.Context, done Callback[*Record]) {
	runAsync(ctx, r.Fetch, done)
}

func (r *Record) SaveWithCallback(ctx context.Context, done Callback[*Record]) {
	runAsync(ctx, r.Save, done)
}

func (r *Record) PatchUpdateWithCallback(ctx context.Context, fields Fields, opts Params, done Callback[*Record]) {
	runAsync(ctx, func(ctx context.Context) (*Record, error) {
		return r.PatchUpdate(ctx, fields, opts)
	}, done)
}

func (r *Record) PutUpdateWithCallback(ctx context.Context, fields Fields, opts Params, done Callback[*Record]) {
	runAsync(ctx, func(ctx context.Context) (*Record, error) {
		return r.PutUpdate(ctx, fields, opts)
	}, done)
}

func (r *Record) DestroyWithCallback(ctx context.Context, done Callback[*Record]) {
	runAsync(ctx, r.Destroy, done)
}

// withFields builds an update body. opts cannot override "fields".
func withFields(fields Fields, opts Params) Params {
	if fields == nil {
		fields = Fields{}
	}
	body := Params{"fields": map[string]any(fields)}
	body.Update(opts, false)
	return body
}
