// Package mockapi is an in-memory fake of the records API, used by tests and
// the example program.
package mockapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const defaultPageSize = 100

// Record is a stored row.
type Record struct {
	ID          string         `json:"id"`
	CreatedTime string         `json:"createdTime"`
	Fields      map[string]any `json:"fields"`
}

// RecordedRequest is what the server saw for one request.
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

type table struct {
	order   []string
	records map[string]*Record
}

// Server routes /v0/{base}/{table}[/{record}] like the real API.
// The zero value is not usable; call New.
type Server struct {
	router chi.Router
	apiKey string

	mu          sync.Mutex
	tables      map[string]*table
	nextID      int
	rateLimited int
	override    http.HandlerFunc
	requests    []RecordedRequest
}

// Option configures a Server.
type Option func(*Server)

// WithApiKey makes the server answer 401 unless "Bearer <key>" is sent.
func WithApiKey(key string) Option {
	return func(s *Server) {
		s.apiKey = key
	}
}

// New creates an empty server.
func New(opts ...Option) *Server {
	s := &Server{
		router: chi.NewRouter(),
		tables: make(map[string]*table),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.Recoverer)
	r.Use(s.record)
	r.Use(s.intercept)

	r.Route("/v0/{base}/{table}", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Post("/", s.handleCreate)
		r.Patch("/", s.handleUpdateBatch(false))
		r.Put("/", s.handleUpdateBatch(true))
		r.Delete("/", s.handleDestroyBatch)

		r.Get("/{record}", s.handleGet)
		r.Patch("/{record}", s.handleUpdate(false))
		r.Put("/{record}", s.handleUpdate(true))
		r.Delete("/{record}", s.handleDestroy)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Seed stores records in base/table, keeping their order. Records without
// an id get a generated one. The stored copies are returned.
func (s *Server) Seed(base, tableName string, records ...Record) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(base, tableName)
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		stored := s.insert(t, rec.ID, rec.Fields)
		out = append(out, *stored)
	}
	return out
}

// Get returns a copy of a stored record.
func (s *Server) Get(base, tableName, id string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(base, tableName)
	rec, ok := t.records[id]
	if !ok {
		return Record{}, false
	}
	return *copyRecord(rec), true
}

// RateLimitNext makes the next n requests fail with 429.
func (s *Server) RateLimitNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateLimited = n
}

// SetOverride answers every request with h until cleared with nil.
func (s *Server) SetOverride(h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.override = h
}

// Requests returns the requests seen so far, oldest first.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedRequest(nil), s.requests...)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))
		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   body,
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		override := s.override
		limited := s.rateLimited > 0
		if limited {
			s.rateLimited--
		}
		s.mu.Unlock()

		switch {
		case override != nil:
			override(w, r)
		case limited:
			respondError(w, http.StatusTooManyRequests, "TOO_MANY_REQUESTS", "rate limited")
		case s.apiKey != "" && r.Header.Get("Authorization") != "Bearer "+s.apiKey:
			respondError(w, http.StatusUnauthorized, "AUTHENTICATION_REQUIRED", "Authentication required")
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	pageSize := intParam(query, "pageSize", defaultPageSize)
	maxRecords := intParam(query, "maxRecords", 0)
	start := 0
	if offset := query.Get("offset"); offset != "" {
		n, err := strconv.Atoi(offset)
		if err != nil || n < 0 {
			respondError(w, http.StatusUnprocessableEntity, "LIST_RECORDS_ITERATOR_NOT_AVAILABLE", "invalid offset")
			return
		}
		start = n
	}

	s.mu.Lock()
	t := s.table(urlParam(r, "base"), urlParam(r, "table"))
	ids := t.order
	if maxRecords > 0 && maxRecords < len(ids) {
		ids = ids[:maxRecords]
	}
	end := start + pageSize
	if end > len(ids) {
		end = len(ids)
	}
	page := make([]*Record, 0, pageSize)
	for _, id := range ids[min(start, end):end] {
		page = append(page, projectFields(t.records[id], query["fields[]"]))
	}
	s.mu.Unlock()

	body := map[string]any{"records": page}
	if end < len(ids) {
		body["offset"] = strconv.Itoa(end)
	}
	respondJSON(w, http.StatusOK, body)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.find(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, copyRecord(rec))
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Fields  map[string]any `json:"fields"`
		Records []struct {
			Fields map[string]any `json:"fields"`
		} `json:"records"`
	}
	if !decode(w, r, &payload) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(urlParam(r, "base"), urlParam(r, "table"))
	if payload.Records == nil {
		respondJSON(w, http.StatusOK, copyRecord(s.insert(t, "", payload.Fields)))
		return
	}
	created := make([]*Record, 0, len(payload.Records))
	for _, item := range payload.Records {
		created = append(created, copyRecord(s.insert(t, "", item.Fields)))
	}
	respondJSON(w, http.StatusOK, map[string]any{"records": created})
}

func (s *Server) handleUpdate(replace bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Fields map[string]any `json:"fields"`
		}
		if !decode(w, r, &payload) {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		rec, ok := s.find(w, r)
		if !ok {
			return
		}
		applyFields(rec, payload.Fields, replace)
		respondJSON(w, http.StatusOK, copyRecord(rec))
	}
}

func (s *Server) handleUpdateBatch(replace bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Records []struct {
				ID     string         `json:"id"`
				Fields map[string]any `json:"fields"`
			} `json:"records"`
		}
		if !decode(w, r, &payload) {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		t := s.table(urlParam(r, "base"), urlParam(r, "table"))
		updated := make([]*Record, 0, len(payload.Records))
		for _, item := range payload.Records {
			rec, ok := t.records[item.ID]
			if !ok {
				respondError(w, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("Could not find record %s", item.ID))
				return
			}
			applyFields(rec, item.Fields, replace)
			updated = append(updated, copyRecord(rec))
		}
		respondJSON(w, http.StatusOK, map[string]any{"records": updated})
	}
}

func (s *Server) handleDestroy(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.find(w, r)
	if !ok {
		return
	}
	s.remove(s.table(urlParam(r, "base"), urlParam(r, "table")), rec.ID)
	respondJSON(w, http.StatusOK, map[string]any{"id": rec.ID, "deleted": true})
}

func (s *Server) handleDestroyBatch(w http.ResponseWriter, r *http.Request) {
	ids := r.URL.Query()["records[]"]
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(urlParam(r, "base"), urlParam(r, "table"))
	deleted := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		if _, ok := t.records[id]; !ok {
			respondError(w, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("Could not find record %s", id))
			return
		}
	}
	for _, id := range ids {
		s.remove(t, id)
		deleted = append(deleted, map[string]any{"id": id, "deleted": true})
	}
	respondJSON(w, http.StatusOK, map[string]any{"records": deleted})
}

// find must be called with s.mu held.
func (s *Server) find(w http.ResponseWriter, r *http.Request) (*Record, bool) {
	t := s.table(urlParam(r, "base"), urlParam(r, "table"))
	id := urlParam(r, "record")
	rec, ok := t.records[id]
	if !ok {
		respondError(w, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("Could not find record %s", id))
	}
	return rec, ok
}

// table must be called with s.mu held.
func (s *Server) table(base, name string) *table {
	key := base + "/" + name
	t, ok := s.tables[key]
	if !ok {
		t = &table{records: make(map[string]*Record)}
		s.tables[key] = t
	}
	return t
}

// insert must be called with s.mu held.
func (s *Server) insert(t *table, id string, fields map[string]any) *Record {
	s.nextID++
	if id == "" {
		id = fmt.Sprintf("rec%014d", s.nextID)
	}
	if fields == nil {
		fields = map[string]any{}
	}
	rec := &Record{
		ID:          id,
		CreatedTime: time.Date(2024, 1, 1, 0, 0, s.nextID, 0, time.UTC).Format(time.RFC3339),
		Fields:      copyFields(fields),
	}
	if _, exists := t.records[id]; !exists {
		t.order = append(t.order, id)
	}
	t.records[id] = rec
	return rec
}

func (s *Server) remove(t *table, id string) {
	delete(t.records, id)
	for i, existing := range t.order {
		if existing == id {
			t.order = append(t.order[:i:i], t.order[i+1:]...)
			return
		}
	}
}

func applyFields(rec *Record, fields map[string]any, replace bool) {
	if replace {
		rec.Fields = copyFields(fields)
		return
	}
	for k, v := range fields {
		rec.Fields[k] = v
	}
}

func projectFields(rec *Record, names []string) *Record {
	out := copyRecord(rec)
	if len(names) == 0 {
		return out
	}
	keep := make(map[string]any, len(names))
	for _, name := range names {
		if v, ok := out.Fields[name]; ok {
			keep[name] = v
		}
	}
	out.Fields = keep
	return out
}

func copyRecord(rec *Record) *Record {
	out := *rec
	out.Fields = copyFields(rec.Fields)
	return &out
}

func copyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func urlParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func intParam(query url.Values, name string, fallback int) int {
	n, err := strconv.Atoi(query.Get(name))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "INVALID_REQUEST_BODY", err.Error())
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, kind, message string) {
	respondJSON(w, status, map[string]any{
		"error": map[string]any{"type": kind, "message": message},
	})
}
