package airtable

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-airtable/airtable/core"
)

// Query is a validated listing of a table. It does not fetch anything until
// one of FirstPage, EachPage, All or Pages is used, and can be run many times.
type Query struct {
	table  *Table
	params Params
}

// Params returns a copy of the validated parameters.
func (q *Query) Params() Params {
	return q.params.Clone()
}

func (q *Query) Table() *Table {
	return q.table
}

// Pages starts a new traversal. The parameters are copied, so changing the
// query's source map afterwards has no effect on it.
func (q *Query) Pages() *Pages {
	return &Pages{query: q, params: q.params.Clone()}
}

// Pages walks the result pages of one traversal in server order.
// It is not safe for concurrent use.
type Pages struct {
	query  *Query
	params Params
	done   bool
}

// HasNext reports whether another page can be requested.
func (p *Pages) HasNext() bool {
	return !p.done
}

// Offset returns the cursor that the next request will send, if any.
func (p *Pages) Offset() string {
	offset, _ := p.params[core.ParamOffset].(string)
	return offset
}

// Next fetches the next page. After the last page, or after an error, it
// returns nil records and HasNext is false.
func (p *Pages) Next(ctx context.Context) ([]*Record, error) {
	if p.done {
		return nil, nil
	}
	table := p.query.table
	resp, err := table.action(ctx, http.MethodGet, "", p.params, nil)
	if err != nil {
		p.done = true
		return nil, err
	}
	records, err := table.recordsFrom(resp)
	if err != nil {
		p.done = true
		return nil, err
	}
	if offset := resp.Body.GetString(core.ParamOffset); offset != "" {
		p.params[core.ParamOffset] = offset
	} else {
		p.done = true
	}
	return records, nil
}

// PageFunc receives one page and the continuation of the traversal. Calling
// next requests the following page, or finishes the traversal after the last
// one. It may be called later, from any goroutine; extra calls are ignored.
type PageFunc func(records []*Record, next func())

// EachPage fetches pages one at a time and hands each to fn. Nothing more is
// fetched until fn's continuation is called, so a caller can pause between
// pages. EachPage returns once the continuation of the last page is called,
// on the first request error, or when ctx is done while waiting.
func (q *Query) EachPage(ctx context.Context, fn PageFunc) error {
	pages := q.Pages()
	for {
		records, err := pages.Next(ctx)
		if err != nil {
			return err
		}

		advance := make(chan struct{}, 1)
		var once sync.Once
		fn(records, func() {
			once.Do(func() { advance <- struct{}{} })
		})

		select {
		case <-advance:
		case <-ctx.Done():
			return ctx.Err()
		}
		if !pages.HasNext() {
			return nil
		}
	}
}

// FirstPage fetches exactly one page.
func (q *Query) FirstPage(ctx context.Context) ([]*Record, error) {
	return q.Pages().Next(ctx)
}

// All fetches every page and returns the records in server order.
func (q *Query) All(ctx context.Context) ([]*Record, error) {
	var all []*Record
	err := q.EachPage(ctx, func(records []*Record, next func()) {
		all = append(all, records...)
		next()
	})
	if err != nil {
		return nil, err
	}
	if all == nil {
		all = []*Record{}
	}
	return all, nil
}

// EachPageWithCallback runs EachPage on its own goroutine and reports its outcome to done.
func (q *Query) EachPageWithCallback(ctx context.Context, fn PageFunc, done func(error)) {
	go func() {
		err := q.EachPage(ctx, fn)
		if done != nil {
			done(err)
		}
	}()
}

func (q *Query) FirstPageWithCallback(ctx context.Context, done Callback[[]*Record]) {
	runAsync(ctx, q.FirstPage, done)
}

func (q *Query) AllWithCallback(ctx context.Context, done Callback[[]*Record]) {
	runAsync(ctx, q.All, done)
}
