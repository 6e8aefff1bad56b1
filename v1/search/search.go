package search

import (
	"context"
	"errors"

	"github.com/Aleph-Alpha/accessor/v1/query"
	"github.com/Aleph-Alpha/accessor/v1/sink"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/elastic/go-elasticsearch/v8/esutil"
)

// Offset addresses one window of an offset-paginated search.
type Offset struct {
	// Index is the zero-based window number.
	Index int
	// Size is the window length; 0 means DefaultOrderSize.
	Size int
}

func (o Offset) size() int {
	if o.Size <= 0 {
		return DefaultOrderSize
	}
	return o.Size
}

// Result is one offset window and the total number of matches.
type Result struct {
	Total int64
	Value []Doc
}

// Page is one window of a point-in-time scan.
type Page struct {
	// PIT is the snapshot the page was read from.
	PIT   string
	Total int64
	// Value holds the hits, each annotated with "_sort".
	Value []Doc
	// Next resumes the scan; nil once a page comes back short.
	Next *Cursor
}

// Get returns the _source payloads of all hits of the first result window.
// An empty field list or "*" returns whole documents.
func (i *Index) Get(ctx context.Context, fields []string, q query.Predicate) ([]Doc, error) {
	return sink.Run(ctx, i.sink, "get", func(ctx context.Context, call *sink.Call) ([]Doc, error) {
		body, err := i.searchBody(fields, q, nil)
		if err != nil {
			return nil, err
		}
		call.Query = body

		var res searchResponse
		if err := i.do(ctx, i.searchRequest(body), &res); err != nil {
			return nil, err
		}
		docs, err := res.docs(false)
		call.Size = int64(len(docs))
		return docs, err
	})
}

// GetFull returns the decoded search response unchanged.
func (i *Index) GetFull(ctx context.Context, fields []string, q query.Predicate) (map[string]any, error) {
	return sink.Run(ctx, i.sink, "getFull", func(ctx context.Context, call *sink.Call) (map[string]any, error) {
		body, err := i.searchBody(fields, q, nil)
		if err != nil {
			return nil, err
		}
		call.Query = body

		var res map[string]any
		if err := i.do(ctx, i.searchRequest(body), &res); err != nil {
			return nil, err
		}
		return res, nil
	})
}

// GetOrder returns one sorted offset window. Deep windows are bounded by the
// index's max_result_window; use GetPage to walk large result sets.
func (i *Index) GetOrder(ctx context.Context, fields []string, q query.Predicate, sort []query.Sort, page Offset) (*Result, error) {
	return sink.Run(ctx, i.sink, "getOrder", func(ctx context.Context, call *sink.Call) (*Result, error) {
		size := page.size()
		extra := map[string]any{
			"from": page.Index * size,
			"size": size,
		}
		if len(sort) > 0 {
			extra["sort"] = query.SearchSort(sort)
		}
		body, err := i.searchBody(fields, q, extra)
		if err != nil {
			return nil, err
		}
		call.Query = body

		var res searchResponse
		if err := i.do(ctx, i.searchRequest(body), &res); err != nil {
			return nil, err
		}
		docs, err := res.docs(true)
		if err != nil {
			return nil, err
		}
		call.Size = int64(len(docs))
		return &Result{Total: res.total(), Value: docs}, nil
	})
}

// GetPage reads one window of a point-in-time scan.
//
// With a nil cursor a snapshot is opened first and the scan starts at the
// beginning; otherwise the scan resumes after cursor.SortKey on
// cursor.SnapshotID. For every document to be visited exactly once the sort
// must end in a unique field; an empty sort uses the shard document order.
// Snapshots are never closed explicitly and expire after keepAlive.
func (i *Index) GetPage(ctx context.Context, fields []string, q query.Predicate, sort []query.Sort, cursor *Cursor, size int, keepAlive string) (*Page, error) {
	return sink.Run(ctx, i.sink, "getPage", func(ctx context.Context, call *sink.Call) (*Page, error) {
		return i.page(ctx, call, fields, q, sort, cursor, size, keepAlive)
	})
}

// GetPageToken is GetPage with the cursor passed in its encoded form. An
// empty token starts a new scan.
func (i *Index) GetPageToken(ctx context.Context, fields []string, q query.Predicate, sort []query.Sort, token string, size int, keepAlive string) (*Page, error) {
	return sink.Run(ctx, i.sink, "getPage", func(ctx context.Context, call *sink.Call) (*Page, error) {
		var cursor *Cursor
		if token != "" {
			c, err := DecodeCursor(token)
			if err != nil {
				return nil, err
			}
			cursor = c
		}
		return i.page(ctx, call, fields, q, sort, cursor, size, keepAlive)
	})
}

func (i *Index) page(ctx context.Context, call *sink.Call, fields []string, q query.Predicate, sort []query.Sort, cursor *Cursor, size int, keepAlive string) (*Page, error) {
	if size <= 0 {
		size = DefaultPageSize
	}
	if keepAlive == "" {
		keepAlive = DefaultKeepAlive
	}

	var pit string
	if cursor == nil {
		id, err := i.openPIT(ctx, keepAlive)
		if err != nil {
			return nil, err
		}
		pit = id
	} else {
		if err := cursor.validate(); err != nil {
			return nil, sink.WithKind(sink.KindInvalid, err)
		}
		pit = cursor.SnapshotID
	}
	call.SubResource = pit

	order := query.SearchSort(sort)
	if len(order) == 0 {
		order = []any{map[string]any{"_shard_doc": map[string]any{"order": "asc"}}}
	}
	extra := map[string]any{
		"pit":  map[string]any{"id": pit, "keep_alive": keepAlive},
		"size": size,
		"sort": order,
	}
	if cursor != nil {
		extra["search_after"] = cursor.SortKey
	}
	body, err := i.searchBody(fields, q, extra)
	if err != nil {
		return nil, err
	}
	call.Query = body

	// Point-in-time searches must not name an index.
	var res searchResponse
	req := esapi.SearchRequest{Body: esutil.NewJSONReader(body)}
	if err := i.do(ctx, req, &res); err != nil {
		return nil, err
	}
	if res.PitID != "" {
		pit = res.PitID
	}

	docs, err := res.docs(true)
	if err != nil {
		return nil, err
	}
	call.Size = int64(len(docs))

	page := &Page{PIT: pit, Total: res.total(), Value: docs}
	if len(res.Hits.Hits) == size {
		last, err := res.Hits.Hits[len(res.Hits.Hits)-1].sortKey()
		if err != nil {
			return nil, err
		}
		if len(last) > 0 {
			page.Next = &Cursor{SnapshotID: pit, SortKey: last}
		}
	}
	return page, nil
}

func (i *Index) openPIT(ctx context.Context, keepAlive string) (string, error) {
	var res struct {
		ID string `json:"id"`
	}
	req := esapi.OpenPointInTimeRequest{
		Index:     []string{i.name},
		KeepAlive: keepAlive,
	}
	if err := i.do(ctx, req, &res); err != nil {
		return "", err
	}
	if res.ID == "" {
		return "", errors.New("point in time response carried no id")
	}
	return res.ID, nil
}

func (i *Index) searchRequest(body map[string]any) esapi.SearchRequest {
	return esapi.SearchRequest{
		Index: []string{i.name},
		Body:  esutil.NewJSONReader(body),
	}
}

// Count returns the number of documents matching q.
func (i *Index) Count(ctx context.Context, q query.Predicate) (int64, error) {
	return sink.Run(ctx, i.sink, "count", func(ctx context.Context, call *sink.Call) (int64, error) {
		compiled, err := query.Search(q)
		if err != nil {
			return 0, err
		}
		body := map[string]any{"query": compiled}
		call.Query = body

		var res struct {
			Count int64 `json:"count"`
		}
		req := esapi.CountRequest{
			Index: []string{i.name},
			Body:  esutil.NewJSONReader(body),
		}
		if err := i.do(ctx, req, &res); err != nil {
			return 0, err
		}
		call.Size = res.Count
		return res.Count, nil
	})
}

// Add creates a document. Ids are opaque, composite ids such as "a:b" are
// passed through. An existing id fails with KindConflict; an empty id lets
// the backend assign one.
func (i *Index) Add(ctx context.Context, data Doc, id string) error {
	_, err := sink.Run(ctx, i.sink, "add", func(ctx context.Context, call *sink.Call) (struct{}, error) {
		call.Query = data
		call.Size = 1
		return struct{}{}, i.create(ctx, data, id)
	})
	return err
}

func (i *Index) create(ctx context.Context, data Doc, id string) error {
	if id == "" {
		return i.do(ctx, esapi.IndexRequest{
			Index:   i.name,
			Body:    esutil.NewJSONReader(data),
			Refresh: i.refresh,
		}, nil)
	}
	return i.do(ctx, esapi.CreateRequest{
		Index:      i.name,
		DocumentID: id,
		Body:       esutil.NewJSONReader(data),
		Refresh:    i.refresh,
	}, nil)
}

// Set merges data into an existing document. A missing document fails with
// KindNotFound.
func (i *Index) Set(ctx context.Context, data Doc, id string) error {
	_, err := sink.Run(ctx, i.sink, "set", func(ctx context.Context, call *sink.Call) (struct{}, error) {
		call.Query = data
		call.Size = 1
		return struct{}{}, i.update(ctx, data, id)
	})
	return err
}

func (i *Index) update(ctx context.Context, data Doc, id string) error {
	if id == "" {
		return sink.Invalidf("update needs a document id")
	}
	return i.do(ctx, esapi.UpdateRequest{
		Index:      i.name,
		DocumentID: id,
		Body:       esutil.NewJSONReader(map[string]any{"doc": data}),
		Refresh:    i.refresh,
	}, nil)
}

// Has reports whether a document with id exists.
func (i *Index) Has(ctx context.Context, id string) (bool, error) {
	return sink.Run(ctx, i.sink, "has", func(ctx context.Context, call *sink.Call) (bool, error) {
		call.Query = id
		return i.has(ctx, id)
	})
}

func (i *Index) has(ctx context.Context, id string) (bool, error) {
	return i.exists(ctx, esapi.ExistsRequest{Index: i.name, DocumentID: id})
}

// HasElseAdd creates the document unless id exists and reports whether it
// created it. The check and the create form one call: a single debug entry,
// and losing a race against a concurrent create reports false, not an error.
func (i *Index) HasElseAdd(ctx context.Context, data Doc, id string) (bool, error) {
	return sink.Run(ctx, i.sink, "hasElseAdd", func(ctx context.Context, call *sink.Call) (bool, error) {
		call.Query = data
		found, err := i.has(ctx, id)
		if err != nil || found {
			return false, err
		}
		if err := i.create(ctx, data, id); err != nil {
			if classify(err) == sink.KindConflict {
				return false, nil
			}
			return false, err
		}
		call.Size = 1
		return true, nil
	})
}

// HasElseSet creates the document unless id exists and reports whether it
// created it. An existing document is left untouched. Losing a race against a
// concurrent create reports false.
func (i *Index) HasElseSet(ctx context.Context, data Doc, id string) (bool, error) {
	return sink.Run(ctx, i.sink, "hasElseSet", func(ctx context.Context, call *sink.Call) (bool, error) {
		call.Query = data
		found, err := i.has(ctx, id)
		if err != nil || found {
			return false, err
		}
		if err := i.create(ctx, data, id); err != nil {
			if classify(err) == sink.KindConflict {
				return false, nil
			}
			return false, err
		}
		call.Size = 1
		return true, nil
	})
}
