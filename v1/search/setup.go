package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/Aleph-Alpha/accessor/v1/query"
	"github.com/Aleph-Alpha/accessor/v1/sink"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const component = "search"

// Doc is one document: the _source payload of a hit, or the data of a write.
type Doc = map[string]any

// Index is the accessor for one Elasticsearch index.
//
// Concurrency: all methods are safe for concurrent use. The client is shared;
// Index holds no per-call state.
type Index struct {
	name     string
	es       *elasticsearch.Client
	sink     *sink.Sink
	defaults Defaults
	refresh  string
}

// New opens a dedicated client for index.
func New(cfg Config, index string, opts ...Option) (*Index, error) {
	if index == "" {
		return nil, errors.New("search: index is required")
	}
	esCfg, err := cfg.clientConfig()
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", index, err)
	}
	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("search %s: failed to create client: %w", index, err)
	}
	return NewFromClient(es, index, opts...), nil
}

// NewFromClient wraps a caller-owned client.
func NewFromClient(es *elasticsearch.Client, index string, opts ...Option) *Index {
	o := buildOptions(opts)
	return &Index{
		name:     index,
		es:       es,
		sink:     sink.New(component, index, o.sink, classify),
		defaults: o.defaults,
		refresh:  o.refresh,
	}
}

// Name returns the target index.
func (i *Index) Name() string { return i.name }

// Client returns the underlying client for calls the accessor does not cover.
func (i *Index) Client() *elasticsearch.Client { return i.es }

// searchBody merges the per-call request over the index defaults. The query
// is only taken from defaults when the caller passed no predicate.
func (i *Index) searchBody(fields []string, q query.Predicate, extra map[string]any) (map[string]any, error) {
	body := make(map[string]any, len(i.defaults)+len(extra)+2)
	for k, v := range i.defaults {
		body[k] = v
	}

	if _, ok := body["query"]; q != nil || !ok {
		compiled, err := query.Search(q)
		if err != nil {
			return nil, err
		}
		body["query"] = compiled
	}

	if source := sourceFilter(fields); source != nil {
		body["_source"] = source
	}

	for k, v := range extra {
		body[k] = v
	}
	return body, nil
}

func sourceFilter(fields []string) []string {
	if len(fields) == 0 || (len(fields) == 1 && fields[0] == "*") {
		return nil
	}
	return fields
}

// do sends req and decodes a successful JSON response into out, untyped
// numbers as json.Number. out may be nil when only the status matters.
func (i *Index) do(ctx context.Context, req esapi.Request, out any) error {
	res, err := req.Do(ctx, i.es)
	if err != nil {
		return err
	}
	defer closeBody(res)

	if res.IsError() {
		return responseError(res)
	}
	if out == nil || res.Body == nil {
		return nil
	}
	dec := json.NewDecoder(res.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// exists sends a HEAD-style request: 200 is true, 404 is false.
func (i *Index) exists(ctx context.Context, req esapi.Request) (bool, error) {
	res, err := req.Do(ctx, i.es)
	if err != nil {
		return false, err
	}
	defer closeBody(res)

	switch {
	case res.StatusCode == 404:
		return false, nil
	case res.IsError():
		return false, responseError(res)
	}
	return true, nil
}

func closeBody(res *esapi.Response) {
	if res.Body != nil {
		_, _ = io.Copy(io.Discard, res.Body)
		_ = res.Body.Close()
	}
}

type searchResponse struct {
	PitID string `json:"pit_id"`
	Hits  struct {
		Total *struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []hit `json:"hits"`
	} `json:"hits"`
}

type hit struct {
	ID     string          `json:"_id"`
	Source json.RawMessage `json:"_source"`
	Sort   json.RawMessage `json:"sort"`
}

func (r *searchResponse) total() int64 {
	if r.Hits.Total == nil {
		return int64(len(r.Hits.Hits))
	}
	return r.Hits.Total.Value
}

// docs turns hits into _source payloads, numbers kept as json.Number. With
// withSort each doc carries its sort tuple under "_sort".
func (r *searchResponse) docs(withSort bool) ([]Doc, error) {
	out := make([]Doc, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		doc := Doc{}
		if len(h.Source) > 0 && !bytes.Equal(h.Source, []byte("null")) {
			dec := json.NewDecoder(bytes.NewReader(h.Source))
			dec.UseNumber()
			if err := dec.Decode(&doc); err != nil {
				return nil, fmt.Errorf("failed to decode hit %s: %w", h.ID, err)
			}
		}
		if withSort {
			key, err := h.sortKey()
			if err != nil {
				return nil, err
			}
			doc["_sort"] = key
		}
		out = append(out, doc)
	}
	return out, nil
}

func (h hit) sortKey() ([]any, error) {
	if len(h.Sort) == 0 {
		return nil, nil
	}
	var key []any
	dec := json.NewDecoder(bytes.NewReader(h.Sort))
	dec.UseNumber()
	if err := dec.Decode(&key); err != nil {
		return nil, fmt.Errorf("failed to decode sort of hit %s: %w", h.ID, err)
	}
	return key, nil
}
