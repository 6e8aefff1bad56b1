package search

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/require"
)

// fakeES is an in-memory stand-in for the handful of Elasticsearch endpoints
// the accessor talks to. It understands the query subset query.Search emits.
type fakeES struct {
	mu       sync.Mutex
	indices  map[string]map[string]*storedDoc
	pits     map[string][]*storedDoc
	seq      int
	requests []string
}

type storedDoc struct {
	index  string
	id     string
	seq    int
	source map[string]any
}

func newFakeES() *fakeES {
	return &fakeES{
		indices: map[string]map[string]*storedDoc{},
		pits:    map[string][]*storedDoc{},
	}
}

func newTestIndex(t *testing.T, fake *fakeES, opts ...Option) *Index {
	t.Helper()
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{"http://es.test:9200"},
		Transport: fake,
	})
	require.NoError(t, err)
	return NewFromClient(es, "docs", opts...)
}

func (f *fakeES) seed(index, id string, source map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	// round-trip through JSON so values look like decoded request bodies
	raw, _ := json.Marshal(source)
	var decoded map[string]any
	_ = json.Unmarshal(raw, &decoded)
	f.put(index, id, decoded)
}

func (f *fakeES) put(index, id string, source map[string]any) {
	if f.indices[index] == nil {
		f.indices[index] = map[string]*storedDoc{}
	}
	f.seq++
	f.indices[index][id] = &storedDoc{index: index, id: id, seq: f.seq, source: source}
}

func (f *fakeES) count(method, prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if (method == "" || strings.HasPrefix(r, method+" ")) && strings.Contains(r, prefix) {
			n++
		}
	}
	return n
}

func (f *fakeES) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req.Method+" "+req.URL.Path)

	var body map[string]any
	if req.Body != nil {
		raw, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &body); err != nil {
				return reply(req, 400, errorBody("parse_exception", err.Error())), nil
			}
		}
	}

	parts := strings.Split(strings.Trim(req.URL.Path, "/"), "/")
	status, out := f.route(req, parts, body)
	return reply(req, status, out), nil
}

func (f *fakeES) route(req *http.Request, parts []string, body map[string]any) (int, any) {
	switch {
	case len(parts) == 1 && parts[0] == "_search":
		return f.pitSearch(body)
	case len(parts) == 1:
		return f.indexAdmin(req.Method, parts[0])
	case len(parts) == 2 && parts[1] == "_search":
		return f.search(parts[0], f.live(parts[0]), body, "")
	case len(parts) == 2 && parts[1] == "_count":
		return f.countDocs(parts[0], body)
	case len(parts) == 2 && parts[1] == "_pit":
		return f.openPIT(parts[0], req.URL.Query().Get("keep_alive"))
	case len(parts) == 2 && parts[1] == "_doc" && req.Method == http.MethodPost:
		f.put(parts[0], fmt.Sprintf("auto-%d", f.seq+1), body)
		return 201, map[string]any{"result": "created"}
	case len(parts) == 3 && parts[1] == "_create":
		return f.create(parts[0], parts[2], body)
	case len(parts) == 3 && parts[1] == "_update":
		return f.update(parts[0], parts[2], body)
	case len(parts) == 3 && parts[1] == "_doc":
		return f.doc(req.Method, parts[0], parts[2])
	case len(parts) == 4 && parts[1] == "_mapping" && parts[2] == "field":
		return f.fieldMapping(parts[0])
	}
	return 400, errorBody("illegal_argument_exception", "unsupported endpoint "+req.URL.Path)
}

func (f *fakeES) indexAdmin(method, pattern string) (int, any) {
	matched := f.matchIndices(pattern)
	switch method {
	case http.MethodHead:
		if len(matched) == 0 {
			return 404, nil
		}
		return 200, nil
	case http.MethodDelete:
		if len(matched) == 0 {
			return 404, errorBody("index_not_found_exception", "no such index ["+pattern+"]")
		}
		for _, name := range matched {
			delete(f.indices, name)
		}
		return 200, map[string]any{"acknowledged": true}
	default:
		if len(matched) == 0 && !strings.Contains(pattern, "*") {
			return 404, errorBody("index_not_found_exception", "no such index ["+pattern+"]")
		}
		out := map[string]any{}
		for _, name := range matched {
			out[name] = map[string]any{"aliases": map[string]any{}, "mappings": map[string]any{}, "settings": map[string]any{}}
		}
		return 200, out
	}
}

func (f *fakeES) matchIndices(pattern string) []string {
	var out []string
	for name := range f.indices {
		if ok, _ := path.Match(pattern, name); ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (f *fakeES) live(index string) []*storedDoc {
	docs := make([]*storedDoc, 0, len(f.indices[index]))
	for _, d := range f.indices[index] {
		docs = append(docs, d)
	}
	return docs
}

func (f *fakeES) create(index, id string, body map[string]any) (int, any) {
	if _, ok := f.indices[index][id]; ok {
		return 409, errorBody("version_conflict_engine_exception", "["+id+"]: version conflict, document already exists")
	}
	f.put(index, id, body)
	return 201, map[string]any{"_id": id, "result": "created"}
}

func (f *fakeES) update(index, id string, body map[string]any) (int, any) {
	d, ok := f.indices[index][id]
	if !ok {
		return 404, errorBody("document_missing_exception", "["+id+"]: document missing")
	}
	patch, _ := body["doc"].(map[string]any)
	merged := map[string]any{}
	for k, v := range d.source {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	d.source = merged
	return 200, map[string]any{"_id": id, "result": "updated"}
}

func (f *fakeES) doc(method, index, id string) (int, any) {
	d, ok := f.indices[index][id]
	switch method {
	case http.MethodHead:
		if !ok {
			return 404, nil
		}
		return 200, nil
	case http.MethodDelete:
		if !ok {
			return 404, map[string]any{"_id": id, "result": "not_found"}
		}
		delete(f.indices[index], id)
		return 200, map[string]any{"_id": id, "result": "deleted"}
	default:
		if !ok {
			return 404, map[string]any{"_id": id, "found": false}
		}
		return 200, map[string]any{"_id": id, "found": true, "_source": d.source}
	}
}

func (f *fakeES) openPIT(index, keepAlive string) (int, any) {
	if keepAlive == "" {
		return 400, errorBody("action_request_validation_exception", "keep_alive is missing")
	}
	if _, ok := f.indices[index]; !ok {
		return 404, errorBody("index_not_found_exception", "no such index ["+index+"]")
	}
	f.seq++
	id := fmt.Sprintf("pit-%d", f.seq)
	var snapshot []*storedDoc
	for _, d := range f.live(index) {
		c := *d
		snapshot = append(snapshot, &c)
	}
	f.pits[id] = snapshot
	return 200, map[string]any{"id": id}
}

func (f *fakeES) pitSearch(body map[string]any) (int, any) {
	pit, _ := body["pit"].(map[string]any)
	id, _ := pit["id"].(string)
	docs, ok := f.pits[id]
	if !ok {
		return 404, errorBody("search_context_missing_exception", "No search context found for id ["+id+"]")
	}
	return f.search("", docs, body, id)
}

func (f *fakeES) countDocs(index string, body map[string]any) (int, any) {
	n := 0
	for _, d := range f.live(index) {
		ok, err := matches(d.source, body["query"])
		if err != nil {
			return 400, errorBody("query_shard_exception", err.Error())
		}
		if ok {
			n++
		}
	}
	return 200, map[string]any{"count": n}
}

type sortField struct {
	field string
	desc  bool
}

func (f *fakeES) search(index string, docs []*storedDoc, body map[string]any, pit string) (int, any) {
	if index != "" {
		if _, ok := f.indices[index]; !ok {
			return 404, errorBody("index_not_found_exception", "no such index ["+index+"]")
		}
	}

	var hits []*storedDoc
	for _, d := range docs {
		ok, err := matches(d.source, body["query"])
		if err != nil {
			return 400, errorBody("query_shard_exception", err.Error())
		}
		if ok {
			hits = append(hits, d)
		}
	}

	sorts := parseSort(body["sort"])
	if pit != "" && (len(sorts) == 0 || sorts[len(sorts)-1].field != "_shard_doc") {
		sorts = append(sorts, sortField{field: "_shard_doc"})
	}
	if len(sorts) == 0 {
		sorts = []sortField{{field: "_shard_doc"}}
	}
	sort.SliceStable(hits, func(a, b int) bool {
		return compareKeys(sortKey(hits[a], sorts), sortKey(hits[b], sorts), sorts) < 0
	})

	total := len(hits)
	if after, ok := body["search_after"].([]any); ok {
		var rest []*storedDoc
		for _, d := range hits {
			if compareKeys(sortKey(d, sorts), after, sorts) > 0 {
				rest = append(rest, d)
			}
		}
		hits = rest
	}

	from := intOf(body["from"], 0)
	size := intOf(body["size"], 10)
	if from > len(hits) {
		from = len(hits)
	}
	hits = hits[from:]
	if size < len(hits) {
		hits = hits[:size]
	}

	_, sorted := body["sort"]
	out := make([]any, 0, len(hits))
	for _, d := range hits {
		h := map[string]any{"_index": d.index, "_id": d.id, "_source": project(d.source, body["_source"])}
		if sorted || pit != "" {
			h["sort"] = sortKey(d, sorts)
		}
		out = append(out, h)
	}

	res := map[string]any{
		"hits": map[string]any{
			"total": map[string]any{"value": total, "relation": "eq"},
			"hits":  out,
		},
	}
	if pit != "" {
		res["pit_id"] = pit
	}
	return 200, res
}

func (f *fakeES) fieldMapping(index string) (int, any) {
	out := map[string]any{}
	for _, name := range f.matchIndices(index) {
		mappings := map[string]any{}
		for _, d := range f.indices[name] {
			for field, v := range d.source {
				mappings[field] = map[string]any{
					"full_name": field,
					"mapping":   map[string]any{field: map[string]any{"type": typeOf(v)}},
				}
			}
		}
		out[name] = map[string]any{"mappings": mappings}
	}
	if len(out) == 0 {
		return 404, errorBody("index_not_found_exception", "no such index ["+index+"]")
	}
	return 200, out
}

func typeOf(v any) string {
	switch v.(type) {
	case float64:
		return "long"
	case bool:
		return "boolean"
	default:
		return "keyword"
	}
}

func matches(doc map[string]any, q any) (bool, error) {
	if q == nil {
		return true, nil
	}
	m, ok := q.(map[string]any)
	if !ok {
		return false, fmt.Errorf("malformed query %v", q)
	}
	for kind, arg := range m {
		clause, _ := arg.(map[string]any)
		switch kind {
		case "match_all":
		case "term":
			for field, v := range clause {
				if compareValues(doc[field], v) != 0 || doc[field] == nil {
					return false, nil
				}
			}
		case "terms":
			for field, vs := range clause {
				found := false
				for _, v := range vs.([]any) {
					if doc[field] != nil && compareValues(doc[field], v) == 0 {
						found = true
					}
				}
				if !found {
					return false, nil
				}
			}
		case "range":
			for field, b := range clause {
				v := doc[field]
				if v == nil {
					return false, nil
				}
				for op, bound := range b.(map[string]any) {
					c := compareValues(v, bound)
					if (op == "gt" && c <= 0) || (op == "gte" && c < 0) || (op == "lt" && c >= 0) || (op == "lte" && c > 0) {
						return false, nil
					}
				}
			}
		case "exists":
			if doc[clause["field"].(string)] == nil {
				return false, nil
			}
		case "bool":
			for _, key := range []string{"filter", "must"} {
				for _, sub := range asList(clause[key]) {
					ok, err := matches(doc, sub)
					if err != nil || !ok {
						return false, err
					}
				}
			}
			for _, sub := range asList(clause["must_not"]) {
				ok, err := matches(doc, sub)
				if err != nil || ok {
					return false, err
				}
			}
		default:
			return false, fmt.Errorf("unsupported query [%s]", kind)
		}
	}
	return true, nil
}

func asList(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	default:
		return []any{t}
	}
}

func parseSort(v any) []sortField {
	var out []sortField
	for _, entry := range asList(v) {
		switch e := entry.(type) {
		case string:
			out = append(out, sortField{field: e})
		case map[string]any:
			for field, order := range e {
				sf := sortField{field: field}
				switch s := order.(type) {
				case string:
					sf.desc = s == "desc"
				case map[string]any:
					sf.desc = s["order"] == "desc"
				}
				out = append(out, sf)
			}
		}
	}
	return out
}

func sortKey(d *storedDoc, sorts []sortField) []any {
	key := make([]any, len(sorts))
	for i, s := range sorts {
		if s.field == "_shard_doc" {
			key[i] = float64(d.seq)
			continue
		}
		key[i] = d.source[s.field]
	}
	return key
}

func compareKeys(a, b []any, sorts []sortField) int {
	for i, s := range sorts {
		if i >= len(a) || i >= len(b) {
			return 0
		}
		c := compareValues(a[i], b[i])
		if s.desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

func compareValues(a, b any) int {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func intOf(v any, def int) int {
	if f, ok := toFloat(v); ok {
		return int(f)
	}
	return def
}

func project(source map[string]any, filter any) map[string]any {
	fields, ok := filter.([]any)
	if !ok {
		return source
	}
	out := map[string]any{}
	for _, f := range fields {
		name, _ := f.(string)
		if v, ok := source[name]; ok {
			out[name] = v
		}
	}
	return out
}

func errorBody(kind, reason string) map[string]any {
	return map[string]any{
		"error":  map[string]any{"type": kind, "reason": reason},
		"status": 0,
	}
}

func reply(req *http.Request, status int, body any) *http.Response {
	var raw []byte
	if body != nil && req.Method != http.MethodHead {
		raw, _ = json.Marshal(body)
	}
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("X-Elastic-Product", "Elasticsearch")
	return &http.Response{
		StatusCode:    status,
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(raw)),
		ContentLength: int64(len(raw)),
		Request:       req,
	}
}
