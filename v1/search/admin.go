package search

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/Aleph-Alpha/accessor/v1/sink"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Admin groups index management calls. An empty index argument means the
// accessor's own index.
type Admin struct {
	idx *Index
}

// Admin returns the management surface of the accessor.
func (i *Index) Admin() Admin { return Admin{idx: i} }

func (a Admin) target(index string) string {
	if index == "" {
		return a.idx.name
	}
	return index
}

// TableList returns the sorted names of indices matching pattern; an empty
// pattern lists all indices.
func (a Admin) TableList(ctx context.Context, pattern string) ([]string, error) {
	return sink.Run(ctx, a.idx.sink, "tableList", func(ctx context.Context, call *sink.Call) ([]string, error) {
		if pattern == "" {
			pattern = "*"
		}
		call.Query = pattern

		var res map[string]json.RawMessage
		if err := a.idx.do(ctx, esapi.IndicesGetRequest{Index: []string{pattern}}, &res); err != nil {
			return nil, err
		}
		names := make([]string, 0, len(res))
		for name := range res {
			names = append(names, name)
		}
		sort.Strings(names)
		call.Size = int64(len(names))
		return names, nil
	})
}

// TableDelete drops an index. A missing index fails with KindNotFound.
func (a Admin) TableDelete(ctx context.Context, index string) error {
	_, err := sink.Run(ctx, a.idx.sink, "tableDelete", func(ctx context.Context, call *sink.Call) (struct{}, error) {
		target := a.target(index)
		call.Query = target
		call.SubResource = target
		return struct{}{}, a.idx.do(ctx, esapi.IndicesDeleteRequest{Index: []string{target}}, nil)
	})
	return err
}

// TableHas reports whether an index exists.
func (a Admin) TableHas(ctx context.Context, index string) (bool, error) {
	return sink.Run(ctx, a.idx.sink, "tableHas", func(ctx context.Context, call *sink.Call) (bool, error) {
		target := a.target(index)
		call.Query = target
		call.SubResource = target
		return a.idx.exists(ctx, esapi.IndicesExistsRequest{Index: []string{target}})
	})
}

// RecordDelete removes one document. A missing document fails with
// KindNotFound.
func (a Admin) RecordDelete(ctx context.Context, id, index string) error {
	_, err := sink.Run(ctx, a.idx.sink, "recordDelete", func(ctx context.Context, call *sink.Call) (struct{}, error) {
		target := a.target(index)
		call.Query = id
		call.SubResource = target
		call.Size = 1
		return struct{}{}, a.idx.do(ctx, esapi.DeleteRequest{
			Index:      target,
			DocumentID: id,
			Refresh:    a.idx.refresh,
		}, nil)
	})
	return err
}

// IndexColumn returns the field mappings of an index keyed by full field
// path. With a wildcard index the mappings of all matching indices are merged.
func (a Admin) IndexColumn(ctx context.Context, index string) (map[string]any, error) {
	return sink.Run(ctx, a.idx.sink, "indexColumn", func(ctx context.Context, call *sink.Call) (map[string]any, error) {
		target := a.target(index)
		call.Query = target
		call.SubResource = target

		var res map[string]struct {
			Mappings map[string]any `json:"mappings"`
		}
		req := esapi.IndicesGetFieldMappingRequest{
			Index:  []string{target},
			Fields: []string{"*"},
		}
		if err := a.idx.do(ctx, req, &res); err != nil {
			return nil, err
		}

		fields := map[string]any{}
		for _, m := range res {
			for name, mapping := range m.Mappings {
				fields[name] = mapping
			}
		}
		call.Size = int64(len(fields))
		return fields, nil
	})
}
