// Package search provides a uniform accessor over one Elasticsearch index.
//
// Predicates from the query package are compiled to the query DSL; a nil
// predicate matches everything. Index-wide request defaults (WithDefaults)
// sit beneath every search body and lose to per-call fields.
//
// Two pagination styles are offered:
//
//   - GetOrder: sorted offset windows (from/size), cheap but bounded by the
//     index's max_result_window.
//   - GetPage: keyset pagination over a point-in-time snapshot. The first
//     call opens the snapshot; each page returns a Cursor that resumes after
//     its last document. Cursors can be carried across process boundaries with
//     Encode and DecodeCursor.
//
// Basic usage:
//
//	docs, err := search.New(search.Config{Addresses: []string{"http://localhost:9200"}}, "documents")
//	if err != nil {
//		return err
//	}
//
//	var cursor *search.Cursor
//	for {
//		page, err := docs.GetPage(ctx, nil, query.Eq("lang", "en"),
//			[]query.Sort{query.Asc("created"), query.Asc("id")}, cursor, 100, "")
//		if err != nil {
//			return err
//		}
//		handle(page.Value)
//		if page.Next == nil {
//			break
//		}
//		cursor = page.Next
//	}
//
// Every call runs through a sink.Sink; failures come back as *sink.OpError.
// A 404 is KindNotFound, a 409 (document exists) KindConflict, an undecodable
// cursor KindInvalid and everything else KindBackend.
package search
