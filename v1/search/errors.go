package search

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Aleph-Alpha/accessor/v1/query"
	"github.com/Aleph-Alpha/accessor/v1/sink"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ErrInvalidCursor is returned when a cursor string cannot be decoded.
var ErrInvalidCursor = errors.New("search: invalid cursor")

// ResponseError is an error status returned by Elasticsearch.
type ResponseError struct {
	StatusCode int
	Type       string
	Reason     string
}

func (e *ResponseError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("elasticsearch: status %d", e.StatusCode)
	}
	return fmt.Sprintf("elasticsearch: status %d: %s: %s", e.StatusCode, e.Type, e.Reason)
}

// responseError reads the error body of res. The caller closes the body.
func responseError(res *esapi.Response) error {
	out := &ResponseError{StatusCode: res.StatusCode}
	if res.Body == nil {
		return out
	}

	raw, err := io.ReadAll(res.Body)
	if err != nil || len(raw) == 0 {
		return out
	}

	var body struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(raw, &body) != nil || len(body.Error) == 0 {
		return out
	}

	var detail struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	}
	if json.Unmarshal(body.Error, &detail) == nil {
		out.Type = detail.Type
		out.Reason = detail.Reason
	} else {
		var reason string
		if json.Unmarshal(body.Error, &reason) == nil {
			out.Reason = reason
		}
	}
	return out
}

// classify maps response statuses and local validation errors to sink kinds.
// Rejected queries and expired point-in-time snapshots stay KindBackend.
func classify(err error) sink.Kind {
	switch {
	case errors.Is(err, ErrInvalidCursor),
		errors.Is(err, query.ErrUnsupported),
		errors.Is(err, query.ErrEmptyField),
		errors.Is(err, query.ErrEmptyRange):
		return sink.KindInvalid
	}

	var re *ResponseError
	if errors.As(err, &re) {
		if re.Type == "search_context_missing_exception" {
			return sink.KindBackend
		}
		switch re.StatusCode {
		case http.StatusNotFound:
			return sink.KindNotFound
		case http.StatusConflict:
			return sink.KindConflict
		}
	}
	return sink.KindBackend
}
