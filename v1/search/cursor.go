package search

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/Aleph-Alpha/accessor/v1/sink"
)

// Cursor resumes a point-in-time scan after the last document of a page.
// Numeric sort values are json.Number so they round-trip without loss.
type Cursor struct {
	SnapshotID string `json:"pit"`
	SortKey    []any  `json:"after"`
}

// Encode returns the cursor as an opaque URL-safe token.
func (c *Cursor) Encode() (string, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to encode cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeCursor parses a token produced by Encode. Failures are KindInvalid.
func DecodeCursor(token string) (*Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, sink.WithKind(sink.KindInvalid, fmt.Errorf("%w: %v", ErrInvalidCursor, err))
	}

	var c Cursor
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&c); err != nil {
		return nil, sink.WithKind(sink.KindInvalid, fmt.Errorf("%w: %v", ErrInvalidCursor, err))
	}
	if err := c.validate(); err != nil {
		return nil, sink.WithKind(sink.KindInvalid, err)
	}
	return &c, nil
}

func (c *Cursor) validate() error {
	if c.SnapshotID == "" {
		return fmt.Errorf("%w: missing snapshot id", ErrInvalidCursor)
	}
	if len(c.SortKey) == 0 {
		return fmt.Errorf("%w: missing sort key", ErrInvalidCursor)
	}
	return nil
}
