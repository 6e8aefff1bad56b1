package table

import (
	"time"

	"github.com/Aleph-Alpha/accessor/v1/observability"
	"github.com/Aleph-Alpha/accessor/v1/sink"
)

// DefaultPageSize is used when a Page carries no size.
const DefaultPageSize = 50

// discoveryTimeout bounds the shared column-role lookup.
const discoveryTimeout = 30 * time.Second

// Row is one record keyed by column name. Writes take a Row, reads return them.
type Row = map[string]any

// Page selects one offset window: LIMIT Size OFFSET Index*Size.
type Page struct {
	Index int
	Size  int
}

func (p Page) limit() int {
	if p.Size <= 0 {
		return DefaultPageSize
	}
	return p.Size
}

func (p Page) offset() int {
	if p.Index <= 0 {
		return 0
	}
	return p.Index * p.limit()
}

// ColumnRoles names the timestamp columns the accessor manages.
// An empty field means no column plays that role.
type ColumnRoles struct {
	CreateAt string
	UpdateAt string
	DeleteAt string
}

type options struct {
	sink      sink.Config
	inspector ColumnInspector
	clock     func() time.Time
	observer  observability.Observer
	logger    sink.Logger
}

// Option configures a Table.
type Option func(*options)

// WithSink sets the debug and error reporting of every call.
func WithSink(cfg sink.Config) Option {
	return func(o *options) { o.sink = cfg }
}

// WithColumnInspector replaces the column discovery used to resolve ColumnRoles.
func WithColumnInspector(inspector ColumnInspector) Option {
	return func(o *options) { o.inspector = inspector }
}

// WithClock sets the source of automatic timestamps. Defaults to time.Now.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// WithObserver reports every call to observer, in addition to any observer
// already present in the sink config.
func WithObserver(observer observability.Observer) Option {
	return func(o *options) { o.observer = observer }
}

// WithLogger backs the default debug and error destinations when the sink
// config carries none.
func WithLogger(logger sink.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func buildOptions(opts []Option) options {
	o := options{
		inspector: RowsInspector{},
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.observer != nil {
		o.sink.Observer = observability.Multi(o.sink.Observer, o.observer)
	}
	if o.sink.Logger == nil && o.logger != nil {
		o.sink.Logger = o.logger
	}
	return o
}
