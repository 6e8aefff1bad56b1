package table

import (
	"github.com/Aleph-Alpha/accessor/v1/database"
	"github.com/Aleph-Alpha/accessor/v1/observability"
	"github.com/Aleph-Alpha/accessor/v1/sink"
	"go.uber.org/fx"
)

// FXModule provides a *Factory that builds table accessors on the shared
// database.Conn. Combine it with database.FXModule.
//
//	app := fx.New(
//	    database.FXModule,
//	    table.FXModule,
//	    fx.Provide(func() database.Config { return cfg }),
//	    fx.Invoke(func(tables *table.Factory) {
//	        users := tables.Table("users")
//	        _ = users
//	    }),
//	)
var FXModule = fx.Module("table",
	fx.Provide(NewFactoryWithDI),
)

// FactoryParams groups the dependencies of a Factory. Sink config, observer
// and logger are optional.
type FactoryParams struct {
	fx.In

	Conn     database.Conn
	Sink     sink.Config            `optional:"true"`
	Observer observability.Observer `optional:"true"`
	Logger   sink.Logger            `optional:"true"`
}

// Factory builds accessors that share one supervised connection. The
// connection's lifecycle belongs to whoever provided it.
type Factory struct {
	conn database.Conn
	opts []Option
}

// NewFactoryWithDI creates a Factory from the fx container.
func NewFactoryWithDI(params FactoryParams) *Factory {
	opts := []Option{WithSink(params.Sink)}
	if params.Observer != nil {
		opts = append(opts, WithObserver(params.Observer))
	}
	if params.Logger != nil {
		opts = append(opts, WithLogger(params.Logger))
	}
	return &Factory{conn: params.Conn, opts: opts}
}

// Table returns an accessor for name. Per-call options are applied after the
// factory defaults.
func (f *Factory) Table(name string, opts ...Option) *Table {
	all := append(append([]Option{}, f.opts...), opts...)
	t := newTable(name, buildOptions(all))
	t.handle = f.conn.DB
	return t
}
