package search

import (
	"github.com/Aleph-Alpha/accessor/v1/observability"
	"github.com/Aleph-Alpha/accessor/v1/sink"
	"github.com/elastic/go-elasticsearch/v8"
	"go.uber.org/fx"
)

// FXModule provides a shared *elasticsearch.Client built from Config and a
// *Factory that builds index accessors on it.
//
//	app := fx.New(
//	    search.FXModule,
//	    fx.Provide(func() search.Config { return cfg }),
//	    fx.Invoke(func(indices *search.Factory) {
//	        docs := indices.Index("documents")
//	        _ = docs
//	    }),
//	)
var FXModule = fx.Module("search",
	fx.Provide(
		NewClientWithDI,
		NewFactoryWithDI,
	),
)

// ClientParams groups the dependencies of the shared client.
type ClientParams struct {
	fx.In

	Config Config
}

// NewClientWithDI builds the shared client from the fx container.
func NewClientWithDI(params ClientParams) (*elasticsearch.Client, error) {
	esCfg, err := params.Config.clientConfig()
	if err != nil {
		return nil, err
	}
	return elasticsearch.NewClient(esCfg)
}

// FactoryParams groups the dependencies of a Factory. Sink config, observer
// and logger are optional.
type FactoryParams struct {
	fx.In

	Client   *elasticsearch.Client
	Sink     sink.Config            `optional:"true"`
	Observer observability.Observer `optional:"true"`
	Logger   sink.Logger            `optional:"true"`
}

// Factory builds accessors that share one client.
type Factory struct {
	es   *elasticsearch.Client
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
	return &Factory{es: params.Client, opts: opts}
}

// Index returns an accessor for index. Per-call options are applied after
// the factory defaults.
func (f *Factory) Index(index string, opts ...Option) *Index {
	all := append(append([]Option{}, f.opts...), opts...)
	return NewFromClient(f.es, index, all...)
}
