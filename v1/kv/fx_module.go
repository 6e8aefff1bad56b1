package kv

import (
	"context"

	"github.com/Aleph-Alpha/accessor/v1/observability"
	"github.com/Aleph-Alpha/accessor/v1/sink"
	"go.uber.org/fx"
)

// FXModule provides a *Store built from Config and ties its client to the
// application lifecycle.
//
// Usage:
//
//	app := fx.New(
//	    kv.FXModule,
//	    fx.Provide(func() kv.Config { return cfg }),
//	)
var FXModule = fx.Module("kv",
	fx.Provide(
		NewStoreWithDI,
	),
	fx.Invoke(RegisterStoreLifecycle),
)

// StoreParams groups the dependencies needed to create a Store. Sink config,
// observer and logger are optional.
type StoreParams struct {
	fx.In

	Config   Config
	Sink     sink.Config            `optional:"true"`
	Observer observability.Observer `optional:"true"`
	Logger   sink.Logger            `optional:"true"`
}

// NewStoreWithDI creates a Store from the fx container.
func NewStoreWithDI(params StoreParams) (*Store, error) {
	opts := []Option{WithSink(params.Sink)}
	if params.Observer != nil {
		opts = append(opts, WithObserver(params.Observer))
	}
	if params.Logger != nil {
		opts = append(opts, WithLogger(params.Logger))
	}
	return New(params.Config, opts...)
}

// StoreLifecycleParams groups the dependencies needed for lifecycle management
type StoreLifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Store     *Store
}

// RegisterStoreLifecycle pings the server on start and closes the client on
// stop.
func RegisterStoreLifecycle(params StoreLifecycleParams) {
	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return params.Store.Ping(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return params.Store.Close()
		},
	})
}
