package postgres

import (
	"context"

	"go.uber.org/fx"
)

// FXModule is an fx module that provides the Postgres connection.
// It registers the constructor and lifecycle hooks that start connection
// monitoring and close the pool on shutdown.
var FXModule = fx.Module("postgres",
	fx.Provide(NewPostgresClientWithDI),
	fx.Invoke(RegisterPostgresLifecycle),
)

// PostgresParams groups the dependencies needed to create a Postgres connection.
// Logger is optional.
type PostgresParams struct {
	fx.In

	Config Config
	Logger Logger `optional:"true"`
}

// NewPostgresClientWithDI creates a Postgres connection from the fx container.
//
// Example usage with fx:
//
//	app := fx.New(
//	    postgres.FXModule,
//	    fx.Provide(func() postgres.Config {
//	        return loadPostgresConfig()
//	    }),
//	)
func NewPostgresClientWithDI(params PostgresParams) (*Postgres, error) {
	return NewPostgres(params.Config, params.Logger)
}

// PostgresLifeCycleParams groups the dependencies needed for lifecycle management.
type PostgresLifeCycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Postgres  *Postgres
}

// RegisterPostgresLifecycle starts connection monitoring on application start
// and shuts the connection down on stop.
func RegisterPostgresLifecycle(params PostgresLifeCycleParams) {
	var cancel context.CancelFunc
	params.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			params.Postgres.Start(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			if cancel != nil {
				cancel()
			}
			return params.Postgres.GracefulShutdown()
		},
	})
}
