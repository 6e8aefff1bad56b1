package database

import (
	"context"

	"go.uber.org/fx"
)

// FXModule provides database.Conn via dependency injection. The backend is
// selected by Config.Type.
//
// Usage:
//
//	app := fx.New(
//	    database.FXModule,
//	    fx.Provide(func() database.Config {
//	        return database.PostgresConfig(postgres.Config{...})
//	    }),
//	    fx.Invoke(func(conn database.Conn) {
//	        users := table.NewFromDB(conn.DB(), "users")
//	        _ = users
//	    }),
//	)
var FXModule = fx.Module("database",
	fx.Provide(NewConnWithDI),
	fx.Invoke(RegisterDatabaseLifecycle),
)

// DatabaseParams groups the dependencies needed to open a connection.
type DatabaseParams struct {
	fx.In

	Config Config
	Logger Logger `optional:"true"`
}

// NewConnWithDI opens the configured backend.
func NewConnWithDI(params DatabaseParams) (Conn, error) {
	return Open(params.Config, params.Logger)
}

// DatabaseLifecycleParams groups the dependencies needed for lifecycle management.
type DatabaseLifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Conn      Conn
}

// RegisterDatabaseLifecycle starts connection monitoring with the application
// and shuts the connection down when it stops.
func RegisterDatabaseLifecycle(params DatabaseLifecycleParams) {
	var cancel context.CancelFunc
	params.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			params.Conn.Start(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			if cancel != nil {
				cancel()
			}
			return params.Conn.GracefulShutdown()
		},
	})
}
