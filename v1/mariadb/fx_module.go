package mariadb

import (
	"context"

	"go.uber.org/fx"
)

// FXModule is an fx module that provides the MariaDB connection together with
// lifecycle hooks for monitoring and shutdown.
var FXModule = fx.Module("mariadb",
	fx.Provide(NewMariaDBClientWithDI),
	fx.Invoke(RegisterMariaDBLifecycle),
)

// MariaDBParams groups the dependencies needed to create a MariaDB connection.
type MariaDBParams struct {
	fx.In

	Config Config
	Logger Logger `optional:"true"`
}

// NewMariaDBClientWithDI creates a MariaDB connection from the fx container.
func NewMariaDBClientWithDI(params MariaDBParams) (*MariaDB, error) {
	return NewMariaDB(params.Config, params.Logger)
}

// MariaDBLifeCycleParams groups the dependencies needed for lifecycle management.
type MariaDBLifeCycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	MariaDB   *MariaDB
}

// RegisterMariaDBLifecycle starts connection monitoring on application start
// and shuts the connection down on stop.
func RegisterMariaDBLifecycle(params MariaDBLifeCycleParams) {
	var cancel context.CancelFunc
	params.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			params.MariaDB.Start(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			if cancel != nil {
				cancel()
			}
			return params.MariaDB.GracefulShutdown()
		},
	})
}
