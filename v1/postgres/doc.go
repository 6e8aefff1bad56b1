// Package postgres opens and supervises a GORM connection to PostgreSQL.
//
// NewPostgres connects once and applies pool settings. Start launches a
// monitor loop that pings the server every ten seconds and a retry loop that
// swaps in a fresh connection after a failed ping; readers always see the
// current *gorm.DB through DB().
//
//	pg, err := postgres.NewPostgres(postgres.Config{
//		Connection: postgres.Connection{
//			Host: "localhost", Port: "5432",
//			User: "app", Password: "secret", DbName: "app",
//		},
//	}, nil)
//	if err != nil {
//		return err
//	}
//	pg.Start(ctx)
//	defer pg.GracefulShutdown()
//
// Errors from GORM can be normalized with TranslateError.
package postgres
