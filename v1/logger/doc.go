// Package logger provides the structured logger used by the accessors.
//
// It wraps Uber's zap with a small, map-based API:
//
//	log := logger.NewLoggerClient(logger.Config{
//		Level:         logger.Debug,
//		ServiceName:   "users-api",
//		EnableTracing: true,
//	})
//
//	log.Info("table opened", nil, map[string]interface{}{"table": "users"})
//	log.ErrorWithContext(ctx, "search failed", err, map[string]interface{}{"index": "articles"})
//
// Every method takes an optional error and any number of field maps. The
// *WithContext variants add trace_id and span_id when EnableTracing is set and
// the context carries a valid OpenTelemetry span.
//
// The sink package uses *Logger as the default destination for debug entries
// and backend errors, so an accessor created without an explicit DebugLog or
// ErrorHandle still reports through zap.
//
// # FX
//
//	app := fx.New(
//		logger.FXModule,
//		fx.Provide(func() logger.Config { return logger.Config{Level: logger.Info} }),
//	)
//
// All methods are safe for concurrent use.
package logger
