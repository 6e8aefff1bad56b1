// Package sink is the debug/error wrapper every accessor call runs through.
//
// Each accessor owns one *Sink built from a Config:
//
//	s := sink.New("table", "users", sink.Config{
//		Debug:    true,
//		DebugLog: func(e sink.Entry) { fmt.Println(e.Operation, e.Query) },
//	}, classify)
//
// and executes backend work with Run:
//
//	rows, err := sink.Run(ctx, s, "get", func(ctx context.Context, call *sink.Call) ([]Row, error) {
//		call.Query = "SELECT ..."
//		return fetch(ctx)
//	})
//
// Run opens an OpenTelemetry span, notifies the configured Observer, announces
// the call to DebugLog when Debug is set (success and failure alike, exactly
// once), and hands any error to ErrorHandle.
//
// Errors are returned to the caller as *OpError so failures are never hidden.
// Setting Config.Absorb restores the "resolved is not the same as succeeded"
// behaviour: errors only reach ErrorHandle and the caller gets the zero value.
package sink
