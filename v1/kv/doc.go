// Package kv provides a uniform accessor over a Redis keyspace.
//
// A Store wraps a go-redis UniversalClient, standalone or cluster, and an
// optional key prefix that is applied to every key and set name. Besides plain
// get/set it offers one-shot reads (GetOnce), set-if-absent (CheckOrSet),
// counters and set membership helpers (MapAdd, MapHas, MapDel, MapKeys).
//
// Basic usage:
//
//	store, err := kv.New(kv.Config{Host: "localhost", KeyPrefix: "app:"})
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//
//	err = store.Add(ctx, map[string]any{"token": "abc"}, time.Minute)
//	value, found, err := store.GetPlain(ctx, "token")
//
// Like the table and search accessors every call runs through a sink.Sink:
// failures come back as *sink.OpError and are handed to ErrorHandle, and with
// Debug set each call is announced to DebugLog. Missing keys are not errors;
// they read as nil or as found == false.
package kv
