package kv

import (
	"context"
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Aleph-Alpha/accessor/v1/sink"
	"github.com/redis/go-redis/v9"
)

// Add stores every pair. A positive ttl expires the keys after ttl, zero
// keeps them forever. Strings, byte slices, numbers, booleans and times are
// stored as Redis encodes them; other values are stored as JSON.
func (s *Store) Add(ctx context.Context, pairs map[string]any, ttl time.Duration) error {
	_, err := sink.Run(ctx, s.sink, "add", func(ctx context.Context, call *sink.Call) (struct{}, error) {
		return struct{}{}, s.add(ctx, call, pairs, ttl)
	})
	return err
}

// AddUntil stores every pair until deadline. A zero deadline never expires;
// a deadline in the past fails with ErrPastDeadline.
func (s *Store) AddUntil(ctx context.Context, pairs map[string]any, deadline time.Time) error {
	_, err := sink.Run(ctx, s.sink, "addUntil", func(ctx context.Context, call *sink.Call) (struct{}, error) {
		var ttl time.Duration
		if !deadline.IsZero() {
			ttl = deadline.Sub(s.clock())
			if ttl <= 0 {
				return struct{}{}, fmt.Errorf("%w: %s", ErrPastDeadline, deadline.Format(time.RFC3339))
			}
		}
		return struct{}{}, s.add(ctx, call, pairs, ttl)
	})
	return err
}

func (s *Store) add(ctx context.Context, call *sink.Call, pairs map[string]any, ttl time.Duration) error {
	call.Query = pairs
	call.Size = int64(len(pairs))
	if len(pairs) == 0 {
		return nil
	}

	names := sortedKeys(pairs)
	values := make([]any, len(names))
	for i, k := range names {
		v, err := encodeValue(pairs[k])
		if err != nil {
			return sink.Invalidf("value of %q: %v", k, err)
		}
		values[i] = v
	}

	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, k := range names {
			pipe.Set(ctx, s.key(k), values[i], ttl)
		}
		return nil
	})
	return err
}

func encodeValue(v any) (any, error) {
	switch v.(type) {
	case nil:
		return "", nil
	case string, []byte, bool, time.Time,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, encoding.BinaryMarshaler:
		return v, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// Increment adds by to the integer stored at key and returns the new value.
// A missing key counts as 0.
func (s *Store) Increment(ctx context.Context, key string, by int64) (int64, error) {
	return sink.Run(ctx, s.sink, "increment", func(ctx context.Context, call *sink.Call) (int64, error) {
		call.Query = key
		if by == 1 {
			return s.client.Incr(ctx, s.key(key)).Result()
		}
		return s.client.IncrBy(ctx, s.key(key), by).Result()
	})
}

// Keys returns the sorted names matching the glob pattern, without the store
// prefix. An empty pattern matches everything. Keys uses SCAN, so it does not
// block the server; in cluster mode every master is scanned.
func (s *Store) Keys(ctx context.Context, pattern string) ([]string, error) {
	return sink.Run(ctx, s.sink, "keys", func(ctx context.Context, call *sink.Call) ([]string, error) {
		if pattern == "" {
			pattern = "*"
		}
		match := s.key(pattern)
		call.Query = match

		var mu sync.Mutex
		seen := map[string]struct{}{}
		scan := func(ctx context.Context, c redis.Cmdable) error {
			iter := c.Scan(ctx, 0, match, 1000).Iterator()
			for iter.Next(ctx) {
				mu.Lock()
				seen[s.strip(iter.Val())] = struct{}{}
				mu.Unlock()
			}
			return iter.Err()
		}

		var err error
		if cluster, ok := s.client.(*redis.ClusterClient); ok {
			err = cluster.ForEachMaster(ctx, func(ctx context.Context, c *redis.Client) error {
				return scan(ctx, c)
			})
		} else {
			err = scan(ctx, s.client)
		}
		if err != nil {
			return nil, err
		}

		out := make([]string, 0, len(seen))
		for k := range seen {
			out = append(out, k)
		}
		sort.Strings(out)
		call.Size = int64(len(out))
		return out, nil
	})
}

// Get returns the values of keys by name; missing keys map to nil.
func (s *Store) Get(ctx context.Context, keys ...string) (map[string]any, error) {
	return sink.Run(ctx, s.sink, "get", func(ctx context.Context, call *sink.Call) (map[string]any, error) {
		call.Query = keys
		values, err := s.mget(ctx, keys)
		if err != nil {
			return nil, err
		}
		out := make(map[string]any, len(keys))
		for i, k := range keys {
			out[k] = values[i]
		}
		call.Size = int64(len(out))
		return out, nil
	})
}

// GetPlain returns the value of key and whether it exists.
func (s *Store) GetPlain(ctx context.Context, key string) (string, bool, error) {
	type plain struct {
		value string
		found bool
	}
	res, err := sink.Run(ctx, s.sink, "getPlain", func(ctx context.Context, call *sink.Call) (plain, error) {
		call.Query = key
		v, err := s.client.Get(ctx, s.key(key)).Result()
		if errors.Is(err, redis.Nil) {
			return plain{}, nil
		}
		if err != nil {
			return plain{}, err
		}
		call.Size = 1
		return plain{value: v, found: true}, nil
	})
	return res.value, res.found, err
}

// GetArray returns the values of keys in argument order; missing keys are nil.
func (s *Store) GetArray(ctx context.Context, keys ...string) ([]any, error) {
	return sink.Run(ctx, s.sink, "getArray", func(ctx context.Context, call *sink.Call) ([]any, error) {
		call.Query = keys
		values, err := s.mget(ctx, keys)
		call.Size = int64(len(values))
		return values, err
	})
}

func (s *Store) mget(ctx context.Context, keys []string) ([]any, error) {
	if len(keys) == 0 {
		return []any{}, nil
	}
	return s.client.MGet(ctx, s.keys(keys)...).Result()
}

// GetOnce returns the values of keys like Get and removes them. Each key is
// read and deleted in one transaction, so concurrent callers never both
// receive the same value.
func (s *Store) GetOnce(ctx context.Context, keys ...string) (map[string]any, error) {
	return sink.Run(ctx, s.sink, "getOnce", func(ctx context.Context, call *sink.Call) (map[string]any, error) {
		call.Query = keys
		out := make(map[string]any, len(keys))
		if len(keys) == 0 {
			return out, nil
		}

		gets := make([]*redis.StringCmd, len(keys))
		_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for i, k := range keys {
				gets[i] = pipe.Get(ctx, s.key(k))
				pipe.Del(ctx, s.key(k))
			}
			return nil
		})
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, err
		}

		for i, k := range keys {
			v, err := gets[i].Result()
			switch {
			case errors.Is(err, redis.Nil):
				out[k] = nil
			case err != nil:
				return nil, err
			default:
				out[k] = v
				call.Size++
			}
		}
		return out, nil
	})
}

// Remove deletes keys and returns how many existed.
func (s *Store) Remove(ctx context.Context, keys ...string) (int64, error) {
	return sink.Run(ctx, s.sink, "remove", func(ctx context.Context, call *sink.Call) (int64, error) {
		call.Query = keys
		if len(keys) == 0 {
			return 0, nil
		}
		n, err := s.client.Del(ctx, s.keys(keys)...).Result()
		call.Size = n
		return n, err
	})
}

// CheckOrSet stores value under key unless the key exists. It reports false
// when the key already existed. A positive ttl expires the key.
func (s *Store) CheckOrSet(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	return sink.Run(ctx, s.sink, "checkOrSet", func(ctx context.Context, call *sink.Call) (bool, error) {
		call.Query = key
		v, err := encodeValue(value)
		if err != nil {
			return false, sink.Invalidf("value of %q: %v", key, err)
		}
		return s.client.SetNX(ctx, s.key(key), v, ttl).Result()
	})
}

// MapAdd adds members to the set and returns how many were new.
func (s *Store) MapAdd(ctx context.Context, set string, members ...string) (int64, error) {
	return sink.Run(ctx, s.sink, "mapAdd", func(ctx context.Context, call *sink.Call) (int64, error) {
		call.Query = set
		if len(members) == 0 {
			return 0, nil
		}
		n, err := s.client.SAdd(ctx, s.key(set), toArgs(members)...).Result()
		call.Size = n
		return n, err
	})
}

// MapHas reports whether member is in the set.
func (s *Store) MapHas(ctx context.Context, set, member string) (bool, error) {
	return sink.Run(ctx, s.sink, "mapHas", func(ctx context.Context, call *sink.Call) (bool, error) {
		call.Query = set
		return s.client.SIsMember(ctx, s.key(set), member).Result()
	})
}

// MapDel removes members from the set and returns how many were present.
func (s *Store) MapDel(ctx context.Context, set string, members ...string) (int64, error) {
	return sink.Run(ctx, s.sink, "mapDel", func(ctx context.Context, call *sink.Call) (int64, error) {
		call.Query = set
		if len(members) == 0 {
			return 0, nil
		}
		n, err := s.client.SRem(ctx, s.key(set), toArgs(members)...).Result()
		call.Size = n
		return n, err
	})
}

// MapKeys returns the sorted members of the set.
func (s *Store) MapKeys(ctx context.Context, set string) ([]string, error) {
	return sink.Run(ctx, s.sink, "mapKeys", func(ctx context.Context, call *sink.Call) ([]string, error) {
		call.Query = set
		members, err := s.client.SMembers(ctx, s.key(set)).Result()
		if err != nil {
			return nil, err
		}
		sort.Strings(members)
		call.Size = int64(len(members))
		return members, nil
	})
}

func toArgs(members []string) []any {
	out := make([]any, len(members))
	for i, m := range members {
		out[i] = m
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
