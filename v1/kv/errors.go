package kv

import (
	"errors"
	"strings"

	"github.com/Aleph-Alpha/accessor/v1/sink"
	"github.com/redis/go-redis/v9"
)

// ErrPastDeadline is returned by AddUntil for a deadline that already passed.
var ErrPastDeadline = errors.New("kv: deadline already passed")

// IsNilError checks if the error is a "key does not exist" error.
func IsNilError(err error) bool {
	return errors.Is(err, redis.Nil)
}

func classify(err error) sink.Kind {
	switch {
	case errors.Is(err, redis.Nil):
		return sink.KindNotFound
	case errors.Is(err, ErrPastDeadline):
		return sink.KindInvalid
	}

	var rerr redis.Error
	if errors.As(err, &rerr) {
		msg := rerr.Error()
		if strings.HasPrefix(msg, "WRONGTYPE") || strings.HasPrefix(msg, "ERR value is not an integer") {
			return sink.KindInvalid
		}
	}
	return sink.KindBackend
}
