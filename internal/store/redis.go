// internal/store/redis.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	docKeyPrefix  = "pk:room:"
	chanKeyPrefix = "pk:updates:"
)

// envelope is the JSON wrapper stored under the Redis key; the version rides
// alongside the document so a single GET yields both.
type envelope struct {
	Version int64           `json:"version"`
	Value   json.RawMessage `json:"value"`
}

// Redis implements Store on a single Redis instance. Documents live under
// "pk:room:{key}" with a TTL (rooms are ephemeral by design), compare-and-swap
// runs through WATCH/MULTI, and change fan-out rides pub/sub on
// "pk:updates:{key}".
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
	log *logrus.Logger
}

// NewRedis wraps an already-connected client. ttl bounds a room document's
// lifetime; zero means no expiry.
func NewRedis(rdb *redis.Client, ttl time.Duration, log *logrus.Logger) *Redis {
	return &Redis{rdb: rdb, ttl: ttl, log: log}
}

func (r *Redis) Create(ctx context.Context, key string, value []byte) error {
	data, err := json.Marshal(envelope{Version: 1, Value: value})
	if err != nil {
		return fmt.Errorf("store: marshal envelope: %w", err)
	}
	ok, err := r.rdb.SetNX(ctx, docKeyPrefix+key, data, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("store: create %q: %w", key, err)
	}
	if !ok {
		return ErrExists
	}
	r.publish(ctx, key, data)
	return nil
}

func (r *Redis) Read(ctx context.Context, key string) (Snapshot, error) {
	data, err := r.rdb.Get(ctx, docKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("store: read %q: %w", key, err)
	}
	return decodeEnvelope(data)
}

func (r *Redis) Update(ctx context.Context, key string, value []byte, expect int64) (int64, error) {
	docKey := docKeyPrefix + key
	next := expect + 1
	data, err := json.Marshal(envelope{Version: next, Value: value})
	if err != nil {
		return 0, fmt.Errorf("store: marshal envelope: %w", err)
	}

	err = r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, docKey).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		snap, err := decodeEnvelope(cur)
		if err != nil {
			return err
		}
		if snap.Version != expect {
			return ErrConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, docKey, data, r.ttl)
			return nil
		})
		return err
	}, docKey)

	switch {
	case errors.Is(err, redis.TxFailedErr):
		// The key changed between WATCH and EXEC: someone else wrote first.
		return 0, ErrConflict
	case err != nil:
		return 0, err
	}

	r.publish(ctx, key, data)
	return next, nil
}

func (r *Redis) Subscribe(ctx context.Context, key string) (<-chan Snapshot, func(), error) {
	ps := r.rdb.Subscribe(ctx, chanKeyPrefix+key)
	// Force the subscription onto the wire before the initial read so no
	// update published in between is missed.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, nil, fmt.Errorf("store: subscribe %q: %w", key, err)
	}

	out := make(chan Snapshot, 16)
	go func() {
		defer close(out)
		if snap, err := r.Read(ctx, key); err == nil {
			out <- snap
		}
		for msg := range ps.Channel() {
			snap, err := decodeEnvelope([]byte(msg.Payload))
			if err != nil {
				r.log.WithError(err).WithField("key", key).Warn("dropping malformed room update")
				continue
			}
			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
		}
	}()

	cancel := func() {
		if err := ps.Close(); err != nil {
			r.log.WithError(err).WithField("key", key).Warn("closing room subscription")
		}
	}
	return out, cancel, nil
}

func (r *Redis) publish(ctx context.Context, key string, data []byte) {
	if err := r.rdb.Publish(ctx, chanKeyPrefix+key, data).Err(); err != nil {
		r.log.WithError(err).WithField("key", key).Warn("publishing room update")
	}
}

func decodeEnvelope(data []byte) (Snapshot, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Snapshot{}, fmt.Errorf("store: decode envelope: %w", err)
	}
	return Snapshot{Value: env.Value, Version: env.Version}, nil
}
