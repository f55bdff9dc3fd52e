package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jdstemmler/poker/internal/errs"
)

const (
	lobbyKeyPrefix  = "game:"
	engineKeyPrefix = "engine:"
	metricKeyPrefix = "metrics:"

	// opTimeout bounds every Redis round trip; slower than this the
	// store reports Transient and the caller may retry.
	opTimeout = 2 * time.Second
)

// Redis stores game documents as plain string keys and metrics as
// sorted sets scored by unix seconds.
type Redis struct {
	client *redis.Client
}

// RedisOptions configures the connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedis connects and verifies the server is reachable.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errs.Wrap(errs.Transient, err, "connecting to redis")
	}
	return &Redis{client: client}, nil
}

// withRetry runs op with the per-call timeout, retrying once on an
// infrastructure failure.
func (r *Redis) withRetry(ctx context.Context, op func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		opCtx, cancel := context.WithTimeout(ctx, opTimeout)
		err = op(opCtx)
		cancel()
		if err == nil || errs.KindOf(err) != errs.Transient {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return err
}

func classify(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.Nil) {
		return errs.New(errs.NotFound, msg+": not found")
	}
	return errs.Wrap(errs.Transient, err, msg)
}

func (r *Redis) set(ctx context.Context, key string, data []byte) error {
	return r.withRetry(ctx, func(ctx context.Context) error {
		return classify(r.client.Set(ctx, key, data, 0).Err(), "writing "+key)
	})
}

func (r *Redis) get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := r.withRetry(ctx, func(ctx context.Context) error {
		var err error
		data, err = r.client.Get(ctx, key).Bytes()
		return classify(err, "reading "+key)
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (r *Redis) SaveLobby(ctx context.Context, code string, data []byte) error {
	return r.set(ctx, lobbyKeyPrefix+code, data)
}

func (r *Redis) LoadLobby(ctx context.Context, code string) ([]byte, error) {
	return r.get(ctx, lobbyKeyPrefix+code)
}

func (r *Redis) SaveEngine(ctx context.Context, code string, data []byte) error {
	return r.set(ctx, engineKeyPrefix+code, data)
}

func (r *Redis) LoadEngine(ctx context.Context, code string) ([]byte, error) {
	return r.get(ctx, engineKeyPrefix+code)
}

func (r *Redis) Delete(ctx context.Context, code string) error {
	return r.withRetry(ctx, func(ctx context.Context) error {
		err := r.client.Del(ctx, lobbyKeyPrefix+code, engineKeyPrefix+code).Err()
		return classify(err, "deleting "+code)
	})
}

func (r *Redis) ListCodes(ctx context.Context) ([]string, error) {
	var codes []string
	err := r.withRetry(ctx, func(ctx context.Context) error {
		codes = codes[:0]
		var cursor uint64
		for {
			keys, next, err := r.client.Scan(ctx, cursor, lobbyKeyPrefix+"*", 100).Result()
			if err != nil {
				return classify(err, "scanning game keys")
			}
			for _, key := range keys {
				codes = append(codes, key[len(lobbyKeyPrefix):])
			}
			if next == 0 {
				return nil
			}
			cursor = next
		}
	})
	if err != nil {
		return nil, err
	}
	return codes, nil
}

func (r *Redis) RecordMetric(ctx context.Context, metric string, entry MetricEntry) error {
	member, err := json.Marshal(entry)
	if err != nil {
		return errs.Wrap(errs.Internal, err, "encoding metric entry")
	}
	key := metricKeyPrefix + metric
	cutoff := time.Unix(entry.At, 0).Add(-MetricRetention).Unix()
	return r.withRetry(ctx, func(ctx context.Context) error {
		if err := r.client.ZAdd(ctx, key, redis.Z{
			Score:  float64(entry.At),
			Member: string(member),
		}).Err(); err != nil {
			return classify(err, "recording metric "+metric)
		}
		err := r.client.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(cutoff, 10)).Err()
		return classify(err, "pruning metric "+metric)
	})
}

func (r *Redis) CountMetric(ctx context.Context, metric string, since time.Time) (int64, error) {
	var n int64
	err := r.withRetry(ctx, func(ctx context.Context) error {
		var err error
		n, err = r.client.ZCount(ctx, metricKeyPrefix+metric,
			strconv.FormatInt(since.Unix(), 10), "+inf").Result()
		return classify(err, "counting metric "+metric)
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
