package sinks

import (
	"context"
	"fmt"
	"time"

	"quote-streamer/src/codec"
	"quote-streamer/src/helpers"
	"quote-streamer/src/logger"
	"quote-streamer/src/models"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "quote:"
	channelPrefix = "quotes."
)

// RedisSink keeps the latest quote per symbol under quote:<SYM> and publishes
// every quote on quotes.<SYM>.
type RedisSink struct {
	client *redis.Client
	ttl    time.Duration
	codec  codec.JSONCodec
}

// -----------------------------------------------------------------------------

// NewRedisSink connects to Redis, retrying the initial ping.
func NewRedisSink(ctx context.Context, cfg models.MRedisSinkConfig, log *logger.Logger) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	err := helpers.RetryWithBackoff(ctx, log, "redis ping", 3, 200*time.Millisecond, func() error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		client.Close()
		return nil, helpers.NewTransportError(fmt.Sprintf("connect redis %s", cfg.Addr), err)
	}
	return NewRedisSinkFromClient(client, time.Duration(cfg.TTLSeconds)*time.Second), nil
}

func NewRedisSinkFromClient(client *redis.Client, ttl time.Duration) *RedisSink {
	return &RedisSink{client: client, ttl: ttl}
}

func (r *RedisSink) Name() string { return "redis" }

// -----------------------------------------------------------------------------

func (r *RedisSink) Publish(ctx context.Context, q models.MQuote) error {
	payload, err := r.codec.EncodeQuote(q)
	if err != nil {
		return err
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, keyPrefix+string(q.Symbol), payload, r.ttl)
	pipe.Publish(ctx, channelPrefix+string(q.Symbol), payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return helpers.NewTransportError("redis pipeline", err)
	}
	return nil
}

// LatestQuote reads back the stored quote for symbol.
func (r *RedisSink) LatestQuote(ctx context.Context, symbol models.Symbol) (models.MQuote, error) {
	raw, err := r.client.Get(ctx, keyPrefix+string(symbol)).Bytes()
	if err != nil {
		return models.MQuote{}, err
	}
	return r.codec.DecodeQuote(raw)
}

func (r *RedisSink) Close() error {
	return r.client.Close()
}
