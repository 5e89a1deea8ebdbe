package sinks

import (
	"context"
	"time"

	"quote-streamer/src/codec"
	"quote-streamer/src/helpers"
	"quote-streamer/src/models"

	"github.com/segmentio/kafka-go"
)

// KafkaWriter is the subset of *kafka.Writer the sink needs.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink writes every quote to a topic keyed by symbol, so one symbol
// always lands on the same partition.
type KafkaSink struct {
	writer KafkaWriter
	codec  codec.JSONCodec
}

// -----------------------------------------------------------------------------

func NewKafkaSink(cfg models.MKafkaSinkConfig) *KafkaSink {
	return NewKafkaSinkWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		Async:        true,
	})
}

func NewKafkaSinkWithWriter(w KafkaWriter) *KafkaSink {
	return &KafkaSink{writer: w}
}

func (k *KafkaSink) Name() string { return "kafka" }

// -----------------------------------------------------------------------------

func (k *KafkaSink) Publish(ctx context.Context, q models.MQuote) error {
	payload, err := k.codec.EncodeQuote(q)
	if err != nil {
		return err
	}
	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(q.Symbol),
		Value: payload,
		Time:  q.Time(),
	})
	if err != nil {
		return helpers.NewTransportError("kafka write", err)
	}
	return nil
}

func (k *KafkaSink) Close() error {
	return k.writer.Close()
}
