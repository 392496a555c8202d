// Package consumer reads Kafka records and hands them to topic handlers.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Message is a consumed record.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// Handler processes one message. A returned error stops consumption
// before the offset is committed.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg *Message) error

func (f HandlerFunc) Handle(ctx context.Context, msg *Message) error {
	return f(ctx, msg)
}

func fromRecord(r *kgo.Record) *Message {
	msg := &Message{
		Topic:     r.Topic,
		Partition: r.Partition,
		Offset:    r.Offset,
		Key:       r.Key,
		Value:     r.Value,
		Timestamp: r.Timestamp,
	}
	if len(r.Headers) > 0 {
		msg.Headers = make(map[string]string, len(r.Headers))
		for _, h := range r.Headers {
			msg.Headers[h.Key] = string(h.Value)
		}
	}
	return msg
}

// Consumer polls a group-managed client and commits after each handled
// fetch. The client must be created with kgo.ConsumerGroup and
// kgo.DisableAutoCommit.
type Consumer struct {
	client  *kgo.Client
	handler Handler
	logger  *slog.Logger
}

func New(client *kgo.Client, handler Handler, logger *slog.Logger) (*Consumer, error) {
	if client == nil {
		return nil, errors.New("kafka client is required")
	}
	if handler == nil {
		return nil, errors.New("handler is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{client: client, handler: handler, logger: logger}, nil
}

// Run consumes until ctx is cancelled or a handler fails.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fetchErr(fetches); err != nil {
			return err
		}

		var (
			handleErr error
			handled   []*kgo.Record
		)
		fetches.EachRecord(func(r *kgo.Record) {
			if handleErr != nil {
				return
			}
			if err := c.handler.Handle(ctx, fromRecord(r)); err != nil {
				handleErr = fmt.Errorf("handle %s/%d/%d: %w", r.Topic, r.Partition, r.Offset, err)
				return
			}
			handled = append(handled, r)
		})
		if len(handled) > 0 {
			if err := c.client.CommitRecords(ctx, handled...); err != nil {
				c.logger.WarnContext(ctx, "kafka offset commit failed", "error", err)
			}
		}
		if handleErr != nil {
			return handleErr
		}
	}
}

// ReadToEnd hands every record of topic, from the start up to the given
// end offsets, to h. The client must consume topic without a group and
// reset to the start offset.
func ReadToEnd(ctx context.Context, client *kgo.Client, topic string, end map[int32]int64, h Handler) (int, error) {
	remaining := make(map[int32]int64)
	for p, off := range end {
		if off > 0 {
			remaining[p] = off
		}
	}

	read := 0
	for len(remaining) > 0 {
		fetches := client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return read, errors.New("kafka client closed")
		}
		if err := ctx.Err(); err != nil {
			return read, err
		}
		if err := fetchErr(fetches); err != nil {
			return read, err
		}

		var handleErr error
		fetches.EachRecord(func(r *kgo.Record) {
			if handleErr != nil || r.Topic != topic {
				return
			}
			stop, ok := remaining[r.Partition]
			if !ok || r.Offset >= stop {
				return
			}
			if err := h.Handle(ctx, fromRecord(r)); err != nil {
				handleErr = fmt.Errorf("handle %s/%d/%d: %w", r.Topic, r.Partition, r.Offset, err)
				return
			}
			read++
			if r.Offset+1 >= stop {
				delete(remaining, r.Partition)
			}
		})
		if handleErr != nil {
			return read, handleErr
		}
	}
	return read, nil
}

func fetchErr(fetches kgo.Fetches) error {
	var errs []error
	for _, fe := range fetches.Errors() {
		if errors.Is(fe.Err, context.Canceled) {
			continue
		}
		errs = append(errs, fmt.Errorf("fetch %s/%d: %w", fe.Topic, fe.Partition, fe.Err))
	}
	return errors.Join(errs...)
}
