package producer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Message is one record to publish.
type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// Position is where the broker stored a record.
type Position struct {
	Topic     string
	Partition int32
	Offset    int64
}

func (p Position) String() string {
	return fmt.Sprintf("%s/%d/%d", p.Topic, p.Partition, p.Offset)
}

// Producer publishes records synchronously. A nil error means the record
// was acknowledged by all in-sync replicas.
type Producer struct {
	client *kgo.Client
	logger *slog.Logger
}

func New(client *kgo.Client, logger *slog.Logger) (*Producer, error) {
	if client == nil {
		return nil, errors.New("kafka client is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Producer{client: client, logger: logger}, nil
}

func (p *Producer) Publish(ctx context.Context, msg Message) (Position, error) {
	rec := &kgo.Record{
		Topic: msg.Topic,
		Key:   msg.Key,
		Value: msg.Value,
	}
	for k, v := range msg.Headers {
		rec.Headers = append(rec.Headers, kgo.RecordHeader{Key: k, Value: []byte(v)})
	}

	out, err := p.client.ProduceSync(ctx, rec).First()
	if err != nil {
		p.logger.ErrorContext(ctx, "kafka publish failed",
			"topic", msg.Topic,
			"key", string(msg.Key),
			"error", err,
		)
		return Position{}, fmt.Errorf("publish to %s: %w", msg.Topic, err)
	}
	return Position{Topic: out.Topic, Partition: out.Partition, Offset: out.Offset}, nil
}
