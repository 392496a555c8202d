// Package notify delivers practitioner notifications and step-up codes.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	challengeModels "regulus/internal/challenge/models"
	"regulus/internal/platform/kafka/producer"
	"regulus/internal/workflow/ports"
)

// Publisher writes one record to the log.
type Publisher interface {
	Publish(ctx context.Context, msg producer.Message) (producer.Position, error)
}

// KafkaSender hands notifications to the delivery service through a topic.
// Records are keyed by reference so the delivery side can drop duplicates
// produced by retries.
type KafkaSender struct {
	publisher Publisher
	topic     string
	logger    *slog.Logger
}

func NewKafkaSender(publisher Publisher, topic string, logger *slog.Logger) (*KafkaSender, error) {
	if publisher == nil {
		return nil, errors.New("publisher is required")
	}
	if topic == "" {
		return nil, errors.New("notification topic is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaSender{publisher: publisher, topic: topic, logger: logger}, nil
}

func (s *KafkaSender) Send(ctx context.Context, n ports.Notification) (ports.DeliveryStatus, error) {
	if n.Recipient == "" || n.Template == "" {
		return ports.DeliveryStatus{}, errors.New("notification requires recipient and template")
	}
	ref := n.Reference
	if ref == "" {
		ref = uuid.NewString()
	}
	value, err := json.Marshal(n)
	if err != nil {
		return ports.DeliveryStatus{}, fmt.Errorf("marshal notification: %w", err)
	}
	pos, err := s.publisher.Publish(ctx, producer.Message{
		Topic:   s.topic,
		Key:     []byte(ref),
		Value:   value,
		Headers: map[string]string{"template": n.Template},
	})
	if err != nil {
		return ports.DeliveryStatus{}, err
	}
	s.logger.DebugContext(ctx, "notification queued",
		"template", n.Template,
		"reference", ref,
		"position", pos.String(),
	)
	return ports.DeliveryStatus{Accepted: true, MessageID: pos.String()}, nil
}

// LogSender writes notifications to the log. Used when no broker is
// configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, n ports.Notification) (ports.DeliveryStatus, error) {
	id := n.Reference
	if id == "" {
		id = uuid.NewString()
	}
	s.logger.InfoContext(ctx, "notification",
		"recipient", n.Recipient,
		"template", n.Template,
		"reference", id,
	)
	return ports.DeliveryStatus{Accepted: true, MessageID: "log:" + id}, nil
}

// Sender is the notification contract CodeSender delivers through.
type Sender interface {
	Send(ctx context.Context, n ports.Notification) (ports.DeliveryStatus, error)
}

// CodeSender delivers step-up codes as notifications addressed to the
// actor. Routing to the actor's phone, mailbox or token is the delivery
// service's concern.
type CodeSender struct {
	sender Sender
}

func NewCodeSender(sender Sender) (*CodeSender, error) {
	if sender == nil {
		return nil, errors.New("notification sender is required")
	}
	return &CodeSender{sender: sender}, nil
}

const TemplateStepUpCode = "step_up_code"

func (c *CodeSender) Send(ctx context.Context, actorID string, method challengeModels.Method, code string) error {
	status, err := c.sender.Send(ctx, ports.Notification{
		Recipient: actorID,
		Template:  TemplateStepUpCode,
		Reference: uuid.NewString(),
		Data: map[string]string{
			"method": string(method),
			"code":   code,
		},
	})
	if err != nil {
		return err
	}
	if !status.Accepted {
		return fmt.Errorf("step-up code for %s not accepted", actorID)
	}
	return nil
}
