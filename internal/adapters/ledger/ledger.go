// Package ledger anchors license actions on an append-only Kafka topic.
// The receipt names the record's position and its canonical digest, so
// anyone reading the topic can recompute and compare.
package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gowebpki/jcs"

	"regulus/internal/platform/kafka/consumer"
	"regulus/internal/platform/kafka/producer"
	"regulus/internal/workflow/ports"
)

const headerDigest = "digest"

// Publisher writes one record to the log.
type Publisher interface {
	Publish(ctx context.Context, msg producer.Message) (producer.Position, error)
}

// Envelope is the value stored per anchored record.
type Envelope struct {
	Record ports.LedgerRecord `json:"record"`
	Digest string             `json:"digest"`
}

// Digest is the hex SHA-256 of the RFC 8785 canonical form of rec.
func Digest(rec ports.LedgerRecord) (string, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshal ledger record: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize ledger record: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Anchor is the Kafka-backed LedgerAnchor.
type Anchor struct {
	publisher Publisher
	topic     string
	logger    *slog.Logger
}

func New(publisher Publisher, topic string, logger *slog.Logger) (*Anchor, error) {
	if publisher == nil {
		return nil, errors.New("publisher is required")
	}
	if topic == "" {
		return nil, errors.New("ledger topic is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Anchor{publisher: publisher, topic: topic, logger: logger}, nil
}

func (a *Anchor) RecordAction(ctx context.Context, rec ports.LedgerRecord) (ports.LedgerReceipt, error) {
	digest, err := Digest(rec)
	if err != nil {
		return ports.LedgerReceipt{}, err
	}
	value, err := json.Marshal(Envelope{Record: rec, Digest: digest})
	if err != nil {
		return ports.LedgerReceipt{}, fmt.Errorf("marshal ledger envelope: %w", err)
	}
	pos, err := a.publisher.Publish(ctx, producer.Message{
		Topic:   a.topic,
		Key:     []byte(rec.LicenseNumber),
		Value:   value,
		Headers: map[string]string{headerDigest: digest},
	})
	if err != nil {
		return ports.LedgerReceipt{}, fmt.Errorf("anchor %s: %w", rec.Action, err)
	}

	a.logger.InfoContext(ctx, "license action anchored",
		"license_number", rec.LicenseNumber,
		"action", rec.Action,
		"receipt_id", pos.String(),
	)
	return ports.LedgerReceipt{ReceiptID: pos.String(), Digest: digest}, nil
}

// Memory keeps anchored records in process. It stands in for the ledger
// when no broker is configured.
type Memory struct {
	mu      sync.Mutex
	records []Envelope
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) RecordAction(_ context.Context, rec ports.LedgerRecord) (ports.LedgerReceipt, error) {
	digest, err := Digest(rec)
	if err != nil {
		return ports.LedgerReceipt{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, Envelope{Record: rec, Digest: digest})
	return ports.LedgerReceipt{ReceiptID: fmt.Sprintf("memory/0/%d", len(m.records)-1), Digest: digest}, nil
}

// Records returns a copy of everything anchored so far.
func (m *Memory) Records() []Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Envelope, len(m.records))
	copy(out, m.records)
	return out
}

// ErrDigestMismatch marks a ledger record whose stored digest does not
// match its content.
var ErrDigestMismatch = errors.New("ledger digest mismatch")

// Verifier recomputes the digest of every consumed ledger record.
type Verifier struct {
	Checked    int
	Mismatches []string
}

var _ consumer.Handler = (*Verifier)(nil)

// Handle records a mismatch instead of failing, so a scan reports every
// bad record.
func (v *Verifier) Handle(_ context.Context, msg *consumer.Message) error {
	v.Checked++
	position := fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset)

	var env Envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		v.Mismatches = append(v.Mismatches, position+": undecodable")
		return nil
	}
	digest, err := Digest(env.Record)
	if err != nil {
		return err
	}
	if digest != env.Digest || (msg.Headers[headerDigest] != "" && msg.Headers[headerDigest] != digest) {
		v.Mismatches = append(v.Mismatches, position+": "+env.Record.LicenseNumber)
	}
	return nil
}

// Err reports ErrDigestMismatch when any record failed.
func (v *Verifier) Err() error {
	if len(v.Mismatches) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d of %d records", ErrDigestMismatch, len(v.Mismatches), v.Checked)
}
