package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regulus/internal/platform/kafka/consumer"
	"regulus/internal/platform/kafka/producer"
	"regulus/internal/workflow/ports"
)

type capturePublisher struct {
	msgs []producer.Message
	err  error
}

func (c *capturePublisher) Publish(_ context.Context, msg producer.Message) (producer.Position, error) {
	if c.err != nil {
		return producer.Position{}, c.err
	}
	c.msgs = append(c.msgs, msg)
	return producer.Position{Topic: msg.Topic, Partition: 2, Offset: int64(len(c.msgs) - 1)}, nil
}

func record() ports.LedgerRecord {
	return ports.LedgerRecord{
		LicenseNumber: "LIC-2024-0042",
		Action:        "license_revoked",
		Actor:         "board-1",
		Reason:        "fraudulent credentials",
		WorkflowID:    "wf-1",
		OccurredAt:    time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	}
}

func TestAnchorRecordAction(t *testing.T) {
	pub := &capturePublisher{}
	a, err := New(pub, "regulus.ledger.anchors", nil)
	require.NoError(t, err)

	receipt, err := a.RecordAction(context.Background(), record())
	require.NoError(t, err)

	want, err := Digest(record())
	require.NoError(t, err)
	assert.Equal(t, "regulus.ledger.anchors/2/0", receipt.ReceiptID)
	assert.Equal(t, want, receipt.Digest)
	assert.Len(t, receipt.Digest, 64)

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "LIC-2024-0042", string(pub.msgs[0].Key))
	assert.Equal(t, want, pub.msgs[0].Headers["digest"])
}

func TestAnchorPublishFailure(t *testing.T) {
	a, err := New(&capturePublisher{err: errors.New("broker down")}, "t", nil)
	require.NoError(t, err)

	_, err = a.RecordAction(context.Background(), record())
	assert.ErrorContains(t, err, "broker down")
}

func TestDigestIsStableAndContentSensitive(t *testing.T) {
	d1, err := Digest(record())
	require.NoError(t, err)
	d2, err := Digest(record())
	require.NoError(t, err)
	assert.Equal(t, d1, d2)

	changed := record()
	changed.Reason = "clerical error"
	d3, err := Digest(changed)
	require.NoError(t, err)
	assert.NotEqual(t, d1, d3)
}

func TestVerifierFlagsTamperedRecords(t *testing.T) {
	pub := &capturePublisher{}
	a, err := New(pub, "ledger", nil)
	require.NoError(t, err)
	_, err = a.RecordAction(context.Background(), record())
	require.NoError(t, err)
	_, err = a.RecordAction(context.Background(), record())
	require.NoError(t, err)

	var tampered Envelope
	require.NoError(t, json.Unmarshal(pub.msgs[1].Value, &tampered))
	tampered.Record.Action = "license_suspended"
	value, err := json.Marshal(tampered)
	require.NoError(t, err)

	v := &Verifier{}
	ctx := context.Background()
	require.NoError(t, v.Handle(ctx, &consumer.Message{Topic: "ledger", Offset: 0, Value: pub.msgs[0].Value, Headers: pub.msgs[0].Headers}))
	require.NoError(t, v.Handle(ctx, &consumer.Message{Topic: "ledger", Offset: 1, Value: value}))
	require.NoError(t, v.Handle(ctx, &consumer.Message{Topic: "ledger", Offset: 2, Value: []byte("not json")}))

	assert.Equal(t, 3, v.Checked)
	assert.Equal(t, []string{"ledger/0/1: LIC-2024-0042", "ledger/0/2: undecodable"}, v.Mismatches)
	assert.ErrorIs(t, v.Err(), ErrDigestMismatch)
}

func TestMemoryLedger(t *testing.T) {
	m := NewMemory()
	r1, err := m.RecordAction(context.Background(), record())
	require.NoError(t, err)
	r2, err := m.RecordAction(context.Background(), record())
	require.NoError(t, err)

	assert.Equal(t, "memory/0/0", r1.ReceiptID)
	assert.Equal(t, "memory/0/1", r2.ReceiptID)
	assert.Len(t, m.Records(), 2)
}
