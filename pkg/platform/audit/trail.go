// Package audit provides the tamper-evident audit trail.
//
// Every entry is sequenced and hash-chained under one mutex at Append time, so
// chain order equals sequence order regardless of when entries reach storage.
// Ordinary entries wait in a batch queue that is flushed every FlushInterval
// or once BatchSize entries are pending. Critical entries (see
// Action.IsCritical) flush the queue ahead of themselves and return only once
// durable; if persistence fails the caller gets the error and must fail.
// The entry is already sequenced by then and stays queued, so it is persisted
// by a later flush as a record of the attempt rather than of its outcome.
package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	dErrors "regulus/pkg/domain-errors"
)

const (
	defaultFlushInterval = 30 * time.Second
	defaultBatchSize     = 100
	backgroundFlushLimit = 10 * time.Second
	verifyPageSize       = 1000
)

// Trail sequences, chains and persists audit entries.
type Trail struct {
	store         Store
	logger        *slog.Logger
	metrics       *Metrics
	flushInterval time.Duration
	batchSize     int
	now           func() time.Time

	// mu guards the sequencer and the pending queue. It is never held
	// across store I/O.
	mu      sync.Mutex
	nextSeq uint64
	head    string
	queue   []Entry
	closed  bool

	// flushMu serialises persistence so batches land in sequence order.
	flushMu   sync.Mutex
	persisted uint64

	kick      chan struct{}
	stop      chan struct{}
	done      chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
}

// Option configures the Trail.
type Option func(*Trail)

func WithLogger(logger *slog.Logger) Option {
	return func(t *Trail) {
		t.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(t *Trail) {
		t.metrics = m
	}
}

// WithFlushInterval sets the periodic flush interval.
func WithFlushInterval(d time.Duration) Option {
	return func(t *Trail) {
		if d > 0 {
			t.flushInterval = d
		}
	}
}

// WithBatchSize sets the queue length that triggers an early flush.
func WithBatchSize(n int) Option {
	return func(t *Trail) {
		if n > 0 {
			t.batchSize = n
		}
	}
}

// WithClock overrides the timestamp source for entries without one.
func WithClock(now func() time.Time) Option {
	return func(t *Trail) {
		t.now = now
	}
}

// New builds a Trail positioned after the last persisted entry.
// Call Start to begin background flushing and Close to drain.
func New(ctx context.Context, store Store, opts ...Option) (*Trail, error) {
	if store == nil {
		return nil, fmt.Errorf("audit store is required")
	}

	t := &Trail{
		store:         store,
		logger:        slog.Default(),
		flushInterval: defaultFlushInterval,
		batchSize:     defaultBatchSize,
		now:           time.Now,
		nextSeq:       1,
		head:          GenesisHash,
		kick:          make(chan struct{}, 1),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}

	last, err := store.Head(ctx)
	if err != nil {
		return nil, fmt.Errorf("load audit head: %w", err)
	}
	if last != nil {
		t.nextSeq = last.Sequence + 1
		t.head = last.Hash
		t.persisted = last.Sequence
		t.metrics.setHead(last.Sequence)
	}
	return t, nil
}

// Start launches the background flusher. It is safe to call more than once.
func (t *Trail) Start() {
	t.startOnce.Do(func() {
		go t.run()
	})
}

// Append sequences and chains e, then queues it or, for critical actions,
// persists it before returning. The sealed entry is returned.
//
// A critical entry whose flush fails is not withdrawn: the chain already
// links to it, so it stays queued and lands with the next successful flush
// even though the caller aborted. Readers must treat Success on such an
// entry as the outcome the caller intended, not one it reached.
func (t *Trail) Append(ctx context.Context, e Entry) (Entry, error) {
	if e.Action == "" {
		return Entry{}, dErrors.New(dErrors.CodeBadRequest, "audit entry requires an action")
	}
	if e.ActorID == "" {
		e.ActorID = "system"
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = t.now()
	}
	// Stores keep microseconds; truncate so the hash survives a round trip.
	e.Timestamp = e.Timestamp.UTC().Truncate(time.Microsecond)

	critical := e.Action.IsCritical()

	t.mu.Lock()
	e.Sequence = t.nextSeq
	e.PrevHash = t.head
	e.Hash = ComputeHash(e)
	t.nextSeq++
	t.head = e.Hash
	t.queue = append(t.queue, e)
	pending := len(t.queue)
	synchronous := critical || t.closed
	t.mu.Unlock()

	t.metrics.incAppended(critical)
	t.metrics.setQueueDepth(pending)

	if synchronous {
		if err := t.flushThrough(ctx, e.Sequence); err != nil {
			t.logger.ErrorContext(ctx, "CRITICAL: audit entry not persisted",
				"action", e.Action,
				"actor_id", e.ActorID,
				"sequence", e.Sequence,
				"error", err,
			)
			return e, dErrors.Wrap(err, dErrors.CodeUnavailable, "audit persistence failed")
		}
		return e, nil
	}

	if pending >= t.batchSize {
		select {
		case t.kick <- struct{}{}:
		default:
		}
	}
	return e, nil
}

// Flush persists every queued entry.
func (t *Trail) Flush(ctx context.Context) error {
	t.flushMu.Lock()
	defer t.flushMu.Unlock()
	return t.flushLocked(ctx)
}

// Pending returns the number of sequenced entries not yet persisted.
func (t *Trail) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queue)
}

// Close stops the background flusher and drains the queue. Appends after
// Close are persisted synchronously.
func (t *Trail) Close(ctx context.Context) error {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.closed = true
		t.mu.Unlock()
		close(t.stop)
		t.startOnce.Do(func() { close(t.done) })
		<-t.done
	})
	return t.Flush(ctx)
}

// flushThrough returns once seq is durable.
func (t *Trail) flushThrough(ctx context.Context, seq uint64) error {
	t.flushMu.Lock()
	defer t.flushMu.Unlock()
	if t.persisted >= seq {
		return nil
	}
	if err := t.flushLocked(ctx); err != nil {
		return err
	}
	if t.persisted < seq {
		return fmt.Errorf("audit sequence %d not persisted", seq)
	}
	return nil
}

// flushLocked requires flushMu. A failed batch goes back to the front of the
// queue so sequence order is kept for the next attempt.
func (t *Trail) flushLocked(ctx context.Context) error {
	t.mu.Lock()
	batch := t.queue
	t.queue = nil
	t.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	start := time.Now()
	if err := t.store.AppendBatch(ctx, batch); err != nil {
		t.mu.Lock()
		t.queue = append(batch, t.queue...)
		pending := len(t.queue)
		t.mu.Unlock()
		t.metrics.incFlushFailure()
		t.metrics.setQueueDepth(pending)
		return fmt.Errorf("persist audit batch: %w", err)
	}

	t.persisted = batch[len(batch)-1].Sequence
	t.metrics.observeFlush(time.Since(start).Seconds())
	t.metrics.setHead(t.persisted)
	t.metrics.setQueueDepth(t.Pending())
	return nil
}

func (t *Trail) run() {
	defer close(t.done)
	ticker := time.NewTicker(t.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			t.backgroundFlush()
		case <-t.kick:
			t.backgroundFlush()
		}
	}
}

func (t *Trail) backgroundFlush() {
	ctx, cancel := context.WithTimeout(context.Background(), backgroundFlushLimit)
	defer cancel()
	if err := t.Flush(ctx); err != nil {
		t.logger.WarnContext(ctx, "audit batch flush failed, will retry",
			"pending", t.Pending(),
			"error", err,
		)
	}
}

// ExportRange returns persisted entries with timestamps in [start, end]
// matching f, after flushing the queue.
func (t *Trail) ExportRange(ctx context.Context, start, end time.Time, f Filter) ([]Entry, error) {
	if !end.IsZero() && end.Before(start) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "export end precedes start")
	}
	if err := t.Flush(ctx); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "audit flush before export failed")
	}
	entries, err := t.store.Range(ctx, Query{Start: start, End: end})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "read audit range")
	}
	return filterEntries(entries, f), nil
}

// ExportVerified is ExportRange with the covering chain segment verified,
// including its link to the preceding persisted entry.
//
// Timestamps are caller-supplied and need not follow sequence order, so the
// time window is first resolved to the sequence span it touches. The whole
// span is verified and only then narrowed to the window and f.
func (t *Trail) ExportVerified(ctx context.Context, start, end time.Time, f Filter) ([]Entry, error) {
	if !end.IsZero() && end.Before(start) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "export end precedes start")
	}
	if err := t.Flush(ctx); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "audit flush before export failed")
	}
	matched, err := t.store.Range(ctx, Query{Start: start, End: end})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "read audit range")
	}
	if len(matched) == 0 {
		return matched, nil
	}

	first, last := sequenceSpan(matched)
	segment, err := t.store.Range(ctx, Query{FromSequence: first, ToSequence: last})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "read audit range")
	}
	anchor, err := t.anchorFor(ctx, first)
	if err != nil {
		return nil, err
	}
	if err := verifySpan(anchor, first, last, segment); err != nil {
		t.logger.ErrorContext(ctx, "audit chain verification failed", "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeIntegrity, "audit chain verification failed")
	}

	window := Query{Start: start, End: end}
	out := make([]Entry, 0, len(matched))
	for _, e := range segment {
		if window.covers(e) && f.Matches(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func sequenceSpan(entries []Entry) (first, last uint64) {
	first, last = entries[0].Sequence, entries[0].Sequence
	for _, e := range entries[1:] {
		first = min(first, e.Sequence)
		last = max(last, e.Sequence)
	}
	return first, last
}

// verifySpan requires segment to hold exactly the sequences first..last.
func verifySpan(anchor string, first, last uint64, segment []Entry) error {
	if len(segment) == 0 || segment[0].Sequence != first {
		return fmt.Errorf("%w: missing sequence %d", ErrChainBroken, first)
	}
	if end := segment[len(segment)-1].Sequence; end != last {
		return fmt.Errorf("%w: span ends at %d, expected %d", ErrChainBroken, end, last)
	}
	return VerifyAnchored(anchor, segment)
}

// VerifyLog walks the whole persisted log from genesis in pages. It returns
// the number of entries checked, and an error wrapping ErrChainBroken at the
// first mismatch.
func (t *Trail) VerifyLog(ctx context.Context) (int, error) {
	return VerifyStore(ctx, t.store)
}

// VerifyStore walks every entry in store from genesis.
func VerifyStore(ctx context.Context, store Store) (int, error) {
	checked := 0
	anchor := GenesisHash
	from := uint64(1)
	for {
		page, err := store.Range(ctx, Query{FromSequence: from, ToSequence: from + verifyPageSize - 1})
		if err != nil {
			return checked, fmt.Errorf("read audit page at %d: %w", from, err)
		}
		if len(page) == 0 {
			return checked, nil
		}
		if page[0].Sequence != from {
			return checked, fmt.Errorf("%w: missing sequence %d", ErrChainBroken, from)
		}
		if err := VerifyAnchored(anchor, page); err != nil {
			return checked, err
		}
		checked += len(page)
		last := page[len(page)-1]
		anchor = last.Hash
		from = last.Sequence + 1
	}
}

func (t *Trail) anchorFor(ctx context.Context, seq uint64) (string, error) {
	if seq <= 1 {
		return GenesisHash, nil
	}
	prev, err := t.store.Get(ctx, seq-1)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeIntegrity, "predecessor of exported range is missing")
	}
	return prev.Hash, nil
}

func filterEntries(entries []Entry, f Filter) []Entry {
	if f == (Filter{}) {
		return entries
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// IsChainBroken reports whether err stems from a failed chain verification.
func IsChainBroken(err error) bool {
	return errors.Is(err, ErrChainBroken)
}
