package audit_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	dErrors "regulus/pkg/domain-errors"
	audit "regulus/pkg/platform/audit"
	"regulus/pkg/platform/audit/store/memory"
)

// =============================================================================
// Audit Trail Test Suite
// =============================================================================
// Justification for unit tests: sequencing, batching and the critical fast
// path interleave in ways that only show up with a controllable store.

type TrailSuite struct {
	suite.Suite
	store *flakyStore
	trail *audit.Trail
	now   time.Time
}

func TestTrailSuite(t *testing.T) {
	suite.Run(t, new(TrailSuite))
}

func (s *TrailSuite) SetupTest() {
	s.store = &flakyStore{InMemoryStore: memory.NewInMemoryStore()}
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	var err error
	s.trail, err = audit.New(context.Background(), s.store,
		audit.WithClock(func() time.Time { return s.now }),
		audit.WithFlushInterval(time.Hour),
		audit.WithBatchSize(1000),
	)
	s.Require().NoError(err)
}

func (s *TrailSuite) TearDownTest() {
	s.store.failing.Store(false)
	s.Require().NoError(s.trail.Close(context.Background()))
}

func (s *TrailSuite) entry(action audit.Action, actor string) audit.Entry {
	return audit.Entry{
		ActorID:    actor,
		ActorRole:  "practitioner",
		Action:     action,
		Resource:   "patient_record",
		ResourceID: "rec-1",
		Success:    true,
	}
}

// =============================================================================
// Constructor Tests
// =============================================================================

func (s *TrailSuite) TestNew() {
	s.Run("nil store returns error", func() {
		_, err := audit.New(context.Background(), nil)
		s.Error(err)
		s.Contains(err.Error(), "audit store is required")
	})

	s.Run("resumes the chain after the persisted head", func() {
		ctx := context.Background()
		first, err := s.trail.Append(ctx, s.entry(audit.ActionAccessView, "u1"))
		s.Require().NoError(err)
		s.Require().NoError(s.trail.Flush(ctx))

		restarted, err := audit.New(ctx, s.store)
		s.Require().NoError(err)
		next, err := restarted.Append(ctx, s.entry(audit.ActionAccessView, "u2"))
		s.Require().NoError(err)
		s.Require().NoError(restarted.Close(ctx))

		s.Equal(first.Sequence+1, next.Sequence)
		s.Equal(first.Hash, next.PrevHash)
	})
}

// =============================================================================
// Append Tests
// =============================================================================

func (s *TrailSuite) TestAppend() {
	ctx := context.Background()

	s.Run("missing action rejected", func() {
		_, err := s.trail.Append(ctx, audit.Entry{ActorID: "u1"})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("first entry links to genesis", func() {
		e, err := s.trail.Append(ctx, s.entry(audit.ActionAccessView, "u1"))
		s.Require().NoError(err)
		s.Equal(uint64(1), e.Sequence)
		s.Equal(audit.GenesisHash, e.PrevHash)
		s.Equal(audit.ComputeHash(e), e.Hash)
	})

	s.Run("ordinary entries wait in the queue", func() {
		s.Equal(1, s.trail.Pending())
		head, err := s.store.Head(ctx)
		s.Require().NoError(err)
		s.Nil(head)
	})

	s.Run("critical entry flushes queued entries ahead of itself", func() {
		e, err := s.trail.Append(ctx, s.entry(audit.ActionAccessExport, "u1"))
		s.Require().NoError(err)
		s.Equal(0, s.trail.Pending())

		stored, err := s.store.Range(ctx, audit.Query{})
		s.Require().NoError(err)
		s.Require().Len(stored, 2)
		s.Equal(e.Hash, stored[1].Hash)
		s.NoError(audit.VerifyAnchored(audit.GenesisHash, stored))
	})
}

func (s *TrailSuite) TestCriticalFailureIsFailClosed() {
	ctx := context.Background()

	_, err := s.trail.Append(ctx, s.entry(audit.ActionAccessView, "u1"))
	s.Require().NoError(err)

	s.store.failing.Store(true)
	_, err = s.trail.Append(ctx, s.entry(audit.ActionLicenseRevoked, "admin"))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	s.Equal(2, s.trail.Pending(), "failed batch must be requeued")

	s.store.failing.Store(false)
	s.Require().NoError(s.trail.Flush(ctx))

	n, err := audit.VerifyStore(ctx, s.store)
	s.Require().NoError(err)
	s.Equal(2, n)

	// The refused entry is kept as a record of the attempt.
	entries, err := s.trail.ExportRange(ctx, time.Time{}, time.Time{}, audit.Filter{Action: audit.ActionLicenseRevoked})
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(uint64(2), entries[0].Sequence)
}

func (s *TrailSuite) TestBatchSizeTriggersBackgroundFlush() {
	ctx := context.Background()
	trail, err := audit.New(ctx, s.store,
		audit.WithFlushInterval(time.Hour),
		audit.WithBatchSize(5),
	)
	s.Require().NoError(err)
	trail.Start()
	defer func() { s.NoError(trail.Close(ctx)) }()

	for i := 0; i < 5; i++ {
		_, err := trail.Append(ctx, s.entry(audit.ActionWorkflowStep, "u1"))
		s.Require().NoError(err)
	}

	s.Eventually(func() bool {
		entries, err := s.store.Range(ctx, audit.Query{})
		return err == nil && len(entries) == 5
	}, 2*time.Second, 10*time.Millisecond)
}

func (s *TrailSuite) TestConcurrentAppendsFormOneChain() {
	ctx := context.Background()
	const writers, perWriter = 16, 25

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				action := audit.ActionAccessView
				if i%10 == 0 {
					action = audit.ActionAccessExport
				}
				_, err := s.trail.Append(ctx, s.entry(action, fmt.Sprintf("u%d", w)))
				s.NoError(err)
			}
		}(w)
	}
	wg.Wait()
	s.Require().NoError(s.trail.Flush(ctx))

	n, err := audit.VerifyStore(ctx, s.store)
	s.Require().NoError(err)
	s.Equal(writers*perWriter, n)
}

// =============================================================================
// Export and Verification Tests
// =============================================================================

func (s *TrailSuite) TestExport() {
	ctx := context.Background()
	base := s.now
	for i := 0; i < 6; i++ {
		s.now = base.Add(time.Duration(i) * time.Minute)
		actor := "u1"
		if i%2 == 1 {
			actor = "u2"
		}
		_, err := s.trail.Append(ctx, s.entry(audit.ActionAccessView, actor))
		s.Require().NoError(err)
	}

	s.Run("range bounds are inclusive", func() {
		entries, err := s.trail.ExportRange(ctx, base.Add(time.Minute), base.Add(3*time.Minute), audit.Filter{})
		s.Require().NoError(err)
		s.Len(entries, 3)
	})

	s.Run("filter narrows by actor", func() {
		entries, err := s.trail.ExportRange(ctx, base, base.Add(time.Hour), audit.Filter{ActorID: "u2"})
		s.Require().NoError(err)
		s.Len(entries, 3)
		for _, e := range entries {
			s.Equal("u2", e.ActorID)
		}
	})

	s.Run("inverted range rejected", func() {
		_, err := s.trail.ExportRange(ctx, base.Add(time.Hour), base, audit.Filter{})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("verified export of a middle segment checks its predecessor", func() {
		entries, err := s.trail.ExportVerified(ctx, base.Add(2*time.Minute), base.Add(4*time.Minute), audit.Filter{})
		s.Require().NoError(err)
		s.Len(entries, 3)
	})

	s.Run("tampered entry fails verified export", func() {
		s.Require().True(s.store.Tamper(3, func(e *audit.Entry) { e.Success = false }))

		_, err := s.trail.ExportVerified(ctx, base, base.Add(time.Hour), audit.Filter{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeIntegrity))
		s.True(audit.IsChainBroken(err))

		_, err = audit.VerifyStore(ctx, s.store)
		s.ErrorIs(err, audit.ErrChainBroken)
	})
}

func (s *TrailSuite) TestVerifiedExportWithOutOfOrderTimestamps() {
	ctx := context.Background()
	base := s.now
	// Request-stamped entries can be sequenced after later-stamped ones.
	for i, offset := range []time.Duration{2 * time.Second, time.Second, 3 * time.Second} {
		e := s.entry(audit.ActionAccessView, fmt.Sprintf("u%d", i+1))
		e.Timestamp = base.Add(offset)
		_, err := s.trail.Append(ctx, e)
		s.Require().NoError(err)
	}

	s.Run("window skipping a sequence still verifies", func() {
		entries, err := s.trail.ExportVerified(ctx, base.Add(2*time.Second), base.Add(3*time.Second), audit.Filter{})
		s.Require().NoError(err)
		s.Require().Len(entries, 2)
		s.Equal(uint64(1), entries[0].Sequence)
		s.Equal(uint64(3), entries[1].Sequence)
	})

	s.Run("window holding only the early stamp", func() {
		entries, err := s.trail.ExportVerified(ctx, base, base.Add(time.Second), audit.Filter{})
		s.Require().NoError(err)
		s.Require().Len(entries, 1)
		s.Equal("u2", entries[0].ActorID)
	})

	s.Run("tampering inside the span is still caught", func() {
		s.Require().True(s.store.Tamper(2, func(e *audit.Entry) { e.ActorID = "mallory" }))
		_, err := s.trail.ExportVerified(ctx, base.Add(2*time.Second), base.Add(3*time.Second), audit.Filter{})
		s.True(dErrors.HasCode(err, dErrors.CodeIntegrity))
	})
}

// flakyStore fails AppendBatch while failing is set.
type flakyStore struct {
	*memory.InMemoryStore
	failing atomic.Bool
}

func (f *flakyStore) AppendBatch(ctx context.Context, entries []audit.Entry) error {
	if f.failing.Load() {
		return errors.New("connection refused")
	}
	return f.InMemoryStore.AppendBatch(ctx, entries)
}
