package steps_test

import (
	"context"
	"io"
	"log/slog"
	"time"

	"go.uber.org/mock/gomock"

	"regulus/internal/policy/dlp"
	"regulus/internal/policy/gate"
	policyModels "regulus/internal/policy/models"
	"regulus/internal/policy/store/counter"
	"regulus/internal/workflow"
	"regulus/internal/workflow/models"
	"regulus/internal/workflow/ports"
	wfStore "regulus/internal/workflow/store/memory"
	dErrors "regulus/pkg/domain-errors"
	audit "regulus/pkg/platform/audit"
	auditStore "regulus/pkg/platform/audit/store/memory"
	"regulus/pkg/requestcontext"
)

// =============================================================================
// Engine + Step Flow Tests
// =============================================================================
// These drive real steps through the engine so that caller input, redaction
// and critical events are checked end to end.

func (s *StepsSuite) newEngine() (*workflow.Engine, *auditStore.InMemoryStore, *audit.Trail) {
	store := auditStore.NewInMemoryStore()
	trail, err := audit.New(context.Background(), store, audit.WithFlushInterval(time.Hour))
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = trail.Close(context.Background()) })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	policyGate, err := gate.New(dlp.NewRegistry(dlp.Default()), counter.New(), trail, gate.WithLogger(logger))
	s.Require().NoError(err)

	engine, err := workflow.New(wfStore.New(), s.steps, trail, policyGate, workflow.WithLogger(logger))
	s.Require().NoError(err)
	return engine, store, trail
}

func (s *StepsSuite) TestInvestigationEndsInRevocation() {
	engine, store, _ := s.newEngine()
	ctx := requestcontext.WithTime(context.Background(), s.now)
	registrar := session("registrar-1", "registrar")
	inspector := session("insp-7", "inspector")
	board := session("board-1", "admin")

	inst, err := engine.Start(ctx, models.TypeInvestigation, models.Metadata{
		"registrationNumber": "MD-12345",
		"allegation":         "practising while suspended in another county",
		"severity":           "high",
		"region":             "nairobi",
	}, registrar)
	s.Require().NoError(err)

	s.registry.EXPECT().Lookup(gomock.Any(), "MD-12345").Return(activePractitioner(), nil)
	s.crypto.EXPECT().Encrypt(gomock.Any(), gomock.Any()).Return("enc:allegation", nil)
	got, err := engine.Advance(ctx, inst.ID, registrar)
	s.Require().NoError(err)
	s.NotContains(got.Metadata, "allegation")

	s.inspectors.EXPECT().Assign(gomock.Any(), got.Metadata.String("caseNumber"), "nairobi").Return("insp-7", nil)
	_, err = engine.Advance(ctx, inst.ID, registrar)
	s.Require().NoError(err)

	_, err = engine.Advance(ctx, inst.ID, registrar, workflow.WithInput(models.Metadata{
		"evidence": []any{map[string]any{"kind": "statement", "id": "ev-1"}},
	}))
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden), "only the inspector submits evidence")

	_, err = engine.Advance(ctx, inst.ID, inspector, workflow.WithInput(models.Metadata{
		"evidence": []any{map[string]any{"kind": "statement", "id": "ev-1"}},
	}))
	s.Require().NoError(err)

	s.ledger.EXPECT().RecordAction(gomock.Any(), gomock.Any()).Return(ports.LedgerReceipt{ReceiptID: "rcpt-1", Digest: "abc"}, nil)
	s.registry.EXPECT().UpdateLicenseStatus(gomock.Any(), "LIC-2024-0042", ports.LicenseRevoked).Return(nil)
	got, err = engine.Advance(ctx, inst.ID, board, workflow.WithInput(models.Metadata{
		"outcome": "revoked", "reason": "fraudulent credentials",
	}))
	s.Require().NoError(err)
	s.Equal("revoked", got.Metadata.String("outcome"))

	// Critical entries are durable without a flush.
	persisted, err := store.Range(context.Background(), audit.Query{})
	s.Require().NoError(err)
	var revoked []audit.Entry
	for _, e := range persisted {
		if e.Action == audit.ActionLicenseRevoked {
			revoked = append(revoked, e)
		}
	}
	s.Require().Len(revoked, 1)
	s.Equal("board-1", revoked[0].ActorID)
	s.Equal("LIC-2024-0042", revoked[0].ResourceID)
	s.NoError(audit.VerifyChain(persisted))

	s.notifier.EXPECT().Send(gomock.Any(), gomock.Any()).Return(ports.DeliveryStatus{Accepted: true, MessageID: "m1"}, nil)
	done, err := engine.Advance(ctx, inst.ID, registrar)
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, done.Status)
	s.Equal(5, done.CurrentStepIndex)
}

func (s *StepsSuite) TestDeclinedRenewalPaymentNeedsExplicitRetry() {
	engine, _, _ := s.newEngine()
	ctx := requestcontext.WithTime(context.Background(), s.now)
	sc := session("registrar-1", "registrar")

	inst, err := engine.Start(ctx, models.TypeRenewal, models.Metadata{"registrationNumber": "MD-12345"}, sc)
	s.Require().NoError(err)

	s.registry.EXPECT().Lookup(gomock.Any(), "MD-12345").Return(activePractitioner(), nil)
	s.registry.EXPECT().CPDCredits(gomock.Any(), "MD-12345", gomock.Any()).Return(30, nil)
	_, err = engine.Advance(ctx, inst.ID, sc)
	s.Require().NoError(err)

	s.payments.EXPECT().Charge(gomock.Any(), gomock.Any()).Return(ports.PaymentResult{Success: false, Reason: "card expired"}, nil)
	failed, err := engine.Advance(ctx, inst.ID, sc)
	s.True(dErrors.HasCode(err, dErrors.CodeStepFailed))
	s.Equal("payment declined: card expired", failed.Metadata.String(models.MetaFailureReason))

	_, err = engine.Retry(ctx, inst.ID, sc, workflow.RetryOptions{})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

	_, err = engine.Retry(ctx, inst.ID, sc, workflow.RetryOptions{AllowRepeatCharge: true, Reason: "new card on file"})
	s.Require().NoError(err)

	s.payments.EXPECT().Charge(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req ports.ChargeRequest) (ports.PaymentResult, error) {
			s.Equal(inst.ID+":payment:1", req.Reference)
			return ports.PaymentResult{Success: true, TxID: "tx-2"}, nil
		})
	paid, err := engine.Advance(ctx, inst.ID, sc)
	s.Require().NoError(err)
	s.Equal("tx-2", paid.Metadata.String("paymentTxId"))
}

// session is attached from the office network, which admins and inspectors
// need.
func session(actor, role string) policyModels.SecurityContext {
	return policyModels.SecurityContext{ActorID: actor, ActorRole: role, SessionID: "sess-" + actor, OriginIP: "10.0.4.20"}
}

func (s *StepsSuite) TestInvestigationIsClosedToOtherRoles() {
	engine, store, trail := s.newEngine()
	ctx := requestcontext.WithTime(context.Background(), s.now)
	registrar := session("registrar-1", "registrar")
	nurse := session("nurse-3", "practitioner")
	payload := models.Metadata{
		"registrationNumber": "MD-12345",
		"allegation":         "prescribing outside scope",
		"severity":           "medium",
		"region":             "nairobi",
	}

	_, err := engine.Start(ctx, models.TypeInvestigation, payload, nurse)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden), "a practitioner cannot open a case")

	inst, err := engine.Start(ctx, models.TypeInvestigation, payload, registrar)
	s.Require().NoError(err)

	_, err = engine.Advance(ctx, inst.ID, nurse)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	_, err = engine.Cancel(ctx, inst.ID, "closing my own case", nurse)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	_, err = engine.Get(ctx, inst.ID, nurse)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	s.registry.EXPECT().Lookup(gomock.Any(), "MD-12345").Return(activePractitioner(), nil)
	s.crypto.EXPECT().Encrypt(gomock.Any(), gomock.Any()).Return("enc:allegation", nil)
	_, err = engine.Advance(ctx, inst.ID, registrar)
	s.Require().NoError(err)
	s.inspectors.EXPECT().Assign(gomock.Any(), gomock.Any(), "nairobi").Return("insp-7", nil)
	_, err = engine.Advance(ctx, inst.ID, registrar)
	s.Require().NoError(err)
	_, err = engine.Advance(ctx, inst.ID, session("insp-7", "inspector"), workflow.WithInput(models.Metadata{
		"evidence": []any{map[string]any{"kind": "statement", "id": "ev-1"}},
	}))
	s.Require().NoError(err)

	// A registrar may run the case but not decide it.
	_, err = engine.Advance(ctx, inst.ID, registrar, workflow.WithInput(models.Metadata{
		"outcome": "revoked", "reason": "fraudulent credentials",
	}))
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	got, err := engine.Get(ctx, inst.ID, registrar)
	s.Require().NoError(err)
	s.Equal(models.StatusInProgress, got.Status)
	s.Equal(3, got.CurrentStepIndex)

	s.Require().NoError(trail.Flush(context.Background()))
	persisted, err := store.Range(context.Background(), audit.Query{})
	s.Require().NoError(err)
	var denied []audit.Entry
	for _, e := range persisted {
		s.NotEqual(audit.ActionLicenseRevoked, e.Action)
		if e.Action == audit.ActionWorkflowDenied {
			denied = append(denied, e)
		}
	}
	s.Require().Len(denied, 1)
	s.Equal("registrar-1", denied[0].ActorID)
	s.False(denied[0].Success)
}
