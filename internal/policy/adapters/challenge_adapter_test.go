package adapters

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"regulus/internal/challenge"
	challengeModels "regulus/internal/challenge/models"
	challengeStore "regulus/internal/challenge/store/memory"
	"regulus/internal/policy/dlp"
	"regulus/internal/policy/gate"
	"regulus/internal/policy/models"
	"regulus/internal/policy/store/counter"
	audit "regulus/pkg/platform/audit"
	auditStore "regulus/pkg/platform/audit/store/memory"
)

type capturingSender struct {
	mu    sync.Mutex
	codes map[string]string
}

func (c *capturingSender) Send(_ context.Context, actorID string, _ challengeModels.Method, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.codes[actorID] = code
	return nil
}

func (c *capturingSender) code(actorID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.codes[actorID]
}

// TestStepUpRoundTrip drives a real gate against a real challenge service:
// demand, verify, redeem, replay.
func TestStepUpRoundTrip(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	trail, err := audit.New(ctx, auditStore.NewInMemoryStore(), audit.WithFlushInterval(time.Hour))
	require.NoError(t, err)
	defer trail.Close(ctx)

	sender := &capturingSender{codes: make(map[string]string)}
	signer, err := challenge.NewProofSigner("adapter-test-key", time.Minute)
	require.NoError(t, err)
	svc, err := challenge.New(
		challengeStore.NewChallengeStore(),
		challengeStore.NewDeviceStore(),
		challengeStore.NewProofStore(),
		signer,
		challenge.WithLogger(logger),
		challenge.WithAuditor(trail),
		challenge.WithCodeSender(sender),
		challenge.WithCodeCost(bcrypt.MinCost),
	)
	require.NoError(t, err)

	bridge := NewChallengeAdapter(svc)
	g, err := gate.New(dlp.NewRegistry(dlp.Default()), counter.New(), trail,
		gate.WithLogger(logger),
		gate.WithDeviceTrust(bridge),
		gate.WithStepUpProofs(bridge),
		gate.WithChallengeIssuer(bridge),
	)
	require.NoError(t, err)

	req := models.AccessRequest{
		ActorID:       "insp-1",
		ActorRole:     "inspector",
		ResourceType:  "investigation",
		ResourceID:    "case-9",
		Action:        models.ActionExport,
		Justification: "case review",
		OriginIP:      "10.1.2.3",
	}
	sc := models.SecurityContext{
		ActorID:           req.ActorID,
		ActorRole:         req.ActorRole,
		OriginIP:          req.OriginIP,
		DeviceFingerprint: "laptop-fp",
	}

	first, err := g.Evaluate(ctx, req, sc)
	require.NoError(t, err)
	assert.False(t, first.Allowed)
	assert.True(t, first.RequiresStepUp)
	require.NotEmpty(t, first.ChallengeID)

	res, err := svc.Verify(ctx, first.ChallengeID, sender.code("insp-1"))
	require.NoError(t, err)
	require.True(t, res.Success)

	sc.StepUpProof = res.Proof
	second, err := g.Evaluate(ctx, req, sc)
	require.NoError(t, err)
	assert.True(t, second.Allowed)
	assert.Equal(t, []string{models.ObligationWatermark}, second.Obligations)

	third, err := g.Evaluate(ctx, req, sc)
	require.NoError(t, err)
	assert.False(t, third.Allowed, "a redeemed proof cannot be replayed")
	assert.True(t, third.RequiresStepUp)

	t.Run("proof of another actor is rejected", func(t *testing.T) {
		_, err := bridge.ValidateProof(ctx, res.Proof, "insp-2")
		assert.Error(t, err)
	})

	t.Run("device assessment is projected", func(t *testing.T) {
		a, err := bridge.ValidateFingerprint(ctx, "insp-1", "laptop-fp")
		require.NoError(t, err)
		assert.False(t, a.Trusted)
		assert.True(t, a.RequiresMFA)
	})
}
