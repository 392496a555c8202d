package audit

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildChain(actors []string) []Entry {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	prev := GenesisHash
	entries := make([]Entry, 0, len(actors))
	for i, actor := range actors {
		e := Entry{
			Sequence:   uint64(i + 1),
			Timestamp:  base.Add(time.Duration(i) * time.Second),
			ActorID:    actor,
			Action:     ActionAccessView,
			Resource:   "patient_record",
			ResourceID: "rec",
			Success:    i%2 == 0,
			PrevHash:   prev,
		}
		e.Hash = ComputeHash(e)
		prev = e.Hash
		entries = append(entries, e)
	}
	return entries
}

// Property: a chain built by ComputeHash always verifies from genesis.
func TestChainVerifiesProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("well-formed chains verify", prop.ForAll(
		func(actors []string) bool {
			return VerifyAnchored(GenesisHash, buildChain(actors)) == nil
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

// Property: editing any covered field of any entry breaks verification.
func TestChainDetectsTamperingProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("single-field edits are detected", prop.ForAll(
		func(actors []string, pick int, field int) bool {
			chain := buildChain(actors)
			target := &chain[pick%len(chain)]
			switch field % 5 {
			case 0:
				target.ActorID += "x"
			case 1:
				target.Action = ActionAccessExport
			case 2:
				target.Success = !target.Success
			case 3:
				target.Timestamp = target.Timestamp.Add(time.Microsecond)
			case 4:
				target.ResourceID += "x"
			}
			return !Verify(chain)
		},
		gen.SliceOfN(8, gen.AlphaString()).SuchThat(func(v []string) bool { return len(v) > 0 }),
		gen.IntRange(0, 1000),
		gen.IntRange(0, 1000),
	))

	properties.TestingRun(t)
}

func TestVerifyChain(t *testing.T) {
	t.Run("empty chain verifies", func(t *testing.T) {
		assert.NoError(t, VerifyChain(nil))
	})

	t.Run("reports the first broken position", func(t *testing.T) {
		chain := buildChain([]string{"a", "b", "c", "d"})
		chain[2].PrevHash = "forged"

		err := VerifyChain(chain)
		require.ErrorIs(t, err, ErrChainBroken)
		assert.Contains(t, err.Error(), "entry 2")
	})

	t.Run("dropped entry is a gap", func(t *testing.T) {
		chain := buildChain([]string{"a", "b", "c"})
		spliced := []Entry{chain[0], chain[2]}
		assert.ErrorIs(t, VerifyChain(spliced), ErrChainBroken)
	})

	t.Run("middle segment verifies only against its true anchor", func(t *testing.T) {
		chain := buildChain([]string{"a", "b", "c", "d"})
		assert.NoError(t, VerifyAnchored(chain[0].Hash, chain[1:]))
		assert.ErrorIs(t, VerifyAnchored(GenesisHash, chain[1:]), ErrChainBroken)
	})

	t.Run("metadata is not chained", func(t *testing.T) {
		chain := buildChain([]string{"a"})
		chain[0].Metadata = map[string]string{"note": "added later"}
		assert.True(t, Verify(chain))
	})
}

func TestCriticalActions(t *testing.T) {
	for _, a := range []Action{ActionLicenseSuspended, ActionLicenseRevoked, ActionAdminLogin, ActionAccessExport, ActionRoleChanged, ActionConfigChanged, ActionDataDisclosed} {
		assert.True(t, a.IsCritical(), a)
	}
	for _, a := range []Action{ActionAccessView, ActionMFASuccess, ActionWorkflowStep} {
		assert.False(t, a.IsCritical(), a)
	}
}
