package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrChainBroken is returned when recomputed hashes or links do not match.
var ErrChainBroken = errors.New("audit hash chain is broken")

// ComputeHash derives the chained hash of an entry from its covered fields.
// Fields are encoded as a JSON array so no separator can be forged by content.
func ComputeHash(e Entry) string {
	covered := []any{
		e.ActorID,
		string(e.Action),
		e.Resource,
		e.ResourceID,
		e.Success,
		e.Timestamp.UTC().Format(time.RFC3339Nano),
		e.PrevHash,
	}
	// Marshalling strings, bools and a formatted time cannot fail.
	data, _ := json.Marshal(covered)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Verify walks entries recomputing each hash and checking each link.
// It returns false at the first mismatch.
func Verify(entries []Entry) bool {
	return VerifyChain(entries) == nil
}

// VerifyChain is Verify with the failing position reported.
// The first entry's PrevHash is trusted as the anchor, so a contiguous slice
// taken from the middle of a log verifies on its own; use VerifyAnchored to
// pin the anchor to a known predecessor.
func VerifyChain(entries []Entry) error {
	for i, e := range entries {
		if i > 0 {
			prev := entries[i-1]
			if e.PrevHash != prev.Hash {
				return fmt.Errorf("%w: entry %d (seq %d) links to %q, expected %q",
					ErrChainBroken, i, e.Sequence, e.PrevHash, prev.Hash)
			}
			if e.Sequence != 0 && prev.Sequence != 0 && e.Sequence != prev.Sequence+1 {
				return fmt.Errorf("%w: sequence gap between %d and %d",
					ErrChainBroken, prev.Sequence, e.Sequence)
			}
		}
		if computed := ComputeHash(e); computed != e.Hash {
			return fmt.Errorf("%w: entry %d (seq %d) hash mismatch",
				ErrChainBroken, i, e.Sequence)
		}
	}
	return nil
}

// VerifyAnchored verifies entries and requires the first entry to link to
// anchor (GenesisHash for a log read from its start).
func VerifyAnchored(anchor string, entries []Entry) error {
	if len(entries) > 0 && entries[0].PrevHash != anchor {
		return fmt.Errorf("%w: first entry (seq %d) does not link to anchor",
			ErrChainBroken, entries[0].Sequence)
	}
	return VerifyChain(entries)
}
