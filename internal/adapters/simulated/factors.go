package simulated

import (
	"context"
	"slices"
	"sync"

	challengeModels "regulus/internal/challenge/models"
	pstrings "regulus/pkg/platform/strings"
)

// Factors is an in-memory directory of enrolled second factors. Actors
// without an enrollment get the defaults.
type Factors struct {
	mu       sync.RWMutex
	defaults []challengeModels.Method
	byActor  map[string][]challengeModels.Method
}

func NewFactors(defaults ...challengeModels.Method) *Factors {
	return &Factors{defaults: defaults, byActor: make(map[string][]challengeModels.Method)}
}

// FactorsFromSeed builds a directory from the seed's method names. Unknown
// names are skipped.
func FactorsFromSeed(byActor map[string][]string, defaults ...challengeModels.Method) *Factors {
	f := NewFactors(defaults...)
	for actorID, names := range byActor {
		methods := make([]challengeModels.Method, 0, len(names))
		for _, n := range pstrings.DedupeAndTrimLower(names) {
			if m := challengeModels.Method(n); m.IsValid() {
				methods = append(methods, m)
			}
		}
		f.Enroll(actorID, methods...)
	}
	return f
}

// Enroll replaces actorID's enrolled methods.
func (f *Factors) Enroll(actorID string, methods ...challengeModels.Method) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byActor[actorID] = slices.Clone(methods)
}

func (f *Factors) EnrolledMethods(_ context.Context, actorID string) ([]challengeModels.Method, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if methods, ok := f.byActor[actorID]; ok {
		return slices.Clone(methods), nil
	}
	return slices.Clone(f.defaults), nil
}
