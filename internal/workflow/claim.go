package workflow

import (
	"sync"
)

// numClaimShards spreads in-flight claims over independent mutexes so
// advances of different workflows do not contend.
const numClaimShards = 64

// claims tracks which workflows have an operation in flight. The shard
// mutex is held only to flip the flag, never across step execution.
type claims struct {
	shards [numClaimShards]claimShard
}

type claimShard struct {
	mu       sync.Mutex
	inflight map[string]struct{}
}

func newClaims() *claims {
	c := &claims{}
	for i := range c.shards {
		c.shards[i].inflight = make(map[string]struct{})
	}
	return c
}

// acquire claims id, returning false when another operation holds it.
func (c *claims) acquire(id string) bool {
	sh := &c.shards[shardFor(id)]
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, busy := sh.inflight[id]; busy {
		return false
	}
	sh.inflight[id] = struct{}{}
	return true
}

func (c *claims) release(id string) {
	sh := &c.shards[shardFor(id)]
	sh.mu.Lock()
	defer sh.mu.Unlock()
	delete(sh.inflight, id)
}

// shardFor uses FNV-1a.
func shardFor(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h % numClaimShards
}
