// Package memory provides single-process challenge, device and proof stores.
package memory

import (
	"context"
	"sync"
	"time"

	"regulus/internal/challenge/models"
	"regulus/pkg/platform/sentinel"
)

// ChallengeStore keeps live challenges with an actor index so a new
// challenge supersedes the previous one.
type ChallengeStore struct {
	mu      sync.Mutex
	byID    map[string]*models.Challenge
	byActor map[string]string
}

func NewChallengeStore() *ChallengeStore {
	return &ChallengeStore{
		byID:    make(map[string]*models.Challenge),
		byActor: make(map[string]string),
	}
}

func (s *ChallengeStore) Save(_ context.Context, c *models.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.byActor[c.ActorID]; ok {
		delete(s.byID, prev)
	}
	stored := *c
	s.byID[c.ID] = &stored
	s.byActor[c.ActorID] = c.ID
	return nil
}

func (s *ChallengeStore) Get(_ context.Context, id string) (*models.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (s *ChallengeStore) IncrementAttempts(_ context.Context, id string) (*models.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if c.IsExhausted() {
		return nil, sentinel.ErrInvalidState
	}
	c.Attempts++
	out := *c
	return &out, nil
}

func (s *ChallengeStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	s.remove(c)
	return nil
}

func (s *ChallengeStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for _, c := range s.byID {
		if c.IsExpiredAt(now) {
			s.remove(c)
			removed++
		}
	}
	return removed, nil
}

// remove requires mu.
func (s *ChallengeStore) remove(c *models.Challenge) {
	delete(s.byID, c.ID)
	if s.byActor[c.ActorID] == c.ID {
		delete(s.byActor, c.ActorID)
	}
}

// DeviceStore keeps device trust records keyed by actor and fingerprint hash.
type DeviceStore struct {
	mu      sync.Mutex
	devices map[string]*models.Device
}

func NewDeviceStore() *DeviceStore {
	return &DeviceStore{devices: make(map[string]*models.Device)}
}

func deviceKey(actorID, hash string) string {
	return actorID + "|" + hash
}

func (s *DeviceStore) Observe(_ context.Context, actorID, hash string, risk float64, now time.Time) (*models.Device, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := deviceKey(actorID, hash)
	d, ok := s.devices[key]
	if !ok {
		d = &models.Device{ActorID: actorID, FingerprintHash: hash, FirstSeen: now}
		s.devices[key] = d
	}
	d.RiskScore = risk
	d.LastSeen = now
	out := *d
	return &out, !ok, nil
}

func (s *DeviceStore) SetTrusted(_ context.Context, actorID, hash string, trusted bool, now time.Time) (*models.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[deviceKey(actorID, hash)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	d.Trusted = trusted
	d.LastSeen = now
	out := *d
	return &out, nil
}

func (s *DeviceStore) Get(_ context.Context, actorID, hash string) (*models.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[deviceKey(actorID, hash)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *d
	return &out, nil
}

// ProofStore remembers redeemed proof ids until their expiry.
type ProofStore struct {
	mu   sync.Mutex
	used map[string]time.Time
}

func NewProofStore() *ProofStore {
	return &ProofStore{used: make(map[string]time.Time)}
}

func (s *ProofStore) MarkUsed(_ context.Context, proofID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.used[proofID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.used[proofID] = expiresAt
	return nil
}

// Sweep forgets proofs that expired before now; a replay of one fails
// signature-time validation anyway.
func (s *ProofStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, exp := range s.used {
		if now.After(exp) {
			delete(s.used, id)
			removed++
		}
	}
	return removed
}
