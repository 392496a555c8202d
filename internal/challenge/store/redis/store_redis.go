// Package redis shares challenges, device records and redeemed proofs
// across replicas.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"regulus/internal/challenge/models"
	"regulus/pkg/platform/sentinel"
)

const (
	challengePrefix = "challenge:"
	actorPrefix     = "challenge:actor:"
	devicePrefix    = "device:"
	proofPrefix     = "stepup:proof:"

	// challengeGrace keeps expired challenges readable briefly so Verify can
	// report and audit the expiry.
	challengeGrace = time.Minute
)

// saveChallengeScript stores a challenge and drops the actor's previous one.
// KEYS[1] = challenge key, KEYS[2] = actor index key
// ARGV = id, actor, method, code_hash, issued_ms, expires_ms, max_attempts, ttl_ms
var saveChallengeScript = redis.NewScript(`
local prev = redis.call("GET", KEYS[2])
if prev then
    redis.call("DEL", "challenge:" .. prev)
end
redis.call("HSET", KEYS[1],
    "id", ARGV[1], "actor", ARGV[2], "method", ARGV[3], "code_hash", ARGV[4],
    "issued", ARGV[5], "expires", ARGV[6], "attempts", 0, "max_attempts", ARGV[7])
redis.call("PEXPIRE", KEYS[1], ARGV[8])
redis.call("SET", KEYS[2], ARGV[1], "PX", ARGV[8])
return 1
`)

// incrementAttemptsScript never resurrects a deleted challenge and returns
// an empty reply once every attempt is taken.
// KEYS[1] = challenge key
var incrementAttemptsScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
    return false
end
local attempts = tonumber(redis.call("HGET", KEYS[1], "attempts") or "0")
local limit = tonumber(redis.call("HGET", KEYS[1], "max_attempts") or "0")
if attempts >= limit then
    return {}
end
redis.call("HINCRBY", KEYS[1], "attempts", 1)
return redis.call("HGETALL", KEYS[1])
`)

// observeDeviceScript upserts an observation without touching "trusted".
// KEYS[1] = device key
// ARGV = actor, hash, risk, now_ms
var observeDeviceScript = redis.NewScript(`
local created = redis.call("HSETNX", KEYS[1], "first_seen", ARGV[4])
if created == 1 then
    redis.call("HSET", KEYS[1], "actor", ARGV[1], "hash", ARGV[2], "trusted", "0")
end
redis.call("HSET", KEYS[1], "risk", ARGV[3], "last_seen", ARGV[4])
return {created, redis.call("HGETALL", KEYS[1])}
`)

// setTrustScript updates trust only for an observed device.
// KEYS[1] = device key
// ARGV = trusted ("1"/"0"), now_ms
var setTrustScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
    return false
end
redis.call("HSET", KEYS[1], "trusted", ARGV[1], "last_seen", ARGV[2])
return redis.call("HGETALL", KEYS[1])
`)

// ChallengeStore keeps live challenges as hashes with a per-actor index.
type ChallengeStore struct {
	client redis.UniversalClient
}

func NewChallengeStore(client redis.UniversalClient) *ChallengeStore {
	return &ChallengeStore{client: client}
}

// DeviceStore keeps device trust records.
type DeviceStore struct {
	client redis.UniversalClient
}

func NewDeviceStore(client redis.UniversalClient) *DeviceStore {
	return &DeviceStore{client: client}
}

// ProofStore remembers redeemed proofs until they expire.
type ProofStore struct {
	client redis.UniversalClient
}

func NewProofStore(client redis.UniversalClient) *ProofStore {
	return &ProofStore{client: client}
}

func (s *ChallengeStore) Save(ctx context.Context, c *models.Challenge) error {
	ttl := time.Until(c.ExpiresAt) + challengeGrace
	if ttl <= 0 {
		ttl = challengeGrace
	}
	err := saveChallengeScript.Run(ctx, s.client,
		[]string{challengePrefix + c.ID, actorPrefix + c.ActorID},
		c.ID, c.ActorID, string(c.Method), c.CodeHash,
		c.IssuedAt.UnixMilli(), c.ExpiresAt.UnixMilli(), c.MaxAttempts, ttl.Milliseconds(),
	).Err()
	if err != nil {
		return fmt.Errorf("save challenge: %w", err)
	}
	return nil
}

func (s *ChallengeStore) Get(ctx context.Context, id string) (*models.Challenge, error) {
	fields, err := s.client.HGetAll(ctx, challengePrefix+id).Result()
	if err != nil {
		return nil, fmt.Errorf("get challenge: %w", err)
	}
	if len(fields) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return challengeFromHash(fields)
}

func (s *ChallengeStore) IncrementAttempts(ctx context.Context, id string) (*models.Challenge, error) {
	res, err := incrementAttemptsScript.Run(ctx, s.client, []string{challengePrefix + id}).StringSlice()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("increment challenge attempts: %w", err)
	}
	if len(res) == 0 {
		return nil, sentinel.ErrInvalidState
	}
	return challengeFromHash(pairs(res))
}

func (s *ChallengeStore) Delete(ctx context.Context, id string) error {
	key := challengePrefix + id
	actor, err := s.client.HGet(ctx, key, "actor").Result()
	if errors.Is(err, redis.Nil) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete challenge: %w", err)
	}
	n, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("delete challenge: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	// Only clear the index if it still points at this challenge.
	if cur, err := s.client.Get(ctx, actorPrefix+actor).Result(); err == nil && cur == id {
		s.client.Del(ctx, actorPrefix+actor)
	}
	return nil
}

// DeleteExpired is a no-op on Redis: keys carry their own TTL.
func (s *ChallengeStore) DeleteExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}

func deviceKey(actorID, hash string) string {
	return devicePrefix + actorID + ":" + hash
}

func (s *DeviceStore) Observe(ctx context.Context, actorID, hash string, risk float64, now time.Time) (*models.Device, bool, error) {
	res, err := observeDeviceScript.Run(ctx, s.client, []string{deviceKey(actorID, hash)},
		actorID, hash, strconv.FormatFloat(risk, 'f', -1, 64), now.UnixMilli(),
	).Slice()
	if err != nil {
		return nil, false, fmt.Errorf("observe device: %w", err)
	}
	if len(res) != 2 {
		return nil, false, fmt.Errorf("invalid response from observe script")
	}
	created, _ := res[0].(int64)
	raw, _ := res[1].([]interface{})
	flat := make([]string, 0, len(raw))
	for _, v := range raw {
		str, _ := v.(string)
		flat = append(flat, str)
	}
	d, err := deviceFromHash(pairs(flat))
	if err != nil {
		return nil, false, err
	}
	return d, created == 1, nil
}

func (s *DeviceStore) SetTrusted(ctx context.Context, actorID, hash string, trusted bool, now time.Time) (*models.Device, error) {
	flag := "0"
	if trusted {
		flag = "1"
	}
	res, err := setTrustScript.Run(ctx, s.client, []string{deviceKey(actorID, hash)}, flag, now.UnixMilli()).StringSlice()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("set device trust: %w", err)
	}
	return deviceFromHash(pairs(res))
}

func (s *DeviceStore) Get(ctx context.Context, actorID, hash string) (*models.Device, error) {
	fields, err := s.client.HGetAll(ctx, deviceKey(actorID, hash)).Result()
	if err != nil {
		return nil, fmt.Errorf("get device: %w", err)
	}
	if len(fields) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return deviceFromHash(fields)
}

func (s *ProofStore) MarkUsed(ctx context.Context, proofID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl < time.Second {
		ttl = time.Second
	}
	ok, err := s.client.SetNX(ctx, proofPrefix+proofID, "1", ttl).Result()
	if err != nil {
		return fmt.Errorf("mark proof used: %w", err)
	}
	if !ok {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

func pairs(flat []string) map[string]string {
	m := make(map[string]string, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		m[flat[i]] = flat[i+1]
	}
	return m
}

func challengeFromHash(f map[string]string) (*models.Challenge, error) {
	issued, err := strconv.ParseInt(f["issued"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode challenge issued: %w", err)
	}
	expires, err := strconv.ParseInt(f["expires"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode challenge expires: %w", err)
	}
	attempts, _ := strconv.Atoi(f["attempts"])
	maxAttempts, _ := strconv.Atoi(f["max_attempts"])
	return &models.Challenge{
		ID:          f["id"],
		ActorID:     f["actor"],
		Method:      models.Method(f["method"]),
		CodeHash:    f["code_hash"],
		IssuedAt:    time.UnixMilli(issued).UTC(),
		ExpiresAt:   time.UnixMilli(expires).UTC(),
		Attempts:    attempts,
		MaxAttempts: maxAttempts,
	}, nil
}

func deviceFromHash(f map[string]string) (*models.Device, error) {
	first, err := strconv.ParseInt(f["first_seen"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode device first_seen: %w", err)
	}
	last, _ := strconv.ParseInt(f["last_seen"], 10, 64)
	risk, _ := strconv.ParseFloat(f["risk"], 64)
	return &models.Device{
		ActorID:         f["actor"],
		FingerprintHash: f["hash"],
		Trusted:         f["trusted"] == "1",
		RiskScore:       risk,
		FirstSeen:       time.UnixMilli(first).UTC(),
		LastSeen:        time.UnixMilli(last).UTC(),
	}, nil
}
