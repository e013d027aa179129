package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyPrefix = "fr:idem"

	DefaultIdempotencyTTL = 24 * time.Hour
	defaultLockTTL        = time.Minute
)

var (
	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

	saveScript = redis.NewScript(`
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
if redis.call("GET", KEYS[2]) == ARGV[1] then
	redis.call("DEL", KEYS[2])
end
return 1
`)
)

// Record is a stored response.
type Record struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// IdempotencyStore remembers the first response for a user's
// Idempotency-Key. Keys are scoped per user.
type IdempotencyStore struct {
	redis   *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
}

func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &IdempotencyStore{redis: client, ttl: ttl, lockTTL: defaultLockTTL}
}

func (s *IdempotencyStore) key(userID, key string) string {
	sum := sha256.Sum256([]byte(key))
	return idempotencyPrefix + ":" + userID + ":" + hex.EncodeToString(sum[:])
}

// Lookup returns the stored record, or nil when there is none.
func (s *IdempotencyStore) Lookup(ctx context.Context, userID, key string) (*Record, error) {
	raw, err := s.redis.Get(ctx, s.key(userID, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup idempotency record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode idempotency record: %w", err)
	}
	return &rec, nil
}

// Reserve takes the in-flight lock and returns its token. It returns false
// while another request with the same key holds it.
func (s *IdempotencyStore) Reserve(ctx context.Context, userID, key string) (string, bool, error) {
	token := uuid.NewString()
	ok, err := s.redis.SetNX(ctx, s.key(userID, key)+":lock", token, s.lockTTL).Result()
	if err != nil {
		return "", false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Save stores rec and releases the lock if token still owns it.
func (s *IdempotencyStore) Save(ctx context.Context, userID, key, token string, rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode idempotency record: %w", err)
	}

	k := s.key(userID, key)
	err = saveScript.Run(ctx, s.redis, []string{k, k + ":lock"}, token, raw, s.ttl.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("save idempotency record: %w", err)
	}
	return nil
}

// Release drops the lock without storing a response. A lock that expired
// and was taken by another request is left alone.
func (s *IdempotencyStore) Release(ctx context.Context, userID, key, token string) error {
	err := releaseScript.Run(ctx, s.redis, []string{s.key(userID, key) + ":lock"}, token).Err()
	if err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}
