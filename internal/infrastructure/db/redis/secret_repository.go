package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bookstore/backoffice/internal/core/domain"
	"github.com/bookstore/backoffice/internal/core/ports"
)

// Key prefixes for the four rotating secret stores.
const (
	PrefixEmployeeRefresh = "rt:employee"
	PrefixClientRefresh   = "rt:client"
	PrefixEmployeeReset   = "rc:employee"
	PrefixClientReset     = "rc:client"
)

const (
	fieldSecret    = "secret"
	fieldOwnerID   = "owner_id"
	fieldEmail     = "owner_email"
	fieldExpiresAt = "expires_at"
	fieldCreatedAt = "created_at"
)

// swapSecretLua replaces the owner's record only if it still holds the
// expected secret and has not expired.
// KEYS[1] = owner key
// ARGV[1] = expected secret
// ARGV[2] = now (unix ms)
// ARGV[3..7] = secret, owner_id, owner_email, expires_at (unix ms), created_at (unix ms)
var swapSecretLua = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'secret')
if not cur or cur ~= ARGV[1] then
  return 0
end
local exp = tonumber(redis.call('HGET', KEYS[1], 'expires_at'))
if not exp or exp <= tonumber(ARGV[2]) then
  return 0
end
redis.call('DEL', KEYS[1])
redis.call('HSET', KEYS[1], 'secret', ARGV[3], 'owner_id', ARGV[4], 'owner_email', ARGV[5], 'expires_at', ARGV[6], 'created_at', ARGV[7])
redis.call('PEXPIREAT', KEYS[1], ARGV[6])
return 1
`)

// consumeSecretLua deletes the owner's record only if it holds the given
// secret and has not expired.
// KEYS[1] = owner key
// ARGV[1] = secret
// ARGV[2] = now (unix ms)
var consumeSecretLua = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'secret')
if not cur or cur ~= ARGV[1] then
  return 0
end
local exp = tonumber(redis.call('HGET', KEYS[1], 'expires_at'))
if not exp or exp <= tonumber(ARGV[2]) then
  return 0
end
redis.call('DEL', KEYS[1])
return 1
`)

// SecretRepository keeps each owner's secret in a hash at <prefix>:<owner_id>.
// Redis expires the key at the record's expiry.
type SecretRepository struct {
	client redis.UniversalClient
	prefix string
}

func NewSecretRepository(client redis.UniversalClient, prefix string) *SecretRepository {
	return &SecretRepository{client: client, prefix: prefix}
}

// NewSecretRepositories returns the four stores keyed by role and purpose.
func NewSecretRepositories(client redis.UniversalClient) ports.SecretRepositories {
	return ports.SecretRepositories{
		EmployeeRefresh: NewSecretRepository(client, PrefixEmployeeRefresh),
		ClientRefresh:   NewSecretRepository(client, PrefixClientRefresh),
		EmployeeReset:   NewSecretRepository(client, PrefixEmployeeReset),
		ClientReset:     NewSecretRepository(client, PrefixClientReset),
	}
}

func (r *SecretRepository) key(ownerID string) string {
	return r.prefix + ":" + ownerID
}

// Replace drops and rewrites the owner's hash in one MULTI/EXEC.
func (r *SecretRepository) Replace(ctx context.Context, rec domain.SecretRecord) error {
	key := r.key(rec.OwnerID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, recordFields(rec)...)
		pipe.PExpireAt(ctx, key, rec.ExpiresAt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace secret: %w", err)
	}
	return nil
}

func (r *SecretRepository) FindByOwner(ctx context.Context, ownerID string) (*domain.SecretRecord, error) {
	vals, err := r.client.HGetAll(ctx, r.key(ownerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("find secret: %w", err)
	}
	if len(vals) == 0 || vals[fieldSecret] == "" {
		return nil, domain.ErrSecretNotFound
	}
	return parseRecord(vals)
}

func (r *SecretRepository) DeleteByOwner(ctx context.Context, ownerID string) error {
	if err := r.client.Del(ctx, r.key(ownerID)).Err(); err != nil {
		return fmt.Errorf("delete secret: %w", err)
	}
	return nil
}

func (r *SecretRepository) Swap(ctx context.Context, ownerID, expected string, next domain.SecretRecord, now time.Time) (bool, error) {
	if expected == "" {
		return false, nil
	}
	args := append([]interface{}{expected, now.UnixMilli()}, recordValues(next)...)
	n, err := swapSecretLua.Run(ctx, r.client, []string{r.key(ownerID)}, args...).Int()
	if err != nil {
		return false, fmt.Errorf("swap secret: %w", err)
	}
	return n == 1, nil
}

func (r *SecretRepository) DeleteIfMatch(ctx context.Context, ownerID, secret string, now time.Time) (bool, error) {
	if secret == "" {
		return false, nil
	}
	n, err := consumeSecretLua.Run(ctx, r.client, []string{r.key(ownerID)}, secret, now.UnixMilli()).Int()
	if err != nil {
		return false, fmt.Errorf("consume secret: %w", err)
	}
	return n == 1, nil
}

func recordValues(rec domain.SecretRecord) []interface{} {
	return []interface{}{
		rec.Secret,
		rec.OwnerID,
		rec.OwnerEmail,
		rec.ExpiresAt.UnixMilli(),
		rec.CreatedAt.UnixMilli(),
	}
}

func recordFields(rec domain.SecretRecord) []interface{} {
	v := recordValues(rec)
	return []interface{}{
		fieldSecret, v[0],
		fieldOwnerID, v[1],
		fieldEmail, v[2],
		fieldExpiresAt, v[3],
		fieldCreatedAt, v[4],
	}
}

var errCorruptRecord = errors.New("corrupt secret record")

func parseRecord(vals map[string]string) (*domain.SecretRecord, error) {
	exp, err := strconv.ParseInt(vals[fieldExpiresAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: expires_at: %v", errCorruptRecord, err)
	}
	created, err := strconv.ParseInt(vals[fieldCreatedAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: created_at: %v", errCorruptRecord, err)
	}
	return &domain.SecretRecord{
		Secret:     vals[fieldSecret],
		OwnerID:    vals[fieldOwnerID],
		OwnerEmail: vals[fieldEmail],
		ExpiresAt:  time.UnixMilli(exp).UTC(),
		CreatedAt:  time.UnixMilli(created).UTC(),
	}, nil
}
